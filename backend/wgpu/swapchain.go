package wgpu

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/kestrel-forge/rhi/rhi"
)

// Swapchain wraps a *wgpu.Surface, following ConfigureSurface's
// capability-query-then-Configure shape from the teacher's renderer
// backend. Unlike a Vulkan swapchain it carries no separate image pool:
// GetCurrentTexture hands back a fresh *wgpu.Texture each acquire, which
// Swapchain releases on the following Present.
type Swapchain struct {
	gpu    *GPU
	format wgpu.TextureFormat
	extent rhi.Dim3D

	current *wgpu.SurfaceTexture
	view    *View
}

func (sc *Swapchain) configure(width, height int) error {
	caps := sc.gpu.surface.GetCapabilities(sc.gpu.adapter)
	if len(caps.Formats) == 0 {
		return fmt.Errorf("wgpu: surface reports no supported formats")
	}
	sc.format = caps.Formats[0]
	sc.gpu.surface.Configure(sc.gpu.adapter, sc.gpu.device, &wgpu.SurfaceConfiguration{
		Usage:       wgpu.TextureUsageRenderAttachment,
		Format:      sc.format,
		Width:       uint32(width),
		Height:      uint32(height),
		PresentMode: wgpu.PresentModeFifo,
		AlphaMode:   caps.AlphaModes[0],
	})
	sc.extent = rhi.Dim3D{Width: width, Height: height, Depth: 1}
	return nil
}

func (sc *Swapchain) Release() {}

// AcquireNext acquires the current surface texture. wgpu-native has no
// separate acquire semaphore to signal -- GetCurrentTexture blocks
// until an image is ready -- so acquireSignal is simply signaled to 1
// immediately, keeping the timeline-semaphore contract Device relies on
// intact for backends that do need a real wait.
func (sc *Swapchain) AcquireNext(acquireSignal rhi.TimelineSemaphore) (int, rhi.View, bool, error) {
	st, err := sc.gpu.surface.GetCurrentTexture()
	if err != nil {
		return 0, nil, true, nil
	}
	if st.Status != wgpu.SurfaceGetCurrentTextureStatusSuccess &&
		st.Status != wgpu.SurfaceGetCurrentTextureStatusSuboptimal {
		return 0, nil, true, nil
	}
	nv, err := st.Texture.CreateView(nil)
	if err != nil {
		return 0, nil, false, fmt.Errorf("wgpu: creating swapchain view: %w", err)
	}
	sc.current = st
	sc.view = &View{native: nv, typ: rhi.View2D, mipCount: 1, layerCount: 1}

	if err := acquireSignal.Signal(1); err != nil {
		return 0, nil, false, err
	}
	return 0, sc.view, st.Status == wgpu.SurfaceGetCurrentTextureStatusSuboptimal, nil
}

// Present presents the image AcquireNext last returned. waitSemaphore
// has already been signaled by the end-of-frame GPU.Submit, which
// returns only after its work completes, by the time Device calls
// Present, so this only needs to call through to the surface and
// release the transient view/texture.
func (sc *Swapchain) Present(waitSemaphore rhi.TimelineSemaphore, waitValue uint64) (bool, error) {
	if sc.current == nil {
		return false, fmt.Errorf("wgpu: Present called without a matching AcquireNext")
	}
	sc.gpu.surface.Present()
	sc.view.native.Release()
	sc.current.Texture.Release()
	sc.current = nil
	sc.view = nil
	return false, nil
}

func (sc *Swapchain) Recreate(width, height int) error {
	return sc.configure(width, height)
}

func (sc *Swapchain) ImageCount() int { return 2 }

func (sc *Swapchain) Format() rhi.PixelFmt {
	switch sc.format {
	case wgpu.TextureFormatBGRA8UnormSrgb:
		return rhi.BGRA8sRGB
	case wgpu.TextureFormatRGBA8UnormSrgb:
		return rhi.RGBA8sRGB
	case wgpu.TextureFormatRGBA8Unorm:
		return rhi.RGBA8un
	default:
		return rhi.BGRA8un
	}
}

func (sc *Swapchain) Extent() rhi.Dim3D { return sc.extent }

var _ rhi.Swapchain = (*Swapchain)(nil)
