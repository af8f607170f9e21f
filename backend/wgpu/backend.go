// Package wgpu adapts github.com/cogentcore/webgpu/wgpu into the
// Render Hardware Interface: it implements rhi.GPU, rhi.Swapchain, and
// bindless.Writer the way engine/renderer/wgpu_renderer_backend.go
// implemented RendererBackend — instance/adapter/device/queue creation
// up front, resource creation delegated straight to wgpu, and a single
// mutex guarding the device for calls made off the render thread.
//
// WebGPU exposes exactly one hardware queue; there is no adapter-level
// concept of separate graphics/compute/async-transfer queue families.
// Backend therefore reports only rhi.QueueMain as available (Queues),
// letting the Cross-Queue Scheduler's documented fallback-to-main apply
// uniformly (spec.md §4.5) rather than faking distinct queues that
// would serialize against each other anyway.
package wgpu

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/kestrel-forge/rhi/bindless"
	"github.com/kestrel-forge/rhi/device"
	"github.com/kestrel-forge/rhi/rhi"
	"github.com/kestrel-forge/rhi/window"
)

// Backend is the device.Backend implementation backed by wgpu-native.
type Backend struct {
	surfaceDescriptor *wgpu.SurfaceDescriptor
	forceFallback     bool
}

// New returns a Backend that will create its surface from sd (obtained
// from window.Window.SurfaceDescriptor). forceFallback requests the
// CPU/software adapter where the platform provides one, mirroring
// WithForceSoftwareRenderer's purpose in the teacher's renderer.
func New(sd *wgpu.SurfaceDescriptor, forceFallback bool) *Backend {
	return &Backend{surfaceDescriptor: sd, forceFallback: forceFallback}
}

// EnumerateDevices reports the single adapter wgpu-native resolves for
// this process. wgpu-native (unlike Vulkan) does not expose a
// multi-adapter enumeration API ahead of instance/surface creation on
// every platform, so id 0 always names "the adapter RequestAdapter
// would choose".
func (b *Backend) EnumerateDevices() ([]device.DeviceInfo, error) {
	inst := wgpu.CreateInstance(nil)
	defer inst.Release()
	surface := inst.CreateSurface(b.surfaceDescriptor)
	defer surface.Release()
	a, err := inst.RequestAdapter(&wgpu.RequestAdapterOptions{
		ForceFallbackAdapter: b.forceFallback,
		CompatibleSurface:    surface,
	})
	if err != nil {
		return nil, fmt.Errorf("wgpu: requesting adapter: %w", err)
	}
	defer a.Release()
	info := a.GetInfo()
	return []device.DeviceInfo{{
		ID:          0,
		Name:        info.Name,
		Discrete:    info.AdapterType == wgpu.AdapterTypeDiscreteGPU,
		VideoMemory: 0,
	}}, nil
}

// CreateGPU creates the wgpu instance/adapter/device/queue and wraps
// them as an rhi.GPU. validation is stored on the returned GPU; no
// wgpu-native device-lost or uncaptured-error callback is registered
// from it.
func (b *Backend) CreateGPU(id int, validation device.ValidationLevel) (rhi.GPU, error) {
	inst := wgpu.CreateInstance(nil)
	surface := inst.CreateSurface(b.surfaceDescriptor)

	a, err := inst.RequestAdapter(&wgpu.RequestAdapterOptions{
		ForceFallbackAdapter: b.forceFallback,
		CompatibleSurface:    surface,
	})
	if err != nil {
		return nil, fmt.Errorf("wgpu: requesting adapter: %w", err)
	}

	limits := wgpu.DefaultLimits()
	limits.MaxBindGroups = 8

	dev, err := a.RequestDevice(&wgpu.DeviceDescriptor{
		Label:          "rhi device",
		RequiredLimits: &wgpu.RequiredLimits{Limits: limits},
	})
	if err != nil {
		return nil, fmt.Errorf("wgpu: requesting device: %w", err)
	}

	pushConstants, err := dev.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "push constant emulation",
		Size:  256,
		Usage: wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("wgpu: creating push-constant buffer: %w", err)
	}

	g := &GPU{
		instance:           inst,
		adapter:            a,
		device:             dev,
		queue:              dev.GetQueue(),
		surface:            surface,
		validation:         validation,
		limits:             limits,
		pushConstantBuffer: pushConstants,
	}
	return g, nil
}

// CreateSwapchain configures surface presentation for win.
func (b *Backend) CreateSwapchain(gpu rhi.GPU, win window.Window, framesInFlight int) (rhi.Swapchain, error) {
	g, ok := gpu.(*GPU)
	if !ok {
		return nil, fmt.Errorf("wgpu: CreateSwapchain called with a non-wgpu GPU")
	}
	sc := &Swapchain{gpu: g}
	if err := sc.configure(win.Width(), win.Height()); err != nil {
		return nil, err
	}
	return sc, nil
}

// CreateBindlessWriter returns the descriptor-table Writer for gpu.
func (b *Backend) CreateBindlessWriter(gpu rhi.GPU) (bindless.Writer, error) {
	g, ok := gpu.(*GPU)
	if !ok {
		return nil, fmt.Errorf("wgpu: CreateBindlessWriter called with a non-wgpu GPU")
	}
	return newWriter(g), nil
}

var _ device.Backend = (*Backend)(nil)
