// Command triangle is the minimal smoke-test program for the Render
// Hardware Interface: it opens a window, creates an Instance/Device on
// the wgpu backend, builds a render graph with a single render pass
// that clears the swapchain image, and runs the frame loop.
//
// It deliberately skips vertex/index buffers and an actual triangle
// pipeline -- per spec.md's Non-goals, asset loading and shader
// authoring are out of this module's scope -- and exists to exercise
// BeginFrame/NewRenderGraphBuilder/ExecuteConsecutive/EndFrame end to
// end the way a real application would drive them.
package main

import (
	"context"
	"fmt"
	"log"

	wgpubackend "github.com/kestrel-forge/rhi/backend/wgpu"
	"github.com/kestrel-forge/rhi/device"
	"github.com/kestrel-forge/rhi/rendergraph"
	"github.com/kestrel-forge/rhi/rhi"
	"github.com/kestrel-forge/rhi/window"
)

// swapchainTexture adapts the single rhi.View a Swapchain.AcquireNext
// hands back into the one-view rhi.Texture the Resource-Version
// Registry needs to import it as a render graph attachment. Release is
// a no-op since the Swapchain owns the underlying image's lifetime.
type swapchainTexture struct {
	view   rhi.View
	format rhi.PixelFmt
	extent rhi.Dim3D
}

func (t *swapchainTexture) Release()                {}
func (t *swapchainTexture) Format() rhi.PixelFmt     { return t.format }
func (t *swapchainTexture) Type() rhi.TextureType    { return rhi.Tex2D }
func (t *swapchainTexture) Extent() rhi.Dim3D        { return t.extent }
func (t *swapchainTexture) MipLevels() int           { return 1 }
func (t *swapchainTexture) Layers() int              { return 1 }
func (t *swapchainTexture) Samples() int             { return 1 }
func (t *swapchainTexture) CubeCompatible() bool     { return false }
func (t *swapchainTexture) Usage() rhi.Usage         { return rhi.URenderTarget }
func (t *swapchainTexture) View(index int) rhi.View  { return t.view }
func (t *swapchainTexture) ViewCount() int           { return 1 }
func (t *swapchainTexture) NewView(typ rhi.ViewType, firstLayer, layerCount, firstMip, mipCount int) (int, error) {
	return 0, fmt.Errorf("swapchain texture has only its default view")
}

var _ rhi.Texture = (*swapchainTexture)(nil)

func main() {
	win, err := window.NewWindow(
		window.WithTitle("rhi triangle"),
		window.WithWidth(1280),
		window.WithHeight(720),
	)
	if err != nil {
		log.Fatalf("creating window: %v", err)
	}
	defer win.Close()

	backend := wgpubackend.New(win.SurfaceDescriptor(), false)
	inst := device.Create(backend, device.ValidationBasic)

	infos, err := inst.DeviceInfoList()
	if err != nil {
		log.Fatalf("enumerating devices: %v", err)
	}
	if len(infos) == 0 {
		log.Fatalf("no adapters available")
	}
	log.Printf("using adapter %q (discrete=%v)", infos[0].Name, infos[0].Discrete)

	const framesInFlight = 2
	dev, err := inst.CreateDevice(infos[0].ID, framesInFlight)
	if err != nil {
		log.Fatalf("creating device: %v", err)
	}

	sc, err := dev.NewSwapchain(win)
	if err != nil {
		log.Fatalf("creating swapchain: %v", err)
	}
	win.SetResizeCallback(func(width, height int) {
		if err := sc.Recreate(width, height); err != nil {
			log.Printf("swapchain recreate: %v", err)
		}
	})

	ctx := context.Background()
	for win.IsRunning() && win.PollEvents() {
		if err := runFrame(ctx, dev, sc); err != nil {
			log.Fatalf("frame: %v", err)
		}
	}
}

func runFrame(ctx context.Context, dev *device.Device, sc rhi.Swapchain) error {
	_, needsRecreate, err := dev.BeginFrame(ctx, sc)
	if err != nil {
		return fmt.Errorf("BeginFrame: %w", err)
	}
	if needsRecreate {
		extent := sc.Extent()
		return sc.Recreate(extent.Width, extent.Height)
	}

	tex := &swapchainTexture{view: dev.CurrentSwapchainView(), format: sc.Format(), extent: sc.Extent()}

	b := dev.NewRenderGraphBuilder("clear")
	colorVersion := b.ImportTexture(tex, rhi.Undefined, rhi.PresentTexture)

	b.BeginRenderPass("clear-swapchain")
	b.AddColorTarget(colorVersion, rhi.LoadClear, rhi.StoreStore)
	b.SetJob(func(g *rendergraph.Graph, ctx rhi.Context, cb rhi.CmdBuffer) {
		// The cleared attachment's load/store ops do all the work in
		// this smoke test; no draw calls are issued.
	})
	b.EndRenderPass()

	graph, err := b.Build(dev, "clear")
	if err != nil {
		return fmt.Errorf("building render graph: %w", err)
	}

	if err := dev.ExecuteConsecutive(ctx, graph); err != nil {
		return fmt.Errorf("ExecuteConsecutive: %w", err)
	}

	if _, err := dev.EndFrame(ctx); err != nil {
		return fmt.Errorf("EndFrame: %w", err)
	}
	return nil
}
