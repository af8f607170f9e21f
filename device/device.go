// Package device implements the Device & Instance component: the
// single logical device bound to one physical adapter, owning the
// queues, bindless descriptor manager, transfer engine, and the
// per-frame lifecycle that drives render graph execution (spec.md §2,
// §4.1).
package device

import (
	"context"
	"fmt"

	"github.com/kestrel-forge/rhi/bindless"
	"github.com/kestrel-forge/rhi/registry"
	"github.com/kestrel-forge/rhi/rendergraph"
	"github.com/kestrel-forge/rhi/rhi"
	"github.com/kestrel-forge/rhi/transfer"
	"github.com/kestrel-forge/rhi/window"
)

const (
	defaultStagingCapacity  = 64 << 20
	defaultMaxGraphsPerFrame = 4
)

// Device is the single logical GPU device for the process (spec.md §2
// "Device"). It owns the registry, bindless manager, and transfer
// engine as singletons, and drives the BeginFrame/ExecuteConsecutive*/
// EndFrame lifecycle.
type Device struct {
	backend Backend
	gpu     rhi.GPU

	framesInFlight    int
	stagingCapacity   int64
	maxGraphsPerFrame uint64

	registry *registry.Registry
	bindless *bindless.Manager
	transfer *transfer.Engine

	inFlight      []rhi.TimelineSemaphore
	inFlightValue []uint64
	acquire       []rhi.TimelineSemaphore
	acquireValue  []uint64
	rendered      []rhi.TimelineSemaphore

	graphSem rhi.TimelineSemaphore

	absoluteFrame uint64
	frameIndex    int
	frameSlot     int
	graphsThisFrame uint64
	lastGraphValue  uint64

	swapchain         rhi.Swapchain
	currentView       rhi.View
	currentTextureIdx int
}

// newDevice is called by Instance.CreateDevice after the backend has
// produced a GPU for the chosen adapter.
func newDevice(backend Backend, gpu rhi.GPU, framesInFlight int, opts ...Option) (*Device, error) {
	d := &Device{
		backend:           backend,
		gpu:               gpu,
		framesInFlight:    framesInFlight,
		stagingCapacity:   defaultStagingCapacity,
		maxGraphsPerFrame: defaultMaxGraphsPerFrame,
		registry:          registry.New(),
	}
	for _, opt := range opts {
		opt(d)
	}

	defaultSampler, err := gpu.NewSampler(&rhi.DefaultSampling)
	if err != nil {
		return nil, fmt.Errorf("device: creating default sampler: %w", err)
	}
	writer, err := backend.CreateBindlessWriter(gpu)
	if err != nil {
		return nil, fmt.Errorf("device: creating bindless writer: %w", err)
	}
	d.bindless = bindless.New(writer, defaultSampler)

	transferEngine, err := transfer.New(gpu, rhi.QueueTransfer, d.stagingCapacity)
	if err != nil {
		return nil, fmt.Errorf("device: creating transfer engine: %w", err)
	}
	d.transfer = transferEngine

	for i := 0; i < framesInFlight; i++ {
		fence, err := gpu.NewTimelineSemaphore(rhi.QueueMain)
		if err != nil {
			return nil, fmt.Errorf("device: creating in-flight fence %d: %w", i, err)
		}
		acquireSem, err := gpu.NewTimelineSemaphore(rhi.QueueMain)
		if err != nil {
			return nil, fmt.Errorf("device: creating acquire semaphore %d: %w", i, err)
		}
		renderedSem, err := gpu.NewTimelineSemaphore(rhi.QueueMain)
		if err != nil {
			return nil, fmt.Errorf("device: creating render-finished semaphore %d: %w", i, err)
		}
		d.inFlight = append(d.inFlight, fence)
		d.acquire = append(d.acquire, acquireSem)
		d.rendered = append(d.rendered, renderedSem)
	}
	d.inFlightValue = make([]uint64, framesInFlight)
	d.acquireValue = make([]uint64, framesInFlight)

	graphSem, err := gpu.NewTimelineSemaphore(rhi.QueueMain)
	if err != nil {
		return nil, fmt.Errorf("device: creating render-graph semaphore: %w", err)
	}
	d.graphSem = graphSem

	return d, nil
}

// FramesInFlight returns the number of frames of CPU/GPU overlap this
// Device was created with.
func (d *Device) FramesInFlight() int { return d.framesInFlight }

// CurrentFrame returns the frame-in-flight slot index (spec.md §2
// "Device.CurrentFrame").
func (d *Device) CurrentFrame() int { return d.frameSlot }

// CurrentAbsoluteFrame returns the monotonically increasing frame
// counter (spec.md §2 "Device.CurrentAbsoluteFrame").
func (d *Device) CurrentAbsoluteFrame() uint64 { return d.absoluteFrame }

// AbsoluteFrame implements rhi.Context.
func (d *Device) AbsoluteFrame() uint64 { return d.absoluteFrame }

// FrameIndex implements rhi.Context.
func (d *Device) FrameIndex() int { return d.frameSlot }

// Bindless returns the device's Bindless Descriptor Manager.
func (d *Device) Bindless() *bindless.Manager { return d.bindless }

// CurrentSwapchainView returns the view BeginFrame's last successful
// acquire bound, for a render graph to import as its present target.
func (d *Device) CurrentSwapchainView() rhi.View { return d.currentView }

// Registry returns the device's Resource-Version Registry.
func (d *Device) Registry() *registry.Registry { return d.registry }

// NewRenderGraphBuilder starts building a render graph against this
// device's registry, using the device itself as the graph's rhi.Context
// (spec.md §2 "Device.NewRenderGraphBuilder"). name is not used; the
// graph's name is the one later passed to Builder.Build.
func (d *Device) NewRenderGraphBuilder(name string) *rendergraph.Builder {
	return rendergraph.NewBuilder(d.registry, d)
}

// WaitIdle blocks until all submitted work across every queue
// completes (spec.md §2 "Device.WaitIdle").
func (d *Device) WaitIdle(ctx context.Context) error {
	return d.gpu.WaitIdle(ctx)
}

// NewTexture, NewBuffer, NewSampler, and NewShaderModule are the
// non-transient resource factories a caller uses to build persistent
// (imported) resources before handing them to a render graph builder
// (spec.md §2 "Device... factory methods for swapchain, texture,
// buffer, shader module, pipelines").
func (d *Device) NewTexture(pf rhi.PixelFmt, typ rhi.TextureType, size rhi.Dim3D, layers, levels, samples int, cubeCompatible bool, usg rhi.Usage) (rhi.Texture, error) {
	return d.gpu.NewTexture(pf, typ, size, layers, levels, samples, cubeCompatible, usg)
}

func (d *Device) NewBuffer(size int64, visible bool, usg rhi.Usage) (rhi.Buffer, error) {
	return d.gpu.NewBuffer(size, visible, usg)
}

func (d *Device) NewSampler(s *rhi.Sampling) (rhi.Sampler, error) {
	return d.gpu.NewSampler(s)
}

func (d *Device) NewShaderModule(data []byte) (rhi.ShaderCode, error) {
	return d.gpu.NewShaderCode(data)
}

func (d *Device) NewPipeline(state any) (rhi.Pipeline, error) {
	return d.gpu.NewPipeline(state)
}

// NewSwapchain creates the presentation surface bound to win, sized for
// this device's frame-in-flight count (spec.md §2 "Swapchain").
func (d *Device) NewSwapchain(win window.Window) (rhi.Swapchain, error) {
	return d.backend.CreateSwapchain(d.gpu, win, d.framesInFlight)
}

// RequestDedicatedTransfer enqueues a staging copy on the Transfer
// Engine (spec.md §4.1 "RequestDedicatedTransfer(request)").
func (d *Device) RequestDedicatedTransfer(req transfer.Request) error {
	return d.transfer.Request(req)
}

// --- rendergraph.GraphDevice ---

func (d *Device) NewTransientTexture(info rendergraph.TextureInfo) (rhi.Texture, error) {
	return d.gpu.NewTexture(info.Format, info.Type, info.Extent, info.Layers, info.MipLevels, info.Samples, info.CubeCompatible, info.Usage)
}

func (d *Device) NewTransientBuffer(info rendergraph.BufferInfo) (rhi.Buffer, error) {
	return d.gpu.NewBuffer(info.Size, info.Visible, info.Usage)
}

func (d *Device) NewCmdBuffer(role rhi.QueueRole) (rhi.CmdBuffer, error) {
	return d.gpu.NewCmdBuffer(role)
}

func (d *Device) Submit(role rhi.QueueRole, cb []rhi.CmdBuffer, waits, signals []rhi.SemaphoreOp) error {
	return d.gpu.Submit(role, cb, waits, signals)
}

func (d *Device) NewTimelineSemaphore(role rhi.QueueRole) (rhi.TimelineSemaphore, error) {
	return d.gpu.NewTimelineSemaphore(role)
}

func (d *Device) QueueRoles() map[rhi.QueueRole]bool {
	return d.gpu.Queues()
}

var _ rendergraph.GraphDevice = (*Device)(nil)
var _ rhi.Context = (*Device)(nil)
