package device_test

import (
	"context"
	"testing"

	"github.com/kestrel-forge/rhi/bindless"
	"github.com/kestrel-forge/rhi/device"
	"github.com/kestrel-forge/rhi/internal/rhitest"
	"github.com/kestrel-forge/rhi/rendergraph"
	"github.com/kestrel-forge/rhi/rhi"
	"github.com/kestrel-forge/rhi/window"
)

type fakeWriter struct{}

func (fakeWriter) WriteBuffer(binding bindless.Binding, index uint16, buf rhi.Buffer)             {}
func (fakeWriter) WriteImageView(binding bindless.Binding, index uint16, view rhi.View, s rhi.Sampler) {}
func (fakeWriter) Clear(binding bindless.Binding, index uint16)                                   {}

type fakeSwapchain struct {
	gpu          *rhitest.GPU
	extent       rhi.Dim3D
	suboptimal   bool
	presentCount int
}

func (s *fakeSwapchain) Release() {}
func (s *fakeSwapchain) AcquireNext(acquireSignal rhi.TimelineSemaphore) (int, rhi.View, bool, error) {
	if s.suboptimal {
		return 0, nil, true, nil
	}
	tex := rhitest.NewTexture(rhi.BGRA8un, rhi.Tex2D, s.extent, 1, 1, 1, false, rhi.URenderTarget)
	return 0, tex.View(0), false, nil
}
func (s *fakeSwapchain) Present(waitSemaphore rhi.TimelineSemaphore, waitValue uint64) (bool, error) {
	s.presentCount++
	return s.suboptimal, nil
}
func (s *fakeSwapchain) Recreate(width, height int) error {
	s.extent = rhi.Dim3D{Width: width, Height: height, Depth: 1}
	return nil
}
func (s *fakeSwapchain) ImageCount() int     { return 2 }
func (s *fakeSwapchain) Format() rhi.PixelFmt { return rhi.BGRA8un }
func (s *fakeSwapchain) Extent() rhi.Dim3D   { return s.extent }

var _ rhi.Swapchain = (*fakeSwapchain)(nil)

type fakeBackend struct {
	gpu *rhitest.GPU
	sc  *fakeSwapchain
}

func (b *fakeBackend) EnumerateDevices() ([]device.DeviceInfo, error) {
	return []device.DeviceInfo{{ID: 0, Name: "fake", Discrete: false}}, nil
}
func (b *fakeBackend) CreateGPU(id int, validation device.ValidationLevel) (rhi.GPU, error) {
	return b.gpu, nil
}
func (b *fakeBackend) CreateSwapchain(gpu rhi.GPU, win window.Window, framesInFlight int) (rhi.Swapchain, error) {
	return b.sc, nil
}
func (b *fakeBackend) CreateBindlessWriter(gpu rhi.GPU) (bindless.Writer, error) {
	return fakeWriter{}, nil
}

var _ device.Backend = (*fakeBackend)(nil)

func newTestDevice(t *testing.T) (*device.Device, *fakeSwapchain) {
	t.Helper()
	gpu := rhitest.NewGPU()
	sc := &fakeSwapchain{gpu: gpu, extent: rhi.Dim3D{Width: 1920, Height: 1080, Depth: 1}}
	backend := &fakeBackend{gpu: gpu, sc: sc}
	inst := device.Create(backend, device.ValidationBasic)
	d, err := inst.CreateDevice(0, 2)
	if err != nil {
		t.Fatalf("CreateDevice: %v", err)
	}
	return d, sc
}

func TestBeginFrameAcquiresAndAdvancesFrame(t *testing.T) {
	d, sc := newTestDevice(t)
	idx, recreate, err := d.BeginFrame(context.Background(), sc)
	if err != nil {
		t.Fatalf("BeginFrame: %v", err)
	}
	if recreate {
		t.Fatalf("unexpected recreate signal")
	}
	if idx != 0 {
		t.Fatalf("index = %d, want 0", idx)
	}
	if _, err := d.EndFrame(context.Background()); err != nil {
		t.Fatalf("EndFrame: %v", err)
	}
	if d.CurrentAbsoluteFrame() != 1 {
		t.Fatalf("absolute frame = %d, want 1", d.CurrentAbsoluteFrame())
	}
}

func TestBeginFrameSignalsRecreateOnSuboptimal(t *testing.T) {
	d, sc := newTestDevice(t)
	sc.suboptimal = true
	_, recreate, err := d.BeginFrame(context.Background(), sc)
	if err != nil {
		t.Fatalf("BeginFrame: %v", err)
	}
	if !recreate {
		t.Fatalf("expected recreate signal on suboptimal acquire")
	}
}

func TestExecuteConsecutiveRunsBuiltGraph(t *testing.T) {
	d, sc := newTestDevice(t)
	if _, _, err := d.BeginFrame(context.Background(), sc); err != nil {
		t.Fatalf("BeginFrame: %v", err)
	}

	b := d.NewRenderGraphBuilder("frame")
	dst := b.DeclareTransientBuffer(rendergraphBufferInfo())
	b.BeginTransfer("upload", false)
	b.WriteBuffer(dst, rhi.TransferDst)
	ran := false
	b.SetJob(func(g *rendergraph.Graph, ctx rhi.Context, cb rhi.CmdBuffer) { ran = true })
	b.EndTransfer()

	graph, err := b.Build(d, "frame")
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if err := d.ExecuteConsecutive(context.Background(), graph); err != nil {
		t.Fatalf("ExecuteConsecutive: %v", err)
	}
	if !ran {
		t.Fatalf("transfer node's job never ran")
	}
	if _, err := d.EndFrame(context.Background()); err != nil {
		t.Fatalf("EndFrame: %v", err)
	}
}

func rendergraphBufferInfo() rendergraph.BufferInfo {
	return rendergraph.BufferInfo{Size: 256, Visible: true, Usage: rhi.UTransferDst}
}
