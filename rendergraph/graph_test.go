package rendergraph

import (
	"testing"

	"github.com/kestrel-forge/rhi/internal/rhitest"
	"github.com/kestrel-forge/rhi/registry"
	"github.com/kestrel-forge/rhi/rhi"
)

// fakeGraphDevice adapts rhitest.GPU to the narrow GraphDevice seam, the
// same way device.Device does in production.
type fakeGraphDevice struct {
	gpu *rhitest.GPU
}

func newFakeGraphDevice() *fakeGraphDevice { return &fakeGraphDevice{gpu: rhitest.NewGPU()} }

func (d *fakeGraphDevice) NewTransientTexture(info TextureInfo) (rhi.Texture, error) {
	return d.gpu.NewTexture(info.Format, info.Type, info.Extent, info.Layers, info.MipLevels, info.Samples, info.CubeCompatible, info.Usage)
}

func (d *fakeGraphDevice) NewTransientBuffer(info BufferInfo) (rhi.Buffer, error) {
	return d.gpu.NewBuffer(info.Size, info.Visible, info.Usage)
}

func (d *fakeGraphDevice) NewCmdBuffer(role rhi.QueueRole) (rhi.CmdBuffer, error) {
	return d.gpu.NewCmdBuffer(role)
}

func (d *fakeGraphDevice) Submit(role rhi.QueueRole, cb []rhi.CmdBuffer, waits, signals []rhi.SemaphoreOp) error {
	return d.gpu.Submit(role, cb, waits, signals)
}

func (d *fakeGraphDevice) NewTimelineSemaphore(role rhi.QueueRole) (rhi.TimelineSemaphore, error) {
	return d.gpu.NewTimelineSemaphore(role)
}

func (d *fakeGraphDevice) QueueRoles() map[rhi.QueueRole]bool { return d.gpu.Queues() }
func (d *fakeGraphDevice) FramesInFlight() int                { return 2 }

var _ GraphDevice = (*fakeGraphDevice)(nil)

func colorInfo() TextureInfo {
	return TextureInfo{Format: rhi.RGBA8un, Type: rhi.Tex2D, Extent: rhi.Dim3D{Width: 64, Height: 64, Depth: 1}, MipLevels: 1, Layers: 1, Samples: 1, Usage: rhi.URenderTarget}
}

func bufInfo() BufferInfo {
	return BufferInfo{Size: 256, Visible: false, Usage: rhi.UShaderRead}
}

// A node may only read a version minted by an earlier declare/import or
// an earlier node's write; Build records nodes in that program order, so
// Compile's topological sort should simply reflect recording order when
// every producer precedes its consumers.
func TestCompileOrdersNodesTopologically(t *testing.T) {
	dev := newFakeGraphDevice()
	reg := registry.New()
	b := NewBuilder(reg, dev.gpuContext())

	buf := b.DeclareTransientBuffer(bufInfo())

	b.BeginTransfer("produce", false)
	produced := b.WriteBuffer(buf, rhi.TransferDst)
	b.SetJob(func(g *Graph, ctx rhi.Context, cb rhi.CmdBuffer) {})
	b.EndTransfer()

	b.BeginCompute("consume", false)
	b.ReadBuffer(produced, rhi.ShaderStorageRead)
	b.SetJob(func(g *Graph, ctx rhi.Context, cb rhi.CmdBuffer) {})
	b.EndCompute()

	g, err := b.Build(dev, "order")
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(g.nodes) != 2 {
		t.Fatalf("nodes = %d, want 2", len(g.nodes))
	}
	produce, consume := g.nodes[0], g.nodes[1]
	if produce.Index() >= consume.Index() {
		t.Fatalf("producer index %d not before consumer index %d", produce.Index(), consume.Index())
	}
	if consume.DependencyLevel() <= produce.DependencyLevel() {
		t.Fatalf("consumer level %d not greater than producer level %d", consume.DependencyLevel(), produce.DependencyLevel())
	}
}

// Two nodes that both write the same input version each keep their own
// write entry (each with a fresh version); the builder does not merge
// them into a single write.
func TestEachNodeHasSingleWriterPerResource(t *testing.T) {
	dev := newFakeGraphDevice()
	reg := registry.New()
	b := NewBuilder(reg, dev.gpuContext())

	buf := b.DeclareTransientBuffer(bufInfo())
	b.BeginTransfer("writer-one", false)
	b.WriteBuffer(buf, rhi.TransferDst)
	b.SetJob(func(g *Graph, ctx rhi.Context, cb rhi.CmdBuffer) {})
	b.EndTransfer()

	b.BeginTransfer("writer-two", false)
	b.WriteBuffer(buf, rhi.TransferDst)
	b.SetJob(func(g *Graph, ctx rhi.Context, cb rhi.CmdBuffer) {})
	b.EndTransfer()

	g, err := b.Build(dev, "writers")
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	writers := 0
	for _, n := range g.nodes {
		for _, w := range n.Writes {
			if w.Version == buf || reg.GetResourceId(w.Version) == reg.GetResourceId(buf) {
				writers++
			}
		}
	}
	if writers != 2 {
		t.Fatalf("writers = %d, want 2 (one per node)", writers)
	}
}

// Compile is idempotent: compiling the same unchanged graph twice must
// not mutate the node count, levels, or queue assignment.
func TestCompileIsIdempotentWhenNotDirty(t *testing.T) {
	dev := newFakeGraphDevice()
	reg := registry.New()
	b := NewBuilder(reg, dev.gpuContext())

	tex := b.DeclareTransientTexture(colorInfo())
	b.BeginRenderPass("clear")
	b.AddColorTarget(tex, rhi.LoadClear, rhi.StoreStore)
	b.SetJob(func(g *Graph, ctx rhi.Context, cb rhi.CmdBuffer) {})
	b.EndRenderPass()

	g, err := b.Build(dev, "idempotent")
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	firstLevel := g.nodes[0].DependencyLevel()
	firstQueue := g.nodes[0].Queue()

	if err := g.recompileIfDirty(); err != nil {
		t.Fatalf("recompileIfDirty: %v", err)
	}
	if g.nodes[0].DependencyLevel() != firstLevel {
		t.Fatalf("level changed across idempotent recompile: %d -> %d", firstLevel, g.nodes[0].DependencyLevel())
	}
	if g.nodes[0].Queue() != firstQueue {
		t.Fatalf("queue changed across idempotent recompile: %v -> %v", firstQueue, g.nodes[0].Queue())
	}
}

// A render pass writing a color target must produce a barrier plan
// transitioning that resource into ColorTarget before the pass runs;
// the planner should not leave an attachment resource with no barrier
// entry when it was imported with an Undefined initial state.
func TestBarrierPlanCoversWrittenAttachment(t *testing.T) {
	dev := newFakeGraphDevice()
	reg := registry.New()
	b := NewBuilder(reg, dev.gpuContext())

	img, err := dev.NewTransientTexture(colorInfo())
	if err != nil {
		t.Fatalf("NewTransientTexture: %v", err)
	}
	tex := b.ImportTexture(img, rhi.Undefined, rhi.ColorTarget)
	b.BeginRenderPass("clear")
	b.AddColorTarget(tex, rhi.LoadClear, rhi.StoreStore)
	b.SetJob(func(g *Graph, ctx rhi.Context, cb rhi.CmdBuffer) {})
	b.EndRenderPass()

	g, err := b.Build(dev, "barriers")
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(g.barriers.InImage) == 0 {
		t.Fatalf("expected at least one node's in-barrier plan to be populated")
	}
}

// A resolve target paired with a single-sample color target has nothing
// to resolve; Build must reject it rather than hand the executor a
// meaningless attachment (spec.md §9).
func TestBuildRejectsResolveOnSingleSampleColorTarget(t *testing.T) {
	dev := newFakeGraphDevice()
	reg := registry.New()
	b := NewBuilder(reg, dev.gpuContext())

	color := b.DeclareTransientTexture(colorInfo())
	resolve := b.DeclareTransientTexture(colorInfo())
	b.BeginRenderPass("resolve")
	b.AddColorTarget(color, rhi.LoadClear, rhi.StoreStore)
	b.AddColorMultisampleResolve(resolve)
	b.SetJob(func(g *Graph, ctx rhi.Context, cb rhi.CmdBuffer) {})
	b.EndRenderPass()

	if _, err := b.Build(dev, "resolve"); err == nil {
		t.Fatalf("expected Build to reject a resolve paired with a single-sample color target")
	}
}

// gpuContext adapts fakeGraphDevice into the minimal rhi.Context a
// Builder needs; the frame-numbering fields are unused by Compile.
func (d *fakeGraphDevice) gpuContext() rhi.Context { return fakeCtx{} }

type fakeCtx struct{}

func (fakeCtx) AbsoluteFrame() uint64 { return 0 }
func (fakeCtx) FrameIndex() int       { return 0 }

var _ rhi.Context = fakeCtx{}
