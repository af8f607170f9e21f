package rendergraph

import (
	"fmt"

	"github.com/kestrel-forge/rhi/registry"
	"github.com/kestrel-forge/rhi/rhi"
	"github.com/kestrel-forge/rhi/rhierr"
)

// Builder records a single render graph's nodes in program order. A
// Builder is single-use: call Build once to freeze it and run Compile.
//
// Scoped node construction mirrors the teacher's functional-options
// builders in spirit (state accumulated on an unexported struct,
// exposed only through named methods) but is imperative rather than
// chained, since nodes are recorded as a sequence of Begin…/End… calls
// rather than assembled from a single options list (spec.md §4.3).
type Builder struct {
	reg  *registry.Registry
	ctx  rhi.Context
	name string

	nodes []*Node
	open  *Node // non-nil between Begin… and End…

	transientTextures map[registry.ResourceId]*TextureInfo
	transientBuffers  map[registry.ResourceId]*BufferInfo
	importedUsages    map[registry.ResourceId]importedUsage
	bufferPackNames   map[registry.ResourceId]string
	textureViews      map[registry.ResourceId][]viewDecl

	err error
}

type viewDecl struct {
	typ                                         rhi.ViewType
	firstLayer, layerCount, firstMip, mipCount int
	resourceID                                 registry.ResourceId
}

// NewBuilder returns an empty Builder bound to reg and ctx. ctx is the
// frame context threaded through every node's job at execution time.
func NewBuilder(reg *registry.Registry, ctx rhi.Context) *Builder {
	return &Builder{
		reg:               reg,
		ctx:               ctx,
		transientTextures: make(map[registry.ResourceId]*TextureInfo),
		transientBuffers:  make(map[registry.ResourceId]*BufferInfo),
		importedUsages:    make(map[registry.ResourceId]importedUsage),
		bufferPackNames:   make(map[registry.ResourceId]string),
		textureViews:      make(map[registry.ResourceId][]viewDecl),
	}
}

// Context returns the frame context this builder was created with.
func (b *Builder) Context() rhi.Context { return b.ctx }

func (b *Builder) fail(err error) {
	if b.err == nil {
		b.err = err
	}
}

// DeclareTransientTexture registers info and returns a fresh version for
// a texture the graph itself will create and own (spec.md §4.3, §4.7).
func (b *Builder) DeclareTransientTexture(info TextureInfo) registry.ResourceVersion {
	v := b.reg.DeclareResource()
	id := b.reg.GetResourceId(v)
	infoCopy := info
	b.transientTextures[id] = &infoCopy
	return v
}

// DeclareTextureView appends a view declaration for texture, re-created
// alongside it whenever the texture is (re)created (spec.md §4.7).
func (b *Builder) DeclareTextureView(texture registry.ResourceVersion, typ rhi.ViewType, firstLayer, layerCount, firstMip, mipCount int) registry.ResourceVersion {
	textureID := b.reg.GetResourceId(texture)
	v := b.reg.DeclareResource()
	viewResourceID := b.reg.GetResourceId(v)
	b.textureViews[textureID] = append(b.textureViews[textureID], viewDecl{typ, firstLayer, layerCount, firstMip, mipCount, viewResourceID})
	return v
}

// DeclareTransientBuffer registers info and returns a fresh version for
// a buffer the graph itself will create and own. Unlike textures,
// transient buffers recreate unconditionally on every compile whose
// declared size changed (spec.md §4.7).
func (b *Builder) DeclareTransientBuffer(info BufferInfo) registry.ResourceVersion {
	v := b.reg.DeclareResource()
	id := b.reg.GetResourceId(v)
	infoCopy := info
	b.transientBuffers[id] = &infoCopy
	return v
}

// DeclareImportTexture registers a not-yet-bound import with declared
// initial/final states, to be bound later via ReimportTexture on the
// compiled Graph.
func (b *Builder) DeclareImportTexture(initial, final rhi.ResourceState) registry.ResourceVersion {
	v := b.reg.DeclareResource()
	id := b.reg.GetResourceId(v)
	b.importedUsages[id] = importedUsage{initial, final}
	return v
}

// DeclareImportBuffer is the buffer analogue of DeclareImportTexture.
func (b *Builder) DeclareImportBuffer(initial, final rhi.ResourceState) registry.ResourceVersion {
	v := b.reg.DeclareResource()
	id := b.reg.GetResourceId(v)
	b.importedUsages[id] = importedUsage{initial, final}
	return v
}

// DeclareImportBufferPack is the buffer-pack analogue, named for
// debugging and barrier-planning purposes.
func (b *Builder) DeclareImportBufferPack(name string, initial, final rhi.ResourceState) registry.ResourceVersion {
	v := b.reg.DeclareResource()
	id := b.reg.GetResourceId(v)
	b.importedUsages[id] = importedUsage{initial, final}
	b.bufferPackNames[id] = name
	return v
}

// ImportTexture binds tex immediately and returns its initial version.
func (b *Builder) ImportTexture(tex rhi.Texture, initial, final rhi.ResourceState) registry.ResourceVersion {
	v := b.reg.AddTexture(tex)
	id := b.reg.GetResourceId(v)
	b.importedUsages[id] = importedUsage{initial, final}
	return v
}

// ImportBuffer binds buf immediately and returns its initial version.
func (b *Builder) ImportBuffer(buf rhi.Buffer, initial, final rhi.ResourceState) registry.ResourceVersion {
	v := b.reg.AddBuffer(buf)
	id := b.reg.GetResourceId(v)
	b.importedUsages[id] = importedUsage{initial, final}
	return v
}

// ImportBufferPack binds pack immediately and returns its initial version.
func (b *Builder) ImportBufferPack(pack *registry.BufferPack, initial, final rhi.ResourceState) registry.ResourceVersion {
	v := b.reg.AddBufferPack(pack)
	id := b.reg.GetResourceId(v)
	b.importedUsages[id] = importedUsage{initial, final}
	b.bufferPackNames[id] = pack.Name
	return v
}

// LastResourceVersion returns the most recently appended version
// sharing resource's id — the version a dependent declaration or a
// cross-graph read should reference (original_source RenderGraphBuilder::LastResourceVersion).
func (b *Builder) LastResourceVersion(resource registry.ResourceVersion) registry.ResourceVersion {
	id := b.reg.GetResourceId(resource)
	for v := registry.ResourceVersion(b.reg.VersionCount() - 1); v >= 0; v-- {
		if b.reg.GetResourceId(v) == id {
			return v
		}
	}
	return resource
}

func (b *Builder) beginNode(t NodeType, async bool, caps rhi.Capability, name string) {
	if b.open != nil {
		b.fail(fmt.Errorf("%w: Begin called while node %q is still open", rhierr.ErrInvalidGraph, b.open.Name))
		return
	}
	n := &Node{Type: t, Async: async, Capabilities: caps, Name: name}
	b.nodes = append(b.nodes, n)
	b.open = n
}

func (b *Builder) endNode(t NodeType) {
	if b.open == nil || b.open.Type != t {
		b.fail(fmt.Errorf("%w: End type mismatch", rhierr.ErrInvalidGraph))
		return
	}
	b.open = nil
}

// BeginRenderPass opens a RenderPass node.
func (b *Builder) BeginRenderPass(name string) { b.beginNode(RenderPass, false, rhi.Graphics, name) }

// EndRenderPass closes the currently open RenderPass node.
func (b *Builder) EndRenderPass() { b.endNode(RenderPass) }

// BeginCompute opens a Compute node, scheduled on the async compute
// queue when async is true (spec.md §4.5).
func (b *Builder) BeginCompute(name string, async bool) {
	b.beginNode(Compute, async, rhi.Compute, name)
}

// EndCompute closes the currently open Compute node.
func (b *Builder) EndCompute() { b.endNode(Compute) }

// BeginTransfer opens a Transfer node, scheduled on the dedicated
// transfer queue when async is true.
func (b *Builder) BeginTransfer(name string, async bool) {
	b.beginNode(Transfer, async, rhi.Transfer, name)
}

// EndTransfer closes the currently open Transfer node.
func (b *Builder) EndTransfer() { b.endNode(Transfer) }

// SetJob attaches job to the currently open node.
func (b *Builder) SetJob(job Job) {
	if b.open == nil {
		b.fail(fmt.Errorf("%w: SetJob called with no open node", rhierr.ErrInvalidGraph))
		return
	}
	b.open.Job = job
}

// AddColorTarget appends a color-target write to the open node. On
// Load, the input version is also added to the read set at ColorTarget
// and the write produces a fresh version; on Clear/DontCare the write
// reuses v (spec.md §3 "Attachment-load policy").
func (b *Builder) AddColorTarget(v registry.ResourceVersion, load rhi.LoadOp, store rhi.StoreOp) registry.ResourceVersion {
	if b.open == nil {
		b.fail(fmt.Errorf("%w: AddColorTarget called with no open node", rhierr.ErrInvalidGraph))
		return v
	}
	out := v
	if load == rhi.LoadLoad {
		b.open.Reads = append(b.open.Reads, Read{v, rhi.ColorTarget})
		out = b.reg.NextVersion(v)
	}
	b.open.Writes = append(b.open.Writes, Write{out, rhi.ColorTarget, load, store})
	b.open.ColorCount++
	return out
}

// AddColorMultisampleResolve attaches a resolve write, matched
// positionally to the preceding color targets.
func (b *Builder) AddColorMultisampleResolve(v registry.ResourceVersion) registry.ResourceVersion {
	if b.open == nil {
		b.fail(fmt.Errorf("%w: AddColorMultisampleResolve called with no open node", rhierr.ErrInvalidGraph))
		return v
	}
	out := b.reg.NextVersion(v)
	b.open.Writes = append(b.open.Writes, Write{out, rhi.ColorMultisampleResolve, rhi.LoadDontCare, rhi.StoreStore})
	return out
}

// SetDepthStencil sets the open node's depth/stencil attachment; fails
// if one is already set (spec.md §4.3).
func (b *Builder) SetDepthStencil(v registry.ResourceVersion, load rhi.LoadOp, store rhi.StoreOp) registry.ResourceVersion {
	if b.open == nil {
		b.fail(fmt.Errorf("%w: SetDepthStencil called with no open node", rhierr.ErrInvalidGraph))
		return v
	}
	if b.open.HasDepthStencil {
		b.fail(fmt.Errorf("%w: node %q already has a depth/stencil attachment", rhierr.ErrInvalidGraph, b.open.Name))
		return v
	}
	out := v
	if load == rhi.LoadLoad {
		b.open.Reads = append(b.open.Reads, Read{v, rhi.DepthStencilTarget})
		out = b.reg.NextVersion(v)
	}
	b.open.Writes = append(b.open.Writes, Write{out, rhi.DepthStencilTarget, load, store})
	b.open.HasDepthStencil = true
	return out
}

// SampleTexture adds a read of v in the ShaderSampled state.
func (b *Builder) SampleTexture(v registry.ResourceVersion) {
	b.addRead(v, rhi.ShaderSampled)
}

// ReadBuffer adds a read of v in state.
func (b *Builder) ReadBuffer(v registry.ResourceVersion, state rhi.ResourceState) {
	b.addRead(v, state)
}

// WriteBuffer adds a write of v in state, producing a fresh version.
func (b *Builder) WriteBuffer(v registry.ResourceVersion, state rhi.ResourceState) registry.ResourceVersion {
	return b.addWrite(v, state)
}

// ReadWriteBuffer adds both a read and a write of v in state, producing
// a fresh version for the write.
func (b *Builder) ReadWriteBuffer(v registry.ResourceVersion, state rhi.ResourceState) registry.ResourceVersion {
	b.addRead(v, state)
	return b.addWrite(v, state)
}

// ReadWriteTexture is the texture analogue of ReadWriteBuffer, using
// ShaderStorageReadWrite as the consuming/producing state.
func (b *Builder) ReadWriteTexture(v registry.ResourceVersion) registry.ResourceVersion {
	b.addRead(v, rhi.ShaderStorageReadWrite)
	return b.addWrite(v, rhi.ShaderStorageReadWrite)
}

// WriteTexture adds a storage write of v, producing a fresh version.
func (b *Builder) WriteTexture(v registry.ResourceVersion) registry.ResourceVersion {
	return b.addWrite(v, rhi.ShaderStorageWrite)
}

func (b *Builder) addRead(v registry.ResourceVersion, state rhi.ResourceState) {
	if b.open == nil {
		b.fail(fmt.Errorf("%w: read added with no open node", rhierr.ErrInvalidGraph))
		return
	}
	b.open.Reads = append(b.open.Reads, Read{v, state})
}

func (b *Builder) addWrite(v registry.ResourceVersion, state rhi.ResourceState) registry.ResourceVersion {
	if b.open == nil {
		b.fail(fmt.Errorf("%w: write added with no open node", rhierr.ErrInvalidGraph))
		return v
	}
	out := b.reg.NextVersion(v)
	b.open.Writes = append(b.open.Writes, Write{out, state, rhi.LoadDontCare, rhi.StoreStore})
	return out
}

// Build freezes the builder, compiles the recorded nodes against
// device, and returns the resulting Graph. name is used for debug
// labels and Graphviz dumps.
func (b *Builder) Build(device GraphDevice, name string) (*Graph, error) {
	if b.open != nil {
		return nil, fmt.Errorf("%w: node %q was never closed", rhierr.ErrInvalidGraph, b.open.Name)
	}
	if b.err != nil {
		return nil, b.err
	}

	g := &Graph{
		name:              name,
		reg:               b.reg,
		nodes:             b.nodes,
		transientTextures: b.transientTextures,
		transientBuffers:  b.transientBuffers,
		importedUsages:    b.importedUsages,
		bufferPackNames:   b.bufferPackNames,
		textureViews:      b.textureViews,
		usageSpans:        make(map[registry.ResourceId]*resourceUsageSpan),
		priorState:        make(map[registry.ResourceId]rhi.ResourceState),
	}
	if err := g.compile(device); err != nil {
		return nil, err
	}
	return g, nil
}
