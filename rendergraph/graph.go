package rendergraph

import (
	"fmt"

	"github.com/kestrel-forge/rhi/barrier"
	"github.com/kestrel-forge/rhi/registry"
	"github.com/kestrel-forge/rhi/rhi"
	"github.com/kestrel-forge/rhi/rhierr"
	"github.com/kestrel-forge/rhi/schedule"
	"github.com/kestrel-forge/rhi/timeline"
)

// Graph is a compiled render graph: a topologically sorted node list
// plus the cross-queue schedule, barrier plan, attachment layout, and
// timeline-semaphore bookkeeping Compile derived from it (spec.md §4.4).
//
// A Graph is recompiled lazily by Execute when a dependent resource
// attribute changed, a transient declaration was updated, or an import
// was rebound (spec.md §4.4 "Recompile is triggered when...").
type Graph struct {
	name   string
	reg    *registry.Registry
	device GraphDevice
	nodes  []*Node

	transientTextures map[registry.ResourceId]*TextureInfo
	transientBuffers  map[registry.ResourceId]*BufferInfo
	importedUsages    map[registry.ResourceId]importedUsage
	bufferPackNames   map[registry.ResourceId]string
	textureViews      map[registry.ResourceId][]viewDecl

	usageSpans map[registry.ResourceId]*resourceUsageSpan

	// priorState carries each transient image's last-known state across
	// compiles, so a resource reused next frame without recreation gets
	// an in-barrier out of the layout its previous compile actually left
	// it in rather than being treated as having no prior usage at all
	// (spec.md §4.6, §9 "cross-frame" concern).
	priorState map[registry.ResourceId]rhi.ResourceState

	edges        []edge
	sched        schedule.Result
	barriers     barrier.Plan
	attachments  map[int][]rhi.Attachment
	queues       map[rhi.QueueRole]*timeline.PerQueue

	cmdPool map[cmdKey]rhi.CmdBuffer

	forceRecreate bool
	dirty         bool // set by UpdateTransient*/Reimport*; triggers recompile on next Execute
}

type edge struct{ from, to int }

type cmdKey struct {
	frame int
	queue rhi.QueueRole
	slot  int
}

// Name returns the graph's debug name, set at Build time.
func (g *Graph) Name() string { return g.name }

// GetTexture returns the texture and view index bound to v.
func (g *Graph) GetTexture(v registry.ResourceVersion) (rhi.Texture, int) {
	return g.reg.GetTexture(v)
}

// GetBuffer returns the buffer bound to v.
func (g *Graph) GetBuffer(v registry.ResourceVersion) rhi.Buffer {
	return g.reg.GetBuffer(v)
}

// GetBufferPack returns the buffer pack bound to v.
func (g *Graph) GetBufferPack(v registry.ResourceVersion) *registry.BufferPack {
	return g.reg.GetBufferPack(v)
}

// ReimportTexture rebinds an import's concrete texture, marking the
// graph dirty so the next Execute recompiles (spec.md §4.4 "an import
// is re-bound").
func (g *Graph) ReimportTexture(v registry.ResourceVersion, tex rhi.Texture) {
	g.reg.UpdateResourceTexture(g.reg.GetResourceId(v), tex, 0)
	g.dirty = true
}

// ReimportBuffer rebinds an import's concrete buffer.
func (g *Graph) ReimportBuffer(v registry.ResourceVersion, buf rhi.Buffer) {
	g.reg.UpdateResourceBuffer(g.reg.GetResourceId(v), buf)
	g.dirty = true
}

// UpdateTransientTextureSamples changes a declared transient texture's
// sample count, forcing recreation on the next resolve pass.
func (g *Graph) UpdateTransientTextureSamples(v registry.ResourceVersion, samples int) {
	id := g.reg.GetResourceId(v)
	if info, ok := g.transientTextures[id]; ok && info.Samples != samples {
		info.Samples = samples
		g.forceRecreate = true
		g.dirty = true
	}
}

// UpdateTransientBufferSize changes a declared transient buffer's size,
// forcing recreation on the next resolve pass.
func (g *Graph) UpdateTransientBufferSize(v registry.ResourceVersion, size int64) {
	id := g.reg.GetResourceId(v)
	if info, ok := g.transientBuffers[id]; ok && info.Size != size {
		info.Size = size
		g.dirty = true
	}
}

// SetJob attaches job to the node named name, overriding any job set at
// build time. Returns ErrInvalidGraph if no node with that name exists.
func (g *Graph) SetJob(name string, job Job) error {
	for _, n := range g.nodes {
		if n.Name == name {
			n.Job = job
			return nil
		}
	}
	return fmt.Errorf("%w: no node named %q", rhierr.ErrInvalidGraph, name)
}

// ForceRecreateResources marks every transient texture for unconditional
// recreation on the next resolve pass, regardless of whether its
// dependent attributes changed (spec.md §4.7).
func (g *Graph) ForceRecreateResources() {
	g.forceRecreate = true
	g.dirty = true
}
