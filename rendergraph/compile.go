package rendergraph

import (
	"fmt"

	"github.com/kestrel-forge/rhi/barrier"
	"github.com/kestrel-forge/rhi/registry"
	"github.com/kestrel-forge/rhi/rhi"
	"github.com/kestrel-forge/rhi/rhierr"
	"github.com/kestrel-forge/rhi/schedule"
)

// compile runs the §4.4 compile pipeline. Node recording order is
// already a valid topological order: a node can only reference a
// version created by an earlier Declare/Import call or an earlier
// node's write, since versions are minted in program order and nothing
// lets a later node's write be observed by an earlier node. This means
// edge construction never needs cycle detection beyond that invariant.
func (g *Graph) compile(device GraphDevice) error {
	g.device = device
	g.cmdPool = map[cmdKey]rhi.CmdBuffer{}

	if _, err := g.resolveTransients(); err != nil {
		return err
	}

	g.buildEdges()
	levels := g.computeLevels()
	for i, n := range g.nodes {
		n.index = i
		n.dependencyLevel = levels[i]
	}

	g.usageSpans = g.computeUsageSpans()

	if err := g.buildAttachments(); err != nil {
		return err
	}

	sched, err := g.runSchedule(levels)
	if err != nil {
		return err
	}
	g.sched = sched
	for i, n := range g.nodes {
		n.queue = sched.Queue[i]
	}

	g.barriers = g.runBarriers()

	g.queues = allocateQueueSemaphores(device, sched.SubmissionCount)

	g.dirty = false
	g.forceRecreate = false
	return nil
}

// recompileIfDirty re-runs compile when the graph was marked dirty by
// an UpdateTransient*/Reimport* call since the last compile, or when
// resolveTransients detects a dependent-attribute change (spec.md §4.4,
// §4.7). Called by Execute before each use.
func (g *Graph) recompileIfDirty() error {
	changed, err := g.resolveTransients()
	if err != nil {
		return err
	}
	if !g.dirty && !changed {
		return nil
	}
	return g.compile(g.device)
}

// resolveTransients implements §4.7: walks dependent attributes,
// recreates transient textures whose dependencies or declared info
// changed (or when forceRecreate is set), and unconditionally recreates
// transient buffers whose declared size changed. Returns whether
// anything changed.
func (g *Graph) resolveTransients() (bool, error) {
	changed := false

	for id, info := range g.transientTextures {
		recreate := g.forceRecreate
		if info.DependentOnValid {
			if tex, _, ok := g.reg.TryGetTexture(info.DependentOn); ok {
				if info.FormatDependent && info.Format != tex.Format() {
					info.Format = tex.Format()
					recreate = true
				}
				if info.ExtentDependent && info.Extent != tex.Extent() {
					info.Extent = tex.Extent()
					recreate = true
				}
				if info.MipLevelsDependent && info.MipLevels != tex.MipLevels() {
					info.MipLevels = tex.MipLevels()
					recreate = true
				}
				if info.SamplesDependent && info.Samples != tex.Samples() {
					info.Samples = tex.Samples()
					recreate = true
				}
			}
			// Unresolved dependency: defer creation until it resolves.
		}
		if _, _, ok := g.reg.TryGetTexture(g.firstVersionForID(id)); !ok {
			recreate = true
		}
		if recreate {
			tex, err := g.device.NewTransientTexture(*info)
			if err != nil {
				return changed, fmt.Errorf("rendergraph: creating transient texture: %w", err)
			}
			g.reg.UpdateResourceTexture(id, tex, 0)
			for _, vd := range g.textureViews[id] {
				idx, err := tex.NewView(vd.typ, vd.firstLayer, vd.layerCount, vd.firstMip, vd.mipCount)
				if err != nil {
					return changed, fmt.Errorf("rendergraph: creating declared texture view: %w", err)
				}
				g.reg.UpdateResourceTexture(vd.resourceID, tex, idx)
			}
			changed = true
		}
	}

	for id, info := range g.transientBuffers {
		buf, ok := g.reg.TryGetBuffer(g.firstVersionForID(id))
		if !ok || buf.Size() != info.Size {
			newBuf, err := g.device.NewTransientBuffer(*info)
			if err != nil {
				return changed, fmt.Errorf("rendergraph: creating transient buffer: %w", err)
			}
			g.reg.UpdateResourceBuffer(id, newBuf)
			changed = true
		}
	}

	return changed, nil
}

// firstVersionForID returns the lowest version sharing id, used to
// probe the registry's current binding for a resource id without
// threading an extra map through the builder.
func (g *Graph) firstVersionForID(id registry.ResourceId) registry.ResourceVersion {
	for v := 0; v < g.reg.VersionCount(); v++ {
		if g.reg.GetResourceId(registry.ResourceVersion(v)) == id {
			return registry.ResourceVersion(v)
		}
	}
	return -1
}

func (g *Graph) buildEdges() {
	g.edges = nil
	for u := 0; u < len(g.nodes); u++ {
		for _, w := range g.nodes[u].Writes {
			for v := u + 1; v < len(g.nodes); v++ {
				for _, r := range g.nodes[v].Reads {
					if r.Version == w.Version {
						g.edges = append(g.edges, edge{u, v})
					}
				}
			}
		}
	}
}

func (g *Graph) computeLevels() []int {
	n := len(g.nodes)
	levels := make([]int, n)
	preds := make([][]int, n)
	for _, e := range g.edges {
		preds[e.to] = append(preds[e.to], e.from)
	}
	for i := 0; i < n; i++ {
		max := -1
		for _, p := range preds[i] {
			if levels[p] > max {
				max = levels[p]
			}
		}
		levels[i] = max + 1
	}
	return levels
}

func (g *Graph) computeUsageSpans() map[registry.ResourceId]*resourceUsageSpan {
	spans := map[registry.ResourceId]*resourceUsageSpan{}
	touch := func(v registry.ResourceVersion, node int, state rhi.ResourceState) {
		id := g.reg.GetResourceId(v)
		s, ok := spans[id]
		if !ok {
			s = &resourceUsageSpan{}
			spans[id] = s
		}
		level := g.nodes[node].dependencyLevel
		if !s.hasUsage || level < g.nodes[s.firstNode].dependencyLevel {
			s.firstNode, s.firstState = node, state
		}
		if !s.hasUsage || level >= g.nodes[s.lastNode].dependencyLevel {
			s.lastNode, s.lastState = node, state
		}
		s.hasUsage = true
	}
	for i, n := range g.nodes {
		for _, r := range n.Reads {
			touch(r.Version, i, r.State)
		}
		for _, w := range n.Writes {
			touch(w.Version, i, w.State)
		}
	}
	return spans
}

func (g *Graph) runSchedule(levels []int) (schedule.Result, error) {
	queues := make([]rhi.QueueRole, len(g.nodes))
	for i, n := range g.nodes {
		switch {
		case n.Type == Compute && n.Async:
			queues[i] = rhi.QueueCompute
		case n.Type == Transfer && n.Async:
			queues[i] = rhi.QueueTransfer
		default:
			queues[i] = rhi.QueueMain
		}
	}
	schedEdges := make([]schedule.Edge, len(g.edges))
	for i, e := range g.edges {
		schedEdges[i] = schedule.Edge{From: e.from, To: e.to}
	}
	return schedule.Schedule(schedule.Input{
		NumNodes:  len(g.nodes),
		Level:     levels,
		Queue:     queues,
		Available: g.device.QueueRoles(),
		Edges:     schedEdges,
	})
}

func (g *Graph) runBarriers() barrier.Plan {
	var accesses []barrier.Access
	imported := map[int]barrier.Imported{}
	for id, u := range g.importedUsages {
		imported[int(id)] = barrier.Imported{Declared: true, Initial: u.initial, Final: u.final}
	}

	prior := map[int]rhi.ResourceState{}
	for id, state := range g.priorState {
		prior[int(id)] = state
	}

	kindOf := func(v registry.ResourceVersion) barrier.ResourceKind {
		id := g.reg.GetResourceId(v)
		if _, ok := g.bufferPackNames[id]; ok {
			return barrier.KindBufferPack
		}
		switch g.reg.Kind(v) {
		case registry.KindTexture:
			return barrier.KindImage
		case registry.KindBufferPack:
			return barrier.KindBufferPack
		default:
			return barrier.KindBuffer
		}
	}
	viewOf := func(v registry.ResourceVersion) rhi.View {
		tex, idx, ok := g.reg.TryGetTexture(v)
		if !ok || tex == nil {
			return nil
		}
		return tex.View(idx)
	}

	for i, n := range g.nodes {
		for _, r := range n.Reads {
			accesses = append(accesses, barrier.Access{
				Node: i, ResID: int(g.reg.GetResourceId(r.Version)), Kind: kindOf(r.Version), State: r.State, View: viewOf(r.Version),
			})
		}
		for _, w := range n.Writes {
			accesses = append(accesses, barrier.Access{
				Node: i, ResID: int(g.reg.GetResourceId(w.Version)), Kind: kindOf(w.Version), State: w.State, View: viewOf(w.Version),
			})
		}
	}

	plan := barrier.Compute(barrier.Input{Accesses: accesses, Imported: imported, PriorState: prior})

	// Persist each transient image's last state for the next compile
	// (spec.md §4.6's third src-state case); imported resources keep
	// their own declared Final contract instead, so they are excluded.
	for id, span := range g.usageSpans {
		if !span.hasUsage {
			continue
		}
		if _, isImported := g.importedUsages[id]; isImported {
			continue
		}
		firstVersion := g.firstVersionForID(id)
		if firstVersion < 0 || g.reg.Kind(firstVersion) != registry.KindTexture {
			continue
		}
		g.priorState[id] = span.lastState
	}

	return plan
}

// buildAttachments implements §4.8: for each RenderPass node, lay out
// color targets, positionally aligned resolves, and an optional
// depth/stencil attachment, validating matching sample counts and
// extents across all of a node's attachments.
func (g *Graph) buildAttachments() error {
	g.attachments = map[int][]rhi.Attachment{}
	for i, n := range g.nodes {
		if n.Type != RenderPass {
			continue
		}
		var atts []rhi.Attachment
		var ref rhi.Texture

		checkRef := func(tex rhi.Texture) error {
			if tex == nil {
				return nil
			}
			if ref == nil {
				ref = tex
				return nil
			}
			if tex.Samples() != ref.Samples() || tex.Extent() != ref.Extent() {
				return fmt.Errorf("%w: node %q has mismatched attachment samples/extent", rhierr.ErrInvalidGraph, n.Name)
			}
			return nil
		}

		var colorTargets []rhi.Texture
		for _, w := range n.Writes {
			if w.State != rhi.ColorTarget {
				continue
			}
			tex, viewIdx, _ := g.reg.TryGetTexture(w.Version)
			if err := checkRef(tex); err != nil {
				return err
			}
			colorTargets = append(colorTargets, tex)
			atts = append(atts, attachmentFor(tex, viewIdx, w.Load, w.Store, rhi.DefaultColorClear))
		}
		resolveIdx := 0
		for _, w := range n.Writes {
			if w.State != rhi.ColorMultisampleResolve {
				continue
			}
			// spec.md §9: a resolve target is matched positionally to the
			// color target at the same index; resolving a single-sample
			// color target is meaningless and rejected at Build.
			if resolveIdx >= len(colorTargets) {
				return fmt.Errorf("%w: node %q has more resolve targets than color targets", rhierr.ErrInvalidGraph, n.Name)
			}
			paired := colorTargets[resolveIdx]
			resolveIdx++
			if paired != nil && paired.Samples() <= 1 {
				return fmt.Errorf("%w: node %q has a resolve target paired with a single-sample color target", rhierr.ErrInvalidGraph, n.Name)
			}
			tex, viewIdx, _ := g.reg.TryGetTexture(w.Version)
			atts = append(atts, attachmentFor(tex, viewIdx, rhi.LoadDontCare, rhi.StoreStore, rhi.ClearValue{}))
		}
		for _, w := range n.Writes {
			if w.State != rhi.DepthStencilTarget {
				continue
			}
			tex, viewIdx, _ := g.reg.TryGetTexture(w.Version)
			if err := checkRef(tex); err != nil {
				return err
			}
			atts = append(atts, attachmentFor(tex, viewIdx, w.Load, w.Store, rhi.DefaultDepthStencilClear))
		}
		g.attachments[i] = atts
	}
	return nil
}

func attachmentFor(tex rhi.Texture, viewIdx int, load rhi.LoadOp, store rhi.StoreOp, clear rhi.ClearValue) rhi.Attachment {
	if tex == nil {
		return rhi.Attachment{Load: load, Store: store, ClearValue: clear}
	}
	return rhi.Attachment{
		View:       tex.View(viewIdx),
		Format:     tex.Format(),
		Samples:    tex.Samples(),
		Extent:     tex.Extent(),
		Load:       load,
		Store:      store,
		ClearValue: clear,
	}
}
