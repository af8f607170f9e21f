// Package barrier implements the Barrier Planner: it derives image
// in/out barriers, buffer in-barriers, and buffer-pack in-barriers from
// a render graph's per-node resource accesses (spec.md §4.6).
//
// Like package schedule, this package works over plain per-node access
// lists rather than rendergraph/registry types directly, so
// package rendergraph can depend on it without a cycle.
package barrier

import "github.com/kestrel-forge/rhi/rhi"

// ResourceKind discriminates how a resource id should be barriered.
type ResourceKind int

// Resource kinds relevant to barrier planning.
const (
	KindImage ResourceKind = iota
	KindBuffer
	KindBufferPack
)

// Access is one node's use of one resource id, either as a read or a
// write, carrying the ResourceState it uses the resource in.
type Access struct {
	Node  int
	ResID int
	Kind  ResourceKind
	State rhi.ResourceState
	// View identifies which image view is accessed, meaningful only
	// when Kind == KindImage.
	View rhi.View
}

// Imported describes a resource's declared initial/final states, used
// when it has no usage (initial) or is used for the last time (final)
// within this compile (spec.md §4.6).
type Imported struct {
	Declared bool
	Initial  rhi.ResourceState
	Final    rhi.ResourceState
}

// Input is the planner's request: every node's accesses, in the order
// nodes are executed (monotonic across queues by dependency level, per
// spec.md §4.6's "picking the queue whose next submission has the
// lowest level"), plus import declarations per resource id.
type Input struct {
	Accesses []Access
	Imported map[int]Imported

	// PriorState carries a transient (non-imported) image's last-known
	// state from its previous compile, keyed by ResID. It supplies the
	// src state for a resource's first usage in this compile when that
	// resource has neither a usage earlier in Accesses nor an Imported
	// entry — the third case of spec.md §4.6's src-state resolution,
	// distinct from the within-compile "prior usage" and import-initial
	// cases above it.
	PriorState map[int]rhi.ResourceState
}

// ImageBarrier is an in- or out-barrier on a specific image view.
type ImageBarrier struct {
	ResID        int
	View         rhi.View
	SrcStage     rhi.Stage
	DstStage     rhi.Stage
	SrcAccess    rhi.Access
	DstAccess    rhi.Access
	SrcLayout    rhi.Layout
	DstLayout    rhi.Layout
}

// BufferBarrier is an in-barrier on a buffer or buffer pack.
type BufferBarrier struct {
	ResID     int
	Kind      ResourceKind
	SrcStage  rhi.Stage
	DstStage  rhi.Stage
	SrcAccess rhi.Access
	DstAccess rhi.Access
}

// Plan is the per-node barrier lists the executor emits around a
// node's work (spec.md §4.9 steps 3, 4, 8).
type Plan struct {
	InImage  map[int][]ImageBarrier
	InBuffer map[int][]BufferBarrier
	OutImage map[int][]ImageBarrier
}

type lastUsage struct {
	state rhi.ResourceState
	node  int
	view  rhi.View
	set   bool
}

// Compute runs the §4.6 algorithm over in and returns the resulting Plan.
func Compute(in Input) Plan {
	plan := Plan{
		InImage:  map[int][]ImageBarrier{},
		InBuffer: map[int][]BufferBarrier{},
		OutImage: map[int][]ImageBarrier{},
	}
	last := map[int]*lastUsage{}
	lastUser := map[int]int{} // resID -> last node index that touched it

	for _, acc := range in.Accesses {
		prev, seen := last[acc.ResID]
		imp := in.Imported[acc.ResID]

		switch acc.Kind {
		case KindImage:
			srcState := acc.State
			haveSrc := false
			if seen {
				srcState = prev.state
				haveSrc = true
			} else if imp.Declared {
				srcState = imp.Initial
				haveSrc = true
			} else if prior, ok := in.PriorState[acc.ResID]; ok {
				srcState = prior
				haveSrc = true
			}
			if haveSrc && srcState.Layout() != acc.State.Layout() {
				plan.InImage[acc.Node] = append(plan.InImage[acc.Node], ImageBarrier{
					ResID:     acc.ResID,
					View:      acc.View,
					SrcStage:  srcState.Stage(),
					DstStage:  acc.State.Stage(),
					SrcAccess: srcState.Access(),
					DstAccess: acc.State.Access(),
					SrcLayout: srcState.Layout(),
					DstLayout: acc.State.Layout(),
				})
			}
			last[acc.ResID] = &lastUsage{state: acc.State, node: acc.Node, view: acc.View, set: true}

		case KindBuffer:
			if seen && prev.node != acc.Node && prev.state.Access() != acc.State.Access() {
				plan.InBuffer[acc.Node] = append(plan.InBuffer[acc.Node], BufferBarrier{
					ResID:     acc.ResID,
					Kind:      KindBuffer,
					SrcStage:  prev.state.Stage(),
					DstStage:  acc.State.Stage(),
					SrcAccess: prev.state.Access(),
					DstAccess: acc.State.Access(),
				})
			}
			last[acc.ResID] = &lastUsage{state: acc.State, node: acc.Node, set: true}

		case KindBufferPack:
			// Buffer-pack membership is resolved at execution time, so
			// an in-barrier is always emitted once the pack has any
			// prior usage; actual buffer handles are bound by the
			// executor when it expands this entry (spec.md §4.6).
			if seen {
				plan.InBuffer[acc.Node] = append(plan.InBuffer[acc.Node], BufferBarrier{
					ResID:     acc.ResID,
					Kind:      KindBufferPack,
					SrcStage:  prev.state.Stage(),
					DstStage:  acc.State.Stage(),
					SrcAccess: prev.state.Access(),
					DstAccess: acc.State.Access(),
				})
			}
			last[acc.ResID] = &lastUsage{state: acc.State, node: acc.Node, set: true}
		}
		lastUser[acc.ResID] = acc.Node
	}

	// Image out-barriers: only for imports with a declared final state,
	// emitted after the last node that used the resource.
	for resID, imp := range in.Imported {
		if !imp.Declared {
			continue
		}
		u, ok := last[resID]
		if !ok || u.state == imp.Final {
			continue
		}
		plan.OutImage[u.node] = append(plan.OutImage[u.node], ImageBarrier{
			ResID:     resID,
			View:      u.view,
			SrcStage:  u.state.Stage(),
			DstStage:  imp.Final.Stage(),
			SrcAccess: u.state.Access(),
			DstAccess: imp.Final.Access(),
			SrcLayout: u.state.Layout(),
			DstLayout: imp.Final.Layout(),
		})
	}

	return plan
}
