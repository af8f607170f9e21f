// Package rendergraph implements the frame-scoped Render Graph: a
// builder that records a DAG of typed resource reads/writes, and a
// compiled Graph that schedules, barriers, and executes that DAG across
// up to three hardware queues (spec.md §3, §4.3–§4.9).
package rendergraph

import (
	"github.com/kestrel-forge/rhi/registry"
	"github.com/kestrel-forge/rhi/rhi"
)

// NodeType is the kind of work a render-graph node performs.
type NodeType int

// Node types.
const (
	RenderPass NodeType = iota
	Compute
	Transfer
)

// Read is one entry of a node's read set: the consuming device state a
// version is read in.
type Read struct {
	Version registry.ResourceVersion
	State   rhi.ResourceState
}

// Write is one entry of a node's write set. Load/Store only apply to
// RenderPass nodes; other node types ignore them.
type Write struct {
	Version registry.ResourceVersion
	State   rhi.ResourceState
	Load    rhi.LoadOp
	Store   rhi.StoreOp
}

// Job is the opaque callable attached to a node by SetJob, invoked
// during execution with the compiled graph, the frame context, and the
// command buffer currently being recorded (spec.md §4.9 step 6).
//
// Jobs may only call CmdBuffer methods; calling device-level APIs from
// within a job is a usage error the RHI does not police (spec.md §5).
type Job func(g *Graph, ctx rhi.Context, cb rhi.CmdBuffer)

// Node is one vertex of the render graph, immutable after its Begin…/End…
// scope closes (spec.md §3).
type Node struct {
	Type         NodeType
	Async        bool
	Capabilities rhi.Capability
	Name         string

	Reads  []Read
	Writes []Write

	// ColorCount is the number of leading Writes that are color targets
	// (possibly followed by ColorMultisampleResolve writes positionally
	// aligned to them), used by the attachment planner (spec.md §4.8).
	ColorCount int
	// HasDepthStencil reports whether Writes includes a depth/stencil
	// target, which if present is the single entry after color/resolve
	// writes.
	HasDepthStencil bool

	Job Job

	// Filled in by Compile; zero until then.
	index            int
	dependencyLevel  int
	queue            rhi.QueueRole
}

// Index returns this node's position in the graph's topological order,
// valid only after Compile.
func (n *Node) Index() int { return n.index }

// DependencyLevel returns the longest-path distance from any source
// node, valid only after Compile.
func (n *Node) DependencyLevel() int { return n.dependencyLevel }

// Queue returns the hardware queue role this node was scheduled on,
// valid only after Compile.
func (n *Node) Queue() rhi.QueueRole { return n.queue }
