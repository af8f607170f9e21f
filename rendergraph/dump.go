package rendergraph

import (
	"fmt"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
)

// DumpGraphviz writes a deterministic dot-format description of the
// compiled graph to filename, for offline debugging (spec.md §6
// "DumpGraphviz(filename, detailed)"). When detailed is true, each
// edge is labeled with the first resource version ("vN") that the
// producer writes and the consumer reads; the rest of the nodes'
// read/write sets are not included.
func (g *Graph) DumpGraphviz(filename string, detailed bool) error {
	var sb strings.Builder
	fmt.Fprintf(&sb, "digraph %q {\n", g.name)
	for i, n := range g.nodes {
		fmt.Fprintf(&sb, "  n%d [label=%q, shape=box];\n", i, fmt.Sprintf("%s\\n%s", n.Name, nodeTypeLabel(n.Type)))
	}
	for _, e := range g.edges {
		if detailed {
			fmt.Fprintf(&sb, "  n%d -> n%d [label=%q];\n", e.from, e.to, sharedVersionLabel(g.nodes[e.from], g.nodes[e.to]))
		} else {
			fmt.Fprintf(&sb, "  n%d -> n%d;\n", e.from, e.to)
		}
	}
	sb.WriteString("}\n")
	return os.WriteFile(filename, []byte(sb.String()), 0o644)
}

// asyncDumpPool runs DumpGraphvizAsync's fire-and-forget dot-file
// writes off the CPU-side render thread. This is the only place a
// worker pool is used in the render graph's lifecycle: every
// synchronization-sensitive path (build, compile, execute) stays
// single-threaded per spec.md §5, and a debug dump is neither.
var (
	asyncDumpPool  = worker.NewDynamicWorkerPool(1, 16, time.Second)
	asyncDumpTaskID int64
)

// DumpGraphvizAsync schedules DumpGraphviz on a background worker and
// returns immediately; errors are dropped, matching its purely
// diagnostic purpose.
func (g *Graph) DumpGraphvizAsync(filename string, detailed bool) {
	id := int(atomic.AddInt64(&asyncDumpTaskID, 1))
	asyncDumpPool.SubmitTask(worker.Task{
		ID: id,
		Do: func() (any, error) {
			return nil, g.DumpGraphviz(filename, detailed)
		},
	})
}

func nodeTypeLabel(t NodeType) string {
	switch t {
	case RenderPass:
		return "RenderPass"
	case Compute:
		return "Compute"
	default:
		return "Transfer"
	}
}

func sharedVersionLabel(u, v *Node) string {
	for _, w := range u.Writes {
		for _, r := range v.Reads {
			if w.Version == r.Version {
				return fmt.Sprintf("v%d", w.Version)
			}
		}
	}
	return ""
}
