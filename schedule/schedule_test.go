package schedule

import (
	"testing"

	"github.com/kestrel-forge/rhi/rhi"
)

func TestSingleQueueNoWaits(t *testing.T) {
	in := Input{
		NumNodes:  3,
		Level:     []int{0, 1, 2},
		Queue:     []rhi.QueueRole{rhi.QueueMain, rhi.QueueMain, rhi.QueueMain},
		Available: map[rhi.QueueRole]bool{rhi.QueueMain: true},
		Edges:     []Edge{{0, 1}, {1, 2}},
	}
	res, err := Schedule(in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Submissions) != 3 {
		t.Fatalf("expected one submission per dependency level (3) on one queue, got %d", len(res.Submissions))
	}
	if len(res.Waits) != 0 {
		t.Fatalf("expected no cross-queue waits on a single queue, got %v", res.Waits)
	}
}

func TestCrossQueueWaitInserted(t *testing.T) {
	// node 0 on transfer, node 1 on main reads node 0's output.
	in := Input{
		NumNodes: 2,
		Level:    []int{0, 1},
		Queue:    []rhi.QueueRole{rhi.QueueTransfer, rhi.QueueMain},
		Available: map[rhi.QueueRole]bool{
			rhi.QueueMain:     true,
			rhi.QueueTransfer: true,
		},
		Edges: []Edge{{0, 1}},
	}
	res, err := Schedule(in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Submissions) != 2 {
		t.Fatalf("expected 2 submissions (one per queue), got %d", len(res.Submissions))
	}
	sub := res.NodeSubmission[1]
	waits, ok := res.Waits[sub]
	if !ok || len(waits) != 1 || waits[0].Queue != rhi.QueueTransfer {
		t.Fatalf("expected node 1's submission to wait on the transfer queue, got %v", res.Waits)
	}
}

func TestUnavailableQueueFallsBackToMain(t *testing.T) {
	in := Input{
		NumNodes:  1,
		Level:     []int{0},
		Queue:     []rhi.QueueRole{rhi.QueueCompute},
		Available: map[rhi.QueueRole]bool{rhi.QueueMain: true},
		Edges:     nil,
	}
	res, err := Schedule(in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Queue[0] != rhi.QueueMain {
		t.Fatalf("expected fallback to QueueMain, got %v", res.Queue[0])
	}
}

// TestCrossQueueWaitUsesPerQueueSubmissionIndex reproduces a compute
// submission whose global submission id (its position across every
// queue's Submissions) diverges from its position within its own
// queue's sequence: a compute node at level 0, five chained main nodes
// at levels 1-5 interleaving after it, then a second compute node at
// level 6 reading the first compute node's output. The second compute
// node depends only on its own queue and so has no cross-queue wait;
// the first main node's wait on compute, the compute queue's
// submission count (2) and the second compute submission's index (1)
// must key off the compute queue's own submission sequence, not the
// global submission id (which would be 6).
func TestCrossQueueWaitUsesPerQueueSubmissionIndex(t *testing.T) {
	levels := []int{0, 1, 2, 3, 4, 5, 6}
	queues := []rhi.QueueRole{
		rhi.QueueCompute,
		rhi.QueueMain, rhi.QueueMain, rhi.QueueMain, rhi.QueueMain, rhi.QueueMain,
		rhi.QueueCompute,
	}
	in := Input{
		NumNodes: 7,
		Level:    levels,
		Queue:    queues,
		Available: map[rhi.QueueRole]bool{
			rhi.QueueMain:    true,
			rhi.QueueCompute: true,
		},
		Edges: []Edge{{0, 1}, {1, 2}, {2, 3}, {3, 4}, {4, 5}, {0, 6}},
	}
	res, err := Schedule(in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := res.SubmissionCount[rhi.QueueCompute]; got != 2 {
		t.Fatalf("compute queue submission count = %d, want 2", got)
	}

	secondComputeSub := res.NodeSubmission[6]
	waits := res.Waits[secondComputeSub]
	if len(waits) != 0 {
		t.Fatalf("second compute submission waits on another queue unexpectedly: %v", waits)
	}

	// node 1 (first main node) must wait on the first compute
	// submission's own index (0), yielding Value 1 — never the global
	// submission id the first compute submission happens to occupy.
	firstMainSub := res.NodeSubmission[1]
	mainWaits := res.Waits[firstMainSub]
	if len(mainWaits) != 1 || mainWaits[0].Queue != rhi.QueueCompute || mainWaits[0].Value != 1 {
		t.Fatalf("main's wait on compute = %v, want a single wait on QueueCompute with Value 1", mainWaits)
	}
	if res.SubmissionIndex[res.NodeSubmission[0]] != 0 {
		t.Fatalf("first compute submission's per-queue index = %d, want 0", res.SubmissionIndex[res.NodeSubmission[0]])
	}
	if res.SubmissionIndex[secondComputeSub] != 1 {
		t.Fatalf("second compute submission's per-queue index = %d, want 1 (not its global submission id)", res.SubmissionIndex[secondComputeSub])
	}
}

func TestCycleLikeBackwardEdgeRejected(t *testing.T) {
	in := Input{
		NumNodes:  2,
		Level:     []int{0, 1},
		Queue:     []rhi.QueueRole{rhi.QueueMain, rhi.QueueMain},
		Available: map[rhi.QueueRole]bool{rhi.QueueMain: true},
		Edges:     []Edge{{1, 0}},
	}
	if _, err := Schedule(in); err == nil {
		t.Fatalf("expected an error for a backward edge")
	}
}
