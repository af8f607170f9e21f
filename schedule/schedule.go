// Package schedule implements the Cross-Queue Scheduler: it assigns
// render-graph nodes to hardware queues, partitions each queue's nodes
// into Submissions at dependency-level boundaries, and computes the
// minimal set of cross-queue timeline-semaphore waits using a
// Sufficient Synchronization Index Set, or SSIS (spec.md §4.5).
//
// This package knows nothing about registries, resource versions, or
// jobs — it operates purely on node indices, dependency levels, and a
// predecessor edge list, so package rendergraph can depend on it
// without a cycle.
package schedule

import (
	"fmt"

	"github.com/kestrel-forge/rhi/rhi"
	"github.com/kestrel-forge/rhi/rhierr"
)

// Edge is a direct dependency: From must complete before To. Node
// indices are assumed to already be in topological order (From < To).
type Edge struct {
	From, To int
}

// Input is the scheduler's request: a topologically-sorted node list
// with per-node dependency level and a tentative queue assignment
// (spec.md §4.5 "Queue assignment"), plus the direct-dependency edges
// derived from the render graph's resource-version edges.
type Input struct {
	NumNodes  int
	Level     []int
	Queue     []rhi.QueueRole
	Available map[rhi.QueueRole]bool
	Edges     []Edge
}

// Submission is a contiguous run of one queue's nodes, recorded into a
// single command buffer (spec.md §4.5 "carve nodes ... into Submissions").
type Submission struct {
	Queue rhi.QueueRole
	Nodes []int
}

// Wait is a single cross-queue wait a submission must perform before
// its first node executes: wait on Queue's timeline semaphore reaching
// Value.
type Wait struct {
	Queue rhi.QueueRole
	Value uint64
}

// Result is the scheduler's output.
type Result struct {
	// Queue is the resolved per-node queue assignment, after falling
	// back any role absent from Input.Available to QueueMain.
	Queue []rhi.QueueRole

	// Submissions holds every submission across every queue; index is
	// a stable submission id referenced by NodeSubmission and Waits.
	Submissions []Submission

	// NodeSubmission maps a node index to its submission id.
	NodeSubmission []int

	// SubmissionIndex maps a submission id to its 0-based position
	// within its own queue's submission sequence — the value
	// PerQueue.SubmissionValue and a cross-queue Wait both key off, per
	// spec.md §4.5's submit_index(u) (distinct from the submission id,
	// which indexes Submissions globally across every queue).
	SubmissionIndex []int

	// Waits maps a submission id to the cross-queue waits it must
	// perform before its first node records.
	Waits map[int][]Wait

	// SubmissionCount is the number of submissions per queue, used to
	// size that queue's timeline semaphore (spec.md §4.4 step 7:
	// "max timeline value ≥ number of submissions per queue + 1").
	SubmissionCount map[rhi.QueueRole]int
}

// Schedule runs the full §4.5 algorithm over in and returns the result,
// or ErrInvalidGraph if in.Edges describes a node index pair out of
// topological order.
func Schedule(in Input) (Result, error) {
	n := in.NumNodes
	resolved := make([]rhi.QueueRole, n)
	for i, q := range in.Queue {
		if in.Available[q] {
			resolved[i] = q
		} else {
			resolved[i] = rhi.QueueMain
		}
	}

	preds := make([][]int, n)
	for _, e := range in.Edges {
		if e.From >= e.To {
			return Result{}, fmt.Errorf("%w: edge %d->%d is not forward in topological order", rhierr.ErrInvalidGraph, e.From, e.To)
		}
		preds[e.To] = append(preds[e.To], e.From)
	}

	// si(n) = s + q*N + 1, s = topological sort index = node index.
	si := make([]uint64, n)
	for i := 0; i < n; i++ {
		si[i] = uint64(i) + uint64(resolved[i])*uint64(n) + 1
	}

	// ssis[n][k] = max SI among every node on queue k that n transitively
	// depends on (including n's own queue, trivially si(n) itself).
	// ssisSrc[n][k] is the node index achieving that maximum, needed to
	// resolve which submission a cross-queue wait targets.
	ssis := make([]map[rhi.QueueRole]uint64, n)
	ssisSrc := make([]map[rhi.QueueRole]int, n)
	for i := 0; i < n; i++ {
		ssis[i] = map[rhi.QueueRole]uint64{resolved[i]: si[i]}
		ssisSrc[i] = map[rhi.QueueRole]int{resolved[i]: i}
		for _, p := range preds[i] {
			for k, v := range ssis[p] {
				if v > ssis[i][k] {
					ssis[i][k] = v
					ssisSrc[i][k] = ssisSrc[p][k]
				}
			}
		}
	}

	// Redundancy-free cross-queue edge selection: per consuming queue,
	// track the highest SI already guaranteed from each source queue by
	// an earlier chosen edge; only add a new wait when a node demands
	// more than that (a later predecessor on the same source queue
	// subsumes any earlier one, since a queue completes its submissions
	// in issue order).
	lastGuaranteed := map[rhi.QueueRole]map[rhi.QueueRole]uint64{}
	needsBoundary := make([]bool, n)
	crossNeeds := make([][]struct {
		queue rhi.QueueRole
		src   int
	}, n)

	for i := 0; i < n; i++ {
		q := resolved[i]
		if lastGuaranteed[q] == nil {
			lastGuaranteed[q] = map[rhi.QueueRole]uint64{}
		}
		for k, v := range ssis[i] {
			if k == q {
				continue
			}
			if v > lastGuaranteed[q][k] {
				lastGuaranteed[q][k] = v
				needsBoundary[i] = true
				crossNeeds[i] = append(crossNeeds[i], struct {
					queue rhi.QueueRole
					src   int
				}{k, ssisSrc[i][k]})
			}
		}
	}

	// Carve submissions per queue at dependency-level boundaries or
	// wherever a node requires a new cross-queue wait.
	nodeSubmission := make([]int, n)
	var submissions []Submission
	var submissionIndex []int
	currentForQueue := map[rhi.QueueRole]int{} // queue -> index into submissions, -1 if none open
	perQueueCount := map[rhi.QueueRole]int{}
	for q := range in.Available {
		currentForQueue[q] = -1
	}
	currentForQueue[rhi.QueueMain] = -1

	for i := 0; i < n; i++ {
		q := resolved[i]
		idx, open := currentForQueue[q]
		startNew := !open || idx < 0
		if open && idx >= 0 {
			cur := submissions[idx]
			lastNode := cur.Nodes[len(cur.Nodes)-1]
			if in.Level[i] > in.Level[lastNode] || needsBoundary[i] {
				startNew = true
			}
		}
		if startNew {
			submissions = append(submissions, Submission{Queue: q})
			submissionIndex = append(submissionIndex, perQueueCount[q])
			perQueueCount[q]++
			currentForQueue[q] = len(submissions) - 1
			idx = currentForQueue[q]
		}
		submissions[idx].Nodes = append(submissions[idx].Nodes, i)
		nodeSubmission[i] = idx
	}

	// submit_index(u) (spec.md §4.5): each cross-queue wait targets the
	// source submission's position within its own queue, not its global
	// id in Submissions — the two diverge whenever another queue's
	// submissions interleave between them.
	waits := map[int][]Wait{}
	for i := 0; i < n; i++ {
		if len(crossNeeds[i]) == 0 {
			continue
		}
		sub := nodeSubmission[i]
		for _, need := range crossNeeds[i] {
			srcSub := nodeSubmission[need.src]
			waits[sub] = append(waits[sub], Wait{Queue: need.queue, Value: uint64(submissionIndex[srcSub] + 1)})
		}
	}

	counts := map[rhi.QueueRole]int{}
	for _, s := range submissions {
		counts[s.Queue]++
	}

	return Result{
		Queue:           resolved,
		Submissions:     submissions,
		NodeSubmission:  nodeSubmission,
		SubmissionIndex: submissionIndex,
		Waits:           waits,
		SubmissionCount: counts,
	}, nil
}
