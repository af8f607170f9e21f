// Package timeline implements the per-queue value layout for the RHI's
// timeline semaphores (spec.md §4.4 step 7, §4.5, §4.1). Values are
// biased by the absolute frame counter so that wait values strictly
// increase across frames, per queue.
package timeline

import "github.com/kestrel-forge/rhi/rhi"

// Layout computes monotonic per-queue timeline values from a per-frame
// local value. K is the per-frame capacity reserved per queue — it must
// exceed the highest local value ever produced in one frame (the
// render-graph semaphore additionally reserves one extra slot per graph
// index, per spec.md §4.1's "render-graph semaphore" formula).
type Layout struct {
	K uint64
}

// NewLayout returns a Layout reserving capacity local values per frame.
func NewLayout(capacity uint64) Layout {
	return Layout{K: capacity}
}

// Value returns the absolute timeline value for local within
// absoluteFrame: (absoluteFrame * K) + local.
func (l Layout) Value(absoluteFrame uint64, local uint64) uint64 {
	return absoluteFrame*l.K + local
}

// GraphSemaphoreValue computes the process-wide "render-graph
// semaphore" value for the graphIdx-th graph executed within
// absoluteFrame, out of a per-frame cap of maxGraphsPerFrame (spec.md
// §4.1: "(absolute_frame × (K+1) + graph_idx + 1)", K = maxGraphsPerFrame).
func GraphSemaphoreValue(absoluteFrame uint64, maxGraphsPerFrame uint64, graphIdx uint64) uint64 {
	return absoluteFrame*(maxGraphsPerFrame+1) + graphIdx + 1
}

// PerQueue tracks the live rhi.TimelineSemaphore and value layout for
// one hardware queue.
type PerQueue struct {
	Role      rhi.QueueRole
	Semaphore rhi.TimelineSemaphore
	Layout    Layout
}

// SubmissionValue returns the absolute timeline value a queue's
// submissionIndex-th submission (0-based, within absoluteFrame) should
// signal on completion: submissionIndex+1, biased into the frame's
// reserved value range.
func (p PerQueue) SubmissionValue(absoluteFrame uint64, submissionIndex int) uint64 {
	return p.Layout.Value(absoluteFrame, uint64(submissionIndex)+1)
}
