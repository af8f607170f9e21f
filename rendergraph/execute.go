package rendergraph

import (
	"fmt"

	"github.com/kestrel-forge/rhi/rhi"
	"github.com/kestrel-forge/rhi/timeline"
)

const timelineCapacityMargin = 1 // spec.md §4.4 step 7: "max timeline value >= submissions + 1"

// allocateQueueSemaphores creates one timeline semaphore per queue that
// has at least one submission, sized to cover every submission this
// compile produced plus the margin required by a final "everything
// done" signal.
func allocateQueueSemaphores(device GraphDevice, counts map[rhi.QueueRole]int) map[rhi.QueueRole]*timeline.PerQueue {
	out := map[rhi.QueueRole]*timeline.PerQueue{}
	for q, count := range counts {
		sem, err := device.NewTimelineSemaphore(q)
		if err != nil {
			// A semaphore-creation failure here is a fatal device-lost
			// condition surfaced to the caller through Execute instead,
			// since allocateQueueSemaphores itself has no error return:
			// the queue is left without an entry, and Execute returns an
			// error for the first submission on it.
			continue
		}
		out[q] = &timeline.PerQueue{
			Role:      q,
			Semaphore: sem,
			Layout:    timeline.NewLayout(uint64(count) + timelineCapacityMargin),
		}
	}
	return out
}

// Execute runs one compiled graph for the given frame, recompiling
// first if the graph is dirty (spec.md §4.4). extraWait, when non-nil,
// is awaited by the very first submission (used by the device to chain
// the first graph of a frame to the swapchain's acquire semaphore);
// extraSignal, when non-nil, is additionally signaled by the very last
// submission (used to chain to the next graph or to EndFrame's present
// wait). It returns, per queue that had submissions, the final
// timeline value that queue's last submission signals. The device's
// ExecuteConsecutive does not use these values; it chains graphs
// through extraWait/extraSignal on its own render-graph semaphore.
func (g *Graph) Execute(absoluteFrame uint64, frameIndex int, ctx rhi.Context, extraWait, extraSignal *rhi.SemaphoreOp) (map[rhi.QueueRole]rhi.SemaphoreOp, error) {
	if err := g.recompileIfDirty(); err != nil {
		return nil, err
	}

	finalSignal := map[rhi.QueueRole]rhi.SemaphoreOp{}
	for i, sub := range g.sched.Submissions {
		cb, err := g.getCmdBuffer(frameIndex, sub.Queue, i)
		if err != nil {
			return nil, err
		}
		if err := cb.Begin(); err != nil {
			return nil, err
		}

		for _, nodeIdx := range sub.Nodes {
			n := g.nodes[nodeIdx]
			cb.BeginDebugLabel(n.Name, debugColor(n.Type))

			for _, ib := range g.barriers.InImage[nodeIdx] {
				cb.Transition([]rhi.Transition{{
					Barrier:      rhi.Barrier{SyncBefore: ib.SrcStage, SyncAfter: ib.DstStage, AccessBefore: ib.SrcAccess, AccessAfter: ib.DstAccess},
					LayoutBefore: ib.SrcLayout,
					LayoutAfter:  ib.DstLayout,
					View:         ib.View,
				}})
			}
			if bufBarriers := g.barriers.InBuffer[nodeIdx]; len(bufBarriers) > 0 {
				rb := make([]rhi.Barrier, len(bufBarriers))
				for i, bb := range bufBarriers {
					rb[i] = rhi.Barrier{SyncBefore: bb.SrcStage, SyncAfter: bb.DstStage, AccessBefore: bb.SrcAccess, AccessAfter: bb.DstAccess}
				}
				cb.Barrier(rb)
			}

			if n.Type == RenderPass {
				atts := g.attachments[nodeIdx]
				area := attachmentArea(atts)
				cb.BeginRendering(atts, area, 1)
				cb.SetViewports([]rhi.Viewport{{X: 0, Y: float32(area.Height), Width: float32(area.Width), Height: -float32(area.Height), Znear: 0, Zfar: 1}})
				cb.SetScissors([]rhi.Scissor{area})
			}

			if n.Job != nil {
				n.Job(g, ctx, cb)
			}

			if n.Type == RenderPass {
				cb.EndRendering()
			}

			for _, ob := range g.barriers.OutImage[nodeIdx] {
				cb.Transition([]rhi.Transition{{
					Barrier:      rhi.Barrier{SyncBefore: ob.SrcStage, SyncAfter: ob.DstStage, AccessBefore: ob.SrcAccess, AccessAfter: ob.DstAccess},
					LayoutBefore: ob.SrcLayout,
					LayoutAfter:  ob.DstLayout,
					View:         ob.View,
				}})
			}
			cb.EndDebugLabel()
		}

		if err := cb.End(); err != nil {
			return nil, err
		}

		pq := g.queues[sub.Queue]
		if pq == nil {
			return nil, fmt.Errorf("rendergraph: no timeline semaphore for queue %v", sub.Queue)
		}
		var waits, signals []rhi.SemaphoreOp
		for _, w := range g.sched.Waits[i] {
			if src := g.queues[w.Queue]; src != nil {
				waits = append(waits, rhi.SemaphoreOp{Semaphore: src.Semaphore, Value: src.Layout.Value(absoluteFrame, w.Value)})
			}
		}
		if i == 0 && extraWait != nil {
			waits = append(waits, *extraWait)
		}
		signalValue := pq.SubmissionValue(absoluteFrame, g.sched.SubmissionIndex[i])
		signals = append(signals, rhi.SemaphoreOp{Semaphore: pq.Semaphore, Value: signalValue})
		if i == len(g.sched.Submissions)-1 && extraSignal != nil {
			signals = append(signals, *extraSignal)
		}

		if err := g.device.Submit(sub.Queue, []rhi.CmdBuffer{cb}, waits, signals); err != nil {
			return nil, err
		}
		finalSignal[sub.Queue] = rhi.SemaphoreOp{Semaphore: pq.Semaphore, Value: signalValue}
	}

	return finalSignal, nil
}

func (g *Graph) getCmdBuffer(frame int, queue rhi.QueueRole, slot int) (rhi.CmdBuffer, error) {
	key := cmdKey{frame, queue, slot}
	if cb, ok := g.cmdPool[key]; ok {
		if err := cb.Reset(); err != nil {
			return nil, fmt.Errorf("rendergraph: resetting pooled command buffer: %w", err)
		}
		return cb, nil
	}
	cb, err := g.device.NewCmdBuffer(queue)
	if err != nil {
		return nil, fmt.Errorf("rendergraph: allocating command buffer: %w", err)
	}
	g.cmdPool[key] = cb
	return cb, nil
}

// debugColor returns a node type's debug-label color: render-pass amber,
// compute green, transfer cyan (spec.md §6 "Persisted state").
func debugColor(t NodeType) [4]float32 {
	switch t {
	case RenderPass:
		return [4]float32{1, 0.75, 0, 1}
	case Compute:
		return [4]float32{0, 1, 0, 1}
	default:
		return [4]float32{0, 1, 1, 1}
	}
}

// attachmentArea derives the render area from the node's first
// attachment, per spec.md §4.8 ("render area is inherited from its
// first color or depth attachment").
func attachmentArea(atts []rhi.Attachment) rhi.Scissor {
	if len(atts) == 0 {
		return rhi.Scissor{}
	}
	ext := atts[0].Extent
	return rhi.Scissor{X: 0, Y: 0, Width: ext.Width, Height: ext.Height}
}
