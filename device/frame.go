package device

import (
	"context"
	"fmt"

	"github.com/kestrel-forge/rhi/rendergraph"
	"github.com/kestrel-forge/rhi/rhi"
	"github.com/kestrel-forge/rhi/timeline"
)

// BeginFrame waits on the in-flight fence for this frame's slot,
// acquires the next swapchain image, and resets the per-frame
// render-graph counter (spec.md §4.1 "BeginFrame(swapchain) →
// {index, needs-recreate}"). Out-of-date/suboptimal acquisition is
// reported as needsRecreate, not as an error; any other backend error
// is fatal for the frame.
func (d *Device) BeginFrame(ctx context.Context, sc rhi.Swapchain) (index int, needsRecreate bool, err error) {
	d.swapchain = sc
	d.frameSlot = int(d.absoluteFrame % uint64(d.framesInFlight))

	if d.absoluteFrame >= uint64(d.framesInFlight) {
		if err := d.inFlight[d.frameSlot].Wait(ctx, d.inFlightValue[d.frameSlot]); err != nil {
			return 0, false, fmt.Errorf("device: waiting on in-flight fence: %w", err)
		}
	}

	idx, view, suboptimal, err := sc.AcquireNext(d.acquire[d.frameSlot])
	if err != nil {
		return 0, false, fmt.Errorf("device: acquiring swapchain image: %w", err)
	}
	if suboptimal {
		return 0, true, nil
	}

	d.currentTextureIdx = idx
	d.currentView = view
	d.acquireValue[d.frameSlot] = d.absoluteFrame + 1
	d.graphsThisFrame = 0
	d.lastGraphValue = 0
	return idx, false, nil
}

// ExecuteConsecutive executes one compiled render graph for the
// current frame, chaining timeline semaphores so the first graph waits
// on the acquire semaphore and later graphs wait on the prior graph's
// final value on the process-wide render-graph semaphore (spec.md §4.1
// "ExecuteConsecutive(graph, context)").
func (d *Device) ExecuteConsecutive(ctx context.Context, graph *rendergraph.Graph) error {
	if d.graphsThisFrame >= d.maxGraphsPerFrame {
		return fmt.Errorf("device: frame %d exceeds max graphs per frame (%d)", d.absoluteFrame, d.maxGraphsPerFrame)
	}

	graphIdx := d.graphsThisFrame
	signalValue := timeline.GraphSemaphoreValue(d.absoluteFrame, d.maxGraphsPerFrame, graphIdx)
	extraSignal := &rhi.SemaphoreOp{Semaphore: d.graphSem, Value: signalValue}

	var extraWait *rhi.SemaphoreOp
	if graphIdx == 0 {
		extraWait = &rhi.SemaphoreOp{Semaphore: d.acquire[d.frameSlot], Value: d.acquireValue[d.frameSlot]}
	} else {
		extraWait = &rhi.SemaphoreOp{Semaphore: d.graphSem, Value: d.lastGraphValue}
	}

	if _, err := graph.Execute(d.absoluteFrame, d.frameSlot, d, extraWait, extraSignal); err != nil {
		return fmt.Errorf("device: executing render graph %q: %w", graph.Name(), err)
	}

	d.lastGraphValue = signalValue
	d.graphsThisFrame++
	return nil
}

// EndFrame submits a no-op barrier on the main queue that waits on the
// last render graph's signal and signals both the render-finished
// semaphore and the in-flight fence, presents, advances the transfer
// engine, and increments the frame counter (spec.md §4.1
// "EndFrame() → {success, needs-recreate}").
func (d *Device) EndFrame(ctx context.Context) (needsRecreate bool, err error) {
	cb, err := d.gpu.NewCmdBuffer(rhi.QueueMain)
	if err != nil {
		return false, fmt.Errorf("device: allocating end-of-frame command buffer: %w", err)
	}
	defer cb.Release()
	if err := cb.Begin(); err != nil {
		return false, fmt.Errorf("device: begin end-of-frame command buffer: %w", err)
	}
	if err := cb.End(); err != nil {
		return false, fmt.Errorf("device: end end-of-frame command buffer: %w", err)
	}

	var waits []rhi.SemaphoreOp
	if d.graphsThisFrame > 0 {
		waits = append(waits, rhi.SemaphoreOp{Semaphore: d.graphSem, Value: d.lastGraphValue})
	}
	fenceValue := d.absoluteFrame + 1
	signals := []rhi.SemaphoreOp{
		{Semaphore: d.rendered[d.frameSlot], Value: fenceValue},
		{Semaphore: d.inFlight[d.frameSlot], Value: fenceValue},
	}
	if err := d.gpu.Submit(rhi.QueueMain, []rhi.CmdBuffer{cb}, waits, signals); err != nil {
		return false, fmt.Errorf("device: submitting end-of-frame barrier: %w", err)
	}
	d.inFlightValue[d.frameSlot] = fenceValue

	suboptimal, err := d.swapchain.Present(d.rendered[d.frameSlot], fenceValue)
	if err != nil {
		return false, fmt.Errorf("device: presenting: %w", err)
	}

	if err := d.transfer.SubmitAndWait(ctx); err != nil {
		return suboptimal, fmt.Errorf("device: advancing transfer engine: %w", err)
	}

	d.absoluteFrame++
	return suboptimal, nil
}
