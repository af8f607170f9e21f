// Package transfer implements the Dedicated Transfer Engine: a
// double-buffered staging pool that packs pending buffer copies into a
// fixed-capacity ring and flushes them on the transfer queue (spec.md
// §4.11).
package transfer

import (
	"context"
	"fmt"

	"github.com/kestrel-forge/rhi/rhi"
	"github.com/kestrel-forge/rhi/rhierr"
)

// Request is one caller-submitted upload: copy Data into Dst starting
// at DstOffset. Complete, if non-nil, is invoked once the copy has
// landed on the GPU, in the order requests were registered across
// every SubmitAndWait call that was needed to satisfy them.
type Request struct {
	Dst       rhi.Buffer
	DstOffset int64
	Data      []byte
	Complete  func()
}

// packed is a Request bound to the offset it occupies within the
// currently-mapped staging buffer.
type packed struct {
	req        Request
	stageOff   int64
}

// slot is one of the engine's two rotating staging buffers.
type slot struct {
	staging rhi.Buffer
	cb      rhi.CmdBuffer
	used    int64
	packed  []packed
}

// Engine is the Dedicated Transfer Engine. It is a singleton owned by
// the device (spec.md §3 Shared-resource policy) and is not safe for
// concurrent use — every suspension point in the RHI's CPU timeline is
// either BeginFrame's fence wait or this engine's SubmitAndWait
// (spec.md §4.11 "Suspension points"), so callers are expected to drive
// it from the single render thread.
type Engine struct {
	gpu      rhi.GPU
	role     rhi.QueueRole
	capacity int64
	slots    [2]*slot
	cur      int
	pending  []Request
}

// New creates a Transfer Engine with two staging buffers of the given
// capacity in bytes, on the given queue role (normally rhi.QueueTransfer).
func New(gpu rhi.GPU, role rhi.QueueRole, capacity int64) (*Engine, error) {
	e := &Engine{gpu: gpu, role: role, capacity: capacity}
	for i := range e.slots {
		staging, err := gpu.NewBuffer(capacity, true, rhi.UTransferSrc)
		if err != nil {
			return nil, fmt.Errorf("transfer: creating staging buffer %d: %w", i, err)
		}
		cb, err := gpu.NewCmdBuffer(role)
		if err != nil {
			return nil, fmt.Errorf("transfer: creating command buffer %d: %w", i, err)
		}
		e.slots[i] = &slot{staging: staging, cb: cb}
	}
	return e, nil
}

// Release releases both staging buffers and command buffers.
func (e *Engine) Release() {
	for _, s := range e.slots {
		s.staging.Release()
		s.cb.Release()
	}
}

func (e *Engine) current() *slot { return e.slots[e.cur] }

// Request attempts to pack req into the currently-mapped staging
// buffer at its current write offset. An oversize request (one that
// could never fit even into an empty staging buffer) fails immediately
// with rhierr.ErrStagingTooSmall. A request that would fit but doesn't
// fit right now is deferred to the pending list and retried after the
// next SubmitAndWait.
func (e *Engine) Request(req Request) error {
	if int64(len(req.Data)) > e.capacity {
		return fmt.Errorf("transfer: request of %d bytes exceeds staging capacity %d: %w", len(req.Data), e.capacity, rhierr.ErrStagingTooSmall)
	}
	s := e.current()
	if s.used+int64(len(req.Data)) > e.capacity {
		e.pending = append(e.pending, req)
		return nil
	}
	e.packOne(s, req)
	return nil
}

func (e *Engine) packOne(s *slot, req Request) {
	off := s.used
	copy(s.staging.Bytes()[off:], req.Data)
	s.used += int64(len(req.Data))
	s.packed = append(s.packed, packed{req: req, stageOff: off})
}

// SubmitAndWait unmaps the current staging buffer (conceptually: its
// contents become visible to the GPU), records and submits its copy
// commands, waits for completion, invokes every completed request's
// callback in registration order, then flips to the other slot and
// re-requests everything that was pending (spec.md §4.11).
func (e *Engine) SubmitAndWait(ctx context.Context) error {
	s := e.current()
	if err := s.cb.Begin(); err != nil {
		return fmt.Errorf("transfer: begin: %w", err)
	}
	for _, p := range s.packed {
		s.cb.CopyBuffer(&rhi.BufferCopy{
			From:    s.staging,
			To:      p.req.Dst,
			FromOff: p.stageOff,
			ToOff:   p.req.DstOffset,
			Size:    int64(len(p.req.Data)),
		})
	}
	if err := s.cb.End(); err != nil {
		return fmt.Errorf("transfer: end: %w", err)
	}
	if err := e.gpu.Submit(e.role, []rhi.CmdBuffer{s.cb}, nil, nil); err != nil {
		return fmt.Errorf("transfer: submit: %w", err)
	}
	if err := e.gpu.WaitIdle(ctx); err != nil {
		return fmt.Errorf("transfer: wait: %w", err)
	}

	completed := s.packed
	s.packed = nil
	s.used = 0
	for _, p := range completed {
		if p.req.Complete != nil {
			p.req.Complete()
		}
	}

	e.cur = 1 - e.cur
	pending := e.pending
	e.pending = nil
	for _, req := range pending {
		if err := e.Request(req); err != nil {
			return err
		}
	}
	return nil
}

// PendingCount reports how many requests could not be packed into the
// current staging buffer and are waiting for the next flip.
func (e *Engine) PendingCount() int { return len(e.pending) }
