package wgpu

import (
	"context"
	"sync"

	"github.com/kestrel-forge/rhi/rhi"
)

// TimelineSemaphore emulates a Vulkan-style timeline semaphore on top of
// WebGPU, which has no native equivalent: wgpu-native only exposes
// per-submission completion callbacks (Queue.OnSubmittedWorkDone), not
// a host-waitable monotonic counter. GPU.Submit bridges the two by
// calling Signal itself once a submission's OnSubmittedWorkDone fires,
// so every wait in this package is really "has Signal(value) been
// called yet", backed by a condition variable instead of a driver call.
type TimelineSemaphore struct {
	mu    sync.Mutex
	cond  *sync.Cond
	value uint64
}

func newTimelineSemaphore() *TimelineSemaphore {
	ts := &TimelineSemaphore{}
	ts.cond = sync.NewCond(&ts.mu)
	return ts
}

func (t *TimelineSemaphore) Release() {}

func (t *TimelineSemaphore) Value() (uint64, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.value, nil
}

func (t *TimelineSemaphore) Signal(value uint64) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if value > t.value {
		t.value = value
	}
	t.cond.Broadcast()
	return nil
}

// Wait blocks until the semaphore's value reaches at least value, or
// ctx is canceled. The wait loop polls ctx.Err() between broadcasts
// since sync.Cond has no context-aware variant.
func (t *TimelineSemaphore) Wait(ctx context.Context, value uint64) error {
	done := make(chan struct{})
	go func() {
		t.mu.Lock()
		for t.value < value {
			if ctx.Err() != nil {
				t.mu.Unlock()
				return
			}
			t.cond.Wait()
		}
		t.mu.Unlock()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		t.mu.Lock()
		t.cond.Broadcast()
		t.mu.Unlock()
		return ctx.Err()
	}
}

var _ rhi.TimelineSemaphore = (*TimelineSemaphore)(nil)
