package transfer_test

import (
	"context"
	"errors"
	"testing"

	"github.com/kestrel-forge/rhi/internal/rhitest"
	"github.com/kestrel-forge/rhi/rhi"
	"github.com/kestrel-forge/rhi/rhierr"
	"github.com/kestrel-forge/rhi/transfer"
)

func TestRequestOversizeFailsImmediately(t *testing.T) {
	gpu := rhitest.NewGPU()
	e, err := transfer.New(gpu, rhi.QueueTransfer, 16)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	dst := rhitest.NewBuffer(64, true, rhi.UTransferDst)
	err = e.Request(transfer.Request{Dst: dst, Data: make([]byte, 17)})
	if !errors.Is(err, rhierr.ErrStagingTooSmall) {
		t.Fatalf("want ErrStagingTooSmall, got %v", err)
	}
}

func TestRequestDefersWhenCurrentSlotFull(t *testing.T) {
	gpu := rhitest.NewGPU()
	e, err := transfer.New(gpu, rhi.QueueTransfer, 8)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	dst := rhitest.NewBuffer(64, true, rhi.UTransferDst)
	if err := e.Request(transfer.Request{Dst: dst, Data: make([]byte, 8)}); err != nil {
		t.Fatalf("first request: %v", err)
	}
	if err := e.Request(transfer.Request{Dst: dst, Data: make([]byte, 4)}); err != nil {
		t.Fatalf("second request: %v", err)
	}
	if got := e.PendingCount(); got != 1 {
		t.Fatalf("PendingCount = %d, want 1", got)
	}
}

func TestSubmitAndWaitCallsCompletionsInOrder(t *testing.T) {
	gpu := rhitest.NewGPU()
	e, err := transfer.New(gpu, rhi.QueueTransfer, 32)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	dst := rhitest.NewBuffer(64, true, rhi.UTransferDst)
	var order []int
	for i := 0; i < 3; i++ {
		i := i
		if err := e.Request(transfer.Request{Dst: dst, Data: make([]byte, 4), Complete: func() { order = append(order, i) }}); err != nil {
			t.Fatalf("request %d: %v", i, err)
		}
	}
	if err := e.SubmitAndWait(context.Background()); err != nil {
		t.Fatalf("SubmitAndWait: %v", err)
	}
	want := []int{0, 1, 2}
	if len(order) != len(want) {
		t.Fatalf("order = %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("order = %v, want %v", order, want)
		}
	}
}

func TestSubmitAndWaitFlipsSlotAndRetriesPending(t *testing.T) {
	gpu := rhitest.NewGPU()
	e, err := transfer.New(gpu, rhi.QueueTransfer, 8)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	dst := rhitest.NewBuffer(64, true, rhi.UTransferDst)
	if err := e.Request(transfer.Request{Dst: dst, Data: make([]byte, 8)}); err != nil {
		t.Fatalf("first request: %v", err)
	}
	done := false
	if err := e.Request(transfer.Request{Dst: dst, Data: make([]byte, 4), Complete: func() { done = true }}); err != nil {
		t.Fatalf("second request: %v", err)
	}
	if e.PendingCount() != 1 {
		t.Fatalf("expected one pending request before flip")
	}
	if err := e.SubmitAndWait(context.Background()); err != nil {
		t.Fatalf("first SubmitAndWait: %v", err)
	}
	if e.PendingCount() != 0 {
		t.Fatalf("pending request should have been re-packed into the flipped slot")
	}
	if err := e.SubmitAndWait(context.Background()); err != nil {
		t.Fatalf("second SubmitAndWait: %v", err)
	}
	if !done {
		t.Fatalf("deferred request's completion callback never ran")
	}
}
