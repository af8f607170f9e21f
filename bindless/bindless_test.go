package bindless

import (
	"testing"

	"github.com/kestrel-forge/rhi/rhi"
	"github.com/kestrel-forge/rhi/rhierr"
)

type recordingWriter struct {
	writes int
	clears int
}

func (w *recordingWriter) WriteBuffer(b Binding, idx uint16, buf rhi.Buffer)          { w.writes++ }
func (w *recordingWriter) WriteImageView(b Binding, idx uint16, v rhi.View, s rhi.Sampler) { w.writes++ }
func (w *recordingWriter) Clear(b Binding, idx uint16)                                { w.clears++ }

func TestAddBufferReservesIndexOne(t *testing.T) {
	w := &recordingWriter{}
	m := New(w, nil)
	h, err := m.AddBuffer(nil, rhi.UUniform)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !h.Uniform.Valid || h.Uniform.Index == 0 {
		t.Fatalf("expected a nonzero uniform index, got %+v", h.Uniform)
	}
}

func TestRemoveBufferReturnsIndexToFreeSet(t *testing.T) {
	w := &recordingWriter{}
	m := New(w, nil)
	before := m.FreeCount(BindingUniformBuffer)

	h, err := m.AddBuffer(nil, rhi.UUniform)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.FreeCount(BindingUniformBuffer) != before-1 {
		t.Fatalf("expected free count to drop by one")
	}
	m.RemoveBuffer(h)
	if m.FreeCount(BindingUniformBuffer) != before {
		t.Fatalf("expected free count to be restored")
	}
	if w.clears != 1 {
		t.Fatalf("expected exactly one clear, got %d", w.clears)
	}
}

func TestOutOfBindlessSlots(t *testing.T) {
	w := &recordingWriter{}
	m := New(w, nil)
	for i := 0; i < slotCount-firstFree; i++ {
		if _, err := m.AddBuffer(nil, rhi.UUniform); err != nil {
			t.Fatalf("unexpected error at iteration %d: %v", i, err)
		}
	}
	if _, err := m.AddBuffer(nil, rhi.UUniform); err != rhierr.ErrOutOfBindlessSlots {
		t.Fatalf("expected ErrOutOfBindlessSlots, got %v", err)
	}
}

func TestAddBufferBothBindingsRollsBackOnPartialFailure(t *testing.T) {
	w := &recordingWriter{}
	m := New(w, nil)
	// Exhaust the storage-buffer set only.
	for i := 0; i < slotCount-firstFree; i++ {
		if _, err := m.AddBuffer(nil, rhi.UShaderRead); err != nil {
			t.Fatalf("unexpected error priming storage set: %v", err)
		}
	}
	before := m.FreeCount(BindingUniformBuffer)
	if _, err := m.AddBuffer(nil, rhi.UUniform|rhi.UShaderRead); err != rhierr.ErrOutOfBindlessSlots {
		t.Fatalf("expected ErrOutOfBindlessSlots, got %v", err)
	}
	if m.FreeCount(BindingUniformBuffer) != before {
		t.Fatalf("expected the uniform-buffer index to be rolled back")
	}
}
