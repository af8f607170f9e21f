package registry

import (
	"testing"

	"github.com/kestrel-forge/rhi/rhi"
)

func TestDeclareAndBindBuffer(t *testing.T) {
	r := New()
	v := r.DeclareResource()
	if !r.IsNull(v) {
		t.Fatalf("freshly declared version should be null")
	}
	id := r.GetResourceId(v)
	r.UpdateResourceBuffer(id, fakeBuffer{})
	if r.IsNull(v) {
		t.Fatalf("version should no longer be null after update")
	}
	if _, ok := r.TryGetBuffer(v); !ok {
		t.Fatalf("expected a live buffer")
	}
}

func TestNextVersionSharesID(t *testing.T) {
	r := New()
	v0 := r.AddBuffer(fakeBuffer{})
	v1 := r.NextVersion(v0)
	if r.GetResourceId(v0) != r.GetResourceId(v1) {
		t.Fatalf("NextVersion must share the source version's id")
	}
	if v1 == v0 {
		t.Fatalf("NextVersion must allocate a distinct version")
	}
}

func TestGetWrongKindPanics(t *testing.T) {
	r := New()
	v := r.AddBuffer(fakeBuffer{})

	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic on type-mismatched Get")
		}
	}()
	r.GetTexture(v)
}

func TestMonotonicGrowth(t *testing.T) {
	r := New()
	if r.VersionCount() != 0 || r.IDCount() != 0 {
		t.Fatalf("new registry must start empty")
	}
	v0 := r.AddBuffer(fakeBuffer{})
	v1 := r.NextVersion(v0)
	if r.VersionCount() != 2 {
		t.Fatalf("expected 2 versions, got %d", r.VersionCount())
	}
	if r.IDCount() != 1 {
		t.Fatalf("NextVersion must not allocate a new id, got %d ids", r.IDCount())
	}
	_ = v1
}

// fakeBuffer is a minimal rhi.Buffer stand-in; only identity matters for
// these tests, so every method besides Release/Bytes/Size is unused.
type fakeBuffer struct{}

func (fakeBuffer) Release()                      {}
func (fakeBuffer) Visible() bool                 { return false }
func (fakeBuffer) Bytes() []byte                 { return nil }
func (fakeBuffer) Size() int64                   { return 0 }
func (fakeBuffer) Uniform() rhi.BindlessHandle    { return rhi.BindlessHandle{} }
func (fakeBuffer) Storage() rhi.BindlessHandle    { return rhi.BindlessHandle{} }

var _ rhi.Buffer = fakeBuffer{}
