// Package bindless implements the Bindless Descriptor Manager: a single
// process-wide descriptor table with four fixed bindings (uniform
// buffer, storage buffer, sampled texture, storage texture), each a
// bounded array of up to 1024 elements with partially-bound /
// update-after-bind semantics (spec.md §4.10).
//
// Index 0 of every binding is reserved for "invalid" or default; the
// free-index set for each binding starts as {1..1023}.
package bindless

import (
	"github.com/kestrel-forge/rhi/rhi"
	"github.com/kestrel-forge/rhi/rhierr"
)

const (
	slotCount  = 1024
	firstFree  = 1
)

// Binding identifies one of the manager's four descriptor-table slots.
type Binding int

// Bindings.
const (
	BindingUniformBuffer Binding = iota
	BindingStorageBuffer
	BindingSampledTexture
	BindingStorageTexture
	bindingCount
)

// freeSet is a free-index allocator over {firstFree..slotCount-1}.
type freeSet struct {
	free []uint16
}

func newFreeSet() *freeSet {
	fs := &freeSet{free: make([]uint16, 0, slotCount-firstFree)}
	for i := slotCount - 1; i >= firstFree; i-- {
		fs.free = append(fs.free, uint16(i))
	}
	return fs
}

func (fs *freeSet) alloc() (uint16, bool) {
	if len(fs.free) == 0 {
		return 0, false
	}
	i := fs.free[len(fs.free)-1]
	fs.free = fs.free[:len(fs.free)-1]
	return i, true
}

func (fs *freeSet) release(i uint16) {
	fs.free = append(fs.free, i)
}

// Writer applies one descriptor-table entry write for a given binding
// and index. It is implemented by the owning backend's GPU (e.g.
// backend/wgpu writes a bind group entry); the manager itself holds no
// GPU handles.
type Writer interface {
	// WriteBuffer binds buf at (binding, index).
	WriteBuffer(binding Binding, index uint16, buf rhi.Buffer)
	// WriteImageView binds view, sampled through sampler when binding is
	// BindingSampledTexture, at (binding, index).
	WriteImageView(binding Binding, index uint16, view rhi.View, sampler rhi.Sampler)
	// Clear resets (binding, index) to the table's default entry.
	Clear(binding Binding, index uint16)
}

// Manager is the Bindless Descriptor Manager. It owns four free-index
// sets and delegates the actual descriptor writes to a Writer, so it
// has no dependency on any concrete backend.
//
// Manager is not safe for concurrent use, matching the RHI's
// single-threaded CPU core (spec.md §5).
type Manager struct {
	w             Writer
	sets          [bindingCount]*freeSet
	defaultSampler rhi.Sampler
}

// New returns a Manager that delegates descriptor writes to w and uses
// defaultSampler whenever a sampled-texture binding is added without an
// explicit per-view sampler.
func New(w Writer, defaultSampler rhi.Sampler) *Manager {
	m := &Manager{w: w, defaultSampler: defaultSampler}
	for i := range m.sets {
		m.sets[i] = newFreeSet()
	}
	return m
}

// BufferHandles holds the bindless indices assigned to a buffer.
type BufferHandles struct {
	Uniform rhi.BindlessHandle
	Storage rhi.BindlessHandle
}

// AddBuffer writes descriptor entries for buf into every binding
// implied by usg, and returns the assigned handles. A usage bit with no
// corresponding binding (e.g. UVertexData) is ignored.
func (m *Manager) AddBuffer(buf rhi.Buffer, usg rhi.Usage) (BufferHandles, error) {
	var h BufferHandles
	if usg&rhi.UUniform != 0 {
		idx, ok := m.sets[BindingUniformBuffer].alloc()
		if !ok {
			return h, rhierr.ErrOutOfBindlessSlots
		}
		m.w.WriteBuffer(BindingUniformBuffer, idx, buf)
		h.Uniform = rhi.BindlessHandle{Index: idx, Valid: true}
	}
	if usg&(rhi.UShaderRead|rhi.UShaderWrite) != 0 {
		idx, ok := m.sets[BindingStorageBuffer].alloc()
		if !ok {
			m.RemoveBuffer(h)
			return BufferHandles{}, rhierr.ErrOutOfBindlessSlots
		}
		m.w.WriteBuffer(BindingStorageBuffer, idx, buf)
		h.Storage = rhi.BindlessHandle{Index: idx, Valid: true}
	}
	return h, nil
}

// RemoveBuffer returns h's indices to their free sets and clears their
// descriptor entries.
func (m *Manager) RemoveBuffer(h BufferHandles) {
	if h.Uniform.Valid {
		m.w.Clear(BindingUniformBuffer, h.Uniform.Index)
		m.sets[BindingUniformBuffer].release(h.Uniform.Index)
	}
	if h.Storage.Valid {
		m.w.Clear(BindingStorageBuffer, h.Storage.Index)
		m.sets[BindingStorageBuffer].release(h.Storage.Index)
	}
}

// ViewHandles holds the bindless indices assigned to a texture view.
type ViewHandles struct {
	Sampled rhi.BindlessHandle
	Storage rhi.BindlessHandle
}

// AddImageView writes descriptor entries for view into every binding
// implied by usg, using sampler for the sampled-texture binding (or the
// manager's default sampler when sampler is nil), and returns the
// assigned handles.
func (m *Manager) AddImageView(view rhi.View, usg rhi.Usage, sampler rhi.Sampler) (ViewHandles, error) {
	var h ViewHandles
	if usg&rhi.USampled != 0 {
		idx, ok := m.sets[BindingSampledTexture].alloc()
		if !ok {
			return h, rhierr.ErrOutOfBindlessSlots
		}
		s := sampler
		if s == nil {
			s = m.defaultSampler
		}
		m.w.WriteImageView(BindingSampledTexture, idx, view, s)
		h.Sampled = rhi.BindlessHandle{Index: idx, Valid: true}
	}
	if usg&(rhi.UShaderRead|rhi.UShaderWrite) != 0 {
		idx, ok := m.sets[BindingStorageTexture].alloc()
		if !ok {
			m.RemoveImageView(h)
			return ViewHandles{}, rhierr.ErrOutOfBindlessSlots
		}
		m.w.WriteImageView(BindingStorageTexture, idx, view, nil)
		h.Storage = rhi.BindlessHandle{Index: idx, Valid: true}
	}
	return h, nil
}

// RemoveImageView returns h's indices to their free sets and clears
// their descriptor entries.
func (m *Manager) RemoveImageView(h ViewHandles) {
	if h.Sampled.Valid {
		m.w.Clear(BindingSampledTexture, h.Sampled.Index)
		m.sets[BindingSampledTexture].release(h.Sampled.Index)
	}
	if h.Storage.Valid {
		m.w.Clear(BindingStorageTexture, h.Storage.Index)
		m.sets[BindingStorageTexture].release(h.Storage.Index)
	}
}

// UpdateSampler rebinds the combined image-sampler entry for an
// existing sampled-texture handle to view/sampler, without allocating a
// new index.
func (m *Manager) UpdateSampler(h rhi.BindlessHandle, view rhi.View, sampler rhi.Sampler) {
	if !h.Valid {
		return
	}
	m.w.WriteImageView(BindingSampledTexture, h.Index, view, sampler)
}

// FreeCount returns the number of unallocated indices remaining for b,
// for diagnostics and tests.
func (m *Manager) FreeCount(b Binding) int {
	return len(m.sets[b].free)
}
