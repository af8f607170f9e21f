// Package registry implements the Resource-Version Registry: the
// append-only map from a logical ResourceVersion to a concrete
// ResourceId, and from a ResourceId to the resource itself (spec.md §3,
// §4.2). A device owns one Registry and shares it across every render
// graph built against it; compiles add to it and rebind entries but
// never rebuild it.
package registry

import (
	"fmt"

	"github.com/kestrel-forge/rhi/rhi"
)

// ResourceVersion identifies a logical state of a resource at one point
// in a graph. Two versions sharing a ResourceId name the same physical
// resource at different write-points.
type ResourceVersion int

// ResourceId identifies the underlying buffer, buffer pack, or texture
// slot a version resolves to.
type ResourceId int

// Kind discriminates the tagged union a Registry entry holds.
type Kind int

// Entry kinds.
const (
	KindNull Kind = iota
	KindBuffer
	KindBufferPack
	KindTexture
)

// BufferPack is a named dynamic set of buffers sharing a layout,
// barriered together. Members are registered at execution time, not at
// build time (spec.md §3).
type BufferPack struct {
	Name    string
	Members []rhi.Buffer
}

// entry is the tagged union backing one ResourceId.
type entry struct {
	kind    Kind
	buf     rhi.Buffer
	pack    *BufferPack
	tex     rhi.Texture
	view    int // view index into tex, when kind == KindTexture
}

// Registry is the append-only version/id table shared by the render
// graphs built against it. It is not safe for concurrent use; render-graph compilation
// and job recording are single-threaded by spec (spec.md §5).
type Registry struct {
	versionToID []ResourceId // index = ResourceVersion
	entries     []entry      // index = ResourceId
}

// New returns an empty Registry.
func New() *Registry {
	return &Registry{}
}

// DeclareResource appends a null entry and returns a fresh version
// bound to a fresh id. Used for transient resources and late imports
// whose concrete value is not yet known at declare time.
func (r *Registry) DeclareResource() ResourceVersion {
	id := ResourceId(len(r.entries))
	r.entries = append(r.entries, entry{kind: KindNull})
	return r.appendVersion(id)
}

// AddBuffer appends an entry holding buf and returns its initial version.
func (r *Registry) AddBuffer(buf rhi.Buffer) ResourceVersion {
	id := ResourceId(len(r.entries))
	r.entries = append(r.entries, entry{kind: KindBuffer, buf: buf})
	return r.appendVersion(id)
}

// AddBufferPack appends an entry holding pack and returns its initial version.
func (r *Registry) AddBufferPack(pack *BufferPack) ResourceVersion {
	id := ResourceId(len(r.entries))
	r.entries = append(r.entries, entry{kind: KindBufferPack, pack: pack})
	return r.appendVersion(id)
}

// AddTexture appends an entry holding tex (viewed through its default
// view, index 0) and returns its initial version.
func (r *Registry) AddTexture(tex rhi.Texture) ResourceVersion {
	id := ResourceId(len(r.entries))
	r.entries = append(r.entries, entry{kind: KindTexture, tex: tex, view: 0})
	return r.appendVersion(id)
}

// AddTextureView appends an entry holding tex viewed through view and
// returns its initial version, naming a non-default view as its own
// resource for read/write sets. Builder.DeclareTextureView does not use
// it: it declares a null entry and binds the view at creation time.
func (r *Registry) AddTextureView(tex rhi.Texture, view int) ResourceVersion {
	id := ResourceId(len(r.entries))
	r.entries = append(r.entries, entry{kind: KindTexture, tex: tex, view: view})
	return r.appendVersion(id)
}

// NextVersion appends a new version sharing v's id and returns it. It is
// a programmer error to call this with a version this registry did not
// produce.
func (r *Registry) NextVersion(v ResourceVersion) ResourceVersion {
	id := r.versionToID[v]
	return r.appendVersion(id)
}

func (r *Registry) appendVersion(id ResourceId) ResourceVersion {
	v := ResourceVersion(len(r.versionToID))
	r.versionToID = append(r.versionToID, id)
	return v
}

// UpdateResourceBuffer overwrites id's concrete buffer, used when a
// transient buffer is (re)created or an import is rebound on recompile.
func (r *Registry) UpdateResourceBuffer(id ResourceId, buf rhi.Buffer) {
	r.entries[id] = entry{kind: KindBuffer, buf: buf}
}

// UpdateResourceTexture overwrites id's concrete texture.
func (r *Registry) UpdateResourceTexture(id ResourceId, tex rhi.Texture, view int) {
	r.entries[id] = entry{kind: KindTexture, tex: tex, view: view}
}

// UpdateResourceBufferPack overwrites id's concrete buffer pack.
func (r *Registry) UpdateResourceBufferPack(id ResourceId, pack *BufferPack) {
	r.entries[id] = entry{kind: KindBufferPack, pack: pack}
}

// GetResourceId returns the id a version resolves to.
func (r *Registry) GetResourceId(v ResourceVersion) ResourceId {
	return r.versionToID[v]
}

// TryGetBuffer returns the buffer bound to v, or false if v does not
// name a live buffer entry.
func (r *Registry) TryGetBuffer(v ResourceVersion) (rhi.Buffer, bool) {
	e := r.entries[r.versionToID[v]]
	if e.kind != KindBuffer || e.buf == nil {
		return nil, false
	}
	return e.buf, true
}

// GetBuffer returns the buffer bound to v and panics if v does not name
// a live buffer entry; a type-mismatched Get is a programmer error
// (spec.md §4.2).
func (r *Registry) GetBuffer(v ResourceVersion) rhi.Buffer {
	buf, ok := r.TryGetBuffer(v)
	if !ok {
		panic(fmt.Sprintf("registry: version %d is not a live buffer", v))
	}
	return buf
}

// TryGetBufferPack returns the buffer pack bound to v, or false.
func (r *Registry) TryGetBufferPack(v ResourceVersion) (*BufferPack, bool) {
	e := r.entries[r.versionToID[v]]
	if e.kind != KindBufferPack || e.pack == nil {
		return nil, false
	}
	return e.pack, true
}

// GetBufferPack returns the buffer pack bound to v and panics otherwise.
func (r *Registry) GetBufferPack(v ResourceVersion) *BufferPack {
	pack, ok := r.TryGetBufferPack(v)
	if !ok {
		panic(fmt.Sprintf("registry: version %d is not a live buffer pack", v))
	}
	return pack
}

// TryGetTexture returns the texture and view index bound to v, or false.
func (r *Registry) TryGetTexture(v ResourceVersion) (rhi.Texture, int, bool) {
	e := r.entries[r.versionToID[v]]
	if e.kind != KindTexture || e.tex == nil {
		return nil, 0, false
	}
	return e.tex, e.view, true
}

// GetTexture returns the texture and view index bound to v and panics
// otherwise.
func (r *Registry) GetTexture(v ResourceVersion) (rhi.Texture, int) {
	tex, view, ok := r.TryGetTexture(v)
	if !ok {
		panic(fmt.Sprintf("registry: version %d is not a live texture", v))
	}
	return tex, view
}

// Kind reports the kind of the entry v resolves to.
func (r *Registry) Kind(v ResourceVersion) Kind {
	return r.entries[r.versionToID[v]].kind
}

// IsNull reports whether v resolves to a not-yet-bound declared entry.
func (r *Registry) IsNull(v ResourceVersion) bool {
	return r.Kind(v) == KindNull
}

// VersionCount returns the number of versions appended so far.
func (r *Registry) VersionCount() int { return len(r.versionToID) }

// IDCount returns the number of distinct resource ids appended so far.
func (r *Registry) IDCount() int { return len(r.entries) }
