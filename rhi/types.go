// Package rhi defines the Render Hardware Interface: a thin, explicit,
// bindless abstraction over a modern low-level graphics API. It declares
// the interfaces and value types that every concrete backend (see
// backend/wgpu) and every backend-agnostic core component (registry,
// bindless, rendergraph, schedule, barrier, transfer, timeline, device)
// is built against.
//
// The interface shapes follow github.com/gviegas/scene's driver package:
// a GPU factory interface, Destroyer-style resource lifetimes (named
// Release to match the WebGPU backend's idiom), and a single CmdBuffer
// interface recording render/compute/transfer work into logical blocks.
package rhi

// Dim3D is a three-dimensional size, in texels.
type Dim3D struct {
	Width, Height, Depth int
}

// Off3D is a three-dimensional offset, in texels.
type Off3D struct {
	X, Y, Z int
}

// PixelFmt describes the format of a pixel.
type PixelFmt int

// Pixel formats.
const (
	RGBA8un PixelFmt = iota
	RGBA8sRGB
	BGRA8un
	BGRA8sRGB
	RG8un
	R8un
	RGBA16f
	RG16f
	R16f
	RGBA32f
	RG32f
	R32f
	D16un
	D32f
	S8ui
	D24unS8ui
	D32fS8ui
)

// DepthStencil returns whether the format carries a depth and/or stencil
// aspect.
func (f PixelFmt) DepthStencil() bool {
	switch f {
	case D16un, D32f, S8ui, D24unS8ui, D32fS8ui:
		return true
	}
	return false
}

// TextureType is the dimensionality of a texture.
type TextureType int

// Texture types.
const (
	Tex1D TextureType = iota
	Tex2D
	Tex3D
)

// ViewType is the type of a resource view.
type ViewType int

// View types.
const (
	View1D ViewType = iota
	View2D
	View3D
	ViewCube
	View1DArray
	View2DArray
	ViewCubeArray
)

// Filter is the type of sampler filters.
type Filter int

// Filters.
const (
	FNearest Filter = iota
	FLinear
)

// AddrMode is the type of sampler address modes.
type AddrMode int

// Address modes.
const (
	AWrap AddrMode = iota
	AMirror
	AClamp
)

// BorderColor enumerates the fixed border colors a sampler may clamp to.
type BorderColor int

// Border colors.
const (
	BorderTransparentBlack BorderColor = iota
	BorderOpaqueBlack
	BorderOpaqueWhite
)

// Sampling describes image sampler state.
type Sampling struct {
	Min, Mag, Mipmap     Filter
	AddrU, AddrV, AddrW  AddrMode
	MaxAniso             int
	MinLOD, MaxLOD       float32
	Border               BorderColor
}

// DefaultSampling is the bindless manager's default sampler: linear
// filtering, clamp-to-edge addressing, anisotropy enabled. Used whenever a
// view is bound without an explicit per-view sampler (spec.md §4.10).
var DefaultSampling = Sampling{
	Min: FLinear, Mag: FLinear, Mipmap: FLinear,
	AddrU: AClamp, AddrV: AClamp, AddrW: AClamp,
	MaxAniso: 16,
	MinLOD:   0,
	MaxLOD:   1000,
}

// Viewport defines the bounds of a viewport.
type Viewport struct {
	X, Y, Width, Height, Znear, Zfar float32
}

// Scissor defines a scissor rectangle.
type Scissor struct {
	X, Y, Width, Height int
}

// ClearValue defines clear values for color or depth/stencil aspects of a
// render target. Format-specific defaults are opaque black for color and
// depth=1/stencil=0, per spec.md §4.8.
type ClearValue struct {
	Color   [4]float32
	Depth   float32
	Stencil uint32
}

// DefaultColorClear is the opaque-black default used for Clear-loaded
// color attachments that don't specify an explicit clear value.
var DefaultColorClear = ClearValue{Color: [4]float32{0, 0, 0, 1}}

// DefaultDepthStencilClear is the conventional (not reversed-Z) default
// for Clear-loaded depth/stencil attachments: depth 1, stencil 0.
var DefaultDepthStencilClear = ClearValue{Depth: 1, Stencil: 0}

// Capability is a bitmask of command kinds a render-graph node's job is
// permitted to issue (spec.md §6). Nodes record it, but nothing checks
// the commands a job actually records against it.
type Capability int

// Capability bits.
const (
	Graphics Capability = 1 << iota
	Compute
	Transfer
)

// Has reports whether c contains all the bits of other.
func (c Capability) Has(other Capability) bool { return c&other == other }

// Any reports whether c and other share any bit.
func (c Capability) Any(other Capability) bool { return c&other != 0 }
