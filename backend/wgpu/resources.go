package wgpu

import (
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/kestrel-forge/rhi/rhi"
)

// Buffer wraps a *wgpu.Buffer as an rhi.Buffer. Nothing in this module
// stores the Bindless Descriptor Manager's indices on it, so Uniform and
// Storage report the zero (invalid) handle.
type Buffer struct {
	native  *wgpu.Buffer
	size    int64
	visible bool
	uniform rhi.BindlessHandle
	storage rhi.BindlessHandle
	mapped  []byte
}

func (b *Buffer) Release()             { b.native.Release() }
func (b *Buffer) Visible() bool        { return b.visible }
func (b *Buffer) Bytes() []byte        { return b.mapped }
func (b *Buffer) Size() int64          { return b.size }
func (b *Buffer) Uniform() rhi.BindlessHandle { return b.uniform }
func (b *Buffer) Storage() rhi.BindlessHandle { return b.storage }

var _ rhi.Buffer = (*Buffer)(nil)

// View is a typed view of a Texture's storage, wrapping a *wgpu.TextureView.
type View struct {
	native     *wgpu.TextureView
	typ        rhi.ViewType
	firstMip   int
	mipCount   int
	firstLayer int
	layerCount int
	sampled    rhi.BindlessHandle
	storage    rhi.BindlessHandle
	sampler    rhi.Sampler
}

func (v *View) Release()                { v.native.Release() }
func (v *View) Type() rhi.ViewType       { return v.typ }
func (v *View) FirstMip() int            { return v.firstMip }
func (v *View) MipCount() int            { return v.mipCount }
func (v *View) FirstLayer() int          { return v.firstLayer }
func (v *View) LayerCount() int          { return v.layerCount }
func (v *View) Sampled() rhi.BindlessHandle { return v.sampled }
func (v *View) Storage() rhi.BindlessHandle { return v.storage }
func (v *View) Sampler() rhi.Sampler     { return v.sampler }

var _ rhi.View = (*View)(nil)

// Texture wraps a *wgpu.Texture as an rhi.Texture, keeping its own
// ordered view list the way gviegas/scene's driver.Image does, since
// wgpu-native textures carry no view registry of their own.
type Texture struct {
	g        *GPU
	native   *wgpu.Texture
	format   rhi.PixelFmt
	typ      rhi.TextureType
	extent   rhi.Dim3D
	mips     int
	layers   int
	samples  int
	cube     bool
	usage    rhi.Usage
	views    []*View
}

func (t *Texture) Release() {
	for _, v := range t.views {
		v.native.Release()
	}
	t.native.Release()
}
func (t *Texture) Format() rhi.PixelFmt    { return t.format }
func (t *Texture) Type() rhi.TextureType   { return t.typ }
func (t *Texture) Extent() rhi.Dim3D       { return t.extent }
func (t *Texture) MipLevels() int          { return t.mips }
func (t *Texture) Layers() int             { return t.layers }
func (t *Texture) Samples() int            { return t.samples }
func (t *Texture) CubeCompatible() bool    { return t.cube }
func (t *Texture) Usage() rhi.Usage        { return t.usage }

func (t *Texture) View(index int) rhi.View { return t.views[index] }

func (t *Texture) NewView(typ rhi.ViewType, firstLayer, layerCount, firstMip, mipCount int) (int, error) {
	nv, err := t.native.CreateView(&wgpu.TextureViewDescriptor{
		Format:          toTextureFormat(t.format),
		Dimension:       toViewDimension(typ),
		BaseMipLevel:    uint32(firstMip),
		MipLevelCount:   uint32(mipCount),
		BaseArrayLayer:  uint32(firstLayer),
		ArrayLayerCount: uint32(layerCount),
	})
	if err != nil {
		return 0, err
	}
	v := &View{native: nv, typ: typ, firstMip: firstMip, mipCount: mipCount, firstLayer: firstLayer, layerCount: layerCount}
	t.views = append(t.views, v)
	return len(t.views) - 1, nil
}

func (t *Texture) ViewCount() int { return len(t.views) }

var _ rhi.Texture = (*Texture)(nil)

func toViewDimension(typ rhi.ViewType) wgpu.TextureViewDimension {
	switch typ {
	case rhi.View1D:
		return wgpu.TextureViewDimension1D
	case rhi.View3D:
		return wgpu.TextureViewDimension3D
	case rhi.ViewCube:
		return wgpu.TextureViewDimensionCube
	case rhi.View1DArray:
		return wgpu.TextureViewDimension2DArray
	case rhi.View2DArray:
		return wgpu.TextureViewDimension2DArray
	case rhi.ViewCubeArray:
		return wgpu.TextureViewDimensionCubeArray
	default:
		return wgpu.TextureViewDimension2D
	}
}

// Sampler wraps a *wgpu.Sampler.
type Sampler struct{ native *wgpu.Sampler }

func (s *Sampler) Release() { s.native.Release() }

var _ rhi.Sampler = (*Sampler)(nil)

// ShaderCode wraps a *wgpu.ShaderModule.
type ShaderCode struct{ native *wgpu.ShaderModule }

func (s *ShaderCode) Release() { s.native.Release() }

var _ rhi.ShaderCode = (*ShaderCode)(nil)

// Pipeline wraps either a *wgpu.RenderPipeline or a *wgpu.ComputePipeline.
// CmdBuffer.BindPipeline checks which of the two is non-nil to pick the
// right pass method, mirroring how the teacher's DrawCall/DispatchCompute each
// assert a concrete wgpu pipeline type out of pipeline.Pipeline.
type Pipeline struct {
	render  *wgpu.RenderPipeline
	compute *wgpu.ComputePipeline
}

func (p *Pipeline) Release() {
	if p.render != nil {
		p.render.Release()
	}
	if p.compute != nil {
		p.compute.Release()
	}
}

var _ rhi.Pipeline = (*Pipeline)(nil)
