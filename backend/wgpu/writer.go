package wgpu

import (
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/kestrel-forge/rhi/bindless"
	"github.com/kestrel-forge/rhi/rhi"
)

const bindlessSlotCount = 1024

// writer is the bindless.Writer backing a GPU's descriptor table.
// WebGPU has no per-index descriptor update like vkUpdateDescriptorSets
// -- a BindGroup's resource list is fixed at creation -- so writer keeps
// its own table of the four bindings' current resources and rebuilds
// the whole BindGroup on every call. Bindless table changes only happen
// when a resource is created or destroyed, not per draw, so the cost is
// amortized across a resource's whole lifetime rather than paid per
// frame.
type writer struct {
	g       *GPU
	layout  *wgpu.BindGroupLayout
	buffers [bindless.BindingStorageTexture + 1][bindlessSlotCount]*wgpu.Buffer
	views   [bindless.BindingStorageTexture + 1][bindlessSlotCount]*wgpu.TextureView
	samplers [bindlessSlotCount]*wgpu.Sampler
}

func newWriter(g *GPU) *writer {
	layout, err := g.device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label: "bindless table",
		Entries: []wgpu.BindGroupLayoutEntry{
			{Binding: uint32(bindless.BindingUniformBuffer), Visibility: wgpu.ShaderStageVertex | wgpu.ShaderStageFragment | wgpu.ShaderStageCompute, Buffer: wgpu.BufferBindingLayout{Type: wgpu.BufferBindingTypeUniform}},
			{Binding: uint32(bindless.BindingStorageBuffer), Visibility: wgpu.ShaderStageVertex | wgpu.ShaderStageFragment | wgpu.ShaderStageCompute, Buffer: wgpu.BufferBindingLayout{Type: wgpu.BufferBindingTypeStorage}},
			{Binding: uint32(bindless.BindingSampledTexture), Visibility: wgpu.ShaderStageFragment | wgpu.ShaderStageCompute, Texture: wgpu.TextureBindingLayout{SampleType: wgpu.TextureSampleTypeFloat, ViewDimension: wgpu.TextureViewDimension2D}},
			{Binding: uint32(bindless.BindingStorageTexture), Visibility: wgpu.ShaderStageCompute, StorageTexture: wgpu.StorageTextureBindingLayout{Access: wgpu.StorageTextureAccessWriteOnly, Format: wgpu.TextureFormatRGBA8Unorm, ViewDimension: wgpu.TextureViewDimension2D}},
		},
	})
	if err != nil {
		panic(err)
	}
	g.bindGroupLayout = layout
	return &writer{g: g, layout: layout}
}

// rebuild recreates the GPU's single bind group from w's current
// tables, dropping the previous one. Each of the four bindings gets
// only the lowest-index non-nil resource in its table; the bind group
// holds no binding arrays, so the other slots are not visible to
// shaders, and the recorded samplers are not bound.
func (w *writer) rebuild() {
	old := w.g.bindGroup
	entries := []wgpu.BindGroupEntry{
		{Binding: uint32(bindless.BindingUniformBuffer), Buffer: firstNonNilBuffer(w.buffers[bindless.BindingUniformBuffer][:]), Size: wgpu.WholeSize},
		{Binding: uint32(bindless.BindingStorageBuffer), Buffer: firstNonNilBuffer(w.buffers[bindless.BindingStorageBuffer][:]), Size: wgpu.WholeSize},
		{Binding: uint32(bindless.BindingSampledTexture), TextureView: firstNonNilView(w.views[bindless.BindingSampledTexture][:])},
		{Binding: uint32(bindless.BindingStorageTexture), TextureView: firstNonNilView(w.views[bindless.BindingStorageTexture][:])},
	}
	bg, err := w.g.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:   "bindless table",
		Layout:  w.layout,
		Entries: entries,
	})
	if err != nil {
		panic(err)
	}
	w.g.bindGroup = bg
	if old != nil {
		old.Release()
	}
}

func firstNonNilBuffer(bufs []*wgpu.Buffer) *wgpu.Buffer {
	for _, b := range bufs {
		if b != nil {
			return b
		}
	}
	return nil
}

func firstNonNilView(views []*wgpu.TextureView) *wgpu.TextureView {
	for _, v := range views {
		if v != nil {
			return v
		}
	}
	return nil
}

func (w *writer) WriteBuffer(binding bindless.Binding, index uint16, buf rhi.Buffer) {
	b := buf.(*Buffer)
	w.buffers[binding][index] = b.native
	w.rebuild()
}

func (w *writer) WriteImageView(binding bindless.Binding, index uint16, view rhi.View, sampler rhi.Sampler) {
	v := view.(*View)
	w.views[binding][index] = v.native
	if sampler != nil {
		w.samplers[index] = sampler.(*Sampler).native
	}
	w.rebuild()
}

func (w *writer) Clear(binding bindless.Binding, index uint16) {
	w.buffers[binding][index] = nil
	w.views[binding][index] = nil
	w.rebuild()
}

var _ bindless.Writer = (*writer)(nil)
