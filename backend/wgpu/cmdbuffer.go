package wgpu

import (
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/kestrel-forge/rhi/rhi"
)

// CmdBuffer wraps a *wgpu.CommandEncoder plus whichever render or
// compute pass is currently open, the way the teacher's
// wgpuRendererBackendImpl tracks frameEncoder/framePass as loose
// fields. Barrier and Transition are no-ops here: WebGPU tracks
// resource usage per command and inserts the equivalent of layout
// transitions and pipeline barriers itself, so the Barrier Planner's
// output only needs a home on backends (Vulkan, D3D12) that require it
// explicitly.
type CmdBuffer struct {
	g       *GPU
	encoder *wgpu.CommandEncoder
	pass    *wgpu.RenderPassEncoder
	compute *wgpu.ComputePassEncoder
	bound   *Pipeline
}

func (cb *CmdBuffer) Release() {
	if cb.encoder != nil {
		cb.encoder.Release()
	}
}

func (cb *CmdBuffer) Begin() error {
	enc, err := cb.g.device.CreateCommandEncoder(nil)
	if err != nil {
		return err
	}
	cb.encoder = enc
	return nil
}

func (cb *CmdBuffer) End() error { return nil }

func (cb *CmdBuffer) Reset() error {
	if cb.encoder != nil {
		cb.encoder.Release()
		cb.encoder = nil
	}
	return cb.Begin()
}

func (cb *CmdBuffer) finish() (*wgpu.CommandBuffer, error) {
	return cb.encoder.Finish(nil)
}

func (cb *CmdBuffer) BeginRendering(attachments []rhi.Attachment, area rhi.Scissor, layers int) {
	colors := make([]wgpu.RenderPassColorAttachment, 0, len(attachments))
	var depth *wgpu.RenderPassDepthStencilAttachment
	for _, a := range attachments {
		view := a.View.(*View).native
		if a.Format.DepthStencil() {
			depth = &wgpu.RenderPassDepthStencilAttachment{
				View:            view,
				DepthLoadOp:     toLoadOp(a.Load),
				DepthStoreOp:    toStoreOp(a.Store),
				DepthClearValue: a.ClearValue.Depth,
			}
			continue
		}
		colors = append(colors, wgpu.RenderPassColorAttachment{
			View:       view,
			LoadOp:     toLoadOp(a.Load),
			StoreOp:    toStoreOp(a.Store),
			ClearValue: toColor(a.ClearValue.Color),
		})
	}
	cb.pass = cb.encoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
		ColorAttachments:       colors,
		DepthStencilAttachment: depth,
	})
}

func (cb *CmdBuffer) EndRendering() {
	if cb.pass != nil {
		cb.pass.End()
		cb.pass = nil
	}
}

func (cb *CmdBuffer) SetViewports(vp []rhi.Viewport) {
	if cb.pass == nil || len(vp) == 0 {
		return
	}
	v := vp[0]
	cb.pass.SetViewport(v.X, v.Y, v.Width, v.Height, v.Znear, v.Zfar)
}

func (cb *CmdBuffer) SetScissors(s []rhi.Scissor) {
	if cb.pass == nil || len(s) == 0 {
		return
	}
	r := s[0]
	cb.pass.SetScissorRect(uint32(r.X), uint32(r.Y), uint32(r.Width), uint32(r.Height))
}

func (cb *CmdBuffer) BindPipeline(p rhi.Pipeline) {
	pl := p.(*Pipeline)
	cb.bound = pl
	switch {
	case pl.render != nil && cb.pass != nil:
		cb.pass.SetPipeline(pl.render)
		cb.pass.SetBindGroup(0, cb.g.bindGroup, nil)
	case pl.compute != nil && cb.compute != nil:
		cb.compute.SetPipeline(pl.compute)
		cb.compute.SetBindGroup(0, cb.g.bindGroup, nil)
	}
}

// SetPushConstant uploads the bindless indices a job packs for its draw
// or dispatch. wgpu-native has no push-constant range by default
// (it needs the PushConstants native extension); this backend instead
// writes the packed bytes at offset 0 of the GPU's single 256-byte
// push-constant buffer, which is not part of the bindless bind group.
// TODO: switch to the native push-constant extension once
// cogentcore/webgpu exposes RequiredFeatures for it.
func (cb *CmdBuffer) SetPushConstant(bytes []byte) {
	if len(bytes) == 0 {
		return
	}
	cb.g.queue.WriteBuffer(cb.g.pushConstantBuffer, 0, bytes)
}

func (cb *CmdBuffer) BindVertexBuffers(first int, buf []rhi.Buffer, off []int64) {
	if cb.pass == nil {
		return
	}
	for i, b := range buf {
		cb.pass.SetVertexBuffer(uint32(first+i), b.(*Buffer).native, uint64(off[i]), wgpu.WholeSize)
	}
}

func (cb *CmdBuffer) BindIndexBuffer(buf rhi.Buffer, off int64, index32 bool) {
	if cb.pass == nil {
		return
	}
	fmt := wgpu.IndexFormatUint16
	if index32 {
		fmt = wgpu.IndexFormatUint32
	}
	cb.pass.SetIndexBuffer(buf.(*Buffer).native, fmt, uint64(off), wgpu.WholeSize)
}

func (cb *CmdBuffer) Draw(vertCount, instCount, baseVert, baseInst int) {
	if cb.pass == nil {
		return
	}
	cb.pass.Draw(uint32(vertCount), uint32(instCount), uint32(baseVert), uint32(baseInst))
}

func (cb *CmdBuffer) DrawIndexed(idxCount, instCount, baseIdx, vertOff, baseInst int) {
	if cb.pass == nil {
		return
	}
	cb.pass.DrawIndexed(uint32(idxCount), uint32(instCount), uint32(baseIdx), int32(vertOff), uint32(baseInst))
}

func (cb *CmdBuffer) DrawIndirect(buf rhi.Buffer, off int64, count int, stride int) {
	if cb.pass == nil {
		return
	}
	for i := 0; i < count; i++ {
		cb.pass.DrawIndirect(buf.(*Buffer).native, uint64(off)+uint64(i*stride))
	}
}

func (cb *CmdBuffer) DrawIndexedIndirect(buf rhi.Buffer, off int64, count int, stride int) {
	if cb.pass == nil {
		return
	}
	for i := 0; i < count; i++ {
		cb.pass.DrawIndexedIndirect(buf.(*Buffer).native, uint64(off)+uint64(i*stride))
	}
}

func (cb *CmdBuffer) Dispatch(x, y, z int) {
	if cb.compute == nil {
		cb.compute = cb.encoder.BeginComputePass(nil)
	}
	cb.compute.DispatchWorkgroups(uint32(x), uint32(y), uint32(z))
	cb.compute.End()
	cb.compute = nil
}

func (cb *CmdBuffer) DispatchIndirect(buf rhi.Buffer, off int64) {
	if cb.compute == nil {
		cb.compute = cb.encoder.BeginComputePass(nil)
	}
	cb.compute.DispatchWorkgroupsIndirect(buf.(*Buffer).native, uint64(off))
	cb.compute.End()
	cb.compute = nil
}

func (cb *CmdBuffer) CopyBuffer(p *rhi.BufferCopy) {
	cb.encoder.CopyBufferToBuffer(p.From.(*Buffer).native, uint64(p.FromOff), p.To.(*Buffer).native, uint64(p.ToOff), uint64(p.Size))
}

func (cb *CmdBuffer) CopyImage(p *rhi.ImageCopy) {
	cb.encoder.CopyTextureToTexture(
		&wgpu.ImageCopyTexture{Texture: p.From.(*Texture).native, MipLevel: uint32(p.FromLevel), Origin: toOrigin(p.FromOff, p.FromLayer)},
		&wgpu.ImageCopyTexture{Texture: p.To.(*Texture).native, MipLevel: uint32(p.ToLevel), Origin: toOrigin(p.ToOff, p.ToLayer)},
		&wgpu.Extent3D{Width: uint32(p.Size.Width), Height: uint32(p.Size.Height), DepthOrArrayLayers: uint32(max(p.Size.Depth, p.Layers))},
	)
}

func (cb *CmdBuffer) CopyBufToImg(p *rhi.BufImgCopy) {
	cb.encoder.CopyBufferToTexture(
		&wgpu.ImageCopyBuffer{Buffer: p.Buf.(*Buffer).native, Layout: wgpu.TextureDataLayout{Offset: uint64(p.BufOff), BytesPerRow: uint32(p.Stride[0]), RowsPerImage: uint32(p.Stride[1])}},
		&wgpu.ImageCopyTexture{Texture: p.Img.(*Texture).native, MipLevel: uint32(p.Level), Origin: toOrigin(p.ImgOff, p.Layer)},
		&wgpu.Extent3D{Width: uint32(p.Size.Width), Height: uint32(p.Size.Height), DepthOrArrayLayers: 1},
	)
}

func (cb *CmdBuffer) CopyImgToBuf(p *rhi.BufImgCopy) {
	cb.encoder.CopyTextureToBuffer(
		&wgpu.ImageCopyTexture{Texture: p.Img.(*Texture).native, MipLevel: uint32(p.Level), Origin: toOrigin(p.ImgOff, p.Layer)},
		&wgpu.ImageCopyBuffer{Buffer: p.Buf.(*Buffer).native, Layout: wgpu.TextureDataLayout{Offset: uint64(p.BufOff), BytesPerRow: uint32(p.Stride[0]), RowsPerImage: uint32(p.Stride[1])}},
		&wgpu.Extent3D{Width: uint32(p.Size.Width), Height: uint32(p.Size.Height), DepthOrArrayLayers: 1},
	)
}

// GenerateMipLevels blits mip 0 down through tex's remaining levels.
// wgpu-native has no built-in blit; each level is produced by copying
// the previous level's texture region, which is box-filter-free and
// only correct when filter is FNearest. TODO: replace with a dedicated
// downsample compute pipeline once one exists, and honor filter for
// FLinear.
func (cb *CmdBuffer) GenerateMipLevels(tex rhi.Texture, filter rhi.Filter) {
	t := tex.(*Texture)
	for level := 1; level < t.mips; level++ {
		w := max(t.extent.Width>>uint(level), 1)
		h := max(t.extent.Height>>uint(level), 1)
		cb.encoder.CopyTextureToTexture(
			&wgpu.ImageCopyTexture{Texture: t.native, MipLevel: uint32(level - 1)},
			&wgpu.ImageCopyTexture{Texture: t.native, MipLevel: uint32(level)},
			&wgpu.Extent3D{Width: uint32(w), Height: uint32(h), DepthOrArrayLayers: 1},
		)
	}
}

func (cb *CmdBuffer) Barrier(b []rhi.Barrier)         {}
func (cb *CmdBuffer) Transition(t []rhi.Transition)   {}

// BeginDebugLabel/EndDebugLabel use wgpu-native's command-encoder debug
// groups, matching how RenderDoc/Xcode GPU capture present the render
// graph's node names (spec.md §6).
func (cb *CmdBuffer) BeginDebugLabel(name string, color [4]float32) {
	cb.encoder.PushDebugGroup(name)
}

func (cb *CmdBuffer) EndDebugLabel() {
	cb.encoder.PopDebugGroup()
}

func toOrigin(off rhi.Off3D, layer int) wgpu.Origin3D {
	z := off.Z
	if layer > 0 {
		z = layer
	}
	return wgpu.Origin3D{X: uint32(off.X), Y: uint32(off.Y), Z: uint32(z)}
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}

var _ rhi.CmdBuffer = (*CmdBuffer)(nil)
