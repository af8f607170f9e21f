// Package rhitest provides a minimal in-memory implementation of the
// rhi interfaces, for use in tests across this module that need a
// stand-in GPU without a real adapter. It plays the role the teacher
// and pack repos fill with plain testing.T and no mocking library:
// gviegas/scene's test style (no assertion/mock library) extended here
// with a hand-written fake rather than a generated mock, since nothing
// in the example pack imports a mocking library either.
package rhitest

import (
	"context"
	"sync"

	"github.com/kestrel-forge/rhi/rhi"
)

// Buffer is a fake rhi.Buffer backed by a plain byte slice.
type Buffer struct {
	mu      sync.Mutex
	data    []byte
	visible bool
	usage   rhi.Usage
	uniform rhi.BindlessHandle
	storage rhi.BindlessHandle
	released bool
}

// NewBuffer returns a fake Buffer of size bytes.
func NewBuffer(size int64, visible bool, usage rhi.Usage) *Buffer {
	return &Buffer{data: make([]byte, size), visible: visible, usage: usage}
}

func (b *Buffer) Release()                     { b.released = true }
func (b *Buffer) Visible() bool                 { return b.visible }
func (b *Buffer) Bytes() []byte                 { return b.data }
func (b *Buffer) Size() int64                   { return int64(len(b.data)) }
func (b *Buffer) Uniform() rhi.BindlessHandle   { return b.uniform }
func (b *Buffer) Storage() rhi.BindlessHandle   { return b.storage }
func (b *Buffer) Released() bool                { return b.released }

var _ rhi.Buffer = (*Buffer)(nil)

// View is a fake rhi.View over a fake Texture.
type View struct {
	typ                                    rhi.ViewType
	firstMip, mipCount, firstLayer, layerCount int
	sampled, storage                       rhi.BindlessHandle
	sampler                                rhi.Sampler
	released                               bool
}

func (v *View) Release()                   { v.released = true }
func (v *View) Type() rhi.ViewType         { return v.typ }
func (v *View) FirstMip() int              { return v.firstMip }
func (v *View) MipCount() int              { return v.mipCount }
func (v *View) FirstLayer() int            { return v.firstLayer }
func (v *View) LayerCount() int            { return v.layerCount }
func (v *View) Sampled() rhi.BindlessHandle { return v.sampled }
func (v *View) Storage() rhi.BindlessHandle { return v.storage }
func (v *View) Sampler() rhi.Sampler       { return v.sampler }

var _ rhi.View = (*View)(nil)

// Texture is a fake rhi.Texture that always carries a default view 0.
type Texture struct {
	format         rhi.PixelFmt
	typ            rhi.TextureType
	extent         rhi.Dim3D
	mipLevels      int
	layers         int
	samples        int
	cubeCompatible bool
	usage          rhi.Usage
	views          []*View
	released       bool
}

// NewTexture returns a fake Texture with a default view already registered.
func NewTexture(pf rhi.PixelFmt, typ rhi.TextureType, extent rhi.Dim3D, layers, levels, samples int, cube bool, usage rhi.Usage) *Texture {
	t := &Texture{format: pf, typ: typ, extent: extent, mipLevels: levels, layers: layers, samples: samples, cubeCompatible: cube, usage: usage}
	t.views = append(t.views, &View{typ: rhi.View2D, mipCount: levels, layerCount: layers})
	return t
}

func (t *Texture) Release()             { t.released = true }
func (t *Texture) Format() rhi.PixelFmt { return t.format }
func (t *Texture) Type() rhi.TextureType { return t.typ }
func (t *Texture) Extent() rhi.Dim3D    { return t.extent }
func (t *Texture) MipLevels() int       { return t.mipLevels }
func (t *Texture) Layers() int          { return t.layers }
func (t *Texture) Samples() int         { return t.samples }
func (t *Texture) CubeCompatible() bool { return t.cubeCompatible }
func (t *Texture) Usage() rhi.Usage     { return t.usage }
func (t *Texture) ViewCount() int       { return len(t.views) }

func (t *Texture) View(index int) rhi.View {
	if index < 0 || index >= len(t.views) {
		return nil
	}
	return t.views[index]
}

func (t *Texture) NewView(typ rhi.ViewType, firstLayer, layerCount, firstMip, mipCount int) (int, error) {
	t.views = append(t.views, &View{typ: typ, firstLayer: firstLayer, layerCount: layerCount, firstMip: firstMip, mipCount: mipCount})
	return len(t.views) - 1, nil
}

var _ rhi.Texture = (*Texture)(nil)

// Sampler is a no-op fake rhi.Sampler.
type Sampler struct{ released bool }

func (s *Sampler) Release() { s.released = true }

var _ rhi.Sampler = (*Sampler)(nil)

// ShaderCode is a no-op fake rhi.ShaderCode.
type ShaderCode struct{ released bool }

func (s *ShaderCode) Release() { s.released = true }

var _ rhi.ShaderCode = (*ShaderCode)(nil)

// Pipeline is a no-op fake rhi.Pipeline.
type Pipeline struct{ released bool }

func (p *Pipeline) Release() { p.released = true }

var _ rhi.Pipeline = (*Pipeline)(nil)

// TimelineSemaphore is a fake, in-process monotonic fence.
type TimelineSemaphore struct {
	mu    sync.Mutex
	value uint64
}

func (s *TimelineSemaphore) Release() {}

func (s *TimelineSemaphore) Value() (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.value, nil
}

func (s *TimelineSemaphore) Wait(ctx context.Context, value uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if value > s.value {
		s.value = value
	}
	return nil
}

func (s *TimelineSemaphore) Signal(value uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if value > s.value {
		s.value = value
	}
	return nil
}

var _ rhi.TimelineSemaphore = (*TimelineSemaphore)(nil)

// CmdBuffer is a fake rhi.CmdBuffer that records the names of calls
// made to it, in order, for assertions like "barriers precede the job".
type CmdBuffer struct {
	Calls    []string
	begun    bool
	released bool
}

// NewCmdBuffer returns an empty recording CmdBuffer.
func NewCmdBuffer() *CmdBuffer { return &CmdBuffer{} }

func (c *CmdBuffer) record(name string) { c.Calls = append(c.Calls, name) }

func (c *CmdBuffer) Release()  { c.released = true }
func (c *CmdBuffer) Begin() error { c.begun = true; c.record("Begin"); return nil }
func (c *CmdBuffer) End() error   { c.record("End"); return nil }
func (c *CmdBuffer) Reset() error { c.Calls = nil; c.begun = false; return nil }

func (c *CmdBuffer) BeginRendering(attachments []rhi.Attachment, area rhi.Scissor, layers int) {
	c.record("BeginRendering")
}
func (c *CmdBuffer) EndRendering() { c.record("EndRendering") }

func (c *CmdBuffer) SetViewports(vp []rhi.Viewport) { c.record("SetViewports") }
func (c *CmdBuffer) SetScissors(s []rhi.Scissor)    { c.record("SetScissors") }

func (c *CmdBuffer) BindPipeline(p rhi.Pipeline)      { c.record("BindPipeline") }
func (c *CmdBuffer) SetPushConstant(bytes []byte)     { c.record("SetPushConstant") }
func (c *CmdBuffer) BindVertexBuffers(first int, buf []rhi.Buffer, off []int64) {
	c.record("BindVertexBuffers")
}
func (c *CmdBuffer) BindIndexBuffer(buf rhi.Buffer, off int64, index32 bool) {
	c.record("BindIndexBuffer")
}

func (c *CmdBuffer) Draw(vertCount, instCount, baseVert, baseInst int) { c.record("Draw") }
func (c *CmdBuffer) DrawIndexed(idxCount, instCount, baseIdx, vertOff, baseInst int) {
	c.record("DrawIndexed")
}
func (c *CmdBuffer) DrawIndirect(buf rhi.Buffer, off int64, count int, stride int) {
	c.record("DrawIndirect")
}
func (c *CmdBuffer) DrawIndexedIndirect(buf rhi.Buffer, off int64, count int, stride int) {
	c.record("DrawIndexedIndirect")
}

func (c *CmdBuffer) Dispatch(x, y, z int)                  { c.record("Dispatch") }
func (c *CmdBuffer) DispatchIndirect(buf rhi.Buffer, off int64) { c.record("DispatchIndirect") }

func (c *CmdBuffer) CopyBuffer(p *rhi.BufferCopy)    { c.record("CopyBuffer") }
func (c *CmdBuffer) CopyImage(p *rhi.ImageCopy)      { c.record("CopyImage") }
func (c *CmdBuffer) CopyBufToImg(p *rhi.BufImgCopy)  { c.record("CopyBufToImg") }
func (c *CmdBuffer) CopyImgToBuf(p *rhi.BufImgCopy)  { c.record("CopyImgToBuf") }

func (c *CmdBuffer) GenerateMipLevels(tex rhi.Texture, filter rhi.Filter) { c.record("GenerateMipLevels") }

func (c *CmdBuffer) Barrier(b []rhi.Barrier)         { c.record("Barrier") }
func (c *CmdBuffer) Transition(t []rhi.Transition)   { c.record("Transition") }

func (c *CmdBuffer) BeginDebugLabel(name string, color [4]float32) { c.record("BeginDebugLabel:" + name) }
func (c *CmdBuffer) EndDebugLabel()                                { c.record("EndDebugLabel") }

var _ rhi.CmdBuffer = (*CmdBuffer)(nil)

// GPU is a fake rhi.GPU that hands out the other fakes in this package.
// It always reports all three queue roles available; tests that need a
// partial queue set build Queues themselves rather than through this
// type.
type GPU struct {
	mu         sync.Mutex
	cmdBuffers []*CmdBuffer
}

// NewGPU returns a fake GPU exposing all three queue roles.
func NewGPU() *GPU { return &GPU{} }

func (g *GPU) Queues() map[rhi.QueueRole]bool {
	return map[rhi.QueueRole]bool{rhi.QueueMain: true, rhi.QueueCompute: true, rhi.QueueTransfer: true}
}

func (g *GPU) Submit(role rhi.QueueRole, cb []rhi.CmdBuffer, waits, signals []rhi.SemaphoreOp) error {
	for _, op := range signals {
		if op.Semaphore != nil {
			_ = op.Semaphore.Signal(op.Value)
		}
	}
	return nil
}

func (g *GPU) NewCmdBuffer(role rhi.QueueRole) (rhi.CmdBuffer, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	cb := NewCmdBuffer()
	g.cmdBuffers = append(g.cmdBuffers, cb)
	return cb, nil
}

func (g *GPU) NewShaderCode(data []byte) (rhi.ShaderCode, error) { return &ShaderCode{}, nil }
func (g *GPU) NewPipeline(state any) (rhi.Pipeline, error)       { return &Pipeline{}, nil }

func (g *GPU) NewBuffer(size int64, visible bool, usg rhi.Usage) (rhi.Buffer, error) {
	return NewBuffer(size, visible, usg), nil
}

func (g *GPU) NewTexture(pf rhi.PixelFmt, typ rhi.TextureType, size rhi.Dim3D, layers, levels, samples int, cubeCompatible bool, usg rhi.Usage) (rhi.Texture, error) {
	return NewTexture(pf, typ, size, layers, levels, samples, cubeCompatible, usg), nil
}

func (g *GPU) NewSampler(s *rhi.Sampling) (rhi.Sampler, error) { return &Sampler{}, nil }

func (g *GPU) NewTimelineSemaphore(role rhi.QueueRole) (rhi.TimelineSemaphore, error) {
	return &TimelineSemaphore{}, nil
}

func (g *GPU) WaitIdle(ctx context.Context) error { return nil }

func (g *GPU) Limits() rhi.Limits {
	return rhi.Limits{
		MaxTexture2D: 8192, MaxTexture3D: 2048, MaxTextureLayers: 2048,
		MaxBindlessSlots: 1024, MaxColorTargets: 8, MaxViewports: 16,
		MaxDispatch: [3]int{65535, 65535, 65535}, MaxPushConstant: 128,
	}
}

var _ rhi.GPU = (*GPU)(nil)
