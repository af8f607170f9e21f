package wgpu

import (
	"context"
	"fmt"
	"sync"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/kestrel-forge/rhi/common"
	"github.com/kestrel-forge/rhi/device"
	"github.com/kestrel-forge/rhi/rhi"
)

// GPU is the rhi.GPU implementation backed by wgpu-native, created by
// Backend.CreateGPU. mu guards command-buffer finishing and queue
// submission in Submit, mirroring wgpuRendererBackendImpl's single
// mutex; the resource-creation methods do not take it.
type GPU struct {
	mu sync.Mutex

	instance *wgpu.Instance
	adapter  *wgpu.Adapter
	device   *wgpu.Device
	queue    *wgpu.Queue
	surface  *wgpu.Surface

	validation device.ValidationLevel
	limits     wgpu.Limits

	bindGroupLayout    *wgpu.BindGroupLayout
	bindGroup          *wgpu.BindGroup
	pushConstantBuffer *wgpu.Buffer

	inFlight sync.WaitGroup
}

// Queues reports that this backend exposes only a single hardware
// queue: WebGPU has no API-level concept of distinct graphics/compute/
// transfer queue families the way Vulkan's VkQueueFamilyProperties
// does, so every role other than QueueMain is left absent and the
// Cross-Queue Scheduler's fallback-to-main applies uniformly.
func (g *GPU) Queues() map[rhi.QueueRole]bool {
	return map[rhi.QueueRole]bool{rhi.QueueMain: true}
}

// Submit finishes each cb's recording, submits the resulting command
// buffers together, and blocks until wgpu-native reports the
// submission complete before signaling signals. Waits are satisfied
// up front since this backend's TimelineSemaphore has no native
// device-side wait; a real presentation-capable backend would instead
// encode them into the submission itself.
func (g *GPU) Submit(role rhi.QueueRole, cb []rhi.CmdBuffer, waits, signals []rhi.SemaphoreOp) error {
	for _, w := range waits {
		if err := w.Semaphore.Wait(context.Background(), w.Value); err != nil {
			return fmt.Errorf("wgpu: waiting on semaphore before submit: %w", err)
		}
	}

	g.mu.Lock()
	buffers := make([]*wgpu.CommandBuffer, 0, len(cb))
	for _, c := range cb {
		native := c.(*CmdBuffer)
		native.EndRendering()
		fin, err := native.finish()
		if err != nil {
			g.mu.Unlock()
			return fmt.Errorf("wgpu: finishing command buffer: %w", err)
		}
		buffers = append(buffers, fin)
	}
	if len(buffers) > 0 {
		g.queue.Submit(buffers...)
	}
	g.mu.Unlock()

	g.inFlight.Add(1)
	done := make(chan struct{})
	g.queue.OnSubmittedWorkDone(func(status wgpu.QueueWorkDoneStatus) {
		close(done)
		g.inFlight.Done()
	})
	<-done

	for _, b := range buffers {
		b.Release()
	}
	for _, s := range signals {
		if err := s.Semaphore.Signal(s.Value); err != nil {
			return fmt.Errorf("wgpu: signaling semaphore after submit: %w", err)
		}
	}
	return nil
}

func (g *GPU) NewCmdBuffer(role rhi.QueueRole) (rhi.CmdBuffer, error) {
	cb := &CmdBuffer{g: g}
	if err := cb.Begin(); err != nil {
		return nil, err
	}
	return cb, nil
}

func (g *GPU) NewShaderCode(data []byte) (rhi.ShaderCode, error) {
	sm, err := g.device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: string(data)},
	})
	if err != nil {
		return nil, fmt.Errorf("wgpu: compiling shader module: %w", err)
	}
	return &ShaderCode{native: sm}, nil
}

// PipelineDesc is the concrete state passed to GPU.NewPipeline, since
// rhi.GPU takes an opaque `any` there to stay backend-agnostic. A nil
// Compute shader builds a render pipeline; a non-nil one builds a
// compute pipeline, matching pipeline.Pipeline's Shader(stage) lookup
// in the teacher's pipeline package.
type PipelineDesc struct {
	Label            string
	Vertex, Fragment *ShaderCode
	Compute          *ShaderCode
	VertexLayout     []wgpu.VertexBufferLayout
	ColorFormats     []wgpu.TextureFormat
	DepthFormat      *wgpu.TextureFormat
	Topology         wgpu.PrimitiveTopology
}

func (g *GPU) NewPipeline(state any) (rhi.Pipeline, error) {
	desc, ok := state.(*PipelineDesc)
	if !ok {
		return nil, fmt.Errorf("wgpu: NewPipeline requires a *wgpu.PipelineDesc, got %T", state)
	}

	layout, err := g.device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		BindGroupLayouts: []*wgpu.BindGroupLayout{g.bindGroupLayout},
	})
	if err != nil {
		return nil, fmt.Errorf("wgpu: creating pipeline layout: %w", err)
	}
	defer layout.Release()

	if desc.Compute != nil {
		cp, err := g.device.CreateComputePipeline(&wgpu.ComputePipelineDescriptor{
			Label:  desc.Label,
			Layout: layout,
			Compute: wgpu.ProgrammableStageDescriptor{
				Module:     desc.Compute.native,
				EntryPoint: "main",
			},
		})
		if err != nil {
			return nil, fmt.Errorf("wgpu: creating compute pipeline: %w", err)
		}
		return &Pipeline{compute: cp}, nil
	}

	targets := make([]wgpu.ColorTargetState, len(desc.ColorFormats))
	for i, f := range desc.ColorFormats {
		targets[i] = wgpu.ColorTargetState{Format: f, WriteMask: wgpu.ColorWriteMaskAll}
	}
	var depthStencil *wgpu.DepthStencilState
	if desc.DepthFormat != nil {
		depthStencil = &wgpu.DepthStencilState{Format: *desc.DepthFormat, DepthWriteEnabled: true, DepthCompare: wgpu.CompareFunctionLess}
	}
	rp, err := g.device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label:  desc.Label,
		Layout: layout,
		Vertex: wgpu.VertexState{Module: desc.Vertex.native, EntryPoint: "main", Buffers: desc.VertexLayout},
		Fragment: &wgpu.FragmentState{
			Module:     desc.Fragment.native,
			EntryPoint: "main",
			Targets:    targets,
		},
		Primitive:    wgpu.PrimitiveState{Topology: desc.Topology},
		DepthStencil: depthStencil,
		Multisample:  wgpu.MultisampleState{Count: 1, Mask: 0xFFFFFFFF},
	})
	if err != nil {
		return nil, fmt.Errorf("wgpu: creating render pipeline: %w", err)
	}
	return &Pipeline{render: rp}, nil
}

func (g *GPU) NewBuffer(size int64, visible bool, usg rhi.Usage) (rhi.Buffer, error) {
	buf, err := g.device.CreateBuffer(&wgpu.BufferDescriptor{
		Size:             uint64(size),
		Usage:            toBufferUsage(usg),
		MappedAtCreation: visible,
	})
	if err != nil {
		return nil, fmt.Errorf("wgpu: creating buffer: %w", err)
	}
	b := &Buffer{native: buf, size: size, visible: visible}
	if visible {
		b.mapped = buf.GetMappedRange(0, uint(size))
	}
	return b, nil
}

func (g *GPU) NewTexture(pf rhi.PixelFmt, typ rhi.TextureType, size rhi.Dim3D, layers, levels, samples int, cubeCompatible bool, usg rhi.Usage) (rhi.Texture, error) {
	depthOrLayers := layers
	if typ == rhi.Tex3D {
		depthOrLayers = size.Depth
	}
	levels = common.Coalesce(levels, 1)
	samples = common.Coalesce(samples, 1)
	native, err := g.device.CreateTexture(&wgpu.TextureDescriptor{
		Size:          wgpu.Extent3D{Width: uint32(size.Width), Height: uint32(size.Height), DepthOrArrayLayers: uint32(depthOrLayers)},
		MipLevelCount: uint32(levels),
		SampleCount:   uint32(samples),
		Dimension:     toDimension(typ),
		Format:        toTextureFormat(pf),
		Usage:         toTextureUsage(usg),
	})
	if err != nil {
		return nil, fmt.Errorf("wgpu: creating texture: %w", err)
	}
	t := &Texture{g: g, native: native, format: pf, typ: typ, extent: size, mips: levels, layers: layers, samples: samples, cube: cubeCompatible, usage: usg}
	if _, err := t.NewView(defaultViewType(typ, cubeCompatible), 0, max(layers, 1), 0, levels); err != nil {
		native.Release()
		return nil, fmt.Errorf("wgpu: creating default view: %w", err)
	}
	return t, nil
}

func defaultViewType(typ rhi.TextureType, cube bool) rhi.ViewType {
	switch {
	case cube:
		return rhi.ViewCube
	case typ == rhi.Tex1D:
		return rhi.View1D
	case typ == rhi.Tex3D:
		return rhi.View3D
	default:
		return rhi.View2D
	}
}

func (g *GPU) NewSampler(s *rhi.Sampling) (rhi.Sampler, error) {
	samp, err := g.device.CreateSampler(&wgpu.SamplerDescriptor{
		AddressModeU:  toAddressMode(s.AddrU),
		AddressModeV:  toAddressMode(s.AddrV),
		AddressModeW:  toAddressMode(s.AddrW),
		MagFilter:     toFilterMode(s.Mag),
		MinFilter:     toFilterMode(s.Min),
		MipmapFilter:  toMipmapFilterMode(s.Mipmap),
		LodMinClamp:   s.MinLOD,
		LodMaxClamp:   s.MaxLOD,
		MaxAnisotropy: uint16(s.MaxAniso),
	})
	if err != nil {
		return nil, fmt.Errorf("wgpu: creating sampler: %w", err)
	}
	return &Sampler{native: samp}, nil
}

func (g *GPU) NewTimelineSemaphore(role rhi.QueueRole) (rhi.TimelineSemaphore, error) {
	return newTimelineSemaphore(), nil
}

// WaitIdle blocks until every submission GPU.Submit has issued so far
// has completed, by waiting on the same WaitGroup Submit's completion
// callbacks drain. ctx cancellation is not honored: sync.WaitGroup has
// no cancelable wait, matching the tradeoff already taken by
// TimelineSemaphore.Wait's best-effort ctx polling.
func (g *GPU) WaitIdle(ctx context.Context) error {
	g.inFlight.Wait()
	return nil
}

func (g *GPU) Limits() rhi.Limits {
	return rhi.Limits{
		MaxTexture2D:     int(g.limits.MaxTextureDimension2D),
		MaxTexture3D:     int(g.limits.MaxTextureDimension3D),
		MaxTextureLayers: int(g.limits.MaxTextureArrayLayers),
		MaxBindlessSlots: bindlessSlotCount,
		MaxColorTargets:  8,
		MaxViewports:     1,
		MaxDispatch:      [3]int{int(g.limits.MaxComputeWorkgroupsPerDimension), int(g.limits.MaxComputeWorkgroupsPerDimension), int(g.limits.MaxComputeWorkgroupsPerDimension)},
		MaxPushConstant:  256,
	}
}

var _ rhi.GPU = (*GPU)(nil)
