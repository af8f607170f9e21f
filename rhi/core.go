package rhi

import "context"

// Releaser is the interface wrapping the Release method. Types that
// implement it hold GPU-side memory outside Go's GC and must be
// released explicitly. The name follows cogentcore/webgpu's convention
// (wgpu.Buffer.Release, wgpu.Texture.Release, ...) rather than the
// "Destroy" naming used by CPU-only drivers, since every concrete
// backend in this module's domain stack is WebGPU-shaped.
type Releaser interface {
	Release()
}

// Usage is a mask indicating valid uses for a Buffer or Texture. It is
// accumulated across every ResourceState ever observed on a resource in
// the render graph (spec.md invariant 5) and passed to the backend at
// creation/recreation time.
type Usage int

// Usage flags.
const (
	UShaderRead Usage = 1 << iota
	UShaderWrite
	UUniform
	USampled
	UVertexData
	UIndexData
	UIndirectData
	URenderTarget
	UTransferSrc
	UTransferDst
	UGeneric Usage = 1<<iota - 1
)

// FromState ORs in the usage bit(s) implied by using a resource in state s.
func (u Usage) FromState(s ResourceState) Usage {
	switch s {
	case ColorTarget, ColorMultisampleResolve, DepthStencilTarget, DepthStencilRead, PresentTexture:
		return u | URenderTarget
	case ShaderSampled:
		return u | USampled
	case ShaderStorageRead:
		return u | UShaderRead
	case ShaderStorageWrite:
		return u | UShaderWrite
	case ShaderStorageReadWrite:
		return u | UShaderRead | UShaderWrite
	case UniformBuffer:
		return u | UUniform
	case VertexBuffer:
		return u | UVertexData
	case IndexBuffer:
		return u | UIndexData
	case IndirectBuffer:
		return u | UIndirectData
	case TransferSrc:
		return u | UTransferSrc
	case TransferDst:
		return u | UTransferDst
	default:
		return u
	}
}

// BindlessHandle is the integer index a shader uses to reference a
// buffer or texture view through push constants (spec.md §4.10). A zero
// value (Valid() == false) means "unbound" — index 0 is reserved by the
// Bindless Descriptor Manager for that purpose.
type BindlessHandle struct {
	Index uint16
	Valid bool
}

// Buffer is a GPU buffer of fixed size, created by GPU.NewBuffer.
type Buffer interface {
	Releaser

	// Visible reports whether the buffer is host-visible; non-visible
	// memory cannot be accessed from Bytes.
	Visible() bool

	// Bytes returns a slice over the buffer's mapped memory, valid for
	// its lifetime. Returns nil for non-visible buffers.
	Bytes() []byte

	// Size returns the buffer's size in bytes, as requested at creation.
	Size() int64

	// Uniform and Storage return the bindless indices assigned to this
	// buffer by the Bindless Descriptor Manager, if any.
	Uniform() BindlessHandle
	Storage() BindlessHandle
}

// Texture is a GPU image, created by GPU.NewTexture.
type Texture interface {
	Releaser

	Format() PixelFmt
	Type() TextureType
	Extent() Dim3D
	MipLevels() int
	Layers() int
	Samples() int
	CubeCompatible() bool

	// Usage is the union of usage bits ever requested for this texture.
	Usage() Usage

	// View returns the view at the given index. Index 0 is the default
	// view, covering all mips and layers (spec.md invariant 8), and
	// always exists for a live texture.
	View(index int) View

	// NewView creates an additional view over a subset of this
	// texture's mips/layers and appends it to the texture's ordered
	// view list, returning its index.
	NewView(typ ViewType, firstLayer, layerCount, firstMip, mipCount int) (int, error)

	// ViewCount returns the number of views currently registered.
	ViewCount() int
}

// View is a typed view of a Texture's storage.
type View interface {
	Releaser

	Type() ViewType
	FirstMip() int
	MipCount() int
	FirstLayer() int
	LayerCount() int

	// Sampled and Storage return the bindless indices assigned to this
	// view, if any.
	Sampled() BindlessHandle
	Storage() BindlessHandle

	// Sampler returns the custom sampler bound to this view's sampled
	// slot, or nil if the bindless manager's default sampler applies.
	Sampler() Sampler
}

// Sampler is an image sampler created by GPU.NewSampler.
type Sampler interface {
	Releaser
}

// ShaderCode is a compiled shader binary for a programmable stage.
type ShaderCode interface {
	Releaser
}

// ShaderFunc names an entry point within a ShaderCode.
type ShaderFunc struct {
	Code ShaderCode
	Name string
}

// Pipeline is a GPU pipeline (graphics or compute).
type Pipeline interface {
	Releaser
}

// Attachment describes one render-target slot of a render pass, as laid
// out by the Attachment Planner (spec.md §4.8).
type Attachment struct {
	View       View
	Format     PixelFmt
	Samples    int
	Extent     Dim3D
	Load       LoadOp
	Store      StoreOp
	ClearValue ClearValue
}

// LoadOp is an attachment's load operation.
type LoadOp int

// Load operations.
const (
	LoadDontCare LoadOp = iota
	LoadClear
	LoadLoad
)

// StoreOp is an attachment's store operation.
type StoreOp int

// Store operations.
const (
	StoreDontCare StoreOp = iota
	StoreStore
)

// Barrier represents a synchronization barrier without a layout
// transition (used for buffers and buffer packs).
type Barrier struct {
	SyncBefore   Stage
	SyncAfter    Stage
	AccessBefore Access
	AccessAfter  Access
}

// Transition represents a layout transition on a specific image view,
// derived by the Barrier Planner from successive ResourceStates.
type Transition struct {
	Barrier
	LayoutBefore Layout
	LayoutAfter  Layout
	View         View
}

// BufferCopy describes a buffer-to-buffer copy command.
type BufferCopy struct {
	From, To         Buffer
	FromOff, ToOff   int64
	Size             int64
}

// ImageCopy describes an image-to-image copy command.
type ImageCopy struct {
	From, To                   Texture
	FromOff, ToOff             Off3D
	FromLayer, FromLevel       int
	ToLayer, ToLevel           int
	Size                       Dim3D
	Layers                     int
}

// BufImgCopy describes a copy between a buffer and an image.
type BufImgCopy struct {
	Buf    Buffer
	BufOff int64
	// Stride[0] is row length, Stride[1] is image height, both in texels.
	Stride [2]int64
	Img    Texture
	ImgOff Off3D
	Layer  int
	Level  int
	Size   Dim3D
}

// RenderPass groups a set of attachments for BeginRendering/EndRendering recording.
type RenderPass interface {
	Releaser
}

// CmdBuffer is a one-shot, primary command buffer recorded by exactly
// one render-graph submission and reset for reuse by its owning pool
// (spec.md §3 Lifecycles, Command Pool & Buffer).
//
// Jobs attached to render-graph nodes are only ever given a CmdBuffer;
// they must not call GPU-level methods (spec.md §5).
type CmdBuffer interface {
	Releaser

	Begin() error
	End() error
	Reset() error

	// BeginRendering/EndRendering bracket render-pass work, using a
	// pre-baked Attachment list (spec.md §4.8, §4.9).
	BeginRendering(attachments []Attachment, area Scissor, layers int)
	EndRendering()

	SetViewports(vp []Viewport)
	SetScissors(s []Scissor)

	BindPipeline(p Pipeline)

	// SetPushConstant uploads bytes to the push-constant range used to
	// carry bindless indices to shaders (spec.md §4.10).
	SetPushConstant(bytes []byte)

	BindVertexBuffers(first int, buf []Buffer, off []int64)
	BindIndexBuffer(buf Buffer, off int64, index32 bool)

	Draw(vertCount, instCount, baseVert, baseInst int)
	DrawIndexed(idxCount, instCount, baseIdx, vertOff, baseInst int)
	DrawIndirect(buf Buffer, off int64, count int, stride int)
	DrawIndexedIndirect(buf Buffer, off int64, count int, stride int)

	Dispatch(x, y, z int)
	DispatchIndirect(buf Buffer, off int64)

	CopyBuffer(p *BufferCopy)
	CopyImage(p *ImageCopy)
	CopyBufToImg(p *BufImgCopy)
	CopyImgToBuf(p *BufImgCopy)

	// GenerateMipLevels blits mip 0 down through the texture's
	// remaining mip levels, per spec.md scenario S6.
	GenerateMipLevels(tex Texture, filter Filter)

	Barrier(b []Barrier)
	Transition(t []Transition)

	// BeginDebugLabel/EndDebugLabel bracket a region of the command
	// buffer with a named, colored debug label (spec.md §4.9, §6).
	BeginDebugLabel(name string, color [4]float32)
	EndDebugLabel()
}

// QueueRole identifies one of up to three hardware queues a node can be
// scheduled on (spec.md Queue Set).
type QueueRole int

// Queue roles.
const (
	QueueMain QueueRole = iota
	QueueCompute
	QueueTransfer
	QueueRoleCount
)

// GPU is the main interface to a backend implementation. It is obtained
// from Instance.CreateDevice and is used to create every other RHI
// resource type and to submit recorded command buffers.
type GPU interface {
	// Queues reports which of the three queue roles this backend
	// exposes as physically distinct hardware queues. A role absent
	// from this set is still schedulable — the Cross-Queue Scheduler
	// falls back to QueueMain for it (spec.md §4.5).
	Queues() map[QueueRole]bool

	// Submit submits a batch of command buffers to the named queue
	// role. Wait/signal values are timeline-semaphore operations
	// already resolved by package schedule; cb cannot be recorded into
	// again until the submission completes.
	Submit(role QueueRole, cb []CmdBuffer, waits, signals []SemaphoreOp) error

	NewCmdBuffer(role QueueRole) (CmdBuffer, error)
	NewShaderCode(data []byte) (ShaderCode, error)
	NewPipeline(state any) (Pipeline, error)
	NewBuffer(size int64, visible bool, usg Usage) (Buffer, error)
	NewTexture(pf PixelFmt, typ TextureType, size Dim3D, layers, levels, samples int, cubeCompatible bool, usg Usage) (Texture, error)
	NewSampler(s *Sampling) (Sampler, error)

	// NewTimelineSemaphore creates a backend timeline semaphore for the
	// given queue role.
	NewTimelineSemaphore(role QueueRole) (TimelineSemaphore, error)

	// WaitIdle blocks until all submitted work on every queue
	// completes. Used by the Transfer Engine's SubmitAndWait and by
	// Device.WaitIdle.
	WaitIdle(ctx context.Context) error

	Limits() Limits
}

// TimelineSemaphore is a monotonically increasing per-queue fence (see
// package timeline for the value-layout contract).
type TimelineSemaphore interface {
	Releaser
	Value() (uint64, error)
	Wait(ctx context.Context, value uint64) error
	Signal(value uint64) error
}

// SemaphoreOp is a single wait or signal operation submitted alongside a
// batch of command buffers.
type SemaphoreOp struct {
	Semaphore TimelineSemaphore
	Value     uint64
	Stage     Stage
}

// Swapchain is a windowed presentation surface (spec.md §2 Swapchain).
// Acquisition and presentation each carry their own suboptimal/
// out-of-date signal rather than an error, matching BeginFrame/EndFrame's
// non-fatal recreate framing (spec.md §4.1 "Failure semantics").
type Swapchain interface {
	Releaser

	// AcquireNext acquires the next presentable image, signaling
	// acquireSignal once the image is available for rendering.
	AcquireNext(acquireSignal TimelineSemaphore) (textureIndex int, view View, suboptimal bool, err error)

	// Present presents the image last returned by AcquireNext after
	// waitSemaphore reaches the value most recently signaled on it.
	Present(waitSemaphore TimelineSemaphore, waitValue uint64) (suboptimal bool, err error)

	// Recreate resizes the swapchain to the given surface dimensions.
	Recreate(width, height int) error

	ImageCount() int
	Format() PixelFmt
	Extent() Dim3D
}

// Limits describes implementation limits, immutable for the GPU's
// lifetime.
type Limits struct {
	MaxTexture2D      int
	MaxTexture3D      int
	MaxTextureLayers  int
	MaxBindlessSlots  int
	MaxColorTargets   int
	MaxViewports      int
	MaxDispatch       [3]int
	MaxPushConstant   int
}

// Context is frame-global state threaded through every render-graph job
// alongside the graph and command buffer, distinct from the graph
// itself (ported from Liger's Context&, original_source/.../RenderGraph.hpp).
// It is intentionally opaque to package rhi: concrete fields (bindless
// manager, absolute frame counter, frame-in-flight index) live on
// *device.Device, which implements this interface.
type Context interface {
	AbsoluteFrame() uint64
	FrameIndex() int
}
