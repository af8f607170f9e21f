package rhi

// ResourceState is an enumerated device usage of a resource at a point in
// the render graph. It determines the required pipeline stage, memory
// access mask, and (for images) layout, per spec.md's Glossary and §4.6.
// A node's read/write sets are expressed in terms of ResourceState, not
// raw barrier flags — the Barrier Planner derives those.
type ResourceState int

// Resource states. Combined states (e.g. a state used simultaneously as
// read and write) are valid for access/stage derivation but not as a
// Layout — see Layout below.
const (
	Undefined ResourceState = iota
	ColorTarget
	ColorMultisampleResolve
	DepthStencilTarget
	DepthStencilRead
	ShaderSampled
	ShaderStorageRead
	ShaderStorageWrite
	ShaderStorageReadWrite
	UniformBuffer
	VertexBuffer
	IndexBuffer
	IndirectBuffer
	TransferSrc
	TransferDst
	PresentTexture
	Common
)

// Stage is the pipeline stage a state is associated with, used to derive
// a Barrier's SyncBefore/SyncAfter.
type Stage int

// Pipeline stages.
const (
	StageNone Stage = 1 << iota
	StageTransfer
	StageVertexInput
	StageVertexShader
	StageFragmentShader
	StageComputeShader
	StageColorOutput
	StageDSOutput
	StageResolve
	StageAll
)

// Access is a memory access scope, used to derive a Barrier's
// AccessBefore/AccessAfter.
type Access int

// Memory access scopes.
const (
	AccessNone Access = 1 << iota
	AccessColorRead
	AccessColorWrite
	AccessDSRead
	AccessDSWrite
	AccessShaderRead
	AccessShaderWrite
	AccessTransferRead
	AccessTransferWrite
	AccessVertexBufRead
	AccessIndexBufRead
	AccessIndirectRead
	AccessUniformRead
)

// Layout is the type of an image layout. Combined states (e.g.
// ShaderStorageReadWrite) map to LCommon rather than a dedicated layout,
// since they have no single well-defined layout (spec.md §4.6).
type Layout int

// Image layouts.
const (
	LUndefined Layout = iota
	LCommon
	LColorTarget
	LDSTarget
	LDSRead
	LResolveDst
	LTransferSrc
	LTransferDst
	LShaderRead
	LPresent
)

type stateInfo struct {
	stage   Stage
	access  Access
	layout  Layout
	isImage bool
}

var stateTable = map[ResourceState]stateInfo{
	Undefined:               {StageNone, AccessNone, LUndefined, true},
	ColorTarget:              {StageColorOutput, AccessColorRead | AccessColorWrite, LColorTarget, true},
	ColorMultisampleResolve:  {StageResolve, AccessColorWrite, LResolveDst, true},
	DepthStencilTarget:       {StageDSOutput, AccessDSRead | AccessDSWrite, LDSTarget, true},
	DepthStencilRead:         {StageDSOutput | StageFragmentShader, AccessDSRead, LDSRead, true},
	ShaderSampled:            {StageFragmentShader | StageComputeShader, AccessShaderRead, LShaderRead, true},
	ShaderStorageRead:        {StageFragmentShader | StageComputeShader, AccessShaderRead, LCommon, true},
	ShaderStorageWrite:       {StageFragmentShader | StageComputeShader, AccessShaderWrite, LCommon, true},
	ShaderStorageReadWrite:   {StageFragmentShader | StageComputeShader, AccessShaderRead | AccessShaderWrite, LCommon, true},
	UniformBuffer:            {StageVertexShader | StageFragmentShader | StageComputeShader, AccessUniformRead, LUndefined, false},
	VertexBuffer:             {StageVertexInput, AccessVertexBufRead, LUndefined, false},
	IndexBuffer:              {StageVertexInput, AccessIndexBufRead, LUndefined, false},
	IndirectBuffer:           {StageVertexInput, AccessIndirectRead, LUndefined, false},
	TransferSrc:              {StageTransfer, AccessTransferRead, LTransferSrc, true},
	TransferDst:              {StageTransfer, AccessTransferWrite, LTransferDst, true},
	PresentTexture:           {StageNone, AccessNone, LPresent, true},
	Common:                   {StageAll, AccessShaderRead | AccessShaderWrite, LCommon, true},
}

// Stage returns the pipeline stage(s) associated with s.
func (s ResourceState) Stage() Stage { return stateTable[s].stage }

// Access returns the memory access scope associated with s.
func (s ResourceState) Access() Access { return stateTable[s].access }

// Layout returns the image layout associated with s. Only meaningful for
// states that apply to images; buffer states return LUndefined.
func (s ResourceState) Layout() Layout { return stateTable[s].layout }

// IsImageState reports whether s is a valid state for an image resource,
// as opposed to a buffer-only state.
func (s ResourceState) IsImageState() bool { return stateTable[s].isImage }

// RequiredCapability returns the Capability bit a node must hold in order
// to issue a command that transitions a resource into s.
func (s ResourceState) RequiredCapability() Capability {
	switch s {
	case TransferSrc, TransferDst:
		return Transfer
	case ShaderStorageRead, ShaderStorageWrite, ShaderStorageReadWrite:
		return Graphics | Compute
	default:
		return Graphics
	}
}
