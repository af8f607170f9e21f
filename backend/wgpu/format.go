package wgpu

import (
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/kestrel-forge/rhi/rhi"
)

func toTextureFormat(pf rhi.PixelFmt) wgpu.TextureFormat {
	switch pf {
	case rhi.RGBA8un:
		return wgpu.TextureFormatRGBA8Unorm
	case rhi.RGBA8sRGB:
		return wgpu.TextureFormatRGBA8UnormSrgb
	case rhi.BGRA8un:
		return wgpu.TextureFormatBGRA8Unorm
	case rhi.BGRA8sRGB:
		return wgpu.TextureFormatBGRA8UnormSrgb
	case rhi.RG8un:
		return wgpu.TextureFormatRG8Unorm
	case rhi.R8un:
		return wgpu.TextureFormatR8Unorm
	case rhi.RGBA16f:
		return wgpu.TextureFormatRGBA16Float
	case rhi.RG16f:
		return wgpu.TextureFormatRG16Float
	case rhi.R16f:
		return wgpu.TextureFormatR16Float
	case rhi.RGBA32f:
		return wgpu.TextureFormatRGBA32Float
	case rhi.RG32f:
		return wgpu.TextureFormatRG32Float
	case rhi.R32f:
		return wgpu.TextureFormatR32Float
	case rhi.D16un:
		return wgpu.TextureFormatDepth16Unorm
	case rhi.D32f:
		return wgpu.TextureFormatDepth32Float
	case rhi.S8ui:
		return wgpu.TextureFormatDepth24PlusStencil8
	case rhi.D24unS8ui:
		return wgpu.TextureFormatDepth24PlusStencil8
	case rhi.D32fS8ui:
		return wgpu.TextureFormatDepth32FloatStencil8
	default:
		return wgpu.TextureFormatRGBA8Unorm
	}
}

func toDimension(t rhi.TextureType) wgpu.TextureDimension {
	switch t {
	case rhi.Tex1D:
		return wgpu.TextureDimension1D
	case rhi.Tex3D:
		return wgpu.TextureDimension3D
	default:
		return wgpu.TextureDimension2D
	}
}

// toTextureUsage derives wgpu-native usage flags from the union of
// ResourceStates a texture has ever been used in (rhi.Usage), adding
// CopySrc/CopyDst unconditionally since the transfer engine and mip
// generation both move texel data through every imported texture.
func toTextureUsage(u rhi.Usage) wgpu.TextureUsage {
	flags := wgpu.TextureUsageCopySrc | wgpu.TextureUsageCopyDst
	if u&rhi.USampled != 0 {
		flags |= wgpu.TextureUsageTextureBinding
	}
	if u&(rhi.UShaderRead|rhi.UShaderWrite) != 0 {
		flags |= wgpu.TextureUsageStorageBinding
	}
	if u&rhi.URenderTarget != 0 {
		flags |= wgpu.TextureUsageRenderAttachment
	}
	return flags
}

func toBufferUsage(u rhi.Usage) wgpu.BufferUsage {
	flags := wgpu.BufferUsageCopySrc | wgpu.BufferUsageCopyDst
	if u&rhi.UUniform != 0 {
		flags |= wgpu.BufferUsageUniform
	}
	if u&(rhi.UShaderRead|rhi.UShaderWrite) != 0 {
		flags |= wgpu.BufferUsageStorage
	}
	if u&rhi.UVertexData != 0 {
		flags |= wgpu.BufferUsageVertex
	}
	if u&rhi.UIndexData != 0 {
		flags |= wgpu.BufferUsageIndex
	}
	if u&rhi.UIndirectData != 0 {
		flags |= wgpu.BufferUsageIndirect
	}
	return flags
}

func toFilterMode(f rhi.Filter) wgpu.FilterMode {
	if f == rhi.FLinear {
		return wgpu.FilterModeLinear
	}
	return wgpu.FilterModeNearest
}

func toMipmapFilterMode(f rhi.Filter) wgpu.MipmapFilterMode {
	if f == rhi.FLinear {
		return wgpu.MipmapFilterModeLinear
	}
	return wgpu.MipmapFilterModeNearest
}

func toAddressMode(a rhi.AddrMode) wgpu.AddressMode {
	switch a {
	case rhi.AMirror:
		return wgpu.AddressModeMirrorRepeat
	case rhi.AClamp:
		return wgpu.AddressModeClampToEdge
	default:
		return wgpu.AddressModeRepeat
	}
}

func toLoadOp(l rhi.LoadOp) wgpu.LoadOp {
	if l == rhi.LoadLoad {
		return wgpu.LoadOpLoad
	}
	return wgpu.LoadOpClear
}

func toStoreOp(s rhi.StoreOp) wgpu.StoreOp {
	if s == rhi.StoreStore {
		return wgpu.StoreOpStore
	}
	return wgpu.StoreOpDiscard
}

func toColor(c [4]float32) wgpu.Color {
	return wgpu.Color{R: float64(c[0]), G: float64(c[1]), B: float64(c[2]), A: float64(c[3])}
}
