package backend

import (
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// GPUBufferUsage converts a BufferUsage to the WebGPU usage flags.
func GPUBufferUsage(usage BufferUsage) gputypes.BufferUsage {
	var result gputypes.BufferUsage

	if usage&BufferUsageMapRead != 0 {
		result |= gputypes.BufferUsageMapRead
	}
	if usage&BufferUsageMapWrite != 0 {
		result |= gputypes.BufferUsageMapWrite
	}
	if usage&BufferUsageCopySrc != 0 {
		result |= gputypes.BufferUsageCopySrc
	}
	if usage&BufferUsageCopyDst != 0 {
		result |= gputypes.BufferUsageCopyDst
	}
	if usage&BufferUsageIndex != 0 {
		result |= gputypes.BufferUsageIndex
	}
	if usage&BufferUsageVertex != 0 {
		result |= gputypes.BufferUsageVertex
	}
	if usage&BufferUsageUniform != 0 {
		result |= gputypes.BufferUsageUniform
	}
	if usage&BufferUsageStorage != 0 {
		result |= gputypes.BufferUsageStorage
	}

	return result
}

// GPUTextureFormat converts a TextureFormat to the WebGPU texture format.
// Unknown formats map to RGBA8Unorm.
func GPUTextureFormat(format TextureFormat) gputypes.TextureFormat {
	switch format {
	case TextureFormatRGBA8Unorm:
		return gputypes.TextureFormatRGBA8Unorm
	case TextureFormatRGBA8UnormSRGB:
		return gputypes.TextureFormatRGBA8UnormSrgb
	case TextureFormatBGRA8Unorm:
		return gputypes.TextureFormatBGRA8Unorm
	case TextureFormatR8Unorm:
		return gputypes.TextureFormatR8Unorm
	case TextureFormatRGBA32Float:
		return gputypes.TextureFormatRGBA32Float
	default:
		return gputypes.TextureFormatRGBA8Unorm
	}
}

// BufferDescriptor returns the HAL descriptor for a buffer of size bytes.
// Buffers created through a Device always accept copies so UpdateBuffer works.
func BufferDescriptor(label string, usage BufferUsage, size int) hal.BufferDescriptor {
	return hal.BufferDescriptor{
		Label: label,
		Size:  uint64(size),
		Usage: GPUBufferUsage(usage | BufferUsageCopyDst),
	}
}

// TextureDescriptor returns the HAL descriptor for a sampled 2D texture.
func TextureDescriptor(label string, desc *TextureDesc) hal.TextureDescriptor {
	return hal.TextureDescriptor{
		Label: label,
		Size: hal.Extent3D{
			Width:              desc.Width,
			Height:             desc.Height,
			DepthOrArrayLayers: 1,
		},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        GPUTextureFormat(desc.Format),
		Usage:         gputypes.TextureUsageTextureBinding | gputypes.TextureUsageCopyDst,
	}
}

// ShaderDescriptor returns the HAL descriptor for a compiled SPIR-V module.
// spirv is little-endian bytecode as produced by naga.Compile.
func ShaderDescriptor(label string, spirv []byte) hal.ShaderModuleDescriptor {
	words := make([]uint32, len(spirv)/4)
	for i := range words {
		words[i] = uint32(spirv[i*4]) |
			uint32(spirv[i*4+1])<<8 |
			uint32(spirv[i*4+2])<<16 |
			uint32(spirv[i*4+3])<<24
	}
	return hal.ShaderModuleDescriptor{
		Label:  label,
		Source: hal.ShaderSource{SPIRV: words},
	}
}
