package wgpu

import (
	"github.com/gogpu/gputypes"
	"github.com/gogpu/texres/gpucore"
)

// rowAlignment is the WebGPU requirement for bytes per row in copies.
const rowAlignment = 256

func alignRow(n int) int {
	return (n + rowAlignment - 1) / rowAlignment * rowAlignment
}

// textureFormat converts a gpucore format. The second result is false for
// formats without a WebGPU equivalent.
func textureFormat(f gpucore.Format) (gputypes.TextureFormat, bool) {
	switch f {
	case gpucore.FormatR8Unorm:
		return gputypes.TextureFormatR8Unorm, true
	case gpucore.FormatRGBA8Unorm:
		return gputypes.TextureFormatRGBA8Unorm, true
	case gpucore.FormatBGRA8Unorm:
		return gputypes.TextureFormatBGRA8Unorm, true
	case gpucore.FormatRGBA16Float:
		return gputypes.TextureFormatRGBA16Float, true
	case gpucore.FormatRGBA16Snorm:
		return gputypes.TextureFormatRGBA16Snorm, true
	case gpucore.FormatR32Float:
		return gputypes.TextureFormatR32Float, true
	case gpucore.FormatRG16Float:
		return gputypes.TextureFormatRG16Float, true
	case gpucore.FormatDepth24PlusStencil8:
		return gputypes.TextureFormatDepth24PlusStencil8, true
	case gpucore.FormatDepth32FloatStencil8:
		return gputypes.TextureFormatDepth32FloatStencil8, true
	default:
		return gputypes.TextureFormatUndefined, false
	}
}

func textureUsage(u gpucore.ImageUsage) gputypes.TextureUsage {
	var out gputypes.TextureUsage
	if u&gpucore.ImageUsageCopySrc != 0 {
		out |= gputypes.TextureUsageCopySrc
	}
	if u&gpucore.ImageUsageCopyDst != 0 {
		out |= gputypes.TextureUsageCopyDst
	}
	if u&gpucore.ImageUsageSampled != 0 {
		out |= gputypes.TextureUsageTextureBinding
	}
	if u&gpucore.ImageUsageStorage != 0 {
		out |= gputypes.TextureUsageStorageBinding
	}
	if u&(gpucore.ImageUsageColorAttachment|gpucore.ImageUsageDepthStencilAttachment) != 0 {
		out |= gputypes.TextureUsageRenderAttachment
	}
	return out
}

func bufferUsage(u gpucore.BufferUsage) gputypes.BufferUsage {
	var out gputypes.BufferUsage
	if u&gpucore.BufferUsageMapWrite != 0 {
		out |= gputypes.BufferUsageMapWrite
	}
	if u&gpucore.BufferUsageMapRead != 0 {
		out |= gputypes.BufferUsageMapRead
	}
	if u&gpucore.BufferUsageCopySrc != 0 {
		out |= gputypes.BufferUsageCopySrc
	}
	if u&gpucore.BufferUsageCopyDst != 0 {
		out |= gputypes.BufferUsageCopyDst
	}
	return out
}

// layoutUsage maps an explicit layout onto the WebGPU usage state the
// texture is in while it has that layout.
func layoutUsage(l gpucore.Layout) gputypes.TextureUsage {
	switch l {
	case gpucore.LayoutTransferSrc:
		return gputypes.TextureUsageCopySrc
	case gpucore.LayoutTransferDst:
		return gputypes.TextureUsageCopyDst
	case gpucore.LayoutGeneral, gpucore.LayoutShaderReadOnly:
		return gputypes.TextureUsageTextureBinding
	case gpucore.LayoutColorAttachment, gpucore.LayoutDepthStencilAttachment:
		return gputypes.TextureUsageRenderAttachment
	default:
		return gputypes.TextureUsageNone
	}
}

func textureAspect(a gpucore.Aspect) gputypes.TextureAspect {
	switch a {
	case gpucore.AspectDepth:
		return gputypes.TextureAspectDepthOnly
	case gpucore.AspectStencil:
		return gputypes.TextureAspectStencilOnly
	default:
		return gputypes.TextureAspectAll
	}
}

func addressMode(m gpucore.AddressMode) gputypes.AddressMode {
	if m == gpucore.AddressClampToEdge {
		return gputypes.AddressModeClampToEdge
	}
	return gputypes.AddressModeRepeat
}

func filterMode(m gpucore.FilterMode) gputypes.FilterMode {
	if m == gpucore.FilterNearest {
		return gputypes.FilterModeNearest
	}
	return gputypes.FilterModeLinear
}

// maxLodUnclamped is the LOD clamp used when a sampler does not limit
// mip selection.
const maxLodUnclamped = 32
