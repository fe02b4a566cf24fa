package vulkan

import (
	vk "github.com/vulkan-go/vulkan"

	"github.com/gogpu/texres/gpucore"
)

func vkFormat(f gpucore.Format) (vk.Format, bool) {
	switch f {
	case gpucore.FormatR8Unorm:
		return vk.FormatR8Unorm, true
	case gpucore.FormatRGBA8Unorm:
		return vk.FormatR8g8b8a8Unorm, true
	case gpucore.FormatBGRA8Unorm:
		return vk.FormatB8g8r8a8Unorm, true
	case gpucore.FormatRGBA16Float:
		return vk.FormatR16g16b16a16Sfloat, true
	case gpucore.FormatRGBA16Snorm:
		return vk.FormatR16g16b16a16Snorm, true
	case gpucore.FormatR32Float:
		return vk.FormatR32Sfloat, true
	case gpucore.FormatRG16Float:
		return vk.FormatR16g16Sfloat, true
	case gpucore.FormatDepth24PlusStencil8:
		return vk.FormatD24UnormS8Uint, true
	case gpucore.FormatDepth32FloatStencil8:
		return vk.FormatD32SfloatS8Uint, true
	default:
		return vk.FormatUndefined, false
	}
}

func imageUsage(u gpucore.ImageUsage) vk.ImageUsageFlags {
	var out vk.ImageUsageFlagBits
	if u&gpucore.ImageUsageCopySrc != 0 {
		out |= vk.ImageUsageTransferSrcBit
	}
	if u&gpucore.ImageUsageCopyDst != 0 {
		out |= vk.ImageUsageTransferDstBit
	}
	if u&gpucore.ImageUsageSampled != 0 {
		out |= vk.ImageUsageSampledBit
	}
	if u&gpucore.ImageUsageStorage != 0 {
		out |= vk.ImageUsageStorageBit
	}
	if u&gpucore.ImageUsageColorAttachment != 0 {
		out |= vk.ImageUsageColorAttachmentBit
	}
	if u&gpucore.ImageUsageDepthStencilAttachment != 0 {
		out |= vk.ImageUsageDepthStencilAttachmentBit
	}
	return vk.ImageUsageFlags(out)
}

// formatFeatures returns the optimal tiling features an image usage needs.
func formatFeatures(u gpucore.ImageUsage) vk.FormatFeatureFlags {
	var out vk.FormatFeatureFlagBits
	if u&gpucore.ImageUsageSampled != 0 {
		out |= vk.FormatFeatureSampledImageBit
	}
	if u&gpucore.ImageUsageStorage != 0 {
		out |= vk.FormatFeatureStorageImageBit
	}
	if u&gpucore.ImageUsageColorAttachment != 0 {
		out |= vk.FormatFeatureColorAttachmentBit
	}
	if u&gpucore.ImageUsageDepthStencilAttachment != 0 {
		out |= vk.FormatFeatureDepthStencilAttachmentBit
	}
	return vk.FormatFeatureFlags(out)
}

func bufferUsage(u gpucore.BufferUsage) vk.BufferUsageFlags {
	var out vk.BufferUsageFlagBits
	if u&gpucore.BufferUsageCopySrc != 0 {
		out |= vk.BufferUsageTransferSrcBit
	}
	if u&gpucore.BufferUsageCopyDst != 0 {
		out |= vk.BufferUsageTransferDstBit
	}
	return vk.BufferUsageFlags(out)
}

// bufferMemory returns the memory properties a buffer usage needs.
func bufferMemory(u gpucore.BufferUsage) vk.MemoryPropertyFlags {
	if u&(gpucore.BufferUsageMapWrite|gpucore.BufferUsageMapRead) != 0 {
		return vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit | vk.MemoryPropertyHostCoherentBit)
	}
	return vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit)
}

func imageLayout(l gpucore.Layout) vk.ImageLayout {
	switch l {
	case gpucore.LayoutGeneral:
		return vk.ImageLayoutGeneral
	case gpucore.LayoutTransferSrc:
		return vk.ImageLayoutTransferSrcOptimal
	case gpucore.LayoutTransferDst:
		return vk.ImageLayoutTransferDstOptimal
	case gpucore.LayoutShaderReadOnly:
		return vk.ImageLayoutShaderReadOnlyOptimal
	case gpucore.LayoutColorAttachment:
		return vk.ImageLayoutColorAttachmentOptimal
	case gpucore.LayoutDepthStencilAttachment:
		return vk.ImageLayoutDepthStencilAttachmentOptimal
	default:
		return vk.ImageLayoutUndefined
	}
}

func accessFlags(a gpucore.Access) vk.AccessFlags {
	var out vk.AccessFlagBits
	if a&gpucore.AccessHostWrite != 0 {
		out |= vk.AccessHostWriteBit
	}
	if a&gpucore.AccessTransferRead != 0 {
		out |= vk.AccessTransferReadBit
	}
	if a&gpucore.AccessTransferWrite != 0 {
		out |= vk.AccessTransferWriteBit
	}
	if a&gpucore.AccessShaderRead != 0 {
		out |= vk.AccessShaderReadBit
	}
	if a&gpucore.AccessColorAttachmentWrite != 0 {
		out |= vk.AccessColorAttachmentWriteBit
	}
	if a&gpucore.AccessDepthStencilAttachmentWrite != 0 {
		out |= vk.AccessDepthStencilAttachmentWriteBit
	}
	return vk.AccessFlags(out)
}

func stageFlags(s gpucore.Stage) vk.PipelineStageFlags {
	var out vk.PipelineStageFlagBits
	if s&gpucore.StageTopOfPipe != 0 {
		out |= vk.PipelineStageTopOfPipeBit
	}
	if s&gpucore.StageHost != 0 {
		out |= vk.PipelineStageHostBit
	}
	if s&gpucore.StageTransfer != 0 {
		out |= vk.PipelineStageTransferBit
	}
	if s&gpucore.StageFragmentShader != 0 {
		out |= vk.PipelineStageFragmentShaderBit
	}
	if s&gpucore.StageEarlyFragmentTests != 0 {
		out |= vk.PipelineStageEarlyFragmentTestsBit
	}
	if s&gpucore.StageLateFragmentTests != 0 {
		out |= vk.PipelineStageLateFragmentTestsBit
	}
	if s&gpucore.StageColorAttachmentOutput != 0 {
		out |= vk.PipelineStageColorAttachmentOutputBit
	}
	if s&gpucore.StageBottomOfPipe != 0 {
		out |= vk.PipelineStageBottomOfPipeBit
	}
	if out == 0 {
		out = vk.PipelineStageTopOfPipeBit
	}
	return vk.PipelineStageFlags(out)
}

func aspectFlags(a gpucore.Aspect) vk.ImageAspectFlags {
	var out vk.ImageAspectFlagBits
	if a&gpucore.AspectColor != 0 {
		out |= vk.ImageAspectColorBit
	}
	if a&gpucore.AspectDepth != 0 {
		out |= vk.ImageAspectDepthBit
	}
	if a&gpucore.AspectStencil != 0 {
		out |= vk.ImageAspectStencilBit
	}
	if out == 0 {
		out = vk.ImageAspectColorBit
	}
	return vk.ImageAspectFlags(out)
}

func addressMode(m gpucore.AddressMode) vk.SamplerAddressMode {
	if m == gpucore.AddressClampToEdge {
		return vk.SamplerAddressModeClampToEdge
	}
	return vk.SamplerAddressModeRepeat
}

func filter(m gpucore.FilterMode) vk.Filter {
	if m == gpucore.FilterNearest {
		return vk.FilterNearest
	}
	return vk.FilterLinear
}

func mipmapMode(m gpucore.FilterMode) vk.SamplerMipmapMode {
	if m == gpucore.FilterNearest {
		return vk.SamplerMipmapModeNearest
	}
	return vk.SamplerMipmapModeLinear
}

// maxLodUnclamped is VK_LOD_CLAMP_NONE.
const maxLodUnclamped = 1000
