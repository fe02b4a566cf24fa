package gpucore

// Resource IDs
//
// These opaque IDs represent GPU resources. Each backend maintains a mapping
// between IDs and native objects.

// ImageID is an opaque handle to a device image.
type ImageID uint64

// ViewID is an opaque handle to an image view.
type ViewID uint64

// BufferID is an opaque handle to a GPU buffer.
type BufferID uint64

// SamplerID is an opaque handle to a sampler.
type SamplerID uint64

// DescriptorSetID is an opaque handle to a descriptor set (bind group).
type DescriptorSetID uint64

// FramebufferID is an opaque handle to a framebuffer.
type FramebufferID uint64

// FenceID is an opaque handle to a fence.
type FenceID uint64

// CommandBufferID is an opaque handle to a finished command buffer.
type CommandBufferID uint64

// InvalidID is the zero value, representing an invalid/null resource.
const InvalidID = 0

// Format specifies the texel format of an image.
type Format uint32

// Image formats.
const (
	FormatUndefined Format = iota
	FormatR8Unorm
	FormatRGBA8Unorm
	FormatBGRA8Unorm
	FormatRGBA16Float
	FormatRGBA16Snorm
	FormatR32Float
	FormatRG16Float
	FormatDepth24PlusStencil8
	FormatDepth32FloatStencil8
)

// String returns a human-readable name for the format.
func (f Format) String() string {
	switch f {
	case FormatR8Unorm:
		return "R8Unorm"
	case FormatRGBA8Unorm:
		return "RGBA8Unorm"
	case FormatBGRA8Unorm:
		return "BGRA8Unorm"
	case FormatRGBA16Float:
		return "RGBA16Float"
	case FormatRGBA16Snorm:
		return "RGBA16Snorm"
	case FormatR32Float:
		return "R32Float"
	case FormatRG16Float:
		return "RG16Float"
	case FormatDepth24PlusStencil8:
		return "Depth24PlusStencil8"
	case FormatDepth32FloatStencil8:
		return "Depth32FloatStencil8"
	default:
		return "Undefined"
	}
}

// BytesPerTexel returns the size of one texel in bytes.
// Depth formats report their packed size.
func (f Format) BytesPerTexel() int {
	switch f {
	case FormatR8Unorm:
		return 1
	case FormatRGBA8Unorm, FormatBGRA8Unorm, FormatR32Float, FormatRG16Float, FormatDepth24PlusStencil8:
		return 4
	case FormatRGBA16Float, FormatRGBA16Snorm, FormatDepth32FloatStencil8:
		return 8
	default:
		return 0
	}
}

// IsDepthStencil reports whether the format has depth and stencil aspects.
func (f Format) IsDepthStencil() bool {
	return f == FormatDepth24PlusStencil8 || f == FormatDepth32FloatStencil8
}

// EncodeColor packs an RGBA color into one texel of f. Components are
// clamped to [0, 1]. Only 8-bit unorm formats are supported.
func (f Format) EncodeColor(rgba [4]float32) ([]byte, bool) {
	unorm := func(v float32) byte {
		switch {
		case v <= 0:
			return 0
		case v >= 1:
			return 255
		default:
			return byte(v*255 + 0.5)
		}
	}
	r, g, b, a := unorm(rgba[0]), unorm(rgba[1]), unorm(rgba[2]), unorm(rgba[3])
	switch f {
	case FormatR8Unorm:
		return []byte{r}, true
	case FormatRGBA8Unorm:
		return []byte{r, g, b, a}, true
	case FormatBGRA8Unorm:
		return []byte{b, g, r, a}, true
	default:
		return nil, false
	}
}

// ImageUsage is a bitmask specifying how an image will be used.
type ImageUsage uint32

// Image usage flags.
const (
	ImageUsageCopySrc ImageUsage = 1 << iota
	ImageUsageCopyDst
	ImageUsageSampled
	ImageUsageStorage
	ImageUsageColorAttachment
	ImageUsageDepthStencilAttachment
)

// BufferUsage is a bitmask specifying how a buffer will be used.
type BufferUsage uint32

// Buffer usage flags.
const (
	BufferUsageMapWrite BufferUsage = 1 << iota
	BufferUsageMapRead
	BufferUsageCopySrc
	BufferUsageCopyDst
)

// Layout is the access layout an image is currently in.
type Layout uint8

// Image layouts.
const (
	LayoutUndefined Layout = iota
	LayoutGeneral
	LayoutTransferSrc
	LayoutTransferDst
	LayoutShaderReadOnly
	LayoutColorAttachment
	LayoutDepthStencilAttachment
)

// String returns the layout name.
func (l Layout) String() string {
	switch l {
	case LayoutGeneral:
		return "General"
	case LayoutTransferSrc:
		return "TransferSrc"
	case LayoutTransferDst:
		return "TransferDst"
	case LayoutShaderReadOnly:
		return "ShaderReadOnly"
	case LayoutColorAttachment:
		return "ColorAttachment"
	case LayoutDepthStencilAttachment:
		return "DepthStencilAttachment"
	default:
		return "Undefined"
	}
}

// Aspect selects which aspects of an image a view or barrier covers.
type Aspect uint8

// Image aspects.
const (
	AspectColor Aspect = 1 << iota
	AspectDepth
	AspectStencil
)

// Access is a bitmask of memory access types used by barriers.
type Access uint32

// Access flags.
const (
	AccessHostWrite Access = 1 << iota
	AccessTransferRead
	AccessTransferWrite
	AccessShaderRead
	AccessColorAttachmentWrite
	AccessDepthStencilAttachmentWrite
)

// Stage is a bitmask of pipeline stages used by barriers.
type Stage uint32

// Pipeline stage flags.
const (
	StageTopOfPipe Stage = 1 << iota
	StageHost
	StageTransfer
	StageFragmentShader
	StageEarlyFragmentTests
	StageLateFragmentTests
	StageColorAttachmentOutput
	StageBottomOfPipe
)

// AddressMode controls texture coordinate wrapping.
type AddressMode uint8

// Address modes.
const (
	AddressRepeat AddressMode = iota
	AddressClampToEdge
)

// FilterMode controls texel filtering.
type FilterMode uint8

// Filter modes.
const (
	FilterLinear FilterMode = iota
	FilterNearest
)
