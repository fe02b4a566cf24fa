package gpucore

import "time"

// Capabilities describes optional backend features the core adapts to.
type Capabilities struct {
	// BlitMipmaps reports whether Encoder.BlitLevel is supported.
	// Without it mip chains are computed on the CPU and uploaded per level.
	BlitMipmaps bool

	// CoherentHostImages reports whether mapped linear images are visible
	// to the device without an explicit FlushImage.
	CoherentHostImages bool
}

// ImageDesc describes a device image.
type ImageDesc struct {
	Label     string
	Width     int
	Height    int
	MipLevels int
	Format    Format
	Usage     ImageUsage

	// Linear requests linear tiling in host-visible memory so the image
	// can be mapped with MapImage.
	Linear bool
}

// ViewDesc describes an image view.
type ViewDesc struct {
	Label     string
	Format    Format
	Aspect    Aspect
	MipLevels int
}

// SamplerDesc describes a sampler.
type SamplerDesc struct {
	Label        string
	AddressU     AddressMode
	AddressV     AddressMode
	MagFilter    FilterMode
	MinFilter    FilterMode
	MipmapFilter FilterMode

	// MaxLod limits sampling to the first mip levels. Zero means no limit.
	MaxLod float32
}

// ImageBarrier is one image entry of a Barrier.
type ImageBarrier struct {
	Image     ImageID
	OldLayout Layout
	NewLayout Layout
	SrcAccess Access
	DstAccess Access
	Aspect    Aspect

	// BaseLevel and LevelCount select a mip range. LevelCount 0 means all
	// remaining levels.
	BaseLevel  int
	LevelCount int
}

// Barrier is a single pipeline barrier command covering one or more images.
type Barrier struct {
	SrcStage Stage
	DstStage Stage
	Images   []ImageBarrier
}

// CopyRegion describes a tightly packed buffer to image copy.
type CopyRegion struct {
	BufferOffset int
	MipLevel     int
	Width        int
	Height       int
	// BytesPerTexel is used by backends that need an explicit row pitch.
	BytesPerTexel int
}

// BlitRegion describes a downsampling blit between two mip levels of the
// same image. The source level must be in LayoutTransferSrc and the
// destination level in LayoutTransferDst.
type BlitRegion struct {
	SrcLevel  int
	SrcWidth  int
	SrcHeight int
	DstLevel  int
	DstWidth  int
	DstHeight int
}

// ImageWrite binds one sampled image and its sampler to a descriptor slot.
type ImageWrite struct {
	Binding int
	View    ViewID
	Sampler SamplerID
	Layout  Layout
}

// Encoder records commands into a command buffer.
//
// An Encoder is used by one goroutine at a time. Finish or Discard must be
// called exactly once.
type Encoder interface {
	// Barrier records one pipeline barrier.
	Barrier(b *Barrier)

	// CopyBufferToImage copies tightly packed texel rows from src into dst.
	// dst must be in LayoutTransferDst.
	CopyBufferToImage(src BufferID, dst ImageID, region CopyRegion)

	// BlitLevel downsamples one mip level into the next.
	// Only valid when Capabilities().BlitMipmaps is true.
	BlitLevel(img ImageID, region BlitRegion)

	// ClearColor fills every texel of a color image. The image must be in
	// LayoutTransferDst.
	ClearColor(img ImageID, rgba [4]float32)

	// Finish ends recording and returns the command buffer.
	Finish() (CommandBufferID, error)

	// Discard abandons recording.
	Discard()
}

// Device is the per-backend capability interface.
//
// Destroy methods must tolerate IDs the backend no longer knows about.
// Implementations are not required to be safe for concurrent use.
type Device interface {
	// Capabilities returns optional features of this backend.
	Capabilities() Capabilities

	// FormatSupported reports whether images of format f can be created
	// with the given usage.
	FormatSupported(f Format, usage ImageUsage) bool

	CreateImage(desc *ImageDesc) (ImageID, error)
	DestroyImage(id ImageID)

	CreateView(img ImageID, desc *ViewDesc) (ViewID, error)
	DestroyView(id ViewID)

	// ImageRowPitch returns the byte distance between rows of a linear
	// image's mapping.
	ImageRowPitch(img ImageID) (int, error)

	// MapImage maps a linear image. Repeated calls return the same slice.
	MapImage(img ImageID) ([]byte, error)
	UnmapImage(img ImageID)

	// FlushImage makes host writes to a mapped image visible to the device.
	// A no-op on backends with coherent host images.
	FlushImage(img ImageID) error

	CreateBuffer(size int, usage BufferUsage) (BufferID, error)
	DestroyBuffer(id BufferID)

	// MapBuffer returns a host slice of the whole buffer.
	MapBuffer(id BufferID) ([]byte, error)

	// UnmapBuffer ends host access. Contents written before UnmapBuffer are
	// visible to commands submitted afterwards.
	UnmapBuffer(id BufferID)

	CreateSampler(desc *SamplerDesc) (SamplerID, error)
	DestroySampler(id SamplerID)

	// CreateDescriptorSet allocates a set with the given number of
	// combined image/sampler slots.
	CreateDescriptorSet(label string, slots int) (DescriptorSetID, error)

	// WriteDescriptorSet fills slots of a set. All slots must be written
	// before the set is bound.
	WriteDescriptorSet(set DescriptorSetID, writes []ImageWrite) error
	DestroyDescriptorSet(id DescriptorSetID)

	CreateFramebuffer(view ViewID, format Format, width, height int) (FramebufferID, error)
	DestroyFramebuffer(id FramebufferID)

	// BeginCommands starts recording a command buffer.
	BeginCommands(label string) (Encoder, error)

	// Submit executes a command buffer and signals fence with value when
	// done. cmd may be InvalidID to only signal; fence may be InvalidID.
	// The command buffer is released by the device after completion.
	Submit(cmd CommandBufferID, fence FenceID, value uint64) error

	CreateFence() (FenceID, error)
	DestroyFence(id FenceID)

	// Wait blocks until fence reaches value or timeout expires.
	// A zero timeout polls.
	Wait(fence FenceID, value uint64, timeout time.Duration) (bool, error)

	// WaitIdle blocks until all submitted work is complete.
	WaitIdle() error

	// Destroy releases the device itself.
	Destroy()
}
