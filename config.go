package texres

import (
	"fmt"

	"github.com/gogpu/texres/gpucore"
)

// Policy constants.
const (
	// UploadStallThreshold is the number of staged bytes in one transfer
	// command stream after which the stream is submitted and waited on.
	UploadStallThreshold = 64 << 20

	// DefaultMinTextureLayers is the number of texture slots every material
	// shader expects to be bound.
	DefaultMinTextureLayers = 8

	// DefaultFramesInFlight is the number of frames the GPU may lag behind
	// the host.
	DefaultFramesInFlight = 2
)

// Config holds Manager policy.
type Config struct {
	// FramesInFlight is the number of deferred deletion slots.
	FramesInFlight int

	// GenerateMipmaps enables mip chains for non-indexed uploads.
	GenerateMipmaps bool

	// MinTextureLayers is the minimum descriptor set size for materials.
	MinTextureLayers int

	// DepthStencilFormat is the format of canvas depth-stencil companions.
	DepthStencilFormat gpucore.Format

	// UploadStallThreshold overrides the package constant. Zero selects
	// UploadStallThreshold.
	UploadStallThreshold int
}

// DefaultConfig returns the default Manager configuration.
func DefaultConfig() Config {
	return Config{
		FramesInFlight:       DefaultFramesInFlight,
		GenerateMipmaps:      true,
		MinTextureLayers:     DefaultMinTextureLayers,
		DepthStencilFormat:   gpucore.FormatDepth24PlusStencil8,
		UploadStallThreshold: UploadStallThreshold,
	}
}

func (c *Config) validate() error {
	if c.FramesInFlight < 1 {
		return fmt.Errorf("texres: FramesInFlight must be at least 1, got %d", c.FramesInFlight)
	}
	if c.MinTextureLayers < 1 {
		return fmt.Errorf("texres: MinTextureLayers must be at least 1, got %d", c.MinTextureLayers)
	}
	if !c.DepthStencilFormat.IsDepthStencil() {
		return fmt.Errorf("texres: %s is not a depth-stencil format", c.DepthStencilFormat)
	}
	if c.UploadStallThreshold <= 0 {
		c.UploadStallThreshold = UploadStallThreshold
	}
	return nil
}

// Option configures a Manager.
type Option func(*Config)

// WithFramesInFlight sets the number of frames the GPU may lag behind.
func WithFramesInFlight(n int) Option {
	return func(c *Config) { c.FramesInFlight = n }
}

// WithMipmaps enables or disables mip generation for uploads.
func WithMipmaps(enabled bool) Option {
	return func(c *Config) { c.GenerateMipmaps = enabled }
}

// WithMinTextureLayers sets the minimum descriptor set size.
func WithMinTextureLayers(n int) Option {
	return func(c *Config) { c.MinTextureLayers = n }
}

// WithDepthStencilFormat sets the canvas depth-stencil format.
func WithDepthStencilFormat(f gpucore.Format) Option {
	return func(c *Config) { c.DepthStencilFormat = f }
}

// WithUploadStallThreshold overrides the upload stall threshold in bytes.
func WithUploadStallThreshold(n int) Option {
	return func(c *Config) { c.UploadStallThreshold = n }
}
