package texres

import "errors"

var (
	// ErrZeroSizeTexture is returned when a texture is requested with a
	// zero or negative dimension.
	ErrZeroSizeTexture = errors.New("texres: trying to create zero size texture")

	// ErrUnsupportedFormat is returned when the device cannot use a format
	// for the usage a post-process texture needs.
	ErrUnsupportedFormat = errors.New("texres: device does not support the image format")

	// ErrStagingReused is returned when a staging buffer is written after
	// its copy was recorded.
	ErrStagingReused = errors.New("texres: staging buffer is single-use")

	// ErrStaleHandle is returned for texture or material handles whose
	// object has been destroyed.
	ErrStaleHandle = errors.New("texres: stale handle")

	// ErrNoSoftwareBuffer is returned by MapBuffer before AllocateBuffer.
	ErrNoSoftwareBuffer = errors.New("texres: software buffer not allocated")

	// ErrManagerClosed is returned by operations on a closed Manager.
	ErrManagerClosed = errors.New("texres: manager closed")

	// ErrNoLayers is returned for materials without a base layer.
	ErrNoLayers = errors.New("texres: material has no layers")
)
