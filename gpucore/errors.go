package gpucore

import "errors"

var (
	// ErrOutOfMemory is returned when the device cannot satisfy an allocation.
	ErrOutOfMemory = errors.New("gpucore: out of device memory")

	// ErrUnknownResource is returned when an ID does not name a live resource.
	ErrUnknownResource = errors.New("gpucore: unknown resource id")

	// ErrUnsupported is returned for operations the backend cannot perform.
	ErrUnsupported = errors.New("gpucore: operation not supported by backend")

	// ErrDeviceLost is returned after the device has been destroyed or lost.
	ErrDeviceLost = errors.New("gpucore: device lost")
)
