package backend

import "errors"

// Backend names.
const (
	// BackendVulkan drives Vulkan directly through vulkan-go.
	BackendVulkan = "vulkan"

	// BackendWGPU drives gogpu/wgpu hal, including its software rasterizer.
	BackendWGPU = "wgpu"
)

// Common backend errors.
var (
	// ErrBackendNotAvailable is returned when a requested backend is not
	// registered or could not open a device.
	ErrBackendNotAvailable = errors.New("backend: not available")
)
