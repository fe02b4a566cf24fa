// Package backend is the registry of gpucore.Device implementations.
//
// Backends register a Factory from init() and are selected at runtime:
//
//	import (
//		_ "github.com/gogpu/texres/backend/vulkan"
//		_ "github.com/gogpu/texres/backend/wgpu"
//	)
//
//	// Best available backend
//	dev, name, err := backend.Default()
//
//	// Or a specific one
//	dev, err := backend.Open(backend.BackendWGPU)
//
// # Available Backends
//
//   - "vulkan": Vulkan through vulkan-go, with GPU mip blits
//   - "wgpu": gogpu/wgpu hal (Vulkan, Metal, DX12, GL or software)
package backend
