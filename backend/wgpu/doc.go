// Package wgpu implements gpucore.Device on the gogpu/wgpu hardware
// abstraction layer.
//
// Importing the package registers the "wgpu" backend, which opens the best
// hal backend available on the platform (Vulkan, Metal, DX12, GL) and falls
// back to the CPU software rasterizer:
//
//	import _ "github.com/gogpu/texres/backend/wgpu"
//
//	dev, err := backend.Open(backend.BackendWGPU)
//
// A device shared with a gogpu window is wrapped with NewFromProvider, and
// an already opened hal device with New.
//
// WebGPU hides image layouts and offers no blits or linear images. Layouts
// become usage transitions, mip chains are generated on the CPU and mapped
// linear images are emulated with host shadows uploaded by FlushImage.
// Fences are emulated with queue submission indices.
package wgpu
