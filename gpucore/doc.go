// Package gpucore defines the backend-neutral device abstraction used by the
// texres texture residency core.
//
// The [Device] interface is the capability surface every backend implements:
// image, view, buffer, sampler, descriptor set and framebuffer creation,
// host mapping, command recording through an [Encoder], fenced submission
// and destruction. Everything above it (staging, layout tracking, mip
// generation policy, descriptor caching, deferred deletion) is written once
// against this interface.
//
//	          +-------------------+
//	          |      texres       |
//	          | (Manager, caches) |
//	          +---------+---------+
//	                    |
//	          +---------v---------+
//	          |  gpucore.Device   |
//	          +----+---------+----+
//	               |         |
//	  +------------v--+   +--v-------------+
//	  | backend/wgpu  |   | backend/vulkan |
//	  |  (wgpu hal)   |   |  (vulkan-go)   |
//	  +---------------+   +----------------+
//
// # Resource Management
//
// GPU resources are addressed by opaque IDs ([ImageID], [ViewID],
// [BufferID], ...). Backends own the mapping between IDs and native
// objects. [InvalidID] is never handed out.
//
// # Layouts
//
// Images carry an explicit [Layout]. Backends with implicit layouts (WebGPU)
// translate layouts into usage transitions; Vulkan backends use them as is.
// Stage and access masks for barriers are computed by the caller and
// passed through in [Barrier].
package gpucore
