// Package vulkan implements gpucore.Device directly on the Vulkan API
// through github.com/vulkan-go/vulkan.
//
// Linear images are backed by host-visible coherent memory, so they are
// mapped once and never flushed. Mip chains are generated on the device
// with vkCmdBlitImage.
//
// Importing the package registers the "vulkan" backend:
//
//	import _ "github.com/gogpu/texres/backend/vulkan"
//
//	dev, name, err := backend.Default()
//
// The loader is resolved at runtime; Open fails with a descriptive error
// on hosts without a Vulkan driver.
package vulkan
