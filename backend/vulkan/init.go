package vulkan

import (
	"github.com/gogpu/texres/backend"
	"github.com/gogpu/texres/gpucore"
)

func init() {
	backend.Register(backend.BackendVulkan, func() (gpucore.Device, error) {
		return Open("texres")
	})
}
