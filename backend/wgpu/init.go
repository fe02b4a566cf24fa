package wgpu

import (
	"github.com/gogpu/texres/backend"
	"github.com/gogpu/texres/gpucore"

	// Registers the platform hal backends and the software fallback.
	_ "github.com/gogpu/wgpu/hal/allbackends"
)

func init() {
	backend.Register(backend.BackendWGPU, func() (gpucore.Device, error) {
		return OpenDefault()
	})
}
