package wgpu

import (
	"errors"
	"fmt"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/texres"
	"github.com/gogpu/wgpu/hal"
)

// ErrNoAdapter is returned by Open when the hal backend exposes no adapter.
var ErrNoAdapter = errors.New("wgpu: no GPU adapters found")

// halProvider is implemented by device providers that share their hal
// device and queue, such as gogpu windows.
type halProvider interface {
	HalDevice() any
	HalQueue() any
}

// NewFromProvider wraps the device of an external provider. The provider
// keeps ownership of the device.
func NewFromProvider(provider gpucontext.DeviceProvider) (*Device, error) {
	hp, ok := provider.(halProvider)
	if !ok {
		return nil, fmt.Errorf("wgpu: provider does not expose HAL types")
	}
	device, ok := hp.HalDevice().(hal.Device)
	if !ok || device == nil {
		return nil, fmt.Errorf("wgpu: provider HalDevice is not hal.Device")
	}
	queue, ok := hp.HalQueue().(hal.Queue)
	if !ok || queue == nil {
		return nil, fmt.Errorf("wgpu: provider HalQueue is not hal.Queue")
	}
	d := New(device, queue, nil)
	d.info = gputypes.AdapterInfo{Name: provider.AdapterInfo().Name}
	return d, nil
}

// Open creates an instance of the registered hal backend variant, picks a
// discrete or integrated adapter when there is one and opens a device on
// it. The returned Device owns the hal device and instance.
func Open(variant gputypes.Backend) (*Device, error) {
	backend, ok := hal.GetBackend(variant)
	if !ok {
		return nil, fmt.Errorf("wgpu: hal backend %v not registered", variant)
	}
	instance, err := backend.CreateInstance(&hal.InstanceDescriptor{Flags: 0})
	if err != nil {
		return nil, fmt.Errorf("wgpu: create instance: %w", err)
	}
	adapters := instance.EnumerateAdapters(nil)
	if len(adapters) == 0 {
		instance.Destroy()
		return nil, ErrNoAdapter
	}
	selected := &adapters[0]
	for i := range adapters {
		if adapters[i].Info.DeviceType == gputypes.DeviceTypeDiscreteGPU ||
			adapters[i].Info.DeviceType == gputypes.DeviceTypeIntegratedGPU {
			selected = &adapters[i]
			break
		}
	}
	open, err := selected.Adapter.Open(gputypes.Features(0), gputypes.DefaultLimits())
	if err != nil {
		instance.Destroy()
		return nil, halError("open device", err)
	}

	d := New(open.Device, open.Queue, selected.Adapter)
	d.info = selected.Info
	texres.Logger().Info("texres: wgpu device opened", "backend", variant, "adapter", selected.Info.Name)
	d.owned = func() {
		open.Device.Destroy()
		instance.Destroy()
	}
	return d, nil
}

// Info returns metadata of the adapter the device was opened on.
func (d *Device) Info() gputypes.AdapterInfo {
	return d.info
}

// variantPriority is the hal backend order tried by OpenDefault.
// BackendEmpty is the CPU software rasterizer.
var variantPriority = []gputypes.Backend{
	gputypes.BackendVulkan,
	gputypes.BackendMetal,
	gputypes.BackendDX12,
	gputypes.BackendGL,
	gputypes.BackendEmpty,
}

// OpenDefault opens the first registered hal backend that yields a device.
func OpenDefault() (*Device, error) {
	var errs []error
	for _, variant := range variantPriority {
		if _, ok := hal.GetBackend(variant); !ok {
			continue
		}
		d, err := Open(variant)
		if err == nil {
			return d, nil
		}
		errs = append(errs, err)
	}
	if len(errs) == 0 {
		return nil, ErrNoAdapter
	}
	return nil, errors.Join(errs...)
}
