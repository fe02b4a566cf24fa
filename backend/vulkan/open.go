package vulkan

import (
	"errors"
	"fmt"
	"sync"

	vk "github.com/vulkan-go/vulkan"

	"github.com/gogpu/texres"
)

// ErrNoDevice is returned by Open when no physical device has a graphics
// queue.
var ErrNoDevice = errors.New("vulkan: no physical device with a graphics queue")

var (
	loaderOnce sync.Once
	loaderErr  error
)

// loadLoader resolves the Vulkan loader once per process.
func loadLoader() error {
	loaderOnce.Do(func() {
		if err := vk.SetDefaultGetInstanceProcAddr(); err != nil {
			loaderErr = fmt.Errorf("vulkan: load library: %w", err)
			return
		}
		if err := vk.Init(); err != nil {
			loaderErr = fmt.Errorf("vulkan: init loader: %w", err)
		}
	})
	return loaderErr
}

// Open creates a headless instance and logical device on the best physical
// device. Discrete GPUs are preferred over integrated ones, then any device
// with a graphics queue. The returned Device owns the instance.
func Open(appName string) (*Device, error) {
	if err := loadLoader(); err != nil {
		return nil, err
	}

	appInfo := vk.ApplicationInfo{
		SType:              vk.StructureTypeApplicationInfo,
		PApplicationName:   appName + "\x00",
		ApplicationVersion: vk.MakeVersion(1, 0, 0),
		PEngineName:        "texres\x00",
		EngineVersion:      vk.MakeVersion(1, 0, 0),
		ApiVersion:         vk.MakeVersion(1, 1, 0),
	}
	createInfo := vk.InstanceCreateInfo{
		SType:            vk.StructureTypeInstanceCreateInfo,
		PApplicationInfo: &appInfo,
	}
	var instance vk.Instance
	if err := check("vkCreateInstance", vk.CreateInstance(&createInfo, nil, &instance)); err != nil {
		return nil, err
	}
	if err := vk.InitInstance(instance); err != nil {
		vk.DestroyInstance(instance, nil)
		return nil, fmt.Errorf("vulkan: init instance: %w", err)
	}

	physical, family, err := selectPhysicalDevice(instance)
	if err != nil {
		vk.DestroyInstance(instance, nil)
		return nil, err
	}

	queueInfo := vk.DeviceQueueCreateInfo{
		SType:            vk.StructureTypeDeviceQueueCreateInfo,
		QueueFamilyIndex: family,
		QueueCount:       1,
		PQueuePriorities: []float32{1.0},
	}
	deviceInfo := vk.DeviceCreateInfo{
		SType:                vk.StructureTypeDeviceCreateInfo,
		QueueCreateInfoCount: 1,
		PQueueCreateInfos:    []vk.DeviceQueueCreateInfo{queueInfo},
	}
	var device vk.Device
	if err := check("vkCreateDevice", vk.CreateDevice(physical, &deviceInfo, nil, &device)); err != nil {
		vk.DestroyInstance(instance, nil)
		return nil, err
	}
	var queue vk.Queue
	vk.GetDeviceQueue(device, family, 0, &queue)

	d, err := New(physical, device, queue, family)
	if err != nil {
		vk.DestroyDevice(device, nil)
		vk.DestroyInstance(instance, nil)
		return nil, err
	}
	d.owned = func() {
		vk.DestroyDevice(device, nil)
		vk.DestroyInstance(instance, nil)
	}
	texres.Logger().Info("texres: vulkan device opened", "device", d.name, "queueFamily", family)
	return d, nil
}

func selectPhysicalDevice(instance vk.Instance) (vk.PhysicalDevice, uint32, error) {
	var count uint32
	if err := check("vkEnumeratePhysicalDevices", vk.EnumeratePhysicalDevices(instance, &count, nil)); err != nil {
		return nil, 0, err
	}
	if count == 0 {
		return nil, 0, ErrNoDevice
	}
	devices := make([]vk.PhysicalDevice, count)
	if err := check("vkEnumeratePhysicalDevices", vk.EnumeratePhysicalDevices(instance, &count, devices)); err != nil {
		return nil, 0, err
	}

	var (
		best       vk.PhysicalDevice
		bestFamily uint32
		bestRank   = -1
	)
	for _, dev := range devices {
		family, ok := graphicsFamily(dev)
		if !ok {
			continue
		}
		var props vk.PhysicalDeviceProperties
		vk.GetPhysicalDeviceProperties(dev, &props)
		props.Deref()
		if rank := deviceRank(props.DeviceType); rank > bestRank {
			best, bestFamily, bestRank = dev, family, rank
		}
	}
	if bestRank < 0 {
		return nil, 0, ErrNoDevice
	}
	return best, bestFamily, nil
}

func graphicsFamily(dev vk.PhysicalDevice) (uint32, bool) {
	var count uint32
	vk.GetPhysicalDeviceQueueFamilyProperties(dev, &count, nil)
	families := make([]vk.QueueFamilyProperties, count)
	vk.GetPhysicalDeviceQueueFamilyProperties(dev, &count, families)
	for i, qf := range families {
		qf.Deref()
		if qf.QueueFlags&vk.QueueFlags(vk.QueueGraphicsBit) != 0 {
			return uint32(i), true
		}
	}
	return 0, false
}

func deviceRank(t vk.PhysicalDeviceType) int {
	switch t {
	case vk.PhysicalDeviceTypeDiscreteGpu:
		return 3
	case vk.PhysicalDeviceTypeIntegratedGpu:
		return 2
	case vk.PhysicalDeviceTypeVirtualGpu:
		return 1
	default:
		return 0
	}
}
