package vulkan

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"
	"unsafe"

	vk "github.com/vulkan-go/vulkan"

	"github.com/gogpu/texres/gpucore"
	"github.com/gogpu/texres/internal/cache"
)

// Device implements gpucore.Device directly on Vulkan.
//
// Every submission gets a pooled binary fence; a gpucore fence value is
// reached when the binary fence of the submission that signaled it is.
//
// Thread Safety: Device is safe for concurrent use. Resource maps are
// protected by a mutex.
type Device struct {
	mu sync.RWMutex

	physical vk.PhysicalDevice
	device   vk.Device
	queue    vk.Queue
	family   uint32
	pool     vk.CommandPool
	memory   vk.PhysicalDeviceMemoryProperties
	name     string
	owned    func() // destroys the device and instance, nil for shared devices

	nextID atomic.Uint64

	images       map[gpucore.ImageID]*image
	views        map[gpucore.ViewID]vk.ImageView
	buffers      map[gpucore.BufferID]*buffer
	samplers     map[gpucore.SamplerID]vk.Sampler
	sets         map[gpucore.DescriptorSetID]descriptorSet
	framebuffers map[gpucore.FramebufferID]vk.Framebuffer
	commands     map[gpucore.CommandBufferID]*commandList
	fences       map[gpucore.FenceID]*fence

	setLayouts  *cache.Cache[int, vk.DescriptorSetLayout]
	renderPass  *cache.Cache[vk.Format, vk.RenderPass]
	descPools   []vk.DescriptorPool
	freeFences  []vk.Fence
	inflight    []*submission
	lastSubmit  *submission
	lost        bool
}

type image struct {
	img    vk.Image
	mem    vk.DeviceMemory
	size   vk.DeviceSize
	desc   gpucore.ImageDesc
	format vk.Format
	mapped []byte
}

type buffer struct {
	buf    vk.Buffer
	mem    vk.DeviceMemory
	size   int
	mapped []byte
}

type descriptorSet struct {
	set  vk.DescriptorSet
	pool vk.DescriptorPool
}

type submission struct {
	fence vk.Fence
	list  *commandList // nil for signal-only submissions
	done  bool
}

type fenceSignal struct {
	sub   *submission
	value uint64
}

type fence struct {
	value   uint64
	pending []fenceSignal
}

// New wraps an already created logical device. family is the queue family
// of queue. The device is not destroyed by Destroy.
func New(physical vk.PhysicalDevice, device vk.Device, queue vk.Queue, family uint32) (*Device, error) {
	d := &Device{
		physical:     physical,
		device:       device,
		queue:        queue,
		family:       family,
		images:       make(map[gpucore.ImageID]*image),
		views:        make(map[gpucore.ViewID]vk.ImageView),
		buffers:      make(map[gpucore.BufferID]*buffer),
		samplers:     make(map[gpucore.SamplerID]vk.Sampler),
		sets:         make(map[gpucore.DescriptorSetID]descriptorSet),
		framebuffers: make(map[gpucore.FramebufferID]vk.Framebuffer),
		commands:     make(map[gpucore.CommandBufferID]*commandList),
		fences:       make(map[gpucore.FenceID]*fence),
	}
	d.nextID.Store(1)

	vk.GetPhysicalDeviceMemoryProperties(physical, &d.memory)
	d.memory.Deref()

	var props vk.PhysicalDeviceProperties
	vk.GetPhysicalDeviceProperties(physical, &props)
	props.Deref()
	d.name = vk.ToString(props.DeviceName[:])

	poolInfo := vk.CommandPoolCreateInfo{
		SType:            vk.StructureTypeCommandPoolCreateInfo,
		QueueFamilyIndex: family,
		Flags:            vk.CommandPoolCreateFlags(vk.CommandPoolCreateResetCommandBufferBit),
	}
	if err := check("vkCreateCommandPool", vk.CreateCommandPool(device, &poolInfo, nil, &d.pool)); err != nil {
		return nil, err
	}

	d.setLayouts = cache.New(0, func(_ int, l vk.DescriptorSetLayout) {
		vk.DestroyDescriptorSetLayout(device, l, nil)
	})
	d.renderPass = cache.New(0, func(_ vk.Format, rp vk.RenderPass) {
		vk.DestroyRenderPass(device, rp, nil)
	})
	return d, nil
}

func (d *Device) newID() uint64 {
	return d.nextID.Add(1) - 1
}

// Name returns the physical device name.
func (d *Device) Name() string { return d.name }

// check converts a Vulkan result into an error wrapping the gpucore
// sentinel that matches it.
func check(op string, res vk.Result) error {
	switch res {
	case vk.Success:
		return nil
	case vk.ErrorOutOfDeviceMemory, vk.ErrorOutOfHostMemory:
		return fmt.Errorf("vulkan: %s: %w: %w", op, gpucore.ErrOutOfMemory, vk.Error(res))
	case vk.ErrorDeviceLost:
		return fmt.Errorf("vulkan: %s: %w: %w", op, gpucore.ErrDeviceLost, vk.Error(res))
	default:
		return fmt.Errorf("vulkan: %s: %w", op, vk.Error(res))
	}
}

func (d *Device) memoryType(bits uint32, props vk.MemoryPropertyFlags) (uint32, error) {
	for i := uint32(0); i < d.memory.MemoryTypeCount; i++ {
		d.memory.MemoryTypes[i].Deref()
		if bits&(1<<i) != 0 && d.memory.MemoryTypes[i].PropertyFlags&props == props {
			return i, nil
		}
	}
	return 0, fmt.Errorf("vulkan: no memory type with properties %#x: %w", props, gpucore.ErrOutOfMemory)
}

func (d *Device) allocate(req vk.MemoryRequirements, props vk.MemoryPropertyFlags) (vk.DeviceMemory, error) {
	req.Deref()
	index, err := d.memoryType(req.MemoryTypeBits, props)
	if err != nil {
		return vk.NullDeviceMemory, err
	}
	info := vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  req.Size,
		MemoryTypeIndex: index,
	}
	var mem vk.DeviceMemory
	if err := check("vkAllocateMemory", vk.AllocateMemory(d.device, &info, nil, &mem)); err != nil {
		return vk.NullDeviceMemory, err
	}
	return mem, nil
}

func (d *Device) mapMemory(mem vk.DeviceMemory, size int) ([]byte, error) {
	var ptr unsafe.Pointer
	if err := check("vkMapMemory", vk.MapMemory(d.device, mem, 0, vk.DeviceSize(size), 0, &ptr)); err != nil {
		return nil, err
	}
	return unsafe.Slice((*byte)(ptr), size), nil
}

// === Capabilities ===

// Capabilities implements gpucore.Device. Host-visible images use
// coherent memory.
func (d *Device) Capabilities() gpucore.Capabilities {
	return gpucore.Capabilities{BlitMipmaps: true, CoherentHostImages: true}
}

// FormatSupported implements gpucore.Device.
func (d *Device) FormatSupported(f gpucore.Format, usage gpucore.ImageUsage) bool {
	format, ok := vkFormat(f)
	if !ok {
		return false
	}
	var props vk.FormatProperties
	vk.GetPhysicalDeviceFormatProperties(d.physical, format, &props)
	props.Deref()
	want := formatFeatures(usage)
	return props.OptimalTilingFeatures&want == want
}

// === Images ===

// CreateImage implements gpucore.Device.
func (d *Device) CreateImage(desc *gpucore.ImageDesc) (gpucore.ImageID, error) {
	format, ok := vkFormat(desc.Format)
	if !ok {
		return gpucore.InvalidID, fmt.Errorf("vulkan: image format %s: %w", desc.Format, gpucore.ErrUnsupported)
	}
	tiling := vk.ImageTilingOptimal
	memProps := vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit)
	if desc.Linear {
		tiling = vk.ImageTilingLinear
		memProps = vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit | vk.MemoryPropertyHostCoherentBit)
	}
	info := vk.ImageCreateInfo{
		SType:     vk.StructureTypeImageCreateInfo,
		ImageType: vk.ImageType2d,
		Format:    format,
		Extent: vk.Extent3D{
			Width:  uint32(desc.Width),
			Height: uint32(desc.Height),
			Depth:  1,
		},
		MipLevels:     uint32(max(desc.MipLevels, 1)),
		ArrayLayers:   1,
		Samples:       vk.SampleCount1Bit,
		Tiling:        tiling,
		Usage:         imageUsage(desc.Usage),
		SharingMode:   vk.SharingModeExclusive,
		InitialLayout: vk.ImageLayoutUndefined,
	}
	var img vk.Image
	if err := check("vkCreateImage "+desc.Label, vk.CreateImage(d.device, &info, nil, &img)); err != nil {
		return gpucore.InvalidID, err
	}

	var req vk.MemoryRequirements
	vk.GetImageMemoryRequirements(d.device, img, &req)
	mem, err := d.allocate(req, memProps)
	if err != nil {
		vk.DestroyImage(d.device, img, nil)
		return gpucore.InvalidID, fmt.Errorf("vulkan: image %s: %w", desc.Label, err)
	}
	if err := check("vkBindImageMemory", vk.BindImageMemory(d.device, img, mem, 0)); err != nil {
		vk.DestroyImage(d.device, img, nil)
		vk.FreeMemory(d.device, mem, nil)
		return gpucore.InvalidID, err
	}

	id := gpucore.ImageID(d.newID())
	d.mu.Lock()
	d.images[id] = &image{img: img, mem: mem, size: req.Size, desc: *desc, format: format}
	d.mu.Unlock()
	return id, nil
}

// DestroyImage implements gpucore.Device.
func (d *Device) DestroyImage(id gpucore.ImageID) {
	d.mu.Lock()
	im, ok := d.images[id]
	delete(d.images, id)
	d.mu.Unlock()
	if ok {
		d.releaseImage(im)
	}
}

func (d *Device) releaseImage(im *image) {
	if im.mapped != nil {
		vk.UnmapMemory(d.device, im.mem)
	}
	vk.DestroyImage(d.device, im.img, nil)
	vk.FreeMemory(d.device, im.mem, nil)
}

func (d *Device) image(id gpucore.ImageID) (*image, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	im, ok := d.images[id]
	return im, ok
}

// CreateView implements gpucore.Device.
func (d *Device) CreateView(img gpucore.ImageID, desc *gpucore.ViewDesc) (gpucore.ViewID, error) {
	im, ok := d.image(img)
	if !ok {
		return gpucore.InvalidID, fmt.Errorf("vulkan: create view of image %d: %w", img, gpucore.ErrUnknownResource)
	}
	format := im.format
	if f, ok := vkFormat(desc.Format); ok {
		format = f
	}
	levels := uint32(max(im.desc.MipLevels, 1))
	if desc.MipLevels > 0 {
		levels = uint32(desc.MipLevels)
	}
	aspect := desc.Aspect
	if aspect == 0 {
		aspect = gpucore.AspectColor
		if im.desc.Format.IsDepthStencil() {
			aspect = gpucore.AspectDepth | gpucore.AspectStencil
		}
	}
	info := vk.ImageViewCreateInfo{
		SType:    vk.StructureTypeImageViewCreateInfo,
		Image:    im.img,
		ViewType: vk.ImageViewType2d,
		Format:   format,
		SubresourceRange: vk.ImageSubresourceRange{
			AspectMask:     aspectFlags(aspect),
			BaseMipLevel:   0,
			LevelCount:     levels,
			BaseArrayLayer: 0,
			LayerCount:     1,
		},
	}
	var view vk.ImageView
	if err := check("vkCreateImageView "+desc.Label, vk.CreateImageView(d.device, &info, nil, &view)); err != nil {
		return gpucore.InvalidID, err
	}
	id := gpucore.ViewID(d.newID())
	d.mu.Lock()
	d.views[id] = view
	d.mu.Unlock()
	return id, nil
}

// DestroyView implements gpucore.Device.
func (d *Device) DestroyView(id gpucore.ViewID) {
	d.mu.Lock()
	v, ok := d.views[id]
	delete(d.views, id)
	d.mu.Unlock()
	if ok {
		vk.DestroyImageView(d.device, v, nil)
	}
}

// ImageRowPitch implements gpucore.Device.
func (d *Device) ImageRowPitch(id gpucore.ImageID) (int, error) {
	im, ok := d.image(id)
	if !ok || !im.desc.Linear {
		return 0, fmt.Errorf("vulkan: image %d is not a linear image: %w", id, gpucore.ErrUnknownResource)
	}
	sub := vk.ImageSubresource{AspectMask: vk.ImageAspectFlags(vk.ImageAspectColorBit)}
	var layout vk.SubresourceLayout
	vk.GetImageSubresourceLayout(d.device, im.img, &sub, &layout)
	layout.Deref()
	return int(layout.RowPitch), nil
}

// MapImage implements gpucore.Device. The mapping covers the whole
// allocation and persists until the image is destroyed.
func (d *Device) MapImage(id gpucore.ImageID) ([]byte, error) {
	im, ok := d.image(id)
	if !ok || !im.desc.Linear {
		return nil, fmt.Errorf("vulkan: image %d is not a linear image: %w", id, gpucore.ErrUnknownResource)
	}
	if im.mapped == nil {
		data, err := d.mapMemory(im.mem, int(im.size))
		if err != nil {
			return nil, err
		}
		im.mapped = data
	}
	return im.mapped, nil
}

// UnmapImage implements gpucore.Device. Mappings are persistent.
func (d *Device) UnmapImage(gpucore.ImageID) {}

// FlushImage implements gpucore.Device. Linear images use coherent memory.
func (d *Device) FlushImage(gpucore.ImageID) error { return nil }

// === Buffers ===

// CreateBuffer implements gpucore.Device.
func (d *Device) CreateBuffer(size int, usage gpucore.BufferUsage) (gpucore.BufferID, error) {
	b, err := d.createBuffer(size, bufferUsage(usage), bufferMemory(usage))
	if err != nil {
		return gpucore.InvalidID, err
	}
	id := gpucore.BufferID(d.newID())
	d.mu.Lock()
	d.buffers[id] = b
	d.mu.Unlock()
	return id, nil
}

func (d *Device) createBuffer(size int, usage vk.BufferUsageFlags, props vk.MemoryPropertyFlags) (*buffer, error) {
	info := vk.BufferCreateInfo{
		SType:       vk.StructureTypeBufferCreateInfo,
		Size:        vk.DeviceSize(size),
		Usage:       usage,
		SharingMode: vk.SharingModeExclusive,
	}
	var buf vk.Buffer
	if err := check("vkCreateBuffer", vk.CreateBuffer(d.device, &info, nil, &buf)); err != nil {
		return nil, err
	}
	var req vk.MemoryRequirements
	vk.GetBufferMemoryRequirements(d.device, buf, &req)
	mem, err := d.allocate(req, props)
	if err != nil {
		vk.DestroyBuffer(d.device, buf, nil)
		return nil, err
	}
	if err := check("vkBindBufferMemory", vk.BindBufferMemory(d.device, buf, mem, 0)); err != nil {
		vk.DestroyBuffer(d.device, buf, nil)
		vk.FreeMemory(d.device, mem, nil)
		return nil, err
	}
	return &buffer{buf: buf, mem: mem, size: size}, nil
}

func (d *Device) releaseBuffer(b *buffer) {
	if b.mapped != nil {
		vk.UnmapMemory(d.device, b.mem)
	}
	vk.DestroyBuffer(d.device, b.buf, nil)
	vk.FreeMemory(d.device, b.mem, nil)
}

// DestroyBuffer implements gpucore.Device.
func (d *Device) DestroyBuffer(id gpucore.BufferID) {
	d.mu.Lock()
	b, ok := d.buffers[id]
	delete(d.buffers, id)
	d.mu.Unlock()
	if ok {
		d.releaseBuffer(b)
	}
}

func (d *Device) buffer(id gpucore.BufferID) (*buffer, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	b, ok := d.buffers[id]
	return b, ok
}

// MapBuffer implements gpucore.Device.
func (d *Device) MapBuffer(id gpucore.BufferID) ([]byte, error) {
	b, ok := d.buffer(id)
	if !ok {
		return nil, fmt.Errorf("vulkan: map buffer %d: %w", id, gpucore.ErrUnknownResource)
	}
	if b.mapped == nil {
		data, err := d.mapMemory(b.mem, b.size)
		if err != nil {
			return nil, err
		}
		b.mapped = data
	}
	return b.mapped, nil
}

// UnmapBuffer implements gpucore.Device.
func (d *Device) UnmapBuffer(id gpucore.BufferID) {
	b, ok := d.buffer(id)
	if !ok || b.mapped == nil {
		return
	}
	vk.UnmapMemory(d.device, b.mem)
	b.mapped = nil
}

// === Samplers ===

// CreateSampler implements gpucore.Device.
func (d *Device) CreateSampler(desc *gpucore.SamplerDesc) (gpucore.SamplerID, error) {
	maxLod := desc.MaxLod
	if maxLod == 0 {
		maxLod = maxLodUnclamped
	}
	info := vk.SamplerCreateInfo{
		SType:                   vk.StructureTypeSamplerCreateInfo,
		MagFilter:               filter(desc.MagFilter),
		MinFilter:               filter(desc.MinFilter),
		MipmapMode:              mipmapMode(desc.MipmapFilter),
		AddressModeU:            addressMode(desc.AddressU),
		AddressModeV:            addressMode(desc.AddressV),
		AddressModeW:            vk.SamplerAddressModeClampToEdge,
		AnisotropyEnable:        vk.False,
		MaxAnisotropy:           1,
		CompareEnable:           vk.False,
		CompareOp:               vk.CompareOpAlways,
		MinLod:                  0,
		MaxLod:                  maxLod,
		BorderColor:             vk.BorderColorIntOpaqueBlack,
		UnnormalizedCoordinates: vk.False,
	}
	var s vk.Sampler
	if err := check("vkCreateSampler "+desc.Label, vk.CreateSampler(d.device, &info, nil, &s)); err != nil {
		return gpucore.InvalidID, err
	}
	id := gpucore.SamplerID(d.newID())
	d.mu.Lock()
	d.samplers[id] = s
	d.mu.Unlock()
	return id, nil
}

// DestroySampler implements gpucore.Device.
func (d *Device) DestroySampler(id gpucore.SamplerID) {
	d.mu.Lock()
	s, ok := d.samplers[id]
	delete(d.samplers, id)
	d.mu.Unlock()
	if ok {
		vk.DestroySampler(d.device, s, nil)
	}
}

// === Descriptor sets ===

// descriptorsPerPool is the number of sets each descriptor pool holds.
const descriptorsPerPool = 256

// SetLayout returns the descriptor set layout shared by every set with n
// combined image sampler slots, for pipeline layout creation.
func (d *Device) SetLayout(n int) (vk.DescriptorSetLayout, error) {
	return d.setLayouts.GetOrCreate(n, func() (vk.DescriptorSetLayout, error) {
		bindings := make([]vk.DescriptorSetLayoutBinding, n)
		for i := range bindings {
			bindings[i] = vk.DescriptorSetLayoutBinding{
				Binding:         uint32(i),
				DescriptorType:  vk.DescriptorTypeCombinedImageSampler,
				DescriptorCount: 1,
				StageFlags:      vk.ShaderStageFlags(vk.ShaderStageFragmentBit),
			}
		}
		info := vk.DescriptorSetLayoutCreateInfo{
			SType:        vk.StructureTypeDescriptorSetLayoutCreateInfo,
			BindingCount: uint32(n),
			PBindings:    bindings,
		}
		var l vk.DescriptorSetLayout
		if err := check("vkCreateDescriptorSetLayout", vk.CreateDescriptorSetLayout(d.device, &info, nil, &l)); err != nil {
			return vk.NullDescriptorSetLayout, err
		}
		return l, nil
	})
}

func (d *Device) newDescriptorPool(slots int) (vk.DescriptorPool, error) {
	info := vk.DescriptorPoolCreateInfo{
		SType:         vk.StructureTypeDescriptorPoolCreateInfo,
		Flags:         vk.DescriptorPoolCreateFlags(vk.DescriptorPoolCreateFreeDescriptorSetBit),
		MaxSets:       descriptorsPerPool,
		PoolSizeCount: 1,
		PPoolSizes: []vk.DescriptorPoolSize{{
			Type:            vk.DescriptorTypeCombinedImageSampler,
			DescriptorCount: uint32(descriptorsPerPool * slots),
		}},
	}
	var pool vk.DescriptorPool
	if err := check("vkCreateDescriptorPool", vk.CreateDescriptorPool(d.device, &info, nil, &pool)); err != nil {
		return vk.NullDescriptorPool, err
	}
	return pool, nil
}

func (d *Device) allocateSet(pool vk.DescriptorPool, layout vk.DescriptorSetLayout) (vk.DescriptorSet, vk.Result) {
	info := vk.DescriptorSetAllocateInfo{
		SType:              vk.StructureTypeDescriptorSetAllocateInfo,
		DescriptorPool:     pool,
		DescriptorSetCount: 1,
		PSetLayouts:        []vk.DescriptorSetLayout{layout},
	}
	var set vk.DescriptorSet
	res := vk.AllocateDescriptorSets(d.device, &info, &set)
	return set, res
}

// CreateDescriptorSet implements gpucore.Device. Sets come from the newest
// pool; a new pool is created when it is exhausted.
func (d *Device) CreateDescriptorSet(label string, slots int) (gpucore.DescriptorSetID, error) {
	if slots <= 0 {
		return gpucore.InvalidID, fmt.Errorf("vulkan: descriptor set %s with %d slots", label, slots)
	}
	layout, err := d.SetLayout(slots)
	if err != nil {
		return gpucore.InvalidID, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if n := len(d.descPools); n > 0 {
		pool := d.descPools[n-1]
		if set, res := d.allocateSet(pool, layout); res == vk.Success {
			return d.addSetLocked(set, pool), nil
		}
	}
	pool, err := d.newDescriptorPool(slots)
	if err != nil {
		return gpucore.InvalidID, err
	}
	d.descPools = append(d.descPools, pool)
	set, res := d.allocateSet(pool, layout)
	if err := check("vkAllocateDescriptorSets "+label, res); err != nil {
		return gpucore.InvalidID, err
	}
	return d.addSetLocked(set, pool), nil
}

func (d *Device) addSetLocked(set vk.DescriptorSet, pool vk.DescriptorPool) gpucore.DescriptorSetID {
	id := gpucore.DescriptorSetID(d.newID())
	d.sets[id] = descriptorSet{set: set, pool: pool}
	return id
}

// WriteDescriptorSet implements gpucore.Device.
func (d *Device) WriteDescriptorSet(id gpucore.DescriptorSetID, writes []gpucore.ImageWrite) error {
	d.mu.RLock()
	set, ok := d.sets[id]
	if !ok {
		d.mu.RUnlock()
		return fmt.Errorf("vulkan: write descriptor set %d: %w", id, gpucore.ErrUnknownResource)
	}
	vkWrites := make([]vk.WriteDescriptorSet, 0, len(writes))
	for _, w := range writes {
		view, ok := d.views[w.View]
		if !ok {
			d.mu.RUnlock()
			return fmt.Errorf("vulkan: binding %d view %d: %w", w.Binding, w.View, gpucore.ErrUnknownResource)
		}
		sampler, ok := d.samplers[w.Sampler]
		if !ok {
			d.mu.RUnlock()
			return fmt.Errorf("vulkan: binding %d sampler %d: %w", w.Binding, w.Sampler, gpucore.ErrUnknownResource)
		}
		vkWrites = append(vkWrites, vk.WriteDescriptorSet{
			SType:           vk.StructureTypeWriteDescriptorSet,
			DstSet:          set.set,
			DstBinding:      uint32(w.Binding),
			DescriptorCount: 1,
			DescriptorType:  vk.DescriptorTypeCombinedImageSampler,
			PImageInfo: []vk.DescriptorImageInfo{{
				Sampler:     sampler,
				ImageView:   view,
				ImageLayout: imageLayout(w.Layout),
			}},
		})
	}
	d.mu.RUnlock()

	vk.UpdateDescriptorSets(d.device, uint32(len(vkWrites)), vkWrites, 0, nil)
	return nil
}

// DestroyDescriptorSet implements gpucore.Device.
func (d *Device) DestroyDescriptorSet(id gpucore.DescriptorSetID) {
	d.mu.Lock()
	set, ok := d.sets[id]
	delete(d.sets, id)
	d.mu.Unlock()
	if ok {
		vk.FreeDescriptorSets(d.device, set.pool, 1, &set.set)
	}
}

// DescriptorSet returns the Vulkan set behind id, for binding.
func (d *Device) DescriptorSet(id gpucore.DescriptorSetID) (vk.DescriptorSet, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	set, ok := d.sets[id]
	return set.set, ok
}

// === Framebuffers ===

// RenderPass returns the single-subpass render pass that framebuffers of
// format f are created against. The color attachment is loaded and kept
// in ColorAttachment layout.
func (d *Device) RenderPass(f gpucore.Format) (vk.RenderPass, error) {
	format, ok := vkFormat(f)
	if !ok {
		return vk.NullRenderPass, fmt.Errorf("vulkan: render pass format %s: %w", f, gpucore.ErrUnsupported)
	}
	return d.renderPass.GetOrCreate(format, func() (vk.RenderPass, error) {
		attachment := vk.AttachmentDescription{
			Format:         format,
			Samples:        vk.SampleCount1Bit,
			LoadOp:         vk.AttachmentLoadOpLoad,
			StoreOp:        vk.AttachmentStoreOpStore,
			StencilLoadOp:  vk.AttachmentLoadOpDontCare,
			StencilStoreOp: vk.AttachmentStoreOpDontCare,
			InitialLayout:  vk.ImageLayoutColorAttachmentOptimal,
			FinalLayout:    vk.ImageLayoutColorAttachmentOptimal,
		}
		ref := vk.AttachmentReference{
			Attachment: 0,
			Layout:     vk.ImageLayoutColorAttachmentOptimal,
		}
		subpass := vk.SubpassDescription{
			PipelineBindPoint:    vk.PipelineBindPointGraphics,
			ColorAttachmentCount: 1,
			PColorAttachments:    []vk.AttachmentReference{ref},
		}
		info := vk.RenderPassCreateInfo{
			SType:           vk.StructureTypeRenderPassCreateInfo,
			AttachmentCount: 1,
			PAttachments:    []vk.AttachmentDescription{attachment},
			SubpassCount:    1,
			PSubpasses:      []vk.SubpassDescription{subpass},
		}
		var rp vk.RenderPass
		if err := check("vkCreateRenderPass", vk.CreateRenderPass(d.device, &info, nil, &rp)); err != nil {
			return vk.NullRenderPass, err
		}
		return rp, nil
	})
}

// CreateFramebuffer implements gpucore.Device.
func (d *Device) CreateFramebuffer(view gpucore.ViewID, format gpucore.Format, width, height int) (gpucore.FramebufferID, error) {
	d.mu.RLock()
	v, ok := d.views[view]
	d.mu.RUnlock()
	if !ok {
		return gpucore.InvalidID, fmt.Errorf("vulkan: framebuffer view %d: %w", view, gpucore.ErrUnknownResource)
	}
	rp, err := d.RenderPass(format)
	if err != nil {
		return gpucore.InvalidID, err
	}
	info := vk.FramebufferCreateInfo{
		SType:           vk.StructureTypeFramebufferCreateInfo,
		RenderPass:      rp,
		AttachmentCount: 1,
		PAttachments:    []vk.ImageView{v},
		Width:           uint32(width),
		Height:          uint32(height),
		Layers:          1,
	}
	var fb vk.Framebuffer
	if err := check("vkCreateFramebuffer", vk.CreateFramebuffer(d.device, &info, nil, &fb)); err != nil {
		return gpucore.InvalidID, err
	}
	id := gpucore.FramebufferID(d.newID())
	d.mu.Lock()
	d.framebuffers[id] = fb
	d.mu.Unlock()
	return id, nil
}

// DestroyFramebuffer implements gpucore.Device.
func (d *Device) DestroyFramebuffer(id gpucore.FramebufferID) {
	d.mu.Lock()
	fb, ok := d.framebuffers[id]
	delete(d.framebuffers, id)
	d.mu.Unlock()
	if ok {
		vk.DestroyFramebuffer(d.device, fb, nil)
	}
}

// Framebuffer returns the Vulkan framebuffer behind id.
func (d *Device) Framebuffer(id gpucore.FramebufferID) (vk.Framebuffer, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	fb, ok := d.framebuffers[id]
	return fb, ok
}

// === Submission and fences ===

func (d *Device) acquireFence() (vk.Fence, error) {
	if n := len(d.freeFences); n > 0 {
		f := d.freeFences[n-1]
		d.freeFences = d.freeFences[:n-1]
		return f, nil
	}
	info := vk.FenceCreateInfo{SType: vk.StructureTypeFenceCreateInfo}
	var f vk.Fence
	if err := check("vkCreateFence", vk.CreateFence(d.device, &info, nil, &f)); err != nil {
		return vk.NullFence, err
	}
	return f, nil
}

// Submit implements gpucore.Device. A signal-only submission with work in
// flight submits an empty batch, which signals once all earlier work has
// completed.
func (d *Device) Submit(cmd gpucore.CommandBufferID, fenceID gpucore.FenceID, value uint64) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.lost {
		return gpucore.ErrDeviceLost
	}

	var f *fence
	if fenceID != gpucore.InvalidID {
		var ok bool
		if f, ok = d.fences[fenceID]; !ok {
			return fmt.Errorf("vulkan: signal fence %d: %w", fenceID, gpucore.ErrUnknownResource)
		}
	}

	var list *commandList
	if cmd != gpucore.InvalidID {
		var ok bool
		if list, ok = d.commands[cmd]; !ok {
			return fmt.Errorf("vulkan: submit command buffer %d: %w", cmd, gpucore.ErrUnknownResource)
		}
		delete(d.commands, cmd)
	}

	d.pollLocked()
	if list == nil && len(d.inflight) == 0 {
		if f != nil {
			f.value = max(f.value, value)
		}
		return nil
	}

	vf, err := d.acquireFence()
	if err != nil {
		if list != nil {
			d.freeList(list)
		}
		return err
	}
	if list != nil {
		info := vk.SubmitInfo{
			SType:              vk.StructureTypeSubmitInfo,
			CommandBufferCount: 1,
			PCommandBuffers:    []vk.CommandBuffer{list.cmd},
		}
		err = check("vkQueueSubmit "+list.label, vk.QueueSubmit(d.queue, 1, []vk.SubmitInfo{info}, vf))
	} else {
		err = check("vkQueueSubmit", vk.QueueSubmit(d.queue, 0, nil, vf))
	}
	if err != nil {
		d.freeFences = append(d.freeFences, vf)
		if list != nil {
			d.freeList(list)
		}
		return err
	}

	sub := &submission{fence: vf, list: list}
	d.inflight = append(d.inflight, sub)
	d.lastSubmit = sub
	if f != nil {
		f.pending = append(f.pending, fenceSignal{sub: sub, value: value})
	}
	return nil
}

// pollLocked retires completed submissions and advances fences.
func (d *Device) pollLocked() {
	n := 0
	for _, sub := range d.inflight {
		if vk.GetFenceStatus(d.device, sub.fence) == vk.Success {
			d.retireLocked(sub)
			continue
		}
		d.inflight[n] = sub
		n++
	}
	clear(d.inflight[n:])
	d.inflight = d.inflight[:n]
	d.advanceFencesLocked()
}

func (d *Device) retireLocked(sub *submission) {
	sub.done = true
	vk.ResetFences(d.device, 1, []vk.Fence{sub.fence})
	d.freeFences = append(d.freeFences, sub.fence)
	sub.fence = vk.NullFence
	if sub.list != nil {
		d.freeList(sub.list)
		sub.list = nil
	}
	if d.lastSubmit == sub {
		d.lastSubmit = nil
	}
}

func (d *Device) advanceFencesLocked() {
	for _, f := range d.fences {
		m := 0
		for _, sig := range f.pending {
			if sig.sub.done {
				f.value = max(f.value, sig.value)
				continue
			}
			f.pending[m] = sig
			m++
		}
		f.pending = f.pending[:m]
	}
}

// CreateFence implements gpucore.Device.
func (d *Device) CreateFence() (gpucore.FenceID, error) {
	id := gpucore.FenceID(d.newID())
	d.mu.Lock()
	d.fences[id] = &fence{}
	d.mu.Unlock()
	return id, nil
}

// DestroyFence implements gpucore.Device.
func (d *Device) DestroyFence(id gpucore.FenceID) {
	d.mu.Lock()
	delete(d.fences, id)
	d.mu.Unlock()
}

// Wait implements gpucore.Device.
func (d *Device) Wait(id gpucore.FenceID, value uint64, timeout time.Duration) (bool, error) {
	d.mu.Lock()
	f, ok := d.fences[id]
	if !ok {
		d.mu.Unlock()
		return false, fmt.Errorf("vulkan: wait on fence %d: %w", id, gpucore.ErrUnknownResource)
	}
	d.pollLocked()
	if f.value >= value {
		d.mu.Unlock()
		return true, nil
	}
	var target vk.Fence
	for _, sig := range f.pending {
		if sig.value >= value {
			target = sig.sub.fence
			break
		}
	}
	d.mu.Unlock()

	if target == vk.NullFence || timeout <= 0 {
		return false, nil
	}
	res := vk.WaitForFences(d.device, 1, []vk.Fence{target}, vk.True, uint64(timeout.Nanoseconds()))
	switch res {
	case vk.Success:
	case vk.Timeout:
		return false, nil
	default:
		return false, check("vkWaitForFences", res)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.pollLocked()
	return f.value >= value, nil
}

// WaitIdle implements gpucore.Device.
func (d *Device) WaitIdle() error {
	if err := check("vkQueueWaitIdle", vk.QueueWaitIdle(d.queue)); err != nil {
		return err
	}
	d.mu.Lock()
	d.pollLocked()
	d.mu.Unlock()
	return nil
}

// Destroy implements gpucore.Device. Every resource still registered is
// released; the logical device only when Open created it.
func (d *Device) Destroy() {
	d.mu.Lock()
	if d.lost {
		d.mu.Unlock()
		return
	}
	d.lost = true
	vk.DeviceWaitIdle(d.device)
	for _, sub := range d.inflight {
		d.retireLocked(sub)
	}
	d.inflight = nil
	for id, list := range d.commands {
		d.freeList(list)
		delete(d.commands, id)
	}
	for id, fb := range d.framebuffers {
		vk.DestroyFramebuffer(d.device, fb, nil)
		delete(d.framebuffers, id)
	}
	clear(d.sets)
	for _, pool := range d.descPools {
		vk.DestroyDescriptorPool(d.device, pool, nil)
	}
	d.descPools = nil
	for id, v := range d.views {
		vk.DestroyImageView(d.device, v, nil)
		delete(d.views, id)
	}
	for id, im := range d.images {
		d.releaseImage(im)
		delete(d.images, id)
	}
	for id, b := range d.buffers {
		d.releaseBuffer(b)
		delete(d.buffers, id)
	}
	for id, s := range d.samplers {
		vk.DestroySampler(d.device, s, nil)
		delete(d.samplers, id)
	}
	for _, f := range d.freeFences {
		vk.DestroyFence(d.device, f, nil)
	}
	d.freeFences = nil
	clear(d.fences)
	d.mu.Unlock()

	d.setLayouts.Clear()
	d.renderPass.Clear()
	vk.DestroyCommandPool(d.device, d.pool, nil)
	if d.owned != nil {
		d.owned()
		d.owned = nil
	}
}

var _ gpucore.Device = (*Device)(nil)
