package wgpu

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
	"unsafe"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/texres/gpucore"
	"github.com/gogpu/texres/internal/cache"
	"github.com/gogpu/wgpu/hal"
)

// Device implements gpucore.Device on top of gogpu/wgpu/hal.
//
// WebGPU has no explicit image layouts, no linear host-visible images and
// no blits, so:
//   - layouts become texture usage transitions,
//   - linear images are emulated with a host shadow uploaded by FlushImage,
//   - mip chains are generated on the CPU (Capabilities.BlitMipmaps is false),
//   - buffer to image copies go through Queue.WriteTexture, which has no
//     row alignment requirement, in submission order.
//
// Thread Safety: Device is safe for concurrent use. Resource maps are
// protected by a mutex.
type Device struct {
	mu      sync.RWMutex
	device  hal.Device
	queue   hal.Queue
	adapter hal.Adapter // optional, used for format capability queries
	owned   func()      // releases an owned device, nil for shared devices
	info    gputypes.AdapterInfo

	nextID atomic.Uint64

	textures     map[gpucore.ImageID]*texture
	views        map[gpucore.ViewID]hal.TextureView
	buffers      map[gpucore.BufferID]*buffer
	samplers     map[gpucore.SamplerID]hal.Sampler
	sets         map[gpucore.DescriptorSetID]*descriptorSet
	framebuffers map[gpucore.FramebufferID]framebuffer
	commands     map[gpucore.CommandBufferID]*commandList
	fences       map[gpucore.FenceID]*fence

	// layouts holds one bind group layout per slot count.
	layouts *cache.Cache[int, hal.BindGroupLayout]

	// inflight holds submitted command buffers until the queue reports
	// their submission complete.
	inflight   []submitted
	lastSubmit uint64

	lost bool
}

type texture struct {
	tex    hal.Texture
	desc   gpucore.ImageDesc
	format gputypes.TextureFormat

	// shadow is the host copy of a linear image.
	shadow []byte
	pitch  int
}

type buffer struct {
	buf  hal.Buffer
	size int
	data []byte
}

type descriptorSet struct {
	label   string
	slots   int
	writes  []gpucore.ImageWrite
	written []bool
	group   hal.BindGroup
}

type framebuffer struct {
	view          gpucore.ViewID
	format        gpucore.Format
	width, height int
}

type submitted struct {
	index uint64
	cmd   hal.CommandBuffer
}

type fenceSignal struct {
	index uint64
	value uint64
}

type fence struct {
	value   uint64
	pending []fenceSignal
}

// New wraps an opened hal device and queue. adapter may be nil.
// The device is not destroyed by Destroy; its owner keeps that
// responsibility.
func New(device hal.Device, queue hal.Queue, adapter hal.Adapter) *Device {
	d := &Device{
		device:       device,
		queue:        queue,
		adapter:      adapter,
		textures:     make(map[gpucore.ImageID]*texture),
		views:        make(map[gpucore.ViewID]hal.TextureView),
		buffers:      make(map[gpucore.BufferID]*buffer),
		samplers:     make(map[gpucore.SamplerID]hal.Sampler),
		sets:         make(map[gpucore.DescriptorSetID]*descriptorSet),
		framebuffers: make(map[gpucore.FramebufferID]framebuffer),
		commands:     make(map[gpucore.CommandBufferID]*commandList),
		fences:       make(map[gpucore.FenceID]*fence),
	}
	d.layouts = cache.New(0, func(_ int, l hal.BindGroupLayout) {
		device.DestroyBindGroupLayout(l)
	})
	// Start ID generation at 1 (0 is invalid)
	d.nextID.Store(1)
	return d
}

func (d *Device) newID() uint64 {
	return d.nextID.Add(1) - 1
}

// HAL returns the wrapped hal device and queue.
func (d *Device) HAL() (hal.Device, hal.Queue) {
	return d.device, d.queue
}

// halError maps hal errors onto gpucore sentinels.
func halError(op string, err error) error {
	switch {
	case errors.Is(err, hal.ErrDeviceOutOfMemory):
		return fmt.Errorf("wgpu: %s: %w: %w", op, gpucore.ErrOutOfMemory, err)
	case errors.Is(err, hal.ErrDeviceLost):
		return fmt.Errorf("wgpu: %s: %w: %w", op, gpucore.ErrDeviceLost, err)
	default:
		return fmt.Errorf("wgpu: %s: %w", op, err)
	}
}

// === Capabilities ===

// Capabilities implements gpucore.Device.
func (d *Device) Capabilities() gpucore.Capabilities {
	return gpucore.Capabilities{}
}

// FormatSupported implements gpucore.Device.
func (d *Device) FormatSupported(f gpucore.Format, usage gpucore.ImageUsage) bool {
	tf, ok := textureFormat(f)
	if !ok {
		return false
	}
	if d.adapter == nil {
		// WebGPU guarantees sampling for every format here; snorm formats
		// are not renderable.
		return f != gpucore.FormatRGBA16Snorm || usage&gpucore.ImageUsageColorAttachment == 0
	}
	caps := d.adapter.TextureFormatCapabilities(tf).Flags
	if usage&gpucore.ImageUsageSampled != 0 && caps&hal.TextureFormatCapabilitySampled == 0 {
		return false
	}
	if usage&gpucore.ImageUsageStorage != 0 && caps&hal.TextureFormatCapabilityStorage == 0 {
		return false
	}
	attach := gpucore.ImageUsageColorAttachment | gpucore.ImageUsageDepthStencilAttachment
	if usage&attach != 0 && caps&hal.TextureFormatCapabilityRenderAttachment == 0 {
		return false
	}
	return true
}

// === Images ===

// CreateImage implements gpucore.Device.
func (d *Device) CreateImage(desc *gpucore.ImageDesc) (gpucore.ImageID, error) {
	format, ok := textureFormat(desc.Format)
	if !ok {
		return gpucore.InvalidID, fmt.Errorf("wgpu: image format %s: %w", desc.Format, gpucore.ErrUnsupported)
	}
	usage := textureUsage(desc.Usage)
	if desc.Linear {
		usage |= gputypes.TextureUsageCopyDst
	}
	tex, err := d.device.CreateTexture(&hal.TextureDescriptor{
		Label: desc.Label,
		Size: hal.Extent3D{
			Width:              uint32(desc.Width),
			Height:             uint32(desc.Height),
			DepthOrArrayLayers: 1,
		},
		MipLevelCount: uint32(max(desc.MipLevels, 1)),
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        format,
		Usage:         usage,
	})
	if err != nil {
		return gpucore.InvalidID, halError("create texture "+desc.Label, err)
	}

	t := &texture{tex: tex, desc: *desc, format: format}
	if desc.Linear {
		t.pitch = alignRow(desc.Width * desc.Format.BytesPerTexel())
		t.shadow = make([]byte, t.pitch*desc.Height)
	}
	id := gpucore.ImageID(d.newID())

	d.mu.Lock()
	d.textures[id] = t
	d.mu.Unlock()
	return id, nil
}

// DestroyImage implements gpucore.Device.
func (d *Device) DestroyImage(id gpucore.ImageID) {
	d.mu.Lock()
	t, ok := d.textures[id]
	delete(d.textures, id)
	d.mu.Unlock()
	if ok {
		d.device.DestroyTexture(t.tex)
	}
}

func (d *Device) texture(id gpucore.ImageID) (*texture, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	t, ok := d.textures[id]
	return t, ok
}

// CreateView implements gpucore.Device.
func (d *Device) CreateView(img gpucore.ImageID, desc *gpucore.ViewDesc) (gpucore.ViewID, error) {
	t, ok := d.texture(img)
	if !ok {
		return gpucore.InvalidID, fmt.Errorf("wgpu: create view of image %d: %w", img, gpucore.ErrUnknownResource)
	}
	format := t.format
	if desc.Format != gpucore.FormatUndefined {
		if f, ok := textureFormat(desc.Format); ok {
			format = f
		}
	}
	view, err := d.device.CreateTextureView(t.tex, &hal.TextureViewDescriptor{
		Label:         desc.Label,
		Format:        format,
		Dimension:     gputypes.TextureViewDimension2D,
		Aspect:        textureAspect(desc.Aspect),
		MipLevelCount: uint32(max(desc.MipLevels, 0)),
	})
	if err != nil {
		return gpucore.InvalidID, halError("create view "+desc.Label, err)
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
		d.device.DestroyTextureView(v)
	}
}

// View returns the hal view behind id, for render passes drawing with
// texres images.
func (d *Device) View(id gpucore.ViewID) (hal.TextureView, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	v, ok := d.views[id]
	return v, ok
}

func (d *Device) linear(id gpucore.ImageID) (*texture, error) {
	t, ok := d.texture(id)
	if !ok || t.shadow == nil {
		return nil, fmt.Errorf("wgpu: image %d is not a linear image: %w", id, gpucore.ErrUnknownResource)
	}
	return t, nil
}

// ImageRowPitch implements gpucore.Device.
func (d *Device) ImageRowPitch(id gpucore.ImageID) (int, error) {
	t, err := d.linear(id)
	if err != nil {
		return 0, err
	}
	return t.pitch, nil
}

// MapImage implements gpucore.Device. The mapping is the host shadow of
// the image.
func (d *Device) MapImage(id gpucore.ImageID) ([]byte, error) {
	t, err := d.linear(id)
	if err != nil {
		return nil, err
	}
	return t.shadow, nil
}

// UnmapImage implements gpucore.Device.
func (d *Device) UnmapImage(gpucore.ImageID) {}

// FlushImage implements gpucore.Device by uploading the shadow.
func (d *Device) FlushImage(id gpucore.ImageID) error {
	t, err := d.linear(id)
	if err != nil {
		return err
	}
	err = d.queue.WriteTexture(
		&hal.ImageCopyTexture{Texture: t.tex, Aspect: gputypes.TextureAspectAll},
		t.shadow,
		&hal.ImageDataLayout{BytesPerRow: uint32(t.pitch), RowsPerImage: uint32(t.desc.Height)},
		&hal.Extent3D{Width: uint32(t.desc.Width), Height: uint32(t.desc.Height), DepthOrArrayLayers: 1},
	)
	if err != nil {
		return halError("flush linear image", err)
	}
	return nil
}

// === Buffers ===

// CreateBuffer implements gpucore.Device.
func (d *Device) CreateBuffer(size int, usage gpucore.BufferUsage) (gpucore.BufferID, error) {
	buf, err := d.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "texres buffer",
		Size:  uint64(size),
		Usage: bufferUsage(usage),
	})
	if err != nil {
		return gpucore.InvalidID, halError("create buffer", err)
	}
	id := gpucore.BufferID(d.newID())

	d.mu.Lock()
	d.buffers[id] = &buffer{buf: buf, size: size}
	d.mu.Unlock()
	return id, nil
}

// DestroyBuffer implements gpucore.Device.
func (d *Device) DestroyBuffer(id gpucore.BufferID) {
	d.mu.Lock()
	b, ok := d.buffers[id]
	delete(d.buffers, id)
	d.mu.Unlock()
	if !ok {
		return
	}
	if b.data != nil {
		_ = d.device.UnmapBuffer(b.buf)
	}
	d.device.DestroyBuffer(b.buf)
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
		return nil, fmt.Errorf("wgpu: map buffer %d: %w", id, gpucore.ErrUnknownResource)
	}
	if b.data == nil {
		m, err := d.device.MapBuffer(b.buf, 0, uint64(b.size))
		if err != nil {
			return nil, halError("map buffer", err)
		}
		b.data = unsafe.Slice((*byte)(m.Ptr), b.size)
	}
	return b.data, nil
}

// UnmapBuffer implements gpucore.Device. The mapping stays cached: the
// queue reads staged texels from it when the copy executes.
func (d *Device) UnmapBuffer(gpucore.BufferID) {}

// === Samplers ===

// CreateSampler implements gpucore.Device.
func (d *Device) CreateSampler(desc *gpucore.SamplerDesc) (gpucore.SamplerID, error) {
	maxLod := desc.MaxLod
	if maxLod == 0 {
		maxLod = maxLodUnclamped
	}
	s, err := d.device.CreateSampler(&hal.SamplerDescriptor{
		Label:        desc.Label,
		AddressModeU: addressMode(desc.AddressU),
		AddressModeV: addressMode(desc.AddressV),
		AddressModeW: gputypes.AddressModeClampToEdge,
		MagFilter:    filterMode(desc.MagFilter),
		MinFilter:    filterMode(desc.MinFilter),
		MipmapFilter: filterMode(desc.MipmapFilter),
		LodMaxClamp:  maxLod,
		Anisotropy:   1,
	})
	if err != nil {
		return gpucore.InvalidID, halError("create sampler "+desc.Label, err)
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
		d.device.DestroySampler(s)
	}
}

// === Descriptor sets ===

// bindGroupLayout returns the layout for a set of n combined slots. Slot i
// uses binding 2i for the texture and 2i+1 for the sampler.
func (d *Device) bindGroupLayout(n int) (hal.BindGroupLayout, error) {
	return d.layouts.GetOrCreate(n, func() (hal.BindGroupLayout, error) {
		entries := make([]gputypes.BindGroupLayoutEntry, 0, 2*n)
		for i := 0; i < n; i++ {
			entries = append(entries,
				gputypes.BindGroupLayoutEntry{
					Binding:    uint32(2 * i),
					Visibility: gputypes.ShaderStageFragment,
					Texture: &gputypes.TextureBindingLayout{
						SampleType:    gputypes.TextureSampleTypeFloat,
						ViewDimension: gputypes.TextureViewDimension2D,
					},
				},
				gputypes.BindGroupLayoutEntry{
					Binding:    uint32(2*i + 1),
					Visibility: gputypes.ShaderStageFragment,
					Sampler:    &gputypes.SamplerBindingLayout{Type: gputypes.SamplerBindingTypeFiltering},
				},
			)
		}
		l, err := d.device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
			Label:   fmt.Sprintf("texres material layout (%d)", n),
			Entries: entries,
		})
		if err != nil {
			return nil, halError("create bind group layout", err)
		}
		return l, nil
	})
}

// BindGroupLayout returns the layout shared by every descriptor set with
// the given number of slots, for pipeline layout creation.
func (d *Device) BindGroupLayout(slots int) (hal.BindGroupLayout, error) {
	return d.bindGroupLayout(slots)
}

// CreateDescriptorSet implements gpucore.Device. The bind group is created
// once every slot has been written.
func (d *Device) CreateDescriptorSet(label string, slots int) (gpucore.DescriptorSetID, error) {
	if slots <= 0 {
		return gpucore.InvalidID, fmt.Errorf("wgpu: descriptor set with %d slots", slots)
	}
	if _, err := d.bindGroupLayout(slots); err != nil {
		return gpucore.InvalidID, err
	}
	id := gpucore.DescriptorSetID(d.newID())

	d.mu.Lock()
	d.sets[id] = &descriptorSet{
		label:   label,
		slots:   slots,
		writes:  make([]gpucore.ImageWrite, slots),
		written: make([]bool, slots),
	}
	d.mu.Unlock()
	return id, nil
}

// WriteDescriptorSet implements gpucore.Device.
func (d *Device) WriteDescriptorSet(id gpucore.DescriptorSetID, writes []gpucore.ImageWrite) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	set, ok := d.sets[id]
	if !ok {
		return fmt.Errorf("wgpu: write descriptor set %d: %w", id, gpucore.ErrUnknownResource)
	}
	for _, w := range writes {
		if w.Binding < 0 || w.Binding >= set.slots {
			return fmt.Errorf("wgpu: binding %d outside set of %d slots", w.Binding, set.slots)
		}
		set.writes[w.Binding] = w
		set.written[w.Binding] = true
	}
	for _, done := range set.written {
		if !done {
			return nil
		}
	}

	entries := make([]gputypes.BindGroupEntry, 0, 2*set.slots)
	for i, w := range set.writes {
		view, ok := d.views[w.View]
		if !ok {
			return fmt.Errorf("wgpu: slot %d view %d: %w", i, w.View, gpucore.ErrUnknownResource)
		}
		sampler, ok := d.samplers[w.Sampler]
		if !ok {
			return fmt.Errorf("wgpu: slot %d sampler %d: %w", i, w.Sampler, gpucore.ErrUnknownResource)
		}
		entries = append(entries,
			gputypes.BindGroupEntry{Binding: uint32(2 * i), Resource: gputypes.TextureViewBinding{TextureView: view.NativeHandle()}},
			gputypes.BindGroupEntry{Binding: uint32(2*i + 1), Resource: gputypes.SamplerBinding{Sampler: sampler.NativeHandle()}},
		)
	}
	layout, _ := d.layouts.Get(set.slots)
	group, err := d.device.CreateBindGroup(&hal.BindGroupDescriptor{
		Label:   set.label,
		Layout:  layout,
		Entries: entries,
	})
	if err != nil {
		return halError("create bind group "+set.label, err)
	}
	if set.group != nil {
		d.device.DestroyBindGroup(set.group)
	}
	set.group = group
	return nil
}

// DestroyDescriptorSet implements gpucore.Device.
func (d *Device) DestroyDescriptorSet(id gpucore.DescriptorSetID) {
	d.mu.Lock()
	set, ok := d.sets[id]
	delete(d.sets, id)
	d.mu.Unlock()
	if ok && set.group != nil {
		d.device.DestroyBindGroup(set.group)
	}
}

// BindGroup returns the bind group of a fully written descriptor set.
func (d *Device) BindGroup(id gpucore.DescriptorSetID) (hal.BindGroup, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	set, ok := d.sets[id]
	if !ok || set.group == nil {
		return nil, false
	}
	return set.group, true
}

// === Framebuffers ===

// CreateFramebuffer implements gpucore.Device. WebGPU render passes take
// views directly, so a framebuffer is a record of its attachment.
func (d *Device) CreateFramebuffer(view gpucore.ViewID, format gpucore.Format, width, height int) (gpucore.FramebufferID, error) {
	if _, ok := d.View(view); !ok {
		return gpucore.InvalidID, fmt.Errorf("wgpu: framebuffer view %d: %w", view, gpucore.ErrUnknownResource)
	}
	id := gpucore.FramebufferID(d.newID())

	d.mu.Lock()
	d.framebuffers[id] = framebuffer{view: view, format: format, width: width, height: height}
	d.mu.Unlock()
	return id, nil
}

// DestroyFramebuffer implements gpucore.Device.
func (d *Device) DestroyFramebuffer(id gpucore.FramebufferID) {
	d.mu.Lock()
	delete(d.framebuffers, id)
	d.mu.Unlock()
}

// ColorAttachment returns the render pass attachment of a framebuffer.
func (d *Device) ColorAttachment(id gpucore.FramebufferID, load gputypes.LoadOp) (hal.RenderPassColorAttachment, error) {
	d.mu.RLock()
	fb, ok := d.framebuffers[id]
	view := d.views[fb.view]
	d.mu.RUnlock()
	if !ok || view == nil {
		return hal.RenderPassColorAttachment{}, fmt.Errorf("wgpu: framebuffer %d: %w", id, gpucore.ErrUnknownResource)
	}
	return hal.RenderPassColorAttachment{
		View:    view,
		LoadOp:  load,
		StoreOp: gputypes.StoreOpStore,
	}, nil
}

// === Submission and fences ===

// Submit implements gpucore.Device.
func (d *Device) Submit(cmd gpucore.CommandBufferID, fenceID gpucore.FenceID, value uint64) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.lost {
		return gpucore.ErrDeviceLost
	}

	if cmd != gpucore.InvalidID {
		list, ok := d.commands[cmd]
		if !ok {
			return fmt.Errorf("wgpu: submit command buffer %d: %w", cmd, gpucore.ErrUnknownResource)
		}
		delete(d.commands, cmd)
		if err := d.execute(list); err != nil {
			return err
		}
	}

	if fenceID != gpucore.InvalidID {
		f, ok := d.fences[fenceID]
		if !ok {
			return fmt.Errorf("wgpu: signal fence %d: %w", fenceID, gpucore.ErrUnknownResource)
		}
		f.pending = append(f.pending, fenceSignal{index: d.lastSubmit, value: value})
	}
	d.pollLocked()
	return nil
}

// execute runs the steps of a command list in order. Must hold d.mu.
func (d *Device) execute(list *commandList) error {
	for i, s := range list.steps {
		if s.cmd != nil {
			index, err := d.queue.Submit([]hal.CommandBuffer{s.cmd})
			if err != nil {
				for _, rest := range list.steps[i:] {
					if rest.cmd != nil {
						d.device.FreeCommandBuffer(rest.cmd)
					}
				}
				return halError("submit "+list.label, err)
			}
			d.lastSubmit = index
			d.inflight = append(d.inflight, submitted{index: index, cmd: s.cmd})
			continue
		}
		w := s.write
		if err := d.queue.WriteTexture(&w.dst, w.data, &w.layout, &w.size); err != nil {
			return halError("write texture "+list.label, err)
		}
	}
	return nil
}

// pollLocked retires completed command buffers and advances fences.
func (d *Device) pollLocked() {
	completed := d.queue.PollCompleted()

	n := 0
	for _, s := range d.inflight {
		if s.index <= completed {
			d.device.FreeCommandBuffer(s.cmd)
			continue
		}
		d.inflight[n] = s
		n++
	}
	d.inflight = d.inflight[:n]

	for _, f := range d.fences {
		m := 0
		for _, sig := range f.pending {
			if sig.index <= completed {
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

// pollInterval is the sleep between completion polls of a blocking Wait.
const pollInterval = 200 * time.Microsecond

// Wait implements gpucore.Device.
func (d *Device) Wait(id gpucore.FenceID, value uint64, timeout time.Duration) (bool, error) {
	deadline := time.Now().Add(timeout)
	for {
		d.mu.Lock()
		f, ok := d.fences[id]
		if !ok {
			d.mu.Unlock()
			return false, fmt.Errorf("wgpu: wait on fence %d: %w", id, gpucore.ErrUnknownResource)
		}
		d.pollLocked()
		reached := f.value >= value
		d.mu.Unlock()

		if reached {
			return true, nil
		}
		if timeout <= 0 || time.Now().After(deadline) {
			return false, nil
		}
		time.Sleep(pollInterval)
	}
}

// WaitIdle implements gpucore.Device.
func (d *Device) WaitIdle() error {
	if err := d.device.WaitIdle(); err != nil {
		return halError("wait idle", err)
	}
	d.mu.Lock()
	d.pollLocked()
	d.mu.Unlock()
	return nil
}

// Destroy implements gpucore.Device. Every resource still registered is
// released; the hal device itself is released only when it was opened by
// this package.
func (d *Device) Destroy() {
	_ = d.device.WaitIdle()

	d.mu.Lock()
	d.pollLocked()
	for _, s := range d.inflight {
		d.device.FreeCommandBuffer(s.cmd)
	}
	d.inflight = nil
	for id, list := range d.commands {
		list.free(d.device)
		delete(d.commands, id)
	}
	for id, set := range d.sets {
		if set.group != nil {
			d.device.DestroyBindGroup(set.group)
		}
		delete(d.sets, id)
	}
	for id, v := range d.views {
		d.device.DestroyTextureView(v)
		delete(d.views, id)
	}
	for id, t := range d.textures {
		d.device.DestroyTexture(t.tex)
		delete(d.textures, id)
	}
	for id, b := range d.buffers {
		d.device.DestroyBuffer(b.buf)
		delete(d.buffers, id)
	}
	for id, s := range d.samplers {
		d.device.DestroySampler(s)
		delete(d.samplers, id)
	}
	clear(d.framebuffers)
	clear(d.fences)
	d.lost = true
	d.mu.Unlock()

	d.layouts.Clear()
	if d.owned != nil {
		d.owned()
		d.owned = nil
	}
}

// Stats reports live resource counts.
type Stats struct {
	Textures, Views, Buffers, Samplers, DescriptorSets, Layouts, InFlight int
}

// Stats returns live resource counts.
func (d *Device) Stats() Stats {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return Stats{
		Textures:       len(d.textures),
		Views:          len(d.views),
		Buffers:        len(d.buffers),
		Samplers:       len(d.samplers),
		DescriptorSets: len(d.sets),
		Layouts:        d.layouts.Len(),
		InFlight:       len(d.inflight),
	}
}

var _ gpucore.Device = (*Device)(nil)
