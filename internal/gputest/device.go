// Package gputest provides an in-memory gpucore.Device that records every
// call, and a manually driven frame pacer, for tests.
package gputest

import (
	"errors"
	"fmt"
	"time"

	"github.com/gogpu/texres/gpucore"
)

// RowAlignment is the row pitch alignment of linear images.
const RowAlignment = 64

// ErrInjected is returned by calls configured to fail.
var ErrInjected = errors.New("gputest: injected failure")

// Image is the recorded state of a created image.
type Image struct {
	Desc   gpucore.ImageDesc
	Pitch  int
	Mapped []byte
	Levels [][]byte
}

// Copy is a recorded buffer to image copy.
type Copy struct {
	Buffer gpucore.BufferID
	Image  gpucore.ImageID
	Region gpucore.CopyRegion
	Data   []byte
}

// Submission is a recorded Submit call.
type Submission struct {
	Cmd   gpucore.CommandBufferID
	Fence gpucore.FenceID
	Value uint64
}

// Device is a recording gpucore.Device. Submitted work completes
// immediately unless HoldFences is set.
type Device struct {
	Caps gpucore.Capabilities

	// Unsupported lists formats FormatSupported rejects.
	Unsupported map[gpucore.Format]bool

	// FailCreateImage makes CreateImage fail after that many successful
	// calls when positive.
	FailCreateImage int

	// HoldFences keeps fences at their current value until Release.
	HoldFences bool

	nextID uint64

	Images         map[gpucore.ImageID]*Image
	Views          map[gpucore.ViewID]gpucore.ImageID
	Buffers        map[gpucore.BufferID][]byte
	Samplers       map[gpucore.SamplerID]gpucore.SamplerDesc
	Sets           map[gpucore.DescriptorSetID][]gpucore.ImageWrite
	SetSlots       map[gpucore.DescriptorSetID]int
	Framebuffers   map[gpucore.FramebufferID]gpucore.ViewID
	Fences         map[gpucore.FenceID]uint64
	pendingSignals map[gpucore.FenceID]uint64

	Barriers    []gpucore.Barrier
	Copies      []Copy
	Blits       []gpucore.BlitRegion
	Clears      []gpucore.ImageID
	Submissions []Submission
	Waits       int
	IdleWaits   int

	// Destroyed counts destroy calls per id (all kinds share one id space).
	Destroyed map[uint64]int

	Calls map[string]int
}

// NewDevice creates an empty recording device.
func NewDevice() *Device {
	return &Device{
		Caps:           gpucore.Capabilities{CoherentHostImages: true},
		Unsupported:    make(map[gpucore.Format]bool),
		Images:         make(map[gpucore.ImageID]*Image),
		Views:          make(map[gpucore.ViewID]gpucore.ImageID),
		Buffers:        make(map[gpucore.BufferID][]byte),
		Samplers:       make(map[gpucore.SamplerID]gpucore.SamplerDesc),
		Sets:           make(map[gpucore.DescriptorSetID][]gpucore.ImageWrite),
		SetSlots:       make(map[gpucore.DescriptorSetID]int),
		Framebuffers:   make(map[gpucore.FramebufferID]gpucore.ViewID),
		Fences:         make(map[gpucore.FenceID]uint64),
		pendingSignals: make(map[gpucore.FenceID]uint64),
		Destroyed:      make(map[uint64]int),
		Calls:          make(map[string]int),
	}
}

func (d *Device) id() uint64 {
	d.nextID++
	return d.nextID
}

func (d *Device) call(name string) { d.Calls[name]++ }

// Allocations returns the number of device object creations so far.
func (d *Device) Allocations() int {
	return d.Calls["CreateImage"] + d.Calls["CreateView"] + d.Calls["CreateBuffer"] +
		d.Calls["CreateSampler"] + d.Calls["CreateDescriptorSet"] + d.Calls["CreateFramebuffer"]
}

// Live returns the number of live images, views, buffers and sets.
func (d *Device) Live() int {
	return len(d.Images) + len(d.Views) + len(d.Buffers) + len(d.Sets) + len(d.Framebuffers)
}

// Release signals every held fence to its latest submitted value.
func (d *Device) Release() {
	for f, v := range d.pendingSignals {
		if v > d.Fences[f] {
			d.Fences[f] = v
		}
	}
	clear(d.pendingSignals)
}

// Capabilities implements gpucore.Device.
func (d *Device) Capabilities() gpucore.Capabilities { return d.Caps }

// FormatSupported implements gpucore.Device.
func (d *Device) FormatSupported(f gpucore.Format, _ gpucore.ImageUsage) bool {
	return !d.Unsupported[f]
}

// CreateImage implements gpucore.Device.
func (d *Device) CreateImage(desc *gpucore.ImageDesc) (gpucore.ImageID, error) {
	d.call("CreateImage")
	if d.FailCreateImage > 0 && d.Calls["CreateImage"] > d.FailCreateImage {
		return gpucore.InvalidID, fmt.Errorf("create image: %w", gpucore.ErrOutOfMemory)
	}
	img := &Image{Desc: *desc, Levels: make([][]byte, max(desc.MipLevels, 1))}
	if desc.Linear {
		row := desc.Width * desc.Format.BytesPerTexel()
		img.Pitch = (row + RowAlignment - 1) / RowAlignment * RowAlignment
	}
	id := gpucore.ImageID(d.id())
	d.Images[id] = img
	return id, nil
}

// DestroyImage implements gpucore.Device.
func (d *Device) DestroyImage(id gpucore.ImageID) {
	d.call("DestroyImage")
	d.Destroyed[uint64(id)]++
	delete(d.Images, id)
}

// CreateView implements gpucore.Device.
func (d *Device) CreateView(img gpucore.ImageID, _ *gpucore.ViewDesc) (gpucore.ViewID, error) {
	d.call("CreateView")
	if _, ok := d.Images[img]; !ok {
		return gpucore.InvalidID, gpucore.ErrUnknownResource
	}
	id := gpucore.ViewID(d.id())
	d.Views[id] = img
	return id, nil
}

// DestroyView implements gpucore.Device.
func (d *Device) DestroyView(id gpucore.ViewID) {
	d.call("DestroyView")
	d.Destroyed[uint64(id)]++
	delete(d.Views, id)
}

// ImageRowPitch implements gpucore.Device.
func (d *Device) ImageRowPitch(id gpucore.ImageID) (int, error) {
	img, ok := d.Images[id]
	if !ok || !img.Desc.Linear {
		return 0, gpucore.ErrUnknownResource
	}
	return img.Pitch, nil
}

// MapImage implements gpucore.Device.
func (d *Device) MapImage(id gpucore.ImageID) ([]byte, error) {
	d.call("MapImage")
	img, ok := d.Images[id]
	if !ok || !img.Desc.Linear {
		return nil, gpucore.ErrUnknownResource
	}
	if img.Mapped == nil {
		img.Mapped = make([]byte, img.Pitch*img.Desc.Height)
	}
	return img.Mapped, nil
}

// UnmapImage implements gpucore.Device.
func (d *Device) UnmapImage(gpucore.ImageID) { d.call("UnmapImage") }

// FlushImage implements gpucore.Device.
func (d *Device) FlushImage(gpucore.ImageID) error {
	d.call("FlushImage")
	return nil
}

// CreateBuffer implements gpucore.Device.
func (d *Device) CreateBuffer(size int, _ gpucore.BufferUsage) (gpucore.BufferID, error) {
	d.call("CreateBuffer")
	id := gpucore.BufferID(d.id())
	d.Buffers[id] = make([]byte, size)
	return id, nil
}

// DestroyBuffer implements gpucore.Device.
func (d *Device) DestroyBuffer(id gpucore.BufferID) {
	d.call("DestroyBuffer")
	d.Destroyed[uint64(id)]++
	delete(d.Buffers, id)
}

// MapBuffer implements gpucore.Device.
func (d *Device) MapBuffer(id gpucore.BufferID) ([]byte, error) {
	d.call("MapBuffer")
	b, ok := d.Buffers[id]
	if !ok {
		return nil, gpucore.ErrUnknownResource
	}
	return b, nil
}

// UnmapBuffer implements gpucore.Device.
func (d *Device) UnmapBuffer(gpucore.BufferID) { d.call("UnmapBuffer") }

// CreateSampler implements gpucore.Device.
func (d *Device) CreateSampler(desc *gpucore.SamplerDesc) (gpucore.SamplerID, error) {
	d.call("CreateSampler")
	id := gpucore.SamplerID(d.id())
	d.Samplers[id] = *desc
	return id, nil
}

// DestroySampler implements gpucore.Device.
func (d *Device) DestroySampler(id gpucore.SamplerID) {
	d.call("DestroySampler")
	d.Destroyed[uint64(id)]++
	delete(d.Samplers, id)
}

// CreateDescriptorSet implements gpucore.Device.
func (d *Device) CreateDescriptorSet(_ string, slots int) (gpucore.DescriptorSetID, error) {
	d.call("CreateDescriptorSet")
	id := gpucore.DescriptorSetID(d.id())
	d.Sets[id] = nil
	d.SetSlots[id] = slots
	return id, nil
}

// WriteDescriptorSet implements gpucore.Device.
func (d *Device) WriteDescriptorSet(set gpucore.DescriptorSetID, writes []gpucore.ImageWrite) error {
	d.call("WriteDescriptorSet")
	if _, ok := d.Sets[set]; !ok {
		return gpucore.ErrUnknownResource
	}
	for _, w := range writes {
		if w.Binding >= d.SetSlots[set] {
			return fmt.Errorf("binding %d out of range %d", w.Binding, d.SetSlots[set])
		}
	}
	d.Sets[set] = append(d.Sets[set], writes...)
	return nil
}

// DestroyDescriptorSet implements gpucore.Device.
func (d *Device) DestroyDescriptorSet(id gpucore.DescriptorSetID) {
	d.call("DestroyDescriptorSet")
	d.Destroyed[uint64(id)]++
	delete(d.Sets, id)
	delete(d.SetSlots, id)
}

// CreateFramebuffer implements gpucore.Device.
func (d *Device) CreateFramebuffer(view gpucore.ViewID, _ gpucore.Format, _, _ int) (gpucore.FramebufferID, error) {
	d.call("CreateFramebuffer")
	id := gpucore.FramebufferID(d.id())
	d.Framebuffers[id] = view
	return id, nil
}

// DestroyFramebuffer implements gpucore.Device.
func (d *Device) DestroyFramebuffer(id gpucore.FramebufferID) {
	d.call("DestroyFramebuffer")
	d.Destroyed[uint64(id)]++
	delete(d.Framebuffers, id)
}

// BeginCommands implements gpucore.Device.
func (d *Device) BeginCommands(string) (gpucore.Encoder, error) {
	d.call("BeginCommands")
	return &encoder{d: d}, nil
}

// Submit implements gpucore.Device.
func (d *Device) Submit(cmd gpucore.CommandBufferID, fence gpucore.FenceID, value uint64) error {
	d.call("Submit")
	d.Submissions = append(d.Submissions, Submission{Cmd: cmd, Fence: fence, Value: value})
	if fence == gpucore.InvalidID {
		return nil
	}
	if d.HoldFences {
		if value > d.pendingSignals[fence] {
			d.pendingSignals[fence] = value
		}
		return nil
	}
	if value > d.Fences[fence] {
		d.Fences[fence] = value
	}
	return nil
}

// CreateFence implements gpucore.Device.
func (d *Device) CreateFence() (gpucore.FenceID, error) {
	d.call("CreateFence")
	id := gpucore.FenceID(d.id())
	d.Fences[id] = 0
	return id, nil
}

// DestroyFence implements gpucore.Device.
func (d *Device) DestroyFence(id gpucore.FenceID) {
	d.call("DestroyFence")
	delete(d.Fences, id)
}

// Wait implements gpucore.Device. Blocking waits on held fences release
// them, as a real device would eventually complete the work.
func (d *Device) Wait(fence gpucore.FenceID, value uint64, timeout time.Duration) (bool, error) {
	d.call("Wait")
	cur, ok := d.Fences[fence]
	if !ok {
		return false, gpucore.ErrUnknownResource
	}
	if cur >= value {
		if timeout > 0 {
			d.Waits++
		}
		return true, nil
	}
	if timeout == 0 {
		return false, nil
	}
	d.Waits++
	if pending := d.pendingSignals[fence]; pending >= value {
		d.Fences[fence] = pending
		delete(d.pendingSignals, fence)
		return true, nil
	}
	return false, nil
}

// WaitIdle implements gpucore.Device.
func (d *Device) WaitIdle() error {
	d.call("WaitIdle")
	d.IdleWaits++
	d.Release()
	return nil
}

// Destroy implements gpucore.Device.
func (d *Device) Destroy() { d.call("Destroy") }

type encoder struct {
	d    *Device
	done bool
}

func (e *encoder) Barrier(b *gpucore.Barrier) {
	c := *b
	c.Images = append([]gpucore.ImageBarrier(nil), b.Images...)
	e.d.Barriers = append(e.d.Barriers, c)
}

func (e *encoder) CopyBufferToImage(src gpucore.BufferID, dst gpucore.ImageID, region gpucore.CopyRegion) {
	data := append([]byte(nil), e.d.Buffers[src]...)
	e.d.Copies = append(e.d.Copies, Copy{Buffer: src, Image: dst, Region: region, Data: data})
	if img, ok := e.d.Images[dst]; ok && region.MipLevel < len(img.Levels) {
		img.Levels[region.MipLevel] = data
	}
}

func (e *encoder) BlitLevel(_ gpucore.ImageID, region gpucore.BlitRegion) {
	e.d.Blits = append(e.d.Blits, region)
}

func (e *encoder) ClearColor(img gpucore.ImageID, _ [4]float32) {
	e.d.Clears = append(e.d.Clears, img)
}

func (e *encoder) Finish() (gpucore.CommandBufferID, error) {
	if e.done {
		return gpucore.InvalidID, errors.New("gputest: encoder already finished")
	}
	e.done = true
	return gpucore.CommandBufferID(e.d.id()), nil
}

func (e *encoder) Discard() { e.done = true }
