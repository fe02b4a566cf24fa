package vulkan

import (
	"errors"
	"fmt"

	vk "github.com/vulkan-go/vulkan"

	"github.com/gogpu/texres/gpucore"
)

// commandList is a recorded primary command buffer plus the scratch
// buffers its clears read from.
type commandList struct {
	label   string
	cmd     vk.CommandBuffer
	scratch []*buffer
}

func (d *Device) freeList(l *commandList) {
	if l.cmd != nil {
		vk.FreeCommandBuffers(d.device, d.pool, 1, []vk.CommandBuffer{l.cmd})
		l.cmd = nil
	}
	for _, b := range l.scratch {
		d.releaseBuffer(b)
	}
	l.scratch = nil
}

type encoder struct {
	d    *Device
	list *commandList
	err  error
	done bool
}

// BeginCommands implements gpucore.Device.
func (d *Device) BeginCommands(label string) (gpucore.Encoder, error) {
	d.mu.RLock()
	lost := d.lost
	d.mu.RUnlock()
	if lost {
		return nil, gpucore.ErrDeviceLost
	}

	info := vk.CommandBufferAllocateInfo{
		SType:              vk.StructureTypeCommandBufferAllocateInfo,
		CommandPool:        d.pool,
		Level:              vk.CommandBufferLevelPrimary,
		CommandBufferCount: 1,
	}
	cmds := make([]vk.CommandBuffer, 1)
	if err := check("vkAllocateCommandBuffers "+label, vk.AllocateCommandBuffers(d.device, &info, cmds)); err != nil {
		return nil, err
	}
	list := &commandList{label: label, cmd: cmds[0]}
	begin := vk.CommandBufferBeginInfo{
		SType: vk.StructureTypeCommandBufferBeginInfo,
		Flags: vk.CommandBufferUsageFlags(vk.CommandBufferUsageOneTimeSubmitBit),
	}
	if err := check("vkBeginCommandBuffer "+label, vk.BeginCommandBuffer(list.cmd, &begin)); err != nil {
		d.freeList(list)
		return nil, err
	}
	return &encoder{d: d, list: list}, nil
}

func (e *encoder) fail(err error) {
	if e.err == nil {
		e.err = err
	}
}

func (e *encoder) Barrier(b *gpucore.Barrier) {
	if e.err != nil || len(b.Images) == 0 {
		return
	}
	barriers := make([]vk.ImageMemoryBarrier, 0, len(b.Images))
	for _, ib := range b.Images {
		im, ok := e.d.image(ib.Image)
		if !ok {
			e.fail(fmt.Errorf("vulkan: barrier on image %d: %w", ib.Image, gpucore.ErrUnknownResource))
			return
		}
		levels := uint32(max(im.desc.MipLevels, 1) - ib.BaseLevel)
		if ib.LevelCount > 0 {
			levels = uint32(ib.LevelCount)
		}
		barriers = append(barriers, vk.ImageMemoryBarrier{
			SType:               vk.StructureTypeImageMemoryBarrier,
			SrcAccessMask:       accessFlags(ib.SrcAccess),
			DstAccessMask:       accessFlags(ib.DstAccess),
			OldLayout:           imageLayout(ib.OldLayout),
			NewLayout:           imageLayout(ib.NewLayout),
			SrcQueueFamilyIndex: vk.QueueFamilyIgnored,
			DstQueueFamilyIndex: vk.QueueFamilyIgnored,
			Image:               im.img,
			SubresourceRange: vk.ImageSubresourceRange{
				AspectMask:     aspectFlags(ib.Aspect),
				BaseMipLevel:   uint32(ib.BaseLevel),
				LevelCount:     levels,
				BaseArrayLayer: 0,
				LayerCount:     1,
			},
		})
	}
	vk.CmdPipelineBarrier(e.list.cmd, stageFlags(b.SrcStage), stageFlags(b.DstStage), 0,
		0, nil, 0, nil, uint32(len(barriers)), barriers)
}

func (e *encoder) CopyBufferToImage(src gpucore.BufferID, dst gpucore.ImageID, region gpucore.CopyRegion) {
	if e.err != nil {
		return
	}
	b, ok := e.d.buffer(src)
	if !ok {
		e.fail(fmt.Errorf("vulkan: copy from buffer %d: %w", src, gpucore.ErrUnknownResource))
		return
	}
	im, ok := e.d.image(dst)
	if !ok {
		e.fail(fmt.Errorf("vulkan: copy to image %d: %w", dst, gpucore.ErrUnknownResource))
		return
	}
	e.copyLevel(b.buf, im.img, region.BufferOffset, region.MipLevel, region.Width, region.Height)
}

func (e *encoder) copyLevel(src vk.Buffer, dst vk.Image, offset, level, w, h int) {
	vk.CmdCopyBufferToImage(e.list.cmd, src, dst, vk.ImageLayoutTransferDstOptimal, 1, []vk.BufferImageCopy{{
		BufferOffset: vk.DeviceSize(offset),
		ImageSubresource: vk.ImageSubresourceLayers{
			AspectMask:     vk.ImageAspectFlags(vk.ImageAspectColorBit),
			MipLevel:       uint32(level),
			BaseArrayLayer: 0,
			LayerCount:     1,
		},
		ImageOffset: vk.Offset3D{},
		ImageExtent: vk.Extent3D{Width: uint32(w), Height: uint32(h), Depth: 1},
	}})
}

func (e *encoder) BlitLevel(img gpucore.ImageID, region gpucore.BlitRegion) {
	if e.err != nil {
		return
	}
	im, ok := e.d.image(img)
	if !ok {
		e.fail(fmt.Errorf("vulkan: blit image %d: %w", img, gpucore.ErrUnknownResource))
		return
	}
	blit := vk.ImageBlit{
		SrcSubresource: vk.ImageSubresourceLayers{
			AspectMask: vk.ImageAspectFlags(vk.ImageAspectColorBit),
			MipLevel:   uint32(region.SrcLevel),
			LayerCount: 1,
		},
		SrcOffsets: [2]vk.Offset3D{
			{X: 0, Y: 0, Z: 0},
			{X: int32(region.SrcWidth), Y: int32(region.SrcHeight), Z: 1},
		},
		DstSubresource: vk.ImageSubresourceLayers{
			AspectMask: vk.ImageAspectFlags(vk.ImageAspectColorBit),
			MipLevel:   uint32(region.DstLevel),
			LayerCount: 1,
		},
		DstOffsets: [2]vk.Offset3D{
			{X: 0, Y: 0, Z: 0},
			{X: int32(region.DstWidth), Y: int32(region.DstHeight), Z: 1},
		},
	}
	vk.CmdBlitImage(e.list.cmd, im.img, vk.ImageLayoutTransferSrcOptimal, im.img, vk.ImageLayoutTransferDstOptimal,
		1, []vk.ImageBlit{blit}, vk.FilterLinear)
}

// ClearColor copies from a host-filled scratch buffer into every mip
// level. The scratch buffer lives until the command list completes.
func (e *encoder) ClearColor(img gpucore.ImageID, rgba [4]float32) {
	if e.err != nil {
		return
	}
	im, ok := e.d.image(img)
	if !ok {
		e.fail(fmt.Errorf("vulkan: clear image %d: %w", img, gpucore.ErrUnknownResource))
		return
	}
	texel, ok := im.desc.Format.EncodeColor(rgba)
	if !ok {
		e.fail(fmt.Errorf("vulkan: clear of %s image: %w", im.desc.Format, gpucore.ErrUnsupported))
		return
	}
	w, h := im.desc.Width, im.desc.Height
	size := w * h * len(texel)
	scratch, err := e.d.createBuffer(size,
		vk.BufferUsageFlags(vk.BufferUsageTransferSrcBit),
		vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit|vk.MemoryPropertyHostCoherentBit))
	if err != nil {
		e.fail(fmt.Errorf("vulkan: clear scratch buffer: %w", err))
		return
	}
	e.list.scratch = append(e.list.scratch, scratch)
	data, err := e.d.mapMemory(scratch.mem, size)
	if err != nil {
		e.fail(err)
		return
	}
	for i := 0; i < size; i += len(texel) {
		copy(data[i:], texel)
	}
	vk.UnmapMemory(e.d.device, scratch.mem)

	for level := 0; level < max(im.desc.MipLevels, 1); level++ {
		e.copyLevel(scratch.buf, im.img, 0, level, w, h)
		w, h = max(w/2, 1), max(h/2, 1)
	}
}

func (e *encoder) Finish() (gpucore.CommandBufferID, error) {
	if e.done {
		return gpucore.InvalidID, errors.New("vulkan: encoder already finished")
	}
	e.done = true
	if e.err == nil {
		e.err = check("vkEndCommandBuffer "+e.list.label, vk.EndCommandBuffer(e.list.cmd))
	}
	if e.err != nil {
		e.d.freeList(e.list)
		return gpucore.InvalidID, e.err
	}
	id := gpucore.CommandBufferID(e.d.newID())
	e.d.mu.Lock()
	e.d.commands[id] = e.list
	e.d.mu.Unlock()
	return id, nil
}

func (e *encoder) Discard() {
	if e.done {
		return
	}
	e.done = true
	vk.EndCommandBuffer(e.list.cmd)
	e.d.freeList(e.list)
}
