package wgpu

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/texres/gpucore"
	"github.com/gogpu/wgpu/hal"
)

// A command list is an ordered mix of hal command buffer segments and
// queue texture writes. Copies and clears are queue writes, so recording
// one closes the open segment to keep submission order.
type commandList struct {
	label string
	steps []step
}

type step struct {
	cmd   hal.CommandBuffer
	write *textureWrite
}

type textureWrite struct {
	dst    hal.ImageCopyTexture
	data   []byte
	layout hal.ImageDataLayout
	size   hal.Extent3D
}

func (l *commandList) free(dev hal.Device) {
	for _, s := range l.steps {
		if s.cmd != nil {
			dev.FreeCommandBuffer(s.cmd)
		}
	}
	l.steps = nil
}

type encoder struct {
	d    *Device
	list *commandList
	enc  hal.CommandEncoder
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
	return &encoder{d: d, list: &commandList{label: label}}, nil
}

func (e *encoder) fail(err error) {
	if e.err == nil {
		e.err = err
	}
}

// segment returns the open hal encoder, beginning one if needed.
func (e *encoder) segment() hal.CommandEncoder {
	if e.enc != nil {
		return e.enc
	}
	enc, err := e.d.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: e.list.label})
	if err != nil {
		e.fail(halError("create command encoder", err))
		return nil
	}
	if err := enc.BeginEncoding(e.list.label); err != nil {
		enc.Destroy()
		e.fail(halError("begin encoding", err))
		return nil
	}
	e.enc = enc
	return enc
}

// closeSegment ends the open hal encoder and appends its command buffer.
func (e *encoder) closeSegment() {
	if e.enc == nil {
		return
	}
	enc := e.enc
	e.enc = nil
	cmd, err := enc.EndEncoding()
	enc.Destroy()
	if err != nil {
		e.fail(halError("end encoding", err))
		return
	}
	e.list.steps = append(e.list.steps, step{cmd: cmd})
}

func (e *encoder) Barrier(b *gpucore.Barrier) {
	if e.err != nil || len(b.Images) == 0 {
		return
	}
	barriers := make([]hal.TextureBarrier, 0, len(b.Images))
	for _, ib := range b.Images {
		t, ok := e.d.texture(ib.Image)
		if !ok {
			e.fail(fmt.Errorf("wgpu: barrier on image %d: %w", ib.Image, gpucore.ErrUnknownResource))
			return
		}
		barriers = append(barriers, hal.TextureBarrier{
			Texture: t.tex,
			Range: hal.TextureRange{
				Aspect:        textureAspect(ib.Aspect),
				BaseMipLevel:  uint32(ib.BaseLevel),
				MipLevelCount: uint32(ib.LevelCount),
			},
			Usage: hal.TextureUsageTransition{
				OldUsage: layoutUsage(ib.OldLayout),
				NewUsage: layoutUsage(ib.NewLayout),
			},
		})
	}
	if enc := e.segment(); enc != nil {
		enc.TransitionTextures(barriers)
	}
}

func (e *encoder) CopyBufferToImage(src gpucore.BufferID, dst gpucore.ImageID, r gpucore.CopyRegion) {
	if e.err != nil {
		return
	}
	b, ok := e.d.buffer(src)
	if !ok || b.data == nil {
		e.fail(fmt.Errorf("wgpu: copy from unmapped buffer %d: %w", src, gpucore.ErrUnknownResource))
		return
	}
	t, ok := e.d.texture(dst)
	if !ok {
		e.fail(fmt.Errorf("wgpu: copy to image %d: %w", dst, gpucore.ErrUnknownResource))
		return
	}
	bpt := r.BytesPerTexel
	if bpt == 0 {
		bpt = t.desc.Format.BytesPerTexel()
	}
	rowBytes := r.Width * bpt
	end := r.BufferOffset + rowBytes*r.Height
	if end > len(b.data) {
		e.fail(fmt.Errorf("wgpu: copy of %d bytes at %d overruns buffer of %d", rowBytes*r.Height, r.BufferOffset, len(b.data)))
		return
	}
	e.closeSegment()
	e.list.steps = append(e.list.steps, step{write: &textureWrite{
		dst: hal.ImageCopyTexture{
			Texture:  t.tex,
			MipLevel: uint32(r.MipLevel),
			Aspect:   gputypes.TextureAspectAll,
		},
		data:   b.data[r.BufferOffset:end],
		layout: hal.ImageDataLayout{BytesPerRow: uint32(rowBytes), RowsPerImage: uint32(r.Height)},
		size:   hal.Extent3D{Width: uint32(r.Width), Height: uint32(r.Height), DepthOrArrayLayers: 1},
	}})
}

func (e *encoder) BlitLevel(gpucore.ImageID, gpucore.BlitRegion) {
	e.fail(fmt.Errorf("wgpu: mip blit: %w", gpucore.ErrUnsupported))
}

func (e *encoder) ClearColor(img gpucore.ImageID, rgba [4]float32) {
	if e.err != nil {
		return
	}
	t, ok := e.d.texture(img)
	if !ok {
		e.fail(fmt.Errorf("wgpu: clear image %d: %w", img, gpucore.ErrUnknownResource))
		return
	}
	texel, ok := t.desc.Format.EncodeColor(rgba)
	if !ok {
		e.fail(fmt.Errorf("wgpu: clear of %s image: %w", t.desc.Format, gpucore.ErrUnsupported))
		return
	}
	w, h := t.desc.Width, t.desc.Height
	e.closeSegment()
	e.list.steps = append(e.list.steps, step{write: &textureWrite{
		dst:    hal.ImageCopyTexture{Texture: t.tex, Aspect: gputypes.TextureAspectAll},
		data:   bytes.Repeat(texel, w*h),
		layout: hal.ImageDataLayout{BytesPerRow: uint32(w * len(texel)), RowsPerImage: uint32(h)},
		size:   hal.Extent3D{Width: uint32(w), Height: uint32(h), DepthOrArrayLayers: 1},
	}})
}

func (e *encoder) Finish() (gpucore.CommandBufferID, error) {
	if e.done {
		return gpucore.InvalidID, errors.New("wgpu: encoder already finished")
	}
	e.done = true
	e.closeSegment()
	if e.err != nil {
		e.list.free(e.d.device)
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
	if e.enc != nil {
		e.enc.DiscardEncoding()
		e.enc.Destroy()
		e.enc = nil
	}
	e.list.free(e.d.device)
}
