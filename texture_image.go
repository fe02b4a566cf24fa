package texres

import (
	"fmt"

	"github.com/gogpu/texres/gpucore"
)

// Residency is the materialization state of a TextureImage.
type Residency uint8

// Residency states. Enqueued and Freed are not represented: a reset image
// hands its handles to the DeleteQueue and returns to Unmaterialized.
const (
	Unmaterialized Residency = iota
	Materializing
	Resident
)

// String returns the state name.
func (r Residency) String() string {
	switch r {
	case Materializing:
		return "Materializing"
	case Resident:
		return "Resident"
	default:
		return "Unmaterialized"
	}
}

// TextureImage is a device image together with its views, tracked layout
// and optional post-process framebuffer.
//
// The tracked layout only changes through an ImageTransition.
type TextureImage struct {
	state Residency

	image         gpucore.ImageID
	view          gpucore.ViewID
	depthOnlyView gpucore.ViewID
	framebuffer   gpucore.FramebufferID

	layout    gpucore.Layout
	aspect    gpucore.Aspect
	format    gpucore.Format
	width     int
	height    int
	mipLevels int
}

// State returns the residency state.
func (t *TextureImage) State() Residency { return t.state }

// Resident reports whether the image is ready for use.
func (t *TextureImage) Resident() bool { return t.state == Resident }

// Image returns the device image.
func (t *TextureImage) Image() gpucore.ImageID { return t.image }

// View returns the primary view.
func (t *TextureImage) View() gpucore.ViewID { return t.view }

// DepthOnlyView returns the secondary depth view, if any.
func (t *TextureImage) DepthOnlyView() gpucore.ViewID { return t.depthOnlyView }

// Framebuffer returns the post-process framebuffer, if any.
func (t *TextureImage) Framebuffer() gpucore.FramebufferID { return t.framebuffer }

// Layout returns the tracked layout.
func (t *TextureImage) Layout() gpucore.Layout { return t.layout }

// Aspect returns the aspect mask used for barriers.
func (t *TextureImage) Aspect() gpucore.Aspect { return t.aspect }

// Format returns the image format.
func (t *TextureImage) Format() gpucore.Format { return t.format }

// Width returns the image width in texels.
func (t *TextureImage) Width() int { return t.width }

// Height returns the image height in texels.
func (t *TextureImage) Height() int { return t.height }

// MipLevels returns the number of mip levels.
func (t *TextureImage) MipLevels() int { return t.mipLevels }

// create allocates the device image and moves to Materializing.
func (t *TextureImage) create(dev gpucore.Device, desc *gpucore.ImageDesc, aspect gpucore.Aspect) error {
	if desc.Width <= 0 || desc.Height <= 0 {
		return fmt.Errorf("%w: %s %dx%d", ErrZeroSizeTexture, desc.Label, desc.Width, desc.Height)
	}
	if desc.MipLevels < 1 {
		desc.MipLevels = 1
	}
	img, err := dev.CreateImage(desc)
	if err != nil {
		return fmt.Errorf("texres: create image %q: %w", desc.Label, err)
	}
	*t = TextureImage{
		state:     Materializing,
		image:     img,
		layout:    gpucore.LayoutUndefined,
		aspect:    aspect,
		format:    desc.Format,
		width:     desc.Width,
		height:    desc.Height,
		mipLevels: desc.MipLevels,
	}
	return nil
}

// createView creates the primary view covering all mip levels.
func (t *TextureImage) createView(dev gpucore.Device, label string) error {
	v, err := dev.CreateView(t.image, &gpucore.ViewDesc{
		Label:     label,
		Format:    t.format,
		Aspect:    t.aspect,
		MipLevels: t.mipLevels,
	})
	if err != nil {
		return fmt.Errorf("texres: create view %q: %w", label, err)
	}
	t.view = v
	return nil
}

// createDepthOnlyView creates the secondary depth-aspect view.
func (t *TextureImage) createDepthOnlyView(dev gpucore.Device, label string) error {
	v, err := dev.CreateView(t.image, &gpucore.ViewDesc{
		Label:     label,
		Format:    t.format,
		Aspect:    gpucore.AspectDepth,
		MipLevels: 1,
	})
	if err != nil {
		return fmt.Errorf("texres: create depth view %q: %w", label, err)
	}
	t.depthOnlyView = v
	return nil
}

func (t *TextureImage) markResident() {
	if t.state == Materializing {
		t.state = Resident
	}
}

// reset hands every owned handle to q and returns to Unmaterialized.
func (t *TextureImage) reset(q *DeleteQueue) {
	if t.state == Unmaterialized {
		return
	}
	q.Framebuffer(t.framebuffer)
	q.View(t.depthOnlyView)
	q.View(t.view)
	q.Image(t.image)
	*t = TextureImage{}
}
