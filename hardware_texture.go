package texres

import (
	"fmt"

	"github.com/gogpu/texres/gpucore"
	"github.com/gogpu/texres/internal/arena"
	"github.com/gogpu/texres/palette"
)

// TextureHandle addresses a HardwareTexture in its Manager.
type TextureHandle struct{ h arena.Handle }

// IsZero reports whether the handle is unset.
func (h TextureHandle) IsZero() bool { return h.h.IsZero() }

// HardwareTexture is the device-side state of one logical texture: a base
// image created lazily on first use, an optional depth-stencil companion
// for canvases, and an optional host-mapped software framebuffer.
//
// A HardwareTexture is owned by its Manager and must be used from the
// render thread only.
type HardwareTexture struct {
	m      *Manager
	handle TextureHandle

	image        TextureImage
	depthStencil TextureImage

	texelSize int
	mapped    []byte
	pitch     int
}

// Handle returns the texture's handle in its Manager.
func (t *HardwareTexture) Handle() TextureHandle { return t.handle }

// TexelSize returns the bytes per texel of the base image: 1 for indexed
// textures, 4 for BGRA. Zero before materialization.
func (t *HardwareTexture) TexelSize() int { return t.texelSize }

// Image returns the base image without materializing it.
func (t *HardwareTexture) Image() *TextureImage { return &t.image }

// DepthStencil returns the depth-stencil image without materializing it.
func (t *HardwareTexture) DepthStencil() *TextureImage { return &t.depthStencil }

// GetImage returns the base image, materializing it from src on first use.
// Hardware canvases become color attachments in shader-read layout; other
// sources are decoded, uploaded and left in shader-read layout.
func (t *HardwareTexture) GetImage(src PixelSource, translation palette.Translation, flags UploadFlags) (*TextureImage, error) {
	if t.image.Resident() {
		return &t.image, nil
	}
	if err := t.m.checkOpen(); err != nil {
		return nil, err
	}
	var err error
	if src.IsHardwareCanvas() {
		err = t.createCanvas(src.Width(), src.Height())
	} else {
		err = t.createFromSource(src, translation, flags)
	}
	if err != nil {
		t.image.reset(t.m.deletes)
		return nil, err
	}
	return &t.image, nil
}

func (t *HardwareTexture) createCanvas(w, h int) error {
	err := t.image.create(t.m.dev, &gpucore.ImageDesc{
		Label:  "texres canvas",
		Width:  w,
		Height: h,
		Format: gpucore.FormatRGBA8Unorm,
		Usage:  gpucore.ImageUsageColorAttachment | gpucore.ImageUsageSampled,
	}, gpucore.AspectColor)
	if err != nil {
		return err
	}
	if err := t.image.createView(t.m.dev, "texres canvas view"); err != nil {
		return err
	}
	enc, err := t.m.transfer.encoder()
	if err != nil {
		return err
	}
	var tr ImageTransition
	tr.AddImage(&t.image, gpucore.LayoutShaderReadOnly, true)
	tr.Execute(enc)

	t.texelSize = 4
	t.image.markResident()
	Logger().Debug("texres: canvas materialized", "width", w, "height", h)
	return nil
}

func (t *HardwareTexture) createFromSource(src PixelSource, translation palette.Translation, flags UploadFlags) error {
	pix, err := src.Decode(translation, flags|FlagProcessData)
	if err != nil {
		return fmt.Errorf("texres: decode texture: %w", err)
	}
	indexed := flags&FlagIndexed != 0
	texel, format := 4, gpucore.FormatBGRA8Unorm
	if indexed {
		texel, format = 1, gpucore.FormatR8Unorm
	}
	mipmap := !indexed && t.m.cfg.GenerateMipmaps
	if err := t.createTexture(pix.Width, pix.Height, texel, format, pix.Data, mipmap); err != nil {
		return err
	}
	Logger().Debug("texres: texture materialized",
		"width", pix.Width, "height", pix.Height, "format", format, "levels", t.image.mipLevels)
	return nil
}

// createTexture allocates the base image and, when pixels is non-nil,
// uploads them. Without pixels the image is left in shader-read layout
// with undefined contents.
func (t *HardwareTexture) createTexture(w, h, texel int, format gpucore.Format, pixels []byte, mipmap bool) error {
	levels := 1
	if mipmap && texel == 4 {
		levels = MipLevels(w, h)
	}
	err := t.image.create(t.m.dev, &gpucore.ImageDesc{
		Label:     "texres texture",
		Width:     w,
		Height:    h,
		MipLevels: levels,
		Format:    format,
		Usage:     gpucore.ImageUsageCopySrc | gpucore.ImageUsageCopyDst | gpucore.ImageUsageSampled,
	}, gpucore.AspectColor)
	if err != nil {
		return err
	}
	if err := t.image.createView(t.m.dev, "texres texture view"); err != nil {
		return err
	}
	t.texelSize = texel

	if pixels != nil {
		if err := t.m.upload(&t.image, pixels, texel); err != nil {
			return err
		}
	} else {
		enc, err := t.m.transfer.encoder()
		if err != nil {
			return err
		}
		var tr ImageTransition
		tr.AddImage(&t.image, gpucore.LayoutShaderReadOnly, true)
		tr.Execute(enc)
	}
	t.image.markResident()
	return nil
}

// CreateTexture uploads a frame produced by the software renderer. texel
// size selects R8 (1) or BGRA8 (4). A resident image of the same size and
// texel size is overwritten in place; anything else is replaced.
func (t *HardwareTexture) CreateTexture(pixels []byte, w, h, texelSize int, mipmap bool) error {
	if err := t.m.checkOpen(); err != nil {
		return err
	}
	format := gpucore.FormatBGRA8Unorm
	switch texelSize {
	case 1:
		format = gpucore.FormatR8Unorm
	case 4:
	default:
		return fmt.Errorf("texres: unsupported texel size %d", texelSize)
	}
	if t.image.Resident() {
		levels := 1
		if mipmap && texelSize == 4 {
			levels = MipLevels(w, h)
		}
		same := t.image.width == w && t.image.height == h && t.texelSize == texelSize &&
			t.image.mipLevels == levels && t.pitch == 0
		if same && pixels != nil {
			return t.m.upload(&t.image, pixels, texelSize)
		}
		if same {
			return nil
		}
		t.Reset()
	}
	if err := t.createTexture(w, h, texelSize, format, pixels, mipmap); err != nil {
		t.image.reset(t.m.deletes)
		return err
	}
	return nil
}

// GetDepthStencil returns the depth-stencil companion sized to src,
// creating it on first use in depth-stencil attachment layout.
func (t *HardwareTexture) GetDepthStencil(src PixelSource) (*TextureImage, error) {
	if t.depthStencil.Resident() {
		return &t.depthStencil, nil
	}
	if err := t.m.checkOpen(); err != nil {
		return nil, err
	}
	if err := t.createDepthStencil(src.Width(), src.Height()); err != nil {
		t.depthStencil.reset(t.m.deletes)
		return nil, err
	}
	return &t.depthStencil, nil
}

func (t *HardwareTexture) createDepthStencil(w, h int) error {
	ds := &t.depthStencil
	err := ds.create(t.m.dev, &gpucore.ImageDesc{
		Label:  "texres depth-stencil",
		Width:  w,
		Height: h,
		Format: t.m.cfg.DepthStencilFormat,
		Usage:  gpucore.ImageUsageDepthStencilAttachment,
	}, gpucore.AspectDepth|gpucore.AspectStencil)
	if err != nil {
		return err
	}
	if err := ds.createView(t.m.dev, "texres depth-stencil view"); err != nil {
		return err
	}
	if err := ds.createDepthOnlyView(t.m.dev, "texres depth view"); err != nil {
		return err
	}
	enc, err := t.m.transfer.encoder()
	if err != nil {
		return err
	}
	var tr ImageTransition
	tr.AddImage(ds, gpucore.LayoutDepthStencilAttachment, true)
	tr.Execute(enc)
	ds.markResident()
	return nil
}

// AllocateBuffer allocates a linear host-visible image for direct CPU
// writes. Calling it again with the same arguments is a no-op; different
// arguments release the previous image first.
// Invalid arguments leave the current image untouched.
func (t *HardwareTexture) AllocateBuffer(w, h, texelSize int) error {
	format := gpucore.FormatBGRA8Unorm
	switch texelSize {
	case 1:
		format = gpucore.FormatR8Unorm
	case 4:
	default:
		return fmt.Errorf("texres: unsupported texel size %d", texelSize)
	}
	if err := t.m.checkOpen(); err != nil {
		return err
	}
	if t.image.Resident() {
		if t.pitch > 0 && t.image.width == w && t.image.height == h && t.texelSize == texelSize {
			return nil
		}
		t.Reset()
	}
	if err := t.allocateBuffer(w, h, texelSize, format); err != nil {
		t.image.reset(t.m.deletes)
		t.pitch = 0
		return err
	}
	return nil
}

func (t *HardwareTexture) allocateBuffer(w, h, texelSize int, format gpucore.Format) error {
	err := t.image.create(t.m.dev, &gpucore.ImageDesc{
		Label:  "texres software framebuffer",
		Width:  w,
		Height: h,
		Format: format,
		Usage:  gpucore.ImageUsageSampled,
		Linear: true,
	}, gpucore.AspectColor)
	if err != nil {
		return err
	}
	if err := t.image.createView(t.m.dev, "texres software framebuffer view"); err != nil {
		return err
	}
	rowPitch, err := t.m.dev.ImageRowPitch(t.image.image)
	if err != nil {
		return fmt.Errorf("texres: software framebuffer row pitch: %w", err)
	}
	enc, err := t.m.transfer.encoder()
	if err != nil {
		return err
	}
	var tr ImageTransition
	tr.AddImage(&t.image, gpucore.LayoutGeneral, true)
	tr.Execute(enc)

	t.texelSize = texelSize
	t.pitch = rowPitch / texelSize
	t.image.markResident()
	return nil
}

// MapBuffer returns the host mapping of the software framebuffer. The
// mapping is created once and stays valid until the buffer is reallocated
// with different dimensions or the texture is reset.
func (t *HardwareTexture) MapBuffer() ([]byte, error) {
	if !t.image.Resident() || t.pitch == 0 {
		return nil, ErrNoSoftwareBuffer
	}
	if t.mapped == nil {
		data, err := t.m.dev.MapImage(t.image.image)
		if err != nil {
			return nil, fmt.Errorf("texres: map software framebuffer: %w", err)
		}
		t.mapped = data
	}
	return t.mapped, nil
}

// CommitBuffer publishes host writes to the software framebuffer on
// backends without coherent host-visible images.
func (t *HardwareTexture) CommitBuffer() error {
	if t.mapped == nil {
		return ErrNoSoftwareBuffer
	}
	if t.m.caps.CoherentHostImages {
		return nil
	}
	if err := t.m.dev.FlushImage(t.image.image); err != nil {
		return fmt.Errorf("texres: flush software framebuffer: %w", err)
	}
	return nil
}

// BufferPitch returns the software framebuffer row pitch in texels.
func (t *HardwareTexture) BufferPitch() int { return t.pitch }

// CreateWipeTexture replaces the base image with a w×h copy of the
// current scene. When no scene has been rendered yet the image is cleared
// to opaque black instead.
func (t *HardwareTexture) CreateWipeTexture(w, h int, scene SceneCapturer) error {
	if err := t.m.checkOpen(); err != nil {
		return err
	}
	t.Reset()
	if err := t.createWipe(w, h, scene); err != nil {
		t.image.reset(t.m.deletes)
		return err
	}
	return nil
}

func (t *HardwareTexture) createWipe(w, h int, scene SceneCapturer) error {
	err := t.image.create(t.m.dev, &gpucore.ImageDesc{
		Label:  "texres wipe",
		Width:  w,
		Height: h,
		Format: gpucore.FormatBGRA8Unorm,
		Usage:  gpucore.ImageUsageSampled | gpucore.ImageUsageCopyDst,
	}, gpucore.AspectColor)
	if err != nil {
		return err
	}
	if err := t.image.createView(t.m.dev, "texres wipe view"); err != nil {
		return err
	}
	enc, err := t.m.transfer.encoder()
	if err != nil {
		return err
	}
	t.texelSize = 4

	if scene != nil {
		if sw, sh := scene.SceneSize(); sw > 0 && sh > 0 {
			if err := scene.CaptureScene(enc, &t.image, gpucore.LayoutShaderReadOnly); err != nil {
				return fmt.Errorf("texres: capture scene: %w", err)
			}
			t.image.markResident()
			return nil
		}
	}

	Logger().Warn("texres: no scene rendered yet, clearing wipe texture to black", "width", w, "height", h)
	var tr ImageTransition
	tr.AddImage(&t.image, gpucore.LayoutTransferDst, true)
	tr.Execute(enc)
	enc.ClearColor(t.image.image, [4]float32{0, 0, 0, 1})
	tr.AddImage(&t.image, gpucore.LayoutShaderReadOnly, false)
	tr.Execute(enc)
	t.image.markResident()
	return nil
}

// Reset releases every device object of the texture through the deferred
// deletion queue. The texture materializes again on next use.
func (t *HardwareTexture) Reset() {
	if t.mapped != nil {
		t.m.dev.UnmapImage(t.image.image)
		t.mapped = nil
	}
	t.pitch = 0
	t.texelSize = 0
	t.image.reset(t.m.deletes)
	t.depthStencil.reset(t.m.deletes)
}
