package texres

import (
	"fmt"

	"github.com/gogpu/texres/gpucore"
)

// PPFormat is the texel format of a post-process texture.
type PPFormat int

// Post-process texture formats.
const (
	PPFormatRGBA8 PPFormat = iota
	PPFormatRGBA16F
	PPFormatR32F
	PPFormatRG16F
	PPFormatRGBA16Snorm
)

var ppFormats = map[PPFormat]gpucore.Format{
	PPFormatRGBA8:       gpucore.FormatRGBA8Unorm,
	PPFormatRGBA16F:     gpucore.FormatRGBA16Float,
	PPFormatR32F:        gpucore.FormatR32Float,
	PPFormatRG16F:       gpucore.FormatRG16Float,
	PPFormatRGBA16Snorm: gpucore.FormatRGBA16Snorm,
}

// DeviceFormat returns the device format and its texel size.
func (f PPFormat) DeviceFormat() (gpucore.Format, int, bool) {
	df, ok := ppFormats[f]
	if !ok {
		return gpucore.FormatUndefined, 0, false
	}
	return df, df.BytesPerTexel(), true
}

// PPTextureDesc describes a post-process texture. With Data the texture is
// a sampled lookup table; without it is a render target.
type PPTextureDesc struct {
	Label  string
	Width  int
	Height int
	Format PPFormat
	Data   []byte
}

// PPTexture is an image used by post-processing passes.
type PPTexture struct {
	m     *Manager
	image TextureImage
	label string
}

// NewPPTexture creates a post-process texture. An unsupported format is a
// fatal error reported as ErrUnsupportedFormat.
func (m *Manager) NewPPTexture(desc PPTextureDesc) (*PPTexture, error) {
	if err := m.checkOpen(); err != nil {
		return nil, err
	}
	format, texel, ok := desc.Format.DeviceFormat()
	if !ok {
		return nil, fmt.Errorf("%w: post-process format %d", ErrUnsupportedFormat, desc.Format)
	}
	usage := gpucore.ImageUsageSampled | gpucore.ImageUsageColorAttachment
	if desc.Data != nil {
		usage = gpucore.ImageUsageSampled | gpucore.ImageUsageCopyDst
	}
	if !m.dev.FormatSupported(format, usage) {
		return nil, fmt.Errorf("%w: %s for post-process texture %q", ErrUnsupportedFormat, format, desc.Label)
	}

	p := &PPTexture{m: m, label: desc.Label}
	if err := p.create(desc, format, texel, usage); err != nil {
		p.image.reset(m.deletes)
		return nil, err
	}
	m.ppTextures[p] = struct{}{}
	return p, nil
}

func (p *PPTexture) create(desc PPTextureDesc, format gpucore.Format, texel int, usage gpucore.ImageUsage) error {
	dev := p.m.dev
	err := p.image.create(dev, &gpucore.ImageDesc{
		Label:  desc.Label,
		Width:  desc.Width,
		Height: desc.Height,
		Format: format,
		Usage:  usage,
	}, gpucore.AspectColor)
	if err != nil {
		return err
	}
	if err := p.image.createView(dev, desc.Label+" view"); err != nil {
		return err
	}

	if desc.Data != nil {
		if err := p.m.upload(&p.image, desc.Data, texel); err != nil {
			return err
		}
	} else {
		enc, err := p.m.transfer.encoder()
		if err != nil {
			return err
		}
		var tr ImageTransition
		tr.AddImage(&p.image, gpucore.LayoutColorAttachment, true)
		tr.Execute(enc)
	}
	p.image.markResident()
	return nil
}

// Image returns the texture image.
func (p *PPTexture) Image() *TextureImage { return &p.image }

// Framebuffer returns the framebuffer targeting the texture, creating it on
// first use.
func (p *PPTexture) Framebuffer() (gpucore.FramebufferID, error) {
	if p.image.framebuffer != gpucore.InvalidID {
		return p.image.framebuffer, nil
	}
	if !p.image.Resident() {
		return gpucore.InvalidID, fmt.Errorf("texres: post-process texture %q destroyed", p.label)
	}
	fb, err := p.m.dev.CreateFramebuffer(p.image.view, p.image.format, p.image.width, p.image.height)
	if err != nil {
		return gpucore.InvalidID, fmt.Errorf("texres: create framebuffer for %q: %w", p.label, err)
	}
	p.image.framebuffer = fb
	return fb, nil
}

// Destroy defers deletion of the image, its views and framebuffer.
func (p *PPTexture) Destroy() {
	p.image.reset(p.m.deletes)
	delete(p.m.ppTextures, p)
}
