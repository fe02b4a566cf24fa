package source

import (
	"fmt"
	"image"
	"image/color"

	"golang.org/x/image/draw"

	"github.com/gogpu/texres"
	"github.com/gogpu/texres/palette"
)

// Image is a PixelSource backed by an image.Image.
//
// Paletted images keep their indices: indexed decodes return them through
// the translation's remap, and BGRA decodes look colors up in the remap
// palette. Other images are quantized to Palette for indexed decodes.
type Image struct {
	img      image.Image
	resolver palette.Resolver

	// Palette quantizes true-color images for indexed decodes. Nil selects
	// a 256 level grayscale ramp.
	Palette color.Palette

	// Process is applied to BGRA texels when texres.FlagProcessData is
	// set. Nil leaves texels unchanged.
	Process func(bgra []byte)
}

// NewImage wraps img. resolver resolves translations of paletted images
// and may be nil, in which case only the untranslated form is available.
func NewImage(img image.Image, resolver palette.Resolver) *Image {
	return &Image{img: img, resolver: resolver}
}

// Width implements texres.PixelSource.
func (s *Image) Width() int { return s.img.Bounds().Dx() }

// Height implements texres.PixelSource.
func (s *Image) Height() int { return s.img.Bounds().Dy() }

// IsHardwareCanvas implements texres.PixelSource.
func (s *Image) IsHardwareCanvas() bool { return false }

// Decode implements texres.PixelSource.
func (s *Image) Decode(translation palette.Translation, flags texres.UploadFlags) (texres.Pixels, error) {
	remap, err := s.remap(translation)
	if err != nil {
		return texres.Pixels{}, err
	}
	w, h := s.Width(), s.Height()
	pix := texres.Pixels{Width: w, Height: h}
	if flags&texres.FlagIndexed != 0 {
		pix.Data = s.indices(remap)
		return pix, nil
	}
	pix.Data = s.bgra(remap)
	if flags&texres.FlagProcessData != 0 && s.Process != nil {
		s.Process(pix.Data)
	}
	return pix, nil
}

func (s *Image) remap(translation palette.Translation) (*palette.Remap, error) {
	if translation == 0 {
		return nil, nil
	}
	if _, ok := s.img.(*image.Paletted); !ok {
		return nil, nil
	}
	if s.resolver == nil {
		return nil, fmt.Errorf("source: translation %s: %w", translation, palette.ErrUnknownTranslation)
	}
	return s.resolver.Resolve(translation)
}

// indices returns one palette index per texel.
func (s *Image) indices(remap *palette.Remap) []byte {
	b := s.img.Bounds()
	if p, ok := s.img.(*image.Paletted); ok {
		out := make([]byte, 0, b.Dx()*b.Dy())
		for y := b.Min.Y; y < b.Max.Y; y++ {
			row := p.Pix[p.PixOffset(b.Min.X, y):][:b.Dx()]
			if remap == nil {
				out = append(out, row...)
				continue
			}
			for _, idx := range row {
				out = append(out, remap.Remap[idx])
			}
		}
		return out
	}

	pal := s.Palette
	if pal == nil {
		pal = grayRamp
	}
	dst := image.NewPaletted(image.Rect(0, 0, b.Dx(), b.Dy()), pal)
	draw.Draw(dst, dst.Bounds(), s.img, b.Min, draw.Src)
	return dst.Pix
}

// bgra returns 4 bytes per texel in B, G, R, A order.
func (s *Image) bgra(remap *palette.Remap) []byte {
	b := s.img.Bounds()
	if p, ok := s.img.(*image.Paletted); ok && remap != nil {
		out := make([]byte, 0, 4*b.Dx()*b.Dy())
		for y := b.Min.Y; y < b.Max.Y; y++ {
			for _, idx := range p.Pix[p.PixOffset(b.Min.X, y):][:b.Dx()] {
				c := remap.Palette[remap.Remap[idx]]
				out = append(out, c.B, c.G, c.R, c.A)
			}
		}
		return out
	}

	rgba, ok := s.img.(*image.RGBA)
	if !ok || rgba.Rect.Min != (image.Point{}) || rgba.Stride != 4*b.Dx() {
		rgba = image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
		draw.Draw(rgba, rgba.Bounds(), s.img, b.Min, draw.Src)
	}
	out := make([]byte, len(rgba.Pix))
	for i := 0; i < len(out); i += 4 {
		out[i+0] = rgba.Pix[i+2]
		out[i+1] = rgba.Pix[i+1]
		out[i+2] = rgba.Pix[i+0]
		out[i+3] = rgba.Pix[i+3]
	}
	return out
}

var grayRamp = func() color.Palette {
	p := make(color.Palette, 256)
	for i := range p {
		p[i] = color.Gray{Y: uint8(i)}
	}
	return p
}()

// Checker returns a two-color checkerboard of cell sized squares.
func Checker(w, h, cell int, a, b color.Color) *Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	cell = max(cell, 1)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c := a
			if (x/cell+y/cell)%2 == 1 {
				c = b
			}
			img.Set(x, y, c)
		}
	}
	return NewImage(img, nil)
}

var _ texres.PixelSource = (*Image)(nil)
