package source

import (
	"errors"
	"fmt"
	"image"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"

	"github.com/gogpu/texres"
	"github.com/gogpu/texres/palette"
)

// ErrNoGlyph is returned when a face has no glyph for a rune.
var ErrNoGlyph = errors.New("source: face has no glyph")

// Glyph is a rasterized font character. Indexed decodes return the
// coverage mask; BGRA decodes return white texels with coverage alpha.
type Glyph struct {
	Rune    rune
	Advance fixed.Int26_6

	// Origin is the pen position inside the mask.
	Origin image.Point

	mask *image.Alpha
}

// NewFace returns an opentype face of the given size. Nil data selects the
// Go Regular font.
func NewFace(data []byte, size float64) (font.Face, error) {
	if data == nil {
		data = goregular.TTF
	}
	f, err := opentype.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("source: parse font: %w", err)
	}
	face, err := opentype.NewFace(f, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, fmt.Errorf("source: new face: %w", err)
	}
	return face, nil
}

// RasterizeGlyph renders r from face into a tightly fitting mask. Glyphs
// without ink, such as space, get a 1x1 empty mask.
func RasterizeGlyph(face font.Face, r rune) (*Glyph, error) {
	bounds, advance, ok := face.GlyphBounds(r)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNoGlyph, r)
	}
	minX, minY := bounds.Min.X.Floor(), bounds.Min.Y.Floor()
	maxX, maxY := bounds.Max.X.Ceil(), bounds.Max.Y.Ceil()
	w, h := max(maxX-minX, 1), max(maxY-minY, 1)

	mask := image.NewAlpha(image.Rect(0, 0, w, h))
	origin := image.Pt(-minX, -minY)
	d := &font.Drawer{
		Dst:  mask,
		Src:  image.White,
		Face: face,
		Dot:  fixed.P(origin.X, origin.Y),
	}
	d.DrawString(string(r))
	return &Glyph{Rune: r, Advance: advance, Origin: origin, mask: mask}, nil
}

func (g *Glyph) Width() int             { return g.mask.Rect.Dx() }
func (g *Glyph) Height() int            { return g.mask.Rect.Dy() }
func (g *Glyph) IsHardwareCanvas() bool { return false }

// Decode implements texres.PixelSource. Translations do not apply.
func (g *Glyph) Decode(_ palette.Translation, flags texres.UploadFlags) (texres.Pixels, error) {
	pix := texres.Pixels{Width: g.Width(), Height: g.Height()}
	if flags&texres.FlagIndexed != 0 {
		pix.Data = append([]byte(nil), g.mask.Pix...)
		return pix, nil
	}
	pix.Data = make([]byte, 4*len(g.mask.Pix))
	for i, a := range g.mask.Pix {
		// White premultiplied by coverage.
		pix.Data[4*i+0] = a
		pix.Data[4*i+1] = a
		pix.Data[4*i+2] = a
		pix.Data[4*i+3] = a
	}
	return pix, nil
}

var _ texres.PixelSource = (*Glyph)(nil)
