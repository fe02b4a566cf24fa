package source

import (
	"github.com/gogpu/texres"
	"github.com/gogpu/texres/palette"
)

// Canvas is a render target texture. Its image is created as a color
// attachment and never uploaded from host memory.
type Canvas struct {
	W, H int
}

// NewCanvas returns a canvas of the given size.
func NewCanvas(w, h int) *Canvas { return &Canvas{W: w, H: h} }

func (c *Canvas) Width() int             { return c.W }
func (c *Canvas) Height() int            { return c.H }
func (c *Canvas) IsHardwareCanvas() bool { return true }

// Decode returns transparent black texels.
func (c *Canvas) Decode(_ palette.Translation, flags texres.UploadFlags) (texres.Pixels, error) {
	texel := 4
	if flags&texres.FlagIndexed != 0 {
		texel = 1
	}
	return texres.Pixels{Width: c.W, Height: c.H, Data: make([]byte, c.W*c.H*texel)}, nil
}

var _ texres.PixelSource = (*Canvas)(nil)
