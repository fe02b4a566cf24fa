package source

import (
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/gogpu/texres/palette"
)

// Load decodes the image file at path. Supported formats are PNG, JPEG,
// GIF, BMP, TIFF and WebP.
func Load(path string, resolver palette.Resolver) (*Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("source: %w", err)
	}
	defer f.Close()

	img, err := Decode(f, resolver)
	if err != nil {
		return nil, fmt.Errorf("source: %s: %w", path, err)
	}
	return img, nil
}

// Decode decodes an image from r.
func Decode(r io.Reader, resolver palette.Resolver) (*Image, error) {
	img, format, err := image.Decode(r)
	if err != nil {
		return nil, err
	}
	if img.Bounds().Empty() {
		return nil, fmt.Errorf("empty %s image", format)
	}
	return NewImage(img, resolver), nil
}
