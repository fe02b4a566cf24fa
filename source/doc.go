// Package source provides texres.PixelSource implementations: decoded
// images, paletted images with translation support, hardware canvases and
// font glyphs.
//
// Images are loaded with the standard image decoders plus BMP, TIFF and
// WebP from golang.org/x/image:
//
//	img, err := source.Load("wall.png", nil)
//	tex := mgr.NewTexture()
//	ti, err := tex.GetImage(img, 0, 0)
package source
