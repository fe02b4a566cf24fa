package texres

import (
	"image"

	"github.com/gogpu/texres/gpucore"
	"golang.org/x/image/draw"
)

// MipLevels returns the length of a full mip chain for a w×h image: the
// number of times both dimensions can be halved (rounding down, never below
// one) until each reaches one, plus the base level.
func MipLevels(w, h int) int {
	levels := 1
	for w > 1 || h > 1 {
		w = max(w>>1, 1)
		h = max(h>>1, 1)
		levels++
	}
	return levels
}

// blitMipmaps records a GPU mip chain. Every level of img must be in
// TransferDst with level 0 filled. All levels end in ShaderReadOnly.
func blitMipmaps(enc gpucore.Encoder, img *TextureImage) {
	var t ImageTransition
	w, h := img.width, img.height
	for i := 1; i < img.mipLevels; i++ {
		t.addLevels(img, i-1, 1, gpucore.LayoutTransferDst, gpucore.LayoutTransferSrc)
		t.Execute(enc)

		nw, nh := max(w>>1, 1), max(h>>1, 1)
		enc.BlitLevel(img.image, gpucore.BlitRegion{
			SrcLevel: i - 1, SrcWidth: w, SrcHeight: h,
			DstLevel: i, DstWidth: nw, DstHeight: nh,
		})

		t.addLevels(img, i-1, 1, gpucore.LayoutTransferSrc, gpucore.LayoutShaderReadOnly)
		t.Execute(enc)
		w, h = nw, nh
	}
	t.addLevels(img, img.mipLevels-1, 1, gpucore.LayoutTransferDst, gpucore.LayoutShaderReadOnly)
	t.settle(img, gpucore.LayoutShaderReadOnly)
	t.Execute(enc)
}

// downsampleBGRA halves a tightly packed 4-byte texel image with bilinear
// filtering. Channel order does not matter to the filter.
func downsampleBGRA(src []byte, w, h int) ([]byte, int, int) {
	nw, nh := max(w>>1, 1), max(h>>1, 1)
	in := &image.RGBA{Pix: src, Stride: w * 4, Rect: image.Rect(0, 0, w, h)}
	out := image.NewRGBA(image.Rect(0, 0, nw, nh))
	draw.BiLinear.Scale(out, out.Bounds(), in, in.Bounds(), draw.Src, nil)
	return out.Pix, nw, nh
}
