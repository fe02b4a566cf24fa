package texres

import (
	"github.com/gogpu/texres/gpucore"
	"github.com/gogpu/texres/palette"
)

// UploadFlags modify how a source is decoded and uploaded.
type UploadFlags uint32

const (
	// FlagIndexed requests 1-byte palette indices instead of BGRA.
	FlagIndexed UploadFlags = 1 << iota

	// FlagProcessData asks the source to apply its post-load processing
	// (brightness, hi-res replacements). Added on every hardware upload.
	FlagProcessData
)

// Pixels is a tightly packed decoded image: 1 byte per texel for indexed
// data, 4 bytes (B, G, R, A) otherwise.
type Pixels struct {
	Width  int
	Height int
	Data   []byte
}

// PixelSource supplies texel data for a hardware texture.
type PixelSource interface {
	Width() int
	Height() int

	// IsHardwareCanvas reports whether the texture is a render target
	// rather than file-backed pixels.
	IsHardwareCanvas() bool

	// Decode returns the texels for the given translation.
	Decode(translation palette.Translation, flags UploadFlags) (Pixels, error)
}

// SceneCapturer copies the last rendered scene into an image. It is the
// hook to the post-process chain that owns the scene color target.
type SceneCapturer interface {
	// SceneSize returns the size of the current scene target, or zeros
	// when no scene has been rendered yet.
	SceneSize() (width, height int)

	// CaptureScene records commands that copy the scene into dst and leave
	// dst in finalLayout. Layout changes of dst go through an
	// ImageTransition.
	CaptureScene(enc gpucore.Encoder, dst *TextureImage, finalLayout gpucore.Layout) error
}
