package texres

import (
	"fmt"

	"github.com/gogpu/texres/gpucore"
)

// upload stages pixels into level 0 of img, builds the remaining mip
// levels and leaves img in ShaderReadOnly. img must be Materializing or
// Resident; its previous contents are discarded.
func (m *Manager) upload(img *TextureImage, pixels []byte, texelSize int) error {
	w, h := img.width, img.height
	if want := w * h * texelSize; len(pixels) < want {
		return fmt.Errorf("texres: upload of %dx%d needs %d bytes, got %d", w, h, want, len(pixels))
	}
	enc, err := m.transfer.encoder()
	if err != nil {
		return err
	}

	var t ImageTransition
	t.AddImage(img, gpucore.LayoutTransferDst, true)
	t.Execute(enc)

	if err := m.stageLevel(enc, img, pixels[:w*h*texelSize], 0, w, h, texelSize); err != nil {
		return err
	}

	switch {
	case img.mipLevels > 1 && m.caps.BlitMipmaps:
		blitMipmaps(enc, img)
	case img.mipLevels > 1:
		level := pixels[:w*h*texelSize]
		lw, lh := w, h
		for i := 1; i < img.mipLevels; i++ {
			level, lw, lh = downsampleBGRA(level, lw, lh)
			if err := m.stageLevel(enc, img, level, i, lw, lh, texelSize); err != nil {
				return err
			}
		}
		t.AddImage(img, gpucore.LayoutShaderReadOnly, false)
		t.Execute(enc)
	default:
		t.AddImage(img, gpucore.LayoutShaderReadOnly, false)
		t.Execute(enc)
	}

	if m.transfer.overBudget() {
		Logger().Warn("texres: upload budget exceeded, waiting for transfer commands",
			"bytes", m.transfer.budget, "threshold", m.transfer.threshold)
		if err := m.transfer.waitForCommands(); err != nil {
			return err
		}
		m.transfer.stalls++
	}
	return nil
}

// stageLevel copies one mip level through a fresh staging buffer.
func (m *Manager) stageLevel(enc gpucore.Encoder, img *TextureImage, data []byte, level, w, h, texelSize int) error {
	staging, err := newStagingBuffer(m.dev, len(data))
	if err != nil {
		return err
	}
	if err := staging.CopyIn(data); err != nil {
		staging.Unmap()
		m.deletes.Buffer(staging.id)
		return err
	}
	staging.Unmap()

	enc.CopyBufferToImage(staging.id, img.image, gpucore.CopyRegion{
		MipLevel:      level,
		Width:         w,
		Height:        h,
		BytesPerTexel: texelSize,
	})
	m.transfer.addUpload(staging)
	return nil
}
