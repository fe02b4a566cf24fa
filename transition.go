package texres

import "github.com/gogpu/texres/gpucore"

// ImageTransition batches layout changes of several images into a single
// barrier command.
//
//	var t ImageTransition
//	t.AddImage(&color, gpucore.LayoutShaderReadOnly, false)
//	t.AddImage(&depth, gpucore.LayoutDepthStencilAttachment, true)
//	t.Execute(enc)
type ImageTransition struct {
	barrier gpucore.Barrier
	targets []transitionTarget
}

type transitionTarget struct {
	img    *TextureImage
	layout gpucore.Layout
}

// AddImage schedules img to move to layout. With firstUse the previous
// contents are discarded and the old layout is treated as undefined.
// Images already in layout are skipped unless firstUse is set.
func (t *ImageTransition) AddImage(img *TextureImage, layout gpucore.Layout, firstUse bool) {
	if img.state == Unmaterialized {
		panic("texres: layout transition of an unmaterialized image")
	}
	old := img.layout
	if firstUse {
		old = gpucore.LayoutUndefined
	}
	if old == layout && !firstUse {
		return
	}
	t.add(img, 0, img.mipLevels, old, layout)
	t.targets = append(t.targets, transitionTarget{img: img, layout: layout})
}

// addLevels records a barrier for a mip range without touching the
// tracked layout. Used while a mip chain is in mixed layouts.
func (t *ImageTransition) addLevels(img *TextureImage, base, count int, old, layout gpucore.Layout) {
	t.add(img, base, count, old, layout)
}

// settle sets the tracked layout of img on Execute without recording a
// barrier. The caller must have covered every level with addLevels.
func (t *ImageTransition) settle(img *TextureImage, layout gpucore.Layout) {
	t.targets = append(t.targets, transitionTarget{img: img, layout: layout})
}

func (t *ImageTransition) add(img *TextureImage, base, count int, old, layout gpucore.Layout) {
	srcAccess, srcStage := srcMasks(old)
	dstAccess, dstStage := dstMasks(layout)
	t.barrier.SrcStage |= srcStage
	t.barrier.DstStage |= dstStage
	t.barrier.Images = append(t.barrier.Images, gpucore.ImageBarrier{
		Image:      img.image,
		OldLayout:  old,
		NewLayout:  layout,
		SrcAccess:  srcAccess,
		DstAccess:  dstAccess,
		Aspect:     img.aspect,
		BaseLevel:  base,
		LevelCount: count,
	})
}

// Execute records the barrier on enc and writes the new layouts back.
// The transition is empty afterwards and may be reused.
func (t *ImageTransition) Execute(enc gpucore.Encoder) {
	if len(t.barrier.Images) > 0 {
		b := t.barrier
		enc.Barrier(&b)
	}
	for _, tg := range t.targets {
		tg.img.layout = tg.layout
	}
	t.barrier = gpucore.Barrier{}
	t.targets = t.targets[:0]
}

// srcMasks returns what must complete before an image leaves layout l.
func srcMasks(l gpucore.Layout) (gpucore.Access, gpucore.Stage) {
	switch l {
	case gpucore.LayoutGeneral:
		return gpucore.AccessHostWrite, gpucore.StageHost
	case gpucore.LayoutTransferSrc:
		return gpucore.AccessTransferRead, gpucore.StageTransfer
	case gpucore.LayoutTransferDst:
		return gpucore.AccessTransferWrite, gpucore.StageTransfer
	case gpucore.LayoutShaderReadOnly:
		return gpucore.AccessShaderRead, gpucore.StageFragmentShader
	case gpucore.LayoutColorAttachment:
		return gpucore.AccessColorAttachmentWrite, gpucore.StageColorAttachmentOutput
	case gpucore.LayoutDepthStencilAttachment:
		return gpucore.AccessDepthStencilAttachmentWrite, gpucore.StageLateFragmentTests
	default:
		return 0, gpucore.StageTopOfPipe
	}
}

// dstMasks returns what waits for an image entering layout l.
func dstMasks(l gpucore.Layout) (gpucore.Access, gpucore.Stage) {
	switch l {
	case gpucore.LayoutGeneral:
		return gpucore.AccessShaderRead, gpucore.StageFragmentShader
	case gpucore.LayoutTransferSrc:
		return gpucore.AccessTransferRead, gpucore.StageTransfer
	case gpucore.LayoutTransferDst:
		return gpucore.AccessTransferWrite, gpucore.StageTransfer
	case gpucore.LayoutShaderReadOnly:
		return gpucore.AccessShaderRead, gpucore.StageFragmentShader
	case gpucore.LayoutColorAttachment:
		return gpucore.AccessColorAttachmentWrite, gpucore.StageColorAttachmentOutput
	case gpucore.LayoutDepthStencilAttachment:
		return gpucore.AccessDepthStencilAttachmentWrite, gpucore.StageEarlyFragmentTests
	default:
		return 0, gpucore.StageBottomOfPipe
	}
}
