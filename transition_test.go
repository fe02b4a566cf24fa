package texres

import (
	"testing"

	"github.com/gogpu/texres/gpucore"
	"github.com/gogpu/texres/internal/gputest"
)

func residentImage(t *testing.T, dev *gputest.Device, layout gpucore.Layout) *TextureImage {
	t.Helper()
	var img TextureImage
	if err := img.create(dev, &gpucore.ImageDesc{Width: 4, Height: 4, Format: gpucore.FormatBGRA8Unorm}, gpucore.AspectColor); err != nil {
		t.Fatalf("create: %v", err)
	}
	img.layout = layout
	img.markResident()
	return &img
}

func TestTransitionMasks(t *testing.T) {
	tests := []struct {
		name      string
		from, to  gpucore.Layout
		firstUse  bool
		srcStage  gpucore.Stage
		dstStage  gpucore.Stage
		srcAccess gpucore.Access
		dstAccess gpucore.Access
	}{
		{
			name: "upload start", from: gpucore.LayoutShaderReadOnly, to: gpucore.LayoutTransferDst, firstUse: true,
			srcStage: gpucore.StageTopOfPipe, dstStage: gpucore.StageTransfer,
			srcAccess: 0, dstAccess: gpucore.AccessTransferWrite,
		},
		{
			name: "upload done", from: gpucore.LayoutTransferDst, to: gpucore.LayoutShaderReadOnly,
			srcStage: gpucore.StageTransfer, dstStage: gpucore.StageFragmentShader,
			srcAccess: gpucore.AccessTransferWrite, dstAccess: gpucore.AccessShaderRead,
		},
		{
			name: "depth prepare", from: gpucore.LayoutUndefined, to: gpucore.LayoutDepthStencilAttachment, firstUse: true,
			srcStage: gpucore.StageTopOfPipe, dstStage: gpucore.StageEarlyFragmentTests,
			srcAccess: 0, dstAccess: gpucore.AccessDepthStencilAttachmentWrite,
		},
		{
			name: "render target", from: gpucore.LayoutShaderReadOnly, to: gpucore.LayoutColorAttachment,
			srcStage: gpucore.StageFragmentShader, dstStage: gpucore.StageColorAttachmentOutput,
			srcAccess: gpucore.AccessShaderRead, dstAccess: gpucore.AccessColorAttachmentWrite,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dev := gputest.NewDevice()
			img := residentImage(t, dev, tt.from)
			enc, _ := dev.BeginCommands("test")

			var tr ImageTransition
			tr.AddImage(img, tt.to, tt.firstUse)
			tr.Execute(enc)

			if len(dev.Barriers) != 1 {
				t.Fatalf("barriers = %d, want 1", len(dev.Barriers))
			}
			b := dev.Barriers[0]
			if b.SrcStage != tt.srcStage || b.DstStage != tt.dstStage {
				t.Errorf("stages = %b -> %b, want %b -> %b", b.SrcStage, b.DstStage, tt.srcStage, tt.dstStage)
			}
			ib := b.Images[0]
			if ib.SrcAccess != tt.srcAccess || ib.DstAccess != tt.dstAccess {
				t.Errorf("access = %b -> %b, want %b -> %b", ib.SrcAccess, ib.DstAccess, tt.srcAccess, tt.dstAccess)
			}
			if tt.firstUse && ib.OldLayout != gpucore.LayoutUndefined {
				t.Errorf("first use old layout = %s, want Undefined", ib.OldLayout)
			}
			if img.Layout() != tt.to {
				t.Errorf("tracked layout = %s, want %s", img.Layout(), tt.to)
			}
		})
	}
}

func TestTransitionBatchesImages(t *testing.T) {
	dev := gputest.NewDevice()
	a := residentImage(t, dev, gpucore.LayoutTransferDst)
	b := residentImage(t, dev, gpucore.LayoutUndefined)
	enc, _ := dev.BeginCommands("test")

	var tr ImageTransition
	tr.AddImage(a, gpucore.LayoutShaderReadOnly, false)
	tr.AddImage(b, gpucore.LayoutColorAttachment, true)
	tr.Execute(enc)

	if len(dev.Barriers) != 1 {
		t.Fatalf("barriers = %d, want a single batched barrier", len(dev.Barriers))
	}
	if n := len(dev.Barriers[0].Images); n != 2 {
		t.Errorf("barrier images = %d, want 2", n)
	}
	want := gpucore.StageFragmentShader | gpucore.StageColorAttachmentOutput
	if dev.Barriers[0].DstStage != want {
		t.Errorf("dst stage = %b, want %b", dev.Barriers[0].DstStage, want)
	}
	if a.Layout() != gpucore.LayoutShaderReadOnly || b.Layout() != gpucore.LayoutColorAttachment {
		t.Errorf("layouts = %s, %s", a.Layout(), b.Layout())
	}

	// The transition is reusable and empty after Execute.
	tr.Execute(enc)
	if len(dev.Barriers) != 1 {
		t.Error("empty transition must not record a barrier")
	}
}

func TestTransitionSkipsSameLayout(t *testing.T) {
	dev := gputest.NewDevice()
	img := residentImage(t, dev, gpucore.LayoutShaderReadOnly)
	enc, _ := dev.BeginCommands("test")

	var tr ImageTransition
	tr.AddImage(img, gpucore.LayoutShaderReadOnly, false)
	tr.Execute(enc)

	if len(dev.Barriers) != 0 {
		t.Errorf("no-op transition recorded %d barriers", len(dev.Barriers))
	}
}

func TestTransitionUnmaterializedPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic for unmaterialized image")
		}
	}()
	var tr ImageTransition
	tr.AddImage(&TextureImage{}, gpucore.LayoutShaderReadOnly, true)
}
