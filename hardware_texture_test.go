package texres

import (
	"errors"
	"testing"

	"github.com/gogpu/texres/gpucore"
	"github.com/gogpu/texres/internal/gputest"
)

func TestGetImageMaterializesOnce(t *testing.T) {
	m, dev, _ := newTestManager(t, WithMipmaps(false))
	src := &testSource{w: 8, h: 4}
	tex := m.NewTexture()

	if tex.Image().State() != Unmaterialized {
		t.Fatalf("new texture state = %s", tex.Image().State())
	}
	img, err := tex.GetImage(src, 0, 0)
	if err != nil {
		t.Fatalf("GetImage: %v", err)
	}
	if !img.Resident() {
		t.Errorf("state = %s, want Resident", img.State())
	}
	if img.Layout() != gpucore.LayoutShaderReadOnly {
		t.Errorf("layout = %s, want ShaderReadOnly", img.Layout())
	}
	if img.Format() != gpucore.FormatBGRA8Unorm || tex.TexelSize() != 4 {
		t.Errorf("format = %s texel = %d", img.Format(), tex.TexelSize())
	}
	if src.lastFlags&FlagProcessData == 0 {
		t.Error("decode must request processed data")
	}

	allocs := dev.Allocations()
	again, err := tex.GetImage(src, 0, 0)
	if err != nil {
		t.Fatalf("second GetImage: %v", err)
	}
	if again != img || src.decodes != 1 {
		t.Errorf("second GetImage decoded again (decodes = %d)", src.decodes)
	}
	if dev.Allocations() != allocs {
		t.Error("second GetImage allocated device objects")
	}
}

func TestGetImageCanvas(t *testing.T) {
	m, dev, _ := newTestManager(t)
	tex := m.NewTexture()
	img, err := tex.GetImage(&testSource{w: 320, h: 200, canvas: true}, 0, 0)
	if err != nil {
		t.Fatalf("GetImage: %v", err)
	}
	if img.Layout() != gpucore.LayoutShaderReadOnly {
		t.Errorf("layout = %s, want ShaderReadOnly", img.Layout())
	}
	desc := dev.Images[img.Image()].Desc
	if desc.Usage&gpucore.ImageUsageColorAttachment == 0 {
		t.Error("canvas image must be a color attachment")
	}
	if desc.Format != gpucore.FormatRGBA8Unorm {
		t.Errorf("canvas format = %s", desc.Format)
	}
	if len(dev.Copies) != 0 {
		t.Errorf("canvas was staged (%d copies)", len(dev.Copies))
	}
}

func TestGetImageZeroSize(t *testing.T) {
	tests := []struct {
		name string
		w, h int
	}{
		{"zero width", 0, 4},
		{"zero height", 4, 0},
		{"negative", -1, 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, dev, _ := newTestManager(t)
			tex := m.NewTexture()
			_, err := tex.GetImage(&testSource{w: tt.w, h: tt.h, canvas: true}, 0, 0)
			if !errors.Is(err, ErrZeroSizeTexture) {
				t.Fatalf("err = %v, want ErrZeroSizeTexture", err)
			}
			if tex.Image().State() != Unmaterialized {
				t.Errorf("state = %s after failure", tex.Image().State())
			}
			if dev.Calls["CreateImage"] != 0 {
				t.Error("zero size must be rejected before allocation")
			}
		})
	}
}

func TestGetImageDeviceFailure(t *testing.T) {
	m, dev, _ := newTestManager(t)
	dev.FailCreateImage = 1

	if _, err := m.NewTexture().GetImage(&testSource{w: 2, h: 2}, 0, 0); err != nil {
		t.Fatalf("first GetImage: %v", err)
	}
	tex := m.NewTexture()
	_, err := tex.GetImage(&testSource{w: 2, h: 2}, 0, 0)
	if !errors.Is(err, gpucore.ErrOutOfMemory) {
		t.Fatalf("err = %v, want ErrOutOfMemory", err)
	}
	if tex.Image().State() != Unmaterialized {
		t.Errorf("state = %s after failure", tex.Image().State())
	}
}

func TestGetDepthStencil(t *testing.T) {
	m, dev, _ := newTestManager(t)
	tex := m.NewTexture()
	src := &testSource{w: 64, h: 32, canvas: true}

	ds, err := tex.GetDepthStencil(src)
	if err != nil {
		t.Fatalf("GetDepthStencil: %v", err)
	}
	if ds.Layout() != gpucore.LayoutDepthStencilAttachment {
		t.Errorf("layout = %s, want DepthStencilAttachment", ds.Layout())
	}
	if ds.Aspect() != gpucore.AspectDepth|gpucore.AspectStencil {
		t.Errorf("aspect = %b", ds.Aspect())
	}
	if ds.DepthOnlyView() == gpucore.InvalidID {
		t.Error("depth-only view not created")
	}
	if ds.Width() != 64 || ds.Height() != 32 {
		t.Errorf("size = %dx%d", ds.Width(), ds.Height())
	}
	if len(dev.Copies) != 0 {
		t.Error("depth-stencil must never be staged")
	}
	last := dev.Barriers[len(dev.Barriers)-1].Images[0]
	if last.OldLayout != gpucore.LayoutUndefined {
		t.Errorf("depth-stencil old layout = %s, want Undefined", last.OldLayout)
	}
}

func TestAllocateBuffer(t *testing.T) {
	m, dev, _ := newTestManager(t)
	tex := m.NewTexture()

	if _, err := tex.MapBuffer(); !errors.Is(err, ErrNoSoftwareBuffer) {
		t.Fatalf("MapBuffer before allocation err = %v", err)
	}
	if err := tex.AllocateBuffer(10, 8, 4); err != nil {
		t.Fatalf("AllocateBuffer: %v", err)
	}
	img := tex.Image()
	if img.Layout() != gpucore.LayoutGeneral {
		t.Errorf("layout = %s, want General", img.Layout())
	}
	if !dev.Images[img.Image()].Desc.Linear {
		t.Error("software framebuffer must be linear")
	}
	// 10 texels * 4 bytes = 40, aligned to 64 bytes.
	if tex.BufferPitch() != 16 {
		t.Errorf("pitch = %d texels, want 16", tex.BufferPitch())
	}

	first := img.Image()
	if err := tex.AllocateBuffer(10, 8, 4); err != nil {
		t.Fatalf("AllocateBuffer (same): %v", err)
	}
	if dev.Calls["CreateImage"] != 1 || img.Image() != first {
		t.Error("same-size AllocateBuffer reallocated")
	}

	if err := tex.AllocateBuffer(20, 8, 1); err != nil {
		t.Fatalf("AllocateBuffer (resize): %v", err)
	}
	if dev.Calls["CreateImage"] != 2 {
		t.Errorf("CreateImage calls = %d, want 2", dev.Calls["CreateImage"])
	}
	if m.DeleteQueue().Pending() == 0 {
		t.Error("old framebuffer image not handed to the delete queue")
	}
	if tex.TexelSize() != 1 || tex.BufferPitch() != 64 {
		t.Errorf("texel = %d pitch = %d", tex.TexelSize(), tex.BufferPitch())
	}
}

func TestAllocateBufferRejectsTexelSize(t *testing.T) {
	m, dev, _ := newTestManager(t)
	tex := m.NewTexture()
	if err := tex.AllocateBuffer(8, 8, 4); err != nil {
		t.Fatalf("AllocateBuffer: %v", err)
	}
	mapped, err := tex.MapBuffer()
	if err != nil {
		t.Fatalf("MapBuffer: %v", err)
	}
	image, pitch := tex.Image().Image(), tex.BufferPitch()

	if err := tex.AllocateBuffer(8, 8, 3); err == nil {
		t.Fatal("texel size 3 accepted")
	}
	if !tex.Image().Resident() || tex.Image().Image() != image {
		t.Fatal("rejected AllocateBuffer released the framebuffer")
	}
	if _, ok := dev.Images[image]; !ok {
		t.Error("framebuffer image destroyed")
	}
	if tex.BufferPitch() != pitch || tex.TexelSize() != 4 {
		t.Errorf("pitch = %d texel = %d, want %d and 4", tex.BufferPitch(), tex.TexelSize(), pitch)
	}
	again, err := tex.MapBuffer()
	if err != nil || &again[0] != &mapped[0] {
		t.Errorf("mapping lost: %v", err)
	}
	if m.DeleteQueue().Pending() != 0 {
		t.Error("rejected AllocateBuffer queued deletions")
	}
}

func TestMapBufferPersistent(t *testing.T) {
	m, dev, _ := newTestManager(t)
	tex := m.NewTexture()
	if err := tex.AllocateBuffer(16, 16, 4); err != nil {
		t.Fatalf("AllocateBuffer: %v", err)
	}
	a, err := tex.MapBuffer()
	if err != nil {
		t.Fatalf("MapBuffer: %v", err)
	}
	a[0] = 0xff
	b, _ := tex.MapBuffer()
	if &a[0] != &b[0] {
		t.Error("MapBuffer returned a different mapping")
	}
	if dev.Calls["MapImage"] != 1 {
		t.Errorf("MapImage calls = %d, want 1", dev.Calls["MapImage"])
	}

	if err := tex.CommitBuffer(); err != nil {
		t.Fatalf("CommitBuffer: %v", err)
	}
	if dev.Calls["FlushImage"] != 0 {
		t.Error("coherent images must not be flushed")
	}
	m.caps.CoherentHostImages = false
	if err := tex.CommitBuffer(); err != nil {
		t.Fatalf("CommitBuffer: %v", err)
	}
	if dev.Calls["FlushImage"] != 1 {
		t.Error("non-coherent image not flushed")
	}
}

func TestUploadStall(t *testing.T) {
	tests := []struct {
		name    string
		uploads int
		stalls  int
	}{
		{"below threshold", 3, 0},
		{"crossing once", 4, 1},
		{"crossing twice", 8, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// 5x15 BGRA is 300 bytes per upload.
			m, dev, _ := newTestManager(t, WithMipmaps(false), WithUploadStallThreshold(1000))
			for i := 0; i < tt.uploads; i++ {
				if _, err := m.NewTexture().GetImage(&testSource{w: 5, h: 15}, 0, 0); err != nil {
					t.Fatalf("GetImage %d: %v", i, err)
				}
			}
			if got := m.Stats().Stalls; got != tt.stalls {
				t.Errorf("stalls = %d, want %d", got, tt.stalls)
			}
			if dev.Waits != tt.stalls {
				t.Errorf("blocking waits = %d, want %d", dev.Waits, tt.stalls)
			}
		})
	}
}

func TestUploadStallFreesStaging(t *testing.T) {
	m, dev, _ := newTestManager(t, WithMipmaps(false), WithUploadStallThreshold(100))
	if _, err := m.NewTexture().GetImage(&testSource{w: 8, h: 8}, 0, 0); err != nil {
		t.Fatalf("GetImage: %v", err)
	}
	if len(dev.Buffers) != 0 {
		t.Errorf("staging buffers alive after stall: %d", len(dev.Buffers))
	}
	if m.transfer.budget != 0 {
		t.Errorf("budget = %d after stall", m.transfer.budget)
	}
}

type testScene struct {
	w, h     int
	captures int
}

func (s *testScene) SceneSize() (int, int) { return s.w, s.h }

func (s *testScene) CaptureScene(enc gpucore.Encoder, dst *TextureImage, final gpucore.Layout) error {
	s.captures++
	var tr ImageTransition
	tr.AddImage(dst, gpucore.LayoutTransferDst, true)
	tr.Execute(enc)
	tr.AddImage(dst, final, false)
	tr.Execute(enc)
	return nil
}

func TestCreateWipeTexture(t *testing.T) {
	tests := []struct {
		name     string
		scene    *testScene
		clears   int
		captures int
	}{
		{"scene rendered", &testScene{w: 320, h: 200}, 0, 1},
		{"nothing rendered", &testScene{}, 1, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, dev, _ := newTestManager(t)
			tex := m.NewTexture()
			if err := tex.CreateWipeTexture(320, 200, tt.scene); err != nil {
				t.Fatalf("CreateWipeTexture: %v", err)
			}
			if len(dev.Clears) != tt.clears {
				t.Errorf("clears = %d, want %d", len(dev.Clears), tt.clears)
			}
			if tt.scene.captures != tt.captures {
				t.Errorf("captures = %d, want %d", tt.scene.captures, tt.captures)
			}
			if tex.Image().Layout() != gpucore.LayoutShaderReadOnly || !tex.Image().Resident() {
				t.Errorf("wipe image %s in %s", tex.Image().State(), tex.Image().Layout())
			}
		})
	}
}

func TestCreateTexture(t *testing.T) {
	m, dev, _ := newTestManager(t, WithMipmaps(false))
	tex := m.NewTexture()
	pix := make([]byte, 4*4*4)

	if err := tex.CreateTexture(pix, 4, 4, 4, false); err != nil {
		t.Fatalf("CreateTexture: %v", err)
	}
	if err := tex.CreateTexture(pix, 4, 4, 4, false); err != nil {
		t.Fatalf("CreateTexture (same size): %v", err)
	}
	if dev.Calls["CreateImage"] != 1 {
		t.Errorf("same-size CreateTexture reallocated (%d images)", dev.Calls["CreateImage"])
	}
	if len(dev.Copies) != 2 {
		t.Errorf("copies = %d, want 2", len(dev.Copies))
	}

	if err := tex.CreateTexture(make([]byte, 8*4), 8, 4, 1, false); err != nil {
		t.Fatalf("CreateTexture (resize): %v", err)
	}
	if dev.Calls["CreateImage"] != 2 || tex.Image().Format() != gpucore.FormatR8Unorm {
		t.Errorf("resize: images = %d format = %s", dev.Calls["CreateImage"], tex.Image().Format())
	}

	if err := tex.CreateTexture(nil, 4, 4, 3, false); err == nil {
		t.Error("expected error for texel size 3")
	}
}

func TestResetReleasesThroughQueue(t *testing.T) {
	m, dev, pacer := newTestManager(t)
	tex := m.NewTexture()
	src := &testSource{w: 4, h: 4, canvas: true}
	img, _ := tex.GetImage(src, 0, 0)
	ds, _ := tex.GetDepthStencil(src)
	ids := []uint64{uint64(img.Image()), uint64(img.View()), uint64(ds.Image()), uint64(ds.View()), uint64(ds.DepthOnlyView())}

	tex.Reset()
	if tex.Image().State() != Unmaterialized || tex.DepthStencil().State() != Unmaterialized {
		t.Fatal("Reset must return images to Unmaterialized")
	}
	for _, id := range ids {
		if dev.Destroyed[id] != 0 {
			t.Fatalf("handle %d destroyed before its frame completed", id)
		}
	}
	pacer.Complete(pacer.CurrentFrame())
	m.Collect()
	for _, id := range ids {
		if dev.Destroyed[id] != 1 {
			t.Errorf("handle %d destroyed %d times", id, dev.Destroyed[id])
		}
	}

	// Lazily materializes again.
	if _, err := tex.GetImage(src, 0, 0); err != nil {
		t.Fatalf("GetImage after Reset: %v", err)
	}
}

var _ gpucore.Device = (*gputest.Device)(nil)
