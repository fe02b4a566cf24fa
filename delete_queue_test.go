package texres

import (
	"testing"

	"github.com/gogpu/texres/gpucore"
	"github.com/gogpu/texres/internal/gputest"
)

func TestDeleteQueueWaitsForFrame(t *testing.T) {
	m, dev, pacer := newTestManager(t)
	tex := m.NewTexture()
	img, err := tex.GetImage(&testSource{w: 4, h: 4}, 0, 0)
	if err != nil {
		t.Fatalf("GetImage: %v", err)
	}
	imageID := img.Image()

	// Destroyed during frame 1.
	if err := m.DestroyTexture(tex.Handle()); err != nil {
		t.Fatalf("DestroyTexture: %v", err)
	}
	if _, ok := dev.Images[imageID]; !ok {
		t.Fatal("image freed immediately on destroy")
	}

	// Frames 2 and 3 begin recording; frame 3 shares frame 1's slot.
	for i := 0; i < 2; i++ {
		if err := m.EndFrame(); err != nil {
			t.Fatalf("EndFrame: %v", err)
		}
		pacer.Advance()
		m.DeleteQueue().Buffer(gpucore.BufferID(9000 + i))
	}
	m.Collect()
	if _, ok := dev.Images[imageID]; !ok {
		t.Fatal("image freed before frame 1 completed")
	}

	pacer.Complete(1)
	m.Collect()
	if _, ok := dev.Images[imageID]; !ok {
		t.Fatal("image freed before the frame that took over its slot completed")
	}

	pacer.Complete(3)
	m.Collect()
	if _, ok := dev.Images[imageID]; ok {
		t.Fatal("image not freed after its frame completed")
	}
	if dev.Destroyed[uint64(imageID)] != 1 {
		t.Errorf("image destroyed %d times, want 1", dev.Destroyed[uint64(imageID)])
	}
}

func TestDeleteQueueDrainsOnlyCompletedSlots(t *testing.T) {
	dev := gputest.NewDevice()
	pacer := gputest.NewPacer()
	q := newDeleteQueue(dev, pacer, 3)

	q.Image(1)
	pacer.Advance()
	q.View(2)
	q.View(gpucore.InvalidID)
	pacer.Advance()
	q.DescriptorSet(3)

	if q.Pending() != 3 {
		t.Fatalf("pending = %d, want 3", q.Pending())
	}

	pacer.Complete(1)
	if n := q.Collect(); n != 1 {
		t.Errorf("collected %d, want 1", n)
	}
	if dev.Destroyed[1] != 1 || dev.Destroyed[2] != 0 {
		t.Errorf("destroyed = %v", dev.Destroyed)
	}

	pacer.Complete(3)
	if n := q.Collect(); n != 2 {
		t.Errorf("collected %d, want 2", n)
	}
	if q.Collect() != 0 {
		t.Error("slots must drain exactly once")
	}
}

func TestDeleteQueueDrainAll(t *testing.T) {
	dev := gputest.NewDevice()
	q := newDeleteQueue(dev, gputest.NewPacer(), 2)
	q.Image(1)
	q.Buffer(2)
	q.Framebuffer(3)

	if n := q.DrainAll(); n != 3 {
		t.Errorf("DrainAll = %d, want 3", n)
	}
	if q.Pending() != 0 {
		t.Errorf("pending after DrainAll = %d", q.Pending())
	}
}
