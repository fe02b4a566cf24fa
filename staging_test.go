package texres

import (
	"bytes"
	"errors"
	"testing"

	"github.com/gogpu/texres/internal/gputest"
)

func TestStagingBufferSingleUse(t *testing.T) {
	dev := gputest.NewDevice()
	b, err := newStagingBuffer(dev, 8)
	if err != nil {
		t.Fatalf("newStagingBuffer: %v", err)
	}
	data := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	if err := b.CopyIn(data); err != nil {
		t.Fatalf("CopyIn: %v", err)
	}
	b.Unmap()
	if !bytes.Equal(dev.Buffers[b.ID()], data) {
		t.Errorf("buffer contents = %v", dev.Buffers[b.ID()])
	}

	b.markRecorded()
	if err := b.CopyIn(data); !errors.Is(err, ErrStagingReused) {
		t.Errorf("second CopyIn err = %v, want ErrStagingReused", err)
	}
	if _, err := b.Map(); !errors.Is(err, ErrStagingReused) {
		t.Errorf("Map after record err = %v, want ErrStagingReused", err)
	}
}

func TestStagingBufferBounds(t *testing.T) {
	dev := gputest.NewDevice()
	if _, err := newStagingBuffer(dev, 0); err == nil {
		t.Error("expected error for empty staging buffer")
	}
	b, _ := newStagingBuffer(dev, 4)
	if err := b.CopyIn(make([]byte, 5)); err == nil {
		t.Error("expected error for oversized copy")
	}
}
