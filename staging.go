package texres

import (
	"fmt"

	"github.com/gogpu/texres/gpucore"
)

// StagingBuffer is a host-visible buffer holding the texels of exactly one
// transfer. Once the copy reading it has been recorded it belongs to the
// deletion machinery and cannot be written again.
type StagingBuffer struct {
	dev      gpucore.Device
	id       gpucore.BufferID
	size     int
	mapped   []byte
	recorded bool
}

func newStagingBuffer(dev gpucore.Device, size int) (*StagingBuffer, error) {
	if size <= 0 {
		return nil, fmt.Errorf("texres: staging buffer of %d bytes", size)
	}
	id, err := dev.CreateBuffer(size, gpucore.BufferUsageMapWrite|gpucore.BufferUsageCopySrc)
	if err != nil {
		return nil, fmt.Errorf("texres: create staging buffer (%d bytes): %w", size, err)
	}
	return &StagingBuffer{dev: dev, id: id, size: size}, nil
}

// ID returns the device buffer.
func (b *StagingBuffer) ID() gpucore.BufferID { return b.id }

// Size returns the buffer size in bytes.
func (b *StagingBuffer) Size() int { return b.size }

// Map maps the buffer for writing.
func (b *StagingBuffer) Map() ([]byte, error) {
	if b.recorded {
		return nil, ErrStagingReused
	}
	if b.mapped == nil {
		data, err := b.dev.MapBuffer(b.id)
		if err != nil {
			return nil, fmt.Errorf("texres: map staging buffer: %w", err)
		}
		b.mapped = data
	}
	return b.mapped, nil
}

// CopyIn copies data to the start of the buffer.
func (b *StagingBuffer) CopyIn(data []byte) error {
	if len(data) > b.size {
		return fmt.Errorf("texres: %d bytes do not fit a %d byte staging buffer", len(data), b.size)
	}
	dst, err := b.Map()
	if err != nil {
		return err
	}
	copy(dst, data)
	return nil
}

// Unmap ends host access.
func (b *StagingBuffer) Unmap() {
	if b.mapped != nil {
		b.dev.UnmapBuffer(b.id)
		b.mapped = nil
	}
}

// markRecorded seals the buffer after its copy command was recorded.
func (b *StagingBuffer) markRecorded() {
	b.Unmap()
	b.recorded = true
}
