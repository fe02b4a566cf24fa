package texres

import (
	"fmt"
	"time"

	"github.com/gogpu/texres/gpucore"
)

// stallTimeout bounds the synchronous wait forced by the upload budget.
const stallTimeout = 30 * time.Second

// transferStream is the command stream that carries uploads and layout
// transitions for the current frame, plus the staging buffers it reads
// and the running upload budget.
type transferStream struct {
	dev       gpucore.Device
	enc       gpucore.Encoder
	threshold int

	// uploads holds staging buffers referenced by the open stream. They
	// are freed after a forced wait or handed to the frame's delete list
	// when the stream is submitted with the frame.
	uploads DeleteList
	budget  int

	fence      gpucore.FenceID
	fenceValue uint64

	stalls      int
	uploadCount int
	uploadBytes int64
}

func newTransferStream(dev gpucore.Device, threshold int) *transferStream {
	return &transferStream{dev: dev, threshold: threshold}
}

// encoder returns the open encoder, starting one if needed.
func (s *transferStream) encoder() (gpucore.Encoder, error) {
	if s.enc == nil {
		enc, err := s.dev.BeginCommands("texres transfer")
		if err != nil {
			return nil, fmt.Errorf("texres: begin transfer commands: %w", err)
		}
		s.enc = enc
	}
	return s.enc, nil
}

// addUpload takes ownership of a recorded staging buffer.
func (s *transferStream) addUpload(b *StagingBuffer) {
	b.markRecorded()
	s.uploads.Buffers = append(s.uploads.Buffers, b.id)
	s.budget += b.size
	s.uploadCount++
	s.uploadBytes += int64(b.size)
}

// overBudget reports whether the staged bytes exceed the threshold.
func (s *transferStream) overBudget() bool {
	return s.budget > s.threshold
}

// finish ends the open encoder, if any.
func (s *transferStream) finish() (gpucore.CommandBufferID, error) {
	if s.enc == nil {
		return gpucore.InvalidID, nil
	}
	enc := s.enc
	s.enc = nil
	cmd, err := enc.Finish()
	if err != nil {
		return gpucore.InvalidID, fmt.Errorf("texres: finish transfer commands: %w", err)
	}
	return cmd, nil
}

// waitForCommands submits the stream, blocks until the device has
// executed it, then frees its staging buffers and resets the budget.
func (s *transferStream) waitForCommands() error {
	cmd, err := s.finish()
	if err != nil {
		return err
	}
	if s.fence == gpucore.InvalidID {
		f, err := s.dev.CreateFence()
		if err != nil {
			return fmt.Errorf("texres: create transfer fence: %w", err)
		}
		s.fence = f
	}
	s.fenceValue++
	if err := s.dev.Submit(cmd, s.fence, s.fenceValue); err != nil {
		return fmt.Errorf("texres: submit transfer commands: %w", err)
	}
	done, err := s.dev.Wait(s.fence, s.fenceValue, stallTimeout)
	if err != nil {
		return fmt.Errorf("texres: wait for transfer commands: %w", err)
	}
	if !done {
		return fmt.Errorf("texres: transfer commands did not complete within %v", stallTimeout)
	}
	s.uploads.destroy(s.dev)
	s.budget = 0
	return nil
}

// flush submits the stream as part of the current frame and, when fence
// is valid, signals it after everything submitted so far. The staging
// buffers move to the frame's delete list and the budget resets.
func (s *transferStream) flush(q *DeleteQueue, fence gpucore.FenceID, value uint64) error {
	cmd, err := s.finish()
	if err != nil {
		return err
	}
	if cmd != gpucore.InvalidID || fence != gpucore.InvalidID {
		if err := s.dev.Submit(cmd, fence, value); err != nil {
			return fmt.Errorf("texres: submit frame transfer commands: %w", err)
		}
	}
	q.List(&s.uploads)
	s.budget = 0
	return nil
}

// destroy discards an open encoder and releases the stream's fence.
// The device must be idle.
func (s *transferStream) destroy() {
	if s.enc != nil {
		s.enc.Discard()
		s.enc = nil
	}
	s.uploads.destroy(s.dev)
	if s.fence != gpucore.InvalidID {
		s.dev.DestroyFence(s.fence)
		s.fence = gpucore.InvalidID
	}
}
