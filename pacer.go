package texres

import (
	"fmt"
	"time"

	"github.com/gogpu/texres/gpucore"
)

// FramePacer tells the core which frame is being recorded and which
// frames the GPU has finished. It is owned by the engine's frame loop.
type FramePacer interface {
	// CurrentFrame returns the number of the frame being recorded.
	CurrentFrame() uint64

	// FrameCompleted reports whether all GPU work of frame has finished.
	// It must not block.
	FrameCompleted(frame uint64) bool
}

// frameSignaler is implemented by pacers whose fence the Manager signals
// at the end of each frame.
type frameSignaler interface {
	signal() (gpucore.FenceID, uint64)
	advance() error
}

// frameWaitTimeout bounds the wait for a frame slot to come free.
const frameWaitTimeout = 10 * time.Second

// FencePacer is a FramePacer backed by one device fence whose value is
// the number of the last completed frame. Frames are numbered from 1.
//
// Manager.EndFrame signals the fence and advances the frame; advancing
// blocks while more than framesInFlight frames are pending on the GPU.
type FencePacer struct {
	dev            gpucore.Device
	fence          gpucore.FenceID
	current        uint64
	framesInFlight int
}

// NewFencePacer creates a pacer on dev.
func NewFencePacer(dev gpucore.Device, framesInFlight int) (*FencePacer, error) {
	if framesInFlight < 1 {
		framesInFlight = DefaultFramesInFlight
	}
	fence, err := dev.CreateFence()
	if err != nil {
		return nil, fmt.Errorf("texres: create frame fence: %w", err)
	}
	return &FencePacer{
		dev:            dev,
		fence:          fence,
		current:        1,
		framesInFlight: framesInFlight,
	}, nil
}

// CurrentFrame implements FramePacer.
func (p *FencePacer) CurrentFrame() uint64 { return p.current }

// FrameCompleted implements FramePacer.
func (p *FencePacer) FrameCompleted(frame uint64) bool {
	if frame >= p.current {
		return false
	}
	done, err := p.dev.Wait(p.fence, frame, 0)
	return err == nil && done
}

func (p *FencePacer) signal() (gpucore.FenceID, uint64) {
	return p.fence, p.current
}

func (p *FencePacer) advance() error {
	p.current++
	if p.current <= uint64(p.framesInFlight) {
		return nil
	}
	oldest := p.current - uint64(p.framesInFlight)
	done, err := p.dev.Wait(p.fence, oldest, frameWaitTimeout)
	if err != nil {
		return fmt.Errorf("texres: wait for frame %d: %w", oldest, err)
	}
	if !done {
		return fmt.Errorf("texres: timed out waiting for frame %d", oldest)
	}
	return nil
}

// Destroy releases the fence. The device must be idle.
func (p *FencePacer) Destroy() {
	if p.fence != gpucore.InvalidID {
		p.dev.DestroyFence(p.fence)
		p.fence = gpucore.InvalidID
	}
}
