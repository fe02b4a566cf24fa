package gputest

// Pacer is a frame pacer driven by the test: Advance starts a new frame
// and Complete marks frames finished.
type Pacer struct {
	Frame     uint64
	completed uint64
}

// NewPacer starts at frame 1 with nothing completed.
func NewPacer() *Pacer { return &Pacer{Frame: 1} }

// CurrentFrame implements texres.FramePacer.
func (p *Pacer) CurrentFrame() uint64 { return p.Frame }

// FrameCompleted implements texres.FramePacer.
func (p *Pacer) FrameCompleted(frame uint64) bool { return frame <= p.completed }

// Advance begins the next frame.
func (p *Pacer) Advance() { p.Frame++ }

// Complete marks every frame up to and including frame as finished.
func (p *Pacer) Complete(frame uint64) {
	if frame > p.completed {
		p.completed = frame
	}
}
