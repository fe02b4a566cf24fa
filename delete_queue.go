package texres

import "github.com/gogpu/texres/gpucore"

// DeleteList holds device handles awaiting destruction, grouped by kind.
type DeleteList struct {
	Images         []gpucore.ImageID
	Views          []gpucore.ViewID
	Buffers        []gpucore.BufferID
	Framebuffers   []gpucore.FramebufferID
	DescriptorSets []gpucore.DescriptorSetID
}

// Len returns the number of handles in the list.
func (l *DeleteList) Len() int {
	return len(l.Images) + len(l.Views) + len(l.Buffers) + len(l.Framebuffers) + len(l.DescriptorSets)
}

func (l *DeleteList) merge(o *DeleteList) {
	l.Images = append(l.Images, o.Images...)
	l.Views = append(l.Views, o.Views...)
	l.Buffers = append(l.Buffers, o.Buffers...)
	l.Framebuffers = append(l.Framebuffers, o.Framebuffers...)
	l.DescriptorSets = append(l.DescriptorSets, o.DescriptorSets...)
}

// destroy releases every handle, dependents first, and empties the list.
func (l *DeleteList) destroy(dev gpucore.Device) int {
	n := l.Len()
	for _, id := range l.DescriptorSets {
		dev.DestroyDescriptorSet(id)
	}
	for _, id := range l.Framebuffers {
		dev.DestroyFramebuffer(id)
	}
	for _, id := range l.Views {
		dev.DestroyView(id)
	}
	for _, id := range l.Images {
		dev.DestroyImage(id)
	}
	for _, id := range l.Buffers {
		dev.DestroyBuffer(id)
	}
	*l = DeleteList{}
	return n
}

type frameSlot struct {
	frame uint64
	used  bool
	list  DeleteList
}

// DeleteQueue defers destruction of device handles until the frame that
// last referenced them is known to be complete.
//
// It is a ring of one slot per frame in flight. A handle must be enqueued
// at most once and must not be referenced by commands recorded after it
// was enqueued.
type DeleteQueue struct {
	dev   gpucore.Device
	pacer FramePacer
	slots []frameSlot
	freed int
}

func newDeleteQueue(dev gpucore.Device, pacer FramePacer, frames int) *DeleteQueue {
	return &DeleteQueue{
		dev:   dev,
		pacer: pacer,
		slots: make([]frameSlot, frames),
	}
}

// current returns the list of the frame being recorded.
//
// When the slot still holds handles of an older frame that has not been
// confirmed complete, the slot is taken over by the current frame. Frames
// complete in order, so the older handles are still freed no earlier than
// their own frame.
func (q *DeleteQueue) current() *DeleteList {
	frame := q.pacer.CurrentFrame()
	s := &q.slots[frame%uint64(len(q.slots))]
	if !s.used || s.frame < frame {
		s.frame = frame
		s.used = true
	}
	return &s.list
}

// Image defers destruction of an image. InvalidID is ignored.
func (q *DeleteQueue) Image(id gpucore.ImageID) {
	if id != gpucore.InvalidID {
		l := q.current()
		l.Images = append(l.Images, id)
	}
}

// View defers destruction of a view. InvalidID is ignored.
func (q *DeleteQueue) View(id gpucore.ViewID) {
	if id != gpucore.InvalidID {
		l := q.current()
		l.Views = append(l.Views, id)
	}
}

// Buffer defers destruction of a buffer. InvalidID is ignored.
func (q *DeleteQueue) Buffer(id gpucore.BufferID) {
	if id != gpucore.InvalidID {
		l := q.current()
		l.Buffers = append(l.Buffers, id)
	}
}

// Framebuffer defers destruction of a framebuffer. InvalidID is ignored.
func (q *DeleteQueue) Framebuffer(id gpucore.FramebufferID) {
	if id != gpucore.InvalidID {
		l := q.current()
		l.Framebuffers = append(l.Framebuffers, id)
	}
}

// DescriptorSet defers destruction of a descriptor set. InvalidID is ignored.
func (q *DeleteQueue) DescriptorSet(id gpucore.DescriptorSetID) {
	if id != gpucore.InvalidID {
		l := q.current()
		l.DescriptorSets = append(l.DescriptorSets, id)
	}
}

// List defers destruction of every handle in l and empties it.
func (q *DeleteQueue) List(l *DeleteList) {
	if l.Len() == 0 {
		return
	}
	q.current().merge(l)
	*l = DeleteList{}
}

// Collect destroys the handles of every frame the pacer reports complete.
// It returns the number of handles freed.
func (q *DeleteQueue) Collect() int {
	n := 0
	for i := range q.slots {
		s := &q.slots[i]
		if !s.used || !q.pacer.FrameCompleted(s.frame) {
			continue
		}
		freed := s.list.destroy(q.dev)
		if freed > 0 {
			Logger().Debug("texres: deferred deletes drained", "frame", s.frame, "handles", freed)
		}
		n += freed
		s.used = false
	}
	q.freed += n
	return n
}

// DrainAll destroys everything regardless of frame state. Only valid after
// the device has gone idle.
func (q *DeleteQueue) DrainAll() int {
	n := 0
	for i := range q.slots {
		n += q.slots[i].list.destroy(q.dev)
		q.slots[i].used = false
	}
	q.freed += n
	return n
}

// Pending returns the number of handles awaiting destruction.
func (q *DeleteQueue) Pending() int {
	n := 0
	for i := range q.slots {
		n += q.slots[i].list.Len()
	}
	return n
}
