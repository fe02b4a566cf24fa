// Package arena stores values in a slice addressed by index plus generation
// handles. A handle goes stale as soon as its slot is freed, even if the
// slot is later reused.
package arena

// Handle addresses a slot in an Arena. The zero Handle is never valid.
type Handle struct {
	index uint32
	gen   uint32
}

// IsZero reports whether h is the zero handle.
func (h Handle) IsZero() bool { return h.gen == 0 }

// Index returns the slot index, for logging.
func (h Handle) Index() uint32 { return h.index }

// Generation returns the slot generation, for logging.
func (h Handle) Generation() uint32 { return h.gen }

type slot[T any] struct {
	value T
	gen   uint32 // odd while occupied
}

// Arena is a generation-checked slot allocator.
// It is not safe for concurrent use.
type Arena[T any] struct {
	slots []slot[T]
	free  []uint32
	live  int
}

// Insert stores v and returns its handle.
func (a *Arena[T]) Insert(v T) Handle {
	var idx uint32
	if n := len(a.free); n > 0 {
		idx = a.free[n-1]
		a.free = a.free[:n-1]
	} else {
		a.slots = append(a.slots, slot[T]{})
		idx = uint32(len(a.slots) - 1)
	}
	s := &a.slots[idx]
	s.gen++
	s.value = v
	a.live++
	return Handle{index: idx, gen: s.gen}
}

// Get returns the value for h, or false when h is stale.
func (a *Arena[T]) Get(h Handle) (T, bool) {
	if !a.valid(h) {
		var zero T
		return zero, false
	}
	return a.slots[h.index].value, true
}

// Remove frees the slot for h and returns its value.
func (a *Arena[T]) Remove(h Handle) (T, bool) {
	var zero T
	if !a.valid(h) {
		return zero, false
	}
	s := &a.slots[h.index]
	v := s.value
	s.value = zero
	s.gen++
	a.free = append(a.free, h.index)
	a.live--
	return v, true
}

// Len returns the number of live values.
func (a *Arena[T]) Len() int { return a.live }

// Each calls fn for every live value in slot order.
func (a *Arena[T]) Each(fn func(Handle, T)) {
	for i := range a.slots {
		s := &a.slots[i]
		if s.gen%2 == 1 {
			fn(Handle{index: uint32(i), gen: s.gen}, s.value)
		}
	}
}

func (a *Arena[T]) valid(h Handle) bool {
	if h.gen == 0 || int(h.index) >= len(a.slots) {
		return false
	}
	return a.slots[h.index].gen == h.gen
}
