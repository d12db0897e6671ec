package pipeline

import "sync"

// Slot is a one-deep overwritable handoff cell between a producer running
// at its own cadence and a consumer polling at another. Put always
// succeeds and replaces the stored value; older values are dropped, never
// queued. Latency beats completeness here.
//
// Ownership is exclusive: a value is owned either by the slot or by
// exactly one side. Put returns the value it displaced so the producer
// can release resources held by it; Take removes the value, making the
// consumer its owner.
type Slot[T any] struct {
	mu   sync.Mutex
	val  T
	full bool
}

func NewSlot[T any]() *Slot[T] {
	return &Slot[T]{}
}

// Put stores v as the latest value. The displaced value, if the consumer
// never took it, is returned with dropped=true.
func (s *Slot[T]) Put(v T) (old T, dropped bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	old, dropped = s.val, s.full
	s.val = v
	s.full = true
	return old, dropped
}

// Take removes and returns the stored value, or ok=false when the
// producer has not put anything since the last Take.
func (s *Slot[T]) Take() (v T, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.full {
		var zero T
		return zero, false
	}

	v = s.val
	var zero T
	s.val = zero
	s.full = false
	return v, true
}
