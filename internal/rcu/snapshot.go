package rcu

import (
	"sync/atomic"
)

// Snapshot holds an immutable value that readers load without locking.
// Writers publish a freshly built value; a published value must never be
// mutated afterwards.
type Snapshot[T any] struct {
	ptr atomic.Pointer[T]
}

func NewSnapshot[T any](init *T) *Snapshot[T] {
	s := &Snapshot[T]{}
	s.ptr.Store(init)
	return s
}

// Load returns the current value.
func (s *Snapshot[T]) Load() *T {
	return s.ptr.Load()
}

// Replace publishes next unconditionally.
func (s *Snapshot[T]) Replace(next *T) {
	s.ptr.Store(next)
}

// Update derives a new value from the current one and publishes it, retrying
// when another writer got there first. fn must not modify its argument.
func (s *Snapshot[T]) Update(fn func(cur *T) *T) *T {
	for {
		cur := s.ptr.Load()
		next := fn(cur)
		if s.ptr.CompareAndSwap(cur, next) {
			return next
		}
	}
}
