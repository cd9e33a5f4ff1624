package stream

import (
	"context"
	"slices"
	"sync"
)

// Foreach runs effect for every emission of s and returns a stream that
// re-emits each value after effect has run on it.
func (s *Stream[T]) Foreach(effect func(T)) *Stream[T] {
	return derive("foreach", s, func(v T, emit func(T)) {
		effect(v)
		emit(v)
	})
}

// ToArray starts collecting the emissions of s. The returned Array grows as
// values arrive; it is a live view, not a terminal result.
func (s *Stream[T]) ToArray() *Array[T] {
	a := &Array[T]{done: s.done}
	s.ch.Listen(a.add)
	return a
}

type Array[T any] struct {
	mu     sync.RWMutex
	values []T
	done   <-chan struct{}
}

func (a *Array[T]) add(v T) {
	a.mu.Lock()
	a.values = append(a.values, v)
	a.mu.Unlock()
}

// Values returns a copy of the values collected so far.
func (a *Array[T]) Values() []T {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return slices.Clone(a.values)
}

func (a *Array[T]) Len() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.values)
}

// Wait blocks until the source stream completes and returns everything it
// collected.
func (a *Array[T]) Wait(ctx context.Context) ([]T, error) {
	select {
	case <-a.done:
		return a.Values(), nil
	case <-ctx.Done():
		return a.Values(), ctx.Err()
	}
}
