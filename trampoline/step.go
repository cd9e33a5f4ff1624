// Package trampoline holds the continue/done step produced by stepping
// functions of timer-driven sources. A source computes one step per tick, so
// long-running generation never grows the call stack.
package trampoline

// Step is either a continuation carrying a thunk for the value to emit now, or
// the final value after which production stops.
type Step[T any] struct {
	next  func() T
	final T
	done  bool
}

func Continue[T any](next func() T) Step[T] {
	return Step[T]{next: next}
}

func Done[T any](final T) Step[T] {
	return Step[T]{final: final, done: true}
}

func (s Step[T]) IsDone() bool {
	return s.done
}

// Value evaluates the continuation thunk, or returns the final value.
func (s Step[T]) Value() T {
	if s.done || s.next == nil {
		return s.final
	}
	return s.next()
}
