package stream

import (
	"fmt"

	"github.com/mikhailv/fnstream/registry"
)

type untyper interface {
	Untyped() *Stream[any]
}

// IsStream reports whether v is a *Stream of any element type.
func IsStream(v any) bool {
	_, ok := v.(untyper)
	return ok
}

// Untyped returns s viewed as a stream of any.
func (s *Stream[T]) Untyped() *Stream[any] {
	if u, ok := any(s).(*Stream[any]); ok {
		return u
	}
	return Map(s, func(v T) any { return v })
}

// Register attaches stream implementations of "map" and "zip" to r.
//
//	map(s *Stream[T], f func(any) any) *Stream[any]
//	zip(a *Stream[A], b *Stream[B])    *Stream[Pair[any, any]]
func Register(r registry.Registry) registry.Registry {
	return r.
		Method("map", firstIsStream, mapMethod).
		Method("zip", bothAreStreams, zipMethod)
}

func firstIsStream(args ...any) bool {
	return len(args) > 0 && IsStream(args[0])
}

func bothAreStreams(args ...any) bool {
	return len(args) == 2 && IsStream(args[0]) && IsStream(args[1])
}

func mapMethod(args ...any) (any, error) {
	if len(args) != 2 {
		return nil, fmt.Errorf("stream: map: expected 2 arguments, got %d", len(args))
	}
	f, ok := args[1].(func(any) any)
	if !ok {
		return nil, fmt.Errorf("stream: map: expected func(any) any, got %T", args[1])
	}
	return Map(args[0].(untyper).Untyped(), f), nil
}

func zipMethod(args ...any) (any, error) {
	return Zip(args[0].(untyper).Untyped(), args[1].(untyper).Untyped()), nil
}
