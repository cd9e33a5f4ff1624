package stream

import (
	"fmt"

	"github.com/mikhailv/fnstream/algebra"
	"github.com/mikhailv/fnstream/option"
)

// Chain maps every emission of s through f and emits the kept values. Map,
// Filter, Reduce, Concat and Empty are all built on it.
func Chain[A, B any](s *Stream[A], f func(A) option.Option[B]) *Stream[B] {
	return chain("chain", s, f)
}

func chain[A, B any](op string, s *Stream[A], f func(A) option.Option[B]) *Stream[B] {
	return derive(op, s, func(v A, emit func(B)) {
		if res, ok := f(v).Get(); ok {
			emit(res)
		}
	})
}

func Map[A, B any](s *Stream[A], f func(A) B) *Stream[B] {
	return chain("map", s, func(v A) option.Option[B] {
		return option.Some(f(v))
	})
}

func (s *Stream[T]) Filter(p func(T) bool) *Stream[T] {
	return chain("filter", s, func(v T) option.Option[T] {
		if p(v) {
			return option.Some(v)
		}
		return option.None[T]()
	})
}

// Reduce emits the running accumulation of s. The accumulator belongs to the
// returned stream: reducing the same stream twice gives two independent ones.
func Reduce[T, A any](s *Stream[T], seed A, f func(acc A, v T) A) *Stream[A] {
	acc := seed
	return chain("reduce", s, func(v T) option.Option[A] {
		acc = f(acc, v)
		return option.Some(acc)
	})
}

// Concat emits every value of s combined with other by the monoid r resolves
// for T.
func (s *Stream[T]) Concat(r *algebra.Resolver, other T) (*Stream[T], error) {
	m, err := algebra.Resolve[T](r)
	if err != nil {
		return nil, fmt.Errorf("stream: concat: %w", err)
	}
	return chain("concat", s, func(v T) option.Option[T] {
		return option.Some(m.Concat(v, other))
	}), nil
}

// Empty emits the monoid identity of T in place of every value of s.
func (s *Stream[T]) Empty(r *algebra.Resolver) (*Stream[T], error) {
	m, err := algebra.Resolve[T](r)
	if err != nil {
		return nil, fmt.Errorf("stream: empty: %w", err)
	}
	return chain("empty", s, func(T) option.Option[T] {
		return option.Some(m.Empty())
	}), nil
}
