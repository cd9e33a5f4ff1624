package util

import "iter"

const minRingBufCapacity = 8

// RingBuf is a FIFO queue over a circular slice. Unlike a fixed ring it never
// drops items: it doubles its capacity when full.
type RingBuf[T any] struct {
	start int
	size  int
	buf   []T
}

func NewRingBuf[T any](capacity int) *RingBuf[T] {
	return &RingBuf[T]{
		buf: make([]T, max(capacity, minRingBufCapacity)),
	}
}

func (s *RingBuf[T]) Push(item T) {
	if s.buf == nil {
		s.buf = make([]T, minRingBufCapacity)
	}
	if s.size == len(s.buf) {
		s.grow()
	}
	s.buf[(s.start+s.size)%len(s.buf)] = item
	s.size++
}

func (s *RingBuf[T]) Pop() (item T, ok bool) {
	if s.size == 0 {
		return item, false
	}
	var zero T
	item = s.buf[s.start]
	s.buf[s.start] = zero
	s.start = (s.start + 1) % len(s.buf)
	s.size--
	return item, true
}

func (s *RingBuf[T]) Peek() (item T, ok bool) {
	if s.size == 0 {
		return item, false
	}
	return s.buf[s.start], true
}

func (s *RingBuf[T]) Get(i int) T {
	return s.buf[(s.start+i)%len(s.buf)]
}

func (s *RingBuf[T]) Size() int {
	return s.size
}

func (s *RingBuf[T]) Values() []T {
	res := make([]T, 0, s.size)
	for it := range s.Iterator() {
		res = append(res, it)
	}
	return res
}

func (s *RingBuf[T]) Iterator() iter.Seq[T] {
	return func(yield func(T) bool) {
		for i := 0; i < s.size; i++ {
			if !yield(s.Get(i)) {
				break
			}
		}
	}
}

func (s *RingBuf[T]) grow() {
	buf := make([]T, len(s.buf)*2)
	for i := 0; i < s.size; i++ {
		buf[i] = s.Get(i)
	}
	s.buf = buf
	s.start = 0
}
