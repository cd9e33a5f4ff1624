package stream

import (
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/mikhailv/fnstream/internal/util"
)

// Merge emits the values of s and other in arrival order. It completes once
// both have completed.
func (s *Stream[T]) Merge(other *Stream[T]) *Stream[T] {
	res := newStream[T]("merge")

	var completed atomic.Int32
	onClose := func() {
		if completed.Add(1) == 2 {
			res.complete()
		}
	}

	stops := []func(){
		s.ch.Listen(res.emit),
		other.ch.Listen(res.emit),
		s.ch.OnClose(onClose),
		other.ch.OnClose(onClose),
	}
	release := func() {
		for _, stop := range stops {
			stop()
		}
	}
	res.setCancel(release)
	res.ch.OnClose(release)
	return res
}

type Pair[A, B any] struct {
	Left  A
	Right B
}

func (p Pair[A, B]) String() string {
	return fmt.Sprintf("(%v, %v)", p.Left, p.Right)
}

func (p Pair[A, B]) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]any{p.Left, p.Right})
}

// Zip pairs the n-th value of a with the n-th value of b. A value waits in
// its side's queue until the other side delivers a partner; queues are
// unbounded. Zip completes once a completed side has no queued values left.
func Zip[A, B any](a *Stream[A], b *Stream[B]) *Stream[Pair[A, B]] {
	res, _ := zip(a, b)
	return res
}

func zip[A, B any](a *Stream[A], b *Stream[B]) (*Stream[Pair[A, B]], *zipper[A, B]) {
	res := newStream[Pair[A, B]]("zip")
	z := &zipper[A, B]{}

	stops := []func(){
		a.ch.Listen(func(v A) {
			if p, ok := z.pushLeft(v); ok {
				res.emit(p)
			}
			if z.exhausted() {
				res.complete()
			}
		}),
		b.ch.Listen(func(v B) {
			if p, ok := z.pushRight(v); ok {
				res.emit(p)
			}
			if z.exhausted() {
				res.complete()
			}
		}),
		a.ch.OnClose(func() {
			if z.closeLeft() {
				res.complete()
			}
		}),
		b.ch.OnClose(func() {
			if z.closeRight() {
				res.complete()
			}
		}),
	}
	release := func() {
		for _, stop := range stops {
			stop()
		}
		z.reset()
	}
	res.setCancel(release)
	// once no pair is possible, the side still running must not fill its queue
	res.ch.OnClose(release)
	return res, z
}

type zipper[A, B any] struct {
	mu        sync.Mutex
	left      util.RingBuf[A]
	right     util.RingBuf[B]
	leftDone  bool
	rightDone bool
}

func (z *zipper[A, B]) pushLeft(v A) (Pair[A, B], bool) {
	z.mu.Lock()
	defer z.mu.Unlock()
	if r, ok := z.right.Pop(); ok {
		return Pair[A, B]{v, r}, true
	}
	z.left.Push(v)
	return Pair[A, B]{}, false
}

func (z *zipper[A, B]) pushRight(v B) (Pair[A, B], bool) {
	z.mu.Lock()
	defer z.mu.Unlock()
	if l, ok := z.left.Pop(); ok {
		return Pair[A, B]{l, v}, true
	}
	z.right.Push(v)
	return Pair[A, B]{}, false
}

func (z *zipper[A, B]) closeLeft() bool {
	z.mu.Lock()
	defer z.mu.Unlock()
	z.leftDone = true
	return z.exhaustedLocked()
}

func (z *zipper[A, B]) closeRight() bool {
	z.mu.Lock()
	defer z.mu.Unlock()
	z.rightDone = true
	return z.exhaustedLocked()
}

func (z *zipper[A, B]) reset() {
	z.mu.Lock()
	defer z.mu.Unlock()
	z.left = util.RingBuf[A]{}
	z.right = util.RingBuf[B]{}
}

func (z *zipper[A, B]) queued() int {
	z.mu.Lock()
	defer z.mu.Unlock()
	return z.left.Size() + z.right.Size()
}

func (z *zipper[A, B]) exhausted() bool {
	z.mu.Lock()
	defer z.mu.Unlock()
	return z.exhaustedLocked()
}

// exhaustedLocked reports whether no further pair can be produced.
func (z *zipper[A, B]) exhaustedLocked() bool {
	return (z.leftDone && z.left.Size() == 0) || (z.rightDone && z.right.Size() == 0)
}
