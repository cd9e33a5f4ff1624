package stream

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mikhailv/fnstream/attempt"
	"github.com/mikhailv/fnstream/trampoline"
)

// StartFunc arms a tick source (for example a repeating timer) that calls
// tick for every step, and returns the function that disarms it.
type StartFunc func(tick func()) (stop func())

// Of is the lowest-level source. Every tick of start computes one step: a
// continuation emits its value and waits for the next tick, a final step emits
// its value, disarms start and completes the stream.
func Of[T any](start StartFunc, step func() trampoline.Step[T]) *Stream[T] {
	return of("of", start, step)
}

func of[T any](op string, start StartFunc, step func() trampoline.Step[T]) *Stream[T] {
	s := newStream[T](op)

	var finished atomic.Bool
	var stop atomic.Pointer[func()]
	disarm := func() {
		if fn := stop.Swap(nil); fn != nil {
			(*fn)()
		}
	}

	tick := func() {
		if finished.Load() {
			return
		}
		st := step()
		s.emit(st.Value())
		if st.IsDone() {
			finished.Store(true)
			disarm()
			s.complete()
		}
	}

	stopFn := start(tick)
	if stopFn != nil {
		stop.Store(&stopFn)
	}
	if finished.Load() {
		// start ticked through to the final step before handing back its stop
		disarm()
	}

	s.setCancel(func() {
		finished.Store(true)
		disarm()
	})
	return s
}

// Poll computes one step every delay on loop.
func Poll[T any](loop Scheduler, step func() trampoline.Step[T], delay time.Duration) *Stream[T] {
	return poll("poll", loop, step, delay)
}

func poll[T any](op string, loop Scheduler, step func() trampoline.Step[T], delay time.Duration) *Stream[T] {
	return of(op, func(tick func()) func() {
		return loop.Every(delay, tick)
	}, step)
}

// Sequential emits each of values once, in order, one every delay, and
// completes after the last one. An empty slice completes immediately.
func Sequential[T any](loop Scheduler, values []T, delay time.Duration) *Stream[T] {
	if len(values) == 0 {
		s := newStream[T]("sequential")
		s.complete()
		return s
	}

	values = slices.Clone(values)
	last := len(values) - 1
	index := 0
	return poll("sequential", loop, func() trampoline.Step[T] {
		if index >= last {
			return trampoline.Done(values[last])
		}
		return trampoline.Continue(func() T {
			v := values[index]
			index++
			return v
		})
	}, delay)
}

// FromAsync bridges one asynchronous computation into a stream that emits its
// outcome as a single Attempt and then completes. fn is started from a
// zero-delay loop task on its own goroutine, so FromAsync always returns
// before fn can settle; the outcome is delivered back on the loop.
//
// The context given to fn derives from ctx and is released as soon as fn
// returns. A loop closed before the start task runs never starts fn.
//
// Cancel stops a computation that has not settled and cancels its context.
func FromAsync[T any](ctx context.Context, loop Scheduler, fn func(ctx context.Context) (T, error)) *Stream[attempt.Attempt[T]] {
	s := newStream[attempt.Attempt[T]]("from_async")

	var mu sync.Mutex
	var cancelRun context.CancelFunc
	cancelled := false

	stopTimer := loop.AfterFunc(0, func() {
		mu.Lock()
		if cancelled {
			mu.Unlock()
			return
		}
		runCtx, cancel := context.WithCancel(ctx)
		cancelRun = cancel
		mu.Unlock()

		go func() {
			res := runAsync(runCtx, fn)
			cancel()
			loop.Post(func() {
				s.emit(res)
				s.complete()
			})
		}()
	})

	s.setCancel(func() {
		stopTimer()
		mu.Lock()
		cancelled = true
		cancel := cancelRun
		mu.Unlock()
		if cancel != nil {
			cancel()
		}
	})
	return s
}

func runAsync[T any](ctx context.Context, fn func(ctx context.Context) (T, error)) (res attempt.Attempt[T]) {
	defer func() {
		if r := recover(); r != nil {
			res = attempt.Failure[T](fmt.Errorf("stream: async computation panicked: %v", r))
		}
	}()
	return attempt.Of(fn(ctx))
}
