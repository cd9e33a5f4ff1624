// Package stream implements hot, push-based streams of values.
//
// A Stream wraps one construction routine that runs exactly once,
// synchronously, when the stream is created. Production therefore starts at
// construction and is shared by every consumer attached later: a listener only
// observes emissions that happen after it is attached, nothing is replayed.
//
// Sources (Of, Poll, Sequential, FromAsync) schedule their production on an
// event loop. Combinators (Chain, Map, Filter, Reduce, Merge, Zip, Foreach)
// never schedule anything: they react on the call stack of the upstream
// emission that triggered them.
//
// Every stream also carries a completion signal. A source completes after its
// last value or when cancelled; derived streams complete when their upstream
// can no longer produce anything for them.
package stream

import (
	"sync"
	"time"

	"github.com/mikhailv/fnstream/internal/emitter"
	"github.com/mikhailv/fnstream/internal/metrics"
)

// Scheduler is the event loop sources schedule their production on.
// *eventloop.Loop implements it.
type Scheduler interface {
	Post(fn func())
	AfterFunc(d time.Duration, fn func()) (cancel func())
	Every(d time.Duration, fn func()) (cancel func())
}

type Stream[T any] struct {
	op     string
	ch     *emitter.Channel[T]
	done   chan struct{}
	mu     sync.Mutex
	cancel func()
}

// BuildFunc produces values through emit and signals the end of production
// through done. The returned cancel, if any, stops further production.
type BuildFunc[T any] func(emit func(T), done func()) (cancel func(), err error)

// New creates a stream and runs build immediately. A build error is returned
// to the caller and no stream is created.
func New[T any](build BuildFunc[T]) (*Stream[T], error) {
	s := newStream[T]("new")
	cancel, err := build(s.emit, s.complete)
	if err != nil {
		s.complete()
		return nil, err
	}
	s.setCancel(cancel)
	return s, nil
}

func newStream[T any](op string) *Stream[T] {
	s := &Stream[T]{
		op:   op,
		ch:   emitter.New[T](nil),
		done: make(chan struct{}),
	}
	s.ch.OnClose(func() { close(s.done) })
	return s
}

func (s *Stream[T]) emit(v T) {
	if s.ch.Closed() {
		return
	}
	metrics.TrackEmission(s.op)
	s.ch.Notify(v)
}

func (s *Stream[T]) complete() {
	s.ch.Close()
}

func (s *Stream[T]) setCancel(cancel func()) {
	s.mu.Lock()
	s.cancel = cancel
	s.mu.Unlock()
}

// Listen attaches fn to every future emission.
func (s *Stream[T]) Listen(fn func(T)) (stop func()) {
	return s.ch.Listen(fn)
}

// OnComplete runs fn once the stream completes, immediately if it already has.
func (s *Stream[T]) OnComplete(fn func()) (stop func()) {
	return s.ch.OnClose(fn)
}

// Done is closed when the stream completes.
func (s *Stream[T]) Done() <-chan struct{} {
	return s.done
}

func (s *Stream[T]) Completed() bool {
	return s.ch.Closed()
}

// Cancel stops this stream's own production and completes it. Upstream
// streams keep running; downstream streams complete with it.
func (s *Stream[T]) Cancel() {
	s.mu.Lock()
	cancel := s.cancel
	s.cancel = nil
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	s.complete()
}

// derive builds a stream fed by up's emissions. It completes with up.
func derive[A, B any](op string, up *Stream[A], onValue func(v A, emit func(B))) *Stream[B] {
	s := newStream[B](op)
	stopValues := up.ch.Listen(func(v A) { onValue(v, s.emit) })
	stopClose := up.ch.OnClose(s.complete)
	s.setCancel(func() {
		stopValues()
		stopClose()
	})
	return s
}
