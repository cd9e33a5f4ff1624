// Package eventloop provides the single logical thread streams run on.
//
// A Loop executes queued tasks and due timers one at a time. In real mode Run
// drives it from one goroutine; in virtual mode Advance drives it from the
// caller's goroutine against a manual clock, which makes timing deterministic.
//
// Tasks and timers may be scheduled from any goroutine.
package eventloop

import (
	"container/heap"
	"context"
	"errors"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/mikhailv/fnstream/internal/metrics"
	"github.com/mikhailv/fnstream/internal/util"
)

// MinInterval is the shortest period Every accepts; shorter periods are raised
// to it so repeating timers always yield between ticks.
const MinInterval = time.Millisecond

var (
	ErrClosed  = errors.New("eventloop: loop closed")
	ErrVirtual = errors.New("eventloop: virtual loop is driven by Advance")
)

type Loop struct {
	mu      sync.Mutex
	clock   Clock
	virtual *VirtualClock
	tasks   util.RingBuf[func()]
	timers  timerHeap
	seq     uint64
	wake    chan struct{}
	closed  bool
	logger  *slog.Logger
}

func New(opts ...Option) *Loop {
	l := &Loop{
		clock:  systemClock{},
		wake:   make(chan struct{}, 1),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(l)
		}
	}
	return l
}

// NewVirtual returns a loop whose time only moves on Advance.
func NewVirtual(opts ...Option) *Loop {
	clock := NewVirtualClock(time.Unix(0, 0).UTC())
	l := New(append([]Option{WithClock(clock)}, opts...)...)
	l.virtual = clock
	return l
}

func (l *Loop) Now() time.Time {
	return l.clock.Now()
}

// Post queues fn to run on the loop after the tasks already queued.
func (l *Loop) Post(fn func()) {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return
	}
	l.tasks.Push(fn)
	l.mu.Unlock()
	l.signal()
}

// AfterFunc runs fn once on the loop after d.
func (l *Loop) AfterFunc(d time.Duration, fn func()) (cancel func()) {
	return l.schedule(d, 0, fn)
}

// Every runs fn on the loop every d, first after d.
func (l *Loop) Every(d time.Duration, fn func()) (cancel func()) {
	d = max(d, MinInterval)
	return l.schedule(d, d, fn)
}

// Do runs fn on the loop and waits for it to finish. It must not be called
// from the loop itself.
func (l *Loop) Do(ctx context.Context, fn func()) error {
	if l.virtual != nil {
		if l.isClosed() {
			return ErrClosed
		}
		l.Post(fn)
		l.Flush()
		return nil
	}

	done := make(chan struct{})
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return ErrClosed
	}
	l.tasks.Push(func() {
		defer close(done)
		fn()
	})
	l.mu.Unlock()
	l.signal()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// SetLogger replaces the loop's logger. It must be called before Run.
func (l *Loop) SetLogger(logger *slog.Logger) {
	if logger != nil {
		l.logger = logger
	}
}

// Run executes tasks and timers until ctx is done or the loop is closed.
func (l *Loop) Run(ctx context.Context) error {
	if l.virtual != nil {
		return ErrVirtual
	}

	l.logger.Debug("loop started")
	defer l.logger.Debug("loop stopped")

	wait := time.NewTimer(time.Hour)
	defer wait.Stop()

	for {
		l.drain()

		l.mu.Lock()
		closed := l.closed
		next, hasNext := l.nextDueLocked()
		l.mu.Unlock()
		if closed {
			return nil
		}

		var timerCh <-chan time.Time
		if hasNext {
			wait.Reset(max(0, time.Until(next)))
			timerCh = wait.C
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.wake:
		case <-timerCh:
		}
		wait.Stop()
	}
}

// Advance moves a virtual loop's clock forward by d, running every task and
// timer that becomes due, in due order, on the caller's goroutine.
func (l *Loop) Advance(d time.Duration) {
	if l.virtual == nil {
		panic(ErrVirtual)
	}
	target := l.virtual.Now().Add(d)
	for {
		l.drain()
		l.mu.Lock()
		next, ok := l.nextDueLocked()
		l.mu.Unlock()
		if !ok || next.After(target) {
			break
		}
		l.virtual.Set(next)
	}
	l.virtual.Set(target)
	l.drain()
}

// Flush runs queued tasks and timers already due without moving the clock.
func (l *Loop) Flush() {
	l.drain()
}

// Pending returns the number of queued tasks and armed timers.
func (l *Loop) Pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.tasks.Size() + l.timers.Len()
}

// Close stops the loop and drops every queued task and timer.
func (l *Loop) Close() {
	l.mu.Lock()
	l.closed = true
	l.tasks = util.RingBuf[func()]{}
	for _, t := range l.timers {
		t.index = -1
	}
	l.timers = nil
	l.mu.Unlock()
	metrics.SetPendingTimers(0)
	l.signal()
}

func (l *Loop) isClosed() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.closed
}

func (l *Loop) schedule(delay, interval time.Duration, fn func()) (cancel func()) {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return func() {}
	}
	l.seq++
	t := &timer{
		due:      l.clock.Now().Add(max(0, delay)),
		seq:      l.seq,
		interval: interval,
		fn:       fn,
	}
	heap.Push(&l.timers, t)
	metrics.SetPendingTimers(l.timers.Len())
	l.mu.Unlock()
	l.signal()

	return func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		if t.index >= 0 {
			heap.Remove(&l.timers, t.index)
			metrics.SetPendingTimers(l.timers.Len())
		}
	}
}

func (l *Loop) drain() {
	for {
		fn, ok := l.next()
		if !ok {
			return
		}
		l.run(fn)
	}
}

// next pops a queued task, or else the earliest due timer (re-arming it when it repeats).
func (l *Loop) next() (func(), bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil, false
	}
	if fn, ok := l.tasks.Pop(); ok {
		return fn, true
	}
	if l.timers.Len() == 0 {
		return nil, false
	}
	now := l.clock.Now()
	t := l.timers[0]
	if t.due.After(now) {
		return nil, false
	}
	if t.interval > 0 {
		t.due = t.due.Add(t.interval)
		if t.due.Before(now) {
			t.due = now
		}
		l.seq++
		t.seq = l.seq
		heap.Fix(&l.timers, 0)
	} else {
		heap.Pop(&l.timers)
		metrics.SetPendingTimers(l.timers.Len())
	}
	return t.fn, true
}

func (l *Loop) nextDueLocked() (time.Time, bool) {
	if l.timers.Len() == 0 {
		return time.Time{}, false
	}
	return l.timers[0].due, true
}

func (l *Loop) run(fn func()) {
	defer metrics.TrackDuration("loop_task")()
	defer func() {
		if r := recover(); r != nil {
			metrics.TrackStatus("loop_task", "panic")
			l.logger.Error("task panicked", "panic", r, "stack", string(debug.Stack()))
		}
	}()
	fn()
}

func (l *Loop) signal() {
	select {
	case l.wake <- struct{}{}:
	default:
	}
}
