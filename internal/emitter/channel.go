// Package emitter implements the multicast notification primitive streams are
// built on: ordered listeners, synchronous delivery, no buffering and no replay.
package emitter

import (
	"fmt"
	"log/slog"
	"runtime/debug"
	"slices"
	"sync"

	"github.com/mikhailv/fnstream/internal/metrics"
)

// FaultHandler receives listener panics recovered during Notify.
type FaultHandler func(err *ListenerError)

// ListenerError describes a listener that panicked while receiving a value.
type ListenerError struct {
	Value any
	Stack []byte
}

func (e *ListenerError) Error() string {
	return fmt.Sprintf("emitter: listener panic: %v", e.Value)
}

// Unwrap exposes the panic value when it is an error.
func (e *ListenerError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}

type listener[T any] struct {
	key uint64
	fn  func(T)
}

// Channel is safe for concurrent Listen/stop calls. Notify runs listeners on
// the caller's goroutine, outside the lock.
type Channel[T any] struct {
	mu        sync.Mutex
	listeners []listener[T]
	closers   []listener[struct{}]
	nextKey   uint64
	closed    bool
	onFault   FaultHandler
}

// New returns an open channel. A nil onFault reports to the slog default
// logger current at the time of the fault.
func New[T any](onFault FaultHandler) *Channel[T] {
	if onFault == nil {
		onFault = func(err *ListenerError) { LogFaults(slog.Default())(err) }
	}
	return &Channel[T]{onFault: onFault}
}

// LogFaults returns a FaultHandler reporting to logger.
func LogFaults(logger *slog.Logger) FaultHandler {
	return func(err *ListenerError) {
		logger.Error("listener failed", "err", err, "stack", string(err.Stack))
	}
}

// Listen registers fn for every future Notify. stop is idempotent.
func (c *Channel[T]) Listen(fn func(T)) (stop func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return func() {}
	}
	key := c.nextKey
	c.nextKey++
	c.listeners = append(c.listeners, listener[T]{key, fn})
	return func() {
		c.mu.Lock()
		c.listeners = removeKey(c.listeners, key)
		c.mu.Unlock()
	}
}

// OnClose registers fn to run once when the channel closes. On an already
// closed channel fn runs immediately.
func (c *Channel[T]) OnClose(fn func()) (stop func()) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		c.invoke(func() { fn() })
		return func() {}
	}
	key := c.nextKey
	c.nextKey++
	c.closers = append(c.closers, listener[struct{}]{key, func(struct{}) { fn() }})
	c.mu.Unlock()
	return func() {
		c.mu.Lock()
		c.closers = removeKey(c.closers, key)
		c.mu.Unlock()
	}
}

// Notify delivers v to the listeners registered at the moment of the call, in
// registration order. It is a no-op on a closed channel.
func (c *Channel[T]) Notify(v T) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	snapshot := slices.Clone(c.listeners)
	c.mu.Unlock()

	for _, l := range snapshot {
		c.invoke(func() { l.fn(v) })
	}
}

// Close marks the channel complete, runs the close listeners once and drops
// every registration.
func (c *Channel[T]) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	closers := c.closers
	c.closers = nil
	c.listeners = nil
	c.mu.Unlock()

	for _, l := range closers {
		c.invoke(func() { l.fn(struct{}{}) })
	}
}

func (c *Channel[T]) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *Channel[T]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.listeners)
}

func (c *Channel[T]) invoke(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			metrics.TrackListenerFault()
			c.onFault(&ListenerError{Value: r, Stack: debug.Stack()})
		}
	}()
	fn()
}

func removeKey[T any](ls []listener[T], key uint64) []listener[T] {
	return slices.DeleteFunc(ls, func(l listener[T]) bool { return l.key == key })
}
