package server

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mikhailv/fnstream/stream"
)

// lateLoop runs every task inline but reports that Do gave up waiting.
type lateLoop struct{}

func (lateLoop) Do(_ context.Context, fn func()) error {
	fn()
	return context.DeadlineExceeded
}

func (lateLoop) Post(fn func()) { fn() }

func newSource(t *testing.T) (*stream.Stream[int], func(int)) {
	t.Helper()
	var emit func(int)
	st, err := stream.New(func(e func(int), _ func()) (func(), error) {
		emit = e
		return nil, nil
	})
	require.NoError(t, err)
	return st, emit
}

func TestAttachListener_ReleasedWhenDoGivesUp(t *testing.T) {
	st, emit := newSource(t)

	var filtered, received int
	filter := func(int) bool { filtered++; return true }
	_, _, err := attachListener(context.Background(), lateLoop{}, st, filter, func(int) { received++ })
	require.ErrorIs(t, err, context.DeadlineExceeded)

	emit(1)
	assert.Zero(t, filtered, "filtered view no longer subscribed")
	assert.Zero(t, received)
}

func TestAttachListener_Detach(t *testing.T) {
	st, emit := newSource(t)

	var received []int
	view, detach, err := attachListener(context.Background(), syncLoop{}, st, func(v int) bool { return v > 1 }, func(v int) {
		received = append(received, v)
	})
	require.NoError(t, err)

	emit(1)
	emit(2)
	assert.Equal(t, []int{2}, received)

	detach()
	assert.True(t, view.Completed())
	emit(3)
	assert.Equal(t, []int{2}, received)
}

type syncLoop struct{}

func (syncLoop) Do(_ context.Context, fn func()) error {
	fn()
	return nil
}

func (syncLoop) Post(fn func()) { fn() }
