// Package attempt provides the success/failure value that bridges a single
// asynchronous result into a stream.
package attempt

import (
	"errors"
	"fmt"
	"log/slog"
)

var ErrNilFailure = errors.New("attempt: failure without error")

type Attempt[T any] struct {
	value T
	err   error
}

func Success[T any](v T) Attempt[T] {
	return Attempt[T]{value: v}
}

// Failure wraps err; a nil err is replaced by ErrNilFailure so the tag is never lost.
func Failure[T any](err error) Attempt[T] {
	if err == nil {
		err = ErrNilFailure
	}
	return Attempt[T]{err: err}
}

// Of tags a (value, error) pair.
func Of[T any](v T, err error) Attempt[T] {
	if err != nil {
		return Failure[T](err)
	}
	return Success(v)
}

func (a Attempt[T]) Get() (T, error) {
	return a.value, a.err
}

func (a Attempt[T]) IsSuccess() bool {
	return a.err == nil
}

func (a Attempt[T]) Err() error {
	return a.err
}

func (a Attempt[T]) Fold(onSuccess func(T), onFailure func(error)) {
	if a.err == nil {
		if onSuccess != nil {
			onSuccess(a.value)
		}
	} else if onFailure != nil {
		onFailure(a.err)
	}
}

func (a Attempt[T]) String() string {
	if a.err != nil {
		return fmt.Sprintf("Failure(%v)", a.err)
	}
	return fmt.Sprintf("Success(%v)", a.value)
}

func (a Attempt[T]) LogValue() slog.Value {
	if a.err != nil {
		return slog.GroupValue(slog.Bool("ok", false), slog.Any("err", a.err))
	}
	return slog.GroupValue(slog.Bool("ok", true), slog.Any("value", a.value))
}
