// Package option provides the keep/drop decision used by stream chaining.
package option

type Option[T any] struct {
	value T
	ok    bool
}

func Some[T any](v T) Option[T] {
	return Option[T]{value: v, ok: true}
}

func None[T any]() Option[T] {
	return Option[T]{}
}

func (o Option[T]) Get() (T, bool) {
	return o.value, o.ok
}

func (o Option[T]) IsSome() bool {
	return o.ok
}

func (o Option[T]) OrElse(v T) T {
	if o.ok {
		return o.value
	}
	return v
}

// Fold calls some with the value when present, none otherwise.
func (o Option[T]) Fold(some func(T), none func()) {
	if o.ok {
		some(o.value)
	} else if none != nil {
		none()
	}
}
