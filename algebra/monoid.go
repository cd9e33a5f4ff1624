// Package algebra resolves empty/concat capabilities for payload types at
// runtime. A Resolver is passed explicitly to the operations that need one.
package algebra

import (
	"errors"
	"fmt"
	"reflect"
	"sync"
)

var ErrNoInstance = errors.New("algebra: no monoid instance")

type Monoid[T any] interface {
	Empty() T
	Concat(a, b T) T
}

// Func builds a Monoid from an identity value and a combine function.
func Func[T any](empty T, concat func(a, b T) T) Monoid[T] {
	return funcMonoid[T]{empty, concat}
}

type funcMonoid[T any] struct {
	empty  T
	concat func(a, b T) T
}

func (m funcMonoid[T]) Empty() T        { return m.empty }
func (m funcMonoid[T]) Concat(a, b T) T { return m.concat(a, b) }

type Resolver struct {
	mu        sync.RWMutex
	instances map[reflect.Type]any
}

func NewResolver() *Resolver {
	return &Resolver{instances: map[reflect.Type]any{}}
}

// Default returns a resolver with instances for strings, byte slices and
// numeric sums.
func Default() *Resolver {
	r := NewResolver()
	Register(r, Func("", func(a, b string) string { return a + b }))
	Register(r, Func([]byte(nil), func(a, b []byte) []byte {
		res := make([]byte, 0, len(a)+len(b))
		return append(append(res, a...), b...)
	}))
	Register(r, Func(0, func(a, b int) int { return a + b }))
	Register(r, Func(int64(0), func(a, b int64) int64 { return a + b }))
	Register(r, Func(0.0, func(a, b float64) float64 { return a + b }))
	return r
}

func Register[T any](r *Resolver, m Monoid[T]) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.instances[typeOf[T]()] = m
}

func Resolve[T any](r *Resolver) (Monoid[T], error) {
	if r != nil {
		r.mu.RLock()
		inst, ok := r.instances[typeOf[T]()]
		r.mu.RUnlock()
		if ok {
			return inst.(Monoid[T]), nil
		}
	}
	return nil, fmt.Errorf("%w for %s", ErrNoInstance, typeOf[T]())
}

func typeOf[T any]() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}
