// Package registry implements predicate-dispatched methods held in an explicit,
// immutable registry value. Adding a method or property returns a new
// Registry; existing values are never mutated.
package registry

import (
	"errors"
	"fmt"
	"maps"
	"slices"
)

var ErrNotImplemented = errors.New("registry: method not implemented for this input")

type (
	Predicate func(args ...any) bool
	Impl      func(args ...any) (any, error)
)

type registration struct {
	predicate Predicate
	impl      Impl
}

type Registry struct {
	methods    map[string][]registration
	properties map[string]any
}

func New() Registry {
	return Registry{}
}

// Method returns a registry where impl is tried for name after every
// implementation registered before it.
func (r Registry) Method(name string, predicate Predicate, impl Impl) Registry {
	methods := maps.Clone(r.methods)
	if methods == nil {
		methods = map[string][]registration{}
	}
	methods[name] = append(slices.Clip(methods[name]), registration{predicate, impl})
	return Registry{methods: methods, properties: r.properties}
}

func (r Registry) Property(name string, value any) Registry {
	properties := maps.Clone(r.properties)
	if properties == nil {
		properties = map[string]any{}
	}
	properties[name] = value
	return Registry{methods: r.methods, properties: properties}
}

func (r Registry) Get(name string) (any, bool) {
	v, ok := r.properties[name]
	return v, ok
}

func (r Registry) Has(name string) bool {
	return len(r.methods[name]) > 0
}

// Call runs the first implementation of name whose predicate accepts args.
func (r Registry) Call(name string, args ...any) (any, error) {
	for _, reg := range r.methods[name] {
		if reg.predicate == nil || reg.predicate(args...) {
			return reg.impl(args...)
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrNotImplemented, name)
}

// Extend returns a registry with other's methods tried after r's, and other's
// properties taking precedence.
func (r Registry) Extend(other Registry) Registry {
	res := r
	for name, regs := range other.methods {
		for _, reg := range regs {
			res = res.Method(name, reg.predicate, reg.impl)
		}
	}
	for name, v := range other.properties {
		res = res.Property(name, v)
	}
	return res
}

// Concat folds registries left to right with Extend.
func Concat(regs ...Registry) Registry {
	res := New()
	for _, r := range regs {
		res = res.Extend(r)
	}
	return res
}
