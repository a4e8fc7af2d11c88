// Package probe asks an implementation under test whether it supports an
// optional capability by invoking a named factory that may decline.
//
// Declining is a first-class answer, not an error: a factory that returns
// Absent() (or that the implementation does not provide at all) means "this
// feature is not supported". A factory that fails or panics is different and
// is reported as a FactoryError.
package probe

import (
	"context"
	"errors"
	"fmt"
)

// Result is the outcome of invoking an optional factory. It has exactly two
// variants, built with Present and Absent.
type Result struct {
	instance any
	present  bool
}

// Present wraps a usable instance. A nil instance is treated as Absent.
func Present(instance any) Result {
	if instance == nil {
		return Result{}
	}
	return Result{instance: instance, present: true}
}

// Absent reports that the implementation declined to provide an instance.
func Absent() Result {
	return Result{}
}

// Instance returns the produced instance and whether one is present.
func (r Result) Instance() (any, bool) {
	return r.instance, r.present
}

// IsPresent reports whether the factory produced an instance.
func (r Result) IsPresent() bool {
	return r.present
}

func (r Result) String() string {
	if r.present {
		return fmt.Sprintf("Present(%T)", r.instance)
	}
	return "Absent"
}

// Factory is an optional-capability constructor. It takes no arguments
// besides the context and either yields an instance or declines.
type Factory func(ctx context.Context) (Result, error)

// Provider exposes an implementation's optional factories by name.
type Provider interface {
	// Factory returns the factory registered under name. ok is false when
	// the implementation does not provide it, which is equivalent to the
	// factory declining.
	Factory(name string) (f Factory, ok bool)
}

// Factories is a Provider backed by a map.
type Factories map[string]Factory

// Factory implements Provider.
func (fs Factories) Factory(name string) (Factory, bool) {
	f, ok := fs[name]
	if !ok || f == nil {
		return nil, false
	}
	return f, true
}

// ErrFactoryFailed is wrapped by every FactoryError.
var ErrFactoryFailed = errors.New("optional factory failed")

// FactoryError is returned when a factory errors or panics instead of
// declining cleanly.
type FactoryError struct {
	Name string
	Err  error
}

func (e *FactoryError) Error() string {
	return fmt.Sprintf("%s: %s: %v", ErrFactoryFailed.Error(), e.Name, e.Err)
}

func (e *FactoryError) Unwrap() []error {
	return []error{ErrFactoryFailed, e.Err}
}

// Probe invokes the factory called name on provider exactly once.
//
// A missing factory yields Absent. The call is not retried and no timeout is
// applied beyond whatever ctx carries. Lifecycle of a produced instance is
// owned by the caller.
func Probe(ctx context.Context, provider Provider, name string) (res Result, err error) {
	if provider == nil {
		return Absent(), nil
	}
	f, ok := provider.Factory(name)
	if !ok {
		return Absent(), nil
	}

	defer func() {
		if r := recover(); r != nil {
			res = Absent()
			err = &FactoryError{Name: name, Err: fmt.Errorf("panic: %v", r)}
		}
	}()

	res, err = f(ctx)
	if err != nil {
		return Absent(), &FactoryError{Name: name, Err: err}
	}
	if !res.present || res.instance == nil {
		return Absent(), nil
	}
	return res, nil
}
