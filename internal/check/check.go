// Package check defines conformance checks: a named body plus the tags that
// tell the runner whether and how to execute it.
package check

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/Quidge/streamtck/internal/probe"
	"github.com/Quidge/streamtck/internal/tag"
)

// Body is the executable part of a check. It returns nil on success, an
// AssertionError when the rule is violated, or any other error when
// something unexpected happened.
type Body func(ctx context.Context, env *Env) error

// Check is a single conformance test unit. Checks are built when the suite is
// defined and never modified afterwards.
type Check struct {
	// ID uniquely identifies the check within a suite
	// (e.g. "required_spec101_subscriptionRequestMustResultInTheCorrectNumberOfProducedElements").
	ID string

	// Rule is the protocol rule reference (e.g. "1.1"). May be empty.
	Rule string

	// Description is a one-line human summary.
	Description string

	// Tags classify the check.
	Tags tag.Set

	// Body runs the check.
	Body Body
}

// New builds a Check with the given tags.
func New(id, rule, description string, body Body, tags ...tag.Tag) Check {
	return Check{
		ID:          id,
		Rule:        rule,
		Description: description,
		Tags:        tag.Of(tags...),
		Body:        body,
	}
}

// Env is handed to a check body. It exposes the implementation under test and
// the instance produced by the optional factory, if the check has one.
type Env struct {
	// Impl is the implementation under test.
	Impl any

	// Logger is scoped to the running check.
	Logger zerolog.Logger

	instance probe.Result
}

// NewEnv creates an Env.
func NewEnv(impl any, instance probe.Result, logger zerolog.Logger) *Env {
	return &Env{Impl: impl, Logger: logger, instance: instance}
}

// Instance returns the optional capability instance obtained before the body
// started.
func (e *Env) Instance() (any, bool) {
	return e.instance.Instance()
}

// ErrAssertion is wrapped by every AssertionError.
var ErrAssertion = errors.New("assertion failed")

// AssertionError reports a violated protocol rule.
type AssertionError struct {
	Message string
}

func (e *AssertionError) Error() string {
	return fmt.Sprintf("%s: %s", ErrAssertion.Error(), e.Message)
}

func (e *AssertionError) Unwrap() error {
	return ErrAssertion
}

// IsAssertion reports whether err is (or wraps) an assertion failure.
func IsAssertion(err error) bool {
	return errors.Is(err, ErrAssertion)
}

// Failf returns an AssertionError with a formatted message.
func Failf(format string, args ...any) error {
	return &AssertionError{Message: fmt.Sprintf(format, args...)}
}

// Assert returns an AssertionError with msg when cond is false.
func Assert(cond bool, format string, args ...any) error {
	if cond {
		return nil
	}
	return Failf(format, args...)
}

// AssertEqual returns an AssertionError when got != want.
func AssertEqual[T comparable](what string, got, want T) error {
	if got == want {
		return nil
	}
	return Failf("%s: got %v, want %v", what, got, want)
}
