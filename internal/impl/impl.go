// Package impl defines the interface every implementation under test must
// satisfy and a registry of named implementation factories. This abstraction
// lets the runner verify any publisher implementation with the same suite.
package impl

import (
	"context"

	"github.com/Quidge/streamtck/internal/probe"
	"github.com/Quidge/streamtck/internal/reactive"
)

// Names of the optional factories the publisher suite probes. An
// implementation that does not support the feature simply does not provide
// the factory, or returns probe.Absent() from it.
const (
	// FactoryFailedPublisher yields a reactive.Publisher that signals
	// onError right after onSubscribe.
	FactoryFailedPublisher = "CreateFailedPublisher"

	// FactoryEmptyPublisher yields a reactive.Publisher that completes
	// without emitting any element.
	FactoryEmptyPublisher = "CreateEmptyPublisher"
)

// Implementation is a publisher implementation under test.
//
// Only CreatePublisher is mandatory. Optional capabilities are exposed by
// name through probe.Provider, and a subscriber capacity limit may be
// declared by also implementing selection.CapacityDeclarer.
//
//	| Capability             | Reference        | Unicast          |
//	|------------------------|------------------|------------------|
//	| CreatePublisher        | range publisher  | range publisher  |
//	| CreateFailedPublisher  | provided         | declined         |
//	| CreateEmptyPublisher   | provided         | not provided     |
//	| MaxSupportedSubscribers| unbounded        | 1                |
type Implementation interface {
	probe.Provider

	// Name is the configured name of this implementation.
	Name() string

	// CreatePublisher returns a publisher that emits exactly elements
	// elements and then completes.
	CreatePublisher(ctx context.Context, elements int64) (reactive.Publisher, error)

	// MaxElementsFromPublisher is the largest stream the implementation can
	// produce. Checks needing more elements are skipped.
	MaxElementsFromPublisher() int64
}

// limited overrides the declared subscriber capacity of an implementation.
type limited struct {
	Implementation
	max int64
}

func (l limited) MaxSupportedSubscribers() int64 { return l.max }

// Limit wraps impl so that it declares a subscriber capacity of max,
// replacing whatever the implementation declares itself.
func Limit(impl Implementation, max int64) Implementation {
	return limited{Implementation: impl, max: max}
}
