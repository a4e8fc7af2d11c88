// Package reference implements in-process publisher implementations that the
// suite can be run against out of the box.
//
// Two implementation types are registered:
//   - reference: cold multicast range publisher with every optional factory
//   - unicast: same publisher limited to one subscriber, no optional factories
package reference

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/Quidge/streamtck/internal/impl"
	"github.com/Quidge/streamtck/internal/probe"
	"github.com/Quidge/streamtck/internal/reactive"
)

const (
	// ReferenceType is the identifier for the full-featured implementation.
	ReferenceType = "reference"

	// UnicastType is the identifier for the single-subscriber implementation.
	UnicastType = "unicast"
)

// ErrReferenceFailure is the error signalled by the failed publisher.
var ErrReferenceFailure = errors.New("reference publisher failure")

// Implementation implements impl.Implementation with in-memory range
// publishers.
type Implementation struct {
	probe.Factories

	name    string
	unicast bool
}

// New creates the reference implementation.
func New(cfg impl.Config) (impl.Implementation, error) {
	r := &Implementation{name: nameOr(cfg.Name, ReferenceType)}
	r.Factories = probe.Factories{
		impl.FactoryFailedPublisher: func(ctx context.Context) (probe.Result, error) {
			return probe.Present(&failedPublisher{err: ErrReferenceFailure}), nil
		},
		impl.FactoryEmptyPublisher: func(ctx context.Context) (probe.Result, error) {
			return probe.Present(&rangePublisher{}), nil
		},
	}
	return r, nil
}

// NewUnicast creates the single-subscriber implementation. It explicitly
// declines the failed publisher factory and does not provide the empty one.
func NewUnicast(cfg impl.Config) (impl.Implementation, error) {
	r := &Implementation{name: nameOr(cfg.Name, UnicastType), unicast: true}
	r.Factories = probe.Factories{
		impl.FactoryFailedPublisher: func(ctx context.Context) (probe.Result, error) {
			return probe.Absent(), nil
		},
	}
	return &unicastImplementation{Implementation: r}, nil
}

func init() {
	impl.Register(ReferenceType, New)
	impl.Register(UnicastType, NewUnicast)
}

// Name implements impl.Implementation.
func (r *Implementation) Name() string {
	return r.name
}

// CreatePublisher implements impl.Implementation.
func (r *Implementation) CreatePublisher(ctx context.Context, elements int64) (reactive.Publisher, error) {
	if elements < 0 {
		return nil, fmt.Errorf("element count must not be negative: %d", elements)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var p reactive.Publisher = &rangePublisher{count: elements}
	if r.unicast {
		p = &unicastPublisher{inner: p}
	}
	return p, nil
}

// MaxElementsFromPublisher implements impl.Implementation.
func (r *Implementation) MaxElementsFromPublisher() int64 {
	return math.MaxInt64 - 1
}

// unicastImplementation declares a capacity of one subscriber.
type unicastImplementation struct {
	*Implementation
}

// MaxSupportedSubscribers implements selection.CapacityDeclarer.
func (u *unicastImplementation) MaxSupportedSubscribers() int64 {
	return 1
}

func nameOr(name, fallback string) string {
	if name == "" {
		return fallback
	}
	return name
}
