// Package selection computes the pre-execution verdict for a check from its
// tags and the capabilities of the implementation under test.
package selection

import (
	"context"
	"fmt"

	"github.com/Quidge/streamtck/internal/probe"
	"github.com/Quidge/streamtck/internal/tag"
)

// Kind is the verdict variant.
type Kind string

const (
	// Run executes the check; a failing body is a hard failure.
	Run Kind = "run"

	// Skip does not execute the check.
	Skip Kind = "skip"

	// RunTolerant executes the check; a failing assertion is downgraded to
	// inconclusive.
	RunTolerant Kind = "run_tolerant"
)

// InsufficientCapacityReason prefixes the skip reason for subscriber
// capacity skips.
const InsufficientCapacityReason = "insufficient subscriber capacity"

// Verdict is the decision for one check.
type Verdict struct {
	Kind Kind

	// Reason is set for Skip verdicts.
	Reason string

	// Informational is set when the check is NotVerified: it may run, but
	// its result never affects conformance.
	Informational bool

	// Instance is the probed optional capability for Additional checks.
	// Absent for checks without an Additional tag.
	Instance probe.Result
}

// Runs reports whether the check body should be executed.
func (v Verdict) Runs() bool {
	return v.Kind == Run || v.Kind == RunTolerant
}

func (v Verdict) String() string {
	if v.Kind == Skip {
		return fmt.Sprintf("Skip(%q)", v.Reason)
	}
	if v.Informational {
		return string(v.Kind) + "+informational"
	}
	return string(v.Kind)
}

// CapacityDeclarer is implemented by implementations under test that limit
// how many subscribers may attach to one publisher. Implementations that do
// not implement it are treated as unbounded.
type CapacityDeclarer interface {
	MaxSupportedSubscribers() int64
}

// SkipVerdict returns a Skip verdict with the given reason.
func SkipVerdict(reason string) Verdict {
	return Verdict{Kind: Skip, Reason: reason}
}

// Decide computes the verdict for a check carrying tags against impl.
//
// Rules are evaluated in order:
//  1. Subscribers(n) with a declared capacity below n skips.
//  2. Additional(explanation, factory) probes factory; Absent skips with
//     explanation. A failing factory is returned as an error.
//  3. Otherwise the check runs, tolerant if Stochastic, informational if
//     NotVerified.
//
// The capacity rule comes first because it is a static declaration and
// avoids invoking a factory for a check that cannot run anyway.
func Decide(ctx context.Context, tags tag.Set, impl probe.Provider) (Verdict, error) {
	if sub, ok := tags.Subscribers(); ok {
		if limit, known := DeclaredCapacity(impl); known && limit < sub.N {
			return SkipVerdict(fmt.Sprintf("%s: requires %d, implementation supports %d",
				InsufficientCapacityReason, sub.N, limit)), nil
		}
	}

	var instance probe.Result
	if add, ok := tags.Additional(); ok {
		res, err := probe.Probe(ctx, impl, add.Implement)
		if err != nil {
			return Verdict{}, err
		}
		if !res.IsPresent() {
			return SkipVerdict(skipReason(add)), nil
		}
		instance = res
	}

	v := Verdict{
		Kind:          Run,
		Informational: tags.IsNotVerified(),
		Instance:      instance,
	}
	if tags.IsStochastic() {
		v.Kind = RunTolerant
	}
	return v, nil
}

// DeclaredCapacity returns the subscriber capacity impl declares, if any.
func DeclaredCapacity(impl any) (int64, bool) {
	cd, ok := impl.(CapacityDeclarer)
	if !ok {
		return 0, false
	}
	return cd.MaxSupportedSubscribers(), true
}

func skipReason(add tag.Additional) string {
	if add.Explanation != "" {
		return add.Explanation
	}
	return fmt.Sprintf("optional capability %s not provided", add.Implement)
}
