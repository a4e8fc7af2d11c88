// Package outcome turns a check's verdict and raw body result into the final
// reportable status, and aggregates statuses across a suite.
package outcome

import (
	"github.com/Quidge/streamtck/internal/check"
	"github.com/Quidge/streamtck/internal/selection"
	"github.com/Quidge/streamtck/internal/tag"
)

// Status is the final reportable status of a check.
type Status string

const (
	StatusPass          Status = "PASS"
	StatusFail          Status = "FAIL"
	StatusSkipped       Status = "SKIPPED"
	StatusInconclusive  Status = "INCONCLUSIVE"
	StatusInformational Status = "INFORMATIONAL"
)

// Statuses lists every status in reporting order.
var Statuses = []Status{
	StatusPass,
	StatusFail,
	StatusSkipped,
	StatusInconclusive,
	StatusInformational,
}

// IsValid reports whether s is a known status.
func (s Status) IsValid() bool {
	for _, v := range Statuses {
		if s == v {
			return true
		}
	}
	return false
}

// Result is the classified outcome of one check.
type Result struct {
	Status Status

	// Reason explains SKIPPED, FAIL, INCONCLUSIVE and INFORMATIONAL
	// results. Empty for a plain PASS.
	Reason string
}

// Classify maps a verdict and the body's error into a Result.
//
// bodyErr is nil on success, an assertion failure (check.ErrAssertion) when
// the rule was violated, or any other error for unexpected problems.
// For Skip verdicts bodyErr is ignored since the body never ran.
func Classify(tags tag.Set, v selection.Verdict, bodyErr error) Result {
	if v.Kind == selection.Skip {
		return Result{Status: StatusSkipped, Reason: v.Reason}
	}

	// NotVerified dominates: the rule cannot be judged mechanically, so
	// nothing the body reports counts either way.
	if v.Informational || tags.IsNotVerified() {
		r := Result{Status: StatusInformational, Reason: "rule is not mechanically verifiable"}
		if bodyErr != nil {
			r.Reason = bodyErr.Error()
		}
		return r
	}

	if bodyErr == nil {
		return Result{Status: StatusPass}
	}

	if v.Kind == selection.RunTolerant && check.IsAssertion(bodyErr) {
		return Result{Status: StatusInconclusive, Reason: "stochastic check failed: " + bodyErr.Error()}
	}

	return Result{Status: StatusFail, Reason: bodyErr.Error()}
}

// Failed classifies a check whose verdict could not be computed, for example
// because an optional factory errored instead of declining.
func Failed(tags tag.Set, err error) Result {
	if tags.IsNotVerified() {
		return Result{Status: StatusInformational, Reason: err.Error()}
	}
	return Result{Status: StatusFail, Reason: err.Error()}
}
