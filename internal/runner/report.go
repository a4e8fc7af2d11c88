package runner

import (
	"time"

	"github.com/Quidge/streamtck/internal/outcome"
	"github.com/Quidge/streamtck/internal/selection"
	"github.com/Quidge/streamtck/internal/tag"
)

// CheckResult is the classified result of one check.
type CheckResult struct {
	ID          string
	Rule        string
	Description string
	Tags        tag.Set
	Verdict     selection.Verdict
	Status      outcome.Status
	Reason      string

	// Invoked reports whether the body was executed.
	Invoked  bool
	Duration time.Duration
}

// Result returns the classified outcome.
func (c CheckResult) Result() outcome.Result {
	return outcome.Result{Status: c.Status, Reason: c.Reason}
}

// Report is the outcome of running a suite.
type Report struct {
	RunID          string
	Suite          string
	Implementation string
	StartedAt      time.Time
	Duration       time.Duration
	Results        []CheckResult
	Counts         outcome.Counts
}

// Conformant reports whether the run contained no hard failure.
func (r *Report) Conformant() bool {
	return r.Counts.Conformant()
}

// ByStatus returns the results with the given status, in suite order.
func (r *Report) ByStatus(s outcome.Status) []CheckResult {
	var out []CheckResult
	for _, res := range r.Results {
		if res.Status == s {
			out = append(out, res)
		}
	}
	return out
}
