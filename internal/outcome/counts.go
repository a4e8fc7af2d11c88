package outcome

import "github.com/Quidge/streamtck/internal/tag"

// Counts aggregates results across a suite run.
type Counts struct {
	Total         int `json:"total"`
	Passed        int `json:"passed"`
	Failed        int `json:"failed"`
	Skipped       int `json:"skipped"`
	Inconclusive  int `json:"inconclusive"`
	Informational int `json:"informational"`

	// RequiredPassed and RequiredFailed count Required checks only.
	// Informational, skipped and inconclusive results never enter them.
	RequiredPassed int `json:"required_passed"`
	RequiredFailed int `json:"required_failed"`
}

// Add records one classified result for a check carrying tags.
func (c *Counts) Add(tags tag.Set, r Result) {
	c.Total++
	switch r.Status {
	case StatusPass:
		c.Passed++
		if tags.IsRequired() {
			c.RequiredPassed++
		}
	case StatusFail:
		c.Failed++
		if tags.IsRequired() {
			c.RequiredFailed++
		}
	case StatusSkipped:
		c.Skipped++
	case StatusInconclusive:
		c.Inconclusive++
	case StatusInformational:
		c.Informational++
	}
}

// Get returns the count for a status.
func (c Counts) Get(s Status) int {
	switch s {
	case StatusPass:
		return c.Passed
	case StatusFail:
		return c.Failed
	case StatusSkipped:
		return c.Skipped
	case StatusInconclusive:
		return c.Inconclusive
	case StatusInformational:
		return c.Informational
	}
	return 0
}

// Conformant reports whether the run contains no hard failure.
// Inconclusive results are surfaced separately and do not by themselves make
// a run non-conformant.
func (c Counts) Conformant() bool {
	return c.Failed == 0
}
