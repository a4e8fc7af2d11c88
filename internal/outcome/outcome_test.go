package outcome

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Quidge/streamtck/internal/check"
	"github.com/Quidge/streamtck/internal/selection"
	"github.com/Quidge/streamtck/internal/tag"
)

func TestClassify(t *testing.T) {
	assertionErr := check.Failf("expected onComplete")
	unexpected := errors.New("connection reset")

	run := selection.Verdict{Kind: selection.Run}
	tolerant := selection.Verdict{Kind: selection.RunTolerant}
	informational := selection.Verdict{Kind: selection.Run, Informational: true}

	tests := []struct {
		name       string
		tags       tag.Set
		verdict    selection.Verdict
		bodyErr    error
		wantStatus Status
		wantReason string
	}{
		{"skip", tag.Of(), selection.SkipVerdict("no impl"), nil, StatusSkipped, "no impl"},
		{"skip ignores body error", tag.Of(), selection.SkipVerdict("no impl"), unexpected, StatusSkipped, "no impl"},
		{"run pass", tag.Of(tag.Required{}), run, nil, StatusPass, ""},
		{"run assertion failure", tag.Of(tag.Required{}), run, assertionErr, StatusFail, assertionErr.Error()},
		{"run unexpected error", tag.Of(), run, unexpected, StatusFail, "connection reset"},
		{"tolerant pass", tag.Of(tag.Stochastic{}), tolerant, nil, StatusPass, ""},
		{"tolerant assertion failure", tag.Of(tag.Stochastic{}), tolerant, assertionErr, StatusInconclusive, "stochastic check failed: " + assertionErr.Error()},
		{"tolerant unexpected error stays a failure", tag.Of(tag.Stochastic{}), tolerant, unexpected, StatusFail, "connection reset"},
		{"not verified pass", tag.Of(tag.NotVerified{}), informational, nil, StatusInformational, "rule is not mechanically verifiable"},
		{"not verified failure", tag.Of(tag.NotVerified{}), informational, assertionErr, StatusInformational, assertionErr.Error()},
		{"not verified dominates stochastic", tag.Of(tag.NotVerified{}, tag.Stochastic{}), selection.Verdict{Kind: selection.RunTolerant, Informational: true}, assertionErr, StatusInformational, assertionErr.Error()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.tags, tt.verdict, tt.bodyErr)
			assert.Equal(t, tt.wantStatus, got.Status)
			assert.Equal(t, tt.wantReason, got.Reason)
		})
	}
}

func TestFailed(t *testing.T) {
	err := errors.New("factory exploded")

	r := Failed(tag.Of(tag.Additional{Implement: "CreateX"}), err)
	assert.Equal(t, StatusFail, r.Status)
	assert.Equal(t, "factory exploded", r.Reason)

	r = Failed(tag.Of(tag.NotVerified{}), err)
	assert.Equal(t, StatusInformational, r.Status)
}

func TestCounts(t *testing.T) {
	var c Counts

	c.Add(tag.Of(tag.Required{}), Result{Status: StatusPass})
	c.Add(tag.Of(tag.Required{}), Result{Status: StatusFail})
	c.Add(tag.Of(), Result{Status: StatusPass})
	c.Add(tag.Of(tag.Required{}), Result{Status: StatusSkipped})
	c.Add(tag.Of(tag.Required{}, tag.Stochastic{}), Result{Status: StatusInconclusive})
	c.Add(tag.Of(tag.Required{}, tag.NotVerified{}), Result{Status: StatusInformational})

	assert.Equal(t, 6, c.Total)
	assert.Equal(t, 2, c.Passed)
	assert.Equal(t, 1, c.Failed)
	assert.Equal(t, 1, c.Skipped)
	assert.Equal(t, 1, c.Inconclusive)
	assert.Equal(t, 1, c.Informational)
	assert.Equal(t, 1, c.RequiredPassed)
	assert.Equal(t, 1, c.RequiredFailed)
	assert.False(t, c.Conformant())

	for _, s := range Statuses {
		assert.True(t, s.IsValid())
	}
	assert.Equal(t, 2, c.Get(StatusPass))
	assert.Equal(t, 0, c.Get(Status("BOGUS")))
	assert.False(t, Status("BOGUS").IsValid())
}

func TestStochasticFailureLeavesRequiredCountsUnchanged(t *testing.T) {
	tags := tag.Of(tag.Stochastic{})
	r := Classify(tags, selection.Verdict{Kind: selection.RunTolerant}, check.Failf("overlap"))

	var c Counts
	c.Add(tags, r)

	assert.Equal(t, StatusInconclusive, r.Status)
	assert.Zero(t, c.RequiredFailed)
	assert.True(t, c.Conformant())
}
