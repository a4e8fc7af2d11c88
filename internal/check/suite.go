package check

import (
	"errors"
	"fmt"
	"path"

	"github.com/Quidge/streamtck/internal/tag"
)

// Suite is an ordered collection of checks.
type Suite struct {
	Name   string
	Checks []Check
}

// ErrInvalidSuite is returned by Validate.
var ErrInvalidSuite = errors.New("invalid suite")

// Validate ensures every check has a unique, non-empty ID and a body.
func (s *Suite) Validate() error {
	seen := make(map[string]bool, len(s.Checks))
	for i, c := range s.Checks {
		if c.ID == "" {
			return fmt.Errorf("%w: check %d has no ID", ErrInvalidSuite, i)
		}
		if seen[c.ID] {
			return fmt.Errorf("%w: duplicate check ID %q", ErrInvalidSuite, c.ID)
		}
		if c.Body == nil {
			return fmt.Errorf("%w: check %q has no body", ErrInvalidSuite, c.ID)
		}
		seen[c.ID] = true
	}
	return nil
}

// Get returns the check with the given ID.
func (s *Suite) Get(id string) (Check, bool) {
	for _, c := range s.Checks {
		if c.ID == id {
			return c, true
		}
	}
	return Check{}, false
}

// Selector narrows a suite down to the checks an operator wants to run.
// Empty fields do not filter.
type Selector struct {
	// Include keeps only checks whose ID matches one of these glob patterns.
	Include []string

	// Exclude drops checks whose ID matches one of these glob patterns.
	Exclude []string

	// WithTags keeps only checks carrying at least one of these kinds.
	WithTags []tag.Kind

	// WithoutTags drops checks carrying any of these kinds.
	WithoutTags []tag.Kind
}

// Validate checks that all patterns are well-formed.
func (sel Selector) Validate() error {
	for _, p := range append(append([]string{}, sel.Include...), sel.Exclude...) {
		if _, err := path.Match(p, ""); err != nil {
			return fmt.Errorf("invalid check pattern %q: %w", p, err)
		}
	}
	return nil
}

// Matches reports whether c passes the selector.
func (sel Selector) Matches(c Check) bool {
	if len(sel.Include) > 0 && !matchAny(sel.Include, c.ID) {
		return false
	}
	if matchAny(sel.Exclude, c.ID) {
		return false
	}
	if len(sel.WithTags) > 0 && !c.Tags.HasAny(sel.WithTags...) {
		return false
	}
	if c.Tags.HasAny(sel.WithoutTags...) {
		return false
	}
	return true
}

// Filter returns a new suite with only the checks matching sel.
func (s *Suite) Filter(sel Selector) *Suite {
	out := &Suite{Name: s.Name}
	for _, c := range s.Checks {
		if sel.Matches(c) {
			out.Checks = append(out.Checks, c)
		}
	}
	return out
}

func matchAny(patterns []string, id string) bool {
	for _, p := range patterns {
		if ok, _ := path.Match(p, id); ok {
			return true
		}
	}
	return false
}
