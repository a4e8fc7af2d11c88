// Package tag defines the closed set of classification tags that can be
// attached to a conformance check.
//
// Tags are declarative data. They do not run anything themselves; the
// selection and outcome packages read them to decide whether a check runs
// and how its result is reported.
//
//	| Kind          | Effect                                                  |
//	|---------------|---------------------------------------------------------|
//	| NotVerified   | Result is informational only                            |
//	| Stochastic    | A failing assertion is reported as inconclusive         |
//	| Required      | Counted towards the required-rule totals                |
//	| Subscribers   | Skipped when the implementation declares less capacity  |
//	| Additional    | Skipped unless the named optional factory yields a value |
package tag

import (
	"errors"
	"fmt"
	"strings"
)

// Kind names a tag variant.
type Kind string

const (
	KindNotVerified Kind = "not_verified"
	KindStochastic  Kind = "stochastic"
	KindRequired    Kind = "required"
	KindSubscribers Kind = "subscribers"
	KindAdditional  Kind = "additional"
)

// Kinds contains every recognised tag kind in declaration order.
var Kinds = []Kind{
	KindNotVerified,
	KindStochastic,
	KindRequired,
	KindSubscribers,
	KindAdditional,
}

// ErrUnknownKind is returned when a tag kind name is not recognised.
var ErrUnknownKind = errors.New("unknown tag kind")

// ParseKind converts a kind name (as used in config files and CLI flags)
// into a Kind. Dashes are accepted in place of underscores.
func ParseKind(s string) (Kind, error) {
	name := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_")
	for _, k := range Kinds {
		if string(k) == name {
			return k, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
}

// Tag is a classification attached to a check.
//
// The interface is sealed: only the types in this package implement it, so a
// check can never carry a tag kind the runner does not understand.
type Tag interface {
	Kind() Kind
	String() string
	sealed()
}

// NotVerified marks a rule that cannot be checked mechanically. Such checks
// may still run, but their result never affects suite conformance.
type NotVerified struct{}

func (NotVerified) Kind() Kind     { return KindNotVerified }
func (NotVerified) String() string { return "NotVerified" }
func (NotVerified) sealed()        {}

// Stochastic marks a check that may pass even though the rule is violated.
// A pass is not proof; a failing assertion is reported as inconclusive.
type Stochastic struct{}

func (Stochastic) Kind() Kind     { return KindStochastic }
func (Stochastic) String() string { return "Stochastic" }
func (Stochastic) sealed()        {}

// Required marks a check every conforming implementation must pass.
type Required struct{}

func (Required) Kind() Kind     { return KindRequired }
func (Required) String() string { return "Required" }
func (Required) sealed()        {}

// Subscribers declares how many concurrent subscribers the check attaches to
// the same publisher.
type Subscribers struct {
	N int64
}

// NewSubscribers returns a Subscribers tag. Values below 1 become 1.
func NewSubscribers(n int64) Subscribers {
	if n < 1 {
		n = 1
	}
	return Subscribers{N: n}
}

func (Subscribers) Kind() Kind       { return KindSubscribers }
func (s Subscribers) String() string { return fmt.Sprintf("Subscribers(%d)", s.N) }
func (Subscribers) sealed()          {}

// Additional marks a check for an optional capability. The check only runs
// when the implementation's factory named by Implement yields an instance;
// otherwise it is skipped with Explanation as the reason.
type Additional struct {
	// Explanation describes when it is acceptable not to pass the check.
	Explanation string

	// Implement is the name of the optional factory that must produce an
	// instance for the check to run.
	Implement string
}

func (Additional) Kind() Kind { return KindAdditional }

func (a Additional) String() string {
	return fmt.Sprintf("Additional(%q, implement=%s)", a.Explanation, a.Implement)
}

func (Additional) sealed() {}
