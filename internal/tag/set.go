package tag

import "strings"

// Set is an immutable collection of tags attached to one check.
// The zero value is an empty set.
type Set struct {
	tags []Tag
}

// Of builds a Set from the given tags. Later tags of the same kind replace
// earlier ones, so each kind appears at most once.
func Of(tags ...Tag) Set {
	out := make([]Tag, 0, len(tags))
	for _, t := range tags {
		if t == nil {
			continue
		}
		if s, ok := t.(Subscribers); ok {
			t = NewSubscribers(s.N)
		}
		replaced := false
		for i, existing := range out {
			if existing.Kind() == t.Kind() {
				out[i] = t
				replaced = true
				break
			}
		}
		if !replaced {
			out = append(out, t)
		}
	}
	return Set{tags: out}
}

// Len returns the number of tags in the set.
func (s Set) Len() int {
	return len(s.tags)
}

// Tags returns a copy of the tags in the set.
func (s Set) Tags() []Tag {
	out := make([]Tag, len(s.tags))
	copy(out, s.tags)
	return out
}

// Has reports whether the set carries a tag of kind k.
func (s Set) Has(k Kind) bool {
	return s.get(k) != nil
}

// Kinds returns the kinds present in the set, in insertion order.
func (s Set) Kinds() []Kind {
	kinds := make([]Kind, len(s.tags))
	for i, t := range s.tags {
		kinds[i] = t.Kind()
	}
	return kinds
}

// Subscribers returns the Subscribers tag if present.
func (s Set) Subscribers() (Subscribers, bool) {
	t, ok := s.get(KindSubscribers).(Subscribers)
	return t, ok
}

// Additional returns the Additional tag if present.
func (s Set) Additional() (Additional, bool) {
	t, ok := s.get(KindAdditional).(Additional)
	return t, ok
}

// IsRequired reports whether the check is a required rule.
func (s Set) IsRequired() bool { return s.Has(KindRequired) }

// IsStochastic reports whether the check is stochastic.
func (s Set) IsStochastic() bool { return s.Has(KindStochastic) }

// IsNotVerified reports whether the check is informational only.
func (s Set) IsNotVerified() bool { return s.Has(KindNotVerified) }

// HasAny reports whether the set carries at least one of the given kinds.
func (s Set) HasAny(kinds ...Kind) bool {
	for _, k := range kinds {
		if s.Has(k) {
			return true
		}
	}
	return false
}

func (s Set) String() string {
	if len(s.tags) == 0 {
		return "{}"
	}
	parts := make([]string, len(s.tags))
	for i, t := range s.tags {
		parts[i] = t.String()
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

func (s Set) get(k Kind) Tag {
	for _, t := range s.tags {
		if t.Kind() == k {
			return t
		}
	}
	return nil
}
