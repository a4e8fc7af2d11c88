// Package reactive defines the producer/consumer protocol under test: a
// Publisher emits elements to a Subscriber on demand expressed through a
// Subscription.
package reactive

import (
	"errors"
	"math"
)

// Publisher is the producer role.
type Publisher interface {
	// Subscribe attaches s. The publisher must call s.OnSubscribe before
	// any other signal.
	Subscribe(s Subscriber)
}

// Subscriber is the consumer role. Signals to a Subscriber must never be
// delivered concurrently.
type Subscriber interface {
	OnSubscribe(sub Subscription)
	OnNext(v any)
	OnError(err error)
	OnComplete()
}

// Subscription links one Subscriber to one Publisher.
type Subscription interface {
	// Request adds n to the outstanding demand. n <= 0 is a protocol
	// violation that must be signalled with OnError.
	Request(n int64)

	// Cancel asks the publisher to stop signalling.
	Cancel()
}

var (
	// ErrNonPositiveRequest is signalled when Request is called with n <= 0.
	ErrNonPositiveRequest = errors.New("request amount must be positive")

	// ErrAlreadySubscribed is signalled by publishers that accept a single
	// subscriber when a second one attaches.
	ErrAlreadySubscribed = errors.New("publisher only supports one subscriber")
)

// AddDemand adds n to demand, saturating at math.MaxInt64 (effectively
// unbounded).
func AddDemand(demand, n int64) int64 {
	if n <= 0 {
		return demand
	}
	if demand > math.MaxInt64-n {
		return math.MaxInt64
	}
	return demand + n
}

// NoopSubscription ignores every call. Publishers hand it out when they
// reject a subscriber immediately.
type NoopSubscription struct{}

func (NoopSubscription) Request(int64) {}
func (NoopSubscription) Cancel()       {}
