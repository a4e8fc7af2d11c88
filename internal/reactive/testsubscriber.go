package reactive

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
)

// TestSubscriber records every signal it receives so that checks can make
// assertions about them. It also notices when signals overlap in time, which
// would violate serial signalling.
type TestSubscriber struct {
	mu           sync.Mutex
	sub          Subscription
	elements     []any
	err          error
	completed    bool
	subscribes   int
	afterTerm    int
	changed      chan struct{}
	inFlight     atomic.Int32
	overlapped   atomic.Bool
	onNextHook   func(v any)
	onSubscribed func(sub Subscription)
}

// NewTestSubscriber creates a TestSubscriber.
func NewTestSubscriber() *TestSubscriber {
	return &TestSubscriber{changed: make(chan struct{}, 1)}
}

// OnNextHook installs a callback invoked from OnNext after the element is
// recorded. It must be set before subscribing.
func (s *TestSubscriber) OnNextHook(fn func(v any)) *TestSubscriber {
	s.onNextHook = fn
	return s
}

// OnSubscribeHook installs a callback invoked from OnSubscribe. It must be
// set before subscribing.
func (s *TestSubscriber) OnSubscribeHook(fn func(sub Subscription)) *TestSubscriber {
	s.onSubscribed = fn
	return s
}

func (s *TestSubscriber) enter() {
	if s.inFlight.Add(1) > 1 {
		s.overlapped.Store(true)
	}
}

func (s *TestSubscriber) exit() {
	s.inFlight.Add(-1)
	select {
	case s.changed <- struct{}{}:
	default:
	}
}

// OnSubscribe implements Subscriber.
//
// Hooks run after the signal is recorded and outside the overlap window, so a
// hook that requests more elements synchronously is not mistaken for
// concurrent signalling.
func (s *TestSubscriber) OnSubscribe(sub Subscription) {
	s.enter()
	s.mu.Lock()
	s.subscribes++
	if s.sub == nil {
		s.sub = sub
	}
	hook := s.onSubscribed
	s.mu.Unlock()
	s.exit()

	if hook != nil {
		hook(sub)
	}
}

// OnNext implements Subscriber.
func (s *TestSubscriber) OnNext(v any) {
	s.enter()
	s.mu.Lock()
	if s.err != nil || s.completed {
		s.afterTerm++
	}
	s.elements = append(s.elements, v)
	hook := s.onNextHook
	s.mu.Unlock()
	s.exit()

	if hook != nil {
		hook(v)
	}
}

// OnError implements Subscriber.
func (s *TestSubscriber) OnError(err error) {
	s.enter()
	defer s.exit()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil || s.completed {
		s.afterTerm++
		return
	}
	s.err = err
}

// OnComplete implements Subscriber.
func (s *TestSubscriber) OnComplete() {
	s.enter()
	defer s.exit()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil || s.completed {
		s.afterTerm++
		return
	}
	s.completed = true
}

// Request forwards to the received subscription.
func (s *TestSubscriber) Request(n int64) error {
	sub := s.Subscription()
	if sub == nil {
		return fmt.Errorf("no subscription received")
	}
	sub.Request(n)
	return nil
}

// Cancel forwards to the received subscription.
func (s *TestSubscriber) Cancel() error {
	sub := s.Subscription()
	if sub == nil {
		return fmt.Errorf("no subscription received")
	}
	sub.Cancel()
	return nil
}

// Subscription returns the first subscription received, or nil.
func (s *TestSubscriber) Subscription() Subscription {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sub
}

// Elements returns a copy of the received elements.
func (s *TestSubscriber) Elements() []any {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]any, len(s.elements))
	copy(out, s.elements)
	return out
}

// Err returns the error received through OnError, if any.
func (s *TestSubscriber) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Completed reports whether OnComplete was received.
func (s *TestSubscriber) Completed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.completed
}

// Subscribes returns how many times OnSubscribe was called.
func (s *TestSubscriber) Subscribes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.subscribes
}

// SignalsAfterTerminal returns how many signals arrived after OnError or
// OnComplete.
func (s *TestSubscriber) SignalsAfterTerminal() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.afterTerm
}

// Overlapped reports whether two signals were ever delivered concurrently.
func (s *TestSubscriber) Overlapped() bool {
	return s.overlapped.Load()
}

// AwaitSubscription waits until OnSubscribe has been called.
func (s *TestSubscriber) AwaitSubscription(ctx context.Context) error {
	return s.await(ctx, "onSubscribe", func() bool { return s.sub != nil })
}

// AwaitElements waits until at least n elements have been received or the
// stream terminated.
func (s *TestSubscriber) AwaitElements(ctx context.Context, n int) error {
	return s.await(ctx, fmt.Sprintf("%d elements", n), func() bool {
		return len(s.elements) >= n || s.err != nil || s.completed
	})
}

// AwaitTerminal waits for OnError or OnComplete.
func (s *TestSubscriber) AwaitTerminal(ctx context.Context) error {
	return s.await(ctx, "terminal signal", func() bool {
		return s.err != nil || s.completed
	})
}

func (s *TestSubscriber) await(ctx context.Context, what string, done func() bool) error {
	for {
		s.mu.Lock()
		ok := done()
		s.mu.Unlock()
		if ok {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("timed out waiting for %s: %w", what, ctx.Err())
		case <-s.changed:
		}
	}
}
