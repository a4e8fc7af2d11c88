package verification

import (
	"context"
	"fmt"
	"time"

	"github.com/Quidge/streamtck/internal/check"
	"github.com/Quidge/streamtck/internal/impl"
	"github.com/Quidge/streamtck/internal/reactive"
)

// implementation extracts the implementation under test from env.
func implementation(env *check.Env) (impl.Implementation, error) {
	im, ok := env.Impl.(impl.Implementation)
	if !ok {
		return nil, fmt.Errorf("implementation under test is %T, not impl.Implementation", env.Impl)
	}
	return im, nil
}

// newPublisher creates a publisher of n elements from the implementation
// under test.
func newPublisher(ctx context.Context, env *check.Env, n int64) (reactive.Publisher, error) {
	im, err := implementation(env)
	if err != nil {
		return nil, err
	}
	if max := im.MaxElementsFromPublisher(); n > max {
		return nil, fmt.Errorf("check needs %d elements but implementation supports at most %d", n, max)
	}
	pub, err := im.CreatePublisher(ctx, n)
	if err != nil {
		return nil, fmt.Errorf("failed to create publisher of %d elements: %w", n, err)
	}
	if pub == nil {
		return nil, fmt.Errorf("CreatePublisher(%d) returned nil", n)
	}
	return pub, nil
}

// subscribe creates a publisher of n elements and attaches a fresh test
// subscriber, waiting for onSubscribe.
func subscribe(ctx context.Context, env *check.Env, n int64) (*reactive.TestSubscriber, error) {
	pub, err := newPublisher(ctx, env, n)
	if err != nil {
		return nil, err
	}
	return attach(ctx, pub)
}

// attach subscribes a fresh test subscriber to pub and waits for onSubscribe.
func attach(ctx context.Context, pub reactive.Publisher) (*reactive.TestSubscriber, error) {
	return attachSubscriber(ctx, pub, reactive.NewTestSubscriber())
}

// attachSubscriber subscribes sub, which may carry hooks, to pub and waits
// for onSubscribe.
func attachSubscriber(ctx context.Context, pub reactive.Publisher, sub *reactive.TestSubscriber) (*reactive.TestSubscriber, error) {
	pub.Subscribe(sub)
	if err := sub.AwaitSubscription(ctx); err != nil {
		return nil, check.Failf("publisher did not call onSubscribe: %v", err)
	}
	if n := sub.Subscribes(); n != 1 {
		return nil, check.Failf("onSubscribe called %d times, want 1", n)
	}
	return sub, nil
}

// instancePublisher returns the publisher produced by the check's optional
// factory.
func instancePublisher(env *check.Env) (reactive.Publisher, error) {
	inst, ok := env.Instance()
	if !ok {
		return nil, fmt.Errorf("no optional instance was provided to the check")
	}
	pub, ok := inst.(reactive.Publisher)
	if !ok {
		return nil, fmt.Errorf("optional factory produced %T, not reactive.Publisher", inst)
	}
	return pub, nil
}

// expectElements waits for n elements and asserts exactly n arrived.
func expectElements(ctx context.Context, sub *reactive.TestSubscriber, n int) error {
	if err := sub.AwaitElements(ctx, n); err != nil {
		return check.Failf("expected %d elements: %v", n, err)
	}
	if got := len(sub.Elements()); got != n {
		return check.Failf("expected %d elements, got %d", n, got)
	}
	return nil
}

// expectCompletion waits for onComplete and fails on onError.
func expectCompletion(ctx context.Context, sub *reactive.TestSubscriber) error {
	if err := sub.AwaitTerminal(ctx); err != nil {
		return check.Failf("expected onComplete: %v", err)
	}
	if err := sub.Err(); err != nil {
		return check.Failf("expected onComplete, got onError(%v)", err)
	}
	return nil
}

// quietPeriod is how long a check waits for signals that must not arrive.
// Publishers may deliver from other goroutines, so an absent signal can only
// be asserted after a grace period.
const quietPeriod = 50 * time.Millisecond

// settle blocks for quietPeriod or until ctx is done.
func settle(ctx context.Context) error {
	timer := time.NewTimer(quietPeriod)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
