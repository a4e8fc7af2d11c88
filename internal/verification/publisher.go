package verification

import (
	"context"
	"errors"
	"math"
	"sync"
	"sync/atomic"

	"github.com/Quidge/streamtck/internal/check"
	"github.com/Quidge/streamtck/internal/impl"
	"github.com/Quidge/streamtck/internal/reactive"
	"github.com/Quidge/streamtck/internal/tag"
)

// SuiteName is the name of the publisher verification suite.
const SuiteName = "publisher"

// PublisherSuite returns the publisher verification suite.
func PublisherSuite() *check.Suite {
	return &check.Suite{
		Name: SuiteName,
		Checks: []check.Check{
			check.New("required_createPublisher1MustProduceAStreamOfExactly1Element", "",
				"createPublisher(1) must produce exactly one element",
				exactlyNElements(1), tag.Required{}),
			check.New("required_createPublisher3MustProduceAStreamOfExactly3Elements", "",
				"createPublisher(3) must produce exactly three elements",
				exactlyNElements(3), tag.Required{}),
			check.New("required_validate_maxElementsFromPublisher", "",
				"maxElementsFromPublisher must not be negative",
				validateMaxElements, tag.Required{}),
			check.New("required_spec101_subscriptionRequestMustResultInTheCorrectNumberOfProducedElements", "1.1",
				"onNext count must not exceed the total requested",
				requestResultsInCorrectNumber, tag.Required{}),
			check.New("required_spec102_maySignalLessThanRequestedAndTerminateSubscription", "1.2",
				"a shorter stream terminates even with outstanding demand",
				maySignalLessThanRequested, tag.Required{}),
			check.New("stochastic_spec103_mustSignalOnMethodsSequentially", "1.3",
				"signals must never be delivered concurrently",
				mustSignalSequentially, tag.Stochastic{}),
			check.New("optional_spec104_mustSignalOnErrorWhenFails", "1.4",
				"a failing publisher signals onError after onSubscribe",
				mustSignalOnErrorWhenFails,
				tag.Additional{
					Explanation: "implementation cannot provide a publisher that fails",
					Implement:   impl.FactoryFailedPublisher,
				}),
			check.New("required_spec105_mustSignalOnCompleteWhenFiniteStreamTerminates", "1.5",
				"a finite stream ends with onComplete",
				mustSignalOnComplete, tag.Required{}),
			check.New("optional_spec105_emptyStreamMustTerminateBySignallingOnComplete", "1.5",
				"an empty stream completes without any request",
				emptyStreamCompletes,
				tag.Additional{
					Explanation: "implementation cannot provide an empty publisher",
					Implement:   impl.FactoryEmptyPublisher,
				}),
			check.New("untested_spec106_mustConsiderSubscriptionCancelledAfterOnErrorOrOnCompleteHasBeenCalled", "1.6",
				"subscription is cancelled once a terminal signal was sent",
				notMechanicallyVerifiable, tag.NotVerified{}),
			check.New("required_spec107_mustNotEmitFurtherSignalsOnceOnCompleteHasBeenSignalled", "1.7",
				"no signals may follow onComplete",
				noSignalsAfterComplete, tag.Required{}),
			check.New("required_spec109_mustIssueOnSubscribeForNonNullSubscriber", "1.9",
				"subscribe must call onSubscribe exactly once",
				mustIssueOnSubscribe, tag.Required{}),
			check.New("optional_spec111_maySupportMultiSubscribe", "1.11",
				"publisher may support multiple subscribers",
				maySupportMultiSubscribe, tag.Subscribers{N: 2}),
			check.New("optional_spec111_multicast_mustProduceTheSameElementsInTheSameSequenceToAllOfItsSubscribersWhenRequestingOneByOne", "1.11",
				"multicast subscribers see the same sequence",
				multicastSameSequence, tag.Subscribers{N: 3}),
			check.New("required_spec303_mustNotAllowUnboundedRecursionBetweenRequestAndOnNext", "3.3",
				"request from within onNext must not recurse into onNext",
				boundedRequestRecursion, tag.Required{}),
			check.New("untested_spec304_requestShouldNotPerformHeavyComputations", "3.4",
				"request should not perform heavy computations",
				notMechanicallyVerifiable, tag.NotVerified{}),
			check.New("required_spec309_requestZeroMustSignalIllegalArgumentException", "3.9",
				"request(0) must signal onError",
				nonPositiveRequestSignalsError(0), tag.Required{}),
			check.New("required_spec309_requestNegativeNumberMustSignalIllegalArgumentException", "3.9",
				"request(-1) must signal onError",
				nonPositiveRequestSignalsError(-1), tag.Required{}),
			check.New("required_spec312_cancelMustMakeThePublisherToEventuallyStopSignaling", "3.12",
				"cancel must stop further onNext signals",
				cancelStopsSignalling, tag.Required{}),
			check.New("required_spec317_mustSupportAPendingElementCountUpToLongMaxValue", "3.17",
				"demand up to MaxInt64 must be supported",
				supportsMaxDemand, tag.Required{}),
			check.New("stochastic_spec317_mustSupportACumulativePendingElementCountUpToLongMaxValue", "3.17",
				"concurrent requests summing past MaxInt64 are treated as unbounded",
				supportsCumulativeMaxDemand, tag.Stochastic{}),
		},
	}
}

func exactlyNElements(n int64) check.Body {
	return func(ctx context.Context, env *check.Env) error {
		sub, err := subscribe(ctx, env, n)
		if err != nil {
			return err
		}
		if err := sub.Request(n + 10); err != nil {
			return err
		}
		if err := expectCompletion(ctx, sub); err != nil {
			return err
		}
		return check.AssertEqual("element count", int64(len(sub.Elements())), n)
	}
}

func validateMaxElements(ctx context.Context, env *check.Env) error {
	im, err := implementation(env)
	if err != nil {
		return err
	}
	max := im.MaxElementsFromPublisher()
	return check.Assert(max >= 0, "maxElementsFromPublisher returned %d", max)
}

func requestResultsInCorrectNumber(ctx context.Context, env *check.Env) error {
	sub, err := subscribe(ctx, env, 5)
	if err != nil {
		return err
	}
	for _, step := range []struct {
		request int64
		total   int
	}{{1, 1}, {1, 2}, {2, 4}} {
		if err := sub.Request(step.request); err != nil {
			return err
		}
		if err := expectElements(ctx, sub, step.total); err != nil {
			return err
		}
	}
	return sub.Cancel()
}

func maySignalLessThanRequested(ctx context.Context, env *check.Env) error {
	sub, err := subscribe(ctx, env, 3)
	if err != nil {
		return err
	}
	if err := sub.Request(10); err != nil {
		return err
	}
	if err := expectCompletion(ctx, sub); err != nil {
		return err
	}
	return check.AssertEqual("element count", len(sub.Elements()), 3)
}

func mustSignalSequentially(ctx context.Context, env *check.Env) error {
	const elements = 200
	const workers = 4

	sub, err := subscribe(ctx, env, elements)
	if err != nil {
		return err
	}

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < elements/workers; i++ {
				_ = sub.Request(1)
			}
		}()
	}
	wg.Wait()

	if err := expectCompletion(ctx, sub); err != nil {
		return err
	}
	if sub.Overlapped() {
		return check.Failf("signals were delivered concurrently")
	}
	return nil
}

func mustSignalOnErrorWhenFails(ctx context.Context, env *check.Env) error {
	pub, err := instancePublisher(env)
	if err != nil {
		return err
	}
	sub, err := attach(ctx, pub)
	if err != nil {
		return err
	}
	if err := sub.AwaitTerminal(ctx); err != nil {
		return check.Failf("expected onError: %v", err)
	}
	if sub.Err() == nil {
		return check.Failf("expected onError, got onComplete")
	}
	return check.AssertEqual("elements before onError", len(sub.Elements()), 0)
}

func mustSignalOnComplete(ctx context.Context, env *check.Env) error {
	sub, err := subscribe(ctx, env, 3)
	if err != nil {
		return err
	}
	if err := sub.Request(3); err != nil {
		return err
	}
	return expectCompletion(ctx, sub)
}

func emptyStreamCompletes(ctx context.Context, env *check.Env) error {
	pub, err := instancePublisher(env)
	if err != nil {
		return err
	}
	sub, err := attach(ctx, pub)
	if err != nil {
		return err
	}
	if err := expectCompletion(ctx, sub); err != nil {
		return err
	}
	return check.AssertEqual("element count", len(sub.Elements()), 0)
}

func notMechanicallyVerifiable(ctx context.Context, env *check.Env) error {
	env.Logger.Debug().Msg("rule acknowledged but not mechanically verifiable")
	return nil
}

func noSignalsAfterComplete(ctx context.Context, env *check.Env) error {
	sub, err := subscribe(ctx, env, 1)
	if err != nil {
		return err
	}
	if err := sub.Request(1); err != nil {
		return err
	}
	if err := expectCompletion(ctx, sub); err != nil {
		return err
	}
	if err := sub.Request(5); err != nil {
		return err
	}
	return check.AssertEqual("signals after onComplete", sub.SignalsAfterTerminal(), 0)
}

func mustIssueOnSubscribe(ctx context.Context, env *check.Env) error {
	_, err := subscribe(ctx, env, 1)
	return err
}

func maySupportMultiSubscribe(ctx context.Context, env *check.Env) error {
	pub, err := newPublisher(ctx, env, 1)
	if err != nil {
		return err
	}
	subs := make([]*reactive.TestSubscriber, 2)
	for i := range subs {
		if subs[i], err = attach(ctx, pub); err != nil {
			return err
		}
	}
	// A rejection may be signalled after onSubscribe returned.
	if err := settle(ctx); err != nil {
		return err
	}
	for i, sub := range subs {
		if err := sub.Err(); err != nil {
			return check.Failf("subscriber %d rejected: %v", i+1, err)
		}
	}
	return nil
}

func multicastSameSequence(ctx context.Context, env *check.Env) error {
	const elements = 5

	pub, err := newPublisher(ctx, env, elements)
	if err != nil {
		return err
	}
	subs := make([]*reactive.TestSubscriber, 3)
	for i := range subs {
		if subs[i], err = attach(ctx, pub); err != nil {
			return err
		}
	}
	for i := 0; i < elements; i++ {
		for _, sub := range subs {
			if err := sub.Request(1); err != nil {
				return err
			}
		}
	}
	for _, sub := range subs {
		if err := expectCompletion(ctx, sub); err != nil {
			return err
		}
	}

	first := subs[0].Elements()
	for i, sub := range subs[1:] {
		got := sub.Elements()
		if len(got) != len(first) {
			return check.Failf("subscriber %d received %d elements, subscriber 1 received %d", i+2, len(got), len(first))
		}
		for j := range got {
			if got[j] != first[j] {
				return check.Failf("subscriber %d element %d = %v, subscriber 1 saw %v", i+2, j, got[j], first[j])
			}
		}
	}
	return nil
}

func nonPositiveRequestSignalsError(n int64) check.Body {
	return func(ctx context.Context, env *check.Env) error {
		sub, err := subscribe(ctx, env, 10)
		if err != nil {
			return err
		}
		if err := sub.Request(n); err != nil {
			return err
		}
		if err := sub.AwaitTerminal(ctx); err != nil {
			return check.Failf("expected onError after request(%d): %v", n, err)
		}
		if sub.Err() == nil {
			return check.Failf("expected onError after request(%d), got onComplete", n)
		}
		if !errors.Is(sub.Err(), reactive.ErrNonPositiveRequest) {
			return check.Failf("request(%d) signalled onError(%v), want an error wrapping %q",
				n, sub.Err(), reactive.ErrNonPositiveRequest)
		}
		return nil
	}
}

func cancelStopsSignalling(ctx context.Context, env *check.Env) error {
	sub, err := subscribe(ctx, env, 20)
	if err != nil {
		return err
	}
	if err := sub.Request(5); err != nil {
		return err
	}
	if err := expectElements(ctx, sub, 5); err != nil {
		return err
	}
	if err := sub.Cancel(); err != nil {
		return err
	}
	if err := sub.Request(5); err != nil {
		return err
	}
	if err := settle(ctx); err != nil {
		return err
	}
	return check.AssertEqual("elements after cancel", len(sub.Elements()), 5)
}

// maxRequestRecursion is how deeply onNext may be re-entered through a
// request issued from onNext.
const maxRequestRecursion = 1

func boundedRequestRecursion(ctx context.Context, env *check.Env) error {
	const elements = 10

	pub, err := newPublisher(ctx, env, elements)
	if err != nil {
		return err
	}

	var depth, maxDepth atomic.Int32
	sub := reactive.NewTestSubscriber()
	sub.OnSubscribeHook(func(s reactive.Subscription) { s.Request(1) })
	sub.OnNextHook(func(any) {
		d := depth.Add(1)
		defer depth.Add(-1)
		for {
			cur := maxDepth.Load()
			if d <= cur || maxDepth.CompareAndSwap(cur, d) {
				break
			}
		}
		_ = sub.Request(1)
	})

	if _, err := attachSubscriber(ctx, pub, sub); err != nil {
		return err
	}
	if err := expectCompletion(ctx, sub); err != nil {
		return err
	}
	if d := maxDepth.Load(); d > maxRequestRecursion {
		return check.Failf("request from onNext recursed %d levels deep, at most %d allowed", d, maxRequestRecursion)
	}
	if sub.Overlapped() {
		return check.Failf("signals were delivered concurrently")
	}
	return check.AssertEqual("element count", len(sub.Elements()), elements)
}

func supportsMaxDemand(ctx context.Context, env *check.Env) error {
	sub, err := subscribe(ctx, env, 3)
	if err != nil {
		return err
	}
	if err := sub.Request(math.MaxInt64); err != nil {
		return err
	}
	if err := expectCompletion(ctx, sub); err != nil {
		return err
	}
	return check.AssertEqual("element count", len(sub.Elements()), 3)
}

func supportsCumulativeMaxDemand(ctx context.Context, env *check.Env) error {
	sub, err := subscribe(ctx, env, 3)
	if err != nil {
		return err
	}

	var wg sync.WaitGroup
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = sub.Request(math.MaxInt64 / 2)
		}()
	}
	wg.Wait()

	if err := expectCompletion(ctx, sub); err != nil {
		return err
	}
	if sub.SignalsAfterTerminal() != 0 {
		return check.Failf("%d signals after terminal", sub.SignalsAfterTerminal())
	}
	return nil
}
