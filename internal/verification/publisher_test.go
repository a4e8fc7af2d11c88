package verification_test

import (
	"context"
	"errors"
	"math"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Quidge/streamtck/internal/check"
	"github.com/Quidge/streamtck/internal/impl"
	"github.com/Quidge/streamtck/internal/impl/reference"
	"github.com/Quidge/streamtck/internal/outcome"
	"github.com/Quidge/streamtck/internal/probe"
	"github.com/Quidge/streamtck/internal/reactive"
	"github.com/Quidge/streamtck/internal/runner"
	"github.com/Quidge/streamtck/internal/tag"
	"github.com/Quidge/streamtck/internal/verification"
)

func runSuite(t *testing.T, im impl.Implementation) *runner.Report {
	t.Helper()
	r := &runner.Runner{Impl: im, Parallelism: 4, Timeout: 5 * time.Second}
	rep, err := r.Run(t.Context(), verification.PublisherSuite())
	require.NoError(t, err)
	return rep
}

// runChecks runs only the named checks of the publisher suite.
func runChecks(t *testing.T, im impl.Implementation, ids ...string) *runner.Report {
	t.Helper()
	full := verification.PublisherSuite()
	suite := &check.Suite{Name: full.Name}
	for _, c := range full.Checks {
		if slices.Contains(ids, c.ID) {
			suite.Checks = append(suite.Checks, c)
		}
	}
	require.Len(t, suite.Checks, len(ids))

	r := &runner.Runner{Impl: im, Timeout: 5 * time.Second}
	rep, err := r.Run(t.Context(), suite)
	require.NoError(t, err)
	return rep
}

func statusOf(t *testing.T, rep *runner.Report, id string) runner.CheckResult {
	t.Helper()
	for _, res := range rep.Results {
		if res.ID == id {
			return res
		}
	}
	t.Fatalf("check %s not in report", id)
	return runner.CheckResult{}
}

func TestPublisherSuiteIsValid(t *testing.T) {
	suite := verification.PublisherSuite()
	require.NoError(t, suite.Validate())
	assert.Equal(t, verification.SuiteName, suite.Name)

	for _, c := range suite.Checks {
		switch {
		case strings.HasPrefix(c.ID, "required_"):
			assert.True(t, c.Tags.IsRequired(), c.ID)
		case strings.HasPrefix(c.ID, "stochastic_"):
			assert.True(t, c.Tags.IsStochastic(), c.ID)
		case strings.HasPrefix(c.ID, "untested_"):
			assert.True(t, c.Tags.IsNotVerified(), c.ID)
		case strings.HasPrefix(c.ID, "optional_"):
			assert.True(t, c.Tags.HasAny(tag.KindAdditional, tag.KindSubscribers), c.ID)
		default:
			t.Errorf("check %s has no recognised prefix", c.ID)
		}
	}
}

func TestReferenceIsConformant(t *testing.T) {
	im, err := reference.New(impl.Config{})
	require.NoError(t, err)

	rep := runSuite(t, im)

	for _, res := range rep.Results {
		assert.NotEqual(t, outcome.StatusFail, res.Status, "%s: %s", res.ID, res.Reason)
		assert.NotEqual(t, outcome.StatusSkipped, res.Status, "%s: %s", res.ID, res.Reason)
	}
	assert.True(t, rep.Conformant())
	assert.Equal(t, 2, rep.Counts.Informational)
	assert.Equal(t, len(rep.Results), rep.Counts.Total)

	assert.Equal(t, outcome.StatusPass,
		statusOf(t, rep, "optional_spec104_mustSignalOnErrorWhenFails").Status)
	assert.Equal(t, outcome.StatusPass,
		statusOf(t, rep, "optional_spec111_multicast_mustProduceTheSameElementsInTheSameSequenceToAllOfItsSubscribersWhenRequestingOneByOne").Status)
}

func TestUnicastSkipsOptionalChecks(t *testing.T) {
	im, err := reference.NewUnicast(impl.Config{})
	require.NoError(t, err)

	rep := runSuite(t, im)
	assert.True(t, rep.Conformant())

	skipped := map[string]string{}
	for _, res := range rep.ByStatus(outcome.StatusSkipped) {
		assert.False(t, res.Invoked, res.ID)
		skipped[res.ID] = res.Reason
	}

	assert.Len(t, skipped, 4)
	assert.Contains(t, skipped["optional_spec111_maySupportMultiSubscribe"], "insufficient subscriber capacity")
	assert.Contains(t,
		skipped["optional_spec111_multicast_mustProduceTheSameElementsInTheSameSequenceToAllOfItsSubscribersWhenRequestingOneByOne"],
		"requires 3, implementation supports 1")
	assert.Contains(t, skipped, "optional_spec104_mustSignalOnErrorWhenFails")
	assert.Contains(t, skipped, "optional_spec105_emptyStreamMustTerminateBySignallingOnComplete")
}

// greedyImpl emits every element on subscribe, ignoring demand.
type greedyImpl struct {
	probe.Factories
}

func (greedyImpl) Name() string { return "greedy" }

func (greedyImpl) CreatePublisher(ctx context.Context, elements int64) (reactive.Publisher, error) {
	return greedyPublisher(elements), nil
}

func (greedyImpl) MaxElementsFromPublisher() int64 { return math.MaxInt64 }

type greedyPublisher int64

func (p greedyPublisher) Subscribe(s reactive.Subscriber) {
	s.OnSubscribe(reactive.NoopSubscription{})
	for i := int64(0); i < int64(p); i++ {
		s.OnNext(i)
	}
	s.OnComplete()
}

func TestGreedyPublisherFailsDemandChecks(t *testing.T) {
	rep := runSuite(t, greedyImpl{})

	assert.False(t, rep.Conformant())

	res := statusOf(t, rep, "required_spec101_subscriptionRequestMustResultInTheCorrectNumberOfProducedElements")
	assert.Equal(t, outcome.StatusFail, res.Status)
	assert.Contains(t, res.Reason, "expected 1 elements")

	assert.Equal(t, outcome.StatusFail,
		statusOf(t, rep, "required_spec309_requestZeroMustSignalIllegalArgumentException").Status)
	assert.Equal(t, outcome.StatusSkipped,
		statusOf(t, rep, "optional_spec104_mustSignalOnErrorWhenFails").Status)
	assert.Equal(t, outcome.StatusInformational,
		statusOf(t, rep, "untested_spec106_mustConsiderSubscriptionCancelledAfterOnErrorOrOnCompleteHasBeenCalled").Status)
	assert.Positive(t, rep.Counts.RequiredFailed)
}

// lateImpl wraps the reference publisher and misbehaves only on other
// goroutines: requests are served asynchronously, cancel is ignored and every
// subscriber after the first is rejected after onSubscribe returned.
type lateImpl struct {
	probe.Factories
	inner impl.Implementation
}

func newLateImpl(t *testing.T) lateImpl {
	t.Helper()
	inner, err := reference.New(impl.Config{})
	require.NoError(t, err)
	return lateImpl{inner: inner}
}

func (lateImpl) Name() string { return "late" }

func (l lateImpl) CreatePublisher(ctx context.Context, elements int64) (reactive.Publisher, error) {
	pub, err := l.inner.CreatePublisher(ctx, elements)
	if err != nil {
		return nil, err
	}
	return &latePublisher{inner: pub}, nil
}

func (l lateImpl) MaxElementsFromPublisher() int64 { return l.inner.MaxElementsFromPublisher() }

type latePublisher struct {
	inner reactive.Publisher

	mu          sync.Mutex
	subscribers int
}

func (p *latePublisher) Subscribe(s reactive.Subscriber) {
	p.mu.Lock()
	p.subscribers++
	first := p.subscribers == 1
	p.mu.Unlock()

	if !first {
		s.OnSubscribe(reactive.NoopSubscription{})
		go s.OnError(reactive.ErrAlreadySubscribed)
		return
	}
	p.inner.Subscribe(&lateSubscriber{Subscriber: s})
}

// lateSubscriber swaps the subscription handed downstream.
type lateSubscriber struct {
	reactive.Subscriber
}

func (s *lateSubscriber) OnSubscribe(sub reactive.Subscription) {
	s.Subscriber.OnSubscribe(lateSubscription{inner: sub})
}

type lateSubscription struct {
	inner reactive.Subscription
}

func (s lateSubscription) Request(n int64) { go s.inner.Request(n) }
func (lateSubscription) Cancel()           {}

func TestAsynchronousViolationsAreDetected(t *testing.T) {
	rep := runSuite(t, newLateImpl(t))

	multi := statusOf(t, rep, "optional_spec111_maySupportMultiSubscribe")
	assert.Equal(t, outcome.StatusFail, multi.Status)
	assert.Contains(t, multi.Reason, "subscriber 2 rejected")

	cancel := statusOf(t, rep, "required_spec312_cancelMustMakeThePublisherToEventuallyStopSignaling")
	assert.Equal(t, outcome.StatusFail, cancel.Status)
	assert.Contains(t, cancel.Reason, "elements after cancel")

	assert.False(t, rep.Conformant())
}

// wrongCauseImpl signals an unrelated error on a non-positive request.
type wrongCauseImpl struct {
	lateImpl
}

var errInvalidDemand = errors.New("invalid demand")

func (w wrongCauseImpl) CreatePublisher(ctx context.Context, elements int64) (reactive.Publisher, error) {
	pub, err := w.inner.CreatePublisher(ctx, elements)
	if err != nil {
		return nil, err
	}
	return wrongCausePublisher{inner: pub}, nil
}

type wrongCausePublisher struct {
	inner reactive.Publisher
}

func (p wrongCausePublisher) Subscribe(s reactive.Subscriber) {
	p.inner.Subscribe(&wrongCauseSubscriber{Subscriber: s})
}

type wrongCauseSubscriber struct {
	reactive.Subscriber
}

func (s *wrongCauseSubscriber) OnSubscribe(sub reactive.Subscription) {
	s.Subscriber.OnSubscribe(wrongCauseSubscription{inner: sub, downstream: s.Subscriber})
}

type wrongCauseSubscription struct {
	inner      reactive.Subscription
	downstream reactive.Subscriber
}

func (s wrongCauseSubscription) Request(n int64) {
	if n <= 0 {
		s.inner.Cancel()
		s.downstream.OnError(errInvalidDemand)
		return
	}
	s.inner.Request(n)
}

func (s wrongCauseSubscription) Cancel() { s.inner.Cancel() }

func TestNonPositiveRequestWithWrongCauseFails(t *testing.T) {
	rep := runSuite(t, wrongCauseImpl{newLateImpl(t)})

	for _, id := range []string{
		"required_spec309_requestZeroMustSignalIllegalArgumentException",
		"required_spec309_requestNegativeNumberMustSignalIllegalArgumentException",
	} {
		res := statusOf(t, rep, id)
		assert.Equal(t, outcome.StatusFail, res.Status, id)
		assert.Contains(t, res.Reason, errInvalidDemand.Error(), id)
		assert.Contains(t, res.Reason, reactive.ErrNonPositiveRequest.Error(), id)
	}
	assert.Equal(t, outcome.StatusPass,
		statusOf(t, rep, "required_spec101_subscriptionRequestMustResultInTheCorrectNumberOfProducedElements").Status)
}

// recursiveImpl delivers onNext synchronously from inside request, so a
// subscriber that requests from onNext re-enters onNext once per element. It
// is not safe for concurrent requests.
type recursiveImpl struct {
	probe.Factories
}

func (recursiveImpl) Name() string { return "recursive" }

func (recursiveImpl) CreatePublisher(ctx context.Context, elements int64) (reactive.Publisher, error) {
	return recursivePublisher(elements), nil
}

func (recursiveImpl) MaxElementsFromPublisher() int64 { return math.MaxInt64 }

type recursivePublisher int64

func (p recursivePublisher) Subscribe(s reactive.Subscriber) {
	s.OnSubscribe(&recursiveSubscription{subscriber: s, remaining: int64(p)})
}

type recursiveSubscription struct {
	subscriber reactive.Subscriber
	remaining  int64
	next       int64
	done       bool
}

func (s *recursiveSubscription) Request(n int64) {
	for ; n > 0 && !s.done; n-- {
		if s.remaining == 0 {
			s.done = true
			s.subscriber.OnComplete()
			return
		}
		s.remaining--
		s.next++
		s.subscriber.OnNext(s.next)
	}
	if s.remaining == 0 && !s.done {
		s.done = true
		s.subscriber.OnComplete()
	}
}

func (s *recursiveSubscription) Cancel() { s.done = true }

func TestUnboundedRequestRecursionFails(t *testing.T) {
	const id = "required_spec303_mustNotAllowUnboundedRecursionBetweenRequestAndOnNext"
	rep := runChecks(t, recursiveImpl{}, id)

	res := statusOf(t, rep, id)
	assert.Equal(t, outcome.StatusFail, res.Status)
	assert.Contains(t, res.Reason, "recursed 10 levels deep")
	assert.False(t, rep.Conformant())
}

func TestBoundedRequestRecursionPassesForReference(t *testing.T) {
	const id = "required_spec303_mustNotAllowUnboundedRecursionBetweenRequestAndOnNext"
	im, err := reference.New(impl.Config{})
	require.NoError(t, err)

	rep := runChecks(t, im, id)
	assert.Equal(t, outcome.StatusPass, statusOf(t, rep, id).Status)
}
