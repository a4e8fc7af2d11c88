package reference

import (
	"sync"

	"github.com/Quidge/streamtck/internal/reactive"
)

// rangePublisher emits the integers [start, start+count) to each subscriber
// independently.
type rangePublisher struct {
	start int64
	count int64
}

func (p *rangePublisher) Subscribe(s reactive.Subscriber) {
	sub := &rangeSubscription{
		subscriber: s,
		next:       p.start,
		end:        p.start + p.count,
	}
	s.OnSubscribe(sub)
	// An empty range completes without demand.
	sub.signal()
}

// rangeSubscription serializes all signals: only the goroutine that flips
// emitting to true delivers signals, others just record demand or errors.
type rangeSubscription struct {
	subscriber reactive.Subscriber

	mu        sync.Mutex
	next      int64
	end       int64
	demand    int64
	emitting  bool
	done      bool
	cancelled bool
	err       error
}

func (s *rangeSubscription) Request(n int64) {
	s.mu.Lock()
	if n <= 0 {
		if s.err == nil {
			s.err = reactive.ErrNonPositiveRequest
		}
	} else {
		s.demand = reactive.AddDemand(s.demand, n)
	}
	s.mu.Unlock()
	s.signal()
}

func (s *rangeSubscription) Cancel() {
	s.mu.Lock()
	s.cancelled = true
	s.mu.Unlock()
}

func (s *rangeSubscription) signal() {
	s.mu.Lock()
	if s.emitting {
		s.mu.Unlock()
		return
	}
	s.emitting = true
	s.mu.Unlock()
	s.drain()
}

func (s *rangeSubscription) drain() {
	for {
		s.mu.Lock()
		switch {
		case s.cancelled || s.done:
			s.emitting = false
			s.mu.Unlock()
			return
		case s.err != nil:
			err := s.err
			s.done = true
			s.emitting = false
			s.mu.Unlock()
			s.subscriber.OnError(err)
			return
		case s.next >= s.end:
			s.done = true
			s.emitting = false
			s.mu.Unlock()
			s.subscriber.OnComplete()
			return
		case s.demand == 0:
			s.emitting = false
			s.mu.Unlock()
			return
		}
		v := s.next
		s.next++
		s.demand--
		s.mu.Unlock()

		s.subscriber.OnNext(v)
	}
}

// failedPublisher signals onError right after onSubscribe.
type failedPublisher struct {
	err error
}

func (p *failedPublisher) Subscribe(s reactive.Subscriber) {
	s.OnSubscribe(reactive.NoopSubscription{})
	s.OnError(p.err)
}

// unicastPublisher lets only the first subscriber through.
type unicastPublisher struct {
	inner reactive.Publisher

	mu         sync.Mutex
	subscribed bool
}

func (p *unicastPublisher) Subscribe(s reactive.Subscriber) {
	p.mu.Lock()
	first := !p.subscribed
	p.subscribed = true
	p.mu.Unlock()

	if !first {
		s.OnSubscribe(reactive.NoopSubscription{})
		s.OnError(reactive.ErrAlreadySubscribed)
		return
	}
	p.inner.Subscribe(s)
}
