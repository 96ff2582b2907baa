package pubsub

import "sync"

// subscriptionBuffer bounds the per-subscriber backlog. A consumer that falls
// further behind than this loses events rather than stalling the publisher.
const subscriptionBuffer = 64

// Subscription is one subscriber's live sequence of events. It never ends on
// its own; the consumer stops it with Cancel, which releases the underlying
// broker resources and eventually closes Events.
type Subscription struct {
	events   chan Event
	once     sync.Once
	teardown func()
}

func newSubscription(teardown func()) *Subscription {
	return &Subscription{
		events:   make(chan Event, subscriptionBuffer),
		teardown: teardown,
	}
}

// Events yields published events in publish order. The channel closes after
// Cancel.
func (s *Subscription) Events() <-chan Event {
	return s.events
}

// Cancel tears the subscription down. Safe to call more than once and from
// any goroutine; teardown runs exactly once.
func (s *Subscription) Cancel() {
	s.once.Do(func() {
		if s.teardown != nil {
			s.teardown()
		}
	})
}

// push offers evt without blocking, reporting false when the subscriber's
// buffer is full.
func (s *Subscription) push(evt Event) bool {
	select {
	case s.events <- evt:
		return true
	default:
		return false
	}
}
