package pubsub

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"
)

// MemoryBus is an in-process fan-out registry. Tests and single-node runs use
// it in place of the broker-backed bus.
type MemoryBus struct {
	mu     sync.RWMutex
	subs   map[string][]*Subscription
	logger *logrus.Entry
}

func NewMemoryBus(logger *logrus.Entry) *MemoryBus {
	return &MemoryBus{
		subs:   make(map[string][]*Subscription),
		logger: logger.WithField("component", "pubsub.memory"),
	}
}

// Publish snapshots the payload once and offers it to every subscriber
// registered on topic. A full subscriber buffer drops the event for that
// subscriber only.
func (b *MemoryBus) Publish(_ context.Context, topic string, payload interface{}) error {
	evt, err := newEvent(topic, payload)
	if err != nil {
		return err
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, sub := range b.subs[topic] {
		if !sub.push(evt) {
			b.logger.Warnf("dropping event %s on %s: subscriber not keeping up", evt.ID, topic)
		}
	}
	return nil
}

// Subscribe registers a new live sequence on topic. Cancel removes it from the
// registry before closing its channel, so in-flight publishes never see a
// cancelled subscriber.
func (b *MemoryBus) Subscribe(_ context.Context, topic string) (*Subscription, error) {
	sub := newSubscription(nil)
	sub.teardown = func() {
		b.remove(topic, sub)
		close(sub.events)
	}

	b.mu.Lock()
	b.subs[topic] = append(b.subs[topic], sub)
	b.mu.Unlock()

	return sub, nil
}

// Subscribers reports how many live sequences topic currently has.
func (b *MemoryBus) Subscribers(topic string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[topic])
}

func (b *MemoryBus) remove(topic string, sub *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs := b.subs[topic]
	for i, s := range subs {
		if s == sub {
			b.subs[topic] = append(subs[:i], subs[i+1:]...)
			return
		}
	}
}
