package pubsub

import (
	"context"
	"encoding/json"

	redis "github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
)

// RedisBus publishes and subscribes over a shared redis client. All calls
// multiplex the one process-wide connection; per-topic ordering is redis's
// per-channel ordering, global order across publishers is best-effort.
type RedisBus struct {
	client *redis.Client
	logger *logrus.Entry
}

func NewRedisBus(client *redis.Client, logger *logrus.Entry) *RedisBus {
	return &RedisBus{
		client: client,
		logger: logger.WithField("component", "pubsub.redis"),
	}
}

// Publish marshals the envelope and fires it at topic. Delivery is
// at-most-once to whoever is subscribed right now; with nobody listening the
// event evaporates, which is fine.
func (b *RedisBus) Publish(ctx context.Context, topic string, payload interface{}) error {
	evt, err := newEvent(topic, payload)
	if err != nil {
		return err
	}

	data, err := json.Marshal(evt)
	if err != nil {
		return err
	}

	return b.client.Publish(ctx, topic, data).Err()
}

// Subscribe opens a broker-side subscription on topic. The registration is
// confirmed before returning, so a broken broker fails the subscribe call
// rather than yielding a silent dead sequence. Cancel closes the broker
// subscription; the forwarding goroutine then drains out and closes Events.
func (b *RedisBus) Subscribe(ctx context.Context, topic string) (*Subscription, error) {
	ps := b.client.Subscribe(ctx, topic)

	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, err
	}

	sub := newSubscription(func() { _ = ps.Close() })

	go func() {
		defer close(sub.events)

		for msg := range ps.Channel() {
			var evt Event
			if err := json.Unmarshal([]byte(msg.Payload), &evt); err != nil {
				b.logger.Warnf("discarding undecodable event on %s: %v", topic, err)
				continue
			}

			if !sub.push(evt) {
				b.logger.Warnf("dropping event %s on %s: subscriber not keeping up", evt.ID, topic)
			}
		}
	}()

	return sub, nil
}
