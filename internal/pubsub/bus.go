// Package pubsub couples the mutation path to live subscribers: a publish
// delivers an event to every subscription registered at that moment, each on
// its own independent, cancellable sequence. Nothing is buffered for late
// subscribers and nothing is redelivered.
package pubsub

import "context"

// Bus is the publish/subscribe primitive shared by the mutation entry point
// and the subscription gateway.
type Bus interface {
	// Publish delivers payload to every subscriber currently registered on
	// topic. Zero subscribers is not an error; the event is discarded.
	Publish(ctx context.Context, topic string, payload interface{}) error

	// Subscribe registers a new live sequence for topic. The returned
	// subscription only yields events published after Subscribe returns.
	Subscribe(ctx context.Context, topic string) (*Subscription, error)
}
