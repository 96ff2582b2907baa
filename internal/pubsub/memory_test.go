package pubsub

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *logrus.Entry {
	l := logrus.New()
	l.SetLevel(logrus.PanicLevel)
	return logrus.NewEntry(l)
}

func receiveOne(t *testing.T, sub *Subscription) Event {
	t.Helper()

	select {
	case evt, ok := <-sub.Events():
		require.True(t, ok, "sequence closed unexpectedly")
		return evt
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
		return Event{}
	}
}

func TestMemoryBusPublish(t *testing.T) {
	ctx := context.Background()

	t.Run("it should deliver to a registered subscriber", func(t *testing.T) {
		bus := NewMemoryBus(testLogger())

		sub, err := bus.Subscribe(ctx, "greetings")
		require.NoError(t, err)
		defer sub.Cancel()

		require.NoError(t, bus.Publish(ctx, "greetings", map[string]string{"hello": "world"}))

		evt := receiveOne(t, sub)
		assert.Equal(t, "greetings", evt.Topic)
		assert.NotEmpty(t, evt.ID)
		assert.JSONEq(t, `{"hello":"world"}`, string(evt.Payload))
	})

	t.Run("it should not error with zero subscribers", func(t *testing.T) {
		bus := NewMemoryBus(testLogger())
		assert.NoError(t, bus.Publish(ctx, "ghost-town", "nobody home"))
	})

	t.Run("it should preserve publish order per subscriber", func(t *testing.T) {
		bus := NewMemoryBus(testLogger())

		sub, err := bus.Subscribe(ctx, "ordered")
		require.NoError(t, err)
		defer sub.Cancel()

		for i := 0; i < 10; i++ {
			require.NoError(t, bus.Publish(ctx, "ordered", i))
		}

		for i := 0; i < 10; i++ {
			var got int
			require.NoError(t, json.Unmarshal(receiveOne(t, sub).Payload, &got))
			assert.Equal(t, i, got)
		}
	})

	t.Run("it should fan out the same event to every subscriber", func(t *testing.T) {
		bus := NewMemoryBus(testLogger())

		a, err := bus.Subscribe(ctx, "fan")
		require.NoError(t, err)
		b, err := bus.Subscribe(ctx, "fan")
		require.NoError(t, err)
		defer b.Cancel()

		require.NoError(t, bus.Publish(ctx, "fan", "first"))

		evtA, evtB := receiveOne(t, a), receiveOne(t, b)
		assert.Equal(t, evtA.ID, evtB.ID)
		assert.Equal(t, evtA.Payload, evtB.Payload)

		// Cancelling one sequence must not disturb the other.
		a.Cancel()
		assert.Equal(t, 1, bus.Subscribers("fan"))

		require.NoError(t, bus.Publish(ctx, "fan", "second"))
		assert.JSONEq(t, `"second"`, string(receiveOne(t, b).Payload))
	})

	t.Run("it should not replay events to late subscribers", func(t *testing.T) {
		bus := NewMemoryBus(testLogger())

		require.NoError(t, bus.Publish(ctx, "late", "missed"))

		sub, err := bus.Subscribe(ctx, "late")
		require.NoError(t, err)
		defer sub.Cancel()

		select {
		case evt := <-sub.Events():
			t.Fatalf("unexpected event: %v", evt)
		case <-time.After(50 * time.Millisecond):
		}
	})

	t.Run("it should drop rather than block when a subscriber stalls", func(t *testing.T) {
		bus := NewMemoryBus(testLogger())

		sub, err := bus.Subscribe(ctx, "slow")
		require.NoError(t, err)
		defer sub.Cancel()

		done := make(chan struct{})
		go func() {
			defer close(done)
			for i := 0; i < subscriptionBuffer*2; i++ {
				_ = bus.Publish(ctx, "slow", i)
			}
		}()

		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("publish blocked on a stalled subscriber")
		}
	})
}

func TestSubscriptionCancel(t *testing.T) {
	t.Run("it should close the sequence and deregister", func(t *testing.T) {
		bus := NewMemoryBus(testLogger())

		sub, err := bus.Subscribe(context.Background(), "bye")
		require.NoError(t, err)

		sub.Cancel()
		assert.Equal(t, 0, bus.Subscribers("bye"))

		_, ok := <-sub.Events()
		assert.False(t, ok)
	})

	t.Run("it should tolerate repeated cancels", func(t *testing.T) {
		bus := NewMemoryBus(testLogger())

		sub, err := bus.Subscribe(context.Background(), "twice")
		require.NoError(t, err)

		sub.Cancel()
		assert.NotPanics(t, sub.Cancel)
	})
}
