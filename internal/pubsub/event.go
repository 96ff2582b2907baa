package pubsub

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Event is the ephemeral envelope carried from publisher to subscriber. The
// payload is a JSON snapshot taken at publish time; events have no identity in
// storage and exist only for the duration of delivery.
type Event struct {
	ID          uuid.UUID       `json:"id"`
	Topic       string          `json:"topic"`
	PublishedAt time.Time       `json:"publishedAt"`
	Payload     json.RawMessage `json:"payload"`
}

func newEvent(topic string, payload interface{}) (Event, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Event{}, err
	}

	return Event{
		ID:          uuid.New(),
		Topic:       topic,
		PublishedAt: time.Now().UTC(),
		Payload:     data,
	}, nil
}
