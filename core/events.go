package core

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pkg/errors"
)

// Event is a change notification fanned out to the subscribers of Topic (eg. "chat:<roomID>").
type Event struct {
	Topic string          `json:"topic"`
	Type  string          `json:"type"`
	Data  json.RawMessage `json:"data"`
	At    time.Time       `json:"at"`
}

// EventPublisher is any service that can broadcast Events.
// Delivery is best-effort: no ordering across topics, no redelivery.
type EventPublisher interface {
	Publish(ctx context.Context, evt Event) error
}

func NewEvent(topic, typ string, data interface{}) (Event, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return Event{}, errors.Wrap(err, "marshalling event data")
	}
	return Event{Topic: topic, Type: typ, Data: raw, At: NowFunc()}, nil
}

// PublishEvent builds and publishes an Event, logging failures instead of returning them.
func PublishEvent(ctx context.Context, pub EventPublisher, logger Logger, topic, typ string, data interface{}) {
	if pub == nil {
		return
	}
	evt, err := NewEvent(topic, typ, data)
	if err == nil {
		err = pub.Publish(ctx, evt)
	}
	if err != nil && logger != nil {
		logger.Error("publishing event "+typ+" on "+topic, err)
	}
}

// Topic builds a realtime topic name from its kind and id.
func Topic(kind, id string) string {
	return kind + ":" + id
}
