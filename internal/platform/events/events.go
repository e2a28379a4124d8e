// Package events carries domain notifications from services to live
// subscribers. Delivery is best effort: a failed publish never fails the
// operation that produced the event.
package events

import (
	"context"
	"encoding/json"
	"time"
)

const (
	TopicEmergency = "emergency"

	TypeCallCreated  = "emergency.call.created"
	TypeCallAssigned = "emergency.call.assigned"
)

// Event is a notification about a domain resource.
type Event struct {
	Type       string          `json:"type"`
	Topic      string          `json:"topic"`
	ResourceID string          `json:"resourceId,omitempty"`
	Timestamp  time.Time       `json:"timestamp"`
	Data       json.RawMessage `json:"data,omitempty"`
}

// Publisher delivers events to subscribers.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// New builds an event with a JSON payload. A payload that cannot be
// marshalled is dropped and the event is sent without data.
func New(eventType, topic, resourceID string, payload interface{}) Event {
	e := Event{
		Type:       eventType,
		Topic:      topic,
		ResourceID: resourceID,
		Timestamp:  time.Now().UTC(),
	}
	if payload != nil {
		if data, err := json.Marshal(payload); err == nil {
			e.Data = data
		}
	}
	return e
}

// Nop discards every event.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }
