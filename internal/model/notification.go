package model

import (
	"encoding/json"
	"time"
)

// Notification is the lifecycle event envelope the compute control plane
// (scheduler, compute host agents) publishes on the message bus. The payload
// is loosely structured: its shape depends on the event type and is only
// checked by the converter that consumes it.
type Notification struct {
	MessageID   string         `json:"message_id"`
	PublisherID string         `json:"publisher_id"`
	EventType   string         `json:"event_type"`
	Priority    string         `json:"priority"`
	Timestamp   *time.Time     `json:"timestamp"`
	Payload     map[string]any `json:"payload"`
}

// DLQEvent wraps a notification that could not be converted, together with
// the stage that rejected it, for the dead-letter topic.
type DLQEvent struct {
	EventID    string          `json:"eventId"`
	Error      string          `json:"error"`
	Stage      string          `json:"stage"`
	Original   json.RawMessage `json:"original"`
	ReceivedAt time.Time       `json:"receivedAt"`
}
