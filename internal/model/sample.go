package model

import "time"

type SampleType string

const (
	SampleTypeGauge      SampleType = "gauge"
	SampleTypeDelta      SampleType = "delta"
	SampleTypeCumulative SampleType = "cumulative"
)

// Sample is one normalized metering measurement derived from a notification,
// ready for the downstream aggregation/storage loaders. It holds no
// resources and is never mutated after construction.
type Sample struct {
	Name   string     `json:"name"`
	Type   SampleType `json:"type"`
	Unit   string     `json:"unit"`
	Volume float64    `json:"volume"`

	// UserID is nil for events emitted before a user is known
	// (scheduler events).
	UserID     *string `json:"userId"`
	ProjectID  string  `json:"projectId"`
	ResourceID string  `json:"resourceId"`

	// Provenance, taken from the originating notification.
	MessageID   string     `json:"messageId"`
	EventType   string     `json:"eventType"`
	PublisherID string     `json:"publisherId"`
	Timestamp   *time.Time `json:"timestamp"`

	ResourceMetadata map[string]any `json:"resourceMetadata,omitempty"`
}

// SampleFromNotification assembles a sample, copying provenance (message id,
// event type, publisher, timestamp) from msg and carrying the payload as
// resource metadata. By the time a converter calls this, user metadata in the
// payload has already been folded under the reserved prefix.
func SampleFromNotification(name string, t SampleType, unit string, volume float64,
	userID *string, projectID, resourceID string, msg *Notification) Sample {
	return Sample{
		Name:             name,
		Type:             t,
		Unit:             unit,
		Volume:           volume,
		UserID:           userID,
		ProjectID:        projectID,
		ResourceID:       resourceID,
		MessageID:        msg.MessageID,
		EventType:        msg.EventType,
		PublisherID:      msg.PublisherID,
		Timestamp:        msg.Timestamp,
		ResourceMetadata: msg.Payload,
	}
}
