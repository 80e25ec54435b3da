// Package meter converts compute lifecycle notifications into metering
// samples. Each converter variant is a stateless policy value: it declares
// the event-type patterns it handles, how to locate the instance properties
// inside the payload, and how to derive its samples. The shared Process
// pipeline folds user metadata into the instance properties before any
// derivation runs.
//
// The package does no I/O and no logging; conversion failures surface as
// errors to the caller, which owns the drop/halt policy.
package meter

import (
	"encoding/json"
	"strconv"

	"github.com/ylwdream/panko/internal/model"
)

// MissingFieldError reports a required key that is absent from (or unusable
// in) a notification payload.
type MissingFieldError struct {
	Field string
}

func (e *MissingFieldError) Error() string { return "missing field: " + e.Field }

// DeriveFunc produces the samples of one converter variant. props is the
// instance-properties mapping after metadata sanitization; for most variants
// it aliases msg.Payload.
type DeriveFunc func(msg *model.Notification, props map[string]any) ([]model.Sample, error)

// Converter maps one class of notification to zero or more samples. A
// converter keeps no per-message state and is safe for concurrent reuse.
type Converter struct {
	// Name identifies the variant in logs and DLQ stages.
	Name string

	// EventTypes are the glob patterns the dispatcher matches against a
	// notification's event_type. Matching happens in the dispatch package,
	// never here.
	EventTypes []string

	// Properties locates the instance-properties mapping. Nil means the
	// payload itself.
	Properties func(msg *model.Notification) (map[string]any, error)

	Derive DeriveFunc
}

// InstanceProperties returns the sub-mapping of the payload that describes
// the resource.
func (c *Converter) InstanceProperties(msg *model.Notification) (map[string]any, error) {
	if c.Properties != nil {
		return c.Properties(msg)
	}
	if msg.Payload == nil {
		return nil, &MissingFieldError{Field: "payload"}
	}
	return msg.Payload, nil
}

// Process is the shared conversion pipeline: locate the instance properties,
// remove a mapping-valued "metadata" key and re-merge its entries under the
// reserved prefix, then hand over to the variant's derivation. The metadata
// fold is idempotent: once the key is gone, a second pass over the same
// properties changes nothing.
func (c *Converter) Process(msg *model.Notification) ([]model.Sample, error) {
	props, err := c.InstanceProperties(msg)
	if err != nil {
		return nil, err
	}
	if metadata, ok := props["metadata"].(map[string]any); ok {
		delete(props, "metadata")
		AddReservedMetadata(metadata, props)
	}
	return c.Derive(msg, props)
}

func stringField(m map[string]any, key string) (string, error) {
	v, ok := m[key]
	if !ok || v == nil {
		return "", &MissingFieldError{Field: key}
	}
	if s, ok := v.(string); ok {
		return s, nil
	}
	return "", &MissingFieldError{Field: key}
}

// numberField accepts the numeric shapes a decoded payload can carry:
// float64 straight from encoding/json, json.Number when a decoder uses it,
// and integer types from hand-built payloads in tests.
func numberField(m map[string]any, key string) (float64, error) {
	v, ok := m[key]
	if !ok || v == nil {
		return 0, &MissingFieldError{Field: key}
	}
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case json.Number:
		if f, err := n.Float64(); err == nil {
			return f, nil
		}
	case string:
		if f, err := strconv.ParseFloat(n, 64); err == nil {
			return f, nil
		}
	}
	return 0, &MissingFieldError{Field: key}
}

func mapField(m map[string]any, key string) (map[string]any, error) {
	v, ok := m[key].(map[string]any)
	if !ok {
		return nil, &MissingFieldError{Field: key}
	}
	return v, nil
}
