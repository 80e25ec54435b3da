// Package dispatch routes notifications to converter variants by matching
// the event type against each variant's declared glob patterns.
package dispatch

import (
	"strings"

	"github.com/ylwdream/panko/internal/meter"
)

type Registry struct {
	converters []*meter.Converter
}

func NewRegistry(converters ...*meter.Converter) *Registry {
	return &Registry{converters: converters}
}

// Default returns a registry over the full compute converter table.
func Default() *Registry {
	return NewRegistry(meter.Converters...)
}

// Match returns every converter claiming the event type, in table order. One
// notification legitimately matches several variants: a single
// compute.instance.* event feeds the whole gauge family, and
// compute.instance.delete.samples additionally feeds the delete batch
// converter.
func (r *Registry) Match(eventType string) []*meter.Converter {
	var matched []*meter.Converter
	for _, c := range r.converters {
		for _, pattern := range c.EventTypes {
			if MatchPattern(pattern, eventType) {
				matched = append(matched, c)
				break
			}
		}
	}
	return matched
}

// MatchPattern implements the minimal glob dialect event-type declarations
// use: '*' matches any run of characters, everything else is literal.
func MatchPattern(pattern, eventType string) bool {
	parts := strings.Split(pattern, "*")
	if len(parts) == 1 {
		return pattern == eventType
	}
	if !strings.HasPrefix(eventType, parts[0]) {
		return false
	}
	rest := eventType[len(parts[0]):]
	last := len(parts) - 1
	for _, part := range parts[1:last] {
		idx := strings.Index(rest, part)
		if idx < 0 {
			return false
		}
		rest = rest[idx+len(part):]
	}
	return strings.HasSuffix(rest, parts[last])
}
