// Package processing drives one notification through dispatch, conversion
// and sample publishing. Conversion policy lives here: bad input and failed
// conversions go to the DLQ, the message is acked either way; only publish
// failures on the samples topic propagate back to the transport.
package processing

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"github.com/ylwdream/panko/internal/config"
	"github.com/ylwdream/panko/internal/dispatch"
	"github.com/ylwdream/panko/internal/model"
)

// SamplePublisher is the slice of the kafka producer the processor needs.
type SamplePublisher interface {
	Send(ctx context.Context, key, value []byte, headers ...kafka.Header) error
	SendDLQ(ctx context.Context, key, value []byte, headers ...kafka.Header) error
}

type Processor struct {
	registry *dispatch.Registry
	producer SamplePublisher
	logger   *log.Logger
}

func NewProcessor(registry *dispatch.Registry, producer SamplePublisher, logger *log.Logger) *Processor {
	return &Processor{registry: registry, producer: producer, logger: logger}
}

// Process converts one raw notification and publishes every derived sample.
func (p *Processor) Process(ctx context.Context, body []byte, receivedAt time.Time) error {
	var msg model.Notification
	if err := json.Unmarshal(body, &msg); err != nil {
		p.emitDLQ(ctx, "decode_envelope", fmt.Sprintf("invalid notification json: %v", err),
			body, receivedAt, []byte("invalid"))
		return nil
	}
	if msg.EventType == "" {
		p.emitDLQ(ctx, "decode_envelope", "missing field: event_type",
			body, receivedAt, []byte("invalid"))
		return nil
	}

	converters := p.registry.Match(msg.EventType)
	if len(converters) == 0 {
		p.logger.Printf("[convert] no converter for event_type=%s — skipping", msg.EventType)
		return nil
	}

	published := 0
	for _, c := range converters {
		samples, err := c.Process(&msg)
		if err != nil {
			// A partial batch (per-entry isolation in the delete converter)
			// still publishes below; the error alone goes to the DLQ.
			p.emitDLQ(ctx, "convert:"+c.Name, err.Error(), body, receivedAt, []byte(msg.EventType))
		}
		for i := range samples {
			if err := p.publish(ctx, &samples[i], receivedAt); err != nil {
				return fmt.Errorf("publish sample %s: %w", samples[i].Name, err)
			}
			published++
		}
	}

	if published > 0 {
		p.logger.Printf("[convert] event_type=%s samples=%d", msg.EventType, published)
	}
	return nil
}

func (p *Processor) publish(ctx context.Context, s *model.Sample, receivedAt time.Time) error {
	buf, err := json.Marshal(s)
	if err != nil {
		return err
	}
	key := []byte(s.ResourceID)
	if len(key) == 0 {
		key = []byte("unknown-resource")
	}
	return p.producer.Send(ctx, key, buf, kafka.Header{
		Key:   "receivedAt",
		Value: []byte(receivedAt.Format(time.RFC3339Nano)),
	})
}

func (p *Processor) emitDLQ(ctx context.Context, stage, errMsg string, original []byte, receivedAt time.Time, key []byte) {
	evt := model.DLQEvent{
		EventID:    uuid.NewString(),
		Error:      errMsg,
		Stage:      stage,
		Original:   json.RawMessage(original),
		ReceivedAt: receivedAt,
	}
	buf, _ := json.Marshal(evt)
	if err := p.producer.SendDLQ(ctx, key, buf); err != nil {
		p.logger.Printf("[dlq] write error: %v", err)
		return
	}
	p.logger.Printf("[dlq] stage=%s: %s | message: %s", stage, errMsg, config.Truncate(original, 512))
}
