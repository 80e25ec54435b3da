// Package broker holds the transport edges of the pipeline: notification
// ingress (AMQP, MQTT) and sample egress (Kafka).
package broker

import (
	"context"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/ylwdream/panko/internal/config"
)

// KafkaProducer wraps the samples writer and its dead-letter counterpart.
type KafkaProducer struct {
	samples *kafka.Writer
	dlq     *kafka.Writer
}

func NewKafkaProducer(cfg *config.KafkaConfig) *KafkaProducer {
	balancer := &kafka.Hash{}

	samples := &kafka.Writer{
		Addr:     kafka.TCP(cfg.Brokers...),
		Topic:    cfg.SamplesTopic,
		Balancer: balancer,

		BatchSize:    cfg.BatchSize,
		BatchBytes:   cfg.BatchBytes,
		BatchTimeout: time.Duration(cfg.BatchTimeoutMs) * time.Millisecond,

		RequiredAcks: parseAcks(cfg.RequiredAcks),
		MaxAttempts:  cfg.MaxAttempts,
		Async:        true,
		Compression:  parseCompression(cfg.Compression),
	}

	dlq := &kafka.Writer{
		Addr:     kafka.TCP(cfg.Brokers...),
		Topic:    cfg.DLQTopic,
		Balancer: balancer,

		BatchSize:    200,
		BatchBytes:   512 << 10,
		BatchTimeout: 10 * time.Millisecond,

		RequiredAcks: kafka.RequireOne,
		Async:        true,
		Compression:  parseCompression(cfg.Compression),
	}

	return &KafkaProducer{samples: samples, dlq: dlq}
}

func (p *KafkaProducer) Close() {
	_ = p.samples.Close()
	_ = p.dlq.Close()
}

func (p *KafkaProducer) Send(ctx context.Context, key, value []byte, headers ...kafka.Header) error {
	return p.samples.WriteMessages(ctx, kafka.Message{
		Key:     key,
		Value:   value,
		Headers: headers,
	})
}

func (p *KafkaProducer) SendDLQ(ctx context.Context, key, value []byte, headers ...kafka.Header) error {
	return p.dlq.WriteMessages(ctx, kafka.Message{
		Key:     key,
		Value:   value,
		Headers: headers,
	})
}

func parseCompression(s string) kafka.Compression {
	switch strings.ToLower(s) {
	case "", "none", "no", "off", "0":
		return kafka.Compression(0)
	case "gzip":
		return kafka.Gzip
	case "lz4":
		return kafka.Lz4
	case "zstd":
		return kafka.Zstd
	default:
		return kafka.Snappy
	}
}

func parseAcks(s string) kafka.RequiredAcks {
	switch strings.ToLower(s) {
	case "none":
		return kafka.RequireNone
	case "all":
		return kafka.RequireAll
	default:
		return kafka.RequireOne
	}
}
