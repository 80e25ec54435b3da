package broker

import (
	"context"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"
)

// SampleReader consumes the samples topic on behalf of a loader, as part of
// a consumer group with explicit offset commits.
type SampleReader struct {
	Reader *kafka.Reader
}

func NewSampleReader(brokers, groupID, topic string) *SampleReader {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:         strings.Split(brokers, ","),
		GroupID:         groupID,
		Topic:           topic,
		StartOffset:     kafka.LastOffset,
		CommitInterval:  time.Second,
		MinBytes:        1,
		MaxBytes:        10e6,
		QueueCapacity:   2048,
		ReadLagInterval: -1,
	})
	return &SampleReader{Reader: r}
}

func (r *SampleReader) Fetch(ctx context.Context) (kafka.Message, error) {
	return r.Reader.FetchMessage(ctx)
}

func (r *SampleReader) Commit(ctx context.Context, msgs ...kafka.Message) error {
	return r.Reader.CommitMessages(ctx, msgs...)
}

func (r *SampleReader) Close() error {
	return r.Reader.Close()
}
