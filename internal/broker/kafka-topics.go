package broker

import (
	"context"
	"fmt"
	"log"
	"net"
	"strconv"

	"github.com/segmentio/kafka-go"

	"github.com/ylwdream/panko/internal/config"
)

// EnsureTopics creates the samples and DLQ topics if the cluster does not
// have them yet.
func EnsureTopics(ctx context.Context, cfg *config.KafkaConfig, logger *log.Logger) error {
	bootstrap := cfg.Brokers[0]

	logger.Printf("[info] kafka ensuring topics on bootstrap %s", bootstrap)

	conn, err := kafka.DialContext(ctx, "tcp", bootstrap)
	if err != nil {
		return err
	}
	defer conn.Close()

	exists := func(topic string) bool {
		parts, err := conn.ReadPartitions(topic)
		return err == nil && len(parts) > 0
	}

	controller, err := conn.Controller()
	if err != nil {
		return err
	}
	ctrlAddr := net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port))
	ctrlConn, err := kafka.DialContext(ctx, "tcp", ctrlAddr)
	if err != nil {
		return err
	}
	defer ctrlConn.Close()

	create := func(topic string, partitions int) error {
		if exists(topic) {
			logger.Printf("[info] kafka topic %s already exists — skipping", topic)
			return nil
		}
		logger.Printf("[info] kafka creating topic %s (partitions=%d rf=%d)", topic, partitions, cfg.ReplicationFactor)
		return ctrlConn.CreateTopics(kafka.TopicConfig{
			Topic:             topic,
			NumPartitions:     partitions,
			ReplicationFactor: cfg.ReplicationFactor,
			ConfigEntries: []kafka.ConfigEntry{
				{ConfigName: "compression.type", ConfigValue: cfg.Compression},
				{ConfigName: "retention.ms", ConfigValue: fmt.Sprintf("%d", cfg.RetentionMs)},
			},
		})
	}

	if err := create(cfg.SamplesTopic, cfg.TopicPartitions); err != nil {
		return err
	}
	return create(cfg.DLQTopic, cfg.DLQPartitions)
}
