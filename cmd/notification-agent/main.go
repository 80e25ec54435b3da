package main

import (
	"context"
	"errors"
	"time"

	"github.com/ylwdream/panko/internal/broker"
	"github.com/ylwdream/panko/internal/config"
	"github.com/ylwdream/panko/internal/dispatch"
	"github.com/ylwdream/panko/internal/processing"
	"github.com/ylwdream/panko/internal/runtime"
)

func main() {
	logger := config.GetLogger()

	cfg, err := config.LoadAgentConfig(logger)
	if err != nil {
		logger.Fatalf("[boot] invalid configuration: %v", err)
	}
	logger.Printf("[boot] notification-agent configs loaded:%s", cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	runtime.SetupGracefulShutdown(cancel, logger)

	if err := broker.EnsureTopics(ctx, &cfg.Kafka, logger); err != nil {
		logger.Fatalf("[boot] kafka ensure topics error: %v", err)
	}

	producer := broker.NewKafkaProducer(&cfg.Kafka)
	defer producer.Close()

	processor := processing.NewProcessor(dispatch.Default(), producer, logger)

	switch cfg.Ingress {
	case config.IngressMQTT:
		client := broker.BuildMQTTClient(cfg, logger, processor.Process)
		broker.ConnectWithBackoff(ctx, logger, client, 2*time.Second, 30*time.Second)
		<-ctx.Done()
	default:
		consumer, err := broker.NewAMQPConsumer(cfg, logger)
		if err != nil {
			logger.Fatalf("[boot] amqp error: %v", err)
		}
		defer consumer.Close()
		if err := consumer.Consume(ctx, processor.Process); err != nil && !errors.Is(err, context.Canceled) {
			logger.Fatalf("[amqp] consume stopped: %v", err)
		}
	}

	logger.Println("notification-agent stopped")
}
