package broker

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/streadway/amqp"

	"github.com/ylwdream/panko/internal/config"
)

// NotificationHandler processes one raw notification body. A nil return acks
// the delivery; an error requeues it.
type NotificationHandler func(ctx context.Context, body []byte, receivedAt time.Time) error

// AMQPConsumer subscribes to the compute notification exchange the way the
// control plane publishes it: topic exchange, durable queue, one unacked
// message at a time.
type AMQPConsumer struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	queue   string
	logger  *log.Logger
}

func NewAMQPConsumer(cfg *config.AgentConfig, logger *log.Logger) (*AMQPConsumer, error) {
	conn, err := amqp.Dial(cfg.AMQPURL)
	if err != nil {
		return nil, fmt.Errorf("amqp dial: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("amqp channel: %w", err)
	}

	if err := channel.ExchangeDeclare(
		cfg.AMQPExchange,
		"topic",
		true,  // durable
		false, // auto-delete
		false,
		false,
		nil,
	); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("amqp exchange declare: %w", err)
	}

	queue, err := channel.QueueDeclare(cfg.AMQPQueue, true, false, false, false, nil)
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("amqp queue declare: %w", err)
	}

	if err := channel.QueueBind(queue.Name, cfg.AMQPBindingKey, cfg.AMQPExchange, false, nil); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("amqp queue bind: %w", err)
	}

	if err := channel.Qos(1, 0, false); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("amqp qos: %w", err)
	}

	logger.Printf("[amqp] bound queue %s to exchange %s (key %s)", queue.Name, cfg.AMQPExchange, cfg.AMQPBindingKey)

	return &AMQPConsumer{conn: conn, channel: channel, queue: queue.Name, logger: logger}, nil
}

// Consume delivers notifications to handle until ctx is cancelled or the
// channel dies. Handler errors requeue the delivery; reconnecting after a
// dead channel is left to the process supervisor.
func (c *AMQPConsumer) Consume(ctx context.Context, handle NotificationHandler) error {
	deliveries, err := c.channel.Consume(c.queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("amqp consume: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-deliveries:
			if !ok {
				return errors.New("amqp delivery channel closed")
			}
			if err := handle(ctx, d.Body, time.Now().UTC()); err != nil {
				c.logger.Printf("[amqp] handler error: %v — requeueing", err)
				_ = d.Nack(false, true)
				continue
			}
			_ = d.Ack(false)
		}
	}
}

func (c *AMQPConsumer) Close() error {
	c.logger.Println("[amqp] closing connection")
	return c.conn.Close()
}
