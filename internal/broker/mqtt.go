package broker

import (
	"context"
	"log"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/ylwdream/panko/internal/config"
)

// BuildMQTTClient wires the alternative MQTT ingress: every message on the
// notification topic is handed to the same handler the AMQP path uses.
func BuildMQTTClient(cfg *config.AgentConfig, logger *log.Logger, handle NotificationHandler) mqtt.Client {
	h := func(_ mqtt.Client, msg mqtt.Message) {
		if err := handle(context.Background(), msg.Payload(), time.Now().UTC()); err != nil {
			logger.Printf("[mqtt] handler error: %v", err)
		}
	}

	opts := mqtt.NewClientOptions().
		AddBroker(cfg.MQTTBrokerURL).
		SetClientID(cfg.MQTTClientID).
		SetOrderMatters(false).
		SetCleanSession(false).
		SetKeepAlive(30 * time.Second).
		SetPingTimeout(10 * time.Second).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second)

	if cfg.MQTTUsername != "" {
		opts.SetUsername(cfg.MQTTUsername)
	}
	if cfg.MQTTPassword != "" {
		opts.SetPassword(cfg.MQTTPassword)
	}

	opts.OnConnect = func(c mqtt.Client) {
		logger.Printf("[mqtt] connected to broker: %s", cfg.MQTTBrokerURL)
		if token := c.Subscribe(cfg.MQTTTopic, cfg.MQTTQoS, h); token.Wait() && token.Error() != nil {
			logger.Printf("[mqtt] subscribe error: %v", token.Error())
		} else {
			logger.Printf("[mqtt] subscribed to topic: %s (QoS %d)", cfg.MQTTTopic, cfg.MQTTQoS)
		}
	}
	opts.OnConnectionLost = func(c mqtt.Client, err error) {
		logger.Printf("[mqtt] connection lost: %v", err)
	}

	return mqtt.NewClient(opts)
}

func ConnectWithBackoff(ctx context.Context, logger *log.Logger, client mqtt.Client, start, max time.Duration) {
	backoff := start
	for {
		if token := client.Connect(); token.Wait() && token.Error() != nil {
			logger.Printf("[mqtt] connect error: %v; retrying in %s", token.Error(), backoff)
			select {
			case <-time.After(backoff):
				if backoff < max {
					backoff *= 2
				}
			case <-ctx.Done():
				logger.Println("[mqtt] context cancelled before connect")
				return
			}
			continue
		}
		break
	}
}
