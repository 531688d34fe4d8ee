package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"obdmeter/internal/obd"
	"obdmeter/internal/transport"
	"obdmeter/pkg/log"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"
)

const (
	DefaultBroker   = "tcp://localhost:1883"
	DefaultClientID = "obdmeter"
	DefaultTopic    = "vehicle/obd"

	publishTimeout = 2 * time.Second
)

type Config struct {
	Broker   string
	ClientID string
	Topic    string
}

// StatusTopic is where connection status is published.
func (c Config) StatusTopic() string {
	return c.Topic + "/status"
}

// Client publishes snapshots and session status to a broker.
type Client struct {
	config Config
	client mqtt.Client
}

func NewClient(config Config) *Client {
	if config.Broker == "" {
		config.Broker = DefaultBroker
	}
	if config.ClientID == "" {
		config.ClientID = DefaultClientID
	}
	if config.Topic == "" {
		config.Topic = DefaultTopic
	}
	return &Client{config: config}
}

// Connect establishes the broker connection; paho reconnects on its own afterwards.
func (c *Client) Connect() error {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(c.config.Broker)
	opts.SetClientID(c.config.ClientID)
	opts.SetAutoReconnect(true)
	opts.SetOnConnectHandler(func(mqtt.Client) {
		log.Info("connected to MQTT broker", zap.String("broker", c.config.Broker))
	})
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		log.Warn("MQTT connection lost", zap.Error(err))
	})

	c.client = mqtt.NewClient(opts)
	if token := c.client.Connect(); token.Wait() && token.Error() != nil {
		return fmt.Errorf("connect %s: %w", c.config.Broker, token.Error())
	}
	return nil
}

func (c *Client) Disconnect() {
	if c.client != nil && c.client.IsConnected() {
		c.client.Disconnect(250)
	}
}

// Run publishes every value received until ctx is done or both channels close.
func (c *Client) Run(ctx context.Context, snapshots <-chan obd.Snapshot, statuses <-chan transport.Status) {
	for snapshots != nil || statuses != nil {
		select {
		case <-ctx.Done():
			return
		case s, ok := <-snapshots:
			if !ok {
				snapshots = nil
				continue
			}
			c.publish(c.config.Topic, 0, false, s)
		case st, ok := <-statuses:
			if !ok {
				statuses = nil
				continue
			}
			c.publish(c.config.StatusTopic(), 1, true, st)
		}
	}
}

func (c *Client) publish(topic string, qos byte, retained bool, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		log.Error("failed to encode MQTT payload", zap.Error(err))
		return
	}
	token := c.client.Publish(topic, qos, retained, data)
	if !token.WaitTimeout(publishTimeout) {
		log.Warn("MQTT publish timed out", zap.String("topic", topic))
		return
	}
	if err := token.Error(); err != nil {
		log.Warn("MQTT publish failed", zap.String("topic", topic), zap.Error(err))
		return
	}
	log.Debug("published", zap.String("topic", topic), zap.Int("bytes", len(data)))
}
