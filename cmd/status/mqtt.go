package status

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// MQTTConfig describes the broker and topic for snapshot publishing.
type MQTTConfig struct {
	Broker   string `mapstructure:"broker" yaml:"broker"`
	ClientID string `mapstructure:"client_id" yaml:"client_id"`
	Topic    string `mapstructure:"topic" yaml:"topic"`
	QoS      byte   `mapstructure:"qos" yaml:"qos"`
	Retain   bool   `mapstructure:"retain" yaml:"retain"`
}

// MQTTSink publishes each snapshot as a JSON payload.
type MQTTSink struct {
	client mqtt.Client
	topic  string
	qos    byte
	retain bool
}

// NewMQTTSink connects to the broker and waits for the connection.
func NewMQTTSink(cfg MQTTConfig) (*MQTTSink, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(cfg.ClientID).
		SetAutoReconnect(true).
		SetConnectTimeout(5 * time.Second)
	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("mqtt connect %s: %w", cfg.Broker, token.Error())
	}
	return newMQTTSink(client, cfg), nil
}

func newMQTTSink(client mqtt.Client, cfg MQTTConfig) *MQTTSink {
	topic := cfg.Topic
	if topic == "" {
		topic = "tidevalve/status"
	}
	return &MQTTSink{client: client, topic: topic, qos: cfg.QoS, retain: cfg.Retain}
}

func (m *MQTTSink) Show(ctx context.Context, s Snapshot) error {
	payload, err := json.Marshal(s)
	if err != nil {
		return err
	}
	token := m.client.Publish(m.topic, m.qos, m.retain, payload)
	select {
	case <-token.Done():
	case <-ctx.Done():
		return ctx.Err()
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("mqtt publish %s: %w", m.topic, err)
	}
	return nil
}

func (m *MQTTSink) Close() {
	m.client.Disconnect(250)
}
