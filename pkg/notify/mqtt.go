package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/marmos91/kidwatch/internal/logger"
	"github.com/marmos91/kidwatch/internal/telemetry"
)

const (
	mqttConnectTimeout = 5 * time.Second
	mqttPublishTimeout = 2 * time.Second
)

// MQTTConfig configures an MQTT notifier.
type MQTTConfig struct {
	// Broker is a URL such as tcp://localhost:1883. A bare host:port gets tcp://.
	Broker   string
	ClientID string
	Topic    string
	QoS      byte
}

// MQTT publishes alerts as JSON to one topic. Alerts are not retained.
type MQTT struct {
	cfg    MQTTConfig
	client mqtt.Client
}

// DialMQTT connects to the broker.
func DialMQTT(cfg MQTTConfig) (*MQTT, error) {
	broker := cfg.Broker
	if !strings.Contains(broker, "://") {
		broker = "tcp://" + broker
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(broker)
	opts.SetClientID(cfg.ClientID)
	opts.SetAutoReconnect(true)
	opts.SetConnectTimeout(mqttConnectTimeout)
	opts.OnConnectionLost = func(_ mqtt.Client, err error) {
		logger.Warn("MQTT connection lost", "broker", broker, logger.Err(err))
	}

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(mqttConnectTimeout) {
		return nil, fmt.Errorf("mqtt connect to %s: timeout", broker)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("mqtt connect to %s: %w", broker, err)
	}

	return NewMQTT(client, cfg), nil
}

// NewMQTT wraps an already connected client.
func NewMQTT(client mqtt.Client, cfg MQTTConfig) *MQTT {
	return &MQTT{cfg: cfg, client: client}
}

// Notify implements Notifier.
func (m *MQTT) Notify(ctx context.Context, alert Alert) error {
	ctx, span := telemetry.StartInternalSpan(ctx, telemetry.SpanNotify, telemetry.Camera(alert.Camera))
	defer span.End()

	payload, err := json.Marshal(struct {
		Alert
		Summary string `json:"summary"`
		Content string `json:"content"`
	}{alert, Summary, alert.Content()})
	if err != nil {
		return err
	}

	token := m.client.Publish(m.cfg.Topic, m.cfg.QoS, false, payload)
	if !token.WaitTimeout(mqttPublishTimeout) {
		return fmt.Errorf("mqtt publish to %s: timeout", m.cfg.Topic)
	}
	if err := token.Error(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("mqtt publish to %s: %w", m.cfg.Topic, err)
	}

	logger.InfoCtx(ctx, "Alert sent", logger.Camera(alert.Camera), "channel", "mqtt", "topic", m.cfg.Topic)
	return nil
}

// Close disconnects from the broker.
func (m *MQTT) Close() {
	m.client.Disconnect(250)
}
