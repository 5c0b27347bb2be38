// Package mqtt publishes alert and transport events to an MQTT broker
// so external integrations (dashboards, home automation) can react to
// vehicle conditions without polling the API.
package mqtt

import (
	"context"
	"encoding/json"
	"sync"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"

	"github.com/HerbHall/revsense/internal/alert"
	"github.com/HerbHall/revsense/internal/event"
	"github.com/HerbHall/revsense/internal/session"
	"github.com/HerbHall/revsense/pkg/telemetry"
)

// Notifier bridges the event bus to an MQTT broker. With no broker URL
// configured it runs in no-op mode and drops events.
type Notifier struct {
	logger *zap.Logger
	cfg    Config
	bus    *event.Bus

	mu     sync.RWMutex
	client pahomqtt.Client
	unsubs []func()
}

// New creates an MQTT notifier wired to the given event bus.
func New(cfg Config, bus *event.Bus, logger *zap.Logger) *Notifier {
	if cfg.ClientID == "" {
		cfg.ClientID = DefaultConfig().ClientID
	}
	if cfg.TopicPrefix == "" {
		cfg.TopicPrefix = DefaultConfig().TopicPrefix
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultConfig().Timeout
	}
	return &Notifier{logger: logger, cfg: cfg, bus: bus}
}

// Start connects to the broker and subscribes to the bus. Connection
// failures are not fatal; the paho client reconnects in the background.
func (n *Notifier) Start(_ context.Context) error {
	if n.cfg.BrokerURL == "" {
		n.logger.Info("mqtt notifier started (no-op: no broker configured)")
		return nil
	}

	opts := pahomqtt.NewClientOptions().
		AddBroker(n.cfg.BrokerURL).
		SetClientID(n.cfg.ClientID).
		SetAutoReconnect(true).
		SetConnectTimeout(n.cfg.Timeout)

	if n.cfg.Username != "" {
		opts.SetUsername(n.cfg.Username)
		opts.SetPassword(n.cfg.Password) //nolint:gosec // G101: config field
	}

	client := pahomqtt.NewClient(opts)
	token := client.Connect()

	switch {
	case !token.WaitTimeout(n.cfg.Timeout):
		n.logger.Warn("mqtt connection timed out; will reconnect in background")
	case token.Error() != nil:
		n.logger.Warn("mqtt connection failed; will reconnect in background",
			zap.Error(token.Error()),
		)
	default:
		n.logger.Info("mqtt connected to broker",
			zap.String("broker_url", n.cfg.BrokerURL),
		)
	}

	n.mu.Lock()
	n.client = client
	n.unsubs = []func(){
		n.bus.Subscribe(alert.TopicAlertTriggered, n.publishEvent),
		n.bus.Subscribe(alert.TopicAlertsCleared, n.publishEvent),
		n.bus.Subscribe(session.TopicTransportStatus, n.publishEvent),
	}
	n.mu.Unlock()
	return nil
}

// Stop unsubscribes from the bus and disconnects from the broker.
func (n *Notifier) Stop(_ context.Context) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, unsub := range n.unsubs {
		unsub()
	}
	n.unsubs = nil
	if n.client != nil && n.client.IsConnected() {
		n.client.Disconnect(250)
		n.logger.Info("mqtt disconnected")
	}
	return nil
}

// topicFor maps an event bus topic to an MQTT topic path. Triggered
// alerts fan out per sensor so subscribers can filter narrowly.
func (n *Notifier) topicFor(e event.Event) string {
	switch e.Topic {
	case alert.TopicAlertTriggered:
		if a := extractAlert(e.Payload); a != nil {
			return n.cfg.TopicPrefix + "/alert/" + a.SensorID
		}
		return n.cfg.TopicPrefix + "/alert"
	case alert.TopicAlertsCleared:
		return n.cfg.TopicPrefix + "/alert/cleared"
	case session.TopicTransportStatus:
		return n.cfg.TopicPrefix + "/transport/status"
	default:
		return n.cfg.TopicPrefix + "/unknown"
	}
}

func (n *Notifier) publishEvent(_ context.Context, e event.Event) {
	n.mu.RLock()
	defer n.mu.RUnlock()

	if n.client == nil || !n.client.IsConnected() {
		return
	}

	payload, err := json.Marshal(e.Payload)
	if err != nil {
		n.logger.Warn("failed to marshal MQTT payload",
			zap.String("topic", e.Topic),
			zap.Error(err),
		)
		return
	}

	mqttTopic := n.topicFor(e)
	token := n.client.Publish(mqttTopic, n.cfg.QoS, n.cfg.Retain, payload)
	if !token.WaitTimeout(n.cfg.Timeout) {
		n.logger.Warn("mqtt publish timed out",
			zap.String("mqtt_topic", mqttTopic),
		)
		return
	}
	if token.Error() != nil {
		n.logger.Warn("mqtt publish failed",
			zap.String("mqtt_topic", mqttTopic),
			zap.Error(token.Error()),
		)
		return
	}

	n.logger.Debug("mqtt event published",
		zap.String("mqtt_topic", mqttTopic),
		zap.String("event_topic", e.Topic),
	)
}

// extractAlert pulls a telemetry.Alert out of an event payload,
// tolerating both direct values and serialized forms.
func extractAlert(payload interface{}) *telemetry.Alert {
	switch v := payload.(type) {
	case *telemetry.Alert:
		return v
	case telemetry.Alert:
		return &v
	default:
		data, err := json.Marshal(payload)
		if err != nil {
			return nil
		}
		var a telemetry.Alert
		if err := json.Unmarshal(data, &a); err != nil {
			return nil
		}
		if a.ID == "" {
			return nil
		}
		return &a
	}
}
