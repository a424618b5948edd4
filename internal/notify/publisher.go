package notify

import (
	"context"
	"encoding/json"
	"time"

	"showconsole/internal/conf"
	"showconsole/internal/events"
	"showconsole/internal/logging"
)

var log = logging.ForService("notify")

// wireEvent is the payload shape published to the state topic: the
// event type plus the read-consistent PlaybackState snapshot it
// carried, letting a subscriber treat every message as a complete
// state update rather than a diff to apply.
type wireEvent struct {
	Type  events.Type `json:"type"`
	State any         `json:"state"`
}

// Publisher forwards every bus event onto an MQTT topic. The zero value
// is not usable; construct with NewPublisher.
type Publisher struct {
	client Client
	topic  string
	bus    *events.Bus
	subID  int

	connectTimeout time.Duration
}

// NewPublisher connects client and subscribes it to bus, publishing
// every event to topic as JSON. Returns nil if settings.MQTT.Enabled
// is false, so callers can unconditionally defer Shutdown.
func NewPublisher(settings *conf.Settings, bus *events.Bus) *Publisher {
	if !settings.MQTT.Enabled {
		log.Debug("MQTT fan-out disabled")
		return nil
	}

	p := &Publisher{
		client:         NewClient(settings),
		topic:          settings.MQTT.Topic,
		bus:            bus,
		connectTimeout: 30 * time.Second,
	}

	ctx, cancel := context.WithTimeout(context.Background(), p.connectTimeout)
	defer cancel()
	if err := p.client.Connect(ctx); err != nil {
		log.Error("failed to connect to MQTT broker, fan-out disabled", "error", err)
		return nil
	}

	p.subID = bus.Subscribe(p.onEvent)
	log.Info("MQTT fan-out active", "topic", p.topic)
	return p
}

func (p *Publisher) onEvent(evt events.Event) {
	if !p.client.IsConnected() {
		return
	}

	payload, err := json.Marshal(wireEvent{Type: evt.Type, State: evt.State})
	if err != nil {
		log.Error("failed to marshal event for MQTT publish", "error", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := p.client.Publish(ctx, p.topic, string(payload)); err != nil {
		log.Warn("MQTT publish failed", "topic", p.topic, "error", err)
	}
}

// Shutdown unsubscribes from the bus and disconnects the MQTT client.
// Safe to call on a nil Publisher.
func (p *Publisher) Shutdown() {
	if p == nil {
		return
	}
	p.bus.Unsubscribe(p.subID)
	p.client.Disconnect()
}
