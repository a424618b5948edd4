package notify

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"showconsole/internal/conf"
	"showconsole/internal/events"
	"showconsole/internal/model"
)

func testSettings() *conf.Settings {
	settings := &conf.Settings{}
	settings.MQTT.Enabled = true
	settings.MQTT.Broker = "tcp://localhost:1883"
	settings.MQTT.Topic = "showconsole/state"
	settings.MQTT.ClientID = "showconsole-test"
	return settings
}

// mockClient is a fake Client for exercising Publisher without a real
// broker connection.
type mockClient struct {
	connected         bool
	publishedTopic    string
	publishedPayloads []string
	publishErr        error
}

var _ Client = (*mockClient)(nil)

func (m *mockClient) Connect(context.Context) error { m.connected = true; return nil }
func (m *mockClient) IsConnected() bool             { return m.connected }
func (m *mockClient) Disconnect()                   { m.connected = false }

func (m *mockClient) Publish(_ context.Context, topic, payload string) error {
	if m.publishErr != nil {
		return m.publishErr
	}
	m.publishedTopic = topic
	m.publishedPayloads = append(m.publishedPayloads, payload)
	return nil
}

func newTestPublisher(client Client) (*Publisher, *events.Bus) {
	bus := events.New(16)
	p := &Publisher{client: client, topic: "showconsole/state", bus: bus}
	p.subID = bus.Subscribe(p.onEvent)
	return p, bus
}

func TestPublisherForwardsStateOnEvent(t *testing.T) {
	client := &mockClient{connected: true}
	p, bus := newTestPublisher(client)
	defer p.Shutdown()

	bus.Publish(events.Event{
		Type:  events.TypePlaybackStarted,
		State: model.PlaybackState{Mode: model.ModeAuto, IsPlaying: true},
	})
	bus.Shutdown()

	require.NotEmpty(t, client.publishedPayloads)
	assert.Equal(t, "showconsole/state", client.publishedTopic)

	var got wireEvent
	require.NoError(t, json.Unmarshal([]byte(client.publishedPayloads[0]), &got))
	assert.Equal(t, events.TypePlaybackStarted, got.Type)
}

func TestPublisherSkipsWhenDisconnected(t *testing.T) {
	client := &mockClient{connected: false}
	p, bus := newTestPublisher(client)
	defer p.Shutdown()

	bus.Publish(events.Event{Type: events.TypePlaybackStarted, State: model.PlaybackState{}})
	bus.Shutdown()

	assert.Empty(t, client.publishedPayloads)
}

func TestNewPublisherDisabledReturnsNil(t *testing.T) {
	settings := testSettings()
	settings.MQTT.Enabled = false
	bus := events.New(4)
	defer bus.Shutdown()

	p := NewPublisher(settings, bus)
	assert.Nil(t, p)
	p.Shutdown() // must be safe on a nil Publisher
}
