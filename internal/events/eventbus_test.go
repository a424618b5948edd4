package events

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestSubscriberReceivesEventsInOrder(t *testing.T) {
	b := New(16)
	defer b.Shutdown()

	var mu sync.Mutex
	var got []Type
	done := make(chan struct{})

	b.Subscribe(func(evt Event) {
		mu.Lock()
		got = append(got, evt.Type)
		if len(got) == 4 { // 2 published events, each followed by state_changed
			close(done)
		}
		mu.Unlock()
	})

	b.Publish(Event{Type: TypeModeChanged})
	b.Publish(Event{Type: TypeCueChanged})

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for events")
	}

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, got, 4)
	assert.Equal(t, []Type{TypeModeChanged, TypeStateChanged, TypeCueChanged, TypeStateChanged}, got)
}

func TestStateChangedCarriesOriginalEvent(t *testing.T) {
	b := New(16)
	defer b.Shutdown()

	meta := make(chan Event, 1)
	b.Subscribe(func(evt Event) {
		if evt.Type == TypeStateChanged {
			meta <- evt
		}
	})

	b.Publish(Event{Type: TypeVolumeChanged, Data: map[string]any{"volume": 0.5}})

	select {
	case evt := <-meta:
		assert.Equal(t, TypeVolumeChanged, evt.Data["original_event"])
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for state_changed")
	}
}

func TestHandlerPanicDoesNotStopOtherSubscribers(t *testing.T) {
	b := New(16)
	defer b.Shutdown()

	b.Subscribe(func(Event) { panic("boom") })

	received := make(chan struct{}, 1)
	b.Subscribe(func(evt Event) {
		if evt.Type == TypePlaybackStarted {
			received <- struct{}{}
		}
	})

	b.Publish(Event{Type: TypePlaybackStarted})

	select {
	case <-received:
	case <-time.After(time.Second):
		t.Fatal("second subscriber never received its event")
	}
	// The panicking handler receives both playback_started and its
	// state_changed meta event, so it panics twice.
	assert.Eventually(t, func() bool { return b.Stats().HandlerPanics == 2 }, time.Second, 5*time.Millisecond)
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	b := New(16)
	defer b.Shutdown()

	count := 0
	var mu sync.Mutex
	id := b.Subscribe(func(Event) {
		mu.Lock()
		count++
		mu.Unlock()
	})

	b.Publish(Event{Type: TypeCueChanged})
	time.Sleep(20 * time.Millisecond)
	b.Unsubscribe(id)
	b.Publish(Event{Type: TypeCueChanged})
	time.Sleep(20 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 2, count) // one cue_changed + its state_changed, from before unsubscribe
}
