// Package showcontrol is the show-control kernel: it coordinates the
// cue catalog, the breakpoint store, and the audio mixer behind a
// single playback state machine, arbitrates between local and remote
// commands, and broadcasts every state change over the event bus.
package showcontrol

import (
	"context"
	"sync"
	"time"

	"showconsole/internal/audiomixer"
	"showconsole/internal/breakpoint"
	"showconsole/internal/catalog"
	"showconsole/internal/events"
	"showconsole/internal/logging"
	"showconsole/internal/metrics"
	"showconsole/internal/model"
)

var log = logging.ForService("showcontrol")

const (
	autoSavePauseLabel  = "paused (auto)"
	autoSaveSwitchLabel = "switched audio (auto)"
	autoSaveBGMLabel    = "bgm change (auto)"
)

// commandSource distinguishes an operator's own console from a command
// arriving over the remote control port, for priority arbitration.
type commandSource string

const (
	SourceLocal  commandSource = "local"
	SourceRemote commandSource = "remote"
)

type pendingOp struct {
	kind     string
	position float64
	queuedAt time.Time
}

// Kernel is the single playback-state owner. The zero value is not
// usable; construct with New.
type Kernel struct {
	mixer   *audiomixer.Mixer
	catalog *catalog.Catalog
	bps     *breakpoint.Store
	bus     *events.Bus

	silenceTick time.Duration

	mu sync.Mutex

	mode      model.Mode
	isPlaying bool
	isPaused  bool

	currentAudioID string

	bgmVolume float64
	sfxVolume float64

	inSilence        bool
	silenceDuration  float64
	silenceRemaining float64
	silenceStart     time.Time
	silenceCancel    context.CancelFunc

	manualAudio         *model.AudioTrack
	manualStartPos      float64
	manualSilenceBefore float64

	pausedAudioID  string
	pausedPosition float64

	opsMu         sync.Mutex
	localPriority bool
	pendingOps    []pendingOp

	metrics metrics.Recorder

	wg sync.WaitGroup
}

// New wires a Kernel around the given mixer, catalog, breakpoint store,
// and event bus. silenceTick controls how finely the silence scheduler
// polls elapsed time; 100ms matches an operator-perceptible refresh
// without busy-waiting.
func New(mixer *audiomixer.Mixer, cat *catalog.Catalog, bps *breakpoint.Store, bus *events.Bus, silenceTick time.Duration) *Kernel {
	if silenceTick <= 0 {
		silenceTick = 100 * time.Millisecond
	}
	k := &Kernel{
		mixer:         mixer,
		catalog:       cat,
		bps:           bps,
		bus:           bus,
		silenceTick:   silenceTick,
		mode:          model.ModeAuto,
		bgmVolume:     1.0,
		sfxVolume:     1.0,
		localPriority: true,
		metrics:       metrics.NoOpRecorder{},
	}
	mixer.OnBGMEnd(k.handleBGMEnd)
	return k
}

// SetMetrics installs recorder for operation/error instrumentation.
// Optional — a Kernel built by New discards metrics until this is
// called.
func (k *Kernel) SetMetrics(recorder metrics.Recorder) {
	if recorder == nil {
		recorder = metrics.NoOpRecorder{}
	}
	k.metrics = recorder
}

// ==================== read accessors ====================

func (k *Kernel) Mode() model.Mode {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.mode
}

func (k *Kernel) IsPlaying() bool {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.isPlaying
}

func (k *Kernel) IsPaused() bool {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.isPaused
}

func (k *Kernel) InSilence() bool {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.inSilence
}

// CurrentPosition returns the playhead position: 0 during a silence
// interval, frozen during an explicit pause, wall-clock-elapsed otherwise.
func (k *Kernel) CurrentPosition() float64 {
	k.mu.Lock()
	paused := k.isPaused
	pausedPos := k.pausedPosition
	inSilence := k.inSilence
	k.mu.Unlock()
	if inSilence {
		return 0
	}
	if paused {
		return pausedPos
	}
	return k.mixer.Position()
}

// GetState returns a read-consistent snapshot of the kernel's full
// playback state, the same shape broadcast on every event.
func (k *Kernel) GetState() model.PlaybackState {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.snapshotLocked()
}

func (k *Kernel) snapshotLocked() model.PlaybackState {
	var audioID *string
	if k.currentAudioID != "" {
		id := k.currentAudioID
		audioID = &id
	}
	duration := 0.0
	if audio := k.currentAudioLocked(); audio != nil {
		duration = audio.Duration
	}
	position := 0.0
	switch {
	case k.inSilence:
		position = 0
	case k.isPaused:
		position = k.pausedPosition
	default:
		position = k.mixer.Position()
	}
	return model.PlaybackState{
		Mode:             k.mode,
		IsPlaying:        k.isPlaying,
		IsPaused:         k.isPaused,
		CurrentAudioID:   audioID,
		CurrentPosition:  position,
		CurrentCueIndex:  k.catalog.CurrentIndex(),
		BGMVolume:        k.bgmVolume,
		SFXVolume:        k.sfxVolume,
		InSilence:        k.inSilence,
		SilenceRemaining: k.silenceRemaining,
		Duration:         duration,
	}
}

// currentAudioLocked returns the audio track currently in scope for the
// active mode; callers must hold k.mu.
func (k *Kernel) currentAudioLocked() *model.AudioTrack {
	if k.mode == model.ModeManual {
		return k.manualAudio
	}
	if cue := k.catalog.CurrentCue(); cue != nil {
		return k.catalog.AudioFile(cue.AudioID)
	}
	return nil
}

// CurrentAudio returns the audio track currently in scope for the
// active mode.
func (k *Kernel) CurrentAudio() *model.AudioTrack {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.currentAudioLocked()
}

// emitLocked publishes an event with a state snapshot taken under the
// caller's already-held k.mu. Every mutating operation below holds
// k.mu for its full duration, including its emitLocked call, so a
// subscriber never observes a state snapshot from between two
// notifications of the same logical transition.
func (k *Kernel) emitLocked(t events.Type, data map[string]any) {
	k.bus.Publish(events.Event{Type: t, Data: data, State: k.snapshotLocked()})
}
