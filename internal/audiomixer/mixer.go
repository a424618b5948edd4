// Package audiomixer is the façade between the show kernel and the
// underlying audio hardware: play/pause/stop for a single background
// track, a small pool of overlapping sound effects, and volume control
// for both. Position tracking is wall-clock based rather than derived
// from the hardware's playback cursor — see Position.
package audiomixer

import (
	"fmt"
	"sync"
	"time"

	"showconsole/internal/logging"
	"showconsole/internal/model"
)

var log = logging.ForService("audiomixer")

// Backend is the concrete PCM decode/playback device the façade drives.
// backend.Player implements this; tests substitute a fake.
type Backend interface {
	LoadTrack(path string) (Buffer, error)
	PlayBGM(buf Buffer, startFrame int)
	PauseBGM()
	ResumeBGM()
	StopBGM() int
	IsBGMPlaying() bool
	IsBGMPaused() bool
	SetBGMVolume(float64)
	SetSFXVolume(float64)
	FreeSFXSlot() (int, bool)
	PlaySFX(slot int, buf Buffer) error
	StopSFX(slot int)
	StopAllSFX()
	IsSFXPlaying(slot int) bool
	CheckBGMJustEnded() bool
	Close() error
}

// Buffer is the decoded PCM payload a Backend plays. It mirrors
// backend.Buffer so this package doesn't need to import backend
// directly (callers wire a concrete Backend at construction time).
type Buffer interface {
	DurationSeconds() float64
}

// commandVolumeMax is the upper bound of the operator-facing volume
// range (0..3); the backend always receives a 0..1 gain.
const commandVolumeMax = 3.0

// Mixer is the audio façade. The zero value is not usable; construct
// with New.
type Mixer struct {
	backend Backend

	mu          sync.Mutex
	bgmTrackID  string
	bgmStartAt  time.Time
	bgmStartPos float64
	bgmPaused   bool
	bgmPausedAt float64
	bgmDuration float64

	bgmVolume float64
	sfxVolume float64

	sfxSlots map[string]int // sfx audio id -> backend slot

	onBGMEnd func(audioID string)
	stopPoll chan struct{}
}

// New wraps backend in a façade with default (unity) volumes.
func New(backend Backend) *Mixer {
	m := &Mixer{
		backend:   backend,
		bgmVolume: 1.0,
		sfxVolume: 1.0,
		sfxSlots:  make(map[string]int),
		stopPoll:  make(chan struct{}),
	}
	m.backend.SetBGMVolume(1.0)
	m.backend.SetSFXVolume(1.0)
	go m.pollBGMEnd()
	return m
}

// PlayBGM loads track's file and starts it playing from startPos
// seconds in, replacing any track currently playing.
func (m *Mixer) PlayBGM(track model.AudioTrack, startPos float64) error {
	buf, err := m.backend.LoadTrack(track.FilePath)
	if err != nil {
		return fmt.Errorf("loading %s: %w", track.FilePath, err)
	}
	duration := buf.DurationSeconds()
	startFrame := 0
	if sr, ok := buf.(interface{ FrameAt(seconds float64) int }); ok {
		startFrame = sr.FrameAt(startPos)
	}

	m.mu.Lock()
	m.bgmTrackID = track.ID
	m.bgmStartAt = time.Now()
	m.bgmStartPos = startPos
	m.bgmPaused = false
	m.bgmDuration = duration
	m.mu.Unlock()

	m.backend.PlayBGM(buf, startFrame)
	log.Debug("playing bgm", "audio_id", track.ID, "start_pos", startPos, "duration", duration)
	return nil
}

// PauseBGM freezes playback in place; Position keeps returning the
// position it froze at until ResumeBGM or another PlayBGM.
func (m *Mixer) PauseBGM() {
	pos := m.Position()
	m.mu.Lock()
	m.bgmPaused = true
	m.bgmPausedAt = pos
	m.mu.Unlock()
	m.backend.PauseBGM()
}

// ResumeBGM continues playback from wherever PauseBGM froze it.
func (m *Mixer) ResumeBGM() {
	m.mu.Lock()
	m.bgmStartAt = time.Now()
	m.bgmStartPos = m.bgmPausedAt
	m.bgmPaused = false
	m.mu.Unlock()
	m.backend.ResumeBGM()
}

// StopBGM halts playback and returns the position it stopped at.
func (m *Mixer) StopBGM() float64 {
	pos := m.Position()
	m.backend.StopBGM()
	m.mu.Lock()
	m.bgmTrackID = ""
	m.bgmDuration = 0
	m.mu.Unlock()
	return pos
}

// Position returns the current BGM position in seconds, computed from
// wall-clock elapsed time since playback started rather than polled
// from the backend: the backend's own cursor only reflects frames
// actually rendered, which lags the operator-visible timeline under
// buffering and isn't needed at show-control (not sample-accurate)
// granularity.
func (m *Mixer) Position() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.bgmTrackID == "" {
		return 0
	}
	if m.bgmPaused {
		return m.bgmPausedAt
	}
	pos := m.bgmStartPos + time.Since(m.bgmStartAt).Seconds()
	if m.bgmDuration > 0 && pos > m.bgmDuration {
		pos = m.bgmDuration
	}
	return pos
}

// CurrentBGMID returns the audio id currently loaded on the BGM voice,
// or "" if none.
func (m *Mixer) CurrentBGMID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.bgmTrackID
}

func (m *Mixer) IsPlaying() bool {
	return m.backend.IsBGMPlaying()
}

func (m *Mixer) IsPaused() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.bgmPaused
}

// SetBGMVolume sets the operator-facing BGM volume, clamped to 0..3,
// and scales it down to the backend's 0..1 gain range.
func (m *Mixer) SetBGMVolume(v float64) float64 {
	v = clamp(v, 0, commandVolumeMax)
	m.mu.Lock()
	m.bgmVolume = v
	m.mu.Unlock()
	m.backend.SetBGMVolume(clamp(v, 0, 1))
	return v
}

func (m *Mixer) BGMVolume() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.bgmVolume
}

// SetSFXVolume sets the operator-facing SFX volume, clamped to 0..3,
// and scales it down to the backend's 0..1 gain range.
func (m *Mixer) SetSFXVolume(v float64) float64 {
	v = clamp(v, 0, commandVolumeMax)
	m.mu.Lock()
	m.sfxVolume = v
	m.mu.Unlock()
	m.backend.SetSFXVolume(clamp(v, 0, 1))
	return v
}

func (m *Mixer) SFXVolume() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sfxVolume
}

// PlaySFX plays track under id, restarting it from the top if id is
// already playing. Returns false if no free SFX slot is available.
func (m *Mixer) PlaySFX(id string, track model.AudioTrack) (bool, error) {
	buf, err := m.backend.LoadTrack(track.FilePath)
	if err != nil {
		return false, fmt.Errorf("loading %s: %w", track.FilePath, err)
	}

	m.mu.Lock()
	slot, already := m.sfxSlots[id]
	m.mu.Unlock()

	if !already {
		var ok bool
		slot, ok = m.backend.FreeSFXSlot()
		if !ok {
			log.Warn("sfx pool exhausted", "audio_id", id)
			return false, nil
		}
	}

	if err := m.backend.PlaySFX(slot, buf); err != nil {
		return false, err
	}
	m.mu.Lock()
	m.sfxSlots[id] = slot
	m.mu.Unlock()
	return true, nil
}

func (m *Mixer) StopSFX(id string) bool {
	m.mu.Lock()
	slot, ok := m.sfxSlots[id]
	if ok {
		delete(m.sfxSlots, id)
	}
	m.mu.Unlock()
	if !ok {
		return false
	}
	m.backend.StopSFX(slot)
	return true
}

func (m *Mixer) StopAllSFX() {
	m.mu.Lock()
	m.sfxSlots = make(map[string]int)
	m.mu.Unlock()
	m.backend.StopAllSFX()
}

func (m *Mixer) IsSFXPlaying(id string) bool {
	m.mu.Lock()
	slot, ok := m.sfxSlots[id]
	m.mu.Unlock()
	if !ok {
		return false
	}
	return m.backend.IsSFXPlaying(slot)
}

// PlayingSFXIDs returns the ids of every SFX currently occupying a
// slot, including ones that have already naturally finished but
// haven't been reaped by a poll yet.
func (m *Mixer) PlayingSFXIDs() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]string, 0, len(m.sfxSlots))
	for id := range m.sfxSlots {
		ids = append(ids, id)
	}
	return ids
}

// OnBGMEnd registers a callback fired once, from the poll goroutine,
// each time the BGM voice runs off the end of its track on its own
// (as opposed to being explicitly stopped).
func (m *Mixer) OnBGMEnd(cb func(audioID string)) {
	m.mu.Lock()
	m.onBGMEnd = cb
	m.mu.Unlock()
}

// CheckBGMEnd reports whether the BGM voice has naturally finished
// since the backend's end flag was last read, and clears that flag. The
// poll goroutine behind OnBGMEnd reads and clears the same flag every
// 50ms, so each natural end is reported to only one of the two.
func (m *Mixer) CheckBGMEnd() bool {
	return m.backend.CheckBGMJustEnded()
}

func (m *Mixer) pollBGMEnd() {
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-m.stopPoll:
			return
		case <-ticker.C:
			if !m.backend.CheckBGMJustEnded() {
				continue
			}
			m.mu.Lock()
			id := m.bgmTrackID
			cb := m.onBGMEnd
			m.bgmTrackID = ""
			m.mu.Unlock()
			if cb != nil && id != "" {
				cb(id)
			}
		}
	}
}

// Close stops the poll loop and releases the backend device.
func (m *Mixer) Close() error {
	close(m.stopPoll)
	return m.backend.Close()
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
