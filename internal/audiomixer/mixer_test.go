package audiomixer

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"showconsole/internal/model"
)

// fakeBuffer stands in for a decoded track without touching real PCM.
type fakeBuffer struct{ seconds float64 }

func (f fakeBuffer) DurationSeconds() float64    { return f.seconds }
func (f fakeBuffer) FrameAt(seconds float64) int { return int(seconds * 44100) }

// fakeBackend is an in-memory stand-in for backend.Player, so these
// tests exercise the façade's logic without any real audio device.
type fakeBackend struct {
	mu          sync.Mutex
	bgmPlaying  bool
	bgmPaused   bool
	bgmVolume   float64
	sfxVolume   float64
	sfxSlots    [4]bool
	justEnded   bool
	closeCalled bool
}

func newFakeBackend() *fakeBackend { return &fakeBackend{} }

func (f *fakeBackend) LoadTrack(path string) (Buffer, error) {
	return fakeBuffer{seconds: 10}, nil
}
func (f *fakeBackend) PlayBGM(buf Buffer, startFrame int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.bgmPlaying = true
	f.bgmPaused = false
}
func (f *fakeBackend) PauseBGM() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.bgmPaused = true
}
func (f *fakeBackend) ResumeBGM() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.bgmPaused = false
}
func (f *fakeBackend) StopBGM() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.bgmPlaying = false
	f.bgmPaused = false
	return 0
}
func (f *fakeBackend) IsBGMPlaying() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.bgmPlaying && !f.bgmPaused
}
func (f *fakeBackend) IsBGMPaused() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.bgmPlaying && f.bgmPaused
}
func (f *fakeBackend) SetBGMVolume(v float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.bgmVolume = v
}
func (f *fakeBackend) SetSFXVolume(v float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sfxVolume = v
}
func (f *fakeBackend) FreeSFXSlot() (int, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, busy := range f.sfxSlots {
		if !busy {
			return i, true
		}
	}
	return 0, false
}
func (f *fakeBackend) PlaySFX(slot int, buf Buffer) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sfxSlots[slot] = true
	return nil
}
func (f *fakeBackend) StopSFX(slot int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sfxSlots[slot] = false
}
func (f *fakeBackend) StopAllSFX() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sfxSlots = [4]bool{}
}
func (f *fakeBackend) IsSFXPlaying(slot int) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sfxSlots[slot]
}
func (f *fakeBackend) CheckBGMJustEnded() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	v := f.justEnded
	f.justEnded = false
	return v
}
func (f *fakeBackend) Close() error {
	f.closeCalled = true
	return nil
}

func track(id string) model.AudioTrack {
	return model.AudioTrack{ID: id, FilePath: "/tmp/" + id + ".wav", TrackType: model.TrackBGM}
}

func TestPositionAdvancesFromWallClock(t *testing.T) {
	m := New(newFakeBackend())
	defer m.Close()

	require.NoError(t, m.PlayBGM(track("bgm1"), 2.0))
	time.Sleep(30 * time.Millisecond)
	pos := m.Position()
	assert.GreaterOrEqual(t, pos, 2.0)
	assert.Less(t, pos, 2.5)
}

func TestPauseFreezesPosition(t *testing.T) {
	m := New(newFakeBackend())
	defer m.Close()

	require.NoError(t, m.PlayBGM(track("bgm1"), 1.0))
	time.Sleep(20 * time.Millisecond)
	m.PauseBGM()
	p1 := m.Position()
	time.Sleep(20 * time.Millisecond)
	p2 := m.Position()
	assert.Equal(t, p1, p2)
	assert.True(t, m.IsPaused())
}

func TestBGMVolumeClampedToCommandRange(t *testing.T) {
	m := New(newFakeBackend())
	defer m.Close()

	assert.Equal(t, 3.0, m.SetBGMVolume(5))
	assert.Equal(t, 0.0, m.SetBGMVolume(-1))
	assert.Equal(t, 1.5, m.SetBGMVolume(1.5))
}

func TestPlaySFXRestartsAlreadyPlaying(t *testing.T) {
	be := newFakeBackend()
	m := New(be)
	defer m.Close()

	ok, err := m.PlaySFX("knock", track("knock"))
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = m.PlaySFX("knock", track("knock"))
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Len(t, m.PlayingSFXIDs(), 1)
}

func TestPlaySFXFailsWhenPoolExhausted(t *testing.T) {
	be := newFakeBackend()
	m := New(be)
	defer m.Close()

	for i := 0; i < 4; i++ {
		ok, err := m.PlaySFX(track(string(rune('a'+i))).ID, track(string(rune('a'+i))))
		require.NoError(t, err)
		require.True(t, ok)
	}
	ok, err := m.PlaySFX("overflow", track("overflow"))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStopBGMReturnsPositionAndClearsCurrent(t *testing.T) {
	m := New(newFakeBackend())
	defer m.Close()

	require.NoError(t, m.PlayBGM(track("bgm1"), 3.0))
	pos := m.StopBGM()
	assert.GreaterOrEqual(t, pos, 3.0)
	assert.Equal(t, "", m.CurrentBGMID())
}
