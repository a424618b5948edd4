package backend

import (
	"fmt"
	"math"
	"sync"
	"sync/atomic"

	"github.com/gordonklaus/portaudio"

	"showconsole/internal/logging"
)

var log = logging.ForService("audiomixer.backend")

// voice is one playable PCM stream: either the single BGM voice or one
// slot in the SFX pool. A voice is safe for concurrent read (by the
// PortAudio callback) and write (by façade calls).
type voice struct {
	mu      sync.Mutex
	buf     Buffer
	pos     int
	playing bool
	paused  bool
	ranOut  bool   // set when the buffer was exhausted rather than explicitly stopped
	gain    uint64 // math.Float64bits, read lock-free by the callback
}

func (v *voice) setGain(g float64) {
	atomic.StoreUint64(&v.gain, math.Float64bits(g))
}

func (v *voice) loadGain() float64 {
	return math.Float64frombits(atomic.LoadUint64(&v.gain))
}

// nextSample advances the voice's cursor by one frame and returns its
// contribution to the mix. Returns (0, false) once the buffer is
// exhausted or the voice isn't playing.
func (v *voice) nextSample() (float32, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if !v.playing || v.paused || v.pos >= len(v.buf.Samples) {
		return 0, false
	}
	s := v.buf.Samples[v.pos] * float32(v.loadGain())
	v.pos++
	done := v.pos >= len(v.buf.Samples)
	if done {
		v.playing = false
		v.ranOut = true
	}
	return s, !done
}

// Device is a real-time PortAudio output stream mixing one BGM voice
// with a fixed pool of SFX voices.
type Device struct {
	stream     *portaudio.Stream
	sampleRate float64

	bgm *voice
	sfx []*voice
}

// NewDevice opens the named (or default, if empty) output device and
// starts a stream mixing one BGM voice with sfxChannels SFX voices.
func NewDevice(outputDeviceName string, sfxChannels int, sampleRate int) (*Device, error) {
	if sfxChannels <= 0 {
		sfxChannels = 8
	}

	host, err := portaudio.DefaultHostApi()
	if err != nil {
		return nil, fmt.Errorf("portaudio host api: %w", err)
	}
	outDev := host.DefaultOutputDevice
	if outputDeviceName != "" {
		devices, err := portaudio.Devices()
		if err != nil {
			return nil, fmt.Errorf("listing audio devices: %w", err)
		}
		for _, d := range devices {
			if d.Name == outputDeviceName && d.MaxOutputChannels > 0 {
				outDev = d
				break
			}
		}
	}

	d := &Device{
		sampleRate: float64(sampleRate),
		bgm:        &voice{},
		sfx:        make([]*voice, sfxChannels),
	}
	for i := range d.sfx {
		d.sfx[i] = &voice{}
	}
	d.bgm.setGain(1)
	for _, v := range d.sfx {
		v.setGain(1)
	}

	params := portaudio.StreamParameters{
		Output: portaudio.StreamDeviceParameters{
			Device:   outDev,
			Channels: 1,
			Latency:  outDev.DefaultLowOutputLatency,
		},
		SampleRate:      float64(sampleRate),
		FramesPerBuffer: portaudio.FramesPerBufferUnspecified,
	}

	stream, err := portaudio.OpenStream(params, d.callback)
	if err != nil {
		return nil, fmt.Errorf("opening output stream: %w", err)
	}
	if err := stream.Start(); err != nil {
		return nil, fmt.Errorf("starting output stream: %w", err)
	}
	d.stream = stream
	return d, nil
}

// callback runs on PortAudio's real-time thread: no allocation beyond
// what nextSample does, no logging.
func (d *Device) callback(out []float32) {
	for i := range out {
		var mix float32
		s, _ := d.bgm.nextSample()
		mix += s
		for _, v := range d.sfx {
			s, _ := v.nextSample()
			mix += s
		}
		if mix > 1 {
			mix = 1
		} else if mix < -1 {
			mix = -1
		}
		out[i] = mix
	}
}

// PlayBGM starts buf playing on the BGM voice at startFrame, replacing
// whatever was playing there.
func (d *Device) PlayBGM(buf Buffer, startFrame int) {
	d.bgm.mu.Lock()
	d.bgm.buf = buf
	if startFrame < 0 {
		startFrame = 0
	}
	if startFrame > len(buf.Samples) {
		startFrame = len(buf.Samples)
	}
	d.bgm.pos = startFrame
	d.bgm.playing = true
	d.bgm.paused = false
	d.bgm.ranOut = false
	d.bgm.mu.Unlock()
}

func (d *Device) PauseBGM() {
	d.bgm.mu.Lock()
	d.bgm.paused = true
	d.bgm.mu.Unlock()
}

func (d *Device) ResumeBGM() {
	d.bgm.mu.Lock()
	d.bgm.paused = false
	d.bgm.mu.Unlock()
}

// StopBGM halts the BGM voice and returns the frame it stopped at.
func (d *Device) StopBGM() int {
	d.bgm.mu.Lock()
	defer d.bgm.mu.Unlock()
	pos := d.bgm.pos
	d.bgm.playing = false
	d.bgm.paused = false
	d.bgm.pos = 0
	d.bgm.buf = Buffer{}
	return pos
}

func (d *Device) IsBGMPlaying() bool {
	d.bgm.mu.Lock()
	defer d.bgm.mu.Unlock()
	return d.bgm.playing && !d.bgm.paused
}

func (d *Device) IsBGMPaused() bool {
	d.bgm.mu.Lock()
	defer d.bgm.mu.Unlock()
	return d.bgm.playing && d.bgm.paused
}

func (d *Device) SetBGMVolume(v float64) {
	d.bgm.setGain(v)
}

func (d *Device) SetSFXVolume(v float64) {
	for _, sl := range d.sfx {
		sl.setGain(v)
	}
}

// FreeSFXSlot returns the index of an idle SFX voice, or false if the
// pool is exhausted.
func (d *Device) FreeSFXSlot() (int, bool) {
	for i, v := range d.sfx {
		v.mu.Lock()
		idle := !v.playing
		v.mu.Unlock()
		if idle {
			return i, true
		}
	}
	return 0, false
}

func (d *Device) PlaySFX(slot int, buf Buffer) error {
	if slot < 0 || slot >= len(d.sfx) {
		return fmt.Errorf("sfx slot %d out of range", slot)
	}
	v := d.sfx[slot]
	v.mu.Lock()
	v.buf = buf
	v.pos = 0
	v.playing = true
	v.paused = false
	v.mu.Unlock()
	return nil
}

func (d *Device) StopSFX(slot int) {
	if slot < 0 || slot >= len(d.sfx) {
		return
	}
	v := d.sfx[slot]
	v.mu.Lock()
	v.playing = false
	v.pos = 0
	v.mu.Unlock()
}

func (d *Device) StopAllSFX() {
	for i := range d.sfx {
		d.StopSFX(i)
	}
}

func (d *Device) IsSFXPlaying(slot int) bool {
	if slot < 0 || slot >= len(d.sfx) {
		return false
	}
	v := d.sfx[slot]
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.playing
}

// CheckBGMJustEnded reports, once, whether the BGM voice ran off the
// end of its buffer (as opposed to being explicitly stopped) since the
// last call, and clears the flag.
func (d *Device) CheckBGMJustEnded() bool {
	d.bgm.mu.Lock()
	defer d.bgm.mu.Unlock()
	if !d.bgm.ranOut {
		return false
	}
	d.bgm.ranOut = false
	return true
}

// Close stops and closes the underlying stream.
func (d *Device) Close() error {
	if d.stream == nil {
		return nil
	}
	if err := d.stream.Stop(); err != nil {
		log.Warn("stopping stream", "error", err)
	}
	return d.stream.Close()
}
