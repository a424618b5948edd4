package backend

import (
	"fmt"
	"sync"

	"showconsole/internal/audiomixer"
)

// Player adapts a Device plus a decoded-track cache to the shape
// internal/audiomixer.Mixer expects from its Backend dependency.
type Player struct {
	dev *Device

	mu    sync.Mutex
	cache map[string]Buffer
}

var _ audiomixer.Backend = (*Player)(nil)

// NewPlayer opens an output device with sfxChannels SFX voices and
// wraps it in a Player.
func NewPlayer(outputDeviceName string, sfxChannels, sampleRate int) (*Player, error) {
	dev, err := NewDevice(outputDeviceName, sfxChannels, sampleRate)
	if err != nil {
		return nil, err
	}
	return &Player{dev: dev, cache: make(map[string]Buffer)}, nil
}

// LoadTrack decodes path once and serves subsequent requests for the
// same path from an in-memory cache.
func (p *Player) LoadTrack(path string) (audiomixer.Buffer, error) {
	p.mu.Lock()
	if buf, ok := p.cache[path]; ok {
		p.mu.Unlock()
		return buf, nil
	}
	p.mu.Unlock()

	buf, err := DecodeWAVFile(path)
	if err != nil {
		return Buffer{}, err
	}
	p.mu.Lock()
	p.cache[path] = buf
	p.mu.Unlock()
	return buf, nil
}

func (p *Player) asBuffer(buf audiomixer.Buffer) (Buffer, error) {
	b, ok := buf.(Buffer)
	if !ok {
		return Buffer{}, fmt.Errorf("unexpected buffer type %T", buf)
	}
	return b, nil
}

func (p *Player) PlayBGM(buf audiomixer.Buffer, startFrame int) {
	b, err := p.asBuffer(buf)
	if err != nil {
		log.Error("playBGM", "error", err)
		return
	}
	p.dev.PlayBGM(b, startFrame)
}

func (p *Player) PauseBGM()               { p.dev.PauseBGM() }
func (p *Player) ResumeBGM()              { p.dev.ResumeBGM() }
func (p *Player) StopBGM() int            { return p.dev.StopBGM() }
func (p *Player) IsBGMPlaying() bool      { return p.dev.IsBGMPlaying() }
func (p *Player) IsBGMPaused() bool       { return p.dev.IsBGMPaused() }
func (p *Player) SetBGMVolume(v float64)  { p.dev.SetBGMVolume(v) }
func (p *Player) SetSFXVolume(v float64)  { p.dev.SetSFXVolume(v) }
func (p *Player) FreeSFXSlot() (int, bool) { return p.dev.FreeSFXSlot() }

func (p *Player) PlaySFX(slot int, buf audiomixer.Buffer) error {
	b, err := p.asBuffer(buf)
	if err != nil {
		return err
	}
	return p.dev.PlaySFX(slot, b)
}

func (p *Player) StopSFX(slot int)           { p.dev.StopSFX(slot) }
func (p *Player) StopAllSFX()                { p.dev.StopAllSFX() }
func (p *Player) IsSFXPlaying(slot int) bool { return p.dev.IsSFXPlaying(slot) }
func (p *Player) CheckBGMJustEnded() bool    { return p.dev.CheckBGMJustEnded() }
func (p *Player) Close() error               { return p.dev.Close() }
