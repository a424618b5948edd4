package showcontrol

import (
	"time"

	"showconsole/internal/events"
	"showconsole/internal/model"
)

// ==================== sound effects ====================

// PlaySFX overlays track under id without touching the BGM voice.
func (k *Kernel) PlaySFX(sfxID string, track model.AudioTrack) (bool, error) {
	k.mu.Lock()
	defer k.mu.Unlock()

	ok, err := k.mixer.PlaySFX(sfxID, track)
	if err != nil {
		k.metrics.RecordError("play_sfx", "backend")
		return false, err
	}
	if ok {
		k.metrics.RecordOperation("play_sfx", "success")
		k.emitLocked(events.TypeSFXStarted, map[string]any{"sfx_id": sfxID})
	} else {
		k.metrics.RecordOperation("play_sfx", "refused")
	}
	return ok, nil
}

func (k *Kernel) StopSFX(sfxID string) bool {
	k.mu.Lock()
	defer k.mu.Unlock()

	ok := k.mixer.StopSFX(sfxID)
	if ok {
		k.emitLocked(events.TypeSFXStopped, map[string]any{"sfx_id": sfxID})
	}
	return ok
}

// ToggleSFX stops sfxID if it's playing, otherwise starts it; returns
// whether it's playing after the call.
func (k *Kernel) ToggleSFX(sfxID string, track model.AudioTrack) bool {
	k.mu.Lock()
	defer k.mu.Unlock()

	if k.mixer.IsSFXPlaying(sfxID) {
		k.mixer.StopSFX(sfxID)
		k.emitLocked(events.TypeSFXStopped, map[string]any{"sfx_id": sfxID})
		return false
	}
	if ok, _ := k.mixer.PlaySFX(sfxID, track); ok {
		k.emitLocked(events.TypeSFXStarted, map[string]any{"sfx_id": sfxID})
		return true
	}
	return false
}

func (k *Kernel) IsSFXPlaying(sfxID string) bool {
	return k.mixer.IsSFXPlaying(sfxID)
}

// ==================== volume ====================

func (k *Kernel) SetBGMVolume(volume float64) float64 {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.bgmVolume = k.mixer.SetBGMVolume(volume)
	k.emitLocked(events.TypeVolumeChanged, map[string]any{"type": "bgm", "volume": k.bgmVolume})
	return k.bgmVolume
}

func (k *Kernel) BGMVolume() float64 {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.bgmVolume
}

func (k *Kernel) SetSFXVolume(volume float64) float64 {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.sfxVolume = k.mixer.SetSFXVolume(volume)
	k.emitLocked(events.TypeVolumeChanged, map[string]any{"type": "sfx", "volume": k.sfxVolume})
	return k.sfxVolume
}

func (k *Kernel) SFXVolume() float64 {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.sfxVolume
}

// ==================== mode switching ====================

// SwitchMode changes auto/manual mode without interrupting whatever is
// currently playing: the audio voice is untouched, only the kernel's
// bookkeeping of "what track is in scope" changes.
func (k *Kernel) SwitchMode(mode model.Mode) bool {
	k.mu.Lock()
	defer k.mu.Unlock()

	if k.mode == mode {
		return true
	}

	currentPos := 0.0
	switch {
	case k.inSilence:
		currentPos = 0
	case k.isPaused:
		currentPos = k.pausedPosition
	default:
		currentPos = k.mixer.Position()
	}
	wasPlaying := k.isPlaying && !k.isPaused
	wasPaused := k.isPaused
	currentAudio := k.currentAudioLocked()

	oldMode := k.mode
	k.mode = mode

	if mode == model.ModeManual {
		if currentAudio != nil {
			audio := *currentAudio
			k.manualAudio = &audio
			if wasPlaying || wasPaused {
				k.manualStartPos = currentPos
			} else {
				k.manualStartPos = 0
			}
		}
	} else if k.manualAudio != nil {
		for i, cue := range k.catalog.Cues() {
			if cue.AudioID == k.manualAudio.ID {
				k.catalog.SetIndex(i)
				break
			}
		}
	}

	k.emitLocked(events.TypeModeChanged, map[string]any{
		"old_mode":    oldMode,
		"new_mode":    mode,
		"position":    currentPos,
		"was_playing": wasPlaying,
		"was_paused":  wasPaused,
	})
	return true
}

// ==================== manual-mode configuration ====================

// SetManualAudio sets the track manual mode will play next, auto-saving
// a breakpoint for whatever was already playing under a different id.
func (k *Kernel) SetManualAudio(audio model.AudioTrack) {
	k.mu.Lock()
	defer k.mu.Unlock()

	if k.isPlaying && k.currentAudioID != "" && k.currentAudioID != audio.ID {
		pos := k.mixer.Position()
		k.bps.Save(k.currentAudioID, pos, autoSaveSwitchLabel, true)
	}

	k.manualAudio = &audio
	k.manualStartPos = 0
	k.manualSilenceBefore = 0
}

func (k *Kernel) SetManualStartPosition(position float64) {
	if position < 0 {
		position = 0
	}
	k.mu.Lock()
	k.manualStartPos = position
	k.mu.Unlock()
}

func (k *Kernel) SetManualSilenceBefore(duration float64) {
	if duration < 0 {
		duration = 0
	}
	k.mu.Lock()
	k.manualSilenceBefore = duration
	k.mu.Unlock()
}

// ==================== breakpoints ====================

// SaveBreakpoint snapshots the current position against the current
// audio id. Returns "", false if no audio id has been set yet; a stopped
// track keeps its audio id, so saving after Stop still succeeds.
func (k *Kernel) SaveBreakpoint(label string) (string, bool) {
	k.mu.Lock()
	defer k.mu.Unlock()

	if k.currentAudioID == "" {
		return "", false
	}
	pos := k.mixer.Position()
	bpID := k.bps.Save(k.currentAudioID, pos, label, false)

	k.emitLocked(events.TypeBreakpointSaved, map[string]any{
		"audio_id": k.currentAudioID,
		"position": pos,
		"bp_id":    bpID,
	})
	return bpID, true
}

// RestoreBreakpoint stops whatever is playing and resumes audioID from
// the saved position of bpID.
func (k *Kernel) RestoreBreakpoint(audioID, bpID string) bool {
	bp, ok := k.bps.Get(audioID, bpID)
	if !ok {
		return false
	}
	audio := k.catalog.AudioFile(audioID)
	if audio == nil {
		return false
	}

	k.mu.Lock()
	defer k.mu.Unlock()

	if !k.switchBGMLocked(*audio, bp.Position, autoSaveBGMLabel) {
		return false
	}

	k.emitLocked(events.TypePlaybackStarted, map[string]any{
		"audio_id":        audioID,
		"position":        bp.Position,
		"from_breakpoint": true,
		"bp_id":           bpID,
	})
	return true
}

// ==================== priority arbitration ====================

func (k *Kernel) checkPriority(source commandSource) bool {
	if source == SourceLocal {
		return true
	}
	k.opsMu.Lock()
	defer k.opsMu.Unlock()
	return !k.localPriority
}

func (k *Kernel) queueRemoteOp(kind string, position float64) {
	k.opsMu.Lock()
	defer k.opsMu.Unlock()
	k.pendingOps = append(k.pendingOps, pendingOp{kind: kind, position: position, queuedAt: time.Now()})
}

// SetLocalPriority controls whether a remote command is allowed to
// execute immediately (false) or is queued behind the local operator
// (true, the default).
func (k *Kernel) SetLocalPriority(enabled bool) {
	k.opsMu.Lock()
	defer k.opsMu.Unlock()
	k.localPriority = enabled
}

func (k *Kernel) LocalPriority() bool {
	k.opsMu.Lock()
	defer k.opsMu.Unlock()
	return k.localPriority
}

// ProcessPendingOps dequeues and executes the single oldest queued
// remote operation, if any. The kernel never calls it on its own; the
// API's process-pending route does. A dequeued op re-checks priority and
// is queued again while local priority is still held.
func (k *Kernel) ProcessPendingOps() {
	k.opsMu.Lock()
	if len(k.pendingOps) == 0 {
		k.opsMu.Unlock()
		return
	}
	op := k.pendingOps[0]
	k.pendingOps = k.pendingOps[1:]
	k.opsMu.Unlock()

	switch op.kind {
	case "play":
		k.Play(SourceRemote)
	case "pause":
		k.Pause(SourceRemote)
	case "resume":
		k.Resume(SourceRemote)
	case "stop":
		k.Stop(SourceRemote)
	case "next_cue":
		k.NextCue(SourceRemote)
	case "seek":
		k.Seek(op.position, SourceRemote)
	case "replay":
		k.Replay(SourceRemote)
	}
}

// ==================== persistence passthroughs ====================

func (k *Kernel) LoadConfig(path string) error {
	return k.catalog.LoadConfig(path)
}

func (k *Kernel) SaveConfig(path string) error {
	return k.catalog.SaveConfig(path)
}

func (k *Kernel) LoadBreakpoints(path string) error {
	return k.bps.LoadFromFile(path)
}

func (k *Kernel) SaveBreakpoints(path string) error {
	return k.bps.SaveToFile(path)
}
