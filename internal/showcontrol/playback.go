package showcontrol

import (
	"context"
	"time"

	"showconsole/internal/events"
	"showconsole/internal/model"
)

// Play starts playback: the current cue in auto mode, or the configured
// manual-mode track in manual mode. Handles a cue/manual pre-silence
// first if one is configured and nothing is already playing.
func (k *Kernel) Play(source commandSource) (ok bool) {
	defer k.recordCommand("play", &ok)
	if !k.checkPriority(source) {
		k.queueRemoteOp("play", 0)
		return false
	}
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.mode == model.ModeAuto {
		return k.playAutoModeLocked()
	}
	return k.playManualModeLocked()
}

// playAutoModeLocked checks for a configured pre-cue silence and, if one
// applies, waits it out before starting; startAutoPlaybackLocked does the
// actual start and must be the target of a silence-completion callback
// so that callback doesn't re-evaluate (and re-arm) the same wait.
func (k *Kernel) playAutoModeLocked() bool {
	cue := k.catalog.CurrentCue()
	if cue == nil {
		return false
	}
	if cue.SilenceBefore > 0 && !k.inSilence && !k.isPlaying {
		k.startSilenceLocked(cue.SilenceBefore, true, k.startAutoPlayback)
		return true
	}
	return k.startAutoPlaybackLocked(cue)
}

func (k *Kernel) startAutoPlaybackLocked(cue *model.Cue) bool {
	audio := k.catalog.AudioFile(cue.AudioID)
	if audio == nil {
		return false
	}
	if err := k.mixer.PlayBGM(*audio, cue.StartTime); err != nil {
		log.Error("play_bgm failed", "audio_id", audio.ID, "error", err)
		return false
	}
	k.isPlaying = true
	k.isPaused = false
	k.currentAudioID = audio.ID

	k.emitLocked(events.TypePlaybackStarted, map[string]any{
		"audio_id": audio.ID,
		"position": cue.StartTime,
		"cue_id":   cue.ID,
	})
	return true
}

// startAutoPlayback and startManualPlayback are the unlocked entry points
// used as silence-completion callbacks (and by SkipSilence): they start
// playback directly, without re-checking whether a pre-cue silence is
// configured, since that wait has already been served. They run on their
// own goroutine without k.mu held.
func (k *Kernel) startAutoPlayback() bool {
	k.mu.Lock()
	defer k.mu.Unlock()
	cue := k.catalog.CurrentCue()
	if cue == nil {
		return false
	}
	return k.startAutoPlaybackLocked(cue)
}

func (k *Kernel) startManualPlayback() bool {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.startManualPlaybackLocked()
}

func (k *Kernel) playManualModeLocked() bool {
	if k.manualAudio == nil {
		return false
	}
	if k.manualSilenceBefore > 0 && !k.inSilence && !k.isPlaying {
		k.startSilenceLocked(k.manualSilenceBefore, true, k.startManualPlayback)
		return true
	}
	return k.startManualPlaybackLocked()
}

func (k *Kernel) startManualPlaybackLocked() bool {
	if k.manualAudio == nil {
		return false
	}
	if err := k.mixer.PlayBGM(*k.manualAudio, k.manualStartPos); err != nil {
		log.Error("play_bgm failed", "audio_id", k.manualAudio.ID, "error", err)
		return false
	}
	k.isPlaying = true
	k.isPaused = false
	k.currentAudioID = k.manualAudio.ID

	k.emitLocked(events.TypePlaybackStarted, map[string]any{
		"audio_id": k.manualAudio.ID,
		"position": k.manualStartPos,
	})
	return true
}

// Pause freezes playback in place and auto-saves a resume breakpoint.
func (k *Kernel) Pause(source commandSource) (ok bool) {
	defer k.recordCommand("pause", &ok)
	if !k.checkPriority(source) {
		k.queueRemoteOp("pause", 0)
		return false
	}
	k.mu.Lock()
	defer k.mu.Unlock()

	if !k.isPlaying || k.isPaused {
		return false
	}

	pos := k.mixer.Position()
	if k.currentAudioID != "" {
		k.bps.Save(k.currentAudioID, pos, autoSavePauseLabel, true)
	}

	k.mixer.PauseBGM()
	k.isPaused = true
	k.pausedAudioID = k.currentAudioID
	k.pausedPosition = pos

	k.emitLocked(events.TypePlaybackPaused, map[string]any{"position": pos})
	return true
}

// Resume re-seeks playback to wherever Pause froze it — more reliable
// than relying on the mixer's own unpause across every backend.
func (k *Kernel) Resume(source commandSource) (ok bool) {
	defer k.recordCommand("resume", &ok)
	if !k.checkPriority(source) {
		k.queueRemoteOp("resume", 0)
		return false
	}
	k.mu.Lock()
	defer k.mu.Unlock()

	if !k.isPaused {
		return false
	}

	resumePos := k.pausedPosition

	var audio *model.AudioTrack
	switch {
	case k.mode == model.ModeManual && k.manualAudio != nil:
		audio = k.manualAudio
	case k.pausedAudioID != "":
		audio = k.catalog.AudioFile(k.pausedAudioID)
		if audio == nil && k.manualAudio != nil && k.manualAudio.ID == k.pausedAudioID {
			audio = k.manualAudio
		}
	case k.mode == model.ModeAuto:
		if cue := k.catalog.CurrentCue(); cue != nil {
			audio = k.catalog.AudioFile(cue.AudioID)
		}
	}
	if audio == nil {
		return false
	}

	if err := k.mixer.PlayBGM(*audio, resumePos); err != nil {
		log.Error("play_bgm failed", "audio_id", audio.ID, "error", err)
		return false
	}
	k.isPaused = false
	k.isPlaying = true
	k.currentAudioID = audio.ID

	k.emitLocked(events.TypePlaybackStarted, map[string]any{
		"position": resumePos,
		"resumed":  true,
	})
	return true
}

// Stop halts playback and resets the playback state machine to the
// stopped state, including any in-progress silence interval.
func (k *Kernel) Stop(source commandSource) (ok bool) {
	defer k.recordCommand("stop", &ok)
	if !k.checkPriority(source) {
		k.queueRemoteOp("stop", 0)
		return false
	}
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.stopLocked()
}

func (k *Kernel) stopLocked() bool {
	stoppedAudioID := k.currentAudioID
	position := k.mixer.StopBGM()

	k.isPlaying = false
	k.isPaused = false
	k.pausedAudioID = ""
	k.pausedPosition = 0

	k.cancelSilenceLocked()

	k.emitLocked(events.TypePlaybackStopped, map[string]any{
		"position": position,
		"audio_id": stoppedAudioID,
	})
	return true
}

// NextCue advances to the next cue and starts playing it (auto mode only).
func (k *Kernel) NextCue(source commandSource) (ok bool) {
	defer k.recordCommand("next_cue", &ok)
	if !k.checkPriority(source) {
		k.queueRemoteOp("next_cue", 0)
		return false
	}
	k.mu.Lock()
	defer k.mu.Unlock()

	if k.mode != model.ModeAuto {
		return false
	}

	k.mixer.StopBGM()
	k.cancelSilenceLocked()

	next := k.catalog.Advance()
	if next == nil {
		k.isPlaying = false
		k.isPaused = false
		return false
	}

	k.emitLocked(events.TypeCueChanged, map[string]any{
		"cue_index": k.catalog.CurrentIndex(),
		"cue_id":    next.ID,
	})
	return k.playAutoModeLocked()
}

// Seek relocates the current track's playhead. If playback was stopped
// or paused, it is left paused at the new position afterward (re-seek,
// not implicit resume).
func (k *Kernel) Seek(position float64, source commandSource) (ok bool) {
	defer k.recordCommand("seek", &ok)
	if !k.checkPriority(source) {
		k.queueRemoteOp("seek", position)
		return false
	}
	k.mu.Lock()
	defer k.mu.Unlock()

	if k.currentAudioID == "" {
		return false
	}

	var audio *model.AudioTrack
	if k.mode == model.ModeAuto {
		cue := k.catalog.CurrentCue()
		if cue == nil {
			return false
		}
		audio = k.catalog.AudioFile(cue.AudioID)
	} else {
		audio = k.manualAudio
	}
	if audio == nil {
		return false
	}
	if position < 0 || position > audio.Duration {
		return false
	}

	wasPlaying := k.isPlaying && !k.isPaused
	k.mixer.StopBGM()
	if err := k.mixer.PlayBGM(*audio, position); err != nil {
		log.Error("play_bgm failed", "audio_id", audio.ID, "error", err)
		return false
	}

	if !wasPlaying {
		k.mixer.PauseBGM()
		k.isPaused = true
		k.pausedAudioID = audio.ID
		k.pausedPosition = position
	}
	return true
}

// Replay restarts the current track from its cue start time (auto
// mode) or from zero (manual mode).
func (k *Kernel) Replay(source commandSource) (ok bool) {
	defer k.recordCommand("replay", &ok)
	if !k.checkPriority(source) {
		k.queueRemoteOp("replay", 0)
		return false
	}
	k.mu.Lock()
	defer k.mu.Unlock()

	var audio *model.AudioTrack
	startPos := 0.0
	if k.mode == model.ModeAuto {
		cue := k.catalog.CurrentCue()
		if cue == nil {
			return false
		}
		audio = k.catalog.AudioFile(cue.AudioID)
		startPos = cue.StartTime
	} else {
		audio = k.manualAudio
	}
	if audio == nil {
		return false
	}

	k.mixer.StopBGM()
	if err := k.mixer.PlayBGM(*audio, startPos); err != nil {
		log.Error("play_bgm failed", "audio_id", audio.ID, "error", err)
		return false
	}
	k.isPlaying = true
	k.isPaused = false
	k.currentAudioID = audio.ID

	k.emitLocked(events.TypePlaybackStarted, map[string]any{
		"audio_id": audio.ID,
		"position": startPos,
		"replay":   true,
	})
	return true
}

// switchBGMLocked saves a breakpoint for whatever is currently playing (not
// paused), then stops the mixer BGM and starts audio at startPos. Shared by
// PlayNewBGM and RestoreBreakpoint, the two operations the BGM-mutex
// invariant applies to identically. Callers must hold k.mu and own emitting
// their own playback_started event afterward.
func (k *Kernel) switchBGMLocked(audio model.AudioTrack, startPos float64, label string) bool {
	if k.isPlaying && k.currentAudioID != "" && !k.isPaused {
		k.bps.Save(k.currentAudioID, k.mixer.Position(), label, true)
	}

	k.mixer.StopBGM()
	if err := k.mixer.PlayBGM(audio, startPos); err != nil {
		log.Error("play_bgm failed", "audio_id", audio.ID, "error", err)
		return false
	}
	k.isPlaying = true
	k.isPaused = false
	k.currentAudioID = audio.ID

	if k.mode == model.ModeManual {
		k.manualAudio = &audio
		k.manualStartPos = startPos
	}
	return true
}

// PlayNewBGM switches the BGM voice directly to audio, auto-saving a
// breakpoint for whatever was playing first. Used for a direct
// "play this track now" command outside the cue-list/manual-slot flow.
func (k *Kernel) PlayNewBGM(audio model.AudioTrack, startPos float64) bool {
	k.mu.Lock()
	defer k.mu.Unlock()

	if !k.switchBGMLocked(audio, startPos, autoSaveBGMLabel) {
		return false
	}

	k.emitLocked(events.TypePlaybackStarted, map[string]any{
		"audio_id": audio.ID,
		"position": startPos,
	})
	return true
}

// ==================== silence scheduler ====================

// startSilenceLocked begins a silence interval of duration seconds and
// arranges for onComplete to run (on its own goroutine, re-acquiring
// k.mu) once it elapses, unless SkipSilence cuts it short first.
// Callers must hold k.mu; onComplete must not be called with it held.
func (k *Kernel) startSilenceLocked(duration float64, isBefore bool, onComplete func() bool) {
	k.inSilence = true
	k.silenceDuration = duration
	k.silenceRemaining = duration
	k.silenceStart = time.Now()

	ctx, cancel := context.WithCancel(context.Background())
	k.silenceCancel = cancel

	k.emitLocked(events.TypeSilenceStarted, map[string]any{
		"duration":  duration,
		"is_before": isBefore,
	})

	k.wg.Add(1)
	go k.runSilence(ctx, duration, onComplete)
}

func (k *Kernel) runSilence(ctx context.Context, duration float64, onComplete func() bool) {
	defer k.wg.Done()
	deadline := time.Now().Add(time.Duration(duration * float64(time.Second)))
	ticker := time.NewTicker(k.silenceTick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			remaining := time.Until(deadline)
			k.mu.Lock()
			if !k.inSilence {
				k.mu.Unlock()
				return
			}
			k.silenceRemaining = remaining.Seconds()
			if k.silenceRemaining < 0 {
				k.silenceRemaining = 0
			}
			done := remaining <= 0
			if done {
				k.inSilence = false
				k.emitLocked(events.TypeSilenceEnded, map[string]any{"skipped": false})
			}
			k.mu.Unlock()
			if done {
				onComplete()
				return
			}
		}
	}
}

// SkipSilence cuts a running silence interval short and immediately
// starts whatever it was waiting to start.
func (k *Kernel) SkipSilence() bool {
	k.mu.Lock()
	if !k.inSilence {
		k.mu.Unlock()
		return false
	}
	k.cancelSilenceLocked()
	k.emitLocked(events.TypeSilenceEnded, map[string]any{"skipped": true})
	mode := k.mode
	k.mu.Unlock()

	if mode == model.ModeAuto {
		return k.startAutoPlayback()
	}
	return k.startManualPlayback()
}

// cancelSilenceLocked stops any in-flight silence wait goroutine and
// clears the silence-wait state, so InSilence() reports false again and
// the next Play doesn't see a stale wait it never started.
// Callers must hold k.mu.
func (k *Kernel) cancelSilenceLocked() {
	if k.silenceCancel != nil {
		k.silenceCancel()
		k.silenceCancel = nil
	}
	k.inSilence = false
	k.silenceDuration = 0
	k.silenceRemaining = 0
}

// ==================== BGM-end callback ====================

// handleBGMEnd runs on the mixer's poll goroutine whenever the BGM
// voice runs off the end of its track on its own.
func (k *Kernel) handleBGMEnd(completedAudioID string) {
	k.mu.Lock()
	k.isPlaying = false
	k.isPaused = false
	k.pausedAudioID = ""
	k.pausedPosition = 0

	k.emitLocked(events.TypePlaybackCompleted, map[string]any{"audio_id": completedAudioID})

	mode := k.mode
	var silenceAfter float64
	if mode == model.ModeAuto {
		if cue := k.catalog.CurrentCue(); cue != nil {
			silenceAfter = cue.SilenceAfter
		}
	}
	k.mu.Unlock()

	if mode != model.ModeAuto {
		return
	}

	if silenceAfter > 0 {
		k.mu.Lock()
		k.startSilenceLocked(silenceAfter, false, k.autoAdvance)
		k.mu.Unlock()
		return
	}
	k.autoAdvance()
}

// autoAdvance moves to the next cue and starts playing it, in auto
// mode, after a natural BGM end (with or without a silence interval
// between). It acquires k.mu itself, so it must never be called with
// the lock already held.
func (k *Kernel) autoAdvance() bool {
	k.mu.Lock()
	defer k.mu.Unlock()
	next := k.catalog.Advance()
	if next == nil {
		return false
	}
	k.emitLocked(events.TypeCueChanged, map[string]any{
		"cue_index": k.catalog.CurrentIndex(),
		"cue_id":    next.ID,
	})
	return k.playAutoModeLocked()
}

// Shutdown waits for any in-flight silence goroutines to exit.
func (k *Kernel) Shutdown() {
	k.mu.Lock()
	k.cancelSilenceLocked()
	k.mu.Unlock()
	k.wg.Wait()
}

// recordCommand reports a command's outcome under its own name: ok
// points at the command method's named return, read after that
// method's body has run via defer.
func (k *Kernel) recordCommand(name string, ok *bool) {
	status := "refused"
	if *ok {
		status = "success"
	}
	k.metrics.RecordOperation(name, status)
}
