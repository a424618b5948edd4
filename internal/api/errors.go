package api

import "showconsole/internal/errors"

var (
	errInvalidMode     = errors.NewStd("mode must be \"auto\" or \"manual\"")
	errAudioNotFound   = errors.NewStd("audio track not found")
	errCueNotFound     = errors.NewStd("cue not found")
	errBreakpointMiss  = errors.NewStd("breakpoint not found")
	errAudioIDRequired = errors.NewStd("audio_id is required")
)
