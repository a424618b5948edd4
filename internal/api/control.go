package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"showconsole/internal/model"
	"showconsole/internal/showcontrol"
)

// simpleResult is the JSON body for every bare boolean command.
type simpleResult struct {
	Success bool `json:"success"`
}

func (c *Controller) resultJSON(ctx echo.Context, ok bool) error {
	return ctx.JSON(http.StatusOK, simpleResult{Success: ok})
}

// initControlRoutes registers the transport-level surface for the bare
// playback commands, seek, and volume control.
func (c *Controller) initControlRoutes() {
	g := c.Group.Group("/control")
	g.POST("/play", c.play)
	g.POST("/pause", c.pause)
	g.POST("/resume", c.resume)
	g.POST("/stop", c.stop)
	g.POST("/next_cue", c.nextCue)
	g.POST("/replay", c.replay)
	g.POST("/seek", c.seek)
	g.POST("/play-new-bgm", c.playNewBGM)

	g.GET("/volume/bgm", c.getBGMVolume)
	g.POST("/volume/bgm", c.setBGMVolume)
	g.GET("/volume/sfx", c.getSFXVolume)
	g.POST("/volume/sfx", c.setSFXVolume)

	c.Group.GET("/state", c.getState)
}

func (c *Controller) play(ctx echo.Context) error {
	source := showcontrol.SourceLocal
	if isRemoteSource(ctx) {
		source = showcontrol.SourceRemote
	}
	return c.resultJSON(ctx, c.Kernel.Play(source))
}

func (c *Controller) pause(ctx echo.Context) error {
	source := showcontrol.SourceLocal
	if isRemoteSource(ctx) {
		source = showcontrol.SourceRemote
	}
	return c.resultJSON(ctx, c.Kernel.Pause(source))
}

func (c *Controller) resume(ctx echo.Context) error {
	source := showcontrol.SourceLocal
	if isRemoteSource(ctx) {
		source = showcontrol.SourceRemote
	}
	return c.resultJSON(ctx, c.Kernel.Resume(source))
}

func (c *Controller) stop(ctx echo.Context) error {
	source := showcontrol.SourceLocal
	if isRemoteSource(ctx) {
		source = showcontrol.SourceRemote
	}
	return c.resultJSON(ctx, c.Kernel.Stop(source))
}

func (c *Controller) nextCue(ctx echo.Context) error {
	source := showcontrol.SourceLocal
	if isRemoteSource(ctx) {
		source = showcontrol.SourceRemote
	}
	return c.resultJSON(ctx, c.Kernel.NextCue(source))
}

func (c *Controller) replay(ctx echo.Context) error {
	source := showcontrol.SourceLocal
	if isRemoteSource(ctx) {
		source = showcontrol.SourceRemote
	}
	return c.resultJSON(ctx, c.Kernel.Replay(source))
}

type seekRequest struct {
	Position float64 `json:"position"`
}

func (c *Controller) seek(ctx echo.Context) error {
	var req seekRequest
	if err := ctx.Bind(&req); err != nil {
		return c.fail(ctx, http.StatusBadRequest, err)
	}
	source := showcontrol.SourceLocal
	if isRemoteSource(ctx) {
		source = showcontrol.SourceRemote
	}
	return c.resultJSON(ctx, c.Kernel.Seek(req.Position, source))
}

type playNewBGMRequest struct {
	AudioID       string  `json:"audio_id"`
	StartPosition float64 `json:"start_position"`
}

// playNewBGM switches the BGM voice straight to a track outside the
// cue-list/manual-slot flow, bypassing whatever cue or manual selection is
// configured. The kernel auto-saves a breakpoint for whatever was playing.
func (c *Controller) playNewBGM(ctx echo.Context) error {
	var req playNewBGMRequest
	if err := ctx.Bind(&req); err != nil {
		return c.fail(ctx, http.StatusBadRequest, err)
	}
	audio := c.Catalog.AudioFile(req.AudioID)
	if audio == nil {
		return c.fail(ctx, http.StatusNotFound, errAudioNotFound)
	}
	return c.resultJSON(ctx, c.Kernel.PlayNewBGM(*audio, req.StartPosition))
}

type volumeRequest struct {
	Volume float64 `json:"volume"`
}

type volumeResult struct {
	Volume float64 `json:"volume"`
}

func (c *Controller) getBGMVolume(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, volumeResult{Volume: c.Kernel.BGMVolume()})
}

func (c *Controller) setBGMVolume(ctx echo.Context) error {
	var req volumeRequest
	if err := ctx.Bind(&req); err != nil {
		return c.fail(ctx, http.StatusBadRequest, err)
	}
	return ctx.JSON(http.StatusOK, volumeResult{Volume: c.Kernel.SetBGMVolume(req.Volume)})
}

func (c *Controller) getSFXVolume(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, volumeResult{Volume: c.Kernel.SFXVolume()})
}

func (c *Controller) setSFXVolume(ctx echo.Context) error {
	var req volumeRequest
	if err := ctx.Bind(&req); err != nil {
		return c.fail(ctx, http.StatusBadRequest, err)
	}
	return ctx.JSON(http.StatusOK, volumeResult{Volume: c.Kernel.SetSFXVolume(req.Volume)})
}

func (c *Controller) getState(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, c.Kernel.GetState())
}

// initModeRoutes registers the auto/manual mode switch and manual-mode
// configuration endpoints.
func (c *Controller) initModeRoutes() {
	g := c.Group.Group("/mode")
	g.GET("", c.getMode)
	g.POST("", c.setMode)
	g.POST("/manual-audio", c.setManualAudio)
	g.POST("/manual-start-position", c.setManualStartPosition)
	g.POST("/manual-silence-before", c.setManualSilenceBefore)
}

type modeResult struct {
	Mode model.Mode `json:"mode"`
}

func (c *Controller) getMode(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, modeResult{Mode: c.Kernel.Mode()})
}

type setModeRequest struct {
	Mode model.Mode `json:"mode"`
}

func (c *Controller) setMode(ctx echo.Context) error {
	var req setModeRequest
	if err := ctx.Bind(&req); err != nil {
		return c.fail(ctx, http.StatusBadRequest, err)
	}
	if req.Mode != model.ModeAuto && req.Mode != model.ModeManual {
		return c.fail(ctx, http.StatusBadRequest, errInvalidMode)
	}
	c.Kernel.SwitchMode(req.Mode)
	return ctx.JSON(http.StatusOK, modeResult{Mode: c.Kernel.Mode()})
}

func (c *Controller) setManualAudio(ctx echo.Context) error {
	var req struct {
		AudioID string `json:"audio_id"`
	}
	if err := ctx.Bind(&req); err != nil {
		return c.fail(ctx, http.StatusBadRequest, err)
	}
	audio := c.Catalog.AudioFile(req.AudioID)
	if audio == nil {
		return c.fail(ctx, http.StatusNotFound, errAudioNotFound)
	}
	c.Kernel.SetManualAudio(*audio)
	return c.resultJSON(ctx, true)
}

func (c *Controller) setManualStartPosition(ctx echo.Context) error {
	var req struct {
		Position float64 `json:"position"`
	}
	if err := ctx.Bind(&req); err != nil {
		return c.fail(ctx, http.StatusBadRequest, err)
	}
	c.Kernel.SetManualStartPosition(req.Position)
	return c.resultJSON(ctx, true)
}

func (c *Controller) setManualSilenceBefore(ctx echo.Context) error {
	var req struct {
		Duration float64 `json:"duration"`
	}
	if err := ctx.Bind(&req); err != nil {
		return c.fail(ctx, http.StatusBadRequest, err)
	}
	c.Kernel.SetManualSilenceBefore(req.Duration)
	return c.resultJSON(ctx, true)
}
