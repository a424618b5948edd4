package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// initSFXRoutes registers sound-effect overlay controls. sfx_id doubles as
// the catalog audio id of the track to overlay.
func (c *Controller) initSFXRoutes() {
	g := c.Group.Group("/sfx")
	g.POST("/:id/play", c.playSFX)
	g.POST("/:id/stop", c.stopSFX)
	g.POST("/:id/toggle", c.toggleSFX)
	g.GET("/:id/playing", c.sfxPlaying)
}

func (c *Controller) playSFX(ctx echo.Context) error {
	id := ctx.Param("id")
	audio := c.Catalog.AudioFile(id)
	if audio == nil {
		return c.fail(ctx, http.StatusNotFound, errAudioNotFound)
	}
	ok, err := c.Kernel.PlaySFX(id, *audio)
	if err != nil {
		return c.fail(ctx, http.StatusInternalServerError, err)
	}
	return c.resultJSON(ctx, ok)
}

func (c *Controller) stopSFX(ctx echo.Context) error {
	return c.resultJSON(ctx, c.Kernel.StopSFX(ctx.Param("id")))
}

type sfxToggleResult struct {
	IsPlaying bool `json:"is_playing"`
}

func (c *Controller) toggleSFX(ctx echo.Context) error {
	id := ctx.Param("id")
	audio := c.Catalog.AudioFile(id)
	if audio == nil {
		return c.fail(ctx, http.StatusNotFound, errAudioNotFound)
	}
	return ctx.JSON(http.StatusOK, sfxToggleResult{IsPlaying: c.Kernel.ToggleSFX(id, *audio)})
}

func (c *Controller) sfxPlaying(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, sfxToggleResult{IsPlaying: c.Kernel.IsSFXPlaying(ctx.Param("id"))})
}
