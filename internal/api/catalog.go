package api

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"showconsole/internal/model"
)

// initCatalogRoutes registers cue-list and audio-registry editing
// endpoints. These mutate the catalog directly; none of them go through
// the priority arbiter, since catalog editing is not a playback command.
func (c *Controller) initCatalogRoutes() {
	g := c.Group.Group("/catalog")
	g.GET("/cues", c.listCues)
	g.POST("/cues", c.addCue)
	g.PUT("/cues", c.updateCues)
	g.DELETE("/cues/:id", c.deleteCue)

	g.GET("/audio", c.listAudio)
	g.POST("/audio", c.addAudio)
	g.DELETE("/audio/:id", c.deleteAudio)
}

// listCues briefly caches the marshaled cue list: the UI's cue panel
// polls this endpoint on a timer, and cues change far less often than
// they're read.
func (c *Controller) listCues(ctx echo.Context) error {
	if cached, ok := c.actionCache.Get("cues"); ok {
		return ctx.JSONBlob(http.StatusOK, cached.([]byte))
	}
	cues := c.Catalog.Cues()
	blob, err := json.Marshal(cues)
	if err != nil {
		return c.fail(ctx, http.StatusInternalServerError, err)
	}
	c.actionCache.SetDefault("cues", blob)
	return ctx.JSONBlob(http.StatusOK, blob)
}

func (c *Controller) addCue(ctx echo.Context) error {
	var cue model.Cue
	if err := ctx.Bind(&cue); err != nil {
		return c.fail(ctx, http.StatusBadRequest, err)
	}
	if cue.ID == "" {
		cue.ID = uuid.NewString()
	}
	c.Catalog.AddCue(cue)
	c.actionCache.Delete("cues")
	return ctx.JSON(http.StatusCreated, cue)
}

// updateCues applies a batch of cue replacements in one request, matching
// the command surface's update_cues entry (cue payload(s)).
func (c *Controller) updateCues(ctx echo.Context) error {
	var cues []model.Cue
	if err := ctx.Bind(&cues); err != nil {
		return c.fail(ctx, http.StatusBadRequest, err)
	}
	ok := true
	for _, cue := range cues {
		if !c.Catalog.UpdateCue(cue) {
			ok = false
		}
	}
	c.actionCache.Delete("cues")
	return c.resultJSON(ctx, ok)
}

func (c *Controller) deleteCue(ctx echo.Context) error {
	ok := c.Catalog.RemoveCue(ctx.Param("id"))
	c.actionCache.Delete("cues")
	return c.resultJSON(ctx, ok)
}

func (c *Controller) listAudio(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, c.Catalog.AudioFiles())
}

func (c *Controller) addAudio(ctx echo.Context) error {
	var track model.AudioTrack
	if err := ctx.Bind(&track); err != nil {
		return c.fail(ctx, http.StatusBadRequest, err)
	}
	if track.ID == "" {
		track.ID = uuid.NewString()
	}
	c.Catalog.AddAudioFile(track)
	return ctx.JSON(http.StatusCreated, track)
}

// deleteAudio refuses with 409 Conflict if any cue still references the
// audio, matching the command surface's "delete refused if referenced".
func (c *Controller) deleteAudio(ctx echo.Context) error {
	ok, err := c.Catalog.RemoveAudioFile(ctx.Param("id"))
	if err != nil {
		return c.fail(ctx, http.StatusConflict, err)
	}
	return c.resultJSON(ctx, ok)
}
