package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"showconsole/internal/model"
)

// initBreakpointRoutes registers save/restore/list endpoints for the
// per-audio resume-position store.
func (c *Controller) initBreakpointRoutes() {
	g := c.Group.Group("/breakpoints")
	g.POST("", c.saveBreakpoint)
	g.POST("/restore", c.restoreBreakpoint)
	g.GET("/:audio_id", c.listBreakpoints)
}

type saveBreakpointRequest struct {
	Label string `json:"label"`
}

type saveBreakpointResult struct {
	Success bool   `json:"success"`
	BPID    string `json:"bp_id,omitempty"`
}

func (c *Controller) saveBreakpoint(ctx echo.Context) error {
	var req saveBreakpointRequest
	_ = ctx.Bind(&req)
	bpID, ok := c.Kernel.SaveBreakpoint(req.Label)
	return ctx.JSON(http.StatusOK, saveBreakpointResult{Success: ok, BPID: bpID})
}

type restoreBreakpointRequest struct {
	AudioID string `json:"audio_id"`
	BPID    string `json:"bp_id"`
}

func (c *Controller) restoreBreakpoint(ctx echo.Context) error {
	var req restoreBreakpointRequest
	if err := ctx.Bind(&req); err != nil {
		return c.fail(ctx, http.StatusBadRequest, err)
	}
	return c.resultJSON(ctx, c.Kernel.RestoreBreakpoint(req.AudioID, req.BPID))
}

func (c *Controller) listBreakpoints(ctx echo.Context) error {
	audioID := ctx.Param("audio_id")
	list := c.Bps.GetAll(audioID)
	if list == nil {
		list = []model.Breakpoint{}
	}
	return ctx.JSON(http.StatusOK, list)
}
