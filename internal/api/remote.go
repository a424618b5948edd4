package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// initRemoteRoutes registers the priority-arbitration controls: toggling
// whether the local operator holds priority, and draining the queue of
// remote commands deferred while it did.
func (c *Controller) initRemoteRoutes() {
	g := c.Group.Group("/remote")
	g.GET("/priority", c.getLocalPriority)
	g.POST("/priority", c.setLocalPriority)
	g.POST("/process-pending", c.processPending)
}

type priorityResult struct {
	LocalPriority bool `json:"local_priority"`
}

func (c *Controller) getLocalPriority(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, priorityResult{LocalPriority: c.Kernel.LocalPriority()})
}

type setPriorityRequest struct {
	Enabled bool `json:"enabled"`
}

func (c *Controller) setLocalPriority(ctx echo.Context) error {
	var req setPriorityRequest
	if err := ctx.Bind(&req); err != nil {
		return c.fail(ctx, http.StatusBadRequest, err)
	}
	c.Kernel.SetLocalPriority(req.Enabled)
	return ctx.JSON(http.StatusOK, priorityResult{LocalPriority: c.Kernel.LocalPriority()})
}

func (c *Controller) processPending(ctx echo.Context) error {
	c.Kernel.ProcessPendingOps()
	return c.resultJSON(ctx, true)
}
