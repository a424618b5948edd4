// Package api exposes the show-control kernel over HTTP (the command
// surface) and a WebSocket event stream (the broadcast), grounded on the
// echo-based v2 API the rest of this codebase's HTTP surfaces use.
package api

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/patrickmn/go-cache"

	"showconsole/internal/breakpoint"
	"showconsole/internal/catalog"
	"showconsole/internal/events"
	"showconsole/internal/logging"
	"showconsole/internal/showcontrol"
)

var log = logging.ForService("api")

// Controller owns the HTTP command surface and WebSocket event stream for
// a single show-control kernel instance.
type Controller struct {
	Echo    *echo.Echo
	Group   *echo.Group
	Kernel  *showcontrol.Kernel
	Catalog *catalog.Catalog
	Bps     *breakpoint.Store
	Bus     *events.Bus

	actionCache *cache.Cache

	hub *eventHub

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New wires a Controller's routes onto e's "/api/v2" group and starts the
// event-stream hub's broadcast goroutine, subscribing it to bus.
func New(e *echo.Echo, kernel *showcontrol.Kernel, cat *catalog.Catalog, bps *breakpoint.Store, bus *events.Bus) *Controller {
	ctx, cancel := context.WithCancel(context.Background())

	c := &Controller{
		Echo:        e,
		Kernel:      kernel,
		Catalog:     cat,
		Bps:         bps,
		Bus:         bus,
		actionCache: cache.New(2*time.Second, 10*time.Second),
		ctx:         ctx,
		cancel:      cancel,
	}

	c.Group = e.Group("/api/v2")
	c.Group.Use(middleware.Recover())
	c.Group.Use(middleware.CORS())
	c.Group.Use(middleware.BodyLimit("256K"))
	c.Group.Use(c.loggingMiddleware())

	c.Group.GET("/health", c.healthCheck)

	c.initControlRoutes()
	c.initModeRoutes()
	c.initSFXRoutes()
	c.initBreakpointRoutes()
	c.initCatalogRoutes()
	c.initRemoteRoutes()
	c.initStreamRoutes()

	c.hub = newEventHub(log)
	subID := bus.Subscribe(c.hub.broadcast)
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		<-ctx.Done()
		bus.Unsubscribe(subID)
	}()

	return c
}

// Shutdown stops the event hub and its client connections.
func (c *Controller) Shutdown() {
	c.cancel()
	c.hub.closeAll()
	c.wg.Wait()
}

func (c *Controller) loggingMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			start := time.Now()
			err := next(ctx)
			log.Debug("api request",
				"method", ctx.Request().Method,
				"path", ctx.Request().URL.Path,
				"status", ctx.Response().Status,
				"latency_ms", time.Since(start).Milliseconds(),
			)
			return err
		}
	}
}

func (c *Controller) healthCheck(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, map[string]any{"status": "ok"})
}

// errorResponse is the JSON shape returned for every non-2xx response.
type errorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

func (c *Controller) fail(ctx echo.Context, status int, err error) error {
	return ctx.JSON(status, errorResponse{Success: false, Error: err.Error()})
}

// isRemoteSource reports whether a request identifies itself as arriving
// from a separate remote-control client rather than the local operator's
// own console, for priority arbitration. Absent the header, a request is
// treated as local.
func isRemoteSource(ctx echo.Context) bool {
	return ctx.Request().Header.Get("X-Command-Source") == "remote"
}
