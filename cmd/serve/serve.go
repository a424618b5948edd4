// Package serve wires the console's dependencies together and runs the
// HTTP command surface until interrupted.
package serve

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"showconsole/internal/api"
	"showconsole/internal/audiomixer"
	"showconsole/internal/audiomixer/backend"
	"showconsole/internal/breakpoint"
	"showconsole/internal/catalog"
	"showconsole/internal/conf"
	"showconsole/internal/events"
	"showconsole/internal/logging"
	"showconsole/internal/metrics"
	"showconsole/internal/notify"
	"showconsole/internal/showcontrol"
)

var log = logging.ForService("serve")

// Command creates the cobra command that starts the console server.
func Command() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the show-control console server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(conf.Setting())
		},
	}
}

func run(settings *conf.Settings) error {
	cat := catalog.New()
	if settings.Storage.CueListPath != "" {
		if err := cat.LoadConfig(settings.Storage.CueListPath); err != nil {
			log.Warn("loading cue list", "path", settings.Storage.CueListPath, "error", err)
		}
	}

	bps := breakpoint.New()
	if settings.Storage.BreakpointPath != "" {
		if err := bps.LoadFromFile(settings.Storage.BreakpointPath); err != nil {
			log.Warn("loading breakpoints", "path", settings.Storage.BreakpointPath, "error", err)
		}
	}

	bus := events.New(64)

	conf.PrintUserInfo()
	player, err := backend.NewPlayer(settings.Audio.OutputDevice, settings.Audio.SFXChannels, settings.Audio.SampleRate)
	if err != nil {
		return fmt.Errorf("opening audio device: %w", err)
	}
	mixer := audiomixer.New(player)

	silenceTick := parseDurationOr(settings.Silence.TickInterval, 100*time.Millisecond)
	kernel := showcontrol.New(mixer, cat, bps, bus, silenceTick)
	kernel.SetLocalPriority(settings.Priority.LocalPriorityDefault)
	kernel.SetBGMVolume(settings.Audio.DefaultVolume)
	kernel.SetSFXVolume(settings.Audio.DefaultVolume)

	registry := prometheus.NewRegistry()
	var metricsServer *http.Server
	if settings.Metrics.Enabled {
		kernel.SetMetrics(metrics.NewConsoleMetrics(registry))
		metricsServer = &http.Server{Addr: settings.Metrics.Listen, Handler: metrics.Handler(registry)}
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Warn("metrics server stopped", "error", err)
			}
		}()
	}

	publisher := notify.NewPublisher(settings, bus)
	defer publisher.Shutdown()

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	api.New(e, kernel, cat, bps, bus)

	listen := settings.Server.Listen
	if listen == "" {
		listen = ":8090"
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info("starting server", "listen", listen)
		if err := e.Start(listen); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		return fmt.Errorf("server: %w", err)
	case sig := <-sigCh:
		log.Info("shutting down", "signal", sig.String())
	}

	grace := parseDurationOr(settings.Server.ShutdownGrace, 5*time.Second)
	ctx, cancel := context.WithTimeout(context.Background(), grace)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		log.Warn("http server shutdown", "error", err)
	}
	if metricsServer != nil {
		if err := metricsServer.Shutdown(ctx); err != nil {
			log.Warn("metrics server shutdown", "error", err)
		}
	}

	if settings.Storage.CueListPath != "" {
		if err := cat.SaveConfig(settings.Storage.CueListPath); err != nil {
			log.Warn("saving cue list", "error", err)
		}
	}
	if settings.Storage.BreakpointPath != "" {
		if err := bps.SaveToFile(settings.Storage.BreakpointPath); err != nil {
			log.Warn("saving breakpoints", "error", err)
		}
	}

	kernel.Shutdown()
	bus.Shutdown()
	if err := player.Close(); err != nil {
		log.Warn("closing audio device", "error", err)
	}
	return nil
}

func parseDurationOr(s string, fallback time.Duration) time.Duration {
	if s == "" {
		return fallback
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		log.Warn("invalid duration, using default", "value", s, "default", fallback, "error", err)
		return fallback
	}
	return d
}
