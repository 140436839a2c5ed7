package app

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/flemzord/finbridge/internal/config"
	"github.com/flemzord/finbridge/internal/gateway"
	"github.com/flemzord/finbridge/internal/server"
	"github.com/flemzord/finbridge/internal/status"
	"github.com/flemzord/finbridge/internal/telemetry"
)

// RunParams configures the main application loop.
type RunParams struct {
	// ConfigPath is an optional YAML routing override file.
	ConfigPath string

	// Version is injected at build time via ldflags.
	Version string
}

// Run loads configuration, assembles the core, starts the admin and
// status surfaces, and serves the stdio transport until EOF.
func Run(params RunParams) error {
	cfg, err := config.Load(params.ConfigPath)
	if err != nil {
		return err
	}

	// The transport owns stdout; all logging goes to stderr.
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	}))
	slog.SetDefault(logger)

	shutdownTraces, err := telemetry.Setup(context.Background(), logger)
	if err != nil {
		return err
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTraces(ctx); err != nil {
			logger.Warn("trace shutdown failed", "error", err)
		}
	}()

	promReg := prometheus.NewRegistry()
	metrics := gateway.NewMetrics(promReg)

	core := BuildCore(cfg, logger, metrics)

	if cfg.AdminAddr != "" {
		admin := gateway.NewServer(cfg.AdminAddr, core.StatusFunc(), promReg, logger)
		admin.Start()
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := admin.Shutdown(ctx); err != nil {
				logger.Warn("admin shutdown failed", "error", err)
			}
		}()
	}

	reporter, err := status.New(cfg.StatusInterval, core.StatusFunc(), logger)
	if err != nil {
		return err
	}
	reporter.Start()
	defer reporter.Stop()

	return server.New(core.Facade, params.Version, logger).Serve()
}
