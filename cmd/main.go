package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/angeloszaimis/health-validator/config"
	"github.com/angeloszaimis/health-validator/internal/cache"
	"github.com/angeloszaimis/health-validator/internal/coordinator"
	"github.com/angeloszaimis/health-validator/internal/handler"
	"github.com/angeloszaimis/health-validator/internal/healthcheck"
	"github.com/angeloszaimis/health-validator/internal/httpserver"
	"github.com/angeloszaimis/health-validator/internal/metrics"
	"github.com/angeloszaimis/health-validator/internal/telemetry"
	"github.com/angeloszaimis/health-validator/pkg/logger"
)

// Slack on top of the probe timeout for writing a /validate response.
const writeTimeoutGrace = 5 * time.Second

type application struct {
	router    http.Handler
	telemetry *telemetry.Provider
	collector *metrics.Collector
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.Any("err", err))
		os.Exit(1)
	}

	log := logger.New(cfg.Logging.Level, true, cfg.Server.Environment, cfg.Server.ServiceName)

	if err := run(cfg, log); err != nil {
		log.Error("Validator stopped", slog.Any("err", err))
		os.Exit(1)
	}
}

func run(cfg *config.Config, log *slog.Logger) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	app, err := newApplication(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("failed to initialize validator: %w", err)
	}
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := app.telemetry.Shutdown(shutdownCtx); err != nil {
			log.Error("Error flushing telemetry", slog.Any("err", err))
		}
	}()
	app.collector.Start(ctx)

	srv, err := httpserver.New(cfg.Server.Address, app.router,
		httpserver.WithWriteTimeout(cfg.ProbeTimeout()+writeTimeoutGrace))
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	srvErrCh := make(chan error, 1)

	go func() {
		srvErrCh <- srv.Start()
	}()

	log.Info("Validator listening",
		slog.String("address", cfg.Server.Address),
		slog.Duration("probe_timeout", cfg.ProbeTimeout()),
		slog.Duration("slow_threshold", cfg.SlowThreshold()),
		slog.Int("targets", len(cfg.Targets)))

	select {
	case <-ctx.Done():
		log.Info("Shutting down gracefully...")
		if err := srv.Shutdown(context.Background()); err != nil {
			log.Error("Error during shutdown", slog.Any("err", err))
		}
		return nil
	case err := <-srvErrCh:
		return err
	}
}

// newApplication builds the target registry, prober, cache and coordinator and
// mounts them behind the router. The collector is returned unstarted.
func newApplication(ctx context.Context, cfg *config.Config, log *slog.Logger) (*application, error) {
	registry, err := cfg.Registry()
	if err != nil {
		return nil, err
	}

	tp, err := telemetry.New(ctx, cfg.TelemetryConfig())
	if err != nil {
		return nil, err
	}

	recorder, err := telemetry.NewRecorder(tp.Meter())
	if err != nil {
		_ = tp.Shutdown(ctx)
		return nil, err
	}

	collector := metrics.NewCollector(cfg.Metrics.BufferSize, log)
	prober := healthcheck.NewProber(cfg.ProbeTimeout(), cfg.SlowThreshold(), log)
	healthCache := cache.New()

	coord := coordinator.New(registry, prober, healthCache, log, tp.Tracer(), recorder, collector)
	validatorHandler := handler.NewValidatorHandler(log, coord, healthCache, cfg.Server.ServiceName)

	return &application{
		router:    handler.LogRequests(log, setupRouter(validatorHandler, collector, tp.MetricsHandler())),
		telemetry: tp,
		collector: collector,
	}, nil
}
