// Command sampler publishes synthetic delivery metrics for Prometheus.
//
// Every interval (1s by default) it draws pending, on-the-way and delivered
// counts plus an average delivery time, logs one line per cycle and updates
// the gauges and summary served on 0.0.0.0:8000.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"delivery-metrics/internal/domain/entity"
	"delivery-metrics/internal/infra/profile"
	workerPkg "delivery-metrics/internal/infra/worker"
	"delivery-metrics/internal/observability/logging"
	"delivery-metrics/internal/observability/metrics"
	"delivery-metrics/internal/pkg/config"
	"delivery-metrics/internal/usecase/sample"
)

func main() {
	runID := uuid.NewString()
	logger := initLogger(runID)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	registry := metrics.NewRegistry()
	samplerMetrics := workerPkg.NewSamplerMetrics(registry)

	// Load sampler configuration (fail-open strategy)
	cfg, err := workerPkg.LoadConfigFromEnv(logger, samplerMetrics)
	if err != nil {
		logger.Error("failed to load sampler configuration", slog.Any("error", err))
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid sampler configuration", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("sampler configuration loaded",
		slog.Duration("interval", cfg.Interval),
		slog.Bool("high_pending_mode", cfg.HighPendingMode),
		slog.String("metrics_addr", cfg.MetricsAddr()),
		slog.Bool("health_enabled", cfg.HealthEnabled),
		slog.String("profile", cfg.ProfilePath))

	app, err := newApplication(logger, runID, cfg, registry, samplerMetrics)
	if err != nil {
		logger.Error("failed to initialize sampler", slog.Any("error", err))
		os.Exit(1)
	}

	if err := app.Run(ctx); err != nil {
		logger.Error("sampler failed", slog.Any("error", err))
		os.Exit(1)
	}
}

// initLogger builds the process logger from LOG_FORMAT and LOG_LEVEL and
// installs it as the slog default.
func initLogger(runID string) *slog.Logger {
	format := config.LoadEnvWithFallback("LOG_FORMAT", logging.FormatConsole,
		config.ValidateOneOf(logging.FormatConsole, logging.FormatText, logging.FormatJSON))

	logger := logging.New(format.Value, os.Stdout).With(slog.String("run_id", runID))
	slog.SetDefault(logger)

	for _, warning := range format.Warnings {
		logger.Warn("Configuration fallback applied",
			slog.String("field", "LogFormat"),
			slog.String("warning", warning))
	}
	return logger
}

// application wires the sampler process: metrics endpoint, scheduler,
// optional health server and optional profile watcher.
type application struct {
	cfg            *workerPkg.SamplerConfig
	logger         *slog.Logger
	registry       *prometheus.Registry
	delivery       *metrics.DeliveryMetrics
	samplerMetrics *workerPkg.SamplerMetrics
	service        *sample.Service
	baseProfile    entity.Profile
	health         *workerPkg.HealthServer

	// onListen, when set, receives the bound metrics address.
	onListen func(net.Addr)
}

func newApplication(logger *slog.Logger, runID string, cfg *workerPkg.SamplerConfig, registry *prometheus.Registry, samplerMetrics *workerPkg.SamplerMetrics) (*application, error) {
	delivery := metrics.NewDeliveryMetrics(registry)

	base := entity.DefaultProfile()
	base.HighPendingMode = cfg.HighPendingMode

	active := base
	if cfg.ProfilePath != "" {
		p, err := profile.Load(cfg.ProfilePath, base)
		if err != nil {
			return nil, err
		}
		active = p
		logger.Info("profile loaded",
			slog.String("path", cfg.ProfilePath),
			slog.Bool("high_pending_mode", active.HighPendingMode))
	}

	svc, err := sample.NewService(delivery, logger, sample.WithProfile(active))
	if err != nil {
		return nil, err
	}
	samplerMetrics.SetHighPendingMode(active.HighPendingMode)

	app := &application{
		cfg:            cfg,
		logger:         logger,
		registry:       registry,
		delivery:       delivery,
		samplerMetrics: samplerMetrics,
		service:        svc,
		baseProfile:    base,
	}
	if cfg.HealthEnabled {
		app.health = workerPkg.NewHealthServer(cfg.HealthAddr(), runID, logger)
	}
	return app, nil
}

// Run binds the metrics endpoint and samples until ctx is cancelled.
// It returns an error only when the endpoint cannot be bound or fails.
func (a *application) Run(ctx context.Context) error {
	var watcher *profile.Watcher
	if a.cfg.ProfilePath != "" {
		w, err := profile.NewWatcher(a.cfg.ProfilePath, a.baseProfile, a.logger,
			profile.WithRecorder(a.samplerMetrics))
		if err != nil {
			a.logger.Error("profile hot reload disabled", slog.Any("error", err))
		} else {
			watcher = w
		}
	}

	g, ctx := errgroup.WithContext(ctx)

	addr, err := startMetricsServer(ctx, g, a.logger, a.cfg.MetricsAddr(), metrics.Handler(a.registry, a.logger))
	if err != nil {
		if watcher != nil {
			_ = watcher.Close()
		}
		return err
	}
	if a.onListen != nil {
		a.onListen(addr)
	}

	if a.health != nil {
		g.Go(func() error {
			if err := a.health.Start(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
				a.logger.Error("health server failed", slog.Any("error", err))
			}
			return nil
		})
	}

	if watcher != nil {
		g.Go(func() error {
			if err := watcher.Run(ctx, a.applyProfile); err != nil {
				a.logger.Error("profile watcher failed", slog.Any("error", err))
			}
			return nil
		})
	}

	g.Go(func() error {
		startScheduler(ctx, a.logger, a.cfg.Interval, a.runCycle)
		return nil
	})

	err = g.Wait()

	if snap, snapErr := a.delivery.Snapshot(); snapErr == nil {
		a.logger.Info("final delivery metrics",
			slog.Float64("total_deliveries", snap.Total),
			slog.Float64("pending_deliveries", snap.Pending),
			slog.Float64("on_the_way_deliveries", snap.OnTheWay),
			slog.Uint64("avg_time_observations", snap.AvgTimeCount),
			slog.Float64("avg_time_sum", snap.AvgTimeSum))
	}
	return err
}

// runCycle runs one sampling cycle and its bookkeeping.
func (a *application) runCycle(ctx context.Context) {
	start := time.Now()
	a.service.Cycle(ctx)
	a.samplerMetrics.RecordCycle(time.Since(start))

	if a.health != nil {
		a.health.SetReady(true)
	}
}

// applyProfile swaps in a reloaded profile.
func (a *application) applyProfile(p entity.Profile) error {
	if err := a.service.SetProfile(p); err != nil {
		return err
	}
	a.samplerMetrics.SetHighPendingMode(p.HighPendingMode)
	return nil
}
