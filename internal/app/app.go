// Package app wires the VoxDesk licensing subsystem together: configuration,
// logging, telemetry, the single per-process license validator, its
// background revalidation loop, and the local diagnostics HTTP server.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"voxdesk/internal/config"
	"voxdesk/internal/infrastructure"
	"voxdesk/internal/license"
	handlers "voxdesk/internal/transport/http"
)

// Version is stamped at build time.
var Version = "dev"

// Application is the composition root. It owns the one validator instance
// per process and hands explicit references to the scheduler and handlers
// instead of exposing shared global state.
type Application struct {
	cfg       *config.Config
	logger    *slog.Logger
	telemetry *infrastructure.Telemetry
	validator *license.Validator
	scheduler *license.Scheduler
	server    *http.Server
}

// NewApplication builds the full object graph from configuration.
func NewApplication() (*Application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("initialize logger: %w", err)
	}

	telemetry, err := infrastructure.InitializeTelemetry("voxdesk", Version)
	if err != nil {
		return nil, fmt.Errorf("initialize telemetry: %w", err)
	}

	// Metrics are best effort: a registration failure must not keep the
	// application from starting.
	metrics, err := license.NewMetrics(telemetry.Meter(license.MeterName))
	if err != nil {
		logger.Warn("license metrics unavailable", slog.String("error", err.Error()))
		metrics = nil
	}

	validator := license.NewValidator(license.Options{
		LicenseKey:         cfg.License.Key,
		Endpoint:           cfg.License.Endpoint,
		CachePath:          cfg.License.CacheFile,
		DeviceIDPath:       cfg.License.DeviceIDFile,
		AppVersion:         Version,
		ValidationInterval: cfg.License.ValidationInterval,
		OfflineGracePeriod: cfg.License.OfflineGracePeriod,
		RequestTimeout:     cfg.License.RequestTimeout,
		Logger:             logger,
		Metrics:            metrics,
	})

	app := &Application{
		cfg:       cfg,
		logger:    logger,
		telemetry: telemetry,
		validator: validator,
		scheduler: license.NewScheduler(validator, logger),
	}
	app.server = &http.Server{
		Addr:         fmt.Sprintf("127.0.0.1:%d", cfg.Server.Port),
		Handler:      app.buildRouter(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	return app, nil
}

func (a *Application) buildRouter() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	limiter := rate.NewLimiter(rate.Limit(a.cfg.Server.ForceValidateRPS), a.cfg.Server.ForceValidateBurst)
	licenseHandler := handlers.NewLicenseHandler(a.validator, a.logger, limiter)
	healthHandler := handlers.NewHealthHandler(Version)

	r.Route("/api", func(r chi.Router) {
		r.Mount("/license", licenseHandler.Routes())
	})
	r.Get("/healthz", healthHandler.Healthz)
	r.Method(http.MethodGet, "/metrics", a.telemetry.PrometheusHandler)
	return r
}

// Run starts the subsystem and blocks until a signal or a fatal error. The
// startup validation runs synchronously first so feature gates are settled
// before the rest of the application comes up; its outcome is informational
// here because the validator already degrades to the free tier on failure.
func (a *Application) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	result := a.validator.Validate(ctx, false)
	a.logger.Info("startup license validation",
		slog.Bool("valid", result.Valid),
		slog.String("tier", string(result.EffectiveTier())),
		slog.Bool("offline_mode", result.OfflineMode),
		slog.String("error_code", string(result.ErrorCode)),
	)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.logger.Info("diagnostics server listening", slog.String("addr", a.server.Addr))
		if err := a.server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("diagnostics server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		if err := a.scheduler.Run(ctx); !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
		defer cancel()
		return a.server.Shutdown(shutdownCtx)
	})

	err := g.Wait()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if terr := a.telemetry.Shutdown(shutdownCtx); terr != nil {
		a.logger.Warn("telemetry shutdown failed", slog.String("error", terr.Error()))
	}
	return err
}
