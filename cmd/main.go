package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/scoutbeat/scoutbeat/internal/adapters/http/api"
	"github.com/scoutbeat/scoutbeat/internal/adapters/http/swagger"
	app "github.com/scoutbeat/scoutbeat/internal/app"
	"github.com/scoutbeat/scoutbeat/internal/config"
	"github.com/scoutbeat/scoutbeat/internal/domain/scoring"
	"github.com/scoutbeat/scoutbeat/pkg/logger"
)

// HTTP server timeout constants.
const (
	readTimeout       = 10 * time.Second
	writeTimeout      = 10 * time.Second
	idleTimeout       = 60 * time.Second
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 30 * time.Second
)

func main() {
	// Disable default Go metrics collection to avoid duplicate metrics.
	prometheus.Unregister(collectors.NewGoCollector())
	prometheus.Unregister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	if err := logger.Init(); err != nil {
		// Use stderr for initialization errors since logger isn't available yet
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		return
	}

	log := logger.Get()

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		return
	}

	// Apply configured log level (fallback to info on invalid input)
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	models, err := buildModels(cfg)
	if err != nil {
		os.Stderr.WriteString("failed to build scoring models: " + err.Error() + "\n")
		return
	}

	svc, err := app.New(
		app.WithLogger(log),
		app.WithStorePath(cfg.StorePath),
		app.WithWorkerCount(cfg.WorkerCount),
		app.WithQueueSize(cfg.QueueSize),
		app.WithMaxListLimit(cfg.MaxListLimit),
		app.WithListTTLs(
			time.Duration(cfg.CacheTTLListMS)*time.Millisecond,
			time.Duration(cfg.CacheTTLFilteredMS)*time.Millisecond,
		),
		app.WithModels(models...),
	)
	if err != nil {
		os.Stderr.WriteString("failed to build service: " + err.Error() + "\n")
		return
	}
	if err := svc.Start(ctx); err != nil {
		os.Stderr.WriteString("failed to start service: " + err.Error() + "\n")
		return
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := svc.Stop(stopCtx); err != nil {
			log.Error(stopCtx, "service stop failed", logger.Error(err))
		}
	}()

	// HTTP mux and routes.
	mux := http.NewServeMux()

	// API documentation under /api-docs.
	swagger.Register(ctx, mux)

	apiServer := api.NewServer(svc, svc)
	apiServer.Register(ctx, mux)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	go func() {
		log.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			os.Stderr.WriteString("HTTP server failed: " + err.Error() + "\n")
			stop()
		}
	}()

	// Wait for shutdown signal
	<-ctx.Done()
	log.Info(ctx, "shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(ctx, "server shutdown failed", logger.Error(err))
	}

	log.Info(ctx, "server stopped")
}

// buildModels constructs the scoring models from configured weight and
// gate overrides. A misconfigured table fails here, before any job runs.
func buildModels(cfg *config.Config) ([]scoring.Model, error) {
	trending, err := scoring.NewTrendingModel(
		scoring.WithTrendingWeights(scoring.Weights(cfg.TrendingWeights)),
		scoring.WithTrendingGates(cfg.TrendingModelGates()),
	)
	if err != nil {
		return nil, err
	}
	evergreen, err := scoring.NewEvergreenModel(
		scoring.WithEvergreenWeights(scoring.Weights(cfg.EvergreenWeights)),
		scoring.WithEvergreenGates(cfg.EvergreenModelGates()),
	)
	if err != nil {
		return nil, err
	}
	return []scoring.Model{trending, evergreen}, nil
}
