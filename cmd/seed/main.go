package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/scoutbeat/scoutbeat/internal/seeder"
	"github.com/scoutbeat/scoutbeat/pkg/logger"
)

func main() {
	var cfg seeder.Config

	flag.StringVar(&cfg.BaseURL, "url", "http://localhost:8880", "base URL of the service")
	flag.IntVar(&cfg.NumTracks, "tracks", 200, "number of synthetic tracks to generate")
	flag.IntVar(&cfg.Workers, "workers", runtime.NumCPU()*2, "number of concurrent submitters")
	flag.DurationVar(&cfg.Timeout, "timeout", 30*time.Second, "HTTP request timeout")
	flag.IntVar(&cfg.TopN, "top", 20, "number of ranked entries to fetch afterwards")
	flag.BoolVar(&cfg.Verbose, "verbose", false, "enable verbose logging")
	flag.Parse()

	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	if cfg.Verbose {
		_ = logger.SetLevelString("debug")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := seeder.Run(ctx, &cfg); err != nil {
		logger.Get().Error(ctx, "seeding failed", logger.Error(err))
		os.Exit(1)
	}
}
