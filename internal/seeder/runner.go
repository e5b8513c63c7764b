// Package seeder generates synthetic track snapshots and submits them to
// a running instance, then reads back the ranked listings. It exists for
// local development and smoke testing, not production ingestion.
package seeder

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/scoutbeat/scoutbeat/pkg/logger"
)

// scoreSettleDelay gives the async workers time to drain before ranked
// listings are fetched.
const scoreSettleDelay = 2 * time.Second

// Run executes the complete seeding pass.
func Run(ctx context.Context, config *Config) error {
	stats := &Stats{StartTime: time.Now()}
	log := logger.Get()

	log.Info(ctx, "starting scoutbeat seeder",
		logger.String("baseURL", config.BaseURL),
		logger.Int("tracks", config.NumTracks),
		logger.Int("workers", config.Workers),
		logger.String("timeout", config.Timeout.String()),
		logger.Int("topN", config.TopN))

	if err := checkServiceHealth(ctx, config); err != nil {
		return fmt.Errorf("service health check failed: %w", err)
	}

	snapshots := generateSnapshots(ctx, config, stats)
	submitSnapshots(ctx, config, snapshots, stats)

	log.Info(ctx, "submission complete",
		logger.Int("generated", stats.Generated),
		logger.Any("successful", stats.Successful),
		logger.Any("failed", stats.Failed),
		logger.String("elapsed", time.Since(stats.StartTime).String()))

	time.Sleep(scoreSettleDelay)

	for _, scoreType := range []string{"trending", "evergreen"} {
		if err := printRanking(ctx, config, scoreType); err != nil {
			return err
		}
	}
	return nil
}

// checkServiceHealth verifies the target instance responds on /healthz.
func checkServiceHealth(ctx context.Context, config *Config) error {
	client := newHTTPClient(config.Timeout)
	resp, err := client.Get(config.BaseURL + "/healthz")
	if err != nil {
		return err
	}
	if _, err := readResponseBody(resp); err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected health status %d", resp.StatusCode)
	}
	logger.Get().Info(ctx, "service is healthy", logger.String("baseURL", config.BaseURL))
	return nil
}

// printRanking fetches and logs one ranked listing.
func printRanking(ctx context.Context, config *Config, scoreType string) error {
	client := newHTTPClient(config.Timeout)
	url := config.BaseURL + "/tracks?type=" + scoreType + "&limit=" + strconv.Itoa(config.TopN)

	resp, err := client.Get(url)
	if err != nil {
		return err
	}
	body, err := readResponseBody(resp)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("ranking fetch failed with status %d", resp.StatusCode)
	}

	var entries []RankedEntry
	if err := json.Unmarshal(body, &entries); err != nil {
		return fmt.Errorf("decode ranking: %w", err)
	}

	log := logger.Get()
	log.Info(ctx, "ranked listing", logger.String("type", scoreType), logger.Int("entries", len(entries)))
	for _, e := range entries {
		log.Info(ctx, "entry",
			logger.Int("rank", e.Rank),
			logger.String("track", e.Track.ID),
			logger.Float64("value", e.Record.Value),
			logger.String("label", e.Label),
			logger.String("summary", e.Record.Summary))
	}
	return nil
}
