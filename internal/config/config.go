// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New() to build a Config with defaults, Load(ctx) to layer
//   file and environment overrides on top.
// - Validation is fail-fast: a config that would produce an invalid
//   scoring model never leaves Load.
package config

import (
	"runtime"

	"github.com/scoutbeat/scoutbeat/internal/domain/scoring"
)

// Config contains process configuration. Extend as needed.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":8880".
	Addr string `koanf:"addr"`

	// StorePath points at the SQLite database file. Empty selects the
	// in-memory store.
	StorePath string `koanf:"store_path"`

	// QueueSize bounds the in-memory scoring job queue.
	QueueSize int `koanf:"queue_size"`

	// WorkerCount sets the number of scoring workers.
	WorkerCount int `koanf:"worker_count"`

	// MaxListLimit caps GET /tracks?limit.
	MaxListLimit int `koanf:"max_list_limit"`

	// TrendingWeights and EvergreenWeights override the built-in weight
	// tables. Each must sum to 1.0 when set.
	TrendingWeights  map[string]float64 `koanf:"trending_weights"`
	EvergreenWeights map[string]float64 `koanf:"evergreen_weights"`

	// TrendingGates configures the minimum-signal thresholds for the
	// trending model. Zero values keep the defaults.
	TrendingGates GatesConfig `koanf:"trending_gates"`

	// EvergreenGates configures the minimum-signal thresholds for the
	// evergreen model.
	EvergreenGates GatesConfig `koanf:"evergreen_gates"`

	// CacheTTLListMS and CacheTTLFilteredMS set how long ranked track
	// listings stay cached. Label-filtered listings are more expensive
	// to build, so they get a longer TTL.
	CacheTTLListMS     int `koanf:"cache_ttl_list_ms"`
	CacheTTLFilteredMS int `koanf:"cache_ttl_filtered_ms"`
}

// GatesConfig carries gate overrides for one score type. Only fields
// meaningful for that type are read.
type GatesConfig struct {
	MinTikTokPosts7d    float64 `koanf:"min_tiktok_posts_7d"`
	MinSpotifyStreams7d float64 `koanf:"min_spotify_streams_7d"`
	MinDataPoints       int     `koanf:"min_data_points"`
	MinActiveMonths     int     `koanf:"min_active_months"`
	MinAvgStreams       float64 `koanf:"min_avg_streams"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:           "info",
		Addr:               ":8880",
		StorePath:          "",
		QueueSize:          10_000,
		WorkerCount:        runtime.NumCPU() * 2,
		MaxListLimit:       200,
		CacheTTLListMS:     30_000,
		CacheTTLFilteredMS: 120_000,
	}
}

// TrendingModelGates merges the configured trending overrides onto the
// defaults.
func (c *Config) TrendingModelGates() scoring.TrendingGates {
	g := scoring.DefaultTrendingGates()
	if c.TrendingGates.MinTikTokPosts7d > 0 {
		g.MinTikTokPosts7d = c.TrendingGates.MinTikTokPosts7d
	}
	if c.TrendingGates.MinSpotifyStreams7d > 0 {
		g.MinSpotifyStreams7d = c.TrendingGates.MinSpotifyStreams7d
	}
	if c.TrendingGates.MinDataPoints > 0 {
		g.MinDataPoints = c.TrendingGates.MinDataPoints
	}
	return g
}

// EvergreenModelGates merges the configured evergreen overrides onto the
// defaults.
func (c *Config) EvergreenModelGates() scoring.EvergreenGates {
	g := scoring.DefaultEvergreenGates()
	if c.EvergreenGates.MinActiveMonths > 0 {
		g.MinActiveMonths = c.EvergreenGates.MinActiveMonths
	}
	if c.EvergreenGates.MinDataPoints > 0 {
		g.MinDataPoints = c.EvergreenGates.MinDataPoints
	}
	if c.EvergreenGates.MinAvgStreams > 0 {
		g.MinAvgStreams = c.EvergreenGates.MinAvgStreams
	}
	return g
}
