package config

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/scoutbeat/scoutbeat/internal/domain/scoring"
)

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):.
//  1. defaults (New())
//  2. file (YAML) if SCOUTBEAT_CONFIG is set
//  3. env (prefix SCOUTBEAT_)
func Load(_ context.Context) (*Config, error) {
	base := New()

	k := koanf.New(".")

	// Load from file if provided
	if path := os.Getenv("SCOUTBEAT_CONFIG"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
		}
	}

	// Environment variables: SCOUTBEAT_ADDR, SCOUTBEAT_QUEUE_SIZE, ...
	// Map env keys like SCOUTBEAT_QUEUE_SIZE -> queue_size (flat keys)
	// Preserve underscores to match koanf tags on the struct.
	envProvider := env.Provider("SCOUTBEAT_", ".", func(s string) string {
		s = strings.ToLower(s)
		s = strings.TrimPrefix(s, "scoutbeat_")
		return s
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	// Unmarshal into a copy
	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// validate rejects configs that would misbehave at runtime. Weight tables
// are checked here so a bad override fails at startup, not on the first
// scoring job.
func (c *Config) validate() error {
	if c.Addr == "" {
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	}
	if c.QueueSize < 1 {
		return fmt.Errorf("%w: queue_size must be positive", ErrInvalidConfig)
	}
	if c.MaxListLimit < 1 {
		return fmt.Errorf("%w: max_list_limit must be positive", ErrInvalidConfig)
	}
	if c.CacheTTLListMS < 1 || c.CacheTTLFilteredMS < 1 {
		return fmt.Errorf("%w: cache TTLs must be positive", ErrInvalidConfig)
	}
	if len(c.TrendingWeights) > 0 {
		if err := scoring.Weights(c.TrendingWeights).Validate(); err != nil {
			return fmt.Errorf("%w: trending_weights: %w", ErrInvalidConfig, err)
		}
	}
	if len(c.EvergreenWeights) > 0 {
		if err := scoring.Weights(c.EvergreenWeights).Validate(); err != nil {
			return fmt.Errorf("%w: evergreen_weights: %w", ErrInvalidConfig, err)
		}
	}
	if err := c.TrendingModelGates().Validate(); err != nil {
		return fmt.Errorf("%w: trending_gates: %w", ErrInvalidConfig, err)
	}
	if err := c.EvergreenModelGates().Validate(); err != nil {
		return fmt.Errorf("%w: evergreen_gates: %w", ErrInvalidConfig, err)
	}
	return nil
}
