package scoring

import (
	"fmt"
	"math"

	"github.com/scoutbeat/scoutbeat/internal/domain/feature"
)

// weightSumTolerance bounds the float drift allowed when checking that a
// weight table sums to 1.0.
const weightSumTolerance = 1e-9

// Weights maps feature names to their share of the final score. A table is
// immutable configuration: scoring behavior changes by swapping tables, not
// by mutating one in place.
type Weights map[string]float64

// Validate enforces the table invariants: no negative weight, and the
// weights sum to 1.0 within tolerance.
func (w Weights) Validate() error {
	if len(w) == 0 {
		return fmt.Errorf("%w: empty table", ErrInvalidWeights)
	}
	var sum float64
	for name, v := range w {
		if v < 0 {
			return fmt.Errorf("%w: negative weight %.4f for %q", ErrInvalidWeights, v, name)
		}
		sum += v
	}
	if math.Abs(sum-1.0) > weightSumTolerance {
		return fmt.Errorf("%w: weights sum to %.12f, want 1.0", ErrInvalidWeights, sum)
	}
	return nil
}

// clone copies the table so a model cannot observe later caller mutations.
func (w Weights) clone() Weights {
	out := make(Weights, len(w))
	for k, v := range w {
		out[k] = v
	}
	return out
}

// DefaultTrendingWeights is the shipped momentum table.
func DefaultTrendingWeights() Weights {
	return Weights{
		feature.TikTokPostsVelocity: 0.30, // primary signal
		feature.TikTokViewsVelocity: 0.20,
		feature.SpotifyStreamGrowth: 0.20,
		feature.PlaylistGrowth:      0.15,
		feature.CrossPlatformBoost:  0.10,
		feature.ChartEntryBonus:     0.05,
	}
}

// DefaultEvergreenWeights is the shipped stability table.
func DefaultEvergreenWeights() Weights {
	return Weights{
		feature.StreamConsistency: 0.40, // primary signal
		feature.ActiveMonthsRatio: 0.30,
		feature.LowVarianceBonus:  0.20,
		feature.ChartPersistence:  0.10,
	}
}

// Gate names, used in results, risk flags, and metrics labels.
const (
	GateTikTokPosts7d    = "min_tiktok_posts_7d"
	GateSpotifyStreams7d = "min_spotify_streams_7d"
	GateDataPoints       = "min_data_points"
	GateActiveMonths     = "min_active_months"
	GateAvgStreams       = "min_avg_streams"
)

// TrendingGates are the hard minimums a track must clear before the
// trending model computes anything.
type TrendingGates struct {
	MinTikTokPosts7d    float64
	MinSpotifyStreams7d float64
	MinDataPoints       int
}

// Validate rejects non-positive gates.
func (g TrendingGates) Validate() error {
	if g.MinTikTokPosts7d <= 0 || g.MinSpotifyStreams7d <= 0 || g.MinDataPoints <= 0 {
		return fmt.Errorf("%w: trending gates must be positive", ErrInvalidGates)
	}
	return nil
}

// EvergreenGates are the hard minimums for the evergreen model.
type EvergreenGates struct {
	MinActiveMonths int
	MinDataPoints   int
	MinAvgStreams   float64
}

// Validate rejects non-positive gates.
func (g EvergreenGates) Validate() error {
	if g.MinActiveMonths <= 0 || g.MinDataPoints <= 0 || g.MinAvgStreams <= 0 {
		return fmt.Errorf("%w: evergreen gates must be positive", ErrInvalidGates)
	}
	return nil
}

// DefaultTrendingGates returns the shipped trending minimums.
func DefaultTrendingGates() TrendingGates {
	return TrendingGates{
		MinTikTokPosts7d:    50,
		MinSpotifyStreams7d: 10_000,
		MinDataPoints:       7,
	}
}

// DefaultEvergreenGates returns the shipped evergreen minimums.
func DefaultEvergreenGates() EvergreenGates {
	return EvergreenGates{
		MinActiveMonths: 6,
		MinDataPoints:   90,
		MinAvgStreams:   5_000,
	}
}
