package seeder

import (
	"context"
	"crypto/rand"
	"math/big"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/scoutbeat/scoutbeat/pkg/logger"
)

// Constants for random number generation.
const (
	randomFloatDivisor = 1000000
	archetypeDivisor   = 5
)

// Track archetypes. Each produces a distinct metric history so a seeded
// instance exercises gates, both models and the label classifier.
const (
	caseViralRiser      = 0
	caseSteadyEvergreen = 1
	caseSparseNewcomer  = 2
	caseDecliner        = 3
	caseCrossPlatform   = 4
)

// Daily metric generation ranges.
const (
	basePostsMin     = 20.0
	basePostsRange   = 80.0
	baseStreamsMin   = 4_000.0
	baseStreamsRange = 12_000.0
	jitterRange      = 0.2
	riserAccel       = 1.08
	declinerDecay    = 0.96
)

var labelTexts = []string{
	"Columbia Records, a Division of Sony Music Entertainment",
	"Universal Music Operations Limited",
	"Warner Records Inc.",
	"BMG Rights Management GmbH",
	"Distributed by DistroKid",
	"Self-released",
}

// getRandomFloat returns a random float64 between 0.0 and 1.0 using crypto/rand.
func getRandomFloat() float64 {
	n, _ := rand.Int(rand.Reader, big.NewInt(randomFloatDivisor))
	return float64(n.Int64()) / float64(randomFloatDivisor)
}

// getRandomInt returns a random int in [0, max).
func getRandomInt(max int64) int {
	n, _ := rand.Int(rand.Reader, big.NewInt(max))
	return int(n.Int64())
}

// generateSnapshots builds synthetic track snapshots across the archetypes.
func generateSnapshots(ctx context.Context, config *Config, stats *Stats) []Snapshot {
	snapshots := make([]Snapshot, 0, config.NumTracks)
	now := time.Now().UTC().Truncate(24 * time.Hour)

	for i := 0; i < config.NumTracks; i++ {
		archetype := getRandomInt(archetypeDivisor)
		trackID := "seed-" + uuid.NewString()
		snap := Snapshot{
			TrackID:   trackID,
			Title:     "Seed Track " + strconv.Itoa(i),
			Artist:    "Seed Artist " + strconv.Itoa(i%25),
			LabelText: labelTexts[getRandomInt(int64(len(labelTexts)))],
			Points:    buildHistory(archetype, trackID, now),
		}
		snapshots = append(snapshots, snap)
	}

	stats.Generated = len(snapshots)
	logger.Get().Info(ctx, "generated snapshots", logger.Int("count", len(snapshots)))
	return snapshots
}

// buildHistory produces the daily metric points for one archetype, newest
// day equal to now.
func buildHistory(archetype int, trackID string, now time.Time) []Point {
	var days int
	switch archetype {
	case caseSteadyEvergreen, caseCrossPlatform:
		days = 365
	case caseSparseNewcomer:
		days = 5
	default:
		days = 60
	}

	posts := basePostsMin + getRandomFloat()*basePostsRange
	streams := baseStreamsMin + getRandomFloat()*baseStreamsRange

	points := make([]Point, 0, days*2)
	for d := days - 1; d >= 0; d-- {
		ts := now.AddDate(0, 0, -d).Format(time.RFC3339)
		jitter := 1 + (getRandomFloat()-0.5)*jitterRange

		switch archetype {
		case caseViralRiser, caseCrossPlatform:
			posts *= riserAccel
			streams *= riserAccel
		case caseDecliner:
			posts *= declinerDecay
			streams *= declinerDecay
		}

		points = append(points,
			Point{Platform: "tiktok", Metric: "posts", TS: ts, Value: posts * jitter},
			Point{Platform: "spotify", Metric: "streams", TS: ts, Value: streams * jitter},
		)
		if archetype == caseCrossPlatform && d < 14 {
			points = append(points, Point{Platform: "spotify", Metric: "chart_position", TS: ts, Value: float64(1 + getRandomInt(50))})
		}
	}
	return points
}
