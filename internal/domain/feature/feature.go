// Package feature turns ordered metric time series into normalized,
// dimensionless features: velocity ratios, stability, and activity ratios.
//
// All heuristics are deterministic; identical series always produce
// identical features.
package feature

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/scoutbeat/scoutbeat/internal/domain/model"
	"github.com/scoutbeat/scoutbeat/pkg/logger"
)

// Default extraction windows and normalization bounds.
const (
	defaultRecentWindow    = 7  // points in the recent window
	defaultReferenceWindow = 30 // points in the reference window before the recent one
	minStabilityPoints     = 30 // points needed for a meaningful coefficient of variation

	// Velocity ratios normalize linearly between these bounds:
	// no growth (1.0x) maps to 0, tenfold growth maps to 1.
	minVelocity = 1.0
	maxVelocity = 10.0

	daysPerMonth = 30
)

// Extractor computes features from metric point series.
type Extractor struct {
	recentWindow    int
	referenceWindow int
	logger          logger.Logger
}

// Option applies a configuration option to the Extractor.
type Option func(*Extractor)

// WithRecentWindow sets the number of points in the recent window.
func WithRecentWindow(n int) Option {
	return func(e *Extractor) {
		if n > 0 {
			e.recentWindow = n
		}
	}
}

// WithReferenceWindow sets the number of points in the reference window.
func WithReferenceWindow(n int) Option {
	return func(e *Extractor) {
		if n > 0 {
			e.referenceWindow = n
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(e *Extractor) {
		if l != nil {
			e.logger = l
		}
	}
}

// NewExtractor creates an extractor with configuration options.
func NewExtractor(opts ...Option) *Extractor {
	e := &Extractor{
		recentWindow:    defaultRecentWindow,
		referenceWindow: defaultReferenceWindow,
	}

	for _, opt := range opts {
		opt(e)
	}

	if e.logger == nil {
		e.logger = logger.Get().Named("feature")
	}

	return e
}

// sanitize drops malformed points (negative values, timestamps that do not
// advance) with a logged warning and returns the series ordered ascending.
// Input is expected pre-sorted by Snapshot.Series; points violating that
// order are treated as malformed.
func (e *Extractor) sanitize(ctx context.Context, pts []model.MetricPoint) []model.MetricPoint {
	out := make([]model.MetricPoint, 0, len(pts))
	var last time.Time
	for _, p := range pts {
		switch {
		case p.Value < 0:
			e.logger.Warn(ctx, "skipping metric point with negative value",
				logger.String("track", p.TrackID),
				logger.String("metric", p.Metric),
				logger.Float64("value", p.Value),
			)
		case !last.IsZero() && !p.TS.After(last):
			e.logger.Warn(ctx, "skipping metric point with non-monotonic timestamp",
				logger.String("track", p.TrackID),
				logger.String("metric", p.Metric),
				logger.String("ts", p.TS.Format(time.RFC3339)),
			)
		default:
			out = append(out, p)
			last = p.TS
		}
	}
	return out
}

// Velocity returns the ratio of the recent-window average to the
// reference-window average. A zero reference average is treated as a lower
// bound of 1, so any absolute recent activity still registers as growth.
// The series must contain at least one reference point beyond the recent
// window, otherwise ErrInsufficientData is returned.
func (e *Extractor) Velocity(ctx context.Context, pts []model.MetricPoint) (float64, error) {
	clean := e.sanitize(ctx, pts)
	if len(clean) < e.recentWindow+1 {
		return 0, fmt.Errorf("%w: %d points, need %d", ErrInsufficientData, len(clean), e.recentWindow+1)
	}

	recent := clean[len(clean)-e.recentWindow:]
	reference := clean[:len(clean)-e.recentWindow]
	if len(reference) > e.referenceWindow {
		reference = reference[len(reference)-e.referenceWindow:]
	}

	recentAvg := mean(recent)
	referenceAvg := mean(reference)
	if referenceAvg < 1 {
		referenceAvg = 1
	}
	return recentAvg / referenceAvg, nil
}

// Stability returns 1 minus the coefficient of variation of the series,
// clamped to [0,1]: flat series score 1, chaotic series score 0.
func (e *Extractor) Stability(ctx context.Context, pts []model.MetricPoint) (float64, error) {
	clean := e.sanitize(ctx, pts)
	if len(clean) < minStabilityPoints {
		return 0, fmt.Errorf("%w: %d points, need %d", ErrInsufficientData, len(clean), minStabilityPoints)
	}

	m := mean(clean)
	if m == 0 {
		return 0, nil
	}

	var variance float64
	for _, p := range clean {
		d := p.Value - m
		variance += d * d
	}
	variance /= float64(len(clean))
	cv := math.Sqrt(variance) / m

	return clamp01(1 - cv), nil
}

// ActivityRatio returns the fraction of expected reporting months within
// lookbackDays (anchored at the newest point) that saw at least one
// non-zero value, capped at 1.
func (e *Extractor) ActivityRatio(ctx context.Context, pts []model.MetricPoint, lookbackDays int) (float64, error) {
	clean := e.sanitize(ctx, pts)
	if len(clean) == 0 {
		return 0, fmt.Errorf("%w: empty series", ErrInsufficientData)
	}

	active := activeMonths(clean, lookbackDays)
	expected := float64(lookbackDays) / daysPerMonth
	if expected < 1 {
		expected = 1
	}
	return clamp01(float64(active) / expected), nil
}

// NormalizeVelocity maps a raw growth ratio onto [0,1] linearly between the
// no-growth and tenfold-growth bounds.
func NormalizeVelocity(ratio float64) float64 {
	if ratio <= minVelocity {
		return 0
	}
	if ratio >= maxVelocity {
		return 1
	}
	return (ratio - minVelocity) / (maxVelocity - minVelocity)
}

func mean(pts []model.MetricPoint) float64 {
	if len(pts) == 0 {
		return 0
	}
	var sum float64
	for _, p := range pts {
		sum += p.Value
	}
	return sum / float64(len(pts))
}

// activeMonths counts distinct calendar months with a non-zero value within
// lookbackDays of the newest point.
func activeMonths(pts []model.MetricPoint, lookbackDays int) int {
	if len(pts) == 0 {
		return 0
	}
	cutoff := pts[len(pts)-1].TS.AddDate(0, 0, -lookbackDays)
	months := make(map[[2]int]struct{})
	for _, p := range pts {
		if p.Value > 0 && !p.TS.Before(cutoff) {
			months[[2]int{p.TS.Year(), int(p.TS.Month())}] = struct{}{}
		}
	}
	return len(months)
}

// recentSum adds values within windowDays of the newest point.
func recentSum(pts []model.MetricPoint, windowDays int) float64 {
	if len(pts) == 0 {
		return 0
	}
	cutoff := pts[len(pts)-1].TS.AddDate(0, 0, -windowDays)
	var sum float64
	for _, p := range pts {
		if !p.TS.Before(cutoff) {
			sum += p.Value
		}
	}
	return sum
}

// hasChartEntry reports whether any chart-position point within lookbackDays
// of the newest point records an actual ranking.
func hasChartEntry(pts []model.MetricPoint, lookbackDays int) bool {
	if len(pts) == 0 {
		return false
	}
	cutoff := pts[len(pts)-1].TS.AddDate(0, 0, -lookbackDays)
	for _, p := range pts {
		if p.Value > 0 && !p.TS.Before(cutoff) {
			return true
		}
	}
	return false
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
