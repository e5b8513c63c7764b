package feature

import (
	"context"

	"github.com/scoutbeat/scoutbeat/internal/domain/model"
)

// Canonical feature names shared between extraction, weights, scoring
// components and explanations.
const (
	TikTokPostsVelocity = "tiktok_posts_velocity"
	TikTokViewsVelocity = "tiktok_views_velocity"
	SpotifyStreamGrowth = "spotify_stream_growth"
	PlaylistGrowth      = "playlist_growth"
	CrossPlatformBoost  = "cross_platform_boost"
	ChartEntryBonus     = "chart_entry_bonus"

	StreamConsistency = "stream_consistency"
	ActiveMonthsRatio = "active_months_ratio"
	LowVarianceBonus  = "low_variance_bonus"
	ChartPersistence  = "chart_persistence"
)

// Lookback windows, in days, anchored at the newest observation.
const (
	trendingLookbackDays    = 30
	trendingChartLookback   = 30
	evergreenLookbackDays   = 365
	consistencyLookbackDays = 180
	evergreenChartLookback  = 180
	recentVolumeWindowDays  = 7
)

// Vector is the per-track, per-model feature vector: normalized features,
// the raw ratios behind them, and the gate readings the scoring models
// check before combining anything. Vectors are ephemeral; they are
// recomputed from the snapshot on every scoring run.
type Vector struct {
	TrackID string

	// Features holds normalized [0,1] values keyed by feature name.
	Features map[string]float64

	// Ratios holds the raw growth ratios underlying velocity features,
	// kept so explanations can cite them.
	Ratios map[string]float64

	// Gate readings.
	DataPoints       int
	ActiveMonths     int
	TikTokPosts7d    float64
	SpotifyStreams7d float64
	AvgStreams       float64
}

// TrendingVector extracts the momentum features for the trending model.
func (e *Extractor) TrendingVector(ctx context.Context, snap model.Snapshot) Vector {
	posts := snap.Series(model.PlatformTikTok, model.MetricPosts)
	views := snap.Series(model.PlatformTikTok, model.MetricViews)
	streams := snap.Series(model.PlatformSpotify, model.MetricStreams)
	playlists := snap.Series(model.PlatformSpotify, model.MetricPlaylists)

	v := Vector{
		TrackID:  snap.TrackID,
		Features: make(map[string]float64),
		Ratios:   make(map[string]float64),
	}

	v.Ratios[TikTokPostsVelocity] = e.velocityOrZero(ctx, posts)
	v.Ratios[TikTokViewsVelocity] = e.velocityOrZero(ctx, views)
	v.Ratios[SpotifyStreamGrowth] = e.velocityOrZero(ctx, streams)
	v.Ratios[PlaylistGrowth] = e.velocityOrZero(ctx, playlists)

	v.Features[TikTokPostsVelocity] = NormalizeVelocity(v.Ratios[TikTokPostsVelocity])
	v.Features[TikTokViewsVelocity] = NormalizeVelocity(v.Ratios[TikTokViewsVelocity])
	v.Features[SpotifyStreamGrowth] = NormalizeVelocity(v.Ratios[SpotifyStreamGrowth])
	v.Features[PlaylistGrowth] = NormalizeVelocity(v.Ratios[PlaylistGrowth])

	// Real momentum shows on both platforms at once; a boolean-like feature
	// the model converts into the full bonus weight or nothing.
	if v.Ratios[TikTokPostsVelocity] > 1.0 && v.Ratios[SpotifyStreamGrowth] > 1.0 {
		v.Features[CrossPlatformBoost] = 1.0
	} else {
		v.Features[CrossPlatformBoost] = 0.0
	}

	tiktokCharts := e.sanitize(ctx, snap.Series(model.PlatformTikTok, model.MetricChartPosition))
	spotifyCharts := e.sanitize(ctx, snap.Series(model.PlatformSpotify, model.MetricChartPosition))
	if hasChartEntry(tiktokCharts, trendingChartLookback) || hasChartEntry(spotifyCharts, trendingChartLookback) {
		v.Features[ChartEntryBonus] = 1.0
	} else {
		v.Features[ChartEntryBonus] = 0.0
	}

	v.DataPoints = e.countDataPoints(ctx, snap, trendingLookbackDays)
	v.TikTokPosts7d = recentSum(e.sanitize(ctx, posts), recentVolumeWindowDays)
	v.SpotifyStreams7d = recentSum(e.sanitize(ctx, streams), recentVolumeWindowDays)

	return v
}

// EvergreenVector extracts the stability features for the evergreen model.
func (e *Extractor) EvergreenVector(ctx context.Context, snap model.Snapshot) Vector {
	streams := snap.Series(model.PlatformSpotify, model.MetricStreams)
	cleanStreams := e.sanitize(ctx, streams)

	v := Vector{
		TrackID:  snap.TrackID,
		Features: make(map[string]float64),
		Ratios:   make(map[string]float64),
	}

	consistency, err := e.Stability(ctx, trailing(cleanStreams, consistencyLookbackDays))
	if err != nil {
		consistency = 0
	}
	v.Features[StreamConsistency] = consistency

	activity, err := e.ActivityRatio(ctx, cleanStreams, evergreenLookbackDays)
	if err != nil {
		activity = 0
	}
	v.Features[ActiveMonthsRatio] = activity

	// Step bonus for exceptional stability, on top of the linear
	// consistency term.
	switch {
	case consistency > 0.8:
		v.Features[LowVarianceBonus] = 1.0
	case consistency > 0.6:
		v.Features[LowVarianceBonus] = 0.5
	default:
		v.Features[LowVarianceBonus] = 0.0
	}

	spotifyCharts := e.sanitize(ctx, snap.Series(model.PlatformSpotify, model.MetricChartPosition))
	if hasChartEntry(spotifyCharts, evergreenChartLookback) {
		v.Features[ChartPersistence] = 1.0
	} else {
		v.Features[ChartPersistence] = 0.0
	}

	// Growth ratio is not an evergreen feature, but explanations flag
	// tracks that are currently viral or declining.
	v.Ratios[SpotifyStreamGrowth] = e.velocityOrZero(ctx, streams)

	v.DataPoints = e.countDataPoints(ctx, snap, evergreenLookbackDays)
	v.ActiveMonths = activeMonths(cleanStreams, evergreenLookbackDays)
	v.AvgStreams = mean(trailing(cleanStreams, consistencyLookbackDays))

	return v
}

// velocityOrZero maps an insufficient-data sentinel to a zero ratio. The
// per-model data gates decide whether the whole vector is usable; a thin
// individual series only silences that one feature.
func (e *Extractor) velocityOrZero(ctx context.Context, pts []model.MetricPoint) float64 {
	ratio, err := e.Velocity(ctx, pts)
	if err != nil {
		return 0
	}
	return ratio
}

// countDataPoints counts distinct observation timestamps across all series
// within lookbackDays of the newest point in the snapshot.
func (e *Extractor) countDataPoints(ctx context.Context, snap model.Snapshot, lookbackDays int) int {
	clean := e.sanitizePerSeries(ctx, snap)
	if len(clean) == 0 {
		return 0
	}

	newest := clean[0].TS
	for _, p := range clean {
		if p.TS.After(newest) {
			newest = p.TS
		}
	}
	cutoff := newest.AddDate(0, 0, -lookbackDays)

	seen := make(map[int64]struct{})
	for _, p := range clean {
		if !p.TS.Before(cutoff) {
			seen[p.TS.Unix()] = struct{}{}
		}
	}
	return len(seen)
}

// sanitizePerSeries runs sanitize over each (platform, metric) series of the
// snapshot and returns the surviving points.
func (e *Extractor) sanitizePerSeries(ctx context.Context, snap model.Snapshot) []model.MetricPoint {
	type seriesKey struct {
		platform model.Platform
		metric   string
	}
	keys := make(map[seriesKey]struct{})
	for _, p := range snap.Points {
		keys[seriesKey{p.Platform, p.Metric}] = struct{}{}
	}

	var out []model.MetricPoint
	for k := range keys {
		out = append(out, e.sanitize(ctx, snap.Series(k.platform, k.metric))...)
	}
	return out
}

// trailing returns the points within windowDays of the newest point.
func trailing(pts []model.MetricPoint, windowDays int) []model.MetricPoint {
	if len(pts) == 0 {
		return nil
	}
	cutoff := pts[len(pts)-1].TS.AddDate(0, 0, -windowDays)
	for i, p := range pts {
		if !p.TS.Before(cutoff) {
			return pts[i:]
		}
	}
	return nil
}
