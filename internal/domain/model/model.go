// Package model contains domain models passed between layers.
package model

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

// Platform identifies the source platform of a metric point.
type Platform string

const (
	PlatformTikTok  Platform = "tiktok"
	PlatformSpotify Platform = "spotify"
)

// Metric names reported by the ingestion collaborator.
const (
	MetricPosts         = "posts"          // tiktok: posts using the track in the period
	MetricViews         = "views"          // tiktok: views of posts using the track
	MetricStreams       = "streams"        // spotify: stream-count proxy
	MetricPlaylists     = "playlists"      // spotify: playlist inclusion count
	MetricChartPosition = "chart_position" // either: chart rank, >0 when charting
)

// ScoreType selects one of the two scoring models.
type ScoreType string

const (
	ScoreTypeTrending  ScoreType = "trending"
	ScoreTypeEvergreen ScoreType = "evergreen"
)

// ErrInvalidScoreType reports an unrecognized score type string.
var ErrInvalidScoreType = errors.New("invalid score type")

// ParseScoreType converts a string into a ScoreType.
func ParseScoreType(s string) (ScoreType, error) {
	switch ScoreType(strings.ToLower(strings.TrimSpace(s))) {
	case ScoreTypeTrending:
		return ScoreTypeTrending, nil
	case ScoreTypeEvergreen:
		return ScoreTypeEvergreen, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidScoreType, s)
	}
}

// MetricPoint is one observation of one metric for one track.
// Points are immutable once recorded and ordered by TS per
// (track, platform, metric) series.
type MetricPoint struct {
	TrackID  string    `json:"track_id"`
	Platform Platform  `json:"platform"`
	Metric   string    `json:"metric"`
	TS       time.Time `json:"ts"`
	Value    float64   `json:"value"`
}

// Snapshot is the point-in-time view of a track handed over by the
// ingestion collaborator: metadata plus all metric points available at
// snapshot time. Scoring is pure given a snapshot.
type Snapshot struct {
	TrackID   string        `json:"track_id"`
	Title     string        `json:"title"`
	Artist    string        `json:"artist"`
	LabelText string        `json:"label_text"`
	Points    []MetricPoint `json:"points"`
}

// Series returns the points for one (platform, metric) series ordered by
// timestamp ascending.
func (s Snapshot) Series(platform Platform, metric string) []MetricPoint {
	var out []MetricPoint
	for _, p := range s.Points {
		if p.Platform == platform && p.Metric == metric {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TS.Before(out[j].TS) })
	return out
}

// Track is the metadata row kept for filtering and display. Unlike scores,
// metadata may be updated as labels and titles are corrected upstream.
type Track struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Artist    string    `json:"artist"`
	LabelText string    `json:"label_text"`
	FirstSeen time.Time `json:"first_seen"`
}

// ScoreRecord is an immutable snapshot of one scoring run. Records are
// append-only; the current score for a track is the latest record by
// ComputedAt for its (track, type) pair.
type ScoreRecord struct {
	ID          string             `json:"id"`
	TrackID     string             `json:"track_id"`
	Type        ScoreType          `json:"score_type"`
	Value       float64            `json:"value"`
	Components  map[string]float64 `json:"components"`
	WhySelected []string           `json:"why_selected"`
	RiskFlags   []string           `json:"risk_flags"`
	Summary     string             `json:"summary"`
	ComputedAt  time.Time          `json:"computed_at"`
}

// NewScoreRecord builds a validated ScoreRecord. The value is clamped to
// [0,100] and all maps/slices are copied so the record cannot be mutated
// through the caller's references.
func NewScoreRecord(
	id, trackID string,
	scoreType ScoreType,
	value float64,
	components map[string]float64,
	whySelected, riskFlags []string,
	summary string,
	computedAt time.Time,
) (ScoreRecord, error) {
	if trackID == "" {
		return ScoreRecord{}, errors.New("score record requires a track id")
	}
	if scoreType != ScoreTypeTrending && scoreType != ScoreTypeEvergreen {
		return ScoreRecord{}, fmt.Errorf("%w: %q", ErrInvalidScoreType, scoreType)
	}
	if computedAt.IsZero() {
		return ScoreRecord{}, errors.New("score record requires a computed_at timestamp")
	}

	if value < 0 {
		value = 0
	}
	if value > 100 {
		value = 100
	}

	comps := make(map[string]float64, len(components))
	for k, v := range components {
		comps[k] = v
	}

	return ScoreRecord{
		ID:          id,
		TrackID:     trackID,
		Type:        scoreType,
		Value:       value,
		Components:  comps,
		WhySelected: append([]string(nil), whySelected...),
		RiskFlags:   append([]string(nil), riskFlags...),
		Summary:     summary,
		ComputedAt:  computedAt,
	}, nil
}
