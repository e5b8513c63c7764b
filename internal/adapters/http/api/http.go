// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/scoutbeat/scoutbeat/internal/domain/label"
	"github.com/scoutbeat/scoutbeat/internal/domain/model"
	"github.com/scoutbeat/scoutbeat/internal/domain/types"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	// SubmitSnapshot registers a track and enqueues its scoring jobs.
	// Returns the enqueued job ids.
	SubmitSnapshot(ctx context.Context, snap model.Snapshot) ([]string, error)

	// Read operations expose ranked listings, explanations and history.
	QueryTracks(ctx context.Context, scoreType model.ScoreType, category label.Category, limit int) ([]types.RankedTrack, error)
	LatestScore(ctx context.Context, trackID string, scoreType model.ScoreType) (model.ScoreRecord, error)
	ScoreHistory(ctx context.Context, trackID string, scoreType model.ScoreType) ([]model.ScoreRecord, error)
	GetTrack(ctx context.Context, trackID string) (model.Track, error)

	// ClassifyLabel maps free-form label text onto a category.
	ClassifyLabel(ctx context.Context, texts ...string) label.Category

	// MaxListLimit caps the limit parameter on listings.
	MaxListLimit() int
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler    *HealthHandler
	statsHandler     *StatsHandler
	snapshotsHandler *SnapshotsHandler
	tracksHandler    *TracksHandler
	scoresHandler    *ScoresHandler
	labelsHandler    *LabelsHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider) *Server {
	return &Server{
		healthHandler:    NewHealthHandler(),
		statsHandler:     NewStatsHandler(statsProvider),
		snapshotsHandler: NewSnapshotsHandler(deps),
		tracksHandler:    NewTracksHandler(deps, deps.MaxListLimit()),
		scoresHandler:    NewScoresHandler(deps),
		labelsHandler:    NewLabelsHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(ctx context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/metrics", s.healthHandler.HandleMetrics)
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/snapshots", MetricsMiddleware(s.snapshotsHandler.HandlePostSnapshot, "snapshots"))
	mux.HandleFunc("/tracks", MetricsMiddleware(s.tracksHandler.HandleListTracks, "tracks"))
	mux.HandleFunc("/tracks/", MetricsMiddleware(s.tracksHandler.HandleGetTrack, "track"))
	mux.HandleFunc("/scores/", MetricsMiddleware(s.scoresHandler.HandleGetScores, "scores"))
	mux.HandleFunc("/labels/classify", MetricsMiddleware(s.labelsHandler.HandleClassify, "labels_classify"))
}

// snapshotRequest mirrors the JSON schema for POST /snapshots.
type snapshotRequest struct {
	TrackID   string         `json:"track_id"`
	Title     string         `json:"title"`
	Artist    string         `json:"artist"`
	LabelText string         `json:"label_text"`
	Points    []pointRequest `json:"points"`
}

type pointRequest struct {
	Platform string  `json:"platform"`
	Metric   string  `json:"metric"`
	TS       string  `json:"ts"`
	Value    float64 `json:"value"`
}

func (s snapshotRequest) validate() error {
	switch {
	case strings.TrimSpace(s.TrackID) == "":
		return errors.New("missing track_id")
	case len(s.Points) == 0:
		return errors.New("missing points")
	}
	for _, p := range s.Points {
		if strings.TrimSpace(p.Platform) == "" {
			return errors.New("missing platform in point")
		}
		if strings.TrimSpace(p.Metric) == "" {
			return errors.New("missing metric in point")
		}
		if _, err := time.Parse(time.RFC3339, p.TS); err != nil {
			return errors.New("invalid ts in point; must be RFC3339")
		}
	}
	return nil
}

// toSnapshot converts the request into the domain shape. validate must
// have passed, so the timestamp parse cannot fail here.
func (s snapshotRequest) toSnapshot() model.Snapshot {
	snap := model.Snapshot{
		TrackID:   s.TrackID,
		Title:     s.Title,
		Artist:    s.Artist,
		LabelText: s.LabelText,
		Points:    make([]model.MetricPoint, 0, len(s.Points)),
	}
	for _, p := range s.Points {
		ts, _ := time.Parse(time.RFC3339, p.TS)
		snap.Points = append(snap.Points, model.MetricPoint{
			TrackID:  s.TrackID,
			Platform: model.Platform(strings.ToLower(p.Platform)),
			Metric:   strings.ToLower(p.Metric),
			TS:       ts,
			Value:    p.Value,
		})
	}
	return snap
}

type ackResponse struct {
	Status string   `json:"status"`
	JobIDs []string `json:"job_ids"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// parseScoreType reads the type query parameter, defaulting to trending.
func parseScoreType(r *http.Request) (model.ScoreType, error) {
	raw := r.URL.Query().Get("type")
	if raw == "" {
		return model.ScoreTypeTrending, nil
	}
	return model.ParseScoreType(raw)
}
