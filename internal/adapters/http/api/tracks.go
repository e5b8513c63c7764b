// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/scoutbeat/scoutbeat/internal/adapters/repository"
	service "github.com/scoutbeat/scoutbeat/internal/app"
	"github.com/scoutbeat/scoutbeat/internal/domain/label"
	"github.com/scoutbeat/scoutbeat/internal/domain/model"
	"github.com/scoutbeat/scoutbeat/internal/domain/types"
)

// defaultListLimit applies when GET /tracks omits the limit parameter.
const defaultListLimit = 20

// TrackDependencies defines the interface for track listing and detail.
type TrackDependencies interface {
	QueryTracks(ctx context.Context, scoreType model.ScoreType, category label.Category, limit int) ([]types.RankedTrack, error)
	LatestScore(ctx context.Context, trackID string, scoreType model.ScoreType) (model.ScoreRecord, error)
	GetTrack(ctx context.Context, trackID string) (model.Track, error)
	ClassifyLabel(ctx context.Context, texts ...string) label.Category
}

// TracksHandler handles ranked listing and per-track detail requests.
type TracksHandler struct {
	deps     TrackDependencies
	maxLimit int
}

// NewTracksHandler creates a new tracks handler.
func NewTracksHandler(deps TrackDependencies, maxLimit int) *TracksHandler {
	return &TracksHandler{
		deps:     deps,
		maxLimit: maxLimit,
	}
}

// HandleListTracks handles GET /tracks?type=T&label=L&limit=N requests.
func (h *TracksHandler) HandleListTracks(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}

	scoreType, err := parseScoreType(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}

	limit := defaultListLimit
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		limit, err = strconv.Atoi(limitStr)
		if err != nil || limit < 1 {
			writeError(w, http.StatusBadRequest, "bad_request", ErrBadRequest)
			return
		}
		if limit > h.maxLimit {
			writeError(w, http.StatusBadRequest, "limit_exceeded", ErrBadRequest)
			return
		}
	}

	var category label.Category
	if raw := r.URL.Query().Get("label"); raw != "" {
		category, err = service.ParseCategoryStrict(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", err)
			return
		}
	}

	ranked, err := h.deps.QueryTracks(r.Context(), scoreType, category, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", err)
		return
	}
	writeJSON(w, http.StatusOK, ranked)
}

// trackDetailResponse is the read shape for GET /tracks/{id}.
type trackDetailResponse struct {
	Track     model.Track        `json:"track"`
	Label     label.Category     `json:"label"`
	Trending  *model.ScoreRecord `json:"trending,omitempty"`
	Evergreen *model.ScoreRecord `json:"evergreen,omitempty"`
}

// HandleGetTrack handles GET /tracks/{id} requests, returning metadata
// plus whichever latest scores exist.
func (h *TracksHandler) HandleGetTrack(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	id := strings.TrimPrefix(r.URL.Path, "/tracks/")
	if id == "" || strings.Contains(id, "/") {
		writeError(w, http.StatusBadRequest, "bad_request", ErrBadRequest)
		return
	}

	track, err := h.deps.GetTrack(r.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "not_found", err)
			return
		}
		writeError(w, http.StatusInternalServerError, "internal_error", err)
		return
	}

	resp := trackDetailResponse{
		Track: track,
		Label: h.deps.ClassifyLabel(r.Context(), track.LabelText),
	}
	if rec, err := h.deps.LatestScore(r.Context(), id, model.ScoreTypeTrending); err == nil {
		resp.Trending = &rec
	}
	if rec, err := h.deps.LatestScore(r.Context(), id, model.ScoreTypeEvergreen); err == nil {
		resp.Evergreen = &rec
	}
	writeJSON(w, http.StatusOK, resp)
}
