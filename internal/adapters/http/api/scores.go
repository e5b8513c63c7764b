// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/scoutbeat/scoutbeat/internal/adapters/repository"
	"github.com/scoutbeat/scoutbeat/internal/domain/model"
)

// ScoreDependencies defines the interface for score explanation and
// history reads.
type ScoreDependencies interface {
	LatestScore(ctx context.Context, trackID string, scoreType model.ScoreType) (model.ScoreRecord, error)
	ScoreHistory(ctx context.Context, trackID string, scoreType model.ScoreType) ([]model.ScoreRecord, error)
}

// ScoresHandler handles score record requests.
type ScoresHandler struct {
	deps ScoreDependencies
}

// NewScoresHandler creates a new scores handler.
func NewScoresHandler(deps ScoreDependencies) *ScoresHandler {
	return &ScoresHandler{deps: deps}
}

// HandleGetScores handles GET /scores/{track_id}?type=T and
// GET /scores/{track_id}/history?type=T requests. The latest record
// carries the full explanation: components, why_selected, risk_flags.
func (h *ScoresHandler) HandleGetScores(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}

	path := strings.TrimPrefix(r.URL.Path, "/scores/")
	trackID, rest, _ := strings.Cut(path, "/")
	if trackID == "" || (rest != "" && rest != "history") {
		writeError(w, http.StatusBadRequest, "bad_request", ErrBadRequest)
		return
	}

	scoreType, err := parseScoreType(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}

	if rest == "history" {
		records, err := h.deps.ScoreHistory(r.Context(), trackID, scoreType)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal_error", err)
			return
		}
		writeJSON(w, http.StatusOK, records)
		return
	}

	rec, err := h.deps.LatestScore(r.Context(), trackID, scoreType)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "not_found", err)
			return
		}
		writeError(w, http.StatusInternalServerError, "internal_error", err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}
