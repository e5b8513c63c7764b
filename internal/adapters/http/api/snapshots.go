// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	service "github.com/scoutbeat/scoutbeat/internal/app"
	"github.com/scoutbeat/scoutbeat/internal/domain/model"
)

// SnapshotDependencies defines the interface for snapshot ingestion.
type SnapshotDependencies interface {
	SubmitSnapshot(ctx context.Context, snap model.Snapshot) ([]string, error)
}

// SnapshotsHandler handles metric snapshot submissions.
type SnapshotsHandler struct {
	deps SnapshotDependencies
}

// NewSnapshotsHandler creates a new snapshots handler.
func NewSnapshotsHandler(deps SnapshotDependencies) *SnapshotsHandler {
	return &SnapshotsHandler{deps: deps}
}

// HandlePostSnapshot handles POST /snapshots requests. Accepted snapshots
// are scored asynchronously; the response carries the job ids.
func (h *SnapshotsHandler) HandlePostSnapshot(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req snapshotRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}

	jobIDs, err := h.deps.SubmitSnapshot(r.Context(), req.toSnapshot())
	if err != nil {
		if errors.Is(err, service.ErrQueueFull) {
			writeError(w, http.StatusTooManyRequests, "backpressure", ErrBackpressure)
			return
		}
		writeError(w, http.StatusInternalServerError, "internal_error", err)
		return
	}
	writeJSON(w, http.StatusAccepted, ackResponse{Status: "accepted", JobIDs: jobIDs})
}
