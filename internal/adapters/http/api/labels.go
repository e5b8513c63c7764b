// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"net/http"

	"github.com/scoutbeat/scoutbeat/internal/domain/label"
)

// LabelDependencies defines the interface for label classification.
type LabelDependencies interface {
	ClassifyLabel(ctx context.Context, texts ...string) label.Category
}

// LabelsHandler handles ad-hoc label classification requests.
type LabelsHandler struct {
	deps LabelDependencies
}

// NewLabelsHandler creates a new labels handler.
func NewLabelsHandler(deps LabelDependencies) *LabelsHandler {
	return &LabelsHandler{deps: deps}
}

type classifyResponse struct {
	Text     string         `json:"text"`
	Category label.Category `json:"category"`
}

// HandleClassify handles GET /labels/classify?text=... requests. Empty
// text is valid and classifies as other_unsigned.
func (h *LabelsHandler) HandleClassify(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	text := r.URL.Query().Get("text")
	writeJSON(w, http.StatusOK, classifyResponse{
		Text:     text,
		Category: h.deps.ClassifyLabel(r.Context(), text),
	})
}
