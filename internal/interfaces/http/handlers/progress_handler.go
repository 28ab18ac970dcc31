package handlers

import (
	"net/http"

	"github.com/biocad/anbase/internal/infrastructure/journal"
)

// ProgressSource is satisfied by *curation.Pipeline.
type ProgressSource interface {
	Progress() journal.Counts
	Stage() string
}

// ProgressHandler reports how far the current run got.
type ProgressHandler struct {
	source ProgressSource
	runID  string
}

// NewProgressHandler creates a ProgressHandler for runID.
func NewProgressHandler(runID string, source ProgressSource) *ProgressHandler {
	return &ProgressHandler{source: source, runID: runID}
}

// ProgressResponse is the body of GET /progress. Stage is empty between
// stages.
type ProgressResponse struct {
	RunID  string         `json:"run_id"`
	Stage  string         `json:"stage"`
	Counts journal.Counts `json:"complexes"`
}

// Progress handles GET /progress.
func (h *ProgressHandler) Progress(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, ProgressResponse{
		RunID:  h.runID,
		Stage:  h.source.Stage(),
		Counts: h.source.Progress(),
	})
}

//Personal.AI order the ending
