// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/attunehq/attune/internal/domain/stats"
)

// SnapshotDependencies defines the interface for per-team reads.
type SnapshotDependencies interface {
	TeamSnapshot(ctx context.Context, teamID string) (stats.Snapshot, error)
	TeamDigest(ctx context.Context, teamID string) (stats.Digest, error)
}

// SnapshotHandler handles per-team snapshot and digest requests.
type SnapshotHandler struct {
	deps SnapshotDependencies
}

// NewSnapshotHandler creates a new snapshot handler.
func NewSnapshotHandler(deps SnapshotDependencies) *SnapshotHandler {
	return &SnapshotHandler{deps: deps}
}

// HandleGetSnapshot handles GET /snapshot/{team_id} requests.
func (h *SnapshotHandler) HandleGetSnapshot(w http.ResponseWriter, r *http.Request) {
	teamID, ok := teamFromPath(w, r, "/snapshot/")
	if !ok {
		return
	}
	snap, err := h.deps.TeamSnapshot(r.Context(), teamID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// HandleGetDigest handles GET /digest/{team_id} requests.
func (h *SnapshotHandler) HandleGetDigest(w http.ResponseWriter, r *http.Request) {
	teamID, ok := teamFromPath(w, r, "/digest/")
	if !ok {
		return
	}
	d, err := h.deps.TeamDigest(r.Context(), teamID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// teamFromPath extracts the trailing team identifier, writing the error
// response itself when the request is unusable.
func teamFromPath(w http.ResponseWriter, r *http.Request, prefix string) (string, bool) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return "", false
	}
	teamID := strings.TrimPrefix(r.URL.Path, prefix)
	if teamID == "" || strings.Contains(teamID, "/") {
		writeError(w, http.StatusBadRequest, "bad_request", ErrBadRequest)
		return "", false
	}
	return teamID, true
}
