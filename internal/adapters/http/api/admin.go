// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/attunehq/attune/internal/domain/model"
)

// AdminDependencies defines the interface for game-control operations.
type AdminDependencies interface {
	SetTeamState(ctx context.Context, teamID string, active bool) error
	ToggleMode(ctx context.Context) (model.MetricMode, error)
	ResetGame(ctx context.Context) error
}

// AdminHandler handles team state, mode toggle, and reset requests.
type AdminHandler struct {
	deps AdminDependencies
}

// NewAdminHandler creates a new admin handler.
func NewAdminHandler(deps AdminDependencies) *AdminHandler {
	return &AdminHandler{deps: deps}
}

// HandleTeamState handles POST /teams/state requests.
func (h *AdminHandler) HandleTeamState(w http.ResponseWriter, r *http.Request) {
	const op = "api.team_state"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req teamStateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if err := h.deps.SetTeamState(r.Context(), req.TeamID, *req.Active); err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", err)
		return
	}
	writeJSON(w, http.StatusOK, ackResponse{Status: "ok"})
}

// HandleToggleMode handles POST /mode/toggle requests.
func (h *AdminHandler) HandleToggleMode(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	mode, err := h.deps.ToggleMode(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", err)
		return
	}
	writeJSON(w, http.StatusOK, modeResponse{Mode: mode.String()})
}

// HandleReset handles POST /reset requests.
func (h *AdminHandler) HandleReset(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	if err := h.deps.ResetGame(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", err)
		return
	}
	writeJSON(w, http.StatusOK, ackResponse{Status: "reset"})
}
