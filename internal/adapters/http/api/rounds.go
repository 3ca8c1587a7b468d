// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/attunehq/attune/internal/domain/model"
)

// RoundDependencies defines the interface for round recording.
type RoundDependencies interface {
	RecordRound(ctx context.Context, r model.RoundRecord) error
}

// RoundsHandler handles round recording requests.
type RoundsHandler struct {
	deps RoundDependencies
}

// NewRoundsHandler creates a new rounds handler.
func NewRoundsHandler(deps RoundDependencies) *RoundsHandler {
	return &RoundsHandler{deps: deps}
}

// HandlePostRound handles POST /rounds requests.
func (h *RoundsHandler) HandlePostRound(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_round"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req roundRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	record := model.RoundRecord{
		RoundID:     req.RoundID,
		TeamID:      req.TeamID,
		RoundNumber: req.RoundNumber,
		Player1Item: req.Player1Item,
		Player2Item: req.Player2Item,
		InitiatedAt: parseTS(req.TS),
	}
	if err := h.deps.RecordRound(r.Context(), record); err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", err)
		return
	}
	writeJSON(w, http.StatusAccepted, ackResponse{Status: "accepted"})
}
