// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/attunehq/attune/internal/domain/model"
)

// AnswerDependencies defines the interface for answer submission.
type AnswerDependencies interface {
	SubmitAnswer(ctx context.Context, a model.AnswerRecord) error
}

// AnswersHandler handles answer submission requests.
type AnswersHandler struct {
	deps AnswerDependencies
}

// NewAnswersHandler creates a new answers handler.
func NewAnswersHandler(deps AnswerDependencies) *AnswersHandler {
	return &AnswersHandler{deps: deps}
}

// HandlePostAnswer handles POST /answers requests.
func (h *AnswersHandler) HandlePostAnswer(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_answer"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req answerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	record := model.AnswerRecord{
		TeamID:          req.TeamID,
		RoundID:         req.RoundID,
		PlayerSessionID: req.PlayerSessionID,
		AssignedItem:    req.AssignedItem,
		Response:        *req.Response,
		AnsweredAt:      parseTS(req.TS),
	}
	if err := h.deps.SubmitAnswer(r.Context(), record); err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", err)
		return
	}
	writeJSON(w, http.StatusAccepted, ackResponse{Status: "accepted"})
}
