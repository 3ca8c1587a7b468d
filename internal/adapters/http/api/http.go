// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	service "github.com/attunehq/attune/internal/app"
	"github.com/attunehq/attune/internal/domain/model"
	"github.com/attunehq/attune/internal/domain/stats"
)

// Dashboard mirrors the read shape returned by dashboard queries.
type Dashboard = service.Dashboard

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	// Write operations feed the event pipeline.
	RecordRound(ctx context.Context, r model.RoundRecord) error
	SubmitAnswer(ctx context.Context, a model.AnswerRecord) error
	SetTeamState(ctx context.Context, teamID string, active bool) error
	ToggleMode(ctx context.Context) (model.MetricMode, error)
	ResetGame(ctx context.Context) error

	// Read operations expose live metrics data.
	TeamSnapshot(ctx context.Context, teamID string) (stats.Snapshot, error)
	TeamDigest(ctx context.Context, teamID string) (stats.Digest, error)
	DashboardView(ctx context.Context) (Dashboard, error)
	Mode() model.MetricMode
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler    *HealthHandler
	statsHandler     *StatsHandler
	roundsHandler    *RoundsHandler
	answersHandler   *AnswersHandler
	adminHandler     *AdminHandler
	snapshotHandler  *SnapshotHandler
	dashboardHandler *DashboardHandler
	limiter          *RateLimiter
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, opts ...ServerOption) *Server {
	s := &Server{
		healthHandler:    NewHealthHandler(),
		statsHandler:     NewStatsHandler(statsProvider),
		roundsHandler:    NewRoundsHandler(deps),
		answersHandler:   NewAnswersHandler(deps),
		adminHandler:     NewAdminHandler(deps),
		snapshotHandler:  NewSnapshotHandler(deps),
		dashboardHandler: NewDashboardHandler(deps),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// ServerOption applies a configuration option to the Server.
type ServerOption func(*Server)

// WithRateLimiter enables per-client request limiting on write routes.
func WithRateLimiter(l *RateLimiter) ServerOption {
	return func(s *Server) {
		s.limiter = l
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(ctx context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/rounds", s.limited(MetricsMiddleware(s.roundsHandler.HandlePostRound, "rounds")))
	mux.HandleFunc("/answers", s.limited(MetricsMiddleware(s.answersHandler.HandlePostAnswer, "answers")))
	mux.HandleFunc("/teams/state", s.limited(MetricsMiddleware(s.adminHandler.HandleTeamState, "teams_state")))
	mux.HandleFunc("/mode/toggle", s.limited(MetricsMiddleware(s.adminHandler.HandleToggleMode, "mode_toggle")))
	mux.HandleFunc("/reset", s.limited(MetricsMiddleware(s.adminHandler.HandleReset, "reset")))
	mux.HandleFunc("/snapshot/", MetricsMiddleware(s.snapshotHandler.HandleGetSnapshot, "snapshot"))
	mux.HandleFunc("/digest/", MetricsMiddleware(s.snapshotHandler.HandleGetDigest, "digest"))
	mux.HandleFunc("/dashboard", MetricsMiddleware(s.dashboardHandler.HandleGetDashboard, "dashboard"))
}

func (s *Server) limited(next http.HandlerFunc) http.HandlerFunc {
	if s.limiter == nil {
		return next
	}
	return s.limiter.Middleware(next)
}

// roundRequest mirrors the wire schema for POST /rounds.
type roundRequest struct {
	RoundID     string `json:"round_id"`
	TeamID      string `json:"team_id"`
	RoundNumber int    `json:"round_number"`
	Player1Item string `json:"player1_item"`
	Player2Item string `json:"player2_item"`
	TS          string `json:"ts"`
}

func (r roundRequest) validate() error {
	switch {
	case strings.TrimSpace(r.RoundID) == "":
		return errors.New("missing round_id")
	case strings.TrimSpace(r.TeamID) == "":
		return errors.New("missing team_id")
	case strings.TrimSpace(r.Player1Item) == "":
		return errors.New("missing player1_item")
	case strings.TrimSpace(r.Player2Item) == "":
		return errors.New("missing player2_item")
	}
	if r.TS != "" {
		if _, err := time.Parse(time.RFC3339, r.TS); err != nil {
			return errors.New("invalid ts; must be RFC3339")
		}
	}
	return nil
}

// answerRequest mirrors the wire schema for POST /answers.
type answerRequest struct {
	TeamID          string `json:"team_id"`
	RoundID         string `json:"round_id"`
	PlayerSessionID string `json:"player_session_id"`
	AssignedItem    string `json:"assigned_item"`
	Response        *bool  `json:"response"`
	TS              string `json:"ts"`
}

func (a answerRequest) validate() error {
	switch {
	case strings.TrimSpace(a.TeamID) == "":
		return errors.New("missing team_id")
	case strings.TrimSpace(a.RoundID) == "":
		return errors.New("missing round_id")
	case strings.TrimSpace(a.PlayerSessionID) == "":
		return errors.New("missing player_session_id")
	case strings.TrimSpace(a.AssignedItem) == "":
		return errors.New("missing assigned_item")
	case a.Response == nil:
		return errors.New("missing response")
	}
	if a.TS != "" {
		if _, err := time.Parse(time.RFC3339, a.TS); err != nil {
			return errors.New("invalid ts; must be RFC3339")
		}
	}
	return nil
}

// teamStateRequest mirrors the wire schema for POST /teams/state.
type teamStateRequest struct {
	TeamID string `json:"team_id"`
	Active *bool  `json:"active"`
}

func (t teamStateRequest) validate() error {
	switch {
	case strings.TrimSpace(t.TeamID) == "":
		return errors.New("missing team_id")
	case t.Active == nil:
		return errors.New("missing active")
	}
	return nil
}

type ackResponse struct {
	Status string `json:"status"`
}

type modeResponse struct {
	Mode string `json:"mode"`
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

// parseTS returns the parsed RFC3339 timestamp or now for an empty field.
// Validation has already rejected malformed values.
func parseTS(ts string) time.Time {
	if ts == "" {
		return time.Now()
	}
	t, err := time.Parse(time.RFC3339, ts)
	if err != nil {
		return time.Now()
	}
	return t
}
