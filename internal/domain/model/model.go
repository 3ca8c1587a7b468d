// Package model contains domain models passed between layers.
package model

import "time"

// Item is the label assigned to a player for a round, e.g. "A", "B", "X", "Y".
type Item = string

// RoundRecord describes one round handed to a team by the round generator.
// Immutable once created; this subsystem only reads it.
type RoundRecord struct {
	RoundID     string    // unique round id
	TeamID      string    // owning team identifier
	RoundNumber int       // 1-based sequence within the team's game
	Player1Item Item      // item assigned to player 1
	Player2Item Item      // item assigned to player 2
	InitiatedAt time.Time // when the round was dealt
}

// AnswerRecord is a single player's yes/no response for a round.
// One record per player per round; a round is complete when both exist.
type AnswerRecord struct {
	TeamID          string    // owning team identifier
	RoundID         string    // round this answer belongs to
	PlayerSessionID string    // answering player's session
	AssignedItem    Item      // the item this player was shown
	Response        bool      // the yes/no answer
	AnsweredAt      time.Time // submission time
}

// MetricMode selects which statistic the dashboard shows.
type MetricMode int

const (
	// ModeCorrelation shows the pairwise agreement correlation matrix.
	ModeCorrelation MetricMode = iota
	// ModeSuccessRate shows the success-rate metric.
	ModeSuccessRate
)

// String returns the wire/metric label for the mode.
func (m MetricMode) String() string {
	if m == ModeSuccessRate {
		return "success_rate"
	}
	return "correlation"
}

// Toggled returns the other mode.
func (m MetricMode) Toggled() MetricMode {
	if m == ModeCorrelation {
		return ModeSuccessRate
	}
	return ModeCorrelation
}

// EventKind discriminates domain events on the invalidation path.
type EventKind int

const (
	// AnswerSubmitted means a player answered a round for Event.TeamID.
	AnswerSubmitted EventKind = iota
	// RoundInitiated means a new round was dealt to Event.TeamID.
	RoundInitiated
	// TeamStateChanged means a team joined, left, or was reactivated.
	TeamStateChanged
	// MetricModeToggled means the global metric mode flipped.
	MetricModeToggled
	// GameReset means the whole game restarted.
	GameReset
)

// String returns the metric label for the event kind.
func (k EventKind) String() string {
	switch k {
	case AnswerSubmitted:
		return "answer_submitted"
	case RoundInitiated:
		return "round_initiated"
	case TeamStateChanged:
		return "team_state_changed"
	case MetricModeToggled:
		return "metric_mode_toggled"
	case GameReset:
		return "game_reset"
	}
	return "unknown"
}

// Event is a state-changing occurrence flowing from the game into the
// invalidation dispatcher.
type Event struct {
	EventID string    // unique id for tracing
	Kind    EventKind // what happened
	TeamID  string    // affected team; empty for global kinds
	TS      time.Time // occurrence time
}
