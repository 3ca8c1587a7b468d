// Package repository holds the round/answer history this subsystem reads.
// In production terms it stands in for the external storage collaborator:
// consumers only ever read ordered history from it.
package repository

import (
	"context"

	"github.com/attunehq/attune/internal/domain/model"
)

// Store provides append and read access to team history and the roster.
type Store interface {
	// AppendRound records a round dealt to a team, activating the team if
	// it is new.
	AppendRound(ctx context.Context, r model.RoundRecord) error

	// AppendAnswer records a player's answer.
	AppendAnswer(ctx context.Context, a model.AnswerRecord) error

	// History returns the team's rounds and answers in insertion order.
	// Unknown teams yield empty history, never an error.
	History(ctx context.Context, teamID string) ([]model.RoundRecord, []model.AnswerRecord)

	// SetTeamActive flips a team's dashboard visibility, registering the
	// team on first use.
	SetTeamActive(ctx context.Context, teamID string, active bool)

	// ActiveTeams returns the sorted identifiers of active teams.
	ActiveTeams(ctx context.Context) []string

	// Counts returns the number of known teams, rounds, and answers.
	Counts(ctx context.Context) (teams, rounds, answers int)

	// Clear drops all history and roster state (full game reset).
	Clear(ctx context.Context)
}
