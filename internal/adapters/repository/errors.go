package repository

import "errors"

// Sentinel errors returned by the repository.
var (
	// ErrEmptyTeamID is returned when a record carries no team identifier.
	ErrEmptyTeamID = errors.New("repository: empty team id")

	// ErrEmptyRoundID is returned when a record carries no round identifier.
	ErrEmptyRoundID = errors.New("repository: empty round id")
)
