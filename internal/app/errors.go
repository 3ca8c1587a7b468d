package service

import "errors"

// Sentinel errors returned by the service.
var (
	// ErrNotStarted is returned when an operation runs before Start.
	ErrNotStarted = errors.New("service: not started")
)
