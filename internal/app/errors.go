package service

import "errors"

// Sentinel errors for this package.
var (
	// ErrNotStarted is returned by commands issued before Start or after Stop.
	ErrNotStarted = errors.New("service not started")

	// ErrPersist wraps snapshot writes that failed since the last Flush.
	ErrPersist = errors.New("persisting session failed")
)
