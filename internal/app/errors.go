package service

import (
	"errors"
)

// Sentinel error kinds for this package. These allow errors.Is/As from callers.
var (
	ErrNotStarted      = errors.New("service not started")
	ErrQueueFull       = errors.New("scoring queue full")
	ErrEmptySnapshot   = errors.New("snapshot has no metric points")
	ErrMissingTrackID  = errors.New("snapshot has no track id")
	ErrUnknownModel    = errors.New("no model registered for score type")
	ErrInvalidLimit    = errors.New("invalid limit")
	ErrInvalidCategory = errors.New("invalid label category")
)
