package models

import "errors"

// Sentinel errors for entry, tag and timer operations.
var (
	ErrInvalidRange         = errors.New("end must be after start")
	ErrOverlapConflict      = errors.New("entry overlaps an existing entry")
	ErrTagFormatInvalid     = errors.New("tag must match [a-z0-9_-]+")
	ErrRunningTimerConflict = errors.New("only one running timer allowed")
	ErrNotFound             = errors.New("not found")
)
