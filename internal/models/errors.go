package models

import "errors"

// Custom errors
var (
	ErrNotFound             = errors.New("record not found")
	ErrInvalidID            = errors.New("invalid ID format")
	ErrNonContiguousLaps    = errors.New("lap series is not contiguous from lap 1")
	ErrConfidenceOutOfRange = errors.New("confidence score outside [0,1]")
	ErrInvalidPitEvent      = errors.New("invalid pit event")
)
