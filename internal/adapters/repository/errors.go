package repository

import "errors"

// Sentinel kinds for review store errors.
var (
	ErrNotFound     = errors.New("job not found")
	ErrInvalidLimit = errors.New("invalid review limit")
)
