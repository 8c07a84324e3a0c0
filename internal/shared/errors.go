package shared

import "errors"

var (
	// ErrIdempotencyConflict indicates a duplicate key.
	ErrIdempotencyConflict = errors.New("idempotent request already processed")
)
