package repository

import "errors"

// Sentinel kinds for repository errors. Missing entities and uniqueness
// violations wrap model.ErrNotFound and model.ErrDuplicate instead.
var (
	// ErrConflict means a guarded write found the row in an unexpected state.
	ErrConflict = errors.New("concurrent modification")
	ErrClosed   = errors.New("store closed")
)
