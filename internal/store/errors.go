package store

import "errors"

var (
	// ErrConflict reports that an insert or guarded update lost to a
	// competing live appointment for the same slot.
	ErrConflict = errors.New("conflict")
	ErrNotFound = errors.New("not found")
)
