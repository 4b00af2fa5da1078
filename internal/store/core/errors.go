package core

import "errors"

var (
	// ErrNotFound is returned by lookups when no row matches.
	ErrNotFound = errors.New("not found")

	// ErrConflict is returned when a uniqueness constraint rejects a write.
	ErrConflict = errors.New("conflict")
)
