package catalog

import "errors"

// Common catalog errors.
var (
	// ErrDuplicateFragment is returned when registering an identity
	// that already exists.
	ErrDuplicateFragment = errors.New("duplicate fragment")

	// ErrNotFound is returned when no fragment matches a lookup.
	ErrNotFound = errors.New("fragment not found")
)
