package history

import "errors"

// Storage errors shared by all Store implementations.
var (
	// ErrNotFound is returned when a requested activity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateKey is returned when recording an activity whose id
	// already exists.
	ErrDuplicateKey = errors.New("duplicate key")

	// ErrInvalidInput is returned when input validation fails.
	ErrInvalidInput = errors.New("invalid input")
)
