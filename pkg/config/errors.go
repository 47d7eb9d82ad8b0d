package config

import "errors"

// Sentinel errors for configuration failure modes.
// Callers should use errors.Is() to check for these.
var (
	// ErrInvalidConfig indicates an option value is out of range
	// (negative timeout, zero concurrency limit, and so on).
	ErrInvalidConfig = errors.New("config: invalid configuration")

	// ErrUnknownField indicates a configuration source supplied an
	// option the core does not recognize. Unknown options are
	// rejected at construction, never silently ignored.
	ErrUnknownField = errors.New("config: unknown field")
)
