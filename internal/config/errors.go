package config

import "errors"

// Sentinel errors for configuration loading.
var (
	// ErrInvalidConfig is returned when a loaded value fails Validate.
	ErrInvalidConfig = errors.New("invalid dabline config")
	// ErrLoadConfig is returned when the file or env layer cannot be read.
	ErrLoadConfig = errors.New("failed to load dabline config")
)
