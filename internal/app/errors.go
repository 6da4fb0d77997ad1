package service

import "errors"

// Sentinel error kinds for the service.
var (
	ErrNotStarted = errors.New("service not started")
	ErrNoArtifact = errors.New("no gate artifact yet")
	ErrNoCapture  = errors.New("no gate capture configured")
)
