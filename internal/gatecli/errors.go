package gatecli

import "errors"

// Sentinel kinds for gate CLI errors.
var (
	ErrNoCapture   = errors.New("no capture given")
	ErrRemote      = errors.New("remote gate run failed")
	ErrBadArtifact = errors.New("inconsistent artifact")
)
