package gate

import "errors"

// Sentinel errors returned by the gate. Metric divergence is never an error;
// it is reported as blocking failures in the artifact.
var (
	ErrCaptureLoad   = errors.New("failed to load capture")
	ErrEmptyCapture  = errors.New("capture has no samples")
	ErrArtifactWrite = errors.New("failed to write gate artifact")
)
