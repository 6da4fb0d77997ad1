// Package gatecli runs the parity gate from the command line, either on a
// local capture or against a live service, for CI pipelines.
package gatecli

import (
	"fmt"
	"io"
	"os"

	"github.com/okian/dabline/pkg/logger"
)

// File permission constants.
const (
	logFilePermission = 0o600
)

// SetupLogging initializes the logger on stderr, mirrored to logFile when
// one is given. The returned close func releases the file.
func SetupLogging(logFile, format string, verbose bool) (func() error, error) {
	var w io.Writer = os.Stderr
	closeFn := func() error { return nil }

	if logFile != "" {
		file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, logFilePermission)
		if err != nil {
			return nil, fmt.Errorf("failed to create log file: %w", err)
		}
		w = io.MultiWriter(os.Stderr, file)
		closeFn = file.Close
	}

	if err := logger.Init(logger.WithFormat(format), logger.WithWriter(w)); err != nil {
		_ = closeFn()
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	if verbose {
		_ = logger.SetLevelString("debug")
	}
	return closeFn, nil
}

// ShowHelp prints usage information for the gate tool.
func ShowHelp(w io.Writer) {
	_, _ = io.WriteString(w, `dabline parity gate
===================

Certifies that the streaming pressure pipeline reproduces the batch reference
over a captured stroke, its stress slices and every sensor preset.

Usage:
  dabgate [options]

Options:
  -capture string
        Capture file (YAML or JSON) to certify locally (default $DABLINE_GATE_CAPTURE)
  -artifact string
        Where to write the JSON artifact (default $DABLINE_GATE_ARTIFACT)
  -url string
        Run the gate on a live service instead, e.g. http://localhost:9080
  -workers int
        Cases run in parallel (default $DABLINE_GATE_WORKERS)
  -seed uint
        Stress slice seed (default $DABLINE_GATE_SEED)
  -timeout duration
        HTTP request timeout for -url (default 2m)
  -log string
        Also write logs to this file
  -log-format string
        text or json (default $DABLINE_LOG_FORMAT)
  -verbose
        Enable debug logging
  -help
        Show this help message

Pipeline tuning comes from the same DABLINE_* configuration as the service.

Exit status:
  0  PASS
  1  FAIL (blocking failures listed in the summary)
  2  the gate could not run

Examples:
  dabgate -capture testdata/wave.yaml -artifact out/gate.json
  DABLINE_TIMED_SPACING=true dabgate -capture testdata/wave.yaml
  dabgate -url http://localhost:9080
`)
}
