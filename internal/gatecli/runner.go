package gatecli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/okian/dabline/internal/domain/pipeline"
	"github.com/okian/dabline/internal/gate"
	"github.com/okian/dabline/pkg/logger"
)

// Exit codes.
const (
	ExitPass  = 0
	ExitFail  = 1
	ExitError = 2
)

// Run executes the gate, persists the artifact and prints the text summary
// to out. A FAIL verdict is not an error; see ExitCode.
func Run(ctx context.Context, cfg *Config, tuning pipeline.Config, out io.Writer) (*gate.Artifact, error) {
	start := time.Now()
	log := logger.Get().Named("dabgate")

	log.Info(ctx, "starting parity gate",
		logger.String("capture", cfg.CapturePath),
		logger.String("url", cfg.BaseURL),
		logger.Int("workers", cfg.Workers),
		logger.Any("seed", cfg.Seed),
	)

	var (
		a   *gate.Artifact
		err error
	)
	if cfg.Remote() {
		a, err = runRemote(ctx, cfg)
	} else {
		a, err = runLocal(ctx, cfg, tuning, log)
	}
	if err != nil {
		return nil, err
	}
	if err := verifyArtifact(a); err != nil {
		return nil, err
	}

	if cfg.ArtifactPath != "" {
		if err := gate.WriteArtifact(cfg.ArtifactPath, a); err != nil {
			return a, err
		}
		log.Info(ctx, "artifact written", logger.String("path", cfg.ArtifactPath))
	}
	_, _ = io.WriteString(out, a.Text())

	displayFinalStats(ctx, log, a, time.Since(start))
	return a, nil
}

// runLocal certifies the capture in process.
func runLocal(ctx context.Context, cfg *Config, tuning pipeline.Config, log logger.Logger) (*gate.Artifact, error) {
	if cfg.CapturePath == "" {
		return nil, ErrNoCapture
	}
	c, err := gate.LoadCapture(cfg.CapturePath)
	if err != nil {
		return nil, err
	}
	log.Debug(ctx, "capture loaded", logger.String("name", c.Name), logger.Int("samples", len(c.Samples)))

	r := gate.New(
		gate.WithPipelineConfig(tuning),
		gate.WithWorkers(cfg.Workers),
		gate.WithSeed(cfg.Seed),
		gate.WithLogger(log),
	)
	a, err := r.Run(ctx, c)
	if err != nil {
		return nil, fmt.Errorf("gate run: %w", err)
	}
	return a, nil
}

// ExitCode maps a run outcome to the process exit status.
func ExitCode(a *gate.Artifact, err error) int {
	switch {
	case err != nil || a == nil:
		return ExitError
	case !a.Passed():
		return ExitFail
	default:
		return ExitPass
	}
}

// displayFinalStats logs the final run statistics.
func displayFinalStats(ctx context.Context, log logger.Logger, a *gate.Artifact, elapsed time.Duration) {
	log.Info(ctx, "final statistics",
		logger.String("runId", a.RunID),
		logger.String("verdict", string(a.Verdict)),
		logger.Int("casesPassed", a.Summary.CasesPassed),
		logger.Int("casesTotal", a.Summary.CasesTotal),
		logger.Int("presetsPassed", a.Summary.PresetsPassed),
		logger.Int("presetsTotal", a.Summary.PresetsTotal),
		logger.Int("blockingFailures", len(a.BlockingFailures)),
		logger.Duration("elapsed", elapsed),
	)
}
