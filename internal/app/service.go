// Package service routes live pointer samples to one owned pressure pipeline
// per pointer and runs the parity gate on demand.
package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/okian/dabline/internal/domain/input"
	"github.com/okian/dabline/internal/domain/model"
	"github.com/okian/dabline/internal/domain/pipeline"
	"github.com/okian/dabline/internal/gate"
	"github.com/okian/dabline/pkg/logger"
	"github.com/okian/dabline/pkg/metrics"
)

// Stroke end labels.
const (
	endUp     = "up"
	endCancel = "cancel"
)

// Service owns the per-pointer pipelines. Pipelines are single-threaded, so
// every call that touches one holds the service lock.
type Service struct {
	mu sync.RWMutex

	// Configuration
	cfg          pipeline.Config
	capturePath  string
	artifactPath string
	gateOpts     []gate.Option

	// State
	started   bool
	pointers  map[uint32]*pipeline.Pipeline
	timebase  *input.Timebase
	corrected uint64
	retired   pipeline.Stats
	artifact  *gate.Artifact
	gateRuns  int

	// Logging
	logger logger.Logger
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		cfg:      pipeline.DefaultConfig(),
		pointers: make(map[uint32]*pipeline.Pipeline),
		timebase: input.NewTimebase(),
		logger:   nil, // replaced when the service starts
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start marks the service ready to accept samples.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}
	s.started = true
	s.logger.Info(ctx, "stroke service started",
		logger.Float64("spacingPx", s.cfg.SpacingPX),
		logger.Float64("maxIntervalUs", s.cfg.MaxIntervalUS),
		logger.Bool("timedSpacing", s.cfg.TimedSpacing),
		logger.String("capture", s.capturePath),
	)
	return nil
}

// Stop flushes every open stroke and stops accepting samples.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	for id := range s.pointers {
		s.closeStroke(id, endCancel)
	}
	s.timebase.Reset()
	s.corrected = 0
	metrics.UpdateActivePointers(0)
	s.started = false
	s.logger.Info(context.Background(), "stroke service stopped")
}

// ProcessSample feeds one sample for pointerID. A pointer-up sample closes the
// stroke; any finalize flush is appended to the returned dabs.
func (s *Service) ProcessSample(ctx context.Context, pointerID uint32, smp model.RawInputSample) (pipeline.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return pipeline.Result{}, ErrNotStarted
	}
	p, ok := s.pointers[pointerID]
	if smp.Phase == model.PhaseHover {
		if !ok {
			return pipeline.Result{}, nil
		}
		return p.ProcessSample(smp), nil
	}
	if !ok {
		p = pipeline.New(s.cfg)
		s.pointers[pointerID] = p
	}

	smp.HostTimeUS = s.timebase.Normalize(pointerID, smp.HostTimeUS)
	if n := s.timebase.Corrected(); n > s.corrected {
		metrics.RecordTimebaseCorrections(n - s.corrected)
		s.logger.Debug(ctx, "host timestamp corrected",
			logger.Int("pointer", int(pointerID)),
			logger.Any("hostTimeUs", smp.HostTimeUS),
		)
		s.corrected = n
	}

	if !p.State().Active {
		metrics.RecordStrokeStarted()
	}
	before := p.Stats()
	res := p.ProcessSample(smp)
	recordDabs(before, p.Stats())
	metrics.RecordSample()

	if smp.Phase == model.PhaseUp {
		res.Dabs = append(res.Dabs, s.closeStroke(pointerID, endUp)...)
	}
	metrics.UpdateActivePointers(len(s.pointers))
	return res, nil
}

// Cancel finalizes the stroke for pointerID after capture loss and returns the
// flush, if any.
func (s *Service) Cancel(ctx context.Context, pointerID uint32) ([]model.Dab, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return nil, ErrNotStarted
	}
	if _, ok := s.pointers[pointerID]; !ok {
		return nil, nil
	}
	dabs := s.closeStroke(pointerID, endCancel)
	metrics.UpdateActivePointers(len(s.pointers))
	s.logger.Debug(ctx, "stroke cancelled",
		logger.Int("pointer", int(pointerID)),
		logger.Int("flushed", len(dabs)),
	)
	return dabs, nil
}

// closeStroke finalizes and retires one pointer. Callers hold the lock.
func (s *Service) closeStroke(pointerID uint32, end string) []model.Dab {
	p := s.pointers[pointerID]
	before := p.Stats()
	flush := p.Finalize()
	after := p.Stats()
	recordDabs(before, after)

	s.retired.Samples += after.Samples
	s.retired.Strokes += after.Strokes
	s.retired.SampledDabs += after.SampledDabs
	s.retired.StationaryLiftDabs += after.StationaryLiftDabs
	s.retired.TerminalDabs += after.TerminalDabs
	s.retired.FinalizeFlushes += after.FinalizeFlushes

	delete(s.pointers, pointerID)
	s.timebase.Forget(pointerID)
	metrics.RecordStrokeFinished(end)
	return flush
}

func recordDabs(before, after pipeline.Stats) {
	metrics.RecordDabs(metrics.DabSampled, after.SampledDabs-before.SampledDabs)
	metrics.RecordDabs(metrics.DabStationary, after.StationaryLiftDabs-before.StationaryLiftDabs)
	metrics.RecordDabs(metrics.DabTerminal, after.TerminalDabs-before.TerminalDabs)
	metrics.RecordDabs(metrics.DabFlush, after.FinalizeFlushes-before.FinalizeFlushes)
}

// UpdateConfig applies new tuning to new strokes and to strokes in progress.
func (s *Service) UpdateConfig(cfg pipeline.Config) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cfg = cfg
	for _, p := range s.pointers {
		p.UpdateConfig(cfg)
	}
}

// RunGate certifies the current tuning against the configured capture.
func (s *Service) RunGate(ctx context.Context) (*gate.Artifact, error) {
	s.mu.RLock()
	started, path := s.started, s.capturePath
	s.mu.RUnlock()

	if !started {
		return nil, ErrNotStarted
	}
	if path == "" {
		return nil, ErrNoCapture
	}
	c, err := gate.LoadCapture(path)
	if err != nil {
		return nil, err
	}
	return s.RunGateCapture(ctx, c)
}

// RunGateCapture certifies the current tuning against c and keeps the
// artifact as the latest one.
func (s *Service) RunGateCapture(ctx context.Context, c gate.Capture) (*gate.Artifact, error) {
	s.mu.RLock()
	if !s.started {
		s.mu.RUnlock()
		return nil, ErrNotStarted
	}
	opts := append([]gate.Option{
		gate.WithPipelineConfig(s.cfg),
		gate.WithLogger(s.logger.Named("gate")),
	}, s.gateOpts...)
	artifactPath := s.artifactPath
	s.mu.RUnlock()

	a, err := gate.New(opts...).Run(ctx, c)
	if err != nil {
		s.logger.Error(ctx, "gate run failed", logger.Error(err))
		return nil, fmt.Errorf("gate run: %w", err)
	}
	if artifactPath != "" {
		if err := gate.WriteArtifact(artifactPath, a); err != nil {
			s.logger.Warn(ctx, "gate artifact not persisted", logger.Error(err))
		}
	}

	s.mu.Lock()
	s.artifact = a
	s.gateRuns++
	s.mu.Unlock()
	return a, nil
}

// LatestArtifact returns the artifact of the most recent gate run.
func (s *Service) LatestArtifact() (*gate.Artifact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.artifact == nil {
		return nil, ErrNoArtifact
	}
	return s.artifact, nil
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	totals := s.retired
	for _, p := range s.pointers {
		st := p.Stats()
		totals.Samples += st.Samples
		totals.Strokes += st.Strokes
		totals.SampledDabs += st.SampledDabs
		totals.StationaryLiftDabs += st.StationaryLiftDabs
		totals.TerminalDabs += st.TerminalDabs
		totals.FinalizeFlushes += st.FinalizeFlushes
	}

	stats := map[string]interface{}{
		"started":             s.started,
		"activePointers":      len(s.pointers),
		"samples":             totals.Samples,
		"strokes":             totals.Strokes,
		"sampledDabs":         totals.SampledDabs,
		"stationaryLiftDabs":  totals.StationaryLiftDabs,
		"terminalDabs":        totals.TerminalDabs,
		"finalizeFlushes":     totals.FinalizeFlushes,
		"timebaseCorrections": s.corrected,
		"gateRuns":            s.gateRuns,
	}
	if s.artifact != nil {
		stats["gateVerdict"] = string(s.artifact.Verdict)
		stats["gateRunId"] = s.artifact.RunID
	}
	metrics.UpdateActivePointers(len(s.pointers))
	return stats
}
