package service

import (
	"github.com/okian/dabline/internal/domain/pipeline"
	"github.com/okian/dabline/internal/gate"
	"github.com/okian/dabline/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithPipelineConfig sets the tuning used for every pointer and for gate runs.
func WithPipelineConfig(cfg pipeline.Config) Option {
	return func(s *Service) {
		s.cfg = cfg
	}
}

// WithCapturePath sets the capture file certified by RunGate.
func WithCapturePath(path string) Option {
	return func(s *Service) {
		if path != "" {
			s.capturePath = path
		}
	}
}

// WithArtifactPath makes RunGate persist every artifact to path.
func WithArtifactPath(path string) Option {
	return func(s *Service) {
		if path != "" {
			s.artifactPath = path
		}
	}
}

// WithGateOptions adds options for the gate runner.
func WithGateOptions(opts ...gate.Option) Option {
	return func(s *Service) {
		s.gateOpts = append(s.gateOpts, opts...)
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}
