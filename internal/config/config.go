// Package config defines service configuration and its layered loader.
package config

import (
	"fmt"

	"github.com/okian/dabline/internal/domain/curve"
	"github.com/okian/dabline/internal/domain/paintinfo"
	"github.com/okian/dabline/internal/domain/pipeline"
	"github.com/okian/dabline/internal/domain/sampler"
	"github.com/okian/dabline/internal/gate"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the text or json handler.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// Pipeline tuning. Degenerate values are sanitized by the pipeline.
	SpacingPX             float64 `koanf:"spacing_px"`
	MaxIntervalUS         float64 `koanf:"max_interval_us"`
	TimedSpacing          bool    `koanf:"timed_spacing"`
	MaxSpeedPXPerMS       float64 `koanf:"max_speed_px_per_ms"`
	SpeedSmoothingSamples int     `koanf:"speed_smoothing_samples"`
	UseDeviceTime         bool    `koanf:"use_device_time"`
	PressureEnabled       bool    `koanf:"pressure_enabled"`

	// PressureCurve holds control points in [0,1]. Empty is the identity.
	PressureCurve []curve.Point `koanf:"pressure_curve"`

	// Gate settings.
	GateWorkers  int    `koanf:"gate_workers"`
	GateCapture  string `koanf:"gate_capture"`
	GateArtifact string `koanf:"gate_artifact"`
	GateSeed     uint64 `koanf:"gate_seed"`
}

// New returns a Config holding the defaults.
func New() *Config {
	return &Config{
		LogLevel:              "info",
		LogFormat:             "text",
		Addr:                  ":9080",
		SpacingPX:             sampler.DefaultSpacingPX,
		MaxIntervalUS:         sampler.DefaultMaxIntervalUS,
		TimedSpacing:          false,
		MaxSpeedPXPerMS:       paintinfo.DefaultMaxSpeedPXPerMS,
		SpeedSmoothingSamples: paintinfo.DefaultSmoothingWindow,
		PressureEnabled:       true,
		GateWorkers:           gate.DefaultWorkers,
		GateSeed:              gate.DefaultSeed,
	}
}

// Validate rejects settings the service cannot run with.
func (c *Config) Validate() error {
	if c.Addr == "" {
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	}
	if c.GateWorkers <= 0 {
		return fmt.Errorf("%w: gate_workers must be positive, got %d", ErrInvalidConfig, c.GateWorkers)
	}
	for i, p := range c.PressureCurve {
		if !(p.X >= 0 && p.X <= 1 && p.Y >= 0 && p.Y <= 1) {
			return fmt.Errorf("%w: pressure_curve[%d] (%g,%g) outside [0,1]", ErrInvalidConfig, i, p.X, p.Y)
		}
	}
	return nil
}

// Pipeline converts the tuning section into a pipeline configuration.
func (c *Config) Pipeline() pipeline.Config {
	cfg := pipeline.Config{
		SpacingPX:        c.SpacingPX,
		MaxIntervalUS:    c.MaxIntervalUS,
		TimedSpacing:     c.TimedSpacing,
		MaxSpeedPXPerMS:  c.MaxSpeedPXPerMS,
		SmoothingWindow:  c.SpeedSmoothingSamples,
		UseDeviceTime:    c.UseDeviceTime,
		PressureDisabled: !c.PressureEnabled,
	}
	if len(c.PressureCurve) > 0 {
		cfg.PressureCurve = curve.NewPressureCurve(c.PressureCurve)
	}
	return cfg
}
