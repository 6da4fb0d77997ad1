package gate

import (
	"github.com/okian/dabline/internal/domain/pipeline"
	"github.com/okian/dabline/pkg/logger"
)

// Gate defaults.
const (
	DefaultWorkers         = 4
	DefaultJumpThresholdUS = 100_000
	DefaultSeed            = 0x5eed
)

// Thresholds are the blocking limits of every metric the gate computes.
type Thresholds struct {
	PressureMAE   float64 `json:"pressure_mae"`
	PressureP95   float64 `json:"pressure_p95"`
	SpeedMAE      float64 `json:"speed_mae"`
	SpeedP95      float64 `json:"speed_p95"`
	MixMAE        float64 `json:"mix_mae"`
	MixP95        float64 `json:"mix_p95"`
	DabCountDelta int     `json:"dab_count_delta"`
	// CarryError bounds distance carry in px and time carry in ms.
	CarryError          float64 `json:"carry_error"`
	SensorMAE           float64 `json:"sensor_mae"`
	SensorP95           float64 `json:"sensor_p95"`
	WidthDivergence     float64 `json:"width_divergence"`
	TailDecayDivergence float64 `json:"tail_decay_divergence"`
	AreaDivergence      float64 `json:"area_divergence"`
	FastMAE             float64 `json:"fast_window_mae"`
	FastP95             float64 `json:"fast_window_p95"`
}

// DefaultThresholds returns the certification limits.
func DefaultThresholds() Thresholds {
	return Thresholds{
		PressureMAE:         0.02,
		PressureP95:         0.04,
		SpeedMAE:            0.03,
		SpeedP95:            0.06,
		MixMAE:              0.02,
		MixP95:              0.04,
		DabCountDelta:       2,
		CarryError:          1e-3,
		SensorMAE:           0.02,
		SensorP95:           0.04,
		WidthDivergence:     0.03,
		TailDecayDivergence: 0.05,
		AreaDivergence:      0.02,
		FastMAE:             0.03,
		FastP95:             0.06,
	}
}

// Option applies a configuration option to the Runner.
type Option func(*Runner)

// WithPipelineConfig sets the pipeline tuning certified by the gate.
func WithPipelineConfig(cfg pipeline.Config) Option {
	return func(r *Runner) {
		r.cfg = cfg
	}
}

// WithThresholds overrides the blocking limits.
func WithThresholds(t Thresholds) Option {
	return func(r *Runner) {
		r.thresholds = t
	}
}

// WithWorkers bounds how many cases run in parallel.
func WithWorkers(n int) Option {
	return func(r *Runner) {
		if n > 0 {
			r.workers = n
		}
	}
}

// WithSeed seeds the synthetic stress slices.
func WithSeed(seed uint64) Option {
	return func(r *Runner) {
		r.seed = seed
	}
}

// WithJumpThreshold sets the gap in microseconds counted as a timestamp jump.
func WithJumpThreshold(us int64) Option {
	return func(r *Runner) {
		if us > 0 {
			r.jumpUS = us
		}
	}
}

// WithPresets replaces the sensor presets.
func WithPresets(p []Preset) Option {
	return func(r *Runner) {
		if p != nil {
			r.presets = p
		}
	}
}

// WithLogger sets a custom logger for the runner.
func WithLogger(l logger.Logger) Option {
	return func(r *Runner) {
		if l != nil {
			r.logger = l
		}
	}
}
