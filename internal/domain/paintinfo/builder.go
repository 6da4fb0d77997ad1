// Package paintinfo converts raw pointer samples into canonical paint points.
package paintinfo

import (
	"math"

	"github.com/okian/dabline/internal/domain/curve"
	"github.com/okian/dabline/internal/domain/input"
	"github.com/okian/dabline/internal/domain/model"
)

// Default builder configuration.
const (
	DefaultMaxSpeedPXPerMS = 30.0
	DefaultSmoothingWindow = 3
	usPerMS                = 1000.0
)

// Config tunes pressure mapping and speed estimation.
type Config struct {
	// PressureCurve maps clamped raw pressure. Nil is the identity.
	PressureCurve *curve.PressureCurve
	// PressureDisabled forces every pressure to 1.
	PressureDisabled bool
	// MaxSpeedPXPerMS clamps raw speed and normalizes it to [0,1].
	MaxSpeedPXPerMS float64
	// SmoothingWindow is the number of speed samples averaged.
	SmoothingWindow int
	// UseDeviceTime prefers device timestamps for speed when both samples carry one.
	UseDeviceTime bool
}

func (c Config) sanitize() Config {
	if !(c.MaxSpeedPXPerMS > 0) || math.IsInf(c.MaxSpeedPXPerMS, 0) {
		c.MaxSpeedPXPerMS = DefaultMaxSpeedPXPerMS
	}
	if c.SmoothingWindow < 1 {
		c.SmoothingWindow = DefaultSmoothingWindow
	}
	return c
}

// Builder turns raw samples into PaintInfo values. It keeps the previous
// sample, the stroke start time and a speed smoothing window.
// Not safe for concurrent use.
type Builder struct {
	cfg     Config
	prev    *model.RawInputSample
	startUS int64
	window  []float64
}

// NewBuilder creates a builder with cfg, sanitizing degenerate values.
func NewBuilder(cfg Config) *Builder {
	return &Builder{cfg: cfg.sanitize()}
}

// Build converts one sample. The first sample after construction or Reset
// always has speed 0 and does not enter the smoothing window.
func (b *Builder) Build(s model.RawInputSample) model.PaintInfo {
	info := model.PaintInfo{
		X:        finiteOr(s.X),
		Y:        finiteOr(s.Y),
		Pressure: b.pressure(s.Pressure),
	}

	if b.prev == nil {
		b.startUS = s.HostTimeUS
		info.TimeUS = 0
	} else {
		info.Speed = b.push(b.rawSpeed(*b.prev, s))
		info.TimeUS = max(s.HostTimeUS-b.startUS, 0)
	}

	cp := s
	b.prev = &cp
	return info
}

func (b *Builder) pressure(raw float64) float64 {
	if b.cfg.PressureDisabled {
		return 1
	}
	return b.cfg.PressureCurve.Map(input.ClampPressure(raw))
}

// rawSpeed returns the normalized instantaneous speed between two samples.
func (b *Builder) rawSpeed(prev, cur model.RawInputSample) float64 {
	dist := math.Hypot(finiteOr(cur.X)-finiteOr(prev.X), finiteOr(cur.Y)-finiteOr(prev.Y))
	dtUS := cur.HostTimeUS - prev.HostTimeUS
	if b.cfg.UseDeviceTime && cur.DeviceTimeUS != nil && prev.DeviceTimeUS != nil {
		dtUS = *cur.DeviceTimeUS - *prev.DeviceTimeUS
	}
	if dist == 0 {
		return 0
	}
	// A non-advancing clock counts as one microsecond.
	dtMS := float64(max(dtUS, 1)) / usPerMS
	speed := math.Min(dist/dtMS, b.cfg.MaxSpeedPXPerMS)
	return speed / b.cfg.MaxSpeedPXPerMS
}

// push adds v to the smoothing window and returns the window mean.
func (b *Builder) push(v float64) float64 {
	b.window = append(b.window, v)
	if over := len(b.window) - b.cfg.SmoothingWindow; over > 0 {
		b.window = append(b.window[:0], b.window[over:]...)
	}
	sum := 0.0
	for _, w := range b.window {
		sum += w
	}
	return sum / float64(len(b.window))
}

// Reset clears all history. The next sample starts a new stroke.
func (b *Builder) Reset() {
	b.prev = nil
	b.startUS = 0
	b.window = b.window[:0]
}

// UpdateConfig swaps curve, window size and max speed without losing history.
// A shrinking window keeps the most recent values.
func (b *Builder) UpdateConfig(cfg Config) {
	b.cfg = cfg.sanitize()
	if over := len(b.window) - b.cfg.SmoothingWindow; over > 0 {
		b.window = append(b.window[:0], b.window[over:]...)
	}
}

// Config returns the active configuration.
func (b *Builder) Config() Config {
	return b.cfg
}

func finiteOr(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
