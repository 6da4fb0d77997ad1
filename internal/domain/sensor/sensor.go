// Package sensor maps stroke properties through per-sensor curves and combines
// the results into one brush-parameter multiplier.
package sensor

import (
	"math"

	"github.com/okian/dabline/internal/domain/curve"
	"github.com/okian/dabline/internal/domain/model"
)

// Input selects which PaintInfo property a sensor reads.
type Input string

// Sensor inputs.
const (
	InputPressure Input = "pressure"
	InputSpeed    Input = "speed"
	InputTime     Input = "time"
)

// Domain selects how values are mapped into and out of curve space.
type Domain string

// Curve domains.
const (
	DomainScaling          Domain = "scaling"
	DomainAdditive         Domain = "additive"
	DomainAbsoluteRotation Domain = "absolute_rotation"
)

const (
	// Neutral is the multiplier returned by a disabled sensor.
	Neutral       = 1.0
	usPerSecond   = 1_000_000
	degreesInTurn = 360
)

// Config describes one dynamic sensor.
type Config struct {
	Enabled bool      `json:"enabled" yaml:"enabled"`
	Input   Input     `json:"input" yaml:"input"`
	Domain  Domain    `json:"domain" yaml:"domain"`
	LUT     curve.LUT `json:"lut,omitempty" yaml:"lut,omitempty"`
}

// Evaluate reads the configured input from info, maps it through the sensor
// curve and returns the value in the sensor's output domain.
func Evaluate(info model.PaintInfo, cfg Config) float64 {
	if !cfg.Enabled {
		return Neutral
	}
	v := Read(info, cfg.Input)
	c := ToCurve(v, cfg.Domain)
	return FromCurve(curve.Sanitize(cfg.LUT).Sample(c), cfg.Domain)
}

// Read extracts the raw sensor input. Elapsed time is expressed in seconds
// and clamped to [0,1].
func Read(info model.PaintInfo, in Input) float64 {
	switch in {
	case InputSpeed:
		return info.Speed
	case InputTime:
		return math.Max(0, math.Min(1, float64(info.TimeUS)/usPerSecond))
	default:
		return info.Pressure
	}
}

// ToCurve maps a sensor value into the [0,1] curve domain.
func ToCurve(v float64, d Domain) float64 {
	switch d {
	case DomainAdditive:
		return (v + 1) / 2
	case DomainAbsoluteRotation:
		return math.Mod(math.Mod(v, degreesInTurn)+degreesInTurn, degreesInTurn) / degreesInTurn
	default:
		return v
	}
}

// FromCurve is the inverse of ToCurve.
func FromCurve(c float64, d Domain) float64 {
	switch d {
	case DomainAdditive:
		return c*2 - 1
	case DomainAbsoluteRotation:
		return c * degreesInTurn
	default:
		return c
	}
}
