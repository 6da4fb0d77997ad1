package sensor

import (
	"math"

	"github.com/okian/dabline/internal/domain/model"
)

// Mode is the associative operator used to reduce sensor outputs.
type Mode string

// Combine modes.
const (
	ModeMultiply   Mode = "multiply"
	ModeAdd        Mode = "add"
	ModeMax        Mode = "max"
	ModeMin        Mode = "min"
	ModeDifference Mode = "difference"
)

// degenerateSpan is the width of the clamp range used when max <= min.
const degenerateSpan = 1e-6

// Combine reduces values left to right starting from values[0], multiplies the
// result by constant and clamps it to [lo, hi]. No values reduce to 1.
// When hi <= lo the clamp range collapses to [lo, lo+1e-6].
func Combine(constant float64, values []float64, mode Mode, lo, hi float64) float64 {
	acc := Neutral
	if len(values) > 0 {
		acc = values[0]
		for _, v := range values[1:] {
			acc = apply(mode, acc, v)
		}
	}
	acc *= constant
	if hi <= lo {
		hi = lo + degenerateSpan
	}
	return math.Max(lo, math.Min(hi, acc))
}

func apply(mode Mode, acc, v float64) float64 {
	switch mode {
	case ModeAdd:
		return acc + v
	case ModeMax:
		return math.Max(acc, v)
	case ModeMin:
		return math.Min(acc, v)
	case ModeDifference:
		return math.Abs(acc - v)
	default:
		return acc * v
	}
}

// Option is a brush parameter driven by several sensors.
type Option struct {
	Name     string   `json:"name" yaml:"name"`
	Constant float64  `json:"constant" yaml:"constant"`
	Sensors  []Config `json:"sensors" yaml:"sensors"`
	Mode     Mode     `json:"mode" yaml:"mode"`
	Min      float64  `json:"min" yaml:"min"`
	Max      float64  `json:"max" yaml:"max"`
}

// Resolve evaluates every enabled sensor of o against info and combines them.
// Disabled sensors are skipped.
func (o Option) Resolve(info model.PaintInfo) float64 {
	values := make([]float64, 0, len(o.Sensors))
	for _, s := range o.Sensors {
		if !s.Enabled {
			continue
		}
		values = append(values, Evaluate(info, s))
	}
	return Combine(o.Constant, values, o.Mode, o.Min, o.Max)
}
