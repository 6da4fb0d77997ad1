package gate

import (
	"math"

	"github.com/okian/dabline/internal/domain/input"
	"github.com/okian/dabline/internal/domain/model"
)

// Violations counts input defects found while normalizing a case. They are
// reported but never block the gate.
type Violations struct {
	PressureOutOfRange int `json:"pressure_out_of_range"`
	UnknownSource      int `json:"unknown_source"`
	NonMonotonicTime   int `json:"non_monotonic_time"`
	TimestampJumps     int `json:"timestamp_jumps"`
	InvalidPhase       int `json:"invalid_phase"`
	NonFinitePosition  int `json:"non_finite_position"`
	HoverSkipped       int `json:"hover_skipped"`
}

// Total returns the number of defects, hover samples excluded.
func (v Violations) Total() int {
	return v.PressureOutOfRange + v.UnknownSource + v.NonMonotonicTime +
		v.TimestampJumps + v.InvalidPhase + v.NonFinitePosition
}

// Normalize prepares samples for a differential run. Hover samples are dropped,
// source tags are resolved, unknown phases become moves, non-finite positions
// become 0 and host timestamps are made strictly increasing. Pressure is left
// as captured; the builder clamps it.
func Normalize(samples []model.RawInputSample, jumpUS int64) ([]model.RawInputSample, Violations) {
	var v Violations
	out := make([]model.RawInputSample, 0, len(samples))
	tb := input.NewTimebase()

	var prevHost int64
	seen := false
	for _, s := range samples {
		if s.Phase == model.PhaseHover {
			v.HoverSkipped++
			continue
		}
		if !input.ValidPhase(s.Phase) {
			v.InvalidPhase++
			s.Phase = model.PhaseMove
		}
		if math.IsNaN(s.Pressure) || s.Pressure < 0 || s.Pressure > 1 {
			v.PressureOutOfRange++
		}
		src, ok := input.ResolveSource(s.Source)
		if !ok {
			v.UnknownSource++
		}
		s.Source = string(src)
		if !finite(s.X) || !finite(s.Y) {
			v.NonFinitePosition++
			s.X, s.Y = finiteOrZero(s.X), finiteOrZero(s.Y)
		}
		s.TiltX = input.ClampTilt(s.TiltX)
		s.TiltY = input.ClampTilt(s.TiltY)
		s.Rotation = input.NormalizeRotation(s.Rotation)

		if seen {
			if s.HostTimeUS <= prevHost {
				v.NonMonotonicTime++
			} else if s.HostTimeUS-prevHost > jumpUS {
				v.TimestampJumps++
			}
		}
		prevHost, seen = s.HostTimeUS, true
		s.HostTimeUS = tb.Normalize(0, s.HostTimeUS)
		out = append(out, s)
	}
	return out, v
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func finiteOrZero(v float64) float64 {
	if finite(v) {
		return v
	}
	return 0
}
