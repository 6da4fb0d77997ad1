// Package sampler decides where along a segment new dabs must be placed,
// honoring a distance cadence and an optional time cadence while carrying
// leftover debt between segments.
package sampler

import (
	"math"
	"sort"

	"github.com/okian/dabline/internal/domain/model"
)

// Sampling limits and defaults.
const (
	// MaxSamples caps the fractions produced for one segment.
	MaxSamples = 8192
	// minStep floors the per-iteration fraction step.
	minStep = 1.0 / MaxSamples
	// DedupeEpsilon merges fractions closer than this.
	DedupeEpsilon = 1e-4
	// snapEpsilon snaps carry values that sit on a clean multiple.
	snapEpsilon = 1e-6

	DefaultSpacingPX     = 2.0
	DefaultMaxIntervalUS = 16_000.0
)

// Params is the per-call cadence configuration.
type Params struct {
	SpacingPX     float64
	MaxIntervalUS float64
	TimedSpacing  bool
}

// Segment is the distance and duration between two consecutive points.
type Segment struct {
	DistancePX float64
	DurationUS float64
}

// Sanitize replaces non-finite or non-positive cadence values with defaults.
func (p Params) Sanitize() Params {
	if !positive(p.SpacingPX) {
		p.SpacingPX = DefaultSpacingPX
	}
	if !positive(p.MaxIntervalUS) {
		p.MaxIntervalUS = DefaultMaxIntervalUS
	}
	return p
}

// Fractions is the pure sampling core. Given the carry entering a segment it
// returns the ascending, de-duplicated fractions in (0,1] at which dabs fall
// and the carry leaving the segment.
func Fractions(carry model.CarryState, seg Segment, p Params) ([]float64, model.CarryState) {
	p = p.Sanitize()
	dist := nonNegative(seg.DistancePX)
	dur := nonNegative(seg.DurationUS)
	carry.DistancePX = nonNegative(carry.DistancePX)
	carry.TimeUS = nonNegative(carry.TimeUS)

	var out []float64
	out = channel(out, dist, carry.DistancePX, p.SpacingPX)
	if p.TimedSpacing {
		out = channel(out, dur, carry.TimeUS, p.MaxIntervalUS)
	}
	out = merge(out)

	next := model.CarryState{DistancePX: advance(carry.DistancePX, dist, p.SpacingPX)}
	if p.TimedSpacing {
		next.TimeUS = advance(carry.TimeUS, dur, p.MaxIntervalUS)
	}
	return out, next
}

// channel appends the fractions for one cadence. Positions are tracked in
// the channel's own units; a candidate that overshoots the segment end by less
// than the carry snap tolerance is emitted at 1, matching the carry that snaps
// to zero.
func channel(out []float64, length, carry, threshold float64) []float64 {
	if length <= 0 {
		return out
	}
	step := math.Max(threshold, length*minStep)
	pos := threshold - carry
	for i := 0; i < MaxSamples && pos <= length+snapEpsilon; i++ {
		if f := pos / length; f > 0 {
			out = append(out, math.Min(f, 1))
		}
		pos += step
	}
	return out
}

func merge(in []float64) []float64 {
	if len(in) == 0 {
		return nil
	}
	sort.Float64s(in)
	out := in[:1]
	for _, v := range in[1:] {
		if v-out[len(out)-1] <= DedupeEpsilon {
			continue
		}
		out = append(out, v)
	}
	if len(out) > MaxSamples {
		out = out[:MaxSamples]
	}
	return out
}

// advance returns (carry+length) mod threshold, snapped to 0 near a multiple.
func advance(carry, length, threshold float64) float64 {
	r := math.Mod(carry+length, threshold)
	if r < snapEpsilon || threshold-r < snapEpsilon {
		return 0
	}
	return r
}

func positive(v float64) bool {
	return v > 0 && !math.IsInf(v, 0) && !math.IsNaN(v)
}

func nonNegative(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0
	}
	return v
}

// Sampler owns the carry state for one stroke. Not safe for concurrent use.
type Sampler struct {
	carry model.CarryState
}

// New returns a sampler with zero carry.
func New() *Sampler {
	return &Sampler{}
}

// SampleSegment returns the dab fractions for one segment and advances the
// carry. Degenerate segments (zero distance and duration) yield nothing.
func (s *Sampler) SampleSegment(distancePX, durationUS float64, p Params) []float64 {
	out, next := Fractions(s.carry, Segment{DistancePX: distancePX, DurationUS: durationUS}, p)
	s.carry = next
	return out
}

// Carry returns the current carry pair.
func (s *Sampler) Carry() model.CarryState {
	return s.carry
}

// Restore replaces the carry pair, e.g. from a checkpoint.
func (s *Sampler) Restore(c model.CarryState) {
	s.carry = model.CarryState{DistancePX: nonNegative(c.DistancePX), TimeUS: nonNegative(c.TimeUS)}
}

// Reset zeroes the carry.
func (s *Sampler) Reset() {
	s.carry = model.CarryState{}
}
