package gate

import (
	"math/rand/v2"

	"github.com/okian/dabline/internal/domain/model"
)

// Stress slice names.
const (
	SliceSlowLift        = "slow_lift"
	SliceFastFlick       = "fast_flick"
	SliceAbruptStop      = "abrupt_stop"
	SliceLowPressureDrag = "low_pressure_drag"
	SliceFirstBoundary   = "first_boundary"
	SliceLastBoundary    = "last_boundary"
	SliceNearZeroJitter  = "near_zero_jitter"
	SliceTimestampJump   = "timestamp_jump"
)

const (
	boundarySamples = 8
	jumpGapUS       = 250_000
)

// Case is one input sequence evaluated by the gate.
type Case struct {
	Name    string
	Samples []model.RawInputSample
}

type sliceGen func(anchor model.RawInputSample, rng *rand.Rand) []model.RawInputSample

// stroke accumulates synthetic samples from an anchor point.
type stroke struct {
	x, y float64
	t    int64
	src  string
	out  []model.RawInputSample
}

func newStroke(anchor model.RawInputSample) *stroke {
	src := anchor.Source
	if src == "" {
		src = string(model.SourcePen)
	}
	return &stroke{x: anchor.X, y: anchor.Y, t: anchor.HostTimeUS, src: src}
}

func (s *stroke) add(phase model.Phase, pressure float64) {
	s.out = append(s.out, model.RawInputSample{
		X: s.x, Y: s.y, Pressure: pressure, HostTimeUS: s.t, Source: s.src, Phase: phase,
	})
}

func (s *stroke) step(dx, dy float64, dtUS int64) {
	s.x += dx
	s.y += dy
	s.t += dtUS
}

func phaseAt(i, n int) model.Phase {
	switch i {
	case 0:
		return model.PhaseDown
	case n - 1:
		return model.PhaseUp
	default:
		return model.PhaseMove
	}
}

func jitter(rng *rand.Rand, amp float64) float64 {
	return (rng.Float64()*2 - 1) * amp
}

// slowLift eases pressure to zero while barely moving.
func slowLift(anchor model.RawInputSample, rng *rand.Rand) []model.RawInputSample {
	const n = 40
	s := newStroke(anchor)
	for i := range n {
		s.add(phaseAt(i, n), 0.6*float64(n-1-i)/float64(n-1))
		s.step(1+jitter(rng, 0.1), jitter(rng, 0.1), 4_000)
	}
	return s.out
}

// fastFlick covers long segments in few samples.
func fastFlick(anchor model.RawInputSample, rng *rand.Rand) []model.RawInputSample {
	const n = 12
	s := newStroke(anchor)
	for i := range n {
		s.add(phaseAt(i, n), 0.5+0.3*float64(i)/float64(n-1))
		s.step(60+jitter(rng, 5), 10+jitter(rng, 5), 4_000)
	}
	return s.out
}

// abruptStop moves fast, then holds still before lifting in place.
func abruptStop(anchor model.RawInputSample, rng *rand.Rand) []model.RawInputSample {
	const moving, holding = 20, 10
	s := newStroke(anchor)
	for i := range moving {
		s.add(phaseAt(i, moving+holding), 0.7+jitter(rng, 0.05))
		s.step(25+jitter(rng, 2), jitter(rng, 2), 4_000)
	}
	for i := range holding {
		s.add(phaseAt(moving+i, moving+holding), 0.7)
		s.step(0, 0, 4_000)
	}
	return s.out
}

// lowPressureDrag is a long, light stroke.
func lowPressureDrag(anchor model.RawInputSample, rng *rand.Rand) []model.RawInputSample {
	const n = 60
	s := newStroke(anchor)
	for i := range n {
		s.add(phaseAt(i, n), 0.02+rng.Float64()*0.06)
		s.step(2, jitter(rng, 0.5), 8_000)
	}
	return s.out
}

// nearZeroJitter trembles in place at almost no pressure.
func nearZeroJitter(anchor model.RawInputSample, rng *rand.Rand) []model.RawInputSample {
	const n = 50
	s := newStroke(anchor)
	for i := range n {
		s.add(phaseAt(i, n), rng.Float64()*0.01)
		s.step(jitter(rng, 0.3), jitter(rng, 0.3), 5_000)
	}
	return s.out
}

// timestampJump stalls the clock for a quarter second mid-stroke.
func timestampJump(anchor model.RawInputSample, rng *rand.Rand) []model.RawInputSample {
	const n = 30
	s := newStroke(anchor)
	for i := range n {
		s.add(phaseAt(i, n), 0.5+jitter(rng, 0.1))
		dt := int64(6_000)
		if i == n/2 {
			dt = jumpGapUS
		}
		s.step(3+jitter(rng, 0.5), jitter(rng, 0.5), dt)
	}
	return s.out
}

// boundary copies a window of the capture and re-labels it as a full stroke.
func boundary(samples []model.RawInputSample, first bool) []model.RawInputSample {
	n := min(boundarySamples, len(samples))
	var src []model.RawInputSample
	if first {
		src = samples[:n]
	} else {
		src = samples[len(samples)-n:]
	}
	out := append([]model.RawInputSample(nil), src...)
	if len(out) > 0 && out[0].Phase != model.PhaseUp {
		out[0].Phase = model.PhaseDown
	}
	return out
}

// buildCases returns the capture followed by the eight stress slices. Each
// synthetic slice has its own PCG stream so results do not depend on order.
func buildCases(c Capture, seed uint64) []Case {
	anchor := model.RawInputSample{Source: string(model.SourcePen)}
	if len(c.Samples) > 0 {
		anchor = c.Samples[0]
	}

	gens := []struct {
		name string
		gen  sliceGen
	}{
		{SliceSlowLift, slowLift},
		{SliceFastFlick, fastFlick},
		{SliceAbruptStop, abruptStop},
		{SliceLowPressureDrag, lowPressureDrag},
		{SliceNearZeroJitter, nearZeroJitter},
		{SliceTimestampJump, timestampJump},
	}

	name := c.Name
	if name == "" {
		name = "capture"
	}
	cases := []Case{
		{Name: name, Samples: c.Samples},
		{Name: SliceFirstBoundary, Samples: boundary(c.Samples, true)},
		{Name: SliceLastBoundary, Samples: boundary(c.Samples, false)},
	}
	for i, g := range gens {
		rng := rand.New(rand.NewPCG(seed, uint64(i+1))) //nolint:gosec // deterministic test data
		cases = append(cases, Case{Name: g.name, Samples: g.gen(anchor, rng)})
	}
	return cases
}
