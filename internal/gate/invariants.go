package gate

import (
	"fmt"
	"math"
	"reflect"

	"github.com/okian/dabline/internal/domain/model"
	"github.com/okian/dabline/internal/domain/pipeline"
	"github.com/okian/dabline/internal/domain/sampler"
)

// Invariant names, as they appear in blocking failures.
const (
	InvNoStartDistanceGate = "no_start_distance_gate"
	InvNoStartRamp         = "no_start_ramp"
	InvNoForcedZero        = "no_forced_zero"
	InvLinearOnlyMix       = "linear_only_mix"
	InvPointerUpNoDup      = "pointer_up_no_duplicate"
	InvPressureToggle      = "pressure_toggle_roundtrip"
)

const (
	startDabs      = 4
	startTolerance = 1e-4
	exactTolerance = 1e-9
	// crossSlack is added to a cadence threshold before the first dab is
	// required, absorbing the sampler's snap tolerance.
	crossSlack = 1e-6
)

// InvariantResult is the outcome of one semantic check.
type InvariantResult struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
	Detail string `json:"detail,omitempty"`
}

func pass(name, detail string) InvariantResult {
	return InvariantResult{Name: name, Passed: true, Detail: detail}
}

func fail(name, format string, args ...any) InvariantResult {
	return InvariantResult{Name: name, Detail: fmt.Sprintf(format, args...)}
}

// checkInvariants evaluates the six semantic invariants for one case.
func checkInvariants(samples []model.RawInputSample, cfg pipeline.Config, s, ref run, direct []float64) []InvariantResult {
	return []InvariantResult{
		noStartDistanceGate(s, cfg),
		noStartRamp(s, ref),
		noForcedZero(s, direct),
		linearOnlyMix(s),
		pointerUpNoDuplicate(samples, s),
		pressureToggle(samples, cfg, s),
	}
}

// noStartDistanceGate requires the first dab no later than the sample at which
// the travelled distance (or elapsed time, when timed) first crosses its cadence.
func noStartDistanceGate(s run, cfg pipeline.Config) InvariantResult {
	p := sampler.Params{SpacingPX: cfg.SpacingPX, MaxIntervalUS: cfg.MaxIntervalUS, TimedSpacing: cfg.TimedSpacing}.Sanitize()

	first := -1
	for i, n := range s.EmittedAt {
		if n > 0 {
			first = i
			break
		}
	}

	due := -1
	dist, dur := 0.0, 0.0
	for i := 1; i < len(s.Infos); i++ {
		dist += model.Distance(s.Infos[i-1], s.Infos[i])
		dur += float64(max(s.Infos[i].TimeUS-s.Infos[i-1].TimeUS, 0))
		if dist >= p.SpacingPX+crossSlack || (p.TimedSpacing && dur >= p.MaxIntervalUS+crossSlack) {
			due = i
			break
		}
	}

	switch {
	case due < 0:
		return pass(InvNoStartDistanceGate, "cadence never crossed")
	case first < 0 || first > due:
		return fail(InvNoStartDistanceGate, "first dab at sample %d, due by sample %d", first, due)
	default:
		return pass(InvNoStartDistanceGate, "")
	}
}

// noStartRamp requires the opening dabs to match the reference exactly enough
// that no fade-in can hide in them.
func noStartRamp(s, ref run) InvariantResult {
	n := min(startDabs, max(len(s.Dabs), len(ref.Dabs)))
	if len(s.Dabs) < n || len(ref.Dabs) < n {
		return fail(InvNoStartRamp, "stream has %d dabs, reference %d", len(s.Dabs), len(ref.Dabs))
	}
	for i := range n {
		a, b := s.Dabs[i], ref.Dabs[i]
		if math.Abs(a.Pressure-b.Pressure) > startTolerance ||
			math.Hypot(a.X-b.X, a.Y-b.Y) > startTolerance {
			return fail(InvNoStartRamp, "dab %d pressure %.6f, reference %.6f", i, a.Pressure, b.Pressure)
		}
	}
	return pass(InvNoStartRamp, "")
}

// noForcedZero requires the first paint point to carry the mapped pressure of
// the true first sample.
func noForcedZero(s run, direct []float64) InvariantResult {
	if len(s.Infos) == 0 {
		return pass(InvNoForcedZero, "empty case")
	}
	got, want := s.Infos[0].Pressure, direct[0]
	if math.Abs(got-want) > exactTolerance {
		return fail(InvNoForcedZero, "first pressure %.6f, expected %.6f", got, want)
	}
	return pass(InvNoForcedZero, "")
}

// linearOnlyMix probes Mix against a plain clamped lerp.
func linearOnlyMix(s run) InvariantResult {
	from := model.PaintInfo{X: 0, Y: 0, Pressure: 0.1, Speed: 0, TimeUS: 0}
	to := model.PaintInfo{X: 10, Y: -4, Pressure: 0.9, Speed: 0.6, TimeUS: 8_000}
	if len(s.Infos) >= 2 {
		from, to = s.Infos[0], s.Infos[len(s.Infos)-1]
	}
	for _, t := range []float64{-0.5, 0, 0.25, 0.5, 0.75, 1, 1.5} {
		got := pipeline.Mix(from, to, t)
		u := min(1, max(0, t))
		l := func(a, b float64) float64 { return a*(1-u) + b*u }
		if math.Abs(got.X-l(from.X, to.X)) > exactTolerance*math.Max(1, math.Abs(to.X-from.X)) ||
			math.Abs(got.Y-l(from.Y, to.Y)) > exactTolerance*math.Max(1, math.Abs(to.Y-from.Y)) ||
			math.Abs(got.Pressure-l(from.Pressure, to.Pressure)) > exactTolerance ||
			math.Abs(got.Speed-l(from.Speed, to.Speed)) > exactTolerance ||
			math.Abs(float64(got.TimeUS)-l(float64(from.TimeUS), float64(to.TimeUS))) > 1 {
			return fail(InvLinearOnlyMix, "mix at t=%.2f is not linear: %+v", t, got)
		}
	}
	return pass(InvLinearOnlyMix, "")
}

// pointerUpNoDuplicate requires a stroke ending in pointer-up to end on its
// terminal point with nothing left for finalize.
func pointerUpNoDuplicate(samples []model.RawInputSample, s run) InvariantResult {
	if len(samples) == 0 || samples[len(samples)-1].Phase != model.PhaseUp {
		return pass(InvPointerUpNoDup, "stroke does not end with pointer-up")
	}
	if len(s.Flush) != 0 {
		return fail(InvPointerUpNoDup, "finalize emitted %d dabs after pointer-up", len(s.Flush))
	}
	if len(s.Dabs) == 0 {
		return fail(InvPointerUpNoDup, "pointer-up emitted no dab")
	}
	last := s.Dabs[len(s.Dabs)-1]
	term := s.Infos[len(s.Infos)-1]
	if !model.SamePoint(last, term, pipeline.TerminalEpsilon) {
		return fail(InvPointerUpNoDup, "last dab %+v is not the terminal point %+v", last, term)
	}
	if n := len(s.Dabs); n >= 2 && s.Dabs[n-1] == s.Dabs[n-2] {
		return fail(InvPointerUpNoDup, "terminal dab duplicated")
	}
	return pass(InvPointerUpNoDup, "")
}

// pressureToggle disables and re-enables pressure before every sample and
// requires bit-identical output, then checks a fully disabled run.
func pressureToggle(samples []model.RawInputSample, cfg pipeline.Config, base run) InvariantResult {
	if cfg.PressureDisabled {
		return pass(InvPressureToggle, "pressure disabled in config")
	}
	off := cfg
	off.PressureDisabled = true

	toggled := streamRun(samples, cfg, func(p *pipeline.Pipeline) {
		p.UpdateConfig(off)
		p.UpdateConfig(cfg)
	})
	if !reflect.DeepEqual(toggled.Dabs, base.Dabs) {
		return fail(InvPressureToggle, "toggled run diverged (%d vs %d dabs)", len(toggled.Dabs), len(base.Dabs))
	}

	disabled := streamRun(samples, off, nil)
	if len(disabled.Dabs) != len(base.Dabs) {
		return fail(InvPressureToggle, "disabled run has %d dabs, enabled %d", len(disabled.Dabs), len(base.Dabs))
	}
	for i, d := range disabled.Dabs {
		if d.Pressure != 1 {
			return fail(InvPressureToggle, "disabled dab %d has pressure %.6f", i, d.Pressure)
		}
	}
	return pass(InvPressureToggle, "")
}
