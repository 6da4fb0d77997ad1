package gate

import (
	"math"

	"github.com/okian/dabline/internal/domain/curve"
	"github.com/okian/dabline/internal/domain/input"
	"github.com/okian/dabline/internal/domain/model"
	"github.com/okian/dabline/internal/domain/paintinfo"
	"github.com/okian/dabline/internal/domain/pipeline"
	"github.com/okian/dabline/internal/domain/sampler"
)

// run is the output of one pass over a case, streaming or batch. All per-sample
// slices are indexed by normalized sample.
type run struct {
	Infos   []model.PaintInfo
	Carries []model.CarryState
	// EmittedAt is the number of dabs produced by each sample.
	EmittedAt []int
	// Dabs holds every dab, the finalize flush included.
	Dabs  []model.Dab
	Flush []model.Dab
}

// streamRun feeds samples through a live pipeline one at a time, the way the
// service does. before, when set, is called ahead of every sample.
func streamRun(samples []model.RawInputSample, cfg pipeline.Config, before func(*pipeline.Pipeline)) run {
	p := pipeline.New(cfg)
	out := run{
		Infos:     make([]model.PaintInfo, 0, len(samples)),
		Carries:   make([]model.CarryState, 0, len(samples)),
		EmittedAt: make([]int, 0, len(samples)),
	}
	for _, s := range samples {
		if before != nil {
			before(p)
		}
		res := p.ProcessSample(s)
		out.Infos = append(out.Infos, res.Current)
		out.Carries = append(out.Carries, p.Carry())
		out.EmittedAt = append(out.EmittedAt, len(res.Dabs))
		out.Dabs = append(out.Dabs, res.Dabs...)
	}
	out.Flush = p.Finalize()
	out.Dabs = append(out.Dabs, out.Flush...)
	return out
}

// referenceInfos builds every PaintInfo of a case in one pass over the whole
// slice instead of incrementally.
func referenceInfos(samples []model.RawInputSample, cfg pipeline.Config) []model.PaintInfo {
	maxSpeed := cfg.MaxSpeedPXPerMS
	if !(maxSpeed > 0) || math.IsInf(maxSpeed, 0) {
		maxSpeed = paintinfo.DefaultMaxSpeedPXPerMS
	}
	window := cfg.SmoothingWindow
	if window < 1 {
		window = paintinfo.DefaultSmoothingWindow
	}

	n := len(samples)
	raw := make([]float64, n)
	for i := 1; i < n; i++ {
		a, b := samples[i-1], samples[i]
		d := math.Hypot(b.X-a.X, b.Y-a.Y)
		if d == 0 {
			continue
		}
		dt := b.HostTimeUS - a.HostTimeUS
		if cfg.UseDeviceTime && a.DeviceTimeUS != nil && b.DeviceTimeUS != nil {
			dt = *b.DeviceTimeUS - *a.DeviceTimeUS
		}
		if dt < 1 {
			dt = 1
		}
		raw[i] = math.Min(d/(float64(dt)/1000), maxSpeed) / maxSpeed
	}

	infos := make([]model.PaintInfo, n)
	for i, s := range samples {
		speed := 0.0
		if i > 0 {
			lo := max(1, i-window+1)
			sum := 0.0
			for _, v := range raw[lo : i+1] {
				sum += v
			}
			speed = sum / float64(i+1-lo)
		}
		infos[i] = model.PaintInfo{
			X:        s.X,
			Y:        s.Y,
			Pressure: lutPressure(s.Pressure, cfg),
			Speed:    speed,
			TimeUS:   max(s.HostTimeUS-samples[0].HostTimeUS, 0),
		}
	}
	return infos
}

// lutPressure evaluates the configured table directly.
func lutPressure(raw float64, cfg pipeline.Config) float64 {
	if cfg.PressureDisabled {
		return 1
	}
	var lut curve.LUT
	if cfg.PressureCurve != nil {
		lut = cfg.PressureCurve.LUT()
	}
	return lut.Sample(input.ClampPressure(raw))
}

// referenceRun places dabs over the batch-built infos with the shared
// sampling and mixing core.
func referenceRun(samples []model.RawInputSample, cfg pipeline.Config) run {
	infos := referenceInfos(samples, cfg)
	params := sampler.Params{
		SpacingPX:     cfg.SpacingPX,
		MaxIntervalUS: cfg.MaxIntervalUS,
		TimedSpacing:  cfg.TimedSpacing,
	}.Sanitize()

	out := run{
		Infos:     infos,
		Carries:   make([]model.CarryState, len(infos)),
		EmittedAt: make([]int, len(infos)),
	}
	if len(infos) == 0 {
		return out
	}

	var carry model.CarryState
	emitted := 0
	seenUp := false
	for i := range infos {
		up := samples[i].Phase == model.PhaseUp
		var dabs []model.Dab
		if i == 0 {
			if up {
				dabs = append(dabs, infos[0])
			}
		} else {
			from, to := infos[i-1], infos[i]
			seg := sampler.Segment{
				DistancePX: math.Hypot(to.X-from.X, to.Y-from.Y),
				DurationUS: float64(max(to.TimeUS-from.TimeUS, 0)),
			}
			var fr []float64
			fr, carry = sampler.Fractions(carry, seg, params)
			for _, f := range fr {
				dabs = append(dabs, pipeline.Mix(from, to, f))
			}
			if up {
				stationary := seg.DistancePX <= pipeline.TerminalEpsilon && seg.DurationUS == 0
				if stationary || len(dabs) == 0 || !model.SamePoint(dabs[len(dabs)-1], to, pipeline.TerminalEpsilon) {
					dabs = append(dabs, to)
				}
			}
		}
		seenUp = seenUp || up
		emitted += len(dabs)
		out.Carries[i] = carry
		out.EmittedAt[i] = len(dabs)
		out.Dabs = append(out.Dabs, dabs...)
	}

	if emitted == 0 || !seenUp {
		out.Flush = []model.Dab{infos[len(infos)-1]}
		out.Dabs = append(out.Dabs, out.Flush...)
	}
	return out
}
