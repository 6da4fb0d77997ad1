// Package pipeline turns a stream of raw pointer samples into spatially and
// temporally regularized paint dabs.
//
// A Pipeline owns one Builder and one Sampler and serves exactly one stroke at
// a time. Calls must follow sample arrival order and must not overlap; the
// pipeline does no locking of its own.
package pipeline

import (
	"github.com/okian/dabline/internal/domain/curve"
	"github.com/okian/dabline/internal/domain/model"
	"github.com/okian/dabline/internal/domain/paintinfo"
	"github.com/okian/dabline/internal/domain/sampler"
)

// TerminalEpsilon is the position tolerance used when matching the last dab
// against the pointer-up point.
const TerminalEpsilon = 1e-6

// Config is the complete tuning surface of a pipeline.
type Config struct {
	SpacingPX        float64
	MaxIntervalUS    float64
	TimedSpacing     bool
	MaxSpeedPXPerMS  float64
	SmoothingWindow  int
	UseDeviceTime    bool
	PressureDisabled bool
	PressureCurve    *curve.PressureCurve
}

// DefaultConfig returns the stock tuning.
func DefaultConfig() Config {
	return Config{
		SpacingPX:       sampler.DefaultSpacingPX,
		MaxIntervalUS:   sampler.DefaultMaxIntervalUS,
		MaxSpeedPXPerMS: paintinfo.DefaultMaxSpeedPXPerMS,
		SmoothingWindow: paintinfo.DefaultSmoothingWindow,
	}
}

func (c Config) params() sampler.Params {
	return sampler.Params{
		SpacingPX:     c.SpacingPX,
		MaxIntervalUS: c.MaxIntervalUS,
		TimedSpacing:  c.TimedSpacing,
	}.Sanitize()
}

func (c Config) builder() paintinfo.Config {
	return paintinfo.Config{
		PressureCurve:    c.PressureCurve,
		PressureDisabled: c.PressureDisabled,
		MaxSpeedPXPerMS:  c.MaxSpeedPXPerMS,
		SmoothingWindow:  c.SmoothingWindow,
		UseDeviceTime:    c.UseDeviceTime,
	}
}

// Result is the outcome of one ProcessSample call. Current is always set,
// even when no dab crossed a spacing or interval threshold.
type Result struct {
	Dabs    []model.Dab
	Current model.PaintInfo
}

// State is a snapshot of the per-stroke pipeline state.
type State struct {
	Active      bool
	Last        model.PaintInfo
	LastPhase   model.Phase
	SeenUp      bool
	EmittedDabs int
}

// Stats are lifetime diagnostic counters. They survive Reset and Finalize.
type Stats struct {
	Samples            int `json:"samples"`
	Strokes            int `json:"strokes"`
	SampledDabs        int `json:"sampled_dabs"`
	StationaryLiftDabs int `json:"stationary_lift_dabs"`
	TerminalDabs       int `json:"terminal_dabs"`
	FinalizeFlushes    int `json:"finalize_flushes"`
}

// Pipeline is the streaming dab state machine: Empty -> Active on the first
// sample, back to Empty on Reset or Finalize.
type Pipeline struct {
	cfg     Config
	params  sampler.Params
	builder *paintinfo.Builder
	sampler *sampler.Sampler

	state State
	stats Stats
}

// New creates an empty pipeline.
func New(cfg Config) *Pipeline {
	return &Pipeline{
		cfg:     cfg,
		params:  cfg.params(),
		builder: paintinfo.NewBuilder(cfg.builder()),
		sampler: sampler.New(),
	}
}

// ProcessSample feeds one sample and returns the dabs it produced.
// Hover samples are ignored and leave the state untouched.
func (p *Pipeline) ProcessSample(s model.RawInputSample) Result {
	if s.Phase == model.PhaseHover {
		return Result{Current: p.state.Last}
	}

	to := p.builder.Build(s)
	p.stats.Samples++
	up := s.Phase == model.PhaseUp

	if !p.state.Active {
		p.stats.Strokes++
		p.state = State{Active: true, Last: to, LastPhase: s.Phase}
		if !up {
			return Result{Current: to}
		}
		p.state.SeenUp = true
		p.state.EmittedDabs = 1
		p.stats.TerminalDabs++
		return Result{Dabs: []model.Dab{to}, Current: to}
	}

	from := p.state.Last
	dist := model.Distance(from, to)
	dur := max(to.TimeUS-from.TimeUS, 0)

	fractions := p.sampler.SampleSegment(dist, float64(dur), p.params)
	dabs := make([]model.Dab, 0, len(fractions)+1)
	for _, f := range fractions {
		dabs = append(dabs, Mix(from, to, f))
	}
	p.stats.SampledDabs += len(dabs)

	if up {
		if dist <= TerminalEpsilon && dur == 0 {
			dabs = append(dabs, to)
			p.stats.StationaryLiftDabs++
		} else if len(dabs) == 0 || !model.SamePoint(dabs[len(dabs)-1], to, TerminalEpsilon) {
			dabs = append(dabs, to)
			p.stats.TerminalDabs++
		}
	}

	p.state.Last = to
	p.state.LastPhase = s.Phase
	p.state.SeenUp = p.state.SeenUp || up
	p.state.EmittedDabs += len(dabs)
	return Result{Dabs: dabs, Current: to}
}

// Finalize closes the stroke. It emits the last known point once when the
// stroke never emitted a dab or never reached pointer-up, and always resets.
func (p *Pipeline) Finalize() []model.Dab {
	if !p.state.Active {
		return nil
	}
	var out []model.Dab
	if p.state.EmittedDabs == 0 || !p.state.SeenUp {
		out = []model.Dab{p.state.Last}
		p.stats.FinalizeFlushes++
	}
	p.Reset()
	return out
}

// Reset clears the builder, the sampler and the stroke state together.
func (p *Pipeline) Reset() {
	p.builder.Reset()
	p.sampler.Reset()
	p.state = State{}
}

// UpdateConfig applies new tuning without dropping the stroke in progress.
func (p *Pipeline) UpdateConfig(cfg Config) {
	p.cfg = cfg
	p.params = cfg.params()
	p.builder.UpdateConfig(cfg.builder())
}

// Config returns the active configuration.
func (p *Pipeline) Config() Config {
	return p.cfg
}

// Carry returns the sampler carry for diagnostics and checkpointing.
func (p *Pipeline) Carry() model.CarryState {
	return p.sampler.Carry()
}

// State returns a snapshot of the stroke state.
func (p *Pipeline) State() State {
	return p.state
}

// Stats returns the lifetime counters.
func (p *Pipeline) Stats() Stats {
	return p.stats
}
