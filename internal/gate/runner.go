package gate

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/okian/dabline/internal/domain/model"
	"github.com/okian/dabline/internal/domain/pipeline"
	"github.com/okian/dabline/internal/domain/sampler"
	"github.com/okian/dabline/internal/domain/sensor"
	"github.com/okian/dabline/pkg/logger"
	"github.com/okian/dabline/pkg/metrics"
)

// Runner executes the parity gate. A Runner is immutable after New and can be
// shared; every run owns its pipelines.
type Runner struct {
	cfg        pipeline.Config
	thresholds Thresholds
	workers    int
	seed       uint64
	jumpUS     int64
	presets    []Preset
	logger     logger.Logger
	now        func() time.Time
}

// New creates a runner with default thresholds, presets and pipeline tuning.
func New(opts ...Option) *Runner {
	r := &Runner{
		cfg:        pipeline.DefaultConfig(),
		thresholds: DefaultThresholds(),
		workers:    DefaultWorkers,
		seed:       DefaultSeed,
		jumpUS:     DefaultJumpThresholdUS,
		presets:    DefaultPresets(),
		logger:     logger.Nop(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run certifies the pipeline over the capture, its stress slices and every
// preset. Divergence is reported in the artifact; the error is reserved for
// an empty capture or a cancelled context.
func (r *Runner) Run(ctx context.Context, c Capture) (*Artifact, error) {
	if len(c.Samples) == 0 {
		return nil, ErrEmptyCapture
	}
	start := r.now()
	a := &Artifact{
		RunID:      uuid.NewString(),
		StartedAt:  start.UTC(),
		Capture:    c.Name,
		Config:     echo(r.cfg, r.seed, r.workers, r.jumpUS),
		Thresholds: r.thresholds,
	}

	cases := buildCases(c, r.seed)
	a.Cases = make([]CaseReport, len(cases))
	a.Presets = make([]PresetReport, len(r.presets))
	captureSamples, _ := Normalize(c.Samples, r.jumpUS)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers)
	for i, cs := range cases {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			a.Cases[i] = r.runCase(cs)
			return nil
		})
	}
	for i, p := range r.presets {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			a.Presets[i] = r.runPreset(p, captureSamples)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("gate run cancelled: %w", err)
	}

	r.aggregate(a)
	a.DurationMS = float64(r.now().Sub(start).Microseconds()) / 1000

	metrics.RecordGateRun(string(a.Verdict), a.DurationMS)
	for _, f := range a.BlockingFailures {
		metrics.RecordBlockingFailure(f)
	}
	r.logger.Info(ctx, "gate run finished",
		logger.String("run_id", a.RunID),
		logger.String("verdict", string(a.Verdict)),
		logger.Int("cases", len(a.Cases)),
		logger.Int("presets", len(a.Presets)),
		logger.Int("blocking_failures", len(a.BlockingFailures)),
		logger.Float64("duration_ms", a.DurationMS),
	)
	if !a.Passed() {
		r.logger.Warn(ctx, "gate blocked", logger.String("failures", strings.Join(a.BlockingFailures, ",")))
	}
	return a, nil
}

// runCase performs the streaming and batch runs of one case and scores them.
func (r *Runner) runCase(cs Case) CaseReport {
	samples, violations := Normalize(cs.Samples, r.jumpUS)
	spacing := sampler.Params{SpacingPX: r.cfg.SpacingPX}.Sanitize().SpacingPX

	s := streamRun(samples, r.cfg, nil)
	ref := referenceRun(samples, r.cfg)
	direct := make([]float64, len(samples))
	for i, smp := range samples {
		direct[i] = lutPressure(smp.Pressure, r.cfg)
	}

	rep := CaseReport{
		Name:          cs.Name,
		Samples:       len(samples),
		StreamDabs:    len(s.Dabs),
		ReferenceDabs: len(ref.Dabs),
		Violations:    violations,
		Stage:         stageMetrics(direct, s, ref, spacing, r.sensorOption()),
		Final:         finalMetrics(s.Dabs, ref.Dabs, spacing),
		FastWindow:    fastWindow(s, ref, direct),
		Invariants:    checkInvariants(samples, r.cfg, s, ref, direct),
	}
	rep.Failures = r.caseFailures(rep)
	rep.Verdict = verdictOf(rep.Failures)
	if rep.Verdict == VerdictFail {
		rep.Diff = dabDiff(s.Dabs, ref.Dabs)
	}
	metrics.RecordGateCase(strings.ToLower(string(rep.Verdict)))
	return rep
}

// sensorOption is the preset scored as the stage sensor metric.
func (r *Runner) sensorOption() sensor.Option {
	if len(r.presets) > 0 {
		return r.presets[0].Option
	}
	return sensor.Option{Constant: 1, Max: 1}
}

func (r *Runner) caseFailures(rep CaseReport) []string {
	t := r.thresholds
	var out []string
	check := func(ok bool, name string) {
		if !ok {
			out = append(out, name)
		}
	}
	check(rep.Stage.Pressure.within(t.PressureMAE, t.PressureP95), "stage.pressure")
	check(rep.Stage.Speed.within(t.SpeedMAE, t.SpeedP95), "stage.speed")
	check(rep.Stage.Mix.within(t.MixMAE, t.MixP95), "stage.mix")
	check(rep.Stage.Sensor.within(t.SensorMAE, t.SensorP95), "stage.sensor")
	check(rep.Stage.DabCountDelta <= t.DabCountDelta, "stage.dab_count")
	check(rep.Stage.CarryError <= t.CarryError, "stage.carry")
	check(rep.Final.WidthDivergence <= t.WidthDivergence, "final.width")
	check(rep.Final.TailDecayDivergence <= t.TailDecayDivergence, "final.tail_decay")
	check(rep.Final.AreaDivergence <= t.AreaDivergence, "final.area")
	check(rep.FastWindow.Pressure.within(t.FastMAE, t.FastP95), "fast_window.pressure")
	check(rep.FastWindow.Speed.within(t.FastMAE, t.FastP95), "fast_window.speed")
	for _, inv := range rep.Invariants {
		check(inv.Passed, "invariant."+inv.Name)
	}
	return out
}

// runPreset compares the production sensor evaluator on streaming dabs with
// the reference evaluator on reference dabs.
func (r *Runner) runPreset(p Preset, samples []model.RawInputSample) PresetReport {
	s := streamRun(samples, r.cfg, nil)
	ref := referenceRun(samples, r.cfg)
	stats := errorStats(field(s.Dabs, p.Option.Resolve), field(ref.Dabs, referenceResolve(p.Option)))

	rep := PresetReport{Name: p.Name, Sensor: stats}
	if !stats.within(r.thresholds.SensorMAE, r.thresholds.SensorP95) {
		rep.Failures = []string{"preset." + p.Name}
	}
	rep.Verdict = verdictOf(rep.Failures)
	metrics.RecordGateCase(strings.ToLower(string(rep.Verdict)))
	return rep
}

// aggregate fills the verdict, the de-duplicated blocking failures and the
// summary counts, in case order then preset order.
func (r *Runner) aggregate(a *Artifact) {
	var all []string
	for _, c := range a.Cases {
		all = append(all, c.Failures...)
		a.Summary.CasesTotal++
		if c.Verdict == VerdictPass {
			a.Summary.CasesPassed++
		}
	}
	for _, p := range a.Presets {
		all = append(all, p.Failures...)
		a.Summary.PresetsTotal++
		if p.Verdict == VerdictPass {
			a.Summary.PresetsPassed++
		}
	}
	a.BlockingFailures = dedupe(all)
	a.Summary.BlockingFailures = len(a.BlockingFailures)
	a.Verdict = verdictOf(a.BlockingFailures)
}
