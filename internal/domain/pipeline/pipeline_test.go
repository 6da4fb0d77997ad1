package pipeline_test

import (
	"testing"

	"github.com/okian/dabline/internal/domain/model"
	"github.com/okian/dabline/internal/domain/pipeline"
	. "github.com/smartystreets/goconvey/convey"
)

func raw(phase model.Phase, x, y, p float64, t int64) model.RawInputSample {
	return model.RawInputSample{X: x, Y: y, Pressure: p, HostTimeUS: t, Source: "pen", Phase: phase}
}

func TestMix(t *testing.T) {
	Convey("Given two paint infos", t, func() {
		from := model.PaintInfo{X: 0, Y: 10, Pressure: 0.2, Speed: 0, TimeUS: 1_000}
		to := model.PaintInfo{X: 10, Y: 20, Pressure: 0.6, Speed: 0.5, TimeUS: 2_001}

		Convey("When mixing halfway", func() {
			m := pipeline.Mix(from, to, 0.5)

			Convey("Then every field is interpolated and time is rounded", func() {
				So(m.X, ShouldAlmostEqual, 5, 1e-12)
				So(m.Y, ShouldAlmostEqual, 15, 1e-12)
				So(m.Pressure, ShouldAlmostEqual, 0.4, 1e-12)
				So(m.Speed, ShouldAlmostEqual, 0.25, 1e-12)
				So(m.TimeUS, ShouldEqual, 1_501)
			})
		})

		Convey("When t is outside [0,1]", func() {
			Convey("Then it is clamped to the endpoints", func() {
				So(pipeline.Mix(from, to, -2), ShouldResemble, from)
				So(pipeline.Mix(from, to, 3), ShouldResemble, to)
				So(pipeline.Mix(from, to, 1), ShouldResemble, to)
			})
		})
	})
}

func TestPipelineScenarios(t *testing.T) {
	Convey("Given a pressure pipeline", t, func() {
		Convey("When a fast move follows the first sample", func() {
			p := pipeline.New(pipeline.Config{SpacingPX: 1, MaxIntervalUS: 16_000, TimedSpacing: true})
			first := p.ProcessSample(raw(model.PhaseDown, 10, 10, 0.2, 1_000))
			second := p.ProcessSample(raw(model.PhaseMove, 100, 10, 0.7, 17_000))

			Convey("Then the first call emits nothing and reports zero speed", func() {
				So(first.Dabs, ShouldBeEmpty)
				So(first.Current.Speed, ShouldEqual, 0)
				So(first.Current.Pressure, ShouldAlmostEqual, 0.2, 1e-9)
			})

			Convey("And the second call emits dabs and reports its pressure", func() {
				So(len(second.Dabs), ShouldBeGreaterThanOrEqualTo, 1)
				So(second.Current.Pressure, ShouldBeGreaterThan, 0)
				So(second.Dabs[0].X, ShouldAlmostEqual, 11, 1e-9)
			})
		})

		Convey("When a stationary pointer lifts with timed spacing disabled", func() {
			p := pipeline.New(pipeline.Config{SpacingPX: 10_000, MaxIntervalUS: 4_000})
			down := p.ProcessSample(raw(model.PhaseDown, 50, 50, 0.5, 0))
			move := p.ProcessSample(raw(model.PhaseMove, 50, 50, 0.3, 10_000))
			up := p.ProcessSample(raw(model.PhaseUp, 50, 50, 0, 21_000))

			Convey("Then only the lift paints, with the terminal pressure", func() {
				So(down.Dabs, ShouldBeEmpty)
				So(move.Dabs, ShouldBeEmpty)
				So(len(up.Dabs), ShouldBeGreaterThanOrEqualTo, 1)
				So(up.Dabs[len(up.Dabs)-1].Pressure, ShouldEqual, 0)
			})

			Convey("And finalize does not duplicate the lift dab", func() {
				So(p.Finalize(), ShouldBeEmpty)
			})
		})

		Convey("When the pointer lifts without moving in zero time", func() {
			p := pipeline.New(pipeline.DefaultConfig())
			p.ProcessSample(raw(model.PhaseDown, 5, 5, 0.4, 100))
			up := p.ProcessSample(raw(model.PhaseUp, 5, 5, 0.4, 100))

			Convey("Then exactly one dab is forced", func() {
				So(len(up.Dabs), ShouldEqual, 1)
				So(p.Stats().StationaryLiftDabs, ShouldEqual, 1)
			})
		})

		Convey("When the first sample is already pointer-up", func() {
			p := pipeline.New(pipeline.DefaultConfig())
			res := p.ProcessSample(raw(model.PhaseUp, 3, 4, 0.9, 0))

			Convey("Then it is treated as a one-point stroke", func() {
				So(len(res.Dabs), ShouldEqual, 1)
				So(res.Dabs[0], ShouldResemble, res.Current)
				So(p.State().EmittedDabs, ShouldEqual, 1)
				So(p.Finalize(), ShouldBeEmpty)
			})
		})

		Convey("When sampling already lands on the pointer-up point", func() {
			p := pipeline.New(pipeline.Config{SpacingPX: 5})
			p.ProcessSample(raw(model.PhaseDown, 0, 0, 0.5, 0))
			up := p.ProcessSample(raw(model.PhaseUp, 10, 0, 0.5, 1_000))

			Convey("Then no duplicate terminal dab is appended", func() {
				So(len(up.Dabs), ShouldEqual, 2)
				So(up.Dabs[1], ShouldResemble, up.Current)
				So(p.Stats().TerminalDabs, ShouldEqual, 0)
			})
		})

		Convey("When a stroke is truncated mid-segment by pointer-up", func() {
			p := pipeline.New(pipeline.Config{SpacingPX: 4})
			p.ProcessSample(raw(model.PhaseDown, 0, 0, 0.5, 0))
			up := p.ProcessSample(raw(model.PhaseUp, 10, 0, 0.8, 1_000))

			Convey("Then the exact final point is appended", func() {
				last := up.Dabs[len(up.Dabs)-1]
				So(len(up.Dabs), ShouldEqual, 3)
				So(last.X, ShouldEqual, 10)
				So(last.Pressure, ShouldAlmostEqual, 0.8, 1e-6)
				So(p.Stats().TerminalDabs, ShouldEqual, 1)
			})
		})

		Convey("When pointer capture is lost before any dab", func() {
			p := pipeline.New(pipeline.Config{SpacingPX: 1_000})
			p.ProcessSample(raw(model.PhaseDown, 0, 0, 0.5, 0))
			res := p.ProcessSample(raw(model.PhaseMove, 3, 0, 0.6, 1_000))
			flush := p.Finalize()

			Convey("Then finalize emits the last processed point once", func() {
				So(res.Dabs, ShouldBeEmpty)
				So(len(flush), ShouldEqual, 1)
				So(flush[0], ShouldResemble, res.Current)
			})

			Convey("And the pipeline is empty afterwards", func() {
				So(p.State().Active, ShouldBeFalse)
				So(p.Finalize(), ShouldBeEmpty)
			})
		})

		Convey("When pointer capture is lost after dabs were emitted", func() {
			p := pipeline.New(pipeline.Config{SpacingPX: 1})
			p.ProcessSample(raw(model.PhaseDown, 0, 0, 0.5, 0))
			res := p.ProcessSample(raw(model.PhaseMove, 5.5, 0, 0.6, 1_000))
			flush := p.Finalize()

			Convey("Then the stroke never saw pointer-up and still gets its flush dab", func() {
				So(len(res.Dabs), ShouldEqual, 5)
				So(len(flush), ShouldEqual, 1)
				So(flush[0].X, ShouldEqual, 5.5)
				So(p.Stats().FinalizeFlushes, ShouldEqual, 1)
			})
		})

		Convey("When hover samples are interleaved", func() {
			p := pipeline.New(pipeline.DefaultConfig())
			hover := p.ProcessSample(raw(model.PhaseHover, 1, 1, 0, 0))

			Convey("Then they do not start a stroke", func() {
				So(hover.Dabs, ShouldBeEmpty)
				So(p.State().Active, ShouldBeFalse)
				So(p.Stats().Samples, ShouldEqual, 0)
			})
		})

		Convey("When reset mid-stroke", func() {
			p := pipeline.New(pipeline.Config{SpacingPX: 3})
			p.ProcessSample(raw(model.PhaseDown, 0, 0, 0.5, 0))
			p.ProcessSample(raw(model.PhaseMove, 4, 0, 0.5, 1_000))
			p.Reset()

			Convey("Then builder, sampler and state are all cleared", func() {
				So(p.State(), ShouldResemble, pipeline.State{})
				So(p.Carry(), ShouldResemble, model.CarryState{})
				first := p.ProcessSample(raw(model.PhaseDown, 100, 0, 0.5, 50_000))
				So(first.Current.Speed, ShouldEqual, 0)
				So(first.Current.TimeUS, ShouldEqual, 0)
			})
		})

		Convey("When the config is updated mid-stroke", func() {
			p := pipeline.New(pipeline.Config{SpacingPX: 10})
			p.ProcessSample(raw(model.PhaseDown, 0, 0, 0.5, 0))
			p.ProcessSample(raw(model.PhaseMove, 4, 0, 0.5, 1_000))
			p.UpdateConfig(pipeline.Config{SpacingPX: 2})
			res := p.ProcessSample(raw(model.PhaseMove, 8, 0, 0.5, 2_000))

			Convey("Then the carry survives and the new spacing applies", func() {
				So(p.State().Active, ShouldBeTrue)
				// carry of 4px already exceeds the new spacing
				So(len(res.Dabs), ShouldEqual, 2)
				So(res.Dabs[0].X, ShouldAlmostEqual, 6, 1e-9)
				So(res.Current.TimeUS, ShouldEqual, 2_000)
			})
		})

		Convey("When spacing is degenerate", func() {
			p := pipeline.New(pipeline.Config{SpacingPX: -4})
			p.ProcessSample(raw(model.PhaseDown, 0, 0, 0.5, 0))
			res := p.ProcessSample(raw(model.PhaseMove, 4, 0, 0.5, 1_000))

			Convey("Then the default spacing is used", func() {
				So(len(res.Dabs), ShouldEqual, 2)
			})
		})
	})
}
