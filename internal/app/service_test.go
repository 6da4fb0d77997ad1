package service_test

import (
	"context"
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	service "github.com/okian/dabline/internal/app"
	"github.com/okian/dabline/internal/domain/model"
	"github.com/okian/dabline/internal/domain/pipeline"
	"github.com/okian/dabline/internal/gate"
	"github.com/okian/dabline/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	// Initialize logging for tests
	err := logger.Init()
	if err != nil {
		panic(err)
	}
}

func sample(x, y, p float64, t int64, phase model.Phase) model.RawInputSample {
	return model.RawInputSample{X: x, Y: y, Pressure: p, HostTimeUS: t, Source: "pen", Phase: phase}
}

func wave(n int) []model.RawInputSample {
	out := make([]model.RawInputSample, n)
	for i := range n {
		f := float64(i)
		phase := model.PhaseMove
		switch i {
		case 0:
			phase = model.PhaseDown
		case n - 1:
			phase = model.PhaseUp
		}
		out[i] = sample(50+5*f, 80+12*math.Sin(f/4), 0.25+0.3*math.Sin(f/7), 2_000+int64(i)*6_000, phase)
	}
	return out
}

func startedService(opts ...service.Option) *service.Service {
	svc := service.New(opts...)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	So(svc.Start(ctx), ShouldBeNil)
	return svc
}

func TestService_Start(t *testing.T) {
	Convey("Given a new service", t, func() {
		svc := service.New()
		defer svc.Stop()

		Convey("When getting stats before starting", func() {
			stats := svc.GetStats()

			Convey("Then it should report it is stopped", func() {
				So(stats["started"], ShouldEqual, false)
				So(stats["activePointers"], ShouldEqual, 0)
			})
		})

		Convey("When feeding a sample before starting", func() {
			_, err := svc.ProcessSample(context.Background(), 1, sample(0, 0, 0.5, 0, model.PhaseDown))

			Convey("Then ErrNotStarted is returned", func() {
				So(err, ShouldEqual, service.ErrNotStarted)
			})
		})

		Convey("When starting the service twice", func() {
			ctx := context.Background()
			So(svc.Start(ctx), ShouldBeNil)
			err := svc.Start(ctx)

			Convey("Then it should stay started", func() {
				So(err, ShouldBeNil)
				So(svc.GetStats()["started"], ShouldEqual, true)
			})
		})
	})
}

func TestService_ProcessSample(t *testing.T) {
	Convey("Given a started service with timed spacing", t, func() {
		cfg := pipeline.DefaultConfig()
		cfg.SpacingPX = 1
		cfg.MaxIntervalUS = 16_000
		cfg.TimedSpacing = true
		svc := startedService(service.WithPipelineConfig(cfg))
		defer svc.Stop()
		ctx := context.Background()

		Convey("When a pen moves after touching down", func() {
			first, err1 := svc.ProcessSample(ctx, 7, sample(10, 10, 0.2, 1_000, model.PhaseDown))
			second, err2 := svc.ProcessSample(ctx, 7, sample(100, 10, 0.7, 17_000, model.PhaseMove))

			Convey("Then the first sample only reports its point", func() {
				So(err1, ShouldBeNil)
				So(first.Dabs, ShouldBeEmpty)
				So(first.Current.Speed, ShouldEqual, 0)
			})

			Convey("And the move emits dabs with live pressure", func() {
				So(err2, ShouldBeNil)
				So(len(second.Dabs), ShouldBeGreaterThanOrEqualTo, 1)
				So(second.Current.Pressure, ShouldBeGreaterThan, 0)
			})

			Convey("And the pointer is active", func() {
				stats := svc.GetStats()
				So(stats["activePointers"], ShouldEqual, 1)
				So(stats["samples"], ShouldEqual, 2)
				So(stats["strokes"], ShouldEqual, 1)
			})
		})

		Convey("When the stroke lifts", func() {
			_, _ = svc.ProcessSample(ctx, 7, sample(10, 10, 0.2, 1_000, model.PhaseDown))
			res, err := svc.ProcessSample(ctx, 7, sample(40, 10, 0.6, 9_000, model.PhaseUp))

			Convey("Then the terminal point is the last dab and the pointer is retired", func() {
				So(err, ShouldBeNil)
				last := res.Dabs[len(res.Dabs)-1]
				So(model.SamePoint(last, res.Current, pipeline.TerminalEpsilon), ShouldBeTrue)
				stats := svc.GetStats()
				So(stats["activePointers"], ShouldEqual, 0)
				So(stats["strokes"], ShouldEqual, 1)
				So(stats["finalizeFlushes"], ShouldEqual, 0)
			})
		})

		Convey("When a pointer hovers without a stroke", func() {
			res, err := svc.ProcessSample(ctx, 3, sample(5, 5, 0, 10, model.PhaseHover))

			Convey("Then nothing is created", func() {
				So(err, ShouldBeNil)
				So(res.Dabs, ShouldBeEmpty)
				So(svc.GetStats()["activePointers"], ShouldEqual, 0)
			})
		})

		Convey("When a host timestamp repeats", func() {
			_, _ = svc.ProcessSample(ctx, 1, sample(0, 0, 0.5, 500, model.PhaseDown))
			res, err := svc.ProcessSample(ctx, 1, sample(3, 0, 0.5, 500, model.PhaseMove))

			Convey("Then the timebase advances it by one microsecond", func() {
				So(err, ShouldBeNil)
				So(res.Current.TimeUS, ShouldEqual, 1)
				So(svc.GetStats()["timebaseCorrections"], ShouldEqual, uint64(1))
			})
		})
	})
}

func TestService_StationaryLift(t *testing.T) {
	Convey("Given a service that never crosses spacing", t, func() {
		cfg := pipeline.DefaultConfig()
		cfg.SpacingPX = 10_000
		cfg.MaxIntervalUS = 4_000
		cfg.TimedSpacing = false
		svc := startedService(service.WithPipelineConfig(cfg))
		defer svc.Stop()
		ctx := context.Background()

		Convey("When the pen rests and lifts at the same spot", func() {
			_, _ = svc.ProcessSample(ctx, 2, sample(20, 20, 0, 0, model.PhaseDown))
			mid, _ := svc.ProcessSample(ctx, 2, sample(20, 20, 0, 10_000, model.PhaseMove))
			up, err := svc.ProcessSample(ctx, 2, sample(20, 20, 0, 21_000, model.PhaseUp))

			Convey("Then only the lift paints, at zero pressure", func() {
				So(err, ShouldBeNil)
				So(mid.Dabs, ShouldBeEmpty)
				So(len(up.Dabs), ShouldBeGreaterThanOrEqualTo, 1)
				So(up.Dabs[len(up.Dabs)-1].Pressure, ShouldEqual, 0)
			})
		})
	})
}

func TestService_Cancel(t *testing.T) {
	Convey("Given a stroke that has not emitted a dab", t, func() {
		cfg := pipeline.DefaultConfig()
		cfg.SpacingPX = 500
		svc := startedService(service.WithPipelineConfig(cfg))
		defer svc.Stop()
		ctx := context.Background()

		_, _ = svc.ProcessSample(ctx, 9, sample(0, 0, 0.4, 0, model.PhaseDown))
		last, _ := svc.ProcessSample(ctx, 9, sample(10, 0, 0.4, 5_000, model.PhaseMove))
		So(last.Dabs, ShouldBeEmpty)

		Convey("When pointer capture is lost", func() {
			dabs, err := svc.Cancel(ctx, 9)

			Convey("Then the last point is flushed once", func() {
				So(err, ShouldBeNil)
				So(dabs, ShouldResemble, []model.Dab{last.Current})
				stats := svc.GetStats()
				So(stats["activePointers"], ShouldEqual, 0)
				So(stats["finalizeFlushes"], ShouldEqual, 1)
			})

			Convey("And cancelling again is a no-op", func() {
				again, err := svc.Cancel(ctx, 9)
				So(err, ShouldBeNil)
				So(again, ShouldBeEmpty)
			})
		})

		Convey("When the service stops", func() {
			svc.Stop()

			Convey("Then open strokes are closed", func() {
				stats := svc.GetStats()
				So(stats["started"], ShouldEqual, false)
				So(stats["activePointers"], ShouldEqual, 0)
				So(stats["finalizeFlushes"], ShouldEqual, 1)
			})
		})
	})
}

func TestService_Gate(t *testing.T) {
	Convey("Given a started service", t, func() {
		dir := t.TempDir()
		capturePath := filepath.Join(dir, "wave.json")
		data, err := json.Marshal(wave(40))
		So(err, ShouldBeNil)
		So(os.WriteFile(capturePath, data, 0o600), ShouldBeNil)
		artifactPath := filepath.Join(dir, "out", "gate.json")
		ctx := context.Background()

		Convey("When no capture is configured", func() {
			svc := startedService()
			defer svc.Stop()
			_, err := svc.RunGate(ctx)

			Convey("Then ErrNoCapture is returned", func() {
				So(err, ShouldEqual, service.ErrNoCapture)
			})

			Convey("And there is no artifact yet", func() {
				_, err := svc.LatestArtifact()
				So(err, ShouldEqual, service.ErrNoArtifact)
			})
		})

		Convey("When running the gate over a capture file", func() {
			svc := startedService(
				service.WithCapturePath(capturePath),
				service.WithArtifactPath(artifactPath),
				service.WithGateOptions(gate.WithWorkers(2)),
			)
			defer svc.Stop()
			a, err := svc.RunGate(ctx)

			Convey("Then the artifact is kept and persisted", func() {
				So(err, ShouldBeNil)
				So(a.Summary.CasesTotal, ShouldEqual, 9)
				latest, lerr := svc.LatestArtifact()
				So(lerr, ShouldBeNil)
				So(latest.RunID, ShouldEqual, a.RunID)

				_, serr := os.Stat(artifactPath)
				So(serr, ShouldBeNil)

				stats := svc.GetStats()
				So(stats["gateRuns"], ShouldEqual, 1)
				So(stats["gateVerdict"], ShouldEqual, string(a.Verdict))
			})
		})

		Convey("When the capture file is missing", func() {
			svc := startedService(service.WithCapturePath(filepath.Join(dir, "missing.yaml")))
			defer svc.Stop()
			_, err := svc.RunGate(ctx)

			Convey("Then the load error is returned", func() {
				So(err, ShouldNotBeNil)
			})
		})

		Convey("When the service is not started", func() {
			svc := service.New(service.WithCapturePath(capturePath))
			_, err := svc.RunGate(ctx)

			Convey("Then ErrNotStarted is returned", func() {
				So(err, ShouldEqual, service.ErrNotStarted)
			})
		})
	})
}
