package config_test

import (
	"errors"
	"math"
	"testing"

	"github.com/okian/dabline/internal/config"
	"github.com/okian/dabline/internal/domain/curve"
	"github.com/okian/dabline/internal/domain/sampler"
	"github.com/okian/dabline/internal/gate"
	"github.com/smartystreets/goconvey/convey"
)

func TestNew(t *testing.T) {
	convey.Convey("Given the default config", t, func() {
		cfg := config.New()

		convey.Convey("Then it carries the documented defaults", func() {
			convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
			convey.So(cfg.LogLevel, convey.ShouldEqual, "info")
			convey.So(cfg.LogFormat, convey.ShouldEqual, "text")
			convey.So(cfg.SpacingPX, convey.ShouldEqual, sampler.DefaultSpacingPX)
			convey.So(cfg.MaxIntervalUS, convey.ShouldEqual, sampler.DefaultMaxIntervalUS)
			convey.So(cfg.TimedSpacing, convey.ShouldBeFalse)
			convey.So(cfg.MaxSpeedPXPerMS, convey.ShouldEqual, 30.0)
			convey.So(cfg.SpeedSmoothingSamples, convey.ShouldEqual, 3)
			convey.So(cfg.PressureEnabled, convey.ShouldBeTrue)
			convey.So(cfg.GateWorkers, convey.ShouldEqual, gate.DefaultWorkers)
			convey.So(cfg.GateSeed, convey.ShouldEqual, uint64(gate.DefaultSeed))
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})
	})
}

func TestValidate(t *testing.T) {
	convey.Convey("Given a config", t, func() {
		cfg := config.New()

		convey.Convey("When the address is empty", func() {
			cfg.Addr = ""
			err := cfg.Validate()

			convey.Convey("Then it is rejected", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
				convey.So(err.Error(), convey.ShouldContainSubstring, "addr must not be empty")
			})
		})

		convey.Convey("When the gate has no workers", func() {
			cfg.GateWorkers = 0
			err := cfg.Validate()

			convey.Convey("Then it is rejected", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
				convey.So(err.Error(), convey.ShouldContainSubstring, "gate_workers")
			})
		})

		convey.Convey("When a curve point leaves the unit square", func() {
			cfg.PressureCurve = []curve.Point{{X: 0, Y: 0}, {X: 1.5, Y: 1}}
			convey.So(cfg.Validate(), convey.ShouldNotBeNil)

			cfg.PressureCurve = []curve.Point{{X: 0, Y: math.NaN()}}
			convey.So(cfg.Validate(), convey.ShouldNotBeNil)
		})
	})
}

func TestPipeline(t *testing.T) {
	convey.Convey("Given a tuned config", t, func() {
		cfg := config.New()
		cfg.SpacingPX = 2.5
		cfg.TimedSpacing = true
		cfg.UseDeviceTime = true
		cfg.SpeedSmoothingSamples = 5
		cfg.PressureEnabled = false

		convey.Convey("When converting without a curve", func() {
			p := cfg.Pipeline()

			convey.Convey("Then every field is carried over", func() {
				convey.So(p.SpacingPX, convey.ShouldEqual, 2.5)
				convey.So(p.TimedSpacing, convey.ShouldBeTrue)
				convey.So(p.UseDeviceTime, convey.ShouldBeTrue)
				convey.So(p.SmoothingWindow, convey.ShouldEqual, 5)
				convey.So(p.PressureDisabled, convey.ShouldBeTrue)
				convey.So(p.PressureCurve, convey.ShouldBeNil)
			})
		})

		convey.Convey("When converting with curve points", func() {
			cfg.PressureCurve = []curve.Point{{X: 0, Y: 0}, {X: 1, Y: 0.5}}
			p := cfg.Pipeline()

			convey.Convey("Then the curve is built", func() {
				convey.So(p.PressureCurve, convey.ShouldNotBeNil)
				convey.So(p.PressureCurve.Map(1), convey.ShouldAlmostEqual, 0.5, 1e-6)
			})
		})
	})
}
