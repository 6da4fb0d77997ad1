package config_test

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/okian/dabline/internal/config"
	"github.com/okian/dabline/internal/domain/curve"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfigLoader(t *testing.T) {
	convey.Convey("Given a config loader", t, func() {
		ctx := context.Background()

		convey.Convey("When loading config with defaults only", func() {
			clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load successfully with defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg, convey.ShouldNotBeNil)
				convey.So(cfg, convey.ShouldResemble, config.New())
			})
		})

		convey.Convey("When loading config with environment variables", func() {
			_ = os.Setenv("DABLINE_ADDR", ":8080")
			_ = os.Setenv("DABLINE_SPACING_PX", "2.5")
			_ = os.Setenv("DABLINE_TIMED_SPACING", "true")
			_ = os.Setenv("DABLINE_SPEED_SMOOTHING_SAMPLES", "6")
			_ = os.Setenv("DABLINE_PRESSURE_ENABLED", "false")
			_ = os.Setenv("DABLINE_GATE_WORKERS", "2")
			_ = os.Setenv("DABLINE_LOG_FORMAT", "json")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should override defaults with env vars", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg, convey.ShouldNotBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.SpacingPX, convey.ShouldEqual, 2.5)
				convey.So(cfg.TimedSpacing, convey.ShouldBeTrue)
				convey.So(cfg.SpeedSmoothingSamples, convey.ShouldEqual, 6)
				convey.So(cfg.PressureEnabled, convey.ShouldBeFalse)
				convey.So(cfg.GateWorkers, convey.ShouldEqual, 2)
				convey.So(cfg.LogFormat, convey.ShouldEqual, "json")
			})
		})

		convey.Convey("When loading config with YAML file", func() {
			yamlContent := `
addr: ":7070"
spacing_px: 4
max_interval_us: 8000
use_device_time: true
gate_capture: "captures/wave.yaml"
gate_seed: 42
pressure_curve:
  - {x: 0, y: 0}
  - {x: 0.5, y: 0.8}
  - {x: 1, y: 1}
`
			tmpFile := createTempConfigFile(yamlContent)
			defer func() { _ = os.Remove(tmpFile) }()

			_ = os.Setenv("DABLINE_CONFIG", tmpFile)
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load from YAML file", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg, convey.ShouldNotBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":7070")
				convey.So(cfg.SpacingPX, convey.ShouldEqual, 4.0)
				convey.So(cfg.MaxIntervalUS, convey.ShouldEqual, 8000.0)
				convey.So(cfg.UseDeviceTime, convey.ShouldBeTrue)
				convey.So(cfg.GateCapture, convey.ShouldEqual, "captures/wave.yaml")
				convey.So(cfg.GateSeed, convey.ShouldEqual, uint64(42))
				convey.So(cfg.PressureCurve, convey.ShouldResemble, []curve.Point{{X: 0, Y: 0}, {X: 0.5, Y: 0.8}, {X: 1, Y: 1}})
			})

			convey.Convey("And unset keys keep their defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.PressureEnabled, convey.ShouldBeTrue)
				convey.So(cfg.LogLevel, convey.ShouldEqual, "info")
			})
		})

		convey.Convey("When loading config with both YAML file and env vars", func() {
			yamlContent := `
addr: ":7070"
spacing_px: 4
gate_workers: 8
`
			tmpFile := createTempConfigFile(yamlContent)
			defer func() { _ = os.Remove(tmpFile) }()

			_ = os.Setenv("DABLINE_CONFIG", tmpFile)
			_ = os.Setenv("DABLINE_SPACING_PX", "3")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then env vars should take precedence over YAML", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":7070")
				convey.So(cfg.SpacingPX, convey.ShouldEqual, 3.0)
				convey.So(cfg.GateWorkers, convey.ShouldEqual, 8)
			})
		})

		convey.Convey("When loading config with invalid YAML file", func() {
			tmpFile := createTempConfigFile("addr: [unclosed\n")
			defer func() { _ = os.Remove(tmpFile) }()

			_ = os.Setenv("DABLINE_CONFIG", tmpFile)
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a load error", func() {
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with non-existent file", func() {
			_ = os.Setenv("DABLINE_CONFIG", "/non/existent/dabline.yaml")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a load error", func() {
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
				convey.So(err.Error(), convey.ShouldContainSubstring, "/non/existent/dabline.yaml")
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with an invalid numeric env var", func() {
			_ = os.Setenv("DABLINE_GATE_WORKERS", "many")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return an error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with a non-positive worker count", func() {
			_ = os.Setenv("DABLINE_GATE_WORKERS", "0")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then validation rejects it", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with an out-of-range curve point", func() {
			tmpFile := createTempConfigFile("pressure_curve:\n  - {x: 0, y: 0}\n  - {x: 1, y: 2}\n")
			defer func() { _ = os.Remove(tmpFile) }()

			_ = os.Setenv("DABLINE_CONFIG", tmpFile)
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then validation rejects it", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
				convey.So(err.Error(), convey.ShouldContainSubstring, "pressure_curve[1]")
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with YAML file containing empty values", func() {
			tmpFile := createTempConfigFile("addr: \"\"\nspacing_px: 3\n")
			defer func() { _ = os.Remove(tmpFile) }()

			_ = os.Setenv("DABLINE_CONFIG", tmpFile)
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return validation error for empty addr", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(err.Error(), convey.ShouldContainSubstring, "addr must not be empty")
				convey.So(cfg, convey.ShouldBeNil)
			})
		})
	})
}

// Helper functions.

func clearConfigEnvVars() {
	envVars := []string{
		"DABLINE_CONFIG",
		"DABLINE_ADDR",
		"DABLINE_SPACING_PX",
		"DABLINE_TIMED_SPACING",
		"DABLINE_SPEED_SMOOTHING_SAMPLES",
		"DABLINE_PRESSURE_ENABLED",
		"DABLINE_GATE_WORKERS",
		"DABLINE_LOG_FORMAT",
	}
	for _, envVar := range envVars {
		_ = os.Unsetenv(envVar)
	}
}

func createTempConfigFile(content string) string {
	tmpFile, err := os.CreateTemp("", "dabline-config-*.yaml")
	if err != nil {
		panic(err)
	}

	if _, err := tmpFile.WriteString(content); err != nil {
		panic(err)
	}

	if err := tmpFile.Close(); err != nil {
		panic(err)
	}

	return tmpFile.Name()
}
