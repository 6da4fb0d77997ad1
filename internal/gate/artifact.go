package gate

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pmezard/go-difflib/difflib"

	"github.com/okian/dabline/internal/domain/curve"
	"github.com/okian/dabline/internal/domain/model"
	"github.com/okian/dabline/internal/domain/pipeline"
)

// Verdict is the pass/fail outcome of a case, a preset or a whole run.
type Verdict string

// Verdicts.
const (
	VerdictPass Verdict = "PASS"
	VerdictFail Verdict = "FAIL"
)

func verdictOf(failures []string) Verdict {
	if len(failures) == 0 {
		return VerdictPass
	}
	return VerdictFail
}

// diffContext is the number of unchanged lines shown around each hunk.
const diffContext = 2

// CaseReport is the full result of one case.
type CaseReport struct {
	Name          string            `json:"name"`
	Samples       int               `json:"samples"`
	StreamDabs    int               `json:"stream_dabs"`
	ReferenceDabs int               `json:"reference_dabs"`
	Violations    Violations        `json:"violations"`
	Stage         StageMetrics      `json:"stage"`
	Final         FinalMetrics      `json:"final"`
	FastWindow    FastWindowMetrics `json:"fast_window"`
	Invariants    []InvariantResult `json:"invariants"`
	Failures      []string          `json:"failures"`
	Verdict       Verdict           `json:"verdict"`
	Diff          string            `json:"diff,omitempty"`
}

// PresetReport is the result of one sensor preset.
type PresetReport struct {
	Name     string     `json:"name"`
	Sensor   ErrorStats `json:"sensor"`
	Failures []string   `json:"failures"`
	Verdict  Verdict    `json:"verdict"`
}

// Summary holds the counts shown to humans.
type Summary struct {
	CasesPassed      int `json:"cases_passed"`
	CasesTotal       int `json:"cases_total"`
	PresetsPassed    int `json:"presets_passed"`
	PresetsTotal     int `json:"presets_total"`
	BlockingFailures int `json:"blocking_failures"`
}

// ConfigEcho records the tuning the run certified.
type ConfigEcho struct {
	SpacingPX        float64       `json:"spacing_px"`
	MaxIntervalUS    float64       `json:"max_interval_us"`
	TimedSpacing     bool          `json:"timed_spacing"`
	MaxSpeedPXPerMS  float64       `json:"max_speed_px_per_ms"`
	SmoothingWindow  int           `json:"speed_smoothing_samples"`
	UseDeviceTime    bool          `json:"use_device_time"`
	PressureDisabled bool          `json:"pressure_disabled"`
	PressureCurve    []curve.Point `json:"pressure_curve,omitempty"`
	Seed             uint64        `json:"seed"`
	Workers          int           `json:"workers"`
	JumpThresholdUS  int64         `json:"jump_threshold_us"`
}

func echo(cfg pipeline.Config, seed uint64, workers int, jumpUS int64) ConfigEcho {
	return ConfigEcho{
		SpacingPX:        cfg.SpacingPX,
		MaxIntervalUS:    cfg.MaxIntervalUS,
		TimedSpacing:     cfg.TimedSpacing,
		MaxSpeedPXPerMS:  cfg.MaxSpeedPXPerMS,
		SmoothingWindow:  cfg.SmoothingWindow,
		UseDeviceTime:    cfg.UseDeviceTime,
		PressureDisabled: cfg.PressureDisabled,
		PressureCurve:    cfg.PressureCurve.Points(),
		Seed:             seed,
		Workers:          workers,
		JumpThresholdUS:  jumpUS,
	}
}

// Artifact is the certification record of one gate run.
type Artifact struct {
	RunID            string         `json:"run_id"`
	StartedAt        time.Time      `json:"started_at"`
	DurationMS       float64        `json:"duration_ms"`
	Capture          string         `json:"capture"`
	Config           ConfigEcho     `json:"config"`
	Thresholds       Thresholds     `json:"thresholds"`
	Cases            []CaseReport   `json:"cases"`
	Presets          []PresetReport `json:"presets"`
	Verdict          Verdict        `json:"verdict"`
	BlockingFailures []string       `json:"blocking_failures"`
	Summary          Summary        `json:"summary"`
}

// Passed reports whether the run certified the pipeline.
func (a *Artifact) Passed() bool {
	return a.Verdict == VerdictPass
}

// JSON renders the artifact for CI consumption.
func (a *Artifact) JSON() ([]byte, error) {
	return json.MarshalIndent(a, "", "  ")
}

// Text renders a short human-readable summary.
func (a *Artifact) Text() string {
	var b strings.Builder
	fmt.Fprintf(&b, "parity gate %s: %s\n", a.RunID, a.Verdict)
	fmt.Fprintf(&b, "capture: %s (%.1f ms)\n", a.Capture, a.DurationMS)
	fmt.Fprintf(&b, "cases:   %d/%d passed\n", a.Summary.CasesPassed, a.Summary.CasesTotal)
	fmt.Fprintf(&b, "presets: %d/%d passed\n", a.Summary.PresetsPassed, a.Summary.PresetsTotal)
	for _, c := range a.Cases {
		fmt.Fprintf(&b, "  %-20s %s  dabs %d/%d  pressure mae %.4f  speed mae %.4f  mix mae %.4f\n",
			c.Name, c.Verdict, c.StreamDabs, c.ReferenceDabs, c.Stage.Pressure.MAE, c.Stage.Speed.MAE, c.Stage.Mix.MAE)
	}
	for _, p := range a.Presets {
		fmt.Fprintf(&b, "  %-20s %s  sensor mae %.4f  p95 %.4f\n", p.Name, p.Verdict, p.Sensor.MAE, p.Sensor.P95)
	}
	if len(a.BlockingFailures) == 0 {
		b.WriteString("blocking failures: none\n")
		return b.String()
	}
	b.WriteString("blocking failures:\n")
	for _, f := range a.BlockingFailures {
		fmt.Fprintf(&b, "  - %s\n", f)
	}
	return b.String()
}

// WriteArtifact writes the JSON artifact to path, creating parent directories.
func WriteArtifact(path string, a *Artifact) error {
	data, err := a.JSON()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrArtifactWrite, err)
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil { //nolint:gosec,mnd // artifact dirs are world-readable
			return fmt.Errorf("%w: %w", ErrArtifactWrite, err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil { //nolint:gosec,mnd // artifact is world-readable
		return fmt.Errorf("%w: %w", ErrArtifactWrite, err)
	}
	return nil
}

// dabDiff renders a unified diff of the reference and streaming dab listings.
func dabDiff(stream, ref []model.Dab) string {
	diff := difflib.UnifiedDiff{
		A:        listing(ref),
		B:        listing(stream),
		FromFile: "reference",
		ToFile:   "stream",
		Context:  diffContext,
	}
	out, err := difflib.GetUnifiedDiffString(diff)
	if err != nil {
		return ""
	}
	return out
}

func listing(dabs []model.Dab) []string {
	out := make([]string, len(dabs))
	for i, d := range dabs {
		out[i] = fmt.Sprintf("%9.3f %9.3f p=%.4f s=%.4f t=%d\n", d.X, d.Y, d.Pressure, d.Speed, d.TimeUS)
	}
	return out
}

// dedupe keeps the first occurrence of every name.
func dedupe(names []string) []string {
	seen := make(map[string]struct{}, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}
