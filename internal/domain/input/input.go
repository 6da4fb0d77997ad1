// Package input normalizes raw pointer fields before they reach the pipeline.
package input

import (
	"math"
	"strings"

	"github.com/okian/dabline/internal/domain/model"
)

// Tilt bounds in degrees.
const (
	minTiltDeg = -90
	maxTiltDeg = 90
	fullTurn   = 360
)

// ClampPressure clamps p into [0,1]. Non-finite values become 0.
func ClampPressure(p float64) float64 {
	if math.IsNaN(p) || math.IsInf(p, 0) {
		return 0
	}
	return math.Max(0, math.Min(1, p))
}

// ClampTilt clamps a tilt angle into [-90,90]. Non-finite values become 0.
func ClampTilt(deg float64) float64 {
	if math.IsNaN(deg) || math.IsInf(deg, 0) {
		return 0
	}
	return math.Max(minTiltDeg, math.Min(maxTiltDeg, deg))
}

// NormalizeRotation wraps a rotation into [0,360). Non-finite values become 0.
func NormalizeRotation(deg float64) float64 {
	if math.IsNaN(deg) || math.IsInf(deg, 0) {
		return 0
	}
	r := math.Mod(deg, fullTurn)
	if r < 0 {
		r += fullTurn
	}
	if r >= fullTurn {
		r = 0
	}
	return r
}

// sourceAliases maps platform bridge tags onto canonical sources.
var sourceAliases = map[string]model.Source{ //nolint:gochecknoglobals // read-only lookup table
	"pen":          model.SourcePen,
	"stylus":       model.SourcePen,
	"wintab":       model.SourcePen,
	"macnative":    model.SourcePen,
	"pointerevent": model.SourcePen,
	"mouse":        model.SourceMouse,
	"trackpad":     model.SourceMouse,
	"touch":        model.SourceTouch,
	"finger":       model.SourceTouch,
}

// ResolveSource maps a raw source tag to a canonical source.
// The second result is false when the tag is not recognized.
func ResolveSource(tag string) (model.Source, bool) {
	key := strings.ToLower(strings.TrimSpace(tag))
	key = strings.ReplaceAll(key, "_", "")
	if s, ok := sourceAliases[key]; ok {
		return s, true
	}
	return model.SourceUnknown, false
}

// ValidPhase reports whether p is one of the known lifecycle phases.
func ValidPhase(p model.Phase) bool {
	switch p {
	case model.PhaseHover, model.PhaseDown, model.PhaseMove, model.PhaseUp:
		return true
	default:
		return false
	}
}
