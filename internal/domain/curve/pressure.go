package curve

import (
	"math"
)

// PressureCurve is the global pressure response applied to every raw sample.
type PressureCurve struct {
	points []Point
	lut    LUT
}

// NewPressureCurve builds a pressure curve from control points. Endpoints are
// taken as supplied; nothing pins the curve to (0,0) and (1,1).
func NewPressureCurve(pts []Point) *PressureCurve {
	cp := make([]Point, len(pts))
	copy(cp, pts)
	return &PressureCurve{points: cp, lut: BuildLUT(cp, DefaultLUTSize)}
}

// NewPressureCurveFromLUT wraps a precomputed table. Malformed tables fall back
// to the identity.
func NewPressureCurveFromLUT(lut LUT) *PressureCurve {
	return &PressureCurve{lut: Sanitize(lut)}
}

// Map clamps raw pressure to [0,1] and samples the curve.
func (c *PressureCurve) Map(raw float64) float64 {
	if math.IsNaN(raw) || math.IsInf(raw, 0) {
		raw = 0
	}
	if c == nil {
		return clamp01(raw)
	}
	return c.lut.Sample(clamp01(raw))
}

// LUT exposes the dense table backing the curve.
func (c *PressureCurve) LUT() LUT {
	if c == nil {
		return nil
	}
	return c.lut
}

// Points returns a copy of the control points the curve was built from.
func (c *PressureCurve) Points() []Point {
	if c == nil {
		return nil
	}
	out := make([]Point, len(c.points))
	copy(out, c.points)
	return out
}
