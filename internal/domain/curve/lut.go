package curve

import "math"

// DefaultLUTSize is the number of entries in a dense curve table.
const DefaultLUTSize = 1025

// LUT is a dense table of curve outputs over evenly spaced inputs in [0,1].
// A LUT with fewer than two entries samples as the identity.
type LUT []float64

// BuildLUT evaluates the natural cubic spline through pts at size evenly
// spaced inputs. Outputs are clamped to [0,1]. An empty or malformed point
// set produces the identity table.
func BuildLUT(pts []Point, size int) LUT {
	if size < 2 {
		size = DefaultLUTSize
	}
	s := NewSpline(pts)
	lut := make(LUT, size)
	last := float64(size - 1)
	for i := range lut {
		lut[i] = clamp01(s.Eval(float64(i) / last))
	}
	return lut
}

// IdentityLUT returns a table mapping every input to itself.
func IdentityLUT(size int) LUT {
	return BuildLUT(nil, size)
}

// Sample linearly interpolates between the two table entries bracketing x.
// x is clamped to [0,1]; NaN samples as 0.
func (l LUT) Sample(x float64) float64 {
	if math.IsNaN(x) {
		x = 0
	}
	x = clamp01(x)
	if len(l) < 2 {
		return x
	}
	pos := x * float64(len(l)-1)
	i := int(pos)
	if i >= len(l)-1 {
		return l[len(l)-1]
	}
	frac := pos - float64(i)
	return l[i] + (l[i+1]-l[i])*frac
}

// Valid reports whether the table has enough finite entries to be sampled.
func (l LUT) Valid() bool {
	if len(l) < 2 {
		return false
	}
	for _, v := range l {
		if !finite(v) {
			return false
		}
	}
	return true
}

// Sanitize returns l when it is a usable table and nil (identity) otherwise.
func Sanitize(l LUT) LUT {
	if l.Valid() {
		return l
	}
	return nil
}
