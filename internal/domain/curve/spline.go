// Package curve builds dense lookup tables from sparse, user-edited control
// points and samples them at arbitrary inputs.
package curve

import (
	"math"
	"sort"
)

// Point is a control point in normalized (0..1, 0..1) curve space.
type Point struct {
	X float64 `json:"x" yaml:"x" koanf:"x"`
	Y float64 `json:"y" yaml:"y" koanf:"y"`
}

// minXGap collapses control points whose inputs are closer than this.
const minXGap = 1e-9

// Spline is a natural cubic spline through a set of control points.
// The zero value evaluates as the identity.
type Spline struct {
	xs, ys, m []float64
}

// NewSpline fits a natural cubic spline (zero second derivative at both ends)
// through pts. Points are sorted by X and near-duplicate inputs keep the last
// Y supplied. Non-finite coordinates make the whole set malformed and yield
// the identity spline.
func NewSpline(pts []Point) Spline {
	clean := make([]Point, 0, len(pts))
	for _, p := range pts {
		if !finite(p.X) || !finite(p.Y) {
			return Spline{}
		}
		clean = append(clean, Point{X: clamp01(p.X), Y: clamp01(p.Y)})
	}
	sort.SliceStable(clean, func(i, j int) bool { return clean[i].X < clean[j].X })

	xs := make([]float64, 0, len(clean))
	ys := make([]float64, 0, len(clean))
	for _, p := range clean {
		if n := len(xs); n > 0 && p.X-xs[n-1] < minXGap {
			ys[n-1] = p.Y
			continue
		}
		xs = append(xs, p.X)
		ys = append(ys, p.Y)
	}
	if len(xs) == 0 {
		return Spline{}
	}
	return Spline{xs: xs, ys: ys, m: secondDerivatives(xs, ys)}
}

// secondDerivatives solves the tridiagonal system for a natural spline.
func secondDerivatives(xs, ys []float64) []float64 {
	n := len(xs)
	m := make([]float64, n)
	if n < 3 {
		return m
	}
	// Thomas algorithm over the interior knots.
	c := make([]float64, n)
	d := make([]float64, n)
	for i := 1; i < n-1; i++ {
		h0 := xs[i] - xs[i-1]
		h1 := xs[i+1] - xs[i]
		a := h0
		b := 2 * (h0 + h1)
		rhs := 6 * ((ys[i+1]-ys[i])/h1 - (ys[i]-ys[i-1])/h0)
		if i > 1 {
			b -= a * c[i-1]
			rhs -= a * d[i-1]
		}
		c[i] = h1 / b
		d[i] = rhs / b
	}
	for i := n - 2; i >= 1; i-- {
		m[i] = d[i] - c[i]*m[i+1]
	}
	return m
}

// Eval evaluates the spline at x. Inputs outside the control range hold the
// nearest endpoint value.
func (s Spline) Eval(x float64) float64 {
	switch len(s.xs) {
	case 0:
		return x
	case 1:
		return s.ys[0]
	}
	n := len(s.xs)
	if x <= s.xs[0] {
		return s.ys[0]
	}
	if x >= s.xs[n-1] {
		return s.ys[n-1]
	}
	i := sort.SearchFloat64s(s.xs, x) - 1
	if i < 0 {
		i = 0
	}
	h := s.xs[i+1] - s.xs[i]
	a := (s.xs[i+1] - x) / h
	b := (x - s.xs[i]) / h
	return a*s.ys[i] + b*s.ys[i+1] +
		((a*a*a-a)*s.m[i]+(b*b*b-b)*s.m[i+1])*h*h/6
}

// Identity reports whether the spline is the pass-through mapping.
func (s Spline) Identity() bool {
	return len(s.xs) == 0
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
