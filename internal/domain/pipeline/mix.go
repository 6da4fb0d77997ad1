package pipeline

import (
	"math"

	"github.com/okian/dabline/internal/domain/model"
)

// Mix linearly interpolates every field of from and to by t, clamped to
// [0,1]. Elapsed time is rounded to the nearest microsecond. The endpoints
// are returned exactly at t=0 and t=1.
func Mix(from, to model.PaintInfo, t float64) model.PaintInfo {
	if math.IsNaN(t) {
		t = 0
	}
	switch {
	case t <= 0:
		return from
	case t >= 1:
		return to
	}
	return model.PaintInfo{
		X:        lerp(from.X, to.X, t),
		Y:        lerp(from.Y, to.Y, t),
		Pressure: lerp(from.Pressure, to.Pressure, t),
		Speed:    lerp(from.Speed, to.Speed, t),
		TimeUS:   int64(math.Round(lerp(float64(from.TimeUS), float64(to.TimeUS), t))),
	}
}

func lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}
