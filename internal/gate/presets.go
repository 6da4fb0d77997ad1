package gate

import (
	"math"

	"github.com/okian/dabline/internal/domain/curve"
	"github.com/okian/dabline/internal/domain/model"
	"github.com/okian/dabline/internal/domain/sensor"
)

// Preset is a named sensor/combiner configuration certified over the capture.
type Preset struct {
	Name   string        `json:"name" yaml:"name"`
	Option sensor.Option `json:"option" yaml:"option"`
}

func lut(pts ...curve.Point) curve.LUT {
	return curve.BuildLUT(pts, curve.DefaultLUTSize)
}

func scaling(in sensor.Input, l curve.LUT) sensor.Config {
	return sensor.Config{Enabled: true, Input: in, Domain: sensor.DomainScaling, LUT: l}
}

// DefaultPresets returns the fixed preset set. The first one drives the
// stage sensor metric of every case.
func DefaultPresets() []Preset {
	soft := lut(curve.Point{X: 0, Y: 0.1}, curve.Point{X: 0.5, Y: 0.6}, curve.Point{X: 1, Y: 1})
	fade := lut(curve.Point{X: 0, Y: 1}, curve.Point{X: 1, Y: 0.3})
	ramp := lut(curve.Point{X: 0, Y: 0.2}, curve.Point{X: 1, Y: 1})
	return []Preset{
		{Name: "pressure_size", Option: sensor.Option{
			Name: "size", Constant: 1, Mode: sensor.ModeMultiply, Min: 0, Max: 1,
			Sensors: []sensor.Config{scaling(sensor.InputPressure, soft)},
		}},
		{Name: "speed_opacity", Option: sensor.Option{
			Name: "opacity", Constant: 1, Mode: sensor.ModeMultiply, Min: 0, Max: 1,
			Sensors: []sensor.Config{scaling(sensor.InputSpeed, fade)},
		}},
		{Name: "time_flow", Option: sensor.Option{
			Name: "flow", Constant: 0.8, Mode: sensor.ModeMultiply, Min: 0, Max: 1,
			Sensors: []sensor.Config{scaling(sensor.InputTime, ramp)},
		}},
		{Name: "additive_jitter", Option: sensor.Option{
			Name: "jitter", Constant: 0.5, Mode: sensor.ModeAdd, Min: -1, Max: 1,
			Sensors: []sensor.Config{
				{Enabled: true, Input: sensor.InputPressure, Domain: sensor.DomainAdditive},
				{Enabled: true, Input: sensor.InputSpeed, Domain: sensor.DomainAdditive, LUT: fade},
			},
		}},
		{Name: "rotation_wrap", Option: sensor.Option{
			Name: "angle", Constant: 1, Mode: sensor.ModeMultiply, Min: 0, Max: 360,
			Sensors: []sensor.Config{
				{Enabled: true, Input: sensor.InputTime, Domain: sensor.DomainAbsoluteRotation, LUT: ramp},
			},
		}},
		{Name: "max_blend", Option: sensor.Option{
			Name: "size", Constant: 1, Mode: sensor.ModeMax, Min: 0, Max: 1,
			Sensors: []sensor.Config{scaling(sensor.InputPressure, soft), scaling(sensor.InputSpeed, fade)},
		}},
		{Name: "min_blend", Option: sensor.Option{
			Name: "size", Constant: 1, Mode: sensor.ModeMin, Min: 0, Max: 1,
			Sensors: []sensor.Config{scaling(sensor.InputPressure, soft), scaling(sensor.InputSpeed, fade)},
		}},
		{Name: "difference_blend", Option: sensor.Option{
			Name: "size", Constant: 1, Mode: sensor.ModeDifference, Min: 0, Max: 1,
			Sensors: []sensor.Config{
				scaling(sensor.InputPressure, soft),
				scaling(sensor.InputSpeed, fade),
				{Enabled: false, Input: sensor.InputTime, Domain: sensor.DomainScaling},
			},
		}},
	}
}

// referenceResolve is a second implementation of sensor evaluation and
// combination, written against the table directly.
func referenceResolve(opt sensor.Option) func(model.PaintInfo) float64 {
	return func(p model.PaintInfo) float64 {
		var vals []float64
		for _, s := range opt.Sensors {
			if s.Enabled {
				vals = append(vals, referenceSensor(p, s))
			}
		}
		acc := 1.0
		for i, v := range vals {
			if i == 0 {
				acc = v
				continue
			}
			switch opt.Mode {
			case sensor.ModeAdd:
				acc += v
			case sensor.ModeMax:
				acc = max(acc, v)
			case sensor.ModeMin:
				acc = min(acc, v)
			case sensor.ModeDifference:
				acc = math.Abs(acc - v)
			default:
				acc *= v
			}
		}
		lo, hi := opt.Min, opt.Max
		if hi <= lo {
			hi = lo + 1e-6
		}
		return min(hi, max(lo, acc*opt.Constant))
	}
}

func referenceSensor(p model.PaintInfo, s sensor.Config) float64 {
	var v float64
	switch s.Input {
	case sensor.InputSpeed:
		v = p.Speed
	case sensor.InputTime:
		v = min(1, max(0, float64(p.TimeUS)/1e6))
	default:
		v = p.Pressure
	}

	var x float64
	switch s.Domain {
	case sensor.DomainAdditive:
		x = (v + 1) / 2
	case sensor.DomainAbsoluteRotation:
		x = math.Mod(v, 360)
		if x < 0 {
			x += 360
		}
		x /= 360
	default:
		x = v
	}

	y := tableAt(s.LUT, x)
	switch s.Domain {
	case sensor.DomainAdditive:
		return 2*y - 1
	case sensor.DomainAbsoluteRotation:
		return 360 * y
	default:
		return y
	}
}

// tableAt linearly interpolates a table over [0,1]; short or non-finite
// tables act as the identity.
func tableAt(t curve.LUT, x float64) float64 {
	if math.IsNaN(x) {
		x = 0
	}
	x = min(1, max(0, x))
	if len(t) < 2 {
		return x
	}
	for _, v := range t {
		if !finite(v) {
			return x
		}
	}
	pos := x * float64(len(t)-1)
	i := min(int(math.Floor(pos)), len(t)-2)
	return t[i] + (t[i+1]-t[i])*(pos-float64(i))
}
