// Package model contains the records passed between the input, pipeline and gate layers.
package model

import "math"

// Phase is the lifecycle phase of a pointer sample.
type Phase string

// Known phases. Hover is accepted on input and ignored by the pipeline.
const (
	PhaseHover Phase = "hover"
	PhaseDown  Phase = "down"
	PhaseMove  Phase = "move"
	PhaseUp    Phase = "up"
)

// Source identifies the device class that produced a sample.
type Source string

// Canonical sources. Aliases are resolved by the input package.
const (
	SourcePen     Source = "pen"
	SourceMouse   Source = "mouse"
	SourceTouch   Source = "touch"
	SourceUnknown Source = "unknown"
)

// RawInputSample is one observed pointer event as delivered by a platform bridge.
// Fields mirror the capture format consumed by the gate.
type RawInputSample struct {
	X            float64 `json:"x_px" yaml:"x_px"`               // device pixels
	Y            float64 `json:"y_px" yaml:"y_px"`               // device pixels
	Pressure     float64 `json:"pressure" yaml:"pressure"`       // nominally 0..1
	TiltX        float64 `json:"tilt_x_deg" yaml:"tilt_x_deg"`   // degrees
	TiltY        float64 `json:"tilt_y_deg" yaml:"tilt_y_deg"`   // degrees
	Rotation     float64 `json:"rotation_deg" yaml:"rotation_deg"`
	HostTimeUS   int64   `json:"host_time_us" yaml:"host_time_us"` // monotonic per stroke
	DeviceTimeUS *int64  `json:"device_time_us,omitempty" yaml:"device_time_us,omitempty"`
	Source       string  `json:"source" yaml:"source"` // raw tag, may be an alias
	Phase        Phase   `json:"phase" yaml:"phase"`
	Seq          *uint64 `json:"seq,omitempty" yaml:"seq,omitempty"`
}

// PaintInfo is the canonical per-sample point after normalization.
type PaintInfo struct {
	X        float64 `json:"x_px"`
	Y        float64 `json:"y_px"`
	Pressure float64 `json:"pressure"`  // curve-mapped, 0..1
	Speed    float64 `json:"speed"`     // normalized drawing speed, 0..1
	TimeUS   int64   `json:"elapsed_us"` // microseconds since stroke start
}

// Dab is a PaintInfo selected for emission to the renderer. Dabs are values;
// two dabs with identical fields are interchangeable.
type Dab = PaintInfo

// CarryState is the leftover spacing/interval debt owned by one segment sampler.
type CarryState struct {
	DistancePX float64 `json:"distance_carry_px"`
	TimeUS     float64 `json:"time_carry_us"`
}

// Distance returns the Euclidean distance between two points.
func Distance(a, b PaintInfo) float64 {
	return math.Hypot(b.X-a.X, b.Y-a.Y)
}

// SamePoint reports whether two infos share position (within eps) and elapsed time.
func SamePoint(a, b PaintInfo, eps float64) bool {
	return math.Abs(a.X-b.X) <= eps && math.Abs(a.Y-b.Y) <= eps && a.TimeUS == b.TimeUS
}
