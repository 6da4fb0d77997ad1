package gate

import (
	"math"
	"sort"

	"github.com/okian/dabline/internal/domain/model"
	"github.com/okian/dabline/internal/domain/sensor"
)

const (
	p95Rank = 0.95
	// tailDabs is the number of trailing dabs compared for tail decay.
	tailDabs = 8
	// areaFloor keeps the relative area divergence finite for point-like strokes.
	areaFloor = 1.0
)

// ErrorStats summarizes absolute errors between two aligned series.
type ErrorStats struct {
	N   int     `json:"n"`
	MAE float64 `json:"mae"`
	P95 float64 `json:"p95"`
	Max float64 `json:"max"`
}

// within reports whether the stats respect both limits.
func (e ErrorStats) within(mae, p95 float64) bool {
	return e.MAE <= mae && e.P95 <= p95
}

// errorStats compares a and b index by index over their common length.
// Non-finite errors count as 1.
func errorStats(a, b []float64) ErrorStats {
	n := min(len(a), len(b))
	if n == 0 {
		return ErrorStats{}
	}
	errs := make([]float64, n)
	sum := 0.0
	for i := range n {
		e := math.Abs(a[i] - b[i])
		if !finite(e) {
			e = 1
		}
		errs[i] = e
		sum += e
	}
	sort.Float64s(errs)
	return ErrorStats{
		N:   n,
		MAE: sum / float64(n),
		P95: percentile(errs, p95Rank),
		Max: errs[n-1],
	}
}

// percentile returns the nearest-rank percentile of an ascending slice.
func percentile(sorted []float64, q float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(math.Ceil(q*float64(len(sorted)))) - 1
	return sorted[max(0, min(idx, len(sorted)-1))]
}

// StageMetrics compare each pipeline stage against the reference.
type StageMetrics struct {
	Pressure      ErrorStats `json:"pressure"`
	Speed         ErrorStats `json:"speed"`
	Mix           ErrorStats `json:"mix"`
	Sensor        ErrorStats `json:"sensor"`
	DabCountDelta int        `json:"dab_count_delta"`
	CarryError    float64    `json:"carry_error"`
}

// FinalMetrics approximate how differently the two dab streams would render.
type FinalMetrics struct {
	WidthDivergence     float64 `json:"width_divergence"`
	TailDecayDivergence float64 `json:"tail_decay_divergence"`
	AreaDivergence      float64 `json:"area_divergence"`
}

// FastWindowMetrics restrict the per-sample errors to the fastest samples.
type FastWindowMetrics struct {
	Samples  int        `json:"samples"`
	Pressure ErrorStats `json:"pressure"`
	Speed    ErrorStats `json:"speed"`
}

// stageMetrics compares the streaming run against the reference. direct holds
// the LUT-evaluated pressure of every sample.
func stageMetrics(direct []float64, s, ref run, spacing float64, opt sensor.Option) StageMetrics {
	carry := 0.0
	for i := range min(len(s.Carries), len(ref.Carries)) {
		carry = math.Max(carry, math.Abs(s.Carries[i].DistancePX-ref.Carries[i].DistancePX))
		carry = math.Max(carry, math.Abs(s.Carries[i].TimeUS-ref.Carries[i].TimeUS)/1000)
	}

	return StageMetrics{
		Pressure:      errorStats(field(s.Infos, pressureOf), direct),
		Speed:         errorStats(field(s.Infos, speedOf), field(ref.Infos, speedOf)),
		Mix:           errorStats(mixErrors(s.Dabs, ref.Dabs, spacing), make([]float64, len(s.Dabs))),
		Sensor:        errorStats(field(s.Dabs, opt.Resolve), field(ref.Dabs, referenceResolve(opt))),
		DabCountDelta: absInt(len(s.Dabs) - len(ref.Dabs)),
		CarryError:    carry,
	}
}

// mixErrors returns, per aligned dab, the largest of the pressure error, the
// speed error and the position error in units of spacing.
func mixErrors(a, b []model.Dab, spacing float64) []float64 {
	n := min(len(a), len(b))
	out := make([]float64, n)
	for i := range n {
		pos := math.Hypot(a[i].X-b[i].X, a[i].Y-b[i].Y) / spacing
		out[i] = math.Max(pos, math.Max(math.Abs(a[i].Pressure-b[i].Pressure), math.Abs(a[i].Speed-b[i].Speed)))
	}
	return out
}

func finalMetrics(a, b []model.Dab, spacing float64) FinalMetrics {
	pa, pb := field(a, pressureOf), field(b, pressureOf)
	ta, tb := pa[max(0, len(pa)-tailDabs):], pb[max(0, len(pb)-tailDabs):]
	// align tails on the last dab
	if d := len(ta) - len(tb); d > 0 {
		ta = ta[d:]
	} else if d < 0 {
		tb = tb[-d:]
	}
	areaA, areaB := footprint(a, spacing), footprint(b, spacing)
	return FinalMetrics{
		WidthDivergence:     math.Abs(mean(pa) - mean(pb)),
		TailDecayDivergence: errorStats(ta, tb).MAE,
		AreaDivergence:      math.Abs(areaA-areaB) / math.Max(areaB, areaFloor),
	}
}

// footprint is the bounding box of the dabs grown by the largest dab radius.
func footprint(dabs []model.Dab, spacing float64) float64 {
	if len(dabs) == 0 {
		return 0
	}
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	radius := 0.0
	for _, d := range dabs {
		minX, maxX = math.Min(minX, d.X), math.Max(maxX, d.X)
		minY, maxY = math.Min(minY, d.Y), math.Max(maxY, d.Y)
		radius = math.Max(radius, d.Pressure*spacing/2)
	}
	return (maxX - minX + 2*radius) * (maxY - minY + 2*radius)
}

// fastWindow selects the samples at or above the 95th percentile of
// reference speed.
func fastWindow(s, ref run, direct []float64) FastWindowMetrics {
	speeds := field(ref.Infos, speedOf)
	if len(speeds) == 0 {
		return FastWindowMetrics{}
	}
	sorted := append([]float64(nil), speeds...)
	sort.Float64s(sorted)
	cut := percentile(sorted, p95Rank)

	var sp, dp, ss, rs []float64
	for i, v := range speeds {
		if v < cut || i >= len(s.Infos) {
			continue
		}
		sp = append(sp, s.Infos[i].Pressure)
		dp = append(dp, direct[i])
		ss = append(ss, s.Infos[i].Speed)
		rs = append(rs, v)
	}
	return FastWindowMetrics{
		Samples:  len(sp),
		Pressure: errorStats(sp, dp),
		Speed:    errorStats(ss, rs),
	}
}

func field(infos []model.PaintInfo, f func(model.PaintInfo) float64) []float64 {
	out := make([]float64, len(infos))
	for i, p := range infos {
		out[i] = f(p)
	}
	return out
}

func pressureOf(p model.PaintInfo) float64 { return p.Pressure }
func speedOf(p model.PaintInfo) float64    { return p.Speed }

func mean(v []float64) float64 {
	if len(v) == 0 {
		return 0
	}
	sum := 0.0
	for _, x := range v {
		sum += x
	}
	return sum / float64(len(v))
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
