package temporal

import (
	"math"
	"time"

	"gonum.org/v1/gonum/stat"
)

// Correlation is the Pearson coefficient between two metrics over a window
type Correlation struct {
	MetricA     string    `json:"metric_a"`
	MetricB     string    `json:"metric_b"`
	Coefficient float64   `json:"coefficient"`
	StartTime   time.Time `json:"start_time"`
	EndTime     time.Time `json:"end_time"`
	SampleSize  int       `json:"sample_size"`
	LagMs       int64     `json:"lag_ms"`
}

// pearson returns the Pearson coefficient of x and y, which must have equal
// length. Zero variance in either input yields 0; the result is clamped to
// [-1, 1] and is never NaN.
func pearson(x, y []float64) float64 {
	if len(x) < 2 || len(x) != len(y) {
		return 0
	}
	if stat.Variance(x, nil) == 0 || stat.Variance(y, nil) == 0 {
		return 0
	}

	r := stat.Correlation(x, y, nil)
	switch {
	case math.IsNaN(r):
		return 0
	case r > 1:
		return 1
	case r < -1:
		return -1
	}
	return r
}

// pairing describes one alignment of two windows
type pairing struct {
	coefficient float64
	samples     int
	lagMs       int64
}

// correlate aligns a and b sample-by-sample and computes their coefficient.
// With maxLag == 0 the shorter window's length bounds the pairing. With
// maxLag > 0, b is also shifted by up to maxLag samples in either direction
// and the shift with the largest |coefficient| wins; ties keep the smaller
// shift. Both windows need at least two points.
func correlate(a, b []DataPoint, maxLag int) (pairing, bool) {
	if len(a) < 2 || len(b) < 2 {
		return pairing{}, false
	}

	best, ok := alignAt(a, b, 0)
	for k := 1; k <= maxLag; k++ {
		for _, shift := range []int{k, -k} {
			p, valid := alignAt(a, b, shift)
			if !valid {
				continue
			}
			if !ok || math.Abs(p.coefficient) > math.Abs(best.coefficient) {
				best, ok = p, true
			}
		}
	}
	return best, ok
}

// alignAt pairs a[i] with b[i+shift]
func alignAt(a, b []DataPoint, shift int) (pairing, bool) {
	first := 0
	if shift < 0 {
		first = -shift
	}
	last := len(a)
	if len(b)-shift < last {
		last = len(b) - shift
	}
	n := last - first
	if n < 2 {
		return pairing{}, false
	}

	x := make([]float64, n)
	y := make([]float64, n)
	for i := 0; i < n; i++ {
		x[i] = a[first+i].Value
		y[i] = b[first+i+shift].Value
	}

	p := pairing{
		coefficient: pearson(x, y),
		samples:     n,
	}
	if shift != 0 {
		p.lagMs = b[first+shift].Timestamp.Sub(a[first].Timestamp).Milliseconds()
	}
	return p, true
}
