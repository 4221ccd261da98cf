package temporal

import (
	"sort"
	"sync"
	"time"

	"github.com/LLM-Dev-Ops/memory-graph-sub000/internal/telemetry"
)

// DataPoint is one observation in a series
type DataPoint struct {
	Timestamp time.Time         `json:"timestamp"`
	Value     float64           `json:"value"`
	Labels    map[string]string `json:"labels,omitempty"`
}

// TimeSeries is a time-ordered snapshot of one metric's retained points
type TimeSeries struct {
	Name       string               `json:"name"`
	MetricType telemetry.MetricType `json:"metric_type"`
	Points     []DataPoint          `json:"points"`
}

// Len returns the number of points
func (ts *TimeSeries) Len() int {
	return len(ts.Points)
}

// Values returns the point values in time order
func (ts *TimeSeries) Values() []float64 {
	values := make([]float64, len(ts.Points))
	for i, p := range ts.Points {
		values[i] = p.Value
	}
	return values
}

// series is the mutable, lock-protected form of a TimeSeries. Points are
// keyed by unix nanoseconds; keys is kept sorted.
type series struct {
	mu         sync.RWMutex
	name       string
	metricType telemetry.MetricType
	points     map[int64]DataPoint
	keys       []int64
}

func newSeries(name string, metricType telemetry.MetricType) *series {
	return &series{
		name:       name,
		metricType: metricType,
		points:     make(map[int64]DataPoint),
	}
}

// upsert stores p, replacing any point at the same timestamp.
// Caller holds s.mu.
func (s *series) upsert(p DataPoint) {
	key := p.Timestamp.UnixNano()
	if _, exists := s.points[key]; !exists {
		idx := sort.Search(len(s.keys), func(i int) bool { return s.keys[i] >= key })
		s.keys = append(s.keys, 0)
		copy(s.keys[idx+1:], s.keys[idx:])
		s.keys[idx] = key
	}
	s.points[key] = p
}

// evictBefore drops points strictly older than cutoff and returns how many
// were removed. Caller holds s.mu.
func (s *series) evictBefore(cutoff time.Time) int {
	limit := cutoff.UnixNano()
	n := sort.Search(len(s.keys), func(i int) bool { return s.keys[i] >= limit })
	if n == 0 {
		return 0
	}
	for _, k := range s.keys[:n] {
		delete(s.points, k)
	}
	s.keys = s.keys[:copy(s.keys, s.keys[n:])]
	return n
}

// window copies the points with start <= timestamp <= end, in time order
func (s *series) window(start, end time.Time) []DataPoint {
	s.mu.RLock()
	defer s.mu.RUnlock()

	lo := sort.Search(len(s.keys), func(i int) bool { return s.keys[i] >= start.UnixNano() })
	hi := sort.Search(len(s.keys), func(i int) bool { return s.keys[i] > end.UnixNano() })
	if lo >= hi {
		return nil
	}

	out := make([]DataPoint, 0, hi-lo)
	for _, k := range s.keys[lo:hi] {
		out = append(out, clonePoint(s.points[k]))
	}
	return out
}

func (s *series) snapshot() *TimeSeries {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ts := &TimeSeries{
		Name:       s.name,
		MetricType: s.metricType,
		Points:     make([]DataPoint, 0, len(s.keys)),
	}
	for _, k := range s.keys {
		ts.Points = append(ts.Points, clonePoint(s.points[k]))
	}
	return ts
}

func clonePoint(p DataPoint) DataPoint {
	if p.Labels != nil {
		labels := make(map[string]string, len(p.Labels))
		for k, v := range p.Labels {
			labels[k] = v
		}
		p.Labels = labels
	}
	return p
}

// Downsample reduces a series to roughly target points by keeping every
// len/target-th point. Series already at or below target are returned
// unchanged. Correlation never uses downsampled data.
func Downsample(ts *TimeSeries, target int) *TimeSeries {
	if ts == nil || target <= 0 || len(ts.Points) <= target {
		return ts
	}

	step := len(ts.Points) / target
	out := &TimeSeries{
		Name:       ts.Name,
		MetricType: ts.MetricType,
		Points:     make([]DataPoint, 0, len(ts.Points)/step+1),
	}
	for i := 0; i < len(ts.Points); i += step {
		out.Points = append(out.Points, ts.Points[i])
	}
	return out
}
