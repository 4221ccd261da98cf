package temporal

import (
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/LLM-Dev-Ops/memory-graph-sub000/internal/telemetry"
	"go.uber.org/zap"
)

// Config controls retention and graph assembly
type Config struct {
	// Retention is how long points are kept; <= 0 keeps everything
	Retention time.Duration
	// CorrelationThreshold is the |coefficient| a pair must exceed to become an edge
	CorrelationThreshold float64
	// MaxLagSteps bounds the lag search in samples; 0 disables it
	MaxLagSteps int
}

// DefaultConfig returns a 24h retention, 0.5 threshold, no lag search
func DefaultConfig() Config {
	return Config{
		Retention:            24 * time.Hour,
		CorrelationThreshold: 0.5,
		MaxLagSteps:          0,
	}
}

// Node is one metric observation inside a graph window
type Node struct {
	ID        string            `json:"id"`
	Metric    string            `json:"metric"`
	Timestamp time.Time         `json:"timestamp"`
	Value     float64           `json:"value"`
	Labels    map[string]string `json:"labels,omitempty"`
}

// Edge links two metrics whose correlation is significant
type Edge struct {
	From        string  `json:"from"`
	To          string  `json:"to"`
	Correlation float64 `json:"correlation"`
	LagMs       int64   `json:"lag_ms"`
	SampleSize  int     `json:"sample_size"`
}

// Graph is the correlation graph for a time window
type Graph struct {
	Nodes     []Node    `json:"nodes"`
	Edges     []Edge    `json:"edges"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
}

// Builder maintains retained series and computes correlations on demand
type Builder struct {
	cfg    Config
	now    func() time.Time
	logger *zap.Logger

	mu     sync.RWMutex
	series map[string]*series

	historyMu sync.Mutex
	history   []Correlation
}

// NewBuilder creates a temporal graph builder
func NewBuilder(cfg Config) *Builder {
	return &Builder{
		cfg:    cfg,
		now:    time.Now,
		logger: zap.NewNop(),
		series: make(map[string]*series),
	}
}

// WithLogger sets the builder's logger
func (b *Builder) WithLogger(logger *zap.Logger) *Builder {
	if logger != nil {
		b.logger = logger
	}
	return b
}

// WithClock replaces the time source used for retention
func (b *Builder) WithClock(now func() time.Time) *Builder {
	if now != nil {
		b.now = now
	}
	return b
}

// Config returns the builder configuration
func (b *Builder) Config() Config {
	return b.cfg
}

func (b *Builder) getOrCreate(name string, metricType telemetry.MetricType) *series {
	b.mu.RLock()
	s, ok := b.series[name]
	b.mu.RUnlock()
	if ok {
		return s
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if s, ok := b.series[name]; ok {
		return s
	}
	s = newSeries(name, metricType)
	b.series[name] = s
	return s
}

// ProcessMetric stores the observation in its series (replacing any point at
// the same timestamp) and evicts that series' expired points.
func (b *Builder) ProcessMetric(metric *telemetry.Metric) {
	s := b.getOrCreate(metric.Name, metric.MetricType)

	s.mu.Lock()
	s.upsert(DataPoint{
		Timestamp: metric.Time,
		Value:     metric.Value,
		Labels:    cloneLabels(metric.Labels),
	})
	evicted := 0
	if b.cfg.Retention > 0 {
		evicted = s.evictBefore(b.now().Add(-b.cfg.Retention))
	}
	s.mu.Unlock()

	if evicted > 0 {
		b.logger.Debug("evicted expired points",
			zap.String("metric", metric.Name),
			zap.Int("count", evicted),
		)
	}
}

// GetSeries returns a snapshot of the named series
func (b *Builder) GetSeries(name string) (*TimeSeries, bool) {
	b.mu.RLock()
	s, ok := b.series[name]
	b.mu.RUnlock()
	if !ok {
		return nil, false
	}
	return s.snapshot(), true
}

// GetAllSeries returns snapshots of every series ordered by name
func (b *Builder) GetAllSeries() []*TimeSeries {
	out := make([]*TimeSeries, 0)
	for _, s := range b.sortedSeries() {
		out = append(out, s.snapshot())
	}
	return out
}

// sortedSeries collects the series pointers under the map lock only
func (b *Builder) sortedSeries() []*series {
	b.mu.RLock()
	list := make([]*series, 0, len(b.series))
	for _, s := range b.series {
		list = append(list, s)
	}
	b.mu.RUnlock()

	sort.Slice(list, func(i, j int) bool { return list[i].name < list[j].name })
	return list
}

// CalculateCorrelation computes the correlation of two metrics over
// [start, end]. It reports false when either series is missing or has fewer
// than two points in the window.
func (b *Builder) CalculateCorrelation(metricA, metricB string, start, end time.Time) (*Correlation, bool) {
	b.mu.RLock()
	sa, okA := b.series[metricA]
	sb, okB := b.series[metricB]
	b.mu.RUnlock()
	if !okA || !okB {
		return nil, false
	}

	// Snapshot under per-series read locks; the math runs unlocked
	wa := sa.window(start, end)
	wb := sb.window(start, end)

	p, ok := correlate(wa, wb, b.cfg.MaxLagSteps)
	if !ok {
		return nil, false
	}

	c := Correlation{
		MetricA:     metricA,
		MetricB:     metricB,
		Coefficient: p.coefficient,
		StartTime:   start,
		EndTime:     end,
		SampleSize:  p.samples,
		LagMs:       p.lagMs,
	}
	b.recordCorrelation(c)
	return &c, true
}

// BuildGraph assembles the correlation graph for [start, end]: one node per
// point in the window and one edge per metric pair whose |coefficient|
// exceeds the configured threshold.
func (b *Builder) BuildGraph(start, end time.Time) *Graph {
	list := b.sortedSeries()

	windows := make([][]DataPoint, len(list))
	for i, s := range list {
		windows[i] = s.window(start, end)
	}

	graph := &Graph{
		Nodes:     []Node{},
		Edges:     []Edge{},
		StartTime: start,
		EndTime:   end,
	}

	for i, s := range list {
		for _, p := range windows[i] {
			graph.Nodes = append(graph.Nodes, Node{
				ID:        fmt.Sprintf("%s@%d", s.name, p.Timestamp.UnixNano()),
				Metric:    s.name,
				Timestamp: p.Timestamp,
				Value:     p.Value,
				Labels:    p.Labels,
			})
		}
	}

	var computed []Correlation
	for i := 0; i < len(list); i++ {
		for j := i + 1; j < len(list); j++ {
			p, ok := correlate(windows[i], windows[j], b.cfg.MaxLagSteps)
			if !ok {
				continue
			}
			computed = append(computed, Correlation{
				MetricA:     list[i].name,
				MetricB:     list[j].name,
				Coefficient: p.coefficient,
				StartTime:   start,
				EndTime:     end,
				SampleSize:  p.samples,
				LagMs:       p.lagMs,
			})
			if math.Abs(p.coefficient) > b.cfg.CorrelationThreshold {
				graph.Edges = append(graph.Edges, Edge{
					From:        list[i].name,
					To:          list[j].name,
					Correlation: p.coefficient,
					LagMs:       p.lagMs,
					SampleSize:  p.samples,
				})
			}
		}
	}
	b.recordCorrelation(computed...)

	b.logger.Debug("temporal graph built",
		zap.Int("series", len(list)),
		zap.Int("nodes", len(graph.Nodes)),
		zap.Int("edges", len(graph.Edges)),
	)
	return graph
}

func (b *Builder) recordCorrelation(c ...Correlation) {
	if len(c) == 0 {
		return
	}
	b.historyMu.Lock()
	b.history = append(b.history, c...)
	b.historyMu.Unlock()
}

// GetCorrelations returns every correlation computed so far, oldest first
func (b *Builder) GetCorrelations() []Correlation {
	b.historyMu.Lock()
	defer b.historyMu.Unlock()

	out := make([]Correlation, len(b.history))
	copy(out, b.history)
	return out
}

// Clear drops all series and the correlation history
func (b *Builder) Clear() {
	b.mu.Lock()
	b.series = make(map[string]*series)
	b.mu.Unlock()

	b.historyMu.Lock()
	b.history = nil
	b.historyMu.Unlock()
}

// MetricCount returns the number of series held
func (b *Builder) MetricCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.series)
}

func cloneLabels(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
