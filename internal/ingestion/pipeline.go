package ingestion

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/LLM-Dev-Ops/memory-graph-sub000/internal/infrastructure/monitoring"
	"github.com/LLM-Dev-Ops/memory-graph-sub000/internal/lineage"
	"github.com/LLM-Dev-Ops/memory-graph-sub000/internal/mapping"
	"github.com/LLM-Dev-Ops/memory-graph-sub000/internal/telemetry"
	"github.com/LLM-Dev-Ops/memory-graph-sub000/internal/temporal"
	"go.uber.org/zap"
)

var (
	// ErrNilEvent is reported for a nil event
	ErrNilEvent = errors.New("nil event")
	// ErrIngestFailed wraps the errors of an unsuccessful ingestion
	ErrIngestFailed = errors.New("ingestion failed")
)

// ProcessingResult is the outcome of ingesting one event. Success is false
// exactly when Errors is non-empty.
type ProcessingResult struct {
	Success       bool                   `json:"success"`
	LineageChain  *lineage.Chain         `json:"lineage_chain,omitempty"`
	MappingResult *mapping.MappingResult `json:"mapping_result,omitempty"`
	Errors        []string               `json:"errors"`
}

func (r *ProcessingResult) fail(err error) {
	r.Errors = append(r.Errors, err.Error())
	r.Success = false
}

// Pipeline routes telemetry to the lineage, temporal and mapping stages
type Pipeline struct {
	cfg Config

	lineage  *lineage.Builder
	temporal *temporal.Builder
	mapper   *mapping.EntityMapper

	stats statsCounters

	bufMu  sync.Mutex
	buffer []telemetry.Event

	metrics *monitoring.Metrics
	logger  *zap.Logger
}

// New creates a pipeline with freshly constructed stages. Start cfg from
// DefaultConfig(): the Enable flags are taken as given, so a zero Config
// routes nothing, and TemporalRetentionHours <= 0 keeps points forever.
// Non-positive BufferSize, FlushIntervalMs and CorrelationThreshold fall
// back to their defaults; a negative MaxLagSteps is treated as 0.
func New(cfg Config) *Pipeline {
	def := DefaultConfig()
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = def.BufferSize
	}
	if cfg.FlushIntervalMs <= 0 {
		cfg.FlushIntervalMs = def.FlushIntervalMs
	}
	if cfg.CorrelationThreshold <= 0 {
		cfg.CorrelationThreshold = def.CorrelationThreshold
	}
	if cfg.MaxLagSteps < 0 {
		cfg.MaxLagSteps = 0
	}

	return &Pipeline{
		cfg:      cfg,
		lineage:  lineage.NewBuilder(),
		temporal: temporal.NewBuilder(cfg.TemporalConfig()),
		mapper:   mapping.NewEntityMapper(cfg.Mapping),
		buffer:   make([]telemetry.Event, 0, cfg.BufferSize),
		logger:   zap.NewNop(),
	}
}

// WithLogger sets the logger on the pipeline and every stage
func (p *Pipeline) WithLogger(logger *zap.Logger) *Pipeline {
	if logger == nil {
		return p
	}
	p.logger = logger
	p.lineage.WithLogger(logger.Named("lineage"))
	p.temporal.WithLogger(logger.Named("temporal"))
	p.mapper.WithLogger(logger.Named("mapping"))
	return p
}

// WithMetrics enables Prometheus instrumentation
func (p *Pipeline) WithMetrics(metrics *monitoring.Metrics) *Pipeline {
	p.metrics = metrics
	return p
}

// WithClock replaces the time source used for metric retention
func (p *Pipeline) WithClock(now func() time.Time) *Pipeline {
	p.temporal.WithClock(now)
	return p
}

// Config returns the pipeline configuration
func (p *Pipeline) Config() Config {
	return p.cfg
}

// Ingest processes one event. It never panics and never returns an error:
// every failure is recorded in the result.
func (p *Pipeline) Ingest(event telemetry.Event) (result ProcessingResult) {
	result = ProcessingResult{Success: true, Errors: []string{}}

	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("panic while ingesting event", zap.Any("panic", r))
			result.fail(fmt.Errorf("internal error: %v", r))
		}
		if !result.Success {
			p.stats.consumed.RecordError()
		}
	}()

	if event == nil {
		result.fail(ErrNilEvent)
		p.recordError("malformed")
		return result
	}
	if err := event.Validate(); err != nil {
		result.fail(err)
		p.recordError("malformed")
		p.logger.Debug("rejected malformed event",
			zap.String("telemetry_type", string(event.Type())),
			zap.Error(err),
		)
		return result
	}

	switch e := event.(type) {
	case *telemetry.Span:
		p.ingestSpan(e, &result)
	case *telemetry.Metric:
		p.ingestMetric(e)
	case *telemetry.Log:
		p.ingestLog(e)
	default:
		result.fail(fmt.Errorf("%w: %T", telemetry.ErrUnknownType, event))
		p.recordError("malformed")
		return result
	}

	p.stats.consumed.Record(event.Type())
	if p.metrics != nil {
		p.metrics.RecordEvent(string(event.Type()))
	}
	return result
}

func (p *Pipeline) ingestSpan(span *telemetry.Span, result *ProcessingResult) {
	if p.cfg.EnableLineage {
		if p.lineage.ProcessSpan(span) {
			p.stats.chains.Add(1)
			if p.metrics != nil {
				p.metrics.SetLineageChains(p.lineage.ChainCount())
			}
		}
	}

	if p.cfg.EnableMapping {
		mr := p.mapper.MapSpanWithParent(span)
		p.recordMapping(&mr)
		if p.cfg.EnableLineage {
			for _, e := range mr.Entities {
				p.lineage.SetMappedNodeID(e.SourceTraceID, e.SourceSpanID, e.NodeID.String())
			}
		}
		for _, msg := range mr.Errors {
			result.Errors = append(result.Errors, msg)
			result.Success = false
		}
		result.MappingResult = &mr
	}

	if p.cfg.EnableLineage {
		if chain, ok := p.lineage.GetChain(span.TraceID); ok {
			result.LineageChain = chain
		}
	}
}

func (p *Pipeline) ingestMetric(metric *telemetry.Metric) {
	if !p.cfg.EnableTemporal {
		return
	}
	p.temporal.ProcessMetric(metric)
	if p.metrics != nil {
		p.metrics.SetSeries(p.temporal.MetricCount())
	}
}

// Logs have no structural effect yet; they are counted and acknowledged
func (p *Pipeline) ingestLog(log *telemetry.Log) {
	fields := []zap.Field{
		zap.String("level", string(log.Level)),
		zap.String("message", log.Message),
	}
	if log.TraceContext != nil {
		fields = append(fields,
			zap.String("trace_id", log.TraceContext.TraceID),
			zap.String("span_id", log.TraceContext.SpanID),
		)
	}
	p.logger.Debug("log event acknowledged", fields...)
}

func (p *Pipeline) recordMapping(mr *mapping.MappingResult) {
	p.stats.entities.Add(uint64(len(mr.Entities)))
	p.stats.mappingErrors.Add(uint64(len(mr.Errors)))
	if p.metrics != nil {
		p.metrics.AddEntitiesMapped(len(mr.Entities))
		for range mr.Errors {
			p.metrics.RecordIngestError("mapping")
		}
	}
}

func (p *Pipeline) recordError(kind string) {
	if p.metrics != nil {
		p.metrics.RecordIngestError(kind)
	}
}

// IngestBatch processes events in order and returns one result per event.
// A failing event never affects the others.
func (p *Pipeline) IngestBatch(events []telemetry.Event) []ProcessingResult {
	results := make([]ProcessingResult, len(events))
	for i, e := range events {
		results[i] = p.Ingest(e)
	}
	return results
}

// Buffer queues an event for a later Flush. When the buffer reaches
// BufferSize it is flushed immediately and those results are returned;
// otherwise the result is nil.
func (p *Pipeline) Buffer(event telemetry.Event) []ProcessingResult {
	p.bufMu.Lock()
	p.buffer = append(p.buffer, event)
	var drained []telemetry.Event
	if len(p.buffer) >= p.cfg.BufferSize {
		drained = p.drainLocked()
	}
	depth := len(p.buffer)
	p.bufMu.Unlock()

	if p.metrics != nil {
		p.metrics.SetBufferDepth(depth)
	}
	if drained == nil {
		return nil
	}
	return p.flushEvents(drained)
}

// Flush processes every buffered event
func (p *Pipeline) Flush() []ProcessingResult {
	p.bufMu.Lock()
	drained := p.drainLocked()
	p.bufMu.Unlock()

	if p.metrics != nil {
		p.metrics.SetBufferDepth(0)
	}
	return p.flushEvents(drained)
}

// BufferedCount returns the number of events waiting for a flush
func (p *Pipeline) BufferedCount() int {
	p.bufMu.Lock()
	defer p.bufMu.Unlock()
	return len(p.buffer)
}

// drainLocked empties the buffer. Caller holds bufMu.
func (p *Pipeline) drainLocked() []telemetry.Event {
	drained := p.buffer
	p.buffer = make([]telemetry.Event, 0, p.cfg.BufferSize)
	return drained
}

func (p *Pipeline) flushEvents(events []telemetry.Event) []ProcessingResult {
	results := p.IngestBatch(events)
	if len(events) > 0 {
		if p.metrics != nil {
			p.metrics.IncFlushes()
		}
		p.logger.Debug("buffer flushed", zap.Int("events", len(events)))
	}
	return results
}

// Run flushes the buffer every FlushInterval until ctx is cancelled, then
// flushes once more. onFlush, if set, receives each non-empty flush.
func (p *Pipeline) Run(ctx context.Context, onFlush func([]ProcessingResult)) {
	ticker := time.NewTicker(p.cfg.FlushInterval())
	defer ticker.Stop()

	deliver := func() {
		results := p.Flush()
		if onFlush != nil && len(results) > 0 {
			onFlush(results)
		}
	}

	for {
		select {
		case <-ctx.Done():
			deliver()
			return
		case <-ticker.C:
			deliver()
		}
	}
}

// GetLineageChain returns a snapshot of the chain for traceID
func (p *Pipeline) GetLineageChain(traceID string) (*lineage.Chain, bool) {
	return p.lineage.GetChain(traceID)
}

// GetAllLineageChains returns snapshots of every chain
func (p *Pipeline) GetAllLineageChains() []*lineage.Chain {
	return p.lineage.GetAllChains()
}

// RemoveLineageChain deletes a chain and returns its final state
func (p *Pipeline) RemoveLineageChain(traceID string) (*lineage.Chain, bool) {
	chain, ok := p.lineage.RemoveChain(traceID)
	if ok && p.metrics != nil {
		p.metrics.SetLineageChains(p.lineage.ChainCount())
	}
	return chain, ok
}

// AddLineageEdge records a caller-supplied relationship inside a trace
func (p *Pipeline) AddLineageEdge(traceID, from, to string, edgeType lineage.EdgeType) bool {
	return p.lineage.AddEdge(traceID, from, to, edgeType)
}

// BuildTemporalGraph builds the correlation graph for [start, end]
func (p *Pipeline) BuildTemporalGraph(start, end time.Time) *temporal.Graph {
	timer := monitoring.NewTimer(p.metrics, "build_graph")
	graph := p.temporal.BuildGraph(start, end)
	timer.Stop("success")
	return graph
}

// CalculateCorrelation correlates two metrics over [start, end]
func (p *Pipeline) CalculateCorrelation(metricA, metricB string, start, end time.Time) (*temporal.Correlation, bool) {
	timer := monitoring.NewTimer(p.metrics, "correlation")
	corr, ok := p.temporal.CalculateCorrelation(metricA, metricB, start, end)
	if ok {
		timer.Stop("success")
	} else {
		timer.Stop("insufficient_data")
	}
	return corr, ok
}

// GetSeries returns a snapshot of one metric series
func (p *Pipeline) GetSeries(name string) (*temporal.TimeSeries, bool) {
	return p.temporal.GetSeries(name)
}

// GetAllSeries returns snapshots of every series
func (p *Pipeline) GetAllSeries() []*temporal.TimeSeries {
	return p.temporal.GetAllSeries()
}

// GetCorrelations returns the correlation history
func (p *Pipeline) GetCorrelations() []temporal.Correlation {
	return p.temporal.GetCorrelations()
}

// MapLineageChain maps a chain's nodes and edges and records the assigned
// node ids in the held chain.
func (p *Pipeline) MapLineageChain(chain *lineage.Chain) mapping.MappingResult {
	mr := p.mapper.MapLineageChain(chain)
	p.recordMapping(&mr)
	if chain != nil {
		for _, e := range mr.Entities {
			p.lineage.SetMappedNodeID(chain.TraceID, e.SourceSpanID, e.NodeID.String())
		}
	}
	return mr
}

// MapTrace maps the held chain for traceID
func (p *Pipeline) MapTrace(traceID string) (*lineage.Chain, mapping.MappingResult, bool) {
	chain, ok := p.lineage.GetChain(traceID)
	if !ok {
		return nil, mapping.MappingResult{}, false
	}
	return chain, p.MapLineageChain(chain), true
}

// GetNodeID returns the graph node id assigned to a span
func (p *Pipeline) GetNodeID(spanID string) (string, bool) {
	nodeID, ok := p.mapper.GetNodeID(spanID)
	return nodeID.String(), ok
}

// EventToTelemetry converts a graph event into a span, or nil
func (p *Pipeline) EventToTelemetry(ev mapping.GraphEvent) telemetry.Event {
	return mapping.EventToTelemetry(ev)
}

// Stats returns the current pipeline counters
func (p *Pipeline) Stats() Stats {
	return p.stats.snapshot()
}

// ResetStats zeroes the pipeline counters
func (p *Pipeline) ResetStats() {
	p.stats.reset()
}

// Clear drops every chain, series, cached node id and buffered event.
// Statistics are left alone.
func (p *Pipeline) Clear() {
	p.lineage.Clear()
	p.temporal.Clear()
	p.mapper.ClearCache()

	p.bufMu.Lock()
	p.buffer = make([]telemetry.Event, 0, p.cfg.BufferSize)
	p.bufMu.Unlock()

	if p.metrics != nil {
		p.metrics.SetLineageChains(0)
		p.metrics.SetSeries(0)
		p.metrics.SetBufferDepth(0)
	}
	p.logger.Info("pipeline state cleared")
}

// Consume implements telemetry.Consumer
func (p *Pipeline) Consume(ctx context.Context, event telemetry.Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	result := p.Ingest(event)
	if !result.Success {
		return fmt.Errorf("%w: %s", ErrIngestFailed, strings.Join(result.Errors, "; "))
	}
	return nil
}

// ConsumeBatch implements telemetry.Consumer. Every event is ingested; the
// returned error joins the failures, if any.
func (p *Pipeline) ConsumeBatch(ctx context.Context, events []telemetry.Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	var errs []error
	for i, result := range p.IngestBatch(events) {
		if !result.Success {
			errs = append(errs, fmt.Errorf("event %d: %w: %s", i, ErrIngestFailed, strings.Join(result.Errors, "; ")))
		}
	}
	return errors.Join(errs...)
}

// ConsumptionStats implements telemetry.Consumer
func (p *Pipeline) ConsumptionStats() telemetry.ConsumptionStats {
	return p.stats.consumed.Snapshot()
}

var _ telemetry.Consumer = (*Pipeline)(nil)
