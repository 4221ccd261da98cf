package tracing

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/LLM-Dev-Ops/memory-graph-sub000/internal/shared/id"
	"github.com/LLM-Dev-Ops/memory-graph-sub000/internal/telemetry"
	"go.uber.org/zap"
)

// TraceID represents a unique trace identifier
type TraceID string

// SpanID represents a unique span identifier
type SpanID string

// Span represents a single operation in a trace
type Span struct {
	TraceID    TraceID
	SpanID     SpanID
	ParentID   SpanID
	Name       string
	Service    string
	StartTime  time.Time
	EndTime    time.Time
	Duration   time.Duration
	Tags       map[string]string
	Logs       []LogEntry
	Error      error
	StatusCode int
}

// LogEntry represents a log within a span
type LogEntry struct {
	Timestamp time.Time
	Level     telemetry.LogLevel
	Message   string
	Fields    map[string]interface{}
}

// Tracer records spans for the service's own operations and hands the
// finished spans, converted to telemetry events, to a consumer.
type Tracer struct {
	service string
	logger  *zap.Logger
	sink    telemetry.Consumer
	spans   chan *Span

	mu     sync.RWMutex
	closed bool
	done   chan struct{}
}

// New creates a new tracer instance. A nil sink only logs spans.
func New(service string, logger *zap.Logger, sink telemetry.Consumer) *Tracer {
	if logger == nil {
		logger = zap.NewNop()
	}
	t := &Tracer{
		service: service,
		logger:  logger,
		sink:    sink,
		spans:   make(chan *Span, 1000),
		done:    make(chan struct{}),
	}

	// Start span collector
	go t.collectSpans()

	return t
}

// StartSpan creates a new span
func (t *Tracer) StartSpan(ctx context.Context, name string) (*Span, context.Context) {
	traceID, _ := ctx.Value(traceIDKey).(TraceID)
	if traceID == "" {
		traceID = TraceID(id.NewRequestID())
	}

	parentID, _ := ctx.Value(spanIDKey).(SpanID)

	span := &Span{
		TraceID:   traceID,
		SpanID:    SpanID(id.Default().GenerateString()),
		ParentID:  parentID,
		Name:      name,
		Service:   t.service,
		StartTime: time.Now(),
		Tags:      make(map[string]string),
		Logs:      []LogEntry{},
	}

	newCtx := context.WithValue(ctx, traceIDKey, traceID)
	newCtx = context.WithValue(newCtx, spanIDKey, span.SpanID)

	return span, newCtx
}

// Finish marks the span as complete
func (s *Span) Finish() {
	s.EndTime = time.Now()
	s.Duration = s.EndTime.Sub(s.StartTime)
}

// SetTag adds a tag to the span
func (s *Span) SetTag(key, value string) {
	s.Tags[key] = value
}

// SetError records an error in the span
func (s *Span) SetError(err error) {
	s.Error = err
	s.StatusCode = 500
}

// SetStatus sets the HTTP status code
func (s *Span) SetStatus(code int) {
	s.StatusCode = code
}

// Log adds an info log entry to the span
func (s *Span) Log(message string, fields map[string]interface{}) {
	s.Logs = append(s.Logs, LogEntry{
		Timestamp: time.Now(),
		Level:     telemetry.LevelInfo,
		Message:   message,
		Fields:    fields,
	})
}

// ToTelemetry converts the span and its log entries into telemetry events
func (s *Span) ToTelemetry() []telemetry.Event {
	attrs := make(map[string]string, len(s.Tags)+2)
	for k, v := range s.Tags {
		attrs[k] = v
	}
	attrs["service.name"] = s.Service

	status := telemetry.StatusOk
	if s.Error != nil || s.StatusCode >= 500 {
		status = telemetry.StatusError
	}
	if s.Error != nil {
		attrs["error"] = s.Error.Error()
	}

	events := make([]telemetry.Event, 0, 1+len(s.Logs))
	events = append(events, &telemetry.Span{
		SpanID:        string(s.SpanID),
		TraceID:       string(s.TraceID),
		ParentSpanID:  string(s.ParentID),
		OperationName: s.Name,
		StartTime:     s.StartTime,
		EndTime:       s.EndTime,
		Attributes:    attrs,
		Status:        status,
	})

	for _, entry := range s.Logs {
		fields := make(map[string]string, len(entry.Fields))
		for k, v := range entry.Fields {
			fields[k] = fmt.Sprint(v)
		}
		events = append(events, &telemetry.Log{
			Level:   entry.Level,
			Message: entry.Message,
			Time:    entry.Timestamp,
			Fields:  fields,
			TraceContext: &telemetry.TraceContext{
				TraceID: string(s.TraceID),
				SpanID:  string(s.SpanID),
			},
		})
	}
	return events
}

// collectSpans processes completed spans
func (t *Tracer) collectSpans() {
	defer close(t.done)
	for span := range t.spans {
		t.processSpan(span)
	}
}

// processSpan logs and exports span data
func (t *Tracer) processSpan(span *Span) {
	fields := []zap.Field{
		zap.String("trace_id", string(span.TraceID)),
		zap.String("span_id", string(span.SpanID)),
		zap.String("operation", span.Name),
		zap.Duration("duration", span.Duration),
		zap.String("service", span.Service),
	}

	if span.ParentID != "" {
		fields = append(fields, zap.String("parent_id", string(span.ParentID)))
	}

	if span.Error != nil {
		fields = append(fields, zap.Error(span.Error))
		t.logger.Error("span completed with error", fields...)
	} else {
		t.logger.Debug("span completed", fields...)
	}

	if t.sink == nil {
		return
	}
	if err := t.sink.ConsumeBatch(context.Background(), span.ToTelemetry()); err != nil {
		t.logger.Warn("failed to export span", append(fields, zap.NamedError("export_error", err))...)
	}
}

// Submit sends a span to the collector. Spans submitted after Close are dropped.
func (t *Tracer) Submit(span *Span) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.closed {
		return
	}

	select {
	case t.spans <- span:
	default:
		t.logger.Warn("span buffer full, dropping span",
			zap.String("trace_id", string(span.TraceID)),
			zap.String("span_id", string(span.SpanID)),
		)
	}
}

// Close stops accepting spans and waits until queued spans are exported
func (t *Tracer) Close() {
	t.mu.Lock()
	if !t.closed {
		t.closed = true
		close(t.spans)
	}
	t.mu.Unlock()
	<-t.done
}

// ExtractTraceContext extracts trace context from headers
func ExtractTraceContext(headers map[string]string) (TraceID, SpanID) {
	traceID := TraceID(headers["X-Trace-ID"])
	spanID := SpanID(headers["X-Span-ID"])
	return traceID, spanID
}

// InjectTraceContext injects trace context into headers
func InjectTraceContext(ctx context.Context, headers map[string]string) {
	if traceID, ok := ctx.Value(traceIDKey).(TraceID); ok {
		headers["X-Trace-ID"] = string(traceID)
	}
	if spanID, ok := ctx.Value(spanIDKey).(SpanID); ok {
		headers["X-Span-ID"] = string(spanID)
	}
}

// Context keys for trace propagation
type contextKey string

const (
	traceIDKey contextKey = "trace_id"
	spanIDKey  contextKey = "span_id"
)

// GetTraceID retrieves the trace ID from context
func GetTraceID(ctx context.Context) TraceID {
	if traceID, ok := ctx.Value(traceIDKey).(TraceID); ok {
		return traceID
	}
	return ""
}

// GetSpanID retrieves the span ID from context
func GetSpanID(ctx context.Context) SpanID {
	if spanID, ok := ctx.Value(spanIDKey).(SpanID); ok {
		return spanID
	}
	return ""
}
