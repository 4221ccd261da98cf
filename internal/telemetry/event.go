package telemetry

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrMalformedEvent is returned when an event is missing required fields.
	ErrMalformedEvent = errors.New("malformed telemetry event")
	// ErrUnknownType is returned for an unrecognized telemetry_type discriminator.
	ErrUnknownType = errors.New("unknown telemetry type")
)

// Type is the wire discriminator of an event
type Type string

const (
	TypeSpan   Type = "span"
	TypeMetric Type = "metric"
	TypeLog    Type = "log"
)

// Event is one observed occurrence. The set of implementations is closed:
// *Span, *Metric and *Log.
type Event interface {
	Type() Type
	Timestamp() time.Time
	Validate() error
	isEvent()
}

// SpanStatus is the completion status of a span
type SpanStatus string

const (
	StatusOk    SpanStatus = "ok"
	StatusError SpanStatus = "error"
	StatusUnset SpanStatus = "unset"
)

// MetricType classifies a metric observation
type MetricType string

const (
	MetricCounter   MetricType = "counter"
	MetricGauge     MetricType = "gauge"
	MetricHistogram MetricType = "histogram"
	MetricSummary   MetricType = "summary"
)

// LogLevel is the severity of a log record
type LogLevel string

const (
	LevelDebug LogLevel = "debug"
	LevelInfo  LogLevel = "info"
	LevelWarn  LogLevel = "warn"
	LevelError LogLevel = "error"
	LevelFatal LogLevel = "fatal"
)

// Valid reports whether s is one of the known statuses. The empty status is
// accepted and read as unset.
func (s SpanStatus) Valid() bool {
	switch s {
	case "", StatusOk, StatusError, StatusUnset:
		return true
	}
	return false
}

// Valid reports whether t is a known metric type. Empty decodes as gauge.
func (t MetricType) Valid() bool {
	switch t {
	case "", MetricCounter, MetricGauge, MetricHistogram, MetricSummary:
		return true
	}
	return false
}

// Valid reports whether l is a known log level.
func (l LogLevel) Valid() bool {
	switch l {
	case LevelDebug, LevelInfo, LevelWarn, LevelError, LevelFatal:
		return true
	}
	return false
}

// Span is one timed operation within a trace
type Span struct {
	SpanID        string            `json:"span_id"`
	TraceID       string            `json:"trace_id"`
	ParentSpanID  string            `json:"parent_span_id,omitempty"` // empty = root
	OperationName string            `json:"operation_name"`
	StartTime     time.Time         `json:"start_time"`
	EndTime       time.Time         `json:"end_time"`
	Attributes    map[string]string `json:"attributes,omitempty"`
	Status        SpanStatus        `json:"status"`
}

// Metric is a single metric observation
type Metric struct {
	Name       string            `json:"name"`
	Value      float64           `json:"value"`
	MetricType MetricType        `json:"metric_type"`
	Time       time.Time         `json:"timestamp"`
	Labels     map[string]string `json:"labels,omitempty"`
}

// TraceContext links a log record to a span
type TraceContext struct {
	TraceID string `json:"trace_id"`
	SpanID  string `json:"span_id"`
	Flags   uint8  `json:"flags"`
}

// Log is a structured log record
type Log struct {
	Level        LogLevel          `json:"level"`
	Message      string            `json:"message"`
	Time         time.Time         `json:"timestamp"`
	Fields       map[string]string `json:"fields,omitempty"`
	TraceContext *TraceContext     `json:"trace_context,omitempty"`
}

func (*Span) Type() Type   { return TypeSpan }
func (*Metric) Type() Type { return TypeMetric }
func (*Log) Type() Type    { return TypeLog }

func (s *Span) Timestamp() time.Time   { return s.StartTime }
func (m *Metric) Timestamp() time.Time { return m.Time }
func (l *Log) Timestamp() time.Time    { return l.Time }

func (*Span) isEvent()   {}
func (*Metric) isEvent() {}
func (*Log) isEvent()    {}

// HasParent reports whether the span references a parent span
func (s *Span) HasParent() bool {
	return s.ParentSpanID != ""
}

// Duration returns end - start. It may be negative for bad input; callers
// clamp it.
func (s *Span) Duration() time.Duration {
	return s.EndTime.Sub(s.StartTime)
}

// DurationMs returns the span duration in milliseconds, clamped to >= 0.
func (s *Span) DurationMs() int64 {
	d := s.Duration()
	if d < 0 {
		return 0
	}
	return d.Milliseconds()
}

// Validate checks the fields required to place a span in a lineage chain.
func (s *Span) Validate() error {
	switch {
	case s.SpanID == "":
		return fmt.Errorf("%w: span missing span_id", ErrMalformedEvent)
	case s.TraceID == "":
		return fmt.Errorf("%w: span %s missing trace_id", ErrMalformedEvent, s.SpanID)
	case s.OperationName == "":
		return fmt.Errorf("%w: span %s missing operation_name", ErrMalformedEvent, s.SpanID)
	case s.StartTime.IsZero():
		return fmt.Errorf("%w: span %s missing start_time", ErrMalformedEvent, s.SpanID)
	case s.ParentSpanID == s.SpanID:
		return fmt.Errorf("%w: span %s is its own parent", ErrMalformedEvent, s.SpanID)
	case !s.Status.Valid():
		return fmt.Errorf("%w: span %s has unknown status %q", ErrMalformedEvent, s.SpanID, s.Status)
	}
	return nil
}

// Validate checks the fields required to place a metric in a series.
func (m *Metric) Validate() error {
	switch {
	case m.Name == "":
		return fmt.Errorf("%w: metric missing name", ErrMalformedEvent)
	case m.Time.IsZero():
		return fmt.Errorf("%w: metric %s missing timestamp", ErrMalformedEvent, m.Name)
	case !m.MetricType.Valid():
		return fmt.Errorf("%w: metric %s has unknown metric_type %q", ErrMalformedEvent, m.Name, m.MetricType)
	}
	return nil
}

// Validate checks the fields required for a log record.
func (l *Log) Validate() error {
	if l.Time.IsZero() {
		return fmt.Errorf("%w: log missing timestamp", ErrMalformedEvent)
	}
	if l.Level == "" {
		return fmt.Errorf("%w: log missing level", ErrMalformedEvent)
	}
	if !l.Level.Valid() {
		return fmt.Errorf("%w: log has unknown level %q", ErrMalformedEvent, l.Level)
	}
	return nil
}

// Clone returns a deep copy of the span
func (s *Span) Clone() *Span {
	c := *s
	c.Attributes = cloneMap(s.Attributes)
	return &c
}

func cloneMap(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
