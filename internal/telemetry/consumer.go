package telemetry

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// Consumer accepts telemetry events
type Consumer interface {
	Consume(ctx context.Context, event Event) error
	ConsumeBatch(ctx context.Context, events []Event) error
	ConsumptionStats() ConsumptionStats
}

// ConsumptionStats counts consumed events by type
type ConsumptionStats struct {
	SpansConsumed       uint64     `json:"spans_consumed"`
	MetricsConsumed     uint64     `json:"metrics_consumed"`
	LogsConsumed        uint64     `json:"logs_consumed"`
	Errors              uint64     `json:"errors"`
	LastConsumptionTime *time.Time `json:"last_consumption_time,omitempty"`
}

// Counters is a lock-free accumulator for ConsumptionStats
type Counters struct {
	spans   atomic.Uint64
	metrics atomic.Uint64
	logs    atomic.Uint64
	errors  atomic.Uint64
	last    atomic.Int64 // unix nanos, 0 = never
}

// Record counts one event of the given type
func (c *Counters) Record(t Type) {
	switch t {
	case TypeSpan:
		c.spans.Add(1)
	case TypeMetric:
		c.metrics.Add(1)
	case TypeLog:
		c.logs.Add(1)
	}
	c.last.Store(time.Now().UnixNano())
}

// RecordError counts one failed event
func (c *Counters) RecordError() {
	c.errors.Add(1)
}

// Snapshot returns the current counter values
func (c *Counters) Snapshot() ConsumptionStats {
	stats := ConsumptionStats{
		SpansConsumed:   c.spans.Load(),
		MetricsConsumed: c.metrics.Load(),
		LogsConsumed:    c.logs.Load(),
		Errors:          c.errors.Load(),
	}
	if ns := c.last.Load(); ns != 0 {
		t := time.Unix(0, ns)
		stats.LastConsumptionTime = &t
	}
	return stats
}

// Reset zeroes all counters
func (c *Counters) Reset() {
	c.spans.Store(0)
	c.metrics.Store(0)
	c.logs.Store(0)
	c.errors.Store(0)
	c.last.Store(0)
}

// NoopConsumer counts events and discards them
type NoopConsumer struct {
	counters Counters
}

// NewNoopConsumer creates a discarding consumer
func NewNoopConsumer() *NoopConsumer {
	return &NoopConsumer{}
}

func (n *NoopConsumer) Consume(_ context.Context, event Event) error {
	n.counters.Record(event.Type())
	return nil
}

func (n *NoopConsumer) ConsumeBatch(ctx context.Context, events []Event) error {
	for _, e := range events {
		_ = n.Consume(ctx, e)
	}
	return nil
}

func (n *NoopConsumer) ConsumptionStats() ConsumptionStats {
	return n.counters.Snapshot()
}

// RecordingConsumer keeps every consumed event in memory, for tests and
// inspection.
type RecordingConsumer struct {
	mu       sync.RWMutex
	events   []Event
	counters Counters
}

// NewRecordingConsumer creates an in-memory recording consumer
func NewRecordingConsumer() *RecordingConsumer {
	return &RecordingConsumer{}
}

func (r *RecordingConsumer) Consume(_ context.Context, event Event) error {
	r.mu.Lock()
	r.events = append(r.events, event)
	r.mu.Unlock()
	r.counters.Record(event.Type())
	return nil
}

func (r *RecordingConsumer) ConsumeBatch(ctx context.Context, events []Event) error {
	for _, e := range events {
		if err := r.Consume(ctx, e); err != nil {
			return err
		}
	}
	return nil
}

func (r *RecordingConsumer) ConsumptionStats() ConsumptionStats {
	return r.counters.Snapshot()
}

// Events returns a copy of the recorded events in arrival order
func (r *RecordingConsumer) Events() []Event {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// Spans returns the recorded span events
func (r *RecordingConsumer) Spans() []*Span {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var spans []*Span
	for _, e := range r.events {
		if s, ok := e.(*Span); ok {
			spans = append(spans, s)
		}
	}
	return spans
}

// Len returns the number of recorded events
func (r *RecordingConsumer) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.events)
}

// Reset drops recorded events and zeroes counters
func (r *RecordingConsumer) Reset() {
	r.mu.Lock()
	r.events = nil
	r.mu.Unlock()
	r.counters.Reset()
}
