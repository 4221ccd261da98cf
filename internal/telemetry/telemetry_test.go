package telemetry

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func TestSpanDurationClamped(t *testing.T) {
	span := &Span{
		SpanID:        "s1",
		TraceID:       "t1",
		OperationName: "op",
		StartTime:     t0,
		EndTime:       t0.Add(-5 * time.Millisecond),
	}

	assert.Negative(t, span.Duration())
	assert.Equal(t, int64(0), span.DurationMs())

	span.EndTime = t0.Add(250 * time.Millisecond)
	assert.Equal(t, int64(250), span.DurationMs())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		event   Event
		wantErr bool
	}{
		{"valid span", &Span{SpanID: "s", TraceID: "t", OperationName: "op", StartTime: t0}, false},
		{"span without id", &Span{TraceID: "t", OperationName: "op", StartTime: t0}, true},
		{"span without trace", &Span{SpanID: "s", OperationName: "op", StartTime: t0}, true},
		{"span own parent", &Span{SpanID: "s", ParentSpanID: "s", TraceID: "t", OperationName: "op", StartTime: t0}, true},
		{"valid metric", &Metric{Name: "cpu", Time: t0}, false},
		{"metric without name", &Metric{Time: t0}, true},
		{"valid log", &Log{Level: LevelInfo, Time: t0}, false},
		{"log without level", &Log{Time: t0}, true},
		{"span unknown status", &Span{SpanID: "s", TraceID: "t", OperationName: "op", StartTime: t0, Status: "cancelled"}, true},
		{"metric unknown type", &Metric{Name: "cpu", Time: t0, MetricType: "rate"}, true},
		{"log unknown level", &Log{Level: "trace", Time: t0}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.event.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrMalformedEvent)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestMarshalIncludesDiscriminator(t *testing.T) {
	data, err := Marshal(&Metric{Name: "latency", Value: 1.5, MetricType: MetricGauge, Time: t0})
	require.NoError(t, err)

	var fields map[string]interface{}
	require.NoError(t, sonic.Unmarshal(data, &fields))
	assert.Equal(t, "metric", fields["telemetry_type"])
	assert.Equal(t, "latency", fields["name"])
	assert.Equal(t, "gauge", fields["metric_type"])
}

func TestUnmarshalSpan(t *testing.T) {
	payload := `{
		"telemetry_type": "span",
		"span_id": "s2",
		"trace_id": "t1",
		"parent_span_id": "s1",
		"operation_name": "tool.call",
		"start_time": "2025-03-01T12:00:00.010Z",
		"end_time": "2025-03-01T12:00:00.060Z",
		"attributes": {"model": "gpt"}
	}`

	event, err := Unmarshal([]byte(payload))
	require.NoError(t, err)

	span, ok := event.(*Span)
	require.True(t, ok, "expected *Span, got %T", event)
	assert.Equal(t, "s1", span.ParentSpanID)
	assert.Equal(t, StatusUnset, span.Status)
	assert.Equal(t, int64(50), span.DurationMs())
	assert.Equal(t, "gpt", span.Attributes["model"])
}

func TestUnmarshalLogWithTraceContext(t *testing.T) {
	payload := `{"telemetry_type":"log","level":"warn","message":"slow","timestamp":"2025-03-01T12:00:00Z",
		"trace_context":{"trace_id":"t1","span_id":"s1","flags":1}}`

	event, err := Unmarshal([]byte(payload))
	require.NoError(t, err)

	log := event.(*Log)
	require.NotNil(t, log.TraceContext)
	assert.Equal(t, "t1", log.TraceContext.TraceID)
	assert.Equal(t, uint8(1), log.TraceContext.Flags)
}

func TestUnmarshalRejectsBadInput(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		target  error
	}{
		{"not json", `{{`, ErrMalformedEvent},
		{"missing discriminator", `{"name":"cpu"}`, ErrMalformedEvent},
		{"unknown discriminator", `{"telemetry_type":"profile"}`, ErrUnknownType},
		{"metric missing name", `{"telemetry_type":"metric","value":1,"timestamp":"2025-03-01T12:00:00Z"}`, ErrMalformedEvent},
		{"span missing trace", `{"telemetry_type":"span","span_id":"s","operation_name":"x","start_time":"2025-03-01T12:00:00Z"}`, ErrMalformedEvent},
		{"span unknown status", `{"telemetry_type":"span","span_id":"s","trace_id":"t","operation_name":"x","start_time":"2025-03-01T12:00:00Z","status":"bogus"}`, ErrMalformedEvent},
		{"metric unknown type", `{"telemetry_type":"metric","name":"cpu","value":1,"metric_type":"bogus","timestamp":"2025-03-01T12:00:00Z"}`, ErrMalformedEvent},
		{"log unknown level", `{"telemetry_type":"log","level":"trace","message":"m","timestamp":"2025-03-01T12:00:00Z"}`, ErrMalformedEvent},
		{"log uppercase level", `{"telemetry_type":"log","level":"INFO","message":"m","timestamp":"2025-03-01T12:00:00Z"}`, ErrMalformedEvent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Unmarshal([]byte(tt.payload))
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.target), "got %v", err)
		})
	}
}

func TestBatchCodec(t *testing.T) {
	events := []Event{
		&Span{SpanID: "s1", TraceID: "t1", OperationName: "llm.generate", StartTime: t0, EndTime: t0.Add(time.Second), Status: StatusOk},
		&Metric{Name: "tokens", Value: 42, MetricType: MetricCounter, Time: t0},
		&Log{Level: LevelInfo, Message: "hello", Time: t0},
	}

	data, err := MarshalBatch(events)
	require.NoError(t, err)

	decoded, err := UnmarshalBatch(data)
	require.NoError(t, err)
	require.Len(t, decoded, 3)

	assert.Equal(t, TypeSpan, decoded[0].Type())
	assert.Equal(t, TypeMetric, decoded[1].Type())
	assert.Equal(t, TypeLog, decoded[2].Type())
	assert.True(t, decoded[0].Timestamp().Equal(t0))
	assert.Equal(t, 42.0, decoded[1].(*Metric).Value)
}

func TestUnmarshalBatchSingleObject(t *testing.T) {
	events, err := UnmarshalBatch([]byte(`  {"telemetry_type":"metric","name":"a","value":1,"timestamp":"2025-03-01T12:00:00Z"}`))
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, MetricGauge, events[0].(*Metric).MetricType)
}

func TestUnmarshalBatchReportsIndex(t *testing.T) {
	payload := `[{"telemetry_type":"metric","name":"a","timestamp":"2025-03-01T12:00:00Z"},{"telemetry_type":"metric"}]`

	_, err := UnmarshalBatch([]byte(payload))
	require.Error(t, err)
	assert.True(t, strings.HasPrefix(err.Error(), "event 1:"))
	assert.ErrorIs(t, err, ErrMalformedEvent)
}

func TestRecordingConsumer(t *testing.T) {
	ctx := context.Background()
	rec := NewRecordingConsumer()

	require.NoError(t, rec.ConsumeBatch(ctx, []Event{
		&Span{SpanID: "s1", TraceID: "t1"},
		&Metric{Name: "m"},
		&Metric{Name: "m"},
		&Log{Level: LevelDebug},
	}))

	stats := rec.ConsumptionStats()
	assert.Equal(t, uint64(1), stats.SpansConsumed)
	assert.Equal(t, uint64(2), stats.MetricsConsumed)
	assert.Equal(t, uint64(1), stats.LogsConsumed)
	assert.NotNil(t, stats.LastConsumptionTime)
	assert.Len(t, rec.Spans(), 1)
	assert.Equal(t, 4, rec.Len())

	rec.Reset()
	assert.Equal(t, 0, rec.Len())
	assert.Nil(t, rec.ConsumptionStats().LastConsumptionTime)
}

func TestNoopConsumerConcurrent(t *testing.T) {
	ctx := context.Background()
	noop := NewNoopConsumer()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				_ = noop.Consume(ctx, &Metric{Name: "m"})
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, uint64(800), noop.ConsumptionStats().MetricsConsumed)
}
