package telemetry

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/bytedance/sonic"
)

// envelope carries the discriminator for decoding
type envelope struct {
	TelemetryType Type `json:"telemetry_type"`
}

type spanWire struct {
	TelemetryType Type `json:"telemetry_type"`
	*Span
}

type metricWire struct {
	TelemetryType Type `json:"telemetry_type"`
	*Metric
}

type logWire struct {
	TelemetryType Type `json:"telemetry_type"`
	*Log
}

// Marshal encodes an event with its telemetry_type discriminator.
func Marshal(event Event) ([]byte, error) {
	switch e := event.(type) {
	case *Span:
		return sonic.Marshal(spanWire{TelemetryType: TypeSpan, Span: e})
	case *Metric:
		return sonic.Marshal(metricWire{TelemetryType: TypeMetric, Metric: e})
	case *Log:
		return sonic.Marshal(logWire{TelemetryType: TypeLog, Log: e})
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnknownType, event)
	}
}

// MarshalBatch encodes events as a JSON array
func MarshalBatch(events []Event) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('[')
	for i, e := range events {
		if i > 0 {
			buf.WriteByte(',')
		}
		data, err := Marshal(e)
		if err != nil {
			return nil, err
		}
		buf.Write(data)
	}
	buf.WriteByte(']')
	return buf.Bytes(), nil
}

// Unmarshal decodes a single event object and validates it. Events missing
// required fields are rejected here, at the decode boundary.
func Unmarshal(data []byte) (Event, error) {
	var env envelope
	if err := sonic.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}

	var event Event
	switch env.TelemetryType {
	case TypeSpan:
		span := &Span{}
		if err := sonic.Unmarshal(data, span); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
		}
		if span.Status == "" {
			span.Status = StatusUnset
		}
		event = span
	case TypeMetric:
		metric := &Metric{}
		if err := sonic.Unmarshal(data, metric); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
		}
		if metric.MetricType == "" {
			metric.MetricType = MetricGauge
		}
		event = metric
	case TypeLog:
		log := &Log{}
		if err := sonic.Unmarshal(data, log); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
		}
		event = log
	case "":
		return nil, fmt.Errorf("%w: missing telemetry_type", ErrMalformedEvent)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, env.TelemetryType)
	}

	if err := event.Validate(); err != nil {
		return nil, err
	}
	return event, nil
}

// UnmarshalBatch decodes either a single event object or an array of events.
func UnmarshalBatch(data []byte) ([]Event, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("%w: empty payload", ErrMalformedEvent)
	}

	if trimmed[0] != '[' {
		event, err := Unmarshal(trimmed)
		if err != nil {
			return nil, err
		}
		return []Event{event}, nil
	}

	var raw []json.RawMessage
	if err := sonic.Unmarshal(trimmed, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}

	events := make([]Event, 0, len(raw))
	for i, r := range raw {
		event, err := Unmarshal(r)
		if err != nil {
			return nil, fmt.Errorf("event %d: %w", i, err)
		}
		events = append(events, event)
	}
	return events, nil
}
