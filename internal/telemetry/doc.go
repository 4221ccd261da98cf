// Package telemetry defines the events the ingestion engine consumes.
//
// An Event is one of three variants:
//   - Span: a timed operation within a trace (span_id, trace_id, parent)
//   - Metric: a single named observation at a timestamp
//   - Log: a structured log record, optionally linked to a span
//
// The set of variants is closed. Consumers switch on the concrete type:
//
//	switch e := event.(type) {
//	case *telemetry.Span:
//	case *telemetry.Metric:
//	case *telemetry.Log:
//	}
//
// Wire Format:
//
// Each event is a JSON object with a "telemetry_type" discriminator
// ("span", "metric" or "log") plus the variant fields in snake_case.
// Unmarshal rejects unknown discriminators and missing required fields.
//
// Consumers:
//   - Consumer: anything that accepts events and reports counters
//   - NoopConsumer: counts and discards
//   - RecordingConsumer: keeps events in memory for inspection
package telemetry
