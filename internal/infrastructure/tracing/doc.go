/*
Package tracing traces the server's own requests.

# Overview

The engine ingests distributed traces, so it can also trace itself: every
finished span is converted to a telemetry.Span (and its log entries to
telemetry.Log events carrying the trace context) and handed to a
telemetry.Consumer. Pointing that consumer at the ingestion pipeline makes
the server's request lineage queryable through its own API.

# Features

- Trace context propagation via HTTP headers and gRPC metadata
- Span creation with parent-child relationships
- HTTP middleware and gRPC unary interceptor
- Buffered, asynchronous export (1000 spans); Close drains the buffer

# Usage

	tracer := tracing.New("telemetry-engine", logger, pipeline)
	defer tracer.Close()

	router.Use(tracing.HTTPMiddleware(tracer, "/health", "/metrics"))

	span, ctx := tracer.StartSpan(ctx, "operation")
	span.SetTag("key", "value")
	span.Finish()
	tracer.Submit(span)

# Trace Format

- X-Trace-ID: Unique identifier for entire request flow
- X-Span-ID: Identifier for current operation
*/
package tracing
