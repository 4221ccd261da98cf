// Package http exposes the ingestion pipeline over a JSON API.
//
// Ingest endpoints accept a single event object or an array, optionally
// gzip-encoded. Malformed payloads are rejected with 400 before anything
// reaches the pipeline.
//
// Routes:
//   - POST /v1/telemetry, POST /v1/telemetry/buffer, POST /v1/flush
//   - GET /v1/lineage, GET|DELETE /v1/lineage/:trace_id, POST /v1/lineage/:trace_id/map
//   - GET /v1/temporal/series[/:name], /v1/temporal/correlation[s], /v1/temporal/graph
//   - GET /v1/nodes/:span_id, POST /v1/graph-events
//   - GET /v1/stats, POST /v1/stats/reset, POST /v1/clear, GET /health
//
// Example Usage:
//
//	handlers := http.NewHandlers(pipeline).WithLogger(logger)
//	handlers.Register(router)
package http
