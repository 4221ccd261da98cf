// Package main is the entry point for the telemetry ingestion engine.
//
// The server accepts spans, metrics and logs over HTTP and WebSocket, builds
// per-trace lineage chains, keeps metric series for correlation, and maps
// spans onto graph entities.
//
// Configuration:
//   - Environment variables (12-factor)
//   - CLI flags (override env vars)
//   - An optional mapping rules file
//
// Usage:
//
//	# Production mode
//	./server -port 8000 -mapping rules.yaml
//
//	# Development mode (colored logs, debug level)
//	./server -dev
//
// Signals:
//   - SIGINT, SIGTERM: Graceful shutdown with a final buffer flush
package main
