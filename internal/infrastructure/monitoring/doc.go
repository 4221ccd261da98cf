/*
Package monitoring provides Prometheus metrics for the ingestion engine.

# Overview

Metrics are registered on a caller-supplied prometheus.Registerer rather
than the global default, so a process can run several pipelines (and tests
can run in parallel) without duplicate registration panics.

# Features

- Ingestion counters by event type and error kind
- Lineage chain, series and buffer gauges
- Correlation and graph build latency
- HTTP request metrics (latency, throughput, size)
- WebSocket connection metrics

# Usage

	reg := prometheus.NewRegistry()
	metrics := monitoring.NewMetrics(reg)

	router.Use(monitoring.Middleware(metrics))

	timer := monitoring.NewTimer(metrics, "build_graph")
	// ... perform operation ...
	timer.Stop("success")

# Metrics Endpoint

	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))
*/
package monitoring
