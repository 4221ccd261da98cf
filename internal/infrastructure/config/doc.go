// Package config provides 12-factor configuration management for the
// telemetry engine.
//
// Configuration is loaded from environment variables with sensible defaults.
// CLI flags can override environment variables for development flexibility.
// Mapping rules are long lists and live in an optional YAML, TOML or JSON
// file named by MAPPING_FILE.
//
// Configuration Sections:
//   - Server: HTTP server settings (port, host)
//   - Ingestion: pipeline stages, buffering, retention, correlation
//   - Mapping: entity mapping switches and rule file
//   - Logging: Log level and output format
//   - RateLimit: Per-IP rate limiting configuration
//   - Tracing: tracing of the server's own requests
//
// Example Usage:
//
//	cfg := config.LoadOrDefault()
//	pipelineCfg, err := cfg.PipelineConfig()
//
// Environment Variables:
//   - PORT, HOST
//   - INGEST_ENABLE_LINEAGE, INGEST_ENABLE_TEMPORAL, INGEST_ENABLE_MAPPING
//   - INGEST_BUFFER_SIZE, INGEST_FLUSH_INTERVAL_MS, INGEST_RETENTION_HOURS
//   - INGEST_CORRELATION_THRESHOLD, INGEST_MAX_LAG_STEPS
//   - MAPPING_FILE, MAPPING_TRACE_TO_SESSION, MAPPING_CREATE_EDGES, MAPPING_DETERMINISTIC_IDS
//   - LOG_LEVEL, LOG_DEV
//   - RATE_LIMIT_RPS, RATE_LIMIT_BURST, RATE_LIMIT_ENABLED
//   - SELF_TRACE, TRACE_SERVICE_NAME
package config
