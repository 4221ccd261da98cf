// Package logging provides structured logging using uber/zap.
//
// Two modes:
//   - Production: JSON output for machine parsing
//   - Development: Colored console output for human readability
//
// Engine components take a plain *zap.Logger through WithLogger and default
// to a no-op logger, so libraries stay silent unless the embedding
// application wires one in. Component names a child logger for a stage.
//
// Common fields: trace_id, span_id, metric, telemetry_type, error.
//
// Example Usage:
//
//	logger, err := logging.New(logging.Config{Level: "info"})
//	if err != nil {
//		return err
//	}
//	defer logger.Close()
//	pipeline := ingestion.New(cfg).WithLogger(logger.Component("ingestion"))
//	logger.Info("Server starting", zap.String("port", "8000"))
package logging
