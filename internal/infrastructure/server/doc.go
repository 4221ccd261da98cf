// Package server assembles the telemetry engine's network surface.
//
// This package orchestrates all components:
//   - HTTP routing with Gin framework
//   - Middleware stack (recovery, request logging, tracing, metrics, CORS, rate limiting)
//   - WebSocket stream ingest
//   - Prometheus exposition on /metrics
//   - Optional gRPC health service
//   - The pipeline's periodic flush loop
//
// Server Lifecycle:
//  1. Load configuration from environment/flags
//  2. Initialize logger (production or development)
//  3. Build the pipeline from the ingestion and mapping settings
//  4. Setup HTTP routes and middleware
//  5. Serve until the context is cancelled
//  6. Drain listeners, then flush the buffer one last time
//
// Example Usage:
//
//	cfg := config.LoadOrDefault()
//	srv, err := server.NewServer(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer srv.Close()
//	if err := srv.Run(ctx); err != nil {
//	    log.Fatal(err)
//	}
package server
