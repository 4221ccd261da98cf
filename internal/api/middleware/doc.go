// Package middleware provides the HTTP middleware stack for the telemetry API.
//
// Middleware stack includes:
//   - CORS: Cross-origin resource sharing with configurable origins
//   - RateLimit: Per-IP token bucket rate limiting
//   - Recovery: Panic recovery logged through zap
//   - RequestID: Tags each request with a req_* ULID, honoring a valid inbound one
//   - RequestLogger: One structured line per request
//
// Rate limiting keeps one token bucket per client IP. Idle clients are
// swept after IdleTTL.
//
// Example Usage:
//
//	router.Use(middleware.Recovery(logger))
//	router.Use(middleware.RequestID())
//	router.Use(middleware.CORS(middleware.DefaultCORSConfig()))
//	router.Use(middleware.RateLimit(middleware.DefaultRateLimitConfig()))
package middleware
