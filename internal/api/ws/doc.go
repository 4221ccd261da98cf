// Package ws streams telemetry into the ingestion pipeline over WebSocket.
//
// Each text frame carries one event object or an array of events, encoded
// the same way as the HTTP ingest body. The server answers every event with
// its processing result.
//
// Message Types (Client → Server):
//   - any telemetry event (has telemetry_type)
//   - ping: Keep-alive ping
//   - flush: Drain the pipeline buffer
//   - stats: Request pipeline counters
//
// Message Types (Server → Client):
//   - system: Connection established
//   - result: Processing result for one event
//   - pong, flushed, stats: Control replies
//   - error: Malformed frame or unknown message type
//
// Example Usage:
//
//	handler := ws.NewHandler(pipeline).WithMetrics(metrics)
//	router.GET("/v1/stream", handler.HandleConnection)
package ws
