package middleware

import (
	"github.com/LLM-Dev-Ops/memory-graph-sub000/internal/shared/id"
	"github.com/gin-gonic/gin"
)

const (
	// RequestIDHeader carries the request id in and out
	RequestIDHeader = "X-Request-ID"
	requestIDKey    = "request_id"
)

// RequestID tags each request with an id. An inbound X-Request-ID is kept
// only if it parses as a ULID; anything else is replaced with a fresh req_*
// id so clients cannot inject arbitrary strings into logs.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		rid := c.GetHeader(RequestIDHeader)
		if !id.IsValid(rid) {
			rid = id.NewRequestID().String()
		}
		c.Set(requestIDKey, rid)
		c.Header(RequestIDHeader, rid)
		c.Next()
	}
}

// GetRequestID returns the id set by RequestID, or "" if it did not run.
func GetRequestID(c *gin.Context) string {
	return c.GetString(requestIDKey)
}
