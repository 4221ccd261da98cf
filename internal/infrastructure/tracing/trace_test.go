package tracing

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/LLM-Dev-Ops/memory-graph-sub000/internal/telemetry"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
)

func TestStartSpanPropagatesContext(t *testing.T) {
	tracer := New("svc", nil, nil)
	defer tracer.Close()

	parent, ctx := tracer.StartSpan(context.Background(), "parent")
	child, ctx := tracer.StartSpan(ctx, "child")

	assert.Equal(t, parent.TraceID, child.TraceID)
	assert.Equal(t, parent.SpanID, child.ParentID)
	assert.Empty(t, parent.ParentID)
	assert.Equal(t, child.SpanID, GetSpanID(ctx))
	assert.Equal(t, parent.TraceID, GetTraceID(ctx))

	headers := map[string]string{}
	InjectTraceContext(ctx, headers)
	traceID, spanID := ExtractTraceContext(headers)
	assert.Equal(t, child.TraceID, traceID)
	assert.Equal(t, child.SpanID, spanID)
}

func TestToTelemetry(t *testing.T) {
	tracer := New("svc", nil, nil)
	defer tracer.Close()

	span, _ := tracer.StartSpan(context.Background(), "GET /v1/stats")
	span.SetTag("http.method", "GET")
	span.Log("cache miss", map[string]interface{}{"attempt": 2})
	span.SetError(errors.New("boom"))
	span.Finish()

	events := span.ToTelemetry()
	require.Len(t, events, 2)

	s, ok := events[0].(*telemetry.Span)
	require.True(t, ok)
	assert.NoError(t, s.Validate())
	assert.Equal(t, telemetry.StatusError, s.Status)
	assert.Equal(t, "svc", s.Attributes["service.name"])
	assert.Equal(t, "boom", s.Attributes["error"])

	l, ok := events[1].(*telemetry.Log)
	require.True(t, ok)
	assert.NoError(t, l.Validate())
	assert.Equal(t, "2", l.Fields["attempt"])
	assert.Equal(t, string(span.SpanID), l.TraceContext.SpanID)
}

func TestTracerExportsToConsumer(t *testing.T) {
	sink := telemetry.NewRecordingConsumer()
	tracer := New("svc", nil, sink)

	for i := 0; i < 3; i++ {
		span, _ := tracer.StartSpan(context.Background(), "op")
		span.Finish()
		tracer.Submit(span)
	}
	tracer.Close()

	assert.Len(t, sink.Spans(), 3)

	// Submitting after Close is a no-op
	late, _ := tracer.StartSpan(context.Background(), "late")
	assert.NotPanics(t, func() { tracer.Submit(late) })
	tracer.Close()
}

func TestHTTPMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	sink := telemetry.NewRecordingConsumer()
	tracer := New("svc", nil, sink)

	router := gin.New()
	router.Use(HTTPMiddleware(tracer, "/health"))
	router.GET("/v1/lineage/:trace_id", func(c *gin.Context) {
		assert.NotEmpty(t, GetTraceID(c.Request.Context()))
		c.Status(http.StatusOK)
	})
	router.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/v1/lineage/abc", nil)
	req.Header.Set("X-Trace-ID", "remote-trace")
	req.Header.Set("X-Span-ID", "remote-span")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, "remote-trace", w.Header().Get("X-Trace-ID"))
	assert.NotEmpty(t, w.Header().Get("X-Span-ID"))

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Empty(t, w.Header().Get("X-Trace-ID"))

	tracer.Close()

	spans := sink.Spans()
	require.Len(t, spans, 1)
	assert.Equal(t, "GET /v1/lineage/:trace_id", spans[0].OperationName)
	assert.Equal(t, "remote-trace", spans[0].TraceID)
	assert.Equal(t, "remote-span", spans[0].ParentSpanID)
	assert.Equal(t, "200", spans[0].Attributes["http.status_code"])
}

func TestGRPCUnaryInterceptor(t *testing.T) {
	sink := telemetry.NewRecordingConsumer()
	tracer := New("svc", nil, sink)
	interceptor := GRPCUnaryInterceptor(tracer)

	ctx := metadata.NewIncomingContext(context.Background(), metadata.Pairs("x-trace-id", "t-1", "x-span-id", "s-1"))
	info := &grpc.UnaryServerInfo{FullMethod: "/telemetry.Ingest/Push"}

	_, err := interceptor(ctx, "req", info, func(ctx context.Context, req interface{}) (interface{}, error) {
		assert.Equal(t, TraceID("t-1"), GetTraceID(ctx))
		return "ok", nil
	})
	require.NoError(t, err)

	_, err = interceptor(context.Background(), "req", info, func(ctx context.Context, req interface{}) (interface{}, error) {
		return nil, errors.New("unavailable")
	})
	assert.Error(t, err)

	tracer.Close()

	spans := sink.Spans()
	require.Len(t, spans, 2)
	assert.Equal(t, "t-1", spans[0].TraceID)
	assert.Equal(t, "s-1", spans[0].ParentSpanID)
	assert.Equal(t, telemetry.StatusOk, spans[0].Status)
	assert.Equal(t, telemetry.StatusError, spans[1].Status)
}
