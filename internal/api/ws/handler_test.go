package ws

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/LLM-Dev-Ops/memory-graph-sub000/internal/infrastructure/monitoring"
	"github.com/LLM-Dev-Ops/memory-graph-sub000/internal/ingestion"
	"github.com/LLM-Dev-Ops/memory-graph-sub000/internal/telemetry"
	"github.com/bytedance/sonic"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	pipeline *ingestion.Pipeline
	metrics  *monitoring.Metrics
	conn     *websocket.Conn
}

func setup(t *testing.T) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	pipeline := ingestion.New(ingestion.DefaultConfig())
	metrics := monitoring.NewMetrics(nil)
	router := gin.New()
	router.GET("/v1/stream", NewHandler(pipeline).WithMetrics(metrics).HandleConnection)

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/v1/stream"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	f := &fixture{pipeline: pipeline, metrics: metrics, conn: conn}
	welcome := f.read(t)
	require.Equal(t, TypeSystem, welcome["type"])
	return f
}

func (f *fixture) write(t *testing.T, data []byte) {
	t.Helper()
	require.NoError(t, f.conn.WriteMessage(websocket.TextMessage, data))
}

func (f *fixture) read(t *testing.T) map[string]interface{} {
	t.Helper()
	require.NoError(t, f.conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, data, err := f.conn.ReadMessage()
	require.NoError(t, err)

	var msg map[string]interface{}
	require.NoError(t, sonic.Unmarshal(data, &msg))
	return msg
}

func TestStreamIngestsEvents(t *testing.T) {
	f := setup(t)
	now := time.Now().UTC()

	data, err := telemetry.MarshalBatch([]telemetry.Event{
		&telemetry.Span{SpanID: "s1", TraceID: "t1", OperationName: "generate", StartTime: now, EndTime: now, Status: telemetry.StatusOk},
		&telemetry.Span{SpanID: "s2", TraceID: "t1", ParentSpanID: "s1", OperationName: "tool_call", StartTime: now, EndTime: now, Status: telemetry.StatusOk},
	})
	require.NoError(t, err)
	f.write(t, data)

	for i := 0; i < 2; i++ {
		msg := f.read(t)
		assert.Equal(t, TypeResult, msg["type"])
		result := msg["result"].(map[string]interface{})
		assert.Equal(t, true, result["success"])
	}

	chain, ok := f.pipeline.GetLineageChain("t1")
	require.True(t, ok)
	assert.Len(t, chain.Nodes, 2)
	assert.Equal(t, float64(2), testutil.ToFloat64(f.metrics.WSMessages.WithLabelValues("in", "span")))
	assert.Equal(t, float64(1), testutil.ToFloat64(f.metrics.WSConnections))
}

func TestStreamRejectsMalformed(t *testing.T) {
	f := setup(t)

	f.write(t, []byte(`{"telemetry_type":"span","trace_id":"t1"}`))
	msg := f.read(t)
	assert.Equal(t, TypeError, msg["type"])
	assert.Contains(t, msg["message"], "malformed")

	// the connection survives a bad frame
	f.write(t, []byte(`{"type":"ping"}`))
	assert.Equal(t, TypePong, f.read(t)["type"])
	assert.Equal(t, uint64(0), f.pipeline.Stats().SpansConsumed)
}

func TestStreamControlMessages(t *testing.T) {
	f := setup(t)

	f.pipeline.Buffer(&telemetry.Metric{Name: "cpu", Value: 1, Time: time.Now().UTC(), MetricType: telemetry.MetricGauge})

	f.write(t, []byte(`{"type":"flush"}`))
	msg := f.read(t)
	assert.Equal(t, TypeFlush, msg["type"])
	assert.Len(t, msg["results"], 1)

	f.write(t, []byte(`{"type":"stats"}`))
	msg = f.read(t)
	assert.Equal(t, TypeStats, msg["type"])
	stats := msg["stats"].(map[string]interface{})
	assert.Equal(t, float64(1), stats["metrics_consumed"])

	f.write(t, []byte(`{"type":"subscribe"}`))
	msg = f.read(t)
	assert.Equal(t, TypeError, msg["type"])
	assert.Equal(t, float64(1), testutil.ToFloat64(f.metrics.WSMessages.WithLabelValues("in", "unknown")))
}

func TestStreamRejectsBinaryFrames(t *testing.T) {
	f := setup(t)

	require.NoError(t, f.conn.WriteMessage(websocket.BinaryMessage, []byte{0x01}))
	assert.Equal(t, TypeError, f.read(t)["type"])
}
