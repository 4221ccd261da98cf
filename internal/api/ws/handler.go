package ws

import (
	"bytes"
	"net/http"
	"sync"
	"time"

	"github.com/LLM-Dev-Ops/memory-graph-sub000/internal/infrastructure/monitoring"
	"github.com/LLM-Dev-Ops/memory-graph-sub000/internal/ingestion"
	"github.com/LLM-Dev-Ops/memory-graph-sub000/internal/telemetry"
	"github.com/bytedance/sonic"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	// MaxMessageBytes caps a single inbound frame
	MaxMessageBytes = 1 << 20
	writeWait       = 10 * time.Second
)

// Message types sent to the client
const (
	TypeSystem = "system"
	TypeResult = "result"
	TypeError  = "error"
	TypePong   = "pong"
	TypeFlush  = "flushed"
	TypeStats  = "stats"
)

// control is a non-telemetry client message
type control struct {
	Type          string         `json:"type"`
	TelemetryType telemetry.Type `json:"telemetry_type"`
}

// Handler streams telemetry over WebSocket connections
type Handler struct {
	pipeline *ingestion.Pipeline
	metrics  *monitoring.Metrics
	logger   *zap.Logger
	upgrader websocket.Upgrader
}

// NewHandler creates a new WebSocket handler
func NewHandler(pipeline *ingestion.Pipeline) *Handler {
	return &Handler{
		pipeline: pipeline,
		logger:   zap.NewNop(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

// WithLogger sets the handler logger
func (h *Handler) WithLogger(logger *zap.Logger) *Handler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

// WithMetrics enables connection and message metrics
func (h *Handler) WithMetrics(metrics *monitoring.Metrics) *Handler {
	h.metrics = metrics
	return h
}

// conn serializes writes to one websocket
type conn struct {
	ws *websocket.Conn
	mu sync.Mutex
}

func (c *conn) send(v interface{}) error {
	data, err := sonic.Marshal(v)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
	return c.ws.WriteMessage(websocket.TextMessage, data)
}

// HandleConnection upgrades the request and ingests every text frame
func (h *Handler) HandleConnection(c *gin.Context) {
	ws, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer ws.Close()
	ws.SetReadLimit(MaxMessageBytes)

	if h.metrics != nil {
		h.metrics.IncWSConnections()
		defer h.metrics.DecWSConnections()
	}

	cn := &conn{ws: ws}
	h.reply(cn, map[string]interface{}{
		"type":      TypeSystem,
		"message":   "connected to telemetry stream",
		"timestamp": time.Now().Unix(),
	})

	ctx := c.Request.Context()
	for {
		if ctx.Err() != nil {
			return
		}
		kind, data, err := ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.logger.Debug("websocket read error", zap.Error(err))
			}
			return
		}
		if kind != websocket.TextMessage {
			h.sendError(cn, "only text frames are accepted")
			continue
		}
		h.handleMessage(cn, data)
	}
}

func (h *Handler) handleMessage(cn *conn, data []byte) {
	trimmed := bytes.TrimSpace(data)

	// objects without a telemetry_type but with a type are control messages
	if len(trimmed) > 0 && trimmed[0] == '{' {
		var ctl control
		if err := sonic.Unmarshal(trimmed, &ctl); err == nil && ctl.TelemetryType == "" && ctl.Type != "" {
			h.handleControl(cn, ctl.Type)
			return
		}
	}

	events, err := telemetry.UnmarshalBatch(trimmed)
	if err != nil {
		h.recordIn("malformed")
		h.sendError(cn, err.Error())
		return
	}

	for _, event := range events {
		h.recordIn(string(event.Type()))
		result := h.pipeline.Ingest(event)
		h.reply(cn, map[string]interface{}{
			"type":   TypeResult,
			"result": result,
		})
	}
}

func (h *Handler) handleControl(cn *conn, msgType string) {
	switch msgType {
	case "ping", "flush", "stats":
		h.recordIn(msgType)
	default:
		h.recordIn("unknown")
	}

	switch msgType {
	case "ping":
		h.reply(cn, map[string]interface{}{"type": TypePong, "timestamp": time.Now().Unix()})
	case "flush":
		results := h.pipeline.Flush()
		if results == nil {
			results = []ingestion.ProcessingResult{}
		}
		h.reply(cn, map[string]interface{}{"type": TypeFlush, "results": results})
	case "stats":
		h.reply(cn, map[string]interface{}{"type": TypeStats, "stats": h.pipeline.Stats()})
	default:
		h.sendError(cn, "unknown message type: "+msgType)
	}
}

func (h *Handler) recordIn(msgType string) {
	if h.metrics != nil {
		h.metrics.RecordWSMessage("in", msgType)
	}
}

func (h *Handler) reply(cn *conn, msg map[string]interface{}) {
	if h.metrics != nil {
		if t, ok := msg["type"].(string); ok {
			h.metrics.RecordWSMessage("out", t)
		}
	}
	if err := cn.send(msg); err != nil {
		h.logger.Debug("websocket write failed", zap.Error(err))
	}
}

func (h *Handler) sendError(cn *conn, message string) {
	h.reply(cn, map[string]interface{}{
		"type":      TypeError,
		"message":   message,
		"timestamp": time.Now().Unix(),
	})
}
