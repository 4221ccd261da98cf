package http

import (
	"net/http"
	"time"

	"github.com/LLM-Dev-Ops/memory-graph-sub000/internal/infrastructure/monitoring"
	"github.com/LLM-Dev-Ops/memory-graph-sub000/internal/ingestion"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// MaxBodyBytes caps a decoded request body
const MaxBodyBytes = 8 << 20

// Handlers contains all HTTP handlers
type Handlers struct {
	pipeline *ingestion.Pipeline
	metrics  *monitoring.Metrics
	logger   *zap.Logger
	started  time.Time
}

// NewHandlers creates a new handler set
func NewHandlers(pipeline *ingestion.Pipeline) *Handlers {
	return &Handlers{
		pipeline: pipeline,
		logger:   zap.NewNop(),
		started:  time.Now(),
	}
}

// WithLogger sets the handler logger
func (h *Handlers) WithLogger(logger *zap.Logger) *Handlers {
	if logger != nil {
		h.logger = logger
	}
	return h
}

// WithMetrics attaches metrics used by the health report
func (h *Handlers) WithMetrics(metrics *monitoring.Metrics) *Handlers {
	h.metrics = metrics
	return h
}

// Register mounts every route on the router
func (h *Handlers) Register(router gin.IRouter) {
	router.GET("/", h.Root)
	router.GET("/health", h.Health)

	v1 := router.Group("/v1")

	v1.POST("/telemetry", h.IngestTelemetry)
	v1.POST("/telemetry/buffer", h.BufferTelemetry)
	v1.POST("/flush", h.Flush)

	v1.GET("/lineage", h.ListLineage)
	v1.GET("/lineage/:trace_id", h.GetLineage)
	v1.DELETE("/lineage/:trace_id", h.DeleteLineage)
	v1.POST("/lineage/:trace_id/map", h.MapLineage)

	v1.GET("/temporal/series", h.ListSeries)
	v1.GET("/temporal/series/:name", h.GetSeries)
	v1.GET("/temporal/correlation", h.GetCorrelation)
	v1.GET("/temporal/correlations", h.ListCorrelations)
	v1.GET("/temporal/graph", h.GetTemporalGraph)

	v1.GET("/nodes/:span_id", h.GetNodeID)
	v1.POST("/graph-events", h.GraphEvent)

	v1.GET("/stats", h.Stats)
	v1.POST("/stats/reset", h.ResetStats)
	v1.POST("/clear", h.Clear)
}

// Root handles the service banner
func (h *Handlers) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "online",
		"service": "telemetry-engine",
		"version": "0.1.0",
	})
}

// Health handles detailed health check
func (h *Handlers) Health(c *gin.Context) {
	resp := gin.H{
		"status":         "healthy",
		"uptime_seconds": int64(time.Since(h.started).Seconds()),
		"pipeline":       h.pipeline.Stats(),
		"buffered":       h.pipeline.BufferedCount(),
		"chains":         len(h.pipeline.GetAllLineageChains()),
		"series":         len(h.pipeline.GetAllSeries()),
	}
	if h.metrics != nil {
		resp["http"] = h.metrics.Snapshot()
	}
	c.JSON(http.StatusOK, resp)
}

// Stats returns the pipeline counters
func (h *Handlers) Stats(c *gin.Context) {
	c.JSON(http.StatusOK, h.pipeline.Stats())
}

// ResetStats zeroes the pipeline counters
func (h *Handlers) ResetStats(c *gin.Context) {
	h.pipeline.ResetStats()
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// Clear drops all pipeline state
func (h *Handlers) Clear(c *gin.Context) {
	h.pipeline.Clear()
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}

func notFound(c *gin.Context, what, id string) {
	c.JSON(http.StatusNotFound, gin.H{"error": what + " not found", "id": id})
}
