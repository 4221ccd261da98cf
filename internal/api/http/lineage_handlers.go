package http

import (
	"net/http"

	"github.com/LLM-Dev-Ops/memory-graph-sub000/internal/lineage"
	"github.com/LLM-Dev-Ops/memory-graph-sub000/internal/telemetry"
	"github.com/gin-gonic/gin"
)

// ChainSummary is the list form of a lineage chain
type ChainSummary struct {
	TraceID         string   `json:"trace_id"`
	NodeCount       int      `json:"node_count"`
	EdgeCount       int      `json:"edge_count"`
	Roots           []string `json:"roots"`
	TotalDurationMs int64    `json:"total_duration_ms"`
}

// ChainDetail is a chain with derived totals
type ChainDetail struct {
	*lineage.Chain
	TotalDurationMs int64                        `json:"total_duration_ms"`
	StatusCounts    map[telemetry.SpanStatus]int `json:"status_counts"`
}

func summarize(chain *lineage.Chain) ChainSummary {
	return ChainSummary{
		TraceID:         chain.TraceID,
		NodeCount:       len(chain.Nodes),
		EdgeCount:       len(chain.Edges),
		Roots:           chain.Roots,
		TotalDurationMs: chain.TotalDurationMs(),
	}
}

// ListLineage lists every held chain
func (h *Handlers) ListLineage(c *gin.Context) {
	chains := h.pipeline.GetAllLineageChains()
	summaries := make([]ChainSummary, 0, len(chains))
	for _, chain := range chains {
		summaries = append(summaries, summarize(chain))
	}

	c.JSON(http.StatusOK, gin.H{
		"chains": summaries,
		"count":  len(summaries),
	})
}

// GetLineage returns one chain
func (h *Handlers) GetLineage(c *gin.Context) {
	traceID := c.Param("trace_id")
	chain, ok := h.pipeline.GetLineageChain(traceID)
	if !ok {
		notFound(c, "lineage chain", traceID)
		return
	}

	c.JSON(http.StatusOK, ChainDetail{
		Chain:           chain,
		TotalDurationMs: chain.TotalDurationMs(),
		StatusCounts:    chain.CountByStatus(),
	})
}

// DeleteLineage removes a chain
func (h *Handlers) DeleteLineage(c *gin.Context) {
	traceID := c.Param("trace_id")
	if _, ok := h.pipeline.RemoveLineageChain(traceID); !ok {
		notFound(c, "lineage chain", traceID)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"trace_id": traceID,
	})
}

// MapLineage maps a held chain into graph entities and edges
func (h *Handlers) MapLineage(c *gin.Context) {
	traceID := c.Param("trace_id")
	_, result, ok := h.pipeline.MapTrace(traceID)
	if !ok {
		notFound(c, "lineage chain", traceID)
		return
	}
	c.JSON(http.StatusOK, result)
}

// GetNodeID reports the graph node id assigned to a span
func (h *Handlers) GetNodeID(c *gin.Context) {
	spanID := c.Param("span_id")
	nodeID, ok := h.pipeline.GetNodeID(spanID)
	if !ok {
		notFound(c, "span", spanID)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"span_id": spanID,
		"node_id": nodeID,
	})
}
