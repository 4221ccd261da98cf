package http

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/LLM-Dev-Ops/memory-graph-sub000/internal/ingestion"
	"github.com/LLM-Dev-Ops/memory-graph-sub000/internal/mapping"
	"github.com/LLM-Dev-Ops/memory-graph-sub000/internal/telemetry"
	"github.com/bytedance/sonic"
	"github.com/gin-gonic/gin"
	"github.com/klauspost/compress/gzip"
	"go.uber.org/zap"
)

// ErrBodyTooLarge is returned when a decoded body exceeds MaxBodyBytes
var ErrBodyTooLarge = errors.New("request body too large")

// IngestTelemetry decodes one event or an array and ingests it immediately
func (h *Handlers) IngestTelemetry(c *gin.Context) {
	events, ok := h.decodeEvents(c)
	if !ok {
		return
	}

	results := h.pipeline.IngestBatch(events)
	c.JSON(http.StatusOK, gin.H{
		"results":   results,
		"accepted":  countSuccess(results),
		"submitted": len(results),
	})
}

// BufferTelemetry queues events; results of any automatic flush are returned
func (h *Handlers) BufferTelemetry(c *gin.Context) {
	events, ok := h.decodeEvents(c)
	if !ok {
		return
	}

	var flushed []ingestion.ProcessingResult
	for _, event := range events {
		flushed = append(flushed, h.pipeline.Buffer(event)...)
	}
	if flushed == nil {
		flushed = []ingestion.ProcessingResult{}
	}

	c.JSON(http.StatusAccepted, gin.H{
		"buffered": h.pipeline.BufferedCount(),
		"flushed":  flushed,
	})
}

// Flush drains the buffer
func (h *Handlers) Flush(c *gin.Context) {
	results := h.pipeline.Flush()
	if results == nil {
		results = []ingestion.ProcessingResult{}
	}
	c.JSON(http.StatusOK, gin.H{"results": results})
}

// GraphEvent converts a graph store event into a synthesized span
func (h *Handlers) GraphEvent(c *gin.Context) {
	body, err := readBody(c.Request)
	if err != nil {
		badRequest(c, err)
		return
	}

	var ev mapping.GraphEvent
	if err := sonic.Unmarshal(body, &ev); err != nil {
		badRequest(c, fmt.Errorf("invalid graph event: %w", err))
		return
	}

	event := h.pipeline.EventToTelemetry(ev)
	if event == nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error": "graph event kind has no telemetry form",
			"kind":  ev.Kind,
		})
		return
	}

	data, err := telemetry.Marshal(event)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Data(http.StatusOK, "application/json", data)
}

func (h *Handlers) decodeEvents(c *gin.Context) ([]telemetry.Event, bool) {
	body, err := readBody(c.Request)
	if err != nil {
		if errors.Is(err, ErrBodyTooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": err.Error()})
			return nil, false
		}
		badRequest(c, err)
		return nil, false
	}

	events, err := telemetry.UnmarshalBatch(body)
	if err != nil {
		h.logger.Debug("rejected telemetry payload", zap.Error(err))
		badRequest(c, err)
		return nil, false
	}
	return events, true
}

// readBody returns the request body, inflating gzip when announced
func readBody(r *http.Request) ([]byte, error) {
	var src io.Reader = r.Body
	if strings.EqualFold(r.Header.Get("Content-Encoding"), "gzip") {
		zr, err := gzip.NewReader(r.Body)
		if err != nil {
			return nil, fmt.Errorf("invalid gzip body: %w", err)
		}
		defer zr.Close()
		src = zr
	}

	data, err := io.ReadAll(io.LimitReader(src, MaxBodyBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read body: %w", err)
	}
	if len(data) > MaxBodyBytes {
		return nil, ErrBodyTooLarge
	}
	return data, nil
}

func countSuccess(results []ingestion.ProcessingResult) int {
	n := 0
	for _, r := range results {
		if r.Success {
			n++
		}
	}
	return n
}
