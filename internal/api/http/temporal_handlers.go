package http

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/LLM-Dev-Ops/memory-graph-sub000/internal/temporal"
	"github.com/gin-gonic/gin"
)

// DefaultWindow is used when a query names no start time
const DefaultWindow = time.Hour

// ListSeries lists every series, downsampled when points > 0
func (h *Handlers) ListSeries(c *gin.Context) {
	target, err := pointsParam(c)
	if err != nil {
		badRequest(c, err)
		return
	}

	all := h.pipeline.GetAllSeries()
	for i, ts := range all {
		all[i] = temporal.Downsample(ts, target)
	}

	c.JSON(http.StatusOK, gin.H{
		"series": all,
		"count":  len(all),
	})
}

// GetSeries returns one series, downsampled when points > 0
func (h *Handlers) GetSeries(c *gin.Context) {
	name := c.Param("name")
	target, err := pointsParam(c)
	if err != nil {
		badRequest(c, err)
		return
	}

	ts, ok := h.pipeline.GetSeries(name)
	if !ok {
		notFound(c, "series", name)
		return
	}
	c.JSON(http.StatusOK, temporal.Downsample(ts, target))
}

// GetCorrelation computes the correlation of metrics a and b
func (h *Handlers) GetCorrelation(c *gin.Context) {
	a, b := c.Query("a"), c.Query("b")
	if a == "" || b == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "query parameters a and b are required"})
		return
	}

	start, end, err := windowParams(c)
	if err != nil {
		badRequest(c, err)
		return
	}

	corr, ok := h.pipeline.CalculateCorrelation(a, b, start, end)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "not enough data to correlate",
			"a":     a,
			"b":     b,
		})
		return
	}
	c.JSON(http.StatusOK, corr)
}

// ListCorrelations returns the correlation history
func (h *Handlers) ListCorrelations(c *gin.Context) {
	history := h.pipeline.GetCorrelations()
	c.JSON(http.StatusOK, gin.H{
		"correlations": history,
		"count":        len(history),
	})
}

// GetTemporalGraph builds the correlation graph for the window
func (h *Handlers) GetTemporalGraph(c *gin.Context) {
	start, end, err := windowParams(c)
	if err != nil {
		badRequest(c, err)
		return
	}
	c.JSON(http.StatusOK, h.pipeline.BuildTemporalGraph(start, end))
}

// windowParams reads RFC 3339 start and end. end defaults to now and start
// to end minus DefaultWindow.
func windowParams(c *gin.Context) (time.Time, time.Time, error) {
	end := time.Now().UTC()
	if raw := c.Query("end"); raw != "" {
		t, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid end: %w", err)
		}
		end = t
	}

	start := end.Add(-DefaultWindow)
	if raw := c.Query("start"); raw != "" {
		t, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid start: %w", err)
		}
		start = t
	}

	if end.Before(start) {
		return time.Time{}, time.Time{}, fmt.Errorf("end %s is before start %s", end.Format(time.RFC3339), start.Format(time.RFC3339))
	}
	return start, end, nil
}

func pointsParam(c *gin.Context) (int, error) {
	raw := c.Query("points")
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid points %q", raw)
	}
	return n, nil
}
