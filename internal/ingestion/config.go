package ingestion

import (
	"time"

	"github.com/LLM-Dev-Ops/memory-graph-sub000/internal/mapping"
	"github.com/LLM-Dev-Ops/memory-graph-sub000/internal/temporal"
)

// Config controls routing, buffering and the derived builders
type Config struct {
	EnableLineage  bool           `json:"enable_lineage"`
	EnableTemporal bool           `json:"enable_temporal"`
	EnableMapping  bool           `json:"enable_mapping"`
	Mapping        mapping.Config `json:"mapping_config"`

	BufferSize             int `json:"buffer_size"`
	FlushIntervalMs        int `json:"flush_interval_ms"`
	TemporalRetentionHours int `json:"temporal_retention_hours"`

	CorrelationThreshold float64 `json:"correlation_threshold"`
	MaxLagSteps          int     `json:"max_lag_steps"`
}

// DefaultConfig returns a configuration with every stage enabled
func DefaultConfig() Config {
	return Config{
		EnableLineage:          true,
		EnableTemporal:         true,
		EnableMapping:          true,
		Mapping:                mapping.DefaultConfig(),
		BufferSize:             100,
		FlushIntervalMs:        1000,
		TemporalRetentionHours: 24,
		CorrelationThreshold:   0.5,
		MaxLagSteps:            0,
	}
}

// FlushInterval returns the periodic flush interval
func (c Config) FlushInterval() time.Duration {
	return time.Duration(c.FlushIntervalMs) * time.Millisecond
}

// TemporalConfig derives the temporal builder configuration
func (c Config) TemporalConfig() temporal.Config {
	return temporal.Config{
		Retention:            time.Duration(c.TemporalRetentionHours) * time.Hour,
		CorrelationThreshold: c.CorrelationThreshold,
		MaxLagSteps:          c.MaxLagSteps,
	}
}
