package config

import (
	"fmt"

	"github.com/LLM-Dev-Ops/memory-graph-sub000/internal/ingestion"
	"github.com/LLM-Dev-Ops/memory-graph-sub000/internal/mapping"
	"github.com/kelseyhightower/envconfig"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	Ingestion IngestionConfig
	Mapping   MappingConfig
	Logging   LogConfig
	RateLimit RateLimitConfig
	Tracing   TracingConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port string `envconfig:"PORT" default:"8000"`
	Host string `envconfig:"HOST" default:"0.0.0.0"`
	// GRPCPort enables the gRPC health endpoint when set
	GRPCPort string `envconfig:"GRPC_PORT"`
}

// IngestionConfig holds pipeline routing, buffering and retention settings.
type IngestionConfig struct {
	EnableLineage        bool    `envconfig:"INGEST_ENABLE_LINEAGE" default:"true"`
	EnableTemporal       bool    `envconfig:"INGEST_ENABLE_TEMPORAL" default:"true"`
	EnableMapping        bool    `envconfig:"INGEST_ENABLE_MAPPING" default:"true"`
	BufferSize           int     `envconfig:"INGEST_BUFFER_SIZE" default:"100"`
	FlushIntervalMs      int     `envconfig:"INGEST_FLUSH_INTERVAL_MS" default:"1000"`
	RetentionHours       int     `envconfig:"INGEST_RETENTION_HOURS" default:"24"`
	CorrelationThreshold float64 `envconfig:"INGEST_CORRELATION_THRESHOLD" default:"0.5"`
	MaxLagSteps          int     `envconfig:"INGEST_MAX_LAG_STEPS" default:"0"`
}

// MappingConfig holds entity mapping settings. File, when set, supplies
// operation patterns and metadata keys.
type MappingConfig struct {
	File             string `envconfig:"MAPPING_FILE"`
	TraceToSession   bool   `envconfig:"MAPPING_TRACE_TO_SESSION" default:"true"`
	CreateEdges      bool   `envconfig:"MAPPING_CREATE_EDGES" default:"true"`
	DeterministicIDs bool   `envconfig:"MAPPING_DETERMINISTIC_IDS" default:"false"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" default:"info"`
	Development bool   `envconfig:"LOG_DEV" default:"false"`
}

// RateLimitConfig holds rate limiting configuration.
type RateLimitConfig struct {
	RequestsPerSecond int  `envconfig:"RATE_LIMIT_RPS" default:"100"`
	Burst             int  `envconfig:"RATE_LIMIT_BURST" default:"200"`
	Enabled           bool `envconfig:"RATE_LIMIT_ENABLED" default:"true"`
}

// TracingConfig controls tracing of the server's own requests.
type TracingConfig struct {
	SelfTrace   bool   `envconfig:"SELF_TRACE" default:"false"`
	ServiceName string `envconfig:"TRACE_SERVICE_NAME" default:"telemetry-engine"`
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}

// LoadOrDefault loads configuration from environment or returns default.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port: "8000",
			Host: "0.0.0.0",
		},
		Ingestion: IngestionConfig{
			EnableLineage:        true,
			EnableTemporal:       true,
			EnableMapping:        true,
			BufferSize:           100,
			FlushIntervalMs:      1000,
			RetentionHours:       24,
			CorrelationThreshold: 0.5,
		},
		Mapping: MappingConfig{
			TraceToSession: true,
			CreateEdges:    true,
		},
		Logging: LogConfig{
			Level:       "info",
			Development: false,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 100,
			Burst:             200,
			Enabled:           true,
		},
		Tracing: TracingConfig{
			ServiceName: "telemetry-engine",
		},
	}
}

// PipelineConfig converts the loaded settings into a pipeline configuration,
// reading the mapping file if one is configured.
func (c *Config) PipelineConfig() (ingestion.Config, error) {
	m := mapping.DefaultConfig()
	m.TraceToSession = c.Mapping.TraceToSession
	m.CreateLineageEdges = c.Mapping.CreateEdges
	m.DeterministicIDs = c.Mapping.DeterministicIDs

	if c.Mapping.File != "" {
		file, err := LoadMappingFile(c.Mapping.File)
		if err != nil {
			return ingestion.Config{}, err
		}
		file.Apply(&m)
	}

	return ingestion.Config{
		EnableLineage:          c.Ingestion.EnableLineage,
		EnableTemporal:         c.Ingestion.EnableTemporal,
		EnableMapping:          c.Ingestion.EnableMapping,
		Mapping:                m,
		BufferSize:             c.Ingestion.BufferSize,
		FlushIntervalMs:        c.Ingestion.FlushIntervalMs,
		TemporalRetentionHours: c.Ingestion.RetentionHours,
		CorrelationThreshold:   c.Ingestion.CorrelationThreshold,
		MaxLagSteps:            c.Ingestion.MaxLagSteps,
	}, nil
}
