package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	apihttp "github.com/LLM-Dev-Ops/memory-graph-sub000/internal/api/http"
	"github.com/LLM-Dev-Ops/memory-graph-sub000/internal/api/middleware"
	"github.com/LLM-Dev-Ops/memory-graph-sub000/internal/api/ws"
	"github.com/LLM-Dev-Ops/memory-graph-sub000/internal/infrastructure/config"
	"github.com/LLM-Dev-Ops/memory-graph-sub000/internal/infrastructure/logging"
	"github.com/LLM-Dev-Ops/memory-graph-sub000/internal/infrastructure/monitoring"
	"github.com/LLM-Dev-Ops/memory-graph-sub000/internal/infrastructure/tracing"
	"github.com/LLM-Dev-Ops/memory-graph-sub000/internal/ingestion"
)

const shutdownTimeout = 10 * time.Second

// untraced routes are excluded from request logging and self-tracing
var untraced = []string{"/health", "/metrics", "/v1/stream"}

// Server wraps the HTTP server and dependencies
type Server struct {
	router   *gin.Engine
	pipeline *ingestion.Pipeline
	tracer   *tracing.Tracer
	logger   *logging.Logger
	config   *config.Config
	metrics  *monitoring.Metrics
	registry *prometheus.Registry

	grpcServer *grpc.Server
	health     *health.Server

	closeOnce sync.Once
}

// NewServer creates a new server instance
func NewServer(cfg *config.Config) (*Server, error) {
	logger, err := newLogger(cfg.Logging)
	if err != nil {
		return nil, err
	}
	return NewServerWithLogger(cfg, logger)
}

// NewServerWithLogger creates a server that logs through logger
func NewServerWithLogger(cfg *config.Config, logger *logging.Logger) (*Server, error) {
	logger.Info("Initializing telemetry engine",
		zap.String("port", cfg.Server.Port),
		zap.String("grpc_port", cfg.Server.GRPCPort),
		zap.Bool("self_trace", cfg.Tracing.SelfTrace),
	)

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := monitoring.NewMetrics(registry)

	pipelineCfg, err := cfg.PipelineConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to build pipeline config: %w", err)
	}
	pipeline := ingestion.New(pipelineCfg).
		WithLogger(logger.Component("ingestion")).
		WithMetrics(metrics)

	// Self-tracing feeds the server's own request spans back into the pipeline
	var sink *ingestion.Pipeline
	if cfg.Tracing.SelfTrace {
		sink = pipeline
	}
	tracer := newTracer(cfg.Tracing.ServiceName, logger.Component("tracing"), sink)

	if !cfg.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	router.Use(middleware.Recovery(logger.Logger))
	router.Use(middleware.RequestID())
	router.Use(middleware.RequestLogger(logger.Component("http"), untraced...))
	if cfg.Tracing.SelfTrace {
		router.Use(tracing.HTTPMiddleware(tracer, untraced...))
	}
	router.Use(monitoring.Middleware(metrics))
	router.Use(middleware.CORS(middleware.DefaultCORSConfig()))
	if cfg.RateLimit.Enabled {
		logger.Info("Rate limiting enabled",
			zap.Int("rps", cfg.RateLimit.RequestsPerSecond),
			zap.Int("burst", cfg.RateLimit.Burst),
		)
		rl := middleware.DefaultRateLimitConfig()
		rl.RequestsPerSecond = cfg.RateLimit.RequestsPerSecond
		rl.Burst = cfg.RateLimit.Burst
		router.Use(middleware.RateLimit(rl))
	}

	handlers := apihttp.NewHandlers(pipeline).
		WithLogger(logger.Component("api")).
		WithMetrics(metrics)
	handlers.Register(router)

	wsHandler := ws.NewHandler(pipeline).
		WithLogger(logger.Component("ws")).
		WithMetrics(metrics)
	router.GET("/v1/stream", wsHandler.HandleConnection)

	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	s := &Server{
		router:   router,
		pipeline: pipeline,
		tracer:   tracer,
		logger:   logger,
		config:   cfg,
		metrics:  metrics,
		registry: registry,
	}

	if cfg.Server.GRPCPort != "" {
		s.health = health.NewServer()
		s.grpcServer = grpc.NewServer(grpc.UnaryInterceptor(tracing.GRPCUnaryInterceptor(tracer)))
		healthpb.RegisterHealthServer(s.grpcServer, s.health)
		s.health.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	}

	logger.Info("Server initialized successfully")
	return s, nil
}

func newLogger(cfg config.LogConfig) (*logging.Logger, error) {
	logger, err := logging.New(logging.Config{Level: cfg.Level, Development: cfg.Development})
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	return logger, nil
}

func newTracer(service string, logger *zap.Logger, sink *ingestion.Pipeline) *tracing.Tracer {
	if sink == nil {
		return tracing.New(service, logger, nil)
	}
	return tracing.New(service, logger, sink)
}

// Handler returns the HTTP handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// Pipeline returns the ingestion pipeline
func (s *Server) Pipeline() *ingestion.Pipeline {
	return s.pipeline
}

// Run serves HTTP (and gRPC health, when configured) and runs the periodic
// flush loop until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	addr := net.JoinHostPort(s.config.Server.Host, s.config.Server.Port)
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	flushCtx, stopFlush := context.WithCancel(context.Background())
	flushDone := make(chan struct{})
	go func() {
		defer close(flushDone)
		s.pipeline.Run(flushCtx, func(results []ingestion.ProcessingResult) {
			s.logger.Debug("Buffer flushed", zap.Int("events", len(results)))
		})
	}()

	errCh := make(chan error, 2)
	go func() {
		s.logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	if s.grpcServer != nil {
		grpcAddr := net.JoinHostPort(s.config.Server.Host, s.config.Server.GRPCPort)
		lis, err := net.Listen("tcp", grpcAddr)
		if err != nil {
			stopFlush()
			<-flushDone
			_ = httpServer.Close()
			return fmt.Errorf("failed to listen on %s: %w", grpcAddr, err)
		}
		go func() {
			s.logger.Info("Starting gRPC health server", zap.String("addr", grpcAddr))
			if err := s.grpcServer.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
				errCh <- fmt.Errorf("grpc server: %w", err)
			}
		}()
	}

	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-errCh:
	}

	s.logger.Info("Shutting down server...")
	if s.health != nil {
		s.health.Shutdown()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		s.logger.Error("HTTP shutdown failed", zap.Error(err))
		runErr = errors.Join(runErr, err)
	}
	if s.grpcServer != nil {
		s.grpcServer.GracefulStop()
	}

	// final flush happens after the listeners stop accepting events
	stopFlush()
	<-flushDone

	return runErr
}

// Close releases the tracer and flushes the logger
func (s *Server) Close() error {
	s.closeOnce.Do(func() {
		s.tracer.Close()
		_ = s.logger.Close()
	})
	return nil
}
