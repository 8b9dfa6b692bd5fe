// Package api serves the explanation engine over HTTP.
package api

import (
	"context"
	"net/http"
	"sync"
	"time"

	"anomalyexplain/domain/dataset"
	"anomalyexplain/internal"
	"anomalyexplain/internal/explain"
	"anomalyexplain/internal/metrics"
	"anomalyexplain/ports"

	"github.com/gin-gonic/gin"
)

const defaultMaxBatchSize = 1000

// Options wires the server's dependencies. Reference, Repository and
// Metrics are optional.
type Options struct {
	Engine       *explain.Engine
	Reference    *dataset.Reference
	Repository   ports.ExplanationRepository
	Metrics      *metrics.Metrics
	MaxBatchSize int
	Logger       *internal.Logger
}

// Server represents the HTTP API for anomaly explanations
type Server struct {
	router *gin.Engine

	mu         sync.Mutex
	httpServer *http.Server

	engine       *explain.Engine
	reference    *dataset.Reference
	repo         ports.ExplanationRepository
	metrics      *metrics.Metrics
	maxBatchSize int
	logger       *internal.Logger
}

// NewServer creates the server and registers its routes
func NewServer(opts Options) *Server {
	if opts.Engine == nil {
		opts.Engine = explain.NewEngine(explain.DefaultOptions())
	}
	if opts.MaxBatchSize <= 0 {
		opts.MaxBatchSize = defaultMaxBatchSize
	}
	if opts.Logger == nil {
		opts.Logger = internal.NewDefaultLogger()
	}

	s := &Server{
		router:       gin.New(),
		engine:       opts.Engine,
		reference:    opts.Reference,
		repo:         opts.Repository,
		metrics:      opts.Metrics,
		maxBatchSize: opts.MaxBatchSize,
		logger:       opts.Logger.WithPrefix("[API]"),
	}
	s.router.Use(gin.Recovery(), s.requestLogger())
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.GET("/health", s.handleHealth)
	if s.metrics != nil {
		s.router.GET("/metrics", gin.WrapH(s.metrics.Handler()))
	}

	v1 := s.router.Group("/api/v1")
	{
		v1.POST("/explain", s.handleExplain)
		v1.POST("/explain/batch", s.handleExplainBatch)
		v1.POST("/importance", s.handleImportance)
		v1.GET("/reference", s.handleReference)

		v1.GET("/explanations", s.handleListExplanations)
		v1.GET("/explanations/:id", s.handleGetExplanation)
		v1.GET("/explanations/:id/report", s.handleExplanationReport)
	}
}

// Handler exposes the router, mainly for tests
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start listens on addr until Shutdown is called
func (s *Server) Start(addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.mu.Lock()
	s.httpServer = srv
	s.mu.Unlock()

	s.logger.Info("Listening on %s", addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	srv := s.httpServer
	s.mu.Unlock()
	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Debug("%s %s -> %d (%v)", c.Request.Method, c.Request.URL.Path, c.Writer.Status(), time.Since(start))
	}
}
