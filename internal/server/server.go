// Package server exposes the HTTP API: content ingestion, chat, FAQ
// generation, and session management.
package server

import (
	"log/slog"
	"net/http"

	glog "github.com/gin-contrib/slog"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Ntrakiyski/rag-chat-pocketflow-fastapi/internal/rag"
	"github.com/Ntrakiyski/rag-chat-pocketflow-fastapi/internal/session"
	"github.com/Ntrakiyski/rag-chat-pocketflow-fastapi/internal/tasks"
)

// Server implements the HTTP API for the RAG chat service.
type Server struct {
	pipeline *rag.Pipeline
	sessions session.Store
	worker   *tasks.Worker
	gatherer prometheus.Gatherer
	logger   *slog.Logger
}

// Option configures a Server at construction time.
type Option func(*Server)

// WithMetrics exposes the gatherer's metrics at /metrics.
func WithMetrics(g prometheus.Gatherer) Option {
	return func(s *Server) { s.gatherer = g }
}

// WithLogger sets the request logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// NewServer creates a new HTTP API server.
func NewServer(p *rag.Pipeline, w *tasks.Worker, opts ...Option) *Server {
	s := &Server{
		pipeline: p,
		sessions: p.Sessions,
		worker:   w,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SetupRoutes configures and returns the HTTP router with all API
// endpoints.
func (s *Server) SetupRoutes() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(glog.SetLogger(
		glog.WithLogger(func(c *gin.Context, l *slog.Logger) *slog.Logger {
			return s.logger
		}),
	))

	// CORS middleware
	router.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set(
			"Access-Control-Allow-Methods",
			"GET, POST, PUT, DELETE, OPTIONS",
		)
		c.Writer.Header().Set(
			"Access-Control-Allow-Headers",
			"Content-Type, Authorization",
		)

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusOK)
			return
		}

		c.Next()
	})

	router.GET("/health", s.handleHealth)
	if s.gatherer != nil {
		router.GET("/metrics", gin.WrapH(
			promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})))
	}

	v1 := router.Group("/api/v1")
	{
		v1.POST("/ingest", s.handleIngest)
		v1.GET("/ingest/status/:session_id", s.handleIngestStatus)

		v1.POST("/chat/:session_id", s.handleChat)
		v1.POST("/faq/generate/:session_id", s.handleGenerateFAQs)

		v1.GET("/session/:session_id", s.handleGetSession)
		v1.PUT("/session/:session_id", s.handleUpdateSession)
	}

	return router
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Service: "ragchat",
		Status:  "ok",
	})
}
