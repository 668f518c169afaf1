package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/soundprediction/scenegraph"
	"github.com/soundprediction/scenegraph/pkg/config"
	"github.com/soundprediction/scenegraph/pkg/server/handlers"
	"github.com/soundprediction/scenegraph/pkg/types"
)

// Server represents the HTTP server
type Server struct {
	config     *config.Config
	router     *gin.Engine
	scenegraph scenegraph.Scenegraph
	server     *http.Server
	logger     *slog.Logger
}

// New creates a new server instance
func New(cfg *config.Config, client scenegraph.Scenegraph, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		config:     cfg,
		scenegraph: client,
		logger:     logger.With("component", "server"),
	}
}

// Setup builds the router and the http.Server. It must be called before
// Start or Handler.
func (s *Server) Setup() {
	if s.config.Server.Mode != "" {
		gin.SetMode(s.config.Server.Mode)
	}

	s.router = gin.New()
	s.router.Use(gin.Recovery(), requestLogger(s.logger), corsMiddleware(), contextMiddleware())
	s.setupRoutes()

	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)
	s.server = &http.Server{
		Addr:    addr,
		Handler: s.router,
	}
}

func (s *Server) setupRoutes() {
	health := handlers.NewHealthHandler(s.scenegraph)
	s.router.GET("/health", health.HealthCheck)
	s.router.GET("/live", health.LivenessCheck)
	s.router.GET("/ready", health.ReadinessCheck)
	s.router.GET("/health/detailed", health.DetailedHealthCheck)

	// health endpoints stay up without a client so probes can report it
	if s.scenegraph == nil {
		return
	}

	observations := handlers.NewObservationHandler(s.scenegraph)
	entities := handlers.NewEntityHandler(s.scenegraph)
	schema := handlers.NewSchemaHandler(s.scenegraph)

	v1 := s.router.Group("/api/v1")
	v1.POST("/observations", observations.Submit)
	v1.GET("/entities", entities.List)
	v1.GET("/entities/:id", entities.Get)
	v1.GET("/schema", schema.Get)
}

// Handler returns the configured router. Setup must be called first.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start starts the server
func (s *Server) Start() error {
	s.logger.Info("starting server", "addr", s.server.Addr)
	return s.server.ListenAndServe()
}

// Stop stops the server gracefully
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("stopping server")
	return s.server.Shutdown(ctx)
}

// corsMiddleware adds CORS headers
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Credentials", "true")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With, X-Batch-ID")
		c.Header("Access-Control-Allow-Methods", "POST, OPTIONS, GET")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}

// requestLogger logs one line per request through slog instead of gin's
// default writer.
func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		level := slog.LevelDebug
		if c.Writer.Status() >= http.StatusInternalServerError {
			level = slog.LevelWarn
		}
		logger.Log(c.Request.Context(), level, "request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration", time.Since(start))
	}
}

// contextMiddleware extracts context information from headers
func contextMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		batchID := c.GetHeader("X-Batch-ID")
		if batchID != "" {
			ctx = context.WithValue(ctx, types.ContextKeyBatchID, batchID)
		}

		ctx = context.WithValue(ctx, types.ContextKeyRequestSource, "server")

		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
