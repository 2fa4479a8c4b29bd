// Package web serves the HTTP surface: monday.com webhooks, cached record
// reads, metrics and health.
package web

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mesh-intelligence/eric/internal/jobs"
	"github.com/mesh-intelligence/eric/internal/refresh"
	"github.com/mesh-intelligence/eric/pkg/items"
)

// Enqueuer queues background work. *jobs.Pool implements it.
type Enqueuer interface {
	Enqueue(kind, key string, fn jobs.Func) (string, error)
}

// Config wires the server's collaborators.
type Config struct {
	Env       *items.Env
	Jobs      Enqueuer
	Refresher *refresh.Refresher
	// Metrics serves /metrics when set.
	Metrics http.Handler
	// Health reports backend reachability for /healthz when set.
	Health func(ctx context.Context) error
	Logger *slog.Logger
}

// Server is the HTTP server.
type Server struct {
	cfg    Config
	router *gin.Engine
}

// NewServer builds the router.
func NewServer(cfg Config) *Server {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(cfg.Logger))

	s := &Server{cfg: cfg, router: router}

	monday := router.Group("/monday")
	{
		monday.POST("/devices", s.handleWebhook(refresh.KindRefreshDevice))
		monday.POST("/products", s.handleWebhook(refresh.KindRefreshProduct))
	}

	router.GET("/cache/:type/:id", s.handleCacheGet)
	router.POST("/cache/warm", s.handleWarm)
	router.GET("/healthz", s.handleHealth)
	if cfg.Metrics != nil {
		router.GET("/metrics", gin.WrapH(cfg.Metrics))
	}

	return s
}

// Handler returns the router as an http.Handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// HTTPServer returns an http.Server for addr serving the router.
func (s *Server) HTTPServer(addr string) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
}

func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.LogAttrs(c.Request.Context(), slog.LevelInfo, "request",
			slog.String("method", c.Request.Method),
			slog.String("path", c.FullPath()),
			slog.Int("status", c.Writer.Status()),
			slog.Duration("duration", time.Since(start)),
		)
	}
}
