// Package api exposes the generation engine over HTTP. The UI that collects
// stories and displays scripts lives elsewhere; this surface only accepts a
// story, runs generation with fallback, and reports templates and telemetry.
package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/seika-studio/scriptforge/internal/engine"
	"github.com/seika-studio/scriptforge/internal/telemetry"
	"github.com/seika-studio/scriptforge/internal/template"
)

// NewRouter builds the HTTP router around an already-wired engine.
func NewRouter(eng *engine.Engine, registry *template.Registry, store *telemetry.Store, logger *zap.Logger) *gin.Engine {
	if logger == nil {
		logger = zap.NewNop()
	}

	r := gin.New()
	r.Use(gin.Recovery(), requestID(), requestLogger(logger))

	h := &handler{engine: eng, registry: registry, store: store, logger: logger}

	r.GET("/healthz", h.health)

	v1 := r.Group("/api/v1")
	{
		v1.POST("/scripts", h.generateScript)
		v1.GET("/templates", h.listTemplates)
		v1.GET("/stats", h.stats)
	}

	return r
}

// requestID attaches a uuid to each request for log correlation.
func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		c.Set("request_id", id)
		c.Header("X-Request-ID", id)
		c.Next()
	}
}

func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Info("request",
			zap.String("request_id", c.GetString("request_id")),
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)))
	}
}
