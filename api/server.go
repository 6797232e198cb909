package api

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"adspy/types"
)

// Runner executes one pipeline run.
type Runner interface {
	Run(ctx context.Context, req types.RunRequest) (*types.RunReport, error)
}

// NewRouter constructs a Gin engine with registered routes.
func NewRouter(runner Runner, logger *zap.Logger) *gin.Engine {
	if logger == nil {
		logger = zap.NewNop()
	}

	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(logger))

	RegisterHealthRoutes(r)
	RegisterRunRoutes(r, runner, logger)
	return r
}

// RegisterHealthRoutes registers GET /api/health.
func RegisterHealthRoutes(r *gin.Engine) {
	r.GET("/api/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "healthy"})
	})
}

func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Info("HTTP request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("elapsed", time.Since(start)))
	}
}
