package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"adspy/config"
	"adspy/pipeline"
	"adspy/types"
)

// RegisterRunRoutes registers the run trigger endpoint.
func RegisterRunRoutes(r *gin.Engine, runner Runner, logger *zap.Logger) {
	h := &runsController{runner: runner, logger: logger}
	g := r.Group("/api/runs")
	g.POST("", h.handleCreateRun)
}

type runsController struct {
	runner Runner
	logger *zap.Logger
}

// RunResponse wraps the report of a finished run
type RunResponse struct {
	Report *types.RunReport `json:"report,omitempty"`
	Error  string           `json:"error,omitempty"`
}

// handleCreateRun runs the pipeline synchronously and returns its report.
// POST /api/runs
func (h *runsController) handleCreateRun(c *gin.Context) {
	var req types.RunRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if _, err := pipeline.Prepare(req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	report, err := h.runner.Run(c.Request.Context(), req)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, RunResponse{Report: report})
	case errors.Is(err, pipeline.ErrInvalidRequest):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, config.ErrMissingCredential):
		c.JSON(http.StatusServiceUnavailable, RunResponse{Error: err.Error()})
	case report != nil:
		// Enrichment finished but a tab write failed
		h.logger.Error("Run finished with write errors", zap.String("run_id", report.RunID), zap.Error(err))
		c.JSON(http.StatusBadGateway, RunResponse{Report: report, Error: err.Error()})
	default:
		h.logger.Error("Run failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, RunResponse{Error: err.Error()})
	}
}
