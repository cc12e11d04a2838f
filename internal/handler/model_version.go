package handler

import (
	"net/http"

	"deepguard/internal/repository"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type ModelVersionHandler interface {
	GetPerformance(c *gin.Context)
}

type modelVersionHandler struct {
	versions repository.ModelVersionRepository
	logger   *zap.Logger
}

func NewModelVersionHandler(versions repository.ModelVersionRepository, logger *zap.Logger) ModelVersionHandler {
	return &modelVersionHandler{versions: versions, logger: logger}
}

// GetPerformance handles GET /api/v1/models/performance
func (h *modelVersionHandler) GetPerformance(c *gin.Context) {
	versions, err := h.versions.ListAll(c.Request.Context())
	if err != nil {
		h.logger.Error("Failed to list model versions", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error", "code": "INTERNAL_ERROR"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"models": versions})
}
