package handler

import (
	"net/http"

	"deepguard/internal/middleware"
	"deepguard/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type OrganizationHandler interface {
	GetUsage(c *gin.Context)
	GetAnalytics(c *gin.Context)
}

type organizationHandler struct {
	analytics *service.AnalyticsService
	logger    *zap.Logger
}

func NewOrganizationHandler(analytics *service.AnalyticsService, logger *zap.Logger) OrganizationHandler {
	return &organizationHandler{analytics: analytics, logger: logger}
}

// GetUsage handles GET /api/v1/organization/usage
func (h *organizationHandler) GetUsage(c *gin.Context) {
	org := middleware.OrgFromContext(c)
	report, err := h.analytics.Usage(c.Request.Context(), org)
	if err != nil {
		respondError(c, h.logger, err, "NOT_FOUND", "Not found")
		return
	}
	c.JSON(http.StatusOK, report)
}

// GetAnalytics handles GET /api/v1/organization/analytics
func (h *organizationHandler) GetAnalytics(c *gin.Context) {
	org := middleware.OrgFromContext(c)
	report, err := h.analytics.Analytics(c.Request.Context(), org)
	if err != nil {
		respondError(c, h.logger, err, "NOT_FOUND", "Not found")
		return
	}
	c.JSON(http.StatusOK, report)
}
