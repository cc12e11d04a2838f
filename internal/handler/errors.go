package handler

import (
	"errors"
	"net/http"

	"deepguard/internal/apperr"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// respondError maps the error taxonomy to HTTP statuses and stable codes.
// notFoundCode/notFoundMsg let each endpoint keep its own 404 wording.
func respondError(c *gin.Context, logger *zap.Logger, err error, notFoundCode, notFoundMsg string) {
	var quotaErr *apperr.QuotaExceededError
	var validationErr *apperr.ValidationError

	switch {
	case errors.As(err, &validationErr):
		c.JSON(http.StatusBadRequest, gin.H{
			"error": validationErr.Error(),
			"code":  "VALIDATION_ERROR",
			"field": validationErr.Field,
		})
	case errors.As(err, &quotaErr):
		c.JSON(http.StatusForbidden, gin.H{
			"error":       "Request would exceed quota limit",
			"code":        "QUOTA_EXCEEDED",
			"quota_used":  quotaErr.Used,
			"quota_limit": quotaErr.Limit,
			"requested":   quotaErr.Requested,
		})
	case errors.Is(err, apperr.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": notFoundMsg, "code": notFoundCode})
	case errors.Is(err, apperr.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": "Unauthorized access to job", "code": "UNAUTHORIZED_JOB_ACCESS"})
	case errors.Is(err, apperr.ErrUpstreamUnavailable):
		c.JSON(http.StatusBadGateway, gin.H{"error": "Upstream service unavailable", "code": "UPSTREAM_UNAVAILABLE"})
	default:
		// Includes DuplicateJob, TierOutOfOrder and JobTerminal: those are
		// orchestration bugs, reported as server errors, never as the
		// caller's or the job's fault.
		logger.Error("Request failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error", "code": "INTERNAL_ERROR"})
	}
}
