package handler

import (
	"net/http"

	"deepguard/internal/middleware"
	"deepguard/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type BatchHandler interface {
	SubmitBatch(c *gin.Context)
	GetBatch(c *gin.Context)
}

type batchHandler struct {
	admission *service.AdmissionService
	logger    *zap.Logger
}

func NewBatchHandler(admission *service.AdmissionService, logger *zap.Logger) BatchHandler {
	return &batchHandler{admission: admission, logger: logger}
}

type submitBatchRequest struct {
	Files []service.FileInput `json:"files" binding:"required"`
}

// SubmitBatch handles POST /api/v1/batch
func (h *batchHandler) SubmitBatch(c *gin.Context) {
	var req submitBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "code": "VALIDATION_ERROR"})
		return
	}

	org := middleware.OrgFromContext(c)
	batchID, jobIDs, err := h.admission.SubmitBatch(c.Request.Context(), org, req.Files)
	if err != nil {
		respondError(c, h.logger, err, "BATCH_NOT_FOUND", "Batch not found")
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"batch_id":    batchID,
		"job_ids":     jobIDs,
		"total_count": len(jobIDs),
	})
}

// GetBatch handles GET /api/v1/batch/:batch_id
func (h *batchHandler) GetBatch(c *gin.Context) {
	batchID := c.Param("batch_id")
	if batchID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "batch_id is required", "code": "MISSING_BATCH_ID"})
		return
	}

	org := middleware.OrgFromContext(c)
	status, err := h.admission.GetBatch(c.Request.Context(), org, batchID)
	if err != nil {
		respondError(c, h.logger, err, "BATCH_NOT_FOUND", "Batch not found")
		return
	}

	results := make([]gin.H, 0, len(status.Jobs))
	for _, job := range status.Jobs {
		results = append(results, gin.H{
			"job_id":             job.JobID,
			"status":             job.Status,
			"content_type":       job.ContentType,
			"file_url":           job.FileURL,
			"confidence_score":   job.ConfidenceScore,
			"prediction":         job.Prediction,
			"processing_time_ms": job.ProcessingTimeMs,
			"created_at":         job.CreatedAt,
			"updated_at":         job.UpdatedAt,
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"batch_id":        status.BatchID,
		"total":           status.Total,
		"pending":         status.Pending,
		"processing":      status.Processing,
		"completed":       status.Completed,
		"failed":          status.Failed,
		"awaiting_review": status.AwaitingReview,
		"results":         results,
	})
}
