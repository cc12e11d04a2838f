package handler

import (
	"net/http"

	"deepguard/internal/middleware"
	"deepguard/internal/models"
	"deepguard/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type DetectHandler interface {
	SubmitJob(c *gin.Context)
	GetResult(c *gin.Context)
}

type detectHandler struct {
	admission *service.AdmissionService
	logger    *zap.Logger
}

func NewDetectHandler(admission *service.AdmissionService, logger *zap.Logger) DetectHandler {
	return &detectHandler{admission: admission, logger: logger}
}

type submitJobRequest struct {
	ContentType   string         `json:"content_type" binding:"required"`
	FileURL       string         `json:"file_url" binding:"required"`
	FileSizeBytes int64          `json:"file_size_bytes"`
	Metadata      map[string]any `json:"metadata"`
	WebhookURL    string         `json:"webhook_url"`
}

// Rough per-content-type latency estimates surfaced on admission.
var estimatedSeconds = map[string]int{
	models.ContentVideo: 30,
	models.ContentImage: 10,
	models.ContentAudio: 20,
}

// SubmitJob handles POST /api/v1/detect
func (h *detectHandler) SubmitJob(c *gin.Context) {
	var req submitJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "code": "VALIDATION_ERROR"})
		return
	}

	org := middleware.OrgFromContext(c)
	job, err := h.admission.SubmitJob(c.Request.Context(), org, service.SubmitJobInput{
		ContentType:   req.ContentType,
		FileURL:       req.FileURL,
		FileSizeBytes: req.FileSizeBytes,
		Metadata:      req.Metadata,
		WebhookURL:    req.WebhookURL,
	})
	if err != nil {
		respondError(c, h.logger, err, "JOB_NOT_FOUND", "Job not found")
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"job_id":                 job.JobID,
		"status":                 job.Status,
		"estimated_time_seconds": estimatedSeconds[job.ContentType],
	})
}

// GetResult handles GET /api/v1/result/:job_id
func (h *detectHandler) GetResult(c *gin.Context) {
	jobID := c.Param("job_id")
	if jobID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "job_id is required", "code": "MISSING_JOB_ID"})
		return
	}

	org := middleware.OrgFromContext(c)
	result, err := h.admission.GetResult(c.Request.Context(), org, jobID)
	if err != nil {
		respondError(c, h.logger, err, "JOB_NOT_FOUND", "Job not found")
		return
	}

	job := result.Job
	results := make([]gin.H, 0, len(result.TierResults))
	for _, tr := range result.TierResults {
		results = append(results, gin.H{
			"tier":               tr.Tier,
			"model_name":         tr.ModelName,
			"confidence":         tr.Confidence,
			"prediction":         tr.Prediction,
			"processing_time_ms": tr.ProcessingTimeMs,
			"signals":            tr.Signals,
			"heatmap_url":        tr.HeatmapURL,
		})
	}

	signals := result.Signals
	if signals == nil {
		signals = []models.ModelSignal{}
	}

	c.JSON(http.StatusOK, gin.H{
		"job_id":             job.JobID,
		"status":             job.Status,
		"confidence_score":   job.ConfidenceScore,
		"prediction":         job.Prediction,
		"tier_reached":       job.TierReached,
		"processing_time_ms": job.ProcessingTimeMs,
		"content_type":       job.ContentType,
		"file_url":           job.FileURL,
		"created_at":         job.CreatedAt,
		"updated_at":         job.UpdatedAt,
		"error_message":      job.ErrorMessage,
		"results":            results,
		"signals":            signals,
		"heatmap_url":        result.HeatmapURL,
	})
}
