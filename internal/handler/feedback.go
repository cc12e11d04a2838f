package handler

import (
	"net/http"

	"deepguard/internal/middleware"
	"deepguard/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type FeedbackHandler interface {
	Record(c *gin.Context)
}

type feedbackHandler struct {
	feedback *service.FeedbackService
	logger   *zap.Logger
}

func NewFeedbackHandler(feedback *service.FeedbackService, logger *zap.Logger) FeedbackHandler {
	return &feedbackHandler{feedback: feedback, logger: logger}
}

type recordFeedbackRequest struct {
	JobID        string `json:"job_id" binding:"required"`
	FeedbackType string `json:"feedback_type" binding:"required,oneof=correct incorrect uncertain"`
	TrueLabel    string `json:"true_label" binding:"required,oneof=authentic deepfake"`
	Comments     string `json:"comments"`
}

// Record handles POST /api/v1/feedback
func (h *feedbackHandler) Record(c *gin.Context) {
	var req recordFeedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "code": "VALIDATION_ERROR"})
		return
	}

	org := middleware.OrgFromContext(c)
	fb, err := h.feedback.Record(c.Request.Context(), org, service.RecordFeedbackInput{
		JobID:        req.JobID,
		FeedbackType: req.FeedbackType,
		TrueLabel:    req.TrueLabel,
		Comments:     req.Comments,
	})
	if err != nil {
		respondError(c, h.logger, err, "JOB_NOT_FOUND", "Job not found")
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success":     true,
		"feedback_id": fb.ID,
	})
}
