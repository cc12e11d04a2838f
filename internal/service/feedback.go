package service

import (
	"context"

	"deepguard/internal/apperr"
	"deepguard/internal/models"
	"deepguard/internal/repository"

	"go.uber.org/zap"
)

// RecordFeedbackInput is a ground-truth assertion against a job.
type RecordFeedbackInput struct {
	JobID        string
	FeedbackType string
	TrueLabel    string
	Comments     string
}

// FeedbackService records human-provided ground truth. Append-only; the
// ownership check happens before any write.
type FeedbackService struct {
	jobs     repository.JobRepository
	feedback repository.FeedbackRepository
	logger   *zap.Logger
}

func NewFeedbackService(jobs repository.JobRepository, feedback repository.FeedbackRepository, logger *zap.Logger) *FeedbackService {
	return &FeedbackService{jobs: jobs, feedback: feedback, logger: logger}
}

// Record validates ownership and appends a feedback row. Cross-tenant
// feedback is rejected with Forbidden regardless of content validity.
func (s *FeedbackService) Record(ctx context.Context, org *models.Organization, in RecordFeedbackInput) (*models.Feedback, error) {
	job, err := s.jobs.GetByJobID(ctx, in.JobID)
	if err != nil {
		return nil, err
	}
	if job.OrganizationID != org.ID {
		return nil, apperr.ErrForbidden
	}

	fb := &models.Feedback{
		JobID:          job.ID,
		OrganizationID: org.ID,
		FeedbackType:   in.FeedbackType,
		TrueLabel:      in.TrueLabel,
	}
	if in.Comments != "" {
		fb.Comments = &in.Comments
	}

	if err := s.feedback.Insert(ctx, fb); err != nil {
		return nil, err
	}

	s.logger.Info("Feedback recorded",
		zap.String("job_id", in.JobID),
		zap.Int64("organization_id", org.ID),
		zap.String("feedback_type", in.FeedbackType))
	return fb, nil
}
