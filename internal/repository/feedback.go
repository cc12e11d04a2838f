package repository

import (
	"context"

	"deepguard/internal/models"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

// FeedbackRepository is insert-only. Corrections are new rows.
type FeedbackRepository interface {
	Insert(ctx context.Context, fb *models.Feedback) error
}

type feedbackRepository struct {
	db     *sqlx.DB
	logger *zap.Logger
}

func NewFeedbackRepository(db *sqlx.DB, logger *zap.Logger) FeedbackRepository {
	return &feedbackRepository{db: db, logger: logger}
}

func (r *feedbackRepository) Insert(ctx context.Context, fb *models.Feedback) error {
	query := `INSERT INTO feedback (job_id, organization_id, feedback_type, true_label, comments)
	          VALUES ($1, $2, $3, $4, $5) RETURNING id, created_at`
	return r.db.QueryRowContext(ctx, query,
		fb.JobID, fb.OrganizationID, fb.FeedbackType, fb.TrueLabel, fb.Comments,
	).Scan(&fb.ID, &fb.CreatedAt)
}
