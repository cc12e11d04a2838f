package repository

import (
	"context"
	"database/sql"
	"errors"

	"deepguard/internal/apperr"
	"deepguard/internal/models"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"go.uber.org/zap"
)

// JobCompletion carries the terminal (or awaiting-review) state written by
// FinishJob. Prediction and Confidence stay nil for non-terminal outcomes.
type JobCompletion struct {
	Status           string
	Prediction       *string
	Confidence       *float64
	TierReached      int
	ProcessingTimeMs int64
	ErrorMessage     *string
}

type JobRepository interface {
	// CreateJobs reserves quota for len(jobs) and inserts all rows in one
	// transaction. Either every job is created and the quota consumed, or
	// nothing happens and *apperr.QuotaExceededError is returned.
	CreateJobs(ctx context.Context, org *models.Organization, jobs []*models.DetectionJob) error
	GetByJobID(ctx context.Context, jobID string) (*models.DetectionJob, error)
	// ClaimPending atomically moves up to limit pending jobs to processing
	// and returns them. Safe across concurrent service instances.
	ClaimPending(ctx context.Context, limit int) ([]*models.DetectionJob, error)
	// AppendTierResult records a tier result and advances tier_reached.
	// Rejects with apperr.ErrJobTerminal / apperr.ErrTierOutOfOrder.
	AppendTierResult(ctx context.Context, jobID string, result *models.TierResult) error
	FinishJob(ctx context.Context, jobID string, completion JobCompletion) error
	GetTierResults(ctx context.Context, jobPK int64) ([]*models.TierResult, error)
	ListByBatch(ctx context.Context, orgID int64, batchID string) ([]*models.DetectionJob, error)
	ListByOrganization(ctx context.Context, orgID int64) ([]*models.DetectionJob, error)
}

type jobRepository struct {
	db     *sqlx.DB
	logger *zap.Logger
}

func NewJobRepository(db *sqlx.DB, logger *zap.Logger) JobRepository {
	return &jobRepository{db: db, logger: logger}
}

const jobColumns = `id, job_id, organization_id, status, content_type, file_url, file_size_bytes,
	tier_reached, confidence_score, prediction, processing_time_ms, error_message,
	batch_id, webhook_url, metadata, created_at, updated_at`

func (r *jobRepository) CreateJobs(ctx context.Context, org *models.Organization, jobs []*models.DetectionJob) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	// Conditional update is the quota ledger: it only commits when the
	// reservation fits, and it commits together with the job rows.
	res, err := tx.ExecContext(ctx,
		`UPDATE organizations SET quota_used = quota_used + $1, updated_at = NOW()
		 WHERE id = $2 AND quota_used + $1 <= quota_limit`,
		len(jobs), org.ID)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		var used, limit int
		if err := tx.QueryRowContext(ctx,
			`SELECT quota_used, quota_limit FROM organizations WHERE id = $1`, org.ID,
		).Scan(&used, &limit); err != nil {
			return err
		}
		return &apperr.QuotaExceededError{Used: used, Limit: limit, Requested: len(jobs)}
	}

	insert := `INSERT INTO detection_jobs
		(job_id, organization_id, status, content_type, file_url, file_size_bytes, batch_id, webhook_url, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at, updated_at`
	for _, job := range jobs {
		err := tx.QueryRowContext(ctx, insert,
			job.JobID, org.ID, models.StatusPending, job.ContentType, job.FileURL,
			job.FileSizeBytes, job.BatchID, job.WebhookURL, job.Metadata,
		).Scan(&job.ID, &job.CreatedAt, &job.UpdatedAt)
		if err != nil {
			var pqErr *pq.Error
			if errors.As(err, &pqErr) && pqErr.Code == "23505" {
				return apperr.ErrDuplicateJob
			}
			return err
		}
		job.OrganizationID = org.ID
		job.Status = models.StatusPending
	}

	return tx.Commit()
}

func (r *jobRepository) GetByJobID(ctx context.Context, jobID string) (*models.DetectionJob, error) {
	var job models.DetectionJob
	err := r.db.GetContext(ctx, &job,
		`SELECT `+jobColumns+` FROM detection_jobs WHERE job_id = $1`, jobID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.ErrNotFound
		}
		return nil, err
	}
	return &job, nil
}

func (r *jobRepository) ClaimPending(ctx context.Context, limit int) ([]*models.DetectionJob, error) {
	var jobs []*models.DetectionJob
	query := `UPDATE detection_jobs SET status = 'processing', updated_at = NOW()
		WHERE id IN (
			SELECT id FROM detection_jobs WHERE status = 'pending'
			ORDER BY created_at
			LIMIT $1
			FOR UPDATE SKIP LOCKED
		)
		RETURNING ` + jobColumns
	if err := r.db.SelectContext(ctx, &jobs, query, limit); err != nil {
		return nil, err
	}
	return jobs, nil
}

func (r *jobRepository) AppendTierResult(ctx context.Context, jobID string, result *models.TierResult) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck

	var (
		jobPK       int64
		status      string
		tierReached int
	)
	err = tx.QueryRowContext(ctx,
		`SELECT id, status, COALESCE(tier_reached, 0) FROM detection_jobs WHERE job_id = $1 FOR UPDATE`,
		jobID,
	).Scan(&jobPK, &status, &tierReached)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return apperr.ErrNotFound
		}
		return err
	}

	switch status {
	case models.StatusCompleted, models.StatusFailed, models.StatusAwaitingReview:
		return apperr.ErrJobTerminal
	}
	if result.Tier <= tierReached {
		return apperr.ErrTierOutOfOrder
	}

	err = tx.QueryRowContext(ctx,
		`INSERT INTO detection_results (job_id, tier, model_name, confidence, prediction, processing_time_ms, signals, heatmap_url)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING id, created_at`,
		jobPK, result.Tier, result.ModelName, result.Confidence, result.Prediction,
		result.ProcessingTimeMs, result.Signals, result.HeatmapURL,
	).Scan(&result.ID, &result.CreatedAt)
	if err != nil {
		return err
	}
	result.JobID = jobPK

	_, err = tx.ExecContext(ctx,
		`UPDATE detection_jobs SET tier_reached = $1, updated_at = NOW() WHERE id = $2`,
		result.Tier, jobPK)
	if err != nil {
		return err
	}

	return tx.Commit()
}

func (r *jobRepository) FinishJob(ctx context.Context, jobID string, completion JobCompletion) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE detection_jobs
		 SET status = $1, prediction = $2, confidence_score = $3, tier_reached = $4,
		     processing_time_ms = $5, error_message = $6, updated_at = NOW()
		 WHERE job_id = $7`,
		completion.Status, completion.Prediction, completion.Confidence, completion.TierReached,
		completion.ProcessingTimeMs, completion.ErrorMessage, jobID)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return apperr.ErrNotFound
	}
	return nil
}

func (r *jobRepository) GetTierResults(ctx context.Context, jobPK int64) ([]*models.TierResult, error) {
	var results []*models.TierResult
	err := r.db.SelectContext(ctx, &results,
		`SELECT id, job_id, tier, model_name, confidence, prediction, processing_time_ms, signals, heatmap_url, created_at
		 FROM detection_results WHERE job_id = $1 ORDER BY tier ASC`, jobPK)
	if err != nil {
		return nil, err
	}
	return results, nil
}

func (r *jobRepository) ListByBatch(ctx context.Context, orgID int64, batchID string) ([]*models.DetectionJob, error) {
	var jobs []*models.DetectionJob
	err := r.db.SelectContext(ctx, &jobs,
		`SELECT `+jobColumns+` FROM detection_jobs
		 WHERE organization_id = $1 AND batch_id = $2 ORDER BY created_at`, orgID, batchID)
	if err != nil {
		return nil, err
	}
	return jobs, nil
}

func (r *jobRepository) ListByOrganization(ctx context.Context, orgID int64) ([]*models.DetectionJob, error) {
	var jobs []*models.DetectionJob
	err := r.db.SelectContext(ctx, &jobs,
		`SELECT `+jobColumns+` FROM detection_jobs WHERE organization_id = $1 ORDER BY created_at DESC`, orgID)
	if err != nil {
		return nil, err
	}
	return jobs, nil
}
