package repository

import (
	"context"
	"database/sql"
	"errors"

	"deepguard/internal/apperr"
	"deepguard/internal/models"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

type OrganizationRepository interface {
	GetByAPIKey(ctx context.Context, apiKey string) (*models.Organization, error)
	GetByID(ctx context.Context, id int64) (*models.Organization, error)
	UsageThisMonth(ctx context.Context, orgID int64) (int, error)
}

type organizationRepository struct {
	db     *sqlx.DB
	logger *zap.Logger
}

func NewOrganizationRepository(db *sqlx.DB, logger *zap.Logger) OrganizationRepository {
	return &organizationRepository{db: db, logger: logger}
}

func (r *organizationRepository) GetByAPIKey(ctx context.Context, apiKey string) (*models.Organization, error) {
	var org models.Organization
	query := `SELECT id, name, api_key, webhook_secret, tier, quota_limit, quota_used, created_at, updated_at
	          FROM organizations WHERE api_key = $1`
	err := r.db.GetContext(ctx, &org, query, apiKey)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.ErrNotFound
		}
		return nil, err
	}
	return &org, nil
}

func (r *organizationRepository) GetByID(ctx context.Context, id int64) (*models.Organization, error) {
	var org models.Organization
	query := `SELECT id, name, api_key, webhook_secret, tier, quota_limit, quota_used, created_at, updated_at
	          FROM organizations WHERE id = $1`
	err := r.db.GetContext(ctx, &org, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.ErrNotFound
		}
		return nil, err
	}
	return &org, nil
}

// UsageThisMonth counts jobs created since the start of the current billing
// period (calendar month).
func (r *organizationRepository) UsageThisMonth(ctx context.Context, orgID int64) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM detection_jobs
	          WHERE organization_id = $1 AND created_at >= date_trunc('month', NOW())`
	if err := r.db.GetContext(ctx, &count, query, orgID); err != nil {
		return 0, err
	}
	return count, nil
}
