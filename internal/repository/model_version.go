package repository

import (
	"context"
	"database/sql"
	"errors"

	"deepguard/internal/apperr"
	"deepguard/internal/models"

	"github.com/jmoiron/sqlx"
)

// ModelVersionRepository is read-only: which scorer is current per tier is
// decided by the rollout subsystem, not here.
type ModelVersionRepository interface {
	ActiveForTier(ctx context.Context, tier int) (*models.ModelVersion, error)
	ListAll(ctx context.Context) ([]*models.ModelVersion, error)
}

type modelVersionRepository struct {
	db *sqlx.DB
}

func NewModelVersionRepository(db *sqlx.DB) ModelVersionRepository {
	return &modelVersionRepository{db: db}
}

func (r *modelVersionRepository) ActiveForTier(ctx context.Context, tier int) (*models.ModelVersion, error) {
	var mv models.ModelVersion
	query := `SELECT id, name, version, tier, accuracy, false_positive_rate, is_active,
	                 deployment_status, rollout_percentage, created_at, deployed_at
	          FROM model_versions
	          WHERE tier = $1 AND is_active
	          ORDER BY deployed_at DESC NULLS LAST
	          LIMIT 1`
	err := r.db.GetContext(ctx, &mv, query, tier)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.ErrNotFound
		}
		return nil, err
	}
	return &mv, nil
}

func (r *modelVersionRepository) ListAll(ctx context.Context) ([]*models.ModelVersion, error) {
	var versions []*models.ModelVersion
	query := `SELECT id, name, version, tier, accuracy, false_positive_rate, is_active,
	                 deployment_status, rollout_percentage, created_at, deployed_at
	          FROM model_versions ORDER BY tier, name, version`
	if err := r.db.SelectContext(ctx, &versions, query); err != nil {
		return nil, err
	}
	return versions, nil
}
