package models

import "time"

// ModelVersion represents a row in the 'model_versions' table. Read-only in
// this service; mutation belongs to the deployment/rollout subsystem.
type ModelVersion struct {
	ID                int64      `db:"id" json:"id"`
	Name              string     `db:"name" json:"name"`
	Version           string     `db:"version" json:"version"`
	Tier              int        `db:"tier" json:"tier"`
	Accuracy          float64    `db:"accuracy" json:"accuracy"`
	FalsePositiveRate float64    `db:"false_positive_rate" json:"false_positive_rate"`
	IsActive          bool       `db:"is_active" json:"is_active"`
	DeploymentStatus  string     `db:"deployment_status" json:"deployment_status"`
	RolloutPercentage int        `db:"rollout_percentage" json:"rollout_percentage"`
	CreatedAt         time.Time  `db:"created_at" json:"created_at"`
	DeployedAt        *time.Time `db:"deployed_at" json:"deployed_at,omitempty"`
}
