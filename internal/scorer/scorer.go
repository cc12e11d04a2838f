package scorer

import (
	"context"

	"deepguard/internal/models"
)

// Result is one tier's raw scorer output before aggregation.
type Result struct {
	ModelName  string               `json:"model_name"`
	Signals    []models.ModelSignal `json:"signals"`
	HeatmapURL *string              `json:"heatmap_url,omitempty"`
}

// Scorer invokes the external inference collaborator for one tier of a job.
// The inference itself is opaque; implementations only carry the call. A
// low-confidence result is a valid Result, not an error — errors mean the
// scorer could not be invoked at all.
type Scorer interface {
	Score(ctx context.Context, tier int, job *models.DetectionJob) (*Result, error)
}
