package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// ModelSignal is a single model's contribution to a tier result. Score is a
// confidence in [0,1]; OutOfRange marks scores that arrived outside the
// contract range and were clamped.
type ModelSignal struct {
	ModelName      string  `json:"model_name"`
	Score          float64 `json:"score"`
	Weight         float64 `json:"weight,omitempty"`
	Interpretation string  `json:"interpretation,omitempty"`
	OutOfRange     bool    `json:"out_of_range,omitempty"`
}

// SignalList is persisted as a JSON column on detection_results.
type SignalList []ModelSignal

func (s SignalList) Value() (driver.Value, error) {
	if s == nil {
		return "[]", nil
	}
	return json.Marshal(s)
}

func (s *SignalList) Scan(src any) error {
	if src == nil {
		*s = nil
		return nil
	}
	switch v := src.(type) {
	case []byte:
		return json.Unmarshal(v, s)
	case string:
		return json.Unmarshal([]byte(v), s)
	default:
		return fmt.Errorf("cannot scan %T into SignalList", src)
	}
}

// TierResult represents a row in the 'detection_results' table, one per
// completed tier of a job. Tiers are strictly increasing per job; the row is
// owned by its job and deleted with it.
type TierResult struct {
	ID               int64      `db:"id" json:"-"`
	JobID            int64      `db:"job_id" json:"-"`
	Tier             int        `db:"tier" json:"tier"`
	ModelName        string     `db:"model_name" json:"model_name"`
	Confidence       float64    `db:"confidence" json:"confidence"`
	Prediction       string     `db:"prediction" json:"prediction"`
	ProcessingTimeMs int64      `db:"processing_time_ms" json:"processing_time_ms"`
	Signals          SignalList `db:"signals" json:"signals"`
	HeatmapURL       *string    `db:"heatmap_url" json:"heatmap_url"`
	CreatedAt        time.Time  `db:"created_at" json:"created_at"`
}
