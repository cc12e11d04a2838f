package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Job lifecycle statuses. Completed and failed are terminal; awaiting_review
// is resolved out of band by the human-review collaborator but accepts no
// further tier results either.
const (
	StatusPending        = "pending"
	StatusProcessing     = "processing"
	StatusCompleted      = "completed"
	StatusFailed         = "failed"
	StatusAwaitingReview = "awaiting_review"
)

// Content types accepted for detection.
const (
	ContentVideo = "video"
	ContentImage = "image"
	ContentAudio = "audio"
)

// Final predictions.
const (
	PredictionAuthentic = "authentic"
	PredictionDeepfake  = "deepfake"
	PredictionUncertain = "uncertain"
)

// JSONMap is a free-form metadata map persisted as a JSON column.
type JSONMap map[string]any

func (m JSONMap) Value() (driver.Value, error) {
	if m == nil {
		return nil, nil
	}
	return json.Marshal(m)
}

func (m *JSONMap) Scan(src any) error {
	if src == nil {
		*m = nil
		return nil
	}
	switch v := src.(type) {
	case []byte:
		return json.Unmarshal(v, m)
	case string:
		return json.Unmarshal([]byte(v), m)
	default:
		return fmt.Errorf("cannot scan %T into JSONMap", src)
	}
}

// DetectionJob represents a row in the 'detection_jobs' table. The opaque
// JobID is the external identifier; ID is the internal key referenced by
// tier results and feedback. OrganizationID never changes after creation.
type DetectionJob struct {
	ID               int64     `db:"id" json:"-"`
	JobID            string    `db:"job_id" json:"job_id"`
	OrganizationID   int64     `db:"organization_id" json:"-"`
	Status           string    `db:"status" json:"status"`
	ContentType      string    `db:"content_type" json:"content_type"`
	FileURL          string    `db:"file_url" json:"file_url"`
	FileSizeBytes    int64     `db:"file_size_bytes" json:"file_size_bytes"`
	TierReached      *int      `db:"tier_reached" json:"tier_reached"`
	ConfidenceScore  *float64  `db:"confidence_score" json:"confidence_score"`
	Prediction       *string   `db:"prediction" json:"prediction"`
	ProcessingTimeMs *int64    `db:"processing_time_ms" json:"processing_time_ms"`
	ErrorMessage     *string   `db:"error_message" json:"error_message,omitempty"`
	BatchID          *string   `db:"batch_id" json:"batch_id,omitempty"`
	WebhookURL       *string   `db:"webhook_url" json:"-"`
	Metadata         JSONMap   `db:"metadata" json:"metadata,omitempty"`
	CreatedAt        time.Time `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time `db:"updated_at" json:"updated_at"`
}

// Terminal reports whether the job can still make progress. Awaiting review
// counts: the router is done with the job even though a human is not.
func (j *DetectionJob) Terminal() bool {
	switch j.Status {
	case StatusCompleted, StatusFailed, StatusAwaitingReview:
		return true
	}
	return false
}

// HighestTier returns tier_reached treating NULL as zero.
func (j *DetectionJob) HighestTier() int {
	if j.TierReached == nil {
		return 0
	}
	return *j.TierReached
}

// ValidContentType reports whether ct is a recognized content type.
func ValidContentType(ct string) bool {
	switch ct {
	case ContentVideo, ContentImage, ContentAudio:
		return true
	}
	return false
}
