package models

import "time"

// Feedback classifications.
const (
	FeedbackCorrect   = "correct"
	FeedbackIncorrect = "incorrect"
	FeedbackUncertain = "uncertain"
)

// Feedback represents a row in the append-only 'feedback' table. Corrections
// are new rows; history is preserved for retraining.
type Feedback struct {
	ID             int64     `db:"id" json:"id"`
	JobID          int64     `db:"job_id" json:"-"`
	OrganizationID int64     `db:"organization_id" json:"-"`
	FeedbackType   string    `db:"feedback_type" json:"feedback_type"` // correct, incorrect, uncertain
	TrueLabel      string    `db:"true_label" json:"true_label"`       // authentic, deepfake
	Comments       *string   `db:"comments" json:"comments,omitempty"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}
