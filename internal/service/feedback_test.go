package service

import (
	"context"
	"errors"
	"testing"

	"deepguard/internal/apperr"
	"deepguard/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeFeedbackRepo struct {
	inserted []*models.Feedback
}

func (f *fakeFeedbackRepo) Insert(ctx context.Context, fb *models.Feedback) error {
	fb.ID = int64(len(f.inserted) + 1)
	f.inserted = append(f.inserted, fb)
	return nil
}

func TestRecordFeedback(t *testing.T) {
	jobs := newFakeJobRepo()
	jobs.byJobID["job-1"] = &models.DetectionJob{ID: 7, JobID: "job-1", OrganizationID: 1}
	feedback := &fakeFeedbackRepo{}
	svc := NewFeedbackService(jobs, feedback, zap.NewNop())

	fb, err := svc.Record(context.Background(), testOrg(), RecordFeedbackInput{
		JobID:        "job-1",
		FeedbackType: models.FeedbackIncorrect,
		TrueLabel:    models.PredictionAuthentic,
		Comments:     "verified against the original footage",
	})
	require.NoError(t, err)

	assert.Equal(t, int64(7), fb.JobID)
	assert.Equal(t, int64(1), fb.OrganizationID)
	assert.Equal(t, models.FeedbackIncorrect, fb.FeedbackType)
	assert.Equal(t, models.PredictionAuthentic, fb.TrueLabel)
	require.NotNil(t, fb.Comments)
	assert.Equal(t, "verified against the original footage", *fb.Comments)
	assert.Len(t, feedback.inserted, 1)
}

func TestRecordFeedbackOmitsEmptyComments(t *testing.T) {
	jobs := newFakeJobRepo()
	jobs.byJobID["job-1"] = &models.DetectionJob{ID: 7, JobID: "job-1", OrganizationID: 1}
	svc := NewFeedbackService(jobs, &fakeFeedbackRepo{}, zap.NewNop())

	fb, err := svc.Record(context.Background(), testOrg(), RecordFeedbackInput{
		JobID:        "job-1",
		FeedbackType: models.FeedbackCorrect,
		TrueLabel:    models.PredictionDeepfake,
	})
	require.NoError(t, err)
	assert.Nil(t, fb.Comments)
}

func TestRecordFeedbackUnknownJob(t *testing.T) {
	jobs := newFakeJobRepo()
	svc := NewFeedbackService(jobs, &fakeFeedbackRepo{}, zap.NewNop())

	_, err := svc.Record(context.Background(), testOrg(), RecordFeedbackInput{
		JobID:        "missing",
		FeedbackType: models.FeedbackCorrect,
		TrueLabel:    models.PredictionDeepfake,
	})
	assert.True(t, errors.Is(err, apperr.ErrNotFound))
}

func TestRecordFeedbackCrossTenant(t *testing.T) {
	jobs := newFakeJobRepo()
	jobs.byJobID["job-1"] = &models.DetectionJob{ID: 7, JobID: "job-1", OrganizationID: 99}
	feedback := &fakeFeedbackRepo{}
	svc := NewFeedbackService(jobs, feedback, zap.NewNop())

	_, err := svc.Record(context.Background(), testOrg(), RecordFeedbackInput{
		JobID:        "job-1",
		FeedbackType: models.FeedbackCorrect,
		TrueLabel:    models.PredictionDeepfake,
	})
	assert.True(t, errors.Is(err, apperr.ErrForbidden))
	assert.Empty(t, feedback.inserted)
}
