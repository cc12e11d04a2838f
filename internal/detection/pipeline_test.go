package detection

import (
	"context"
	"errors"
	"testing"

	"deepguard/internal/apperr"
	"deepguard/internal/models"
	"deepguard/internal/repository"
	"deepguard/internal/scorer"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeJobStore struct {
	pending     []*models.DetectionJob
	appended    []*models.TierResult
	appendErr   error
	completions map[string]repository.JobCompletion
}

func newFakeJobStore() *fakeJobStore {
	return &fakeJobStore{completions: make(map[string]repository.JobCompletion)}
}

func (f *fakeJobStore) ClaimPending(ctx context.Context, limit int) ([]*models.DetectionJob, error) {
	claimed := f.pending
	f.pending = nil
	return claimed, nil
}

func (f *fakeJobStore) AppendTierResult(ctx context.Context, jobID string, result *models.TierResult) error {
	if f.appendErr != nil {
		return f.appendErr
	}
	f.appended = append(f.appended, result)
	return nil
}

func (f *fakeJobStore) FinishJob(ctx context.Context, jobID string, completion repository.JobCompletion) error {
	f.completions[jobID] = completion
	return nil
}

type fakeOrgStore struct {
	org *models.Organization
}

func (f *fakeOrgStore) GetByID(ctx context.Context, id int64) (*models.Organization, error) {
	return f.org, nil
}

type fakeNotifier struct {
	jobs []*models.DetectionJob
}

func (f *fakeNotifier) Notify(ctx context.Context, org *models.Organization, job *models.DetectionJob) {
	f.jobs = append(f.jobs, job)
}

// fakeScorer returns one signal per tier with a fixed score, so the
// aggregated confidence equals the score.
type fakeScorer struct {
	scores map[int]float64
	errs   map[int]error
	calls  []int
}

func (f *fakeScorer) Score(ctx context.Context, tier int, job *models.DetectionJob) (*scorer.Result, error) {
	f.calls = append(f.calls, tier)
	if err := f.errs[tier]; err != nil {
		return nil, err
	}
	name := "ensemble"
	if tier == 3 {
		name = "facial_landmarks"
	}
	return &scorer.Result{
		ModelName: name,
		Signals:   []models.ModelSignal{{ModelName: name, Score: f.scores[tier], Weight: 1}},
	}, nil
}

func newTestPipeline(t *testing.T, jobs *fakeJobStore, sc *fakeScorer, notifier Notifier) *Pipeline {
	t.Helper()
	cfg := testDetectionConfig()
	logger := zap.NewNop()
	agg, err := NewAggregator(cfg, logger)
	require.NoError(t, err)
	orgs := &fakeOrgStore{org: &models.Organization{ID: 1, WebhookSecret: "secret"}}
	return NewPipeline(jobs, orgs, sc, NewRouter(cfg, logger), agg, notifier, logger, PipelineOptions{})
}

func testJob() *models.DetectionJob {
	return &models.DetectionJob{
		ID:             10,
		JobID:          "job-1",
		OrganizationID: 1,
		Status:         models.StatusProcessing,
		ContentType:    models.ContentVideo,
		FileURL:        "https://cdn.example.com/clip.mp4",
	}
}

func TestProcessJobEscalatesThenCompletes(t *testing.T) {
	jobs := newFakeJobStore()
	sc := &fakeScorer{scores: map[int]float64{1: 0.30, 2: 0.93}}
	notifier := &fakeNotifier{}
	p := newTestPipeline(t, jobs, sc, notifier)

	p.processJob(context.Background(), testJob())

	assert.Equal(t, []int{1, 2}, sc.calls)
	require.Len(t, jobs.appended, 2)
	assert.Equal(t, 1, jobs.appended[0].Tier)
	assert.Equal(t, 2, jobs.appended[1].Tier)

	completion, ok := jobs.completions["job-1"]
	require.True(t, ok)
	assert.Equal(t, models.StatusCompleted, completion.Status)
	require.NotNil(t, completion.Prediction)
	assert.Equal(t, models.PredictionDeepfake, *completion.Prediction)
	require.NotNil(t, completion.Confidence)
	assert.InDelta(t, 0.93, *completion.Confidence, 1e-12)
	assert.Equal(t, 2, completion.TierReached)

	require.Len(t, notifier.jobs, 1)
	assert.Equal(t, "job-1", notifier.jobs[0].JobID)
}

func TestProcessJobShortCircuitsAtTierOne(t *testing.T) {
	jobs := newFakeJobStore()
	sc := &fakeScorer{scores: map[int]float64{1: 0.97}}
	p := newTestPipeline(t, jobs, sc, nil)

	p.processJob(context.Background(), testJob())

	assert.Equal(t, []int{1}, sc.calls)
	completion := jobs.completions["job-1"]
	assert.Equal(t, models.StatusCompleted, completion.Status)
	require.NotNil(t, completion.Prediction)
	assert.Equal(t, models.PredictionDeepfake, *completion.Prediction)
	assert.Equal(t, 1, completion.TierReached)
}

func TestProcessJobDefersAmbiguousTierThreeToReview(t *testing.T) {
	jobs := newFakeJobStore()
	sc := &fakeScorer{scores: map[int]float64{1: 0.50, 2: 0.50, 3: 0.50}}
	notifier := &fakeNotifier{}
	p := newTestPipeline(t, jobs, sc, notifier)

	p.processJob(context.Background(), testJob())

	assert.Equal(t, []int{1, 2, 3}, sc.calls)
	require.Len(t, jobs.appended, 3)

	completion := jobs.completions["job-1"]
	assert.Equal(t, models.StatusAwaitingReview, completion.Status)
	assert.Nil(t, completion.Prediction)
	assert.Nil(t, completion.Confidence)
	assert.Equal(t, 3, completion.TierReached)

	// Review deferral is not a completion event.
	assert.Empty(t, notifier.jobs)
}

func TestProcessJobFailsOnScorerError(t *testing.T) {
	jobs := newFakeJobStore()
	sc := &fakeScorer{
		scores: map[int]float64{1: 0.30},
		errs:   map[int]error{2: errors.New("scorer unavailable")},
	}
	p := newTestPipeline(t, jobs, sc, nil)

	p.processJob(context.Background(), testJob())

	completion := jobs.completions["job-1"]
	assert.Equal(t, models.StatusFailed, completion.Status)
	assert.Nil(t, completion.Prediction)
	assert.Equal(t, 1, completion.TierReached)
	require.NotNil(t, completion.ErrorMessage)
	assert.Contains(t, *completion.ErrorMessage, "scorer unavailable")
}

func TestProcessJobLeavesJobAloneOnGuardViolation(t *testing.T) {
	jobs := newFakeJobStore()
	jobs.appendErr = apperr.ErrTierOutOfOrder
	sc := &fakeScorer{scores: map[int]float64{1: 0.97}}
	p := newTestPipeline(t, jobs, sc, nil)

	p.processJob(context.Background(), testJob())

	// The guard violation is an orchestration bug; the job must not be
	// marked failed or completed.
	assert.Empty(t, jobs.completions)
}

func TestProcessPendingRunsClaimedJobs(t *testing.T) {
	jobs := newFakeJobStore()
	jobA := testJob()
	jobB := testJob()
	jobB.JobID = "job-2"
	jobs.pending = []*models.DetectionJob{jobA, jobB}

	sc := &fakeScorer{scores: map[int]float64{1: 0.97}}
	p := newTestPipeline(t, jobs, sc, nil)

	p.processPending(context.Background())

	assert.Len(t, jobs.completions, 2)
	assert.Contains(t, jobs.completions, "job-1")
	assert.Contains(t, jobs.completions, "job-2")
}
