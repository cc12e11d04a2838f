package service

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"deepguard/internal/apperr"
	"deepguard/internal/models"
	"deepguard/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SubmitJobInput is a single-file detection request.
type SubmitJobInput struct {
	ContentType   string
	FileURL       string
	FileSizeBytes int64
	Metadata      map[string]any
	WebhookURL    string
}

// FileInput is one entry of a batch submission.
type FileInput struct {
	ContentType   string         `json:"content_type"`
	FileURL       string         `json:"file_url"`
	FileSizeBytes int64          `json:"file_size_bytes"`
	Metadata      map[string]any `json:"metadata"`
}

// JobResult is the assembled view returned by GET /result/{job_id}.
type JobResult struct {
	Job         *models.DetectionJob
	TierResults []*models.TierResult
	// Signals is the concatenation of all tiers' signal lists in tier order.
	Signals []models.ModelSignal
	// HeatmapURL comes from the highest tier that produced one.
	HeatmapURL *string
}

// BatchStatus aggregates constituent job statuses; derived, never stored.
type BatchStatus struct {
	BatchID        string
	Total          int
	Pending        int
	Processing     int
	Completed      int
	Failed         int
	AwaitingReview int
	Jobs           []*models.DetectionJob
}

// AdmissionService admits detection jobs: validation, quota-checked
// creation, batch fan-out, and result lookup.
type AdmissionService struct {
	jobs     repository.JobRepository
	maxBatch int
	logger   *zap.Logger
}

func NewAdmissionService(jobs repository.JobRepository, maxBatch int, logger *zap.Logger) *AdmissionService {
	return &AdmissionService{jobs: jobs, maxBatch: maxBatch, logger: logger}
}

// SubmitJob validates and admits a single detection job, reserving one quota
// unit and creating the job row in the same transaction.
func (s *AdmissionService) SubmitJob(ctx context.Context, org *models.Organization, in SubmitJobInput) (*models.DetectionJob, error) {
	if !models.ValidContentType(in.ContentType) {
		return nil, apperr.Validation("content_type", "must be 'video', 'image', or 'audio'")
	}
	if err := validateSourceURL(in.FileURL); err != nil {
		return nil, apperr.Validation("file_url", err.Error())
	}
	if in.WebhookURL != "" {
		if err := validateWebhookURL(in.WebhookURL); err != nil {
			return nil, apperr.Validation("webhook_url", err.Error())
		}
	}

	job := &models.DetectionJob{
		JobID:         uuid.NewString(),
		ContentType:   in.ContentType,
		FileURL:       in.FileURL,
		FileSizeBytes: in.FileSizeBytes,
		Metadata:      in.Metadata,
	}
	if in.WebhookURL != "" {
		job.WebhookURL = &in.WebhookURL
	}

	if err := s.jobs.CreateJobs(ctx, org, []*models.DetectionJob{job}); err != nil {
		return nil, err
	}

	s.logger.Info("Job admitted",
		zap.String("job_id", job.JobID),
		zap.Int64("organization_id", org.ID),
		zap.String("content_type", job.ContentType))
	return job, nil
}

// SubmitBatch fans a multi-file submission out into individual jobs sharing
// a batch identifier. Quota for the whole batch is reserved in one call:
// either every file becomes a job or none does.
func (s *AdmissionService) SubmitBatch(ctx context.Context, org *models.Organization, files []FileInput) (string, []string, error) {
	if len(files) == 0 {
		return "", nil, apperr.Validation("files", "array cannot be empty")
	}
	if len(files) > s.maxBatch {
		return "", nil, apperr.Validation("files", fmt.Sprintf("maximum %d files per batch", s.maxBatch))
	}

	batchID := uuid.NewString()
	jobs := make([]*models.DetectionJob, 0, len(files))
	for i, f := range files {
		if !models.ValidContentType(f.ContentType) {
			return "", nil, apperr.Validation(
				fmt.Sprintf("files[%d].content_type", i), "must be 'video', 'image', or 'audio'")
		}
		if err := validateSourceURL(f.FileURL); err != nil {
			return "", nil, apperr.Validation(fmt.Sprintf("files[%d].file_url", i), err.Error())
		}

		// Batch id is both an indexed column and a metadata entry, so
		// clients that echo metadata back still see it.
		metadata := make(models.JSONMap, len(f.Metadata)+1)
		for k, v := range f.Metadata {
			metadata[k] = v
		}
		metadata["batch_id"] = batchID

		jobs = append(jobs, &models.DetectionJob{
			JobID:         uuid.NewString(),
			ContentType:   f.ContentType,
			FileURL:       f.FileURL,
			FileSizeBytes: f.FileSizeBytes,
			BatchID:       &batchID,
			Metadata:      metadata,
		})
	}

	if err := s.jobs.CreateJobs(ctx, org, jobs); err != nil {
		return "", nil, err
	}

	jobIDs := make([]string, len(jobs))
	for i, job := range jobs {
		jobIDs[i] = job.JobID
	}

	s.logger.Info("Batch admitted",
		zap.String("batch_id", batchID),
		zap.Int64("organization_id", org.ID),
		zap.Int("jobs", len(jobIDs)))
	return batchID, jobIDs, nil
}

// GetResult returns the job with its tier results, aggregated signals, and
// the highest-tier heatmap. Cross-tenant lookups are Forbidden, not NotFound,
// so a caller probing a valid id learns nothing extra.
func (s *AdmissionService) GetResult(ctx context.Context, org *models.Organization, jobID string) (*JobResult, error) {
	job, err := s.jobs.GetByJobID(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.OrganizationID != org.ID {
		return nil, apperr.ErrForbidden
	}

	tierResults, err := s.jobs.GetTierResults(ctx, job.ID)
	if err != nil {
		return nil, err
	}

	result := &JobResult{Job: job, TierResults: tierResults}
	for _, tr := range tierResults {
		result.Signals = append(result.Signals, tr.Signals...)
		if tr.HeatmapURL != nil {
			result.HeatmapURL = tr.HeatmapURL
		}
	}
	return result, nil
}

// GetBatch aggregates constituent job statuses into counts plus per-job
// summaries.
func (s *AdmissionService) GetBatch(ctx context.Context, org *models.Organization, batchID string) (*BatchStatus, error) {
	jobs, err := s.jobs.ListByBatch(ctx, org.ID, batchID)
	if err != nil {
		return nil, err
	}
	if len(jobs) == 0 {
		return nil, apperr.ErrNotFound
	}

	status := &BatchStatus{BatchID: batchID, Total: len(jobs), Jobs: jobs}
	for _, job := range jobs {
		switch job.Status {
		case models.StatusPending:
			status.Pending++
		case models.StatusProcessing:
			status.Processing++
		case models.StatusCompleted:
			status.Completed++
		case models.StatusFailed:
			status.Failed++
		case models.StatusAwaitingReview:
			status.AwaitingReview++
		}
	}
	return status, nil
}

// validateSourceURL accepts http(s) and s3 references.
func validateSourceURL(raw string) error {
	if strings.TrimSpace(raw) == "" {
		return fmt.Errorf("is required")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("must be a valid URL")
	}
	switch u.Scheme {
	case "http", "https", "s3":
	default:
		return fmt.Errorf("must use http, https or s3 scheme")
	}
	if u.Host == "" {
		return fmt.Errorf("must include a host")
	}
	return nil
}

// validateWebhookURL only allows http(s) egress targets.
func validateWebhookURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("must be a valid URL")
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("must use http or https scheme")
	}
	if u.Host == "" {
		return fmt.Errorf("must include a host")
	}
	return nil
}
