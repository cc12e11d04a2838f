package detection

import (
	"context"
	"errors"
	"time"

	"deepguard/internal/apperr"
	"deepguard/internal/models"
	"deepguard/internal/repository"
	"deepguard/internal/scorer"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// JobStore is the slice of the job repository the pipeline needs.
type JobStore interface {
	ClaimPending(ctx context.Context, limit int) ([]*models.DetectionJob, error)
	AppendTierResult(ctx context.Context, jobID string, result *models.TierResult) error
	FinishJob(ctx context.Context, jobID string, completion repository.JobCompletion) error
}

// OrgStore resolves the owning organization for webhook signing.
type OrgStore interface {
	GetByID(ctx context.Context, id int64) (*models.Organization, error)
}

// Notifier delivers completion events. Implemented by webhook.Dispatcher.
type Notifier interface {
	Notify(ctx context.Context, org *models.Organization, job *models.DetectionJob)
}

// PipelineOptions tune the polling worker.
type PipelineOptions struct {
	PollInterval time.Duration
	Workers      int
	ClaimLimit   int
	TierTimeout  time.Duration
}

// Pipeline drives claimed jobs through the detection tiers: invoke the
// scorer, aggregate, consult the router, repeat or finish. It owns the
// per-tier timeout; the router itself never retries scorer calls.
type Pipeline struct {
	jobs     JobStore
	orgs     OrgStore
	scorer   scorer.Scorer
	router   *Router
	agg      *Aggregator
	notifier Notifier
	logger   *zap.Logger
	opts     PipelineOptions
}

func NewPipeline(jobs JobStore, orgs OrgStore, sc scorer.Scorer, router *Router, agg *Aggregator, notifier Notifier, logger *zap.Logger, opts PipelineOptions) *Pipeline {
	if opts.PollInterval <= 0 {
		opts.PollInterval = 2 * time.Second
	}
	if opts.Workers <= 0 {
		opts.Workers = 4
	}
	if opts.ClaimLimit <= 0 {
		opts.ClaimLimit = opts.Workers
	}
	if opts.TierTimeout <= 0 {
		opts.TierTimeout = time.Minute
	}
	return &Pipeline{
		jobs:     jobs,
		orgs:     orgs,
		scorer:   sc,
		router:   router,
		agg:      agg,
		notifier: notifier,
		logger:   logger,
		opts:     opts,
	}
}

// Run polls for pending jobs until the context is cancelled.
func (p *Pipeline) Run(ctx context.Context) {
	p.logger.Info("Detection pipeline started",
		zap.Duration("poll_interval", p.opts.PollInterval),
		zap.Int("workers", p.opts.Workers))

	ticker := time.NewTicker(p.opts.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("Detection pipeline stopping")
			return
		case <-ticker.C:
			p.processPending(ctx)
		}
	}
}

// processPending claims a slice of pending jobs and runs them concurrently
// under the worker limit. Unrelated jobs never block each other.
func (p *Pipeline) processPending(ctx context.Context) {
	claimed, err := p.jobs.ClaimPending(ctx, p.opts.ClaimLimit)
	if err != nil {
		p.logger.Error("Failed to claim pending jobs", zap.Error(err))
		return
	}
	if len(claimed) == 0 {
		return
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.opts.Workers)
	for _, job := range claimed {
		job := job
		g.Go(func() error {
			p.processJob(gctx, job)
			return nil
		})
	}
	_ = g.Wait()
}

// processJob runs one job through tiers 1..3 until a verdict, a review
// deferral, or a failure.
func (p *Pipeline) processJob(ctx context.Context, job *models.DetectionJob) {
	start := time.Now()
	tier := 1

	for {
		tierStart := time.Now()
		tctx, cancel := context.WithTimeout(ctx, p.opts.TierTimeout)
		result, err := p.scorer.Score(tctx, tier, job)
		cancel()
		if err != nil {
			// Scorer failure, not scorer disagreement: the job fails
			// terminally with the error captured, never a verdict.
			p.fail(ctx, job, tier-1, start, err)
			return
		}

		agg, err := p.agg.Aggregate(tier, result.Signals)
		if err != nil {
			p.fail(ctx, job, tier-1, start, err)
			return
		}

		tierResult := &models.TierResult{
			Tier:             tier,
			ModelName:        result.ModelName,
			Confidence:       agg.Confidence,
			Prediction:       agg.Prediction,
			ProcessingTimeMs: time.Since(tierStart).Milliseconds(),
			Signals:          agg.Signals,
			HeatmapURL:       result.HeatmapURL,
		}
		if err := p.jobs.AppendTierResult(ctx, job.JobID, tierResult); err != nil {
			// Guard violations indicate broken orchestration, not a bad
			// job; surface as a server error and leave the job alone.
			if errors.Is(err, apperr.ErrTierOutOfOrder) || errors.Is(err, apperr.ErrJobTerminal) {
				p.logger.Error("Tier result rejected by job store",
					zap.String("job_id", job.JobID),
					zap.Int("tier", tier),
					zap.Error(err))
				return
			}
			p.fail(ctx, job, tier, start, err)
			return
		}

		decision := p.router.Decide(job.JobID, tier, agg.Confidence)
		switch decision.Kind {
		case DecisionEscalate:
			tier = decision.NextTier
		case DecisionVerdict:
			p.complete(ctx, job, tier, agg.Confidence, decision.Prediction, start)
			return
		case DecisionReview:
			p.deferToReview(ctx, job, tier, start)
			return
		}
	}
}

func (p *Pipeline) complete(ctx context.Context, job *models.DetectionJob, tier int, confidence float64, prediction string, start time.Time) {
	elapsed := time.Since(start).Milliseconds()
	completion := repository.JobCompletion{
		Status:           models.StatusCompleted,
		Prediction:       &prediction,
		Confidence:       &confidence,
		TierReached:      tier,
		ProcessingTimeMs: elapsed,
	}
	if err := p.jobs.FinishJob(ctx, job.JobID, completion); err != nil {
		p.logger.Error("Failed to finish job", zap.String("job_id", job.JobID), zap.Error(err))
		return
	}

	job.Status = models.StatusCompleted
	job.Prediction = &prediction
	job.ConfidenceScore = &confidence
	job.TierReached = &tier
	job.ProcessingTimeMs = &elapsed

	p.logger.Info("Job completed",
		zap.String("job_id", job.JobID),
		zap.String("prediction", prediction),
		zap.Float64("confidence", confidence),
		zap.Int("tier_reached", tier),
		zap.Int64("processing_time_ms", elapsed))

	p.notify(ctx, job)
}

func (p *Pipeline) deferToReview(ctx context.Context, job *models.DetectionJob, tier int, start time.Time) {
	completion := repository.JobCompletion{
		Status:           models.StatusAwaitingReview,
		TierReached:      tier,
		ProcessingTimeMs: time.Since(start).Milliseconds(),
	}
	if err := p.jobs.FinishJob(ctx, job.JobID, completion); err != nil {
		p.logger.Error("Failed to mark job awaiting review", zap.String("job_id", job.JobID), zap.Error(err))
	}
}

func (p *Pipeline) fail(ctx context.Context, job *models.DetectionJob, tierReached int, start time.Time, cause error) {
	msg := cause.Error()
	completion := repository.JobCompletion{
		Status:           models.StatusFailed,
		TierReached:      tierReached,
		ProcessingTimeMs: time.Since(start).Milliseconds(),
		ErrorMessage:     &msg,
	}
	if err := p.jobs.FinishJob(ctx, job.JobID, completion); err != nil {
		p.logger.Error("Failed to mark job failed", zap.String("job_id", job.JobID), zap.Error(err))
		return
	}
	p.logger.Warn("Job failed",
		zap.String("job_id", job.JobID),
		zap.Int("tier_reached", tierReached),
		zap.String("error", msg))
}

func (p *Pipeline) notify(ctx context.Context, job *models.DetectionJob) {
	if p.notifier == nil {
		return
	}
	org, err := p.orgs.GetByID(ctx, job.OrganizationID)
	if err != nil {
		p.logger.Error("Failed to resolve organization for webhook",
			zap.String("job_id", job.JobID),
			zap.Int64("organization_id", job.OrganizationID),
			zap.Error(err))
		return
	}
	p.notifier.Notify(ctx, org, job)
}
