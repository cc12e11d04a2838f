package service

import (
	"context"
	"sort"
	"time"

	"deepguard/internal/models"
	"deepguard/internal/repository"

	"go.uber.org/zap"
)

// UsageReport is the response of GET /organization/usage.
type UsageReport struct {
	QuotaLimit     int       `json:"quota_limit"`
	QuotaUsed      int       `json:"quota_used"`
	QuotaRemaining int       `json:"quota_remaining"`
	Tier           string    `json:"tier"`
	UsageThisMonth int       `json:"usage_this_month"`
	MemberSince    time.Time `json:"member_since"`
}

// DayCount is one entry of the trailing daily job counts.
type DayCount struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

// AnalyticsReport is the response of GET /organization/analytics.
type AnalyticsReport struct {
	TotalJobs           int            `json:"total_jobs"`
	ByStatus            map[string]int `json:"by_status"`
	ByPrediction        map[string]int `json:"by_prediction"`
	AvgConfidence       *float64       `json:"avg_confidence"`
	AvgProcessingTimeMs *float64       `json:"avg_processing_time_ms"`
	JobsByDay           []DayCount     `json:"jobs_by_day"`
}

// AnalyticsService assembles per-organization usage and job statistics.
type AnalyticsService struct {
	orgs   repository.OrganizationRepository
	jobs   repository.JobRepository
	logger *zap.Logger
}

func NewAnalyticsService(orgs repository.OrganizationRepository, jobs repository.JobRepository, logger *zap.Logger) *AnalyticsService {
	return &AnalyticsService{orgs: orgs, jobs: jobs, logger: logger}
}

// Usage reports quota standing and current-period consumption.
func (s *AnalyticsService) Usage(ctx context.Context, org *models.Organization) (*UsageReport, error) {
	monthly, err := s.orgs.UsageThisMonth(ctx, org.ID)
	if err != nil {
		return nil, err
	}
	return &UsageReport{
		QuotaLimit:     org.QuotaLimit,
		QuotaUsed:      org.QuotaUsed,
		QuotaRemaining: org.QuotaRemaining(),
		Tier:           org.Tier,
		UsageThisMonth: monthly,
		MemberSince:    org.CreatedAt,
	}, nil
}

// Analytics computes job counts by status and prediction, average confidence
// and processing time, and daily job counts for the trailing 30 days.
func (s *AnalyticsService) Analytics(ctx context.Context, org *models.Organization) (*AnalyticsReport, error) {
	jobs, err := s.jobs.ListByOrganization(ctx, org.ID)
	if err != nil {
		return nil, err
	}

	report := &AnalyticsReport{
		TotalJobs: len(jobs),
		ByStatus: map[string]int{
			models.StatusPending:        0,
			models.StatusProcessing:     0,
			models.StatusCompleted:      0,
			models.StatusFailed:         0,
			models.StatusAwaitingReview: 0,
		},
		ByPrediction: map[string]int{
			models.PredictionAuthentic: 0,
			models.PredictionDeepfake:  0,
			models.PredictionUncertain: 0,
			"pending":                  0,
		},
	}

	var (
		confidenceSum   float64
		confidenceCount int
		timeSum         float64
		timeCount       int
	)
	cutoff := time.Now().AddDate(0, 0, -30).Format("2006-01-02")
	byDay := make(map[string]int)

	for _, job := range jobs {
		if _, ok := report.ByStatus[job.Status]; ok {
			report.ByStatus[job.Status]++
		}

		if job.Prediction == nil {
			report.ByPrediction["pending"]++
		} else if _, ok := report.ByPrediction[*job.Prediction]; ok {
			report.ByPrediction[*job.Prediction]++
		}

		if job.ConfidenceScore != nil {
			confidenceSum += *job.ConfidenceScore
			confidenceCount++
		}
		if job.ProcessingTimeMs != nil {
			timeSum += float64(*job.ProcessingTimeMs)
			timeCount++
		}

		day := job.CreatedAt.Format("2006-01-02")
		if day >= cutoff {
			byDay[day]++
		}
	}

	if confidenceCount > 0 {
		avg := confidenceSum / float64(confidenceCount)
		report.AvgConfidence = &avg
	}
	if timeCount > 0 {
		avg := timeSum / float64(timeCount)
		report.AvgProcessingTimeMs = &avg
	}

	report.JobsByDay = make([]DayCount, 0, len(byDay))
	for day, count := range byDay {
		report.JobsByDay = append(report.JobsByDay, DayCount{Date: day, Count: count})
	}
	sort.Slice(report.JobsByDay, func(i, j int) bool {
		return report.JobsByDay[i].Date < report.JobsByDay[j].Date
	})

	return report, nil
}
