package scorer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"deepguard/internal/apperr"
	"deepguard/internal/models"
	"deepguard/internal/repository"
)

// Client is a client for the scoring service API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	versions   repository.ModelVersionRepository
}

// ScoreRequest represents a single tier scoring request.
type ScoreRequest struct {
	JobID        string `json:"job_id"`
	Tier         int    `json:"tier"`
	ContentType  string `json:"content_type"`
	FileURL      string `json:"file_url"`
	ModelName    string `json:"model_name,omitempty"`
	ModelVersion string `json:"model_version,omitempty"`
}

// HealthResponse represents the scoring service health check response.
type HealthResponse struct {
	Status       string `json:"status"`
	ModelsLoaded int    `json:"models_loaded"`
	Device       string `json:"device"`
	Message      string `json:"message"`
}

// NewClient creates a new scoring service client.
func NewClient(baseURL string, timeout time.Duration, versions repository.ModelVersionRepository) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		versions: versions,
	}
}

// Score invokes the scoring service for one tier of a job. The active model
// version for the tier, when known, is passed along so the service scores
// with the current rollout.
func (c *Client) Score(ctx context.Context, tier int, job *models.DetectionJob) (*Result, error) {
	reqBody := ScoreRequest{
		JobID:       job.JobID,
		Tier:        tier,
		ContentType: job.ContentType,
		FileURL:     job.FileURL,
	}

	if c.versions != nil {
		mv, err := c.versions.ActiveForTier(ctx, tier)
		if err == nil {
			reqBody.ModelName = mv.Name
			reqBody.ModelVersion = mv.Version
		} else if !errors.Is(err, apperr.ErrNotFound) {
			return nil, fmt.Errorf("failed to resolve active model for tier %d: %w", tier, err)
		}
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/api/v1/score", bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("%w: scoring service returned status %d: %s",
			apperr.ErrUpstreamUnavailable, resp.StatusCode, string(body))
	}

	var result Result
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return &result, nil
}

// HealthCheck checks if the scoring service is healthy.
func (c *Client) HealthCheck(ctx context.Context) (*HealthResponse, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", c.baseURL+"/api/v1/health", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("scoring service returned status %d: %s", resp.StatusCode, string(body))
	}

	var result HealthResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return &result, nil
}
