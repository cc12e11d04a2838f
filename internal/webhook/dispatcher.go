package webhook

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"deepguard/internal/models"

	"github.com/sethvargo/go-retry"
	"go.uber.org/zap"
)

// EventData is the signed portion of a webhook payload.
type EventData struct {
	JobID            string  `json:"job_id"`
	Verdict          string  `json:"verdict"`
	Confidence       float64 `json:"confidence"`
	TierCompleted    int     `json:"tier_completed"`
	ProcessingTimeMs int64   `json:"processing_time_ms"`
	ResultURL        string  `json:"result_url"`
}

// Event is the webhook payload. Signature is a hex HMAC-SHA256 over the
// serialized data object using the organization's shared secret.
type Event struct {
	Event     string    `json:"event"`
	Timestamp string    `json:"timestamp"`
	Data      EventData `json:"data"`
	Signature string    `json:"signature"`
}

// Dispatcher delivers completion webhooks to client-supplied URLs.
// Delivery is fire-and-forget: failures after the bounded retries are
// logged and dropped.
type Dispatcher struct {
	httpClient    *http.Client
	logger        *zap.Logger
	maxRetries    uint64
	resultBaseURL string
}

func NewDispatcher(timeout time.Duration, maxRetries uint64, resultBaseURL string, logger *zap.Logger) *Dispatcher {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Dispatcher{
		httpClient:    &http.Client{Timeout: timeout},
		logger:        logger,
		maxRetries:    maxRetries,
		resultBaseURL: resultBaseURL,
	}
}

// Sign computes the hex HMAC-SHA256 of payload with the given secret.
func Sign(secret string, payload []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

// Notify delivers a detection.completed event for a terminal job. No-op when
// the job carries no webhook URL.
func (d *Dispatcher) Notify(ctx context.Context, org *models.Organization, job *models.DetectionJob) {
	if job.WebhookURL == nil || *job.WebhookURL == "" {
		return
	}

	data := EventData{
		JobID:         job.JobID,
		TierCompleted: job.HighestTier(),
		ResultURL:     fmt.Sprintf("%s/%s", d.resultBaseURL, job.JobID),
	}
	if job.Prediction != nil {
		data.Verdict = *job.Prediction
	}
	if job.ConfidenceScore != nil {
		data.Confidence = *job.ConfidenceScore
	}
	if job.ProcessingTimeMs != nil {
		data.ProcessingTimeMs = *job.ProcessingTimeMs
	}

	dataJSON, err := json.Marshal(data)
	if err != nil {
		d.logger.Error("Failed to marshal webhook data", zap.String("job_id", job.JobID), zap.Error(err))
		return
	}
	signature := Sign(org.WebhookSecret, dataJSON)

	event := Event{
		Event:     "detection.completed",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Data:      data,
		Signature: signature,
	}
	body, err := json.Marshal(event)
	if err != nil {
		d.logger.Error("Failed to marshal webhook event", zap.String("job_id", job.JobID), zap.Error(err))
		return
	}

	backoff := retry.WithMaxRetries(d.maxRetries, retry.NewExponential(500*time.Millisecond))
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		return d.deliver(ctx, *job.WebhookURL, body, signature)
	})
	if err != nil {
		d.logger.Warn("Webhook delivery failed, dropping event",
			zap.String("job_id", job.JobID),
			zap.String("url", *job.WebhookURL),
			zap.Error(err))
		return
	}

	d.logger.Info("Webhook delivered",
		zap.String("job_id", job.JobID),
		zap.String("url", *job.WebhookURL))
}

func (d *Dispatcher) deliver(ctx context.Context, url string, body []byte, signature string) error {
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Signature", signature)

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return retry.RetryableError(err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body) //nolint:errcheck

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode <= 299:
		return nil
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		// The endpoint rejected the event; retrying the same payload
		// cannot succeed.
		return fmt.Errorf("webhook endpoint rejected event with status %d", resp.StatusCode)
	default:
		return retry.RetryableError(fmt.Errorf("webhook endpoint returned status %d", resp.StatusCode))
	}
}
