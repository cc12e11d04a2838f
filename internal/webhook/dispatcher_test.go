package webhook

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"deepguard/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func completedJob(webhookURL string) *models.DetectionJob {
	tier := 2
	confidence := 0.93
	elapsed := int64(4200)
	prediction := models.PredictionDeepfake
	return &models.DetectionJob{
		JobID:            "job-1",
		OrganizationID:   1,
		Status:           models.StatusCompleted,
		TierReached:      &tier,
		ConfidenceScore:  &confidence,
		Prediction:       &prediction,
		ProcessingTimeMs: &elapsed,
		WebhookURL:       &webhookURL,
	}
}

func TestNotifyDeliversSignedEvent(t *testing.T) {
	var (
		gotBody      []byte
		gotSignature string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotBody, _ = io.ReadAll(r.Body)
		gotSignature = r.Header.Get("X-Signature")
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	org := &models.Organization{ID: 1, WebhookSecret: "whsec_test"}
	d := NewDispatcher(5*time.Second, 0, "https://api.example.com/api/v1/result", zap.NewNop())
	d.Notify(context.Background(), org, completedJob(srv.URL))

	require.NotEmpty(t, gotBody)

	var event Event
	require.NoError(t, json.Unmarshal(gotBody, &event))
	assert.Equal(t, "detection.completed", event.Event)
	assert.Equal(t, "job-1", event.Data.JobID)
	assert.Equal(t, models.PredictionDeepfake, event.Data.Verdict)
	assert.InDelta(t, 0.93, event.Data.Confidence, 1e-12)
	assert.Equal(t, 2, event.Data.TierCompleted)
	assert.Equal(t, int64(4200), event.Data.ProcessingTimeMs)
	assert.Equal(t, "https://api.example.com/api/v1/result/job-1", event.Data.ResultURL)

	// The signature covers the serialized data object, so the receiver can
	// recompute it from the payload alone.
	dataJSON, err := json.Marshal(event.Data)
	require.NoError(t, err)
	want := Sign("whsec_test", dataJSON)
	assert.Equal(t, want, event.Signature)
	assert.Equal(t, want, gotSignature)
}

func TestNotifySkipsJobsWithoutWebhookURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("unexpected delivery")
	}))
	defer srv.Close()

	org := &models.Organization{ID: 1, WebhookSecret: "whsec_test"}
	job := completedJob(srv.URL)
	job.WebhookURL = nil

	d := NewDispatcher(5*time.Second, 0, "https://api.example.com/api/v1/result", zap.NewNop())
	d.Notify(context.Background(), org, job)
}

func TestNotifyRetriesFailedDelivery(t *testing.T) {
	var attempts int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	org := &models.Organization{ID: 1, WebhookSecret: "whsec_test"}
	d := NewDispatcher(5*time.Second, 2, "https://api.example.com/api/v1/result", zap.NewNop())
	d.Notify(context.Background(), org, completedJob(srv.URL))

	assert.Equal(t, 2, attempts)
}

func TestNotifyDoesNotRetryClientErrors(t *testing.T) {
	var attempts int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusGone)
	}))
	defer srv.Close()

	org := &models.Organization{ID: 1, WebhookSecret: "whsec_test"}
	d := NewDispatcher(5*time.Second, 3, "https://api.example.com/api/v1/result", zap.NewNop())
	d.Notify(context.Background(), org, completedJob(srv.URL))

	assert.Equal(t, 1, attempts)
}

func TestSignIsStable(t *testing.T) {
	payload := []byte(`{"job_id":"job-1"}`)
	assert.Equal(t, Sign("secret", payload), Sign("secret", payload))
	assert.NotEqual(t, Sign("secret", payload), Sign("other", payload))
}
