package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validYAML = `
server:
  port: ":8080"
database:
  url: "postgres://localhost:5432/deepguard?sslmode=disable"
auth:
  jwt_secret: "test-secret"
scorer:
  url: "http://localhost:8500"
  timeout_seconds: 30
webhook:
  enabled: true
  timeout_seconds: 10
  max_retries: 3
  result_base_url: "http://localhost:8080/api/v1/result"
pipeline:
  poll_interval_seconds: 2
  workers: 4
  claim_limit: 8
  tier_timeout_seconds: 60
batch:
  max_files: 100
detection:
  tier1_band: {low: 0.05, high: 0.95}
  tier2_band: {low: 0.10, high: 0.90}
  tier3_band: {low: 0.40, high: 0.60}
  tier3_weights:
    facial_landmarks: 0.25
    temporal_consistency: 0.20
    frequency_artifacts: 0.15
    audio_visual_sync: 0.15
    compression_trace: 0.15
    biological_signals: 0.10
  top_signals: 5
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadConfig(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, validYAML))
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Port)
	assert.Equal(t, 0.05, cfg.Detection.Tier1Band.Low)
	assert.Equal(t, 0.60, cfg.Detection.Tier3Band.High)
	assert.Equal(t, 0.25, cfg.Detection.Tier3Weights["facial_landmarks"])
	assert.Equal(t, 100, cfg.Batch.MaxFiles)
	assert.True(t, cfg.Webhook.Enabled)
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yml"))
	assert.Error(t, err)
}

func validConfig(t *testing.T) *Config {
	t.Helper()
	cfg, err := LoadConfig(writeConfig(t, validYAML))
	require.NoError(t, err)
	return cfg
}

func TestValidateRejectsBadBands(t *testing.T) {
	cfg := validConfig(t)
	cfg.Detection.Tier2Band = Band{Low: 0.9, High: 0.1}
	assert.Error(t, cfg.Validate())

	cfg = validConfig(t)
	cfg.Detection.Tier1Band = Band{Low: -0.1, High: 0.95}
	assert.Error(t, cfg.Validate())

	cfg = validConfig(t)
	cfg.Detection.Tier3Band = Band{Low: 0.4, High: 1.2}
	assert.Error(t, cfg.Validate())
}

func TestValidateRejectsBadWeightVector(t *testing.T) {
	cfg := validConfig(t)
	cfg.Detection.Tier3Weights["facial_landmarks"] = 0.30 // sum 1.05
	assert.Error(t, cfg.Validate())

	cfg = validConfig(t)
	delete(cfg.Detection.Tier3Weights, "biological_signals") // only 5 sources
	assert.Error(t, cfg.Validate())

	cfg = validConfig(t)
	cfg.Detection.Tier3Weights["facial_landmarks"] = -0.25
	cfg.Detection.Tier3Weights["temporal_consistency"] = 0.70
	assert.Error(t, cfg.Validate())
}

func TestValidateToleratesWeightRounding(t *testing.T) {
	cfg := validConfig(t)
	cfg.Detection.Tier3Weights["facial_landmarks"] = 0.25 + 5e-7
	assert.NoError(t, cfg.Validate())
}

func TestLoadConfigDefaultsTopSignals(t *testing.T) {
	yaml := strings.Replace(validYAML, "top_signals: 5", "", 1)
	cfg, err := LoadConfig(writeConfig(t, yaml))
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.Detection.TopSignals)

	// Validate itself never mutates the value.
	cfg.Detection.TopSignals = 0
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 0, cfg.Detection.TopSignals)
}

func TestValidateRejectsBadLimits(t *testing.T) {
	cfg := validConfig(t)
	cfg.Pipeline.Workers = 0
	assert.Error(t, cfg.Validate())

	cfg = validConfig(t)
	cfg.Batch.MaxFiles = 0
	assert.Error(t, cfg.Validate())
}
