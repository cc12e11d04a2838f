package config

import (
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"
)

// Band is an inclusive confidence interval. Confidences inside the band
// escalate (tiers 1-2) or defer to manual review (tier 3); confidences
// outside it short-circuit to a verdict.
type Band struct {
	Low  float64 `yaml:"low"`
	High float64 `yaml:"high"`
}

// DetectionConfig holds the routing and aggregation policy. Thresholds and
// weights are configuration, not hardcoded math.
type DetectionConfig struct {
	Tier1Band    Band               `yaml:"tier1_band"`
	Tier2Band    Band               `yaml:"tier2_band"`
	Tier3Band    Band               `yaml:"tier3_band"`
	Tier3Weights map[string]float64 `yaml:"tier3_weights"`
	TopSignals   int                `yaml:"top_signals"`
}

// Config holds the application's configuration. Loaded once in main and
// injected; never mutated afterwards.
type Config struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	Database struct {
		URL string `yaml:"url"`
	} `yaml:"database"`
	Auth struct {
		JWTSecret string `yaml:"jwt_secret"`
	} `yaml:"auth"`
	Scorer struct {
		URL            string `yaml:"url"`
		TimeoutSeconds int64  `yaml:"timeout_seconds"`
	} `yaml:"scorer"`
	Webhook struct {
		Enabled        bool   `yaml:"enabled"`
		TimeoutSeconds int64  `yaml:"timeout_seconds"`
		MaxRetries     uint64 `yaml:"max_retries"`
		ResultBaseURL  string `yaml:"result_base_url"`
	} `yaml:"webhook"`
	Pipeline struct {
		PollIntervalSeconds int64 `yaml:"poll_interval_seconds"`
		Workers             int   `yaml:"workers"`
		ClaimLimit          int   `yaml:"claim_limit"`
		TierTimeoutSeconds  int64 `yaml:"tier_timeout_seconds"`
	} `yaml:"pipeline"`
	Batch struct {
		MaxFiles int `yaml:"max_files"`
	} `yaml:"batch"`
	Detection DetectionConfig `yaml:"detection"`
}

// LoadConfig reads configuration from the specified YAML file and validates it.
func LoadConfig(configPath string) (*Config, error) {
	config := &Config{}

	file, err := os.Open(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	decoder := yaml.NewDecoder(file)
	if err := decoder.Decode(config); err != nil {
		return nil, fmt.Errorf("failed to decode config file: %w", err)
	}

	if config.Detection.TopSignals <= 0 {
		config.Detection.TopSignals = 5
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate checks the loaded configuration. An invalid tier-3 weight vector
// is a fatal configuration error, caught here before anything starts.
func (c *Config) Validate() error {
	for _, b := range []struct {
		name string
		band Band
	}{
		{"tier1_band", c.Detection.Tier1Band},
		{"tier2_band", c.Detection.Tier2Band},
		{"tier3_band", c.Detection.Tier3Band},
	} {
		if b.band.Low < 0 || b.band.High > 1 || b.band.Low >= b.band.High {
			return fmt.Errorf("detection.%s: invalid band [%v, %v]", b.name, b.band.Low, b.band.High)
		}
	}

	if len(c.Detection.Tier3Weights) != 6 {
		return fmt.Errorf("detection.tier3_weights: expected 6 signal sources, got %d", len(c.Detection.Tier3Weights))
	}
	sum := 0.0
	for name, w := range c.Detection.Tier3Weights {
		if w < 0 {
			return fmt.Errorf("detection.tier3_weights.%s: negative weight %v", name, w)
		}
		sum += w
	}
	if math.Abs(sum-1.0) > 1e-6 {
		return fmt.Errorf("detection.tier3_weights: weights sum to %v, want 1.0", sum)
	}

	if c.Pipeline.Workers <= 0 {
		return fmt.Errorf("pipeline.workers must be positive, got %d", c.Pipeline.Workers)
	}
	if c.Batch.MaxFiles <= 0 {
		return fmt.Errorf("batch.max_files must be positive, got %d", c.Batch.MaxFiles)
	}
	return nil
}
