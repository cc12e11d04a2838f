package detection

import (
	"testing"

	"deepguard/internal/config"
	"deepguard/internal/models"

	"go.uber.org/zap"
)

func testDetectionConfig() config.DetectionConfig {
	return config.DetectionConfig{
		Tier1Band: config.Band{Low: 0.05, High: 0.95},
		Tier2Band: config.Band{Low: 0.10, High: 0.90},
		Tier3Band: config.Band{Low: 0.40, High: 0.60},
		Tier3Weights: map[string]float64{
			"facial_landmarks":     0.25,
			"temporal_consistency": 0.20,
			"frequency_artifacts":  0.15,
			"audio_visual_sync":    0.15,
			"compression_trace":    0.15,
			"biological_signals":   0.10,
		},
		TopSignals: 5,
	}
}

func TestRouterDecide(t *testing.T) {
	router := NewRouter(testDetectionConfig(), zap.NewNop())

	cases := []struct {
		name       string
		tier       int
		confidence float64
		wantKind   DecisionKind
		wantTier   int
		wantPred   string
	}{
		{"tier1 high confidence short-circuits to deepfake", 1, 0.97, DecisionVerdict, 0, models.PredictionDeepfake},
		{"tier1 low confidence short-circuits to authentic", 1, 0.02, DecisionVerdict, 0, models.PredictionAuthentic},
		{"tier1 mid confidence escalates", 1, 0.30, DecisionEscalate, 2, ""},
		{"tier1 lower bound escalates", 1, 0.05, DecisionEscalate, 2, ""},
		{"tier1 upper bound escalates", 1, 0.95, DecisionEscalate, 2, ""},
		{"tier2 high confidence short-circuits to deepfake", 2, 0.96, DecisionVerdict, 0, models.PredictionDeepfake},
		{"tier2 deepfake above band", 2, 0.93, DecisionVerdict, 0, models.PredictionDeepfake},
		{"tier2 low confidence short-circuits to authentic", 2, 0.08, DecisionVerdict, 0, models.PredictionAuthentic},
		{"tier2 mid confidence escalates", 2, 0.50, DecisionEscalate, 3, ""},
		{"tier3 mid confidence defers to review", 3, 0.50, DecisionReview, 0, ""},
		{"tier3 review band lower bound", 3, 0.40, DecisionReview, 0, ""},
		{"tier3 review band upper bound", 3, 0.60, DecisionReview, 0, ""},
		{"tier3 above band is deepfake", 3, 0.61, DecisionVerdict, 0, models.PredictionDeepfake},
		{"tier3 below band is authentic", 3, 0.39, DecisionVerdict, 0, models.PredictionAuthentic},
		{"tier3 extreme deepfake", 3, 0.99, DecisionVerdict, 0, models.PredictionDeepfake},
		{"tier3 extreme authentic", 3, 0.01, DecisionVerdict, 0, models.PredictionAuthentic},
	}

	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			d := router.Decide("job-1", tt.tier, tt.confidence)
			if d.Kind != tt.wantKind {
				t.Fatalf("kind: got %v want %v", d.Kind, tt.wantKind)
			}
			if tt.wantKind == DecisionEscalate && d.NextTier != tt.wantTier {
				t.Fatalf("next tier: got %d want %d", d.NextTier, tt.wantTier)
			}
			if tt.wantKind == DecisionVerdict && d.Prediction != tt.wantPred {
				t.Fatalf("prediction: got %q want %q", d.Prediction, tt.wantPred)
			}
		})
	}
}
