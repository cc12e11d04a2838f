package detection

import (
	"fmt"
	"math"
	"sort"

	"deepguard/internal/config"
	"deepguard/internal/models"

	"go.uber.org/zap"
)

// TierAggregate is the combined outcome of one tier's model signals.
type TierAggregate struct {
	Confidence float64
	Prediction string
	// Signals is the (clamped, annotated) input, in input order.
	Signals []models.ModelSignal
	// TopSignals is the explanation: strongest evidence in either
	// direction, ranked by distance from 0.5.
	TopSignals []models.ModelSignal
}

// signalInterpretations maps signal sources to the static wording shown in
// result explanations. Scorer-supplied interpretations take precedence.
var signalInterpretations = map[string]string{
	"ensemble":             "Combined verdict of the tier's model ensemble",
	"facial_landmarks":     "Facial landmark geometry checked for warping and blending artifacts",
	"temporal_consistency": "Frame-to-frame coherence of facial motion",
	"frequency_artifacts":  "Frequency-domain traces of generative upsampling",
	"audio_visual_sync":    "Alignment of lip movement with the audio track",
	"compression_trace":    "Double-compression and splicing traces in the encoding",
	"biological_signals":   "Physiological plausibility such as blink rate and pulse",
}

// Aggregator combines per-model scores into a tier confidence. Tiers 1 and 2
// use a weighted mean over the signal-supplied weights; tier 3 uses the
// fixed, configuration-supplied weight vector over its six signal sources.
type Aggregator struct {
	tier3Weights map[string]float64
	topN         int
	logger       *zap.Logger
}

// NewAggregator validates the tier-3 weight vector; an invalid vector is a
// fatal configuration error surfaced here.
func NewAggregator(cfg config.DetectionConfig, logger *zap.Logger) (*Aggregator, error) {
	if len(cfg.Tier3Weights) != 6 {
		return nil, fmt.Errorf("tier3 weight vector has %d entries, want 6", len(cfg.Tier3Weights))
	}
	sum := 0.0
	for _, w := range cfg.Tier3Weights {
		sum += w
	}
	if math.Abs(sum-1.0) > 1e-6 {
		return nil, fmt.Errorf("tier3 weights sum to %v, want 1.0", sum)
	}

	topN := cfg.TopSignals
	if topN <= 0 {
		topN = 5
	}
	return &Aggregator{
		tier3Weights: cfg.Tier3Weights,
		topN:         topN,
		logger:       logger,
	}, nil
}

// Aggregate combines the tier's model signals. It never mutates its input
// and is deterministic: identical input yields bit-identical confidence and
// explanation ordering.
func (a *Aggregator) Aggregate(tier int, signals []models.ModelSignal) (*TierAggregate, error) {
	if len(signals) == 0 {
		return nil, fmt.Errorf("tier %d produced no signals", tier)
	}

	clamped := make([]models.ModelSignal, len(signals))
	copy(clamped, signals)

	var weightedSum, weightTotal float64
	for i := range clamped {
		s := &clamped[i]

		// Out-of-range scores are a collaborator contract violation:
		// clamp and flag, never silently accept.
		if s.Score < 0 || s.Score > 1 {
			a.logger.Warn("Model score outside [0,1], clamping",
				zap.Int("tier", tier),
				zap.String("model", s.ModelName),
				zap.Float64("score", s.Score))
			s.Score = math.Min(1, math.Max(0, s.Score))
			s.OutOfRange = true
		}

		if s.Interpretation == "" {
			s.Interpretation = signalInterpretations[s.ModelName]
		}

		w := s.Weight
		if tier == 3 {
			tw, ok := a.tier3Weights[s.ModelName]
			if !ok {
				return nil, fmt.Errorf("tier 3 signal %q has no configured weight", s.ModelName)
			}
			w = tw
		} else if w <= 0 {
			w = 1
		}
		s.Weight = w

		weightedSum += s.Score * w
		weightTotal += w
	}

	confidence := weightedSum / weightTotal

	prediction := models.PredictionUncertain
	switch {
	case confidence > 0.5:
		prediction = models.PredictionDeepfake
	case confidence < 0.5:
		prediction = models.PredictionAuthentic
	}

	return &TierAggregate{
		Confidence: confidence,
		Prediction: prediction,
		Signals:    clamped,
		TopSignals: rankSignals(clamped, a.topN),
	}, nil
}

// rankSignals returns the top-n signals by distance from 0.5. The sort is
// stable so equal distances keep input order, keeping explanations
// deterministic for identical input.
func rankSignals(signals []models.ModelSignal, n int) []models.ModelSignal {
	ranked := make([]models.ModelSignal, len(signals))
	copy(ranked, signals)
	sort.SliceStable(ranked, func(i, j int) bool {
		return math.Abs(ranked[i].Score-0.5) > math.Abs(ranked[j].Score-0.5)
	})
	if len(ranked) > n {
		ranked = ranked[:n]
	}
	return ranked
}
