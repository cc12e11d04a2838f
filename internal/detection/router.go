package detection

import (
	"deepguard/internal/config"
	"deepguard/internal/models"

	"go.uber.org/zap"
)

// DecisionKind enumerates what the router wants done with a job after a tier
// completes.
type DecisionKind int

const (
	// DecisionEscalate sends the job to the next tier.
	DecisionEscalate DecisionKind = iota
	// DecisionVerdict short-circuits to a final prediction.
	DecisionVerdict
	// DecisionReview defers to manual review. Terminal from the router's
	// perspective; the review collaborator resolves it.
	DecisionReview
)

// Decision is the router's ruling for one completed tier.
type Decision struct {
	Kind       DecisionKind
	NextTier   int    // set when Kind == DecisionEscalate
	Prediction string // set when Kind == DecisionVerdict
}

// Router applies the tier-escalation policy. Bands come from configuration;
// a confidence inside the band escalates (or, at tier 3, defers to review),
// outside it the job short-circuits to a verdict.
type Router struct {
	bands  [3]config.Band
	logger *zap.Logger
}

func NewRouter(cfg config.DetectionConfig, logger *zap.Logger) *Router {
	return &Router{
		bands:  [3]config.Band{cfg.Tier1Band, cfg.Tier2Band, cfg.Tier3Band},
		logger: logger,
	}
}

// Decide returns the routing decision for the given tier and aggregated
// confidence. Every transition is logged with the triggering tier and
// confidence for auditability.
func (r *Router) Decide(jobID string, tier int, confidence float64) Decision {
	d := decide(r.bands[tier-1], tier, confidence)

	switch d.Kind {
	case DecisionEscalate:
		r.logger.Info("Escalating job to next tier",
			zap.String("job_id", jobID),
			zap.Int("tier", tier),
			zap.Float64("confidence", confidence),
			zap.Int("next_tier", d.NextTier))
	case DecisionVerdict:
		r.logger.Info("Short-circuiting job to verdict",
			zap.String("job_id", jobID),
			zap.Int("tier", tier),
			zap.Float64("confidence", confidence),
			zap.String("prediction", d.Prediction))
	case DecisionReview:
		r.logger.Info("Deferring job to manual review",
			zap.String("job_id", jobID),
			zap.Int("tier", tier),
			zap.Float64("confidence", confidence))
	}
	return d
}

// decide is the pure transition rule. Band bounds are inclusive: a
// confidence exactly on a bound escalates rather than short-circuits.
func decide(band config.Band, tier int, confidence float64) Decision {
	inBand := confidence >= band.Low && confidence <= band.High

	if tier >= 3 {
		if inBand {
			return Decision{Kind: DecisionReview}
		}
		if confidence > 0.5 {
			return Decision{Kind: DecisionVerdict, Prediction: models.PredictionDeepfake}
		}
		return Decision{Kind: DecisionVerdict, Prediction: models.PredictionAuthentic}
	}

	if inBand {
		return Decision{Kind: DecisionEscalate, NextTier: tier + 1}
	}
	if confidence > band.High {
		return Decision{Kind: DecisionVerdict, Prediction: models.PredictionDeepfake}
	}
	return Decision{Kind: DecisionVerdict, Prediction: models.PredictionAuthentic}
}
