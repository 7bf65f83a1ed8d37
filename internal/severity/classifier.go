package severity

import (
	"log"

	"github.com/mlopera/roadcast/internal/features"
	"github.com/mlopera/roadcast/internal/metrics"
	"github.com/mlopera/roadcast/internal/models"
)

// Classifier wraps the trained scorer with the rule override layer.
// It is the only way the engine obtains a severity: out-of-distribution
// hours never reach the scorer, in-distribution results pass through the
// fixed override rules.
type Classifier struct {
	scorer       Scorer
	featureOrder []string
}

// New builds a classifier around a scorer and its trained feature-name
// order. Both are treated as immutable for the process lifetime.
func New(scorer Scorer, featureOrder []string) *Classifier {
	return &Classifier{scorer: scorer, featureOrder: featureOrder}
}

// NewFromForest wires a loaded artifact, taking the feature order the
// artifact itself carries.
func NewFromForest(f *Forest) *Classifier {
	return New(f, f.FeatureNames)
}

// FeatureOrder exposes the trained column order, mainly for tests.
func (c *Classifier) FeatureOrder() []string {
	return c.featureOrder
}

// Predict produces the severity for one scenario-hour.
func (c *Classifier) Predict(h models.ScenarioHour) models.SeverityResult {
	if !InDistribution(h.Hour) {
		metrics.NightTableHits.Inc()
		return nightResult(h)
	}

	vec := features.Encode(h).Align(c.featureOrder)
	result := resultFromProbs(c.scorer.Score(vec))

	for _, rule := range overrideRules {
		if rule.applies(h, result) {
			if result.Class != rule.force {
				log.Printf("severity override %s: %s -> %s (hour=%d type=%s)",
					rule.name, result.Class.Label(), rule.force.Label(), h.Hour, h.DisruptionType)
			}
			metrics.OverrideFires.WithLabelValues(rule.name).Inc()
			result.Class = rule.force
			result.Label = rule.force.Label()
		}
	}
	return result
}
