package severity

import (
	"github.com/mlopera/roadcast/internal/models"
)

// Scorer is the opaque trained 3-class severity model. Implementations
// must be safe for concurrent read-only use: one scorer is loaded at
// process start and shared by every request.
type Scorer interface {
	// Score maps an aligned feature vector to [P(Light), P(Moderate), P(Heavy)].
	Score(features []float64) [3]float64
}

// resultFromProbs picks the argmax class and reports its probability as
// the confidence.
func resultFromProbs(probs [3]float64) models.SeverityResult {
	class := models.SeverityLight
	for c := models.SeverityModerate; c <= models.SeverityHeavy; c++ {
		if probs[c] > probs[class] {
			class = c
		}
	}
	return models.SeverityResult{
		Class:      class,
		Label:      class.Label(),
		Confidence: probs[class],
		Probabilities: models.Probabilities{
			Light:    probs[0],
			Moderate: probs[1],
			Heavy:    probs[2],
		},
	}
}
