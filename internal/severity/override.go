package severity

import (
	"github.com/mlopera/roadcast/internal/models"
)

// The model was trained on daytime observations only. Hours 22-23 and
// 0-5 are outside the training distribution and are answered from a
// deterministic table instead of the scorer.

// InDistribution reports whether the model may be scored for an hour.
func InDistribution(hour int) bool {
	return hour >= 6 && hour <= 21
}

func deepNight(hour int) bool {
	return hour <= 3
}

// nightRule is one row of the out-of-distribution table. Rows are
// evaluated in order; the first match wins.
type nightRule struct {
	disrupted  bool
	anyType    bool
	dtype      models.DisruptionType
	hours      map[int]bool // nil matches any night hour
	deepOnly   bool         // restrict to hours 0-3
	class      models.SeverityClass
	confidence float64
}

var nightTable = []nightRule{
	{disrupted: false, class: models.SeverityLight, confidence: 0.90},
	{disrupted: true, dtype: models.DisruptionRoadwork, deepOnly: true, class: models.SeverityLight, confidence: 0.80},
	{disrupted: true, dtype: models.DisruptionRoadwork, class: models.SeverityLight, confidence: 0.75},
	{disrupted: true, dtype: models.DisruptionAccident, deepOnly: true, class: models.SeverityLight, confidence: 0.75},
	{disrupted: true, dtype: models.DisruptionAccident, class: models.SeverityModerate, confidence: 0.70},
	{disrupted: true, dtype: models.DisruptionEvent, hours: map[int]bool{22: true, 23: true, 0: true, 1: true}, class: models.SeverityModerate, confidence: 0.70},
	{disrupted: true, dtype: models.DisruptionEvent, class: models.SeverityLight, confidence: 0.80},
	{disrupted: true, anyType: true, class: models.SeverityLight, confidence: 0.80},
}

func (r nightRule) matches(h models.ScenarioHour) bool {
	if r.disrupted != h.HasDisruption {
		return false
	}
	if r.disrupted && !r.anyType && r.dtype != h.DisruptionType {
		return false
	}
	if r.deepOnly && !deepNight(h.Hour) {
		return false
	}
	if r.hours != nil && !r.hours[h.Hour] {
		return false
	}
	return true
}

// nightResult answers an out-of-distribution hour from the table and
// builds a synthetic probability triple for the chosen class.
func nightResult(h models.ScenarioHour) models.SeverityResult {
	for _, rule := range nightTable {
		if rule.matches(h) {
			return models.SeverityResult{
				Class:         rule.class,
				Label:         rule.class.Label(),
				Confidence:    rule.confidence,
				Probabilities: syntheticProbs(rule.class, rule.confidence),
			}
		}
	}
	// Unreachable: the last row matches any disrupted hour and the first
	// any undisrupted one.
	return models.SeverityResult{Class: models.SeverityLight, Label: "Light", Confidence: 0.80,
		Probabilities: syntheticProbs(models.SeverityLight, 0.80)}
}

// syntheticProbs distributes the remaining mass with a fixed 70/30 skew
// toward the class adjacent to the chosen one.
func syntheticProbs(class models.SeverityClass, confidence float64) models.Probabilities {
	rest := 1 - confidence
	switch class {
	case models.SeverityHeavy:
		return models.Probabilities{Light: rest * 0.3, Moderate: rest * 0.7, Heavy: confidence}
	case models.SeverityModerate:
		return models.Probabilities{Light: rest * 0.7, Moderate: confidence, Heavy: rest * 0.3}
	default:
		return models.Probabilities{Light: confidence, Moderate: rest * 0.7, Heavy: rest * 0.3}
	}
}

// overrideRule post-processes an in-distribution prediction for a known
// edge pattern. Rules run in order; a later rule may overwrite an
// earlier one. Only the class label is rewritten: confidence and the
// probability triple are deliberately left as the scorer produced them,
// for parity with the trained pipeline.
type overrideRule struct {
	name    string
	applies func(h models.ScenarioHour, r models.SeverityResult) bool
	force   models.SeverityClass
}

var offPeakHours = map[int]bool{10: true, 11: true, 14: true, 15: true}
var rushHours = map[int]bool{7: true, 8: true, 17: true, 18: true}

var overrideRules = []overrideRule{
	{
		name: "offpeak_weekday_light",
		applies: func(h models.ScenarioHour, r models.SeverityResult) bool {
			weekday := h.Date.Weekday() != 0 && h.Date.Weekday() != 6
			return weekday && offPeakHours[h.Hour] && !h.HasDisruption && r.Probabilities.Light > 0.35
		},
		force: models.SeverityLight,
	},
	{
		name: "weekend_midday_light",
		applies: func(h models.ScenarioHour, r models.SeverityResult) bool {
			weekend := h.Date.Weekday() == 0 || h.Date.Weekday() == 6
			return weekend && h.Hour >= 10 && h.Hour <= 15 && !h.HasDisruption && r.Probabilities.Light > 0.30
		},
		force: models.SeverityLight,
	},
	{
		name: "rush_disruption_floor",
		applies: func(h models.ScenarioHour, r models.SeverityResult) bool {
			heavyType := h.DisruptionType == models.DisruptionRoadwork || h.DisruptionType == models.DisruptionAccident
			return rushHours[h.Hour] && heavyType && r.Class == models.SeverityLight
		},
		force: models.SeverityModerate,
	},
}
