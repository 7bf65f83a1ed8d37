// Package delay converts a severity prediction into expected travel time
// using a BPR-style congestion-flow model.
package delay

import (
	"math"

	"github.com/mlopera/roadcast/internal/models"
)

// Standard Bureau of Public Roads parameters.
const (
	bprAlpha = 0.15
	bprBeta  = 4
)

// Hypercongestion slope: minutes of multiplier per unit of v/c beyond
// saturation. The plain BPR curve understates delay once demand exceeds
// capacity.
const hyperSlope = 2.5

// Live-signal blending weights: 70% model, 30% observed conditions.
const (
	modelWeight = 0.7
	liveWeight  = 0.3
)

// Discrete severity classes anchor to fixed v/c ratios.
var classAnchors = [3]float64{0.55, 0.82, 1.08}

// Input describes one delay estimation. LiveSpeedRatio is
// current/free-flow speed; nil means no live signal for this hour.
type Input struct {
	SeverityScore     float64 // continuous 0-3 scale
	Discrete          bool    // use the class anchor instead of the score bands
	Class             models.SeverityClass
	BaseTravelTimeMin float64
	RoadLengthKm      float64
	ImpactFactor      float64
	LiveSpeedRatio    *float64
}

// VolumeCapacityRatio maps a continuous severity score to a v/c ratio.
// Monotonically non-decreasing in the score.
func VolumeCapacityRatio(score float64) float64 {
	switch {
	case score < 0:
		return 0.40
	case score < 0.5:
		return 0.40 + (score/0.5)*0.30
	case score < 1.5:
		return 0.70 + (score-0.5)*0.25
	default:
		return math.Min(1.20, 0.95+(score-1.5)/1.5*0.25)
	}
}

// TravelTimeMultiplier applies the BPR power function, switching to the
// linear hypercongestion extension past saturation. Monotonically
// non-decreasing in the ratio.
func TravelTimeMultiplier(vcRatio float64) float64 {
	if vcRatio <= 1.0 {
		return 1 + bprAlpha*math.Pow(vcRatio, bprBeta)
	}
	return 1 + bprAlpha + (vcRatio-1)*hyperSlope
}

// Estimate computes the full delay result for one hour.
func Estimate(in Input) models.DelayResult {
	base := in.BaseTravelTimeMin
	if base <= 0 {
		base = 10
	}
	lengthKm := in.RoadLengthKm
	if lengthKm <= 0 {
		lengthKm = 1.0
	}

	score := in.SeverityScore
	var vc float64
	if in.Discrete {
		vc = classAnchors[in.Class]
		score = float64(in.Class)
	} else {
		vc = VolumeCapacityRatio(score)
	}

	// Disruption removes capacity, which inflates effective demand.
	vc *= 1 + in.ImpactFactor*0.5

	multiplier := TravelTimeMultiplier(vc)

	adjusted := in.LiveSpeedRatio != nil
	if adjusted {
		multiplier = modelWeight*multiplier + liveWeight*(2-*in.LiveSpeedRatio)
		multiplier = math.Max(1.0, math.Min(multiplier, 3.0))
	}

	expected := base * multiplier
	delayMin := int(math.Round(expected - base))
	if floor := delayFloor(score); delayMin < floor {
		delayMin = floor
	}

	normalSpeed := lengthKm / base * 60
	reducedSpeed := lengthKm / expected * 60
	if adjusted && *in.LiveSpeedRatio > 0 {
		reducedSpeed = math.Max(5, reducedSpeed**in.LiveSpeedRatio)
	}

	return models.DelayResult{
		BaseTravelTimeMin:     round1(base),
		ExpectedTravelTimeMin: round1(expected),
		AdditionalDelayMin:    delayMin,
		DelayPercentage:       round1((expected - base) / base * 100),
		NormalSpeedKmh:        round1(normalSpeed),
		ReducedSpeedKmh:       round1(reducedSpeed),
		SpeedReductionKmh:     round1(normalSpeed - reducedSpeed),
		VolumeCapacityRatio:   vc,
		TravelTimeMultiplier:  multiplier,
		RealtimeAdjusted:      adjusted,
	}
}

// delayFloor is the minimum reportable delay per severity tier: even a
// light disruption is never displayed as zero-cost.
func delayFloor(score float64) int {
	switch {
	case score < 0.5:
		return 1
	case score < 1.5:
		return 2
	default:
		return 5
	}
}

func round1(f float64) float64 {
	return math.Round(f*10) / 10
}
