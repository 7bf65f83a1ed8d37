// Package road derives per-road capacity and disruption impact factors
// from physical attributes. Everything here is pure arithmetic computed
// once per scenario.
package road

import (
	"math"

	"github.com/mlopera/roadcast/internal/models"
)

// HCM-style base ideal capacity in passenger cars per hour per lane.
const baseIdealCapacity = 2400

// Urban-regional context: capacities observed on the covered corridors
// run below ideal HCM conditions.
const regionalFactor = 0.85

// DefaultImpact is used when a disruption type has no calibrated factor.
const DefaultImpact = 0.6

// speedBands adjust capacity by free-flow speed. Evaluated top-down,
// first threshold met wins.
var speedBands = []struct {
	minSpeed float64
	factor   float64
}{
	{100, 1.00},
	{80, 0.92},
	{60, 0.84},
	{40, 0.74},
	{0, 0.62},
}

// roadTypeFactors adjust capacity by functional class.
var roadTypeFactors = map[string]float64{
	"motorway":    1.00,
	"trunk":       0.95,
	"primary":     0.90,
	"secondary":   0.80,
	"tertiary":    0.70,
	"residential": 0.55,
}

const defaultRoadTypeFactor = 0.70

// baseImpacts is the calibrated impact ratio per disruption type: the
// fraction of effective capacity a disruption of that kind removes
// before road-specific adjustments.
var baseImpacts = map[models.DisruptionType]float64{
	models.DisruptionRoadwork: 0.60,
	models.DisruptionAccident: 0.40,
	models.DisruptionEvent:    0.70,
	models.DisruptionWeather:  0.80,
}

// importance scales impact by how critical the road class is to the
// network. Unknown classes take the default.
var importance = map[string]float64{
	"motorway":  1.20,
	"trunk":     1.10,
	"primary":   1.00,
	"secondary": 0.90,
	"tertiary":  0.80,
}

const defaultImportance = 0.90

// Attributes are the raw road characteristics, as supplied by the
// road-geometry collaborator (OSM-derived in practice).
type Attributes struct {
	RoadType    string          `json:"road_type"`
	Lanes       int             `json:"lanes"`
	LengthKm    float64         `json:"length_km"`
	MaxSpeedKmh float64         `json:"max_speed"`
	Geometry    []models.LatLng `json:"geometry,omitempty"`
}

// LaneCapacity computes vehicles/hour/lane for a road class and
// free-flow speed, floored to an integer.
func LaneCapacity(roadType string, freeFlowSpeedKmh float64) int {
	speedFactor := speedBands[len(speedBands)-1].factor
	for _, band := range speedBands {
		if freeFlowSpeedKmh >= band.minSpeed {
			speedFactor = band.factor
			break
		}
	}
	typeFactor, ok := roadTypeFactors[roadType]
	if !ok {
		typeFactor = defaultRoadTypeFactor
	}
	return int(baseIdealCapacity * speedFactor * typeFactor * regionalFactor)
}

// laneClosureFactor models an "n-1 lanes blocked" closure. A single-lane
// road is fully blocked; wider roads retain proportionally more
// throughput, approaching 1-1/sqrt(n) from five lanes up.
func laneClosureFactor(lanes int) float64 {
	switch {
	case lanes <= 1:
		return 1.00
	case lanes == 2:
		return 0.60
	case lanes == 3:
		return 0.73
	case lanes == 4:
		return 0.80
	default:
		return 1 - 1/math.Sqrt(float64(lanes))
	}
}

// lengthFactor grows impact with segment length: short works are easier
// to route around, long ones less so, with square-root growth beyond
// 2 km capped at 1.30.
func lengthFactor(lengthKm float64) float64 {
	switch {
	case lengthKm < 1:
		return 0.95
	case lengthKm <= 2:
		return 1.00
	default:
		return math.Min(1.30, 1+0.15*math.Sqrt(lengthKm-2))
	}
}

// ImpactFactors computes the per-disruption-type impact factors for a
// road. Types without a calibrated base ratio are omitted; callers fall
// back to DefaultImpact for those.
func ImpactFactors(lanes int, lengthKm float64, roadType string) map[models.DisruptionType]float64 {
	imp, ok := importance[roadType]
	if !ok {
		imp = defaultImportance
	}
	closure := laneClosureFactor(lanes)
	length := lengthFactor(lengthKm)

	factors := make(map[models.DisruptionType]float64, len(baseImpacts))
	for dtype, base := range baseImpacts {
		factors[dtype] = base * closure * length * imp
	}
	return factors
}

// BuildProfile derives the full road profile from raw attributes.
func BuildProfile(attrs Attributes) models.RoadProfile {
	lanes := attrs.Lanes
	if lanes < 1 {
		lanes = 1
	}
	lengthKm := attrs.LengthKm
	if lengthKm <= 0 {
		lengthKm = 1.0
	}
	speed := attrs.MaxSpeedKmh
	if speed <= 0 {
		speed = 40
	}

	laneCap := LaneCapacity(attrs.RoadType, speed)
	return models.RoadProfile{
		RoadType:          attrs.RoadType,
		Lanes:             lanes,
		LengthKm:          lengthKm,
		FreeFlowSpeedKmh:  speed,
		FreeFlowTimeMin:   lengthKm / speed * 60,
		LaneCapacity:      laneCap,
		TotalCapacity:     laneCap * lanes,
		DisruptionFactors: ImpactFactors(lanes, lengthKm, attrs.RoadType),
		Geometry:          append([]models.LatLng(nil), attrs.Geometry...),
	}
}

// ImpactFor resolves the impact factor for one disruption type,
// defaulting for unknown or uncalibrated types so a forecast is still
// produced with degraded specificity.
func ImpactFor(profile models.RoadProfile, dtype models.DisruptionType) float64 {
	if f, ok := profile.DisruptionFactors[dtype]; ok {
		return f
	}
	return DefaultImpact
}
