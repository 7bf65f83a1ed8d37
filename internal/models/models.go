package models

import (
	"time"
)

// DisruptionType identifies the kind of road disruption being simulated.
type DisruptionType string

const (
	DisruptionNone     DisruptionType = ""
	DisruptionRoadwork DisruptionType = "roadwork"
	DisruptionIncident DisruptionType = "incident"
	DisruptionAccident DisruptionType = "accident"
	DisruptionWeather  DisruptionType = "weather"
	DisruptionEvent    DisruptionType = "event"
)

// KnownDisruptionTypes are the types the impact tables were calibrated for.
// Anything else resolves through the default-factor path.
var KnownDisruptionTypes = []DisruptionType{
	DisruptionRoadwork,
	DisruptionIncident,
	DisruptionAccident,
	DisruptionWeather,
	DisruptionEvent,
}

type SeverityClass int

const (
	SeverityLight    SeverityClass = 0
	SeverityModerate SeverityClass = 1
	SeverityHeavy    SeverityClass = 2
)

func (c SeverityClass) Label() string {
	switch c {
	case SeverityModerate:
		return "Moderate"
	case SeverityHeavy:
		return "Heavy"
	default:
		return "Light"
	}
}

// ClassFromScore buckets a continuous 0-3 severity score into the
// three classes at the 0.5 / 1.5 boundaries.
func ClassFromScore(score float64) SeverityClass {
	switch {
	case score < 0.5:
		return SeverityLight
	case score < 1.5:
		return SeverityModerate
	default:
		return SeverityHeavy
	}
}

type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// TimeWindow is the requested forecast span. End is inclusive at hour
// resolution: a window of 09:00-17:00 yields nine hourly predictions.
type TimeWindow struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

func (w TimeWindow) Duration() time.Duration {
	return w.End.Sub(w.Start)
}

// Hours returns the number of whole hours covered, start and end inclusive.
func (w TimeWindow) Hours() int {
	if w.End.Before(w.Start) {
		return 0
	}
	return int(w.End.Sub(w.Start).Hours()) + 1
}

// Scenario describes one disruption to forecast. Immutable input; the
// engine derives a ScenarioHour from it for every hour in the window.
type Scenario struct {
	Area           string         `json:"area"`
	RoadCorridor   string         `json:"road_corridor"`
	DisruptionType DisruptionType `json:"disruption_type"`
	Coordinates    LatLng         `json:"coordinates"`
	TotalVolume    float64        `json:"total_volume,omitempty"`
	HasLiveStatus  bool           `json:"has_live_status,omitempty"`
	Description    string         `json:"description,omitempty"`
}

func (s Scenario) HasDisruption() bool {
	return s.DisruptionType != DisruptionNone
}

// ScenarioHour is the point-in-time encoding input: the scenario pinned
// to one calendar hour.
type ScenarioHour struct {
	Date           time.Time
	Hour           int
	Area           string
	RoadCorridor   string
	HasDisruption  bool
	DisruptionType DisruptionType
	TotalVolume    float64
	HasLiveStatus  bool
}

type Probabilities struct {
	Light    float64 `json:"light"`
	Moderate float64 `json:"moderate"`
	Heavy    float64 `json:"heavy"`
}

// Sum is used by tests to check the triple is normalised.
func (p Probabilities) Sum() float64 {
	return p.Light + p.Moderate + p.Heavy
}

type SeverityResult struct {
	Class         SeverityClass `json:"severity"`
	Label         string        `json:"severity_label"`
	Confidence    float64       `json:"confidence"`
	Probabilities Probabilities `json:"probabilities"`
}

// RoadProfile carries the physical road attributes and the derived
// capacity/impact figures. Computed once per scenario, reused per hour.
type RoadProfile struct {
	RoadType          string                     `json:"road_type"`
	Lanes             int                        `json:"lanes"`
	LengthKm          float64                    `json:"length_km"`
	FreeFlowSpeedKmh  float64                    `json:"free_flow_speed_kmh"`
	FreeFlowTimeMin   float64                    `json:"free_flow_time_minutes"`
	LaneCapacity      int                        `json:"lane_capacity"`
	TotalCapacity     int                        `json:"total_capacity"`
	DisruptionFactors map[DisruptionType]float64 `json:"disruption_factors"`
	Geometry          []LatLng                   `json:"geometry,omitempty"`
}

type DelayResult struct {
	BaseTravelTimeMin     float64 `json:"base_travel_time_min"`
	ExpectedTravelTimeMin float64 `json:"expected_travel_time_min"`
	AdditionalDelayMin    int     `json:"additional_delay_min"`
	DelayPercentage       float64 `json:"delay_percentage"`
	NormalSpeedKmh        float64 `json:"normal_speed_kmh"`
	ReducedSpeedKmh       float64 `json:"reduced_speed_kmh"`
	SpeedReductionKmh     float64 `json:"speed_reduction_kmh"`
	VolumeCapacityRatio   float64 `json:"volume_capacity_ratio"`
	TravelTimeMultiplier  float64 `json:"travel_time_multiplier"`
	RealtimeAdjusted      bool    `json:"realtime_adjusted"`
}

type HourlyPrediction struct {
	Timestamp time.Time      `json:"timestamp"`
	Date      string         `json:"date"`
	Hour      int            `json:"hour"`
	DayOfWeek string         `json:"day_of_week"`
	Severity  SeverityResult `json:"prediction"`
	Delay     DelayResult    `json:"delay_info"`
}

type SeverityBreakdown struct {
	Light    int `json:"Light"`
	Moderate int `json:"Moderate"`
	Heavy    int `json:"Heavy"`
}

func (b *SeverityBreakdown) Add(c SeverityClass) {
	switch c {
	case SeverityModerate:
		b.Moderate++
	case SeverityHeavy:
		b.Heavy++
	default:
		b.Light++
	}
}

func (b SeverityBreakdown) Count(c SeverityClass) int {
	switch c {
	case SeverityModerate:
		return b.Moderate
	case SeverityHeavy:
		return b.Heavy
	default:
		return b.Light
	}
}

// AggregatedPeriod is one daily or weekly roll-up of hourly predictions.
type AggregatedPeriod struct {
	Label             string            `json:"label"`
	Start             time.Time         `json:"start"`
	End               time.Time         `json:"end"`
	HourCount         int               `json:"hour_count"`
	AvgSeverity       float64           `json:"avg_severity"`
	AvgSeverityLabel  string            `json:"avg_severity_label"`
	AvgDelayMin       float64           `json:"avg_delay_minutes"`
	DominantSeverity  string            `json:"dominant_severity"`
	SeverityBreakdown SeverityBreakdown `json:"severity_breakdown"`
	PeakHours         string            `json:"peak_hours"`
	PeakSeverity      float64           `json:"peak_severity"`
	PeakDelayMin      float64           `json:"peak_delay_minutes"`
}

type Granularity string

const (
	GranularityHourly  Granularity = "hourly"
	GranularityDaily   Granularity = "daily"
	GranularityWeekly  Granularity = "weekly"
	GranularityMonthly Granularity = "monthly"
)

type AggregatedView struct {
	Granularity  Granularity        `json:"granularity"`
	DisplayLabel string             `json:"display_label"`
	Periods      []AggregatedPeriod `json:"map_data"`
}

// PathSource records which tier of the geometry fallback produced a
// severity line's coordinate path.
type PathSource string

const (
	PathFromSegment   PathSource = "segment"
	PathSynthetic     PathSource = "synthetic"
	PathDefaultanchor PathSource = "default"
)

// SeverityLine is one map-renderable record: a coordinate path paired
// with severity and delay for a single time period. The path is an owned
// copy, never a reference into a RoadProfile.
type SeverityLine struct {
	Period        string     `json:"period"`
	SeverityLevel string     `json:"severity_level"`
	SeverityValue float64    `json:"severity_value"`
	DelayMin      float64    `json:"delay_minutes"`
	Path          []LatLng   `json:"path"`
	PathSource    PathSource `json:"path_source"`
}

type TimeSegmentCounts struct {
	Light    int `json:"light"`
	Moderate int `json:"moderate"`
	Heavy    int `json:"heavy"`
}

type TimeSegments struct {
	Morning   TimeSegmentCounts `json:"morning"`
	Afternoon TimeSegmentCounts `json:"afternoon"`
	Night     TimeSegmentCounts `json:"night"`
}

type Summary struct {
	TotalHours         int     `json:"total_hours"`
	DurationDays       float64 `json:"duration_days"`
	LightHours         int     `json:"light_hours"`
	ModerateHours      int     `json:"moderate_hours"`
	HeavyHours         int     `json:"heavy_hours"`
	LightPercentage    float64 `json:"light_percentage"`
	ModeratePercentage float64 `json:"moderate_percentage"`
	HeavyPercentage    float64 `json:"heavy_percentage"`
	AvgSeverity        float64 `json:"avg_severity"`
	AvgSeverityLabel   string  `json:"avg_severity_label"`
	AvgDelayMin        float64 `json:"avg_delay_minutes"`
	TotalDelayHours    float64 `json:"total_delay_hours"`
}

// RoadSegment is an imported road-network segment: the physical
// attributes and geometry for one covered corridor.
type RoadSegment struct {
	Corridor    string   `json:"corridor"`
	Area        string   `json:"area"`
	RoadName    string   `json:"road_name"`
	RoadType    string   `json:"road_type"`
	Lanes       int      `json:"lanes"`
	LengthKm    float64  `json:"length_km"`
	MaxSpeedKmh float64  `json:"max_speed"`
	Geometry    []LatLng `json:"geometry,omitempty"`
}

// RealtimeStatus reports how the live-traffic signal was (or was not)
// used for a forecast, for caller transparency.
type RealtimeStatus struct {
	Enabled      bool    `json:"enabled"`
	CurrentSpeed float64 `json:"current_speed,omitempty"`
	SpeedRatio   float64 `json:"speed_ratio,omitempty"`
	Timestamp    string  `json:"timestamp,omitempty"`
	Reason       string  `json:"reason,omitempty"`
}

// ForecastResult is the full engine output for one scenario and window.
type ForecastResult struct {
	Hourly       []HourlyPrediction `json:"hourly_predictions"`
	Summary      Summary            `json:"summary"`
	TimeSegments TimeSegments       `json:"time_segments"`
	Aggregated   AggregatedView     `json:"aggregated_view"`
	Lines        []SeverityLine     `json:"severity_lines"`
	Realtime     RealtimeStatus     `json:"realtime_integration"`
}
