package features

import (
	"math"

	"github.com/mlopera/roadcast/internal/models"
)

// Vector is the encoder output: feature name to numeric value. Ordering
// is imposed later by Align, which must be given the classifier's trained
// column order.
type Vector map[string]float64

// Road corridors and areas the severity model was trained on. One-hot
// indicators are emitted for exactly these; anything else encodes as all
// zeros, which the model treats as "none of the known corridors".
var (
	Corridors = []string{"Calamba_Pagsanjan", "Maharlika_Parian", "Maharlika_Turbina"}
	Areas     = []string{"Bucal", "Parian", "Turbina"}
)

// holidays is the fixed PH holiday calendar the model was trained against.
var holidays = map[string]bool{
	"2024-01-01": true, "2024-04-09": true, "2024-05-01": true, "2024-06-12": true,
	"2024-08-26": true, "2024-11-01": true, "2024-11-30": true, "2024-12-25": true,
	"2024-12-30": true,
	"2025-01-01": true, "2025-04-18": true, "2025-05-01": true, "2025-06-12": true,
	"2025-08-25": true, "2025-11-01": true, "2025-11-30": true, "2025-12-25": true,
	"2025-12-30": true,
}

// IsHoliday reports whether the date is in the trained holiday calendar.
func IsHoliday(date string) bool {
	return holidays[date]
}

// TimeSegment returns morning/afternoon/night for an hour, using the
// same bands as the trained time-segment one-hots.
func TimeSegment(hour int) string {
	switch {
	case hour >= 6 && hour <= 11:
		return "morning"
	case hour >= 12 && hour <= 17:
		return "afternoon"
	default:
		return "night"
	}
}

// Encode turns a scenario-hour into the model's feature vector. Pure and
// deterministic: same input, same output, no I/O.
func Encode(h models.ScenarioHour) Vector {
	v := Vector{}
	hour := h.Hour
	dateKey := h.Date.Format("2006-01-02")

	// Python's pandas dayofweek is 0=Monday; time.Weekday is 0=Sunday.
	dow := (int(h.Date.Weekday()) + 6) % 7

	// Temporal features.
	v["hour"] = float64(hour)
	v["hour_sin"] = math.Sin(2 * math.Pi * float64(hour) / 24)
	v["hour_cos"] = math.Cos(2 * math.Pi * float64(hour) / 24)
	v["month"] = float64(h.Date.Month())
	v["day_of_month"] = float64(h.Date.Day())
	v["day_of_week_num"] = float64(dow)
	v["is_weekend"] = b2f(dow >= 5)
	v["is_friday"] = b2f(dow == 4)
	v["is_holiday"] = b2f(holidays[dateKey])

	morningRush := hour >= 6 && hour <= 9
	eveningRush := hour >= 16 && hour <= 19
	superPeak := hour == 7 || hour == 8 || hour == 17 || hour == 18
	workday := dow < 5 && !holidays[dateKey]
	v["is_rush_hour"] = b2f(morningRush || eveningRush)
	v["is_morning_rush"] = b2f(morningRush)
	v["is_evening_rush"] = b2f(eveningRush)
	v["is_super_peak"] = b2f(superPeak)
	v["is_workday"] = b2f(workday)

	// Traffic volume hint.
	v["total_volume"] = h.TotalVolume

	// Disruption flags.
	v["has_disruption"] = b2f(h.HasDisruption)
	v["has_roadwork"] = b2f(h.DisruptionType == models.DisruptionRoadwork)
	v["has_incident"] = b2f(h.DisruptionType == models.DisruptionIncident)
	v["has_accident"] = b2f(h.DisruptionType == models.DisruptionAccident)
	v["has_weather"] = b2f(h.DisruptionType == models.DisruptionWeather)
	v["has_event"] = b2f(h.DisruptionType == models.DisruptionEvent)

	// Data quality flags.
	v["has_real_status"] = b2f(h.HasLiveStatus)
	v["has_imputed_status"] = 1 - v["has_real_status"]
	v["has_volume_data"] = b2f(h.TotalVolume > 0)
	v["data_completeness_score"] = v["has_real_status"] + v["has_volume_data"] + v["has_disruption"]

	// One-hot corridor, area and time segment.
	for _, road := range Corridors {
		v["road_"+road] = b2f(h.RoadCorridor == road)
	}
	for _, area := range Areas {
		v["area_"+area] = b2f(h.Area == area)
	}
	segment := TimeSegment(hour)
	v["time_morning"] = b2f(segment == "morning")
	v["time_afternoon"] = b2f(segment == "afternoon")
	v["time_night"] = b2f(segment == "night")

	// Pairwise interaction terms. The catalogue is fixed: it must match
	// what the severity model was trained against, so additions here
	// require a retrained artifact.
	v["rush_hour_with_disruption"] = v["is_rush_hour"] * v["has_disruption"]
	v["weekend_event"] = v["is_weekend"] * v["has_event"]
	v["morning_rush_roadwork"] = v["is_morning_rush"] * v["has_roadwork"]
	v["evening_rush_roadwork"] = v["is_evening_rush"] * v["has_roadwork"]
	v["holiday_disruption"] = v["is_holiday"] * v["has_disruption"]
	v["workday_morning_rush"] = v["is_workday"] * v["is_morning_rush"]
	v["workday_evening_rush"] = v["is_workday"] * v["is_evening_rush"]
	for _, road := range Corridors {
		v["road_"+road+"_rush"] = v["road_"+road] * v["is_rush_hour"]
	}
	for _, area := range Areas {
		v["area_"+area+"_morning"] = v["area_"+area] * v["is_morning_rush"]
		v["area_"+area+"_disruption"] = v["area_"+area] * v["has_disruption"]
	}
	v["morning_roadwork"] = v["time_morning"] * v["has_roadwork"]
	v["morning_accident"] = v["time_morning"] * v["has_accident"]
	v["afternoon_event"] = v["time_afternoon"] * v["has_event"]
	v["night_incident"] = v["time_night"] * v["has_incident"]
	v["friday_rush"] = v["is_friday"] * v["is_rush_hour"]
	v["super_peak_disruption"] = v["is_super_peak"] * v["has_disruption"]
	v["super_peak_roadwork"] = v["is_super_peak"] * v["has_roadwork"]

	return v
}

// Align orders the vector to the classifier's trained column order.
// Names the classifier expects but the encoder did not produce are filled
// with zero; names the encoder produced but the classifier does not know
// are dropped.
func (v Vector) Align(order []string) []float64 {
	out := make([]float64, len(order))
	for i, name := range order {
		out[i] = v[name]
	}
	return out
}

func b2f(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
