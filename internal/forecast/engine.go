// Package forecast runs the congestion forecast for one disruption
// scenario: hourly severity and delay over the requested window, rolled
// up into a granularity-appropriate aggregated view with map-ready
// severity lines.
package forecast

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/mlopera/roadcast/internal/delay"
	"github.com/mlopera/roadcast/internal/geometry"
	"github.com/mlopera/roadcast/internal/metrics"
	"github.com/mlopera/roadcast/internal/models"
	"github.com/mlopera/roadcast/internal/realtime"
	"github.com/mlopera/roadcast/internal/road"
	"github.com/mlopera/roadcast/internal/severity"
)

const maxWindowHours = 720 // 30 days

var (
	ErrMissingArea     = errors.New("scenario area is required")
	ErrMissingCorridor = errors.New("scenario road corridor is required")
	ErrBadCoordinates  = errors.New("scenario coordinates are missing or invalid")
	ErrEndBeforeStart  = errors.New("window end must be after start")
	ErrWindowTooShort  = errors.New("window must cover at least one hour")
	ErrWindowTooLong   = fmt.Errorf("window must not exceed %d hours", maxWindowHours)
	ErrEmptySeries     = errors.New("no hourly predictions produced for window")
)

// Engine computes forecasts. It holds only read-only collaborators and
// is safe for concurrent use; every forecast is computed from scratch
// with no state carried between requests.
type Engine struct {
	classifier *severity.Classifier
	policy     *realtime.Policy
	resolver   *geometry.Resolver
	now        func() time.Time
}

func NewEngine(classifier *severity.Classifier, policy *realtime.Policy, resolver *geometry.Resolver, now func() time.Time) *Engine {
	if now == nil {
		now = time.Now
	}
	return &Engine{classifier: classifier, policy: policy, resolver: resolver, now: now}
}

// Validate checks a request before any computation is attempted.
func Validate(scenario models.Scenario, window models.TimeWindow) error {
	if err := validateScenario(scenario); err != nil {
		return err
	}
	if !window.End.After(window.Start) {
		return ErrEndBeforeStart
	}
	d := window.Duration()
	if d < time.Hour {
		return ErrWindowTooShort
	}
	if d > maxWindowHours*time.Hour {
		return ErrWindowTooLong
	}
	return nil
}

func validateScenario(scenario models.Scenario) error {
	if scenario.Area == "" {
		return ErrMissingArea
	}
	if scenario.RoadCorridor == "" {
		return ErrMissingCorridor
	}
	c := scenario.Coordinates
	if (c.Lat == 0 && c.Lng == 0) || c.Lat < -90 || c.Lat > 90 || c.Lng < -180 || c.Lng > 180 {
		return ErrBadCoordinates
	}
	return nil
}

// Predict computes severity and delay for a single point in time,
// without the window roll-ups a full forecast carries.
func (e *Engine) Predict(scenario models.Scenario, profile models.RoadProfile, ts time.Time) (*models.HourlyPrediction, error) {
	if err := validateScenario(scenario); err != nil {
		return nil, err
	}

	sig := e.policy.Evaluate(ts, scenario.Coordinates)
	impact := road.ImpactFor(profile, scenario.DisruptionType)

	sev := e.classifier.Predict(models.ScenarioHour{
		Date:           ts,
		Hour:           ts.Hour(),
		Area:           scenario.Area,
		RoadCorridor:   scenario.RoadCorridor,
		HasDisruption:  scenario.HasDisruption(),
		DisruptionType: scenario.DisruptionType,
		TotalVolume:    scenario.TotalVolume,
		HasLiveStatus:  scenario.HasLiveStatus,
	})
	d := delay.Estimate(delay.Input{
		Discrete:          true,
		Class:             sev.Class,
		BaseTravelTimeMin: profile.FreeFlowTimeMin,
		RoadLengthKm:      profile.LengthKm,
		ImpactFactor:      impact,
		LiveSpeedRatio:    e.policy.LiveRatioFor(sig, ts),
	})

	return &models.HourlyPrediction{
		Timestamp: ts,
		Date:      ts.Format("2006-01-02"),
		Hour:      ts.Hour(),
		DayOfWeek: ts.Weekday().String(),
		Severity:  sev,
		Delay:     d,
	}, nil
}

// Forecast runs the full pipeline for one scenario, road profile and
// time window.
func (e *Engine) Forecast(scenario models.Scenario, profile models.RoadProfile, window models.TimeWindow) (*models.ForecastResult, error) {
	if err := Validate(scenario, window); err != nil {
		return nil, err
	}
	started := time.Now()

	// One live-data decision and at most one fetch per scenario.
	sig := e.policy.Evaluate(window.Start, scenario.Coordinates)

	impact := road.ImpactFor(profile, scenario.DisruptionType)

	var hourly []models.HourlyPrediction
	for ts := window.Start; !ts.After(window.End); ts = ts.Add(time.Hour) {
		h := models.ScenarioHour{
			Date:           ts,
			Hour:           ts.Hour(),
			Area:           scenario.Area,
			RoadCorridor:   scenario.RoadCorridor,
			HasDisruption:  scenario.HasDisruption(),
			DisruptionType: scenario.DisruptionType,
			TotalVolume:    scenario.TotalVolume,
			HasLiveStatus:  scenario.HasLiveStatus,
		}
		sev := e.classifier.Predict(h)

		d := delay.Estimate(delay.Input{
			Discrete:          true,
			Class:             sev.Class,
			BaseTravelTimeMin: profile.FreeFlowTimeMin,
			RoadLengthKm:      profile.LengthKm,
			ImpactFactor:      impact,
			LiveSpeedRatio:    e.policy.LiveRatioFor(sig, ts),
		})

		hourly = append(hourly, models.HourlyPrediction{
			Timestamp: ts,
			Date:      ts.Format("2006-01-02"),
			Hour:      ts.Hour(),
			DayOfWeek: ts.Weekday().String(),
			Severity:  sev,
			Delay:     d,
		})
	}
	if len(hourly) == 0 {
		return nil, ErrEmptySeries
	}

	aggregated := Aggregate(hourly, window)
	result := &models.ForecastResult{
		Hourly:       hourly,
		Summary:      buildSummary(hourly, window),
		TimeSegments: buildTimeSegments(hourly),
		Aggregated:   aggregated,
		Lines:        e.severityLines(aggregated, hourly, scenario, profile),
		Realtime:     realtimeStatus(sig),
	}

	metrics.ForecastsComputed.Inc()
	metrics.ForecastDuration.Observe(time.Since(started).Seconds())
	return result, nil
}

func realtimeStatus(sig realtime.Signal) models.RealtimeStatus {
	status := models.RealtimeStatus{Reason: sig.Reason}
	if sig.State == realtime.StateApplied && sig.Flow != nil {
		status.Enabled = true
		status.CurrentSpeed = sig.Flow.CurrentSpeed
		status.SpeedRatio = sig.Flow.SpeedRatio()
		status.Timestamp = sig.Flow.Timestamp.Format(time.RFC3339)
		status.Reason = ""
	}
	return status
}

func buildSummary(hourly []models.HourlyPrediction, window models.TimeWindow) models.Summary {
	total := len(hourly)
	var breakdown models.SeverityBreakdown
	var sevSum, delaySum float64
	for _, h := range hourly {
		breakdown.Add(h.Severity.Class)
		sevSum += float64(h.Severity.Class)
		delaySum += float64(h.Delay.AdditionalDelayMin)
	}
	avgSev := sevSum / float64(total)

	return models.Summary{
		TotalHours:         total,
		DurationDays:       round1(window.Duration().Hours() / 24),
		LightHours:         breakdown.Light,
		ModerateHours:      breakdown.Moderate,
		HeavyHours:         breakdown.Heavy,
		LightPercentage:    round1(float64(breakdown.Light) / float64(total) * 100),
		ModeratePercentage: round1(float64(breakdown.Moderate) / float64(total) * 100),
		HeavyPercentage:    round1(float64(breakdown.Heavy) / float64(total) * 100),
		AvgSeverity:        round2(avgSev),
		AvgSeverityLabel:   models.ClassFromScore(avgSev).Label(),
		AvgDelayMin:        round1(delaySum / float64(total)),
		TotalDelayHours:    round1(delaySum / 60),
	}
}

func buildTimeSegments(hourly []models.HourlyPrediction) models.TimeSegments {
	var segs models.TimeSegments
	for _, h := range hourly {
		var counts *models.TimeSegmentCounts
		switch {
		case h.Hour >= 6 && h.Hour <= 11:
			counts = &segs.Morning
		case h.Hour >= 12 && h.Hour <= 17:
			counts = &segs.Afternoon
		default:
			counts = &segs.Night
		}
		switch h.Severity.Class {
		case models.SeverityModerate:
			counts.Moderate++
		case models.SeverityHeavy:
			counts.Heavy++
		default:
			counts.Light++
		}
	}
	return segs
}

func round1(f float64) float64 {
	return math.Round(f*10) / 10
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}
