package forecast

import (
	"fmt"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/mlopera/roadcast/internal/models"
)

// granularityFor selects the aggregation level from window duration
// alone. Monthly is reserved: window validation caps requests at 30
// days, so it is unreachable through the public API.
func granularityFor(d time.Duration) models.Granularity {
	switch {
	case d <= 24*time.Hour:
		return models.GranularityHourly
	case d <= 7*24*time.Hour:
		return models.GranularityDaily
	case d <= 30*24*time.Hour:
		return models.GranularityWeekly
	default:
		return models.GranularityMonthly
	}
}

// Aggregate rolls the hourly series into the aggregated view. Stateless:
// every call recomputes from the full series.
func Aggregate(hourly []models.HourlyPrediction, window models.TimeWindow) models.AggregatedView {
	g := granularityFor(window.Duration())
	view := models.AggregatedView{Granularity: g}

	switch g {
	case models.GranularityHourly:
		view.DisplayLabel = fmt.Sprintf("Hourly breakdown (%d hours)", len(hourly))
		for _, h := range hourly {
			view.Periods = append(view.Periods, hourPeriod(h))
		}
	case models.GranularityDaily:
		view.Periods = groupPeriods(hourly, func(h models.HourlyPrediction) string {
			return h.Timestamp.Format("2006-01-02")
		})
		view.DisplayLabel = fmt.Sprintf("Daily summary (%d days)", len(view.Periods))
	case models.GranularityWeekly:
		start := window.Start
		view.Periods = groupPeriods(hourly, func(h models.HourlyPrediction) string {
			week := int(h.Timestamp.Sub(start).Hours()) / (7 * 24)
			return fmt.Sprintf("Week %d", week+1)
		})
		view.DisplayLabel = fmt.Sprintf("Weekly summary (%d weeks)", len(view.Periods))
	default:
		// Reserved for windows beyond 30 days.
		view.DisplayLabel = "Monthly summary"
	}
	return view
}

// hourPeriod wraps a single hourly prediction as a pass-through period.
func hourPeriod(h models.HourlyPrediction) models.AggregatedPeriod {
	var breakdown models.SeverityBreakdown
	breakdown.Add(h.Severity.Class)
	return models.AggregatedPeriod{
		Label:             h.Timestamp.Format("2006-01-02 15:04"),
		Start:             h.Timestamp,
		End:               h.Timestamp,
		HourCount:         1,
		AvgSeverity:       float64(h.Severity.Class),
		AvgSeverityLabel:  h.Severity.Label,
		AvgDelayMin:       float64(h.Delay.AdditionalDelayMin),
		DominantSeverity:  h.Severity.Label,
		SeverityBreakdown: breakdown,
		PeakHours:         fmt.Sprintf("%02d:00", h.Hour),
		PeakSeverity:      float64(h.Severity.Class),
		PeakDelayMin:      float64(h.Delay.AdditionalDelayMin),
	}
}

// groupPeriods splits the ordered hourly series into contiguous runs
// sharing a key and summarises each run.
func groupPeriods(hourly []models.HourlyPrediction, keyOf func(models.HourlyPrediction) string) []models.AggregatedPeriod {
	var periods []models.AggregatedPeriod
	var run []models.HourlyPrediction
	var key string

	flush := func() {
		if len(run) > 0 {
			periods = append(periods, summarisePeriod(key, run))
			run = nil
		}
	}
	for _, h := range hourly {
		k := keyOf(h)
		if k != key {
			flush()
			key = k
		}
		run = append(run, h)
	}
	flush()
	return periods
}

func summarisePeriod(label string, hours []models.HourlyPrediction) models.AggregatedPeriod {
	severities := make([]float64, len(hours))
	delays := make([]float64, len(hours))
	var breakdown models.SeverityBreakdown
	for i, h := range hours {
		severities[i] = float64(h.Severity.Class)
		delays[i] = float64(h.Delay.AdditionalDelayMin)
		breakdown.Add(h.Severity.Class)
	}

	avgSev := stat.Mean(severities, nil)
	peakHours, peakSev, peakDelay := detectPeak(hours, severities, delays)

	return models.AggregatedPeriod{
		Label:             label,
		Start:             hours[0].Timestamp,
		End:               hours[len(hours)-1].Timestamp,
		HourCount:         len(hours),
		AvgSeverity:       round2(avgSev),
		AvgSeverityLabel:  models.ClassFromScore(avgSev).Label(),
		AvgDelayMin:       round1(stat.Mean(delays, nil)),
		DominantSeverity:  dominantSeverity(breakdown),
		SeverityBreakdown: breakdown,
		PeakHours:         peakHours,
		PeakSeverity:      peakSev,
		PeakDelayMin:      round1(peakDelay),
	}
}

// dominantSeverity picks the bucket with the most hours; ties keep the
// first of Light, Moderate, Heavy.
func dominantSeverity(b models.SeverityBreakdown) string {
	best := models.SeverityLight
	for _, c := range []models.SeverityClass{models.SeverityModerate, models.SeverityHeavy} {
		if b.Count(c) > b.Count(best) {
			best = c
		}
	}
	return best.Label()
}

// detectPeak selects every hour within 10% of the period's maximum
// severity as a peak hour and averages delay over exactly those hours.
func detectPeak(hours []models.HourlyPrediction, severities, delays []float64) (label string, peakSev, peakDelay float64) {
	maxSev := severities[0]
	for _, s := range severities[1:] {
		if s > maxSev {
			maxSev = s
		}
	}
	threshold := 0.9 * maxSev

	var peakIdx []int
	var peakDelays []float64
	for i, s := range severities {
		if s >= threshold {
			peakIdx = append(peakIdx, i)
			peakDelays = append(peakDelays, delays[i])
		}
	}
	return formatPeakHours(hours, peakIdx), maxSev, stat.Mean(peakDelays, nil)
}

// formatPeakHours renders the peak hours for display: a single hour, a
// short comma list, or a first-last range when more than three.
func formatPeakHours(hours []models.HourlyPrediction, idx []int) string {
	switch {
	case len(idx) == 0:
		return ""
	case len(idx) == 1:
		return fmt.Sprintf("%02d:00", hours[idx[0]].Hour)
	case len(idx) <= 3:
		out := ""
		for i, j := range idx {
			if i > 0 {
				out += ", "
			}
			out += fmt.Sprintf("%02d:00", hours[j].Hour)
		}
		return out
	default:
		return fmt.Sprintf("%02d:00-%02d:00", hours[idx[0]].Hour, hours[idx[len(idx)-1]].Hour)
	}
}
