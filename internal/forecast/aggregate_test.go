package forecast

import (
	"testing"
	"time"

	"github.com/mlopera/roadcast/internal/models"
)

func makeHour(date string, hour int, class models.SeverityClass, delayMin int) models.HourlyPrediction {
	d, err := time.Parse("2006-01-02", date)
	if err != nil {
		panic(err)
	}
	ts := d.Add(time.Duration(hour) * time.Hour)
	return models.HourlyPrediction{
		Timestamp: ts,
		Date:      ts.Format("2006-01-02"),
		Hour:      hour,
		DayOfWeek: ts.Weekday().String(),
		Severity: models.SeverityResult{
			Class: class,
			Label: class.Label(),
		},
		Delay: models.DelayResult{AdditionalDelayMin: delayMin},
	}
}

func TestGranularityFor(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want models.Granularity
	}{
		{12 * time.Hour, models.GranularityHourly},
		{24 * time.Hour, models.GranularityHourly},
		{25 * time.Hour, models.GranularityDaily},
		{7 * 24 * time.Hour, models.GranularityDaily},
		{8 * 24 * time.Hour, models.GranularityWeekly},
		{30 * 24 * time.Hour, models.GranularityWeekly},
		{31 * 24 * time.Hour, models.GranularityMonthly},
	}
	for _, tt := range tests {
		if got := granularityFor(tt.d); got != tt.want {
			t.Errorf("granularityFor(%v) = %v, want %v", tt.d, got, tt.want)
		}
	}
}

func TestAggregate_HourlyPassThrough(t *testing.T) {
	hourly := []models.HourlyPrediction{
		makeHour("2025-01-06", 9, models.SeverityLight, 1),
		makeHour("2025-01-06", 10, models.SeverityModerate, 4),
	}
	w := windowOf("2025-01-06 09:00", 1)

	view := Aggregate(hourly, w)
	if view.Granularity != models.GranularityHourly {
		t.Fatalf("granularity = %v, want hourly", view.Granularity)
	}
	if len(view.Periods) != 2 {
		t.Fatalf("periods = %d, want 2", len(view.Periods))
	}
	p := view.Periods[1]
	if p.HourCount != 1 || p.AvgSeverity != 1 || p.AvgDelayMin != 4 {
		t.Errorf("period = %+v, want single-hour pass-through", p)
	}
	if p.PeakHours != "10:00" {
		t.Errorf("PeakHours = %q, want 10:00", p.PeakHours)
	}
}

func TestAggregate_DailyGrouping(t *testing.T) {
	var hourly []models.HourlyPrediction
	for _, date := range []string{"2025-01-06", "2025-01-07", "2025-01-08"} {
		for h := 0; h < 24; h++ {
			hourly = append(hourly, makeHour(date, h, models.SeverityLight, 1))
		}
	}
	w := windowOf("2025-01-06 00:00", 71)

	view := Aggregate(hourly, w)
	if view.Granularity != models.GranularityDaily {
		t.Fatalf("granularity = %v, want daily", view.Granularity)
	}
	if len(view.Periods) != 3 {
		t.Fatalf("periods = %d, want 3", len(view.Periods))
	}
	for i, p := range view.Periods {
		if p.HourCount != 24 {
			t.Errorf("period %d: hours = %d, want 24", i, p.HourCount)
		}
	}
	if view.Periods[0].Label != "2025-01-06" {
		t.Errorf("label = %q, want 2025-01-06", view.Periods[0].Label)
	}
}

func TestAggregate_WeeklyGrouping(t *testing.T) {
	var hourly []models.HourlyPrediction
	start, _ := time.Parse("2006-01-02", "2025-01-06")
	for i := 0; i < 10*24; i++ {
		ts := start.Add(time.Duration(i) * time.Hour)
		h := makeHour(ts.Format("2006-01-02"), ts.Hour(), models.SeverityLight, 1)
		hourly = append(hourly, h)
	}
	w := models.TimeWindow{Start: start, End: start.Add(10 * 24 * time.Hour)}

	view := Aggregate(hourly, w)
	if view.Granularity != models.GranularityWeekly {
		t.Fatalf("granularity = %v, want weekly", view.Granularity)
	}
	if len(view.Periods) != 2 {
		t.Fatalf("periods = %d, want 2", len(view.Periods))
	}
	if view.Periods[0].Label != "Week 1" || view.Periods[1].Label != "Week 2" {
		t.Errorf("labels = %q, %q", view.Periods[0].Label, view.Periods[1].Label)
	}
	if view.Periods[0].HourCount != 168 {
		t.Errorf("week 1 hours = %d, want 168", view.Periods[0].HourCount)
	}
}

func TestSummarisePeriod_PeakDetection(t *testing.T) {
	hours := []models.HourlyPrediction{
		makeHour("2025-01-06", 6, models.SeverityLight, 1),
		makeHour("2025-01-06", 7, models.SeverityHeavy, 10),
		makeHour("2025-01-06", 8, models.SeverityHeavy, 14),
		makeHour("2025-01-06", 9, models.SeverityModerate, 4),
		makeHour("2025-01-06", 10, models.SeverityLight, 1),
	}

	p := summarisePeriod("2025-01-06", hours)
	if p.PeakSeverity != 2 {
		t.Errorf("PeakSeverity = %v, want 2", p.PeakSeverity)
	}
	// Only the two Heavy hours cross the 90%-of-max threshold; peak
	// delay averages over exactly those.
	if p.PeakHours != "07:00, 08:00" {
		t.Errorf("PeakHours = %q, want \"07:00, 08:00\"", p.PeakHours)
	}
	if p.PeakDelayMin != 12 {
		t.Errorf("PeakDelayMin = %v, want 12", p.PeakDelayMin)
	}
}

func TestSummarisePeriod_PeakHourFormats(t *testing.T) {
	single := []models.HourlyPrediction{
		makeHour("2025-01-06", 6, models.SeverityLight, 1),
		makeHour("2025-01-06", 7, models.SeverityHeavy, 10),
	}
	if p := summarisePeriod("d", single); p.PeakHours != "07:00" {
		t.Errorf("single peak = %q, want 07:00", p.PeakHours)
	}

	var spread []models.HourlyPrediction
	for h := 6; h <= 11; h++ {
		spread = append(spread, makeHour("2025-01-06", h, models.SeverityHeavy, 10))
	}
	if p := summarisePeriod("d", spread); p.PeakHours != "06:00-11:00" {
		t.Errorf("range peak = %q, want 06:00-11:00", p.PeakHours)
	}
}

func TestSummarisePeriod_UniformSeverity(t *testing.T) {
	// All hours tie at the maximum: every hour is a peak hour.
	hours := []models.HourlyPrediction{
		makeHour("2025-01-06", 6, models.SeverityModerate, 3),
		makeHour("2025-01-06", 7, models.SeverityModerate, 5),
	}
	p := summarisePeriod("d", hours)
	if p.PeakHours != "06:00, 07:00" {
		t.Errorf("PeakHours = %q, want both hours", p.PeakHours)
	}
	if p.PeakDelayMin != 4 {
		t.Errorf("PeakDelayMin = %v, want 4", p.PeakDelayMin)
	}
}

func TestDominantSeverity(t *testing.T) {
	tests := []struct {
		name string
		b    models.SeverityBreakdown
		want string
	}{
		{"moderate wins", models.SeverityBreakdown{Light: 2, Moderate: 5, Heavy: 1}, "Moderate"},
		{"heavy wins", models.SeverityBreakdown{Light: 1, Moderate: 2, Heavy: 3}, "Heavy"},
		{"tie keeps light", models.SeverityBreakdown{Light: 3, Moderate: 3, Heavy: 0}, "Light"},
		{"tie keeps moderate over heavy", models.SeverityBreakdown{Light: 0, Moderate: 2, Heavy: 2}, "Moderate"},
	}
	for _, tt := range tests {
		if got := dominantSeverity(tt.b); got != tt.want {
			t.Errorf("%s: dominantSeverity = %q, want %q", tt.name, got, tt.want)
		}
	}
}
