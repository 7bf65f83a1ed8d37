package forecast

import (
	"github.com/mlopera/roadcast/internal/models"
)

// severityLines emits one map-renderable record per aggregated period
// (or per hour at hourly granularity). Each line carries its own copy
// of the resolved coordinate path: lines outlive the request-scoped
// profile and must stay drawable on their own.
func (e *Engine) severityLines(view models.AggregatedView, hourly []models.HourlyPrediction, scenario models.Scenario, profile models.RoadProfile) []models.SeverityLine {
	lines := make([]models.SeverityLine, 0, len(view.Periods))
	for _, p := range view.Periods {
		path, source := e.resolvePath(scenario, profile)
		lines = append(lines, models.SeverityLine{
			Period:        p.Label,
			SeverityLevel: p.AvgSeverityLabel,
			SeverityValue: p.AvgSeverity,
			DelayMin:      p.AvgDelayMin,
			Path:          path,
			PathSource:    source,
		})
	}
	return lines
}

// resolvePath prefers geometry already attached to the road profile,
// then falls through the resolver's tiers.
func (e *Engine) resolvePath(scenario models.Scenario, profile models.RoadProfile) ([]models.LatLng, models.PathSource) {
	if len(profile.Geometry) >= 2 {
		return append([]models.LatLng(nil), profile.Geometry...), models.PathFromSegment
	}
	return e.resolver.ResolvePath(scenario.Area, scenario.RoadCorridor, scenario.Coordinates)
}
