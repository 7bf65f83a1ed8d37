package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mlopera/roadcast/internal/models"
)

// StoredSimulation is a persisted forecast run reconstructed from the
// store: the inputs plus the full computed result.
type StoredSimulation struct {
	SimulationID string                `json:"simulation_id"`
	Scenario     models.Scenario       `json:"scenario"`
	Window       models.TimeWindow     `json:"window"`
	RoadProfile  models.RoadProfile    `json:"road_profile"`
	Result       models.ForecastResult `json:"result"`
	CreatedAt    time.Time             `json:"created_at"`
}

// SimulationMeta is the listing row for saved runs.
type SimulationMeta struct {
	SimulationID   string    `json:"simulation_id"`
	Area           string    `json:"area"`
	RoadCorridor   string    `json:"road_corridor"`
	DisruptionType string    `json:"disruption_type"`
	WindowStart    time.Time `json:"window_start"`
	WindowEnd      time.Time `json:"window_end"`
	CreatedAt      time.Time `json:"created_at"`
}

// SaveSimulation persists a complete forecast run in one transaction.
func (s *Store) SaveSimulation(simID string, scenario models.Scenario, profile models.RoadProfile, window models.TimeWindow, result *models.ForecastResult) error {
	profileJSON, err := json.Marshal(profile)
	if err != nil {
		return fmt.Errorf("marshal profile: %w", err)
	}
	summaryJSON, err := json.Marshal(result.Summary)
	if err != nil {
		return fmt.Errorf("marshal summary: %w", err)
	}
	realtimeJSON, err := json.Marshal(result.Realtime)
	if err != nil {
		return fmt.Errorf("marshal realtime status: %w", err)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		INSERT INTO simulations (simulation_id, area, road_corridor, disruption_type, description, window_start, window_end, lat, lng, road_profile_json, summary_json, realtime_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, simID, scenario.Area, scenario.RoadCorridor, string(scenario.DisruptionType), scenario.Description,
		window.Start, window.End, scenario.Coordinates.Lat, scenario.Coordinates.Lng,
		string(profileJSON), string(summaryJSON), string(realtimeJSON))
	if err != nil {
		return fmt.Errorf("insert simulation: %w", err)
	}

	for _, h := range result.Hourly {
		_, err = tx.Exec(`
			INSERT INTO hourly_predictions (simulation_id, ts, hour, day_of_week, severity, severity_label, confidence,
				prob_light, prob_moderate, prob_heavy,
				base_travel_time_min, expected_travel_time_min, additional_delay_min, delay_percentage,
				normal_speed_kmh, reduced_speed_kmh, vc_ratio, multiplier, realtime_adjusted)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, simID, h.Timestamp, h.Hour, h.DayOfWeek, int(h.Severity.Class), h.Severity.Label, h.Severity.Confidence,
			h.Severity.Probabilities.Light, h.Severity.Probabilities.Moderate, h.Severity.Probabilities.Heavy,
			h.Delay.BaseTravelTimeMin, h.Delay.ExpectedTravelTimeMin, h.Delay.AdditionalDelayMin, h.Delay.DelayPercentage,
			h.Delay.NormalSpeedKmh, h.Delay.ReducedSpeedKmh, h.Delay.VolumeCapacityRatio, h.Delay.TravelTimeMultiplier, h.Delay.RealtimeAdjusted)
		if err != nil {
			return fmt.Errorf("insert hourly prediction: %w", err)
		}
	}

	for _, p := range result.Aggregated.Periods {
		_, err = tx.Exec(`
			INSERT INTO aggregated_periods (simulation_id, granularity, label, period_start, period_end, hour_count,
				avg_severity, avg_severity_label, avg_delay_min, dominant_severity,
				light_hours, moderate_hours, heavy_hours, peak_hours, peak_severity, peak_delay_min)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, simID, string(result.Aggregated.Granularity), p.Label, p.Start, p.End, p.HourCount,
			p.AvgSeverity, p.AvgSeverityLabel, p.AvgDelayMin, p.DominantSeverity,
			p.SeverityBreakdown.Light, p.SeverityBreakdown.Moderate, p.SeverityBreakdown.Heavy,
			p.PeakHours, p.PeakSeverity, p.PeakDelayMin)
		if err != nil {
			return fmt.Errorf("insert aggregated period: %w", err)
		}
	}

	for _, l := range result.Lines {
		pathJSON, err := json.Marshal(l.Path)
		if err != nil {
			return fmt.Errorf("marshal line path: %w", err)
		}
		_, err = tx.Exec(`
			INSERT INTO severity_lines (simulation_id, period, severity_level, severity_value, delay_min, path_json, path_source)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, simID, l.Period, l.SeverityLevel, l.SeverityValue, l.DelayMin, string(pathJSON), string(l.PathSource))
		if err != nil {
			return fmt.Errorf("insert severity line: %w", err)
		}
	}

	return tx.Commit()
}

// GetSimulation reconstructs a saved run, or returns nil when unknown.
func (s *Store) GetSimulation(simID string) (*StoredSimulation, error) {
	row := s.db.QueryRow(`
		SELECT simulation_id, area, road_corridor, disruption_type, description, window_start, window_end, lat, lng,
			road_profile_json, summary_json, realtime_json, created_at
		FROM simulations WHERE simulation_id = ?
	`, simID)

	var sim StoredSimulation
	var dtype, profileJSON, summaryJSON, realtimeJSON string
	err := row.Scan(&sim.SimulationID, &sim.Scenario.Area, &sim.Scenario.RoadCorridor, &dtype, &sim.Scenario.Description,
		&sim.Window.Start, &sim.Window.End, &sim.Scenario.Coordinates.Lat, &sim.Scenario.Coordinates.Lng,
		&profileJSON, &summaryJSON, &realtimeJSON, &sim.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	sim.Scenario.DisruptionType = models.DisruptionType(dtype)
	if err := json.Unmarshal([]byte(profileJSON), &sim.RoadProfile); err != nil {
		return nil, fmt.Errorf("unmarshal profile: %w", err)
	}
	if err := json.Unmarshal([]byte(summaryJSON), &sim.Result.Summary); err != nil {
		return nil, fmt.Errorf("unmarshal summary: %w", err)
	}
	if err := json.Unmarshal([]byte(realtimeJSON), &sim.Result.Realtime); err != nil {
		return nil, fmt.Errorf("unmarshal realtime status: %w", err)
	}

	if sim.Result.Hourly, err = s.getHourly(simID); err != nil {
		return nil, err
	}
	if sim.Result.Aggregated, err = s.getAggregated(simID); err != nil {
		return nil, err
	}
	if sim.Result.Lines, err = s.getLines(simID); err != nil {
		return nil, err
	}
	return &sim, nil
}

func (s *Store) getHourly(simID string) ([]models.HourlyPrediction, error) {
	rows, err := s.db.Query(`
		SELECT ts, hour, day_of_week, severity, severity_label, confidence,
			prob_light, prob_moderate, prob_heavy,
			base_travel_time_min, expected_travel_time_min, additional_delay_min, delay_percentage,
			normal_speed_kmh, reduced_speed_kmh, vc_ratio, multiplier, realtime_adjusted
		FROM hourly_predictions WHERE simulation_id = ? ORDER BY ts ASC
	`, simID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var hourly []models.HourlyPrediction
	for rows.Next() {
		var h models.HourlyPrediction
		var sev int
		if err := rows.Scan(&h.Timestamp, &h.Hour, &h.DayOfWeek, &sev, &h.Severity.Label, &h.Severity.Confidence,
			&h.Severity.Probabilities.Light, &h.Severity.Probabilities.Moderate, &h.Severity.Probabilities.Heavy,
			&h.Delay.BaseTravelTimeMin, &h.Delay.ExpectedTravelTimeMin, &h.Delay.AdditionalDelayMin, &h.Delay.DelayPercentage,
			&h.Delay.NormalSpeedKmh, &h.Delay.ReducedSpeedKmh, &h.Delay.VolumeCapacityRatio, &h.Delay.TravelTimeMultiplier, &h.Delay.RealtimeAdjusted); err != nil {
			return nil, err
		}
		h.Severity.Class = models.SeverityClass(sev)
		h.Date = h.Timestamp.Format("2006-01-02")
		hourly = append(hourly, h)
	}
	return hourly, rows.Err()
}

func (s *Store) getAggregated(simID string) (models.AggregatedView, error) {
	rows, err := s.db.Query(`
		SELECT granularity, label, period_start, period_end, hour_count,
			avg_severity, avg_severity_label, avg_delay_min, dominant_severity,
			light_hours, moderate_hours, heavy_hours, peak_hours, peak_severity, peak_delay_min
		FROM aggregated_periods WHERE simulation_id = ? ORDER BY period_start ASC
	`, simID)
	if err != nil {
		return models.AggregatedView{}, err
	}
	defer rows.Close()

	var view models.AggregatedView
	for rows.Next() {
		var p models.AggregatedPeriod
		var granularity string
		if err := rows.Scan(&granularity, &p.Label, &p.Start, &p.End, &p.HourCount,
			&p.AvgSeverity, &p.AvgSeverityLabel, &p.AvgDelayMin, &p.DominantSeverity,
			&p.SeverityBreakdown.Light, &p.SeverityBreakdown.Moderate, &p.SeverityBreakdown.Heavy,
			&p.PeakHours, &p.PeakSeverity, &p.PeakDelayMin); err != nil {
			return models.AggregatedView{}, err
		}
		view.Granularity = models.Granularity(granularity)
		view.Periods = append(view.Periods, p)
	}
	return view, rows.Err()
}

func (s *Store) getLines(simID string) ([]models.SeverityLine, error) {
	rows, err := s.db.Query(`
		SELECT period, severity_level, severity_value, delay_min, path_json, path_source
		FROM severity_lines WHERE simulation_id = ? ORDER BY id ASC
	`, simID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var lines []models.SeverityLine
	for rows.Next() {
		var l models.SeverityLine
		var pathJSON, source string
		if err := rows.Scan(&l.Period, &l.SeverityLevel, &l.SeverityValue, &l.DelayMin, &pathJSON, &source); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(pathJSON), &l.Path); err != nil {
			return nil, fmt.Errorf("unmarshal line path: %w", err)
		}
		l.PathSource = models.PathSource(source)
		lines = append(lines, l)
	}
	return lines, rows.Err()
}

// ListSimulations returns saved runs, newest first.
func (s *Store) ListSimulations(limit int) ([]SimulationMeta, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.Query(`
		SELECT simulation_id, area, road_corridor, disruption_type, window_start, window_end, created_at
		FROM simulations ORDER BY created_at DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var metas []SimulationMeta
	for rows.Next() {
		var m SimulationMeta
		if err := rows.Scan(&m.SimulationID, &m.Area, &m.RoadCorridor, &m.DisruptionType, &m.WindowStart, &m.WindowEnd, &m.CreatedAt); err != nil {
			return nil, err
		}
		metas = append(metas, m)
	}
	return metas, rows.Err()
}

// DeleteSimulation removes a run and all its derived rows.
func (s *Store) DeleteSimulation(simID string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, table := range []string{"severity_lines", "aggregated_periods", "hourly_predictions", "simulations"} {
		if _, err := tx.Exec(`DELETE FROM `+table+` WHERE simulation_id = ?`, simID); err != nil {
			return fmt.Errorf("delete from %s: %w", table, err)
		}
	}
	return tx.Commit()
}
