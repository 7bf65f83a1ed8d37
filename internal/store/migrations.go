package store

import (
	"fmt"
	"log"
)

type migration struct {
	Version     int
	Description string
	SQL         string
}

var migrations = []migration{
	{
		Version:     1,
		Description: "Initial schema",
		SQL: `
CREATE TABLE IF NOT EXISTS road_segments (
    corridor TEXT PRIMARY KEY,
    area TEXT,
    road_name TEXT,
    road_type TEXT,
    lanes INTEGER,
    length_km REAL,
    max_speed REAL,
    geometry_json TEXT,
    updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS simulations (
    simulation_id TEXT PRIMARY KEY,
    area TEXT NOT NULL,
    road_corridor TEXT NOT NULL,
    disruption_type TEXT,
    description TEXT,
    window_start DATETIME NOT NULL,
    window_end DATETIME NOT NULL,
    lat REAL,
    lng REAL,
    road_profile_json TEXT,
    summary_json TEXT,
    realtime_json TEXT,
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS hourly_predictions (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    simulation_id TEXT NOT NULL,
    ts DATETIME NOT NULL,
    hour INTEGER,
    day_of_week TEXT,
    severity INTEGER,
    severity_label TEXT,
    confidence REAL,
    prob_light REAL,
    prob_moderate REAL,
    prob_heavy REAL,
    base_travel_time_min REAL,
    expected_travel_time_min REAL,
    additional_delay_min INTEGER,
    delay_percentage REAL,
    normal_speed_kmh REAL,
    reduced_speed_kmh REAL,
    vc_ratio REAL,
    multiplier REAL,
    realtime_adjusted BOOLEAN,
    UNIQUE(simulation_id, ts)
);

CREATE TABLE IF NOT EXISTS aggregated_periods (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    simulation_id TEXT NOT NULL,
    granularity TEXT NOT NULL,
    label TEXT,
    period_start DATETIME,
    period_end DATETIME,
    hour_count INTEGER,
    avg_severity REAL,
    avg_severity_label TEXT,
    avg_delay_min REAL,
    dominant_severity TEXT,
    light_hours INTEGER,
    moderate_hours INTEGER,
    heavy_hours INTEGER,
    peak_hours TEXT,
    peak_severity REAL,
    peak_delay_min REAL
);

CREATE TABLE IF NOT EXISTS severity_lines (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    simulation_id TEXT NOT NULL,
    period TEXT,
    severity_level TEXT,
    severity_value REAL,
    delay_min REAL,
    path_json TEXT,
    path_source TEXT
);

CREATE INDEX IF NOT EXISTS idx_hourly_sim ON hourly_predictions(simulation_id, ts);
CREATE INDEX IF NOT EXISTS idx_periods_sim ON aggregated_periods(simulation_id);
CREATE INDEX IF NOT EXISTS idx_lines_sim ON severity_lines(simulation_id);
`,
	},
}

func (s *Store) Migrate() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			description TEXT,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("create migrations table: %w", err)
	}

	for _, m := range migrations {
		var exists int
		err := s.db.QueryRow(`SELECT COUNT(*) FROM schema_migrations WHERE version = ?`, m.Version).Scan(&exists)
		if err != nil {
			return fmt.Errorf("check migration %d: %w", m.Version, err)
		}
		if exists > 0 {
			continue
		}

		if _, err := s.db.Exec(m.SQL); err != nil {
			return fmt.Errorf("apply migration %d (%s): %w", m.Version, m.Description, err)
		}
		if _, err := s.db.Exec(`INSERT INTO schema_migrations (version, description) VALUES (?, ?)`, m.Version, m.Description); err != nil {
			return fmt.Errorf("record migration %d: %w", m.Version, err)
		}
		log.Printf("applied migration %d: %s", m.Version, m.Description)
	}
	return nil
}
