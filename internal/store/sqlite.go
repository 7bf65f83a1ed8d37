package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mlopera/roadcast/internal/models"
)

type Store struct {
	db  *sql.DB
	loc *time.Location
}

func New(db *sql.DB, loc *time.Location) *Store {
	return &Store{db: db, loc: loc}
}

// NewSimulationID mints the opaque identifier a forecast run is keyed
// by, e.g. "sim_20250113_080000".
func (s *Store) NewSimulationID(now time.Time) string {
	return "sim_" + now.In(s.loc).Format("20060102_150405")
}

func (s *Store) UpsertSegment(seg models.RoadSegment) error {
	geom, err := json.Marshal(seg.Geometry)
	if err != nil {
		return fmt.Errorf("marshal geometry: %w", err)
	}
	_, err = s.db.Exec(`
		INSERT INTO road_segments (corridor, area, road_name, road_type, lanes, length_km, max_speed, geometry_json, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(corridor) DO UPDATE SET
			area = excluded.area,
			road_name = excluded.road_name,
			road_type = excluded.road_type,
			lanes = excluded.lanes,
			length_km = excluded.length_km,
			max_speed = excluded.max_speed,
			geometry_json = excluded.geometry_json,
			updated_at = CURRENT_TIMESTAMP
	`, seg.Corridor, seg.Area, seg.RoadName, seg.RoadType, seg.Lanes, seg.LengthKm, seg.MaxSpeedKmh, string(geom))
	return err
}

func (s *Store) GetSegment(corridor string) (*models.RoadSegment, error) {
	row := s.db.QueryRow(`
		SELECT corridor, area, road_name, road_type, lanes, length_km, max_speed, geometry_json
		FROM road_segments WHERE corridor = ?
	`, corridor)

	var seg models.RoadSegment
	var geomJSON string
	err := row.Scan(&seg.Corridor, &seg.Area, &seg.RoadName, &seg.RoadType, &seg.Lanes, &seg.LengthKm, &seg.MaxSpeedKmh, &geomJSON)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if geomJSON != "" {
		if err := json.Unmarshal([]byte(geomJSON), &seg.Geometry); err != nil {
			return nil, fmt.Errorf("unmarshal geometry: %w", err)
		}
	}
	return &seg, nil
}

// SegmentPath satisfies the geometry resolver's segment source.
func (s *Store) SegmentPath(corridor string) ([]models.LatLng, error) {
	seg, err := s.GetSegment(corridor)
	if err != nil || seg == nil {
		return nil, err
	}
	return seg.Geometry, nil
}

func (s *Store) GetSegmentsByArea(area string) ([]models.RoadSegment, error) {
	rows, err := s.db.Query(`
		SELECT corridor, area, road_name, road_type, lanes, length_km, max_speed, geometry_json
		FROM road_segments WHERE area = ? ORDER BY corridor
	`, area)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var segments []models.RoadSegment
	for rows.Next() {
		var seg models.RoadSegment
		var geomJSON string
		if err := rows.Scan(&seg.Corridor, &seg.Area, &seg.RoadName, &seg.RoadType, &seg.Lanes, &seg.LengthKm, &seg.MaxSpeedKmh, &geomJSON); err != nil {
			return nil, err
		}
		if geomJSON != "" {
			if err := json.Unmarshal([]byte(geomJSON), &seg.Geometry); err != nil {
				return nil, fmt.Errorf("unmarshal geometry: %w", err)
			}
		}
		segments = append(segments, seg)
	}
	return segments, rows.Err()
}
