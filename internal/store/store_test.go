package store

import (
	"database/sql"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"github.com/mlopera/roadcast/internal/models"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	loc, err := time.LoadLocation("Asia/Manila")
	if err != nil {
		t.Fatalf("load timezone: %v", err)
	}
	store := New(db, loc)
	if err := store.Migrate(); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return store
}

func testSegment() models.RoadSegment {
	return models.RoadSegment{
		Corridor:    "Calamba_Pagsanjan",
		Area:        "Bucal",
		RoadName:    "Calamba-Pagsanjan Road",
		RoadType:    "primary",
		Lanes:       2,
		LengthKm:    2.4,
		MaxSpeedKmh: 60,
		Geometry: []models.LatLng{
			{Lat: 14.183, Lng: 121.162},
			{Lat: 14.198, Lng: 121.178},
		},
	}
}

func TestNewSimulationID(t *testing.T) {
	store := setupTestStore(t)

	// 2025-01-06 01:30 UTC is 09:30 in Manila.
	ts := time.Date(2025, 1, 6, 1, 30, 0, 0, time.UTC)
	got := store.NewSimulationID(ts)
	if got != "sim_20250106_093000" {
		t.Errorf("NewSimulationID = %q, want sim_20250106_093000", got)
	}
}

func TestUpsertAndGetSegment(t *testing.T) {
	store := setupTestStore(t)

	if err := store.UpsertSegment(testSegment()); err != nil {
		t.Fatalf("UpsertSegment: %v", err)
	}

	seg, err := store.GetSegment("Calamba_Pagsanjan")
	if err != nil {
		t.Fatalf("GetSegment: %v", err)
	}
	if seg == nil {
		t.Fatal("GetSegment returned nil")
	}
	if seg.RoadType != "primary" || seg.Lanes != 2 || seg.LengthKm != 2.4 {
		t.Errorf("segment = %+v", seg)
	}
	if len(seg.Geometry) != 2 {
		t.Fatalf("geometry points = %d, want 2", len(seg.Geometry))
	}
	if seg.Geometry[0].Lat != 14.183 {
		t.Errorf("geometry[0].Lat = %v, want 14.183", seg.Geometry[0].Lat)
	}
}

func TestUpsertSegment_Update(t *testing.T) {
	store := setupTestStore(t)

	seg := testSegment()
	if err := store.UpsertSegment(seg); err != nil {
		t.Fatalf("UpsertSegment: %v", err)
	}
	seg.Lanes = 4
	if err := store.UpsertSegment(seg); err != nil {
		t.Fatalf("UpsertSegment update: %v", err)
	}

	got, err := store.GetSegment(seg.Corridor)
	if err != nil {
		t.Fatalf("GetSegment: %v", err)
	}
	if got.Lanes != 4 {
		t.Errorf("Lanes = %d, want 4", got.Lanes)
	}
}

func TestGetSegment_Unknown(t *testing.T) {
	store := setupTestStore(t)

	seg, err := store.GetSegment("nope")
	if err != nil {
		t.Fatalf("GetSegment: %v", err)
	}
	if seg != nil {
		t.Errorf("got %+v, want nil for unknown corridor", seg)
	}
}

func TestSegmentPath(t *testing.T) {
	store := setupTestStore(t)
	if err := store.UpsertSegment(testSegment()); err != nil {
		t.Fatalf("UpsertSegment: %v", err)
	}

	path, err := store.SegmentPath("Calamba_Pagsanjan")
	if err != nil {
		t.Fatalf("SegmentPath: %v", err)
	}
	if len(path) != 2 {
		t.Errorf("path points = %d, want 2", len(path))
	}

	path, err = store.SegmentPath("nope")
	if err != nil {
		t.Fatalf("SegmentPath unknown: %v", err)
	}
	if path != nil {
		t.Errorf("path = %v, want nil for unknown corridor", path)
	}
}

func TestGetSegmentsByArea(t *testing.T) {
	store := setupTestStore(t)
	if err := store.UpsertSegment(testSegment()); err != nil {
		t.Fatal(err)
	}
	other := testSegment()
	other.Corridor = "Maharlika_Parian"
	other.Area = "Parian"
	if err := store.UpsertSegment(other); err != nil {
		t.Fatal(err)
	}

	segs, err := store.GetSegmentsByArea("Bucal")
	if err != nil {
		t.Fatalf("GetSegmentsByArea: %v", err)
	}
	if len(segs) != 1 {
		t.Fatalf("segments = %d, want 1", len(segs))
	}
	if segs[0].Corridor != "Calamba_Pagsanjan" {
		t.Errorf("corridor = %q", segs[0].Corridor)
	}
}

func testForecastResult() *models.ForecastResult {
	ts := time.Date(2025, 1, 6, 9, 0, 0, 0, time.UTC)
	return &models.ForecastResult{
		Hourly: []models.HourlyPrediction{
			{
				Timestamp: ts,
				Date:      "2025-01-06",
				Hour:      9,
				DayOfWeek: "Monday",
				Severity: models.SeverityResult{
					Class: models.SeverityModerate, Label: "Moderate", Confidence: 0.7,
					Probabilities: models.Probabilities{Light: 0.2, Moderate: 0.7, Heavy: 0.1},
				},
				Delay: models.DelayResult{
					BaseTravelTimeMin: 10, ExpectedTravelTimeMin: 14.2, AdditionalDelayMin: 4,
					VolumeCapacityRatio: 0.9, TravelTimeMultiplier: 1.42,
				},
			},
			{
				Timestamp: ts.Add(time.Hour),
				Date:      "2025-01-06",
				Hour:      10,
				DayOfWeek: "Monday",
				Severity: models.SeverityResult{
					Class: models.SeverityLight, Label: "Light", Confidence: 0.8,
					Probabilities: models.Probabilities{Light: 0.8, Moderate: 0.15, Heavy: 0.05},
				},
				Delay: models.DelayResult{
					BaseTravelTimeMin: 10, ExpectedTravelTimeMin: 11, AdditionalDelayMin: 1,
				},
			},
		},
		Summary: models.Summary{TotalHours: 2, ModerateHours: 1, LightHours: 1, AvgSeverity: 0.5},
		Aggregated: models.AggregatedView{
			Granularity: models.GranularityHourly,
			Periods: []models.AggregatedPeriod{
				{Label: "2025-01-06 09:00", Start: ts, End: ts, HourCount: 1, AvgSeverity: 1, PeakHours: "09:00"},
			},
		},
		Lines: []models.SeverityLine{
			{
				Period: "2025-01-06 09:00", SeverityLevel: "Moderate", SeverityValue: 1, DelayMin: 4,
				Path:       []models.LatLng{{Lat: 14.19, Lng: 121.17}, {Lat: 14.20, Lng: 121.18}},
				PathSource: models.PathSynthetic,
			},
		},
		Realtime: models.RealtimeStatus{Enabled: false, Reason: "no live-traffic source configured"},
	}
}

func TestSaveAndGetSimulation(t *testing.T) {
	store := setupTestStore(t)

	scenario := models.Scenario{
		Area: "Bucal", RoadCorridor: "Calamba_Pagsanjan",
		DisruptionType: models.DisruptionRoadwork,
		Coordinates:    models.LatLng{Lat: 14.19, Lng: 121.17},
		Description:    "lane repaving",
	}
	profile := models.RoadProfile{RoadType: "primary", Lanes: 2, LengthKm: 2.4, FreeFlowSpeedKmh: 60}
	window := models.TimeWindow{
		Start: time.Date(2025, 1, 6, 9, 0, 0, 0, time.UTC),
		End:   time.Date(2025, 1, 6, 10, 0, 0, 0, time.UTC),
	}
	result := testForecastResult()

	simID := store.NewSimulationID(window.Start)
	if err := store.SaveSimulation(simID, scenario, profile, window, result); err != nil {
		t.Fatalf("SaveSimulation: %v", err)
	}

	got, err := store.GetSimulation(simID)
	if err != nil {
		t.Fatalf("GetSimulation: %v", err)
	}
	if got == nil {
		t.Fatal("GetSimulation returned nil")
	}

	if got.Scenario.Area != "Bucal" || got.Scenario.DisruptionType != models.DisruptionRoadwork {
		t.Errorf("scenario = %+v", got.Scenario)
	}
	if got.RoadProfile.Lanes != 2 {
		t.Errorf("profile lanes = %d, want 2", got.RoadProfile.Lanes)
	}
	if len(got.Result.Hourly) != 2 {
		t.Fatalf("hourly = %d, want 2", len(got.Result.Hourly))
	}
	h := got.Result.Hourly[0]
	if h.Severity.Class != models.SeverityModerate || h.Severity.Probabilities.Moderate != 0.7 {
		t.Errorf("hourly[0] severity = %+v", h.Severity)
	}
	if h.Delay.AdditionalDelayMin != 4 {
		t.Errorf("hourly[0] delay = %+v", h.Delay)
	}
	if !h.Timestamp.Equal(result.Hourly[0].Timestamp) {
		t.Errorf("timestamp = %v, want %v", h.Timestamp, result.Hourly[0].Timestamp)
	}
	if len(got.Result.Aggregated.Periods) != 1 {
		t.Fatalf("periods = %d, want 1", len(got.Result.Aggregated.Periods))
	}
	if got.Result.Aggregated.Granularity != models.GranularityHourly {
		t.Errorf("granularity = %v", got.Result.Aggregated.Granularity)
	}
	if len(got.Result.Lines) != 1 {
		t.Fatalf("lines = %d, want 1", len(got.Result.Lines))
	}
	line := got.Result.Lines[0]
	if len(line.Path) != 2 || line.PathSource != models.PathSynthetic {
		t.Errorf("line = %+v", line)
	}
	if got.Result.Summary.TotalHours != 2 {
		t.Errorf("summary = %+v", got.Result.Summary)
	}
	if got.Result.Realtime.Reason == "" {
		t.Errorf("realtime status lost: %+v", got.Result.Realtime)
	}
}

func TestGetSimulation_Unknown(t *testing.T) {
	store := setupTestStore(t)

	got, err := store.GetSimulation("sim_nope")
	if err != nil {
		t.Fatalf("GetSimulation: %v", err)
	}
	if got != nil {
		t.Errorf("got %+v, want nil", got)
	}
}

func TestListAndDeleteSimulations(t *testing.T) {
	store := setupTestStore(t)

	scenario := models.Scenario{Area: "Bucal", RoadCorridor: "Calamba_Pagsanjan", Coordinates: models.LatLng{Lat: 14.19, Lng: 121.17}}
	window := models.TimeWindow{
		Start: time.Date(2025, 1, 6, 9, 0, 0, 0, time.UTC),
		End:   time.Date(2025, 1, 6, 10, 0, 0, 0, time.UTC),
	}
	for _, id := range []string{"sim_20250106_090000", "sim_20250106_100000"} {
		if err := store.SaveSimulation(id, scenario, models.RoadProfile{}, window, testForecastResult()); err != nil {
			t.Fatalf("SaveSimulation %s: %v", id, err)
		}
	}

	metas, err := store.ListSimulations(10)
	if err != nil {
		t.Fatalf("ListSimulations: %v", err)
	}
	if len(metas) != 2 {
		t.Fatalf("simulations = %d, want 2", len(metas))
	}
	if metas[0].Area != "Bucal" {
		t.Errorf("meta = %+v", metas[0])
	}

	if err := store.DeleteSimulation("sim_20250106_090000"); err != nil {
		t.Fatalf("DeleteSimulation: %v", err)
	}
	metas, err = store.ListSimulations(10)
	if err != nil {
		t.Fatalf("ListSimulations after delete: %v", err)
	}
	if len(metas) != 1 {
		t.Fatalf("simulations = %d, want 1 after delete", len(metas))
	}
	if got, _ := store.GetSimulation("sim_20250106_090000"); got != nil {
		t.Error("deleted simulation still retrievable")
	}

	// Delete of an unknown id is a no-op.
	if err := store.DeleteSimulation("sim_nope"); err != nil {
		t.Errorf("DeleteSimulation unknown: %v", err)
	}
}
