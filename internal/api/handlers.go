package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/mlopera/roadcast/internal/forecast"
	"github.com/mlopera/roadcast/internal/geometry"
	"github.com/mlopera/roadcast/internal/metrics"
	"github.com/mlopera/roadcast/internal/models"
	"github.com/mlopera/roadcast/internal/road"
)

// Fallback road attributes for corridors without an imported segment.
const (
	defaultRoadType = "primary"
	defaultLanes    = 2
	defaultLengthKm = 2.0
	defaultMaxSpeed = 60.0
)

type forecastRequest struct {
	Area           string        `json:"area"`
	RoadCorridor   string        `json:"road_corridor"`
	DisruptionType string        `json:"disruption_type"`
	Coordinates    models.LatLng `json:"coordinates"`
	TotalVolume    float64       `json:"total_volume,omitempty"`
	Description    string        `json:"description,omitempty"`
	StartTime      string        `json:"start_time"`
	EndTime        string        `json:"end_time"`
}

type forecastResponse struct {
	Success      bool                   `json:"success"`
	SimulationID string                 `json:"simulation_id"`
	Input        forecastRequest        `json:"input"`
	RoadProfile  models.RoadProfile     `json:"road_profile"`
	Result       *models.ForecastResult `json:"result"`
}

type errorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("api: write response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// timeLayouts accepted for start_time / end_time, tried in order.
var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
}

func (s *Server) parseTime(v string) (time.Time, error) {
	for _, layout := range timeLayouts {
		if t, err := time.ParseInLocation(layout, v, s.loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised time %q", v)
}

// validationErrs are engine failures caused by the request, not the
// server; they map to 400.
var validationErrs = []error{
	forecast.ErrMissingArea,
	forecast.ErrMissingCorridor,
	forecast.ErrBadCoordinates,
	forecast.ErrEndBeforeStart,
	forecast.ErrWindowTooShort,
	forecast.ErrWindowTooLong,
}

func isValidationErr(err error) bool {
	for _, v := range validationErrs {
		if errors.Is(err, v) {
			return true
		}
	}
	return false
}

func (s *Server) handleForecast(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "POST required")
		return
	}

	var req forecastRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}

	area, ok := geometry.AreaByName(req.Area)
	if !ok {
		writeError(w, http.StatusBadRequest, "unknown area: "+req.Area)
		return
	}
	if req.RoadCorridor == "" {
		req.RoadCorridor = area.Corridor
	}

	start, err := s.parseTime(req.StartTime)
	if err != nil {
		writeError(w, http.StatusBadRequest, "start_time: "+err.Error())
		return
	}
	end, err := s.parseTime(req.EndTime)
	if err != nil {
		writeError(w, http.StatusBadRequest, "end_time: "+err.Error())
		return
	}
	window := models.TimeWindow{Start: start, End: end}

	scenario := models.Scenario{
		Area:           req.Area,
		RoadCorridor:   req.RoadCorridor,
		DisruptionType: models.DisruptionType(req.DisruptionType),
		Coordinates:    req.Coordinates,
		TotalVolume:    req.TotalVolume,
		Description:    req.Description,
	}

	profile, err := s.profileFor(req.RoadCorridor)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	result, err := s.engine.Forecast(scenario, profile, window)
	if err != nil {
		if isValidationErr(err) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		log.Printf("forecast failed for %s/%s: %v", req.Area, req.RoadCorridor, err)
		writeError(w, http.StatusInternalServerError, "forecast failed")
		return
	}

	simID := s.store.NewSimulationID(time.Now())
	if err := s.store.SaveSimulation(simID, scenario, profile, window, result); err != nil {
		log.Printf("save simulation %s: %v", simID, err)
		writeError(w, http.StatusInternalServerError, "could not persist simulation")
		return
	}
	metrics.SimulationsStored.Inc()

	writeJSON(w, http.StatusOK, forecastResponse{
		Success:      true,
		SimulationID: simID,
		Input:        req,
		RoadProfile:  profile,
		Result:       result,
	})
}

// profileFor builds the road profile from the imported segment for a
// corridor, falling back to conservative defaults when none is stored.
func (s *Server) profileFor(corridor string) (models.RoadProfile, error) {
	seg, err := s.store.GetSegment(corridor)
	if err != nil {
		return models.RoadProfile{}, fmt.Errorf("segment lookup: %w", err)
	}

	attrs := road.Attributes{
		RoadType:    defaultRoadType,
		Lanes:       defaultLanes,
		LengthKm:    defaultLengthKm,
		MaxSpeedKmh: defaultMaxSpeed,
	}
	if seg != nil {
		attrs = road.Attributes{
			RoadType:    seg.RoadType,
			Lanes:       seg.Lanes,
			LengthKm:    seg.LengthKm,
			MaxSpeedKmh: seg.MaxSpeedKmh,
			Geometry:    seg.Geometry,
		}
	} else {
		log.Printf("no imported segment for corridor %s, using default road attributes", corridor)
	}
	return road.BuildProfile(attrs), nil
}

type predictRequest struct {
	Area           string        `json:"area"`
	RoadCorridor   string        `json:"road_corridor"`
	DisruptionType string        `json:"disruption_type"`
	Coordinates    models.LatLng `json:"coordinates"`
	TotalVolume    float64       `json:"total_volume,omitempty"`
	Time           string        `json:"time"`
}

type predictResponse struct {
	Success     bool                     `json:"success"`
	Input       predictRequest           `json:"input"`
	RoadProfile models.RoadProfile       `json:"road_profile"`
	Prediction  *models.HourlyPrediction `json:"prediction"`
}

// handlePredict answers a single point-in-time prediction without the
// window roll-ups or persistence of a full forecast run.
func (s *Server) handlePredict(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "POST required")
		return
	}

	var req predictRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}

	area, ok := geometry.AreaByName(req.Area)
	if !ok {
		writeError(w, http.StatusBadRequest, "unknown area: "+req.Area)
		return
	}
	if req.RoadCorridor == "" {
		req.RoadCorridor = area.Corridor
	}

	ts, err := s.parseTime(req.Time)
	if err != nil {
		writeError(w, http.StatusBadRequest, "time: "+err.Error())
		return
	}

	profile, err := s.profileFor(req.RoadCorridor)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	prediction, err := s.engine.Predict(models.Scenario{
		Area:           req.Area,
		RoadCorridor:   req.RoadCorridor,
		DisruptionType: models.DisruptionType(req.DisruptionType),
		Coordinates:    req.Coordinates,
		TotalVolume:    req.TotalVolume,
	}, profile, ts)
	if err != nil {
		if isValidationErr(err) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		log.Printf("predict failed for %s/%s: %v", req.Area, req.RoadCorridor, err)
		writeError(w, http.StatusInternalServerError, "prediction failed")
		return
	}

	writeJSON(w, http.StatusOK, predictResponse{
		Success:     true,
		Input:       req,
		RoadProfile: profile,
		Prediction:  prediction,
	})
}

type roadInfoRequest struct {
	Area         string `json:"area"`
	RoadCorridor string `json:"road_corridor"`
}

type roadInfoResponse struct {
	Success     bool               `json:"success"`
	Area        string             `json:"area"`
	Corridor    string             `json:"road_corridor"`
	RoadName    string             `json:"road_name"`
	HasGeometry bool               `json:"has_geometry"`
	RoadProfile models.RoadProfile `json:"road_profile"`
}

func (s *Server) handleRoadInfo(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "POST required")
		return
	}

	var req roadInfoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}

	area, ok := geometry.AreaByName(req.Area)
	if !ok {
		writeError(w, http.StatusBadRequest, "unknown area: "+req.Area)
		return
	}
	corridor := req.RoadCorridor
	if corridor == "" {
		corridor = area.Corridor
	}

	profile, err := s.profileFor(corridor)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, roadInfoResponse{
		Success:     true,
		Area:        area.Name,
		Corridor:    corridor,
		RoadName:    area.RoadName,
		HasGeometry: len(profile.Geometry) >= 2,
		RoadProfile: profile,
	})
}

type realtimeRequest struct {
	Coordinates models.LatLng `json:"coordinates"`
}

type realtimeResponse struct {
	Success         bool    `json:"success"`
	CurrentSpeed    float64 `json:"current_speed"`
	FreeFlowSpeed   float64 `json:"free_flow_speed"`
	SpeedRatio      float64 `json:"speed_ratio"`
	CongestionLevel string  `json:"congestion_level"`
	RoadClosure     bool    `json:"road_closure"`
	Timestamp       string  `json:"timestamp"`
}

func (s *Server) handleRealtimeTraffic(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "POST required")
		return
	}
	if s.live == nil {
		writeError(w, http.StatusServiceUnavailable, "live traffic source not configured")
		return
	}

	var req realtimeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	c := req.Coordinates
	if (c.Lat == 0 && c.Lng == 0) || c.Lat < -90 || c.Lat > 90 || c.Lng < -180 || c.Lng > 180 {
		writeError(w, http.StatusBadRequest, "coordinates are missing or invalid")
		return
	}

	flow, err := s.live.FetchFlow(c.Lat, c.Lng)
	if err != nil {
		log.Printf("live traffic fetch failed: %v", err)
		writeError(w, http.StatusBadGateway, "live traffic fetch failed")
		return
	}

	writeJSON(w, http.StatusOK, realtimeResponse{
		Success:         true,
		CurrentSpeed:    flow.CurrentSpeed,
		FreeFlowSpeed:   flow.FreeFlowSpeed,
		SpeedRatio:      flow.SpeedRatio(),
		CongestionLevel: flow.CongestionLevel().Label(),
		RoadClosure:     flow.RoadClosure,
		Timestamp:       flow.Timestamp.Format(time.RFC3339),
	})
}

func (s *Server) handleSimulations(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "GET required")
		return
	}

	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}

	metas, err := s.store.ListSimulations(limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":     true,
		"simulations": metas,
	})
}

func (s *Server) handleSimulationByID(w http.ResponseWriter, r *http.Request) {
	simID := strings.TrimPrefix(r.URL.Path, "/api/simulations/")
	if simID == "" || strings.Contains(simID, "/") {
		http.NotFound(w, r)
		return
	}

	switch r.Method {
	case http.MethodGet:
		sim, err := s.store.GetSimulation(simID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		if sim == nil {
			writeError(w, http.StatusNotFound, "unknown simulation: "+simID)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"success":    true,
			"simulation": sim,
		})
	case http.MethodDelete:
		if err := s.store.DeleteSimulation(simID); err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"success": true})
	default:
		writeError(w, http.StatusMethodNotAllowed, "GET or DELETE required")
	}
}

type healthStatus struct {
	Status       string `json:"status"`
	LiveTraffic  bool   `json:"live_traffic"`
	CoveredAreas int    `json:"covered_areas"`
	Error        string `json:"error,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	health := healthStatus{
		Status:       "ok",
		LiveTraffic:  s.live != nil,
		CoveredAreas: len(geometry.CoveredAreas),
	}

	if _, err := s.store.ListSimulations(1); err != nil {
		health.Status = "error"
		health.Error = err.Error()
		writeJSON(w, http.StatusServiceUnavailable, health)
		return
	}
	writeJSON(w, http.StatusOK, health)
}
