package realtime

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/mlopera/roadcast/internal/httputil"
	"github.com/mlopera/roadcast/internal/metrics"
	"github.com/mlopera/roadcast/internal/models"
)

// Source supplies a live traffic reading for a coordinate. The engine
// makes at most one call per scenario.
type Source interface {
	FetchFlow(lat, lng float64) (*Flow, error)
}

// Flow is one live traffic observation.
type Flow struct {
	Timestamp          time.Time `json:"timestamp"`
	CurrentSpeed       float64   `json:"current_speed"`
	FreeFlowSpeed      float64   `json:"free_flow_speed"`
	CurrentTravelTime  float64   `json:"current_travel_time"`
	FreeFlowTravelTime float64   `json:"free_flow_travel_time"`
	Confidence         float64   `json:"confidence"`
	RoadClosure        bool      `json:"road_closure"`
}

// SpeedRatio is current over free-flow speed, the blending input for the
// delay estimator. Defaults to 1.0 (free flow) when speeds are missing.
func (f *Flow) SpeedRatio() float64 {
	if f.FreeFlowSpeed <= 0 || f.CurrentSpeed <= 0 {
		return 1.0
	}
	return f.CurrentSpeed / f.FreeFlowSpeed
}

// CongestionLevel buckets the speed ratio into the severity classes.
func (f *Flow) CongestionLevel() models.SeverityClass {
	ratio := f.SpeedRatio()
	switch {
	case ratio >= 0.8:
		return models.SeverityLight
	case ratio >= 0.5:
		return models.SeverityModerate
	default:
		return models.SeverityHeavy
	}
}

// TomTom fetches flow-segment data from the TomTom traffic API.
type TomTom struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

func NewTomTom(apiKey string) *TomTom {
	return &TomTom{
		apiKey:  apiKey,
		baseURL: "https://api.tomtom.com/traffic/services/4",
		client:  httputil.ProbeClient(),
	}
}

type flowSegmentResponse struct {
	FlowSegmentData struct {
		CurrentSpeed       float64 `json:"currentSpeed"`
		FreeFlowSpeed      float64 `json:"freeFlowSpeed"`
		CurrentTravelTime  float64 `json:"currentTravelTime"`
		FreeFlowTravelTime float64 `json:"freeFlowTravelTime"`
		Confidence         float64 `json:"confidence"`
		RoadClosure        bool    `json:"roadClosure"`
	} `json:"flowSegmentData"`
}

// FetchFlow reads current vs free-flow speed around a point. Transient
// rate limiting is retried briefly; anything else fails the single
// attempt the blending policy allows.
func (t *TomTom) FetchFlow(lat, lng float64) (*Flow, error) {
	endpoint := fmt.Sprintf("%s/flowSegmentData/absolute/10/json", t.baseURL)
	params := url.Values{}
	params.Set("key", t.apiKey)
	params.Set("point", fmt.Sprintf("%f,%f", lat, lng))
	params.Set("unit", "KMPH")

	start := time.Now()
	var body []byte
	operation := func() error {
		resp, err := t.client.Get(endpoint + "?" + params.Encode())
		if err != nil {
			return backoff.Permanent(fmt.Errorf("fetch flow: %w", err))
		}
		defer resp.Body.Close()

		if resp.StatusCode == http.StatusTooManyRequests {
			return fmt.Errorf("rate limited: status %d", resp.StatusCode)
		}
		if resp.StatusCode != http.StatusOK {
			b, _ := io.ReadAll(resp.Body)
			return backoff.Permanent(fmt.Errorf("fetch flow: status %d: %s", resp.StatusCode, string(b)))
		}

		body, err = io.ReadAll(resp.Body)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("read body: %w", err))
		}
		return nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = 30 * time.Second
	err := backoff.Retry(operation, bo)
	metrics.TomTomAPILatency.WithLabelValues("flow_segment").Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.TomTomAPICalls.WithLabelValues("flow_segment", "error").Inc()
		return nil, err
	}
	metrics.TomTomAPICalls.WithLabelValues("flow_segment", "ok").Inc()

	var data flowSegmentResponse
	if err := json.Unmarshal(body, &data); err != nil {
		return nil, fmt.Errorf("unmarshal: %w", err)
	}

	return &Flow{
		Timestamp:          time.Now().UTC(),
		CurrentSpeed:       data.FlowSegmentData.CurrentSpeed,
		FreeFlowSpeed:      data.FlowSegmentData.FreeFlowSpeed,
		CurrentTravelTime:  data.FlowSegmentData.CurrentTravelTime,
		FreeFlowTravelTime: data.FlowSegmentData.FreeFlowTravelTime,
		Confidence:         data.FlowSegmentData.Confidence,
		RoadClosure:        data.FlowSegmentData.RoadClosure,
	}, nil
}
