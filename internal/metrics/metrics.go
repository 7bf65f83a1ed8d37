package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	TomTomAPICalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "roadcast_tomtom_api_calls_total",
			Help: "Total TomTom traffic API calls",
		},
		[]string{"endpoint", "status"},
	)

	TomTomAPILatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "roadcast_tomtom_api_latency_seconds",
			Help:    "TomTom API call latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)

	ForecastsComputed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "roadcast_forecasts_computed_total",
			Help: "Total disruption forecasts computed",
		},
	)

	ForecastDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "roadcast_forecast_duration_seconds",
			Help:    "Duration of a full forecast computation",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1.0, 2.5, 5.0},
		},
	)

	OverrideFires = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "roadcast_severity_overrides_total",
			Help: "Severity override rule firings by rule",
		},
		[]string{"rule"},
	)

	NightTableHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "roadcast_night_table_hits_total",
			Help: "Hours answered from the night-hour table instead of the model",
		},
	)

	GeometryFallbacks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "roadcast_geometry_fallbacks_total",
			Help: "Severity-line path resolutions by source tier",
		},
		[]string{"tier"},
	)

	SimulationsStored = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "roadcast_simulations_stored_total",
			Help: "Forecast runs persisted to the store",
		},
	)
)
