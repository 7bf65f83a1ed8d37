// Package api exposes the forecast engine over HTTP: scenario
// submission, stored simulation retrieval, road metadata and a live
// traffic probe.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mlopera/roadcast/internal/forecast"
	"github.com/mlopera/roadcast/internal/realtime"
	"github.com/mlopera/roadcast/internal/store"
)

type Server struct {
	store  *store.Store
	engine *forecast.Engine
	live   realtime.Source
	port   string
	loc    *time.Location
}

func NewServer(store *store.Store, engine *forecast.Engine, live realtime.Source, port string, loc *time.Location) *Server {
	return &Server{
		store:  store,
		engine: engine,
		live:   live,
		port:   port,
		loc:    loc,
	}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/forecast", s.handleForecast)
	mux.HandleFunc("/api/predict", s.handlePredict)
	mux.HandleFunc("/api/road-info", s.handleRoadInfo)
	mux.HandleFunc("/api/realtime-traffic", s.handleRealtimeTraffic)
	mux.HandleFunc("/api/simulations", s.handleSimulations)
	mux.HandleFunc("/api/simulations/", s.handleSimulationByID)
	mux.HandleFunc("/health", s.handleHealth)
	mux.Handle("/metrics", promhttp.Handler())
	return mux
}

func (s *Server) Run(ctx context.Context) error {
	server := &http.Server{
		Addr:    ":" + s.port,
		Handler: s.Handler(),
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}
	return nil
}
