// Package geometry resolves drawable coordinate paths for severity
// lines. Map rendering must never receive a line without a path, so
// resolution falls back from stored segment geometry to a synthetic
// path around the disruption point to a fixed default location.
package geometry

import (
	"log"

	"github.com/mlopera/roadcast/internal/metrics"
	"github.com/mlopera/roadcast/internal/models"
)

// Area describes one covered area: its bounding box, the corridor that
// runs through it and a centre point used as the last-resort anchor.
type Area struct {
	Name     string
	Corridor string
	RoadName string
	LatMin   float64
	LatMax   float64
	LngMin   float64
	LngMax   float64
	Centre   models.LatLng
}

// CoveredAreas are the corridors the severity model was trained on.
var CoveredAreas = []Area{
	{
		Name: "Bucal", Corridor: "Calamba_Pagsanjan", RoadName: "Calamba-Pagsanjan Road",
		LatMin: 14.18, LatMax: 14.20, LngMin: 121.16, LngMax: 121.18,
		Centre: models.LatLng{Lat: 14.190, Lng: 121.170},
	},
	{
		Name: "Parian", Corridor: "Maharlika_Parian", RoadName: "Maharlika Highway (Parian Section)",
		LatMin: 14.21, LatMax: 14.22, LngMin: 121.14, LngMax: 121.16,
		Centre: models.LatLng{Lat: 14.215, Lng: 121.150},
	},
	{
		Name: "Turbina", Corridor: "Maharlika_Turbina", RoadName: "Maharlika Highway (Turbina Section)",
		LatMin: 14.18, LatMax: 14.19, LngMin: 121.13, LngMax: 121.15,
		Centre: models.LatLng{Lat: 14.185, Lng: 121.140},
	},
}

// defaultAnchor is the covered-network centre, used when neither
// geometry nor a usable disruption point exists.
var defaultAnchor = models.LatLng{Lat: 14.1954, Lng: 121.1577}

// LocateArea maps a coordinate to a covered area by bounding box.
func LocateArea(lat, lng float64) (Area, bool) {
	for _, a := range CoveredAreas {
		if lat >= a.LatMin && lat <= a.LatMax && lng >= a.LngMin && lng <= a.LngMax {
			return a, true
		}
	}
	return Area{}, false
}

// AreaByName looks up a covered area by its name.
func AreaByName(name string) (Area, bool) {
	for _, a := range CoveredAreas {
		if a.Name == name {
			return a, true
		}
	}
	return Area{}, false
}

// SegmentSource supplies stored road geometry for a corridor, or an
// empty path when none was imported.
type SegmentSource interface {
	SegmentPath(corridor string) ([]models.LatLng, error)
}

type Resolver struct {
	segments SegmentSource
}

func NewResolver(segments SegmentSource) *Resolver {
	return &Resolver{segments: segments}
}

// ResolvePath returns an owned coordinate path for a severity line.
// Tier 1: imported segment geometry. Tier 2: a short synthetic path
// interpolated around the disruption point. Tier 3: the area centre or
// the fixed default anchor. Tiers 2 and 3 are degraded modes and are
// logged and counted as such.
func (r *Resolver) ResolvePath(area, corridor string, disruption models.LatLng) ([]models.LatLng, models.PathSource) {
	if r.segments != nil {
		path, err := r.segments.SegmentPath(corridor)
		if err != nil {
			log.Printf("segment geometry lookup failed for %s: %v", corridor, err)
		} else if len(path) >= 2 {
			metrics.GeometryFallbacks.WithLabelValues("segment").Inc()
			return append([]models.LatLng(nil), path...), models.PathFromSegment
		}
	}

	if disruption.Lat != 0 && disruption.Lng != 0 {
		log.Printf("no stored geometry for %s, synthesizing path around disruption point", corridor)
		metrics.GeometryFallbacks.WithLabelValues("synthetic").Inc()
		return SyntheticPath(disruption), models.PathSynthetic
	}

	anchor := defaultAnchor
	if a, ok := AreaByName(area); ok {
		anchor = a.Centre
	}
	log.Printf("no geometry or disruption point for %s, using default anchor", corridor)
	metrics.GeometryFallbacks.WithLabelValues("default").Inc()
	return []models.LatLng{anchor, {Lat: anchor.Lat + 0.001, Lng: anchor.Lng + 0.001}}, models.PathDefaultanchor
}

// SyntheticPath interpolates a short five-point line through the
// disruption point, roughly 400 m end to end, so the map has something
// proportionate to draw.
func SyntheticPath(centre models.LatLng) []models.LatLng {
	const span = 0.002 // about 200 m of latitude either side
	path := make([]models.LatLng, 0, 5)
	for i := -2; i <= 2; i++ {
		f := float64(i) / 2
		path = append(path, models.LatLng{
			Lat: centre.Lat + f*span,
			Lng: centre.Lng + f*span*0.6,
		})
	}
	return path
}
