package geometry

import (
	"errors"
	"testing"

	"github.com/mlopera/roadcast/internal/models"
)

func TestLocateArea(t *testing.T) {
	tests := []struct {
		lat, lng float64
		want     string
		found    bool
	}{
		{14.190, 121.170, "Bucal", true},
		{14.215, 121.150, "Parian", true},
		{14.185, 121.140, "Turbina", true},
		{0, 0, "", false},
		{14.50, 121.00, "", false},
	}
	for _, tt := range tests {
		area, ok := LocateArea(tt.lat, tt.lng)
		if ok != tt.found {
			t.Errorf("LocateArea(%v, %v) found = %v, want %v", tt.lat, tt.lng, ok, tt.found)
			continue
		}
		if ok && area.Name != tt.want {
			t.Errorf("LocateArea(%v, %v) = %q, want %q", tt.lat, tt.lng, area.Name, tt.want)
		}
	}
}

func TestAreaByName(t *testing.T) {
	area, ok := AreaByName("Parian")
	if !ok || area.Corridor != "Maharlika_Parian" {
		t.Errorf("AreaByName(Parian) = %+v, %v", area, ok)
	}
	if _, ok := AreaByName("Atlantis"); ok {
		t.Error("AreaByName(Atlantis) found = true")
	}
}

type fakeSegments struct {
	path []models.LatLng
	err  error
}

func (f *fakeSegments) SegmentPath(corridor string) ([]models.LatLng, error) {
	return f.path, f.err
}

func TestResolvePath_SegmentTier(t *testing.T) {
	stored := []models.LatLng{{Lat: 14.18, Lng: 121.16}, {Lat: 14.20, Lng: 121.18}}
	r := NewResolver(&fakeSegments{path: stored})

	path, source := r.ResolvePath("Bucal", "Calamba_Pagsanjan", models.LatLng{Lat: 14.19, Lng: 121.17})
	if source != models.PathFromSegment {
		t.Fatalf("source = %v, want segment", source)
	}
	if len(path) != 2 {
		t.Fatalf("path points = %d, want 2", len(path))
	}

	// The returned path is an owned copy.
	path[0].Lat = 0
	if stored[0].Lat != 14.18 {
		t.Error("resolved path aliases the stored geometry")
	}
}

func TestResolvePath_SyntheticTier(t *testing.T) {
	tests := []struct {
		name     string
		segments SegmentSource
	}{
		{"no source", nil},
		{"empty geometry", &fakeSegments{}},
		{"single point", &fakeSegments{path: []models.LatLng{{Lat: 14.19, Lng: 121.17}}}},
		{"lookup error", &fakeSegments{err: errors.New("boom")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewResolver(tt.segments)
			path, source := r.ResolvePath("Bucal", "Calamba_Pagsanjan", models.LatLng{Lat: 14.19, Lng: 121.17})
			if source != models.PathSynthetic {
				t.Fatalf("source = %v, want synthetic", source)
			}
			if len(path) != 5 {
				t.Errorf("path points = %d, want 5", len(path))
			}
		})
	}
}

func TestResolvePath_DefaultTier(t *testing.T) {
	r := NewResolver(nil)

	// No geometry and no disruption point: the area centre anchors it.
	path, source := r.ResolvePath("Parian", "Maharlika_Parian", models.LatLng{})
	if source != models.PathDefaultanchor {
		t.Fatalf("source = %v, want default", source)
	}
	if len(path) < 2 {
		t.Fatalf("path points = %d, want at least 2", len(path))
	}
	if path[0].Lat != 14.215 {
		t.Errorf("anchor = %+v, want Parian centre", path[0])
	}

	// Unknown area falls back to the fixed network anchor.
	path, _ = r.ResolvePath("Atlantis", "nope", models.LatLng{})
	if path[0].Lat != 14.1954 {
		t.Errorf("anchor = %+v, want default network anchor", path[0])
	}
}

func TestSyntheticPath(t *testing.T) {
	centre := models.LatLng{Lat: 14.19, Lng: 121.17}
	path := SyntheticPath(centre)
	if len(path) != 5 {
		t.Fatalf("points = %d, want 5", len(path))
	}
	if path[2] != centre {
		t.Errorf("midpoint = %+v, want the centre", path[2])
	}
	if path[0].Lat >= path[4].Lat {
		t.Error("path is not ordered south to north")
	}
}
