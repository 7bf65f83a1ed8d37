package realtime

import (
	"errors"
	"testing"
	"time"

	"github.com/mlopera/roadcast/internal/models"
)

type fakeSource struct {
	flow  *Flow
	err   error
	calls int
}

func (f *fakeSource) FetchFlow(lat, lng float64) (*Flow, error) {
	f.calls++
	return f.flow, f.err
}

var testCoords = models.LatLng{Lat: 14.19, Lng: 121.17}

func fixedNow() time.Time {
	return time.Date(2025, 1, 6, 12, 0, 0, 0, time.UTC)
}

func testFlow() *Flow {
	return &Flow{
		Timestamp:     fixedNow(),
		CurrentSpeed:  30,
		FreeFlowSpeed: 60,
	}
}

func TestEvaluate_NoSource(t *testing.T) {
	p := NewPolicy(nil, fixedNow)
	sig := p.Evaluate(fixedNow(), testCoords)
	if sig.State != StateNotApplicable {
		t.Errorf("state = %v, want not_applicable", sig.State)
	}
}

func TestEvaluate_Eligibility(t *testing.T) {
	now := fixedNow()
	tests := []struct {
		name      string
		start     time.Time
		wantState PolicyState
		wantCalls int
	}{
		{"starts now", now, StateApplied, 1},
		{"starts in 1h", now.Add(time.Hour), StateApplied, 1},
		{"starts in 6h", now.Add(6 * time.Hour), StateApplied, 1},
		{"starts in 7h", now.Add(7 * time.Hour), StateNotApplicable, 0},
		{"started 11h ago today", now.Add(-11 * time.Hour), StateApplied, 1},
		{"starts tomorrow", now.Add(24 * time.Hour), StateNotApplicable, 0},
		{"started yesterday", now.Add(-24 * time.Hour), StateNotApplicable, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := &fakeSource{flow: testFlow()}
			p := NewPolicy(src, fixedNow)
			sig := p.Evaluate(tt.start, testCoords)
			if sig.State != tt.wantState {
				t.Errorf("state = %v, want %v (reason: %s)", sig.State, tt.wantState, sig.Reason)
			}
			if src.calls != tt.wantCalls {
				t.Errorf("fetch calls = %d, want %d", src.calls, tt.wantCalls)
			}
		})
	}
}

func TestEvaluate_FetchErrorFallsBack(t *testing.T) {
	src := &fakeSource{err: errors.New("boom")}
	p := NewPolicy(src, fixedNow)

	sig := p.Evaluate(fixedNow(), testCoords)
	if sig.State != StateFallback {
		t.Errorf("state = %v, want fallback", sig.State)
	}
	if sig.Flow != nil {
		t.Error("fallback signal carries a flow")
	}
	if sig.Reason == "" {
		t.Error("fallback signal has no reason")
	}
}

func TestEvaluate_SingleFetch(t *testing.T) {
	src := &fakeSource{flow: testFlow()}
	p := NewPolicy(src, fixedNow)

	p.Evaluate(fixedNow(), testCoords)
	if src.calls != 1 {
		t.Errorf("fetch calls = %d, want exactly 1 per evaluation", src.calls)
	}
}

func TestLiveRatioFor(t *testing.T) {
	now := fixedNow()
	p := NewPolicy(&fakeSource{flow: testFlow()}, fixedNow)
	sig := p.Evaluate(now, testCoords)
	if sig.State != StateApplied {
		t.Fatalf("state = %v, want applied", sig.State)
	}

	tests := []struct {
		name string
		hour time.Time
		want bool
	}{
		{"now", now, true},
		{"1h before now", now.Add(-time.Hour), true},
		{"2h before now", now.Add(-2 * time.Hour), false},
		{"6h after now", now.Add(6 * time.Hour), true},
		{"7h after now", now.Add(7 * time.Hour), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ratio := p.LiveRatioFor(sig, tt.hour)
			if (ratio != nil) != tt.want {
				t.Errorf("ratio present = %v, want %v", ratio != nil, tt.want)
			}
			if ratio != nil && *ratio != 0.5 {
				t.Errorf("ratio = %v, want 0.5", *ratio)
			}
		})
	}
}

func TestLiveRatioFor_NotApplied(t *testing.T) {
	p := NewPolicy(nil, fixedNow)
	sig := Signal{State: StateFallback}
	if p.LiveRatioFor(sig, fixedNow()) != nil {
		t.Error("fallback signal produced a ratio")
	}
}

func TestFlowSpeedRatio(t *testing.T) {
	f := testFlow()
	if got := f.SpeedRatio(); got != 0.5 {
		t.Errorf("SpeedRatio = %v, want 0.5", got)
	}

	// Missing speeds default to free flow.
	f = &Flow{}
	if got := f.SpeedRatio(); got != 1.0 {
		t.Errorf("SpeedRatio with no data = %v, want 1.0", got)
	}
}

func TestFlowCongestionLevel(t *testing.T) {
	tests := []struct {
		current float64
		free    float64
		want    models.SeverityClass
	}{
		{55, 60, models.SeverityLight},
		{48, 60, models.SeverityLight}, // exactly 0.8
		{40, 60, models.SeverityModerate},
		{20, 60, models.SeverityHeavy},
	}
	for _, tt := range tests {
		f := &Flow{CurrentSpeed: tt.current, FreeFlowSpeed: tt.free}
		if got := f.CongestionLevel(); got != tt.want {
			t.Errorf("CongestionLevel(%v/%v) = %v, want %v", tt.current, tt.free, got, tt.want)
		}
	}
}
