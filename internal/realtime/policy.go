package realtime

import (
	"fmt"
	"log"
	"time"

	"github.com/mlopera/roadcast/internal/models"
)

// Blending policy: a live signal is only meaningful for disruptions
// happening around now, and only for forecast hours near now. Everything
// else runs on the pure historical model.
const (
	// Scenario eligibility: the disruption must start today, at most
	// this far in the future and at most a day in the past.
	maxHoursUntilStart = 6
	maxHoursSinceStart = 24

	// Per-hour window around now in which the live signal applies.
	hourWindowBefore = time.Hour
	hourWindowAfter  = 6 * time.Hour
)

type PolicyState string

const (
	StateNotApplicable PolicyState = "not_applicable"
	StateApplied       PolicyState = "applied"
	StateFallback      PolicyState = "fallback"
)

// Signal is the per-scenario outcome of the policy: at most one fetch,
// no retries, failure degrades to the historical-only path.
type Signal struct {
	State  PolicyState
	Flow   *Flow
	Reason string
}

// Policy decides when the live source is consulted and when its reading
// applies. The clock is injected so the time-window rules are testable.
type Policy struct {
	source Source
	now    func() time.Time
}

func NewPolicy(source Source, now func() time.Time) *Policy {
	if now == nil {
		now = time.Now
	}
	return &Policy{source: source, now: now}
}

// Evaluate runs the eligibility check for a scenario and, if eligible,
// performs the single fetch attempt.
func (p *Policy) Evaluate(start time.Time, coords models.LatLng) Signal {
	now := p.now()

	if p.source == nil {
		return Signal{State: StateNotApplicable, Reason: "no live-traffic source configured"}
	}

	ny, nm, nd := now.Date()
	sy, sm, sd := start.In(now.Location()).Date()
	if ny != sy || nm != sm || nd != sd {
		return Signal{State: StateNotApplicable, Reason: "disruption does not start today"}
	}

	untilStart := start.Sub(now)
	if untilStart > maxHoursUntilStart*time.Hour {
		return Signal{State: StateNotApplicable, Reason: fmt.Sprintf("starts in %.1fh, beyond the %dh live window", untilStart.Hours(), maxHoursUntilStart)}
	}
	if untilStart < -maxHoursSinceStart*time.Hour {
		return Signal{State: StateNotApplicable, Reason: fmt.Sprintf("started %.1fh ago, beyond the %dh live window", -untilStart.Hours(), maxHoursSinceStart)}
	}

	flow, err := p.source.FetchFlow(coords.Lat, coords.Lng)
	if err != nil {
		log.Printf("live traffic fetch failed, continuing on historical model: %v", err)
		return Signal{State: StateFallback, Reason: err.Error()}
	}
	return Signal{State: StateApplied, Flow: flow}
}

// LiveRatioFor returns the speed ratio to blend for one forecast hour,
// or nil when the hour falls outside the near-now window or the
// scenario has no applied signal.
func (p *Policy) LiveRatioFor(sig Signal, hour time.Time) *float64 {
	if sig.State != StateApplied || sig.Flow == nil {
		return nil
	}
	offset := hour.Sub(p.now())
	if offset < -hourWindowBefore || offset > hourWindowAfter {
		return nil
	}
	ratio := sig.Flow.SpeedRatio()
	return &ratio
}
