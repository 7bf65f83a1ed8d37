// Package httputil holds the HTTP client for outbound traffic-API
// calls.
package httputil

import (
	"net/http"
	"time"
)

// ProbeTimeout bounds a single live-traffic request. The probe runs
// inline while a forecast request waits, so each attempt must finish
// well inside the retry budget in internal/realtime.
const ProbeTimeout = 10 * time.Second

// ProbeClient returns the client used for live-traffic probes.
func ProbeClient() *http.Client {
	return &http.Client{
		Timeout: ProbeTimeout,
	}
}
