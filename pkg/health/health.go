// Package health tracks server readiness and serves the HTTP probe endpoints.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sync/atomic"
	"time"
)

// probeTimeout bounds the dependency probe on each readiness request.
const probeTimeout = 2 * time.Second

// State constants for the readiness state machine.
const (
	stateStarting int32 = iota
	stateReady
	stateDraining
)

// Probe reports whether a dependency is reachable. A nil error means
// healthy.
type Probe func(ctx context.Context) error

// Checker tracks the readiness state of the server.
// It is safe for concurrent use.
type Checker struct {
	state atomic.Int32
	probe Probe
}

// NewChecker creates a Checker in the Starting state. The optional probe
// runs on every readiness request once the server is ready; pass nil when
// readiness should follow lifecycle state alone.
func NewChecker(probe Probe) *Checker {
	return &Checker{probe: probe}
}

// SetReady transitions to the Ready state.
func (c *Checker) SetReady() {
	c.state.Store(stateReady)
}

// SetDraining transitions to the Draining state.
func (c *Checker) SetDraining() {
	c.state.Store(stateDraining)
}

// IsReady returns true when the state is Ready.
func (c *Checker) IsReady() bool {
	return c.state.Load() == stateReady
}

// State returns the current state as a human-readable string.
func (c *Checker) State() string {
	switch c.state.Load() {
	case stateReady:
		return "ready"
	case stateDraining:
		return "draining"
	default:
		return "starting"
	}
}

// probeResponse is the JSON body returned by the probe endpoints. Database
// is set only when a dependency probe is configured.
type probeResponse struct {
	Status   string `json:"status"`
	Database string `json:"database,omitempty"`
}

// LivenessHandler returns an http.HandlerFunc that always responds 200 OK.
// Use this for K8s livenessProbe (/healthz).
func (*Checker) LivenessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, probeResponse{Status: "ok"})
	}
}

// ReadinessHandler returns an http.HandlerFunc that responds 200 when the
// server is ready and its database probe passes, and 503 otherwise.
// Use this for K8s readinessProbe (/readyz).
func (c *Checker) ReadinessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !c.IsReady() {
			writeJSON(w, http.StatusServiceUnavailable, probeResponse{Status: c.State()})
			return
		}

		resp := probeResponse{Status: c.State()}
		if c.probe != nil {
			ctx, cancel := context.WithTimeout(r.Context(), probeTimeout)
			defer cancel()
			if err := c.probe(ctx); err != nil {
				resp.Database = "unreachable: " + err.Error()
				writeJSON(w, http.StatusServiceUnavailable, resp)
				return
			}
			resp.Database = "ok"
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func writeJSON(w http.ResponseWriter, code int, v probeResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
