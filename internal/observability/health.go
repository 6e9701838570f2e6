package observability

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"
)

// HealthCheck reports whether a dependency is healthy.
type HealthCheck func() error

// Health serves /health from a set of named checks.
type Health struct {
	mu      sync.RWMutex
	checks  map[string]HealthCheck
	started time.Time
}

// NewHealth creates an empty health registry.
func NewHealth() *Health {
	return &Health{checks: make(map[string]HealthCheck), started: time.Now()}
}

// Register adds a named check.
func (h *Health) Register(name string, check HealthCheck) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.checks[name] = check
}

type healthResponse struct {
	Status        string            `json:"status"`
	UptimeSeconds int64             `json:"uptimeSeconds"`
	Checks        map[string]string `json:"checks,omitempty"`
}

// ServeHTTP implements http.Handler.
func (h *Health) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	h.mu.RLock()
	resp := healthResponse{
		Status:        "ok",
		UptimeSeconds: int64(time.Since(h.started).Seconds()),
		Checks:        make(map[string]string, len(h.checks)),
	}
	for name, check := range h.checks {
		if err := check(); err != nil {
			resp.Status = "degraded"
			resp.Checks[name] = err.Error()
			continue
		}
		resp.Checks[name] = "ok"
	}
	h.mu.RUnlock()

	w.Header().Set("Content-Type", "application/json")
	if resp.Status != "ok" {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	_ = json.NewEncoder(w).Encode(resp)
}

// NewMux returns a mux serving /metrics and /health.
func NewMux(health *Health) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler())
	mux.Handle("/health", health)
	return mux
}
