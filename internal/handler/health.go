package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

// HealthChecker is implemented by every dependency the health endpoint
// probes (database ping, webhook reachability, redis ping).
type HealthChecker func(ctx context.Context) error

type serviceHealth struct {
	Status      string `json:"status"`
	LastChecked string `json:"last_checked"`
	Error       string `json:"error,omitempty"`
}

type healthResponse struct {
	Status    string                   `json:"status"`
	Timestamp string                   `json:"timestamp"`
	Services  map[string]serviceHealth `json:"services"`
}

// HealthHandler aggregates dependency probes into ok/degraded/error.
type HealthHandler struct {
	checks map[string]HealthChecker
}

func NewHealthHandler(checks map[string]HealthChecker) *HealthHandler {
	return &HealthHandler{checks: checks}
}

func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	services := make(map[string]serviceHealth, len(h.checks))
	up := 0
	for name, check := range h.checks {
		entry := serviceHealth{
			Status:      "up",
			LastChecked: time.Now().UTC().Format(time.RFC3339),
		}
		if err := check(ctx); err != nil {
			entry.Status = "down"
			entry.Error = err.Error()
		} else {
			up++
		}
		services[name] = entry
	}

	status := "ok"
	code := http.StatusOK
	switch {
	case up == 0:
		status = "error"
		code = http.StatusServiceUnavailable
	case up < len(h.checks):
		status = "degraded"
	}

	resp := healthResponse{
		Status:    status,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Services:  services,
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(resp)
}
