package http

import (
	"context"
	"encoding/json"
	"net/http"
	"slices"
	"time"

	"github.com/go-chi/chi/v5"
)

// HealthChecker is the database side of readiness.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// ReadinessChecker is an engine component that must be loaded or running
// before tickets can be routed.
type ReadinessChecker interface {
	Ready() error
}

// HealthHandler serves liveness and readiness for the routing engine.
type HealthHandler struct {
	db         HealthChecker
	components map[string]ReadinessChecker
	startTime  time.Time
	version    string
}

// NewHealthHandler creates a health handler. components is keyed by the
// name reported in the checks map.
func NewHealthHandler(db HealthChecker, version string, components map[string]ReadinessChecker) *HealthHandler {
	return &HealthHandler{
		db:         db,
		components: components,
		startTime:  time.Now(),
		version:    version,
	}
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string           `json:"status"`
	Timestamp string           `json:"timestamp"`
	Version   string           `json:"version,omitempty"`
	Uptime    string           `json:"uptime,omitempty"`
	Checks    map[string]Check `json:"checks,omitempty"`
}

// Check represents an individual health check result
type Check struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Latency string `json:"latency,omitempty"`
}

// HandleLiveness answers as long as the process serves HTTP.
func (h *HealthHandler) HandleLiveness(w http.ResponseWriter, r *http.Request) {
	writeHealth(w, http.StatusOK, HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

// HandleReadiness returns 503 until the database answers, the catalog and
// registry are loaded and the dispatcher runs.
func (h *HealthHandler) HandleReadiness(w http.ResponseWriter, r *http.Request) {
	resp, ok := h.evaluate(r.Context())
	if !ok {
		resp.Status = "unhealthy"
		writeHealth(w, http.StatusServiceUnavailable, resp)
		return
	}
	writeHealth(w, http.StatusOK, resp)
}

// HandleHealth reports the same checks for dashboards. It always answers 200
// so that a degraded engine is still visible to monitoring.
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	resp, ok := h.evaluate(r.Context())
	if !ok {
		resp.Status = "degraded"
	}
	writeHealth(w, http.StatusOK, resp)
}

func (h *HealthHandler) evaluate(ctx context.Context) (HealthResponse, bool) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	checks := make(map[string]Check, len(h.components)+1)
	checks["database"] = h.checkDatabase(ctx)

	names := make([]string, 0, len(h.components))
	for name := range h.components {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		if err := h.components[name].Ready(); err != nil {
			checks[name] = Check{Status: "unhealthy", Message: err.Error()}
			continue
		}
		checks[name] = Check{Status: "healthy"}
	}

	ok := true
	for _, c := range checks {
		if c.Status != "healthy" {
			ok = false
		}
	}

	return HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Version:   h.version,
		Uptime:    time.Since(h.startTime).Round(time.Second).String(),
		Checks:    checks,
	}, ok
}

func (h *HealthHandler) checkDatabase(ctx context.Context) Check {
	if h.db == nil {
		return Check{Status: "unhealthy", Message: "Database not configured"}
	}

	start := time.Now()
	if err := h.db.Ping(ctx); err != nil {
		return Check{Status: "unhealthy", Message: err.Error(), Latency: time.Since(start).String()}
	}
	return Check{Status: "healthy", Latency: time.Since(start).String()}
}

func writeHealth(w http.ResponseWriter, code int, resp HealthResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(resp)
}

// RegisterRoutes registers health check routes
func (h *HealthHandler) RegisterRoutes(r chi.Router) {
	r.Get("/health", h.HandleHealth)
	r.Get("/health/live", h.HandleLiveness)
	r.Get("/health/ready", h.HandleReadiness)
}
