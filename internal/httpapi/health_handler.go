package httpapi

import (
	"net/http"
	"time"

	"gatekeeperd/internal/metrics"
)

type healthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

// HealthHandler serves GET /mqtt/health (spec §4.6, §6): 200 iff the
// store is reachable and the logger queue is below its high-water mark,
// otherwise 503.
func (a *API) HealthHandler(w http.ResponseWriter, r *http.Request) {
	if !EnforceGET(w, r) {
		return
	}

	h := a.service.Health(r.Context())

	status := http.StatusOK
	statusLabel := "healthy"
	if !h.Healthy {
		status = http.StatusServiceUnavailable
		statusLabel = "unhealthy"
	}

	sendJSON(w, status, healthResponse{Status: statusLabel, Timestamp: time.Now()})
}

// MetricsHandler serves GET /metrics in Prometheus text exposition
// format (metrics-collector/handlers/prometheus.go's own shape).
func (a *API) MetricsHandler(w http.ResponseWriter, r *http.Request) {
	if !EnforceGET(w, r) {
		return
	}
	w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
	metrics.Default().WritePrometheus(w)
}
