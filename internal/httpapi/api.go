/*
API composes the decision service into an HTTP router: the broker webhook
surface, the liveness/metrics probes, and the admin identity CRUD surface
(spec §4.6, §6, §12). Router wiring follows metrics-collector/main.go's
plain http.NewServeMux() idiom rather than a third-party router — the
retrieved pack never reaches for one.
*/
package httpapi

import (
	"net/http"

	"gatekeeperd/internal/decision"
)

// API is the composition root for gatekeeperd's HTTP surface.
type API struct {
	service *decision.Service
}

// New constructs an API bound to service.
func New(service *decision.Service) *API {
	return &API{service: service}
}

// Router builds the http.Handler serving every gatekeeperd endpoint.
func (a *API) Router() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/mqtt/auth", withMetrics("/mqtt/auth", a.ConnectHandler))
	mux.HandleFunc("/mqtt/publish", withMetrics("/mqtt/publish", a.PublishHandler))
	mux.HandleFunc("/mqtt/subscribe", withMetrics("/mqtt/subscribe", a.SubscribeHandler))
	mux.HandleFunc("/mqtt/offline", withMetrics("/mqtt/offline", a.OfflineHandler))
	mux.HandleFunc("/mqtt/wakeup", withMetrics("/mqtt/wakeup", a.WakeupHandler))
	mux.HandleFunc("/mqtt/health", withMetrics("/mqtt/health", a.HealthHandler))
	mux.HandleFunc("/metrics", withMetrics("/metrics", a.MetricsHandler))

	mux.HandleFunc("/admin/identities", withMetrics("/admin/identities", a.CreateIdentityHandler))
	mux.HandleFunc("/admin/identities/", withMetrics("/admin/identities/{username}", a.adminIdentityItemHandler))

	return mux
}

// adminIdentityItemHandler dispatches PUT/DELETE on a single identity by
// method, since the retrieved pack's routers predate Go's method-aware
// ServeMux patterns.
func (a *API) adminIdentityItemHandler(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPut:
		a.UpdateIdentityHandler(w, r)
	case http.MethodDelete:
		a.DeleteIdentityHandler(w, r)
	default:
		sendErrorResponse(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}
