/*
HTTP instrumentation middleware, adapted from entry-hub/middleware/metrics.go's
responseWriter status-capturing wrapper. Labels carry only method, route
template, and status code — never a query string, client id, or username
(spec §9's zero-knowledge-style metrics discipline carried into the ambient
stack).
*/
package httpapi

import (
	"net/http"

	"gatekeeperd/internal/metrics"
)

// withMetrics wraps a handler so every request is counted by route and
// status, regardless of which decision or admin endpoint served it.
func withMetrics(route string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		wrapper := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next(wrapper, r)
		metrics.Default().RecordHTTPRequest(r.Method, route, wrapper.statusCode)
	}
}

// responseWriter captures the status code written by the wrapped handler.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}
