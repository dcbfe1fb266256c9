/*
Hand-rolled Prometheus text exposition, matching
metrics-collector/handlers/prometheus.go's format rather than importing
prometheus/client_golang (absent anywhere in the retrieved pack for this
service family).
*/
package metrics

import (
	"fmt"
	"io"
	"sort"
	"strings"
)

// WritePrometheus renders the collector's current state in Prometheus
// text exposition format (version 0.0.4).
func (c *Collector) WritePrometheus(w io.Writer) {
	s := c.snapshot()

	fmt.Fprintf(w, "# HELP gatekeeperd_up Indicates the decision service is running\n")
	fmt.Fprintf(w, "# TYPE gatekeeperd_up gauge\n")
	fmt.Fprintf(w, "gatekeeperd_up 1\n\n")

	fmt.Fprintf(w, "# HELP gatekeeperd_uptime_seconds Seconds since process start\n")
	fmt.Fprintf(w, "# TYPE gatekeeperd_uptime_seconds gauge\n")
	fmt.Fprintf(w, "gatekeeperd_uptime_seconds %.0f\n\n", s.uptime.Seconds())

	writeDecisionCounters(w, s.decisionsTotal)
	writeStoreErrorCounters(w, s.storeErrorsTotal)
	writeHTTPRequestCounters(w, s.httpRequestsTotal)

	fmt.Fprintf(w, "# HELP gatekeeperd_activity_log_dropped_records_total Activity records dropped for queue overflow\n")
	fmt.Fprintf(w, "# TYPE gatekeeperd_activity_log_dropped_records_total counter\n")
	fmt.Fprintf(w, "gatekeeperd_activity_log_dropped_records_total %d\n\n", s.droppedRecordsTotal)

	fmt.Fprintf(w, "# HELP gatekeeperd_live_sessions Aggregate live MQTT session count\n")
	fmt.Fprintf(w, "# TYPE gatekeeperd_live_sessions gauge\n")
	fmt.Fprintf(w, "gatekeeperd_live_sessions %d\n\n", s.liveSessionsGauge)
}

func writeDecisionCounters(w io.Writer, decisions map[string]int64) {
	fmt.Fprintf(w, "# HELP gatekeeperd_decisions_total Decision endpoint outcomes\n")
	fmt.Fprintf(w, "# TYPE gatekeeperd_decisions_total counter\n")

	keys := make([]string, 0, len(decisions))
	for k := range decisions {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		parts := strings.SplitN(key, ":", 3)
		if len(parts) != 3 {
			continue
		}
		labels := formatLabels(map[string]string{
			"endpoint":  parts[0],
			"outcome":   parts[1],
			"cache_hit": parts[2],
		})
		fmt.Fprintf(w, "gatekeeperd_decisions_total%s %d\n", labels, decisions[key])
	}
	fmt.Fprintln(w)
}

func writeStoreErrorCounters(w io.Writer, storeErrors map[string]int64) {
	fmt.Fprintf(w, "# HELP gatekeeperd_store_errors_total Credential store failures by kind\n")
	fmt.Fprintf(w, "# TYPE gatekeeperd_store_errors_total counter\n")

	keys := make([]string, 0, len(storeErrors))
	for k := range storeErrors {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, kind := range keys {
		labels := formatLabels(map[string]string{"kind": kind})
		fmt.Fprintf(w, "gatekeeperd_store_errors_total%s %d\n", labels, storeErrors[kind])
	}
	fmt.Fprintln(w)
}

func writeHTTPRequestCounters(w io.Writer, requests map[string]int64) {
	fmt.Fprintf(w, "# HELP gatekeeperd_http_requests_total HTTP requests served by route and status\n")
	fmt.Fprintf(w, "# TYPE gatekeeperd_http_requests_total counter\n")

	keys := make([]string, 0, len(requests))
	for k := range requests {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		parts := strings.SplitN(key, ":", 3)
		if len(parts) != 3 {
			continue
		}
		labels := formatLabels(map[string]string{
			"method": parts[0],
			"route":  parts[1],
			"status": parts[2],
		})
		fmt.Fprintf(w, "gatekeeperd_http_requests_total%s %d\n", labels, requests[key])
	}
	fmt.Fprintln(w)
}

// formatLabels renders a Prometheus label set, sorted for stable output.
func formatLabels(labels map[string]string) string {
	if len(labels) == 0 {
		return ""
	}

	keys := make([]string, 0, len(labels))
	for k := range labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		v := labels[k]
		v = strings.ReplaceAll(v, `\`, `\\`)
		v = strings.ReplaceAll(v, `"`, `\"`)
		v = strings.ReplaceAll(v, "\n", `\n`)
		parts = append(parts, fmt.Sprintf(`%s="%s"`, k, v))
	}
	return "{" + strings.Join(parts, ",") + "}"
}
