package metrics

import (
	"fmt"
	"strings"
)

// FormatPrometheus renders a sample in the Prometheus text exposition
// format: a HELP/TYPE comment pair per family followed by its metric lines.
// Point-in-time values are gauges; monotonic counts are counters.
func FormatPrometheus(d Data) string {
	var b strings.Builder

	writeGauge(&b, "carelink_uptime_seconds", "Seconds since the process started.", fmt.Sprintf("%.3f", d.UptimeSeconds))
	writeGauge(&b, "carelink_ready", "Whether the service meets all required-dependency conditions (1 = ready).", boolValue(d.Ready))
	writeGauge(&b, "carelink_degraded", "Whether any optional capability is missing (1 = degraded).", boolValue(d.Degraded))
	writeGauge(&b, "carelink_memory_rss_bytes", "Resident set size of the process.", fmt.Sprintf("%d", d.MemoryRSSBytes))
	writeGauge(&b, "carelink_memory_heap_bytes", "Bytes of allocated heap objects.", fmt.Sprintf("%d", d.MemoryHeapBytes))

	b.WriteString("# HELP carelink_db_reconnect_attempts_total Database reconnect attempts since startup.\n")
	b.WriteString("# TYPE carelink_db_reconnect_attempts_total counter\n")
	fmt.Fprintf(&b, "carelink_db_reconnect_attempts_total %d\n", d.DBReconnectAttempts)

	b.WriteString("# HELP carelink_http_requests_total HTTP requests served, by route group.\n")
	b.WriteString("# TYPE carelink_http_requests_total counter\n")
	for _, group := range routeGroups {
		fmt.Fprintf(&b, "carelink_http_requests_total{route=%q} %d\n", group, d.Requests[group])
	}
	fmt.Fprintf(&b, "carelink_http_requests_total{route=%q} %d\n", RouteTotal, d.Requests[RouteTotal])

	return b.String()
}

func writeGauge(b *strings.Builder, name, help, value string) {
	fmt.Fprintf(b, "# HELP %s %s\n", name, help)
	fmt.Fprintf(b, "# TYPE %s gauge\n", name)
	fmt.Fprintf(b, "%s %s\n", name, value)
}

func boolValue(v bool) string {
	if v {
		return "1"
	}
	return "0"
}
