package metrics_test

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/carelink/carelink/internal/metrics"
)

func sampleData() metrics.Data {
	return metrics.Data{
		Timestamp:           time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		UptimeSeconds:       12.5,
		Mode:                "strict",
		Ready:               true,
		Degraded:            false,
		DBReconnectAttempts: 2,
		MemoryRSSBytes:      1024,
		MemoryHeapBytes:     512,
		Requests: map[string]uint64{
			metrics.RouteHealth:   3,
			metrics.RouteAnalysis: 0,
			metrics.RouteExport:   0,
			metrics.RouteSupport:  0,
			metrics.RouteAPI:      1,
			metrics.RouteTotal:    4,
		},
	}
}

func TestFormatPrometheus_GaugeFamilies(t *testing.T) {
	out := metrics.FormatPrometheus(sampleData())

	assert.Contains(t, out, "# TYPE carelink_uptime_seconds gauge")
	assert.Contains(t, out, "carelink_uptime_seconds 12.500")
	assert.Contains(t, out, "# TYPE carelink_ready gauge")
	assert.Contains(t, out, "carelink_ready 1")
	assert.Contains(t, out, "carelink_degraded 0")
	assert.Contains(t, out, "carelink_memory_rss_bytes 1024")
	assert.Contains(t, out, "carelink_memory_heap_bytes 512")
}

func TestFormatPrometheus_CounterFamilies(t *testing.T) {
	out := metrics.FormatPrometheus(sampleData())

	assert.Contains(t, out, "# TYPE carelink_db_reconnect_attempts_total counter")
	assert.Contains(t, out, "carelink_db_reconnect_attempts_total 2")
	assert.Contains(t, out, "# TYPE carelink_http_requests_total counter")
	assert.Contains(t, out, `carelink_http_requests_total{route="health"} 3`)
	assert.Contains(t, out, `carelink_http_requests_total{route="api"} 1`)
	assert.Contains(t, out, `carelink_http_requests_total{route="total"} 4`)
}

func TestFormatPrometheus_HelpBeforeEveryType(t *testing.T) {
	out := metrics.FormatPrometheus(sampleData())

	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	for i, line := range lines {
		if strings.HasPrefix(line, "# TYPE") {
			assert.True(t, strings.HasPrefix(lines[i-1], "# HELP"), "no HELP before: %s", line)
		}
	}
	assert.True(t, strings.HasSuffix(out, "\n"))
}

func TestFormatPrometheus_NotReadyRendersZero(t *testing.T) {
	d := sampleData()
	d.Ready = false
	d.Degraded = true

	out := metrics.FormatPrometheus(d)
	assert.Contains(t, out, "carelink_ready 0")
	assert.Contains(t, out, "carelink_degraded 1")
}
