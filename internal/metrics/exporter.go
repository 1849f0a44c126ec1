// Package metrics samples the health and integrity state together with
// process statistics and renders them for scraping, either as Prometheus
// text exposition or JSON.
package metrics

import (
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/carelink/carelink/internal/health"
	"github.com/carelink/carelink/internal/integrity"
)

// Data is one point-in-time metrics sample.
type Data struct {
	Timestamp           time.Time         `json:"timestamp"`
	UptimeSeconds       float64           `json:"uptimeSeconds"`
	Mode                string            `json:"mode"`
	Ready               bool              `json:"ready"`
	Degraded            bool              `json:"degraded"`
	DBReconnectAttempts int64             `json:"dbReconnectAttempts"`
	MemoryRSSBytes      uint64            `json:"memoryRssBytes"`
	MemoryHeapBytes     uint64            `json:"memoryHeapBytes"`
	Requests            map[string]uint64 `json:"requests"`
}

// AttemptCounter exposes the database reconnect attempt count. The
// reconnect supervisor implements this.
type AttemptCounter interface {
	Attempts() int64
}

// ExporterConfig holds the sources an Exporter samples.
type ExporterConfig struct {
	Registry  *integrity.Registry
	Policy    *integrity.Policy
	Checker   *health.Checker
	Counters  *RequestCounters
	Reconnect AttemptCounter // optional; nil in file-store mode
}

// Exporter samples the live state on demand.
type Exporter struct {
	registry  *integrity.Registry
	policy    *integrity.Policy
	checker   *health.Checker
	counters  *RequestCounters
	reconnect AttemptCounter
	start     time.Time
}

// NewExporter creates a metrics exporter.
func NewExporter(cfg ExporterConfig) *Exporter {
	return &Exporter{
		registry:  cfg.Registry,
		policy:    cfg.Policy,
		checker:   cfg.Checker,
		counters:  cfg.Counters,
		reconnect: cfg.Reconnect,
		start:     time.Now(),
	}
}

// Collect samples the current state. Readiness comes from the integrity
// policy, which is the canonical signal; the snapshot status is only used
// for the degraded flag.
func (e *Exporter) Collect() Data {
	status := e.policy.Status(e.registry)

	degraded := false
	if snapshot, ok := e.checker.Latest(); ok {
		degraded = snapshot.Degraded.Enabled
	}

	var attempts int64
	if e.reconnect != nil {
		attempts = e.reconnect.Attempts()
	}

	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	return Data{
		Timestamp:           time.Now(),
		UptimeSeconds:       time.Since(e.start).Seconds(),
		Mode:                string(status.Mode),
		Ready:               status.Ready,
		Degraded:            degraded,
		DBReconnectAttempts: attempts,
		MemoryRSSBytes:      residentSetBytes(&mem),
		MemoryHeapBytes:     mem.HeapAlloc,
		Requests:            e.counters.Snapshot(),
	}
}

// residentSetBytes reads the process RSS from /proc where available,
// falling back to the runtime's own accounting elsewhere.
func residentSetBytes(mem *runtime.MemStats) uint64 {
	data, err := os.ReadFile("/proc/self/statm")
	if err != nil {
		return mem.Sys
	}
	fields := strings.Fields(string(data))
	if len(fields) < 2 {
		return mem.Sys
	}
	pages, err := strconv.ParseUint(fields[1], 10, 64)
	if err != nil {
		return mem.Sys
	}
	return pages * uint64(os.Getpagesize()) //nolint:gosec // page size is small and positive
}
