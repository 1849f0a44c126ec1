package metrics

import (
	"net/http"
	"strings"
	"sync/atomic"
)

// Route groups for request accounting. The vocabulary is stable; dashboards
// key on these names.
const (
	RouteHealth   = "health"
	RouteAnalysis = "analysis"
	RouteExport   = "export"
	RouteSupport  = "support"
	RouteAPI      = "api"
	RouteTotal    = "total"
)

// routeGroups lists every group except the total, in render order.
var routeGroups = []string{RouteHealth, RouteAnalysis, RouteExport, RouteSupport, RouteAPI}

// RouteGroup classifies a request path into its accounting group.
func RouteGroup(path string) string {
	switch {
	case strings.Contains(path, "/health"):
		return RouteHealth
	case strings.Contains(path, "/analysis"), strings.Contains(path, "/transcribe"):
		return RouteAnalysis
	case strings.Contains(path, "/export"):
		return RouteExport
	case strings.Contains(path, "/support"):
		return RouteSupport
	default:
		return RouteAPI
	}
}

// RequestCounters counts requests per route group. Constructed once at
// startup and shared by the router middleware and the exporter.
type RequestCounters struct {
	health   atomic.Uint64
	analysis atomic.Uint64
	export   atomic.Uint64
	support  atomic.Uint64
	api      atomic.Uint64
	total    atomic.Uint64
}

// NewRequestCounters creates a zeroed counter set.
func NewRequestCounters() *RequestCounters {
	return &RequestCounters{}
}

// Record counts one request against the group for the given path.
func (c *RequestCounters) Record(path string) {
	c.total.Add(1)
	switch RouteGroup(path) {
	case RouteHealth:
		c.health.Add(1)
	case RouteAnalysis:
		c.analysis.Add(1)
	case RouteExport:
		c.export.Add(1)
	case RouteSupport:
		c.support.Add(1)
	default:
		c.api.Add(1)
	}
}

// Snapshot returns the current counts keyed by group, including the total.
func (c *RequestCounters) Snapshot() map[string]uint64 {
	return map[string]uint64{
		RouteHealth:   c.health.Load(),
		RouteAnalysis: c.analysis.Load(),
		RouteExport:   c.export.Load(),
		RouteSupport:  c.support.Load(),
		RouteAPI:      c.api.Load(),
		RouteTotal:    c.total.Load(),
	}
}

// Middleware counts every request passing through the router.
func (c *RequestCounters) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			c.Record(r.URL.Path)
			next.ServeHTTP(w, r)
		})
	}
}
