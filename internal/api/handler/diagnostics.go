package handler

import (
	"net/http"
	"os"
	"strings"

	"github.com/carelink/carelink/internal/alerting"
	"github.com/carelink/carelink/internal/api/models"
	"github.com/carelink/carelink/internal/api/response"
	"github.com/carelink/carelink/internal/health"
	"github.com/carelink/carelink/internal/integrity"
	"github.com/carelink/carelink/internal/provider/resilience"
)

// redactionMarker replaces the value of any secret-bearing environment key
// in the diagnostics dump.
const redactionMarker = "[REDACTED]"

// secretKeyMarkers flags environment keys whose values must never be
// echoed.
var secretKeyMarkers = []string{"SECRET", "TOKEN", "KEY", "PASSWORD", "CREDENTIAL", "DATABASE_URL"}

// recentErrorLimit bounds the error listing in the diagnostics response.
const recentErrorLimit = 20

// DiagnosticsHandler serves the admin diagnostics endpoint.
type DiagnosticsHandler struct {
	checker    *health.Checker
	registry   *integrity.Registry
	policy     *integrity.Policy
	dispatcher *alerting.Dispatcher
	delivery   *resilience.Registry
}

// NewDiagnosticsHandler creates a new DiagnosticsHandler.
func NewDiagnosticsHandler(
	checker *health.Checker,
	registry *integrity.Registry,
	policy *integrity.Policy,
	dispatcher *alerting.Dispatcher,
	delivery *resilience.Registry,
) *DiagnosticsHandler {
	return &DiagnosticsHandler{
		checker:    checker,
		registry:   registry,
		policy:     policy,
		dispatcher: dispatcher,
		delivery:   delivery,
	}
}

// Get handles GET /v1/admin/diagnostics.
func (h *DiagnosticsHandler) Get(w http.ResponseWriter, r *http.Request) {
	snapshot, ok := h.checker.Latest()
	if !ok {
		snapshot = h.checker.Check(r.Context())
	}

	services := h.policy.ServiceStatuses(h.registry)

	var delivery []*resilience.EndpointHealth
	if h.delivery != nil {
		delivery = h.delivery.GetAllHealth()
	}

	response.JSON(w, r, http.StatusOK, models.Diagnostics{
		Snapshot:     snapshot,
		Integrity:    h.policy.Status(h.registry),
		Services:     services,
		RecentErrors: h.dispatcher.RecentErrors(recentErrorLimit),
		LikelyCauses: likelyCauses(snapshot, services),
		Delivery:     delivery,
		Environment:  redactedEnvironment(os.Environ()),
	})
}

// likelyCauses maps the observed failure shape to the most probable
// operator-facing explanations.
func likelyCauses(snapshot health.Snapshot, services []integrity.ServiceStatus) []string {
	var causes []string

	for _, s := range services {
		switch {
		case s.Name == integrity.ServiceDatabase && !s.Available && s.ConnectedSince == nil:
			causes = append(causes, "database has never connected; DATABASE_URL is likely wrong or the database is not running")
		case s.Name == integrity.ServiceDatabase && !s.Available:
			causes = append(causes, "database connection lost: "+s.LastError)
		case s.Name == integrity.ServiceStorage && !s.Available:
			causes = append(causes, "data directory is missing or not writable: "+s.LastError)
		}
	}

	for _, reason := range snapshot.Degraded.Reasons {
		switch reason {
		case health.ReasonSpeechModelMissing:
			causes = append(causes, "transcription model file is not installed at any configured path")
		case health.ReasonStripeKeysMissing:
			causes = append(causes, "payment provider key material is incomplete for the configured checkout mode")
		case health.ReasonTranspileOnly:
			causes = append(causes, "eligibility rules engine was deployed without type checking")
		}
	}

	if len(causes) == 0 {
		causes = append(causes, "no known failure pattern matched; check logs for more details")
	}
	return causes
}

// redactedEnvironment returns the process environment with secret-bearing
// values replaced by the redaction marker.
func redactedEnvironment(environ []string) map[string]string {
	out := make(map[string]string, len(environ))
	for _, entry := range environ {
		key, value, found := strings.Cut(entry, "=")
		if !found {
			continue
		}
		if isSecretKey(key) {
			value = redactionMarker
		}
		out[key] = value
	}
	return out
}

func isSecretKey(key string) bool {
	upper := strings.ToUpper(key)
	for _, marker := range secretKeyMarkers {
		if strings.Contains(upper, marker) {
			return true
		}
	}
	return false
}
