// Package handler provides HTTP handlers for the CareLink operations API.
package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/carelink/carelink/internal/api/models"
	"github.com/carelink/carelink/internal/api/response"
	"github.com/carelink/carelink/internal/health"
	"github.com/carelink/carelink/internal/integrity"
)

// historyDefaultLimit applies when the history endpoint gets no limit
// parameter.
const historyDefaultLimit = 20

// OpsHandler serves the liveness, readiness, status and history endpoints.
type OpsHandler struct {
	checker  *health.Checker
	registry *integrity.Registry
	policy   *integrity.Policy
}

// NewOpsHandler creates a new OpsHandler.
func NewOpsHandler(checker *health.Checker, registry *integrity.Registry, policy *integrity.Policy) *OpsHandler {
	return &OpsHandler{
		checker:  checker,
		registry: registry,
		policy:   policy,
	}
}

// Live handles GET /v1/health/live. A running process is alive; no
// dependency state is consulted.
func (h *OpsHandler) Live(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, r, http.StatusOK, models.Liveness{
		Status: "alive",
		Time:   models.Timestamp(time.Now()),
	})
}

// Ready handles GET /v1/health/ready, returning 503 while any required
// dependency is unavailable.
func (h *OpsHandler) Ready(w http.ResponseWriter, r *http.Request) {
	status := h.policy.Status(h.registry)

	code := http.StatusOK
	if !status.Ready {
		code = http.StatusServiceUnavailable
	}

	response.JSON(w, r, code, models.Readiness{
		Ready:           status.Ready,
		Mode:            string(status.Mode),
		BlockingReasons: status.BlockingReasons,
		Time:            models.Timestamp(time.Now()),
	})
}

// Status handles GET /v1/health/status with a fresh probe cycle. The
// response is always 200 with a structured snapshot; check failures appear
// as an unhealthy snapshot, never as a 500.
func (h *OpsHandler) Status(w http.ResponseWriter, r *http.Request) {
	snapshot := h.checker.Check(r.Context())
	response.JSON(w, r, http.StatusOK, snapshot)
}

// History handles GET /v1/health/history?limit=N, returning recent
// snapshots oldest first.
func (h *OpsHandler) History(w http.ResponseWriter, r *http.Request) {
	limit := historyDefaultLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			response.BadRequest(w, r, "limit must be a positive integer")
			return
		}
		limit = parsed
	}

	items := h.checker.History(limit)
	response.JSON(w, r, http.StatusOK, models.History{
		Items: items,
		Count: len(items),
	})
}
