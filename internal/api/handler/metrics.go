package handler

import (
	"net/http"

	"github.com/carelink/carelink/internal/api/response"
	"github.com/carelink/carelink/internal/metrics"
)

// MetricsHandler serves the scrape endpoint.
type MetricsHandler struct {
	exporter *metrics.Exporter
}

// NewMetricsHandler creates a new MetricsHandler.
func NewMetricsHandler(exporter *metrics.Exporter) *MetricsHandler {
	return &MetricsHandler{exporter: exporter}
}

// Get handles GET /v1/metrics?format=json|prometheus. The default is the
// Prometheus text exposition format.
func (h *MetricsHandler) Get(w http.ResponseWriter, r *http.Request) {
	data := h.exporter.Collect()

	switch r.URL.Query().Get("format") {
	case "", "prometheus":
		response.Text(w, r, http.StatusOK, metrics.FormatPrometheus(data))
	case "json":
		response.JSON(w, r, http.StatusOK, data)
	default:
		response.BadRequest(w, r, "format must be json or prometheus")
	}
}
