package models

import (
	"github.com/carelink/carelink/internal/alerting"
	"github.com/carelink/carelink/internal/health"
	"github.com/carelink/carelink/internal/integrity"
	"github.com/carelink/carelink/internal/provider/resilience"
)

// Liveness is the response for the liveness endpoint. It never carries
// dependency state; a running process is alive.
type Liveness struct {
	Status string    `json:"status"`
	Time   Timestamp `json:"time"`
}

// Readiness is the response for the readiness endpoint.
type Readiness struct {
	Ready           bool      `json:"ready"`
	Mode            string    `json:"mode"`
	BlockingReasons []string  `json:"blockingReasons,omitempty"`
	Time            Timestamp `json:"time"`
}

// History is the response for the snapshot history endpoint. Items are
// ordered oldest first.
type History struct {
	Items []health.Snapshot `json:"items"`
	Count int               `json:"count"`
}

// Diagnostics aggregates everything an operator needs to debug an outage.
type Diagnostics struct {
	Snapshot     health.Snapshot              `json:"snapshot"`
	Integrity    integrity.Status             `json:"integrity"`
	Services     []integrity.ServiceStatus    `json:"services"`
	RecentErrors []alerting.ErrorEntry        `json:"recentErrors"`
	LikelyCauses []string                     `json:"likelyCauses"`
	Delivery     []*resilience.EndpointHealth `json:"delivery,omitempty"`
	Environment  map[string]string            `json:"environment"`
}
