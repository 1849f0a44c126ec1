// Package health performs the dependency probes that feed the integrity
// registry and produces immutable point-in-time snapshots of overall service
// health.
package health

import (
	"time"

	"github.com/carelink/carelink/internal/config"
	"github.com/carelink/carelink/internal/integrity"
)

// Degraded-reason tokens. Callers match on these exact strings, so the set
// is stable; new reasons are additive only.
const (
	// ReasonSpeechModelMissing means no transcription model file was found
	// at any candidate path.
	ReasonSpeechModelMissing = "EVTS_MODEL_MISSING"

	// ReasonStripeKeysMissing means the configured checkout mode lacks the
	// key material it needs.
	ReasonStripeKeysMissing = "STRIPE_KEYS_MISSING"

	// ReasonTranspileOnly means the eligibility rules engine was built
	// without type checking.
	ReasonTranspileOnly = "TYPESCRIPT_TRANSPILE_ONLY"
)

// SnapshotStatus classifies a snapshot.
type SnapshotStatus string

const (
	StatusReady     SnapshotStatus = "ready"
	StatusDegraded  SnapshotStatus = "degraded"
	StatusUnhealthy SnapshotStatus = "unhealthy"
)

// ServiceCheck is a single probe result inside a snapshot.
type ServiceCheck struct {
	OK     bool   `json:"ok"`
	Detail string `json:"detail"`
}

// Degraded lists the soft conditions active at snapshot time. Soft
// conditions never block readiness; they only annotate it.
type Degraded struct {
	Enabled bool     `json:"enabled"`
	Reasons []string `json:"reasons"`
}

// PaymentInfo surfaces payment-provider wiring facts for operators. These
// are deliberately independent of the payment probe's OK flag.
type PaymentInfo struct {
	CheckoutMode     string `json:"checkoutMode"`
	WebhookMounted   bool   `json:"webhookMounted"`
	WebhookSecretSet bool   `json:"webhookSecretSet"`
}

// Snapshot is one immutable health result. Created once per check cycle,
// appended to the in-memory ring buffer and the durable log, never mutated.
type Snapshot struct {
	Timestamp     time.Time               `json:"timestamp"`
	UptimeSeconds float64                 `json:"uptimeSeconds"`
	Mode          config.IntegrityMode    `json:"mode"`
	Services      map[string]ServiceCheck `json:"services"`
	Degraded      Degraded                `json:"degraded"`
	Status        SnapshotStatus          `json:"status"`
	Payment       PaymentInfo             `json:"payment"`
}

// Healthy reports whether both hard dependencies (database and storage) are
// up. This is the canonical healthy signal consumed by the alert dispatcher;
// Status is derived presentation.
func (s Snapshot) Healthy() bool {
	return s.Services[integrity.ServiceDatabase].OK && s.Services[integrity.ServiceStorage].OK
}

// classify derives the snapshot status: ready needs both hard dependencies
// up and no soft reasons, unhealthy is a hard failure with nothing soft to
// report, and everything else with at least one soft reason is degraded.
func classify(services map[string]ServiceCheck, reasons []string) SnapshotStatus {
	hardOK := services[integrity.ServiceDatabase].OK && services[integrity.ServiceStorage].OK
	switch {
	case hardOK && len(reasons) == 0:
		return StatusReady
	case len(reasons) == 0:
		return StatusUnhealthy
	default:
		return StatusDegraded
	}
}
