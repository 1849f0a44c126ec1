// Package integrity tracks the availability of CareLink's platform
// dependencies and decides, under the configured integrity mode, whether the
// system is ready to serve traffic.
package integrity

import (
	"time"

	"github.com/carelink/carelink/internal/config"
)

// Well-known dependency names tracked by the registry.
const (
	ServiceDatabase = "database"
	ServiceStorage  = "storage"
	ServiceSpeech   = "speech"
	ServicePayment  = "payment"
)

// ServiceStatus is the latest known availability of a single dependency.
type ServiceStatus struct {
	Name      string `json:"name"`
	Available bool   `json:"available"`

	// Required reflects the current integrity mode and feature flags; it is
	// derived by the policy, not stored by the registry.
	Required bool `json:"required"`

	// ConnectedSince is stamped on the first false-to-true transition and
	// never cleared, so operators can see when a dependency first came up
	// even if it has since failed.
	ConnectedSince *time.Time `json:"connectedSince,omitempty"`

	LastCheck *time.Time `json:"lastCheck,omitempty"`
	LastError string     `json:"lastError,omitempty"`
}

// Status is the readiness verdict derived from the registry under the
// configured mode. It is recomputed on demand and never stored.
type Status struct {
	Mode  config.IntegrityMode `json:"mode"`
	Ready bool                 `json:"ready"`

	// BlockingReasons holds one entry per unmet required dependency, in
	// stable service-name order. Ready is true exactly when it is empty.
	BlockingReasons []string `json:"blockingReasons"`
}
