package integrity

import (
	"fmt"

	"github.com/carelink/carelink/internal/config"
)

// featureNames maps each dependency to the platform feature it backs, used
// in operator-facing blocking reasons.
var featureNames = map[string]string{
	ServiceDatabase: "database operations",
	ServiceStorage:  "file storage",
	ServiceSpeech:   "voice transcription",
	ServicePayment:  "donation payments",
}

// serviceOrder fixes the iteration order so blocking reasons are stable.
var serviceOrder = []string{ServiceDatabase, ServiceStorage, ServiceSpeech, ServicePayment}

// Policy derives readiness from a registry under the configured integrity
// mode and feature flags. All methods are pure reads.
type Policy struct {
	cfg config.Config
}

// NewPolicy creates a policy bound to the immutable runtime configuration.
func NewPolicy(cfg config.Config) *Policy {
	return &Policy{cfg: cfg}
}

// Mode returns the configured integrity mode.
func (p *Policy) Mode() config.IntegrityMode {
	return p.cfg.Mode
}

// Required reports whether the named dependency is mandatory under the
// current mode and feature flags. A dependency whose feature flag is
// disabled is never required, regardless of probe results.
func (p *Policy) Required(name string) bool {
	switch name {
	case ServiceStorage:
		return true
	case ServiceDatabase:
		// File-store mode is a supported configuration in dev; strict and
		// demo still mark the database required, but its probe reports
		// available when unconfigured so readiness is unaffected.
		if p.cfg.Mode == config.ModeDev && !p.cfg.DatabaseConfigured() {
			return false
		}
		return true
	case ServiceSpeech:
		return p.cfg.Features.Transcription
	case ServicePayment:
		if !p.cfg.Features.Payments {
			return false
		}
		return p.cfg.Mode != config.ModeDev
	default:
		return false
	}
}

// Status computes the readiness verdict from the current registry contents.
// Ready is true exactly when no required dependency is unavailable.
func (p *Policy) Status(reg *Registry) Status {
	statuses := reg.Snapshot()

	var reasons []string
	for _, name := range serviceOrder {
		if !p.Required(name) {
			continue
		}
		s, ok := statuses[name]
		if !ok || !s.Available {
			reasons = append(reasons, blockingReason(name, s.LastError))
		}
	}

	return Status{
		Mode:            p.cfg.Mode,
		Ready:           len(reasons) == 0,
		BlockingReasons: reasons,
	}
}

// ServiceStatuses returns the registry contents in stable order, with the
// Required field filled in from the policy.
func (p *Policy) ServiceStatuses(reg *Registry) []ServiceStatus {
	statuses := reg.Snapshot()

	out := make([]ServiceStatus, 0, len(serviceOrder))
	for _, name := range serviceOrder {
		s, ok := statuses[name]
		if !ok {
			s = ServiceStatus{Name: name}
		}
		s.Required = p.Required(name)
		out = append(out, s)
	}
	return out
}

func blockingReason(name, lastError string) string {
	feature := featureNames[name]
	if feature == "" {
		feature = name
	}
	if lastError == "" {
		lastError = "no probe result"
	}
	return fmt.Sprintf("%s: Required for %s feature but unavailable (%s)", name, feature, lastError)
}
