package integrity

import (
	"sync"
	"time"
)

// Registry holds the latest known availability of each named dependency.
// Updates are idempotent overwrites, so concurrent probes may write without
// coordination beyond the internal lock.
type Registry struct {
	mu       sync.RWMutex
	services map[string]*ServiceStatus
}

// NewRegistry creates a registry pre-populated with every tracked dependency
// in the unavailable state.
func NewRegistry() *Registry {
	services := make(map[string]*ServiceStatus)
	for _, name := range []string{ServiceDatabase, ServiceStorage, ServiceSpeech, ServicePayment} {
		services[name] = &ServiceStatus{Name: name}
	}
	return &Registry{services: services}
}

// UpdateServiceStatus records a probe result for a dependency. On the first
// transition to available it stamps ConnectedSince; the stamp is never
// cleared by later failures. Unknown names are added on first use.
func (r *Registry) UpdateServiceStatus(name string, available bool, errMsg string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.services[name]
	if !ok {
		s = &ServiceStatus{Name: name}
		r.services[name] = s
	}

	now := time.Now()
	if available && s.ConnectedSince == nil {
		since := now
		s.ConnectedSince = &since
	}

	s.Available = available
	s.LastCheck = &now
	if available {
		s.LastError = ""
	} else {
		s.LastError = errMsg
	}
}

// Get returns a copy of the status for one dependency. The second return
// value is false for unknown names.
func (r *Registry) Get(name string) (ServiceStatus, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.services[name]
	if !ok {
		return ServiceStatus{}, false
	}
	return *s, true
}

// Snapshot returns copies of all tracked statuses keyed by name.
func (r *Registry) Snapshot() map[string]ServiceStatus {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]ServiceStatus, len(r.services))
	for name, s := range r.services {
		out[name] = *s
	}
	return out
}
