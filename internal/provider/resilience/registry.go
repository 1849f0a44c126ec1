package resilience

import (
	"sync"
	"time"

	"github.com/sony/gobreaker/v2"
)

// EndpointHealth is the observed delivery health of one outbound endpoint,
// surfaced through the admin diagnostics endpoint.
type EndpointHealth struct {
	// Name is the endpoint identifier.
	Name string `json:"name"`

	// CircuitState is the current circuit breaker state.
	CircuitState gobreaker.State `json:"circuitState"`

	// Counts contains circuit breaker statistics.
	Counts gobreaker.Counts `json:"counts"`

	// LastSuccessAt is the timestamp of the last successful delivery.
	LastSuccessAt *time.Time `json:"lastSuccessAt,omitempty"`

	// LastFailureAt is the timestamp of the last failed delivery.
	LastFailureAt *time.Time `json:"lastFailureAt,omitempty"`

	// LastError is the most recent delivery error message, if any.
	LastError string `json:"lastError,omitempty"`
}

// IsHealthy returns true if deliveries are flowing normally.
func (h *EndpointHealth) IsHealthy() bool {
	return h.CircuitState == gobreaker.StateClosed
}

// IsDegraded returns true while the breaker is probing a recovering
// endpoint.
func (h *EndpointHealth) IsDegraded() bool {
	return h.CircuitState == gobreaker.StateHalfOpen
}

// IsUnhealthy returns true while the breaker refuses deliveries.
func (h *EndpointHealth) IsUnhealthy() bool {
	return h.CircuitState == gobreaker.StateOpen
}

// Registry tracks outbound delivery endpoints and their health. It is
// constructed once at startup and injected where needed.
type Registry struct {
	mu        sync.RWMutex
	endpoints map[string]*registeredEndpoint
}

type registeredEndpoint struct {
	client        *Client
	lastSuccessAt *time.Time
	lastFailureAt *time.Time
	lastError     string
}

// NewRegistry creates an empty endpoint registry.
func NewRegistry() *Registry {
	return &Registry{
		endpoints: make(map[string]*registeredEndpoint),
	}
}

// Register adds a delivery client to the registry.
func (r *Registry) Register(name string, client *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.endpoints[name] = &registeredEndpoint{
		client: client,
	}
}

// Unregister removes an endpoint from the registry.
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.endpoints, name)
}

// RecordSuccess records a successful delivery for an endpoint.
func (r *Registry) RecordSuccess(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.endpoints[name]; ok {
		now := time.Now()
		e.lastSuccessAt = &now
	}
}

// RecordFailure records a failed delivery for an endpoint.
func (r *Registry) RecordFailure(name string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.endpoints[name]; ok {
		now := time.Now()
		e.lastFailureAt = &now
		if err != nil {
			e.lastError = err.Error()
		}
	}
}

// GetHealth returns the health of a specific endpoint, or nil when unknown.
func (r *Registry) GetHealth(name string) *EndpointHealth {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.endpoints[name]
	if !ok {
		return nil
	}
	return endpointHealth(name, e)
}

// GetAllHealth returns the health of every registered endpoint.
func (r *Registry) GetAllHealth() []*EndpointHealth {
	r.mu.RLock()
	defer r.mu.RUnlock()

	health := make([]*EndpointHealth, 0, len(r.endpoints))
	for name, e := range r.endpoints {
		health = append(health, endpointHealth(name, e))
	}
	return health
}

// EndpointCount returns the number of registered endpoints.
func (r *Registry) EndpointCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.endpoints)
}

func endpointHealth(name string, e *registeredEndpoint) *EndpointHealth {
	return &EndpointHealth{
		Name:          name,
		CircuitState:  e.client.CircuitBreakerState(),
		Counts:        e.client.CircuitBreakerCounts(),
		LastSuccessAt: e.lastSuccessAt,
		LastFailureAt: e.lastFailureAt,
		LastError:     e.lastError,
	}
}
