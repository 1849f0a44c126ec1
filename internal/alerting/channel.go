// Package alerting turns unhealthy health snapshots and one-shot
// operational events into operator notifications, with failure-threshold and
// cooldown logic so an ongoing outage produces a steady trickle of alerts
// instead of a flood.
package alerting

import (
	"context"
	"sync"
	"time"

	"github.com/carelink/carelink/internal/health"
)

// Severity levels attached to alerts.
const (
	SeverityWarning  = "warning"
	SeverityCritical = "critical"
)

// Alert is a single operator notification.
type Alert struct {
	Severity     string           `json:"severity"`
	Title        string           `json:"title"`
	Message      string           `json:"message"`
	Timestamp    time.Time        `json:"timestamp"`
	Snapshot     *health.Snapshot `json:"snapshot,omitempty"`
	SuggestedFix string           `json:"suggestedFix,omitempty"`
	Metadata     map[string]any   `json:"metadata,omitempty"`
}

// Channel delivers alerts to operators. A delivery failure is reported to
// the dispatcher, which logs it; it is never propagated to the health-check
// caller and never retried.
type Channel interface {
	Name() string
	Send(ctx context.Context, alert Alert) error
}

// EmailChannel is the retired email delivery path. Sending through it is a
// no-op that only appends to a diagnostic history, kept so historical
// configurations and tests remain observable.
type EmailChannel struct {
	mu      sync.Mutex
	history []Alert
}

// NewEmailChannel creates the retired email channel.
func NewEmailChannel() *EmailChannel {
	return &EmailChannel{}
}

// Name returns "email".
func (c *EmailChannel) Name() string {
	return "email"
}

// Send records the alert in the diagnostic history without delivering it.
func (c *EmailChannel) Send(_ context.Context, alert Alert) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.history = append(c.history, alert)
	return nil
}

// History returns the alerts that would have been emailed.
func (c *EmailChannel) History() []Alert {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Alert, len(c.history))
	copy(out, c.history)
	return out
}
