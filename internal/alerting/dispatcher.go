package alerting

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/carelink/carelink/internal/health"
)

// DispatcherConfig holds configuration for the alert dispatcher.
type DispatcherConfig struct {
	Logger    zerolog.Logger
	Channel   Channel // nil means alert mode "none"
	Threshold int
	Cooldown  time.Duration

	// Now overrides the clock for tests.
	Now func() time.Time
}

// Dispatcher tracks consecutive health-check failures and emits alerts when
// they cross the threshold, subject to a cooldown window. It also offers
// one-shot helpers for operational events outside the generic health loop.
type Dispatcher struct {
	logger    zerolog.Logger
	channel   Channel
	threshold int
	cooldown  time.Duration
	now       func() time.Time

	mu                  sync.Mutex
	consecutiveFailures int
	lastAlertTime       time.Time

	errors *errorBuffer
}

// NewDispatcher creates an alert dispatcher.
func NewDispatcher(cfg DispatcherConfig) *Dispatcher {
	threshold := cfg.Threshold
	if threshold < 1 {
		threshold = 3
	}
	cooldown := cfg.Cooldown
	if cooldown == 0 {
		cooldown = 15 * time.Minute
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Dispatcher{
		logger:    cfg.Logger,
		channel:   cfg.Channel,
		threshold: threshold,
		cooldown:  cooldown,
		now:       now,
		errors:    newErrorBuffer(),
	}
}

// CheckHealth consumes one health snapshot. A healthy snapshot resets the
// failure streak unconditionally. An unhealthy one increments it; once the
// streak reaches the threshold and the cooldown has elapsed, exactly one
// alert is dispatched. The streak is not reset on dispatch, so an ongoing
// outage re-alerts after each cooldown without needing a fresh streak.
func (d *Dispatcher) CheckHealth(s health.Snapshot) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if s.Healthy() {
		d.consecutiveFailures = 0
		return
	}

	d.consecutiveFailures++
	if d.consecutiveFailures < d.threshold || !d.cooldownElapsedLocked() {
		return
	}

	d.lastAlertTime = d.now()
	d.dispatch(Alert{
		Severity:     SeverityCritical,
		Title:        "CareLink health check failing",
		Message:      failureSummary(s, d.consecutiveFailures),
		Timestamp:    d.now(),
		Snapshot:     &s,
		SuggestedFix: SuggestFix(s),
		Metadata: map[string]any{
			"consecutiveFailures": d.consecutiveFailures,
			"mode":                string(s.Mode),
		},
	})
}

// AlertReconnectExhausted reports that the database reconnect supervisor
// spent its attempt budget. One-shot: respects the cooldown but bypasses the
// failure streak.
func (d *Dispatcher) AlertReconnectExhausted(attempts int64) {
	d.oneShot(Alert{
		Severity:  SeverityCritical,
		Title:     "Database reconnect attempts exhausted",
		Message:   fmt.Sprintf("gave up reconnecting to the database after %d attempts", attempts),
		Timestamp: d.now(),
		Metadata: map[string]any{
			"attempts": attempts,
		},
	})
}

// AlertDiskWriteFailure reports a failed durable write, typically the health
// log append.
func (d *Dispatcher) AlertDiskWriteFailure(err error) {
	d.LogError("disk write failure: "+err.Error(), "")
	d.oneShot(Alert{
		Severity:     SeverityWarning,
		Title:        "Disk write failure",
		Message:      err.Error(),
		Timestamp:    d.now(),
		SuggestedFix: "check free disk space and data directory permissions",
	})
}

// AlertUncheckedRuntime reports that the eligibility rules engine is running
// without type checking in production.
func (d *Dispatcher) AlertUncheckedRuntime() {
	d.oneShot(Alert{
		Severity:     SeverityWarning,
		Title:        "Rules engine running without type checking",
		Message:      "the eligibility rules engine was built in transpile-only mode; production deployments should be fully type-checked",
		Timestamp:    d.now(),
		SuggestedFix: reasonFixes[health.ReasonTranspileOnly],
	})
}

// LogError appends an error to the bounded diagnostic buffer.
func (d *Dispatcher) LogError(message, stack string) {
	d.errors.append(ErrorEntry{
		Timestamp: d.now(),
		Message:   message,
		Stack:     stack,
	})
}

// RecentErrors returns the most recent limit errors, oldest first within
// that window.
func (d *Dispatcher) RecentErrors(limit int) []ErrorEntry {
	return d.errors.recent(limit)
}

// ConsecutiveFailures returns the current failure streak, for diagnostics.
func (d *Dispatcher) ConsecutiveFailures() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.consecutiveFailures
}

// LastAlertTime returns when the last alert was dispatched, zero if never.
func (d *Dispatcher) LastAlertTime() time.Time {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.lastAlertTime
}

// oneShot dispatches a single alert for a standalone condition, sharing the
// cooldown window with the health loop but not the failure streak.
func (d *Dispatcher) oneShot(alert Alert) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.cooldownElapsedLocked() {
		d.logger.Debug().
			Str("title", alert.Title).
			Msg("alert suppressed by cooldown")
		return
	}

	d.lastAlertTime = d.now()
	d.dispatch(alert)
}

// dispatch sends through the channel. Delivery failures are recorded in the
// error buffer and logged; they never propagate to the caller.
func (d *Dispatcher) dispatch(alert Alert) {
	d.logger.Warn().
		Str("severity", alert.Severity).
		Str("title", alert.Title).
		Str("message", alert.Message).
		Msg("dispatching alert")

	if d.channel == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := d.channel.Send(ctx, alert); err != nil {
		d.logger.Error().
			Err(err).
			Str("channel", d.channel.Name()).
			Msg("alert delivery failed")
		d.errors.append(ErrorEntry{
			Timestamp: d.now(),
			Message:   fmt.Sprintf("alert delivery failed via %s: %v", d.channel.Name(), err),
		})
	}
}

func (d *Dispatcher) cooldownElapsedLocked() bool {
	return d.lastAlertTime.IsZero() || d.now().Sub(d.lastAlertTime) >= d.cooldown
}

func failureSummary(s health.Snapshot, streak int) string {
	var failing []string
	for name, check := range s.Services {
		if !check.OK {
			failing = append(failing, fmt.Sprintf("%s (%s)", name, check.Detail))
		}
	}
	sort.Strings(failing)
	return fmt.Sprintf("%d consecutive failed health checks; failing: %s",
		streak, strings.Join(failing, ", "))
}
