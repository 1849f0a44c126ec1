package health

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/carelink/carelink/internal/integrity"
)

// CheckObserver consumes every snapshot the runner produces. The alert
// dispatcher implements this.
type CheckObserver interface {
	CheckHealth(s Snapshot)
}

// Recoverer attempts background database recovery after an observed
// failure. The reconnect supervisor implements this.
type Recoverer interface {
	MaybeRecover(ctx context.Context) bool
}

// RunnerConfig holds the collaborators for the periodic check loop.
type RunnerConfig struct {
	Checker  *Checker
	Logger   zerolog.Logger
	Interval time.Duration
	Observer CheckObserver
	// Recoverer is invoked when a cycle observes a database failure.
	// Optional; nil in file-store mode.
	Recoverer Recoverer
}

// Runner executes health checks on a fixed interval. If a previous cycle is
// still running when the next tick fires, the tick is skipped rather than
// overlapped, so an outage cannot pile up concurrent database probes.
type Runner struct {
	checker   *Checker
	logger    zerolog.Logger
	interval  time.Duration
	observer  CheckObserver
	recoverer Recoverer

	running atomic.Bool
}

// NewRunner creates a periodic health-check runner.
func NewRunner(cfg RunnerConfig) *Runner {
	interval := cfg.Interval
	if interval == 0 {
		interval = 60 * time.Second
	}
	return &Runner{
		checker:   cfg.Checker,
		logger:    cfg.Logger,
		interval:  interval,
		observer:  cfg.Observer,
		recoverer: cfg.Recoverer,
	}
}

// Run blocks until ctx is cancelled, executing one cycle per interval.
func (r *Runner) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.logger.Info().
		Dur("interval", r.interval).
		Msg("health check loop started")

	for {
		select {
		case <-ctx.Done():
			r.logger.Info().Msg("health check loop stopped")
			return
		case <-ticker.C:
			r.Tick(ctx)
		}
	}
}

// Tick runs a single cycle unless one is already in flight; it returns
// false when the tick was skipped.
func (r *Runner) Tick(ctx context.Context) bool {
	if !r.running.CompareAndSwap(false, true) {
		r.logger.Warn().Msg("previous health check still running, skipping tick")
		return false
	}
	defer r.running.Store(false)

	snapshot := r.checker.Check(ctx)

	if r.observer != nil {
		r.observer.CheckHealth(snapshot)
	}

	if r.recoverer != nil && !snapshot.Services[integrity.ServiceDatabase].OK {
		r.recoverer.MaybeRecover(ctx)
	}
	return true
}
