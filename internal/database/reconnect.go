package database

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
)

// ReconnectSupervisor retries database connectivity with exponential backoff
// after the health checker observes a failure. Exceeding the configured
// attempt budget invokes the OnExhausted hook exactly once per recovery run.
type ReconnectSupervisor struct {
	pinger          Pinger
	logger          zerolog.Logger
	maxAttempts     uint64
	initialInterval time.Duration

	// OnExhausted is called with the total attempt count when the budget is
	// spent without recovering. Optional.
	OnExhausted func(attempts int64)

	attempts   atomic.Int64
	recovering atomic.Bool
}

// ReconnectConfig holds supervisor settings.
type ReconnectConfig struct {
	Pinger          Pinger
	Logger          zerolog.Logger
	MaxAttempts     int
	InitialInterval time.Duration
}

// NewReconnectSupervisor creates a supervisor over the given pinger.
func NewReconnectSupervisor(cfg ReconnectConfig) *ReconnectSupervisor {
	maxAttempts := cfg.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 5
	}
	initialInterval := cfg.InitialInterval
	if initialInterval == 0 {
		initialInterval = 2 * time.Second
	}
	return &ReconnectSupervisor{
		pinger:          cfg.Pinger,
		logger:          cfg.Logger,
		maxAttempts:     uint64(maxAttempts), //nolint:gosec // guarded above
		initialInterval: initialInterval,
	}
}

// Attempts returns the lifetime reconnect attempt count, exposed through the
// metrics exporter.
func (s *ReconnectSupervisor) Attempts() int64 {
	return s.attempts.Load()
}

// MaybeRecover starts a recovery run unless one is already in progress.
// It returns true if a run was started. Safe to call from every health
// cycle that observes a database failure.
func (s *ReconnectSupervisor) MaybeRecover(ctx context.Context) bool {
	if !s.recovering.CompareAndSwap(false, true) {
		return false
	}

	go func() {
		defer s.recovering.Store(false)
		s.recover(ctx)
	}()
	return true
}

func (s *ReconnectSupervisor) recover(ctx context.Context) {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = s.initialInterval
	bo.MaxElapsedTime = 0

	operation := func() error {
		attempt := s.attempts.Add(1)
		err := s.pinger.Ping(ctx)
		if err != nil {
			s.logger.Warn().
				Err(err).
				Int64("attempt", attempt).
				Msg("database reconnect attempt failed")
			return err
		}
		s.logger.Info().
			Int64("attempt", attempt).
			Msg("database connectivity restored")
		return nil
	}

	err := backoff.Retry(operation, backoff.WithContext(backoff.WithMaxRetries(bo, s.maxAttempts-1), ctx))
	if err == nil {
		return
	}

	s.logger.Error().
		Err(err).
		Uint64("max_attempts", s.maxAttempts).
		Msg("database reconnect attempts exhausted")
	if s.OnExhausted != nil {
		s.OnExhausted(s.attempts.Load())
	}
}
