package health

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/carelink/carelink/internal/config"
	"github.com/carelink/carelink/internal/database"
	"github.com/carelink/carelink/internal/integrity"
	"github.com/carelink/carelink/internal/storage"
)

// historyCapacity bounds the in-memory snapshot ring buffer.
const historyCapacity = 50

// CheckerConfig holds the collaborators a Checker probes.
type CheckerConfig struct {
	Config    config.Config
	Logger    zerolog.Logger
	Registry  *integrity.Registry
	Pinger    database.Pinger
	Dirs      *storage.Dirs
	HealthLog *storage.HealthLog

	// OnLogAppendError is invoked when the durable log append fails. The
	// failure never propagates to the health-check caller. Optional.
	OnLogAppendError func(err error)
}

// Checker probes the platform dependencies and assembles snapshots. Each
// call performs its own probes; the only shared state is the registry
// (idempotent overwrites) and the ring buffer.
type Checker struct {
	cfg              config.Config
	logger           zerolog.Logger
	registry         *integrity.Registry
	pinger           database.Pinger
	dirs             *storage.Dirs
	healthLog        *storage.HealthLog
	onLogAppendError func(err error)

	start   time.Time
	history *snapshotRing
}

// NewChecker creates a health checker.
func NewChecker(cfg CheckerConfig) *Checker {
	return &Checker{
		cfg:              cfg.Config,
		logger:           cfg.Logger,
		registry:         cfg.Registry,
		pinger:           cfg.Pinger,
		dirs:             cfg.Dirs,
		healthLog:        cfg.HealthLog,
		onLogAppendError: cfg.OnLogAppendError,
		start:            time.Now(),
		history:          newSnapshotRing(historyCapacity),
	}
}

// Check probes all dependencies concurrently, updates the registry, and
// returns the assembled snapshot. Internal panics are converted into an
// unhealthy snapshot rather than propagated.
func (c *Checker) Check(ctx context.Context) (snapshot Snapshot) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error().
				Interface("panic", r).
				Msg("health check panicked")
			snapshot = c.failedSnapshot(fmt.Sprintf("health check panic: %v", r))
			c.store(snapshot)
		}
	}()

	type probeResult struct {
		check   ServiceCheck
		reasons []string
	}
	results := make(map[string]probeResult, 4)

	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)
	probes := map[string]func(context.Context) (ServiceCheck, []string){
		integrity.ServiceDatabase: c.probeDatabase,
		integrity.ServiceStorage:  c.probeStorage,
		integrity.ServiceSpeech:   c.probeSpeech,
		integrity.ServicePayment:  c.probePayment,
	}
	for name, probe := range probes {
		wg.Add(1)
		go func(name string, probe func(context.Context) (ServiceCheck, []string)) {
			defer wg.Done()
			check, reasons := probe(ctx)
			mu.Lock()
			results[name] = probeResult{check: check, reasons: reasons}
			mu.Unlock()
		}(name, probe)
	}
	wg.Wait()

	services := make(map[string]ServiceCheck, len(results))
	var reasons []string
	for name, res := range results {
		services[name] = res.check
		reasons = append(reasons, res.reasons...)
		c.registry.UpdateServiceStatus(name, res.check.OK, res.check.Detail)
	}

	if c.cfg.RulesTranspileOnly {
		reasons = append(reasons, ReasonTranspileOnly)
	}
	sort.Strings(reasons)

	snapshot = Snapshot{
		Timestamp:     time.Now(),
		UptimeSeconds: time.Since(c.start).Seconds(),
		Mode:          c.cfg.Mode,
		Services:      services,
		Degraded: Degraded{
			Enabled: len(reasons) > 0,
			Reasons: reasons,
		},
		Status: classify(services, reasons),
		Payment: PaymentInfo{
			CheckoutMode:     string(c.cfg.Checkout),
			WebhookMounted:   c.cfg.StripeWebhookMounted,
			WebhookSecretSet: c.cfg.StripeWebhookSecret != "",
		},
	}

	c.store(snapshot)
	return snapshot
}

// History returns up to limit recent snapshots, oldest first.
func (c *Checker) History(limit int) []Snapshot {
	return c.history.recent(limit)
}

// Latest returns the most recent snapshot, if any cycle has run.
func (c *Checker) Latest() (Snapshot, bool) {
	return c.history.latest()
}

// store appends to the ring buffer and fires the durable log write. The two
// are independent side effects of the same event; a failed append is logged
// and reported through the hook but never fails the check.
func (c *Checker) store(s Snapshot) {
	c.history.append(s)

	if c.healthLog == nil {
		return
	}
	if err := c.healthLog.Append(s); err != nil {
		c.logger.Warn().Err(err).Msg("failed to append health log")
		if c.onLogAppendError != nil {
			c.onLogAppendError(err)
		}
	}
}

func (c *Checker) probeDatabase(ctx context.Context) (ServiceCheck, []string) {
	if !c.cfg.DatabaseConfigured() {
		return ServiceCheck{OK: true, Detail: "file-store mode"}, nil
	}

	if err := c.pinger.Ping(ctx); err != nil {
		// The underlying cause is captured verbatim; wrapping here would
		// hide it from blocking reasons and alerts.
		return ServiceCheck{OK: false, Detail: err.Error()}, nil
	}
	return ServiceCheck{OK: true, Detail: "connected"}, nil
}

func (c *Checker) probeStorage(_ context.Context) (ServiceCheck, []string) {
	created, err := c.dirs.Ensure()
	if err != nil {
		return ServiceCheck{OK: false, Detail: err.Error()}, nil
	}
	if len(created) > 0 {
		return ServiceCheck{OK: true, Detail: "created missing directories: " + strings.Join(created, ", ")}, nil
	}
	return ServiceCheck{OK: true, Detail: "all directories present"}, nil
}

func (c *Checker) probeSpeech(_ context.Context) (ServiceCheck, []string) {
	if !c.cfg.Features.Transcription {
		return ServiceCheck{OK: true, Detail: "transcription disabled"}, nil
	}

	for _, path := range c.cfg.SpeechModelPaths {
		if _, err := os.Stat(path); err == nil {
			return ServiceCheck{OK: true, Detail: "model found at " + path}, nil
		}
	}

	detail := fmt.Sprintf("model not found at any of %d candidate paths", len(c.cfg.SpeechModelPaths))
	return ServiceCheck{OK: false, Detail: detail}, []string{ReasonSpeechModelMissing}
}

func (c *Checker) probePayment(_ context.Context) (ServiceCheck, []string) {
	if !c.cfg.Features.Payments {
		return ServiceCheck{OK: true, Detail: "payments disabled"}, nil
	}

	var missing []string
	if c.cfg.StripeSecretKey == "" {
		missing = append(missing, "secret key")
	}
	if c.cfg.Checkout == config.CheckoutEmbedded && c.cfg.StripePublishableKey == "" {
		missing = append(missing, "publishable key")
	}

	if len(missing) > 0 {
		detail := fmt.Sprintf("missing %s for %s checkout", strings.Join(missing, " and "), c.cfg.Checkout)
		return ServiceCheck{OK: false, Detail: detail}, []string{ReasonStripeKeysMissing}
	}
	return ServiceCheck{OK: true, Detail: fmt.Sprintf("key material present for %s checkout", c.cfg.Checkout)}, nil
}

// failedSnapshot builds the unhealthy snapshot used when the check itself
// fails rather than any individual probe.
func (c *Checker) failedSnapshot(detail string) Snapshot {
	services := map[string]ServiceCheck{
		integrity.ServiceDatabase: {OK: false, Detail: detail},
		integrity.ServiceStorage:  {OK: false, Detail: detail},
		integrity.ServiceSpeech:   {OK: false, Detail: detail},
		integrity.ServicePayment:  {OK: false, Detail: detail},
	}
	return Snapshot{
		Timestamp:     time.Now(),
		UptimeSeconds: time.Since(c.start).Seconds(),
		Mode:          c.cfg.Mode,
		Services:      services,
		Degraded:      Degraded{},
		Status:        StatusUnhealthy,
		Payment: PaymentInfo{
			CheckoutMode:     string(c.cfg.Checkout),
			WebhookMounted:   c.cfg.StripeWebhookMounted,
			WebhookSecretSet: c.cfg.StripeWebhookSecret != "",
		},
	}
}
