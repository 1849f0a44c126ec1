// Package main provides the entrypoint for the CareLink API server.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/carelink/carelink/internal/alerting"
	"github.com/carelink/carelink/internal/api"
	"github.com/carelink/carelink/internal/api/middleware"
	"github.com/carelink/carelink/internal/config"
	"github.com/carelink/carelink/internal/database"
	"github.com/carelink/carelink/internal/health"
	"github.com/carelink/carelink/internal/integrity"
	"github.com/carelink/carelink/internal/metrics"
	"github.com/carelink/carelink/internal/provider/resilience"
	"github.com/carelink/carelink/internal/storage"
	"github.com/carelink/carelink/internal/telemetry"
)

// Version and BuildTime are set at compile time via ldflags.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	const serviceName = "carelink-api"

	// Setup structured logging
	log := zerolog.New(os.Stdout).
		With().
		Timestamp().
		Str("service", serviceName).
		Str("version", Version).
		Logger()

	log.Info().
		Str("build_time", BuildTime).
		Msg("starting CareLink API")

	// Load configuration once; everything downstream receives the struct.
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	log.Info().
		Str("environment", cfg.Environment).
		Str("integrity_mode", string(cfg.Mode)).
		Bool("database_configured", cfg.DatabaseConfigured()).
		Msg("configuration loaded")

	// Initialize OpenTelemetry
	ctx := context.Background()

	tp, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName:    serviceName,
		ServiceVersion: Version,
		Environment:    cfg.Environment,
		OTLPEndpoint:   cfg.OTLPEndpoint,
		Enabled:        cfg.TelemetryEnabled,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize telemetry")
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if shutdownErr := tp.Shutdown(shutdownCtx); shutdownErr != nil {
			log.Error().Err(shutdownErr).Msg("failed to shutdown telemetry")
		}
	}()

	// Initialize metrics instruments
	otelMetrics, err := middleware.NewMetrics()
	if err != nil {
		log.Error().Err(err).Msg("failed to initialize metrics")
		os.Exit(1) //nolint:gocritic // intentional exit, telemetry cleanup is best-effort
	}

	// Select the persistence capability once: a real pool when a connection
	// string is configured, the file-store stand-in otherwise.
	var pinger database.Pinger = database.NewFilestorePinger()
	if cfg.DatabaseConfigured() {
		pool, connErr := database.Connect(ctx, database.DefaultConfig(cfg.DatabaseURL))
		if connErr != nil {
			// The database being down at boot is a probe failure for the
			// integrity policy to judge, not an immediate fatal.
			log.Error().Err(connErr).Msg("database connection failed at startup")
			pinger = database.NewReconnectPinger(database.DefaultConfig(cfg.DatabaseURL))
		} else {
			defer pool.Close()
			pinger = database.NewPoolPinger(pool)
			log.Info().Msg("database connected")
		}
	} else {
		log.Info().Msg("no DATABASE_URL configured, running in file-store mode")
	}

	// Integrity core
	registry := integrity.NewRegistry()
	policy := integrity.NewPolicy(cfg)

	// Alerting
	deliveryRegistry := resilience.NewRegistry()
	channel := buildAlertChannel(cfg, log, deliveryRegistry)
	dispatcher := alerting.NewDispatcher(alerting.DispatcherConfig{
		Logger:    log,
		Channel:   channel,
		Threshold: cfg.AlertThreshold,
		Cooldown:  cfg.AlertCooldown,
	})

	// Health checker
	checker := health.NewChecker(health.CheckerConfig{
		Config:    cfg,
		Logger:    log,
		Registry:  registry,
		Pinger:    pinger,
		Dirs:      storage.NewDirs(cfg.DataDirs()),
		HealthLog: storage.NewHealthLog(cfg.HealthLogPath()),
		OnLogAppendError: func(err error) {
			dispatcher.AlertDiskWriteFailure(err)
		},
	})

	var supervisor *database.ReconnectSupervisor
	if cfg.DatabaseConfigured() {
		supervisor = database.NewReconnectSupervisor(database.ReconnectConfig{
			Pinger:          pinger,
			Logger:          log,
			MaxAttempts:     cfg.DBMaxReconnects,
			InitialInterval: cfg.DBReconnectInterval,
		})
		supervisor.OnExhausted = dispatcher.AlertReconnectExhausted
	}

	// Metrics exporter
	requestCounters := metrics.NewRequestCounters()
	exporterCfg := metrics.ExporterConfig{
		Registry: registry,
		Policy:   policy,
		Checker:  checker,
		Counters: requestCounters,
	}
	if supervisor != nil {
		exporterCfg.Reconnect = supervisor
	}
	exporter := metrics.NewExporter(exporterCfg)

	// Startup gate: one synchronous check cycle, then the go/no-go
	// decision, before any socket is opened.
	checker.Check(ctx)
	status := policy.Status(registry)
	decision := integrity.DecideStartup(status, cfg.IntegrityOverride)
	if decision.ShouldExit {
		fmt.Fprintln(os.Stderr, decision.Message)
		os.Exit(decision.ExitCode)
	}
	if !status.Ready {
		log.Warn().
			Strs("blocking_reasons", status.BlockingReasons).
			Str("mode", string(status.Mode)).
			Msg("starting despite unmet requirements")
	}

	if cfg.RulesTranspileOnly && cfg.IsProduction() {
		dispatcher.AlertUncheckedRuntime()
	}

	// Periodic health checks
	runCtx, cancelRun := context.WithCancel(ctx)
	defer cancelRun()

	runnerCfg := health.RunnerConfig{
		Checker:  checker,
		Logger:   log,
		Interval: cfg.HealthInterval,
		Observer: dispatcher,
	}
	if supervisor != nil {
		runnerCfg.Recoverer = supervisor
	}
	runner := health.NewRunner(runnerCfg)
	go runner.Run(runCtx)

	// Create router with configuration
	router := api.NewRouter(api.RouterConfig{
		Config:          cfg,
		Logger:          log,
		ServiceName:     serviceName,
		Metrics:         otelMetrics,
		RequestCounters: requestCounters,
		Checker:         checker,
		Registry:        registry,
		Policy:          policy,
		Dispatcher:      dispatcher,
		Exporter:        exporter,
		Delivery:        deliveryRegistry,
		RequireTLS:      cfg.IsProduction(),
	})

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info().
			Str("addr", server.Addr).
			Msg("server listening")

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
		os.Exit(1)
	}

	log.Info().Msg("server stopped")
}

// buildAlertChannel selects the alert delivery channel. Webhook mode takes
// precedence; the email feature flag falls back to the retired record-only
// email channel. Returns nil when alert delivery is disabled entirely.
func buildAlertChannel(cfg config.Config, log zerolog.Logger, registry *resilience.Registry) alerting.Channel {
	if cfg.AlertMode == config.AlertModeWebhook {
		log.Info().Msg("webhook alert channel initialized")
		return alerting.NewWebhookChannel(alerting.WebhookConfig{
			URL:      cfg.AlertWebhookURL,
			Logger:   log,
			Registry: registry,
		})
	}
	if cfg.Features.Email {
		log.Warn().Msg("email alerting enabled but delivery is retired; alerts are recorded only")
		return alerting.NewEmailChannel()
	}
	return nil
}
