package health_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carelink/carelink/internal/config"
	"github.com/carelink/carelink/internal/health"
	"github.com/carelink/carelink/internal/integrity"
	"github.com/carelink/carelink/internal/storage"
)

type stubPinger struct {
	err error
}

func (p *stubPinger) Ping(context.Context) error { return p.err }
func (p *stubPinger) Mode() string               { return "postgres" }

func testConfig(t *testing.T) config.Config {
	t.Helper()
	dataDir := filepath.Join(t.TempDir(), "data")
	modelPath := filepath.Join(t.TempDir(), "models", "evts")
	require.NoError(t, os.MkdirAll(modelPath, 0o755))

	return config.Config{
		Mode:             config.ModeDemo,
		DataDir:          dataDir,
		SpeechModelPaths: []string{modelPath},
		StripeSecretKey:  "sk_test_123",
		Checkout:         config.CheckoutRedirect,
		Features: config.Features{
			Payments:      true,
			Transcription: true,
		},
	}
}

func newTestChecker(t *testing.T, cfg config.Config, pinger *stubPinger) (*health.Checker, *integrity.Registry) {
	t.Helper()
	reg := integrity.NewRegistry()
	checker := health.NewChecker(health.CheckerConfig{
		Config:    cfg,
		Logger:    zerolog.Nop(),
		Registry:  reg,
		Pinger:    pinger,
		Dirs:      storage.NewDirs(cfg.DataDirs()),
		HealthLog: storage.NewHealthLog(cfg.HealthLogPath()),
	})
	return checker, reg
}

func TestChecker_AllHealthy(t *testing.T) {
	cfg := testConfig(t)
	cfg.DatabaseURL = "postgres://localhost/carelink"
	checker, reg := newTestChecker(t, cfg, &stubPinger{})

	snapshot := checker.Check(context.Background())

	assert.Equal(t, health.StatusReady, snapshot.Status)
	assert.True(t, snapshot.Healthy())
	assert.False(t, snapshot.Degraded.Enabled)
	assert.Equal(t, "connected", snapshot.Services[integrity.ServiceDatabase].Detail)

	dbStatus, _ := reg.Get(integrity.ServiceDatabase)
	assert.True(t, dbStatus.Available)
}

func TestChecker_FilestoreModeDatabaseAlwaysOK(t *testing.T) {
	cfg := testConfig(t)
	// Pinger errors must be irrelevant when no database is configured.
	checker, _ := newTestChecker(t, cfg, &stubPinger{err: errors.New("unused")})

	snapshot := checker.Check(context.Background())

	db := snapshot.Services[integrity.ServiceDatabase]
	assert.True(t, db.OK)
	assert.Equal(t, "file-store mode", db.Detail)
}

func TestChecker_DatabaseFailureIsUnhealthy(t *testing.T) {
	cfg := testConfig(t)
	cfg.DatabaseURL = "postgres://localhost/carelink"
	checker, reg := newTestChecker(t, cfg, &stubPinger{err: errors.New("connection refused")})

	snapshot := checker.Check(context.Background())

	assert.Equal(t, health.StatusUnhealthy, snapshot.Status)
	assert.False(t, snapshot.Healthy())
	assert.Equal(t, "connection refused", snapshot.Services[integrity.ServiceDatabase].Detail)

	dbStatus, _ := reg.Get(integrity.ServiceDatabase)
	assert.False(t, dbStatus.Available)
	assert.Equal(t, "connection refused", dbStatus.LastError)
}

func TestChecker_MissingSpeechModelIsDegraded(t *testing.T) {
	cfg := testConfig(t)
	cfg.SpeechModelPaths = []string{filepath.Join(t.TempDir(), "nowhere")}
	checker, _ := newTestChecker(t, cfg, &stubPinger{})

	snapshot := checker.Check(context.Background())

	assert.Equal(t, health.StatusDegraded, snapshot.Status)
	assert.True(t, snapshot.Healthy())
	assert.True(t, snapshot.Degraded.Enabled)
	assert.Equal(t, []string{health.ReasonSpeechModelMissing}, snapshot.Degraded.Reasons)
	assert.False(t, snapshot.Services[integrity.ServiceSpeech].OK)
}

func TestChecker_MissingStripeKeys(t *testing.T) {
	cfg := testConfig(t)
	cfg.StripeSecretKey = ""
	checker, _ := newTestChecker(t, cfg, &stubPinger{})

	snapshot := checker.Check(context.Background())

	assert.Equal(t, health.StatusDegraded, snapshot.Status)
	assert.Contains(t, snapshot.Degraded.Reasons, health.ReasonStripeKeysMissing)
	assert.Contains(t, snapshot.Services[integrity.ServicePayment].Detail, "secret key")
}

func TestChecker_EmbeddedCheckoutNeedsPublishableKey(t *testing.T) {
	cfg := testConfig(t)
	cfg.Checkout = config.CheckoutEmbedded
	checker, _ := newTestChecker(t, cfg, &stubPinger{})

	snapshot := checker.Check(context.Background())

	assert.False(t, snapshot.Services[integrity.ServicePayment].OK)
	assert.Contains(t, snapshot.Services[integrity.ServicePayment].Detail, "publishable key")
}

func TestChecker_DisabledFeaturesAlwaysOK(t *testing.T) {
	cfg := testConfig(t)
	cfg.Features.Payments = false
	cfg.Features.Transcription = false
	cfg.StripeSecretKey = ""
	cfg.SpeechModelPaths = []string{filepath.Join(t.TempDir(), "nowhere")}
	checker, _ := newTestChecker(t, cfg, &stubPinger{})

	snapshot := checker.Check(context.Background())

	assert.Equal(t, health.StatusReady, snapshot.Status)
	assert.Equal(t, "payments disabled", snapshot.Services[integrity.ServicePayment].Detail)
	assert.Equal(t, "transcription disabled", snapshot.Services[integrity.ServiceSpeech].Detail)
}

func TestChecker_TranspileOnlyReason(t *testing.T) {
	cfg := testConfig(t)
	cfg.RulesTranspileOnly = true
	checker, _ := newTestChecker(t, cfg, &stubPinger{})

	snapshot := checker.Check(context.Background())

	assert.Equal(t, health.StatusDegraded, snapshot.Status)
	assert.Contains(t, snapshot.Degraded.Reasons, health.ReasonTranspileOnly)
}

func TestChecker_ReasonsSorted(t *testing.T) {
	cfg := testConfig(t)
	cfg.RulesTranspileOnly = true
	cfg.StripeSecretKey = ""
	cfg.SpeechModelPaths = []string{filepath.Join(t.TempDir(), "nowhere")}
	checker, _ := newTestChecker(t, cfg, &stubPinger{})

	snapshot := checker.Check(context.Background())

	assert.Equal(t, []string{
		health.ReasonSpeechModelMissing,
		health.ReasonStripeKeysMissing,
		health.ReasonTranspileOnly,
	}, snapshot.Degraded.Reasons)
}

func TestChecker_StorageProbeCreatesDirectories(t *testing.T) {
	cfg := testConfig(t)
	checker, _ := newTestChecker(t, cfg, &stubPinger{})

	first := checker.Check(context.Background())
	assert.Contains(t, first.Services[integrity.ServiceStorage].Detail, "created missing directories")

	second := checker.Check(context.Background())
	assert.Equal(t, "all directories present", second.Services[integrity.ServiceStorage].Detail)
}

func TestChecker_HistoryAndLatest(t *testing.T) {
	cfg := testConfig(t)
	checker, _ := newTestChecker(t, cfg, &stubPinger{})

	_, ok := checker.Latest()
	assert.False(t, ok)

	for i := 0; i < 3; i++ {
		checker.Check(context.Background())
	}

	history := checker.History(2)
	require.Len(t, history, 2)

	latest, ok := checker.Latest()
	require.True(t, ok)
	assert.Equal(t, history[1].Timestamp, latest.Timestamp)
}

func TestChecker_LogAppendFailureReportedNotFatal(t *testing.T) {
	cfg := testConfig(t)
	reg := integrity.NewRegistry()

	// Point the log at a path whose parent is a file, so appends fail.
	blocked := filepath.Join(t.TempDir(), "blocked")
	require.NoError(t, os.WriteFile(blocked, []byte("x"), 0o644))

	var reported error
	checker := health.NewChecker(health.CheckerConfig{
		Config:    cfg,
		Logger:    zerolog.Nop(),
		Registry:  reg,
		Pinger:    &stubPinger{},
		Dirs:      storage.NewDirs(cfg.DataDirs()),
		HealthLog: storage.NewHealthLog(filepath.Join(blocked, "health-log.ndjson")),
		OnLogAppendError: func(err error) {
			reported = err
		},
	})

	snapshot := checker.Check(context.Background())

	assert.Equal(t, health.StatusReady, snapshot.Status)
	assert.Error(t, reported)
}

func TestSnapshot_WritesToHealthLog(t *testing.T) {
	cfg := testConfig(t)
	checker, _ := newTestChecker(t, cfg, &stubPinger{})

	checker.Check(context.Background())
	checker.Check(context.Background())

	data, err := os.ReadFile(cfg.HealthLogPath())
	require.NoError(t, err)
	assert.Equal(t, 2, countLines(data))
}

func countLines(data []byte) int {
	n := 0
	for _, b := range data {
		if b == '\n' {
			n++
		}
	}
	return n
}
