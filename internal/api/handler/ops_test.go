package handler_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carelink/carelink/internal/api/handler"
	"github.com/carelink/carelink/internal/api/models"
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

type opsFixture struct {
	handler  *handler.OpsHandler
	checker  *health.Checker
	registry *integrity.Registry
	pinger   *stubPinger
}

func newOpsFixture(t *testing.T, mode config.IntegrityMode) *opsFixture {
	t.Helper()

	modelDir := filepath.Join(t.TempDir(), "models", "evts")
	require.NoError(t, mkdirAll(modelDir))

	cfg := config.Config{
		Mode:             mode,
		DatabaseURL:      "postgres://localhost/carelink",
		DataDir:          filepath.Join(t.TempDir(), "data"),
		SpeechModelPaths: []string{modelDir},
		StripeSecretKey:  "sk_test_123",
		Checkout:         config.CheckoutRedirect,
		Features:         config.Features{Payments: true, Transcription: true},
	}

	pinger := &stubPinger{}
	registry := integrity.NewRegistry()
	checker := health.NewChecker(health.CheckerConfig{
		Config:   cfg,
		Logger:   zerolog.Nop(),
		Registry: registry,
		Pinger:   pinger,
		Dirs:     storage.NewDirs(cfg.DataDirs()),
	})
	policy := integrity.NewPolicy(cfg)

	return &opsFixture{
		handler:  handler.NewOpsHandler(checker, registry, policy),
		checker:  checker,
		registry: registry,
		pinger:   pinger,
	}
}

func TestOpsHandler_Live(t *testing.T) {
	f := newOpsFixture(t, config.ModeStrict)

	req := httptest.NewRequest(http.MethodGet, "/v1/health/live", nil)
	rec := httptest.NewRecorder()
	f.handler.Live(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var body models.Liveness
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "alive", body.Status)
}

func TestOpsHandler_Ready_AllDependenciesUp(t *testing.T) {
	f := newOpsFixture(t, config.ModeStrict)
	f.checker.Check(context.Background())

	req := httptest.NewRequest(http.MethodGet, "/v1/health/ready", nil)
	rec := httptest.NewRecorder()
	f.handler.Ready(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var body models.Readiness
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.True(t, body.Ready)
	assert.Equal(t, "strict", body.Mode)
	assert.Empty(t, body.BlockingReasons)
}

func TestOpsHandler_Ready_RequiredDependencyDownIs503(t *testing.T) {
	f := newOpsFixture(t, config.ModeStrict)
	f.pinger.err = errConnectionRefused
	f.checker.Check(context.Background())

	req := httptest.NewRequest(http.MethodGet, "/v1/health/ready", nil)
	rec := httptest.NewRecorder()
	f.handler.Ready(rec, req)

	require.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var body models.Readiness
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.False(t, body.Ready)
	require.Len(t, body.BlockingReasons, 1)
	assert.Equal(t,
		"database: Required for database operations feature but unavailable (connection refused)",
		body.BlockingReasons[0])
}

func TestOpsHandler_Status_RunsFreshCheck(t *testing.T) {
	f := newOpsFixture(t, config.ModeDemo)

	req := httptest.NewRequest(http.MethodGet, "/v1/health/status", nil)
	rec := httptest.NewRecorder()
	f.handler.Status(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var snapshot health.Snapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snapshot))
	assert.Equal(t, health.StatusReady, snapshot.Status)

	// The fresh check was recorded.
	assert.Len(t, f.checker.History(0), 1)
}

func TestOpsHandler_Status_FailuresStill200(t *testing.T) {
	f := newOpsFixture(t, config.ModeStrict)
	f.pinger.err = errConnectionRefused

	req := httptest.NewRequest(http.MethodGet, "/v1/health/status", nil)
	rec := httptest.NewRecorder()
	f.handler.Status(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var snapshot health.Snapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snapshot))
	assert.Equal(t, health.StatusUnhealthy, snapshot.Status)
}

func TestOpsHandler_History_DefaultLimit(t *testing.T) {
	f := newOpsFixture(t, config.ModeDemo)
	for i := 0; i < 25; i++ {
		f.checker.Check(context.Background())
	}

	req := httptest.NewRequest(http.MethodGet, "/v1/health/history", nil)
	rec := httptest.NewRecorder()
	f.handler.History(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var body models.History
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 20, body.Count)
	assert.Len(t, body.Items, 20)
}

func TestOpsHandler_History_ExplicitLimit(t *testing.T) {
	f := newOpsFixture(t, config.ModeDemo)
	for i := 0; i < 5; i++ {
		f.checker.Check(context.Background())
	}

	req := httptest.NewRequest(http.MethodGet, "/v1/health/history?limit=2", nil)
	rec := httptest.NewRecorder()
	f.handler.History(rec, req)

	var body models.History
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 2, body.Count)
}

func TestOpsHandler_History_InvalidLimit(t *testing.T) {
	f := newOpsFixture(t, config.ModeDemo)

	for _, limit := range []string{"abc", "0", "-3"} {
		req := httptest.NewRequest(http.MethodGet, "/v1/health/history?limit="+limit, nil)
		rec := httptest.NewRecorder()
		f.handler.History(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code, "limit %q", limit)
	}
}
