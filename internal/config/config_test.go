package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carelink/carelink/internal/config"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, config.ModeDev, cfg.Mode)
	assert.False(t, cfg.IntegrityOverride)
	assert.Equal(t, config.CheckoutRedirect, cfg.Checkout)
	assert.Equal(t, config.AlertModeNone, cfg.AlertMode)
	assert.Equal(t, 3, cfg.AlertThreshold)
	assert.Equal(t, 15*time.Minute, cfg.AlertCooldown)
	assert.Equal(t, 60*time.Second, cfg.HealthInterval)
	assert.Equal(t, 5, cfg.DBMaxReconnects)
	assert.True(t, cfg.Features.Payments)
	assert.False(t, cfg.Features.Email)
	assert.True(t, cfg.Features.Transcription)
}

func TestLoad_ReadsEnvironment(t *testing.T) {
	t.Setenv("INTEGRITY_MODE", "strict")
	t.Setenv("APP_ENV", "production")
	t.Setenv("DATABASE_URL", "postgres://localhost/carelink")
	t.Setenv("ALERT_MODE", "webhook")
	t.Setenv("ALERT_WEBHOOK_URL", "https://hooks.example.com/x")
	t.Setenv("ALERT_FAILURE_THRESHOLD", "5")
	t.Setenv("HEALTH_CHECK_INTERVAL", "30s")
	t.Setenv("SPEECH_MODEL_PATHS", "models/a, models/b")
	t.Setenv("FEATURE_TRANSCRIPTION", "false")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, config.ModeStrict, cfg.Mode)
	assert.True(t, cfg.IsProduction())
	assert.True(t, cfg.DatabaseConfigured())
	assert.Equal(t, config.AlertModeWebhook, cfg.AlertMode)
	assert.Equal(t, 5, cfg.AlertThreshold)
	assert.Equal(t, 30*time.Second, cfg.HealthInterval)
	assert.Equal(t, []string{"models/a", "models/b"}, cfg.SpeechModelPaths)
	assert.False(t, cfg.Features.Transcription)
}

func TestLoad_InvalidMode(t *testing.T) {
	t.Setenv("INTEGRITY_MODE", "paranoid")

	_, err := config.Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "INTEGRITY_MODE")
}

func TestLoad_WebhookModeRequiresURL(t *testing.T) {
	t.Setenv("ALERT_MODE", "webhook")
	t.Setenv("ALERT_WEBHOOK_URL", "")

	_, err := config.Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ALERT_WEBHOOK_URL")
}

func TestLoad_ThresholdMustBePositive(t *testing.T) {
	t.Setenv("ALERT_FAILURE_THRESHOLD", "0")

	_, err := config.Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ALERT_FAILURE_THRESHOLD")
}

func TestConfig_DataDirs(t *testing.T) {
	t.Setenv("DATA_DIR", "/var/lib/carelink")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, []string{
		"/var/lib/carelink",
		"/var/lib/carelink/uploads",
		"/var/lib/carelink/exports",
		"/var/lib/carelink/logs",
	}, cfg.DataDirs())
	assert.Equal(t, "/var/lib/carelink/logs/health-log.ndjson", cfg.HealthLogPath())
}
