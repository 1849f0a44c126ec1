// Package config loads the CareLink runtime configuration from the
// environment exactly once, producing an immutable Config that every other
// component receives at construction time. Components never read environment
// variables themselves.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// IntegrityMode governs which dependencies are mandatory and whether an
// unmet requirement blocks process startup.
type IntegrityMode string

const (
	// ModeStrict requires every feature-gated dependency; unmet requirements
	// abort startup unless the override flag is set.
	ModeStrict IntegrityMode = "strict"

	// ModeDemo computes readiness the same way as strict but never aborts
	// startup; blocking reasons are only logged.
	ModeDemo IntegrityMode = "demo"

	// ModeDev relaxes most optional requirements for local development.
	ModeDev IntegrityMode = "dev"
)

// CheckoutMode selects the payment-provider integration depth.
type CheckoutMode string

const (
	// CheckoutRedirect uses hosted checkout pages; only the secret key is
	// required.
	CheckoutRedirect CheckoutMode = "redirect"

	// CheckoutEmbedded uses the in-page JS integration; both the secret and
	// the publishable key are required.
	CheckoutEmbedded CheckoutMode = "embedded"
)

// AlertMode selects the alert delivery channel.
type AlertMode string

const (
	AlertModeNone    AlertMode = "none"
	AlertModeWebhook AlertMode = "webhook"
)

// Features holds the feature flags that gate optional platform capabilities.
// A disabled feature is never treated as a required dependency, regardless of
// probe results.
type Features struct {
	Payments      bool
	Email         bool
	Transcription bool
}

// Config is the immutable runtime configuration for the CareLink API.
type Config struct {
	Environment string
	Port        string

	Mode              IntegrityMode
	IntegrityOverride bool

	// DatabaseURL selects the persistence capability: empty means the
	// file-store fallback, anything else is a Postgres connection string.
	DatabaseURL         string
	DBMaxReconnects     int
	DBReconnectInterval time.Duration

	DataDir string

	SpeechModelPaths []string

	StripeSecretKey      string
	StripePublishableKey string
	StripeWebhookSecret  string
	StripeWebhookMounted bool
	Checkout             CheckoutMode

	AlertMode       AlertMode
	AlertWebhookURL string
	AlertThreshold  int
	AlertCooldown   time.Duration

	HealthInterval time.Duration

	MetricsToken string
	AdminToken   string

	Features Features

	// RulesTranspileOnly reports that the eligibility rules engine was built
	// without type checking. Alert-worthy in production.
	RulesTranspileOnly bool

	OTLPEndpoint     string
	TelemetryEnabled bool
}

// Load reads the environment (after an optional .env file) and returns the
// resulting Config. Validation failures are returned to the caller; Load
// never terminates the process.
func Load() (Config, error) {
	// Missing .env is the normal case outside local development.
	_ = godotenv.Load()

	cfg := Config{
		Environment:          getEnvOrDefault("APP_ENV", "development"),
		Port:                 getEnvOrDefault("APP_PORT", "8080"),
		Mode:                 IntegrityMode(getEnvOrDefault("INTEGRITY_MODE", string(ModeDev))),
		IntegrityOverride:    getEnvBool("INTEGRITY_OVERRIDE", false),
		DatabaseURL:          os.Getenv("DATABASE_URL"),
		DBMaxReconnects:      getEnvInt("DB_MAX_RECONNECT_ATTEMPTS", 5),
		DBReconnectInterval:  getEnvDuration("DB_RECONNECT_INTERVAL", 2*time.Second),
		DataDir:              getEnvOrDefault("DATA_DIR", "data"),
		SpeechModelPaths:     getEnvList("SPEECH_MODEL_PATHS", defaultSpeechModelPaths()),
		StripeSecretKey:      os.Getenv("STRIPE_SECRET_KEY"),
		StripePublishableKey: os.Getenv("STRIPE_PUBLISHABLE_KEY"),
		StripeWebhookSecret:  os.Getenv("STRIPE_WEBHOOK_SECRET"),
		StripeWebhookMounted: getEnvBool("STRIPE_WEBHOOK_MOUNTED", false),
		Checkout:             CheckoutMode(getEnvOrDefault("CHECKOUT_MODE", string(CheckoutRedirect))),
		AlertMode:            AlertMode(getEnvOrDefault("ALERT_MODE", string(AlertModeNone))),
		AlertWebhookURL:      os.Getenv("ALERT_WEBHOOK_URL"),
		AlertThreshold:       getEnvInt("ALERT_FAILURE_THRESHOLD", 3),
		AlertCooldown:        getEnvDuration("ALERT_COOLDOWN", 15*time.Minute),
		HealthInterval:       getEnvDuration("HEALTH_CHECK_INTERVAL", 60*time.Second),
		MetricsToken:         os.Getenv("METRICS_TOKEN"),
		AdminToken:           os.Getenv("ADMIN_TOKEN"),
		RulesTranspileOnly:   getEnvBool("RULES_TRANSPILE_ONLY", false),
		OTLPEndpoint:         getEnvOrDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
		TelemetryEnabled:     getEnvBool("OTEL_ENABLED", false),
		Features: Features{
			Payments:      getEnvBool("FEATURE_PAYMENTS", true),
			Email:         getEnvBool("FEATURE_EMAIL", false),
			Transcription: getEnvBool("FEATURE_TRANSCRIPTION", true),
		},
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	switch c.Mode {
	case ModeStrict, ModeDemo, ModeDev:
	default:
		return fmt.Errorf("invalid INTEGRITY_MODE %q (expected strict, demo or dev)", c.Mode)
	}

	switch c.Checkout {
	case CheckoutRedirect, CheckoutEmbedded:
	default:
		return fmt.Errorf("invalid CHECKOUT_MODE %q (expected redirect or embedded)", c.Checkout)
	}

	switch c.AlertMode {
	case AlertModeNone, AlertModeWebhook:
	default:
		return fmt.Errorf("invalid ALERT_MODE %q (expected none or webhook)", c.AlertMode)
	}

	if c.AlertMode == AlertModeWebhook && c.AlertWebhookURL == "" {
		return fmt.Errorf("ALERT_MODE=webhook requires ALERT_WEBHOOK_URL")
	}

	if c.AlertThreshold < 1 {
		return fmt.Errorf("ALERT_FAILURE_THRESHOLD must be at least 1, got %d", c.AlertThreshold)
	}

	return nil
}

// DatabaseConfigured reports whether a Postgres connection string is present.
// When false the platform runs in file-store mode, which is a valid operating
// mode rather than a degradation.
func (c Config) DatabaseConfigured() bool {
	return c.DatabaseURL != ""
}

// IsProduction reports whether the service runs in the production
// environment.
func (c Config) IsProduction() bool {
	return c.Environment == "production"
}

// DataDirs returns every directory that must exist under the data root.
func (c Config) DataDirs() []string {
	return []string{
		c.DataDir,
		c.DataDir + "/uploads",
		c.DataDir + "/exports",
		c.DataDir + "/logs",
	}
}

// HealthLogPath returns the location of the append-only health log.
func (c Config) HealthLogPath() string {
	return c.DataDir + "/logs/health-log.ndjson"
}

func defaultSpeechModelPaths() []string {
	return []string{
		"models/evts",
		"/usr/local/share/carelink/models/evts",
		"/opt/carelink/models/evts",
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}
	return parsed
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return parsed
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}
	return parsed
}

func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
