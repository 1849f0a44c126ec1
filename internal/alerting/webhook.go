package alerting

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/carelink/carelink/internal/provider/resilience"
)

// WebhookChannel delivers alerts as a JSON POST to an operator-configured
// endpoint. Delivery is single-shot: a non-2xx response or transport error
// is a delivery failure for the dispatcher to log, never retried here. The
// circuit breaker in the underlying client only prevents hammering an
// endpoint that is already known dead.
type WebhookChannel struct {
	url    string
	client *resilience.Client
	logger zerolog.Logger
}

// WebhookConfig holds configuration for the webhook channel.
type WebhookConfig struct {
	URL    string
	Logger zerolog.Logger

	// Client is the delivery client. If nil, a single-attempt resilient
	// client is created.
	Client *resilience.Client

	// Registry receives delivery outcomes when a client is auto-created.
	Registry *resilience.Registry
}

// NewWebhookChannel creates a webhook alert channel.
func NewWebhookChannel(cfg WebhookConfig) *WebhookChannel {
	client := cfg.Client
	if client == nil {
		client = resilience.NewClient(resilience.ClientConfig{
			Name:       "alert-webhook",
			MaxRetries: 0, // alerts are never retried
			Registry:   cfg.Registry,
		})
	}
	return &WebhookChannel{
		url:    cfg.URL,
		client: client,
		logger: cfg.Logger,
	}
}

// Name returns "webhook".
func (c *WebhookChannel) Name() string {
	return "webhook"
}

// Send posts the alert to the configured URL.
func (c *WebhookChannel) Send(ctx context.Context, alert Alert) error {
	body, err := json.Marshal(alert)
	if err != nil {
		return fmt.Errorf("marshal alert: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("deliver webhook alert: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}

	c.logger.Debug().
		Str("title", alert.Title).
		Str("severity", alert.Severity).
		Msg("alert delivered")
	return nil
}
