package main

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"github.com/carelink/carelink/internal/alerting"
	"github.com/carelink/carelink/internal/config"
	"github.com/carelink/carelink/internal/provider/resilience"
)

func TestBuildAlertChannel_WebhookMode(t *testing.T) {
	cfg := config.Config{
		AlertMode:       config.AlertModeWebhook,
		AlertWebhookURL: "https://hooks.example.com/carelink",
	}

	channel := buildAlertChannel(cfg, zerolog.Nop(), resilience.NewRegistry())

	assert.IsType(t, &alerting.WebhookChannel{}, channel)
}

func TestBuildAlertChannel_EmailFeatureFallsBackToRetiredChannel(t *testing.T) {
	cfg := config.Config{
		AlertMode: config.AlertModeNone,
		Features:  config.Features{Email: true},
	}

	channel := buildAlertChannel(cfg, zerolog.Nop(), resilience.NewRegistry())

	assert.IsType(t, &alerting.EmailChannel{}, channel)
}

func TestBuildAlertChannel_DisabledReturnsNil(t *testing.T) {
	cfg := config.Config{AlertMode: config.AlertModeNone}

	channel := buildAlertChannel(cfg, zerolog.Nop(), resilience.NewRegistry())

	assert.Nil(t, channel)
}

func TestBuildAlertChannel_WebhookTakesPrecedenceOverEmail(t *testing.T) {
	cfg := config.Config{
		AlertMode:       config.AlertModeWebhook,
		AlertWebhookURL: "https://hooks.example.com/carelink",
		Features:        config.Features{Email: true},
	}

	channel := buildAlertChannel(cfg, zerolog.Nop(), resilience.NewRegistry())

	assert.IsType(t, &alerting.WebhookChannel{}, channel)
}
