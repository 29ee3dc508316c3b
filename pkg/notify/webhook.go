package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/marmos91/kidwatch/internal/logger"
	"github.com/marmos91/kidwatch/internal/telemetry"
)

// WebhookConfig configures a Webhook.
type WebhookConfig struct {
	URL      string
	APIToken string
	UserID   string
	Platform string
	Timeout  time.Duration
}

// Webhook posts alerts as JSON with an X-API-Token header.
type Webhook struct {
	cfg    WebhookConfig
	client *http.Client
}

// NewWebhook creates a Webhook. A zero timeout means 10s.
func NewWebhook(cfg WebhookConfig) *Webhook {
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &Webhook{cfg: cfg, client: &http.Client{Timeout: cfg.Timeout}}
}

type webhookPayload struct {
	Platform string       `json:"platform"`
	Summary  string       `json:"summary"`
	Content  string       `json:"content"`
	Extra    webhookExtra `json:"extra"`
}

type webhookExtra struct {
	UserID string `json:"user_id"`
}

// Notify implements Notifier.
func (w *Webhook) Notify(ctx context.Context, alert Alert) error {
	ctx, span := telemetry.StartInternalSpan(ctx, telemetry.SpanNotify, telemetry.Camera(alert.Camera))
	defer span.End()

	body, err := json.Marshal(webhookPayload{
		Platform: w.cfg.Platform,
		Summary:  Summary,
		Content:  alert.Content(),
		Extra:    webhookExtra{UserID: w.cfg.UserID},
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.cfg.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-Token", w.cfg.APIToken)

	resp, err := w.client.Do(req)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("webhook: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("webhook returned %d: %s", resp.StatusCode, bytes.TrimSpace(msg))
	}

	logger.InfoCtx(ctx, "Alert sent", logger.Camera(alert.Camera), "channel", "webhook", "status", resp.StatusCode)
	return nil
}
