// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Warden Contributors

package alert

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/warden-dev/warden/internal/config"
	wardenerr "github.com/warden-dev/warden/pkg/errors"
)

const webhookTimeout = 10 * time.Second

type webhookPayload struct {
	Text      string `json:"text"`
	Username  string `json:"username,omitempty"`
	IconEmoji string `json:"icon_emoji,omitempty"`
}

// WebhookNotifier posts Slack-compatible incoming-webhook payloads. Posts are
// paced to one per second.
type WebhookNotifier struct {
	cfg     config.WebhookConfig
	client  *http.Client
	limiter *rate.Limiter
}

// NewWebhookNotifier returns a notifier for cfg. A nil client uses
// http.DefaultClient.
func NewWebhookNotifier(cfg config.WebhookConfig, client *http.Client) *WebhookNotifier {
	if client == nil {
		client = http.DefaultClient
	}
	return &WebhookNotifier{
		cfg:     cfg,
		client:  client,
		limiter: rate.NewLimiter(rate.Every(time.Second), 1),
	}
}

func (w *WebhookNotifier) Name() string { return "webhook" }

func (w *WebhookNotifier) Configured() bool { return w.cfg.URL != "" }

func (w *WebhookNotifier) Notify(ctx context.Context, msg Message) error {
	if !w.Configured() {
		return wardenerr.New(wardenerr.CodeNotifyNotConfigured, "webhook alerting not configured (missing URL)",
			wardenerr.Field("channel", w.Name()))
	}

	if err := w.limiter.Wait(ctx); err != nil {
		return wardenerr.Wrap(err, wardenerr.CodeNotifyDeliveryFailure, "waiting for webhook rate limit")
	}

	body, err := json.Marshal(webhookPayload{
		Text:      "*Warden Alert*\n\n" + msg.Text,
		Username:  w.cfg.Username,
		IconEmoji: w.cfg.IconEmoji,
	})
	if err != nil {
		return wardenerr.Wrap(err, wardenerr.CodeNotifyDeliveryFailure, "encoding webhook payload")
	}

	ctx, cancel := context.WithTimeout(ctx, webhookTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.cfg.URL, bytes.NewReader(body))
	if err != nil {
		return wardenerr.Wrap(err, wardenerr.CodeNotifyDeliveryFailure, "building webhook request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return wardenerr.Wrap(err, wardenerr.CodeNotifyDeliveryFailure, "posting webhook")
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return wardenerr.Errorf(wardenerr.CodeNotifyDeliveryFailure, "webhook rejected alert (HTTP %d)", resp.StatusCode)
	}
	return nil
}
