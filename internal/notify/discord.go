// Package notify sends out-of-band alerts about the search engine's
// state - a dead search, a crashed worker, a periodic board snapshot -
// adapted from sendDiscordWebhook (main.go) and PushToTidbyt
// (tidbyt.go).
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
)

// Discord posts plain-text alerts to a single incoming webhook.
type Discord struct {
	webhookURL string
	client     *http.Client
}

// NewDiscord builds a notifier for the given webhook URL. An empty URL
// is valid: Send then only logs the message instead of posting it, the
// same "no webhook configured" fallback main.go uses.
func NewDiscord(webhookURL string) *Discord {
	return &Discord{webhookURL: webhookURL, client: http.DefaultClient}
}

type webhookPayload struct {
	Content string `json:"content"`
}

// Send posts message to the configured webhook.
func (d *Discord) Send(ctx context.Context, message string) error {
	if d.webhookURL == "" {
		slog.Info("no discord webhook configured, logging instead", "message", message)
		return nil
	}

	body, err := json.Marshal(webhookPayload{Content: message})
	if err != nil {
		return fmt.Errorf("notify: marshal discord payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("notify: build discord request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("notify: send discord webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return fmt.Errorf("notify: discord webhook returned %s", resp.Status)
	}
	return nil
}
