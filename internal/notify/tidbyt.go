package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
)

const tidbytBaseURL = "https://api.tidbyt.com/v0"

// Tidbyt pushes rendered board snapshots to a single physical Tidbyt
// device, adapted from tidbyt.go's PushToTidbyt.
type Tidbyt struct {
	deviceID string
	apiToken string
	client   *http.Client
	baseURL  string
}

// NewTidbyt builds a pusher for the given device, authenticating pushes
// with apiToken.
func NewTidbyt(deviceID, apiToken string) *Tidbyt {
	return &Tidbyt{deviceID: deviceID, apiToken: apiToken, client: http.DefaultClient, baseURL: tidbytBaseURL}
}

type pushRequest struct {
	Image          string `json:"image"`
	InstallationID string `json:"installationID"`
	Background     bool   `json:"background,omitempty"`
}

// Push uploads a base64-encoded WebP frame as the device's active
// installation, replacing whatever it was previously showing.
func (t *Tidbyt) Push(ctx context.Context, webpBase64, installationID string, background bool) error {
	body, err := json.Marshal(pushRequest{
		Image:          webpBase64,
		InstallationID: installationID,
		Background:     background,
	})
	if err != nil {
		return fmt.Errorf("notify: marshal tidbyt push: %w", err)
	}

	url := fmt.Sprintf("%s/devices/%s/push", t.baseURL, t.deviceID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("notify: build tidbyt request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+t.apiToken)

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("notify: push to tidbyt: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("notify: tidbyt push returned %s", resp.Status)
	}
	slog.Info("pushed board snapshot to tidbyt", "device", t.deviceID)
	return nil
}
