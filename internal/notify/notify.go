package notify

import "context"

// Client bundles the notification channels a running bot reports
// through: a Discord webhook for dead-search and crash alerts, and an
// optional Tidbyt push for live board snapshots. Either field may be
// left nil-equivalent (empty webhook URL, nil tidbyt) when that channel
// is not configured for a given deployment.
type Client struct {
	Discord *Discord
	Tidbyt  *Tidbyt
}

// New builds a Client from already-resolved secrets. Pass an empty
// webhookURL or nil tidbyt to disable that channel.
func New(webhookURL string, tidbyt *Tidbyt) *Client {
	return &Client{Discord: NewDiscord(webhookURL), Tidbyt: tidbyt}
}

// Announce posts a plain status message to Discord, the same role
// main.go's "Starting up"/"Shutting down" webhook calls play.
func (c *Client) Announce(ctx context.Context, message string) error {
	if c == nil || c.Discord == nil {
		return nil
	}
	return c.Discord.Send(ctx, message)
}

// AlertDeadSearch reports that the search interface declared itself
// dead (every worker panicked, or the DAG ran out of live candidates),
// posting crash context to Discord rather than only logging it.
func (c *Client) AlertDeadSearch(ctx context.Context, reason string) error {
	if c == nil || c.Discord == nil {
		return nil
	}
	return c.Discord.Send(ctx, "search interface died: "+reason)
}

// PushSnapshot forwards a rendered board frame to the configured Tidbyt
// device, if any. It is a no-op when no device is configured.
func (c *Client) PushSnapshot(ctx context.Context, webpBase64, installationID string, background bool) error {
	if c == nil || c.Tidbyt == nil {
		return nil
	}
	return c.Tidbyt.Push(ctx, webpBase64, installationID, background)
}
