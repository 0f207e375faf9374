package distribute

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// discordContentLimit is Discord's hard cap on message content length.
const discordContentLimit = 2000

var webhookClient = &http.Client{Timeout: 10 * time.Second}

// SlackSender posts report summaries to a Slack incoming webhook.
type SlackSender struct {
	WebhookURL string
}

func (s *SlackSender) Name() string { return "slack" }

func (s *SlackSender) Send(ctx context.Context, msg Message) error {
	text := msg.Text
	if msg.Subject != "" {
		text = "*" + msg.Subject + "*\n" + text
	}
	return postWebhook(ctx, s.WebhookURL, map[string]string{"text": text})
}

// DiscordSender posts report summaries to a Discord webhook.
type DiscordSender struct {
	WebhookURL string
}

func (d *DiscordSender) Name() string { return "discord" }

func (d *DiscordSender) Send(ctx context.Context, msg Message) error {
	content := msg.Text
	if msg.Subject != "" {
		content = "**" + msg.Subject + "**\n" + content
	}
	if runes := []rune(content); len(runes) > discordContentLimit {
		content = string(runes[:discordContentLimit-3]) + "..."
	}
	return postWebhook(ctx, d.WebhookURL, map[string]string{"content": content})
}

func postWebhook(ctx context.Context, webhookURL string, payload interface{}) error {
	if webhookURL == "" {
		return fmt.Errorf("webhook url is not configured")
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := webhookClient.Do(req)
	if err != nil {
		return fmt.Errorf("post webhook: %w", err)
	}
	defer resp.Body.Close() // nolint:errcheck // best-effort cleanup

	if resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("webhook returned %d: %s", resp.StatusCode, string(detail))
	}
	return nil
}
