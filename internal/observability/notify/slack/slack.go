// Package slack posts dead-letter alerts to a Slack incoming webhook.
package slack

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"maps"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/target/hookline/internal/observability/notify"
)

// Config captures the subset of Slack webhook behaviour we need.
type Config struct {
	WebhookURL string
	Channel    string
	Username   string
	Timeout    time.Duration
	RetryLimit int
	Client     *http.Client
	// TenantURLPrefix links the tenant id to an operator console page.
	TenantURLPrefix string
}

// Client delivers dead-letter notifications to a Slack webhook.
type Client struct {
	webhookURL      string
	channel         string
	username        string
	retryLimit      int
	tenantURLPrefix string
	client          *http.Client
}

var _ notify.Sink = (*Client)(nil)

// NewClient builds a Slack webhook client. Callers should pass a validated config.
func NewClient(cfg Config) (*Client, error) {
	webhookURL := strings.TrimSpace(cfg.WebhookURL)
	if webhookURL == "" {
		return nil, errors.New("slack webhook url is required")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	hc := cfg.Client
	if hc == nil {
		hc = &http.Client{Timeout: timeout}
	}

	return &Client{
		webhookURL:      webhookURL,
		channel:         strings.TrimSpace(cfg.Channel),
		username:        fallbackString(strings.TrimSpace(cfg.Username), "hookline"),
		retryLimit:      max(cfg.RetryLimit, 0),
		tenantURLPrefix: strings.TrimSpace(cfg.TenantURLPrefix),
		client:          hc,
	}, nil
}

// SendDeadLetter posts a formatted message to Slack.
func (c *Client) SendDeadLetter(ctx context.Context, payload notify.DeadLetterPayload) error {
	body, err := json.Marshal(c.formatMessage(payload))
	if err != nil {
		return fmt.Errorf("encode slack payload: %w", err)
	}

	attempts := c.retryLimit + 1
	var lastErr error
	for attempt := range attempts {
		if lastErr = c.post(ctx, body); lastErr == nil {
			return nil
		}
		if attempt == attempts-1 {
			break
		}
		timer := time.NewTimer(time.Duration(attempt+1) * 200 * time.Millisecond)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
	return lastErr
}

func (c *Client) formatMessage(payload notify.DeadLetterPayload) map[string]any {
	timestamp := payload.OccurredAt
	if timestamp.IsZero() {
		timestamp = time.Now()
	}

	var text strings.Builder
	text.WriteString("*Dead letter*")
	if payload.Kind != "" {
		text.WriteString(" `")
		text.WriteString(escapeSlackText(payload.Kind))
		text.WriteByte('`')
	}
	if payload.Source != "" {
		text.WriteString(" (")
		text.WriteString(payload.Source)
		text.WriteString(" item)")
	}
	text.WriteByte('\n')

	attempts := ""
	if payload.Attempts > 0 {
		attempts = strconv.Itoa(payload.Attempts)
	}
	fields := []struct{ label, value string }{
		{"Severity", fallbackString(payload.Severity, notify.SeverityCritical)},
		{"Tenant", c.formatTenant(payload.TenantID)},
		{"Item", escapeSlackText(payload.ItemID)},
		{"Webhook", escapeSlackText(payload.WebhookID)},
		{"Attempts", attempts},
		{"Error", escapeSlackText(payload.Error)},
	}
	for _, f := range fields {
		appendField(&text, f.label, f.value)
	}
	appendMetadata(&text, payload.Metadata)
	text.WriteString("• Timestamp: ")
	text.WriteString(timestamp.UTC().Format(time.RFC3339))

	msg := map[string]any{
		"text":     text.String(),
		"username": c.username,
	}
	if c.channel != "" {
		msg["channel"] = c.channel
	}
	return msg
}

func (c *Client) formatTenant(tenantID string) string {
	raw := strings.TrimSpace(tenantID)
	if raw == "" {
		return ""
	}
	id := escapeSlackText(raw)
	if link := c.tenantLink(raw); link != "" {
		return fmt.Sprintf("<%s|%s>", link, id)
	}
	return id
}

func (c *Client) tenantLink(tenantID string) string {
	if c.tenantURLPrefix == "" {
		return ""
	}
	u, err := url.Parse(c.tenantURLPrefix)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return ""
	}
	link, err := url.JoinPath(u.String(), tenantID)
	if err != nil {
		return ""
	}
	return link
}

func (c *Client) post(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create slack request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("slack request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, readErr := io.ReadAll(io.LimitReader(resp.Body, 4096))
		if readErr != nil {
			return fmt.Errorf("read slack error response: %w", readErr)
		}
		return fmt.Errorf("slack webhook %s: %s", resp.Status, strings.TrimSpace(string(respBody)))
	}
	if _, err := io.Copy(io.Discard, resp.Body); err != nil {
		return fmt.Errorf("drain slack response body: %w", err)
	}
	return nil
}

func escapeSlackText(value string) string {
	if value == "" {
		return ""
	}
	return strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;").Replace(value)
}

func fallbackString(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}

func appendField(text *strings.Builder, label, value string) {
	if strings.TrimSpace(value) == "" {
		return
	}
	text.WriteString("• ")
	text.WriteString(label)
	text.WriteString(": ")
	text.WriteString(value)
	text.WriteByte('\n')
}

func appendMetadata(text *strings.Builder, metadata map[string]string) {
	if len(metadata) == 0 {
		return
	}
	text.WriteString("• Metadata:\n")
	for _, k := range slices.Sorted(maps.Keys(metadata)) {
		text.WriteString("    • ")
		text.WriteString(k)
		text.WriteString(": ")
		text.WriteString(escapeSlackText(metadata[k]))
		text.WriteByte('\n')
	}
}
