// Package downstream delivers install, cleanup and agency-sync work to the
// services that own it.
package downstream

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/target/hookline/config"
	"github.com/target/hookline/internal/core"
	"github.com/target/hookline/internal/domain/model"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// Header names set on every downstream request.
const (
	HeaderSignature = "X-Hookline-Signature"
	HeaderTimestamp = "X-Hookline-Timestamp"
	HeaderKind      = "X-Hookline-Kind"
)

// ErrNoEndpoint is returned for a kind with no configured URL.
var ErrNoEndpoint = errors.New("no downstream endpoint configured")

// ClientOptions configures a Client.
type ClientOptions struct {
	Config     config.DownstreamConfig
	Logger     *slog.Logger
	HTTPClient *http.Client // Optional; used as the base transport for OAuth too.
	Now        func() time.Time
}

// Client posts JSON payloads to downstream endpoints.
type Client struct {
	endpoints map[model.RetryKind]string
	secret    []byte
	http      *http.Client
	logger    *slog.Logger
	now       func() time.Time
}

var _ core.DownstreamNotifier = (*Client)(nil)

// NewClient builds a Client. When OAuth client credentials are configured the
// returned client attaches a bearer token to every request.
func NewClient(opts ClientOptions) *Client {
	cfg := opts.Config
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: cfg.Timeout}
	}
	if cfg.OAuth.Enabled() {
		cc := clientcredentials.Config{
			ClientID:     cfg.OAuth.ClientID,
			ClientSecret: cfg.OAuth.ClientSecret,
			TokenURL:     cfg.OAuth.TokenURL,
			Scopes:       cfg.OAuth.Scopes,
		}
		// Token fetches go through the same base client as deliveries.
		ctx := context.WithValue(context.Background(), oauth2.HTTPClient, hc)
		authed := cc.Client(ctx)
		authed.Timeout = hc.Timeout
		hc = authed
	}

	return &Client{
		endpoints: map[model.RetryKind]string{
			model.RetryKindInstallSetup:     cfg.SetupURL,
			model.RetryKindUninstallCleanup: cfg.CleanupURL,
			model.RetryKindAgencySync:       cfg.AgencySyncURL,
		},
		secret: []byte(cfg.SigningSecret),
		http:   hc,
		logger: logger.With("component", "downstream"),
		now:    now,
	}
}

// Notify posts payload to the endpoint configured for kind. Client errors
// other than 408 and 429 are permanent; everything else may be retried.
func (c *Client) Notify(ctx context.Context, kind model.RetryKind, payload []byte) error {
	endpoint := c.endpoints[kind]
	if endpoint == "" {
		return model.Permanent(fmt.Errorf("%w for %s", ErrNoEndpoint, kind))
	}

	ts := strconv.FormatInt(c.now().Unix(), 10)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return model.Permanent(fmt.Errorf("build downstream request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(HeaderKind, string(kind))
	req.Header.Set(HeaderTimestamp, ts)
	if len(c.secret) > 0 {
		req.Header.Set(HeaderSignature, Sign(c.secret, ts, payload))
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("downstream %s: %w", kind, err)
	}
	defer resp.Body.Close()

	c.logger.DebugContext(ctx, "downstream delivery",
		"kind", kind,
		"status", resp.StatusCode,
		"duration", time.Since(start))

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	err = fmt.Errorf("downstream %s returned %s: %s", kind, resp.Status, strings.TrimSpace(string(body)))
	if permanentStatus(resp.StatusCode) {
		return model.Permanent(err)
	}
	return err
}

func permanentStatus(code int) bool {
	if code == http.StatusRequestTimeout || code == http.StatusTooManyRequests {
		return false
	}
	return code >= 400 && code < 500
}

// Sign returns the hex HMAC-SHA256 of "timestamp.body" under secret.
func Sign(secret []byte, timestamp string, body []byte) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(timestamp))
	mac.Write([]byte{'.'})
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}
