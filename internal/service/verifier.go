package service

import (
	"crypto/ed25519"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/hex"
	"encoding/pem"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// VerifierOptions configures a Verifier. At least one of Secret or PublicKey
// is required.
type VerifierOptions struct {
	// Secret is the shared HMAC-SHA256 key.
	Secret string
	// PublicKey is an Ed25519 key, either a PEM PKIX block or the base64 raw key.
	PublicKey string
	Logger    *slog.Logger
}

// Verifier checks inbound webhook signatures over the exact request bytes.
type Verifier struct {
	secret    []byte
	publicKey ed25519.PublicKey
	logger    *slog.Logger
}

// NewVerifier builds a Verifier from opts.
func NewVerifier(opts VerifierOptions) (*Verifier, error) {
	v := &Verifier{secret: []byte(opts.Secret)}
	if opts.Logger != nil {
		v.logger = opts.Logger.With("component", "verifier")
	}
	if strings.TrimSpace(opts.PublicKey) != "" {
		key, err := parseEd25519PublicKey(opts.PublicKey)
		if err != nil {
			return nil, fmt.Errorf("webhook public key: %w", err)
		}
		v.publicKey = key
	}
	if len(v.secret) == 0 && v.publicKey == nil {
		return nil, errors.New("a webhook signing secret or public key is required")
	}
	return v, nil
}

func parseEd25519PublicKey(raw string) (ed25519.PublicKey, error) {
	raw = strings.TrimSpace(raw)
	if block, _ := pem.Decode([]byte(raw)); block != nil {
		parsed, err := x509.ParsePKIXPublicKey(block.Bytes)
		if err != nil {
			return nil, err
		}
		key, ok := parsed.(ed25519.PublicKey)
		if !ok {
			return nil, errors.New("PEM key is not Ed25519")
		}
		return key, nil
	}
	decoded, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		return nil, fmt.Errorf("decode base64: %w", err)
	}
	if len(decoded) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("expected %d key bytes, got %d", ed25519.PublicKeySize, len(decoded))
	}
	return ed25519.PublicKey(decoded), nil
}

// Verify reports whether signature is valid for body under either the shared
// secret or the public key. It never panics.
func (v *Verifier) Verify(body []byte, signature string) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			if v.logger != nil {
				v.logger.Error("signature verification panicked", "panic", r)
			}
			ok = false
		}
	}()

	sig := normalizeSignature(signature)
	if sig == "" {
		return false
	}
	decoded := decodeSignature(sig)
	if len(decoded) == 0 {
		return false
	}

	if len(v.secret) > 0 {
		mac := hmac.New(sha256.New, v.secret)
		mac.Write(body)
		if hmac.Equal(mac.Sum(nil), decoded) {
			return true
		}
	}
	if v.publicKey != nil && len(decoded) == ed25519.SignatureSize {
		if ed25519.Verify(v.publicKey, body, decoded) {
			return true
		}
	}
	return false
}

func normalizeSignature(signature string) string {
	sig := strings.TrimSpace(signature)
	if i := strings.IndexByte(sig, '='); i > 0 && strings.EqualFold(sig[:i], "sha256") {
		sig = sig[i+1:]
	}
	return strings.TrimSpace(sig)
}

// decodeSignature accepts hex, then standard or URL-safe base64.
func decodeSignature(sig string) []byte {
	if b, err := hex.DecodeString(sig); err == nil {
		return b
	}
	for _, enc := range []*base64.Encoding{base64.StdEncoding, base64.RawStdEncoding, base64.URLEncoding, base64.RawURLEncoding} {
		if b, err := enc.DecodeString(sig); err == nil {
			return b
		}
	}
	return nil
}

// ReplayGuard rejects webhooks whose declared timestamp is too far from now.
type ReplayGuard struct {
	Window time.Duration
}

// DefaultReplayWindow applies when a ReplayGuard has no window.
const DefaultReplayWindow = 5 * time.Minute

// Fresh reports whether a webhook stamped ts may be processed at now.
// Webhooks without a timestamp are always fresh.
func (g ReplayGuard) Fresh(ts *time.Time, now time.Time) bool {
	if ts == nil || ts.IsZero() {
		return true
	}
	window := g.Window
	if window <= 0 {
		window = DefaultReplayWindow
	}
	skew := now.Sub(*ts)
	if skew < 0 {
		skew = -skew
	}
	return skew <= window
}
