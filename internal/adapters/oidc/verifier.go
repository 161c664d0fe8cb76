// Package oidc verifies OIDC ID tokens presented by schedulers calling the
// cron endpoints.
package oidc

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	gooidc "github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"
)

// TokenVerifierConfig holds configuration for TokenVerifier.
type TokenVerifierConfig struct {
	// Issuer is the issuer URL or its discovery document URL.
	Issuer string
	// Audience is the expected aud claim.
	Audience string
	// AllowedSubjects restricts accepted tokens by sub or email when non-empty.
	AllowedSubjects []string
	HTTPClient      *http.Client // Optional, defaults to a 30s client
}

// TokenVerifier checks signature, issuer, audience and expiry of ID tokens.
type TokenVerifier struct {
	verifier *gooidc.IDTokenVerifier
	allowed  map[string]struct{}
}

// Claims are the identity claims read from a verified token.
type Claims struct {
	Subject string `json:"sub"`
	Email   string `json:"email"`
}

// NewTokenVerifier performs provider discovery and returns a verifier bound to
// the issuer's key set.
func NewTokenVerifier(ctx context.Context, cfg TokenVerifierConfig) (*TokenVerifier, error) {
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, httpClient)
	op, err := gooidc.NewProvider(ctx, issuerFromDiscovery(cfg.Issuer))
	if err != nil {
		return nil, fmt.Errorf("oidc new provider: %w", err)
	}
	return newTokenVerifier(op.Verifier(&gooidc.Config{ClientID: cfg.Audience}), cfg.AllowedSubjects), nil
}

// NewStaticTokenVerifier builds a verifier over a fixed key set, skipping
// discovery.
func NewStaticTokenVerifier(cfg TokenVerifierConfig, keys gooidc.KeySet, now func() time.Time) (*TokenVerifier, error) {
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}
	if keys == nil {
		return nil, errors.New("key set is required")
	}
	v := gooidc.NewVerifier(issuerFromDiscovery(cfg.Issuer), keys, &gooidc.Config{
		ClientID: cfg.Audience,
		Now:      now,
	})
	return newTokenVerifier(v, cfg.AllowedSubjects), nil
}

func newTokenVerifier(v *gooidc.IDTokenVerifier, subjects []string) *TokenVerifier {
	tv := &TokenVerifier{verifier: v}
	if len(subjects) > 0 {
		tv.allowed = make(map[string]struct{}, len(subjects))
		for _, s := range subjects {
			if s = strings.TrimSpace(s); s != "" {
				tv.allowed[s] = struct{}{}
			}
		}
	}
	return tv
}

func validateConfig(cfg TokenVerifierConfig) error {
	if cfg.Issuer == "" {
		return errors.New("issuer is required")
	}
	if cfg.Audience == "" {
		return errors.New("audience is required")
	}
	return nil
}

// Verify validates rawToken and returns its identity claims.
func (v *TokenVerifier) Verify(ctx context.Context, rawToken string) (Claims, error) {
	if rawToken == "" {
		return Claims{}, errors.New("token is required")
	}
	tok, err := v.verifier.Verify(ctx, rawToken)
	if err != nil {
		return Claims{}, fmt.Errorf("verify id_token: %w", err)
	}
	var claims Claims
	if err := tok.Claims(&claims); err != nil {
		return Claims{}, fmt.Errorf("parse id_token claims: %w", err)
	}
	if !v.permits(claims) {
		return Claims{}, fmt.Errorf("subject %q is not allowed", firstNonEmpty(claims.Email, claims.Subject))
	}
	return claims, nil
}

func (v *TokenVerifier) permits(c Claims) bool {
	if len(v.allowed) == 0 {
		return true
	}
	if _, ok := v.allowed[c.Subject]; ok {
		return true
	}
	_, ok := v.allowed[c.Email]
	return ok && c.Email != ""
}

// issuerFromDiscovery accepts either an issuer or its discovery URL.
func issuerFromDiscovery(u string) string {
	issuer := strings.TrimSuffix(u, "/")
	issuer = strings.TrimSuffix(issuer, "/.well-known/openid-configuration")
	return strings.TrimSuffix(issuer, ".well-known/openid-configuration")
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
