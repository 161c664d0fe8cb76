package oidc

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testIssuer   = "https://issuer.example.com"
	testAudience = "https://hookline.example.com/cron"
)

var testNow = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

// payloadKeySet accepts any signature and returns the token payload, leaving
// claim checks to the verifier.
type payloadKeySet struct{ reject bool }

func (k payloadKeySet) VerifySignature(_ context.Context, jwt string) ([]byte, error) {
	if k.reject {
		return nil, errors.New("bad signature")
	}
	parts := strings.Split(jwt, ".")
	if len(parts) != 3 {
		return nil, errors.New("malformed jwt")
	}
	return base64.RawURLEncoding.DecodeString(parts[1])
}

func token(t *testing.T, claims map[string]any) string {
	t.Helper()
	header := base64.RawURLEncoding.EncodeToString([]byte(`{"alg":"RS256","typ":"JWT"}`))
	body, err := json.Marshal(claims)
	require.NoError(t, err)
	sig := base64.RawURLEncoding.EncodeToString([]byte("signature"))
	return header + "." + base64.RawURLEncoding.EncodeToString(body) + "." + sig
}

func validClaims() map[string]any {
	return map[string]any{
		"iss":   testIssuer,
		"aud":   testAudience,
		"sub":   "scheduler-sa",
		"email": "scheduler@example.iam",
		"iat":   testNow.Add(-time.Minute).Unix(),
		"exp":   testNow.Add(time.Hour).Unix(),
	}
}

func newStatic(t *testing.T, keys payloadKeySet, subjects ...string) *TokenVerifier {
	t.Helper()
	v, err := NewStaticTokenVerifier(TokenVerifierConfig{
		Issuer:          testIssuer,
		Audience:        testAudience,
		AllowedSubjects: subjects,
	}, keys, func() time.Time { return testNow })
	require.NoError(t, err)
	return v
}

func TestTokenVerifier_Verify(t *testing.T) {
	ctx := context.Background()

	t.Run("valid token", func(t *testing.T) {
		claims, err := newStatic(t, payloadKeySet{}).Verify(ctx, token(t, validClaims()))
		require.NoError(t, err)
		assert.Equal(t, "scheduler-sa", claims.Subject)
		assert.Equal(t, "scheduler@example.iam", claims.Email)
	})

	tests := []struct {
		name   string
		mutate func(map[string]any)
		keys   payloadKeySet
	}{
		{name: "wrong audience", mutate: func(c map[string]any) { c["aud"] = "someone-else" }},
		{name: "wrong issuer", mutate: func(c map[string]any) { c["iss"] = "https://evil.example.com" }},
		{name: "expired", mutate: func(c map[string]any) { c["exp"] = testNow.Add(-time.Minute).Unix() }},
		{name: "bad signature", mutate: func(map[string]any) {}, keys: payloadKeySet{reject: true}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validClaims()
			tt.mutate(c)
			_, err := newStatic(t, tt.keys).Verify(ctx, token(t, c))
			require.Error(t, err)
		})
	}

	t.Run("empty token", func(t *testing.T) {
		_, err := newStatic(t, payloadKeySet{}).Verify(ctx, "")
		require.Error(t, err)
	})
}

func TestTokenVerifier_AllowedSubjects(t *testing.T) {
	ctx := context.Background()

	_, err := newStatic(t, payloadKeySet{}, "scheduler@example.iam").Verify(ctx, token(t, validClaims()))
	require.NoError(t, err)

	_, err = newStatic(t, payloadKeySet{}, "scheduler-sa").Verify(ctx, token(t, validClaims()))
	require.NoError(t, err)

	_, err = newStatic(t, payloadKeySet{}, "other@example.iam").Verify(ctx, token(t, validClaims()))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not allowed")
}

func TestNewTokenVerifier_Discovery(t *testing.T) {
	issuer := ""
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"issuer":                 issuer,
			"authorization_endpoint": issuer + "/auth",
			"token_endpoint":         issuer + "/token",
			"jwks_uri":               issuer + "/jwks",
		})
	}))
	t.Cleanup(srv.Close)
	issuer = srv.URL

	v, err := NewTokenVerifier(context.Background(), TokenVerifierConfig{
		Issuer:     srv.URL + "/.well-known/openid-configuration",
		Audience:   testAudience,
		HTTPClient: srv.Client(),
	})
	require.NoError(t, err)
	assert.NotNil(t, v)
}

func TestNewTokenVerifier_ValidationErrors(t *testing.T) {
	tests := []struct {
		name   string
		cfg    TokenVerifierConfig
		errMsg string
	}{
		{name: "missing issuer", cfg: TokenVerifierConfig{Audience: testAudience}, errMsg: "issuer is required"},
		{name: "missing audience", cfg: TokenVerifierConfig{Issuer: testIssuer}, errMsg: "audience is required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewTokenVerifier(context.Background(), tt.cfg)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}

	_, err := NewStaticTokenVerifier(TokenVerifierConfig{Issuer: testIssuer, Audience: testAudience}, nil, nil)
	require.Error(t, err)
}

func TestIssuerFromDiscovery(t *testing.T) {
	assert.Equal(t, testIssuer, issuerFromDiscovery(testIssuer+"/.well-known/openid-configuration"))
	assert.Equal(t, testIssuer, issuerFromDiscovery(testIssuer+"/"))
	assert.Equal(t, testIssuer, issuerFromDiscovery(testIssuer))
}
