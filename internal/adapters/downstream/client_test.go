package downstream

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/target/hookline/config"
	"github.com/target/hookline/internal/domain/model"
)

func fixedNow() time.Time { return time.Unix(1700000000, 0) }

func TestNotifySignsPayload(t *testing.T) {
	body := []byte(`{"type":"install_setup","tenantId":"loc-1"}`)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, err := io.ReadAll(r.Body)
		assert.NoError(t, err)
		assert.Equal(t, body, got)
		assert.Equal(t, "1700000000", r.Header.Get(HeaderTimestamp))
		assert.Equal(t, Sign([]byte("s3cret"), "1700000000", body), r.Header.Get(HeaderSignature))
		assert.Equal(t, "install_setup", r.Header.Get(HeaderKind))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	c := NewClient(ClientOptions{
		Config: config.DownstreamConfig{SetupURL: srv.URL, SigningSecret: "s3cret", Timeout: time.Second},
		Now:    fixedNow,
	})
	require.NoError(t, c.Notify(context.Background(), model.RetryKindInstallSetup, body))
}

func TestNotifyStatusClassification(t *testing.T) {
	tcs := []struct {
		status    int
		wantErr   bool
		permanent bool
	}{
		{http.StatusOK, false, false},
		{http.StatusBadRequest, true, true},
		{http.StatusNotFound, true, true},
		{http.StatusRequestTimeout, true, false},
		{http.StatusTooManyRequests, true, false},
		{http.StatusBadGateway, true, false},
	}
	for _, tc := range tcs {
		t.Run(http.StatusText(tc.status), func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tc.status)
			}))
			defer srv.Close()

			c := NewClient(ClientOptions{Config: config.DownstreamConfig{AgencySyncURL: srv.URL}})
			err := c.Notify(context.Background(), model.RetryKindAgencySync, []byte(`{}`))
			if !tc.wantErr {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Equal(t, tc.permanent, model.IsPermanent(err))
		})
	}
}

func TestNotifyMissingEndpointIsPermanent(t *testing.T) {
	c := NewClient(ClientOptions{})
	err := c.Notify(context.Background(), model.RetryKindUninstallCleanup, []byte(`{}`))
	require.ErrorIs(t, err, ErrNoEndpoint)
	assert.True(t, model.IsPermanent(err))
}

func TestNotifyUsesClientCredentials(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "client_credentials", r.Form.Get("grant_type"))
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token": "tok-123",
			"token_type":   "Bearer",
			"expires_in":   3600,
		})
	})
	mux.HandleFunc("/setup", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok-123", r.Header.Get("Authorization"))
		w.WriteHeader(http.StatusAccepted)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := NewClient(ClientOptions{Config: config.DownstreamConfig{
		SetupURL: srv.URL + "/setup",
		Timeout:  time.Second,
		OAuth: config.DownstreamOAuthConfig{
			TokenURL:     srv.URL + "/token",
			ClientID:     "hookline",
			ClientSecret: "secret",
		},
	}})
	require.NoError(t, c.Notify(context.Background(), model.RetryKindInstallSetup, []byte(`{}`)))
}
