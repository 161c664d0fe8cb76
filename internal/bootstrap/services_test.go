package bootstrap

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/caarlos0/env/v11"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/target/hookline/config"
	"github.com/target/hookline/internal/adapters/memory"
	"github.com/target/hookline/internal/data"
)

func testConfig(t *testing.T, vars map[string]string) *config.AppConfig {
	t.Helper()
	var cfg config.AppConfig
	require.NoError(t, env.ParseWithOptions(&cfg, env.Options{Environment: vars}))
	cfg.Sanitize()
	return &cfg
}

func TestErrorChannelCapacity(t *testing.T) {
	tests := []struct {
		name  string
		modes []config.ServiceMode
		want  int
	}{
		{
			name: "no services enabled",
			want: 0,
		},
		{
			name:  "http only",
			modes: []config.ServiceMode{config.ServiceModeHTTP},
			want:  1,
		},
		{
			name:  "http and queue worker",
			modes: []config.ServiceMode{config.ServiceModeHTTP, config.ServiceModeQueueWorker},
			want:  2,
		},
		{
			name:  "retry scheduler and reaper",
			modes: []config.ServiceMode{config.ServiceModeRetryScheduler, config.ServiceModeReaper},
			want:  2,
		},
		{
			name:  "all services enabled",
			modes: config.ValidServiceModes(),
			want:  4,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			enabled := make(map[config.ServiceMode]bool, len(tt.modes))
			for _, mode := range tt.modes {
				enabled[mode] = true
			}

			if got := errorChannelCapacity(enabled); got != tt.want {
				t.Fatalf("errorChannelCapacity(%v) = %d, want %d", tt.modes, got, tt.want)
			}
		})
	}
}

func TestErrorChannelBufferSize(t *testing.T) {
	tests := []struct {
		name  string
		modes []config.ServiceMode
		want  int
	}{
		{
			name: "no services enabled",
			want: 1,
		},
		{
			name:  "http only",
			modes: []config.ServiceMode{config.ServiceModeHTTP},
			want:  2,
		},
		{
			name:  "all services enabled",
			modes: config.ValidServiceModes(),
			want:  5,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			enabled := make(map[config.ServiceMode]bool, len(tt.modes))
			for _, mode := range tt.modes {
				enabled[mode] = true
			}

			if got := errorChannelBufferSize(enabled); got != tt.want {
				t.Fatalf("errorChannelBufferSize(%v) = %d, want %d", tt.modes, got, tt.want)
			}
		})
	}
}

func TestValidateServiceConfig(t *testing.T) {
	tests := []struct {
		name    string
		vars    map[string]string
		wantErr string
	}{
		{
			name: "http with signing secret",
			vars: map[string]string{"SERVICES": "http", "WEBHOOK_SIGNING_SECRET": "s"},
		},
		{
			name:    "http without key material",
			vars:    map[string]string{"SERVICES": "http"},
			wantErr: "WEBHOOK_SIGNING_SECRET",
		},
		{
			name: "workers need no key material",
			vars: map[string]string{"SERVICES": "queue-worker,reaper"},
		},
		{
			name:    "unknown service",
			vars:    map[string]string{"SERVICES": "rules-engine"},
			wantErr: "invalid service",
		},
		{
			name: "redis leases with redis disabled",
			vars: map[string]string{
				"SERVICES":       "retry-scheduler",
				"LEASE_BACKEND":  "redis",
				"REDIS_DISABLED": "true",
			},
			wantErr: "LEASE_BACKEND=redis",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateServiceConfig(testConfig(t, tt.vars))
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}

	require.Error(t, ValidateServiceConfig(nil))
}

func TestGetEnabledServices_StableOrder(t *testing.T) {
	cfg := testConfig(t, map[string]string{"SERVICES": "reaper, http,queue-worker"})
	assert.Equal(t, []string{"http", "queue-worker", "reaper"}, GetEnabledServices(cfg))
	assert.Empty(t, GetEnabledServices(nil))
}

func TestBuildLeaseStore(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	logger := slog.Default()

	assert.IsType(t, &memory.LeaseStore{}, buildLeaseStore(config.LeaseConfig{Backend: config.LeaseBackendMemory}, db, nil, logger))
	assert.IsType(t, &data.LeaseRepo{}, buildLeaseStore(config.LeaseConfig{Backend: config.LeaseBackendPostgres}, db, nil, logger))
	assert.IsType(t, &data.LeaseRepo{}, buildLeaseStore(config.LeaseConfig{Backend: config.LeaseBackendRedis}, db, nil, logger),
		"redis without a client falls back to postgres")
}

func TestBuildBus(t *testing.T) {
	logger := slog.Default()

	bus, err := buildBus(config.PubSubConfig{Backend: config.PubSubBackendMemory}, nil, logger)
	require.NoError(t, err)
	assert.IsType(t, &memory.Bus{}, bus)

	bus, err = buildBus(config.PubSubConfig{Backend: config.PubSubBackendRedis}, nil, logger)
	require.NoError(t, err)
	assert.IsType(t, &memory.Bus{}, bus, "redis without a client stays in process")
}

func TestBuildCronAuth(t *testing.T) {
	ctx := context.Background()
	logger := slog.Default()

	t.Run("secret only", func(t *testing.T) {
		opts, err := buildCronAuth(ctx, config.CronConfig{Secret: "s", MarkerHeader: "X-Cron-Secret"}, logger)
		require.NoError(t, err)
		assert.Equal(t, "s", opts.Secret)
		assert.Equal(t, "X-Cron-Secret", opts.MarkerHeader)
		assert.Nil(t, opts.Verifier)
	})

	t.Run("oidc discovery", func(t *testing.T) {
		issuer := ""
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_ = json.NewEncoder(w).Encode(map[string]any{
				"issuer":                 issuer,
				"authorization_endpoint": issuer + "/auth",
				"token_endpoint":         issuer + "/token",
				"jwks_uri":               issuer + "/jwks",
			})
		}))
		t.Cleanup(srv.Close)
		issuer = srv.URL

		opts, err := buildCronAuth(ctx, config.CronConfig{OIDCIssuer: srv.URL, OIDCAudience: "hookline"}, logger)
		require.NoError(t, err)
		assert.NotNil(t, opts.Verifier)
	})

	t.Run("unreachable issuer fails", func(t *testing.T) {
		srv := httptest.NewServer(http.NotFoundHandler())
		t.Cleanup(srv.Close)

		_, err := buildCronAuth(ctx, config.CronConfig{OIDCIssuer: srv.URL, OIDCAudience: "hookline"}, logger)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "cron oidc verifier")
	})
}

func TestNewServices_WiresEverything(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	cfg := testConfig(t, map[string]string{
		"SERVICES":               "http,queue-worker,retry-scheduler,reaper",
		"WEBHOOK_SIGNING_SECRET": "secret",
		"LEASE_BACKEND":          "memory",
		"PUBSUB_BACKEND":         "memory",
		"CRON_SECRET":            "cron",
	})

	svcs, err := NewServices(context.Background(), &ServiceDeps{Config: cfg, DB: db})
	require.NoError(t, err)

	assert.NotNil(t, svcs.Ingest)
	assert.NotNil(t, svcs.Queue)
	assert.NotNil(t, svcs.Leases)
	assert.NotNil(t, svcs.Publisher)
	assert.NotNil(t, svcs.Triggers)
	assert.NotNil(t, svcs.Health)
	assert.NotNil(t, svcs.Observability.DeadLetters)
	assert.Nil(t, svcs.Observability.MetricsSink)
	assert.IsType(t, &memory.Bus{}, svcs.Bus)
	assert.Equal(t, "cron", svcs.CronAuth.Secret)

	background := buildBackgroundServices(svcs)
	require.Len(t, background, 3)
	assert.Equal(t, config.ServiceModeQueueWorker, background[0].mode)
	assert.Equal(t, config.ServiceModeRetryScheduler, background[1].mode)
	assert.Equal(t, config.ServiceModeReaper, background[2].mode)

	router := RouterServices(cfg, svcs, nil)
	assert.NotNil(t, router.Cron.Retry)
	assert.NotNil(t, router.Cron.Queue)
	assert.NotNil(t, router.Cron.Reap)

	require.NoError(t, mock.ExpectationsWereMet(), "construction must not touch the database")
}

func TestNewServices_RequiresDeps(t *testing.T) {
	_, err := NewServices(context.Background(), nil)
	require.Error(t, err)

	_, err = NewServices(context.Background(), &ServiceDeps{Config: &config.AppConfig{}})
	require.Error(t, err)
}

func TestLaunchBackground(t *testing.T) {
	ctx := context.Background()
	errCh := make(chan error, 2)
	deps := &serviceStartupDeps{
		ctx:             ctx,
		logger:          slog.Default(),
		enabledServices: map[config.ServiceMode]bool{config.ServiceModeReaper: true},
		errCh:           errCh,
	}

	t.Run("disabled mode is skipped", func(t *testing.T) {
		done := launchBackground(ctx, deps, backgroundService{
			mode:  config.ServiceModeQueueWorker,
			name:  "queue worker",
			start: func(context.Context) error { return nil },
		})
		assert.Nil(t, done)
	})

	t.Run("failure is reported", func(t *testing.T) {
		done := launchBackground(ctx, deps, backgroundService{
			mode:  config.ServiceModeReaper,
			name:  "reaper",
			start: func(context.Context) error { return errors.New("boom") },
		})
		require.NotNil(t, done)
		waitForService(done, "reaper", slog.Default())

		select {
		case err := <-errCh:
			assert.EqualError(t, err, "reaper failed: boom")
		case <-time.After(time.Second):
			t.Fatal("expected background error")
		}
	})

	t.Run("cancellation is not an error", func(t *testing.T) {
		done := launchBackground(ctx, deps, backgroundService{
			mode:  config.ServiceModeReaper,
			name:  "reaper",
			start: func(context.Context) error { return context.Canceled },
		})
		waitForService(done, "reaper", slog.Default())
		assert.Empty(t, errCh)
	})
}

func TestBuildDeadLetterNotifier_Disabled(t *testing.T) {
	svc := buildDeadLetterNotifier(nil, config.ObservabilityNotificationsConfig{})
	assert.NotNil(t, svc)
}
