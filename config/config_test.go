package config

import (
	"testing"
	"time"

	env "github.com/caarlos0/env/v11"
)

func TestParseServices(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		expected    map[ServiceMode]bool
		expectError bool
	}{
		{
			name:     "single service - http",
			input:    "http",
			expected: map[ServiceMode]bool{ServiceModeHTTP: true},
		},
		{
			name:     "single service - queue-worker",
			input:    "queue-worker",
			expected: map[ServiceMode]bool{ServiceModeQueueWorker: true},
		},
		{
			name:  "all services with spaces",
			input: " http , queue-worker , retry-scheduler , reaper ",
			expected: map[ServiceMode]bool{
				ServiceModeHTTP:           true,
				ServiceModeQueueWorker:    true,
				ServiceModeRetryScheduler: true,
				ServiceModeReaper:         true,
			},
		},
		{
			name:  "duplicate services",
			input: "http,http,reaper",
			expected: map[ServiceMode]bool{
				ServiceModeHTTP:   true,
				ServiceModeReaper: true,
			},
		},
		{
			name:        "empty string",
			input:       "",
			expectError: true,
		},
		{
			name:        "only spaces and commas",
			input:       " , , ",
			expectError: true,
		},
		{
			name:        "invalid service name",
			input:       "http,rules-engine",
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := ParseServices(tt.input)

			if tt.expectError {
				if err == nil {
					t.Errorf("expected error but got none")
				}
				return
			}

			if err != nil {
				t.Errorf("unexpected error: %v", err)
				return
			}

			if len(result) != len(tt.expected) {
				t.Errorf("expected %d services, got %d", len(tt.expected), len(result))
				return
			}

			for service, expected := range tt.expected {
				if result[service] != expected {
					t.Errorf("expected service %s to be %v, got %v", service, expected, result[service])
				}
			}
		})
	}
}

func TestConfig_ServiceEnabledMethods(t *testing.T) {
	tests := []struct {
		name      string
		services  string
		http      bool
		worker    bool
		scheduler bool
		reaper    bool
	}{
		{name: "default - http only", services: "http", http: true},
		{name: "workers only", services: "queue-worker,retry-scheduler", worker: true, scheduler: true},
		{name: "everything", services: "http,queue-worker,retry-scheduler,reaper", http: true, worker: true, scheduler: true, reaper: true},
		{name: "invalid disables all", services: "nope"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := AppConfig{Services: tt.services}

			if got := cfg.IsHTTPServerEnabled(); got != tt.http {
				t.Errorf("IsHTTPServerEnabled(): expected %v, got %v", tt.http, got)
			}
			if got := cfg.IsQueueWorkerEnabled(); got != tt.worker {
				t.Errorf("IsQueueWorkerEnabled(): expected %v, got %v", tt.worker, got)
			}
			if got := cfg.IsRetrySchedulerEnabled(); got != tt.scheduler {
				t.Errorf("IsRetrySchedulerEnabled(): expected %v, got %v", tt.scheduler, got)
			}
			if got := cfg.IsReaperEnabled(); got != tt.reaper {
				t.Errorf("IsReaperEnabled(): expected %v, got %v", tt.reaper, got)
			}
		})
	}
}

func TestAppConfig_ParseWebhookEnv(t *testing.T) {
	t.Setenv("WEBHOOK_SIGNING_SECRET", " s3cret ")
	t.Setenv("WEBHOOK_REPLAY_WINDOW", "2m")
	t.Setenv("QUEUE_WORKER_QUEUES", "critical, messages,,")
	t.Setenv("LEASE_BACKEND", "REDIS")
	t.Setenv("TRIGGER_SCHEDULING_WINDOW", "90s")
	t.Setenv("CRON_SECRET", "cron")
	t.Setenv("DOWNSTREAM_OAUTH_SCOPES", "sync,setup")
	t.Setenv("REAPER_INTERVAL", "10m")

	var cfg AppConfig
	if err := env.Parse(&cfg); err != nil {
		t.Fatalf("parse config: %v", err)
	}
	cfg.Sanitize()

	if cfg.Webhook.SigningSecret != "s3cret" {
		t.Fatalf("expected trimmed signing secret, got %q", cfg.Webhook.SigningSecret)
	}
	if cfg.Webhook.ReplayWindow != 2*time.Minute {
		t.Fatalf("expected replay window 2m, got %v", cfg.Webhook.ReplayWindow)
	}
	if cfg.Webhook.SignatureHeader != "X-Webhook-Signature" {
		t.Fatalf("unexpected signature header %q", cfg.Webhook.SignatureHeader)
	}
	if len(cfg.Queue.WorkerQueues) != 2 || cfg.Queue.WorkerQueues[1] != "messages" {
		t.Fatalf("unexpected worker queues %v", cfg.Queue.WorkerQueues)
	}
	if cfg.Queue.DefaultMaxAttempts != 3 {
		t.Fatalf("expected default max attempts 3, got %d", cfg.Queue.DefaultMaxAttempts)
	}
	if cfg.Lease.Backend != LeaseBackendRedis {
		t.Fatalf("expected redis lease backend, got %q", cfg.Lease.Backend)
	}
	if cfg.Lease.Duration != 5*time.Minute {
		t.Fatalf("expected 5m lease duration, got %v", cfg.Lease.Duration)
	}
	if cfg.Trigger.SchedulingWindow != 90*time.Second {
		t.Fatalf("expected 90s scheduling window, got %v", cfg.Trigger.SchedulingWindow)
	}
	if cfg.Retry.BaseDelay != 60*time.Second {
		t.Fatalf("expected 60s retry base delay, got %v", cfg.Retry.BaseDelay)
	}
	if cfg.Retry.CompletedMaxAge != 168*time.Hour {
		t.Fatalf("expected 7d purge age, got %v", cfg.Retry.CompletedMaxAge)
	}
	if cfg.Cron.Secret != "cron" || cfg.Cron.MarkerHeader != "X-Cron-Secret" {
		t.Fatalf("unexpected cron config %+v", cfg.Cron)
	}
	if cfg.Cron.OIDCEnabled() {
		t.Fatal("expected OIDC cron auth to be disabled")
	}
	if len(cfg.Downstream.OAuth.Scopes) != 2 {
		t.Fatalf("unexpected scopes %v", cfg.Downstream.OAuth.Scopes)
	}
	if cfg.Reaper.Interval != 10*time.Minute {
		t.Fatalf("expected reaper interval 10m, got %v", cfg.Reaper.Interval)
	}
}

func TestLeaseConfig_SanitizeUnknownBackend(t *testing.T) {
	cfg := LeaseConfig{Backend: "etcd"}
	cfg.Sanitize()

	if cfg.Backend != LeaseBackendPostgres {
		t.Fatalf("expected fallback to postgres, got %q", cfg.Backend)
	}
	if cfg.Duration != 5*time.Minute {
		t.Fatalf("expected default duration, got %v", cfg.Duration)
	}
}

func TestReaperConfig_SanitizeBounds(t *testing.T) {
	cfg := ReaperConfig{Interval: time.Second, BatchSize: 50000}
	cfg.Sanitize()

	if cfg.Interval != time.Minute {
		t.Fatalf("expected interval clamp to 1m, got %v", cfg.Interval)
	}
	if cfg.BatchSize != 10000 {
		t.Fatalf("expected batch size clamp to 10000, got %d", cfg.BatchSize)
	}
}

func TestValidServiceModes(t *testing.T) {
	modes := ValidServiceModes()
	expected := []ServiceMode{
		ServiceModeHTTP,
		ServiceModeQueueWorker,
		ServiceModeRetryScheduler,
		ServiceModeReaper,
	}

	if len(modes) != len(expected) {
		t.Fatalf("expected %d service modes, got %d", len(expected), len(modes))
	}

	for i, mode := range modes {
		if mode != expected[i] {
			t.Errorf("expected service mode %s at index %d, got %s", expected[i], i, mode)
		}
	}
}

func TestObservabilityMetricsConfig_Sanitize(t *testing.T) {
	cfg := ObservabilityMetricsConfig{
		Enabled:       true,
		StatsdAddress: " ",
	}

	cfg.Sanitize()

	if cfg.Enabled {
		t.Fatalf("expected enabled to be false when address is empty")
	}

	cfg = ObservabilityMetricsConfig{
		Enabled:       true,
		StatsdAddress: " statsd:1234 ",
	}

	cfg.Sanitize()

	if !cfg.IsEnabled() {
		t.Fatalf("expected metrics to remain enabled")
	}
	if cfg.StatsdAddress != "statsd:1234" {
		t.Fatalf("expected address to be trimmed, got %q", cfg.StatsdAddress)
	}
}

func TestObservabilityMetricsConfig_ParseTags(t *testing.T) {
	var cfg ObservabilityMetricsConfig
	err := env.ParseWithOptions(&cfg, env.Options{Environment: map[string]string{
		"OBSERVABILITY_METRICS_TAGS": "env:prod,region:us-east",
	}})
	if err != nil {
		t.Fatalf("parse metrics config: %v", err)
	}
	if len(cfg.Tags) != 2 || cfg.Tags["env"] != "prod" || cfg.Tags["region"] != "us-east" {
		t.Fatalf("unexpected tags %v", cfg.Tags)
	}
	if cfg.Prefix != "hookline" {
		t.Fatalf("expected default prefix, got %q", cfg.Prefix)
	}
}

func TestObservabilityNotificationsConfig_Sanitize(t *testing.T) {
	cfg := ObservabilityNotificationsConfig{
		Enabled:    true,
		RetryLimit: -1,
		Slack: SlackNotificationConfig{
			Enabled:    true,
			WebhookURL: " ",
		},
		PagerDuty: PagerDutyNotificationConfig{
			Enabled:    true,
			RoutingKey: " ",
		},
	}

	cfg.Sanitize()

	if cfg.Timeout <= 0 {
		t.Fatalf("expected timeout to fall back to default, got %v", cfg.Timeout)
	}
	if cfg.RetryLimit < 0 {
		t.Fatalf("expected retry limit to be clamped to >= 0, got %d", cfg.RetryLimit)
	}
	if cfg.Slack.Enabled {
		t.Fatal("expected slack to be disabled without a webhook url")
	}
	if cfg.PagerDuty.Enabled {
		t.Fatal("expected pagerduty to be disabled without a routing key")
	}
	if cfg.PagerDuty.Source != "hookline" {
		t.Fatalf("expected pagerduty source default, got %q", cfg.PagerDuty.Source)
	}

	cfg = ObservabilityNotificationsConfig{
		Enabled: false,
		Slack: SlackNotificationConfig{
			Enabled:    true,
			WebhookURL: "https://hooks.slack.com/services/test",
		},
	}
	cfg.Sanitize()

	if cfg.Slack.Enabled {
		t.Fatal("expected slack to be disabled when top-level notifications disabled")
	}
}
