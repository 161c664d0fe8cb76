package config

import (
	"os"
	"strings"
)

// AppConfig is the root configuration for hookline. It is composed from the
// per-domain structs in this package and loaded from environment variables
// with github.com/caarlos0/env:
//   - database.go: Postgres and Redis
//   - http.go: HTTP server
//   - webhook.go: ingestion, leases, triggers, pub/sub, cron and downstream
//   - services.go: service modes and background worker loops
//   - observability.go: metrics and dead-letter notifications
type AppConfig struct {
	// IsDev enables development defaults (in-memory fallbacks, verbose logging).
	// Set DEV=true or NODE_ENV=development.
	IsDev bool `env:"DEV" envDefault:"false"`

	Postgres DBConfig    `envPrefix:"DB_"`
	Redis    RedisConfig `envPrefix:"REDIS_"`

	HTTP HTTPConfig `envPrefix:"HTTP_"`

	// Services is a comma-delimited list of enabled services.
	Services string `env:"SERVICES" envDefault:"http"`

	Webhook    WebhookConfig    `envPrefix:"WEBHOOK_"`
	Queue      QueueConfig      `envPrefix:"QUEUE_"`
	Lease      LeaseConfig      `envPrefix:"LEASE_"`
	Retry      RetryConfig      `envPrefix:"RETRY_"`
	Trigger    TriggerConfig    `envPrefix:"TRIGGER_"`
	PubSub     PubSubConfig     `envPrefix:"PUBSUB_"`
	Cron       CronConfig       `envPrefix:"CRON_"`
	Downstream DownstreamConfig `envPrefix:"DOWNSTREAM_"`

	Reaper ReaperConfig `envPrefix:"REAPER_"`

	Observability ObservabilityConfig
}

// Sanitize applies guardrails to configuration values loaded from env.
func (c *AppConfig) Sanitize() {
	c.HTTP.Sanitize()
	c.Webhook.Sanitize()
	c.Queue.Sanitize()
	c.Lease.Sanitize()
	c.Retry.Sanitize()
	c.Trigger.Sanitize()
	c.PubSub.Sanitize()
	c.Cron.Sanitize()
	c.Downstream.Sanitize()
	c.Reaper.Sanitize()
	c.Observability.Sanitize()

	c.detectDevMode()
}

// detectDevMode falls back to NODE_ENV when DEV is unset.
func (c *AppConfig) detectDevMode() {
	if !c.IsDev {
		nodeEnv := strings.ToLower(os.Getenv("NODE_ENV"))
		c.IsDev = nodeEnv == "development" || nodeEnv == "dev"
	}
}

// GetEnabledServices returns the enabled services based on the Services field.
func (c *AppConfig) GetEnabledServices() (map[ServiceMode]bool, error) {
	return ParseServices(c.Services)
}

func (c *AppConfig) serviceEnabled(mode ServiceMode) bool {
	services, err := c.GetEnabledServices()
	if err != nil {
		return false
	}
	return services[mode]
}

// IsHTTPServerEnabled returns true if the HTTP server service is enabled.
func (c *AppConfig) IsHTTPServerEnabled() bool { return c.serviceEnabled(ServiceModeHTTP) }

// IsQueueWorkerEnabled returns true if the durable queue worker is enabled.
func (c *AppConfig) IsQueueWorkerEnabled() bool { return c.serviceEnabled(ServiceModeQueueWorker) }

// IsRetrySchedulerEnabled returns true if the retry scheduler loop is enabled.
func (c *AppConfig) IsRetrySchedulerEnabled() bool {
	return c.serviceEnabled(ServiceModeRetryScheduler)
}

// IsReaperEnabled returns true if the reaper service is enabled.
func (c *AppConfig) IsReaperEnabled() bool { return c.serviceEnabled(ServiceModeReaper) }
