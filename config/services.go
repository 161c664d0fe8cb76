package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ServiceMode represents the available service modes.
type ServiceMode string

const (
	// ServiceModeHTTP runs the webhook ingress and cron HTTP server.
	ServiceModeHTTP ServiceMode = "http"
	// ServiceModeQueueWorker runs the durable queue consumer.
	ServiceModeQueueWorker ServiceMode = "queue-worker"
	// ServiceModeRetryScheduler runs the retry sweep on an interval.
	ServiceModeRetryScheduler ServiceMode = "retry-scheduler"
	// ServiceModeReaper runs the TTL cleanup loop.
	ServiceModeReaper ServiceMode = "reaper"
)

// ValidServiceModes returns all valid service mode names.
func ValidServiceModes() []ServiceMode {
	return []ServiceMode{
		ServiceModeHTTP,
		ServiceModeQueueWorker,
		ServiceModeRetryScheduler,
		ServiceModeReaper,
	}
}

// ParseServices parses a comma-delimited string of service names and returns the enabled services.
func ParseServices(servicesStr string) (map[ServiceMode]bool, error) {
	services := make(map[ServiceMode]bool)

	if servicesStr == "" {
		return services, errors.New("at least one service must be specified")
	}

	for _, part := range strings.Split(servicesStr, ",") {
		serviceName := strings.TrimSpace(part)
		if serviceName == "" {
			continue
		}

		mode := ServiceMode(serviceName)
		switch mode {
		case ServiceModeHTTP,
			ServiceModeQueueWorker,
			ServiceModeRetryScheduler,
			ServiceModeReaper:
			services[mode] = true
		default:
			return nil, fmt.Errorf(
				"invalid service name: %q (valid options: http, queue-worker, retry-scheduler, reaper)",
				serviceName,
			)
		}
	}

	if len(services) == 0 {
		return nil, errors.New("at least one valid service must be specified")
	}

	return services, nil
}

// ReaperConfig contains cleanup loop configuration.
type ReaperConfig struct {
	// Interval is the reaper tick interval.
	Interval time.Duration `env:"INTERVAL" envDefault:"5m"`

	// MetricsMaxAge is how long webhook_metrics rows are kept for health scoring.
	MetricsMaxAge time.Duration `env:"METRICS_MAX_AGE" envDefault:"720h"` // 30 days

	// TriggersMaxAge bounds automation_triggers rows that outlived their expiry hint.
	TriggersMaxAge time.Duration `env:"TRIGGERS_MAX_AGE" envDefault:"720h"`

	// BatchSize is the maximum number of rows deleted per statement.
	BatchSize int `env:"BATCH_SIZE" envDefault:"1000"`
}

// Sanitize applies guardrails to reaper configuration values.
func (r *ReaperConfig) Sanitize() {
	if r.Interval < 1*time.Minute {
		r.Interval = 1 * time.Minute
	}
	if r.MetricsMaxAge < 24*time.Hour {
		r.MetricsMaxAge = 24 * time.Hour
	}
	if r.TriggersMaxAge < 24*time.Hour {
		r.TriggersMaxAge = 24 * time.Hour
	}

	if r.BatchSize < 1 {
		r.BatchSize = 1
	}
	if r.BatchSize > 10000 {
		r.BatchSize = 10000
	}
}
