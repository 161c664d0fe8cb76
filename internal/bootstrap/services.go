package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/target/hookline/config"
	"github.com/target/hookline/internal/adapters/downstream"
	"github.com/target/hookline/internal/adapters/memory"
	"github.com/target/hookline/internal/adapters/queueworker"
	"github.com/target/hookline/internal/adapters/reaper"
	redisadapter "github.com/target/hookline/internal/adapters/redis"
	"github.com/target/hookline/internal/adapters/retryrunner"
	"github.com/target/hookline/internal/core"
	"github.com/target/hookline/internal/data"
	"github.com/target/hookline/internal/domain/lease"
	httpx "github.com/target/hookline/internal/http"
	"github.com/target/hookline/internal/observability/notify/pagerduty"
	"github.com/target/hookline/internal/observability/notify/slack"
	"github.com/target/hookline/internal/observability/statsd"
	"github.com/target/hookline/internal/service"
	"github.com/target/hookline/internal/service/deadletter"
)

// ServiceContainer holds all application services.
type ServiceContainer struct {
	Ingest    *service.IngestService
	Queue     *service.QueueService
	Leases    *service.LeaseService
	Publisher *service.Publisher
	Triggers  *service.TriggerService
	Health    *service.HealthService

	QueueRunner *queueworker.Runner
	RetryRunner *retryrunner.Runner
	Reaper      *reaper.Runner

	CronAuth      httpx.CronAuthOptions
	Bus           core.MessageBus
	Observability ObservabilityContainer
}

// ObservabilityContainer groups shared observability dependencies.
type ObservabilityContainer struct {
	MetricsSink    statsd.Sink
	MetricsConfig  config.ObservabilityMetricsConfig
	DeadLetters    *deadletter.Service
	NotifierConfig config.ObservabilityNotificationsConfig
}

// ServiceDeps groups dependencies for service initialization.
type ServiceDeps struct {
	Config      *config.AppConfig
	DB          *sql.DB
	RedisClient redis.UniversalClient
	Logger      *slog.Logger
}

// serviceRepositories groups data adapters backing service ports.
type serviceRepositories struct {
	DB            *sql.DB
	Queue         *data.QueueItemRepo
	Conversations *data.ConversationRepo
	Installations *data.InstallationRepo
	Retries       *data.RetryItemRepo
	Triggers      *data.TriggerRepo
	Metrics       *data.WebhookMetricRepo
	Entities      *data.EntityRepo
}

// buildObservability configures metrics and notification adapters.
func buildObservability(logger *slog.Logger, cfg config.ObservabilityConfig) ObservabilityContainer {
	obsLogger := logger
	if obsLogger == nil {
		obsLogger = slog.Default()
	}

	var metricsSink statsd.Sink
	if cfg.Metrics.IsEnabled() {
		client, err := statsd.NewClient(statsd.Config{
			Enabled:    true,
			Address:    cfg.Metrics.StatsdAddress,
			Prefix:     cfg.Metrics.Prefix,
			Logger:     obsLogger,
			GlobalTags: cfg.Metrics.Tags,
		})
		if err != nil {
			obsLogger.Error("failed to initialise statsd client", "error", err)
		} else {
			metricsSink = client
		}
	}

	return ObservabilityContainer{
		MetricsSink:    metricsSink,
		MetricsConfig:  cfg.Metrics,
		DeadLetters:    buildDeadLetterNotifier(obsLogger, cfg.Notifications),
		NotifierConfig: cfg.Notifications,
	}
}

// buildRepositories builds repositories backing service ports; no business rules here.
func buildRepositories(db *sql.DB, cfg *config.AppConfig, logger *slog.Logger) *serviceRepositories {
	repoCfg := data.RepoConfig{
		Logger:       logger,
		QueueItemTTL: cfg.Queue.ItemTTL,
		TriggerTTL:   cfg.Trigger.TTL,
	}
	return &serviceRepositories{
		DB:            db,
		Queue:         data.NewQueueItemRepo(db, repoCfg),
		Conversations: data.NewConversationRepo(db, repoCfg),
		Installations: data.NewInstallationRepo(db, repoCfg),
		Retries:       data.NewRetryItemRepo(db, repoCfg),
		Triggers:      data.NewTriggerRepo(db, repoCfg),
		Metrics:       data.NewWebhookMetricRepo(db, repoCfg),
		Entities:      data.NewEntityRepo(db),
	}
}

// buildLeaseStore selects the lease backend. Redis falls back to Postgres
// when no client is available.
//
//nolint:ireturn // the backend is chosen at runtime.
func buildLeaseStore(cfg config.LeaseConfig, db *sql.DB, rdb redis.UniversalClient, logger *slog.Logger) core.LeaseStore {
	switch cfg.Backend {
	case config.LeaseBackendMemory:
		logger.Warn("using in-memory leases; mutual exclusion holds within this process only")
		return memory.NewLeaseStore(nil)
	case config.LeaseBackendRedis:
		if rdb != nil {
			return redisadapter.NewLeaseStore(rdb, cfg.KeyPrefix)
		}
		logger.Warn("redis lease backend requested without a redis client; using postgres")
	}
	return data.NewLeaseRepo(db, data.RepoConfig{Logger: logger})
}

// NewLeaseService builds the lease service over the configured backend.
func NewLeaseService(
	cfg config.LeaseConfig,
	db *sql.DB,
	rdb redis.UniversalClient,
	logger *slog.Logger,
	metrics statsd.Sink,
) (*service.LeaseService, error) {
	policy, err := lease.NewPolicy(cfg.Duration)
	if err != nil {
		return nil, fmt.Errorf("lease policy: %w", err)
	}
	return service.NewLeaseService(service.LeaseServiceOptions{
		Store:   buildLeaseStore(cfg, db, rdb, logger),
		Policy:  policy,
		Logger:  logger,
		Metrics: metrics,
	})
}

// buildBus selects the publish backend. Redis falls back to the in-process
// bus when no client is available.
//
//nolint:ireturn // the backend is chosen at runtime.
func buildBus(cfg config.PubSubConfig, rdb redis.UniversalClient, logger *slog.Logger) (core.MessageBus, error) {
	if cfg.Backend == config.PubSubBackendRedis && rdb != nil {
		bus, err := redisadapter.NewBus(rdb, redisadapter.BusOptions{Prefix: cfg.ChannelPrefix, Logger: logger})
		if err != nil {
			return nil, fmt.Errorf("create redis bus: %w", err)
		}
		return bus, nil
	}
	if cfg.Backend == config.PubSubBackendRedis {
		logger.Warn("redis pub/sub requested without a redis client; fan-out stays in process")
	}
	return memory.NewBus(0), nil
}

// NewServices wires every service from the shared infrastructure.
func NewServices(ctx context.Context, deps *ServiceDeps) (ServiceContainer, error) {
	if deps == nil || deps.Config == nil {
		return ServiceContainer{}, errors.New("service deps with config are required")
	}
	if deps.DB == nil {
		return ServiceContainer{}, errors.New("database connection is required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	cfg := deps.Config

	obs := buildObservability(logger, cfg.Observability)
	repos := buildRepositories(deps.DB, cfg, logger)

	svcs, err := buildCoreServices(coreServiceDeps{
		cfg:    cfg,
		repos:  repos,
		redis:  deps.RedisClient,
		obs:    obs,
		logger: logger,
	})
	if err != nil {
		return ServiceContainer{}, err
	}

	cronAuth, err := buildCronAuth(ctx, cfg.Cron, logger)
	if err != nil {
		return ServiceContainer{}, err
	}
	svcs.CronAuth = cronAuth

	if err := buildRunners(&svcs, cfg, repos, logger); err != nil {
		return ServiceContainer{}, err
	}
	return svcs, nil
}

type coreServiceDeps struct {
	cfg    *config.AppConfig
	repos  *serviceRepositories
	redis  redis.UniversalClient
	obs    ObservabilityContainer
	logger *slog.Logger
}

func buildCoreServices(d coreServiceDeps) (ServiceContainer, error) {
	cfg := d.cfg
	metrics := d.obs.MetricsSink

	bus, err := buildBus(cfg.PubSub, d.redis, d.logger)
	if err != nil {
		return ServiceContainer{}, err
	}
	publisher := service.NewPublisher(service.PublisherOptions{
		Bus:     bus,
		Timeout: cfg.PubSub.PublishTimeout,
		Logger:  d.logger,
		Metrics: metrics,
	})

	leases, err := NewLeaseService(cfg.Lease, d.repos.DB, d.redis, d.logger, metrics)
	if err != nil {
		return ServiceContainer{}, err
	}

	queue, err := service.NewQueueService(service.QueueServiceOptions{
		Repo:        d.repos.Queue,
		Config:      cfg.Queue,
		DeadLetters: d.obs.DeadLetters,
		Logger:      d.logger,
		Metrics:     metrics,
	})
	if err != nil {
		return ServiceContainer{}, err
	}

	verifier, err := service.NewVerifier(service.VerifierOptions{
		Secret:    cfg.Webhook.SigningSecret,
		PublicKey: cfg.Webhook.PublicKey,
		Logger:    d.logger,
	})
	if err != nil {
		return ServiceContainer{}, fmt.Errorf("webhook verifier: %w", err)
	}

	direct, err := service.NewDirectProcessor(service.DirectProcessorOptions{
		Conversations: d.repos.Conversations,
		Queue:         queue,
		Metrics:       d.repos.Metrics,
		Publisher:     publisher,
		Timeout:       cfg.Webhook.FastPathTimeout,
		Logger:        d.logger,
		Stats:         metrics,
	})
	if err != nil {
		return ServiceContainer{}, err
	}

	triggers, err := service.NewTriggerService(service.TriggerServiceOptions{
		Repo:      d.repos.Triggers,
		Stages:    d.repos.Triggers,
		Entities:  d.repos.Entities,
		Publisher: publisher,
		Config:    cfg.Trigger,
		Logger:    d.logger,
	})
	if err != nil {
		return ServiceContainer{}, err
	}

	ingest, err := service.NewIngestService(service.IngestServiceOptions{
		Verifier: verifier,
		Queue:    queue,
		Dedup: service.NewDeduplicator(service.DeduplicatorOptions{
			Conversations: d.repos.Conversations,
			Queue:         d.repos.Queue,
			Logger:        d.logger,
		}),
		Leases:   leases,
		Direct:   direct,
		Triggers: triggers,
		Config:   cfg.Webhook,
		Logger:   d.logger,
		Metrics:  metrics,
	})
	if err != nil {
		return ServiceContainer{}, err
	}

	health, err := service.NewHealthService(service.HealthServiceOptions{
		Metrics: d.repos.Metrics,
		Queue:   queue,
		Logger:  d.logger,
	})
	if err != nil {
		return ServiceContainer{}, err
	}

	return ServiceContainer{
		Ingest:        ingest,
		Queue:         queue,
		Leases:        leases,
		Publisher:     publisher,
		Triggers:      triggers,
		Health:        health,
		Bus:           bus,
		Observability: d.obs,
	}, nil
}

// buildRunners wires the queue worker, retry scheduler and reaper. They back
// both the background services and the cron endpoints.
func buildRunners(c *ServiceContainer, cfg *config.AppConfig, repos *serviceRepositories, logger *slog.Logger) error {
	metrics := c.Observability.MetricsSink
	deadLetters := c.Observability.DeadLetters

	queueRunner, err := queueworker.NewRunner(queueworker.RunnerOptions{
		DB:               repos.DB,
		Config:           cfg.Queue,
		Logger:           logger,
		RetryMaxAttempts: cfg.Retry.MaxAttempts,
		Leases:           c.Leases,
		Publisher:        c.Publisher,
		DeadLetters:      deadLetters,
		Metrics:          metrics,
		Queue:            repos.Queue,
		Conversations:    repos.Conversations,
		Installations:    repos.Installations,
		Retries:          repos.Retries,
		WebhookMetrics:   repos.Metrics,
	})
	if err != nil {
		return fmt.Errorf("create queue worker runner: %w", err)
	}

	retryRunner, err := retryrunner.NewRunner(retryrunner.RunnerOptions{
		DB:     repos.DB,
		Config: cfg.Retry,
		Logger: logger,
		Downstream: downstream.NewClient(downstream.ClientOptions{
			Config: cfg.Downstream,
			Logger: logger,
		}),
		Leases:        c.Leases,
		DeadLetters:   deadLetters,
		Metrics:       metrics,
		Repo:          repos.Retries,
		Installations: repos.Installations,
	})
	if err != nil {
		return fmt.Errorf("create retry runner: %w", err)
	}

	reaperRunner, err := reaper.NewRunner(reaper.RunnerOptions{
		DB:                repos.DB,
		Config:            cfg.Reaper,
		Logger:            logger,
		VisibilityTimeout: cfg.Queue.VisibilityTimeout,
		Metrics:           metrics,
	})
	if err != nil {
		return fmt.Errorf("create reaper runner: %w", err)
	}

	c.QueueRunner = queueRunner
	c.RetryRunner = retryRunner
	c.Reaper = reaperRunner
	return nil
}

func buildDeadLetterNotifier(logger *slog.Logger, cfg config.ObservabilityNotificationsConfig) *deadletter.Service {
	baseLogger := logger
	if baseLogger == nil {
		baseLogger = slog.Default()
	}

	if !cfg.Enabled {
		return deadletter.NewService(deadletter.Options{
			Logger: baseLogger.With("component", "dead_letter_notifier"),
		})
	}

	sinks := make([]deadletter.SinkRegistration, 0, 2)

	if cfg.Slack.Enabled {
		client, err := slack.NewClient(slack.Config{
			WebhookURL:      cfg.Slack.WebhookURL,
			Channel:         cfg.Slack.Channel,
			Username:        cfg.Slack.Username,
			Timeout:         cfg.Timeout,
			RetryLimit:      cfg.RetryLimit,
			TenantURLPrefix: cfg.Slack.TenantURLPrefix,
		})
		if err != nil {
			baseLogger.Error("failed to initialise slack notifier", "error", err)
		} else {
			sinks = append(sinks, deadletter.SinkRegistration{Name: "slack", Sink: client})
		}
	}

	if cfg.PagerDuty.Enabled {
		client, err := pagerduty.NewClient(pagerduty.Config{
			RoutingKey: cfg.PagerDuty.RoutingKey,
			Source:     cfg.PagerDuty.Source,
			Component:  cfg.PagerDuty.Component,
			Timeout:    cfg.Timeout,
			RetryLimit: cfg.RetryLimit,
		})
		if err != nil {
			baseLogger.Error("failed to initialise pagerduty notifier", "error", err)
		} else {
			sinks = append(sinks, deadletter.SinkRegistration{Name: "pagerduty", Sink: client})
		}
	}

	return deadletter.NewService(deadletter.Options{
		Logger:  baseLogger.With("component", "dead_letter_notifier"),
		Sinks:   sinks,
		Timeout: cfg.Timeout * time.Duration(max(cfg.RetryLimit, 1)+1),
	})
}

// ServiceOrchestrationConfig contains configuration for service orchestration.
type ServiceOrchestrationConfig struct {
	Config   *config.AppConfig
	Services ServiceContainer
	Logger   *slog.Logger
}

const (
	// shutdownWaitTimeout is the maximum time to wait for services to stop gracefully.
	shutdownWaitTimeout = 15 * time.Second
)

// serviceStartupDeps groups dependencies for service startup.
type serviceStartupDeps struct {
	ctx             context.Context
	cfg             *ServiceOrchestrationConfig
	logger          *slog.Logger
	enabledServices map[config.ServiceMode]bool
	errCh           chan error
}

// backgroundService describes a startable background component.
type backgroundService struct {
	mode  config.ServiceMode
	name  string
	start func(context.Context) error
}

// backgroundServiceHandle tracks a running background service.
type backgroundServiceHandle struct {
	mode config.ServiceMode
	name string
	done <-chan struct{}
}

func launchBackground(ctx context.Context, deps *serviceStartupDeps, descriptor backgroundService) <-chan struct{} {
	if deps == nil || !deps.enabledServices[descriptor.mode] || descriptor.start == nil {
		return nil
	}
	logger := deps.logger
	if logger == nil {
		logger = slog.Default()
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := descriptor.start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			errMsg := fmt.Errorf("%s failed: %w", descriptor.name, err)
			select {
			case deps.errCh <- errMsg:
			case <-ctx.Done():
			default:
				logger.WarnContext(ctx, "dropping background service error", "service", descriptor.name, "error", errMsg)
			}
		}
	}()

	logger.InfoContext(ctx, "background service started", "service", descriptor.name, "mode", descriptor.mode)
	return done
}

func startBackgroundServices(deps *serviceStartupDeps, services []backgroundService) []backgroundServiceHandle {
	if deps == nil {
		return nil
	}
	handles := make([]backgroundServiceHandle, 0, len(services))

	for _, svc := range services {
		done := launchBackground(deps.ctx, deps, svc)
		if done == nil {
			continue
		}
		handles = append(handles, backgroundServiceHandle{mode: svc.mode, name: svc.name, done: done})
	}
	return handles
}

// buildBackgroundServices maps each runner in the container onto its service mode.
func buildBackgroundServices(svcs ServiceContainer) []backgroundService {
	var out []backgroundService
	if svcs.QueueRunner != nil {
		out = append(out, backgroundService{
			mode:  config.ServiceModeQueueWorker,
			name:  "queue worker",
			start: svcs.QueueRunner.Run,
		})
	}
	if svcs.RetryRunner != nil {
		out = append(out, backgroundService{
			mode:  config.ServiceModeRetryScheduler,
			name:  "retry scheduler",
			start: svcs.RetryRunner.Run,
		})
	}
	if svcs.Reaper != nil {
		out = append(out, backgroundService{
			mode:  config.ServiceModeReaper,
			name:  "reaper",
			start: svcs.Reaper.Run,
		})
	}
	return out
}

// ServiceStartupResult holds the results of starting all services.
type ServiceStartupResult struct {
	HTTPServer *http.Server
	Background []backgroundServiceHandle
}

// startServices starts all enabled services and returns their completion channels.
func startServices(deps *serviceStartupDeps) (ServiceStartupResult, error) {
	var result ServiceStartupResult
	if deps.enabledServices[config.ServiceModeHTTP] {
		server, err := StartHTTPServer(&HTTPServerConfig{
			Config:   deps.cfg.Config,
			Services: deps.cfg.Services,
			Logger:   deps.logger,
			ErrCh:    deps.errCh,
		})
		if err != nil {
			return result, err
		}
		result.HTTPServer = server
	}
	result.Background = startBackgroundServices(deps, buildBackgroundServices(deps.cfg.Services))
	return result, nil
}

// RunServicesWithShutdown starts all enabled services and manages their lifecycle.
// This function blocks until a shutdown signal is received or a service fails.
func RunServicesWithShutdown(cfg *ServiceOrchestrationConfig) error {
	if cfg == nil {
		return errors.New("service orchestration config is required")
	}
	if cfg.Config == nil {
		return errors.New("service orchestration config missing AppConfig")
	}
	serviceCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	enabledServices, err := cfg.Config.GetEnabledServices()
	if err != nil {
		return fmt.Errorf("determine enabled services: %w", err)
	}
	errCh := make(chan error, errorChannelBufferSize(enabledServices))

	result, err := startServices(&serviceStartupDeps{
		ctx:             serviceCtx,
		cfg:             cfg,
		logger:          logger,
		enabledServices: enabledServices,
		errCh:           errCh,
	})
	if err != nil {
		return err
	}

	return waitForShutdown(shutdownConfig{
		ctx:         serviceCtx,
		cancel:      cancel,
		errCh:       errCh,
		httpServer:  result.HTTPServer,
		httpTimeout: cfg.Config.HTTP.ShutdownTimeout,
		logger:      logger,
		backgrounds: result.Background,
	})
}

func errorChannelCapacity(enabled map[config.ServiceMode]bool) int {
	count := 0
	for _, mode := range config.ValidServiceModes() {
		if enabled[mode] {
			count++
		}
	}
	return count
}

func errorChannelBufferSize(enabled map[config.ServiceMode]bool) int {
	return errorChannelCapacity(enabled) + 1
}

// shutdownConfig contains dependencies for graceful shutdown.
type shutdownConfig struct {
	ctx         context.Context
	cancel      context.CancelFunc
	errCh       <-chan error
	httpServer  *http.Server
	httpTimeout time.Duration
	logger      *slog.Logger
	backgrounds []backgroundServiceHandle
}

// waitForShutdown waits for shutdown signal or service error.
func waitForShutdown(cfg shutdownConfig) error {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case <-quit:
		cfg.logger.Info("shutting down services...")
		cfg.cancel() // Cancel service context before waiting
		return gracefulStop(cfg)
	case err := <-cfg.errCh:
		cfg.logger.Error("service error", "error", err)
		cfg.cancel() // Cancel service context before waiting
		if stopErr := gracefulStop(cfg); stopErr != nil {
			cfg.logger.Error("graceful stop failed", "error", stopErr)
		}
		return err
	}
}

// gracefulStop attempts to gracefully stop all services. The HTTP server
// drains on a fresh context because the service context is already cancelled.
func gracefulStop(cfg shutdownConfig) error {
	if cfg.httpServer != nil {
		timeout := cfg.httpTimeout
		if timeout <= 0 || timeout > shutdownWaitTimeout {
			timeout = shutdownWaitTimeout
		}
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(cfg.ctx), timeout)
		defer cancel()

		if err := ShutdownHTTPServer(ShutdownConfig{
			Context: shutdownCtx,
			Server:  cfg.httpServer,
			Logger:  cfg.logger,
		}); err != nil {
			return err
		}
	}

	for _, svc := range cfg.backgrounds {
		waitForService(svc.done, svc.name, cfg.logger)
	}
	return nil
}

// waitForService waits for a service to finish with timeout.
func waitForService(done <-chan struct{}, name string, logger *slog.Logger) {
	if done == nil {
		return
	}
	select {
	case <-done:
		logger.Info(name + " stopped")
	case <-time.After(shutdownWaitTimeout):
		logger.Warn("timeout waiting for " + name + " to stop")
	}
}
