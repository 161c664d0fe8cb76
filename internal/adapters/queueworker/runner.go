// Package queueworker provides adapters for running the durable queue consumer.
package queueworker

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/target/hookline/config"
	"github.com/target/hookline/internal/core"
	"github.com/target/hookline/internal/data"
	"github.com/target/hookline/internal/domain/model"
	"github.com/target/hookline/internal/observability/statsd"
	"github.com/target/hookline/internal/service"
	"golang.org/x/sync/errgroup"
)

// Runner runs one or more polling loops over a shared QueueWorker. Claims
// are atomic in the store, so loops never hand the same item out twice.
type Runner struct {
	worker      *service.QueueWorker
	maintenance core.QueueMaintenance
	cfg         config.QueueConfig
	concurrency int
	logger      *slog.Logger
}

// RunnerOptions holds the dependencies for creating a Runner.
type RunnerOptions struct {
	DB     *sql.DB
	Config config.QueueConfig
	Logger *slog.Logger

	// RetryMaxAttempts bounds the downstream work scheduled by lifecycle events.
	RetryMaxAttempts int

	Leases      *service.LeaseService
	Publisher   *service.Publisher
	DeadLetters core.DeadLetterNotifier
	Metrics     statsd.Sink

	// Optional dependency injection for testing/decoupling
	Queue          core.QueueRepository
	Conversations  core.ConversationRepository
	Installations  core.InstallationRepository
	Retries        core.RetryRepository
	WebhookMetrics core.WebhookMetricRepository
}

// NewRunner wires a QueueWorker from opts.
func NewRunner(opts RunnerOptions) (*Runner, error) {
	if err := validateRunnerOptions(&opts); err != nil {
		return nil, err
	}
	queueRepo := opts.Queue
	if queueRepo == nil {
		queueRepo = data.NewQueueItemRepo(opts.DB, data.RepoConfig{Logger: opts.Logger, QueueItemTTL: opts.Config.ItemTTL})
	}
	worker, err := wireWorker(opts, queueRepo)
	if err != nil {
		return nil, fmt.Errorf("wire queue worker: %w", err)
	}
	maintenance, _ := queueRepo.(core.QueueMaintenance)
	return &Runner{
		worker:      worker,
		maintenance: maintenance,
		cfg:         opts.Config,
		concurrency: max(opts.Config.WorkerConcurrency, 1),
		logger:      opts.Logger,
	}, nil
}

func validateRunnerOptions(opts *RunnerOptions) error {
	if opts.DB == nil && (opts.Queue == nil || opts.Conversations == nil) {
		return errors.New("database connection is required")
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return nil
}

func wireWorker(opts RunnerOptions, queueRepo core.QueueRepository) (*service.QueueWorker, error) {
	repoCfg := data.RepoConfig{Logger: opts.Logger, QueueItemTTL: opts.Config.ItemTTL}

	conversations := opts.Conversations
	if conversations == nil {
		conversations = data.NewConversationRepo(opts.DB, repoCfg)
	}
	metrics := opts.WebhookMetrics
	if metrics == nil && opts.DB != nil {
		metrics = data.NewWebhookMetricRepo(opts.DB, repoCfg)
	}

	queue, err := service.NewQueueService(service.QueueServiceOptions{
		Repo:        queueRepo,
		Config:      opts.Config,
		DeadLetters: opts.DeadLetters,
		Logger:      opts.Logger,
		Metrics:     opts.Metrics,
	})
	if err != nil {
		return nil, err
	}

	lifecycle, err := wireLifecycle(opts, repoCfg)
	if err != nil {
		return nil, err
	}

	return service.NewQueueWorker(service.QueueWorkerOptions{
		Queue:         queue,
		Conversations: conversations,
		Lifecycle:     lifecycle,
		Publisher:     opts.Publisher,
		Metrics:       metrics,
		Config:        opts.Config,
		Logger:        opts.Logger,
		Stats:         opts.Metrics,
	})
}

// wireLifecycle returns nil when neither a database nor injected stores are
// available, leaving critical items acknowledged without effects.
func wireLifecycle(opts RunnerOptions, repoCfg data.RepoConfig) (*service.LifecycleHandler, error) {
	installations := opts.Installations
	retries := opts.Retries
	if opts.DB != nil {
		if installations == nil {
			installations = data.NewInstallationRepo(opts.DB, repoCfg)
		}
		if retries == nil {
			retries = data.NewRetryItemRepo(opts.DB, repoCfg)
		}
	}
	if installations == nil || retries == nil {
		opts.Logger.Warn("lifecycle stores unavailable; critical queue items will be acknowledged only")
		return nil, nil
	}
	return service.NewLifecycleHandler(service.LifecycleHandlerOptions{
		Installations: installations,
		Retries:       retries,
		Leases:        opts.Leases,
		Publisher:     opts.Publisher,
		MaxAttempts:   opts.RetryMaxAttempts,
		Logger:        opts.Logger,
	})
}

// Run starts the polling loops and blocks until ctx is cancelled or a loop
// fails.
func (r *Runner) Run(ctx context.Context) error {
	r.logger.InfoContext(ctx, "starting queue worker runner", "concurrency", r.concurrency)
	g, gctx := errgroup.WithContext(ctx)
	for range r.concurrency {
		g.Go(func() error {
			return r.worker.Run(gctx)
		})
	}
	return g.Wait()
}

// RunOnce returns stuck items to pending and then performs a single pass over
// every configured queue, for cron and admin callers.
func (r *Runner) RunOnce(ctx context.Context) (model.QueueRunReport, error) {
	var requeued int64
	if r.maintenance != nil {
		n, err := r.maintenance.RequeueStuck(ctx, r.cfg.VisibilityTimeout, r.cfg.WorkerBatchSize)
		if err != nil {
			r.logger.WarnContext(ctx, "requeue stuck queue items failed", "error", err)
		}
		requeued = n
	}
	report, err := r.worker.ProcessOnce(ctx)
	report.Requeued = requeued
	return report, err
}
