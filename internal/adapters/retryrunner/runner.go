// Package retryrunner provides adapters for running the retry scheduler.
package retryrunner

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
)

// Runner wires the retry scheduler and its downstream handlers and runs the
// sweep loop.
type Runner struct {
	scheduler *service.RetryScheduler
	logger    *slog.Logger
}

// RunnerOptions holds the dependencies for creating a Runner.
type RunnerOptions struct {
	DB         *sql.DB
	Config     config.RetryConfig
	Logger     *slog.Logger
	Downstream core.DownstreamNotifier

	Leases      *service.LeaseService
	DeadLetters core.DeadLetterNotifier
	Metrics     statsd.Sink

	// Optional dependency injection for testing/decoupling
	Repo          core.RetryRepository
	Installations core.InstallationRepository
}

// NewRunner creates a retry runner with the given options.
func NewRunner(opts RunnerOptions) (*Runner, error) {
	if err := validateRunnerOptions(&opts); err != nil {
		return nil, err
	}

	scheduler, err := wireScheduler(opts)
	if err != nil {
		return nil, fmt.Errorf("wire retry scheduler: %w", err)
	}
	return &Runner{scheduler: scheduler, logger: opts.Logger}, nil
}

func validateRunnerOptions(opts *RunnerOptions) error {
	if opts.DB == nil && opts.Repo == nil {
		return errors.New("database connection is required")
	}
	if opts.Downstream == nil {
		return errors.New("downstream notifier is required")
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return nil
}

func wireScheduler(opts RunnerOptions) (*service.RetryScheduler, error) {
	repoCfg := data.RepoConfig{Logger: opts.Logger}
	repo := opts.Repo
	if repo == nil {
		repo = data.NewRetryItemRepo(opts.DB, repoCfg)
	}
	installations := opts.Installations
	if installations == nil && opts.DB != nil {
		installations = data.NewInstallationRepo(opts.DB, repoCfg)
	}

	handlers, err := service.NewRetryHandlers(service.RetryHandlersOptions{
		Downstream:    opts.Downstream,
		Installations: installations,
		Logger:        opts.Logger,
	})
	if err != nil {
		return nil, err
	}

	return service.NewRetryScheduler(service.RetrySchedulerOptions{
		Repo:        repo,
		Handlers:    handlers,
		Leases:      opts.Leases,
		Config:      opts.Config,
		DeadLetters: opts.DeadLetters,
		Logger:      opts.Logger,
		Metrics:     opts.Metrics,
	})
}

// Run starts the retry loop and runs until the context is cancelled.
func (r *Runner) Run(ctx context.Context) error {
	r.logger.InfoContext(ctx, "starting retry runner")
	return r.scheduler.Run(ctx)
}

// RunOnce performs a single sweep, for cron and admin callers.
func (r *Runner) RunOnce(ctx context.Context) (model.RetryRunReport, error) {
	return r.scheduler.RunOnce(ctx)
}
