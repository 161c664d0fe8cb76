// Package reaper provides adapters for running the cleanup reaper.
package reaper

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/target/hookline/config"
	"github.com/target/hookline/internal/core"
	"github.com/target/hookline/internal/data"
	"github.com/target/hookline/internal/observability/statsd"
	"github.com/target/hookline/internal/service"
)

// Runner provides a simple adapter to run the reaper loop.
// It constructs the reaper service and runs the cleanup loop.
type Runner struct {
	reaper *service.ReaperService
	logger *slog.Logger
}

// RunnerOptions holds the dependencies for creating a Runner.
type RunnerOptions struct {
	DB     *sql.DB
	Config config.ReaperConfig
	Logger *slog.Logger

	// VisibilityTimeout bounds how long a queue item may stay claimed.
	VisibilityTimeout time.Duration

	// Optional dependency injection for testing/decoupling
	Repo    core.ReaperRepository
	Metrics statsd.Sink
}

// NewRunner creates a new reaper runner with the given options.
func NewRunner(opts RunnerOptions) (*Runner, error) {
	if err := validateRunnerOptions(&opts); err != nil {
		return nil, err
	}

	reaper, err := wireReaperService(opts)
	if err != nil {
		return nil, fmt.Errorf("wire reaper service: %w", err)
	}

	return &Runner{
		reaper: reaper,
		logger: opts.Logger,
	}, nil
}

func validateRunnerOptions(opts *RunnerOptions) error {
	if opts.DB == nil && opts.Repo == nil {
		return errors.New("database connection is required")
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return nil
}

func wireReaperService(opts RunnerOptions) (*service.ReaperService, error) {
	repo := opts.Repo
	if repo == nil {
		repo = data.NewReaperRepo(opts.DB, data.RepoConfig{})
	}

	return service.NewReaperService(service.ReaperServiceOptions{
		Repo:              repo,
		Config:            opts.Config,
		Logger:            opts.Logger,
		Metrics:           opts.Metrics,
		VisibilityTimeout: opts.VisibilityTimeout,
	})
}

// Run starts the reaper loop and runs until the context is cancelled.
func (r *Runner) Run(ctx context.Context) error {
	r.logger.InfoContext(ctx, "starting reaper runner")
	return r.reaper.Run(ctx)
}

// RunOnce performs a single cleanup pass, for cron and admin callers.
func (r *Runner) RunOnce(ctx context.Context) (service.ReaperReport, error) {
	return r.reaper.RunOnce(ctx)
}
