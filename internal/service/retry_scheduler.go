package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/target/hookline/config"
	"github.com/target/hookline/internal/core"
	"github.com/target/hookline/internal/domain/model"
	"github.com/target/hookline/internal/observability/metrics"
	"github.com/target/hookline/internal/observability/statsd"
)

// ErrNoRetryHandler is returned for retry items whose kind has no handler.
var ErrNoRetryHandler = errors.New("no retry handler registered")

// RetryHandler performs one attempt of a retry item. Errors wrapping
// model.ErrPermanentFailure fail the item without further attempts.
type RetryHandler func(ctx context.Context, item *model.RetryItem) error

// RetryBackoff returns the delay before the next attempt of an item that has
// made attempts tries: (attempts+1) times base.
func RetryBackoff(base time.Duration, attempts int) time.Duration {
	if attempts < 0 {
		attempts = 0
	}
	return time.Duration(attempts+1) * base
}

// RetrySchedulerOptions groups dependencies for RetryScheduler.
type RetrySchedulerOptions struct {
	Repo        core.RetryRepository             // Required
	Handlers    map[model.RetryKind]RetryHandler // Required
	Leases      *LeaseService                    // Optional: reclaims expired leases each run
	Config      config.RetryConfig               // Optional: zero values take defaults
	DeadLetters core.DeadLetterNotifier          // Optional
	Logger      *slog.Logger                     // Optional
	Metrics     statsd.Sink                      // Optional
	Now         func() time.Time                 // Optional: defaults to time.Now
}

// RetryScheduler re-attempts out-of-band work with linear backoff.
//
// Each run:
// - Reclaims expired tenant leases.
// - Returns retry items abandoned mid-attempt to pending.
// - Claims due items and runs the handler for each, independently.
// - Purges completed items past the retention window.
type RetryScheduler struct {
	repo        core.RetryRepository
	handlers    map[model.RetryKind]RetryHandler
	leases      *LeaseService
	cfg         config.RetryConfig
	deadLetters core.DeadLetterNotifier
	logger      *slog.Logger
	metrics     statsd.Sink
	now         func() time.Time
}

// NewRetryScheduler constructs a RetryScheduler.
func NewRetryScheduler(opts RetrySchedulerOptions) (*RetryScheduler, error) {
	if opts.Repo == nil {
		return nil, errors.New("RetryRepository is required")
	}
	if len(opts.Handlers) == 0 {
		return nil, errors.New("at least one retry handler is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	cfg := opts.Config
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = 60 * time.Second
	}
	if cfg.CompletedMaxAge <= 0 {
		cfg.CompletedMaxAge = 7 * 24 * time.Hour
	}
	if cfg.Interval <= 0 {
		cfg.Interval = time.Minute
	}
	return &RetryScheduler{
		repo:        opts.Repo,
		handlers:    opts.Handlers,
		leases:      opts.Leases,
		cfg:         cfg,
		deadLetters: opts.DeadLetters,
		logger:      logger.With("component", "retry_scheduler"),
		metrics:     opts.Metrics,
		now:         now,
	}, nil
}

// Run executes RunOnce on the configured interval until ctx is cancelled.
// Returns nil on graceful shutdown.
func (s *RetryScheduler) Run(ctx context.Context) error {
	s.logger.InfoContext(ctx, "starting retry scheduler",
		"interval", s.cfg.Interval, "batch_size", s.cfg.BatchSize)

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		if _, err := s.RunOnce(ctx); err != nil && ctx.Err() == nil {
			s.logger.ErrorContext(ctx, "retry run failed", "error", err)
		}
		select {
		case <-ctx.Done():
			s.logger.InfoContext(ctx, "retry scheduler stopping", "reason", ctx.Err())
			if errors.Is(ctx.Err(), context.Canceled) {
				return nil
			}
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// RunOnce performs one sweep. The returned error covers the sweep's own
// steps; individual item failures are reported in the counts only.
func (s *RetryScheduler) RunOnce(ctx context.Context) (model.RetryRunReport, error) {
	started := s.now()
	report := model.RetryRunReport{StartedAt: started.UTC()}
	var errs []error

	if s.leases != nil {
		n, err := s.leases.ReclaimExpired(ctx)
		if err != nil {
			errs = append(errs, fmt.Errorf("reclaim leases: %w", err))
		}
		report.LeasesReclaimed = n
	}

	if s.cfg.VisibilityTimeout > 0 {
		n, err := s.repo.RequeueStuck(ctx, s.cfg.VisibilityTimeout)
		if err != nil {
			errs = append(errs, fmt.Errorf("requeue stuck retry items: %w", err))
		}
		report.StuckRequeued = n
	}

	items, err := s.repo.ClaimDue(ctx, s.cfg.BatchSize)
	if err != nil {
		errs = append(errs, fmt.Errorf("claim retry items: %w", err))
	}
	for _, item := range items {
		s.process(ctx, item, &report)
	}

	purged, err := s.repo.PurgeCompleted(ctx, s.cfg.CompletedMaxAge)
	if err != nil {
		errs = append(errs, fmt.Errorf("purge completed retry items: %w", err))
	}
	report.Purged = purged

	runErr := errors.Join(errs...)
	totals := report.Totals()
	metrics.EmitRetryRun(s.metrics, totals.Processed, s.now().Sub(started), runErr)
	if totals.Processed > 0 || purged > 0 {
		s.logger.InfoContext(ctx, "retry run completed",
			"processed", totals.Processed,
			"succeeded", totals.Succeeded,
			"failed", totals.Failed,
			"purged", purged,
			"leases_reclaimed", report.LeasesReclaimed)
	}
	return report, runErr
}

func (s *RetryScheduler) process(ctx context.Context, item *model.RetryItem, report *model.RetryRunReport) {
	counts := report.Counts(item.Kind)
	err := s.attempt(ctx, item)
	if err == nil {
		if _, cerr := s.repo.Complete(ctx, item.ID); cerr != nil {
			s.logger.WarnContext(ctx, "complete retry item failed", "id", item.ID, "error", cerr)
		}
		counts.Record(true)
		metrics.EmitRetryItem(s.metrics, string(item.Kind), metrics.ResultSuccess, nil)
		return
	}

	counts.Record(false)
	metrics.EmitRetryItem(s.metrics, string(item.Kind), metrics.ResultError, err)

	terminal := model.IsPermanent(err) || item.Exhausted()
	updated, ferr := s.repo.Fail(ctx, model.FailRetryItemParams{
		ID:          item.ID,
		Error:       err.Error(),
		NextRetryAt: s.now().Add(RetryBackoff(s.cfg.BaseDelay, item.Attempts)),
		Terminal:    terminal,
	})
	if ferr != nil {
		s.logger.ErrorContext(ctx, "record retry failure failed", "id", item.ID, "error", ferr)
		return
	}
	if updated.Status != model.RetryItemStatusFailed {
		s.logger.InfoContext(ctx, "retry attempt failed",
			"id", item.ID,
			"kind", item.Kind,
			"attempts", updated.Attempts,
			"next_retry_at", updated.NextRetryAt,
			"error", err)
		return
	}

	s.logger.WarnContext(ctx, "retry item failed terminally",
		"id", item.ID, "kind", item.Kind, "attempts", updated.Attempts, "error", err)
	if s.deadLetters != nil {
		s.deadLetters.NotifyDeadLetter(ctx, core.DeadLetter{
			Source:    "retry",
			ID:        updated.ID,
			WebhookID: updated.WebhookID,
			TenantID:  updated.TenantID,
			Kind:      string(updated.Kind),
			Attempts:  updated.Attempts,
			Error:     err.Error(),
			FailedAt:  s.now().UTC(),
		})
	}
}

func (s *RetryScheduler) attempt(ctx context.Context, item *model.RetryItem) (err error) {
	handler, ok := s.handlers[item.Kind]
	if !ok {
		return model.Permanent(fmt.Errorf("%w: %s", ErrNoRetryHandler, item.Kind))
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("retry handler panicked: %v", r)
		}
	}()
	return handler(ctx, item)
}
