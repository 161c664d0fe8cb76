package service

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/target/hookline/config"
	"github.com/target/hookline/internal/core"
	obserrors "github.com/target/hookline/internal/observability/errors"
	"github.com/target/hookline/internal/observability/metrics"
	"github.com/target/hookline/internal/observability/statsd"
)

// ReaperServiceOptions groups dependencies for ReaperService.
type ReaperServiceOptions struct {
	Repo    core.ReaperRepository // Required: reaper repository
	Config  config.ReaperConfig   // Required: reaper configuration
	Logger  *slog.Logger          // Optional: structured logger
	Metrics statsd.Sink           // Optional: metrics sink (StatsD-compatible)

	// VisibilityTimeout is how long a queue item may stay processing before
	// it is requeued. Zero disables the requeue step.
	VisibilityTimeout time.Duration
}

// ReaperService provides periodic cleanup of the durable stores.
//
// Each pass:
// - Deletes queue items past their expiry, regardless of status.
// - Requeues queue items whose consumer disappeared mid-claim.
// - Deletes webhook metrics older than the retention window.
// - Deletes automation triggers past their expiry.
type ReaperService struct {
	repo       core.ReaperRepository
	config     config.ReaperConfig
	visibility time.Duration
	logger     *slog.Logger
	metrics    statsd.Sink
}

// NewReaperService constructs a new ReaperService.
func NewReaperService(opts ReaperServiceOptions) (*ReaperService, error) {
	if opts.Repo == nil {
		return nil, errors.New("ReaperRepository is required")
	}

	var logger *slog.Logger
	if opts.Logger != nil {
		logger = opts.Logger.With("component", "reaper_service")
		logger.Debug("ReaperService initialized",
			"interval", opts.Config.Interval,
			"metrics_max_age", opts.Config.MetricsMaxAge,
			"triggers_max_age", opts.Config.TriggersMaxAge,
			"visibility_timeout", opts.VisibilityTimeout,
		)
	}

	return &ReaperService{
		repo:       opts.Repo,
		config:     opts.Config,
		visibility: opts.VisibilityTimeout,
		logger:     logger,
		metrics:    opts.Metrics,
	}, nil
}

// Run starts the reaper loop and runs until the context is cancelled.
// It performs cleanup operations at the configured interval.
// Returns nil on graceful shutdown (context.Canceled), error otherwise.
func (s *ReaperService) Run(ctx context.Context) error {
	if s.logger != nil {
		s.logger.InfoContext(ctx, "starting reaper service", "interval", s.config.Interval)
	}

	// Add jitter to prevent thundering herd if multiple instances start together
	s.waitWithJitter(ctx)

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	if _, err := s.RunOnce(ctx); err != nil {
		s.logCleanupError(err, "initial cleanup")
	}

	return s.runLoop(ctx, ticker)
}

// waitWithJitter adds a random delay up to 10% of the interval to prevent thundering herd.
func (s *ReaperService) waitWithJitter(ctx context.Context) {
	maxJitter := int64(s.config.Interval / 10)
	if maxJitter <= 0 {
		return
	}

	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		if s.logger != nil {
			s.logger.WarnContext(ctx, "failed to generate jitter, skipping", "error", err)
		}
		return
	}

	jitterNanos := binary.BigEndian.Uint64(buf[:]) % uint64(maxJitter)
	jitter := time.Duration(int64(jitterNanos)) // #nosec G115 - bounded by maxJitter which is int64

	select {
	case <-time.After(jitter):
	case <-ctx.Done():
	}
}

func (s *ReaperService) runLoop(ctx context.Context, ticker *time.Ticker) error {
	for {
		select {
		case <-ctx.Done():
			if s.logger != nil {
				s.logger.InfoContext(ctx, "reaper service stopping", "reason", ctx.Err())
			}
			if errors.Is(ctx.Err(), context.Canceled) {
				return nil
			}
			return ctx.Err()

		case <-ticker.C:
			if _, err := s.RunOnce(ctx); err != nil {
				s.logCleanupError(err, "cleanup")
			}
		}
	}
}

// ReaperReport counts rows touched by one cleanup pass.
type ReaperReport struct {
	ExpiredQueueItems int64         `json:"expiredQueueItems"`
	RequeuedStuck     int64         `json:"requeuedStuck"`
	OldMetrics        int64         `json:"oldMetrics"`
	ExpiredTriggers   int64         `json:"expiredTriggers"`
	Elapsed           time.Duration `json:"elapsed"`
}

// Total sums every counter.
func (r ReaperReport) Total() int64 {
	return r.ExpiredQueueItems + r.RequeuedStuck + r.OldMetrics + r.ExpiredTriggers
}

// RunOnce performs a single cleanup pass. Every step runs even when an
// earlier one fails; the returned error joins the step errors.
func (s *ReaperService) RunOnce(ctx context.Context) (ReaperReport, error) {
	start := time.Now()
	var (
		report             ReaperReport
		errs               []error
		allContextCanceled = true
	)

	steps := []cleanupStep{
		{fn: s.deleteExpiredQueueItems, label: "delete expired queue items", operation: "delete_expired_queue_items", count: &report.ExpiredQueueItems},
		{fn: s.requeueStuckQueueItems, label: "requeue stuck queue items", operation: "requeue_stuck", count: &report.RequeuedStuck},
		{fn: s.deleteOldMetrics, label: "delete old webhook metrics", operation: "delete_old_metrics", count: &report.OldMetrics},
		{fn: s.deleteExpiredTriggers, label: "delete expired triggers", operation: "delete_expired_triggers", count: &report.ExpiredTriggers},
	}

	var metricErrs []error
	for _, step := range steps {
		outcome := s.executeCleanupStep(ctx, step.fn, step.label)
		*step.count = outcome.count
		metricErrs = append(metricErrs, outcome.metricErr)
		s.emitCleanupOperationMetric(step.operation, outcome.count, outcome.metricErr)
		if outcome.aggregateErr != nil {
			errs = append(errs, outcome.aggregateErr)
			allContextCanceled = allContextCanceled && outcome.canceled
		}
	}

	report.Elapsed = time.Since(start)
	s.emitCleanupMetrics(report, firstError(metricErrs...))

	if len(errs) > 0 {
		joined := errors.Join(errs...)
		if allContextCanceled && isContextCancellation(joined) {
			return report, context.Canceled
		}
		return report, fmt.Errorf("cleanup failed: %w", joined)
	}

	return report, nil
}

type cleanupFunc func(context.Context) (int64, error)

type cleanupStep struct {
	fn        cleanupFunc
	label     string
	operation string
	count     *int64
}

type cleanupStepOutcome struct {
	count        int64
	metricErr    error
	aggregateErr error
	canceled     bool
}

func (s *ReaperService) executeCleanupStep(
	ctx context.Context,
	fn cleanupFunc,
	label string,
) cleanupStepOutcome {
	count, err := fn(ctx)
	outcome := cleanupStepOutcome{
		count:     count,
		metricErr: suppressContextCancellation(err),
		canceled:  isContextCancellation(err),
	}
	if err != nil {
		outcome.aggregateErr = fmt.Errorf("%s: %w", label, err)
	}
	if count > 0 && s.logger != nil {
		s.logger.InfoContext(ctx, label, "count", count)
	}
	return outcome
}

// drainBatches repeats batch until it affects no rows.
func drainBatches(ctx context.Context, batch func(context.Context) (int64, error)) (int64, error) {
	var total int64
	for {
		count, err := batch(ctx)
		if err != nil {
			return total, err
		}
		total += count
		if count == 0 {
			return total, nil
		}
		if ctx.Err() != nil {
			return total, ctx.Err()
		}
	}
}

func (s *ReaperService) deleteExpiredQueueItems(ctx context.Context) (int64, error) {
	return drainBatches(ctx, func(ctx context.Context) (int64, error) {
		return s.repo.DeleteExpiredQueueItems(ctx, s.config.BatchSize)
	})
}

// requeueStuckQueueItems runs a single batch; items requeued here become
// claimable again and must not be picked up twice in one pass.
func (s *ReaperService) requeueStuckQueueItems(ctx context.Context) (int64, error) {
	if s.visibility <= 0 {
		return 0, nil
	}
	return s.repo.RequeueStuckQueueItems(ctx, s.visibility, s.config.BatchSize)
}

func (s *ReaperService) deleteOldMetrics(ctx context.Context) (int64, error) {
	return drainBatches(ctx, func(ctx context.Context) (int64, error) {
		return s.repo.DeleteOldMetrics(ctx, s.config.MetricsMaxAge, s.config.BatchSize)
	})
}

func (s *ReaperService) deleteExpiredTriggers(ctx context.Context) (int64, error) {
	return drainBatches(ctx, func(ctx context.Context) (int64, error) {
		return s.repo.DeleteExpiredTriggers(ctx, s.config.TriggersMaxAge, s.config.BatchSize)
	})
}

func (s *ReaperService) emitCleanupMetrics(report ReaperReport, firstErr error) {
	if s.metrics == nil {
		return
	}

	result := metrics.ResultSuccess
	if firstErr != nil {
		result = metrics.ResultError
	} else if report.Total() == 0 {
		result = metrics.ResultNoop
	}

	tags := map[string]string{
		"result": result,
	}

	if firstErr != nil {
		if class := obserrors.Classify(firstErr); class != "" {
			tags["error_class"] = class
		}
	}

	s.metrics.Count("reaper.cleanup", 1, tags)

	if report.Elapsed > 0 {
		s.metrics.Timing("reaper.cleanup_duration", report.Elapsed, metrics.CloneTags(tags))
	}

	if firstErr == nil {
		s.metrics.Gauge("reaper.last_success_epoch", float64(time.Now().Unix()), nil)
	}
}

func (s *ReaperService) emitCleanupOperationMetric(operation string, count int64, err error) {
	if s.metrics == nil {
		return
	}

	result := metrics.ResultSuccess
	if err != nil {
		result = metrics.ResultError
	} else if count == 0 {
		result = metrics.ResultNoop
	}

	tags := map[string]string{
		"operation": operation,
		"result":    result,
	}

	if err != nil {
		if class := obserrors.Classify(err); class != "" {
			tags["error_class"] = class
		}
	}

	s.metrics.Count("reaper.cleanup_operation", 1, tags)

	if err == nil && count > 0 {
		s.metrics.Count("reaper.rows_processed", count, metrics.CloneTags(tags))
	}
}

func (s *ReaperService) logCleanupError(err error, label string) {
	if err == nil || s.logger == nil {
		return
	}

	if isContextCancellation(err) {
		s.logger.Debug(label+" cancelled by context", "error", err)
		return
	}

	s.logger.Error(label+" failed", "error", err)
}

func firstError(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

func isContextCancellation(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

func suppressContextCancellation(err error) error {
	if isContextCancellation(err) {
		return nil
	}
	return err
}
