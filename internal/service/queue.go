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

// QueueServiceOptions groups dependencies for QueueService.
type QueueServiceOptions struct {
	Repo        core.QueueRepository    // Required
	Config      config.QueueConfig      // Optional: zero values take repository defaults
	DeadLetters core.DeadLetterNotifier // Optional
	Logger      *slog.Logger
	Metrics     statsd.Sink
}

// QueueService applies queue policy (attempts, TTL, backoff, dead letters)
// over a QueueRepository.
type QueueService struct {
	repo        core.QueueRepository
	cfg         config.QueueConfig
	deadLetters core.DeadLetterNotifier
	logger      *slog.Logger
	metrics     statsd.Sink
}

// NewQueueService constructs a QueueService.
func NewQueueService(opts QueueServiceOptions) (*QueueService, error) {
	if opts.Repo == nil {
		return nil, errors.New("QueueRepository is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &QueueService{
		repo:        opts.Repo,
		cfg:         opts.Config,
		deadLetters: opts.DeadLetters,
		logger:      logger.With("component", "queue_service"),
		metrics:     opts.Metrics,
	}, nil
}

// Enqueue persists req with configured defaults. A dedup key collision
// returns model.ErrDuplicateQueueItem.
func (s *QueueService) Enqueue(ctx context.Context, req *model.EnqueueRequest) (*model.QueueItem, error) {
	if req == nil {
		return nil, errors.New("enqueue request is required")
	}
	if req.MaxAttempts == 0 {
		req.MaxAttempts = s.cfg.DefaultMaxAttempts
	}
	if req.TTL <= 0 {
		req.TTL = s.cfg.ItemTTL
	}
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("validate enqueue request: %w", err)
	}
	item, err := s.repo.Enqueue(ctx, req)
	if err != nil {
		return nil, err
	}
	s.logger.DebugContext(ctx, "queue item enqueued",
		"id", item.ID,
		"queue", item.Queue,
		"type", item.Type,
		"direct_processed", item.Metadata.DirectProcessed)
	return item, nil
}

// ClaimNext claims up to limit due items of queue.
func (s *QueueService) ClaimNext(ctx context.Context, queue model.QueueName, limit int) ([]*model.QueueItem, error) {
	items, err := s.repo.ClaimNext(ctx, queue, limit)
	if err != nil {
		return nil, fmt.Errorf("claim %s: %w", queue, err)
	}
	metrics.EmitQueue(s.metrics, metrics.QueueClaimed, string(queue), int64(len(items)), nil)
	return items, nil
}

// Complete marks a claimed item completed. It returns model.ErrNotClaimed
// when the claim was lost, e.g. to the stuck-item requeue.
func (s *QueueService) Complete(ctx context.Context, item *model.QueueItem) error {
	ok, err := s.repo.Complete(ctx, item.ID)
	if err != nil {
		return fmt.Errorf("complete %s: %w", item.ID, err)
	}
	if !ok {
		return model.ErrNotClaimed
	}
	metrics.EmitQueue(s.metrics, metrics.QueueCompleted, string(item.Queue), 1, nil)
	return nil
}

// Fail records a failed attempt of a claimed item and reports whether it
// will be retried. Retries are delayed linearly by attempt; terminal
// failures are handed to the dead-letter notifier.
func (s *QueueService) Fail(ctx context.Context, item *model.QueueItem, cause error, shouldRetry bool) (bool, error) {
	msg := "unknown error"
	if cause != nil {
		msg = cause.Error()
	}
	updated, err := s.repo.Fail(ctx, core.FailQueueItemParams{
		ID:          item.ID,
		Error:       msg,
		ShouldRetry: shouldRetry,
		RetryDelay:  s.retryDelay(item.Attempts),
	})
	if err != nil {
		return false, fmt.Errorf("fail %s: %w", item.ID, err)
	}
	metrics.EmitQueue(s.metrics, metrics.QueueFailed, string(item.Queue), 1, cause)

	if updated.Status != model.QueueItemStatusFailed {
		return true, nil
	}

	s.logger.WarnContext(ctx, "queue item failed terminally",
		"id", updated.ID,
		"queue", updated.Queue,
		"type", updated.Type,
		"attempts", updated.Attempts,
		"error", msg)
	if s.deadLetters != nil {
		s.deadLetters.NotifyDeadLetter(ctx, core.DeadLetter{
			Source:    "queue",
			ID:        updated.ID,
			WebhookID: updated.WebhookID,
			TenantID:  updated.TenantID,
			Kind:      string(updated.Type),
			Attempts:  updated.Attempts,
			Error:     msg,
			FailedAt:  time.Now().UTC(),
		})
	}
	return false, nil
}

func (s *QueueService) retryDelay(attempts int) time.Duration {
	base := s.cfg.RetryDelay
	if base <= 0 {
		return 0
	}
	return base * time.Duration(attempts+1)
}

// Stats returns per-queue depth, counting items claimed longer than the
// visibility timeout as stuck.
func (s *QueueService) Stats(ctx context.Context) ([]model.QueueDepth, error) {
	return s.repo.Stats(ctx, s.visibility())
}

func (s *QueueService) visibility() time.Duration {
	if s.cfg.VisibilityTimeout > 0 {
		return s.cfg.VisibilityTimeout
	}
	return 5 * time.Minute
}
