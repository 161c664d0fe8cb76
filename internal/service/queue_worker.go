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
	"github.com/target/hookline/internal/observability/statsd"
	"golang.org/x/sync/errgroup"
)

// QueueWorkerOptions groups dependencies for QueueWorker.
type QueueWorkerOptions struct {
	Queue         *QueueService                // Required
	Conversations core.ConversationRepository  // Required: message and payment effects
	Lifecycle     *LifecycleHandler            // Optional: nil acknowledges critical items
	Publisher     *Publisher                   // Optional
	Metrics       core.WebhookMetricRepository // Optional
	Config        config.QueueConfig
	Logger        *slog.Logger
	Stats         statsd.Sink
	Now           func() time.Time
}

// QueueWorker drains the durable queue. Items whose effect already ran on
// the direct path are acknowledged without being applied again.
type QueueWorker struct {
	queue         *QueueService
	conversations core.ConversationRepository
	lifecycle     *LifecycleHandler
	publisher     *Publisher
	queues        []model.QueueName
	batchSize     int
	interval      time.Duration
	metrics       metricWriter
	logger        *slog.Logger
}

// NewQueueWorker constructs a QueueWorker.
func NewQueueWorker(opts QueueWorkerOptions) (*QueueWorker, error) {
	if opts.Queue == nil {
		return nil, errors.New("QueueService is required")
	}
	if opts.Conversations == nil {
		return nil, errors.New("ConversationRepository is required")
	}
	queues, err := parseQueues(opts.Config.WorkerQueues)
	if err != nil {
		return nil, err
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "queue_worker")
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	batch := opts.Config.WorkerBatchSize
	if batch <= 0 {
		batch = 25
	}
	interval := opts.Config.WorkerPollInterval
	if interval <= 0 {
		interval = 2 * time.Second
	}
	return &QueueWorker{
		queue:         opts.Queue,
		conversations: opts.Conversations,
		lifecycle:     opts.Lifecycle,
		publisher:     opts.Publisher,
		queues:        queues,
		batchSize:     batch,
		interval:      interval,
		metrics:       metricWriter{repo: opts.Metrics, sink: opts.Stats, logger: logger, now: now},
		logger:        logger,
	}, nil
}

func parseQueues(names []string) ([]model.QueueName, error) {
	if len(names) == 0 {
		return model.KnownQueues(), nil
	}
	out := make([]model.QueueName, 0, len(names))
	for _, n := range names {
		q := model.QueueName(n)
		if !q.Valid() {
			return nil, fmt.Errorf("unknown worker queue %q", n)
		}
		out = append(out, q)
	}
	return out, nil
}

// Run polls the configured queues until ctx is cancelled. Returns nil on
// graceful shutdown.
func (w *QueueWorker) Run(ctx context.Context) error {
	w.logger.InfoContext(ctx, "starting queue worker",
		"queues", w.queues, "batch_size", w.batchSize, "interval", w.interval)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		if _, err := w.ProcessOnce(ctx); err != nil && ctx.Err() == nil {
			w.logger.ErrorContext(ctx, "queue pass failed", "error", err)
		}
		select {
		case <-ctx.Done():
			w.logger.InfoContext(ctx, "queue worker stopping", "reason", ctx.Err())
			if errors.Is(ctx.Err(), context.Canceled) {
				return nil
			}
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// ProcessOnce claims one batch from each configured queue and handles it.
// Queues drain concurrently; items within a queue run in claim order.
func (w *QueueWorker) ProcessOnce(ctx context.Context) (model.QueueRunReport, error) {
	report := model.QueueRunReport{Queues: make(map[model.QueueName]*model.RunCounts, len(w.queues))}
	for _, q := range w.queues {
		report.Queues[q] = &model.RunCounts{}
	}

	var g errgroup.Group
	for _, q := range w.queues {
		counts := report.Queues[q]
		g.Go(func() error {
			return w.drain(ctx, q, counts)
		})
	}
	return report, g.Wait()
}

func (w *QueueWorker) drain(ctx context.Context, queue model.QueueName, counts *model.RunCounts) error {
	items, err := w.queue.ClaimNext(ctx, queue, w.batchSize)
	if err != nil {
		return err
	}
	for _, item := range items {
		counts.Record(w.handle(ctx, item))
	}
	return nil
}

// handle processes one claimed item and settles it. It reports whether the
// item completed.
func (w *QueueWorker) handle(ctx context.Context, item *model.QueueItem) bool {
	started := w.metrics.now()
	env, err := envelopeFromItem(item)
	if err == nil {
		err = w.dispatch(ctx, item, env)
	}

	if env != nil && !item.Metadata.DirectProcessed {
		w.metrics.record(ctx, env, model.PathQueue, started, err)
	}

	if err == nil {
		if cerr := w.queue.Complete(ctx, item); cerr != nil {
			w.logger.WarnContext(ctx, "complete queue item failed", "id", item.ID, "error", cerr)
			return false
		}
		return true
	}

	retry := !model.IsPermanent(err)
	w.logger.WarnContext(ctx, "queue item failed",
		"id", item.ID,
		"queue", item.Queue,
		"type", item.Type,
		"attempt", item.Attempts+1,
		"retry", retry,
		"error", err)
	if _, ferr := w.queue.Fail(ctx, item, err, retry); ferr != nil {
		w.logger.ErrorContext(ctx, "fail queue item failed", "id", item.ID, "error", ferr)
	}
	return false
}

func (w *QueueWorker) dispatch(ctx context.Context, item *model.QueueItem, env *model.WebhookEnvelope) error {
	switch item.Queue {
	case model.QueueMessages, model.QueueFinancial:
		if item.Metadata.DirectProcessed {
			return nil
		}
		return w.applyEffect(ctx, env)
	case model.QueueCritical:
		if w.lifecycle == nil {
			return nil
		}
		return w.lifecycle.Handle(ctx, item, env)
	default:
		// Consumed by the automation engine through the trigger store.
		return nil
	}
}

func (w *QueueWorker) applyEffect(ctx context.Context, env *model.WebhookEnvelope) error {
	effect, err := applyEffect(ctx, w.conversations, env)
	if errors.Is(err, model.ErrUnsupportedType) {
		return nil
	}
	if err != nil {
		return err
	}
	if effect.Applied {
		w.publisher.Broadcast(ctx, effect.Channels, effect.Event, effect.Body)
	}
	return nil
}
