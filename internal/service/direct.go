package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/target/hookline/internal/core"
	"github.com/target/hookline/internal/domain/model"
	"github.com/target/hookline/internal/observability/statsd"
)

// DirectProcessorOptions groups dependencies for DirectProcessor.
type DirectProcessorOptions struct {
	Conversations core.ConversationRepository  // Required
	Queue         *QueueService                // Required: durable audit copy
	Metrics       core.WebhookMetricRepository // Optional
	Publisher     *Publisher                   // Optional
	Timeout       time.Duration                // Optional: default 3s
	Logger        *slog.Logger
	Stats         statsd.Sink
	Now           func() time.Time
}

// DirectResult reports the outcome of the fast path.
type DirectResult struct {
	// Processed means the synchronous write committed.
	Processed bool
	// QueueItem is the durable copy written after a committed write. It is
	// nil when the copy already existed or when CopyErr is set.
	QueueItem *model.QueueItem
	// CopyErr is set when the write committed but the durable copy could not
	// be enqueued. The caller still has to enqueue it.
	CopyErr error
	// Err is the write error when Processed is false.
	Err error
}

// DirectProcessor applies the synchronous effect of fast-path types ahead of
// the durable queue. It never retries and never returns an error: callers
// fall through to a normal enqueue when the result is not processed.
type DirectProcessor struct {
	conversations core.ConversationRepository
	queue         *QueueService
	publisher     *Publisher
	timeout       time.Duration
	metrics       metricWriter
	logger        *slog.Logger
}

// NewDirectProcessor constructs a DirectProcessor.
func NewDirectProcessor(opts DirectProcessorOptions) (*DirectProcessor, error) {
	if opts.Conversations == nil {
		return nil, errors.New("ConversationRepository is required")
	}
	if opts.Queue == nil {
		return nil, errors.New("QueueService is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "direct_processor")
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &DirectProcessor{
		conversations: opts.Conversations,
		queue:         opts.Queue,
		publisher:     opts.Publisher,
		timeout:       timeout,
		metrics:       metricWriter{repo: opts.Metrics, sink: opts.Stats, logger: logger, now: now},
		logger:        logger,
	}, nil
}

// Process runs the fast path for env. Non fast-path routes are ignored.
func (p *DirectProcessor) Process(ctx context.Context, env *model.WebhookEnvelope, route model.Route) (result DirectResult) {
	if !route.FastPath {
		return DirectResult{}
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.timeout)
	defer cancel()

	started := p.metrics.now()
	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("direct processing panicked: %v", r)
			p.logger.ErrorContext(ctx, "direct processing panicked",
				"webhook_id", env.ID, "type", env.Type, "panic", r)
			p.metrics.record(ctx, env, model.PathDirect, started, err)
			result = DirectResult{Err: err}
		}
	}()

	effect, err := applyEffect(ctx, p.conversations, env)
	if err != nil {
		level := slog.LevelWarn
		if errors.Is(err, model.ErrContactNotFound) {
			level = slog.LevelInfo
		}
		p.logger.Log(ctx, level, "direct processing failed, falling back to queue",
			"webhook_id", env.ID, "type", env.Type, "tenant_id", env.TenantID, "error", err)
		p.metrics.record(ctx, env, model.PathDirect, started, err)
		return DirectResult{Err: err}
	}

	result = DirectResult{Processed: true}
	item, err := p.queue.Enqueue(ctx, durableRequest(env, route, model.QueueItemMetadata{
		DirectProcessed: true,
		UserID:          env.UserID(),
	}))
	switch {
	case err == nil:
		result.QueueItem = item
	case errors.Is(err, model.ErrDuplicateQueueItem):
		p.logger.InfoContext(ctx, "durable copy already present", "webhook_id", env.ID)
	default:
		p.logger.WarnContext(ctx, "durable copy enqueue failed", "webhook_id", env.ID, "error", err)
		result.CopyErr = err
	}

	p.metrics.record(ctx, env, model.PathDirect, started, nil)

	if effect.Applied {
		p.publisher.Broadcast(ctx, effect.Channels, effect.Event, effect.Body)
	}
	return result
}

// durableRequest builds the queue request for env, carrying the natural-key
// dedup key when the type has one.
func durableRequest(env *model.WebhookEnvelope, route model.Route, meta model.QueueItemMetadata) *model.EnqueueRequest {
	req := &model.EnqueueRequest{
		WebhookID: env.ID,
		Type:      env.Type,
		TenantID:  env.TenantID,
		Route:     route,
		Payload:   env.Raw,
		Metadata:  meta,
	}
	if key, ok := NaturalKey(env); ok {
		req.DedupKey = QueueDedupKey(env.Type, env.TenantID, key)
	}
	return req
}
