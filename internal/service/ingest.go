package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/target/hookline/config"
	"github.com/target/hookline/internal/domain/model"
	"github.com/target/hookline/internal/domain/routing"
	"github.com/target/hookline/internal/observability/metrics"
	"github.com/target/hookline/internal/observability/statsd"
)

// IngestStatus is the outcome reported to the webhook source.
type IngestStatus string

const (
	IngestQueued        IngestStatus = "queued"
	IngestProcessed     IngestStatus = "processed"
	IngestDuplicate     IngestStatus = "duplicate"
	IngestReplaySkipped IngestStatus = "replay_skipped"
	IngestProcessing    IngestStatus = "processing"
	IngestRejected      IngestStatus = "rejected"
	IngestError         IngestStatus = "error"
)

// IngestRequest is one inbound webhook delivery.
type IngestRequest struct {
	Body      []byte
	Signature string
	// Source is the optional path segment naming the sender.
	Source string
}

// IngestResult is the acknowledgment for one delivery.
type IngestResult struct {
	WebhookID   string
	Status      IngestStatus
	QueueItemID string
	// Err is set when Status is rejected or error.
	Err error
}

// Success reports whether the delivery should be acknowledged as accepted.
func (r IngestResult) Success() bool {
	return r.Err == nil
}

// IngestServiceOptions groups dependencies for IngestService.
type IngestServiceOptions struct {
	Verifier *Verifier        // Required
	Queue    *QueueService    // Required
	Dedup    *Deduplicator    // Optional
	Leases   *LeaseService    // Optional: nil admits lifecycle events without a lease
	Direct   *DirectProcessor // Optional: nil sends fast-path types through the queue
	Triggers *TriggerService  // Optional
	Config   config.WebhookConfig
	Logger   *slog.Logger
	Metrics  statsd.Sink
	Now      func() time.Time
	NewID    func() string
}

// IngestService accepts webhook deliveries: verify, dedup, classify, then
// the direct write and durable enqueue, then best-effort trigger derivation.
// Only a bad signature is reported as an error to the caller; every other
// outcome is an acknowledgment.
type IngestService struct {
	verifier   *Verifier
	queue      *QueueService
	dedup      *Deduplicator
	leases     *LeaseService
	direct     *DirectProcessor
	triggers   *TriggerService
	replay     ReplayGuard
	bestEffort time.Duration
	logger     *slog.Logger
	metrics    statsd.Sink
	now        func() time.Time
	newID      func() string
}

// NewIngestService constructs an IngestService.
func NewIngestService(opts IngestServiceOptions) (*IngestService, error) {
	if opts.Verifier == nil {
		return nil, errors.New("Verifier is required")
	}
	if opts.Queue == nil {
		return nil, errors.New("QueueService is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	newID := opts.NewID
	if newID == nil {
		newID = uuid.NewString
	}
	bestEffort := opts.Config.BestEffortTimeout
	if bestEffort <= 0 {
		bestEffort = 5 * time.Second
	}
	return &IngestService{
		verifier:   opts.Verifier,
		queue:      opts.Queue,
		dedup:      opts.Dedup,
		leases:     opts.Leases,
		direct:     opts.Direct,
		triggers:   opts.Triggers,
		replay:     ReplayGuard{Window: opts.Config.ReplayWindow},
		bestEffort: bestEffort,
		logger:     logger.With("component", "ingest"),
		metrics:    opts.Metrics,
		now:        now,
		newID:      newID,
	}, nil
}

// Ingest handles one delivery. It returns model.ErrSignatureInvalid when
// the signature does not verify; nothing is recorded in that case.
func (s *IngestService) Ingest(ctx context.Context, req IngestRequest) (IngestResult, error) {
	if !s.verifier.Verify(req.Body, req.Signature) {
		s.logger.WarnContext(ctx, "webhook signature rejected", "source", req.Source, "bytes", len(req.Body))
		metrics.EmitWebhookReceived(s.metrics, "unknown", "unauthorized")
		return IngestResult{}, model.ErrSignatureInvalid
	}

	env, err := model.ParseEnvelope(req.Body, model.ParseEnvelopeOptions{
		Signature:  req.Signature,
		ReceivedAt: s.now().UTC(),
		NewID:      s.newID,
	})
	if err != nil {
		s.logger.WarnContext(ctx, "webhook envelope rejected", "source", req.Source, "error", err)
		metrics.EmitWebhookReceived(s.metrics, "unknown", string(IngestRejected))
		return IngestResult{Status: IngestRejected, Err: err}, nil
	}

	res := s.accept(ctx, env)
	res.WebhookID = env.ID
	metrics.EmitWebhookReceived(s.metrics, string(env.Type), string(res.Status))

	log := s.logger.With(
		"webhook_id", env.ID,
		"type", env.Type,
		"tenant_id", env.TenantID,
		"source", req.Source,
		"status", res.Status)
	if res.Err != nil {
		log.ErrorContext(ctx, "webhook not accepted", "error", res.Err)
	} else {
		log.InfoContext(ctx, "webhook accepted", "queue_item_id", res.QueueItemID)
	}
	return res, nil
}

func (s *IngestService) accept(ctx context.Context, env *model.WebhookEnvelope) IngestResult {
	if !s.replay.Fresh(env.Timestamp, s.now()) {
		return IngestResult{Status: IngestReplaySkipped}
	}
	if s.dedup != nil && s.dedup.Check(ctx, env) {
		return IngestResult{Status: IngestDuplicate}
	}

	route := routing.Classify(env.Type)
	meta := model.QueueItemMetadata{UserID: env.UserID()}

	if route.RequiresLease && s.leases != nil {
		key, holder := env.TenantScope(), env.ID
		ok, err := s.leases.AcquireFor(ctx, env.Type, key, holder)
		switch {
		case err != nil:
			s.logger.WarnContext(ctx, "lease acquire failed, continuing without lease",
				"webhook_id", env.ID, "key", key, "error", err)
		case !ok:
			return IngestResult{Status: IngestProcessing}
		default:
			meta.LeaseKey, meta.LeaseHolder = key, holder
		}
	}

	res := s.dispatch(ctx, env, route, meta)
	if res.Err != nil || res.Status == IngestDuplicate {
		s.releaseUnused(ctx, meta)
		return res
	}

	s.deriveTriggers(ctx, env)
	return res
}

// dispatch runs the fast path when the type has one and falls through to a
// durable enqueue when the fast path did not commit.
func (s *IngestService) dispatch(ctx context.Context, env *model.WebhookEnvelope, route model.Route, meta model.QueueItemMetadata) IngestResult {
	if route.FastPath && s.direct != nil {
		direct := s.direct.Process(ctx, env, route)
		if direct.Processed && direct.CopyErr == nil {
			res := IngestResult{Status: IngestProcessed}
			if direct.QueueItem != nil {
				res.QueueItemID = direct.QueueItem.ID
			}
			return res
		}
		if direct.Processed {
			meta.DirectProcessed = true
			return s.enqueueDurableCopy(ctx, env, route, meta)
		}
		if direct.Err != nil {
			meta.DirectError = direct.Err.Error()
		}
	}

	item, err := s.queue.Enqueue(ctx, durableRequest(env, route, meta))
	switch {
	case err == nil:
		return IngestResult{Status: IngestQueued, QueueItemID: item.ID}
	case errors.Is(err, model.ErrDuplicateQueueItem):
		return IngestResult{Status: IngestDuplicate}
	default:
		return IngestResult{Status: IngestError, Err: err}
	}
}

// enqueueDurableCopy retries the durable copy of a delivery whose fast-path
// write already committed. The delivery stays processed either way.
func (s *IngestService) enqueueDurableCopy(ctx context.Context, env *model.WebhookEnvelope, route model.Route, meta model.QueueItemMetadata) IngestResult {
	res := IngestResult{Status: IngestProcessed}
	item, err := s.queue.Enqueue(ctx, durableRequest(env, route, meta))
	switch {
	case err == nil:
		res.QueueItemID = item.ID
	case errors.Is(err, model.ErrDuplicateQueueItem):
	default:
		s.logger.ErrorContext(ctx, "durable copy lost after direct write",
			"webhook_id", env.ID, "type", env.Type, "tenant_id", env.TenantID, "error", err)
	}
	return res
}

func (s *IngestService) deriveTriggers(ctx context.Context, env *model.WebhookEnvelope) {
	if s.triggers == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.bestEffort)
	defer cancel()

	written, err := s.triggers.Derive(ctx, env)
	if err != nil {
		s.logger.WarnContext(ctx, "trigger derivation incomplete",
			"webhook_id", env.ID, "written", len(written), "error", err)
	}
}

// releaseUnused frees a lease taken for a delivery that was not enqueued,
// so the source's redelivery is not answered with "processing".
func (s *IngestService) releaseUnused(ctx context.Context, meta model.QueueItemMetadata) {
	if meta.LeaseKey == "" {
		return
	}
	if err := s.leases.Release(context.WithoutCancel(ctx), meta.LeaseKey, meta.LeaseHolder); err != nil {
		s.logger.WarnContext(ctx, "lease release failed", "key", meta.LeaseKey, "error", err)
	}
}
