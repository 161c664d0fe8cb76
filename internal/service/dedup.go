package service

import (
	"context"
	"log/slog"

	"github.com/target/hookline/internal/core"
	"github.com/target/hookline/internal/domain/model"
)

// naturalKeyExprs maps types carrying a stable external id to the payload
// expression that extracts it.
var naturalKeyExprs = map[model.WebhookType]string{
	model.WebhookTypeInboundMessage:  "messageId || message.id",
	model.WebhookTypeOutboundMessage: "messageId || message.id",
	model.WebhookTypeInvoicePaid:     "paymentId || payment.id || transactionId",
}

// NaturalKey returns the stable external id of env, if its type has one.
func NaturalKey(env *model.WebhookEnvelope) (string, bool) {
	expr, ok := naturalKeyExprs[env.Type]
	if !ok {
		return "", false
	}
	key := env.Payload.String(expr)
	return key, key != ""
}

// QueueDedupKey is the queue_items dedup key for a natural key.
func QueueDedupKey(t model.WebhookType, tenantID, naturalKey string) string {
	return string(t) + ":" + tenantID + ":" + naturalKey
}

// DeduplicatorOptions groups dependencies for Deduplicator.
type DeduplicatorOptions struct {
	Conversations core.ConversationRepository
	Queue         core.QueueRepository
	Logger        *slog.Logger
}

// Deduplicator detects redeliveries by looking up durable records keyed by
// the event's natural key.
type Deduplicator struct {
	conversations core.ConversationRepository
	queue         core.QueueRepository
	logger        *slog.Logger
}

// NewDeduplicator constructs a Deduplicator. Either store may be nil.
func NewDeduplicator(opts DeduplicatorOptions) *Deduplicator {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Deduplicator{
		conversations: opts.Conversations,
		queue:         opts.Queue,
		logger:        logger.With("component", "deduplicator"),
	}
}

// IsDuplicate reports whether an event of type t with naturalKey was already
// recorded for tenantID. Lookup errors are logged and treated as not duplicate.
func (d *Deduplicator) IsDuplicate(ctx context.Context, t model.WebhookType, tenantID, naturalKey string) bool {
	if naturalKey == "" {
		return false
	}

	if d.conversations != nil {
		var (
			found bool
			err   error
		)
		switch t {
		case model.WebhookTypeInboundMessage, model.WebhookTypeOutboundMessage:
			found, err = d.conversations.MessageExists(ctx, tenantID, naturalKey)
		case model.WebhookTypeInvoicePaid:
			found, err = d.conversations.PaymentExists(ctx, tenantID, naturalKey)
		}
		if err != nil {
			d.logger.WarnContext(ctx, "dedup lookup failed, treating as new",
				"type", t, "key", naturalKey, "error", err)
		}
		if found {
			return true
		}
	}

	if d.queue != nil {
		found, err := d.queue.ExistsByDedupKey(ctx, QueueDedupKey(t, tenantID, naturalKey))
		if err != nil {
			d.logger.WarnContext(ctx, "queue dedup lookup failed, treating as new",
				"type", t, "key", naturalKey, "error", err)
			return false
		}
		return found
	}
	return false
}

// Check runs IsDuplicate for env's natural key, if it has one.
func (d *Deduplicator) Check(ctx context.Context, env *model.WebhookEnvelope) bool {
	key, ok := NaturalKey(env)
	if !ok {
		return false
	}
	return d.IsDuplicate(ctx, env.Type, env.TenantID, key)
}
