// Package core defines the ports between hookline's services and its
// storage, messaging and delivery adapters.
package core

import (
	"context"
	"time"

	"github.com/target/hookline/internal/domain/model"
)

// QueueRepository is the durable queue store. Claims are atomic
// pending->processing transitions; no higher-level lock is involved.
type QueueRepository interface {
	// Enqueue persists a pending item. It returns model.ErrDuplicateQueueItem
	// when req.DedupKey is already present.
	Enqueue(ctx context.Context, req *model.EnqueueRequest) (*model.QueueItem, error)
	// ClaimNext claims up to limit due items of queue in priority order.
	ClaimNext(ctx context.Context, queue model.QueueName, limit int) ([]*model.QueueItem, error)
	// Complete marks a processing item completed. False means it was not processing.
	Complete(ctx context.Context, id string) (bool, error)
	// Fail records a failed attempt, returning the item to pending while
	// attempts remain and shouldRetry is true, else marking it failed.
	Fail(ctx context.Context, params FailQueueItemParams) (*model.QueueItem, error)
	ExistsByDedupKey(ctx context.Context, key string) (bool, error)
	Stats(ctx context.Context, stuckAfter time.Duration) ([]model.QueueDepth, error)
}

// FailQueueItemParams groups arguments for QueueRepository.Fail.
type FailQueueItemParams struct {
	ID          string
	Error       string
	ShouldRetry bool
	// RetryDelay postpones the next claim of a retried item.
	RetryDelay time.Duration
}

// QueueMaintenance covers batch operations run by the reaper and admin tools.
type QueueMaintenance interface {
	// RequeueStuck returns processing items claimed before now-visibility to
	// pending, or fails them when attempts are exhausted.
	RequeueStuck(ctx context.Context, visibility time.Duration, batchSize int) (int64, error)
	// DeleteExpired removes items past expires_at regardless of status.
	DeleteExpired(ctx context.Context, batchSize int) (int64, error)
}

// LeaseStore is the backing store for tenant leases.
type LeaseStore interface {
	// Acquire inserts the lease, or replaces it if expired or already held by
	// holderID. It returns false without blocking when another holder is live.
	Acquire(ctx context.Context, key, holderID string, ttl time.Duration) (bool, error)
	// Renew extends a lease still held by holderID.
	Renew(ctx context.Context, key, holderID string, ttl time.Duration) (bool, error)
	// Release deletes the lease only if held by holderID.
	Release(ctx context.Context, key, holderID string) (bool, error)
	// ReclaimExpired removes expired leases and returns how many were removed.
	ReclaimExpired(ctx context.Context) (int64, error)
	// List returns live leases, for operators.
	List(ctx context.Context) ([]model.Lease, error)
}

// RetryRepository stores out-of-band work for the retry scheduler.
type RetryRepository interface {
	// Create persists a pending item. It returns model.ErrDuplicateRetryItem
	// when an active item shares the dedup key.
	Create(ctx context.Context, req *model.CreateRetryItemRequest) (*model.RetryItem, error)
	// ClaimDue claims up to limit items with status pending, next_retry_at <= now
	// and attempts < max_attempts, incrementing attempts.
	ClaimDue(ctx context.Context, limit int) ([]*model.RetryItem, error)
	Complete(ctx context.Context, id string) (bool, error)
	Fail(ctx context.Context, params model.FailRetryItemParams) (*model.RetryItem, error)
	// RequeueStuck returns processing items untouched for visibility to pending.
	RequeueStuck(ctx context.Context, visibility time.Duration) (int64, error)
	// PurgeCompleted deletes completed items older than maxAge.
	PurgeCompleted(ctx context.Context, maxAge time.Duration) (int64, error)
}

// TriggerRepository is the automation intake store.
type TriggerRepository interface {
	Create(ctx context.Context, trigger *model.AutomationTrigger) (*model.AutomationTrigger, error)
	// ExistsPendingSince reports whether a pending trigger of the same type and
	// entity was written at or after since.
	ExistsPendingSince(ctx context.Context, params TriggerExistsParams) (bool, error)
	DeleteExpired(ctx context.Context, maxAge time.Duration, batchSize int) (int64, error)
}

// TriggerExistsParams groups arguments for TriggerRepository.ExistsPendingSince.
type TriggerExistsParams struct {
	TenantID         string
	TriggerType      model.TriggerType
	EntityType       model.EntityType
	EntityExternalID string
	Since            time.Time
}

// StageTracker remembers the last stage seen per entity.
type StageTracker interface {
	// AdvanceStage stores stage for the entity and reports whether it differed
	// from the stored value. Concurrent callers with the same stage see one true.
	AdvanceStage(ctx context.Context, params AdvanceStageParams) (bool, error)
}

// AdvanceStageParams groups arguments for StageTracker.AdvanceStage.
type AdvanceStageParams struct {
	TenantID         string
	EntityType       model.EntityType
	EntityExternalID string
	Stage            string
}

// EntityLookup is the read-only entity resolution collaborator. Missing
// entities return model.ErrEntityNotFound.
type EntityLookup interface {
	FindContact(ctx context.Context, tenantID, externalID string) (*model.Contact, error)
	FindProject(ctx context.Context, tenantID, externalID string) (*model.Project, error)
	FindAppointment(ctx context.Context, tenantID, externalID string) (*model.Appointment, error)
	FindInvoice(ctx context.Context, tenantID, externalID string) (*model.Invoice, error)
}

// ConversationRepository applies the synchronous effects of conversational
// and payment webhooks.
type ConversationRepository interface {
	// ApplyMessage resolves the contact, upserts the conversation and inserts
	// the message in one transaction. Unknown contacts yield model.ErrContactNotFound.
	ApplyMessage(ctx context.Context, effect model.MessageEffect) (*model.MessageResult, error)
	UpdateUnread(ctx context.Context, effect model.UnreadEffect) (int, error)
	RecordPayment(ctx context.Context, effect model.PaymentEffect) (*model.PaymentResult, error)
	MessageExists(ctx context.Context, tenantID, externalID string) (bool, error)
	PaymentExists(ctx context.Context, tenantID, externalID string) (bool, error)
}

// InstallationRepository tracks per-tenant install state.
type InstallationRepository interface {
	Upsert(ctx context.Context, inst model.Installation) (*model.Installation, error)
	Get(ctx context.Context, tenantID string) (*model.Installation, error)
}

// WebhookMetricRepository stores per-webhook timings.
type WebhookMetricRepository interface {
	Record(ctx context.Context, metric *model.WebhookMetric) error
	Summary(ctx context.Context, since time.Time) (*model.MetricSummary, error)
	DeleteOlderThan(ctx context.Context, maxAge time.Duration, batchSize int) (int64, error)
}

// MessageBus is the fan-out transport. Delivery is best effort with no
// acknowledgment or ordering guarantee.
type MessageBus interface {
	Publish(ctx context.Context, msg model.BusMessage) error
	Subscribe(ctx context.Context, channels ...string) (Subscription, error)
}

// Subscription is an open subscription on a MessageBus.
type Subscription interface {
	Messages() <-chan model.BusMessage
	Close() error
}

// DownstreamNotifier delivers install and sync work to downstream services.
// Errors wrapping model.ErrPermanentFailure are not retried.
type DownstreamNotifier interface {
	Notify(ctx context.Context, kind model.RetryKind, payload []byte) error
}

// DeadLetterNotifier is told about items that exhausted their attempts.
type DeadLetterNotifier interface {
	NotifyDeadLetter(ctx context.Context, letter DeadLetter)
}

// DeadLetter describes a terminally failed queue or retry item.
type DeadLetter struct {
	Source    string // "queue" or "retry"
	ID        string
	WebhookID string
	TenantID  string
	Kind      string
	Attempts  int
	Error     string
	FailedAt  time.Time
}

// ReaperRepository groups the cleanup operations run by the reaper.
type ReaperRepository interface {
	DeleteExpiredQueueItems(ctx context.Context, batchSize int) (int64, error)
	RequeueStuckQueueItems(ctx context.Context, visibility time.Duration, batchSize int) (int64, error)
	DeleteOldMetrics(ctx context.Context, maxAge time.Duration, batchSize int) (int64, error)
	DeleteExpiredTriggers(ctx context.Context, maxAge time.Duration, batchSize int) (int64, error)
}
