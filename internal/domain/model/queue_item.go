package model

import (
	"encoding/json"
	"errors"
	"time"
)

// QueueName names a durable sub-queue.
type QueueName string

const (
	QueueCritical     QueueName = "critical"
	QueueMessages     QueueName = "messages"
	QueueContacts     QueueName = "contacts"
	QueueAppointments QueueName = "appointments"
	QueueProjects     QueueName = "projects"
	QueueFinancial    QueueName = "financial"
	QueueGeneral      QueueName = "general"
)

// KnownQueues lists every queue the router may emit, in drain order.
func KnownQueues() []QueueName {
	return []QueueName{
		QueueCritical,
		QueueMessages,
		QueueFinancial,
		QueueContacts,
		QueueAppointments,
		QueueProjects,
		QueueGeneral,
	}
}

// Valid reports whether q is a known queue.
func (q QueueName) Valid() bool {
	for _, known := range KnownQueues() {
		if q == known {
			return true
		}
	}
	return false
}

// Route is the classification result for a webhook type.
type Route struct {
	Queue    QueueName
	Priority int
	// FastPath marks types the direct processor handles synchronously.
	FastPath bool
	// RequiresLease marks types that must hold the tenant lease while handled.
	RequiresLease bool
}

// QueueItemStatus is the lifecycle state of a QueueItem.
type QueueItemStatus string

const (
	QueueItemStatusPending    QueueItemStatus = "pending"
	QueueItemStatusProcessing QueueItemStatus = "processing"
	QueueItemStatusCompleted  QueueItemStatus = "completed"
	QueueItemStatusFailed     QueueItemStatus = "failed"
)

// DefaultMaxAttempts is used when an enqueue request does not set one.
const DefaultMaxAttempts = 3

// QueueItemMetadata is stored alongside the payload.
type QueueItemMetadata struct {
	DirectProcessed bool   `json:"directProcessed"`
	DirectError     string `json:"directError,omitempty"`
	LeaseKey        string `json:"leaseKey,omitempty"`
	LeaseHolder     string `json:"leaseHolder,omitempty"`
	UserID          string `json:"userId,omitempty"`
}

// QueueItem is a durable unit of classified work.
type QueueItem struct {
	ID           string            `json:"id"`
	WebhookID    string            `json:"webhookId"`
	Type         WebhookType       `json:"type"`
	TenantID     string            `json:"tenantId"`
	Queue        QueueName         `json:"queueName"`
	Priority     int               `json:"priority"`
	Payload      json.RawMessage   `json:"payload"`
	Metadata     QueueItemMetadata `json:"metadata"`
	DedupKey     *string           `json:"dedupKey,omitempty"`
	Status       QueueItemStatus   `json:"status"`
	Attempts     int               `json:"attempts"`
	MaxAttempts  int               `json:"maxAttempts"`
	LastError    *string           `json:"lastError,omitempty"`
	QueuedAt     time.Time         `json:"queuedAt"`
	ProcessAfter time.Time         `json:"processAfter"`
	ClaimedAt    *time.Time        `json:"claimedAt,omitempty"`
	CompletedAt  *time.Time        `json:"completedAt,omitempty"`
	ExpiresAt    time.Time         `json:"expiresAt"`
}

// EnqueueRequest describes a QueueItem to persist.
type EnqueueRequest struct {
	WebhookID   string
	Type        WebhookType
	TenantID    string
	Route       Route
	Payload     json.RawMessage
	Metadata    QueueItemMetadata
	DedupKey    string
	MaxAttempts int
	// TTL overrides the store default expiry.
	TTL time.Duration
}

// Validate checks the request before it reaches the store.
func (r *EnqueueRequest) Validate() error {
	if r.WebhookID == "" {
		return errors.New("webhook id is required")
	}
	if r.Type == "" {
		return errors.New("type is required")
	}
	if !r.Route.Queue.Valid() {
		return errors.New("queue name is invalid")
	}
	if r.Route.Priority < 1 {
		return errors.New("priority must be >= 1")
	}
	if len(r.Payload) == 0 {
		return errors.New("payload is required")
	}
	if r.MaxAttempts < 0 {
		return errors.New("max attempts must be >= 0")
	}
	return nil
}

// QueueDepth summarizes one sub-queue.
type QueueDepth struct {
	Queue      QueueName `json:"queueName"`
	Pending    int64     `json:"pending"`
	Processing int64     `json:"processing"`
	Completed  int64     `json:"completed"`
	Failed     int64     `json:"failed"`
	// Stuck counts processing items claimed before the visibility cutoff.
	Stuck int64 `json:"stuck"`
}

// QueueRunReport counts one queue worker pass per sub-queue.
type QueueRunReport struct {
	Queues map[QueueName]*RunCounts `json:"queues"`
	// Requeued counts stuck items returned to pending during the pass.
	Requeued int64 `json:"requeued"`
}

// Totals sums the per-queue counters.
func (r *QueueRunReport) Totals() RunCounts {
	var t RunCounts
	for _, c := range r.Queues {
		t.add(*c)
	}
	return t
}

// RunCounts are the processed/succeeded/failed counters reported by cron endpoints.
type RunCounts struct {
	Processed int `json:"processed"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
}

func (c *RunCounts) add(o RunCounts) {
	c.Processed += o.Processed
	c.Succeeded += o.Succeeded
	c.Failed += o.Failed
}

// Record adds one outcome.
func (c *RunCounts) Record(ok bool) {
	c.Processed++
	if ok {
		c.Succeeded++
	} else {
		c.Failed++
	}
}
