package model

import (
	"encoding/json"
	"errors"
	"time"
)

// RetryKind is the `payload.type` discriminator selecting a retry handler.
type RetryKind string

const (
	RetryKindInstallSetup     RetryKind = "install_setup"
	RetryKindUninstallCleanup RetryKind = "uninstall_cleanup"
	RetryKindAgencySync       RetryKind = "agency_sync"
)

// RetryItemStatus is the lifecycle state of a RetryItem.
type RetryItemStatus string

const (
	RetryItemStatusPending    RetryItemStatus = "pending"
	RetryItemStatusProcessing RetryItemStatus = "processing"
	RetryItemStatusCompleted  RetryItemStatus = "completed"
	RetryItemStatusFailed     RetryItemStatus = "failed"
)

// RetryItem is durable work re-attempted out of band by the retry scheduler.
type RetryItem struct {
	ID          string          `json:"id"`
	WebhookID   string          `json:"webhookId"`
	TenantID    string          `json:"tenantId"`
	Kind        RetryKind       `json:"kind"`
	Payload     json.RawMessage `json:"payload"`
	Reason      string          `json:"reason"`
	Status      RetryItemStatus `json:"status"`
	Attempts    int             `json:"attempts"`
	MaxAttempts int             `json:"maxAttempts"`
	NextRetryAt time.Time       `json:"nextRetryAt"`
	LastError   *string         `json:"lastError,omitempty"`
	DedupKey    *string         `json:"dedupKey,omitempty"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
	CompletedAt *time.Time      `json:"completedAt,omitempty"`
}

// Exhausted reports whether no further attempt is allowed.
func (r RetryItem) Exhausted() bool {
	return r.Attempts >= r.MaxAttempts
}

// CreateRetryItemRequest describes a RetryItem to persist. The kind is also
// written into the payload's `type` field.
type CreateRetryItemRequest struct {
	WebhookID   string
	TenantID    string
	Kind        RetryKind
	Payload     map[string]any
	Reason      string
	MaxAttempts int
	DedupKey    string
	// NextRetryAt defaults to now, making the item immediately due.
	NextRetryAt *time.Time
}

// Validate checks the request before it reaches the store.
func (r *CreateRetryItemRequest) Validate() error {
	if r.Kind == "" {
		return errors.New("retry kind is required")
	}
	if r.MaxAttempts < 0 {
		return errors.New("max attempts must be >= 0")
	}
	return nil
}

// FailRetryItemParams records a failed attempt.
type FailRetryItemParams struct {
	ID          string
	Error       string
	NextRetryAt time.Time
	// Terminal marks the item failed regardless of remaining attempts.
	Terminal bool
}

// RetryRunReport summarizes one retry scheduler run.
type RetryRunReport struct {
	StartedAt       time.Time                `json:"startedAt"`
	LeasesReclaimed int64                    `json:"leasesReclaimed"`
	StuckRequeued   int64                    `json:"stuckRequeued"`
	Kinds           map[RetryKind]*RunCounts `json:"kinds"`
	Purged          int64                    `json:"purged"`
}

// Counts returns the counters for kind, creating them on first use.
func (r *RetryRunReport) Counts(kind RetryKind) *RunCounts {
	if r.Kinds == nil {
		r.Kinds = make(map[RetryKind]*RunCounts)
	}
	c, ok := r.Kinds[kind]
	if !ok {
		c = &RunCounts{}
		r.Kinds[kind] = c
	}
	return c
}

// Totals sums the per-kind counters.
func (r *RetryRunReport) Totals() RunCounts {
	var t RunCounts
	for _, c := range r.Kinds {
		t.add(*c)
	}
	return t
}
