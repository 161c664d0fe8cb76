// Package notify defines the payload and sink contract for dead-letter
// alerts. Concrete sinks live in the slack and pagerduty subpackages.
package notify

import (
	"context"
	"time"
)

// Severity constants recognised by downstream sinks.
const (
	SeverityCritical = "critical"
	SeverityError    = "error"
	SeverityWarning  = "warning"
)

// DeadLetterPayload captures the canonical data emitted when a queue or retry
// item exhausts its attempts.
type DeadLetterPayload struct {
	// Source is "queue" or "retry".
	Source     string
	ItemID     string
	WebhookID  string
	Kind       string
	TenantID   string
	Attempts   int
	Error      string
	Severity   string
	OccurredAt time.Time
	Metadata   map[string]string
}

// Sink describes a destination capable of consuming dead-letter notifications.
type Sink interface {
	SendDeadLetter(ctx context.Context, payload DeadLetterPayload) error
}

// SinkFunc adapts a function to the Sink interface (useful for tests).
type SinkFunc func(ctx context.Context, payload DeadLetterPayload) error

// SendDeadLetter implements the Sink interface.
func (f SinkFunc) SendDeadLetter(ctx context.Context, payload DeadLetterPayload) error {
	if f == nil {
		return nil
	}
	return f(ctx, payload)
}
