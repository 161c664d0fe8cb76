package testutil

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/target/hookline/internal/domain/model"
)

// EnqueueRequestBuilder helps build queue enqueue requests for tests.
type EnqueueRequestBuilder struct {
	req *model.EnqueueRequest
}

// NewEnqueueRequest creates a builder for a general-queue item with defaults.
func NewEnqueueRequest() *EnqueueRequestBuilder {
	return &EnqueueRequestBuilder{
		req: &model.EnqueueRequest{
			WebhookID: uuid.NewString(),
			Type:      model.WebhookTypeContactCreate,
			TenantID:  "loc-1",
			Route:     model.Route{Queue: model.QueueGeneral, Priority: 5},
			Payload:   json.RawMessage(`{"type":"ContactCreate","locationId":"loc-1"}`),
		},
	}
}

// WithType sets the webhook type.
func (b *EnqueueRequestBuilder) WithType(t model.WebhookType) *EnqueueRequestBuilder {
	b.req.Type = t
	return b
}

// WithTenant sets the tenant id.
func (b *EnqueueRequestBuilder) WithTenant(tenantID string) *EnqueueRequestBuilder {
	b.req.TenantID = tenantID
	return b
}

// WithRoute sets the queue and priority.
func (b *EnqueueRequestBuilder) WithRoute(queue model.QueueName, priority int) *EnqueueRequestBuilder {
	b.req.Route.Queue = queue
	b.req.Route.Priority = priority
	return b
}

// WithPayloadString sets the payload from a JSON string.
func (b *EnqueueRequestBuilder) WithPayloadString(payload string) *EnqueueRequestBuilder {
	b.req.Payload = json.RawMessage(payload)
	return b
}

// WithDedupKey sets the dedup key.
func (b *EnqueueRequestBuilder) WithDedupKey(key string) *EnqueueRequestBuilder {
	b.req.DedupKey = key
	return b
}

// WithMaxAttempts sets the attempt budget.
func (b *EnqueueRequestBuilder) WithMaxAttempts(n int) *EnqueueRequestBuilder {
	b.req.MaxAttempts = n
	return b
}

// WithTTL overrides the store default expiry.
func (b *EnqueueRequestBuilder) WithTTL(ttl time.Duration) *EnqueueRequestBuilder {
	b.req.TTL = ttl
	return b
}

// DirectProcessed marks the item as already handled by the direct processor.
func (b *EnqueueRequestBuilder) DirectProcessed() *EnqueueRequestBuilder {
	b.req.Metadata.DirectProcessed = true
	return b
}

// WithLease records the tenant lease the item was enqueued under.
func (b *EnqueueRequestBuilder) WithLease(key, holder string) *EnqueueRequestBuilder {
	b.req.Metadata.LeaseKey = key
	b.req.Metadata.LeaseHolder = holder
	return b
}

// Build returns the request.
func (b *EnqueueRequestBuilder) Build() *model.EnqueueRequest {
	return b.req
}

// NewRetryRequest builds a retry item request of kind with a minimal payload.
func NewRetryRequest(kind model.RetryKind, tenantID string) *model.CreateRetryItemRequest {
	return &model.CreateRetryItemRequest{
		WebhookID: uuid.NewString(),
		TenantID:  tenantID,
		Kind:      kind,
		Payload:   map[string]any{"locationId": tenantID},
		Reason:    "downstream unavailable",
	}
}
