// Package model defines the records that flow through hookline: inbound
// webhook envelopes, durable queue and retry items, leases, automation
// triggers and per-webhook metrics.
package model

import (
	"strings"
	"time"
)

// WebhookType is the event discriminator carried in the inbound `type` field.
type WebhookType string

// Lifecycle events.
const (
	WebhookTypeInstall        WebhookType = "INSTALL"
	WebhookTypeUninstall      WebhookType = "UNINSTALL"
	WebhookTypePlanChange     WebhookType = "PlanChange"
	WebhookTypeLocationUpdate WebhookType = "LocationUpdate"
)

// Conversational events.
const (
	WebhookTypeInboundMessage           WebhookType = "InboundMessage"
	WebhookTypeOutboundMessage          WebhookType = "OutboundMessage"
	WebhookTypeConversationUnreadUpdate WebhookType = "ConversationUnreadUpdate"
)

// Contact, task and note events.
const (
	WebhookTypeContactCreate    WebhookType = "ContactCreate"
	WebhookTypeContactUpdate    WebhookType = "ContactUpdate"
	WebhookTypeContactDelete    WebhookType = "ContactDelete"
	WebhookTypeContactTagUpdate WebhookType = "ContactTagUpdate"
	WebhookTypeContactDndUpdate WebhookType = "ContactDndUpdate"
	WebhookTypeTaskCreate       WebhookType = "TaskCreate"
	WebhookTypeTaskComplete     WebhookType = "TaskComplete"
	WebhookTypeTaskDelete       WebhookType = "TaskDelete"
	WebhookTypeNoteCreate       WebhookType = "NoteCreate"
	WebhookTypeNoteUpdate       WebhookType = "NoteUpdate"
	WebhookTypeNoteDelete       WebhookType = "NoteDelete"
)

// Scheduling events.
const (
	WebhookTypeAppointmentCreate WebhookType = "AppointmentCreate"
	WebhookTypeAppointmentUpdate WebhookType = "AppointmentUpdate"
	WebhookTypeAppointmentDelete WebhookType = "AppointmentDelete"
)

// Opportunity events.
const (
	WebhookTypeOpportunityCreate              WebhookType = "OpportunityCreate"
	WebhookTypeOpportunityUpdate              WebhookType = "OpportunityUpdate"
	WebhookTypeOpportunityStageUpdate         WebhookType = "OpportunityStageUpdate"
	WebhookTypeOpportunityStatusUpdate        WebhookType = "OpportunityStatusUpdate"
	WebhookTypeOpportunityMonetaryValueUpdate WebhookType = "OpportunityMonetaryValueUpdate"
	WebhookTypeOpportunityDelete              WebhookType = "OpportunityDelete"
)

// Commerce events.
const (
	WebhookTypeInvoiceCreate        WebhookType = "InvoiceCreate"
	WebhookTypeInvoiceSent          WebhookType = "InvoiceSent"
	WebhookTypeInvoicePaid          WebhookType = "InvoicePaid"
	WebhookTypeInvoicePartiallyPaid WebhookType = "InvoicePartiallyPaid"
	WebhookTypeInvoiceVoid          WebhookType = "InvoiceVoid"
	WebhookTypeOrderCreate          WebhookType = "OrderCreate"
	WebhookTypeOrderStatusUpdate    WebhookType = "OrderStatusUpdate"
)

// String returns the raw discriminator.
func (t WebhookType) String() string { return string(t) }

// ParseWebhookType normalizes a raw discriminator. Unknown values are kept
// as-is so routing can degrade them instead of rejecting them.
func ParseWebhookType(raw string) WebhookType {
	return WebhookType(strings.TrimSpace(raw))
}

// WebhookEnvelope is the request-scoped view of one inbound webhook. It is
// never persisted directly.
type WebhookEnvelope struct {
	ID         string
	Type       WebhookType
	TenantID   string
	CompanyID  string
	ReceivedAt time.Time
	// Timestamp is the source-declared event time, when present.
	Timestamp *time.Time
	Payload   Payload
	Raw       []byte
	Signature string
}

// TenantScope returns the lease key scope for the envelope's tenant.
func (e *WebhookEnvelope) TenantScope() string {
	return TenantScope(e.CompanyID, e.TenantID)
}

// UserID returns the user the event is assigned to, if any.
func (e *WebhookEnvelope) UserID() string {
	return e.Payload.String("userId || assignedTo || user.id")
}
