package model

import "time"

// MessageDirection is inbound (from the contact) or outbound (to the contact).
type MessageDirection string

const (
	MessageInbound  MessageDirection = "inbound"
	MessageOutbound MessageDirection = "outbound"
)

// MessageEffect is the write applied for a conversational webhook.
type MessageEffect struct {
	TenantID               string
	ContactExternalID      string
	ConversationExternalID string
	MessageExternalID      string
	Direction              MessageDirection
	MessageType            string
	Body                   string
	Attachments            []string
	SentAt                 time.Time
	WebhookID              string
}

// MessageResult reports what ApplyMessage changed.
type MessageResult struct {
	ConversationID string
	MessageID      string
	ContactID      string
	UserID         string
	// Inserted is false when the message already existed.
	Inserted    bool
	UnreadCount int
}

// UnreadEffect sets or recomputes a conversation's unread counter.
type UnreadEffect struct {
	TenantID               string
	ConversationExternalID string
	// Reported is the upstream count; nil recomputes from stored messages.
	Reported *int
}

// PaymentEffect records a payment against an invoice.
type PaymentEffect struct {
	TenantID          string
	PaymentExternalID string
	InvoiceExternalID string
	ContactExternalID string
	Amount            float64
	Currency          string
	PaidAt            time.Time
	WebhookID         string
}

// PaymentResult reports what RecordPayment changed.
type PaymentResult struct {
	PaymentID string
	Inserted  bool
}

// Installation statuses written by the lifecycle handlers.
const (
	InstallationActive      = "active"
	InstallationUninstalled = "uninstalled"
)

// Installation is the per-tenant app install state.
type Installation struct {
	TenantID      string     `json:"tenantId"`
	CompanyID     string     `json:"companyId"`
	Status        string     `json:"status"`
	Plan          string     `json:"plan,omitempty"`
	InstalledAt   *time.Time `json:"installedAt,omitempty"`
	UninstalledAt *time.Time `json:"uninstalledAt,omitempty"`
	UpdatedAt     time.Time  `json:"updatedAt"`
}
