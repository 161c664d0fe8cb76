package model

import "encoding/json"

// BusMessage is the wire format published on fan-out channels.
type BusMessage struct {
	Channel   string          `json:"-"`
	EventName string          `json:"eventName"`
	Payload   json.RawMessage `json:"payload"`
}

// Fan-out event names.
const (
	EventMessageCreated    = "message.created"
	EventUnreadUpdated     = "conversation.unread"
	EventPaymentRecorded   = "payment.recorded"
	EventAutomationTrigger = "automation.trigger"
	EventInstallation      = "installation.updated"
)

// TenantChannel is the per-tenant channel key.
func TenantChannel(tenantID string) string { return "tenant:" + tenantID }

// UserChannel is the per-user channel key.
func UserChannel(userID string) string { return "user:" + userID }

// PipelineChannel is the per-tenant-per-pipeline channel key.
func PipelineChannel(tenantID, pipelineID string) string {
	return "tenant:" + tenantID + ":pipeline:" + pipelineID
}
