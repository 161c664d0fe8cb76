package model

import (
	"encoding/json"
	"time"
)

// TriggerType names an automation trigger consumed by the rule engine.
type TriggerType string

const (
	TriggerContactCreated       TriggerType = "contact_created"
	TriggerContactTagAdded      TriggerType = "contact_tag_added"
	TriggerCustomerReplied      TriggerType = "customer_replied"
	TriggerProjectCreated       TriggerType = "project_created"
	TriggerProjectStageChanged  TriggerType = "project_stage_changed"
	TriggerProjectWon           TriggerType = "project_won"
	TriggerProjectLost          TriggerType = "project_lost"
	TriggerAppointmentScheduled TriggerType = "appointment_scheduled"
	TriggerAppointmentCancelled TriggerType = "appointment_cancelled"
	TriggerAppointmentMoved     TriggerType = "appointment_rescheduled"
	TriggerInvoicePaid          TriggerType = "invoice_paid"
	TriggerPaymentReceived      TriggerType = "payment_received"
	TriggerTaskCompleted        TriggerType = "task_completed"
)

// EntityType names the kind of entity a trigger refers to.
type EntityType string

const (
	EntityContact     EntityType = "contact"
	EntityProject     EntityType = "project"
	EntityAppointment EntityType = "appointment"
	EntityInvoice     EntityType = "invoice"
	EntityTask        EntityType = "task"
)

// TriggerStatus is the intake state; hookline only writes pending.
type TriggerStatus string

const TriggerStatusPending TriggerStatus = "pending"

// ResolvedEntities holds denormalized snapshots attached at derivation time.
// Nil fields mean the entity was not found or not referenced.
type ResolvedEntities struct {
	Contact     *Contact     `json:"contact"`
	Project     *Project     `json:"project"`
	Appointment *Appointment `json:"appointment"`
	Invoice     *Invoice     `json:"invoice"`
}

// AutomationTrigger is the descriptor written to the automation intake store.
type AutomationTrigger struct {
	ID               string           `json:"id"`
	TriggerType      TriggerType      `json:"triggerType"`
	EntityType       EntityType       `json:"entityType"`
	EntityExternalID string           `json:"entityExternalId"`
	TenantID         string           `json:"tenantId"`
	WebhookID        string           `json:"webhookId"`
	Resolved         ResolvedEntities `json:"resolvedEntities"`
	Data             json.RawMessage  `json:"data"`
	Status           TriggerStatus    `json:"status"`
	Attempts         int              `json:"attempts"`
	Timestamp        time.Time        `json:"timestamp"`
	ExpiresAt        time.Time        `json:"expiresAt"`
}
