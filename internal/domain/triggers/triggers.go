// Package triggers maps classified webhooks to automation trigger candidates.
// The table here is pure; suppression checks, entity resolution and writes
// happen in the trigger service.
package triggers

import (
	"fmt"
	"sort"
	"strings"

	"github.com/target/hookline/internal/domain/model"
	"github.com/target/hookline/internal/domain/routing"
)

// Suppression selects the duplicate check applied before a candidate is written.
type Suppression int

const (
	// SuppressNone writes the candidate unconditionally.
	SuppressNone Suppression = iota
	// SuppressStageUnchanged drops the candidate when the stored stage already
	// equals Candidate.Stage.
	SuppressStageUnchanged
	// SuppressWithinWindow drops the candidate when a pending trigger of the
	// same type and entity was written inside the configured window.
	SuppressWithinWindow
)

func (s Suppression) String() string {
	switch s {
	case SuppressStageUnchanged:
		return "stage_unchanged"
	case SuppressWithinWindow:
		return "within_window"
	default:
		return "none"
	}
}

// Refs are the external ids the trigger service tries to resolve.
type Refs struct {
	ContactID     string
	ProjectID     string
	AppointmentID string
	InvoiceID     string
}

// Candidate is one trigger descriptor before suppression and resolution.
type Candidate struct {
	TriggerType      model.TriggerType
	EntityType       model.EntityType
	EntityExternalID string
	Refs             Refs
	Suppression      Suppression
	Stage            string
	PipelineID       string
	Data             map[string]any
}

type deriveFunc func(env *model.WebhookEnvelope) []Candidate

var table = map[model.WebhookType]deriveFunc{
	model.WebhookTypeContactCreate:           contactCreated,
	model.WebhookTypeContactTagUpdate:        contactTagsUpdated,
	model.WebhookTypeInboundMessage:          customerReplied,
	model.WebhookTypeOpportunityCreate:       projectCreated,
	model.WebhookTypeOpportunityStageUpdate:  projectStageChanged,
	model.WebhookTypeOpportunityStatusUpdate: projectStatusChanged,
	model.WebhookTypeAppointmentCreate:       appointmentScheduled,
	model.WebhookTypeAppointmentUpdate:       appointmentUpdated,
	model.WebhookTypeAppointmentDelete:       appointmentDeleted,
	model.WebhookTypeInvoicePaid:             invoicePaid,
	model.WebhookTypeOrderCreate:             paymentReceived,
	model.WebhookTypeTaskComplete:            taskCompleted,
}

// Derive returns the candidates for env. Types without an entry yield none.
func Derive(env *model.WebhookEnvelope) []Candidate {
	if env == nil {
		return nil
	}
	fn, ok := table[env.Type]
	if !ok {
		return nil
	}
	out := fn(env)
	kept := out[:0]
	for _, c := range out {
		if c.EntityExternalID != "" {
			kept = append(kept, c)
		}
	}
	return kept
}

// Handles reports whether t has a derivation entry.
func Handles(t model.WebhookType) bool {
	_, ok := table[t]
	return ok
}

// Validate checks that every derivation entry names an explicitly routed type.
func Validate() error {
	types := make([]string, 0, len(table))
	for t := range table {
		if !routing.Known(t) {
			types = append(types, string(t))
		}
	}
	if len(types) == 0 {
		return nil
	}
	sort.Strings(types)
	return fmt.Errorf("triggers: unrouted types: %s", strings.Join(types, ", "))
}

func contactCreated(env *model.WebhookEnvelope) []Candidate {
	id := env.Payload.String("contactId || id")
	return []Candidate{{
		TriggerType:      model.TriggerContactCreated,
		EntityType:       model.EntityContact,
		EntityExternalID: id,
		Refs:             Refs{ContactID: id},
		Data: map[string]any{
			"source": env.Payload.Lookup("source"),
			"tags":   env.Payload.Strings("tags"),
		},
	}}
}

func contactTagsUpdated(env *model.WebhookEnvelope) []Candidate {
	id := env.Payload.String("contactId || id")
	tags := env.Payload.Strings("tags")
	out := make([]Candidate, 0, len(tags))
	for _, tag := range tags {
		out = append(out, Candidate{
			TriggerType:      model.TriggerContactTagAdded,
			EntityType:       model.EntityContact,
			EntityExternalID: id,
			Refs:             Refs{ContactID: id},
			Data:             map[string]any{"tag": tag},
		})
	}
	return out
}

func customerReplied(env *model.WebhookEnvelope) []Candidate {
	contactID := env.Payload.String("contactId")
	return []Candidate{{
		TriggerType:      model.TriggerCustomerReplied,
		EntityType:       model.EntityContact,
		EntityExternalID: contactID,
		Refs:             Refs{ContactID: contactID},
		Data: map[string]any{
			"conversationId": env.Payload.String("conversationId"),
			"messageId":      env.Payload.String("messageId"),
			"messageType":    env.Payload.String("messageType"),
			"body":           env.Payload.String("body"),
		},
	}}
}

func opportunity(env *model.WebhookEnvelope, tt model.TriggerType) Candidate {
	id := env.Payload.String("opportunityId || id")
	return Candidate{
		TriggerType:      tt,
		EntityType:       model.EntityProject,
		EntityExternalID: id,
		Refs: Refs{
			ProjectID: id,
			ContactID: env.Payload.String("contactId || contact.id"),
		},
		Stage:      env.Payload.String("pipelineStageId || stageId"),
		PipelineID: env.Payload.String("pipelineId"),
		Data: map[string]any{
			"pipelineId":    env.Payload.String("pipelineId"),
			"stageId":       env.Payload.String("pipelineStageId || stageId"),
			"status":        env.Payload.String("status"),
			"monetaryValue": env.Payload.Lookup("monetaryValue"),
		},
	}
}

func projectCreated(env *model.WebhookEnvelope) []Candidate {
	return []Candidate{opportunity(env, model.TriggerProjectCreated)}
}

func projectStageChanged(env *model.WebhookEnvelope) []Candidate {
	c := opportunity(env, model.TriggerProjectStageChanged)
	if c.Stage == "" {
		return nil
	}
	c.Suppression = SuppressStageUnchanged
	return []Candidate{c}
}

func projectStatusChanged(env *model.WebhookEnvelope) []Candidate {
	switch strings.ToLower(env.Payload.String("status")) {
	case "won":
		return []Candidate{opportunity(env, model.TriggerProjectWon)}
	case "lost", "abandoned":
		return []Candidate{opportunity(env, model.TriggerProjectLost)}
	default:
		return nil
	}
}

func appointment(env *model.WebhookEnvelope, tt model.TriggerType) Candidate {
	id := env.Payload.String("appointment.id || appointmentId || id")
	return Candidate{
		TriggerType:      tt,
		EntityType:       model.EntityAppointment,
		EntityExternalID: id,
		Refs: Refs{
			AppointmentID: id,
			ContactID:     env.Payload.String("appointment.contactId || contactId"),
		},
		Suppression: SuppressWithinWindow,
		Data: map[string]any{
			"calendarId": env.Payload.String("appointment.calendarId || calendarId"),
			"status":     appointmentStatus(env),
			"startTime":  env.Payload.String("appointment.startTime || startTime"),
		},
	}
}

func appointmentStatus(env *model.WebhookEnvelope) string {
	return strings.ToLower(env.Payload.String("appointment.appointmentStatus || appointmentStatus || status"))
}

func appointmentScheduled(env *model.WebhookEnvelope) []Candidate {
	return []Candidate{appointment(env, model.TriggerAppointmentScheduled)}
}

func appointmentUpdated(env *model.WebhookEnvelope) []Candidate {
	switch appointmentStatus(env) {
	case "cancelled", "canceled", "invalid", "noshow":
		return []Candidate{appointment(env, model.TriggerAppointmentCancelled)}
	}
	if env.Payload.String("appointment.startTime || startTime") == "" {
		return nil
	}
	return []Candidate{appointment(env, model.TriggerAppointmentMoved)}
}

func appointmentDeleted(env *model.WebhookEnvelope) []Candidate {
	return []Candidate{appointment(env, model.TriggerAppointmentCancelled)}
}

func invoicePaid(env *model.WebhookEnvelope) []Candidate {
	id := env.Payload.String("invoiceId || _id || id")
	amount, _ := env.Payload.Float("amountPaid || total || amount")
	return []Candidate{{
		TriggerType:      model.TriggerInvoicePaid,
		EntityType:       model.EntityInvoice,
		EntityExternalID: id,
		Refs: Refs{
			InvoiceID: id,
			ContactID: env.Payload.String("contactDetails.id || contactId"),
			ProjectID: env.Payload.String("opportunityDetails.opportunityId || opportunityId"),
		},
		Data: map[string]any{
			"amount":   amount,
			"currency": env.Payload.String("currency"),
			"number":   env.Payload.String("invoiceNumber"),
		},
	}}
}

func paymentReceived(env *model.WebhookEnvelope) []Candidate {
	contactID := env.Payload.String("contactId || contactSnapshot.id")
	amount, _ := env.Payload.Float("amount || total")
	return []Candidate{{
		TriggerType:      model.TriggerPaymentReceived,
		EntityType:       model.EntityContact,
		EntityExternalID: contactID,
		Refs: Refs{
			ContactID: contactID,
			InvoiceID: env.Payload.String("invoiceId"),
		},
		Data: map[string]any{
			"orderId":  env.Payload.String("orderId || _id || id"),
			"amount":   amount,
			"currency": env.Payload.String("currency"),
		},
	}}
}

func taskCompleted(env *model.WebhookEnvelope) []Candidate {
	id := env.Payload.String("taskId || id")
	return []Candidate{{
		TriggerType:      model.TriggerTaskCompleted,
		EntityType:       model.EntityTask,
		EntityExternalID: id,
		Refs:             Refs{ContactID: env.Payload.String("contactId")},
		Data: map[string]any{
			"title":      env.Payload.String("title"),
			"assignedTo": env.Payload.String("assignedTo"),
		},
	}}
}
