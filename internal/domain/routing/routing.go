// Package routing holds the static webhook type to queue table. It is the
// only place routing policy lives.
package routing

import (
	"errors"
	"fmt"
	"sort"

	"github.com/target/hookline/internal/domain/model"
)

const (
	PriorityCritical = 1
	PriorityMessages = 2
	PriorityStandard = 3
	PriorityFallback = 5
)

// Fallback is the route for any type missing from the table.
var Fallback = model.Route{Queue: model.QueueGeneral, Priority: PriorityFallback}

var (
	lifecycle = model.Route{Queue: model.QueueCritical, Priority: PriorityCritical}
	messages  = model.Route{Queue: model.QueueMessages, Priority: PriorityMessages, FastPath: true}
	contacts  = model.Route{Queue: model.QueueContacts, Priority: PriorityStandard}
	schedule  = model.Route{Queue: model.QueueAppointments, Priority: PriorityStandard}
	projects  = model.Route{Queue: model.QueueProjects, Priority: PriorityStandard}
	financial = model.Route{Queue: model.QueueFinancial, Priority: PriorityStandard}
)

var table = map[model.WebhookType]model.Route{
	model.WebhookTypeInstall:        {Queue: model.QueueCritical, Priority: PriorityCritical, RequiresLease: true},
	model.WebhookTypeUninstall:      lifecycle,
	model.WebhookTypePlanChange:     lifecycle,
	model.WebhookTypeLocationUpdate: lifecycle,

	model.WebhookTypeInboundMessage:           messages,
	model.WebhookTypeOutboundMessage:          messages,
	model.WebhookTypeConversationUnreadUpdate: messages,

	model.WebhookTypeContactCreate:    contacts,
	model.WebhookTypeContactUpdate:    contacts,
	model.WebhookTypeContactDelete:    contacts,
	model.WebhookTypeContactTagUpdate: contacts,
	model.WebhookTypeContactDndUpdate: contacts,
	model.WebhookTypeTaskCreate:       contacts,
	model.WebhookTypeTaskComplete:     contacts,
	model.WebhookTypeTaskDelete:       contacts,
	model.WebhookTypeNoteCreate:       contacts,
	model.WebhookTypeNoteUpdate:       contacts,
	model.WebhookTypeNoteDelete:       contacts,

	model.WebhookTypeAppointmentCreate: schedule,
	model.WebhookTypeAppointmentUpdate: schedule,
	model.WebhookTypeAppointmentDelete: schedule,

	model.WebhookTypeOpportunityCreate:              projects,
	model.WebhookTypeOpportunityUpdate:              projects,
	model.WebhookTypeOpportunityStageUpdate:         projects,
	model.WebhookTypeOpportunityStatusUpdate:        projects,
	model.WebhookTypeOpportunityMonetaryValueUpdate: projects,
	model.WebhookTypeOpportunityDelete:              projects,

	model.WebhookTypeInvoiceCreate:        financial,
	model.WebhookTypeInvoiceSent:          financial,
	model.WebhookTypeInvoicePaid:          {Queue: model.QueueFinancial, Priority: PriorityStandard, FastPath: true},
	model.WebhookTypeInvoicePartiallyPaid: financial,
	model.WebhookTypeInvoiceVoid:          financial,
	model.WebhookTypeOrderCreate:          financial,
	model.WebhookTypeOrderStatusUpdate:    financial,
}

// Classify returns the route for t. It never fails; unknown types get Fallback.
func Classify(t model.WebhookType) model.Route {
	if r, ok := table[t]; ok {
		return r
	}
	return Fallback
}

// Known reports whether t has an explicit entry.
func Known(t model.WebhookType) bool {
	_, ok := table[t]
	return ok
}

// Types returns the explicitly routed types in sorted order.
func Types() []model.WebhookType {
	out := make([]model.WebhookType, 0, len(table))
	for t := range table {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Validate checks every entry for a known queue and an in-range priority.
// It runs at startup so a bad edit fails fast instead of misrouting traffic.
func Validate() error {
	var errs []error
	for _, t := range Types() {
		r := table[t]
		if t == "" {
			errs = append(errs, errors.New("routing: empty webhook type"))
		}
		if !r.Queue.Valid() {
			errs = append(errs, fmt.Errorf("routing: %s: unknown queue %q", t, r.Queue))
		}
		if r.Priority < PriorityCritical || r.Priority > PriorityFallback {
			errs = append(errs, fmt.Errorf("routing: %s: priority %d out of range", t, r.Priority))
		}
		if r.RequiresLease && r.Queue != model.QueueCritical {
			errs = append(errs, fmt.Errorf("routing: %s: leased types must route to %s", t, model.QueueCritical))
		}
	}
	if !Fallback.Queue.Valid() {
		errs = append(errs, errors.New("routing: fallback queue invalid"))
	}
	return errors.Join(errs...)
}
