package routing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/target/hookline/internal/domain/model"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		in       model.WebhookType
		queue    model.QueueName
		priority int
		fastPath bool
		lease    bool
	}{
		{model.WebhookTypeInstall, model.QueueCritical, 1, false, true},
		{model.WebhookTypeUninstall, model.QueueCritical, 1, false, false},
		{model.WebhookTypePlanChange, model.QueueCritical, 1, false, false},
		{model.WebhookTypeInboundMessage, model.QueueMessages, 2, true, false},
		{model.WebhookTypeOutboundMessage, model.QueueMessages, 2, true, false},
		{model.WebhookTypeContactCreate, model.QueueContacts, 3, false, false},
		{model.WebhookTypeTaskComplete, model.QueueContacts, 3, false, false},
		{model.WebhookTypeNoteCreate, model.QueueContacts, 3, false, false},
		{model.WebhookTypeAppointmentCreate, model.QueueAppointments, 3, false, false},
		{model.WebhookTypeOpportunityStageUpdate, model.QueueProjects, 3, false, false},
		{model.WebhookTypeInvoicePaid, model.QueueFinancial, 3, true, false},
		{model.WebhookTypeOrderCreate, model.QueueFinancial, 3, false, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.in), func(t *testing.T) {
			r := Classify(tt.in)
			assert.Equal(t, tt.queue, r.Queue)
			assert.Equal(t, tt.priority, r.Priority)
			assert.Equal(t, tt.fastPath, r.FastPath)
			assert.Equal(t, tt.lease, r.RequiresLease)
		})
	}
}

func TestClassify_IsTotal(t *testing.T) {
	inputs := []model.WebhookType{"", "install", "SomeFutureEvent", "💥", "InboundMessage ", "\x00"}
	for _, in := range inputs {
		r := Classify(in)
		assert.Equal(t, model.QueueGeneral, r.Queue, "type %q", in)
		assert.Equal(t, PriorityFallback, r.Priority)
		assert.False(t, r.FastPath)
		assert.False(t, Known(in))
	}
}

func TestValidate(t *testing.T) {
	require.NoError(t, Validate())
	assert.NotEmpty(t, Types())
	for _, typ := range Types() {
		assert.True(t, Known(typ))
	}
}
