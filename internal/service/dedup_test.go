package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/target/hookline/internal/adapters/memory"
	"github.com/target/hookline/internal/domain/model"
	"github.com/target/hookline/internal/mocks"
	"github.com/target/hookline/internal/testutil"
	"go.uber.org/mock/gomock"
)

func TestNaturalKey(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
		ok   bool
	}{
		{"inbound message", `{"type":"InboundMessage","locationId":"l","messageId":"m-1"}`, "m-1", true},
		{"nested message id", `{"type":"OutboundMessage","locationId":"l","message":{"id":"m-2"}}`, "m-2", true},
		{"invoice paid", `{"type":"InvoicePaid","locationId":"l","paymentId":"p-1"}`, "p-1", true},
		{"missing id", `{"type":"InboundMessage","locationId":"l"}`, "", false},
		{"type without key", `{"type":"ContactCreate","locationId":"l","id":"c-1"}`, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key, ok := NaturalKey(testEnvelope(t, tt.raw))
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, key)
		})
	}
}

func TestDeduplicator_MessageAlreadyStored(t *testing.T) {
	ctrl := gomock.NewController(t)
	ctx := context.Background()
	convs := mocks.NewMockConversationRepository(ctrl)
	convs.EXPECT().MessageExists(gomock.Any(), "loc-1", "m-1").Return(true, nil)

	d := NewDeduplicator(DeduplicatorOptions{Conversations: convs})
	assert.True(t, d.IsDuplicate(ctx, model.WebhookTypeInboundMessage, "loc-1", "m-1"))
}

func TestDeduplicator_QueueDedupKey(t *testing.T) {
	ctrl := gomock.NewController(t)
	ctx := context.Background()
	convs := mocks.NewMockConversationRepository(ctrl)
	convs.EXPECT().PaymentExists(gomock.Any(), "loc-1", "p-1").Return(false, nil).Times(2)

	q := memory.NewQueue(nil, 0)
	d := NewDeduplicator(DeduplicatorOptions{Conversations: convs, Queue: q})
	assert.False(t, d.IsDuplicate(ctx, model.WebhookTypeInvoicePaid, "loc-1", "p-1"))

	req := testutil.NewEnqueueRequest().
		WithType(model.WebhookTypeInvoicePaid).
		WithRoute(model.QueueFinancial, 3).
		WithDedupKey(QueueDedupKey(model.WebhookTypeInvoicePaid, "loc-1", "p-1")).
		Build()
	_, err := q.Enqueue(ctx, req)
	require.NoError(t, err)

	assert.True(t, d.IsDuplicate(ctx, model.WebhookTypeInvoicePaid, "loc-1", "p-1"))
}

func TestDeduplicator_LookupErrorsFailOpen(t *testing.T) {
	ctrl := gomock.NewController(t)
	ctx := context.Background()
	convs := mocks.NewMockConversationRepository(ctrl)
	queue := mocks.NewMockQueueRepository(ctrl)
	convs.EXPECT().MessageExists(gomock.Any(), gomock.Any(), gomock.Any()).Return(false, errors.New("db down"))
	queue.EXPECT().ExistsByDedupKey(gomock.Any(), gomock.Any()).Return(false, errors.New("db down"))

	d := NewDeduplicator(DeduplicatorOptions{Conversations: convs, Queue: queue})
	assert.False(t, d.IsDuplicate(ctx, model.WebhookTypeInboundMessage, "loc-1", "m-1"))
}

func TestDeduplicator_CheckSkipsTypesWithoutKey(t *testing.T) {
	ctrl := gomock.NewController(t)
	// No expectations: a lookup would fail the test.
	convs := mocks.NewMockConversationRepository(ctrl)
	d := NewDeduplicator(DeduplicatorOptions{Conversations: convs})

	env := testEnvelope(t, `{"type":"ContactCreate","locationId":"loc-1","id":"c-1"}`)
	assert.False(t, d.Check(context.Background(), env))
}
