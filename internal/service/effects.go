package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/target/hookline/internal/core"
	"github.com/target/hookline/internal/domain/model"
)

// messageEffect extracts the conversation write carried by a message webhook.
func messageEffect(env *model.WebhookEnvelope) model.MessageEffect {
	p := env.Payload
	direction := model.MessageInbound
	if env.Type == model.WebhookTypeOutboundMessage || strings.EqualFold(p.String("direction"), "outbound") {
		direction = model.MessageOutbound
	}
	e := model.MessageEffect{
		TenantID:               env.TenantID,
		ContactExternalID:      p.String("contactId || contact.id"),
		ConversationExternalID: p.String("conversationId || conversation.id"),
		MessageExternalID:      p.String("messageId || message.id"),
		Direction:              direction,
		MessageType:            p.String("messageType || channel"),
		Body:                   p.String("body || message.body || text"),
		Attachments:            p.Strings("attachments"),
		WebhookID:              env.ID,
	}
	if sentAt, ok := p.Time("dateAdded || timestamp"); ok {
		e.SentAt = sentAt
	}
	return e
}

func unreadEffect(env *model.WebhookEnvelope) model.UnreadEffect {
	e := model.UnreadEffect{
		TenantID:               env.TenantID,
		ConversationExternalID: env.Payload.String("conversationId || id"),
	}
	if n, ok := env.Payload.Int("unreadCount"); ok {
		e.Reported = &n
	}
	return e
}

func paymentEffect(env *model.WebhookEnvelope) model.PaymentEffect {
	p := env.Payload
	e := model.PaymentEffect{
		TenantID:          env.TenantID,
		PaymentExternalID: p.String("paymentId || payment.id || transactionId"),
		InvoiceExternalID: p.String("invoiceId || invoice.id || id"),
		ContactExternalID: p.String("contactId || contactDetails.id"),
		Currency:          p.String("currency"),
		WebhookID:         env.ID,
	}
	if amount, ok := p.Float("amountPaid || amount || total"); ok {
		e.Amount = amount
	}
	if paidAt, ok := p.Time("paidAt || updatedAt || timestamp"); ok {
		e.PaidAt = paidAt
	}
	return e
}

// effectResult is what applying an effect produced, for fan-out.
type effectResult struct {
	// Applied is false for replays that changed nothing.
	Applied  bool
	Event    string
	Channels []string
	Body     map[string]any
}

// applyEffect performs the synchronous write for a fast-path type. Types
// without an effect return model.ErrUnsupportedType.
func applyEffect(ctx context.Context, repo core.ConversationRepository, env *model.WebhookEnvelope) (*effectResult, error) {
	tenant := model.TenantChannel(env.TenantID)

	switch env.Type {
	case model.WebhookTypeInboundMessage, model.WebhookTypeOutboundMessage:
		effect := messageEffect(env)
		res, err := repo.ApplyMessage(ctx, effect)
		if err != nil {
			return nil, fmt.Errorf("apply message: %w", err)
		}
		channels := []string{tenant}
		userID := res.UserID
		if userID == "" {
			userID = env.UserID()
		}
		if userID != "" {
			channels = append(channels, model.UserChannel(userID))
		}
		return &effectResult{
			Applied:  res.Inserted,
			Event:    model.EventMessageCreated,
			Channels: channels,
			Body: map[string]any{
				"conversationId": res.ConversationID,
				"messageId":      res.MessageID,
				"contactId":      res.ContactID,
				"direction":      effect.Direction,
				"body":           effect.Body,
				"unreadCount":    res.UnreadCount,
				"webhookId":      env.ID,
			},
		}, nil

	case model.WebhookTypeConversationUnreadUpdate:
		effect := unreadEffect(env)
		count, err := repo.UpdateUnread(ctx, effect)
		if err != nil {
			return nil, fmt.Errorf("update unread: %w", err)
		}
		return &effectResult{
			Applied:  true,
			Event:    model.EventUnreadUpdated,
			Channels: []string{tenant},
			Body: map[string]any{
				"conversationId": effect.ConversationExternalID,
				"unreadCount":    count,
			},
		}, nil

	case model.WebhookTypeInvoicePaid:
		effect := paymentEffect(env)
		res, err := repo.RecordPayment(ctx, effect)
		if err != nil {
			return nil, fmt.Errorf("record payment: %w", err)
		}
		return &effectResult{
			Applied:  res.Inserted,
			Event:    model.EventPaymentRecorded,
			Channels: []string{tenant},
			Body: map[string]any{
				"paymentId": res.PaymentID,
				"invoiceId": effect.InvoiceExternalID,
				"amount":    effect.Amount,
				"currency":  effect.Currency,
			},
		}, nil
	}
	return nil, fmt.Errorf("%w: %s", model.ErrUnsupportedType, env.Type)
}

// envelopeFromItem rebuilds the envelope view of a durable queue item.
func envelopeFromItem(item *model.QueueItem) (*model.WebhookEnvelope, error) {
	var payload model.Payload
	if err := json.Unmarshal(item.Payload, &payload); err != nil {
		return nil, model.Permanent(fmt.Errorf("decode queue item payload: %w", err))
	}
	env := &model.WebhookEnvelope{
		ID:         item.WebhookID,
		Type:       item.Type,
		TenantID:   item.TenantID,
		CompanyID:  payload.String("companyId"),
		ReceivedAt: item.QueuedAt,
		Payload:    payload,
		Raw:        item.Payload,
	}
	if ts, ok := payload.Time("timestamp"); ok {
		env.Timestamp = &ts
	}
	return env, nil
}
