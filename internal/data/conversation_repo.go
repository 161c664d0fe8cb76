package data

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/target/hookline/internal/core"
	"github.com/target/hookline/internal/data/pgxutil"
	"github.com/target/hookline/internal/domain/model"
	apperrors "github.com/target/hookline/internal/errors"
)

// ConversationRepo applies message, unread and payment effects.
type ConversationRepo struct {
	DB  *sql.DB
	cfg RepoConfig
}

// NewConversationRepo creates a ConversationRepo.
func NewConversationRepo(db *sql.DB, cfg RepoConfig) *ConversationRepo {
	return &ConversationRepo{DB: db, cfg: cfg.withDefaults()}
}

var _ core.ConversationRepository = (*ConversationRepo)(nil)

// conversationKey falls back to one conversation per contact when the
// provider omits a conversation id.
func conversationKey(e model.MessageEffect) string {
	if e.ConversationExternalID != "" {
		return e.ConversationExternalID
	}
	return "contact:" + e.ContactExternalID
}

// ApplyMessage resolves the contact, upserts the conversation, and inserts the
// message in one read-committed transaction. Replays of an existing message
// report Inserted=false and leave the counters alone. An outbound message
// marks the conversation read.
func (r *ConversationRepo) ApplyMessage(ctx context.Context, e model.MessageEffect) (*model.MessageResult, error) {
	if e.TenantID == "" {
		return nil, ErrTenantIDRequired
	}
	if e.MessageExternalID == "" || e.ContactExternalID == "" {
		return nil, errors.New("message and contact ids are required")
	}
	attachments := e.Attachments
	if attachments == nil {
		attachments = []string{}
	}
	attachmentsJSON, err := json.Marshal(attachments)
	if err != nil {
		return nil, fmt.Errorf("encode attachments: %w", err)
	}
	now := r.cfg.TimeProvider.Now()
	sentAt := e.SentAt
	if sentAt.IsZero() {
		sentAt = now
	}

	var res model.MessageResult
	err = pgxutil.WithPgxTx(ctx, r.DB, pgxutil.TxConfig{
		Opts: &sql.TxOptions{Isolation: sql.LevelReadCommitted},
		Fn: func(tx pgx.Tx) error {
			err := tx.QueryRow(ctx,
				`SELECT id::text, user_id FROM contacts WHERE tenant_id = $1 AND external_id = $2`,
				e.TenantID, e.ContactExternalID,
			).Scan(&res.ContactID, &res.UserID)
			if errors.Is(err, pgx.ErrNoRows) {
				return model.ErrContactNotFound
			}
			if err != nil {
				return fmt.Errorf("lookup contact: %w", err)
			}

			err = tx.QueryRow(ctx, `
				INSERT INTO conversations (id, tenant_id, external_id, contact_id, created_at, updated_at)
				VALUES ($1, $2, $3, $4::uuid, $5, $5)
				ON CONFLICT (tenant_id, external_id) DO UPDATE SET updated_at = EXCLUDED.updated_at
				RETURNING id::text`,
				r.cfg.NewID(), e.TenantID, conversationKey(e), res.ContactID, now,
			).Scan(&res.ConversationID)
			if err != nil {
				return fmt.Errorf("upsert conversation: %w", err)
			}

			err = tx.QueryRow(ctx, `
				INSERT INTO conversation_messages (
					id, tenant_id, external_id, conversation_id, direction, message_type,
					body, attachments, is_read, sent_at, webhook_id, created_at
				)
				VALUES ($1, $2, $3, $4::uuid, $5, $6, $7, $8, $9, $10, $11, $12)
				ON CONFLICT (tenant_id, external_id) DO NOTHING
				RETURNING id::text`,
				r.cfg.NewID(), e.TenantID, e.MessageExternalID, res.ConversationID, string(e.Direction),
				e.MessageType, e.Body, attachmentsJSON, e.Direction == model.MessageOutbound,
				sentAt, e.WebhookID, now,
			).Scan(&res.MessageID)
			switch {
			case errors.Is(err, pgx.ErrNoRows):
				return tx.QueryRow(ctx, `
					SELECT m.id::text, c.unread_count
					FROM conversation_messages m JOIN conversations c ON c.id = m.conversation_id
					WHERE m.tenant_id = $1 AND m.external_id = $2`,
					e.TenantID, e.MessageExternalID,
				).Scan(&res.MessageID, &res.UnreadCount)
			case err != nil:
				return fmt.Errorf("insert message: %w", apperrors.MapDBError(err))
			}
			res.Inserted = true

			if e.Direction == model.MessageOutbound {
				if _, err = tx.Exec(ctx, `
					UPDATE conversation_messages SET is_read = true
					WHERE conversation_id = $1::uuid AND direction = 'inbound' AND NOT is_read`,
					res.ConversationID); err != nil {
					return fmt.Errorf("mark conversation read: %w", err)
				}
			}
			return tx.QueryRow(ctx, `
				UPDATE conversations
				SET last_message_at = $2,
				    last_message_body = $3,
				    last_direction = $4,
				    unread_count = CASE WHEN $4 = 'inbound' THEN unread_count + 1 ELSE 0 END,
				    updated_at = $5
				WHERE id = $1::uuid
				RETURNING unread_count`,
				res.ConversationID, sentAt, e.Body, string(e.Direction), now,
			).Scan(&res.UnreadCount)
		},
	})
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// UpdateUnread sets the conversation's unread counter to the reported value,
// or recomputes it from unread inbound messages when none is reported. A
// reported zero also marks every message read.
func (r *ConversationRepo) UpdateUnread(ctx context.Context, e model.UnreadEffect) (int, error) {
	if e.TenantID == "" {
		return 0, ErrTenantIDRequired
	}
	now := r.cfg.TimeProvider.Now()
	var count int

	err := pgxutil.WithSQLTx(ctx, r.DB, pgxutil.SQLTxConfig{Fn: func(tx *sql.Tx) error {
		var convID string
		err := tx.QueryRowContext(ctx,
			`SELECT id::text FROM conversations WHERE tenant_id = $1 AND external_id = $2 FOR UPDATE`,
			e.TenantID, e.ConversationExternalID,
		).Scan(&convID)
		if errors.Is(err, sql.ErrNoRows) {
			return model.ErrConversationNotFound
		}
		if err != nil {
			return fmt.Errorf("lookup conversation: %w", err)
		}

		if e.Reported != nil {
			count = max(*e.Reported, 0)
			if count == 0 {
				if _, err = tx.ExecContext(ctx,
					`UPDATE conversation_messages SET is_read = true WHERE conversation_id = $1::uuid AND NOT is_read`,
					convID); err != nil {
					return fmt.Errorf("mark messages read: %w", err)
				}
			}
		} else if err = tx.QueryRowContext(ctx, `
			SELECT COUNT(*) FROM conversation_messages
			WHERE conversation_id = $1::uuid AND direction = 'inbound' AND NOT is_read`,
			convID).Scan(&count); err != nil {
			return fmt.Errorf("count unread messages: %w", err)
		}

		if _, err = tx.ExecContext(ctx,
			`UPDATE conversations SET unread_count = $2, updated_at = $3 WHERE id = $1::uuid`,
			convID, count, now); err != nil {
			return fmt.Errorf("update unread count: %w", err)
		}
		return nil
	}})
	if err != nil {
		return 0, err
	}
	return count, nil
}

// RecordPayment inserts the payment once per external id.
func (r *ConversationRepo) RecordPayment(ctx context.Context, e model.PaymentEffect) (*model.PaymentResult, error) {
	if e.TenantID == "" {
		return nil, ErrTenantIDRequired
	}
	if e.PaymentExternalID == "" {
		return nil, errors.New("payment id is required")
	}
	paidAt := e.PaidAt
	if paidAt.IsZero() {
		paidAt = r.cfg.TimeProvider.Now()
	}

	var res model.PaymentResult
	err := r.DB.QueryRowContext(ctx, `
		INSERT INTO payments (
			id, tenant_id, external_id, invoice_external_id, contact_external_id,
			amount, currency, paid_at, webhook_id
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (tenant_id, external_id) DO NOTHING
		RETURNING id::text`,
		r.cfg.NewID(), e.TenantID, e.PaymentExternalID, e.InvoiceExternalID, e.ContactExternalID,
		e.Amount, e.Currency, paidAt, e.WebhookID,
	).Scan(&res.PaymentID)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		if err = r.DB.QueryRowContext(ctx,
			`SELECT id::text FROM payments WHERE tenant_id = $1 AND external_id = $2`,
			e.TenantID, e.PaymentExternalID,
		).Scan(&res.PaymentID); err != nil {
			return nil, fmt.Errorf("lookup payment: %w", err)
		}
		return &res, nil
	case err != nil:
		return nil, fmt.Errorf("insert payment: %w", apperrors.MapDBError(err))
	}
	res.Inserted = true
	return &res, nil
}

// MessageExists reports whether the message was already stored.
func (r *ConversationRepo) MessageExists(ctx context.Context, tenantID, externalID string) (bool, error) {
	return r.exists(ctx, `SELECT EXISTS (SELECT 1 FROM conversation_messages WHERE tenant_id = $1 AND external_id = $2)`,
		tenantID, externalID)
}

// PaymentExists reports whether the payment was already stored.
func (r *ConversationRepo) PaymentExists(ctx context.Context, tenantID, externalID string) (bool, error) {
	return r.exists(ctx, `SELECT EXISTS (SELECT 1 FROM payments WHERE tenant_id = $1 AND external_id = $2)`,
		tenantID, externalID)
}

func (r *ConversationRepo) exists(ctx context.Context, query, tenantID, externalID string) (bool, error) {
	var ok bool
	if err := r.DB.QueryRowContext(ctx, query, tenantID, externalID).Scan(&ok); err != nil {
		return false, fmt.Errorf("check existence: %w", err)
	}
	return ok, nil
}
