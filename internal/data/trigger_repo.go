package data

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/target/hookline/internal/core"
	"github.com/target/hookline/internal/data/pgxutil"
	"github.com/target/hookline/internal/domain/model"
)

// TriggerRepo writes automation triggers and tracks per-entity stages.
type TriggerRepo struct {
	DB     *sql.DB
	cfg    RepoConfig
	logger *slog.Logger
}

// NewTriggerRepo creates a TriggerRepo.
func NewTriggerRepo(db *sql.DB, cfg RepoConfig) *TriggerRepo {
	cfg = cfg.withDefaults()
	return &TriggerRepo{DB: db, cfg: cfg, logger: cfg.Logger.With("component", "trigger_repo")}
}

var (
	_ core.TriggerRepository = (*TriggerRepo)(nil)
	_ core.StageTracker      = (*TriggerRepo)(nil)
)

// Create inserts a pending trigger. ID, timestamp and expiry are filled in
// when the caller leaves them zero.
func (r *TriggerRepo) Create(ctx context.Context, trigger *model.AutomationTrigger) (*model.AutomationTrigger, error) {
	if trigger == nil {
		return nil, errors.New("trigger is required")
	}
	if trigger.TenantID == "" {
		return nil, ErrTenantIDRequired
	}
	if trigger.TriggerType == "" || trigger.EntityType == "" || trigger.EntityExternalID == "" {
		return nil, errors.New("trigger type and entity are required")
	}

	out := *trigger
	if out.ID == "" {
		out.ID = r.cfg.NewID()
	}
	if out.Timestamp.IsZero() {
		out.Timestamp = r.cfg.TimeProvider.Now()
	}
	if out.ExpiresAt.IsZero() {
		out.ExpiresAt = out.Timestamp.Add(r.cfg.TriggerTTL)
	}
	out.Status = model.TriggerStatusPending
	if len(out.Data) == 0 {
		out.Data = json.RawMessage(`{}`)
	}

	resolved, err := json.Marshal(out.Resolved)
	if err != nil {
		return nil, fmt.Errorf("encode resolved entities: %w", err)
	}

	_, err = r.DB.ExecContext(ctx, `
		INSERT INTO automation_triggers (
			id, trigger_type, entity_type, entity_external_id, tenant_id, webhook_id,
			resolved_entities, data, status, attempts, created_at, expires_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		out.ID,
		string(out.TriggerType),
		string(out.EntityType),
		out.EntityExternalID,
		out.TenantID,
		out.WebhookID,
		resolved,
		[]byte(out.Data),
		string(out.Status),
		out.Attempts,
		out.Timestamp,
		out.ExpiresAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert automation trigger: %w", err)
	}
	return &out, nil
}

// ExistsPendingSince reports whether a pending trigger for the same type and
// entity was written at or after params.Since.
func (r *TriggerRepo) ExistsPendingSince(ctx context.Context, params core.TriggerExistsParams) (bool, error) {
	var exists bool
	err := r.DB.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM automation_triggers
			WHERE tenant_id = $1
			  AND trigger_type = $2
			  AND entity_type = $3
			  AND entity_external_id = $4
			  AND status = 'pending'
			  AND created_at >= $5
		)`,
		params.TenantID,
		string(params.TriggerType),
		string(params.EntityType),
		params.EntityExternalID,
		params.Since,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check pending trigger: %w", err)
	}
	return exists, nil
}

// AdvanceStage records stage for the entity. It reports true only for the
// write that changed the stored value; concurrent writers of the same stage
// serialize on the primary key and all but one see false.
func (r *TriggerRepo) AdvanceStage(ctx context.Context, params core.AdvanceStageParams) (bool, error) {
	if params.TenantID == "" {
		return false, ErrTenantIDRequired
	}
	res, err := r.DB.ExecContext(ctx, `
		INSERT INTO entity_stages (tenant_id, entity_type, entity_external_id, stage, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (tenant_id, entity_type, entity_external_id) DO UPDATE
		SET stage = EXCLUDED.stage, updated_at = EXCLUDED.updated_at
		WHERE entity_stages.stage IS DISTINCT FROM EXCLUDED.stage`,
		params.TenantID,
		string(params.EntityType),
		params.EntityExternalID,
		params.Stage,
		r.cfg.TimeProvider.Now(),
	)
	if err != nil {
		return false, fmt.Errorf("advance entity stage: %w", err)
	}
	n, err := rowsAffected(res, "advance entity stage")
	return n > 0, err
}

// DeleteExpired removes triggers past expires_at, or older than maxAge when
// maxAge is positive.
func (r *TriggerRepo) DeleteExpired(ctx context.Context, maxAge time.Duration, batchSize int) (int64, error) {
	if batchSize <= 0 {
		return 0, nil
	}
	now := r.cfg.TimeProvider.Now()
	cutoff := now
	if maxAge > 0 {
		cutoff = now.Add(-maxAge)
	}
	var affected int64

	err := pgxutil.WithSQLTx(ctx, r.DB, pgxutil.SQLTxConfig{Fn: func(tx *sql.Tx) error {
		locked, err := tryAdvisoryXactLock(ctx, tx, advisoryLockReaperMajor, advisoryLockMinorTriggersOld)
		if err != nil || !locked {
			return err
		}
		res, err := tx.ExecContext(ctx, `
			DELETE FROM automation_triggers
			WHERE id IN (
				SELECT id FROM automation_triggers
				WHERE expires_at < $1 OR created_at < $2
				ORDER BY created_at
				LIMIT $3
			)`, now, cutoff, batchSize)
		if err != nil {
			return fmt.Errorf("delete expired triggers: %w", err)
		}
		affected, err = rowsAffected(res, "delete expired triggers")
		return err
	}})
	if err != nil {
		return 0, err
	}
	return affected, nil
}
