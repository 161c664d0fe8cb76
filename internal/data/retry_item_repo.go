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
	apperrors "github.com/target/hookline/internal/errors"
)

// DefaultRetryMaxAttempts applies when a create request leaves MaxAttempts unset.
const DefaultRetryMaxAttempts = 5

// RetryItemRepo stores work re-attempted by the retry scheduler.
type RetryItemRepo struct {
	DB     *sql.DB
	cfg    RepoConfig
	logger *slog.Logger
}

// NewRetryItemRepo creates a RetryItemRepo.
func NewRetryItemRepo(db *sql.DB, cfg RepoConfig) *RetryItemRepo {
	cfg = cfg.withDefaults()
	return &RetryItemRepo{DB: db, cfg: cfg, logger: cfg.Logger.With("component", "retry_item_repo")}
}

var _ core.RetryRepository = (*RetryItemRepo)(nil)

const retryItemColumns = `
  id,
  webhook_id,
  tenant_id,
  kind,
  payload,
  reason,
  status,
  attempts,
  max_attempts,
  next_retry_at,
  last_error,
  dedup_key,
  created_at,
  updated_at,
  completed_at
`

func scanRetryItem(s rowScanner) (*model.RetryItem, error) {
	var (
		item      model.RetryItem
		lastError sql.NullString
		dedupKey  sql.NullString
		doneAt    sql.NullTime
	)
	if err := s.Scan(
		&item.ID,
		&item.WebhookID,
		&item.TenantID,
		&item.Kind,
		&item.Payload,
		&item.Reason,
		&item.Status,
		&item.Attempts,
		&item.MaxAttempts,
		&item.NextRetryAt,
		&lastError,
		&dedupKey,
		&item.CreatedAt,
		&item.UpdatedAt,
		&doneAt,
	); err != nil {
		return nil, err
	}
	item.LastError = nullStringPtr(lastError)
	item.DedupKey = nullStringPtr(dedupKey)
	item.CompletedAt = nullTimePtr(doneAt)
	return &item, nil
}

// Create persists a pending retry item. The kind is stamped into the
// payload's type field so handlers can dispatch on the payload alone.
func (r *RetryItemRepo) Create(ctx context.Context, req *model.CreateRetryItemRequest) (*model.RetryItem, error) {
	if req == nil {
		return nil, errors.New("retry item request is required")
	}
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("validate retry item request: %w", err)
	}

	body := make(map[string]any, len(req.Payload)+1)
	for k, v := range req.Payload {
		body[k] = v
	}
	body["type"] = string(req.Kind)
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encode retry payload: %w", err)
	}

	maxAttempts := req.MaxAttempts
	if maxAttempts == 0 {
		maxAttempts = DefaultRetryMaxAttempts
	}
	now := r.cfg.TimeProvider.Now()
	next := now
	if req.NextRetryAt != nil {
		next = *req.NextRetryAt
	}

	query := `
		INSERT INTO retry_items (
			id, webhook_id, tenant_id, kind, payload, reason, status, attempts,
			max_attempts, next_retry_at, dedup_key, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, 'pending', 0, $7, $8, $9, $10, $10)
		ON CONFLICT (dedup_key) WHERE dedup_key IS NOT NULL AND status IN ('pending', 'processing') DO NOTHING
		RETURNING ` + retryItemColumns

	item, err := scanRetryItem(r.DB.QueryRowContext(ctx, query,
		r.cfg.NewID(),
		req.WebhookID,
		req.TenantID,
		string(req.Kind),
		payload,
		req.Reason,
		maxAttempts,
		next,
		nullIfEmpty(req.DedupKey),
		now,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) || isUniqueViolation(err) {
			return nil, model.ErrDuplicateRetryItem
		}
		return nil, fmt.Errorf("insert retry item: %w", apperrors.MapDBError(err))
	}
	return item, nil
}

// ClaimDue claims up to limit due items, oldest due first, moving them to
// processing and counting the attempt.
func (r *RetryItemRepo) ClaimDue(ctx context.Context, limit int) ([]*model.RetryItem, error) {
	if limit <= 0 {
		limit = 1
	}
	now := r.cfg.TimeProvider.Now()

	query := `
		WITH due AS (
			SELECT id
			FROM retry_items
			WHERE status = 'pending'
			  AND next_retry_at <= $1
			  AND attempts < max_attempts
			ORDER BY next_retry_at ASC
			LIMIT $2
			FOR UPDATE SKIP LOCKED
		)
		UPDATE retry_items ri
		SET status = 'processing', attempts = ri.attempts + 1, updated_at = $1
		FROM due
		WHERE ri.id = due.id
		RETURNING ` + prefixColumns("ri", retryItemColumns)

	rows, err := r.DB.QueryContext(ctx, query, now, limit)
	if err != nil {
		return nil, fmt.Errorf("claim retry items: %w", apperrors.MapDBError(err))
	}
	defer rows.Close()

	var items []*model.RetryItem
	for rows.Next() {
		item, scanErr := scanRetryItem(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("scan retry item: %w", scanErr)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate retry items: %w", err)
	}
	return items, nil
}

// Complete marks a processing item completed.
func (r *RetryItemRepo) Complete(ctx context.Context, id string) (bool, error) {
	if id == "" {
		return false, ErrRetryItemIDRequired
	}
	now := r.cfg.TimeProvider.Now()
	res, err := r.DB.ExecContext(ctx, `
		UPDATE retry_items
		SET status = 'completed', completed_at = $2, updated_at = $2, last_error = NULL
		WHERE id = $1 AND status = 'processing'`, id, now)
	if err != nil {
		return false, fmt.Errorf("complete retry item: %w", err)
	}
	n, err := rowsAffected(res, "complete retry item")
	return n > 0, err
}

// Fail records the error of the claimed attempt. The item becomes due again
// at NextRetryAt unless it is terminal or out of attempts.
func (r *RetryItemRepo) Fail(ctx context.Context, params model.FailRetryItemParams) (*model.RetryItem, error) {
	if params.ID == "" {
		return nil, ErrRetryItemIDRequired
	}
	now := r.cfg.TimeProvider.Now()

	query := `
		UPDATE retry_items
		SET status = CASE WHEN $3::boolean OR attempts >= max_attempts THEN 'failed' ELSE 'pending' END,
		    completed_at = CASE WHEN $3::boolean OR attempts >= max_attempts THEN $5::timestamptz ELSE NULL END,
		    next_retry_at = $4,
		    last_error = $2,
		    updated_at = $5
		WHERE id = $1 AND status = 'processing'
		RETURNING ` + retryItemColumns

	item, err := scanRetryItem(r.DB.QueryRowContext(ctx, query,
		params.ID, params.Error, params.Terminal, params.NextRetryAt, now))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrNotClaimed
		}
		return nil, fmt.Errorf("fail retry item: %w", err)
	}
	return item, nil
}

// RequeueStuck returns processing items not updated within visibility to
// pending. The claim already counted the attempt, so exhausted items fail.
func (r *RetryItemRepo) RequeueStuck(ctx context.Context, visibility time.Duration) (int64, error) {
	if visibility <= 0 {
		return 0, nil
	}
	now := r.cfg.TimeProvider.Now()
	var affected int64

	err := pgxutil.WithSQLTx(ctx, r.DB, pgxutil.SQLTxConfig{Fn: func(tx *sql.Tx) error {
		locked, err := tryAdvisoryXactLock(ctx, tx, advisoryLockRequeueMajor, advisoryLockMinorRetryStuck)
		if err != nil || !locked {
			return err
		}
		res, err := tx.ExecContext(ctx, `
			UPDATE retry_items
			SET status = CASE WHEN attempts >= max_attempts THEN 'failed' ELSE 'pending' END,
			    completed_at = CASE WHEN attempts >= max_attempts THEN $1::timestamptz ELSE NULL END,
			    last_error = 'visibility timeout exceeded',
			    updated_at = $1
			WHERE status = 'processing' AND updated_at < $2`,
			now, now.Add(-visibility))
		if err != nil {
			return fmt.Errorf("requeue stuck retry items: %w", err)
		}
		affected, err = rowsAffected(res, "requeue stuck retry items")
		return err
	}})
	if err != nil {
		return 0, err
	}
	return affected, nil
}

// PurgeCompleted deletes completed items whose completion is older than maxAge.
func (r *RetryItemRepo) PurgeCompleted(ctx context.Context, maxAge time.Duration) (int64, error) {
	if maxAge <= 0 {
		return 0, nil
	}
	cutoff := r.cfg.TimeProvider.Now().Add(-maxAge)
	var affected int64

	err := pgxutil.WithSQLTx(ctx, r.DB, pgxutil.SQLTxConfig{Fn: func(tx *sql.Tx) error {
		locked, err := tryAdvisoryXactLock(ctx, tx, advisoryLockReaperMajor, advisoryLockMinorRetryPurge)
		if err != nil || !locked {
			return err
		}
		res, err := tx.ExecContext(ctx,
			`DELETE FROM retry_items WHERE status = 'completed' AND completed_at < $1`, cutoff)
		if err != nil {
			return fmt.Errorf("purge completed retry items: %w", err)
		}
		affected, err = rowsAffected(res, "purge completed retry items")
		return err
	}})
	if err != nil {
		return 0, err
	}
	return affected, nil
}
