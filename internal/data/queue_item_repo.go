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

// QueueItemRepo is the Postgres-backed durable queue.
type QueueItemRepo struct {
	DB     *sql.DB
	cfg    RepoConfig
	logger *slog.Logger
}

// NewQueueItemRepo creates a QueueItemRepo.
func NewQueueItemRepo(db *sql.DB, cfg RepoConfig) *QueueItemRepo {
	cfg = cfg.withDefaults()
	return &QueueItemRepo{
		DB:     db,
		cfg:    cfg,
		logger: cfg.Logger.With("component", "queue_item_repo"),
	}
}

var (
	_ core.QueueRepository  = (*QueueItemRepo)(nil)
	_ core.QueueMaintenance = (*QueueItemRepo)(nil)
)

const queueItemColumns = `
  id,
  webhook_id,
  type,
  tenant_id,
  queue_name,
  priority,
  payload,
  metadata,
  dedup_key,
  status,
  attempts,
  max_attempts,
  last_error,
  queued_at,
  process_after,
  claimed_at,
  completed_at,
  expires_at
`

func scanQueueItem(s rowScanner) (*model.QueueItem, error) {
	var (
		item      model.QueueItem
		metadata  []byte
		dedupKey  sql.NullString
		lastError sql.NullString
		claimedAt sql.NullTime
		doneAt    sql.NullTime
	)
	if err := s.Scan(
		&item.ID,
		&item.WebhookID,
		&item.Type,
		&item.TenantID,
		&item.Queue,
		&item.Priority,
		&item.Payload,
		&metadata,
		&dedupKey,
		&item.Status,
		&item.Attempts,
		&item.MaxAttempts,
		&lastError,
		&item.QueuedAt,
		&item.ProcessAfter,
		&claimedAt,
		&doneAt,
		&item.ExpiresAt,
	); err != nil {
		return nil, err
	}
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &item.Metadata); err != nil {
			return nil, fmt.Errorf("decode queue item metadata: %w", err)
		}
	}
	item.DedupKey = nullStringPtr(dedupKey)
	item.LastError = nullStringPtr(lastError)
	item.ClaimedAt = nullTimePtr(claimedAt)
	item.CompletedAt = nullTimePtr(doneAt)
	return &item, nil
}

func scanQueueItems(rows *sql.Rows) ([]*model.QueueItem, error) {
	defer rows.Close()
	var items []*model.QueueItem
	for rows.Next() {
		item, err := scanQueueItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan queue item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate queue items: %w", err)
	}
	return items, nil
}

// Enqueue persists a pending item. A dedup key collision returns
// model.ErrDuplicateQueueItem and leaves the existing row untouched.
func (r *QueueItemRepo) Enqueue(ctx context.Context, req *model.EnqueueRequest) (*model.QueueItem, error) {
	if req == nil {
		return nil, errors.New("enqueue request is required")
	}
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("validate enqueue request: %w", err)
	}

	metadata, err := json.Marshal(req.Metadata)
	if err != nil {
		return nil, fmt.Errorf("encode queue item metadata: %w", err)
	}

	maxAttempts := req.MaxAttempts
	if maxAttempts == 0 {
		maxAttempts = model.DefaultMaxAttempts
	}
	ttl := req.TTL
	if ttl <= 0 {
		ttl = r.cfg.QueueItemTTL
	}
	now := r.cfg.TimeProvider.Now()

	query := `
		INSERT INTO queue_items (
			id, webhook_id, type, tenant_id, queue_name, priority, payload, metadata,
			dedup_key, status, attempts, max_attempts, queued_at, process_after, expires_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, 'pending', 0, $10, $11, $11, $12)
		ON CONFLICT (dedup_key) WHERE dedup_key IS NOT NULL DO NOTHING
		RETURNING ` + queueItemColumns

	item, err := scanQueueItem(r.DB.QueryRowContext(ctx, query,
		r.cfg.NewID(),
		req.WebhookID,
		string(req.Type),
		req.TenantID,
		string(req.Route.Queue),
		req.Route.Priority,
		[]byte(req.Payload),
		metadata,
		nullIfEmpty(req.DedupKey),
		maxAttempts,
		now,
		now.Add(ttl),
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) || isUniqueViolation(err) {
			return nil, model.ErrDuplicateQueueItem
		}
		return nil, fmt.Errorf("insert queue item: %w", apperrors.MapDBError(err))
	}
	return item, nil
}

// ClaimNext atomically moves up to limit due items of queue from pending to
// processing. Concurrent claimers skip rows locked by each other, so an item
// is handed to at most one caller.
func (r *QueueItemRepo) ClaimNext(ctx context.Context, queue model.QueueName, limit int) ([]*model.QueueItem, error) {
	if limit <= 0 {
		limit = 1
	}
	now := r.cfg.TimeProvider.Now()

	query := `
		WITH next AS (
			SELECT id
			FROM queue_items
			WHERE queue_name = $1
			  AND status = 'pending'
			  AND process_after <= $2
			  AND expires_at > $2
			ORDER BY priority ASC, queued_at ASC
			LIMIT $3
			FOR UPDATE SKIP LOCKED
		)
		UPDATE queue_items q
		SET status = 'processing', claimed_at = $2
		FROM next
		WHERE q.id = next.id AND q.status = 'pending'
		RETURNING ` + prefixColumns("q", queueItemColumns)

	rows, err := r.DB.QueryContext(ctx, query, string(queue), now, limit)
	if err != nil {
		return nil, fmt.Errorf("claim queue items: %w", apperrors.MapDBError(err))
	}
	items, err := scanQueueItems(rows)
	if err != nil {
		return nil, err
	}
	sortQueueItems(items)
	return items, nil
}

// Complete marks a processing item completed.
func (r *QueueItemRepo) Complete(ctx context.Context, id string) (bool, error) {
	if id == "" {
		return false, ErrQueueItemIDRequired
	}
	res, err := r.DB.ExecContext(ctx, `
		UPDATE queue_items
		SET status = 'completed', completed_at = $2, last_error = NULL
		WHERE id = $1 AND status = 'processing'`,
		id, r.cfg.TimeProvider.Now())
	if err != nil {
		return false, fmt.Errorf("complete queue item: %w", err)
	}
	n, err := rowsAffected(res, "complete queue item")
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Fail records a failed attempt. The item returns to pending, delayed by
// RetryDelay, while ShouldRetry holds and attempts remain; otherwise it is
// marked failed. Items no longer processing yield model.ErrNotClaimed.
func (r *QueueItemRepo) Fail(ctx context.Context, params core.FailQueueItemParams) (*model.QueueItem, error) {
	if params.ID == "" {
		return nil, ErrQueueItemIDRequired
	}
	now := r.cfg.TimeProvider.Now()
	delay := params.RetryDelay
	if delay < 0 {
		delay = 0
	}

	query := `
		UPDATE queue_items
		SET attempts = attempts + 1,
		    last_error = $2,
		    status = CASE WHEN $3::boolean AND attempts + 1 < max_attempts THEN 'pending' ELSE 'failed' END,
		    process_after = CASE WHEN $3::boolean AND attempts + 1 < max_attempts THEN $5::timestamptz ELSE process_after END,
		    claimed_at = NULL,
		    completed_at = CASE WHEN $3::boolean AND attempts + 1 < max_attempts THEN NULL ELSE $4::timestamptz END
		WHERE id = $1 AND status = 'processing'
		RETURNING ` + queueItemColumns

	item, err := scanQueueItem(r.DB.QueryRowContext(ctx, query,
		params.ID, params.Error, params.ShouldRetry, now, now.Add(delay)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrNotClaimed
		}
		return nil, fmt.Errorf("fail queue item: %w", err)
	}
	return item, nil
}

// ExistsByDedupKey reports whether any item carries key.
func (r *QueueItemRepo) ExistsByDedupKey(ctx context.Context, key string) (bool, error) {
	if key == "" {
		return false, nil
	}
	var exists bool
	if err := r.DB.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM queue_items WHERE dedup_key = $1)`, key,
	).Scan(&exists); err != nil {
		return false, fmt.Errorf("check queue dedup key: %w", err)
	}
	return exists, nil
}

// GetByID returns a single item, or nil when it does not exist.
func (r *QueueItemRepo) GetByID(ctx context.Context, id string) (*model.QueueItem, error) {
	item, err := scanQueueItem(r.DB.QueryRowContext(ctx,
		`SELECT `+queueItemColumns+` FROM queue_items WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get queue item: %w", err)
	}
	return item, nil
}

// Stats returns per-queue depth counters. Processing items claimed more than
// stuckAfter ago are also counted as stuck.
func (r *QueueItemRepo) Stats(ctx context.Context, stuckAfter time.Duration) ([]model.QueueDepth, error) {
	cutoff := r.cfg.TimeProvider.Now().Add(-stuckAfter)
	rows, err := r.DB.QueryContext(ctx, `
		SELECT queue_name,
		       COUNT(*) FILTER (WHERE status = 'pending'),
		       COUNT(*) FILTER (WHERE status = 'processing'),
		       COUNT(*) FILTER (WHERE status = 'completed'),
		       COUNT(*) FILTER (WHERE status = 'failed'),
		       COUNT(*) FILTER (WHERE status = 'processing' AND claimed_at < $1)
		FROM queue_items
		GROUP BY queue_name
		ORDER BY queue_name`, cutoff)
	if err != nil {
		return nil, fmt.Errorf("queue stats: %w", apperrors.MapDBError(err))
	}
	defer rows.Close()

	var out []model.QueueDepth
	for rows.Next() {
		var d model.QueueDepth
		if scanErr := rows.Scan(&d.Queue, &d.Pending, &d.Processing, &d.Completed, &d.Failed, &d.Stuck); scanErr != nil {
			return nil, fmt.Errorf("scan queue stats: %w", scanErr)
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate queue stats: %w", err)
	}
	return out, nil
}

// RequeueStuck returns processing items whose claim is older than visibility
// to pending, counting the lost claim as an attempt. Items with no attempts
// left are marked failed instead. Only one instance sweeps at a time.
func (r *QueueItemRepo) RequeueStuck(ctx context.Context, visibility time.Duration, batchSize int) (int64, error) {
	if visibility <= 0 || batchSize <= 0 {
		return 0, nil
	}
	now := r.cfg.TimeProvider.Now()
	var affected int64

	err := pgxutil.WithSQLTx(ctx, r.DB, pgxutil.SQLTxConfig{Fn: func(tx *sql.Tx) error {
		locked, err := tryAdvisoryXactLock(ctx, tx, advisoryLockRequeueMajor, advisoryLockMinorQueueStuck)
		if err != nil || !locked {
			return err
		}
		res, err := tx.ExecContext(ctx, `
			UPDATE queue_items
			SET status = CASE WHEN attempts + 1 >= max_attempts THEN 'failed' ELSE 'pending' END,
			    completed_at = CASE WHEN attempts + 1 >= max_attempts THEN $1::timestamptz ELSE NULL END,
			    attempts = attempts + 1,
			    last_error = 'visibility timeout exceeded',
			    claimed_at = NULL
			WHERE id IN (
				SELECT id FROM queue_items
				WHERE status = 'processing' AND claimed_at < $2
				ORDER BY claimed_at
				LIMIT $3
				FOR UPDATE SKIP LOCKED
			)`, now, now.Add(-visibility), batchSize)
		if err != nil {
			return fmt.Errorf("requeue stuck queue items: %w", err)
		}
		affected, err = rowsAffected(res, "requeue stuck queue items")
		return err
	}})
	if err != nil {
		return 0, err
	}
	if affected > 0 {
		r.logger.InfoContext(ctx, "requeued stuck queue items", "count", affected, "visibility", visibility)
	}
	return affected, nil
}

// DeleteExpired removes up to batchSize items past their expiry, whatever
// their status.
func (r *QueueItemRepo) DeleteExpired(ctx context.Context, batchSize int) (int64, error) {
	if batchSize <= 0 {
		return 0, nil
	}
	now := r.cfg.TimeProvider.Now()
	var affected int64

	err := pgxutil.WithSQLTx(ctx, r.DB, pgxutil.SQLTxConfig{Fn: func(tx *sql.Tx) error {
		locked, err := tryAdvisoryXactLock(ctx, tx, advisoryLockReaperMajor, advisoryLockMinorQueueExpired)
		if err != nil || !locked {
			return err
		}
		res, err := tx.ExecContext(ctx, `
			DELETE FROM queue_items
			WHERE id IN (
				SELECT id FROM queue_items
				WHERE expires_at < $1
				ORDER BY expires_at
				LIMIT $2
			)`, now, batchSize)
		if err != nil {
			return fmt.Errorf("delete expired queue items: %w", err)
		}
		affected, err = rowsAffected(res, "delete expired queue items")
		return err
	}})
	if err != nil {
		return 0, err
	}
	return affected, nil
}
