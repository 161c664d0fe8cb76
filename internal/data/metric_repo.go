package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/target/hookline/internal/core"
	"github.com/target/hookline/internal/data/pgxutil"
	"github.com/target/hookline/internal/domain/model"
	apperrors "github.com/target/hookline/internal/errors"
)

// WebhookMetricRepo stores per-webhook timing rows.
type WebhookMetricRepo struct {
	DB  *sql.DB
	cfg RepoConfig
}

// NewWebhookMetricRepo creates a WebhookMetricRepo.
func NewWebhookMetricRepo(db *sql.DB, cfg RepoConfig) *WebhookMetricRepo {
	return &WebhookMetricRepo{DB: db, cfg: cfg.withDefaults()}
}

var _ core.WebhookMetricRepository = (*WebhookMetricRepo)(nil)

// Record inserts m, assigning an id when empty.
func (r *WebhookMetricRepo) Record(ctx context.Context, m *model.WebhookMetric) error {
	if m == nil {
		return errors.New("metric is required")
	}
	if m.ID == "" {
		m.ID = r.cfg.NewID()
	}
	_, err := r.DB.ExecContext(ctx, `
		INSERT INTO webhook_metrics (
			id, webhook_id, type, tenant_id, path, received_at,
			processing_started_at, processing_completed_at, success, error
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		m.ID,
		m.WebhookID,
		string(m.Type),
		m.TenantID,
		string(m.Path),
		m.ReceivedAt,
		m.ProcessingStartedAt,
		m.ProcessingCompletedAt,
		m.Success,
		m.Error,
	)
	if err != nil {
		return fmt.Errorf("insert webhook metric: %w", apperrors.MapDBError(err))
	}
	return nil
}

// Summary aggregates rows received at or after since. Latency is measured
// from receipt to processing completion.
func (r *WebhookMetricRepo) Summary(ctx context.Context, since time.Time) (*model.MetricSummary, error) {
	var (
		s         model.MetricSummary
		avgMillis float64
		p95Millis float64
	)
	err := r.DB.QueryRowContext(ctx, `
		WITH w AS (
			SELECT success, path,
			       EXTRACT(EPOCH FROM (processing_completed_at - received_at)) * 1000 AS latency_ms
			FROM webhook_metrics
			WHERE received_at >= $1
		)
		SELECT COUNT(*),
		       COUNT(*) FILTER (WHERE success),
		       COUNT(*) FILTER (WHERE NOT success),
		       COALESCE(AVG(latency_ms), 0)::float8,
		       COALESCE(percentile_cont(0.95) WITHIN GROUP (ORDER BY latency_ms), 0)::float8,
		       COUNT(*) FILTER (WHERE path = 'direct'),
		       COUNT(*) FILTER (WHERE path = 'direct' AND NOT success)
		FROM w`, since,
	).Scan(&s.Total, &s.Succeeded, &s.Failed, &avgMillis, &p95Millis, &s.DirectTotal, &s.DirectFailed)
	if err != nil {
		return nil, fmt.Errorf("summarize webhook metrics: %w", apperrors.MapDBError(err))
	}
	s.AvgLatency = time.Duration(avgMillis * float64(time.Millisecond))
	s.P95Latency = time.Duration(p95Millis * float64(time.Millisecond))
	return &s, nil
}

// DeleteOlderThan removes up to batchSize rows received before now-maxAge.
func (r *WebhookMetricRepo) DeleteOlderThan(ctx context.Context, maxAge time.Duration, batchSize int) (int64, error) {
	if maxAge <= 0 || batchSize <= 0 {
		return 0, nil
	}
	cutoff := r.cfg.TimeProvider.Now().Add(-maxAge)
	var affected int64

	err := pgxutil.WithSQLTx(ctx, r.DB, pgxutil.SQLTxConfig{Fn: func(tx *sql.Tx) error {
		locked, err := tryAdvisoryXactLock(ctx, tx, advisoryLockReaperMajor, advisoryLockMinorMetricsOld)
		if err != nil || !locked {
			return err
		}
		res, err := tx.ExecContext(ctx, `
			DELETE FROM webhook_metrics
			WHERE id IN (
				SELECT id FROM webhook_metrics
				WHERE received_at < $1
				ORDER BY received_at
				LIMIT $2
			)`, cutoff, batchSize)
		if err != nil {
			return fmt.Errorf("delete old webhook metrics: %w", err)
		}
		affected, err = rowsAffected(res, "delete old webhook metrics")
		return err
	}})
	if err != nil {
		return 0, err
	}
	return affected, nil
}
