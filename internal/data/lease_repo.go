package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/target/hookline/internal/core"
	"github.com/target/hookline/internal/data/pgxutil"
	"github.com/target/hookline/internal/domain/model"
	apperrors "github.com/target/hookline/internal/errors"
)

// LeaseRepo is the Postgres lease store. Every operation is a single
// conditional statement, so lease_key uniqueness is the only lock involved.
type LeaseRepo struct {
	DB     *sql.DB
	cfg    RepoConfig
	logger *slog.Logger
}

// NewLeaseRepo creates a LeaseRepo.
func NewLeaseRepo(db *sql.DB, cfg RepoConfig) *LeaseRepo {
	cfg = cfg.withDefaults()
	return &LeaseRepo{DB: db, cfg: cfg, logger: cfg.Logger.With("component", "lease_repo")}
}

var _ core.LeaseStore = (*LeaseRepo)(nil)

func validateLeaseArgs(key, holderID string) error {
	if key == "" {
		return ErrLeaseKeyRequired
	}
	if holderID == "" {
		return ErrHolderIDRequired
	}
	return nil
}

// Acquire inserts the lease or takes over a row that is expired or already
// ours. A live lease held by someone else leaves the row untouched and
// returns false.
func (r *LeaseRepo) Acquire(ctx context.Context, key, holderID string, ttl time.Duration) (bool, error) {
	if err := validateLeaseArgs(key, holderID); err != nil {
		return false, err
	}
	now := r.cfg.TimeProvider.Now()

	var holder string
	err := r.DB.QueryRowContext(ctx, `
		INSERT INTO leases (lease_key, holder_id, acquired_at, expires_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (lease_key) DO UPDATE
		SET holder_id = EXCLUDED.holder_id,
		    acquired_at = CASE WHEN leases.holder_id = EXCLUDED.holder_id
		                       THEN leases.acquired_at ELSE EXCLUDED.acquired_at END,
		    expires_at = EXCLUDED.expires_at
		WHERE leases.expires_at <= EXCLUDED.acquired_at
		   OR leases.holder_id = EXCLUDED.holder_id
		RETURNING holder_id`,
		key, holderID, now, now.Add(ttl),
	).Scan(&holder)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("acquire lease: %w", err)
	}
	return holder == holderID, nil
}

// Renew extends a live lease held by holderID.
func (r *LeaseRepo) Renew(ctx context.Context, key, holderID string, ttl time.Duration) (bool, error) {
	if err := validateLeaseArgs(key, holderID); err != nil {
		return false, err
	}
	now := r.cfg.TimeProvider.Now()
	res, err := r.DB.ExecContext(ctx, `
		UPDATE leases SET expires_at = $3
		WHERE lease_key = $1 AND holder_id = $2 AND expires_at > $4`,
		key, holderID, now.Add(ttl), now)
	if err != nil {
		return false, fmt.Errorf("renew lease: %w", err)
	}
	n, err := rowsAffected(res, "renew lease")
	return n > 0, err
}

// Release deletes the lease if holderID still holds it.
func (r *LeaseRepo) Release(ctx context.Context, key, holderID string) (bool, error) {
	if err := validateLeaseArgs(key, holderID); err != nil {
		return false, err
	}
	res, err := r.DB.ExecContext(ctx,
		`DELETE FROM leases WHERE lease_key = $1 AND holder_id = $2`, key, holderID)
	if err != nil {
		return false, fmt.Errorf("release lease: %w", err)
	}
	n, err := rowsAffected(res, "release lease")
	return n > 0, err
}

// ReclaimExpired deletes expired leases. Expired rows never block Acquire;
// this only keeps the table small.
func (r *LeaseRepo) ReclaimExpired(ctx context.Context) (int64, error) {
	now := r.cfg.TimeProvider.Now()
	var affected int64
	err := pgxutil.WithSQLTx(ctx, r.DB, pgxutil.SQLTxConfig{Fn: func(tx *sql.Tx) error {
		locked, err := tryAdvisoryXactLock(ctx, tx, advisoryLockRequeueMajor, advisoryLockMinorLeasesExpired)
		if err != nil || !locked {
			return err
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM leases WHERE expires_at <= $1`, now)
		if err != nil {
			return fmt.Errorf("reclaim expired leases: %w", err)
		}
		affected, err = rowsAffected(res, "reclaim expired leases")
		return err
	}})
	if err != nil {
		return 0, err
	}
	if affected > 0 {
		r.logger.InfoContext(ctx, "reclaimed expired leases", "count", affected)
	}
	return affected, nil
}

// List returns live leases ordered by key.
func (r *LeaseRepo) List(ctx context.Context) ([]model.Lease, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT lease_key, holder_id, acquired_at, expires_at
		FROM leases
		WHERE expires_at > $1
		ORDER BY lease_key`, r.cfg.TimeProvider.Now())
	if err != nil {
		return nil, fmt.Errorf("list leases: %w", apperrors.MapDBError(err))
	}
	defer rows.Close()

	var out []model.Lease
	for rows.Next() {
		var l model.Lease
		if scanErr := rows.Scan(&l.Key, &l.HolderID, &l.AcquiredAt, &l.ExpiresAt); scanErr != nil {
			return nil, fmt.Errorf("scan lease: %w", scanErr)
		}
		out = append(out, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate leases: %w", err)
	}
	return out, nil
}
