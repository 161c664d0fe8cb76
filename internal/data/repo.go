package data

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/target/hookline/internal/domain/model"
)

// Advisory lock namespaces. The major key identifies the subsystem; the
// minor key identifies the operation so unrelated sweeps never contend.
const (
	advisoryLockReaperMajor  int32 = 1000
	advisoryLockRequeueMajor int32 = 1001

	advisoryLockMinorQueueExpired  int32 = 1
	advisoryLockMinorMetricsOld    int32 = 2
	advisoryLockMinorTriggersOld   int32 = 3
	advisoryLockMinorRetryPurge    int32 = 4
	advisoryLockMinorQueueStuck    int32 = 1
	advisoryLockMinorRetryStuck    int32 = 2
	advisoryLockMinorLeasesExpired int32 = 3
)

// RepoConfig holds configuration shared by the Postgres repositories.
type RepoConfig struct {
	Logger       *slog.Logger
	TimeProvider TimeProvider
	// QueueItemTTL is the default expiry for queue items.
	QueueItemTTL time.Duration
	// TriggerTTL is the expiry written on automation triggers.
	TriggerTTL time.Duration
	// NewID generates primary keys. Defaults to uuid.NewString.
	NewID func() string
}

func (c RepoConfig) withDefaults() RepoConfig {
	if c.TimeProvider == nil {
		c.TimeProvider = RealTimeProvider{}
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	if c.QueueItemTTL <= 0 {
		c.QueueItemTTL = 7 * 24 * time.Hour
	}
	if c.TriggerTTL <= 0 {
		c.TriggerTTL = 30 * 24 * time.Hour
	}
	if c.NewID == nil {
		c.NewID = uuid.NewString
	}
	return c
}

// tryAdvisoryXactLock takes a transaction-scoped advisory lock. False means
// another instance is already running the same sweep.
func tryAdvisoryXactLock(ctx context.Context, tx *sql.Tx, major, minor int32) (bool, error) {
	var locked bool
	if err := tx.QueryRowContext(ctx, `SELECT pg_try_advisory_xact_lock($1, $2)`, major, minor).Scan(&locked); err != nil {
		return false, fmt.Errorf("acquire advisory lock: %w", err)
	}
	return locked, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func nullStringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

func nullTimePtr(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	t := nt.Time
	return &t
}

func nullFloatPtr(nf sql.NullFloat64) *float64 {
	if !nf.Valid {
		return nil
	}
	f := nf.Float64
	return &f
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// prefixColumns qualifies a comma separated column list with alias.
func prefixColumns(alias, columns string) string {
	parts := strings.Split(columns, ",")
	for i, p := range parts {
		parts[i] = alias + "." + strings.TrimSpace(p)
	}
	return strings.Join(parts, ", ")
}

// sortQueueItems restores claim order; RETURNING does not preserve it.
func sortQueueItems(items []*model.QueueItem) {
	slices.SortStableFunc(items, func(a, b *model.QueueItem) int {
		if a.Priority != b.Priority {
			return a.Priority - b.Priority
		}
		return a.QueuedAt.Compare(b.QueuedAt)
	})
}
