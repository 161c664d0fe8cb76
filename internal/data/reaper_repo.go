package data

import (
	"context"
	"database/sql"
	"time"

	"github.com/target/hookline/internal/core"
)

// ReaperRepo groups the batched cleanup statements run by the reaper.
type ReaperRepo struct {
	queue    *QueueItemRepo
	metrics  *WebhookMetricRepo
	triggers *TriggerRepo
}

// NewReaperRepo creates a ReaperRepo over db.
func NewReaperRepo(db *sql.DB, cfg RepoConfig) *ReaperRepo {
	return &ReaperRepo{
		queue:    NewQueueItemRepo(db, cfg),
		metrics:  NewWebhookMetricRepo(db, cfg),
		triggers: NewTriggerRepo(db, cfg),
	}
}

var _ core.ReaperRepository = (*ReaperRepo)(nil)

func (r *ReaperRepo) DeleteExpiredQueueItems(ctx context.Context, batchSize int) (int64, error) {
	return r.queue.DeleteExpired(ctx, batchSize)
}

func (r *ReaperRepo) RequeueStuckQueueItems(ctx context.Context, visibility time.Duration, batchSize int) (int64, error) {
	return r.queue.RequeueStuck(ctx, visibility, batchSize)
}

func (r *ReaperRepo) DeleteOldMetrics(ctx context.Context, maxAge time.Duration, batchSize int) (int64, error) {
	return r.metrics.DeleteOlderThan(ctx, maxAge, batchSize)
}

func (r *ReaperRepo) DeleteExpiredTriggers(ctx context.Context, maxAge time.Duration, batchSize int) (int64, error) {
	return r.triggers.DeleteExpired(ctx, maxAge, batchSize)
}
