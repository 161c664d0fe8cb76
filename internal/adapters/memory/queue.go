package memory

import (
	"cmp"
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/target/hookline/internal/core"
	"github.com/target/hookline/internal/domain/model"
)

// Queue is an in-process durable-queue stand-in with the same claim and
// failure semantics as the Postgres store.
type Queue struct {
	mu    sync.Mutex
	items map[string]*model.QueueItem
	seq   map[string]int64
	next  int64
	dedup map[string]string
	now   Clock
	ttl   time.Duration
}

var (
	_ core.QueueRepository  = (*Queue)(nil)
	_ core.QueueMaintenance = (*Queue)(nil)
)

// NewQueue returns an empty Queue. ttl defaults to seven days.
func NewQueue(now Clock, ttl time.Duration) *Queue {
	if now == nil {
		now = time.Now
	}
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	return &Queue{
		items: make(map[string]*model.QueueItem),
		seq:   make(map[string]int64),
		dedup: make(map[string]string),
		now:   now,
		ttl:   ttl,
	}
}

func cloneItem(it *model.QueueItem) *model.QueueItem {
	cp := *it
	cp.Payload = slices.Clone(it.Payload)
	return &cp
}

// Enqueue stores a pending item.
func (q *Queue) Enqueue(_ context.Context, req *model.EnqueueRequest) (*model.QueueItem, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	q.mu.Lock()
	defer q.mu.Unlock()

	if req.DedupKey != "" {
		if _, ok := q.dedup[req.DedupKey]; ok {
			return nil, model.ErrDuplicateQueueItem
		}
	}
	now := q.now()
	ttl := req.TTL
	if ttl <= 0 {
		ttl = q.ttl
	}
	maxAttempts := req.MaxAttempts
	if maxAttempts == 0 {
		maxAttempts = model.DefaultMaxAttempts
	}
	it := &model.QueueItem{
		ID:           uuid.NewString(),
		WebhookID:    req.WebhookID,
		Type:         req.Type,
		TenantID:     req.TenantID,
		Queue:        req.Route.Queue,
		Priority:     req.Route.Priority,
		Payload:      slices.Clone(req.Payload),
		Metadata:     req.Metadata,
		Status:       model.QueueItemStatusPending,
		MaxAttempts:  maxAttempts,
		QueuedAt:     now,
		ProcessAfter: now,
		ExpiresAt:    now.Add(ttl),
	}
	if req.DedupKey != "" {
		key := req.DedupKey
		it.DedupKey = &key
		q.dedup[key] = it.ID
	}
	q.items[it.ID] = it
	q.next++
	q.seq[it.ID] = q.next
	return cloneItem(it), nil
}

// ClaimNext moves up to limit due pending items of queue to processing.
func (q *Queue) ClaimNext(_ context.Context, queue model.QueueName, limit int) ([]*model.QueueItem, error) {
	if limit <= 0 {
		return nil, nil
	}
	q.mu.Lock()
	defer q.mu.Unlock()

	now := q.now()
	var due []*model.QueueItem
	for _, it := range q.items {
		if it.Queue == queue && it.Status == model.QueueItemStatusPending &&
			!it.ProcessAfter.After(now) && it.ExpiresAt.After(now) {
			due = append(due, it)
		}
	}
	slices.SortFunc(due, func(a, b *model.QueueItem) int {
		if c := cmp.Compare(a.Priority, b.Priority); c != 0 {
			return c
		}
		if c := a.QueuedAt.Compare(b.QueuedAt); c != 0 {
			return c
		}
		return cmp.Compare(q.seq[a.ID], q.seq[b.ID])
	})
	if len(due) > limit {
		due = due[:limit]
	}
	out := make([]*model.QueueItem, 0, len(due))
	for _, it := range due {
		it.Status = model.QueueItemStatusProcessing
		claimed := now
		it.ClaimedAt = &claimed
		out = append(out, cloneItem(it))
	}
	return out, nil
}

// Complete marks a processing item completed.
func (q *Queue) Complete(_ context.Context, id string) (bool, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	it, ok := q.items[id]
	if !ok || it.Status != model.QueueItemStatusProcessing {
		return false, nil
	}
	done := q.now()
	it.Status = model.QueueItemStatusCompleted
	it.CompletedAt = &done
	return true, nil
}

// Fail records a failed attempt on a processing item.
func (q *Queue) Fail(_ context.Context, p core.FailQueueItemParams) (*model.QueueItem, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	it, ok := q.items[p.ID]
	if !ok || it.Status != model.QueueItemStatusProcessing {
		return nil, model.ErrNotClaimed
	}
	now := q.now()
	msg := p.Error
	it.LastError = &msg
	it.ClaimedAt = nil
	if p.ShouldRetry && it.Attempts+1 < it.MaxAttempts {
		it.Status = model.QueueItemStatusPending
		it.ProcessAfter = now.Add(p.RetryDelay)
	} else {
		it.Status = model.QueueItemStatusFailed
		it.CompletedAt = &now
	}
	it.Attempts++
	return cloneItem(it), nil
}

// ExistsByDedupKey reports whether an item with key was enqueued.
func (q *Queue) ExistsByDedupKey(_ context.Context, key string) (bool, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	_, ok := q.dedup[key]
	return ok, nil
}

// Stats returns per-queue counts for queues holding at least one item.
func (q *Queue) Stats(_ context.Context, stuckAfter time.Duration) ([]model.QueueDepth, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	cutoff := q.now().Add(-stuckAfter)
	byQueue := make(map[model.QueueName]*model.QueueDepth)
	for _, it := range q.items {
		d, ok := byQueue[it.Queue]
		if !ok {
			d = &model.QueueDepth{Queue: it.Queue}
			byQueue[it.Queue] = d
		}
		switch it.Status {
		case model.QueueItemStatusPending:
			d.Pending++
		case model.QueueItemStatusProcessing:
			d.Processing++
			if it.ClaimedAt != nil && it.ClaimedAt.Before(cutoff) {
				d.Stuck++
			}
		case model.QueueItemStatusCompleted:
			d.Completed++
		case model.QueueItemStatusFailed:
			d.Failed++
		}
	}
	out := make([]model.QueueDepth, 0, len(byQueue))
	for _, d := range byQueue {
		out = append(out, *d)
	}
	slices.SortFunc(out, func(a, b model.QueueDepth) int { return cmp.Compare(a.Queue, b.Queue) })
	return out, nil
}

// RequeueStuck returns items claimed before now-visibility to pending.
func (q *Queue) RequeueStuck(_ context.Context, visibility time.Duration, batchSize int) (int64, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	now := q.now()
	cutoff := now.Add(-visibility)
	var n int64
	for _, it := range q.items {
		if n >= int64(batchSize) {
			break
		}
		if it.Status != model.QueueItemStatusProcessing || it.ClaimedAt == nil || !it.ClaimedAt.Before(cutoff) {
			continue
		}
		it.Attempts++
		msg := "visibility timeout exceeded"
		it.LastError = &msg
		it.ClaimedAt = nil
		if it.Attempts >= it.MaxAttempts {
			it.Status = model.QueueItemStatusFailed
			it.CompletedAt = &now
		} else {
			it.Status = model.QueueItemStatusPending
			it.ProcessAfter = now
		}
		n++
	}
	return n, nil
}

// DeleteExpired removes up to batchSize items past their expiry.
func (q *Queue) DeleteExpired(_ context.Context, batchSize int) (int64, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	now := q.now()
	var n int64
	for id, it := range q.items {
		if n >= int64(batchSize) {
			break
		}
		if it.ExpiresAt.After(now) {
			continue
		}
		delete(q.items, id)
		delete(q.seq, id)
		if it.DedupKey != nil {
			delete(q.dedup, *it.DedupKey)
		}
		n++
	}
	return n, nil
}

// Get returns a copy of the item with id, or nil.
func (q *Queue) Get(id string) *model.QueueItem {
	q.mu.Lock()
	defer q.mu.Unlock()
	if it, ok := q.items[id]; ok {
		return cloneItem(it)
	}
	return nil
}

// Items returns copies of every stored item in enqueue order.
func (q *Queue) Items() []*model.QueueItem {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]*model.QueueItem, 0, len(q.items))
	for _, it := range q.items {
		out = append(out, cloneItem(it))
	}
	slices.SortFunc(out, func(a, b *model.QueueItem) int { return cmp.Compare(q.seq[a.ID], q.seq[b.ID]) })
	return out
}
