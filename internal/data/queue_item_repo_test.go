package data

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/target/hookline/internal/core"
	"github.com/target/hookline/internal/domain/model"
	"github.com/target/hookline/internal/testutil"
)

var queueItemColumnNames = []string{
	"id", "webhook_id", "type", "tenant_id", "queue_name", "priority", "payload", "metadata",
	"dedup_key", "status", "attempts", "max_attempts", "last_error", "queued_at", "process_after",
	"claimed_at", "completed_at", "expires_at",
}

func queueItemRow(rows *sqlmock.Rows, id string, status model.QueueItemStatus, attempts int, at time.Time) *sqlmock.Rows {
	return rows.AddRow(
		id, "wh-"+id, "InboundMessage", "loc-1", "messages", 2,
		[]byte(`{"type":"InboundMessage"}`), []byte(`{"directProcessed":true}`),
		nil, string(status), attempts, 3, nil, at, at, nil, nil, at.Add(time.Hour),
	)
}

func newMockQueueRepo(t *testing.T, now time.Time) (*QueueItemRepo, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	repo := NewQueueItemRepo(db, RepoConfig{
		TimeProvider: NewFixedTimeProvider(now),
		NewID:        func() string { return "item-1" },
	})
	return repo, mock
}

func TestQueueItemRepo_EnqueueMock(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("inserts with defaults", func(t *testing.T) {
		repo, mock := newMockQueueRepo(t, now)
		req := testutil.NewEnqueueRequest().WithDedupKey("loc-1:InboundMessage:m1").DirectProcessed().Build()

		mock.ExpectQuery(`INSERT INTO queue_items`).
			WithArgs("item-1", req.WebhookID, string(req.Type), "loc-1", "general", 5,
				[]byte(req.Payload), sqlmock.AnyArg(), "loc-1:InboundMessage:m1",
				model.DefaultMaxAttempts, now, now.Add(7*24*time.Hour)).
			WillReturnRows(queueItemRow(sqlmock.NewRows(queueItemColumnNames), "item-1", model.QueueItemStatusPending, 0, now))

		item, err := repo.Enqueue(context.Background(), req)
		require.NoError(t, err)
		assert.Equal(t, "item-1", item.ID)
		assert.True(t, item.Metadata.DirectProcessed)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("dedup conflict is reported as duplicate", func(t *testing.T) {
		repo, mock := newMockQueueRepo(t, now)
		mock.ExpectQuery(`INSERT INTO queue_items`).WillReturnRows(sqlmock.NewRows(queueItemColumnNames))

		_, err := repo.Enqueue(context.Background(), testutil.NewEnqueueRequest().WithDedupKey("k").Build())
		assert.ErrorIs(t, err, model.ErrDuplicateQueueItem)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("invalid request never reaches the database", func(t *testing.T) {
		repo, mock := newMockQueueRepo(t, now)
		req := testutil.NewEnqueueRequest().WithRoute("bogus", 1).Build()

		_, err := repo.Enqueue(context.Background(), req)
		assert.ErrorContains(t, err, "queue name is invalid")
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestQueueItemRepo_ClaimNextMock(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	repo, mock := newMockQueueRepo(t, now)

	rows := sqlmock.NewRows(queueItemColumnNames)
	queueItemRow(rows, "b", model.QueueItemStatusProcessing, 0, now)
	queueItemRow(rows, "a", model.QueueItemStatusProcessing, 0, now.Add(-time.Minute))
	mock.ExpectQuery(`WITH next AS .* FOR UPDATE SKIP LOCKED .* UPDATE queue_items q`).
		WithArgs("messages", now, 10).
		WillReturnRows(rows)

	items, err := repo.ClaimNext(context.Background(), model.QueueMessages, 10)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "a", items[0].ID, "older item of equal priority comes first")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestQueueItemRepo_FailMock(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("not processing", func(t *testing.T) {
		repo, mock := newMockQueueRepo(t, now)
		mock.ExpectQuery(`UPDATE queue_items`).
			WithArgs("x", "boom", true, now, now.Add(30*time.Second)).
			WillReturnRows(sqlmock.NewRows(queueItemColumnNames))

		_, err := repo.Fail(context.Background(), core.FailQueueItemParams{
			ID: "x", Error: "boom", ShouldRetry: true, RetryDelay: 30 * time.Second,
		})
		assert.ErrorIs(t, err, model.ErrNotClaimed)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing id", func(t *testing.T) {
		repo, _ := newMockQueueRepo(t, now)
		_, err := repo.Fail(context.Background(), core.FailQueueItemParams{})
		assert.ErrorIs(t, err, ErrQueueItemIDRequired)
	})
}

func TestQueueItemRepo_RequeueStuckMock(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("skips when another instance holds the lock", func(t *testing.T) {
		repo, mock := newMockQueueRepo(t, now)
		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT pg_try_advisory_xact_lock`).
			WithArgs(advisoryLockRequeueMajor, advisoryLockMinorQueueStuck).
			WillReturnRows(sqlmock.NewRows([]string{"locked"}).AddRow(false))
		mock.ExpectCommit()

		n, err := repo.RequeueStuck(context.Background(), 5*time.Minute, 100)
		require.NoError(t, err)
		assert.Zero(t, n)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("requeues under the lock", func(t *testing.T) {
		repo, mock := newMockQueueRepo(t, now)
		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT pg_try_advisory_xact_lock`).
			WillReturnRows(sqlmock.NewRows([]string{"locked"}).AddRow(true))
		mock.ExpectExec(`UPDATE queue_items`).
			WithArgs(now, now.Add(-5*time.Minute), 100).
			WillReturnResult(sqlmock.NewResult(0, 3))
		mock.ExpectCommit()

		n, err := repo.RequeueStuck(context.Background(), 5*time.Minute, 100)
		require.NoError(t, err)
		assert.Equal(t, int64(3), n)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rolls back on error", func(t *testing.T) {
		repo, mock := newMockQueueRepo(t, now)
		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT pg_try_advisory_xact_lock`).
			WillReturnRows(sqlmock.NewRows([]string{"locked"}).AddRow(true))
		mock.ExpectExec(`UPDATE queue_items`).WillReturnError(errors.New("conn reset"))
		mock.ExpectRollback()

		_, err := repo.RequeueStuck(context.Background(), 5*time.Minute, 100)
		assert.ErrorContains(t, err, "conn reset")
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestQueueItemRepo_Lifecycle(t *testing.T) {
	testutil.SkipIfNoTestDB(t)

	testutil.WithAutoDB(t, func(db *sql.DB) {
		ctx := context.Background()
		tp := NewFixedTimeProvider(time.Now().UTC().Truncate(time.Millisecond))
		repo := NewQueueItemRepo(db, RepoConfig{TimeProvider: tp})

		item, err := repo.Enqueue(ctx, testutil.NewEnqueueRequest().WithMaxAttempts(2).WithDedupKey("lifecycle").Build())
		require.NoError(t, err)
		assert.Equal(t, model.QueueItemStatusPending, item.Status)

		_, err = repo.Enqueue(ctx, testutil.NewEnqueueRequest().WithDedupKey("lifecycle").Build())
		require.ErrorIs(t, err, model.ErrDuplicateQueueItem)

		exists, err := repo.ExistsByDedupKey(ctx, "lifecycle")
		require.NoError(t, err)
		assert.True(t, exists)

		claimed, err := repo.ClaimNext(ctx, model.QueueGeneral, 5)
		require.NoError(t, err)
		require.Len(t, claimed, 1)
		assert.Equal(t, model.QueueItemStatusProcessing, claimed[0].Status)

		// First failure returns it to pending after the delay.
		failed, err := repo.Fail(ctx, core.FailQueueItemParams{ID: item.ID, Error: "boom", ShouldRetry: true, RetryDelay: time.Minute})
		require.NoError(t, err)
		assert.Equal(t, model.QueueItemStatusPending, failed.Status)
		assert.Equal(t, 1, failed.Attempts)

		claimed, err = repo.ClaimNext(ctx, model.QueueGeneral, 5)
		require.NoError(t, err)
		assert.Empty(t, claimed, "item is not due before its retry delay")

		tp.AddTime(2 * time.Minute)
		claimed, err = repo.ClaimNext(ctx, model.QueueGeneral, 5)
		require.NoError(t, err)
		require.Len(t, claimed, 1)

		// Second failure exhausts max_attempts=2.
		failed, err = repo.Fail(ctx, core.FailQueueItemParams{ID: item.ID, Error: "boom again", ShouldRetry: true})
		require.NoError(t, err)
		assert.Equal(t, model.QueueItemStatusFailed, failed.Status)
		assert.NotNil(t, failed.CompletedAt)

		ok, err := repo.Complete(ctx, item.ID)
		require.NoError(t, err)
		assert.False(t, ok, "failed items cannot be completed")
	})
}

func TestQueueItemRepo_ClaimOrderAndExclusivity(t *testing.T) {
	testutil.SkipIfNoTestDB(t)

	testutil.WithAutoDB(t, func(db *sql.DB) {
		ctx := context.Background()
		base := time.Now().UTC().Truncate(time.Millisecond)
		tp := NewFixedTimeProvider(base)
		repo := NewQueueItemRepo(db, RepoConfig{TimeProvider: tp})

		const total = 20
		for i := range total {
			tp.SetTime(base.Add(time.Duration(i) * time.Millisecond))
			priority := 3
			if i%5 == 0 {
				priority = 1
			}
			_, err := repo.Enqueue(ctx, testutil.NewEnqueueRequest().WithRoute(model.QueueContacts, priority).Build())
			require.NoError(t, err)
		}
		tp.SetTime(base.Add(time.Second))

		first, err := repo.ClaimNext(ctx, model.QueueContacts, 4)
		require.NoError(t, err)
		require.Len(t, first, 4)
		for _, it := range first {
			assert.Equal(t, 1, it.Priority, "priority 1 items drain first")
		}

		var (
			mu   sync.Mutex
			seen = map[string]int{}
		)
		claim := func() error {
			for {
				items, claimErr := repo.ClaimNext(ctx, model.QueueContacts, 3)
				if claimErr != nil {
					return claimErr
				}
				if len(items) == 0 {
					return nil
				}
				mu.Lock()
				for _, it := range items {
					seen[it.ID]++
				}
				mu.Unlock()
			}
		}
		testutil.RunConcurrently(t, claim, claim, claim, claim)

		assert.Len(t, seen, total-len(first))
		for id, n := range seen {
			assert.Equal(t, 1, n, "item %s claimed more than once", id)
		}
		assert.Equal(t, map[model.QueueItemStatus]int{model.QueueItemStatusProcessing: total},
			testutil.QueueStatusCounts(t, db))
	})
}

func TestQueueItemRepo_RequeueStuckAndExpire(t *testing.T) {
	testutil.SkipIfNoTestDB(t)

	testutil.WithAutoDB(t, func(db *sql.DB) {
		ctx := context.Background()
		base := time.Now().UTC().Truncate(time.Millisecond)
		tp := NewFixedTimeProvider(base)
		repo := NewQueueItemRepo(db, RepoConfig{TimeProvider: tp})

		item, err := repo.Enqueue(ctx, testutil.NewEnqueueRequest().WithTTL(time.Hour).Build())
		require.NoError(t, err)
		_, err = repo.ClaimNext(ctx, model.QueueGeneral, 1)
		require.NoError(t, err)

		tp.AddTime(10 * time.Minute)
		stats, err := repo.Stats(ctx, 5*time.Minute)
		require.NoError(t, err)
		require.Len(t, stats, 1)
		assert.Equal(t, int64(1), stats[0].Stuck)

		n, err := repo.RequeueStuck(ctx, 5*time.Minute, 100)
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)

		got, err := repo.GetByID(ctx, item.ID)
		require.NoError(t, err)
		assert.Equal(t, model.QueueItemStatusPending, got.Status)
		assert.Equal(t, 1, got.Attempts)

		tp.AddTime(2 * time.Hour)
		n, err = repo.DeleteExpired(ctx, 100)
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)

		got, err = repo.GetByID(ctx, item.ID)
		require.NoError(t, err)
		assert.Nil(t, got)
	})
}
