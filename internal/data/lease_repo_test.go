package data

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/target/hookline/internal/testutil"
)

func TestLeaseRepo_AcquireMock(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewLeaseRepo(db, RepoConfig{TimeProvider: NewFixedTimeProvider(now)})

	mock.ExpectQuery(`INSERT INTO leases .* ON CONFLICT \(lease_key\) DO UPDATE`).
		WithArgs("company:c1", "worker-a", now, now.Add(time.Minute)).
		WillReturnRows(sqlmock.NewRows([]string{"holder_id"}).AddRow("worker-a"))
	mock.ExpectQuery(`INSERT INTO leases`).
		WithArgs("company:c1", "worker-b", now, now.Add(time.Minute)).
		WillReturnRows(sqlmock.NewRows([]string{"holder_id"}))

	ok, err := repo.Acquire(context.Background(), "company:c1", "worker-a", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.Acquire(context.Background(), "company:c1", "worker-b", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok, "contended lease is refused without error")

	_, err = repo.Acquire(context.Background(), "", "worker-a", time.Minute)
	assert.ErrorIs(t, err, ErrLeaseKeyRequired)
	_, err = repo.Release(context.Background(), "company:c1", "")
	assert.ErrorIs(t, err, ErrHolderIDRequired)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLeaseRepo_Lifecycle(t *testing.T) {
	testutil.SkipIfNoTestDB(t)

	testutil.WithAutoDB(t, func(db *sql.DB) {
		ctx := context.Background()
		tp := NewFixedTimeProvider(time.Now().UTC().Truncate(time.Millisecond))
		repo := NewLeaseRepo(db, RepoConfig{TimeProvider: tp})
		const key = "company:c1:location:l1"

		ok, err := repo.Acquire(ctx, key, "a", time.Minute)
		require.NoError(t, err)
		require.True(t, ok)

		ok, err = repo.Acquire(ctx, key, "b", time.Minute)
		require.NoError(t, err)
		assert.False(t, ok)

		ok, err = repo.Acquire(ctx, key, "a", time.Minute)
		require.NoError(t, err)
		assert.True(t, ok, "re-acquire by the same holder succeeds")

		ok, err = repo.Release(ctx, key, "b")
		require.NoError(t, err)
		assert.False(t, ok, "non-holder cannot release")

		ok, err = repo.Renew(ctx, key, "a", 5*time.Minute)
		require.NoError(t, err)
		assert.True(t, ok)

		leases, err := repo.List(ctx)
		require.NoError(t, err)
		require.Len(t, leases, 1)
		assert.Equal(t, "a", leases[0].HolderID)

		tp.AddTime(6 * time.Minute)
		ok, err = repo.Renew(ctx, key, "a", time.Minute)
		require.NoError(t, err)
		assert.False(t, ok, "expired leases cannot be renewed")

		ok, err = repo.Acquire(ctx, key, "b", time.Minute)
		require.NoError(t, err)
		assert.True(t, ok, "expired lease is taken over")

		tp.AddTime(2 * time.Minute)
		n, err := repo.ReclaimExpired(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)
	})
}
