package data

import (
	"context"
	"database/sql"
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

func TestTriggerRepo_AdvanceStageMock(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewTriggerRepo(db, RepoConfig{TimeProvider: NewFixedTimeProvider(now)})

	params := core.AdvanceStageParams{TenantID: "loc-1", EntityType: model.EntityProject, EntityExternalID: "opp-1", Stage: "s2"}
	mock.ExpectExec(`INSERT INTO entity_stages .* IS DISTINCT FROM EXCLUDED.stage`).
		WithArgs("loc-1", "project", "opp-1", "s2", now).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO entity_stages`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	changed, err := repo.AdvanceStage(context.Background(), params)
	require.NoError(t, err)
	assert.True(t, changed)

	changed, err = repo.AdvanceStage(context.Background(), params)
	require.NoError(t, err)
	assert.False(t, changed)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTriggerRepo_CreateValidates(t *testing.T) {
	repo := NewTriggerRepo(nil, RepoConfig{})

	_, err := repo.Create(context.Background(), &model.AutomationTrigger{TriggerType: model.TriggerContactCreated})
	assert.ErrorIs(t, err, ErrTenantIDRequired)

	_, err = repo.Create(context.Background(), &model.AutomationTrigger{TenantID: "loc-1"})
	assert.ErrorContains(t, err, "trigger type and entity are required")
}

func TestTriggerRepo_Integration(t *testing.T) {
	testutil.SkipIfNoTestDB(t)

	testutil.WithAutoDB(t, func(db *sql.DB) {
		ctx := context.Background()
		tp := NewFixedTimeProvider(time.Now().UTC().Truncate(time.Millisecond))
		repo := NewTriggerRepo(db, RepoConfig{TimeProvider: tp, TriggerTTL: time.Hour})

		created, err := repo.Create(ctx, &model.AutomationTrigger{
			TriggerType:      model.TriggerAppointmentScheduled,
			EntityType:       model.EntityAppointment,
			EntityExternalID: "apt-1",
			TenantID:         "loc-1",
			WebhookID:        "wh-1",
			Resolved:         model.ResolvedEntities{Contact: &model.Contact{ExternalID: "c-1"}},
		})
		require.NoError(t, err)
		assert.Equal(t, model.TriggerStatusPending, created.Status)
		assert.Equal(t, tp.Now().Add(time.Hour), created.ExpiresAt)

		exists, err := repo.ExistsPendingSince(ctx, core.TriggerExistsParams{
			TenantID: "loc-1", TriggerType: model.TriggerAppointmentScheduled,
			EntityType: model.EntityAppointment, EntityExternalID: "apt-1",
			Since: tp.Now().Add(-5 * time.Minute),
		})
		require.NoError(t, err)
		assert.True(t, exists)

		var wg sync.WaitGroup
		var mu sync.Mutex
		changes := 0
		for range 5 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				changed, advErr := repo.AdvanceStage(ctx, core.AdvanceStageParams{
					TenantID: "loc-1", EntityType: model.EntityProject, EntityExternalID: "opp-1", Stage: "won",
				})
				assert.NoError(t, advErr)
				if changed {
					mu.Lock()
					changes++
					mu.Unlock()
				}
			}()
		}
		wg.Wait()
		assert.Equal(t, 1, changes, "exactly one concurrent writer observes the stage change")

		tp.AddTime(2 * time.Hour)
		n, err := repo.DeleteExpired(ctx, 0, 100)
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)
	})
}
