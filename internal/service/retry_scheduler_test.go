package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/target/hookline/config"
	"github.com/target/hookline/internal/adapters/memory"
	"github.com/target/hookline/internal/domain/model"
	"github.com/target/hookline/internal/mocks"
	"github.com/target/hookline/internal/mocks/fakes"
	"github.com/target/hookline/internal/observability/metrics"
	"github.com/target/hookline/internal/observability/statsd"
	"github.com/target/hookline/internal/testutil"
	"go.uber.org/mock/gomock"
)

func retryItem(id string, kind model.RetryKind, attempts, maxAttempts int) *model.RetryItem {
	return &model.RetryItem{
		ID:          id,
		WebhookID:   "wh-" + id,
		TenantID:    "loc-1",
		Kind:        kind,
		Payload:     json.RawMessage(`{"type":"` + string(kind) + `","locationId":"loc-1"}`),
		Status:      model.RetryItemStatusProcessing,
		Attempts:    attempts,
		MaxAttempts: maxAttempts,
	}
}

func failedAs(status model.RetryItemStatus) func(context.Context, model.FailRetryItemParams) (*model.RetryItem, error) {
	return func(_ context.Context, p model.FailRetryItemParams) (*model.RetryItem, error) {
		out := retryItem(p.ID, model.RetryKindAgencySync, 0, 5)
		out.Status = status
		out.NextRetryAt = p.NextRetryAt
		return out, nil
	}
}

func TestRetryBackoff_MonotonicAndLinear(t *testing.T) {
	prev := time.Duration(0)
	for attempts := 0; attempts <= 10; attempts++ {
		d := RetryBackoff(time.Minute, attempts)
		assert.Equal(t, time.Duration(attempts+1)*time.Minute, d)
		assert.Greater(t, d, prev)
		prev = d
	}
	assert.Equal(t, time.Minute, RetryBackoff(time.Minute, -3))
}

func TestRetryScheduler_RunOnce_ProcessesItemsIndependently(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := mocks.NewMockRetryRepository(ctrl)
	dl := &fakes.DeadLetters{}
	rec := statsd.NewRecorder()
	now := testutil.TestTime()

	ok := retryItem("ok", model.RetryKindInstallSetup, 1, 5)
	flaky := retryItem("flaky", model.RetryKindAgencySync, 2, 5)
	orphan := retryItem("orphan", model.RetryKind("mystery"), 1, 5)

	repo.EXPECT().RequeueStuck(gomock.Any(), 10*time.Minute).Return(int64(0), nil)
	repo.EXPECT().ClaimDue(gomock.Any(), 50).Return([]*model.RetryItem{ok, flaky, orphan}, nil)
	repo.EXPECT().Complete(gomock.Any(), "ok").Return(true, nil)
	repo.EXPECT().Fail(gomock.Any(), gomock.Any()).DoAndReturn(
		func(ctx context.Context, p model.FailRetryItemParams) (*model.RetryItem, error) {
			switch p.ID {
			case "flaky":
				assert.False(t, p.Terminal)
				assert.Equal(t, now.Add(3*time.Minute), p.NextRetryAt)
				return failedAs(model.RetryItemStatusPending)(ctx, p)
			case "orphan":
				assert.True(t, p.Terminal)
				return failedAs(model.RetryItemStatusFailed)(ctx, p)
			}
			t.Fatalf("unexpected fail for %s", p.ID)
			return nil, nil
		}).Times(2)
	repo.EXPECT().PurgeCompleted(gomock.Any(), 168*time.Hour).Return(int64(4), nil)

	handlers := map[model.RetryKind]RetryHandler{
		model.RetryKindInstallSetup: func(context.Context, *model.RetryItem) error { return nil },
		model.RetryKindAgencySync:   func(context.Context, *model.RetryItem) error { return errors.New("503 from agency") },
	}
	s, err := NewRetryScheduler(RetrySchedulerOptions{
		Repo:     repo,
		Handlers: handlers,
		Config: config.RetryConfig{
			BatchSize:         50,
			BaseDelay:         time.Minute,
			CompletedMaxAge:   168 * time.Hour,
			VisibilityTimeout: 10 * time.Minute,
		},
		DeadLetters: dl,
		Metrics:     rec,
		Now:         testClock(),
	})
	require.NoError(t, err)

	report, err := s.RunOnce(context.Background())
	require.NoError(t, err)

	totals := report.Totals()
	assert.Equal(t, 3, totals.Processed)
	assert.Equal(t, 1, totals.Succeeded)
	assert.Equal(t, 2, totals.Failed)
	assert.Equal(t, int64(4), report.Purged)
	assert.Equal(t, 1, report.Counts(model.RetryKindInstallSetup).Succeeded)

	letters := dl.Letters()
	require.Len(t, letters, 1)
	assert.Equal(t, "retry", letters[0].Source)
	assert.Equal(t, "orphan", letters[0].ID)

	assert.InDelta(t, 1, rec.Total(metrics.RetryItem, map[string]string{"kind": "install_setup", "result": "success"}), 0)
	assert.InDelta(t, 1, rec.Total(metrics.RetryRun, nil), 0)
}

func TestRetryScheduler_ExhaustedAndPermanentAreTerminal(t *testing.T) {
	tests := []struct {
		name string
		item *model.RetryItem
		err  error
	}{
		{"attempts exhausted", retryItem("a", model.RetryKindAgencySync, 5, 5), errors.New("timeout")},
		{"permanent error", retryItem("b", model.RetryKindAgencySync, 1, 5), model.Permanent(errors.New("400"))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			repo := mocks.NewMockRetryRepository(ctrl)
			repo.EXPECT().ClaimDue(gomock.Any(), gomock.Any()).Return([]*model.RetryItem{tt.item}, nil)
			repo.EXPECT().Fail(gomock.Any(), gomock.Any()).DoAndReturn(
				func(ctx context.Context, p model.FailRetryItemParams) (*model.RetryItem, error) {
					assert.True(t, p.Terminal)
					return failedAs(model.RetryItemStatusFailed)(ctx, p)
				})
			repo.EXPECT().PurgeCompleted(gomock.Any(), gomock.Any()).Return(int64(0), nil)

			dl := mocks.NewMockDeadLetterNotifier(ctrl)
			dl.EXPECT().NotifyDeadLetter(gomock.Any(), gomock.Any()).Times(1)

			s, err := NewRetryScheduler(RetrySchedulerOptions{
				Repo: repo,
				Handlers: map[model.RetryKind]RetryHandler{
					model.RetryKindAgencySync: func(context.Context, *model.RetryItem) error { return tt.err },
				},
				DeadLetters: dl,
			})
			require.NoError(t, err)

			_, err = s.RunOnce(context.Background())
			require.NoError(t, err)
		})
	}
}

func TestRetryScheduler_HandlerPanicIsAFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := mocks.NewMockRetryRepository(ctrl)
	repo.EXPECT().ClaimDue(gomock.Any(), gomock.Any()).Return([]*model.RetryItem{
		retryItem("p", model.RetryKindInstallSetup, 1, 5),
		retryItem("q", model.RetryKindUninstallCleanup, 1, 5),
	}, nil)
	repo.EXPECT().Fail(gomock.Any(), gomock.Any()).DoAndReturn(failedAs(model.RetryItemStatusPending))
	repo.EXPECT().Complete(gomock.Any(), "q").Return(true, nil)
	repo.EXPECT().PurgeCompleted(gomock.Any(), gomock.Any()).Return(int64(0), nil)

	s, err := NewRetryScheduler(RetrySchedulerOptions{
		Repo: repo,
		Handlers: map[model.RetryKind]RetryHandler{
			model.RetryKindInstallSetup:     func(context.Context, *model.RetryItem) error { panic("nil map") },
			model.RetryKindUninstallCleanup: func(context.Context, *model.RetryItem) error { return nil },
		},
	})
	require.NoError(t, err)

	report, err := s.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Totals().Failed)
	assert.Equal(t, 1, report.Totals().Succeeded)
}

func TestRetryScheduler_ClaimErrorStillPurgesAndReclaims(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := mocks.NewMockRetryRepository(ctrl)
	claimErr := errors.New("connection reset")
	repo.EXPECT().ClaimDue(gomock.Any(), gomock.Any()).Return(nil, claimErr)
	repo.EXPECT().PurgeCompleted(gomock.Any(), gomock.Any()).Return(int64(2), nil)

	now := testutil.TestTime()
	clock := func() time.Time { return now }
	leaseStore := memory.NewLeaseStore(clock)
	leases, err := NewLeaseService(LeaseServiceOptions{Store: leaseStore})
	require.NoError(t, err)
	_, err = leaseStore.Acquire(context.Background(), "company:c", "h", time.Second)
	require.NoError(t, err)
	now = now.Add(time.Minute)

	s, err := NewRetryScheduler(RetrySchedulerOptions{
		Repo:     repo,
		Leases:   leases,
		Handlers: map[model.RetryKind]RetryHandler{model.RetryKindAgencySync: nil},
	})
	require.NoError(t, err)

	report, err := s.RunOnce(context.Background())
	require.ErrorIs(t, err, claimErr)
	assert.Equal(t, int64(1), report.LeasesReclaimed)
	assert.Equal(t, int64(2), report.Purged)
}

func TestRetryScheduler_RunStopsOnCancel(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := mocks.NewMockRetryRepository(ctrl)
	repo.EXPECT().ClaimDue(gomock.Any(), gomock.Any()).Return(nil, nil).AnyTimes()
	repo.EXPECT().PurgeCompleted(gomock.Any(), gomock.Any()).Return(int64(0), nil).AnyTimes()

	s, err := NewRetryScheduler(RetrySchedulerOptions{
		Repo:     repo,
		Handlers: map[model.RetryKind]RetryHandler{model.RetryKindAgencySync: nil},
		Config:   config.RetryConfig{Interval: 10 * time.Millisecond},
	})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return")
	}
}

func TestRetryHandlers_SkipUninstalledTenants(t *testing.T) {
	ctx := context.Background()
	down := &fakes.Downstream{}
	installs := &fakes.Installations{}
	_, err := installs.Upsert(ctx, model.Installation{TenantID: "loc-1", Status: model.InstallationUninstalled})
	require.NoError(t, err)

	handlers, err := NewRetryHandlers(RetryHandlersOptions{Downstream: down, Installations: installs})
	require.NoError(t, err)

	require.NoError(t, handlers[model.RetryKindInstallSetup](ctx, retryItem("a", model.RetryKindInstallSetup, 1, 5)))
	require.NoError(t, handlers[model.RetryKindUninstallCleanup](ctx, retryItem("b", model.RetryKindUninstallCleanup, 1, 5)))
	assert.Equal(t, []model.RetryKind{model.RetryKindUninstallCleanup}, down.Calls())

	empty := retryItem("c", model.RetryKindUninstallCleanup, 1, 5)
	empty.Payload = nil
	assert.True(t, model.IsPermanent(handlers[model.RetryKindUninstallCleanup](ctx, empty)))
}
