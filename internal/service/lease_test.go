package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/target/hookline/internal/adapters/memory"
	"github.com/target/hookline/internal/domain/lease"
	"github.com/target/hookline/internal/domain/model"
	"github.com/target/hookline/internal/mocks"
	"github.com/target/hookline/internal/observability/metrics"
	"github.com/target/hookline/internal/observability/statsd"
	"go.uber.org/mock/gomock"
)

func TestLeaseService_MutualExclusion(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	rec := statsd.NewRecorder()

	svc, err := NewLeaseService(LeaseServiceOptions{Store: memory.NewLeaseStore(clock), Metrics: rec})
	require.NoError(t, err)

	key := model.TenantScope("co-1", "loc-1")
	ok, err := svc.AcquireFor(ctx, model.WebhookTypeInstall, key, "holder-a")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = svc.AcquireFor(ctx, model.WebhookTypeInstall, key, "holder-b")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.InDelta(t, 1, rec.Total(metrics.LeaseContention, map[string]string{"type": "INSTALL"}), 0)

	// Same holder re-acquires.
	ok, err = svc.Acquire(ctx, key, "holder-a", 0)
	require.NoError(t, err)
	assert.True(t, ok)

	// Release by a non-holder is a no-op.
	require.NoError(t, svc.Release(ctx, key, "holder-b"))
	leases, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, leases, 1)
	assert.Equal(t, "holder-a", leases[0].HolderID)

	// After expiry another holder wins.
	now = now.Add(model.DefaultLeaseDuration + time.Second)
	ok, err = svc.Acquire(ctx, key, "holder-b", 0)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestLeaseService_ClampsDuration(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mocks.NewMockLeaseStore(ctrl)
	policy, err := lease.NewPolicy(time.Minute)
	require.NoError(t, err)

	store.EXPECT().Acquire(gomock.Any(), "company:c", "h", lease.MaxDuration).Return(true, nil)
	store.EXPECT().Renew(gomock.Any(), "company:c", "h", time.Minute).Return(true, nil)

	svc, err := NewLeaseService(LeaseServiceOptions{Store: store, Policy: policy})
	require.NoError(t, err)

	ok, err := svc.Acquire(context.Background(), "company:c", "h", 48*time.Hour)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = svc.Renew(context.Background(), "company:c", "h", 0)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestLeaseService_StoreErrorsAreWrapped(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mocks.NewMockLeaseStore(ctrl)
	boom := errors.New("store down")
	store.EXPECT().Acquire(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(false, boom)
	store.EXPECT().Release(gomock.Any(), gomock.Any(), gomock.Any()).Return(false, boom)

	svc, err := NewLeaseService(LeaseServiceOptions{Store: store})
	require.NoError(t, err)

	_, err = svc.Acquire(context.Background(), "k", "h", time.Minute)
	require.ErrorIs(t, err, boom)
	require.ErrorIs(t, svc.Release(context.Background(), "k", "h"), boom)
}

func TestNewLeaseService_RequiresStore(t *testing.T) {
	_, err := NewLeaseService(LeaseServiceOptions{})
	require.Error(t, err)
}
