package retryrunner

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/target/hookline/config"
	"github.com/target/hookline/internal/domain/model"
	"github.com/target/hookline/internal/mocks"
	"github.com/target/hookline/internal/mocks/fakes"
	"go.uber.org/mock/gomock"
)

func TestNewRunner_Validation(t *testing.T) {
	ctrl := gomock.NewController(t)

	_, err := NewRunner(RunnerOptions{Downstream: &fakes.Downstream{}})
	require.Error(t, err)

	_, err = NewRunner(RunnerOptions{Repo: mocks.NewMockRetryRepository(ctrl)})
	require.Error(t, err)
}

func TestRunner_RunOnceDeliversDownstream(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := mocks.NewMockRetryRepository(ctrl)
	downstream := &fakes.Downstream{}

	item := &model.RetryItem{
		ID:          "r-1",
		TenantID:    "loc-1",
		Kind:        model.RetryKindUninstallCleanup,
		Payload:     []byte(`{"type":"uninstall_cleanup","locationId":"loc-1"}`),
		Attempts:    1,
		MaxAttempts: 5,
	}
	repo.EXPECT().ClaimDue(gomock.Any(), 50).Return([]*model.RetryItem{item}, nil)
	repo.EXPECT().Complete(gomock.Any(), "r-1").Return(true, nil)
	repo.EXPECT().PurgeCompleted(gomock.Any(), gomock.Any()).Return(int64(0), nil)

	runner, err := NewRunner(RunnerOptions{
		Config:        config.RetryConfig{BatchSize: 50},
		Downstream:    downstream,
		Repo:          repo,
		Installations: &fakes.Installations{},
	})
	require.NoError(t, err)

	report, err := runner.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Totals().Succeeded)
	assert.Equal(t, []model.RetryKind{model.RetryKindUninstallCleanup}, downstream.Calls())
}
