package queueworker

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/target/hookline/config"
	"github.com/target/hookline/internal/adapters/memory"
	"github.com/target/hookline/internal/domain/model"
	"github.com/target/hookline/internal/mocks/fakes"
	"github.com/target/hookline/internal/testutil"
)

func TestNewRunner_RequiresStores(t *testing.T) {
	_, err := NewRunner(RunnerOptions{})
	require.Error(t, err)
}

func TestRunner_RunOnceDrainsInjectedQueue(t *testing.T) {
	ctx := context.Background()
	queue := memory.NewQueue(nil, 0)
	for range 2 {
		_, err := queue.Enqueue(ctx, testutil.NewEnqueueRequest().Build())
		require.NoError(t, err)
	}

	runner, err := NewRunner(RunnerOptions{
		Config:        config.QueueConfig{WorkerQueues: []string{"general"}, WorkerBatchSize: 10},
		Queue:         queue,
		Conversations: fakes.NewConversations(),
	})
	require.NoError(t, err)

	report, err := runner.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, model.RunCounts{Processed: 2, Succeeded: 2}, *report.Queues[model.QueueGeneral])

	for _, item := range queue.Items() {
		assert.Equal(t, model.QueueItemStatusCompleted, item.Status)
	}
}

func TestRunner_RunStopsOnCancel(t *testing.T) {
	runner, err := NewRunner(RunnerOptions{
		Config:        config.QueueConfig{WorkerConcurrency: 3},
		Queue:         memory.NewQueue(nil, 0),
		Conversations: fakes.NewConversations(),
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, runner.Run(ctx))
}

func TestRunner_RunOnceRequeuesStuckItems(t *testing.T) {
	ctx := context.Background()
	now := testutil.TestTime()
	queue := memory.NewQueue(func() time.Time { return now }, 0)
	_, err := queue.Enqueue(ctx, testutil.NewEnqueueRequest().Build())
	require.NoError(t, err)
	claimed, err := queue.ClaimNext(ctx, model.QueueGeneral, 1)
	require.NoError(t, err)
	require.Len(t, claimed, 1)
	now = now.Add(10 * time.Minute)

	runner, err := NewRunner(RunnerOptions{
		Config: config.QueueConfig{
			WorkerQueues:      []string{"general"},
			WorkerBatchSize:   10,
			VisibilityTimeout: 5 * time.Minute,
		},
		Queue:         queue,
		Conversations: fakes.NewConversations(),
	})
	require.NoError(t, err)

	report, err := runner.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), report.Requeued)
	assert.Equal(t, 1, report.Queues[model.QueueGeneral].Succeeded)
}
