package deadletter

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/target/hookline/internal/core"
	"github.com/target/hookline/internal/observability/notify"
)

func TestServiceNotifyDeadLetter(t *testing.T) {
	var (
		mu       sync.Mutex
		received []notify.DeadLetterPayload
	)
	capture := notify.SinkFunc(func(_ context.Context, p notify.DeadLetterPayload) error {
		mu.Lock()
		defer mu.Unlock()
		received = append(received, p)
		return nil
	})
	svc := NewService(Options{Sinks: []SinkRegistration{
		{Name: "a", Sink: capture},
		{Name: "b", Sink: capture},
		{Name: "nil"},
	}})
	require.True(t, svc.Enabled())

	failedAt := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	svc.NotifyDeadLetter(context.Background(), core.DeadLetter{
		Source: "retry", ID: "ri-1", Kind: "install_setup", TenantID: "loc-1", Attempts: 5, FailedAt: failedAt,
	})

	require.Len(t, received, 2)
	assert.Equal(t, notify.SeverityCritical, received[0].Severity)
	assert.Equal(t, "ri-1", received[0].ItemID)
	assert.Equal(t, failedAt, received[0].OccurredAt)
	assert.Equal(t, "5", received[0].Metadata["attempts"])
}

func TestServiceQueueSeverity(t *testing.T) {
	var got notify.DeadLetterPayload
	svc := NewService(Options{Sinks: []SinkRegistration{{Sink: notify.SinkFunc(
		func(_ context.Context, p notify.DeadLetterPayload) error { got = p; return nil },
	)}}})

	svc.NotifyDeadLetter(context.Background(), core.DeadLetter{Source: "queue", ID: "qi-1"})
	assert.Equal(t, notify.SeverityError, got.Severity)
	assert.False(t, got.OccurredAt.IsZero())
}

func TestServiceDisabled(t *testing.T) {
	svc := NewService(Options{})
	assert.False(t, svc.Enabled())
	assert.NotPanics(t, func() { svc.NotifyDeadLetter(context.Background(), core.DeadLetter{}) })

	var nilSvc *Service
	assert.False(t, nilSvc.Enabled())
}

func TestServiceSinkErrorsAreSwallowed(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	svc := NewService(Options{Sinks: []SinkRegistration{{Name: "fail", Sink: notify.SinkFunc(
		func(ctx context.Context, _ notify.DeadLetterPayload) error {
			called = true
			return errors.Join(errors.New("boom"), ctx.Err())
		},
	)}}})

	assert.NotPanics(t, func() { svc.NotifyDeadLetter(ctx, core.DeadLetter{Source: "queue"}) })
	assert.True(t, called, "sinks still run after the caller's context is canceled")
}
