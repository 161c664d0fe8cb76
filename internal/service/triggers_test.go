package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/target/hookline/config"
	"github.com/target/hookline/internal/core"
	"github.com/target/hookline/internal/domain/model"
	"github.com/target/hookline/internal/mocks"
	"github.com/target/hookline/internal/testutil"
	"go.uber.org/mock/gomock"
)

// stageStore mimics the conditional stage advance of the entity_stages table.
type stageStore struct {
	mu     sync.Mutex
	stages map[string]string
}

func (s *stageStore) AdvanceStage(_ context.Context, p core.AdvanceStageParams) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stages == nil {
		s.stages = make(map[string]string)
	}
	k := p.TenantID + "/" + string(p.EntityType) + "/" + p.EntityExternalID
	if s.stages[k] == p.Stage {
		return false, nil
	}
	s.stages[k] = p.Stage
	return true, nil
}

func createEcho(t *testing.T) func(context.Context, *model.AutomationTrigger) (*model.AutomationTrigger, error) {
	t.Helper()
	return func(_ context.Context, tr *model.AutomationTrigger) (*model.AutomationTrigger, error) {
		cp := *tr
		cp.ID = "trg-" + string(tr.TriggerType)
		return &cp, nil
	}
}

func stageUpdate(stage string) string {
	return `{"type":"OpportunityStageUpdate","locationId":"loc-1","id":"opp-1","pipelineId":"pipe-1","pipelineStageId":"` + stage + `"}`
}

func TestTriggerService_StageChangeSuppression(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := mocks.NewMockTriggerRepository(ctrl)
	repo.EXPECT().Create(gomock.Any(), gomock.Any()).DoAndReturn(createEcho(t)).Times(2)

	svc, err := NewTriggerService(TriggerServiceOptions{
		Repo:   repo,
		Stages: &stageStore{},
		Config: config.TriggerConfig{TTL: time.Hour},
		Now:    testClock(),
	})
	require.NoError(t, err)
	ctx := context.Background()

	got, err := svc.Derive(ctx, testEnvelope(t, stageUpdate("qualified")))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, model.TriggerProjectStageChanged, got[0].TriggerType)
	assert.Equal(t, testutil.TestTime().Add(time.Hour), got[0].ExpiresAt)

	// Same stage again: suppressed.
	got, err = svc.Derive(ctx, testEnvelope(t, stageUpdate("qualified")))
	require.NoError(t, err)
	assert.Empty(t, got)

	// New stage: one trigger.
	got, err = svc.Derive(ctx, testEnvelope(t, stageUpdate("proposal")))
	require.NoError(t, err)
	require.Len(t, got, 1)

	var data map[string]any
	require.NoError(t, json.Unmarshal(got[0].Data, &data))
	assert.Equal(t, "proposal", data["stageId"])
}

func TestTriggerService_ConcurrentSameStageYieldsOne(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := mocks.NewMockTriggerRepository(ctrl)
	repo.EXPECT().Create(gomock.Any(), gomock.Any()).DoAndReturn(createEcho(t)).Times(1)

	svc, err := NewTriggerService(TriggerServiceOptions{Repo: repo, Stages: &stageStore{}})
	require.NoError(t, err)

	env := testEnvelope(t, stageUpdate("won-stage"))
	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		total int
	)
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := svc.Derive(context.Background(), env)
			assert.NoError(t, err)
			mu.Lock()
			total += len(got)
			mu.Unlock()
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, total)
}

func TestTriggerService_SchedulingWindowSuppression(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := mocks.NewMockTriggerRepository(ctrl)
	now := testutil.TestTime()

	gomock.InOrder(
		repo.EXPECT().ExistsPendingSince(gomock.Any(), core.TriggerExistsParams{
			TenantID:         "loc-1",
			TriggerType:      model.TriggerAppointmentScheduled,
			EntityType:       model.EntityAppointment,
			EntityExternalID: "appt-1",
			Since:            now.Add(-10 * time.Minute),
		}).Return(false, nil),
		repo.EXPECT().Create(gomock.Any(), gomock.Any()).DoAndReturn(createEcho(t)),
		repo.EXPECT().ExistsPendingSince(gomock.Any(), gomock.Any()).Return(true, nil),
	)

	svc, err := NewTriggerService(TriggerServiceOptions{
		Repo:   repo,
		Config: config.TriggerConfig{SchedulingWindow: 10 * time.Minute},
		Now:    testClock(),
	})
	require.NoError(t, err)

	raw := `{"type":"AppointmentCreate","locationId":"loc-1","appointment":{"id":"appt-1","contactId":"c-1","startTime":"2025-01-02T10:00:00Z"}}`
	got, err := svc.Derive(context.Background(), testEnvelope(t, raw))
	require.NoError(t, err)
	require.Len(t, got, 1)

	got, err = svc.Derive(context.Background(), testEnvelope(t, raw))
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestTriggerService_ResolvesEntitiesAndSkipsFailedWrites(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := mocks.NewMockTriggerRepository(ctrl)
	entities := mocks.NewMockEntityLookup(ctrl)

	entities.EXPECT().FindContact(gomock.Any(), "loc-1", "c-1").
		Return(&model.Contact{ID: "1", ExternalID: "c-1", Name: "Ada"}, nil).Times(2)

	writeErr := errors.New("insert failed")
	gomock.InOrder(
		repo.EXPECT().Create(gomock.Any(), gomock.Any()).Return(nil, writeErr),
		repo.EXPECT().Create(gomock.Any(), gomock.Any()).DoAndReturn(createEcho(t)),
	)

	svc, err := NewTriggerService(TriggerServiceOptions{Repo: repo, Entities: entities})
	require.NoError(t, err)

	raw := `{"type":"ContactTagUpdate","locationId":"loc-1","id":"c-1","tags":["vip","lead"]}`
	got, err := svc.Derive(context.Background(), testEnvelope(t, raw))
	require.ErrorIs(t, err, writeErr)
	require.Len(t, got, 1)
	require.NotNil(t, got[0].Resolved.Contact)
	assert.Equal(t, "Ada", got[0].Resolved.Contact.Name)
}

func TestTriggerService_NotFoundLeavesReferenceNil(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := mocks.NewMockTriggerRepository(ctrl)
	entities := mocks.NewMockEntityLookup(ctrl)

	entities.EXPECT().FindInvoice(gomock.Any(), "loc-1", "inv-1").Return(nil, model.ErrEntityNotFound)
	entities.EXPECT().FindContact(gomock.Any(), "loc-1", "c-1").Return(nil, errors.New("timeout"))
	repo.EXPECT().Create(gomock.Any(), gomock.Any()).DoAndReturn(createEcho(t))

	svc, err := NewTriggerService(TriggerServiceOptions{Repo: repo, Entities: entities})
	require.NoError(t, err)

	raw := `{"type":"InvoicePaid","locationId":"loc-1","invoiceId":"inv-1","contactId":"c-1","amountPaid":10}`
	got, err := svc.Derive(context.Background(), testEnvelope(t, raw))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Nil(t, got[0].Resolved.Invoice)
	assert.Nil(t, got[0].Resolved.Contact)
}

func TestTriggerService_UnhandledTypeYieldsNothing(t *testing.T) {
	ctrl := gomock.NewController(t)
	svc, err := NewTriggerService(TriggerServiceOptions{Repo: mocks.NewMockTriggerRepository(ctrl)})
	require.NoError(t, err)

	got, err := svc.Derive(context.Background(), testEnvelope(t, `{"type":"NoteCreate","locationId":"loc-1"}`))
	require.NoError(t, err)
	assert.Empty(t, got)
}
