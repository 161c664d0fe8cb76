package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/target/hookline/config"
	"github.com/target/hookline/internal/core"
	"github.com/target/hookline/internal/domain/model"
	"github.com/target/hookline/internal/domain/triggers"
	"golang.org/x/sync/errgroup"
)

// TriggerServiceOptions groups dependencies for TriggerService.
type TriggerServiceOptions struct {
	Repo      core.TriggerRepository // Required
	Stages    core.StageTracker      // Optional: nil writes every stage change
	Entities  core.EntityLookup      // Optional: nil leaves snapshots empty
	Publisher *Publisher             // Optional
	Config    config.TriggerConfig
	Logger    *slog.Logger
	Now       func() time.Time
}

// TriggerService turns classified webhooks into automation trigger records.
type TriggerService struct {
	repo      core.TriggerRepository
	stages    core.StageTracker
	entities  core.EntityLookup
	publisher *Publisher
	window    time.Duration
	ttl       time.Duration
	logger    *slog.Logger
	now       func() time.Time
}

// NewTriggerService constructs a TriggerService.
func NewTriggerService(opts TriggerServiceOptions) (*TriggerService, error) {
	if opts.Repo == nil {
		return nil, errors.New("TriggerRepository is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	window := opts.Config.SchedulingWindow
	if window <= 0 {
		window = 5 * time.Minute
	}
	return &TriggerService{
		repo:      opts.Repo,
		stages:    opts.Stages,
		entities:  opts.Entities,
		publisher: opts.Publisher,
		window:    window,
		ttl:       opts.Config.TTL,
		logger:    logger.With("component", "trigger_service"),
		now:       now,
	}, nil
}

// Derive writes the trigger records env yields after suppression and entity
// resolution, then broadcasts each written record. Write failures are logged
// and skipped; the joined write errors are returned alongside the records
// that were written.
func (s *TriggerService) Derive(ctx context.Context, env *model.WebhookEnvelope) ([]*model.AutomationTrigger, error) {
	candidates := triggers.Derive(env)
	if len(candidates) == 0 {
		return nil, nil
	}

	var (
		written []*model.AutomationTrigger
		errs    []error
	)
	for _, c := range candidates {
		if s.suppressed(ctx, env, c) {
			s.logger.DebugContext(ctx, "trigger suppressed",
				"trigger_type", c.TriggerType,
				"entity_id", c.EntityExternalID,
				"suppression", c.Suppression)
			continue
		}

		record, err := s.build(env, c)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		record.Resolved = s.resolve(ctx, env.TenantID, c.Refs)

		created, err := s.repo.Create(ctx, record)
		if err != nil {
			s.logger.WarnContext(ctx, "trigger write failed",
				"trigger_type", c.TriggerType,
				"entity_id", c.EntityExternalID,
				"webhook_id", env.ID,
				"error", err)
			errs = append(errs, fmt.Errorf("write %s trigger: %w", c.TriggerType, err))
			continue
		}
		written = append(written, created)
		s.broadcast(ctx, env, c, created)
	}
	return written, errors.Join(errs...)
}

// suppressed applies the candidate's duplicate check. Check errors let the
// trigger through; consumers are idempotent on entity and type.
func (s *TriggerService) suppressed(ctx context.Context, env *model.WebhookEnvelope, c triggers.Candidate) bool {
	switch c.Suppression {
	case triggers.SuppressStageUnchanged:
		if s.stages == nil {
			return false
		}
		changed, err := s.stages.AdvanceStage(ctx, core.AdvanceStageParams{
			TenantID:         env.TenantID,
			EntityType:       c.EntityType,
			EntityExternalID: c.EntityExternalID,
			Stage:            c.Stage,
		})
		if err != nil {
			s.logger.WarnContext(ctx, "stage check failed", "entity_id", c.EntityExternalID, "error", err)
			return false
		}
		return !changed

	case triggers.SuppressWithinWindow:
		exists, err := s.repo.ExistsPendingSince(ctx, core.TriggerExistsParams{
			TenantID:         env.TenantID,
			TriggerType:      c.TriggerType,
			EntityType:       c.EntityType,
			EntityExternalID: c.EntityExternalID,
			Since:            s.now().Add(-s.window),
		})
		if err != nil {
			s.logger.WarnContext(ctx, "window check failed", "entity_id", c.EntityExternalID, "error", err)
			return false
		}
		return exists
	}
	return false
}

func (s *TriggerService) build(env *model.WebhookEnvelope, c triggers.Candidate) (*model.AutomationTrigger, error) {
	data, err := json.Marshal(c.Data)
	if err != nil {
		return nil, fmt.Errorf("encode %s trigger data: %w", c.TriggerType, err)
	}
	ts := env.ReceivedAt
	if env.Timestamp != nil {
		ts = *env.Timestamp
	}
	record := &model.AutomationTrigger{
		TriggerType:      c.TriggerType,
		EntityType:       c.EntityType,
		EntityExternalID: c.EntityExternalID,
		TenantID:         env.TenantID,
		WebhookID:        env.ID,
		Data:             data,
		Status:           model.TriggerStatusPending,
		Timestamp:        ts,
	}
	if s.ttl > 0 {
		record.ExpiresAt = s.now().Add(s.ttl)
	}
	return record, nil
}

// resolve looks up the referenced entities concurrently. Missing entities
// and lookup errors leave the snapshot nil.
func (s *TriggerService) resolve(ctx context.Context, tenantID string, refs triggers.Refs) model.ResolvedEntities {
	var out model.ResolvedEntities
	if s.entities == nil {
		return out
	}

	g, gctx := errgroup.WithContext(ctx)
	if refs.ContactID != "" {
		g.Go(func() error {
			out.Contact = lookup(gctx, s, "contact", refs.ContactID, func(ctx context.Context) (*model.Contact, error) {
				return s.entities.FindContact(ctx, tenantID, refs.ContactID)
			})
			return nil
		})
	}
	if refs.ProjectID != "" {
		g.Go(func() error {
			out.Project = lookup(gctx, s, "project", refs.ProjectID, func(ctx context.Context) (*model.Project, error) {
				return s.entities.FindProject(ctx, tenantID, refs.ProjectID)
			})
			return nil
		})
	}
	if refs.AppointmentID != "" {
		g.Go(func() error {
			out.Appointment = lookup(gctx, s, "appointment", refs.AppointmentID, func(ctx context.Context) (*model.Appointment, error) {
				return s.entities.FindAppointment(ctx, tenantID, refs.AppointmentID)
			})
			return nil
		})
	}
	if refs.InvoiceID != "" {
		g.Go(func() error {
			out.Invoice = lookup(gctx, s, "invoice", refs.InvoiceID, func(ctx context.Context) (*model.Invoice, error) {
				return s.entities.FindInvoice(ctx, tenantID, refs.InvoiceID)
			})
			return nil
		})
	}
	_ = g.Wait()
	return out
}

func lookup[T any](ctx context.Context, s *TriggerService, entity, id string, find func(context.Context) (*T, error)) *T {
	v, err := find(ctx)
	if err == nil {
		return v
	}
	if !errors.Is(err, model.ErrEntityNotFound) {
		s.logger.WarnContext(ctx, "entity lookup failed", "entity", entity, "external_id", id, "error", err)
	}
	return nil
}

func (s *TriggerService) broadcast(ctx context.Context, env *model.WebhookEnvelope, c triggers.Candidate, record *model.AutomationTrigger) {
	channels := []string{model.TenantChannel(env.TenantID)}
	if c.PipelineID != "" {
		channels = append(channels, model.PipelineChannel(env.TenantID, c.PipelineID))
	}
	s.publisher.Broadcast(ctx, channels, model.EventAutomationTrigger, record)
}
