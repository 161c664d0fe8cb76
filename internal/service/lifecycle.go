package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/target/hookline/internal/core"
	"github.com/target/hookline/internal/domain/model"
)

// LifecycleHandlerOptions groups dependencies for LifecycleHandler.
type LifecycleHandlerOptions struct {
	Installations core.InstallationRepository // Required
	Retries       core.RetryRepository        // Required: downstream setup work
	Leases        *LeaseService               // Optional: releases the ingress lease
	Publisher     *Publisher                  // Optional
	MaxAttempts   int                         // Optional: retry item attempts, store default when zero
	Logger        *slog.Logger
	Now           func() time.Time
}

// LifecycleHandler applies install lifecycle webhooks from the critical
// queue: it records install state and schedules the downstream work each
// transition needs.
type LifecycleHandler struct {
	installations core.InstallationRepository
	retries       core.RetryRepository
	leases        *LeaseService
	publisher     *Publisher
	maxAttempts   int
	logger        *slog.Logger
	now           func() time.Time
}

// NewLifecycleHandler constructs a LifecycleHandler.
func NewLifecycleHandler(opts LifecycleHandlerOptions) (*LifecycleHandler, error) {
	if opts.Installations == nil {
		return nil, errors.New("InstallationRepository is required")
	}
	if opts.Retries == nil {
		return nil, errors.New("RetryRepository is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &LifecycleHandler{
		installations: opts.Installations,
		retries:       opts.Retries,
		leases:        opts.Leases,
		publisher:     opts.Publisher,
		maxAttempts:   opts.MaxAttempts,
		logger:        logger.With("component", "lifecycle_handler"),
		now:           now,
	}, nil
}

// Handle applies one critical-queue item. The tenant lease recorded in the
// item metadata is released whatever the outcome.
func (h *LifecycleHandler) Handle(ctx context.Context, item *model.QueueItem, env *model.WebhookEnvelope) error {
	defer h.release(ctx, item.Metadata)

	var (
		inst  *model.Installation
		kinds []model.RetryKind
		err   error
	)
	switch env.Type {
	case model.WebhookTypeInstall:
		inst, err = h.install(ctx, env)
		kinds = []model.RetryKind{model.RetryKindInstallSetup, model.RetryKindAgencySync}
	case model.WebhookTypeUninstall:
		inst, err = h.uninstall(ctx, env)
		kinds = []model.RetryKind{model.RetryKindUninstallCleanup}
	case model.WebhookTypePlanChange:
		inst, err = h.planChange(ctx, env)
	case model.WebhookTypeLocationUpdate:
		kinds = []model.RetryKind{model.RetryKindAgencySync}
	default:
		return nil
	}
	if err != nil {
		return err
	}

	var errs []error
	for _, kind := range kinds {
		if err := h.schedule(ctx, env, kind); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		return err
	}

	if inst != nil {
		h.publisher.Publish(ctx, model.TenantChannel(env.TenantID), model.EventInstallation, inst)
	}
	return nil
}

func (h *LifecycleHandler) install(ctx context.Context, env *model.WebhookEnvelope) (*model.Installation, error) {
	now := h.now().UTC()
	inst, err := h.installations.Upsert(ctx, model.Installation{
		TenantID:    env.TenantID,
		CompanyID:   env.CompanyID,
		Status:      model.InstallationActive,
		Plan:        env.Payload.String("planId || plan"),
		InstalledAt: &now,
		UpdatedAt:   now,
	})
	if err != nil {
		return nil, fmt.Errorf("record install: %w", err)
	}
	h.logger.InfoContext(ctx, "tenant installed", "tenant_id", env.TenantID, "company_id", env.CompanyID)
	return inst, nil
}

func (h *LifecycleHandler) uninstall(ctx context.Context, env *model.WebhookEnvelope) (*model.Installation, error) {
	now := h.now().UTC()
	inst, err := h.installations.Upsert(ctx, model.Installation{
		TenantID:      env.TenantID,
		CompanyID:     env.CompanyID,
		Status:        model.InstallationUninstalled,
		UninstalledAt: &now,
		UpdatedAt:     now,
	})
	if err != nil {
		return nil, fmt.Errorf("record uninstall: %w", err)
	}
	h.logger.InfoContext(ctx, "tenant uninstalled", "tenant_id", env.TenantID)
	return inst, nil
}

func (h *LifecycleHandler) planChange(ctx context.Context, env *model.WebhookEnvelope) (*model.Installation, error) {
	current, err := h.installations.Get(ctx, env.TenantID)
	if err != nil {
		return nil, fmt.Errorf("load installation: %w", err)
	}
	next := model.Installation{
		TenantID:  env.TenantID,
		CompanyID: env.CompanyID,
		Status:    model.InstallationActive,
		Plan:      env.Payload.String("planId || plan || newPlan"),
		UpdatedAt: h.now().UTC(),
	}
	if current != nil {
		next.Status = current.Status
		if next.CompanyID == "" {
			next.CompanyID = current.CompanyID
		}
	}
	inst, err := h.installations.Upsert(ctx, next)
	if err != nil {
		return nil, fmt.Errorf("record plan change: %w", err)
	}
	return inst, nil
}

// schedule queues kind for the tenant. An active item for the same tenant
// and kind already covers the work.
func (h *LifecycleHandler) schedule(ctx context.Context, env *model.WebhookEnvelope, kind model.RetryKind) error {
	_, err := h.retries.Create(ctx, &model.CreateRetryItemRequest{
		WebhookID: env.ID,
		TenantID:  env.TenantID,
		Kind:      kind,
		Payload: map[string]any{
			"locationId": env.TenantID,
			"companyId":  env.CompanyID,
			"webhookId":  env.ID,
			"webhook":    map[string]any(env.Payload),
		},
		Reason:      string(env.Type) + " webhook",
		MaxAttempts: h.maxAttempts,
		DedupKey:    string(kind) + ":" + env.TenantID,
	})
	switch {
	case err == nil:
		return nil
	case errors.Is(err, model.ErrDuplicateRetryItem):
		h.logger.DebugContext(ctx, "retry item already active", "kind", kind, "tenant_id", env.TenantID)
		return nil
	default:
		return fmt.Errorf("schedule %s: %w", kind, err)
	}
}

func (h *LifecycleHandler) release(ctx context.Context, meta model.QueueItemMetadata) {
	if h.leases == nil || meta.LeaseKey == "" {
		return
	}
	if err := h.leases.Release(ctx, meta.LeaseKey, meta.LeaseHolder); err != nil {
		h.logger.WarnContext(ctx, "lease release failed", "key", meta.LeaseKey, "error", err)
	}
}
