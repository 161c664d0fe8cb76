package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/target/hookline/internal/core"
	"github.com/target/hookline/internal/domain/model"
)

// RetryHandlersOptions groups dependencies for the downstream retry handlers.
type RetryHandlersOptions struct {
	Downstream    core.DownstreamNotifier     // Required
	Installations core.InstallationRepository // Optional: skips setup for uninstalled tenants
	Logger        *slog.Logger
}

// NewRetryHandlers returns the handlers for install_setup, uninstall_cleanup
// and agency_sync. Each delivers the item payload downstream.
func NewRetryHandlers(opts RetryHandlersOptions) (map[model.RetryKind]RetryHandler, error) {
	if opts.Downstream == nil {
		return nil, errors.New("DownstreamNotifier is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	h := &retryHandlers{
		downstream:    opts.Downstream,
		installations: opts.Installations,
		logger:        logger.With("component", "retry_handlers"),
	}
	return map[model.RetryKind]RetryHandler{
		model.RetryKindInstallSetup:     h.whileInstalled(model.RetryKindInstallSetup),
		model.RetryKindAgencySync:       h.whileInstalled(model.RetryKindAgencySync),
		model.RetryKindUninstallCleanup: h.deliver(model.RetryKindUninstallCleanup),
	}, nil
}

type retryHandlers struct {
	downstream    core.DownstreamNotifier
	installations core.InstallationRepository
	logger        *slog.Logger
}

func (h *retryHandlers) deliver(kind model.RetryKind) RetryHandler {
	return func(ctx context.Context, item *model.RetryItem) error {
		if len(item.Payload) == 0 {
			return model.Permanent(fmt.Errorf("%s item %s has no payload", kind, item.ID))
		}
		return h.downstream.Notify(ctx, kind, item.Payload)
	}
}

// whileInstalled drops work queued for a tenant that has since uninstalled.
func (h *retryHandlers) whileInstalled(kind model.RetryKind) RetryHandler {
	deliver := h.deliver(kind)
	return func(ctx context.Context, item *model.RetryItem) error {
		if h.installations != nil && item.TenantID != "" {
			inst, err := h.installations.Get(ctx, item.TenantID)
			if err != nil {
				return fmt.Errorf("load installation: %w", err)
			}
			if inst != nil && inst.Status == model.InstallationUninstalled {
				h.logger.InfoContext(ctx, "tenant uninstalled, dropping retry item",
					"id", item.ID, "kind", kind, "tenant_id", item.TenantID)
				return nil
			}
		}
		return deliver(ctx, item)
	}
}
