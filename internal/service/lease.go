package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/target/hookline/internal/core"
	"github.com/target/hookline/internal/domain/lease"
	"github.com/target/hookline/internal/domain/model"
	"github.com/target/hookline/internal/observability/metrics"
	"github.com/target/hookline/internal/observability/statsd"
)

// LeaseServiceOptions groups dependencies for LeaseService.
type LeaseServiceOptions struct {
	Store   core.LeaseStore // Required
	Policy  *lease.Policy   // Optional: defaults to model.DefaultLeaseDuration
	Logger  *slog.Logger
	Metrics statsd.Sink
}

// LeaseService grants per-tenant exclusive leases over a pluggable store.
type LeaseService struct {
	store   core.LeaseStore
	policy  *lease.Policy
	logger  *slog.Logger
	metrics statsd.Sink
}

// NewLeaseService constructs a LeaseService.
func NewLeaseService(opts LeaseServiceOptions) (*LeaseService, error) {
	if opts.Store == nil {
		return nil, errors.New("LeaseStore is required")
	}
	policy := opts.Policy
	if policy == nil {
		var err error
		if policy, err = lease.NewPolicy(model.DefaultLeaseDuration); err != nil {
			return nil, err
		}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &LeaseService{
		store:   opts.Store,
		policy:  policy,
		logger:  logger.With("component", "lease_service"),
		metrics: opts.Metrics,
	}, nil
}

// Acquire tries to take key for holderID. A false result means another
// holder owns a live lease; the caller should answer "try later".
func (s *LeaseService) Acquire(ctx context.Context, key, holderID string, duration time.Duration) (bool, error) {
	decision := s.policy.Resolve(duration)
	if decision.Clamped() {
		s.logger.DebugContext(ctx, "lease duration clamped",
			"key", key, "requested", decision.Requested, "duration", decision.Duration)
	}
	ok, err := s.store.Acquire(ctx, key, holderID, decision.Duration)
	if err != nil {
		return false, fmt.Errorf("acquire lease %s: %w", key, err)
	}
	return ok, nil
}

// AcquireFor is Acquire with contention counted against webhookType.
func (s *LeaseService) AcquireFor(ctx context.Context, webhookType model.WebhookType, key, holderID string) (bool, error) {
	ok, err := s.Acquire(ctx, key, holderID, 0)
	if err == nil && !ok {
		metrics.EmitLeaseContention(s.metrics, string(webhookType))
		s.logger.InfoContext(ctx, "lease held by another holder", "key", key, "type", webhookType)
	}
	return ok, err
}

// Renew extends a lease still held by holderID.
func (s *LeaseService) Renew(ctx context.Context, key, holderID string, duration time.Duration) (bool, error) {
	ok, err := s.store.Renew(ctx, key, holderID, s.policy.Resolve(duration).Duration)
	if err != nil {
		return false, fmt.Errorf("renew lease %s: %w", key, err)
	}
	return ok, nil
}

// Release gives up key if still held by holderID. Releasing a lease that
// expired or passed to another holder is not an error.
func (s *LeaseService) Release(ctx context.Context, key, holderID string) error {
	released, err := s.store.Release(ctx, key, holderID)
	if err != nil {
		return fmt.Errorf("release lease %s: %w", key, err)
	}
	if !released {
		s.logger.DebugContext(ctx, "lease not held at release", "key", key, "holder", holderID)
	}
	return nil
}

// ReclaimExpired deletes expired leases.
func (s *LeaseService) ReclaimExpired(ctx context.Context) (int64, error) {
	return s.store.ReclaimExpired(ctx)
}

// List returns live leases.
func (s *LeaseService) List(ctx context.Context) ([]model.Lease, error) {
	return s.store.List(ctx)
}
