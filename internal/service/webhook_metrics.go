package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/target/hookline/internal/core"
	"github.com/target/hookline/internal/domain/model"
	"github.com/target/hookline/internal/observability/metrics"
	"github.com/target/hookline/internal/observability/statsd"
)

// metricWriter records WebhookMetric rows and their StatsD counterparts.
// Failures to record are logged and never surface to the caller.
type metricWriter struct {
	repo   core.WebhookMetricRepository
	sink   statsd.Sink
	logger *slog.Logger
	now    func() time.Time
}

func (w metricWriter) record(
	ctx context.Context,
	env *model.WebhookEnvelope,
	path model.ProcessingPath,
	started time.Time,
	procErr error,
) {
	completed := w.now()
	metrics.EmitWebhookProcessed(w.sink, metrics.WebhookMetric{
		Type:     string(env.Type),
		Path:     string(path),
		Result:   metrics.ResultOf(procErr),
		Duration: completed.Sub(started),
		Err:      procErr,
	})
	if w.repo == nil {
		return
	}

	m := &model.WebhookMetric{
		WebhookID:             env.ID,
		Type:                  env.Type,
		TenantID:              env.TenantID,
		Path:                  path,
		ReceivedAt:            env.ReceivedAt,
		ProcessingStartedAt:   started,
		ProcessingCompletedAt: completed,
		Success:               procErr == nil,
	}
	if procErr != nil {
		msg := procErr.Error()
		m.Error = &msg
	}
	if err := w.repo.Record(context.WithoutCancel(ctx), m); err != nil && w.logger != nil {
		w.logger.WarnContext(ctx, "record webhook metric failed",
			"webhook_id", env.ID, "path", path, "error", err)
	}
}
