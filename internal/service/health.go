package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/target/hookline/internal/core"
	"github.com/target/hookline/internal/domain/model"
)

// Health thresholds. Scores start at 100 and lose points per signal.
const (
	DefaultHealthWindow = time.Hour

	healthyScore  = 80
	degradedScore = 50

	// errorRatePenalty is scaled by the failure ratio.
	errorRatePenalty = 100
	errorRateWarn    = 0.10
	backlogPenalty   = 15
	stuckPenalty     = 5
	maxStuckPenalty  = 25
	queueDownPenalty = 20
	directFailWarn   = 0.25
)

// HealthServiceOptions groups dependencies for HealthService.
type HealthServiceOptions struct {
	Metrics core.WebhookMetricRepository // Required
	Queue   *QueueService                // Optional: nil skips backlog and stuck signals
	// BacklogWarn is the pending depth past which the backlog costs points.
	BacklogWarn int64
	Logger      *slog.Logger
	Now         func() time.Time
}

// HealthService scores webhook processing from recorded metrics and queue depth.
type HealthService struct {
	metrics     core.WebhookMetricRepository
	queue       *QueueService
	backlogWarn int64
	logger      *slog.Logger
	now         func() time.Time
}

// NewHealthService constructs a HealthService.
func NewHealthService(opts HealthServiceOptions) (*HealthService, error) {
	if opts.Metrics == nil {
		return nil, errors.New("WebhookMetricRepository is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	backlog := opts.BacklogWarn
	if backlog <= 0 {
		backlog = 1000
	}
	return &HealthService{
		metrics:     opts.Metrics,
		queue:       opts.Queue,
		backlogWarn: backlog,
		logger:      logger.With("component", "health"),
		now:         now,
	}, nil
}

// Report scores the last window of traffic. A window of zero uses
// DefaultHealthWindow. Only a failure to read metrics is an error.
func (s *HealthService) Report(ctx context.Context, window time.Duration) (*model.HealthReport, error) {
	if window <= 0 {
		window = DefaultHealthWindow
	}
	now := s.now().UTC()

	summary, err := s.metrics.Summary(ctx, now.Add(-window))
	if err != nil {
		return nil, fmt.Errorf("summarize webhook metrics: %w", err)
	}

	report := &model.HealthReport{
		Window:      window.String(),
		Metrics:     *summary,
		GeneratedAt: now,
	}
	score := 100

	if rate := summary.SuccessRate(); rate < 1 {
		score -= int(math.Round((1 - rate) * errorRatePenalty))
		if 1-rate > errorRateWarn {
			report.Issues = append(report.Issues, fmt.Sprintf("error rate %.1f%%", (1-rate)*100))
		}
	}
	if summary.DirectTotal > 0 {
		if ratio := float64(summary.DirectFailed) / float64(summary.DirectTotal); ratio > directFailWarn {
			report.Issues = append(report.Issues, fmt.Sprintf("direct path falling back %.0f%% of the time", ratio*100))
		}
	}

	if s.queue != nil {
		depths, err := s.queue.Stats(ctx)
		if err != nil {
			s.logger.WarnContext(ctx, "queue stats unavailable", "error", err)
			report.Issues = append(report.Issues, "queue stats unavailable")
			score -= queueDownPenalty
		} else {
			report.Queues = depths
			for _, d := range depths {
				report.Backlog += d.Pending
				report.Stuck += d.Stuck
			}
			if report.Backlog > s.backlogWarn {
				score -= backlogPenalty
				report.Issues = append(report.Issues, fmt.Sprintf("backlog of %d pending items", report.Backlog))
			}
			if report.Stuck > 0 {
				score -= int(min(report.Stuck*stuckPenalty, maxStuckPenalty))
				report.Issues = append(report.Issues, fmt.Sprintf("%d items stuck in processing", report.Stuck))
			}
		}
	}

	report.Score = max(score, 0)
	report.Status = healthStatus(report.Score)
	return report, nil
}

func healthStatus(score int) model.HealthStatus {
	switch {
	case score >= healthyScore:
		return model.HealthHealthy
	case score >= degradedScore:
		return model.HealthDegraded
	default:
		return model.HealthUnhealthy
	}
}
