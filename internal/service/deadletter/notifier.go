// Package deadletter fans terminally failed queue and retry items out to
// alerting sinks.
package deadletter

import (
	"context"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/target/hookline/internal/core"
	"github.com/target/hookline/internal/observability/notify"
)

// SinkRegistration pairs a sink implementation with a human-readable name for logging.
type SinkRegistration struct {
	Name string
	Sink notify.Sink
}

// Options configures the dead-letter notifier.
type Options struct {
	Logger *slog.Logger
	Sinks  []SinkRegistration
	// Timeout bounds one fan-out across all sinks. Zero means 10s.
	Timeout time.Duration
}

// Service dispatches dead letters to all registered sinks.
type Service struct {
	logger  *slog.Logger
	sinks   []SinkRegistration
	timeout time.Duration
}

var _ core.DeadLetterNotifier = (*Service)(nil)

// NewService constructs a dead-letter notifier.
func NewService(opts Options) *Service {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var sinks []SinkRegistration
	for _, entry := range opts.Sinks {
		if entry.Sink == nil {
			continue
		}
		if entry.Name == "" {
			entry.Name = "sink"
		}
		sinks = append(sinks, entry)
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &Service{
		logger:  logger.With("component", "dead_letter_notifier"),
		sinks:   sinks,
		timeout: timeout,
	}
}

// NotifyDeadLetter delivers letter to every sink concurrently. Delivery errors
// are logged; the caller is never failed by a sink.
func (s *Service) NotifyDeadLetter(ctx context.Context, letter core.DeadLetter) {
	if s == nil || len(s.sinks) == 0 {
		return
	}

	payload := toPayload(letter)
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
	defer cancel()

	var wg sync.WaitGroup
	for _, entry := range s.sinks {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := entry.Sink.SendDeadLetter(ctx, payload); err != nil {
				s.logger.ErrorContext(ctx, "dead letter delivery failed",
					"sink", entry.Name,
					"source", payload.Source,
					"item_id", payload.ItemID,
					"kind", payload.Kind,
					"error", err,
				)
			}
		}()
	}
	wg.Wait()
}

// Enabled reports whether the notifier has any active sinks.
func (s *Service) Enabled() bool {
	return s != nil && len(s.sinks) > 0
}

func toPayload(letter core.DeadLetter) notify.DeadLetterPayload {
	occurred := letter.FailedAt
	if occurred.IsZero() {
		occurred = time.Now().UTC()
	}
	severity := notify.SeverityError
	if letter.Source == "retry" {
		// Retry items carry install and sync work; a dead one leaves a tenant half set up.
		severity = notify.SeverityCritical
	}
	return notify.DeadLetterPayload{
		Source:     letter.Source,
		ItemID:     letter.ID,
		WebhookID:  letter.WebhookID,
		Kind:       letter.Kind,
		TenantID:   letter.TenantID,
		Attempts:   letter.Attempts,
		Error:      letter.Error,
		Severity:   severity,
		OccurredAt: occurred,
		Metadata: map[string]string{
			"attempts": strconv.Itoa(letter.Attempts),
		},
	}
}
