package service

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/target/hookline/internal/core"
	"github.com/target/hookline/internal/domain/model"
	"github.com/target/hookline/internal/observability/metrics"
	"github.com/target/hookline/internal/observability/statsd"
)

// PublisherOptions groups dependencies for Publisher.
type PublisherOptions struct {
	Bus     core.MessageBus // Optional: nil disables fan-out
	Timeout time.Duration   // Optional: bound on each publish, default 2s
	Logger  *slog.Logger
	Metrics statsd.Sink
}

// Publisher broadcasts real-time events. Publishing never fails the caller:
// errors are logged, counted and dropped.
type Publisher struct {
	bus     core.MessageBus
	timeout time.Duration
	logger  *slog.Logger
	metrics statsd.Sink
}

// NewPublisher constructs a Publisher.
func NewPublisher(opts PublisherOptions) *Publisher {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &Publisher{
		bus:     opts.Bus,
		timeout: timeout,
		logger:  logger.With("component", "publisher"),
		metrics: opts.Metrics,
	}
}

// Publish sends eventName with payload on channel. It returns once the bus
// accepted the message or the publish timeout elapsed, and is detached from
// ctx cancellation.
func (p *Publisher) Publish(ctx context.Context, channel, eventName string, payload any) {
	if p == nil || p.bus == nil || channel == "" {
		return
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		p.drop(ctx, channel, eventName, err)
		return
	}

	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.timeout)
	defer cancel()

	if err := p.bus.Publish(pubCtx, model.BusMessage{
		Channel:   channel,
		EventName: eventName,
		Payload:   raw,
	}); err != nil {
		p.drop(ctx, channel, eventName, err)
	}
}

// Broadcast publishes the same event on every non-empty channel.
func (p *Publisher) Broadcast(ctx context.Context, channels []string, eventName string, payload any) {
	for _, ch := range channels {
		p.Publish(ctx, ch, eventName, payload)
	}
}

func (p *Publisher) drop(ctx context.Context, channel, eventName string, err error) {
	p.logger.WarnContext(ctx, "publish dropped",
		"channel", channel,
		"event", eventName,
		"error", err)
	metrics.EmitPublishFailed(p.metrics, eventName, err)
}
