// Package redis provides Redis-backed adapters: the pub/sub message bus and
// the distributed lease store.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/redis/go-redis/v9"
	"github.com/target/hookline/internal/core"
	"github.com/target/hookline/internal/domain/model"
)

// BusOptions configures a Bus.
type BusOptions struct {
	// Prefix is prepended to every channel on the wire.
	Prefix string
	Logger *slog.Logger
	// BufferSize bounds each subscription's delivery channel.
	BufferSize int
}

// Bus is a MessageBus over Redis PUBLISH/SUBSCRIBE. Messages are JSON
// {"eventName": ..., "payload": ...}.
type Bus struct {
	client redis.UniversalClient
	prefix string
	buffer int
	logger *slog.Logger
}

var _ core.MessageBus = (*Bus)(nil)

// NewBus creates a Bus.
func NewBus(client redis.UniversalClient, opts BusOptions) (*Bus, error) {
	if client == nil {
		return nil, errors.New("redis client is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	buffer := opts.BufferSize
	if buffer <= 0 {
		buffer = 100
	}
	return &Bus{
		client: client,
		prefix: opts.Prefix,
		buffer: buffer,
		logger: logger.With("component", "redis_bus"),
	}, nil
}

// Publish sends msg on its channel.
func (b *Bus) Publish(ctx context.Context, msg model.BusMessage) error {
	if msg.Channel == "" {
		return errors.New("channel is required")
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal bus message: %w", err)
	}
	if err := b.client.Publish(ctx, b.prefix+msg.Channel, data).Err(); err != nil {
		return fmt.Errorf("redis publish: %w", err)
	}
	return nil
}

// Subscribe opens a subscription on channels. The subscription is confirmed
// before Subscribe returns.
func (b *Bus) Subscribe(ctx context.Context, channels ...string) (core.Subscription, error) {
	if len(channels) == 0 {
		return nil, errors.New("at least one channel is required")
	}
	wire := make([]string, len(channels))
	for i, ch := range channels {
		wire[i] = b.prefix + ch
	}

	ps := b.client.Subscribe(ctx, wire...)
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, fmt.Errorf("redis subscribe: %w", err)
	}

	sub := &subscription{ps: ps, out: make(chan model.BusMessage, b.buffer)}
	go sub.pump(b.prefix, b.logger)
	return sub, nil
}

type subscription struct {
	ps  *redis.PubSub
	out chan model.BusMessage
}

func (s *subscription) pump(prefix string, logger *slog.Logger) {
	defer close(s.out)
	for m := range s.ps.Channel() {
		var msg model.BusMessage
		if err := json.Unmarshal([]byte(m.Payload), &msg); err != nil {
			logger.Warn("dropping undecodable bus message", "channel", m.Channel, "error", err)
			continue
		}
		msg.Channel = strings.TrimPrefix(m.Channel, prefix)
		select {
		case s.out <- msg:
		default:
			logger.Warn("subscriber buffer full, dropping message", "channel", msg.Channel)
		}
	}
}

func (s *subscription) Messages() <-chan model.BusMessage { return s.out }

func (s *subscription) Close() error { return s.ps.Close() }
