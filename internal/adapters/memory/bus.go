// Package memory provides in-process implementations of hookline's storage
// and messaging ports for tests and single-instance development.
package memory

import (
	"context"
	"errors"
	"sync"

	"github.com/target/hookline/internal/core"
	"github.com/target/hookline/internal/domain/model"
)

// ErrBusClosed is returned by Publish and Subscribe after Close.
var ErrBusClosed = errors.New("memory bus closed")

const defaultBufferSize = 64

// Bus is an in-process MessageBus. Slow subscribers drop messages rather than
// block publishers.
type Bus struct {
	mu     sync.RWMutex
	subs   map[string]map[*subscription]struct{}
	buffer int
	closed bool
}

var _ core.MessageBus = (*Bus)(nil)

// NewBus returns a Bus whose subscriptions buffer bufferSize messages.
func NewBus(bufferSize int) *Bus {
	if bufferSize <= 0 {
		bufferSize = defaultBufferSize
	}
	return &Bus{
		subs:   make(map[string]map[*subscription]struct{}),
		buffer: bufferSize,
	}
}

// Publish delivers msg to every current subscriber of msg.Channel.
func (b *Bus) Publish(ctx context.Context, msg model.BusMessage) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return ErrBusClosed
	}
	for sub := range b.subs[msg.Channel] {
		sub.deliver(msg)
	}
	return nil
}

// Subscribe registers for channels until ctx is done or the subscription is closed.
func (b *Bus) Subscribe(ctx context.Context, channels ...string) (core.Subscription, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, ErrBusClosed
	}

	sub := &subscription{
		bus:      b,
		channels: channels,
		out:      make(chan model.BusMessage, b.buffer),
		done:     make(chan struct{}),
	}
	for _, ch := range channels {
		if b.subs[ch] == nil {
			b.subs[ch] = make(map[*subscription]struct{})
		}
		b.subs[ch][sub] = struct{}{}
	}

	go func() {
		select {
		case <-ctx.Done():
			_ = sub.Close()
		case <-sub.done:
		}
	}()
	return sub, nil
}

// Close ends every subscription and rejects further use.
func (b *Bus) Close() error {
	b.mu.Lock()
	subs := make(map[*subscription]struct{})
	for _, set := range b.subs {
		for s := range set {
			subs[s] = struct{}{}
		}
	}
	b.closed = true
	b.mu.Unlock()

	for s := range subs {
		_ = s.Close()
	}
	return nil
}

func (b *Bus) remove(sub *subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range sub.channels {
		delete(b.subs[ch], sub)
		if len(b.subs[ch]) == 0 {
			delete(b.subs, ch)
		}
	}
}

type subscription struct {
	bus      *Bus
	channels []string
	out      chan model.BusMessage
	done     chan struct{}

	mu     sync.Mutex
	closed bool
}

func (s *subscription) deliver(msg model.BusMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	select {
	case s.out <- msg:
	default:
	}
}

func (s *subscription) Messages() <-chan model.BusMessage { return s.out }

func (s *subscription) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	close(s.done)
	close(s.out)
	s.mu.Unlock()

	s.bus.remove(s)
	return nil
}
