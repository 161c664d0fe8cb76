// Package fakes contains simple hand-written test doubles for core ports.
// These are lightweight and suitable for unit tests without codegen.
package fakes

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/target/hookline/internal/core"
	"github.com/target/hookline/internal/domain/model"
)

// Ensure compile-time conformance to ports.
var (
	_ core.ConversationRepository  = (*Conversations)(nil)
	_ core.WebhookMetricRepository = (*Metrics)(nil)
	_ core.DeadLetterNotifier      = (*DeadLetters)(nil)
	_ core.DownstreamNotifier      = (*Downstream)(nil)
	_ core.InstallationRepository  = (*Installations)(nil)
)

func key(tenantID, externalID string) string { return tenantID + "/" + externalID }

// Conversations is an in-memory ConversationRepository. Contacts must be
// registered with AddContact before messages referencing them apply.
type Conversations struct {
	mu       sync.Mutex
	contacts map[string]string // tenant/contact -> owning user id
	messages map[string]model.MessageEffect
	unread   map[string]int
	payments map[string]model.PaymentEffect

	// Err, when set, is returned by every write.
	Err error
}

// NewConversations returns an empty store.
func NewConversations() *Conversations {
	return &Conversations{
		contacts: make(map[string]string),
		messages: make(map[string]model.MessageEffect),
		unread:   make(map[string]int),
		payments: make(map[string]model.PaymentEffect),
	}
}

// AddContact registers a contact owned by userID.
func (c *Conversations) AddContact(tenantID, contactID, userID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.contacts[key(tenantID, contactID)] = userID
}

func (c *Conversations) ApplyMessage(_ context.Context, e model.MessageEffect) (*model.MessageResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Err != nil {
		return nil, c.Err
	}
	userID, ok := c.contacts[key(e.TenantID, e.ContactExternalID)]
	if !ok {
		return nil, model.ErrContactNotFound
	}
	convID := e.ConversationExternalID
	if convID == "" {
		convID = "contact:" + e.ContactExternalID
	}
	res := &model.MessageResult{
		ConversationID: convID,
		MessageID:      e.MessageExternalID,
		ContactID:      e.ContactExternalID,
		UserID:         userID,
	}
	mk := key(e.TenantID, e.MessageExternalID)
	if _, dup := c.messages[mk]; !dup {
		c.messages[mk] = e
		res.Inserted = true
		ck := key(e.TenantID, convID)
		if e.Direction == model.MessageInbound {
			c.unread[ck]++
		} else {
			c.unread[ck] = 0
		}
	}
	res.UnreadCount = c.unread[key(e.TenantID, convID)]
	return res, nil
}

func (c *Conversations) UpdateUnread(_ context.Context, e model.UnreadEffect) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Err != nil {
		return 0, c.Err
	}
	ck := key(e.TenantID, e.ConversationExternalID)
	if e.Reported != nil {
		c.unread[ck] = *e.Reported
	}
	return c.unread[ck], nil
}

func (c *Conversations) RecordPayment(_ context.Context, e model.PaymentEffect) (*model.PaymentResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Err != nil {
		return nil, c.Err
	}
	pk := key(e.TenantID, e.PaymentExternalID)
	_, dup := c.payments[pk]
	if !dup {
		c.payments[pk] = e
	}
	return &model.PaymentResult{PaymentID: e.PaymentExternalID, Inserted: !dup}, nil
}

func (c *Conversations) MessageExists(_ context.Context, tenantID, externalID string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.messages[key(tenantID, externalID)]
	return ok, nil
}

func (c *Conversations) PaymentExists(_ context.Context, tenantID, externalID string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.payments[key(tenantID, externalID)]
	return ok, nil
}

// MessageCount returns how many distinct messages were written.
func (c *Conversations) MessageCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.messages)
}

// PaymentCount returns how many distinct payments were written.
func (c *Conversations) PaymentCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.payments)
}

// Metrics is an in-memory WebhookMetricRepository.
type Metrics struct {
	mu   sync.Mutex
	rows []model.WebhookMetric

	// SummaryResult, when set, is returned by Summary instead of aggregating.
	SummaryResult *model.MetricSummary
}

func (m *Metrics) Record(_ context.Context, row *model.WebhookMetric) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *row
	if cp.ID == "" {
		cp.ID = uuid.NewString()
	}
	m.rows = append(m.rows, cp)
	return nil
}

func (m *Metrics) Summary(_ context.Context, since time.Time) (*model.MetricSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SummaryResult != nil {
		s := *m.SummaryResult
		return &s, nil
	}
	var s model.MetricSummary
	var total time.Duration
	for _, r := range m.rows {
		if r.ReceivedAt.Before(since) {
			continue
		}
		s.Total++
		if r.Success {
			s.Succeeded++
		} else {
			s.Failed++
		}
		if r.Path == model.PathDirect {
			s.DirectTotal++
			if !r.Success {
				s.DirectFailed++
			}
		}
		total += r.ProcessingCompletedAt.Sub(r.ProcessingStartedAt)
	}
	if s.Total > 0 {
		s.AvgLatency = total / time.Duration(s.Total)
	}
	return &s, nil
}

func (m *Metrics) DeleteOlderThan(context.Context, time.Duration, int) (int64, error) {
	return 0, nil
}

// Rows returns a copy of the recorded metrics.
func (m *Metrics) Rows() []model.WebhookMetric {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.WebhookMetric(nil), m.rows...)
}

// DeadLetters records every dead letter it is handed.
type DeadLetters struct {
	mu      sync.Mutex
	letters []core.DeadLetter
}

func (d *DeadLetters) NotifyDeadLetter(_ context.Context, letter core.DeadLetter) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.letters = append(d.letters, letter)
}

// Letters returns a copy of the recorded dead letters.
func (d *DeadLetters) Letters() []core.DeadLetter {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]core.DeadLetter(nil), d.letters...)
}

// Downstream records deliveries. NotifyFunc, when set, decides the result.
type Downstream struct {
	NotifyFunc func(ctx context.Context, kind model.RetryKind, payload []byte) error

	mu    sync.Mutex
	calls []model.RetryKind
}

func (d *Downstream) Notify(ctx context.Context, kind model.RetryKind, payload []byte) error {
	d.mu.Lock()
	d.calls = append(d.calls, kind)
	d.mu.Unlock()
	if d.NotifyFunc != nil {
		return d.NotifyFunc(ctx, kind, payload)
	}
	return nil
}

// Calls returns the kinds delivered so far, in order.
func (d *Downstream) Calls() []model.RetryKind {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]model.RetryKind(nil), d.calls...)
}

// Installations is an in-memory InstallationRepository. Get returns nil for
// unknown tenants.
type Installations struct {
	mu    sync.Mutex
	items map[string]model.Installation
}

func (s *Installations) Upsert(_ context.Context, inst model.Installation) (*model.Installation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.items == nil {
		s.items = make(map[string]model.Installation)
	}
	if prev, ok := s.items[inst.TenantID]; ok {
		if inst.InstalledAt == nil {
			inst.InstalledAt = prev.InstalledAt
		}
		if inst.Plan == "" {
			inst.Plan = prev.Plan
		}
	}
	s.items[inst.TenantID] = inst
	return &inst, nil
}

func (s *Installations) Get(_ context.Context, tenantID string) (*model.Installation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	inst, ok := s.items[tenantID]
	if !ok {
		return nil, nil
	}
	return &inst, nil
}
