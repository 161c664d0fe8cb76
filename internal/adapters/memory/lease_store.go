package memory

import (
	"context"
	"errors"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/target/hookline/internal/core"
	"github.com/target/hookline/internal/domain/model"
)

// Clock returns the current time.
type Clock func() time.Time

// LeaseStore keeps leases in a map guarded by a mutex. It is correct only
// within a single process.
type LeaseStore struct {
	mu     sync.Mutex
	leases map[string]model.Lease
	now    Clock
}

var _ core.LeaseStore = (*LeaseStore)(nil)

// NewLeaseStore returns an empty LeaseStore. A nil clock uses time.Now.
func NewLeaseStore(now Clock) *LeaseStore {
	if now == nil {
		now = time.Now
	}
	return &LeaseStore{leases: make(map[string]model.Lease), now: now}
}

func validateLease(key, holderID string) error {
	if strings.TrimSpace(key) == "" {
		return errors.New("lease key is required")
	}
	if strings.TrimSpace(holderID) == "" {
		return errors.New("holder id is required")
	}
	return nil
}

// Acquire grants the lease when it is absent, expired, or already held by holderID.
func (s *LeaseStore) Acquire(_ context.Context, key, holderID string, ttl time.Duration) (bool, error) {
	if err := validateLease(key, holderID); err != nil {
		return false, err
	}
	if ttl <= 0 {
		ttl = model.DefaultLeaseDuration
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	cur, ok := s.leases[key]
	if ok && !cur.Expired(now) && cur.HolderID != holderID {
		return false, nil
	}
	acquired := now
	if ok && !cur.Expired(now) {
		acquired = cur.AcquiredAt
	}
	s.leases[key] = model.Lease{Key: key, HolderID: holderID, AcquiredAt: acquired, ExpiresAt: now.Add(ttl)}
	return true, nil
}

// Renew extends a live lease held by holderID.
func (s *LeaseStore) Renew(_ context.Context, key, holderID string, ttl time.Duration) (bool, error) {
	if err := validateLease(key, holderID); err != nil {
		return false, err
	}
	if ttl <= 0 {
		ttl = model.DefaultLeaseDuration
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	cur, ok := s.leases[key]
	if !ok || cur.Expired(now) || cur.HolderID != holderID {
		return false, nil
	}
	cur.ExpiresAt = now.Add(ttl)
	s.leases[key] = cur
	return true, nil
}

// Release deletes the lease only if held by holderID.
func (s *LeaseStore) Release(_ context.Context, key, holderID string) (bool, error) {
	if err := validateLease(key, holderID); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.leases[key]
	if !ok || cur.HolderID != holderID {
		return false, nil
	}
	delete(s.leases, key)
	return true, nil
}

// ReclaimExpired drops expired leases.
func (s *LeaseStore) ReclaimExpired(context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	var n int64
	for k, l := range s.leases {
		if l.Expired(now) {
			delete(s.leases, k)
			n++
		}
	}
	return n, nil
}

// List returns live leases ordered by key.
func (s *LeaseStore) List(context.Context) ([]model.Lease, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	out := make([]model.Lease, 0, len(s.leases))
	for _, l := range s.leases {
		if !l.Expired(now) {
			out = append(out, l)
		}
	}
	slices.SortFunc(out, func(a, b model.Lease) int { return strings.Compare(a.Key, b.Key) })
	return out, nil
}
