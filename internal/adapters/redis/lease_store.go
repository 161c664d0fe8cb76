package redis

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/target/hookline/internal/core"
	"github.com/target/hookline/internal/domain/model"
)

// Each lease is a hash {holder, acquired_at, expires_at} with a PEXPIRE
// matching expires_at, so Redis drops expired leases on its own.

var acquireScript = redis.NewScript(`
local holder = redis.call('HGET', KEYS[1], 'holder')
if holder and holder ~= ARGV[1] then
  return 0
end
if not holder then
  redis.call('HSET', KEYS[1], 'holder', ARGV[1], 'acquired_at', ARGV[3])
end
redis.call('HSET', KEYS[1], 'expires_at', ARGV[4])
redis.call('PEXPIRE', KEYS[1], ARGV[2])
return 1
`)

var renewScript = redis.NewScript(`
if redis.call('HGET', KEYS[1], 'holder') ~= ARGV[1] then
  return 0
end
redis.call('HSET', KEYS[1], 'expires_at', ARGV[3])
redis.call('PEXPIRE', KEYS[1], ARGV[2])
return 1
`)

var releaseScript = redis.NewScript(`
if redis.call('HGET', KEYS[1], 'holder') ~= ARGV[1] then
  return 0
end
return redis.call('DEL', KEYS[1])
`)

// LeaseStore is a distributed LeaseStore using Lua compare-and-set scripts.
type LeaseStore struct {
	client redis.UniversalClient
	prefix string
	now    func() time.Time
}

var _ core.LeaseStore = (*LeaseStore)(nil)

// NewLeaseStore creates a LeaseStore whose keys are namespaced by prefix.
func NewLeaseStore(client redis.UniversalClient, prefix string) *LeaseStore {
	return &LeaseStore{client: client, prefix: prefix, now: time.Now}
}

func (s *LeaseStore) key(k string) string { return s.prefix + k }

func checkLease(key, holderID string) error {
	if key == "" {
		return errors.New("lease key is required")
	}
	if holderID == "" {
		return errors.New("holder id is required")
	}
	return nil
}

func millis(t time.Time) string { return strconv.FormatInt(t.UnixMilli(), 10) }

// Acquire grants the lease when absent or already held by holderID. Expired
// leases are absent because Redis evicted them.
func (s *LeaseStore) Acquire(ctx context.Context, key, holderID string, ttl time.Duration) (bool, error) {
	if err := checkLease(key, holderID); err != nil {
		return false, err
	}
	if ttl <= 0 {
		ttl = model.DefaultLeaseDuration
	}
	now := s.now()
	n, err := acquireScript.Run(ctx, s.client, []string{s.key(key)},
		holderID, ttl.Milliseconds(), millis(now), millis(now.Add(ttl))).Int()
	if err != nil {
		return false, fmt.Errorf("acquire lease %s: %w", key, err)
	}
	return n == 1, nil
}

// Renew extends a lease still held by holderID.
func (s *LeaseStore) Renew(ctx context.Context, key, holderID string, ttl time.Duration) (bool, error) {
	if err := checkLease(key, holderID); err != nil {
		return false, err
	}
	if ttl <= 0 {
		ttl = model.DefaultLeaseDuration
	}
	n, err := renewScript.Run(ctx, s.client, []string{s.key(key)},
		holderID, ttl.Milliseconds(), millis(s.now().Add(ttl))).Int()
	if err != nil {
		return false, fmt.Errorf("renew lease %s: %w", key, err)
	}
	return n == 1, nil
}

// Release deletes the lease only if held by holderID.
func (s *LeaseStore) Release(ctx context.Context, key, holderID string) (bool, error) {
	if err := checkLease(key, holderID); err != nil {
		return false, err
	}
	n, err := releaseScript.Run(ctx, s.client, []string{s.key(key)}, holderID).Int()
	if err != nil {
		return false, fmt.Errorf("release lease %s: %w", key, err)
	}
	return n == 1, nil
}

// ReclaimExpired is a no-op: key expiry already removes lapsed leases.
func (s *LeaseStore) ReclaimExpired(context.Context) (int64, error) {
	return 0, nil
}

// List scans the lease namespace. On a cluster client only the node serving
// the scan is visited.
func (s *LeaseStore) List(ctx context.Context) ([]model.Lease, error) {
	var out []model.Lease
	iter := s.client.Scan(ctx, 0, s.prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		fields, err := s.client.HGetAll(ctx, iter.Val()).Result()
		if err != nil {
			return nil, fmt.Errorf("read lease %s: %w", iter.Val(), err)
		}
		if len(fields) == 0 {
			continue
		}
		out = append(out, model.Lease{
			Key:        strings.TrimPrefix(iter.Val(), s.prefix),
			HolderID:   fields["holder"],
			AcquiredAt: parseMillis(fields["acquired_at"]),
			ExpiresAt:  parseMillis(fields["expires_at"]),
		})
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("scan leases: %w", err)
	}
	slices.SortFunc(out, func(a, b model.Lease) int { return strings.Compare(a.Key, b.Key) })
	return out, nil
}

func parseMillis(v string) time.Time {
	ms, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}
