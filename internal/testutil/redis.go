package testutil

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

// redisCandidates are tried in order when REDIS_ADDR is unset: the compose
// service name, a CI sidecar, then the local test profile port.
var redisCandidates = []string{"redis:6379", "localhost:6379", "localhost:56379"}

// redisDBLockPrefix holds per-DB reservations in DB 0 so FlushDB on a
// reserved DB cannot drop them.
const redisDBLockPrefix = "hookline:testutil:db_lock:"

// SetupTestRedis returns a client on a flushed, reserved Redis DB. The test is
// skipped when no server answers, or failed when TEST_REQUIRE_REDIS or
// TEST_REQUIRE_INFRA is set.
func SetupTestRedis(t testing.TB) *redis.Client {
	t.Helper()

	addr, ok := findRedis(t)
	if !ok {
		if requireRedis() {
			t.Fatal("redis not available for testing")
		}
		t.Skip("redis not available for testing")
	}

	client := redis.NewClient(&redis.Options{Addr: addr, DB: reserveRedisDB(t, addr)})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.FlushDB(ctx).Err(); err != nil {
		_ = client.Close()
		if requireRedis() {
			t.Fatalf("flush test redis at %s: %v", addr, err)
		}
		t.Skipf("flush test redis at %s: %v", addr, err)
	}
	return client
}

func findRedis(t testing.TB) (string, bool) {
	t.Helper()
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		return addr, pingRedis(t, addr)
	}
	for _, addr := range redisCandidates {
		if pingRedis(t, addr) {
			return addr, true
		}
	}
	return "", false
}

func pingRedis(t testing.TB, addr string) bool {
	client := redis.NewClient(&redis.Options{Addr: addr})
	defer func() { _ = client.Close() }()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Logf("redis not available at %s: %v", addr, err)
		return false
	}
	return true
}

// reserveRedisDB picks a DB index so parallel packages do not flush each
// other: TEST_REDIS_DB when valid, else the first free lock in 1..15, else 1.
func reserveRedisDB(t testing.TB, addr string) int {
	if v := os.Getenv("TEST_REDIS_DB"); v != "" {
		if i, err := strconv.Atoi(v); err == nil && i >= 0 {
			return i
		}
		t.Logf("ignoring invalid TEST_REDIS_DB=%q", v)
	}

	meta := redis.NewClient(&redis.Options{Addr: addr, DB: 0})
	defer func() { _ = meta.Close() }()

	holder := fmt.Sprintf("%d:%d", os.Getpid(), time.Now().UnixNano())
	for i := 1; i <= 15; i++ {
		key := redisDBLockPrefix + strconv.Itoa(i)
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		ok, err := meta.SetNX(ctx, key, holder, 30*time.Minute).Result()
		cancel()
		if err != nil || !ok {
			continue
		}
		t.Cleanup(func() { releaseRedisDB(addr, key) })
		t.Logf("using redis DB %d at %s", i, addr)
		return i
	}
	t.Logf("all redis test DBs reserved at %s, sharing DB 1", addr)
	return 1
}

func releaseRedisDB(addr, key string) {
	client := redis.NewClient(&redis.Options{Addr: addr, DB: 0})
	defer func() { _ = client.Close() }()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_ = client.Del(ctx, key).Err()
}
