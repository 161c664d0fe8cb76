package testutil

import (
	"testing"
	"time"

	"golang.org/x/sync/errgroup"
)

// TestTime is the fixed instant tests anchor their clocks to.
func TestTime() time.Time {
	return time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
}

// FixedTimeFunc returns a clock that always reads t.
func FixedTimeFunc(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

// RunConcurrently starts every fn at once and fails tb with the first error
// once all have returned.
func RunConcurrently(tb testing.TB, fns ...func() error) {
	tb.Helper()
	var g errgroup.Group
	for _, fn := range fns {
		g.Go(fn)
	}
	if err := g.Wait(); err != nil {
		tb.Fatalf("concurrent operation failed: %v", err)
	}
}
