package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/target/hookline/internal/domain/model"
	"github.com/target/hookline/internal/testutil"
)

func testEnvelope(t *testing.T, raw string) *model.WebhookEnvelope {
	t.Helper()
	env, err := model.ParseEnvelope([]byte(raw), model.ParseEnvelopeOptions{
		ReceivedAt: testutil.TestTime(),
		NewID:      func() string { return "wh-generated" },
	})
	require.NoError(t, err)
	return env
}

func testClock() func() time.Time {
	return testutil.FixedTimeFunc(testutil.TestTime())
}
