package main

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/target/hookline/config"
	"github.com/target/hookline/internal/domain/model"
	"github.com/target/hookline/internal/service"
)

func TestPrintUsageListsEveryCommand(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, printUsage(&buf))

	out := buf.String()
	for name := range commands() {
		assert.Contains(t, out, name)
	}
	assert.Less(t, strings.Index(out, "health"), strings.Index(out, "tail"), "commands are sorted")
}

func TestParseMigrateFlags(t *testing.T) {
	opts, err := parseMigrateFlags(nil)
	require.NoError(t, err)
	assert.Equal(t, defaultMigrationTimeout, opts.Timeout)

	_, err = parseMigrateFlags([]string{"-timeout", "0s"})
	require.Error(t, err)
}

func TestParseHealthFlags(t *testing.T) {
	opts, err := parseHealthFlags([]string{"-window", "15m", "-json"})
	require.NoError(t, err)
	assert.Equal(t, 15*time.Minute, opts.Window)
	assert.True(t, opts.JSON)
	assert.Equal(t, defaultCommandTimeout, opts.Timeout)

	_, err = parseHealthFlags([]string{"-window", "-1m"})
	require.Error(t, err)
}

func TestParseReleaseLeaseFlags(t *testing.T) {
	_, err := parseReleaseLeaseFlags(nil)
	require.EqualError(t, err, "--key is required")

	opts, err := parseReleaseLeaseFlags([]string{"-key", " company:c1 ", "-yes"})
	require.NoError(t, err)
	assert.Equal(t, "company:c1", opts.Key)
	assert.True(t, opts.Yes)
	assert.Empty(t, opts.Holder)
}

func TestParseTailFlags(t *testing.T) {
	opts, err := parseTailFlags([]string{"-channels", "a, b,", "-tenant", "loc-1", "-user", "u-1"})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", model.TenantChannel("loc-1"), model.UserChannel("u-1")}, opts.Channels)

	_, err = parseTailFlags(nil)
	require.Error(t, err)

	_, err = parseTailFlags([]string{"-tenant", "loc-1", "-for", "-1s"})
	require.Error(t, err)
}

func TestCurrentHolder(t *testing.T) {
	leases := []model.Lease{{Key: "company:c1", HolderID: "wh-1"}}

	holder, err := currentHolder(leases, "company:c1")
	require.NoError(t, err)
	assert.Equal(t, "wh-1", holder)

	_, err = currentHolder(leases, "company:c2")
	require.ErrorIs(t, err, errLeaseNotHeld)
}

func TestConfirm(t *testing.T) {
	tests := []struct {
		input   string
		wantErr bool
	}{
		{input: "y\n"},
		{input: "YES\n"},
		{input: "n\n", wantErr: true},
		{input: "", wantErr: true},
	}
	for _, tt := range tests {
		var out bytes.Buffer
		cmdCtx := &commandContext{Out: &out, In: strings.NewReader(tt.input)}
		err := confirm(cmdCtx, "About to do it.")
		if tt.wantErr {
			require.Error(t, err, "input %q", tt.input)
		} else {
			require.NoError(t, err, "input %q", tt.input)
		}
		assert.Contains(t, out.String(), "Continue? [y/N]")
	}
}

func TestPrintQueueDepths(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, printQueueDepths(&buf, []model.QueueDepth{
		{Queue: model.QueueCritical, Pending: 3, Processing: 1, Stuck: 1},
		{Queue: model.QueueGeneral, Pending: 10},
	}))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "QUEUE"))
	assert.Contains(t, lines[1], string(model.QueueCritical))
	assert.Equal(t, []string{string(model.QueueGeneral), "10", "0", "0", "0", "0"}, strings.Fields(lines[2]))
}

func TestPrintRetryReport(t *testing.T) {
	report := &model.RetryRunReport{LeasesReclaimed: 2, Purged: 5}
	report.Counts(model.RetryKind("setup")).Record(true)
	report.Counts(model.RetryKind("setup")).Record(false)
	report.Counts(model.RetryKind("agency_sync")).Record(true)

	var buf bytes.Buffer
	require.NoError(t, printRetryReport(&buf, report))

	out := buf.String()
	assert.Less(t, strings.Index(out, "agency_sync"), strings.Index(out, "setup"))
	assert.Contains(t, out, "Leases reclaimed: 2")
	assert.Contains(t, out, "Purged: 5")
	for _, line := range strings.Split(out, "\n") {
		if strings.HasPrefix(line, "total") {
			assert.Equal(t, []string{"total", "3", "2", "1"}, strings.Fields(line))
		}
	}
}

func TestPrintReaperReport(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, printReaperReport(&buf, service.ReaperReport{ExpiredQueueItems: 4, OldMetrics: 6}))
	assert.Contains(t, buf.String(), "Total")
	assert.Contains(t, buf.String(), "10")
}

func TestPrintHealthReport(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, printHealthReport(&buf, &model.HealthReport{
		Score:   70,
		Status:  model.HealthDegraded,
		Window:  "1h0m0s",
		Metrics: model.MetricSummary{Total: 10, Succeeded: 7, Failed: 3},
		Issues:  []string{"error rate 30.0%"},
	}))

	out := buf.String()
	assert.Contains(t, out, "Status: degraded (score 70, window 1h0m0s)")
	assert.Contains(t, out, "70.0% success")
	assert.Contains(t, out, "  - error rate 30.0%")
}

func TestPrintLeases(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

	var empty bytes.Buffer
	require.NoError(t, printLeases(&empty, nil, now))
	assert.Equal(t, "No leases held.\n", empty.String())

	var buf bytes.Buffer
	require.NoError(t, printLeases(&buf, []model.Lease{
		{Key: "company:c1", HolderID: "wh-1", AcquiredAt: now.Add(-time.Minute), ExpiresAt: now.Add(90 * time.Second)},
		{Key: "company:c2", HolderID: "wh-2", AcquiredAt: now.Add(-time.Hour), ExpiresAt: now.Add(-time.Minute)},
	}, now))
	out := buf.String()
	assert.Contains(t, out, "1m30s")
	assert.Contains(t, out, "expired")
}

func TestPrintJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, printJSON(&buf, model.Lease{Key: "company:c1", HolderID: "wh-1"}))

	var got map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, "wh-1", got["holderId"])
}

func TestPrintMessages(t *testing.T) {
	msgs := make(chan model.BusMessage, 2)
	msgs <- model.BusMessage{Channel: "tenant:loc-1", EventName: model.EventMessageCreated, Payload: json.RawMessage(`{"id":"m1"}`)}
	close(msgs)

	var buf bytes.Buffer
	require.NoError(t, printMessages(context.Background(), &buf, msgs))
	assert.Contains(t, buf.String(), "tenant:loc-1\tmessage.created\t{\"id\":\"m1\"}")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, printMessages(ctx, &buf, make(chan model.BusMessage)))
}

func TestHasRedisConfig(t *testing.T) {
	assert.False(t, hasRedisConfig(nil))
	assert.False(t, hasRedisConfig(&config.RedisConfig{}))
	assert.True(t, hasRedisConfig(&config.RedisConfig{URI: "redis://localhost:6379"}))
	assert.False(t, hasRedisConfig(&config.RedisConfig{URI: "redis://localhost:6379", Disabled: true}))
	assert.True(t, hasRedisConfig(&config.RedisConfig{UseSentinel: true, SentinelNodes: []string{"s:26379"}}))
	assert.True(t, hasRedisConfig(&config.RedisConfig{UseCluster: true, ClusterNodes: []string{"n1:6379"}}))
}
