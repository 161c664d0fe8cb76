package statsd

import (
	"log/slog"
	"net"
	"strings"
	"testing"
	"time"
)

func TestSanitizePrefix(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"  metrics.app  ": "metrics.app",
		"..foo..":         "foo",
		".":               "",
		"":                "",
	}

	for input, want := range tests {
		if got := sanitizePrefix(input); got != want {
			t.Fatalf("sanitizePrefix(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestNormalizeMetricName(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		" job/metric ":   "job_metric",
		"foo..bar":       "foo.bar",
		"multi  space":   "multi__space",
		"slash/name/id":  "slash_name_id",
		"webhook|type:x": "webhook_type_x",
		"queue#depth@1":  "queue_depth_1",
	}

	for input, want := range tests {
		if got := normalizeMetricName(input); got != want {
			t.Fatalf("normalizeMetricName(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestFormatTags(t *testing.T) {
	t.Parallel()

	global := map[string]string{
		"env": "prod",
		// Intentionally padded key/value to ensure trimming logic works.
		//nolint:gocritic // whitespace is part of the test case
		" service ": " hookline ",
	}
	local := map[string]string{
		"result": " success ",
		"":       "ignored",
		"env":    "stage",
	}

	got := formatTags(global, local)
	want := "|#env:stage,result:success,service:hookline"

	if got != want {
		t.Fatalf("formatTags mismatch\n got: %q\nwant: %q", got, want)
	}
}

func TestFormatTagsStripsDelimiters(t *testing.T) {
	t.Parallel()

	got := formatTags(nil, map[string]string{
		"tenant:id": "loc|1,2",
		"type":      "InboundMessage#x",
		"url":       "https://example.com",
	})
	want := "|#tenant_id:loc_1_2,type:InboundMessage_x,url:https://example.com"
	if got != want {
		t.Fatalf("formatTags mismatch\n got: %q\nwant: %q", got, want)
	}
}

func TestFormatTagsEmpty(t *testing.T) {
	t.Parallel()

	if got := formatTags(nil, nil); got != "" {
		t.Fatalf("formatTags(nil, nil) = %q, want empty string", got)
	}
}

func TestCloneTagsReturnsCopy(t *testing.T) {
	t.Parallel()

	original := map[string]string{
		"env": "prod",
		"":    "ignored",
	}

	cloned := cloneTags(original)
	if cloned == nil {
		t.Fatal("cloneTags returned nil map")
	}

	cloned["env"] = "stage"
	if original["env"] != "prod" {
		t.Fatal("cloneTags did not copy values")
	}

	if _, ok := cloned[""]; ok {
		t.Fatal("cloneTags kept empty key")
	}
}

func TestClientEnabledAndClose(t *testing.T) {
	t.Parallel()

	clientConn, peerConn := net.Pipe()
	defer peerConn.Close()

	client := &Client{
		enabled: true,
		conn:    clientConn,
	}

	if !client.Enabled() {
		t.Fatal("expected client.Enabled to report true with active connection")
	}

	if err := client.Close(); err != nil {
		t.Fatalf("Close error: %v", err)
	}

	if client.Enabled() {
		t.Fatal("expected client.Enabled to report false after Close")
	}

	// Verify Close can be called again without error.
	if err := client.Close(); err != nil {
		t.Fatalf("Close (second call) error: %v", err)
	}

	var nilClient *Client
	if nilClient.Enabled() {
		t.Fatal("nil client should report disabled")
	}
	if err := nilClient.Close(); err != nil {
		t.Fatalf("nil client Close error: %v", err)
	}
}

func TestNewClientDisabledWithoutAddress(t *testing.T) {
	t.Parallel()

	client, err := NewClient(Config{
		Enabled: true,
		Address: "   ",
	})
	if err != nil {
		t.Fatalf("NewClient error: %v", err)
	}

	if client.Enabled() {
		t.Fatal("expected client to stay disabled when address is empty")
	}
}

func TestNewClientDialError(t *testing.T) {
	t.Parallel()

	_, err := NewClient(Config{
		Enabled: true,
		Address: "bad address",
	})
	if err == nil {
		t.Fatal("expected NewClient to error for invalid address")
	}
	if !strings.Contains(err.Error(), "statsd dial") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestClientWritesTaggedLines(t *testing.T) {
	t.Parallel()

	clientConn, peerConn := net.Pipe()
	defer peerConn.Close()

	client := &Client{
		enabled:    true,
		prefix:     "hookline",
		globalTags: map[string]string{"env": "test"},
		conn:       clientConn,
		logger:     slog.Default(),
	}
	defer client.Close()

	lines := make(chan string, 1)
	go func() {
		buf := make([]byte, 256)
		n, _ := peerConn.Read(buf)
		lines <- string(buf[:n])
	}()

	client.Count("webhook.received", 2, map[string]string{"type": "InboundMessage"})

	got := <-lines
	want := "hookline.webhook.received:2|c|#env:test,type:InboundMessage"
	if got != want {
		t.Fatalf("line mismatch\n got: %q\nwant: %q", got, want)
	}
}

func TestRecorderTotals(t *testing.T) {
	t.Parallel()

	r := NewRecorder()
	r.Count("queue.claimed", 3, map[string]string{"queue": "messages"})
	r.Count("queue.claimed", 2, map[string]string{"queue": "critical"})
	r.Timing("webhook.duration", 1500*time.Millisecond, nil)
	r.Gauge("queue.depth", 7, map[string]string{"queue": "messages"})

	if got := r.Total("queue.claimed", nil); got != 5 {
		t.Fatalf("Total(queue.claimed) = %v, want 5", got)
	}
	if got := r.Total("queue.claimed", map[string]string{"queue": "messages"}); got != 3 {
		t.Fatalf("Total(queue.claimed, messages) = %v, want 3", got)
	}
	if got := r.Total("webhook.duration", nil); got != 1500 {
		t.Fatalf("Total(webhook.duration) = %v, want 1500", got)
	}
	if n := len(r.Samples()); n != 4 {
		t.Fatalf("len(Samples) = %d, want 4", n)
	}
}
