package httpx

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/target/hookline/config"
	"github.com/target/hookline/internal/adapters/memory"
	"github.com/target/hookline/internal/domain/model"
	"github.com/target/hookline/internal/mocks/fakes"
	"github.com/target/hookline/internal/service"
)

const webhookSecret = "webhook-secret"

const inboundMessage = `{"type":"InboundMessage","webhookId":"wh-1","locationId":"loc-1","contactId":"c-1","conversationId":"conv-1","messageId":"m-1","body":"hi"}`

type webhookFixture struct {
	queue  *memory.Queue
	convs  *fakes.Conversations
	leases *service.LeaseService
	router http.Handler
}

func newWebhookFixture(t *testing.T, maxBody int64) *webhookFixture {
	t.Helper()
	f := &webhookFixture{
		queue: memory.NewQueue(nil, 0),
		convs: fakes.NewConversations(),
	}
	verifier, err := service.NewVerifier(service.VerifierOptions{Secret: webhookSecret})
	require.NoError(t, err)
	qs, err := service.NewQueueService(service.QueueServiceOptions{Repo: f.queue})
	require.NoError(t, err)
	f.leases, err = service.NewLeaseService(service.LeaseServiceOptions{Store: memory.NewLeaseStore(nil)})
	require.NoError(t, err)
	direct, err := service.NewDirectProcessor(service.DirectProcessorOptions{Conversations: f.convs, Queue: qs})
	require.NoError(t, err)
	ingest, err := service.NewIngestService(service.IngestServiceOptions{
		Verifier: verifier,
		Queue:    qs,
		Dedup:    service.NewDeduplicator(service.DeduplicatorOptions{Conversations: f.convs, Queue: f.queue}),
		Leases:   f.leases,
		Direct:   direct,
		Config:   config.WebhookConfig{ReplayWindow: 5 * time.Minute},
	})
	require.NoError(t, err)

	f.router = NewRouter(RouterServices{Ingest: ingest, MaxBodyBytes: maxBody})
	return f
}

func sign(body string) string {
	mac := hmac.New(sha256.New, []byte(webhookSecret))
	mac.Write([]byte(body))
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

func (f *webhookFixture) post(t *testing.T, path, body, signature string) (*http.Response, webhookResponse) {
	t.Helper()
	r := httptest.NewRequest(http.MethodPost, path, bytes.NewBufferString(body))
	if signature != "" {
		r.Header.Set(defaultSignatureHeader, signature)
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, r)

	resp := w.Result()
	t.Cleanup(func() { _ = resp.Body.Close() })
	var got webhookResponse
	if resp.StatusCode == http.StatusOK {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	}
	return resp, got
}

func TestReceive_InvalidSignature(t *testing.T) {
	f := newWebhookFixture(t, 0)
	f.convs.AddContact("loc-1", "c-1", "u-1")

	for _, sig := range []string{"", "sha256=00", "not-a-signature"} {
		resp, _ := f.post(t, "/webhooks", inboundMessage, sig)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	}
	assert.Empty(t, f.queue.Items())
	assert.Zero(t, f.convs.MessageCount())
}

func TestReceive_FastPath(t *testing.T) {
	f := newWebhookFixture(t, 0)
	f.convs.AddContact("loc-1", "c-1", "u-1")

	resp, got := f.post(t, "/webhooks", inboundMessage, sign(inboundMessage))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	assert.True(t, got.Success)
	assert.Equal(t, "wh-1", got.WebhookID)
	assert.Equal(t, string(service.IngestProcessed), got.Status)
	assert.NotEmpty(t, got.QueueItemID)
	assert.Equal(t, 1, f.convs.MessageCount())
}

func TestReceive_UnknownContactIsQueued(t *testing.T) {
	f := newWebhookFixture(t, 0)

	resp, got := f.post(t, "/webhooks/crm", inboundMessage, sign(inboundMessage))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, got.Success)
	assert.Equal(t, string(service.IngestQueued), got.Status)

	items := f.queue.Items()
	require.Len(t, items, 1)
	assert.Equal(t, got.QueueItemID, items[0].ID)
	assert.False(t, items[0].Metadata.DirectProcessed)
}

func TestReceive_DuplicateDelivery(t *testing.T) {
	f := newWebhookFixture(t, 0)

	_, first := f.post(t, "/webhooks", inboundMessage, sign(inboundMessage))
	require.Equal(t, string(service.IngestQueued), first.Status)

	resp, second := f.post(t, "/webhooks", inboundMessage, sign(inboundMessage))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, second.Success)
	assert.Equal(t, string(service.IngestDuplicate), second.Status)
	assert.Len(t, f.queue.Items(), 1)
}

func TestReceive_InstallUnderHeldLease(t *testing.T) {
	f := newWebhookFixture(t, 0)
	body := `{"type":"INSTALL","webhookId":"wh-install","locationId":"loc-1","companyId":"co-1"}`
	key := model.TenantScope("co-1", "loc-1")

	ok, err := f.leases.Acquire(context.Background(), key, "other-holder", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	resp, got := f.post(t, "/webhooks", body, sign(body))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, got.Success)
	assert.Equal(t, string(service.IngestProcessing), got.Status)
	assert.Empty(t, f.queue.Items())
}

func TestReceive_MalformedEnvelopeIsAcknowledged(t *testing.T) {
	f := newWebhookFixture(t, 0)
	body := `{"webhookId":"wh-2"}`

	resp, got := f.post(t, "/webhooks", body, sign(body))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.False(t, got.Success)
	assert.Equal(t, string(service.IngestRejected), got.Status)
	assert.NotEmpty(t, got.Error)
}

func TestReceive_BodyTooLarge(t *testing.T) {
	f := newWebhookFixture(t, 64)
	body := `{"type":"InboundMessage","webhookId":"wh-big","body":"` + strings.Repeat("x", 128) + `"}`

	resp, got := f.post(t, "/webhooks", body, sign(body))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.False(t, got.Success)
	assert.Equal(t, "payload too large", got.Error)
	assert.Empty(t, f.queue.Items())
}

func TestReceive_UnsignedOversizedBodyIsUnauthorized(t *testing.T) {
	f := newWebhookFixture(t, 64)
	body := `{"type":"InboundMessage","webhookId":"wh-big","body":"` + strings.Repeat("x", 128) + `"}`

	for _, sig := range []string{"", "   "} {
		r := httptest.NewRequest(http.MethodPost, "/webhooks", bytes.NewBufferString(body))
		r.Header.Set(defaultSignatureHeader, sig)
		w := httptest.NewRecorder()
		f.router.ServeHTTP(w, r)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Contains(t, w.Body.String(), "invalid_signature")
	}
	assert.Empty(t, f.queue.Items())
}

func TestReceive_MethodNotAllowed(t *testing.T) {
	f := newWebhookFixture(t, 0)
	r := httptest.NewRequest(http.MethodGet, "/webhooks", nil)
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, r)
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}
