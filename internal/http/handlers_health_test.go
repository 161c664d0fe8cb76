package httpx

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/target/hookline/internal/domain/model"
	"github.com/target/hookline/internal/mocks/fakes"
	"github.com/target/hookline/internal/service"
)

func TestHealthHandlerGET(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()

	healthHandler(rec, req)

	resp := rec.Result()
	t.Cleanup(func() { _ = resp.Body.Close() })

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, resp.StatusCode)
	}

	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Fatalf("expected content-type application/json, got %q", ct)
	}

	body := rec.Body.String()
	if body != `{"status":"ok"}` {
		t.Fatalf("unexpected body: %q", body)
	}
}

func TestHealthHandlerHEAD(t *testing.T) {
	req := httptest.NewRequest(http.MethodHead, "/healthz", nil)
	rec := httptest.NewRecorder()

	healthHandler(rec, req)

	resp := rec.Result()
	t.Cleanup(func() { _ = resp.Body.Close() })

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, resp.StatusCode)
	}

	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Fatalf("expected content-type application/json, got %q", ct)
	}

	if bodyLen := rec.Body.Len(); bodyLen != 0 {
		t.Fatalf("expected empty body for HEAD request, got %d bytes", bodyLen)
	}
}

func newHealthRouter(t *testing.T, summary *model.MetricSummary) http.Handler {
	t.Helper()
	svc, err := service.NewHealthService(service.HealthServiceOptions{
		Metrics: &fakes.Metrics{SummaryResult: summary},
	})
	require.NoError(t, err)
	return NewRouter(RouterServices{Health: svc})
}

func TestWebhookHealthReport(t *testing.T) {
	t.Run("healthy", func(t *testing.T) {
		h := newHealthRouter(t, nil)
		req := httptest.NewRequest(http.MethodGet, "/healthz/webhooks?window=15m", nil)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		var got model.HealthReport
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
		assert.Equal(t, 100, got.Score)
		assert.Equal(t, model.HealthHealthy, got.Status)
		assert.Equal(t, "15m0s", got.Window)
	})

	t.Run("unhealthy answers 503", func(t *testing.T) {
		h := newHealthRouter(t, &model.MetricSummary{Total: 10, Succeeded: 4, Failed: 6})
		req := httptest.NewRequest(http.MethodGet, "/healthz/webhooks", nil)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		require.Equal(t, http.StatusServiceUnavailable, rec.Code)
		var got model.HealthReport
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
		assert.Equal(t, model.HealthUnhealthy, got.Status)
	})

	t.Run("invalid window", func(t *testing.T) {
		h := newHealthRouter(t, nil)
		req := httptest.NewRequest(http.MethodGet, "/healthz/webhooks?window=soon", nil)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}
