// Package httpx provides the HTTP surface of hookline: webhook ingress,
// scheduler-invoked cron endpoints and health checks.
package httpx

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/target/hookline/internal/domain/model"
	"github.com/target/hookline/internal/service"
)

const (
	defaultSignatureHeader = "X-Webhook-Signature"
	defaultMaxBodyBytes    = 1 << 20
)

var errMissingSignature = fmt.Errorf("%w: missing signature header", model.ErrSignatureInvalid)

// WebhookHandlers serves POST /webhooks.
type WebhookHandlers struct {
	Svc             *service.IngestService
	SignatureHeader string
	MaxBodyBytes    int64
	Logger          *slog.Logger
}

type webhookResponse struct {
	Success     bool   `json:"success"`
	WebhookID   string `json:"webhookId"`
	Status      string `json:"status"`
	QueueItemID string `json:"queueItemId,omitempty"`
	Error       string `json:"error,omitempty"`
}

// Receive acknowledges a delivery. The only non-2xx answer is 401 for a
// missing or invalid signature; every other outcome, including internal
// failures, is reported in the body so the sender does not redeliver.
// Unsigned requests are refused before the body is read.
func (h *WebhookHandlers) Receive(w http.ResponseWriter, r *http.Request) {
	signature := strings.TrimSpace(r.Header.Get(h.signatureHeader()))
	if signature == "" {
		WriteError(w, ErrorParams{Code: http.StatusUnauthorized, ErrCode: "invalid_signature", Err: errMissingSignature})
		return
	}

	limit := h.MaxBodyBytes
	if limit <= 0 {
		limit = defaultMaxBodyBytes
	}
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, limit))
	if err != nil {
		h.logger().WarnContext(r.Context(), "webhook body unreadable", "error", err)
		WriteJSON(w, http.StatusOK, webhookResponse{
			Status: string(service.IngestRejected),
			Error:  bodyError(err),
		})
		return
	}

	res, err := h.Svc.Ingest(r.Context(), service.IngestRequest{
		Body:      body,
		Signature: signature,
		Source:    r.PathValue("source"),
	})
	if errors.Is(err, model.ErrSignatureInvalid) {
		WriteError(w, ErrorParams{Code: http.StatusUnauthorized, ErrCode: "invalid_signature", Err: err})
		return
	}
	if err != nil {
		h.logger().ErrorContext(r.Context(), "webhook ingest failed", "error", err)
		WriteJSON(w, http.StatusOK, webhookResponse{Status: string(service.IngestError), Error: "internal error"})
		return
	}

	resp := webhookResponse{
		Success:     res.Success(),
		WebhookID:   res.WebhookID,
		Status:      string(res.Status),
		QueueItemID: res.QueueItemID,
	}
	if res.Err != nil {
		resp.Error = res.Err.Error()
	}
	WriteJSON(w, http.StatusOK, resp)
}

func (h *WebhookHandlers) signatureHeader() string {
	if h.SignatureHeader != "" {
		return h.SignatureHeader
	}
	return defaultSignatureHeader
}

func (h *WebhookHandlers) logger() *slog.Logger {
	if h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

func bodyError(err error) string {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return "payload too large"
	}
	return "unreadable body"
}
