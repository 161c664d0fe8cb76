package httpx

import (
	"io"
	"net/http"
	"time"

	"github.com/target/hookline/internal/domain/model"
	"github.com/target/hookline/internal/service"
)

const healthResponse = `{"status":"ok"}`

// healthHandler returns a simple 200 OK status for readiness/liveness checks.
func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if r.Method == http.MethodHead {
		return
	}
	if _, err := io.WriteString(w, healthResponse); err != nil {
		// Nothing more to do if the client connection is gone.
		return
	}
}

// WebhookHealthHandlers serves the scored webhook health report.
type WebhookHealthHandlers struct {
	Svc *service.HealthService
}

// Report handles GET /healthz/webhooks. The optional window query parameter
// is a Go duration. Unhealthy reports answer 503 so monitors can alert on
// status alone.
func (h *WebhookHealthHandlers) Report(w http.ResponseWriter, r *http.Request) {
	var window time.Duration
	if raw := r.URL.Query().Get("window"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil || d <= 0 {
			WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "invalid_window", Err: errInvalidWindow})
			return
		}
		window = d
	}

	report, err := h.Svc.Report(r.Context(), window)
	if err != nil {
		WriteError(w, ErrorParams{Code: http.StatusServiceUnavailable, ErrCode: "health_unavailable", Err: err})
		return
	}
	code := http.StatusOK
	if report.Status == model.HealthUnhealthy {
		code = http.StatusServiceUnavailable
	}
	WriteJSON(w, code, report)
}
