package httpx

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/target/hookline/internal/service"
)

var errInvalidWindow = errors.New("window must be a positive duration such as 15m")

// RouterServices holds everything the HTTP router serves.
type RouterServices struct {
	Ingest          *service.IngestService
	Health          *service.HealthService // Optional: nil disables /healthz/webhooks
	Cron            CronHandlers
	CronAuth        CronAuthOptions
	SignatureHeader string
	MaxBodyBytes    int64
	Logger          *slog.Logger
}

// NewRouter creates the HTTP handler wrapped in recovery and access logging.
func NewRouter(services RouterServices) http.Handler {
	logger := services.Logger
	if logger == nil {
		logger = slog.Default()
	}
	mux := http.NewServeMux()

	registerWebhookRoutes(mux, &WebhookHandlers{
		Svc:             services.Ingest,
		SignatureHeader: services.SignatureHeader,
		MaxBodyBytes:    services.MaxBodyBytes,
		Logger:          logger,
	})

	cron := services.Cron
	if cron.Logger == nil {
		cron.Logger = logger
	}
	authOpts := services.CronAuth
	if authOpts.Logger == nil {
		authOpts.Logger = logger
	}
	registerCronRoutes(mux, &cron, CronAuth(authOpts))

	mux.Handle("GET /healthz", http.HandlerFunc(healthHandler))
	mux.Handle("HEAD /healthz", http.HandlerFunc(healthHandler))
	if services.Health != nil {
		h := &WebhookHealthHandlers{Svc: services.Health}
		mux.Handle("GET /healthz/webhooks", http.HandlerFunc(h.Report))
	}

	return Recover(logger)(Logging(logger)(mux))
}

func registerWebhookRoutes(mux *http.ServeMux, h *WebhookHandlers) {
	mux.Handle("POST /webhooks", http.HandlerFunc(h.Receive))
	mux.Handle("POST /webhooks/{source}", http.HandlerFunc(h.Receive))
}

func registerCronRoutes(mux *http.ServeMux, h *CronHandlers, auth func(http.Handler) http.Handler) {
	routes := map[string]http.HandlerFunc{
		"/cron/retry": h.RunRetry,
		"/cron/reap":  h.RunReap,
		"/cron/queue": h.RunQueue,
	}
	for path, fn := range routes {
		mux.Handle("GET "+path, auth(fn))
		mux.Handle("POST "+path, auth(fn))
	}
}
