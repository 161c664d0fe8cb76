package httpx

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/target/hookline/internal/domain/model"
	apperrors "github.com/target/hookline/internal/errors"
	"github.com/target/hookline/internal/service"
)

// RetryRunner performs one retry scheduler sweep.
type RetryRunner interface {
	RunOnce(ctx context.Context) (model.RetryRunReport, error)
}

// QueueRunner performs one pass over the durable queues.
type QueueRunner interface {
	RunOnce(ctx context.Context) (model.QueueRunReport, error)
}

// Reaper performs one cleanup pass.
type Reaper interface {
	RunOnce(ctx context.Context) (service.ReaperReport, error)
}

// CronHandlers serves the scheduler-invoked maintenance endpoints. A nil
// runner answers 503.
type CronHandlers struct {
	Retry  RetryRunner
	Queue  QueueRunner
	Reap   Reaper
	Logger *slog.Logger
}

type cronResponse struct {
	Success bool   `json:"success"`
	Job     string `json:"job"`
	Caller  string `json:"caller,omitempty"`
	// Totals aggregates Report's per-sub-queue counters when it has any.
	Totals *model.RunCounts `json:"totals,omitempty"`
	Report any              `json:"report"`
	Error  string           `json:"error,omitempty"`
}

var errRunnerNotConfigured = errors.New("runner not configured on this instance")

// RunRetry handles /cron/retry.
func (h *CronHandlers) RunRetry(w http.ResponseWriter, r *http.Request) {
	if h.Retry == nil {
		h.notConfigured(w, "retry")
		return
	}
	report, err := h.Retry.RunOnce(r.Context())
	totals := report.Totals()
	h.respond(w, r, cronResponse{Job: "retry", Totals: &totals, Report: report}, err)
}

// RunQueue handles /cron/queue: stuck items are requeued, then every
// configured queue is drained once.
func (h *CronHandlers) RunQueue(w http.ResponseWriter, r *http.Request) {
	if h.Queue == nil {
		h.notConfigured(w, "queue")
		return
	}
	report, err := h.Queue.RunOnce(r.Context())
	totals := report.Totals()
	h.respond(w, r, cronResponse{Job: "queue", Totals: &totals, Report: report}, err)
}

// RunReap handles /cron/reap.
func (h *CronHandlers) RunReap(w http.ResponseWriter, r *http.Request) {
	if h.Reap == nil {
		h.notConfigured(w, "reap")
		return
	}
	report, err := h.Reap.RunOnce(r.Context())
	h.respond(w, r, cronResponse{Job: "reap", Report: report}, err)
}

func (h *CronHandlers) respond(w http.ResponseWriter, r *http.Request, resp cronResponse, err error) {
	if caller, ok := CronCallerFromContext(r.Context()); ok {
		resp.Caller = caller.Method
	}
	code := http.StatusOK
	resp.Success = err == nil
	if err != nil {
		code = apperrors.HTTPStatus(err)
		resp.Error = err.Error()
		h.logger().ErrorContext(r.Context(), "cron run failed", "job", resp.Job, "error", err)
	} else {
		h.logger().InfoContext(r.Context(), "cron run complete", "job", resp.Job, "caller", resp.Caller)
	}
	WriteJSON(w, code, resp)
}

func (h *CronHandlers) notConfigured(w http.ResponseWriter, job string) {
	WriteJSON(w, http.StatusServiceUnavailable, cronResponse{Job: job, Error: errRunnerNotConfigured.Error()})
}

func (h *CronHandlers) logger() *slog.Logger {
	if h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}
