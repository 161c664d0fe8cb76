// Package metrics names hookline's StatsD metrics and emits them with
// consistent tags.
package metrics

import (
	"maps"
	"time"

	obserrors "github.com/target/hookline/internal/observability/errors"
	"github.com/target/hookline/internal/observability/statsd"
)

// Result constants for metric tagging.
const (
	ResultSuccess = "success"
	ResultError   = "error"
	ResultNoop    = "noop"
	ResultSkipped = "skipped"
)

// Metric names.
const (
	WebhookReceived  = "webhook.received"
	WebhookProcessed = "webhook.processed"
	WebhookDuration  = "webhook.duration"
	QueueClaimed     = "queue.claimed"
	QueueCompleted   = "queue.completed"
	QueueFailed      = "queue.failed"
	RetryRun         = "retry.run"
	RetryItem        = "retry.item"
	LeaseContention  = "lease.contention"
	PublishFailed    = "publish.failed"
)

// WebhookMetric describes one processed webhook for emission.
type WebhookMetric struct {
	Type     string
	Path     string
	Result   string
	Duration time.Duration
	Err      error
}

// ResultOf maps an error to ResultSuccess or ResultError.
func ResultOf(err error) string {
	if err != nil {
		return ResultError
	}
	return ResultSuccess
}

// EmitWebhookReceived counts an inbound webhook by type and ingress outcome.
func EmitWebhookReceived(sink statsd.Sink, webhookType, status string) {
	if sink == nil {
		return
	}
	sink.Count(WebhookReceived, 1, map[string]string{
		"type":   webhookType,
		"status": status,
	})
}

// EmitWebhookProcessed emits the processed counter and duration for one path.
func EmitWebhookProcessed(sink statsd.Sink, in WebhookMetric) {
	if sink == nil {
		return
	}

	tags := map[string]string{
		"type":   in.Type,
		"path":   in.Path,
		"result": in.Result,
	}
	addErrorClass(tags, in.Result, in.Err)

	sink.Count(WebhookProcessed, 1, tags)
	if in.Duration > 0 {
		sink.Timing(WebhookDuration, in.Duration, CloneTags(tags))
	}
}

// EmitQueue emits a queue transition counter (QueueClaimed, QueueCompleted or
// QueueFailed) for n items of queue.
func EmitQueue(sink statsd.Sink, name, queue string, n int64, err error) {
	if sink == nil || n <= 0 {
		return
	}
	tags := map[string]string{"queue": queue}
	if err != nil {
		addErrorClass(tags, ResultError, err)
	}
	sink.Count(name, n, tags)
}

// EmitRetryItem counts one retry handler outcome by kind.
func EmitRetryItem(sink statsd.Sink, kind, result string, err error) {
	if sink == nil {
		return
	}
	tags := map[string]string{"kind": kind, "result": result}
	addErrorClass(tags, result, err)
	sink.Count(RetryItem, 1, tags)
}

// EmitRetryRun records a retry scheduler run.
func EmitRetryRun(sink statsd.Sink, processed int, elapsed time.Duration, err error) {
	if sink == nil {
		return
	}
	result := ResultOf(err)
	if err == nil && processed == 0 {
		result = ResultNoop
	}
	tags := map[string]string{"result": result}
	addErrorClass(tags, result, err)
	sink.Count(RetryRun, 1, tags)
	if elapsed > 0 {
		sink.Timing(RetryRun+"_duration", elapsed, CloneTags(tags))
	}
}

// EmitLeaseContention counts a lease acquisition lost to another holder.
func EmitLeaseContention(sink statsd.Sink, webhookType string) {
	if sink == nil {
		return
	}
	sink.Count(LeaseContention, 1, map[string]string{"type": webhookType})
}

// EmitPublishFailed counts a dropped fan-out message.
func EmitPublishFailed(sink statsd.Sink, eventName string, err error) {
	if sink == nil {
		return
	}
	tags := map[string]string{"event": eventName}
	addErrorClass(tags, ResultError, err)
	sink.Count(PublishFailed, 1, tags)
}

func addErrorClass(tags map[string]string, result string, err error) {
	if err == nil || result != ResultError {
		return
	}
	if class := obserrors.Classify(err); class != "" {
		tags["error_class"] = class
	}
}

// CloneTags creates a shallow copy of a tag map.
func CloneTags(src map[string]string) map[string]string {
	if len(src) == 0 {
		return nil
	}
	return maps.Clone(src)
}
