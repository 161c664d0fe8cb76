package model

import "time"

// ProcessingPath identifies which path produced a WebhookMetric.
type ProcessingPath string

const (
	PathDirect ProcessingPath = "direct"
	PathQueue  ProcessingPath = "queue"
)

// WebhookMetric is the per-webhook timing record used for health scoring.
type WebhookMetric struct {
	ID                    string         `json:"id"`
	WebhookID             string         `json:"webhookId"`
	Type                  WebhookType    `json:"type"`
	TenantID              string         `json:"tenantId"`
	Path                  ProcessingPath `json:"path"`
	ReceivedAt            time.Time      `json:"receivedAt"`
	ProcessingStartedAt   time.Time      `json:"processingStartedAt"`
	ProcessingCompletedAt time.Time      `json:"processingCompletedAt"`
	Success               bool           `json:"success"`
	Error                 *string        `json:"error,omitempty"`
}

// MetricSummary aggregates WebhookMetric rows over a window.
type MetricSummary struct {
	Total        int64         `json:"total"`
	Succeeded    int64         `json:"succeeded"`
	Failed       int64         `json:"failed"`
	AvgLatency   time.Duration `json:"avgLatency"`
	P95Latency   time.Duration `json:"p95Latency"`
	DirectTotal  int64         `json:"directTotal"`
	DirectFailed int64         `json:"directFailed"`
}

// SuccessRate returns the success ratio, 1 when there is no traffic.
func (s MetricSummary) SuccessRate() float64 {
	if s.Total == 0 {
		return 1
	}
	return float64(s.Succeeded) / float64(s.Total)
}

// HealthStatus buckets a health score.
type HealthStatus string

const (
	HealthHealthy   HealthStatus = "healthy"
	HealthDegraded  HealthStatus = "degraded"
	HealthUnhealthy HealthStatus = "unhealthy"
)

// HealthReport is served by the webhook health endpoint.
type HealthReport struct {
	Score       int           `json:"score"`
	Status      HealthStatus  `json:"status"`
	Window      string        `json:"window"`
	Metrics     MetricSummary `json:"metrics"`
	Queues      []QueueDepth  `json:"queues"`
	Backlog     int64         `json:"backlog"`
	Stuck       int64         `json:"stuck"`
	Issues      []string      `json:"issues,omitempty"`
	GeneratedAt time.Time     `json:"generatedAt"`
}
