package config

import (
	"strings"
	"time"
)

// WebhookConfig controls inbound verification and the best-effort deadlines
// applied to work done before the acknowledgment is written.
type WebhookConfig struct {
	// SigningSecret enables HMAC-SHA256 verification.
	SigningSecret string `env:"SIGNING_SECRET"`
	// PublicKey enables Ed25519 verification (base64 or PEM encoded).
	PublicKey string `env:"PUBLIC_KEY"`
	// SignatureHeader carries the signature on inbound requests.
	SignatureHeader string `env:"SIGNATURE_HEADER" envDefault:"X-Webhook-Signature"`

	ReplayWindow      time.Duration `env:"REPLAY_WINDOW"       envDefault:"5m"`
	FastPathTimeout   time.Duration `env:"FAST_PATH_TIMEOUT"   envDefault:"3s"`
	BestEffortTimeout time.Duration `env:"BEST_EFFORT_TIMEOUT" envDefault:"5s"`
}

// Sanitize applies guardrails to webhook configuration values.
func (w *WebhookConfig) Sanitize() {
	w.SigningSecret = strings.TrimSpace(w.SigningSecret)
	w.PublicKey = strings.TrimSpace(w.PublicKey)
	if w.SignatureHeader = strings.TrimSpace(w.SignatureHeader); w.SignatureHeader == "" {
		w.SignatureHeader = "X-Webhook-Signature"
	}
	if w.ReplayWindow <= 0 {
		w.ReplayWindow = 5 * time.Minute
	}
	if w.FastPathTimeout <= 0 {
		w.FastPathTimeout = 3 * time.Second
	}
	if w.BestEffortTimeout <= 0 {
		w.BestEffortTimeout = 5 * time.Second
	}
}

// QueueConfig controls the durable queue store and its consumer.
type QueueConfig struct {
	DefaultMaxAttempts int           `env:"DEFAULT_MAX_ATTEMPTS" envDefault:"3"`
	ItemTTL            time.Duration `env:"ITEM_TTL"             envDefault:"168h"`
	// RetryDelay is the base delay before a failed item becomes claimable again.
	RetryDelay time.Duration `env:"RETRY_DELAY" envDefault:"30s"`
	// VisibilityTimeout returns processing items to pending when a consumer dies.
	VisibilityTimeout time.Duration `env:"VISIBILITY_TIMEOUT" envDefault:"5m"`

	WorkerQueues       []string      `env:"WORKER_QUEUES"        envDefault:"critical,messages,financial,contacts,appointments,projects,general"`
	WorkerBatchSize    int           `env:"WORKER_BATCH_SIZE"    envDefault:"25"`
	WorkerPollInterval time.Duration `env:"WORKER_POLL_INTERVAL" envDefault:"2s"`
	// WorkerConcurrency is the number of polling loops per process.
	WorkerConcurrency int `env:"WORKER_CONCURRENCY" envDefault:"1"`
}

// Sanitize applies guardrails to queue configuration values.
func (q *QueueConfig) Sanitize() {
	if q.DefaultMaxAttempts < 1 {
		q.DefaultMaxAttempts = 1
	}
	if q.ItemTTL < time.Hour {
		q.ItemTTL = time.Hour
	}
	if q.RetryDelay < 0 {
		q.RetryDelay = 0
	}
	if q.VisibilityTimeout < 30*time.Second {
		q.VisibilityTimeout = 30 * time.Second
	}
	q.WorkerQueues = trimNonEmpty(q.WorkerQueues)
	if q.WorkerBatchSize < 1 {
		q.WorkerBatchSize = 1
	}
	if q.WorkerBatchSize > 500 {
		q.WorkerBatchSize = 500
	}
	if q.WorkerPollInterval < 100*time.Millisecond {
		q.WorkerPollInterval = 100 * time.Millisecond
	}
	if q.WorkerConcurrency < 1 {
		q.WorkerConcurrency = 1
	}
	if q.WorkerConcurrency > 32 {
		q.WorkerConcurrency = 32
	}
}

// LeaseBackend selects the lease store implementation.
type LeaseBackend string

const (
	LeaseBackendPostgres LeaseBackend = "postgres"
	LeaseBackendRedis    LeaseBackend = "redis"
	LeaseBackendMemory   LeaseBackend = "memory"
)

// LeaseConfig controls the tenant lease manager.
type LeaseConfig struct {
	Backend  LeaseBackend  `env:"BACKEND"  envDefault:"postgres"`
	Duration time.Duration `env:"DURATION" envDefault:"5m"`
	// KeyPrefix namespaces lease keys in Redis.
	KeyPrefix string `env:"KEY_PREFIX" envDefault:"hookline:lease:"`
}

// Sanitize applies guardrails to lease configuration values.
func (l *LeaseConfig) Sanitize() {
	switch LeaseBackend(strings.ToLower(strings.TrimSpace(string(l.Backend)))) {
	case LeaseBackendRedis:
		l.Backend = LeaseBackendRedis
	case LeaseBackendMemory:
		l.Backend = LeaseBackendMemory
	default:
		l.Backend = LeaseBackendPostgres
	}
	if l.Duration <= 0 {
		l.Duration = 5 * time.Minute
	}
	if l.KeyPrefix == "" {
		l.KeyPrefix = "hookline:lease:"
	}
}

// RetryConfig controls the retry scheduler sweep.
type RetryConfig struct {
	Interval          time.Duration `env:"SCHEDULER_INTERVAL"   envDefault:"1m"`
	BatchSize         int           `env:"SCHEDULER_BATCH_SIZE" envDefault:"50"`
	BaseDelay         time.Duration `env:"BASE_DELAY"           envDefault:"60s"`
	MaxAttempts       int           `env:"MAX_ATTEMPTS"         envDefault:"5"`
	CompletedMaxAge   time.Duration `env:"COMPLETED_MAX_AGE"    envDefault:"168h"`
	VisibilityTimeout time.Duration `env:"VISIBILITY_TIMEOUT"   envDefault:"10m"`
}

// Sanitize applies guardrails to retry scheduler configuration values.
func (r *RetryConfig) Sanitize() {
	if r.Interval < 5*time.Second {
		r.Interval = 5 * time.Second
	}
	if r.BatchSize < 1 {
		r.BatchSize = 1
	}
	if r.BatchSize > 1000 {
		r.BatchSize = 1000
	}
	if r.BaseDelay <= 0 {
		r.BaseDelay = 60 * time.Second
	}
	if r.MaxAttempts < 1 {
		r.MaxAttempts = 1
	}
	if r.CompletedMaxAge < time.Hour {
		r.CompletedMaxAge = time.Hour
	}
	if r.VisibilityTimeout < time.Minute {
		r.VisibilityTimeout = time.Minute
	}
}

// TriggerConfig controls automation trigger derivation.
type TriggerConfig struct {
	// SchedulingWindow suppresses a repeated scheduling trigger for the same
	// appointment while an earlier one is still pending.
	SchedulingWindow time.Duration `env:"SCHEDULING_WINDOW" envDefault:"5m"`
	// TTL is the expiry hint written on each trigger record.
	TTL time.Duration `env:"TTL" envDefault:"720h"`
}

// Sanitize applies guardrails to trigger configuration values.
func (t *TriggerConfig) Sanitize() {
	if t.SchedulingWindow < 0 {
		t.SchedulingWindow = 0
	}
	if t.TTL < time.Hour {
		t.TTL = time.Hour
	}
}

// PubSubBackend selects the message bus implementation.
type PubSubBackend string

const (
	PubSubBackendRedis  PubSubBackend = "redis"
	PubSubBackendMemory PubSubBackend = "memory"
)

// PubSubConfig controls the fan-out publisher.
type PubSubConfig struct {
	Backend        PubSubBackend `env:"BACKEND"         envDefault:"redis"`
	PublishTimeout time.Duration `env:"PUBLISH_TIMEOUT" envDefault:"2s"`
	// ChannelPrefix is prepended to every channel on the wire.
	ChannelPrefix string `env:"CHANNEL_PREFIX" envDefault:""`
}

// Sanitize applies guardrails to pub/sub configuration values.
func (p *PubSubConfig) Sanitize() {
	if PubSubBackend(strings.ToLower(strings.TrimSpace(string(p.Backend)))) == PubSubBackendMemory {
		p.Backend = PubSubBackendMemory
	} else {
		p.Backend = PubSubBackendRedis
	}
	if p.PublishTimeout <= 0 {
		p.PublishTimeout = 2 * time.Second
	}
}

// CronConfig controls authentication of the scheduler-invoked endpoints.
type CronConfig struct {
	Secret       string `env:"SECRET"`
	MarkerHeader string `env:"MARKER_HEADER" envDefault:"X-Cron-Secret"`
	// OIDCIssuer and OIDCAudience enable ID-token auth for managed schedulers.
	OIDCIssuer   string `env:"OIDC_ISSUER"`
	OIDCAudience string `env:"OIDC_AUDIENCE"`
	// OIDCSubjects optionally restricts accepted tokens by sub or email.
	OIDCSubjects []string `env:"OIDC_SUBJECTS" envSeparator:","`
}

// Sanitize applies guardrails to cron configuration values.
func (c *CronConfig) Sanitize() {
	c.Secret = strings.TrimSpace(c.Secret)
	if c.MarkerHeader = strings.TrimSpace(c.MarkerHeader); c.MarkerHeader == "" {
		c.MarkerHeader = "X-Cron-Secret"
	}
	c.OIDCIssuer = strings.TrimSpace(c.OIDCIssuer)
	c.OIDCAudience = strings.TrimSpace(c.OIDCAudience)
}

// OIDCEnabled reports whether scheduler ID tokens are accepted.
func (c *CronConfig) OIDCEnabled() bool {
	return c.OIDCIssuer != "" && c.OIDCAudience != ""
}

// DownstreamConfig controls delivery of install/sync work to downstream services.
type DownstreamConfig struct {
	SetupURL      string        `env:"SETUP_URL"`
	CleanupURL    string        `env:"CLEANUP_URL"`
	AgencySyncURL string        `env:"AGENCY_SYNC_URL"`
	SigningSecret string        `env:"SIGNING_SECRET"`
	Timeout       time.Duration `env:"TIMEOUT" envDefault:"10s"`

	OAuth DownstreamOAuthConfig `envPrefix:"OAUTH_"`
}

// DownstreamOAuthConfig enables client-credentials bearer tokens on downstream calls.
type DownstreamOAuthConfig struct {
	TokenURL     string   `env:"TOKEN_URL"`
	ClientID     string   `env:"CLIENT_ID"`
	ClientSecret string   `env:"CLIENT_SECRET"`
	Scopes       []string `env:"SCOPES"`
}

// Enabled reports whether client-credentials are fully configured.
func (o DownstreamOAuthConfig) Enabled() bool {
	return o.TokenURL != "" && o.ClientID != "" && o.ClientSecret != ""
}

// Sanitize applies guardrails to downstream configuration values.
func (d *DownstreamConfig) Sanitize() {
	d.SetupURL = strings.TrimSpace(d.SetupURL)
	d.CleanupURL = strings.TrimSpace(d.CleanupURL)
	d.AgencySyncURL = strings.TrimSpace(d.AgencySyncURL)
	if d.Timeout <= 0 {
		d.Timeout = 10 * time.Second
	}
	d.OAuth.TokenURL = strings.TrimSpace(d.OAuth.TokenURL)
	d.OAuth.Scopes = trimNonEmpty(d.OAuth.Scopes)
}

func trimNonEmpty(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
