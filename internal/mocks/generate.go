// Package mocks provides mock implementations of hookline's core ports.
//
// This package uses go.uber.org/mock (gomock) to generate type-safe mocks for our repository interfaces.
// The mocks are generated using go:generate directives and provide a fluent API for setting up test expectations.
//
// To regenerate mocks after interface changes, run:
//
//	go generate ./internal/mocks
//
// Usage in tests:
//
//	ctrl := gomock.NewController(t)
//	mockRetries := mocks.NewMockRetryRepository(ctrl)
//	mockRetries.EXPECT().ClaimDue(gomock.Any(), 50).Return(items, nil)
package mocks

// Generate mock for QueueRepository interface from internal/core package.
// This creates MockQueueRepository with methods for all QueueRepository interface methods:
// Enqueue, ClaimNext, Complete, Fail, ExistsByDedupKey, Stats
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=queue_repository_mock.go github.com/target/hookline/internal/core QueueRepository

// Generate mock for QueueMaintenance interface from internal/core package.
// This creates MockQueueMaintenance with methods for all QueueMaintenance interface methods:
// RequeueStuck, DeleteExpired
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=queue_maintenance_mock.go github.com/target/hookline/internal/core QueueMaintenance

// Generate mock for LeaseStore interface from internal/core package.
// This creates MockLeaseStore with methods for all LeaseStore interface methods:
// Acquire, Renew, Release, ReclaimExpired, List
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=lease_store_mock.go github.com/target/hookline/internal/core LeaseStore

// Generate mock for RetryRepository interface from internal/core package.
// This creates MockRetryRepository with methods for all RetryRepository interface methods:
// Create, ClaimDue, Complete, Fail, RequeueStuck, PurgeCompleted
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=retry_repository_mock.go github.com/target/hookline/internal/core RetryRepository

// Generate mock for TriggerRepository interface from internal/core package.
// This creates MockTriggerRepository with methods for all TriggerRepository interface methods:
// Create, ExistsPendingSince, DeleteExpired
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=trigger_repository_mock.go github.com/target/hookline/internal/core TriggerRepository

// Generate mock for StageTracker interface from internal/core package.
// This creates MockStageTracker with methods for all StageTracker interface methods:
// AdvanceStage
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=stage_tracker_mock.go github.com/target/hookline/internal/core StageTracker

// Generate mock for EntityLookup interface from internal/core package.
// This creates MockEntityLookup with methods for all EntityLookup interface methods:
// FindContact, FindProject, FindAppointment, FindInvoice
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=entity_lookup_mock.go github.com/target/hookline/internal/core EntityLookup

// Generate mock for ConversationRepository interface from internal/core package.
// This creates MockConversationRepository with methods for all ConversationRepository interface methods:
// ApplyMessage, UpdateUnread, RecordPayment, MessageExists, PaymentExists
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=conversation_repository_mock.go github.com/target/hookline/internal/core ConversationRepository

// Generate mock for InstallationRepository interface from internal/core package.
// This creates MockInstallationRepository with methods for all InstallationRepository interface methods:
// Upsert, Get
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=installation_repository_mock.go github.com/target/hookline/internal/core InstallationRepository

// Generate mock for WebhookMetricRepository interface from internal/core package.
// This creates MockWebhookMetricRepository with methods for all WebhookMetricRepository interface methods:
// Record, Summary, DeleteOlderThan
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=webhook_metric_repository_mock.go github.com/target/hookline/internal/core WebhookMetricRepository

// Generate mock for DownstreamNotifier interface from internal/core package.
// This creates MockDownstreamNotifier with methods for all DownstreamNotifier interface methods:
// Notify
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=downstream_notifier_mock.go github.com/target/hookline/internal/core DownstreamNotifier

// Generate mock for DeadLetterNotifier interface from internal/core package.
// This creates MockDeadLetterNotifier with methods for all DeadLetterNotifier interface methods:
// NotifyDeadLetter
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=dead_letter_notifier_mock.go github.com/target/hookline/internal/core DeadLetterNotifier

// Generate mock for ReaperRepository interface from internal/core package.
// This creates MockReaperRepository with methods for all ReaperRepository interface methods:
// DeleteExpiredQueueItems, RequeueStuckQueueItems, DeleteOldMetrics, DeleteExpiredTriggers
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=reaper_repository_mock.go github.com/target/hookline/internal/core ReaperRepository
