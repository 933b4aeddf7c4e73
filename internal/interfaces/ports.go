package interfaces

import "context"

// EventKind identifies a statistics bucket
type EventKind string

const (
	NotifyContextSent EventKind = "notify_context_sent"
)

// SendResult carries what the remote endpoint answered
type SendResult struct {
	StatusCode int
	Body       string
}

// Sender performs the outbound request for a job.
// A non-nil error is a delivery failure and its text is the failure detail.
type Sender interface {
	Send(ctx context.Context, job *NotificationJob) (*SendResult, error)
}

// StatusRecorder stores the last delivery status per (tenant, subscription)
type StatusRecorder interface {
	RecordStatus(ctx context.Context, tenant, subscriptionID string, status DeliveryStatus)
}

// AlarmManager keeps one standing failure alarm per destination
type AlarmManager interface {
	Raise(ctx context.Context, url, detail string)
	Clear(ctx context.Context, url string)
}

// StatsSink counts dispatch events
type StatsSink interface {
	Increment(kind EventKind, mimeType string)
}

// OutcomeObserver receives every job outcome once all side effects are applied
type OutcomeObserver interface {
	Observe(outcome Outcome)
}

// StatusStore persists subscription health
type StatusStore interface {
	UpsertStatus(ctx context.Context, status *SubscriptionStatus) error
	GetStatus(ctx context.Context, tenant, subscriptionID string) (*SubscriptionStatus, error)
}
