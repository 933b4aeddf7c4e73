package interfaces

import "time"

// Failure codes pushed to the subscription-health cache
const (
	ErrorCodeNone    = 0
	ErrorCodeFailure = -1
	StatusCodeNone   = -1
)

// DeliveryStatus is the last delivery attempt reported for a subscription
type DeliveryStatus struct {
	ErrorCode  int
	StatusCode int
	ErrorText  string
}

// Success reports whether the status describes a delivered notification
func (s DeliveryStatus) Success() bool {
	return s.ErrorCode == ErrorCodeNone
}

// Outcome is the transient result of one job
type Outcome struct {
	BatchID        string    `json:"batch_id"`
	TransactionID  string    `json:"transaction_id"`
	SubscriptionID string    `json:"subscription_id,omitempty"`
	Tenant         string    `json:"tenant,omitempty"`
	Verb           string    `json:"verb"`
	URL            string    `json:"url"`
	Delivered      bool      `json:"delivered"`
	Simulated      bool      `json:"simulated"`
	StatusCode     int       `json:"status_code"`
	Error          string    `json:"error,omitempty"`
	Timestamp      time.Time `json:"timestamp"`
}

// SubscriptionStatus is the delivery health kept per (tenant, subscription)
type SubscriptionStatus struct {
	Tenant               string     `json:"tenant"`
	SubscriptionID       string     `json:"subscription_id"`
	Count                int64      `json:"count"`
	FailsCounter         int64      `json:"fails_counter"`
	LastNotification     time.Time  `json:"last_notification"`
	LastSuccess          *time.Time `json:"last_success,omitempty"`
	LastSuccessCode      int        `json:"last_success_code,omitempty"`
	LastFailure          *time.Time `json:"last_failure,omitempty"`
	LastFailureReason    string     `json:"last_failure_reason,omitempty"`
	LastNotificationFail bool       `json:"last_notification_failed"`
}

// State returns "failed" when the most recent attempt failed, "ok" otherwise
func (s *SubscriptionStatus) State() string {
	if s.LastNotificationFail {
		return "failed"
	}
	return "ok"
}
