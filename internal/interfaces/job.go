package interfaces

import (
	"errors"
	"fmt"
	"strconv"
)

var (
	// ErrEmptyBatch is returned when a batch carries no jobs
	ErrEmptyBatch = errors.New("batch has no jobs")
	// ErrBatchReleased is returned when a batch is used after the worker released it
	ErrBatchReleased = errors.New("batch already released")
)

// NotificationJob represents one prepared outbound notification request
type NotificationJob struct {
	Host         string            `json:"host" validate:"required"`
	Port         int               `json:"port" validate:"gt=0,lte=65535"`
	Resource     string            `json:"resource"`
	Protocol     string            `json:"protocol,omitempty"`
	Verb         string            `json:"verb" validate:"required"`
	Tenant       string            `json:"tenant,omitempty"`
	ServicePath  string            `json:"service_path,omitempty"`
	AuthToken    string            `json:"auth_token,omitempty"`
	Content      string            `json:"content"`
	ContentType  string            `json:"content_type,omitempty"`
	RenderFormat string            `json:"render_format,omitempty"`
	Correlator   string            `json:"correlator,omitempty"`
	ExtraHeaders map[string]string `json:"extra_headers,omitempty"`
	From         string            `json:"from,omitempty"`

	SubscriptionID string `json:"subscription_id" validate:"required_if=Registration false"`
	Registration   bool   `json:"registration"`
	MimeType       string `json:"mime_type,omitempty"`
}

// URL returns the destination key used for alarms and logs (host:port/resource).
// It is not the request line sent by the transport.
func (j *NotificationJob) URL() string {
	return j.Host + ":" + strconv.Itoa(j.Port) + j.Resource
}

// String returns a string representation of the job
func (j *NotificationJob) String() string {
	return fmt.Sprintf("NotificationJob{Sub: %s, Verb: %s, URL: %s}", j.SubscriptionID, j.Verb, j.URL())
}

// Batch is an ordered set of jobs sharing one transaction id.
// A batch is owned by exactly one worker from hand-off until it is released.
type Batch struct {
	ID            string             `json:"id"`
	TransactionID string             `json:"transaction_id"`
	Jobs          []*NotificationJob `json:"jobs"`

	released bool
}

// NewBatch creates a batch from the given jobs
func NewBatch(id, transactionID string, jobs ...*NotificationJob) *Batch {
	return &Batch{ID: id, TransactionID: transactionID, Jobs: jobs}
}

// Len returns the number of jobs still owned by the batch
func (b *Batch) Len() int {
	return len(b.Jobs)
}

// Release drops every job and marks the batch as consumed.
// It reports false when the batch had already been released.
func (b *Batch) Release() bool {
	if b.released {
		return false
	}
	for i := range b.Jobs {
		b.Jobs[i] = nil
	}
	b.Jobs = nil
	b.released = true
	return true
}

// Released reports whether the batch has been consumed
func (b *Batch) Released() bool {
	return b.released
}
