// Package adapter defines the notification boundary for finished uploads.
//
// Adapters publish one completion event per upload to a downstream system.
// The CLI owns adapter lifecycle; users provide configuration only.
package adapter

import "context"

// ContractVersion is the version of the UploadCompletedEvent payload shape.
const ContractVersion = "1"

// EventTypeUploadCompleted is the event_type of every completion event.
const EventTypeUploadCompleted = "upload_completed"

// Outcomes reported in UploadCompletedEvent.Outcome.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// UploadCompletedEvent is the payload published when an upload finishes,
// whether it committed or not.
type UploadCompletedEvent struct {
	ContractVersion string `json:"contract_version"`
	EventType       string `json:"event_type"` // always "upload_completed"
	RunID           string `json:"run_id"`
	Outcome         string `json:"outcome"` // success or failure
	Backend         string `json:"backend"`
	Bucket          string `json:"bucket"`
	Key             string `json:"key"`
	UploadID        string `json:"upload_id,omitempty"`
	ETag            string `json:"etag,omitempty"`
	Location        string `json:"location,omitempty"`
	Error           string `json:"error,omitempty"`
	SizeBytes       int64  `json:"size_bytes"`
	PartCount       int32  `json:"part_count"`
	PartsRetried    int64  `json:"parts_retried"`
	DurationMs      int64  `json:"duration_ms"`
	Timestamp       string `json:"timestamp"` // RFC 3339
}

// Adapter publishes upload completion events to a downstream system.
type Adapter interface {
	// Publish sends a completion event to the downstream system.
	// Must respect context cancellation and deadlines.
	Publish(ctx context.Context, event *UploadCompletedEvent) error

	// Close releases adapter resources.
	Close() error
}
