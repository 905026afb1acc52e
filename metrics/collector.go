// Package metrics provides per-upload metrics collection.
//
// The Collector accumulates counters during a single upload. It is a leaf
// package with no internal dependencies, so both the multipart pipeline and
// the notification adapters can share it.
package metrics

import "sync"

// Snapshot is an immutable point-in-time view of all upload metrics.
// Returned by Collector.Snapshot(). Safe to read concurrently after creation.
type Snapshot struct {
	// Upload lifecycle
	UploadsStarted   int64 `json:"uploads_started"`
	UploadsCompleted int64 `json:"uploads_completed"`
	UploadsFailed    int64 `json:"uploads_failed"`

	// Sessions
	SessionsOpened    int64 `json:"sessions_opened"`
	SessionsCompleted int64 `json:"sessions_completed"`
	SessionsAborted   int64 `json:"sessions_aborted"`

	// Parts
	PartsUploaded int64 `json:"parts_uploaded"`
	PartsRetried  int64 `json:"parts_retried"`
	PartsFailed   int64 `json:"parts_failed"`
	BytesUploaded int64 `json:"bytes_uploaded"`

	// Pre-upload replace
	ObjectsDeleted int64 `json:"objects_deleted"`

	// Notification
	NotifySuccess int64 `json:"notify_success"`
	NotifyFailure int64 `json:"notify_failure"`

	// Dimensions (informational, set at construction)
	StorageBackend string `json:"storage_backend"`
	Bucket         string `json:"bucket"`
	RunID          string `json:"run_id"`
}

// Collector accumulates metrics during a single upload.
// Thread-safe via sync.Mutex. All increment methods are nil-receiver safe.
type Collector struct {
	mu sync.Mutex

	uploadsStarted   int64
	uploadsCompleted int64
	uploadsFailed    int64

	sessionsOpened    int64
	sessionsCompleted int64
	sessionsAborted   int64

	partsUploaded int64
	partsRetried  int64
	partsFailed   int64
	bytesUploaded int64

	objectsDeleted int64

	notifySuccess int64
	notifyFailure int64

	storageBackend string
	bucket         string
	runID          string
}

// NewCollector creates a Collector with dimension labels.
func NewCollector(storageBackend, bucket, runID string) *Collector {
	return &Collector{
		storageBackend: storageBackend,
		bucket:         bucket,
		runID:          runID,
	}
}

func (c *Collector) add(field *int64, n int64) {
	c.mu.Lock()
	*field += n
	c.mu.Unlock()
}

// --- Upload lifecycle ---

// IncUploadStarted records an upload attempt.
func (c *Collector) IncUploadStarted() {
	if c == nil {
		return
	}
	c.add(&c.uploadsStarted, 1)
}

// IncUploadCompleted records a committed upload.
func (c *Collector) IncUploadCompleted() {
	if c == nil {
		return
	}
	c.add(&c.uploadsCompleted, 1)
}

// IncUploadFailed records an upload that did not commit.
func (c *Collector) IncUploadFailed() {
	if c == nil {
		return
	}
	c.add(&c.uploadsFailed, 1)
}

// --- Sessions ---

// IncSessionOpened records a successful CreateMultipartUpload.
func (c *Collector) IncSessionOpened() {
	if c == nil {
		return
	}
	c.add(&c.sessionsOpened, 1)
}

// IncSessionCompleted records a successful CompleteMultipartUpload.
func (c *Collector) IncSessionCompleted() {
	if c == nil {
		return
	}
	c.add(&c.sessionsCompleted, 1)
}

// IncSessionAborted records a successful AbortMultipartUpload.
func (c *Collector) IncSessionAborted() {
	if c == nil {
		return
	}
	c.add(&c.sessionsAborted, 1)
}

// --- Parts ---
// Part counters are per part, not per attempt. A part that needs two
// attempts counts as one upload and one retry.

// AddPartUploaded records an acknowledged part of n bytes.
func (c *Collector) AddPartUploaded(n int64) {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.partsUploaded++
	c.bytesUploaded += n
	c.mu.Unlock()
}

// IncPartRetried records one retry of a part.
func (c *Collector) IncPartRetried() {
	if c == nil {
		return
	}
	c.add(&c.partsRetried, 1)
}

// IncPartFailed records a part that exhausted its retries.
func (c *Collector) IncPartFailed() {
	if c == nil {
		return
	}
	c.add(&c.partsFailed, 1)
}

// IncObjectDeleted records a pre-upload delete of the destination.
func (c *Collector) IncObjectDeleted() {
	if c == nil {
		return
	}
	c.add(&c.objectsDeleted, 1)
}

// --- Notification ---

// IncNotifySuccess records a delivered completion event.
func (c *Collector) IncNotifySuccess() {
	if c == nil {
		return
	}
	c.add(&c.notifySuccess, 1)
}

// IncNotifyFailure records a completion event that could not be delivered.
func (c *Collector) IncNotifyFailure() {
	if c == nil {
		return
	}
	c.add(&c.notifyFailure, 1)
}

// --- Snapshot ---

// Snapshot returns an immutable point-in-time view of all metrics.
func (c *Collector) Snapshot() Snapshot {
	if c == nil {
		return Snapshot{}
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	return Snapshot{
		UploadsStarted:   c.uploadsStarted,
		UploadsCompleted: c.uploadsCompleted,
		UploadsFailed:    c.uploadsFailed,

		SessionsOpened:    c.sessionsOpened,
		SessionsCompleted: c.sessionsCompleted,
		SessionsAborted:   c.sessionsAborted,

		PartsUploaded: c.partsUploaded,
		PartsRetried:  c.partsRetried,
		PartsFailed:   c.partsFailed,
		BytesUploaded: c.bytesUploaded,

		ObjectsDeleted: c.objectsDeleted,

		NotifySuccess: c.notifySuccess,
		NotifyFailure: c.notifyFailure,

		StorageBackend: c.storageBackend,
		Bucket:         c.bucket,
		RunID:          c.runID,
	}
}
