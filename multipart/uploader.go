package multipart

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/pithecene-io/hoist/adapter"
	"github.com/pithecene-io/hoist/log"
	"github.com/pithecene-io/hoist/metrics"
	"github.com/pithecene-io/hoist/storage"
)

// DefaultAbortTimeout bounds the cleanup abort issued after a failure.
const DefaultAbortTimeout = 30 * time.Second

// notifyTimeout bounds publishing the completion event.
const notifyTimeout = 30 * time.Second

// Options tune a single upload.
type Options struct {
	// ChunkSize is the size of every part but the last.
	ChunkSize int64
	// MaxParts is the provider's part limit.
	MaxParts int32
	// StorageClass is passed on initiate. Empty uses the provider default.
	StorageClass string
	// Metadata is attached to the object as user metadata.
	Metadata map[string]string
	// Replace deletes the destination object before the upload starts.
	Replace bool
	// AbortOnFailure aborts the session when the upload cannot commit.
	AbortOnFailure bool
	// AbortTimeout bounds the cleanup abort (default 30s).
	AbortTimeout time.Duration
	// Retry controls per-part retries.
	Retry RetryPolicy
}

// DefaultOptions returns 5 MiB chunks, the S3 part limit, the default
// retry policy and abort-on-failure.
func DefaultOptions() Options {
	return Options{
		ChunkSize:      DefaultChunkSize,
		MaxParts:       DefaultMaxParts,
		AbortOnFailure: true,
		AbortTimeout:   DefaultAbortTimeout,
		Retry:          DefaultRetryPolicy(),
	}
}

// Result describes a committed upload.
type Result struct {
	UploadID     string        `json:"upload_id" yaml:"upload_id"`
	Bucket       string        `json:"bucket" yaml:"bucket"`
	Key          string        `json:"key" yaml:"key"`
	SizeBytes    int64         `json:"size_bytes" yaml:"size_bytes"`
	PartCount    int32         `json:"part_count" yaml:"part_count"`
	ChunkSize    int64         `json:"chunk_size" yaml:"chunk_size"`
	ETag         string        `json:"etag" yaml:"etag"`
	Location     string        `json:"location,omitempty" yaml:"location,omitempty"`
	VersionID    string        `json:"version_id,omitempty" yaml:"version_id,omitempty"`
	ContentType  string        `json:"content_type,omitempty" yaml:"content_type,omitempty"`
	StorageClass string        `json:"storage_class,omitempty" yaml:"storage_class,omitempty"`
	PartsRetried int64         `json:"parts_retried" yaml:"parts_retried"`
	Duration     time.Duration `json:"-" yaml:"-"`
	DurationMs   int64         `json:"duration_ms" yaml:"duration_ms"`
}

// Config wires an Uploader.
type Config struct {
	// Backend is required.
	Backend storage.Backend
	// BackendName labels metrics and events (e.g. "s3").
	BackendName string
	Options     Options
	// Reporter receives progress. Nil discards it.
	Reporter Reporter
	Logger   *log.Logger
	// Metrics shared with the caller. Nil creates a private collector.
	Metrics *metrics.Collector
	// Notifier, if set, receives one event per upload.
	Notifier adapter.Adapter
	// RunID identifies this invocation in logs and events.
	RunID string
}

// Uploader runs planner, driver and finalizer for one object at a time.
type Uploader struct {
	cfg      Config
	reporter *SafeReporter
	logger   *log.Logger
	metrics  *metrics.Collector
}

// NewUploader validates cfg and fills defaults.
func NewUploader(cfg Config) (*Uploader, error) {
	if cfg.Backend == nil {
		return nil, errors.New("multipart: backend is required")
	}
	if cfg.Options.AbortTimeout <= 0 {
		cfg.Options.AbortTimeout = DefaultAbortTimeout
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.NewNop()
	}
	m := cfg.Metrics
	if m == nil {
		m = metrics.NewCollector(cfg.BackendName, "", cfg.RunID)
	}
	return &Uploader{
		cfg:      cfg,
		reporter: NewSafeReporter(cfg.Reporter, logger),
		logger:   logger,
		metrics:  m,
	}, nil
}

// Metrics returns the collector the uploader records into.
func (u *Uploader) Metrics() *metrics.Collector {
	return u.metrics
}

// Upload sends src to obj as a multipart upload.
//
// Invalid input (bad object, empty file, too many parts) fails before any
// backend call. With Options.Replace the destination is deleted first, and
// a failed delete stops the upload before a session is opened. With
// Options.AbortOnFailure a session that cannot commit is aborted on a
// detached context; an abort failure is joined to the returned error.
func (u *Uploader) Upload(ctx context.Context, src Source, obj storage.Object) (*Result, error) {
	start := time.Now()
	opts := u.cfg.Options

	if err := obj.Validate(); err != nil {
		return nil, newError(ErrInvalidPlan, "plan", 0, err)
	}
	plan, err := NewPlan(src.Size(), opts.ChunkSize, opts.MaxParts)
	if err != nil {
		return nil, err
	}

	u.metrics.IncUploadStarted()

	if opts.Replace {
		if err := u.deleteExisting(ctx, obj); err != nil {
			u.fail(ctx, obj, plan, nil, start, err)
			return nil, err
		}
	}

	createOpts := storage.CreateOptions{
		StorageClass: opts.StorageClass,
		Metadata:     opts.Metadata,
	}
	if ct, ok := src.(contentTyper); ok {
		createOpts.ContentType = ct.ContentType()
	}

	label := obj.Key
	if n, ok := src.(namer); ok && n.Name() != "" {
		label = n.Name()
	}
	u.reporter.Start(plan.TotalSize, label)

	driver := &Driver{
		Backend:       u.cfg.Backend,
		CreateOptions: createOpts,
		Retry:         opts.Retry,
		Reporter:      u.reporter,
		Logger:        u.logger,
		Metrics:       u.metrics,
	}
	sess, parts, err := driver.Run(ctx, plan, src, obj)

	var done storage.CompleteResult
	if err == nil {
		fin := &Finalizer{Backend: u.cfg.Backend, Logger: u.logger, Metrics: u.metrics}
		done, err = fin.Finalize(ctx, sess, plan, parts)
	}

	if err != nil {
		if sess != nil && sess.Open() {
			if opts.AbortOnFailure {
				if abortErr := u.abortDetached(ctx, sess); abortErr != nil {
					err = errors.Join(err, abortErr)
				}
			} else {
				u.logger.Warn("session left open", map[string]any{
					"upload_id": sess.UploadID,
					"hint":      fmt.Sprintf("hoist abort --bucket %s --key %s --upload-id %s", obj.Bucket, obj.Key, sess.UploadID),
				})
			}
		}
		u.reporter.Finish(err)
		u.fail(ctx, obj, plan, sess, start, err)
		return nil, err
	}

	u.reporter.Finish(nil)
	u.metrics.IncUploadCompleted()
	elapsed := time.Since(start)
	snap := u.metrics.Snapshot()
	res := &Result{
		UploadID:     sess.UploadID,
		Bucket:       obj.Bucket,
		Key:          obj.Key,
		SizeBytes:    plan.TotalSize,
		PartCount:    plan.PartCount,
		ChunkSize:    plan.ChunkSize,
		ETag:         done.ETag,
		Location:     done.Location,
		VersionID:    done.VersionID,
		ContentType:  createOpts.ContentType,
		StorageClass: opts.StorageClass,
		PartsRetried: snap.PartsRetried,
		Duration:     elapsed,
		DurationMs:   elapsed.Milliseconds(),
	}
	u.logger.Info("Done uploading file.", map[string]any{
		"upload_id":   res.UploadID,
		"etag":        res.ETag,
		"size_bytes":  res.SizeBytes,
		"duration_ms": res.DurationMs,
	})

	u.publish(ctx, &adapter.UploadCompletedEvent{
		Outcome:      adapter.OutcomeSuccess,
		Bucket:       obj.Bucket,
		Key:          obj.Key,
		UploadID:     res.UploadID,
		ETag:         res.ETag,
		Location:     res.Location,
		SizeBytes:    res.SizeBytes,
		PartCount:    res.PartCount,
		PartsRetried: res.PartsRetried,
		DurationMs:   res.DurationMs,
	})
	return res, nil
}

// Abort discards an open session on the backend.
// Returns an error matching ErrSessionClosed if the session was already
// completed or aborted.
func (u *Uploader) Abort(ctx context.Context, sess *Session) error {
	err := sess.close(sessionAborted, func() error {
		return u.cfg.Backend.AbortMultipartUpload(ctx, sess.Object, sess.UploadID)
	})
	if err != nil {
		if errors.Is(err, ErrSessionClosed) {
			return newError(ErrSession, "abort", 0, ErrSessionClosed)
		}
		return newError(ErrSession, "abort", 0, err)
	}
	u.metrics.IncSessionAborted()
	u.logger.Info("multipart upload aborted", map[string]any{"upload_id": sess.UploadID})
	return nil
}

// abortDetached aborts sess even if ctx is already canceled.
func (u *Uploader) abortDetached(ctx context.Context, sess *Session) error {
	abortCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), u.cfg.Options.AbortTimeout)
	defer cancel()
	if err := u.Abort(abortCtx, sess); err != nil {
		u.logger.Error("abort after failure failed", map[string]any{
			"upload_id": sess.UploadID,
			"error":     err.Error(),
		})
		return err
	}
	return nil
}

func (u *Uploader) deleteExisting(ctx context.Context, obj storage.Object) error {
	deleter, ok := u.cfg.Backend.(storage.ObjectDeleter)
	if !ok {
		return newError(ErrSession, "delete", 0, errors.New("backend does not support deleting objects"))
	}
	err := deleter.DeleteObject(ctx, obj)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return newError(ErrSession, "delete", 0, err)
	}
	u.metrics.IncObjectDeleted()
	u.logger.Info("deleted existing object", map[string]any{"object": obj.String()})
	return nil
}

func (u *Uploader) fail(ctx context.Context, obj storage.Object, plan Plan, sess *Session, start time.Time, err error) {
	u.metrics.IncUploadFailed()
	event := &adapter.UploadCompletedEvent{
		Outcome:      adapter.OutcomeFailure,
		Bucket:       obj.Bucket,
		Key:          obj.Key,
		Error:        err.Error(),
		SizeBytes:    plan.TotalSize,
		PartCount:    plan.PartCount,
		PartsRetried: u.metrics.Snapshot().PartsRetried,
		DurationMs:   time.Since(start).Milliseconds(),
	}
	if sess != nil {
		event.UploadID = sess.UploadID
	}
	u.publish(ctx, event)
}

// publish delivers event best-effort. Failures are logged and counted.
func (u *Uploader) publish(ctx context.Context, event *adapter.UploadCompletedEvent) {
	if u.cfg.Notifier == nil {
		return
	}
	event.ContractVersion = adapter.ContractVersion
	event.EventType = adapter.EventTypeUploadCompleted
	event.RunID = u.cfg.RunID
	event.Backend = u.cfg.BackendName
	event.Timestamp = time.Now().UTC().Format(time.RFC3339)

	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), notifyTimeout)
	defer cancel()
	if err := u.cfg.Notifier.Publish(pubCtx, event); err != nil {
		u.metrics.IncNotifyFailure()
		u.logger.Warn("completion notification failed", map[string]any{"error": err.Error()})
		return
	}
	u.metrics.IncNotifySuccess()
}
