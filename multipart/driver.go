package multipart

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/pithecene-io/hoist/log"
	"github.com/pithecene-io/hoist/metrics"
	"github.com/pithecene-io/hoist/storage"
)

// Driver opens a session and uploads every part of a plan in order.
type Driver struct {
	Backend       storage.Backend
	CreateOptions storage.CreateOptions
	Retry         RetryPolicy
	Reporter      Reporter
	Logger        *log.Logger
	Metrics       *metrics.Collector
}

// Run creates the multipart session and uploads parts 1..PartCount.
//
// The first part failure (after retries) stops the loop; no later part is
// attempted. On any failure after the session exists, the open session is
// returned alongside the error so the caller can abort it.
func (d *Driver) Run(ctx context.Context, plan Plan, src Source, obj storage.Object) (*Session, []storage.CompletedPart, error) {
	logger := d.Logger
	if logger == nil {
		logger = log.NewNop()
	}
	rep := asSafe(d.Reporter, logger)

	if src.Size() != plan.TotalSize {
		return nil, nil, newError(ErrInvalidPlan, "upload_part", 0,
			fmt.Errorf("source is %d bytes, plan covers %d", src.Size(), plan.TotalSize))
	}

	uploadID, err := d.Backend.CreateMultipartUpload(ctx, obj, d.CreateOptions)
	if err != nil {
		return nil, nil, newError(ErrSession, "create", 0, err)
	}
	sess := NewSession(obj, uploadID)
	d.Metrics.IncSessionOpened()
	logger.Info("multipart upload created", map[string]any{
		"upload_id":  uploadID,
		"part_count": plan.PartCount,
		"chunk_size": plan.ChunkSize,
	})

	parts := make([]storage.CompletedPart, 0, plan.PartCount)
	var done int64
	for i := range plan.PartCount {
		part := plan.Part(i)
		if err := ctx.Err(); err != nil {
			return sess, parts, newError(ErrPartUpload, "upload_part", part.Number, err)
		}

		rep.PartStarted(part.Number, plan.PartCount)
		logger.Debug(fmt.Sprintf("Uploading chunk %d of %d", part.Number, plan.PartCount), map[string]any{
			"offset": part.Offset,
			"length": part.Length,
		})

		etag, err := d.uploadPart(ctx, sess, part, src.Section(part.Offset, part.Length), logger)
		if err != nil {
			d.Metrics.IncPartFailed()
			logger.Error("part upload failed", map[string]any{
				"upload_id": uploadID,
				"part":      part.Number,
				"error":     err.Error(),
			})
			return sess, parts, newError(ErrPartUpload, "upload_part", part.Number, err)
		}

		parts = append(parts, storage.CompletedPart{PartNumber: part.Number, ETag: etag})
		done += part.Length
		d.Metrics.AddPartUploaded(part.Length)
		rep.Update(done, plan.TotalSize)
	}

	logger.Info("All chunks uploaded.", map[string]any{
		"upload_id": uploadID,
		"parts":     len(parts),
		"bytes":     done,
	})
	return sess, parts, nil
}

// uploadPart sends one part, rewinding body before every attempt.
// Errors storage.Retryable rejects end the attempts immediately.
func (d *Driver) uploadPart(ctx context.Context, sess *Session, part Part, body io.ReadSeeker, logger *log.Logger) (string, error) {
	var etag string
	op := func() error {
		if _, err := body.Seek(0, io.SeekStart); err != nil {
			return backoff.Permanent(fmt.Errorf("rewind part body: %w", err))
		}
		tag, err := d.Backend.UploadPart(ctx, sess.Object, sess.UploadID, part.Number, body, part.Length)
		if err != nil {
			if !storage.Retryable(err) {
				return backoff.Permanent(err)
			}
			return err
		}
		if tag == "" {
			return backoff.Permanent(errors.New("backend returned an empty ETag"))
		}
		etag = tag
		return nil
	}

	notify := func(err error, wait time.Duration) {
		d.Metrics.IncPartRetried()
		logger.Warn("retrying part upload", map[string]any{
			"part":  part.Number,
			"wait":  wait.String(),
			"error": err.Error(),
		})
	}

	if err := backoff.RetryNotify(op, d.Retry.backOff(ctx), notify); err != nil {
		return "", err
	}
	return etag, nil
}

// asSafe returns r as a SafeReporter, reusing it if it already is one.
func asSafe(r Reporter, logger *log.Logger) *SafeReporter {
	if s, ok := r.(*SafeReporter); ok {
		return s
	}
	return NewSafeReporter(r, logger)
}
