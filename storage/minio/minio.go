// Package minio implements the multipart storage backend on minio-go.
//
// It talks to MinIO and other S3-compatible servers with static
// credentials, using the low-level Core multipart calls so that part
// numbering and completion stay under the caller's control.
package minio

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/pithecene-io/hoist/storage"
	"github.com/pithecene-io/hoist/types"
)

// API is the subset of minio.Core used by the backend.
type API interface {
	NewMultipartUpload(ctx context.Context, bucket, object string, opts minio.PutObjectOptions) (string, error)
	PutObjectPart(ctx context.Context, bucket, object, uploadID string, partID int, data io.Reader, size int64, opts minio.PutObjectPartOptions) (minio.ObjectPart, error)
	CompleteMultipartUpload(ctx context.Context, bucket, object, uploadID string, parts []minio.CompletePart, opts minio.PutObjectOptions) (minio.UploadInfo, error)
	AbortMultipartUpload(ctx context.Context, bucket, object, uploadID string) error
	RemoveObject(ctx context.Context, bucket, object string, opts minio.RemoveObjectOptions) error
}

var _ API = (*minio.Core)(nil)

// Config holds connection settings for a MinIO server.
type Config struct {
	// Endpoint is host[:port] without scheme (e.g. "localhost:9000").
	Endpoint  string
	AccessKey string
	SecretKey string
	// Region is optional; MinIO ignores it unless configured with one.
	Region string
	// Insecure selects plain HTTP.
	Insecure bool
}

// Validate checks required fields.
func (c *Config) Validate() error {
	if c.Endpoint == "" {
		return errors.New("minio endpoint is required")
	}
	if c.AccessKey == "" || c.SecretKey == "" {
		return errors.New("minio access key and secret key are required")
	}
	return nil
}

// Backend is a storage.Backend backed by a MinIO server.
type Backend struct {
	core API
}

// New connects a Backend. No request is made until the first call.
func New(cfg Config) (*Backend, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	core, err := minio.NewCore(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: !cfg.Insecure,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}
	core.SetAppInfo("hoist", types.Version)
	return NewWithCore(core), nil
}

// NewWithCore wraps an existing core client.
func NewWithCore(core API) *Backend {
	return &Backend{core: core}
}

// CreateMultipartUpload initiates a multipart upload.
func (b *Backend) CreateMultipartUpload(ctx context.Context, obj storage.Object, opts storage.CreateOptions) (string, error) {
	id, err := b.core.NewMultipartUpload(ctx, obj.Bucket, obj.Key, minio.PutObjectOptions{
		StorageClass: opts.StorageClass,
		ContentType:  opts.ContentType,
		UserMetadata: opts.Metadata,
	})
	if err != nil {
		return "", wrap(err, "create", obj)
	}
	if id == "" {
		return "", wrap(errors.New("server returned no UploadId"), "create", obj)
	}
	return id, nil
}

// UploadPart uploads one part of size bytes from body.
func (b *Backend) UploadPart(ctx context.Context, obj storage.Object, uploadID string, partNumber int32, body io.ReadSeeker, size int64) (string, error) {
	part, err := b.core.PutObjectPart(ctx, obj.Bucket, obj.Key, uploadID, int(partNumber), body, size, minio.PutObjectPartOptions{})
	if err != nil {
		return "", wrap(err, "upload_part", obj)
	}
	return part.ETag, nil
}

// CompleteMultipartUpload commits the session.
func (b *Backend) CompleteMultipartUpload(ctx context.Context, obj storage.Object, uploadID string, parts []storage.CompletedPart) (storage.CompleteResult, error) {
	completed := make([]minio.CompletePart, len(parts))
	for i, p := range parts {
		completed[i] = minio.CompletePart{PartNumber: int(p.PartNumber), ETag: p.ETag}
	}

	info, err := b.core.CompleteMultipartUpload(ctx, obj.Bucket, obj.Key, uploadID, completed, minio.PutObjectOptions{})
	if err != nil {
		return storage.CompleteResult{}, wrap(err, "complete", obj)
	}
	return storage.CompleteResult{
		ETag:      info.ETag,
		Location:  info.Location,
		VersionID: info.VersionID,
	}, nil
}

// AbortMultipartUpload discards the session.
func (b *Backend) AbortMultipartUpload(ctx context.Context, obj storage.Object, uploadID string) error {
	return wrap(b.core.AbortMultipartUpload(ctx, obj.Bucket, obj.Key, uploadID), "abort", obj)
}

// DeleteObject removes obj.
func (b *Backend) DeleteObject(ctx context.Context, obj storage.Object) error {
	return wrap(b.core.RemoveObject(ctx, obj.Bucket, obj.Key, minio.RemoveObjectOptions{}), "delete", obj)
}

// wrap classifies minio error responses by their S3 code before falling
// back to message patterns.
func wrap(err error, op string, obj storage.Object) error {
	if err == nil {
		return nil
	}
	if code := minio.ToErrorResponse(err).Code; code != "" {
		if kind := storage.KindForCode(code); kind != nil {
			return &storage.StorageError{Kind: kind, Op: op, Object: obj, Err: err}
		}
	}
	return storage.Wrap(err, op, obj)
}

var (
	_ storage.Backend       = (*Backend)(nil)
	_ storage.ObjectDeleter = (*Backend)(nil)
)
