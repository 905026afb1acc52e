// Package storage defines the object-storage boundary used by hoist.
//
// The multipart orchestrator only needs a backend that can open a
// multipart session, accept numbered byte ranges, and commit the session.
// Concrete providers live in subpackages (s3, minio, memory).
package storage

import (
	"context"
	"errors"
	"io"
)

// Object identifies a destination object in a bucket.
type Object struct {
	Bucket string `json:"bucket"`
	Key    string `json:"key"`
}

// Validate checks that both bucket and key are present.
func (o Object) Validate() error {
	if o.Bucket == "" {
		return errors.New("bucket is required")
	}
	if o.Key == "" {
		return errors.New("object key is required")
	}
	return nil
}

// String renders the object as bucket/key.
func (o Object) String() string {
	return o.Bucket + "/" + o.Key
}

// CompletedPart is the completion token returned for one uploaded part.
type CompletedPart struct {
	PartNumber int32  `json:"part_number"`
	ETag       string `json:"etag"`
}

// CreateOptions are passed when a multipart session is opened.
type CreateOptions struct {
	// StorageClass is the provider storage class (empty uses the provider default).
	StorageClass string
	// ContentType is recorded on the final object (optional).
	ContentType string
	// Metadata is user metadata recorded on the final object (optional).
	Metadata map[string]string
}

// CompleteResult describes the object created by a finalized session.
type CompleteResult struct {
	ETag      string `json:"etag"`
	Location  string `json:"location,omitempty"`
	VersionID string `json:"version_id,omitempty"`
}

// Backend is the multipart capability consumed by the upload driver.
// Implementations must respect context cancellation on every call.
type Backend interface {
	// CreateMultipartUpload opens a session and returns its upload ID.
	CreateMultipartUpload(ctx context.Context, obj Object, opts CreateOptions) (string, error)

	// UploadPart sends body as part partNumber of the session and returns
	// the part's integrity tag. body is positioned at 0 and holds exactly size bytes.
	UploadPart(ctx context.Context, obj Object, uploadID string, partNumber int32, body io.ReadSeeker, size int64) (string, error)

	// CompleteMultipartUpload commits the session from parts in ascending order.
	CompleteMultipartUpload(ctx context.Context, obj Object, uploadID string, parts []CompletedPart) (CompleteResult, error)

	// AbortMultipartUpload discards the session and any uploaded parts.
	AbortMultipartUpload(ctx context.Context, obj Object, uploadID string) error
}

// ObjectDeleter removes an existing object.
// Used for the opt-in replace step before an upload starts.
type ObjectDeleter interface {
	DeleteObject(ctx context.Context, obj Object) error
}
