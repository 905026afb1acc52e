// Package s3 implements the multipart storage backend on the AWS SDK v2.
//
// Works against AWS S3 and S3-compatible providers (Cloudflare R2, MinIO,
// Ceph RGW) through a custom endpoint and path-style addressing.
package s3

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	awstypes "github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/pithecene-io/hoist/storage"
	"github.com/pithecene-io/hoist/types"
)

// DefaultRegion is used when neither the config nor the SDK default
// chain yields a region.
const DefaultRegion = "us-east-1"

// API is the subset of the S3 client used by the backend.
type API interface {
	CreateMultipartUpload(ctx context.Context, params *s3.CreateMultipartUploadInput, optFns ...func(*s3.Options)) (*s3.CreateMultipartUploadOutput, error)
	UploadPart(ctx context.Context, params *s3.UploadPartInput, optFns ...func(*s3.Options)) (*s3.UploadPartOutput, error)
	CompleteMultipartUpload(ctx context.Context, params *s3.CompleteMultipartUploadInput, optFns ...func(*s3.Options)) (*s3.CompleteMultipartUploadOutput, error)
	AbortMultipartUpload(ctx context.Context, params *s3.AbortMultipartUploadInput, optFns ...func(*s3.Options)) (*s3.AbortMultipartUploadOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// Verify that the AWS S3 client implements the interface.
var _ API = (*s3.Client)(nil)

// Config holds connection settings for the S3 backend.
type Config struct {
	// Region is the AWS region (optional, uses default chain then DefaultRegion).
	Region string
	// Endpoint is a custom S3 endpoint URL for S3-compatible providers.
	// Empty uses the default AWS endpoint.
	Endpoint string
	// UsePathStyle forces path-style addressing (bucket in path, not subdomain).
	UsePathStyle bool
	// AccessKey and SecretKey set static credentials.
	// Both empty uses the SDK default credential chain (env, shared config, IAM role).
	AccessKey string
	SecretKey string
}

// Validate checks credential pairing.
func (c *Config) Validate() error {
	if (c.AccessKey == "") != (c.SecretKey == "") {
		return errors.New("s3 access key and secret key must be set together")
	}
	return nil
}

// Backend is a storage.Backend backed by S3.
type Backend struct {
	client API
}

// New builds a Backend with a freshly loaded AWS config.
// The region falls back to DefaultRegion when nothing else resolves one.
func New(ctx context.Context, cfg Config) (*Backend, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	opts := []func(*config.LoadOptions) error{config.WithAppID("hoist/" + types.Version)}
	if cfg.Region != "" {
		opts = append(opts, config.WithRegion(cfg.Region))
	}
	if cfg.AccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")))
	}

	awsConfig, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	if awsConfig.Region == "" {
		awsConfig.Region = DefaultRegion
	}

	var s3Opts []func(*s3.Options)
	if cfg.Endpoint != "" {
		endpoint := cfg.Endpoint
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.BaseEndpoint = &endpoint
		})
	}
	if cfg.UsePathStyle {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.UsePathStyle = true
		})
	}

	return NewWithClient(s3.NewFromConfig(awsConfig, s3Opts...)), nil
}

// NewWithClient wraps an existing client. Used by tests and by callers
// that manage their own AWS config.
func NewWithClient(client API) *Backend {
	return &Backend{client: client}
}

// CreateMultipartUpload initiates a multipart upload.
func (b *Backend) CreateMultipartUpload(ctx context.Context, obj storage.Object, opts storage.CreateOptions) (string, error) {
	input := &s3.CreateMultipartUploadInput{
		Bucket: aws.String(obj.Bucket),
		Key:    aws.String(obj.Key),
	}
	if opts.StorageClass != "" {
		input.StorageClass = awstypes.StorageClass(opts.StorageClass)
	}
	if opts.ContentType != "" {
		input.ContentType = aws.String(opts.ContentType)
	}
	if len(opts.Metadata) > 0 {
		input.Metadata = opts.Metadata
	}

	output, err := b.client.CreateMultipartUpload(ctx, input)
	if err != nil {
		return "", storage.Wrap(err, "create", obj)
	}
	id := aws.ToString(output.UploadId)
	if id == "" {
		return "", storage.Wrap(errors.New("provider returned no UploadId"), "create", obj)
	}
	return id, nil
}

// UploadPart uploads one part of size bytes from body.
func (b *Backend) UploadPart(ctx context.Context, obj storage.Object, uploadID string, partNumber int32, body io.ReadSeeker, size int64) (string, error) {
	output, err := b.client.UploadPart(ctx, &s3.UploadPartInput{
		Bucket:        aws.String(obj.Bucket),
		Key:           aws.String(obj.Key),
		UploadId:      aws.String(uploadID),
		PartNumber:    aws.Int32(partNumber),
		ContentLength: aws.Int64(size),
		Body:          body,
	})
	if err != nil {
		return "", storage.Wrap(err, "upload_part", obj)
	}
	return aws.ToString(output.ETag), nil
}

// CompleteMultipartUpload commits the session.
func (b *Backend) CompleteMultipartUpload(ctx context.Context, obj storage.Object, uploadID string, parts []storage.CompletedPart) (storage.CompleteResult, error) {
	completed := make([]awstypes.CompletedPart, len(parts))
	for i, p := range parts {
		completed[i] = awstypes.CompletedPart{
			ETag:       aws.String(p.ETag),
			PartNumber: aws.Int32(p.PartNumber),
		}
	}

	output, err := b.client.CompleteMultipartUpload(ctx, &s3.CompleteMultipartUploadInput{
		Bucket:   aws.String(obj.Bucket),
		Key:      aws.String(obj.Key),
		UploadId: aws.String(uploadID),
		MultipartUpload: &awstypes.CompletedMultipartUpload{
			Parts: completed,
		},
	})
	if err != nil {
		return storage.CompleteResult{}, storage.Wrap(err, "complete", obj)
	}

	return storage.CompleteResult{
		ETag:      aws.ToString(output.ETag),
		Location:  aws.ToString(output.Location),
		VersionID: aws.ToString(output.VersionId),
	}, nil
}

// AbortMultipartUpload discards the session.
func (b *Backend) AbortMultipartUpload(ctx context.Context, obj storage.Object, uploadID string) error {
	_, err := b.client.AbortMultipartUpload(ctx, &s3.AbortMultipartUploadInput{
		Bucket:   aws.String(obj.Bucket),
		Key:      aws.String(obj.Key),
		UploadId: aws.String(uploadID),
	})
	return storage.Wrap(err, "abort", obj)
}

// DeleteObject removes obj. S3 reports success for missing keys.
func (b *Backend) DeleteObject(ctx context.Context, obj storage.Object) error {
	_, err := b.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(obj.Bucket),
		Key:    aws.String(obj.Key),
	})
	return storage.Wrap(err, "delete", obj)
}

var (
	_ storage.Backend       = (*Backend)(nil)
	_ storage.ObjectDeleter = (*Backend)(nil)
)
