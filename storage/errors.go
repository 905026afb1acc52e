package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/url"
	"strings"
	"syscall"

	"github.com/aws/smithy-go"
)

// Sentinel errors for storage failure classification.
// Use errors.Is(err, ErrXxx) for typed assertions.
var (
	// ErrNotFound indicates the bucket or object does not exist (404, NoSuchKey, NoSuchBucket).
	ErrNotFound = errors.New("not found")

	// ErrNoSuchUpload indicates the multipart session is unknown or already closed.
	ErrNoSuchUpload = errors.New("no such upload")

	// ErrInvalidPart indicates the provider rejected the part list or a part body.
	ErrInvalidPart = errors.New("invalid part")

	// ErrAccessDenied indicates authorization failure (valid creds but no permission).
	ErrAccessDenied = errors.New("access denied")

	// ErrAuth indicates authentication failure (no credentials, bad signature, expired token).
	ErrAuth = errors.New("authentication failed")

	// ErrThrottled indicates rate limiting (429, SlowDown).
	ErrThrottled = errors.New("rate limited")

	// ErrTimeout indicates an operation timed out.
	ErrTimeout = errors.New("operation timed out")

	// ErrNetwork indicates a network-level failure (connection refused, DNS).
	ErrNetwork = errors.New("network error")

	// ErrUnclassified is the kind for failures matching no other sentinel.
	ErrUnclassified = errors.New("storage error")
)

// StorageError wraps a provider error with its classification and call context.
// The original error stays in the chain for errors.As inspection.
type StorageError struct {
	// Kind is the sentinel error for classification (e.g., ErrThrottled).
	Kind error
	// Op is the operation that failed (e.g., "create", "upload_part", "complete").
	Op string
	// Object is the destination involved.
	Object Object
	// Err is the underlying error.
	Err error
}

func (e *StorageError) Error() string {
	if e.Object.Bucket != "" {
		return fmt.Sprintf("%s %s: %v: %v", e.Op, e.Object, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %v: %v", e.Op, e.Kind, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As chain traversal.
func (e *StorageError) Unwrap() error {
	return e.Err
}

// Is reports whether the error matches the target sentinel.
func (e *StorageError) Is(target error) bool {
	return errors.Is(e.Kind, target)
}

// Wrap classifies err and attaches operation context.
// Returns nil if err is nil. Already-classified errors are returned unchanged.
func Wrap(err error, op string, obj Object) error {
	if err == nil {
		return nil
	}
	var se *StorageError
	if errors.As(err, &se) {
		return err
	}
	return &StorageError{
		Kind:   Classify(err),
		Op:     op,
		Object: obj,
		Err:    err,
	}
}

// Retryable reports whether a failed call is worth repeating.
// Missing resources, rejected parts, and credential problems are permanent.
// Context cancellation is never retried.
func Retryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, ErrNoSuchUpload),
		errors.Is(err, ErrInvalidPart),
		errors.Is(err, ErrAccessDenied),
		errors.Is(err, ErrAuth):
		return false
	}
	if !errors.As(err, new(*StorageError)) {
		return Retryable(Wrap(err, "", Object{}))
	}
	return true
}

// apiCodes maps provider error codes to sentinels.
// Codes are shared by AWS S3 and S3-compatible servers.
var apiCodes = map[string]error{
	"NoSuchKey":             ErrNotFound,
	"NoSuchBucket":          ErrNotFound,
	"NotFound":              ErrNotFound,
	"NoSuchUpload":          ErrNoSuchUpload,
	"InvalidPart":           ErrInvalidPart,
	"InvalidPartOrder":      ErrInvalidPart,
	"EntityTooSmall":        ErrInvalidPart,
	"EntityTooLarge":        ErrInvalidPart,
	"BadDigest":             ErrInvalidPart,
	"AccessDenied":          ErrAccessDenied,
	"Forbidden":             ErrAccessDenied,
	"InvalidAccessKeyId":    ErrAuth,
	"SignatureDoesNotMatch": ErrAuth,
	"ExpiredToken":          ErrAuth,
	"InvalidToken":          ErrAuth,
	"SlowDown":              ErrThrottled,
	"Throttling":            ErrThrottled,
	"TooManyRequests":       ErrThrottled,
	"RequestTimeout":        ErrTimeout,
	"RequestTimeTooSkewed":  ErrAuth,
}

// Classify determines the sentinel kind for err.
// Provider error codes win over message patterns.
func Classify(err error) error {
	if err == nil {
		return nil
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		if kind, ok := apiCodes[apiErr.ErrorCode()]; ok {
			return kind
		}
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return ErrTimeout
	}
	var timeoutErr interface{ Timeout() bool }
	if errors.As(err, &timeoutErr) && timeoutErr.Timeout() {
		return ErrTimeout
	}

	if isTransportFailure(err) {
		return ErrNetwork
	}

	msg := messageOf(err)
	switch {
	case containsAny(msg, "NoSuchUpload", "upload does not exist", "upload id"):
		return ErrNoSuchUpload

	case containsAny(msg, "InvalidPart", "EntityTooSmall", "BadDigest"):
		return ErrInvalidPart

	case containsAny(msg, "NoCredentialProviders", "failed to retrieve credentials"):
		return ErrAuth

	case containsAny(msg, "connection refused", "connection reset", "broken pipe", "no route to host",
		"network unreachable", "no such host", "dial tcp", "EOF"):
		return ErrNetwork

	case containsAny(msg, "NoSuchKey", "NoSuchBucket", "not found", "404"):
		return ErrNotFound

	case containsAny(msg, "SlowDown", "rate exceeded", "throttl", "429", "TooManyRequests"):
		return ErrThrottled

	case containsAny(msg, "timeout", "timed out", "deadline exceeded"):
		return ErrTimeout

	case containsAny(msg, "InvalidAccessKeyId", "SignatureDoesNotMatch", "ExpiredToken", "401", "Unauthorized"):
		return ErrAuth

	case containsAny(msg, "AccessDenied", "Forbidden", "403"):
		return ErrAccessDenied

	default:
		return ErrUnclassified
	}
}

// isTransportFailure reports socket-level failures found in the error chain.
func isTransportFailure(err error) bool {
	if errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.EPIPE) ||
		errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}
	var dnsErr *net.DNSError
	return errors.As(err, &dnsErr)
}

// messageOf returns the text patterns are matched against. A *url.Error
// prints the request URL, which holds the object key and upload ID, so
// only its cause is used.
func messageOf(err error) string {
	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Err != nil {
		return urlErr.Err.Error()
	}
	return err.Error()
}

// containsAny checks if s contains any of the substrings (case-insensitive).
func containsAny(s string, substrs ...string) bool {
	lower := strings.ToLower(s)
	for _, sub := range substrs {
		if strings.Contains(lower, strings.ToLower(sub)) {
			return true
		}
	}
	return false
}

// KindForCode returns the sentinel for a provider error code, or nil if
// the code is unknown. Used by backends whose SDK does not surface
// smithy.APIError.
func KindForCode(code string) error {
	return apiCodes[code]
}
