package multipart

import (
	"errors"
	"fmt"
)

// Sentinel errors for upload failure classification.
// Use errors.Is(err, ErrXxx) to branch on the failure kind.
var (
	// ErrEmptyFile indicates a zero-byte source. Multipart upload needs at least one part.
	ErrEmptyFile = errors.New("file is empty")

	// ErrTooManyParts indicates the file needs more parts than the provider allows.
	ErrTooManyParts = errors.New("too many parts")

	// ErrInvalidPlan indicates a non-positive chunk size or part limit.
	ErrInvalidPlan = errors.New("invalid upload plan")

	// ErrPartUpload indicates a part failed to upload (after any retries).
	ErrPartUpload = errors.New("part upload failed")

	// ErrIncompleteUpload indicates the completed part list does not cover 1..N exactly.
	ErrIncompleteUpload = errors.New("incomplete upload")

	// ErrSession indicates the multipart session could not be opened, completed or aborted.
	ErrSession = errors.New("session error")

	// ErrSessionClosed indicates the session was already completed or aborted.
	ErrSessionClosed = errors.New("session already closed")
)

// UploadError carries the failure kind plus the operation and part involved.
type UploadError struct {
	// Kind is the sentinel for classification (e.g., ErrPartUpload).
	Kind error
	// Op is the phase that failed: "plan", "create", "upload_part", "complete", "abort", "delete".
	Op string
	// PartNumber is the 1-based part involved, or 0 when not part-specific.
	PartNumber int32
	// Err is the underlying cause. May be nil when Kind says it all.
	Err error
}

func (e *UploadError) Error() string {
	var msg string
	if e.PartNumber > 0 {
		msg = fmt.Sprintf("%s part %d: %v", e.Op, e.PartNumber, e.Kind)
	} else {
		msg = fmt.Sprintf("%s: %v", e.Op, e.Kind)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying error for errors.Is/As chain traversal.
func (e *UploadError) Unwrap() error {
	return e.Err
}

// Is reports whether the error matches the target sentinel.
func (e *UploadError) Is(target error) bool {
	return errors.Is(e.Kind, target)
}

func newError(kind error, op string, part int32, err error) *UploadError {
	return &UploadError{Kind: kind, Op: op, PartNumber: part, Err: err}
}
