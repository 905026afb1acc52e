package multipart

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/pithecene-io/hoist/log"
	"github.com/pithecene-io/hoist/metrics"
	"github.com/pithecene-io/hoist/storage"
)

// Finalizer commits a session once every part of the plan is present.
type Finalizer struct {
	Backend storage.Backend
	Logger  *log.Logger
	Metrics *metrics.Collector
}

// Finalize validates parts against plan and completes the session.
//
// The list is sorted by part number before it is checked and sent, so
// arrival order does not matter. A session that is already closed is
// rejected without contacting the backend. A backend failure leaves the
// session open.
func (f *Finalizer) Finalize(ctx context.Context, sess *Session, plan Plan, parts []storage.CompletedPart) (storage.CompleteResult, error) {
	logger := f.Logger
	if logger == nil {
		logger = log.NewNop()
	}

	sorted := slices.Clone(parts)
	slices.SortStableFunc(sorted, func(a, b storage.CompletedPart) int {
		return cmp.Compare(a.PartNumber, b.PartNumber)
	})

	var res storage.CompleteResult
	err := sess.close(sessionCompleted, func() error {
		if err := checkParts(plan, sorted); err != nil {
			return err
		}
		logger.Info("Completing upload.", map[string]any{
			"upload_id": sess.UploadID,
			"parts":     len(sorted),
		})
		out, err := f.Backend.CompleteMultipartUpload(ctx, sess.Object, sess.UploadID, sorted)
		if err != nil {
			return newError(ErrSession, "complete", 0, err)
		}
		res = out
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrSessionClosed) {
			return storage.CompleteResult{}, newError(ErrSession, "complete", 0, ErrSessionClosed)
		}
		return storage.CompleteResult{}, err
	}

	f.Metrics.IncSessionCompleted()
	logger.Info("multipart upload completed", map[string]any{
		"upload_id": sess.UploadID,
		"etag":      res.ETag,
	})
	return res, nil
}

// checkParts reports missing, duplicate, out-of-range and token-less part
// numbers. sorted must be ordered by PartNumber.
func checkParts(plan Plan, sorted []storage.CompletedPart) error {
	seen := make([]int, plan.PartCount+1)
	var unexpected, noETag []int32
	for _, p := range sorted {
		if p.PartNumber < 1 || p.PartNumber > plan.PartCount {
			unexpected = append(unexpected, p.PartNumber)
			continue
		}
		seen[p.PartNumber]++
		if p.ETag == "" {
			noETag = append(noETag, p.PartNumber)
		}
	}

	var missing, duplicate []int32
	for n := int32(1); n <= plan.PartCount; n++ {
		switch {
		case seen[n] == 0:
			missing = append(missing, n)
		case seen[n] > 1:
			duplicate = append(duplicate, n)
		}
	}

	var problems []string
	if len(missing) > 0 {
		problems = append(problems, fmt.Sprintf("missing parts %v", missing))
	}
	if len(duplicate) > 0 {
		problems = append(problems, fmt.Sprintf("duplicate parts %v", duplicate))
	}
	if len(unexpected) > 0 {
		problems = append(problems, fmt.Sprintf("parts outside 1..%d: %v", plan.PartCount, unexpected))
	}
	if len(noETag) > 0 {
		problems = append(problems, fmt.Sprintf("parts without ETag %v", noETag))
	}
	if len(problems) == 0 {
		return nil
	}
	return newError(ErrIncompleteUpload, "complete", 0, errors.New(strings.Join(problems, "; ")))
}
