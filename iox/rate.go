package iox

import (
	"context"
	"errors"
	"io"

	"golang.org/x/time/rate"
)

// RateReader throttles reads from an underlying reader with a token
// bucket. Each Read is capped at the limiter's burst so WaitN never
// rejects the request.
type RateReader struct {
	ctx     context.Context
	r       io.Reader
	limiter *rate.Limiter
}

// NewRateReader wraps r. A nil limiter disables throttling.
func NewRateReader(ctx context.Context, r io.Reader, limiter *rate.Limiter) *RateReader {
	return &RateReader{ctx: ctx, r: r, limiter: limiter}
}

// NewLimiter returns a limiter for bytesPerSec with a burst of at most
// 1 MiB. Zero or negative yields nil (unlimited).
func NewLimiter(bytesPerSec int64) *rate.Limiter {
	if bytesPerSec <= 0 {
		return nil
	}
	burst := min(bytesPerSec, 1<<20)
	return rate.NewLimiter(rate.Limit(bytesPerSec), int(burst))
}

func (r *RateReader) Read(p []byte) (int, error) {
	if r.limiter == nil {
		return r.r.Read(p)
	}
	if burst := r.limiter.Burst(); len(p) > burst {
		p = p[:burst]
	}
	n, err := r.r.Read(p)
	if n > 0 {
		if werr := r.limiter.WaitN(r.ctx, n); werr != nil {
			return n, werr
		}
	}
	return n, err
}

// Seek forwards to the underlying reader if it is an io.Seeker.
func (r *RateReader) Seek(offset int64, whence int) (int64, error) {
	s, ok := r.r.(io.Seeker)
	if !ok {
		return 0, errors.New("iox: underlying reader does not support Seek")
	}
	return s.Seek(offset, whence)
}

var _ io.ReadSeeker = (*RateReader)(nil)
