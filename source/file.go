// Package source provides upload inputs backed by local files.
package source

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/gabriel-vasile/mimetype"
	"golang.org/x/time/rate"

	"github.com/pithecene-io/hoist/iox"
)

// File is a multipart.Source over a regular file.
type File struct {
	f           *os.File
	name        string
	size        int64
	contentType string

	ctx     context.Context
	limiter *rate.Limiter
}

// Option configures Open.
type Option func(*File)

// WithRateLimit caps section reads at bytesPerSec. Zero means unlimited.
// Waits observe ctx, so canceling it interrupts a throttled part.
func WithRateLimit(ctx context.Context, bytesPerSec int64) Option {
	return func(f *File) {
		f.ctx = ctx
		f.limiter = iox.NewLimiter(bytesPerSec)
	}
}

// WithContentType overrides content sniffing.
func WithContentType(ct string) Option {
	return func(f *File) { f.contentType = ct }
}

// Open opens path for upload and sniffs its content type.
func Open(path string, opts ...Option) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	info, err := f.Stat()
	if err != nil {
		iox.DiscardClose(f)
		return nil, err
	}
	if !info.Mode().IsRegular() {
		iox.DiscardClose(f)
		return nil, fmt.Errorf("%s: not a regular file", path)
	}

	file := &File{
		f:    f,
		name: filepath.Base(path),
		size: info.Size(),
		ctx:  context.Background(),
	}
	for _, opt := range opts {
		opt(file)
	}

	if file.contentType == "" && file.size > 0 {
		mt, err := mimetype.DetectReader(io.NewSectionReader(f, 0, file.size))
		if err != nil {
			iox.DiscardClose(f)
			return nil, fmt.Errorf("detect content type: %w", err)
		}
		file.contentType = mt.String()
	}
	return file, nil
}

// Size returns the file size captured at Open.
func (f *File) Size() int64 { return f.size }

// Name returns the file's base name.
func (f *File) Name() string { return f.name }

// ContentType returns the sniffed or overridden MIME type.
func (f *File) ContentType() string { return f.contentType }

// Section returns an independent reader over [offset, offset+length).
func (f *File) Section(offset, length int64) io.ReadSeeker {
	sr := io.NewSectionReader(f.f, offset, length)
	if f.limiter == nil {
		return sr
	}
	return iox.NewRateReader(f.ctx, sr, f.limiter)
}

// Close closes the underlying file.
func (f *File) Close() error { return f.f.Close() }
