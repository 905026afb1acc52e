package multipart

import (
	"bytes"
	"context"
	"io"
	"sync"
	"time"

	"github.com/pithecene-io/hoist/adapter"
	"github.com/pithecene-io/hoist/storage"
	"github.com/pithecene-io/hoist/storage/memory"
)

var testObj = storage.Object{Bucket: "bucket", Key: "archive.bin"}

// byteSource serves sections of an in-memory buffer.
type byteSource []byte

func (b byteSource) Size() int64 { return int64(len(b)) }

func (b byteSource) Section(offset, length int64) io.ReadSeeker {
	return io.NewSectionReader(bytes.NewReader(b), offset, length)
}

// namedSource adds the optional name and content type.
type namedSource struct {
	byteSource
	name, contentType string
}

func (s namedSource) Name() string        { return s.name }
func (s namedSource) ContentType() string { return s.contentType }

func pattern(n int) []byte {
	data := make([]byte, n)
	for i := range data {
		data[i] = byte(i % 251)
	}
	return data
}

// countingBackend wraps the memory backend and counts protocol calls.
type countingBackend struct {
	*memory.Backend

	mu        sync.Mutex
	creates   int
	completes int
	aborts    int
	deletes   int
	lastOpts  storage.CreateOptions

	createErr   error
	completeErr error
	abortErr    error
	deleteErr   error
}

func newCountingBackend() *countingBackend {
	return &countingBackend{Backend: memory.New()}
}

func (c *countingBackend) CreateMultipartUpload(ctx context.Context, obj storage.Object, opts storage.CreateOptions) (string, error) {
	c.mu.Lock()
	c.creates++
	c.lastOpts = opts
	err := c.createErr
	c.mu.Unlock()
	if err != nil {
		return "", storage.Wrap(err, "create", obj)
	}
	return c.Backend.CreateMultipartUpload(ctx, obj, opts)
}

func (c *countingBackend) CompleteMultipartUpload(ctx context.Context, obj storage.Object, uploadID string, parts []storage.CompletedPart) (storage.CompleteResult, error) {
	c.mu.Lock()
	c.completes++
	err := c.completeErr
	c.mu.Unlock()
	if err != nil {
		return storage.CompleteResult{}, storage.Wrap(err, "complete", obj)
	}
	return c.Backend.CompleteMultipartUpload(ctx, obj, uploadID, parts)
}

func (c *countingBackend) AbortMultipartUpload(ctx context.Context, obj storage.Object, uploadID string) error {
	c.mu.Lock()
	c.aborts++
	err := c.abortErr
	c.mu.Unlock()
	if err != nil {
		return storage.Wrap(err, "abort", obj)
	}
	return c.Backend.AbortMultipartUpload(ctx, obj, uploadID)
}

func (c *countingBackend) DeleteObject(ctx context.Context, obj storage.Object) error {
	c.mu.Lock()
	c.deletes++
	err := c.deleteErr
	c.mu.Unlock()
	if err != nil {
		return storage.Wrap(err, "delete", obj)
	}
	return c.Backend.DeleteObject(ctx, obj)
}

// recordingReporter keeps every callback for inspection.
type recordingReporter struct {
	started  int
	total    int64
	label    string
	updates  []int64
	partsRun []int32
	finished []error
	onUpdate func(done int64)
}

func (r *recordingReporter) Start(total int64, label string) {
	r.started++
	r.total = total
	r.label = label
}

func (r *recordingReporter) Update(done, _ int64) {
	r.updates = append(r.updates, done)
	if r.onUpdate != nil {
		r.onUpdate(done)
	}
}

func (r *recordingReporter) Finish(err error) { r.finished = append(r.finished, err) }

func (r *recordingReporter) PartStarted(number, _ int32) { r.partsRun = append(r.partsRun, number) }

// panicReporter fails on every callback.
type panicReporter struct{}

func (panicReporter) Start(int64, string) { panic("start") }
func (panicReporter) Update(int64, int64) { panic("update") }
func (panicReporter) Finish(error)        { panic("finish") }

// fakeNotifier records published events.
type fakeNotifier struct {
	events []*adapter.UploadCompletedEvent
	err    error
}

func (f *fakeNotifier) Publish(_ context.Context, e *adapter.UploadCompletedEvent) error {
	f.events = append(f.events, e)
	return f.err
}

func (f *fakeNotifier) Close() error { return nil }

func fastRetry(n int) RetryPolicy {
	return RetryPolicy{MaxRetries: n, InitialInterval: time.Millisecond, MaxInterval: 2 * time.Millisecond}
}
