// Package memory implements an in-process multipart backend.
//
// It enforces the same protocol rules providers do: parts belong to an
// open session, completion lists are ascending and gap-free with matching
// ETags, and a session completes at most once. It backs unit tests and the
// `--backend memory` dry-run mode.
package memory

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/pithecene-io/hoist/storage"
)

type upload struct {
	obj   storage.Object
	opts  storage.CreateOptions
	parts map[int32][]byte
	etags map[int32]string
}

// Backend is an in-memory storage.Backend. Safe for concurrent use.
type Backend struct {
	mu      sync.Mutex
	uploads map[string]*upload
	objects map[storage.Object][]byte
	classes map[storage.Object]string

	// FailPart, if set, is consulted before each part is stored.
	// A non-nil return fails that UploadPart call.
	FailPart func(partNumber int32, attempt int) error
	attempts map[int32]int
}

// New creates an empty memory backend.
func New() *Backend {
	return &Backend{
		uploads:  make(map[string]*upload),
		objects:  make(map[storage.Object][]byte),
		classes:  make(map[storage.Object]string),
		attempts: make(map[int32]int),
	}
}

// CreateMultipartUpload opens a new session.
func (b *Backend) CreateMultipartUpload(ctx context.Context, obj storage.Object, opts storage.CreateOptions) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	id := uuid.NewString()
	b.uploads[id] = &upload{
		obj:   obj,
		opts:  opts,
		parts: make(map[int32][]byte),
		etags: make(map[int32]string),
	}
	return id, nil
}

// UploadPart stores one part. Re-uploading a part number replaces it.
func (b *Backend) UploadPart(ctx context.Context, obj storage.Object, uploadID string, partNumber int32, body io.ReadSeeker, size int64) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if partNumber < 1 {
		return "", storage.Wrap(fmt.Errorf("InvalidPart: part number %d out of range", partNumber), "upload_part", obj)
	}

	b.mu.Lock()
	b.attempts[partNumber]++
	attempt := b.attempts[partNumber]
	fail := b.FailPart
	b.mu.Unlock()

	if fail != nil {
		if err := fail(partNumber, attempt); err != nil {
			return "", storage.Wrap(err, "upload_part", obj)
		}
	}

	data, err := io.ReadAll(body)
	if err != nil {
		return "", storage.Wrap(err, "upload_part", obj)
	}
	if int64(len(data)) != size {
		return "", storage.Wrap(fmt.Errorf("BadDigest: part %d declared %d bytes, got %d", partNumber, size, len(data)), "upload_part", obj)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	u, err := b.lookup(obj, uploadID, "upload_part")
	if err != nil {
		return "", err
	}
	sum := md5.Sum(data)
	etag := `"` + hex.EncodeToString(sum[:]) + `"`
	u.parts[partNumber] = data
	u.etags[partNumber] = etag
	return etag, nil
}

// CompleteMultipartUpload assembles the listed parts into the final object.
func (b *Backend) CompleteMultipartUpload(ctx context.Context, obj storage.Object, uploadID string, parts []storage.CompletedPart) (storage.CompleteResult, error) {
	if err := ctx.Err(); err != nil {
		return storage.CompleteResult{}, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	u, err := b.lookup(obj, uploadID, "complete")
	if err != nil {
		return storage.CompleteResult{}, err
	}
	if len(parts) == 0 {
		return storage.CompleteResult{}, storage.Wrap(fmt.Errorf("InvalidPart: empty part list"), "complete", obj)
	}

	var assembled []byte
	for i, p := range parts {
		if p.PartNumber != int32(i+1) {
			return storage.CompleteResult{}, storage.Wrap(
				fmt.Errorf("InvalidPartOrder: position %d holds part %d", i+1, p.PartNumber), "complete", obj)
		}
		data, ok := u.parts[p.PartNumber]
		if !ok || u.etags[p.PartNumber] != p.ETag {
			return storage.CompleteResult{}, storage.Wrap(
				fmt.Errorf("InvalidPart: part %d missing or etag mismatch", p.PartNumber), "complete", obj)
		}
		assembled = append(assembled, data...)
	}

	delete(b.uploads, uploadID)
	b.objects[obj] = assembled
	b.classes[obj] = u.opts.StorageClass

	sum := md5.Sum(assembled)
	return storage.CompleteResult{
		ETag:     fmt.Sprintf(`"%s-%d"`, hex.EncodeToString(sum[:]), len(parts)),
		Location: "memory://" + obj.String(),
	}, nil
}

// AbortMultipartUpload discards an open session.
func (b *Backend) AbortMultipartUpload(ctx context.Context, obj storage.Object, uploadID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, err := b.lookup(obj, uploadID, "abort"); err != nil {
		return err
	}
	delete(b.uploads, uploadID)
	return nil
}

// DeleteObject removes a stored object. Missing objects are not an error,
// matching S3 DeleteObject semantics.
func (b *Backend) DeleteObject(ctx context.Context, obj storage.Object) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	delete(b.objects, obj)
	delete(b.classes, obj)
	return nil
}

// PutObject stores an object directly. Used to seed fixtures.
func (b *Backend) PutObject(obj storage.Object, data []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.objects[obj] = append([]byte(nil), data...)
}

// Object returns the stored bytes for obj.
func (b *Backend) Object(obj storage.Object) ([]byte, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	data, ok := b.objects[obj]
	return data, ok
}

// StorageClass returns the storage class the object was created with.
func (b *Backend) StorageClass(obj storage.Object) string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.classes[obj]
}

// OpenUploads returns the IDs of sessions that are neither completed nor aborted.
func (b *Backend) OpenUploads() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	ids := make([]string, 0, len(b.uploads))
	for id := range b.uploads {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Attempts returns how many times UploadPart was called for partNumber.
func (b *Backend) Attempts(partNumber int32) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.attempts[partNumber]
}

// lookup must be called with b.mu held.
func (b *Backend) lookup(obj storage.Object, uploadID, op string) (*upload, error) {
	u, ok := b.uploads[uploadID]
	if !ok || u.obj != obj {
		return nil, storage.Wrap(fmt.Errorf("NoSuchUpload: %s", uploadID), op, obj)
	}
	return u, nil
}

var (
	_ storage.Backend       = (*Backend)(nil)
	_ storage.ObjectDeleter = (*Backend)(nil)
)
