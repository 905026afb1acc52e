package multipart

import "io"

// Source is a sized, randomly addressable input.
//
// Section returns a reader over exactly [offset, offset+length). Each call
// returns a fresh reader so a retried part can start over.
type Source interface {
	Size() int64
	Section(offset, length int64) io.ReadSeeker
}

// Optional Source metadata consulted by the Uploader.
type (
	namer interface{ Name() string }

	contentTyper interface{ ContentType() string }
)
