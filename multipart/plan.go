// Package multipart orchestrates chunked uploads of a single file.
//
// The pipeline is: NewPlan splits the file size into bounded parts,
// Driver.Run opens a session and uploads each part in order, and
// Finalizer.Finalize commits the session with the collected part tokens.
// Uploader ties the three together with progress, metrics and cleanup.
//
// Parts are uploaded strictly one at a time. Byte ranges are read straight
// from the source and never buffered as a whole file.
package multipart

import "fmt"

const (
	// MiB is one mebibyte.
	MiB int64 = 1 << 20

	// DefaultChunkSize is the part size used when none is configured.
	// It is also the smallest non-final part S3 accepts.
	DefaultChunkSize = 5 * MiB

	// DefaultMaxParts is the S3 limit on parts per upload.
	DefaultMaxParts int32 = 10000
)

// Plan is the immutable chunking of a file.
type Plan struct {
	TotalSize    int64 `json:"total_size"`
	ChunkSize    int64 `json:"chunk_size"`
	PartCount    int32 `json:"part_count"`
	LastPartSize int64 `json:"last_part_size"`
}

// Part is one numbered byte range of a plan.
type Part struct {
	Number int32 `json:"number"`
	Offset int64 `json:"offset"`
	Length int64 `json:"length"`
}

// NewPlan computes how a file of totalSize bytes splits into chunkSize parts.
//
// Every part but the last is exactly chunkSize bytes. The last part holds
// the remainder, or a full chunk when totalSize divides evenly.
func NewPlan(totalSize, chunkSize int64, maxParts int32) (Plan, error) {
	switch {
	case chunkSize <= 0:
		return Plan{}, newError(ErrInvalidPlan, "plan", 0, fmt.Errorf("chunk size must be positive, got %d", chunkSize))
	case maxParts <= 0:
		return Plan{}, newError(ErrInvalidPlan, "plan", 0, fmt.Errorf("max parts must be positive, got %d", maxParts))
	case totalSize < 0:
		return Plan{}, newError(ErrInvalidPlan, "plan", 0, fmt.Errorf("size must not be negative, got %d", totalSize))
	case totalSize == 0:
		return Plan{}, newError(ErrEmptyFile, "plan", 0, nil)
	}

	count := totalSize/chunkSize + 1
	last := totalSize % chunkSize
	if last == 0 {
		last = chunkSize
		count--
	}

	if count > int64(maxParts) {
		return Plan{}, newError(ErrTooManyParts, "plan", 0,
			fmt.Errorf("%d bytes in %d-byte chunks needs %d parts, limit is %d", totalSize, chunkSize, count, maxParts))
	}

	return Plan{
		TotalSize:    totalSize,
		ChunkSize:    chunkSize,
		PartCount:    int32(count),
		LastPartSize: last,
	}, nil
}

// Part returns the byte range for zero-based index i.
// Panics if i is outside [0, PartCount).
func (p Plan) Part(i int32) Part {
	if i < 0 || i >= p.PartCount {
		panic(fmt.Sprintf("multipart: part index %d out of range [0, %d)", i, p.PartCount))
	}
	length := p.ChunkSize
	if i == p.PartCount-1 {
		length = p.LastPartSize
	}
	return Part{
		Number: i + 1,
		Offset: int64(i) * p.ChunkSize,
		Length: length,
	}
}

// Parts returns every part in order.
func (p Plan) Parts() []Part {
	parts := make([]Part, p.PartCount)
	for i := range p.PartCount {
		parts[i] = p.Part(i)
	}
	return parts
}
