package multipart

import (
	"errors"
	"strings"
	"testing"
	"testing/quick"
)

func TestNewPlan(t *testing.T) {
	tests := []struct {
		name      string
		size      int64
		chunk     int64
		maxParts  int32
		wantParts int32
		wantLast  int64
	}{
		{"13MiB in 5MiB chunks", 13 * MiB, 5 * MiB, DefaultMaxParts, 3, 3 * MiB},
		{"10MiB exact multiple", 10 * MiB, 5 * MiB, DefaultMaxParts, 2, 5 * MiB},
		{"single byte", 1, 5 * MiB, DefaultMaxParts, 1, 1},
		{"exactly one chunk", 5 * MiB, 5 * MiB, DefaultMaxParts, 1, 5 * MiB},
		{"one byte over a chunk", 5*MiB + 1, 5 * MiB, DefaultMaxParts, 2, 1},
		{"at part limit", 10000, 1, 10000, 10000, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := NewPlan(tt.size, tt.chunk, tt.maxParts)
			if err != nil {
				t.Fatalf("NewPlan() error = %v", err)
			}
			if p.PartCount != tt.wantParts {
				t.Errorf("PartCount = %d, want %d", p.PartCount, tt.wantParts)
			}
			if p.LastPartSize != tt.wantLast {
				t.Errorf("LastPartSize = %d, want %d", p.LastPartSize, tt.wantLast)
			}
			if got := int64(p.PartCount-1)*p.ChunkSize + p.LastPartSize; got != tt.size {
				t.Errorf("parts cover %d bytes, want %d", got, tt.size)
			}
		})
	}
}

func TestNewPlan_Errors(t *testing.T) {
	tests := []struct {
		name     string
		size     int64
		chunk    int64
		maxParts int32
		want     error
	}{
		{"empty file", 0, 5 * MiB, DefaultMaxParts, ErrEmptyFile},
		{"zero chunk", 10, 0, DefaultMaxParts, ErrInvalidPlan},
		{"negative chunk", 10, -1, DefaultMaxParts, ErrInvalidPlan},
		{"zero max parts", 10, 1, 0, ErrInvalidPlan},
		{"negative size", -5, 1, DefaultMaxParts, ErrInvalidPlan},
		{"one over limit", 10001, 1, 10000, ErrTooManyParts},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewPlan(tt.size, tt.chunk, tt.maxParts)
			if !errors.Is(err, tt.want) {
				t.Errorf("NewPlan() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestNewPlan_TooManyPartsNamesCount(t *testing.T) {
	_, err := NewPlan(100*MiB, MiB, 10)
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "needs 100 parts") {
		t.Errorf("error should name the required part count: %v", err)
	}
}

func TestPlan_Part(t *testing.T) {
	p, err := NewPlan(13*MiB, 5*MiB, DefaultMaxParts)
	if err != nil {
		t.Fatal(err)
	}

	want := []Part{
		{Number: 1, Offset: 0, Length: 5 * MiB},
		{Number: 2, Offset: 5 * MiB, Length: 5 * MiB},
		{Number: 3, Offset: 10 * MiB, Length: 3 * MiB},
	}
	got := p.Parts()
	if len(got) != len(want) {
		t.Fatalf("Parts() len = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Part(%d) = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestPlan_PartsAreContiguous(t *testing.T) {
	p, err := NewPlan(1234567, 4096, DefaultMaxParts)
	if err != nil {
		t.Fatal(err)
	}
	var next int64
	for _, part := range p.Parts() {
		if part.Offset != next {
			t.Fatalf("part %d starts at %d, want %d", part.Number, part.Offset, next)
		}
		if part.Length <= 0 || part.Length > p.ChunkSize {
			t.Fatalf("part %d length %d out of range", part.Number, part.Length)
		}
		next += part.Length
	}
	if next != p.TotalSize {
		t.Errorf("parts end at %d, want %d", next, p.TotalSize)
	}
}

func TestPlan_PartOutOfRangePanics(t *testing.T) {
	p, _ := NewPlan(10, 5, DefaultMaxParts)
	defer func() {
		if recover() == nil {
			t.Error("expected panic for index out of range")
		}
	}()
	p.Part(2)
}

func TestNewPlan_CoversEveryByte(t *testing.T) {
	covers := func(rawSize uint32, rawChunk uint16, rawMax uint16) bool {
		size := int64(rawSize) + 1
		chunk := int64(rawChunk) + 1
		maxParts := int32(rawMax) + 1
		wantParts := (size + chunk - 1) / chunk

		p, err := NewPlan(size, chunk, maxParts)
		if wantParts > int64(maxParts) {
			return errors.Is(err, ErrTooManyParts)
		}
		if err != nil {
			t.Logf("NewPlan(%d, %d, %d): %v", size, chunk, maxParts, err)
			return false
		}

		last := p.Part(p.PartCount - 1)
		return int64(p.PartCount) == wantParts &&
			int64(p.PartCount-1)*p.ChunkSize+p.LastPartSize == p.TotalSize &&
			p.LastPartSize > 0 && p.LastPartSize <= p.ChunkSize &&
			last.Offset+last.Length == size
	}

	if err := quick.Check(covers, &quick.Config{MaxCount: 2000}); err != nil {
		t.Error(err)
	}
}

func TestNewPlan_LargeChunksCoverEveryByte(t *testing.T) {
	// Sizes up to 1 TiB in 1-64 MiB chunks.
	covers := func(rawSize uint64, rawChunk uint32) bool {
		size := int64(rawSize>>24) + 1
		chunk := int64(rawChunk)%(63*MiB) + MiB
		p, err := NewPlan(size, chunk, 1<<21)
		if err != nil {
			t.Logf("NewPlan(%d, %d): %v", size, chunk, err)
			return false
		}
		return int64(p.PartCount-1)*p.ChunkSize+p.LastPartSize == p.TotalSize &&
			p.LastPartSize > 0 && p.LastPartSize <= p.ChunkSize
	}

	if err := quick.Check(covers, nil); err != nil {
		t.Error(err)
	}
}
