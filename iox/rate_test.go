package iox

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"golang.org/x/time/rate"
)

func TestNewLimiter(t *testing.T) {
	if NewLimiter(0) != nil {
		t.Error("NewLimiter(0) should be nil")
	}
	if NewLimiter(-1) != nil {
		t.Error("NewLimiter(-1) should be nil")
	}
	if got := NewLimiter(512).Burst(); got != 512 {
		t.Errorf("Burst = %d, want 512", got)
	}
	if got := NewLimiter(10 << 20).Burst(); got != 1<<20 {
		t.Errorf("Burst = %d, want 1 MiB cap", got)
	}
}

func TestRateReader_Unlimited(t *testing.T) {
	data := bytes.Repeat([]byte("x"), 4096)
	r := NewRateReader(t.Context(), bytes.NewReader(data), nil)
	got, err := io.ReadAll(r)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, data) {
		t.Error("data mismatch")
	}
}

func TestRateReader_CapsReadsAtBurst(t *testing.T) {
	lim := rate.NewLimiter(rate.Inf, 16)
	r := NewRateReader(t.Context(), bytes.NewReader(make([]byte, 100)), lim)
	buf := make([]byte, 64)
	n, err := r.Read(buf)
	if err != nil {
		t.Fatal(err)
	}
	if n != 16 {
		t.Errorf("Read = %d bytes, want 16", n)
	}
}

func TestRateReader_Throttles(t *testing.T) {
	// 100 bytes/s with a 50 byte burst: the second half waits ~0.5s.
	lim := rate.NewLimiter(100, 50)
	r := NewRateReader(t.Context(), bytes.NewReader(make([]byte, 100)), lim)

	start := time.Now()
	if _, err := io.Copy(io.Discard, r); err != nil {
		t.Fatal(err)
	}
	if elapsed := time.Since(start); elapsed < 300*time.Millisecond {
		t.Errorf("read finished in %v, expected throttling", elapsed)
	}
}

func TestRateReader_ContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(t.Context())
	cancel()
	lim := rate.NewLimiter(1, 1)
	lim.AllowN(time.Now(), 1) // drain the bucket
	r := NewRateReader(ctx, bytes.NewReader([]byte("ab")), lim)

	_, err := r.Read(make([]byte, 1))
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Read error = %v, want context.Canceled", err)
	}
}

func TestRateReader_Seek(t *testing.T) {
	r := NewRateReader(t.Context(), strings.NewReader("hello"), nil)
	if _, err := io.ReadAll(r); err != nil {
		t.Fatal(err)
	}
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		t.Fatalf("Seek: %v", err)
	}
	got, _ := io.ReadAll(r)
	if string(got) != "hello" {
		t.Errorf("after rewind got %q", got)
	}

	noSeek := NewRateReader(t.Context(), io.MultiReader(strings.NewReader("x")), nil)
	if _, err := noSeek.Seek(0, io.SeekStart); err == nil {
		t.Error("expected error seeking a non-seeker")
	}
}
