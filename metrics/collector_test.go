package metrics

import (
	"sync"
	"testing"
)

func TestCollector_IncrementMethods(t *testing.T) {
	c := NewCollector("s3", "backups", "run-001")

	c.IncUploadStarted()
	c.IncUploadCompleted()
	c.IncUploadFailed()
	c.IncUploadFailed()
	c.IncSessionOpened()
	c.IncSessionCompleted()
	c.IncSessionAborted()
	c.AddPartUploaded(5 << 20)
	c.AddPartUploaded(3 << 20)
	c.IncPartRetried()
	c.IncPartRetried()
	c.IncPartRetried()
	c.IncPartFailed()
	c.IncObjectDeleted()
	c.IncNotifySuccess()
	c.IncNotifyFailure()

	s := c.Snapshot()

	tests := []struct {
		name string
		got  int64
		want int64
	}{
		{"UploadsStarted", s.UploadsStarted, 1},
		{"UploadsCompleted", s.UploadsCompleted, 1},
		{"UploadsFailed", s.UploadsFailed, 2},
		{"SessionsOpened", s.SessionsOpened, 1},
		{"SessionsCompleted", s.SessionsCompleted, 1},
		{"SessionsAborted", s.SessionsAborted, 1},
		{"PartsUploaded", s.PartsUploaded, 2},
		{"BytesUploaded", s.BytesUploaded, 8 << 20},
		{"PartsRetried", s.PartsRetried, 3},
		{"PartsFailed", s.PartsFailed, 1},
		{"ObjectsDeleted", s.ObjectsDeleted, 1},
		{"NotifySuccess", s.NotifySuccess, 1},
		{"NotifyFailure", s.NotifyFailure, 1},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s = %d, want %d", tt.name, tt.got, tt.want)
		}
	}
}

func TestCollector_Dimensions(t *testing.T) {
	c := NewCollector("minio", "media", "run-42")
	s := c.Snapshot()

	if s.StorageBackend != "minio" {
		t.Errorf("StorageBackend = %q, want %q", s.StorageBackend, "minio")
	}
	if s.Bucket != "media" {
		t.Errorf("Bucket = %q, want %q", s.Bucket, "media")
	}
	if s.RunID != "run-42" {
		t.Errorf("RunID = %q, want %q", s.RunID, "run-42")
	}
}

func TestCollector_SnapshotImmutability(t *testing.T) {
	c := NewCollector("memory", "b", "run-001")
	c.IncUploadStarted()
	c.AddPartUploaded(10)

	s1 := c.Snapshot()

	// Mutate collector after snapshot
	c.IncUploadCompleted()
	c.AddPartUploaded(10)
	c.AddPartUploaded(10)

	if s1.UploadsCompleted != 0 {
		t.Errorf("s1.UploadsCompleted = %d, want 0 (snapshot should be frozen)", s1.UploadsCompleted)
	}
	if s1.PartsUploaded != 1 {
		t.Errorf("s1.PartsUploaded = %d, want 1 (snapshot should be frozen)", s1.PartsUploaded)
	}

	s2 := c.Snapshot()
	if s2.UploadsCompleted != 1 {
		t.Errorf("s2.UploadsCompleted = %d, want 1", s2.UploadsCompleted)
	}
	if s2.BytesUploaded != 30 {
		t.Errorf("s2.BytesUploaded = %d, want 30", s2.BytesUploaded)
	}
}

func TestCollector_NilReceiverSafety(t *testing.T) {
	var c *Collector

	// None of these should panic
	c.IncUploadStarted()
	c.IncUploadCompleted()
	c.IncUploadFailed()
	c.IncSessionOpened()
	c.IncSessionCompleted()
	c.IncSessionAborted()
	c.AddPartUploaded(1)
	c.IncPartRetried()
	c.IncPartFailed()
	c.IncObjectDeleted()
	c.IncNotifySuccess()
	c.IncNotifyFailure()

	s := c.Snapshot()
	if s != (Snapshot{}) {
		t.Errorf("nil collector snapshot = %+v, want zero value", s)
	}
}

func TestCollector_ConcurrentAccess(t *testing.T) {
	c := NewCollector("s3", "b", "run-001")
	const goroutines = 10
	const iterations = 1000

	var wg sync.WaitGroup
	wg.Add(goroutines)

	for range goroutines {
		go func() {
			defer wg.Done()
			for range iterations {
				c.AddPartUploaded(2)
				c.IncPartRetried()
				_ = c.Snapshot()
			}
		}()
	}

	wg.Wait()

	s := c.Snapshot()
	want := int64(goroutines * iterations)

	if s.PartsUploaded != want {
		t.Errorf("PartsUploaded = %d, want %d", s.PartsUploaded, want)
	}
	if s.BytesUploaded != 2*want {
		t.Errorf("BytesUploaded = %d, want %d", s.BytesUploaded, 2*want)
	}
	if s.PartsRetried != want {
		t.Errorf("PartsRetried = %d, want %d", s.PartsRetried, want)
	}
}
