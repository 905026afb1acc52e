package cmd

import (
	"strings"
	"testing"

	"github.com/pithecene-io/hoist/cli/config"
	"github.com/pithecene-io/hoist/storage/memory"
)

func TestValidateStorageChoice(t *testing.T) {
	tests := []struct {
		name    string
		sc      storageChoice
		wantErr string
	}{
		{"s3 ok", storageChoice{backend: "s3", bucket: "b"}, ""},
		{"memory ok", storageChoice{backend: "memory", bucket: "b"}, ""},
		{"minio ok", storageChoice{backend: "minio", bucket: "b", endpoint: "localhost:9000"}, ""},
		{"missing bucket", storageChoice{backend: "s3"}, "--bucket is required"},
		{"minio without endpoint", storageChoice{backend: "minio", bucket: "b"}, "--endpoint is required"},
		{"unknown backend", storageChoice{backend: "gcs", bucket: "b"}, `unknown backend "gcs"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateStorageChoice(tt.sc)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %v, want it to contain %q", err, tt.wantErr)
			}
		})
	}
}

func TestResolveStorage_Precedence(t *testing.T) {
	cfg := &config.Config{Storage: config.StorageConfig{
		Backend:   "minio",
		Bucket:    "cfg-bucket",
		Endpoint:  "minio.internal:9000",
		PathStyle: true,
	}}

	c := newFlagContext(t, storageFlags(), "--bucket", "cli-bucket")
	sc := resolveStorage(c, cfg)

	if sc.backend != "minio" {
		t.Errorf("backend = %q, want minio from config", sc.backend)
	}
	if sc.bucket != "cli-bucket" {
		t.Errorf("bucket = %q, want cli-bucket", sc.bucket)
	}
	if sc.endpoint != "minio.internal:9000" || !sc.pathStyle {
		t.Errorf("config values lost: %+v", sc)
	}
}

func TestResolveStorage_Defaults(t *testing.T) {
	c := newFlagContext(t, storageFlags(), "-b", "only-bucket")
	sc := resolveStorage(c, nil)
	if sc.backend != "s3" || sc.bucket != "only-bucket" {
		t.Errorf("got %+v, want s3 backend and only-bucket", sc)
	}
}

func TestBuildBackend(t *testing.T) {
	b, err := buildBackend(t.Context(), storageChoice{backend: "memory", bucket: "b"})
	if err != nil {
		t.Fatalf("memory: %v", err)
	}
	if _, ok := b.(*memory.Backend); !ok {
		t.Errorf("backend = %T, want *memory.Backend", b)
	}

	_, err = buildBackend(t.Context(), storageChoice{backend: "minio", bucket: "b", endpoint: "localhost:9000"})
	if err == nil || !strings.Contains(err.Error(), "access key") {
		t.Errorf("minio without credentials: err = %v", err)
	}

	if _, err := buildBackend(t.Context(), storageChoice{backend: "nope"}); err == nil {
		t.Error("expected error for unknown backend")
	}
}
