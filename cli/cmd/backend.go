package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/hoist/cli/config"
	"github.com/pithecene-io/hoist/storage"
	"github.com/pithecene-io/hoist/storage/memory"
	"github.com/pithecene-io/hoist/storage/minio"
	"github.com/pithecene-io/hoist/storage/s3"
)

// storageChoice is the resolved backend selection.
type storageChoice struct {
	backend   string
	bucket    string
	region    string
	endpoint  string
	pathStyle bool
	accessKey string
	secretKey string
	insecure  bool
}

func resolveStorage(c *cli.Context, cfg *config.Config) storageChoice {
	sc := configVal(cfg, func(c *config.Config) config.StorageConfig { return c.Storage })
	return storageChoice{
		backend:   resolveString(c, "backend", sc.Backend),
		bucket:    resolveString(c, "bucket", sc.Bucket),
		region:    resolveString(c, "region", sc.Region),
		endpoint:  resolveString(c, "endpoint", sc.Endpoint),
		pathStyle: resolveBool(c, "path-style", sc.PathStyle),
		accessKey: resolveString(c, "access-key", sc.AccessKey),
		secretKey: resolveString(c, "secret-key", sc.SecretKey),
		insecure:  resolveBool(c, "insecure", sc.Insecure),
	}
}

// validateStorageChoice returns actionable errors before any client is built.
func validateStorageChoice(sc storageChoice) error {
	if sc.bucket == "" {
		return fmt.Errorf("--bucket is required (or set storage.bucket in %s)", config.DefaultFileName)
	}
	switch sc.backend {
	case "s3", "memory":
		return nil
	case "minio":
		if sc.endpoint == "" {
			return errors.New("--endpoint is required when --backend=minio")
		}
		return nil
	default:
		return fmt.Errorf("unknown backend %q (must be s3, minio or memory)", sc.backend)
	}
}

// buildBackend constructs the storage client for sc.
func buildBackend(ctx context.Context, sc storageChoice) (storage.Backend, error) {
	switch sc.backend {
	case "s3":
		return s3.New(ctx, s3.Config{
			Region:       sc.region,
			Endpoint:     sc.endpoint,
			UsePathStyle: sc.pathStyle,
			AccessKey:    sc.accessKey,
			SecretKey:    sc.secretKey,
		})
	case "minio":
		return minio.New(minio.Config{
			Endpoint:  sc.endpoint,
			AccessKey: sc.accessKey,
			SecretKey: sc.secretKey,
			Region:    sc.region,
			Insecure:  sc.insecure,
		})
	case "memory":
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("unknown backend %q", sc.backend)
	}
}
