// Package cmd provides CLI commands for the hoist binary.
package cmd

import (
	"time"

	"github.com/urfave/cli/v2"
)

// Shared output flags.
var (
	// FormatFlag selects output format: json, table, yaml.
	FormatFlag = &cli.StringFlag{
		Name:    "format",
		Aliases: []string{"f"},
		Usage:   "Output format: json, table, yaml",
	}

	// NoColorFlag disables colored output.
	NoColorFlag = &cli.BoolFlag{
		Name:  "no-color",
		Usage: "Disable colored output",
	}

	// ConfigFlag points at a hoist.yaml file.
	ConfigFlag = &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Path to hoist.yaml (default: ./hoist.yaml if present)",
		EnvVars: []string{"HOIST_CONFIG"},
	}
)

// OutputFlags returns the flags shared by every command that renders.
func OutputFlags() []cli.Flag {
	return []cli.Flag{
		FormatFlag,
		NoColorFlag,
	}
}

// storageFlags select and configure the backend and destination bucket.
func storageFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "backend",
			Usage: "Storage backend: s3, minio or memory",
			Value: "s3",
		},
		&cli.StringFlag{
			Name:    "bucket",
			Aliases: []string{"b"},
			Usage:   "Destination bucket",
		},
		&cli.StringFlag{
			Name:  "region",
			Usage: "Region (s3: falls back to the SDK default chain, then us-east-1)",
		},
		&cli.StringFlag{
			Name:  "endpoint",
			Usage: "Custom endpoint for S3-compatible providers (minio: host:port)",
		},
		&cli.BoolFlag{
			Name:  "path-style",
			Usage: "Use path-style addressing (s3)",
		},
		&cli.StringFlag{
			Name:    "access-key",
			Usage:   "Static access key",
			EnvVars: []string{"HOIST_ACCESS_KEY"},
		},
		&cli.StringFlag{
			Name:    "secret-key",
			Usage:   "Static secret key",
			EnvVars: []string{"HOIST_SECRET_KEY"},
		},
		&cli.BoolFlag{
			Name:  "insecure",
			Usage: "Use plain HTTP (minio)",
		},
	}
}

// uploadFlags tune the multipart upload.
func uploadFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "key",
			Aliases: []string{"k"},
			Usage:   "Object key (default: the file's base name)",
		},
		&cli.StringFlag{
			Name:  "storage-class",
			Usage: "Storage class (default: provider default)",
		},
		&cli.StringFlag{
			Name:  "content-type",
			Usage: "Content type (default: sniffed from the file)",
		},
		&cli.StringSliceFlag{
			Name:  "metadata",
			Usage: "User metadata as key=value (repeatable)",
		},
		&cli.BoolFlag{
			Name:  "replace",
			Usage: "Delete the existing object before uploading",
		},
		&cli.BoolFlag{
			Name:  "keep-session",
			Usage: "Leave the multipart session open on failure instead of aborting it",
		},
		&cli.StringFlag{
			Name:  "rate-limit",
			Usage: "Maximum read rate per second (e.g. 20MiB), 0 for unlimited",
			Value: "0",
		},
		&cli.IntFlag{
			Name:  "retries",
			Usage: "Retries per part for transient failures",
			Value: 3,
		},
		&cli.DurationFlag{
			Name:  "retry-initial",
			Usage: "Wait before the first retry",
			Value: 200 * time.Millisecond,
		},
		&cli.DurationFlag{
			Name:  "retry-max",
			Usage: "Maximum wait between retries",
			Value: 5 * time.Second,
		},
		&cli.StringFlag{
			Name:  "run-id",
			Usage: "Run identifier for logs and events (default: random UUID)",
		},
	}
}

// planFlags control chunking. Shared by upload and plan.
func planFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "chunk-size",
			Usage: "Part size (e.g. 5MiB, 8388608)",
			Value: "5MiB",
		},
		&cli.IntFlag{
			Name:  "max-parts",
			Usage: "Provider part limit",
			Value: 10000,
		},
	}
}

// logFlags configure the logger.
func logFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "log-level",
			Usage: "Log level: debug, info, warn, error",
			Value: "info",
		},
		&cli.StringFlag{
			Name:  "log-file",
			Usage: "Also write logs to this rotating file",
		},
	}
}

// notifyFlags configure the completion notifier.
func notifyFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "notify",
			Usage: "Completion notifier: webhook or redis",
		},
		&cli.StringFlag{
			Name:  "notify-url",
			Usage: "Webhook URL or redis://host:port/db",
		},
		&cli.StringFlag{
			Name:  "notify-channel",
			Usage: "Redis channel (default: hoist:upload_completed)",
		},
		&cli.StringFlag{
			Name:  "notify-stream",
			Usage: "Redis stream that also keeps a capped event history",
		},
		&cli.StringSliceFlag{
			Name:  "notify-header",
			Usage: "Webhook header as Name=Value (repeatable)",
		},
		&cli.DurationFlag{
			Name:  "notify-timeout",
			Usage: "Per-attempt notify timeout",
			Value: 10 * time.Second,
		},
		&cli.IntFlag{
			Name:  "notify-retries",
			Usage: "Notify retry attempts",
			Value: 3,
		},
	}
}

func concat(groups ...[]cli.Flag) []cli.Flag {
	var out []cli.Flag
	for _, g := range groups {
		out = append(out, g...)
	}
	return out
}
