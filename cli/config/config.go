package config

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// DefaultFileName is looked up in the working directory when --config is
// not given.
const DefaultFileName = "hoist.yaml"

// Config represents a hoist.yaml configuration file.
// All values are optional and act as defaults for hoist upload flags.
// CLI flags always override config values.
type Config struct {
	Storage StorageConfig `yaml:"storage"`
	Upload  UploadConfig  `yaml:"upload"`
	Log     LogConfig     `yaml:"log"`
	Notify  NotifyConfig  `yaml:"notify"`
}

// StorageConfig selects and configures the object-storage backend.
type StorageConfig struct {
	Backend   string `yaml:"backend"`
	Bucket    string `yaml:"bucket"`
	Region    string `yaml:"region"`
	Endpoint  string `yaml:"endpoint"`
	PathStyle bool   `yaml:"path_style"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Insecure  bool   `yaml:"insecure"`
}

// UploadConfig holds multipart defaults.
// Pointer fields distinguish "unset" from an explicit zero or false.
type UploadConfig struct {
	ChunkSize      ByteSize    `yaml:"chunk_size"`
	MaxParts       int32       `yaml:"max_parts"`
	StorageClass   string      `yaml:"storage_class"`
	Replace        bool        `yaml:"replace"`
	AbortOnFailure *bool       `yaml:"abort_on_failure,omitempty"`
	RateLimit      ByteSize    `yaml:"rate_limit"`
	Retry          RetryConfig `yaml:"retry"`
}

// RetryConfig holds per-part retry defaults.
type RetryConfig struct {
	MaxRetries      *int     `yaml:"max_retries,omitempty"`
	InitialInterval Duration `yaml:"initial_interval"`
	MaxInterval     Duration `yaml:"max_interval"`
}

// LogConfig holds logger defaults.
type LogConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// NotifyConfig configures the completion notifier.
type NotifyConfig struct {
	Type    string            `yaml:"type"`
	URL     string            `yaml:"url"`
	Channel string            `yaml:"channel,omitempty"`
	Stream  string            `yaml:"stream,omitempty"`
	Headers map[string]string `yaml:"headers,omitempty"`
	Timeout Duration          `yaml:"timeout,omitempty"`
	Retries *int              `yaml:"retries,omitempty"`
}

// Validate rejects values no command could act on.
func (c *Config) Validate() error {
	var errs []error
	switch c.Storage.Backend {
	case "", "s3", "minio", "memory":
	default:
		errs = append(errs, fmt.Errorf("storage.backend: unknown backend %q (want s3, minio or memory)", c.Storage.Backend))
	}
	switch c.Notify.Type {
	case "", "webhook", "redis":
	default:
		errs = append(errs, fmt.Errorf("notify.type: unknown notifier %q (want webhook or redis)", c.Notify.Type))
	}
	if c.Notify.Type != "" && c.Notify.URL == "" {
		errs = append(errs, errors.New("notify.url is required when notify.type is set"))
	}
	switch c.Log.Level {
	case "", "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("log.level: unknown level %q", c.Log.Level))
	}
	if c.Upload.ChunkSize < 0 {
		errs = append(errs, errors.New("upload.chunk_size must not be negative"))
	}
	if c.Upload.MaxParts < 0 {
		errs = append(errs, errors.New("upload.max_parts must not be negative"))
	}
	if c.Upload.RateLimit < 0 {
		errs = append(errs, errors.New("upload.rate_limit must not be negative"))
	}
	if r := c.Upload.Retry.MaxRetries; r != nil && *r < 0 {
		errs = append(errs, errors.New("upload.retry.max_retries must not be negative"))
	}
	return errors.Join(errs...)
}

// Duration wraps time.Duration for YAML string parsing (e.g. "10s", "5m").
type Duration struct {
	time.Duration
}

// UnmarshalYAML parses a duration string like "10s" or "5m30s".
func (d *Duration) UnmarshalYAML(unmarshal func(any) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	if s == "" {
		return nil
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	d.Duration = parsed
	return nil
}

// ByteSize is a size in bytes, written as a plain integer or with a
// binary suffix (KiB, MiB, GiB, TiB; K, M, G, T are accepted as aliases).
type ByteSize int64

var byteUnits = []struct {
	suffix string
	mult   int64
}{
	{"tib", 1 << 40}, {"gib", 1 << 30}, {"mib", 1 << 20}, {"kib", 1 << 10},
	{"tb", 1 << 40}, {"gb", 1 << 30}, {"mb", 1 << 20}, {"kb", 1 << 10},
	{"t", 1 << 40}, {"g", 1 << 30}, {"m", 1 << 20}, {"k", 1 << 10},
	{"b", 1},
}

// ParseByteSize parses s ("5MiB", "512k", "1048576", "1.5GiB").
func ParseByteSize(s string) (ByteSize, error) {
	in := strings.ToLower(strings.TrimSpace(s))
	if in == "" {
		return 0, nil
	}
	mult := int64(1)
	for _, u := range byteUnits {
		if strings.HasSuffix(in, u.suffix) {
			mult = u.mult
			in = strings.TrimSpace(strings.TrimSuffix(in, u.suffix))
			break
		}
	}
	if n, err := strconv.ParseInt(in, 10, 64); err == nil {
		if n != 0 && mult > math.MaxInt64/abs(n) {
			return 0, fmt.Errorf("byte size %q overflows", s)
		}
		return ByteSize(n * mult), nil
	}
	f, err := strconv.ParseFloat(in, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid byte size %q", s)
	}
	v := f * float64(mult)
	if v > math.MaxInt64 || v < math.MinInt64 {
		return 0, fmt.Errorf("byte size %q overflows", s)
	}
	return ByteSize(v), nil
}

func abs(n int64) int64 {
	if n < 0 {
		return -n
	}
	return n
}

// UnmarshalYAML accepts an integer or a suffixed string.
func (b *ByteSize) UnmarshalYAML(unmarshal func(any) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	parsed, err := ParseByteSize(s)
	if err != nil {
		return err
	}
	*b = parsed
	return nil
}

// String renders b with the largest exact binary unit.
func (b ByteSize) String() string {
	n := int64(b)
	for _, u := range []struct {
		suffix string
		mult   int64
	}{{"TiB", 1 << 40}, {"GiB", 1 << 30}, {"MiB", 1 << 20}, {"KiB", 1 << 10}} {
		if n != 0 && n%u.mult == 0 {
			return strconv.FormatInt(n/u.mult, 10) + u.suffix
		}
	}
	return strconv.FormatInt(n, 10)
}
