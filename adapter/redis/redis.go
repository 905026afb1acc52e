// Package redis delivers upload completion events through Redis.
//
// Each event is PUBLISHed as JSON on a channel. When a stream is configured
// the event is also appended with XADD, capped at StreamMaxLen entries, so
// consumers that were offline during the upload can still read it.
// Delivery is at least once: a retried attempt may repeat either write.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	goredis "github.com/redis/go-redis/v9"

	"github.com/pithecene-io/hoist/adapter"
)

// DefaultChannel is the default pub/sub channel name.
const DefaultChannel = "hoist:upload_completed"

// DefaultTimeout is the default per-attempt timeout.
const DefaultTimeout = 5 * time.Second

// DefaultRetries is the default number of retry attempts.
const DefaultRetries = 3

// DefaultBackoff is the wait before the first retry. It doubles per attempt.
const DefaultBackoff = 500 * time.Millisecond

// DefaultStreamMaxLen caps the stream when Stream is set without a length.
const DefaultStreamMaxLen = 10000

// Config configures the Redis adapter.
type Config struct {
	// URL is the Redis connection URL (required).
	// Format: redis://[:password@]host:port[/db]
	URL string
	// Channel is the pub/sub channel name (default: hoist:upload_completed).
	Channel string
	// Stream, if set, also receives every event via XADD.
	Stream string
	// StreamMaxLen caps Stream (default DefaultStreamMaxLen).
	StreamMaxLen int64
	// Timeout is the per-attempt timeout (default 5s).
	Timeout time.Duration
	// Retries is the number of retry attempts on failure.
	Retries int
	// Backoff is the initial retry interval (default 500ms).
	Backoff time.Duration
}

// Adapter publishes upload completion events to Redis.
type Adapter struct {
	config Config
	client *goredis.Client
}

// New parses cfg.URL and fills defaults. It does not dial.
func New(cfg Config) (*Adapter, error) {
	if cfg.URL == "" {
		return nil, errors.New("redis adapter requires a URL")
	}

	opts, err := goredis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("redis adapter: invalid URL: %w", err)
	}

	if cfg.Retries < 0 {
		return nil, fmt.Errorf("retries must be >= 0, got %d", cfg.Retries)
	}
	if cfg.StreamMaxLen < 0 {
		return nil, fmt.Errorf("stream max length must be >= 0, got %d", cfg.StreamMaxLen)
	}
	if cfg.Channel == "" {
		cfg.Channel = DefaultChannel
	}
	if cfg.Stream != "" && cfg.StreamMaxLen == 0 {
		cfg.StreamMaxLen = DefaultStreamMaxLen
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Backoff <= 0 {
		cfg.Backoff = DefaultBackoff
	}

	return &Adapter{
		config: cfg,
		client: goredis.NewClient(opts),
	}, nil
}

// Publish writes the event to the channel and, if configured, the stream.
func (a *Adapter) Publish(ctx context.Context, event *adapter.UploadCompletedEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("redis: marshal event: %w", err)
	}

	attempts := 0
	op := func() error {
		attempts++
		attemptCtx, cancel := context.WithTimeout(ctx, a.config.Timeout)
		defer cancel()
		err := a.write(attemptCtx, event.Outcome, body)
		if errors.Is(err, goredis.ErrClosed) {
			return backoff.Permanent(err)
		}
		return err
	}

	if err := backoff.Retry(op, a.backOff(ctx)); err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("redis: context canceled: %w", ctx.Err())
		}
		return fmt.Errorf("redis: failed after %d attempts: %w", attempts, err)
	}
	return nil
}

func (a *Adapter) write(ctx context.Context, outcome string, body []byte) error {
	if err := a.client.Publish(ctx, a.config.Channel, body).Err(); err != nil {
		return err
	}
	if a.config.Stream == "" {
		return nil
	}
	return a.client.XAdd(ctx, &goredis.XAddArgs{
		Stream: a.config.Stream,
		MaxLen: a.config.StreamMaxLen,
		Values: map[string]any{"outcome": outcome, "event": string(body)},
	}).Err()
}

func (a *Adapter) backOff(ctx context.Context) backoff.BackOff {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = a.config.Backoff
	eb.Multiplier = 2
	eb.RandomizationFactor = 0
	eb.MaxElapsedTime = 0
	return backoff.WithContext(backoff.WithMaxRetries(eb, uint64(a.config.Retries)), ctx)
}

// Close releases the connection pool.
func (a *Adapter) Close() error {
	return a.client.Close()
}

var _ adapter.Adapter = (*Adapter)(nil)
