// Package webhook posts upload completion events as JSON to an HTTP
// endpoint.
//
// Every request carries an Idempotency-Key derived from the run and upload
// IDs so receivers can collapse retried deliveries. 5xx, 408 and 429
// responses and network errors are retried with exponential backoff; any
// other non-2xx response fails immediately.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/pithecene-io/hoist/adapter"
	"github.com/pithecene-io/hoist/iox"
	"github.com/pithecene-io/hoist/types"
)

// DefaultTimeout is the default HTTP request timeout.
const DefaultTimeout = 10 * time.Second

// DefaultRetries is the default number of retry attempts.
const DefaultRetries = 3

// DefaultBackoff is the wait before the first retry. It doubles per attempt.
const DefaultBackoff = 500 * time.Millisecond

// Config configures the webhook adapter.
type Config struct {
	// URL is the HTTP endpoint to POST to (required).
	URL string
	// Headers are custom HTTP headers added to each request.
	Headers map[string]string
	// Timeout is the per-request timeout (default 10s).
	Timeout time.Duration
	// Retries is the number of retry attempts on failure.
	Retries int
	// Backoff is the initial retry interval (default 500ms).
	Backoff time.Duration
}

// Adapter publishes upload completion events via HTTP POST.
type Adapter struct {
	config Config
	client *http.Client
}

// New creates a webhook adapter from the given config.
// Returns an error if the URL is empty.
func New(cfg Config) (*Adapter, error) {
	if cfg.URL == "" {
		return nil, errors.New("webhook adapter requires a URL")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Backoff <= 0 {
		cfg.Backoff = DefaultBackoff
	}
	if cfg.Retries < 0 {
		return nil, fmt.Errorf("retries must be >= 0, got %d", cfg.Retries)
	}

	return &Adapter{
		config: cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}, nil
}

// Publish posts the event, retrying transient failures up to Retries times.
func (a *Adapter) Publish(ctx context.Context, event *adapter.UploadCompletedEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("webhook: marshal event: %w", err)
	}

	key := idempotencyKey(event)
	attempts := 0
	permanent := false
	op := func() error {
		attempts++
		err := a.doRequest(ctx, body, key)
		var statusErr *StatusError
		if errors.As(err, &statusErr) && !statusErr.Retriable() {
			permanent = true
			return backoff.Permanent(err)
		}
		return err
	}

	err = backoff.Retry(op, a.backOff(ctx))
	switch {
	case err == nil:
		return nil
	case ctx.Err() != nil:
		return fmt.Errorf("webhook: context canceled: %w", ctx.Err())
	case permanent:
		return fmt.Errorf("webhook: non-retriable error: %w", err)
	default:
		return fmt.Errorf("webhook: failed after %d attempts: %w", attempts, err)
	}
}

func (a *Adapter) backOff(ctx context.Context) backoff.BackOff {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = a.config.Backoff
	eb.Multiplier = 2
	eb.RandomizationFactor = 0
	eb.MaxElapsedTime = 0
	return backoff.WithContext(backoff.WithMaxRetries(eb, uint64(a.config.Retries)), ctx)
}

// StatusError is returned for non-2xx HTTP responses.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d", e.Code)
}

// Retriable reports whether the receiver may accept the same event later.
func (e *StatusError) Retriable() bool {
	switch {
	case e.Code >= 500:
		return true
	case e.Code == http.StatusRequestTimeout, e.Code == http.StatusTooManyRequests:
		return true
	default:
		return false
	}
}

// idempotencyKey is stable across retries of one event.
func idempotencyKey(event *adapter.UploadCompletedEvent) string {
	id := event.UploadID
	if id == "" {
		id = event.Bucket + "/" + event.Key
	}
	return event.RunID + ":" + id
}

// doRequest performs a single HTTP POST and returns nil on 2xx.
// Custom headers are applied last and may override the defaults.
func (a *Adapter) doRequest(ctx context.Context, body []byte, key string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.config.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "hoist/"+types.Version)
	req.Header.Set("X-Hoist-Event", adapter.EventTypeUploadCompleted)
	req.Header.Set("Idempotency-Key", key)
	for k, v := range a.config.Headers {
		req.Header.Set(k, v)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer iox.DiscardClose(resp.Body)
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &StatusError{Code: resp.StatusCode}
	}

	return nil
}

// Close releases adapter resources.
func (a *Adapter) Close() error {
	a.client.CloseIdleConnections()
	return nil
}

var _ adapter.Adapter = (*Adapter)(nil)
