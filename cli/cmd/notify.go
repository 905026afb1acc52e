package cmd

import (
	"fmt"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/hoist/adapter"
	"github.com/pithecene-io/hoist/adapter/redis"
	"github.com/pithecene-io/hoist/adapter/webhook"
	"github.com/pithecene-io/hoist/cli/config"
)

// notifyChoice is the resolved notifier configuration.
type notifyChoice struct {
	notifyType string
	url        string
	channel    string
	stream     string
	headers    map[string]string
	timeout    time.Duration
	retries    int
}

// parseNotifyConfigWithPrecedence merges notify flags over the config file.
// An empty notifyType disables notification and returns nil.
func parseNotifyConfigWithPrecedence(c *cli.Context, cfg *config.Config, notifyType string) (*notifyChoice, error) {
	if notifyType == "" {
		return nil, nil
	}
	nc := configVal(cfg, func(c *config.Config) config.NotifyConfig { return c.Notify })

	headers, err := parsePairs("notify-header", c.StringSlice("notify-header"), nc.Headers)
	if err != nil {
		return nil, err
	}
	choice := &notifyChoice{
		notifyType: notifyType,
		url:        resolveString(c, "notify-url", nc.URL),
		channel:    resolveString(c, "notify-channel", nc.Channel),
		stream:     resolveString(c, "notify-stream", nc.Stream),
		headers:    headers,
		timeout:    resolveDuration(c, "notify-timeout", nc.Timeout.Duration),
		retries:    resolveIntPtr(c, "notify-retries", nc.Retries),
	}

	switch notifyType {
	case "webhook", "redis":
		if choice.url == "" {
			return nil, fmt.Errorf("--notify-url is required when --notify=%s", notifyType)
		}
	default:
		return nil, fmt.Errorf("unknown notifier type %q (must be webhook or redis)", notifyType)
	}
	return choice, nil
}

// buildNotifier constructs the adapter for choice. Nil choice yields nil.
func buildNotifier(choice *notifyChoice) (adapter.Adapter, error) {
	if choice == nil {
		return nil, nil
	}
	switch choice.notifyType {
	case "webhook":
		return webhook.New(webhook.Config{
			URL:     choice.url,
			Headers: choice.headers,
			Timeout: choice.timeout,
			Retries: choice.retries,
		})
	case "redis":
		return redis.New(redis.Config{
			URL:     choice.url,
			Channel: choice.channel,
			Stream:  choice.stream,
			Timeout: choice.timeout,
			Retries: choice.retries,
		})
	default:
		return nil, fmt.Errorf("unknown notifier type %q", choice.notifyType)
	}
}
