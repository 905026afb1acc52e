package cmd

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/hoist/cli/config"
)

// loadConfig loads --config, or ./hoist.yaml when present.
// Returns nil without error when neither exists.
func loadConfig(c *cli.Context) (*config.Config, error) {
	path := c.String("config")
	if path == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("cannot locate %s: %w", config.DefaultFileName, err)
		}
		path = config.Find(wd)
		if path == "" {
			return nil, nil
		}
	}
	return config.Load(path)
}

// configVal reads a field from cfg, or the zero value when cfg is nil.
func configVal[T any](cfg *config.Config, get func(*config.Config) T) T {
	var zero T
	if cfg == nil {
		return zero
	}
	return get(cfg)
}

// resolveString applies precedence: explicit flag, config, flag default.
func resolveString(c *cli.Context, name, cfgVal string) string {
	if c.IsSet(name) {
		return c.String(name)
	}
	if cfgVal != "" {
		return cfgVal
	}
	return c.String(name)
}

func resolveInt(c *cli.Context, name string, cfgVal int) int {
	if c.IsSet(name) {
		return c.Int(name)
	}
	if cfgVal != 0 {
		return cfgVal
	}
	return c.Int(name)
}

// resolveIntPtr is resolveInt for config values where zero is meaningful.
func resolveIntPtr(c *cli.Context, name string, cfgVal *int) int {
	if c.IsSet(name) || cfgVal == nil {
		return c.Int(name)
	}
	return *cfgVal
}

func resolveBool(c *cli.Context, name string, cfgVal bool) bool {
	if c.IsSet(name) {
		return c.Bool(name)
	}
	return cfgVal || c.Bool(name)
}

func resolveDuration(c *cli.Context, name string, cfgVal time.Duration) time.Duration {
	if c.IsSet(name) {
		return c.Duration(name)
	}
	if cfgVal != 0 {
		return cfgVal
	}
	return c.Duration(name)
}

// resolveByteSize resolves a size flag written as a string ("5MiB").
func resolveByteSize(c *cli.Context, name string, cfgVal config.ByteSize) (int64, error) {
	if !c.IsSet(name) && cfgVal != 0 {
		return int64(cfgVal), nil
	}
	n, err := config.ParseByteSize(c.String(name))
	if err != nil {
		return 0, fmt.Errorf("--%s: %w", name, err)
	}
	return int64(n), nil
}

// parsePairs parses repeatable key=value flags, merging over base.
func parsePairs(flagName string, values []string, base map[string]string) (map[string]string, error) {
	if len(values) == 0 && len(base) == 0 {
		return nil, nil
	}
	out := make(map[string]string, len(base)+len(values))
	for k, v := range base {
		out[k] = v
	}
	for _, kv := range values {
		k, v, ok := strings.Cut(kv, "=")
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			return nil, fmt.Errorf("--%s %q: expected key=value", flagName, kv)
		}
		out[k] = v
	}
	return out, nil
}
