// Package config handles hoist.yaml loading for the hoist CLI.
package config

import (
	"os"
	"regexp"
)

// envVarPattern matches ${VAR} and ${VAR:-default}.
var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(?::-([^}]*))?\}`)

// ExpandEnv replaces ${VAR} and ${VAR:-default} in input with values from
// the process environment.
//
// An unset variable without a default expands to the empty string.
// Missing credentials surface later when the backend is configured.
func ExpandEnv(input string) string {
	return expand(input, os.LookupEnv)
}

// expand is ExpandEnv over an arbitrary lookup. The default applies when
// the variable is unset or empty.
func expand(input string, lookup func(string) (string, bool)) string {
	return envVarPattern.ReplaceAllStringFunc(input, func(match string) string {
		groups := envVarPattern.FindStringSubmatch(match)
		if value, ok := lookup(groups[1]); ok && value != "" {
			return value
		}
		return groups[2]
	})
}
