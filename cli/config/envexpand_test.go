package config

import (
	"testing"
)

func TestExpand(t *testing.T) {
	env := map[string]string{"REGION": "eu-west-1", "EMPTY": "", "A": "alice", "B": "bob"}
	lookup := func(name string) (string, bool) {
		v, ok := env[name]
		return v, ok
	}

	tests := []struct {
		name, in, want string
	}{
		{"set", "region: ${REGION}", "region: eu-west-1"},
		{"unset", "region: ${NOPE}", "region: "},
		{"default when unset", "region: ${NOPE:-us-east-1}", "region: us-east-1"},
		{"default ignored when set", "region: ${REGION:-us-east-1}", "region: eu-west-1"},
		{"default when empty", "region: ${EMPTY:-us-east-1}", "region: us-east-1"},
		{"multiple", "${A}:${B}", "alice:bob"},
		{"no vars", "no variables here", "no variables here"},
		{"bare dollar untouched", "cost: $5 and $REGION", "cost: $5 and $REGION"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := expand(tt.in, lookup); got != tt.want {
				t.Errorf("expand(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestExpandEnv_ProcessEnvironment(t *testing.T) {
	t.Setenv("TEST_HOIST_VAR", "hello")

	got := ExpandEnv("value: ${TEST_HOIST_VAR}")
	want := "value: hello"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestExpandEnv_NestedInYAML(t *testing.T) {
	t.Setenv("HOIST_ACCESS_KEY", "AKIA123")
	t.Setenv("HOIST_SECRET_KEY", "secret")

	input := `storage:
  backend: minio
  access_key: ${HOIST_ACCESS_KEY}
  secret_key: ${HOIST_SECRET_KEY}`

	got := ExpandEnv(input)
	want := `storage:
  backend: minio
  access_key: AKIA123
  secret_key: secret`

	if got != want {
		t.Errorf("got:\n%s\nwant:\n%s", got, want)
	}
}

func TestExpand_CustomLookup(t *testing.T) {
	lookup := func(name string) (string, bool) {
		if name == "BUCKET" {
			return "b1", true
		}
		return "", false
	}
	got := expand("${BUCKET}/${PREFIX:-uploads}/${MISSING}", lookup)
	want := "b1/uploads/"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}
