package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/hoist/multipart"
)

// Exit codes.
const (
	exitSuccess      = 0
	exitUploadFailed = 1
	exitInvalidInput = 2
	exitInterrupted  = 3
)

// exitCodeFor maps an upload error to a process exit code.
// Interruption wins over the failure kind it is wrapped in.
func exitCodeFor(err error) int {
	switch {
	case err == nil:
		return exitSuccess
	case errors.Is(err, context.Canceled):
		return exitInterrupted
	case errors.Is(err, multipart.ErrEmptyFile),
		errors.Is(err, multipart.ErrTooManyParts),
		errors.Is(err, multipart.ErrInvalidPlan):
		return exitInvalidInput
	default:
		return exitUploadFailed
	}
}

// exitError converts err into a cli.Exit carrying its exit code.
func exitError(prefix string, err error) error {
	if err == nil {
		return nil
	}
	return cli.Exit(fmt.Sprintf("%s: %v", prefix, err), exitCodeFor(err))
}

// usageError reports invalid flags or configuration.
func usageError(format string, args ...any) error {
	return cli.Exit(fmt.Sprintf(format, args...), exitInvalidInput)
}
