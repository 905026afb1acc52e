// Package main provides the hoist CLI entrypoint.
//
// Usage:
//
//	hoist <command> [options]
//
// Exit codes:
//   - 0: success
//   - 1: upload or abort failed
//   - 2: invalid input (flags, config, empty file, too many parts)
//   - 3: interrupted
package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/hoist/cli/cmd"
	"github.com/pithecene-io/hoist/types"
)

// commit is set via ldflags at build time.
var commit = "unknown"

func main() {
	if err := newApp().Run(os.Args); err != nil {
		// ExitErrHandler already exited for cli.ExitCoder errors.
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:           "hoist",
		Usage:          "Chunked multipart uploads to S3-compatible storage",
		Version:        fmt.Sprintf("%s (commit: %s)", types.Version, commit),
		ExitErrHandler: exitErrHandler,
		Commands: []*cli.Command{
			cmd.UploadCommand(),
			cmd.PlanCommand(),
			cmd.AbortCommand(),
			cmd.VersionCommand(commit),
		},
	}
}

// exitErrHandler prints err and exits with the code carried by cli.Exit.
func exitErrHandler(c *cli.Context, err error) {
	if err == nil {
		return
	}
	var w io.Writer = os.Stderr
	if c != nil && c.App != nil && c.App.ErrWriter != nil {
		w = c.App.ErrWriter
	}
	code, msg := exitStatus(err)
	if msg != "" {
		fmt.Fprintln(w, msg)
	}
	os.Exit(code)
}

// exitStatus returns the exit code for err and the message worth printing.
// cli.Exit("", N) reports "exit status N", which is suppressed.
func exitStatus(err error) (int, string) {
	var exitCoder cli.ExitCoder
	if errors.As(err, &exitCoder) {
		code := exitCoder.ExitCode()
		msg := exitCoder.Error()
		if msg == fmt.Sprintf("exit status %d", code) {
			msg = ""
		}
		return code, msg
	}
	return 1, fmt.Sprintf("Error: %v", err)
}
