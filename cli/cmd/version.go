package cmd

import (
	"runtime"

	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/hoist/cli/render"
	"github.com/pithecene-io/hoist/types"
)

// VersionResponse is the response for the version command.
type VersionResponse struct {
	Version   string `json:"version" yaml:"version"`
	Commit    string `json:"commit" yaml:"commit"`
	GoVersion string `json:"go_version" yaml:"go_version"`
}

// VersionCommand returns the version command. It never contacts storage.
func VersionCommand(commit string) *cli.Command {
	return &cli.Command{
		Name:   "version",
		Usage:  "Show version information",
		Flags:  OutputFlags(),
		Action: versionAction(commit),
	}
}

func versionAction(commit string) cli.ActionFunc {
	return func(c *cli.Context) error {
		r, err := render.NewRenderer(c)
		if err != nil {
			return usageError("%v", err)
		}
		return r.Render(VersionResponse{
			Version:   types.Version,
			Commit:    commit,
			GoVersion: runtime.Version(),
		})
	}
}
