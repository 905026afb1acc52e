package cmd

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/hoist/cli/config"
	"github.com/pithecene-io/hoist/cli/render"
	"github.com/pithecene-io/hoist/iox"
	"github.com/pithecene-io/hoist/multipart"
	"github.com/pithecene-io/hoist/source"
)

// planSummary is the header of the plan command output.
type planSummary struct {
	File         string `json:"file" yaml:"file"`
	ContentType  string `json:"content_type,omitempty" yaml:"content_type,omitempty"`
	TotalSize    int64  `json:"total_size" yaml:"total_size"`
	ChunkSize    int64  `json:"chunk_size" yaml:"chunk_size"`
	PartCount    int32  `json:"part_count" yaml:"part_count"`
	LastPartSize int64  `json:"last_part_size" yaml:"last_part_size"`
}

// planView is the full plan command output.
type planView struct {
	planSummary `yaml:",inline"`
	Parts       []multipart.Part `json:"parts" yaml:"parts"`
}

// PlanCommand returns the plan command.
// It reads only the file's size and type and never contacts storage.
func PlanCommand() *cli.Command {
	return &cli.Command{
		Name:      "plan",
		Usage:     "Show how a file would be split into parts",
		ArgsUsage: "<file>",
		Flags:     concat([]cli.Flag{ConfigFlag}, planFlags(), OutputFlags()),
		Action:    planAction,
	}
}

func planAction(c *cli.Context) error {
	if c.NArg() != 1 {
		return usageError("plan takes exactly one <file> argument, got %d", c.NArg())
	}
	path := c.Args().First()

	cfg, err := loadConfig(c)
	if err != nil {
		return usageError("%v", err)
	}
	r, err := render.NewRenderer(c)
	if err != nil {
		return usageError("%v", err)
	}

	uc := configVal(cfg, func(c *config.Config) config.UploadConfig { return c.Upload })
	chunk, err := resolveByteSize(c, "chunk-size", uc.ChunkSize)
	if err != nil {
		return usageError("%v", err)
	}
	maxParts := resolveInt(c, "max-parts", int(uc.MaxParts))

	src, err := source.Open(path)
	if err != nil {
		return usageError("cannot open %s: %v", path, err)
	}
	defer iox.DiscardClose(src)

	plan, err := multipart.NewPlan(src.Size(), chunk, int32(min(maxParts, 1<<31-1)))
	if err != nil {
		return exitError("plan failed", err)
	}

	view := planView{
		planSummary: planSummary{
			File:         src.Name(),
			ContentType:  src.ContentType(),
			TotalSize:    plan.TotalSize,
			ChunkSize:    plan.ChunkSize,
			PartCount:    plan.PartCount,
			LastPartSize: plan.LastPartSize,
		},
		Parts: plan.Parts(),
	}

	if r.Format() != render.FormatTable {
		return r.Render(view)
	}
	if err := r.Render(view.planSummary); err != nil {
		return err
	}
	if _, err := fmt.Fprintln(c.App.Writer); err != nil {
		return err
	}
	return r.Render(view.Parts)
}
