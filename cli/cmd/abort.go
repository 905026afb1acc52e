package cmd

import (
	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/hoist/cli/render"
	"github.com/pithecene-io/hoist/iox"
	"github.com/pithecene-io/hoist/log"
	"github.com/pithecene-io/hoist/multipart"
	"github.com/pithecene-io/hoist/storage"
)

// abortView is the abort command output.
type abortView struct {
	Bucket   string `json:"bucket" yaml:"bucket"`
	Key      string `json:"key" yaml:"key"`
	UploadID string `json:"upload_id" yaml:"upload_id"`
	State    string `json:"state" yaml:"state"`
}

// AbortCommand returns the abort command, which discards a multipart
// session left open by a failed upload run with --keep-session.
func AbortCommand() *cli.Command {
	return &cli.Command{
		Name:  "abort",
		Usage: "Abort an open multipart upload",
		Flags: concat(
			[]cli.Flag{ConfigFlag},
			storageFlags(),
			[]cli.Flag{
				&cli.StringFlag{
					Name:    "key",
					Aliases: []string{"k"},
					Usage:   "Object key of the upload",
				},
				&cli.StringFlag{
					Name:  "upload-id",
					Usage: "Upload ID to abort",
				},
			},
			logFlags(),
			OutputFlags(),
		),
		Action: abortAction,
	}
}

func abortAction(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return usageError("%v", err)
	}
	r, err := render.NewRenderer(c)
	if err != nil {
		return usageError("%v", err)
	}

	sc := resolveStorage(c, cfg)
	if err := validateStorageChoice(sc); err != nil {
		return usageError("%v", err)
	}
	obj := storage.Object{Bucket: sc.bucket, Key: c.String("key")}
	uploadID := c.String("upload-id")
	switch {
	case obj.Key == "":
		return usageError("--key is required")
	case uploadID == "":
		return usageError("--upload-id is required")
	}

	logger, err := buildLogger(c, cfg, log.UploadMeta{Bucket: obj.Bucket, Key: obj.Key})
	if err != nil {
		return usageError("invalid log config: %v", err)
	}
	defer iox.DiscardClose(logger)

	ctx, cancel := withSignals(c.Context, logger)
	defer cancel()

	backend, err := buildBackend(ctx, sc)
	if err != nil {
		return usageError("cannot configure %s backend: %v", sc.backend, err)
	}
	up, err := multipart.NewUploader(multipart.Config{
		Backend:     backend,
		BackendName: sc.backend,
		Logger:      logger,
	})
	if err != nil {
		return exitError("abort failed", err)
	}

	sess := multipart.NewSession(obj, uploadID)
	if err := up.Abort(ctx, sess); err != nil {
		return exitError("abort failed", err)
	}
	logger.Sugar().With("upload_id", uploadID).Infof("aborted multipart upload of %s", obj)

	return r.Render(abortView{
		Bucket:   obj.Bucket,
		Key:      obj.Key,
		UploadID: uploadID,
		State:    sess.State(),
	})
}
