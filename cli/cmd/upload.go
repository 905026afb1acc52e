package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/google/uuid"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap/zapcore"

	"github.com/pithecene-io/hoist/cli/config"
	"github.com/pithecene-io/hoist/cli/render"
	"github.com/pithecene-io/hoist/cli/tui"
	"github.com/pithecene-io/hoist/iox"
	"github.com/pithecene-io/hoist/log"
	"github.com/pithecene-io/hoist/metrics"
	"github.com/pithecene-io/hoist/multipart"
	"github.com/pithecene-io/hoist/source"
	"github.com/pithecene-io/hoist/storage"
)

// Progress display modes.
const (
	progressAuto = "auto"
	progressBar  = "bar"
	progressLog  = "log"
	progressNone = "none"
)

// logLinesPerUpload is the target number of progress lines in log mode.
const logLinesPerUpload = 20

// UploadCommand returns the upload command.
// It is the only command that writes to storage.
func UploadCommand() *cli.Command {
	return &cli.Command{
		Name:      "upload",
		Usage:     "Upload a file as a multipart upload",
		ArgsUsage: "<file>",
		Flags: concat(
			[]cli.Flag{ConfigFlag},
			storageFlags(),
			uploadFlags(),
			planFlags(),
			logFlags(),
			notifyFlags(),
			OutputFlags(),
			[]cli.Flag{
				&cli.StringFlag{
					Name:  "progress",
					Usage: "Progress display: auto, bar, log, none",
					Value: progressAuto,
				},
				&cli.BoolFlag{
					Name:    "quiet",
					Aliases: []string{"q"},
					Usage:   "Print nothing on success",
				},
			},
		),
		Action: uploadAction,
	}
}

func uploadAction(c *cli.Context) error {
	if c.NArg() != 1 {
		return usageError("upload takes exactly one <file> argument, got %d", c.NArg())
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

	sc := resolveStorage(c, cfg)
	if err := validateStorageChoice(sc); err != nil {
		return usageError("%v", err)
	}
	opts, err := resolveUploadOptions(c, cfg)
	if err != nil {
		return usageError("%v", err)
	}
	mode, err := progressMode(c)
	if err != nil {
		return usageError("%v", err)
	}
	rateLimit, err := resolveByteSize(c, "rate-limit",
		configVal(cfg, func(c *config.Config) config.ByteSize { return c.Upload.RateLimit }))
	if err != nil {
		return usageError("%v", err)
	}

	key := c.String("key")
	if key == "" {
		key = filepath.Base(path)
	}
	obj := storage.Object{Bucket: sc.bucket, Key: key}

	runID := c.String("run-id")
	if runID == "" {
		runID = uuid.NewString()
	}

	logger, err := buildLogger(c, cfg, log.UploadMeta{RunID: runID, Bucket: obj.Bucket, Key: obj.Key})
	if err != nil {
		return usageError("invalid log config: %v", err)
	}
	defer iox.DiscardClose(logger)

	if sc.backend != "memory" && opts.ChunkSize < multipart.DefaultChunkSize {
		logger.Warn("chunk size is below the 5 MiB S3 minimum for non-final parts", map[string]any{
			"chunk_size": opts.ChunkSize,
		})
	}

	notifyType := resolveString(c, "notify", configVal(cfg, func(c *config.Config) string { return c.Notify.Type }))
	choice, err := parseNotifyConfigWithPrecedence(c, cfg, notifyType)
	if err != nil {
		return usageError("%v", err)
	}
	notifier, err := buildNotifier(choice)
	if err != nil {
		return usageError("invalid notifier config: %v", err)
	}
	if notifier != nil {
		defer iox.DiscardClose(notifier)
	}

	ctx, cancel := withSignals(c.Context, logger)
	defer cancel()

	var srcOpts []source.Option
	if rateLimit > 0 {
		srcOpts = append(srcOpts, source.WithRateLimit(ctx, rateLimit))
	}
	if ct := c.String("content-type"); ct != "" {
		srcOpts = append(srcOpts, source.WithContentType(ct))
	}
	src, err := source.Open(path, srcOpts...)
	if err != nil {
		return usageError("cannot open %s: %v", path, err)
	}
	defer iox.DiscardClose(src)

	backend, err := buildBackend(ctx, sc)
	if err != nil {
		return usageError("cannot configure %s backend: %v", sc.backend, err)
	}

	reporter, closeReporter := buildReporter(c, mode, logger, cancel, src.Size(), opts.ChunkSize)
	defer closeReporter()

	up, err := multipart.NewUploader(multipart.Config{
		Backend:     backend,
		BackendName: sc.backend,
		Options:     opts,
		Reporter:    reporter,
		Logger:      logger,
		Metrics:     metrics.NewCollector(sc.backend, obj.Bucket, runID),
		Notifier:    notifier,
		RunID:       runID,
	})
	if err != nil {
		return exitError("upload failed", err)
	}

	res, err := up.Upload(ctx, src, obj)
	if err != nil {
		return exitError("upload failed", err)
	}
	if c.Bool("quiet") {
		return nil
	}
	return r.Render(res)
}

// resolveUploadOptions merges upload and plan flags over the config file.
func resolveUploadOptions(c *cli.Context, cfg *config.Config) (multipart.Options, error) {
	uc := configVal(cfg, func(c *config.Config) config.UploadConfig { return c.Upload })
	opts := multipart.DefaultOptions()

	chunk, err := resolveByteSize(c, "chunk-size", uc.ChunkSize)
	if err != nil {
		return opts, err
	}
	if chunk <= 0 {
		return opts, errors.New("--chunk-size must be positive")
	}
	maxParts := resolveInt(c, "max-parts", int(uc.MaxParts))
	if maxParts <= 0 || maxParts > math.MaxInt32 {
		return opts, fmt.Errorf("--max-parts must be between 1 and %d, got %d", math.MaxInt32, maxParts)
	}
	metadata, err := parsePairs("metadata", c.StringSlice("metadata"), nil)
	if err != nil {
		return opts, err
	}
	retries := resolveIntPtr(c, "retries", uc.Retry.MaxRetries)
	if retries < 0 {
		return opts, fmt.Errorf("--retries must not be negative, got %d", retries)
	}

	opts.ChunkSize = chunk
	opts.MaxParts = int32(maxParts)
	opts.StorageClass = resolveString(c, "storage-class", uc.StorageClass)
	opts.Metadata = metadata
	opts.Replace = resolveBool(c, "replace", uc.Replace)
	if uc.AbortOnFailure != nil {
		opts.AbortOnFailure = *uc.AbortOnFailure
	}
	if c.IsSet("keep-session") {
		opts.AbortOnFailure = !c.Bool("keep-session")
	}
	opts.Retry = multipart.RetryPolicy{
		MaxRetries:      retries,
		InitialInterval: resolveDuration(c, "retry-initial", uc.Retry.InitialInterval.Duration),
		MaxInterval:     resolveDuration(c, "retry-max", uc.Retry.MaxInterval.Duration),
	}
	return opts, nil
}

// progressMode resolves --progress, turning auto into a concrete mode.
func progressMode(c *cli.Context) (string, error) {
	mode := c.String("progress")
	switch mode {
	case progressBar, progressLog, progressNone:
		return mode, nil
	case progressAuto:
		switch {
		case c.Bool("quiet"):
			return progressNone, nil
		case isTerminalWriter(c.App.ErrWriter):
			return progressBar, nil
		default:
			return progressLog, nil
		}
	default:
		return "", fmt.Errorf("invalid --progress %q (must be auto, bar, log or none)", mode)
	}
}

// buildReporter returns the reporter for mode and a func that releases it.
// The bar mode quiets console logging below error so log lines do not
// tear the bar.
func buildReporter(c *cli.Context, mode string, logger *log.Logger, cancel context.CancelFunc, size, chunk int64) (multipart.Reporter, func()) {
	switch mode {
	case progressLog:
		return &multipart.LogReporter{Logger: logger, Every: logEvery(size, chunk)}, func() {}
	case progressBar:
		w := c.App.ErrWriter
		if w == nil {
			w = os.Stderr
		}
		logger.SetConsoleLevel(zapcore.ErrorLevel)
		pr := tui.NewProgressReporter(w, cancel)
		closeBar := iox.CloseFunc(pr)
		return pr, func() {
			closeBar()
			if err := pr.Wait(); err != nil {
				logger.Warn("progress display stopped", map[string]any{"error": err.Error()})
			}
		}
	default:
		return nil, func() {}
	}
}

// logEvery spreads roughly logLinesPerUpload progress lines over the upload.
func logEvery(size, chunk int64) int32 {
	if chunk <= 0 {
		return 1
	}
	parts := (size + chunk - 1) / chunk
	every := parts / logLinesPerUpload
	if every < 1 {
		return 1
	}
	if every > math.MaxInt32 {
		return math.MaxInt32
	}
	return int32(every)
}

func buildLogger(c *cli.Context, cfg *config.Config, meta log.UploadMeta) (*log.Logger, error) {
	lc := configVal(cfg, func(c *config.Config) config.LogConfig { return c.Log })
	return log.NewLogger(log.Config{
		Level:    resolveString(c, "log-level", lc.Level),
		FilePath: resolveString(c, "log-file", lc.File),
		Console:  c.App.ErrWriter,
	}, meta)
}

// withSignals derives a context canceled on SIGINT or SIGTERM.
func withSignals(parent context.Context, logger *log.Logger) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case sig := <-sigCh:
			logger.Sugar().With("signal", sig.String()).Warnf("received %s, canceling upload", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, func() {
		signal.Stop(sigCh)
		cancel()
	}
}

func isTerminalWriter(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && render.IsTerminal(f)
}
