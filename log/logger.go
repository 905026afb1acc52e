// Package log provides structured logging with upload context.
//
// Two logger variants are available:
//   - Logger: Non-sugared zap.Logger for the upload pipeline (structured fields)
//   - SugaredLogger: Printf-style logging for CLI surfaces
//
// Use Logger.Sugar() to obtain a SugaredLogger when needed.
package log

import (
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Config selects log level and sinks.
type Config struct {
	// Level is debug, info, warn or error (default info).
	Level string
	// FilePath, when set, adds a rotating JSON file sink.
	FilePath string
	// Console receives the JSON console stream. Nil means os.Stderr.
	Console io.Writer
}

// UploadMeta is the identity attached to every entry.
type UploadMeta struct {
	RunID  string
	Bucket string
	Key    string
}

// Logger provides structured logging with upload context.
// All log entries include upload_run_id, bucket and key.
type Logger struct {
	zap     *zap.Logger
	level   zap.AtomicLevel
	console zap.AtomicLevel
	file    io.Closer
}

// SugaredLogger provides printf-style logging for CLI surfaces.
type SugaredLogger struct {
	sugar *zap.SugaredLogger
}

// NewLogger creates a logger writing JSON to cfg.Console (os.Stderr by
// default), plus the rotating file sink when cfg.FilePath is set.
func NewLogger(cfg Config, meta UploadMeta) (*Logger, error) {
	w := cfg.Console
	if w == nil {
		w = os.Stderr
	}
	return newLoggerWithWriter(cfg, meta, w)
}

// NewWithWriter creates a logger writing only to w at the given level.
// Used by tests and by callers that capture log output.
func NewWithWriter(w io.Writer, level string, meta UploadMeta) (*Logger, error) {
	return newLoggerWithWriter(Config{Level: level}, meta, w)
}

// NewNop returns a logger that discards everything.
func NewNop() *Logger {
	return &Logger{
		zap:     zap.NewNop(),
		level:   zap.NewAtomicLevel(),
		console: zap.NewAtomicLevel(),
	}
}

func encoderConfig() zapcore.EncoderConfig {
	return zapcore.EncoderConfig{
		TimeKey:     "timestamp",
		LevelKey:    "level",
		MessageKey:  "message",
		EncodeTime:  zapcore.RFC3339NanoTimeEncoder,
		EncodeLevel: zapcore.LowercaseLevelEncoder,
	}
}

func newLoggerWithWriter(cfg Config, meta UploadMeta, w io.Writer) (*Logger, error) {
	lvl := zapcore.InfoLevel
	if cfg.Level != "" {
		parsed, err := zapcore.ParseLevel(cfg.Level)
		if err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
		}
		lvl = parsed
	}

	level := zap.NewAtomicLevelAt(lvl)
	console := zap.NewAtomicLevelAt(zapcore.DebugLevel)
	consoleEnabled := zap.LevelEnablerFunc(func(l zapcore.Level) bool {
		return level.Enabled(l) && console.Enabled(l)
	})

	cores := []zapcore.Core{
		zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfig()), zapcore.AddSync(w), consoleEnabled),
	}

	var file io.Closer
	if cfg.FilePath != "" {
		lj := &lumberjack.Logger{
			Filename:   cfg.FilePath,
			MaxSize:    10,
			MaxBackups: 3,
			MaxAge:     15,
			Compress:   true,
		}
		file = lj
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfig()), zapcore.AddSync(lj), level))
	}

	contextFields := []zap.Field{zap.String("upload_run_id", meta.RunID)}
	if meta.Bucket != "" {
		contextFields = append(contextFields, zap.String("bucket", meta.Bucket))
	}
	if meta.Key != "" {
		contextFields = append(contextFields, zap.String("key", meta.Key))
	}

	return &Logger{
		zap:     zap.New(zapcore.NewTee(cores...)).With(contextFields...),
		level:   level,
		console: console,
		file:    file,
	}, nil
}

// SetConsoleLevel caps what reaches the console sink without touching the
// file sink. The progress bar raises it to keep log lines off the bar.
func (l *Logger) SetConsoleLevel(level zapcore.Level) {
	l.console.SetLevel(level)
}

// ConsoleLevel returns the current console cap.
func (l *Logger) ConsoleLevel() zapcore.Level {
	return l.console.Level()
}

// Debug logs a debug message.
func (l *Logger) Debug(message string, fields map[string]any) {
	l.zap.Debug(message, zap.Any("fields", fields))
}

// Info logs an info message.
func (l *Logger) Info(message string, fields map[string]any) {
	l.zap.Info(message, zap.Any("fields", fields))
}

// Warn logs a warning message.
func (l *Logger) Warn(message string, fields map[string]any) {
	l.zap.Warn(message, zap.Any("fields", fields))
}

// Error logs an error message.
func (l *Logger) Error(message string, fields map[string]any) {
	l.zap.Error(message, zap.Any("fields", fields))
}

// Sync flushes buffered entries. Errors from syncing a terminal are ignored.
func (l *Logger) Sync() {
	_ = l.zap.Sync()
}

// Close flushes and releases the file sink, if any.
func (l *Logger) Close() error {
	l.Sync()
	if l.file != nil {
		return l.file.Close()
	}
	return nil
}

// Sugar returns a SugaredLogger for printf-style logging.
func (l *Logger) Sugar() *SugaredLogger {
	return &SugaredLogger{sugar: l.zap.Sugar()}
}

// Infof logs an info message with printf-style formatting.
func (s *SugaredLogger) Infof(template string, args ...any) {
	s.sugar.Infof(template, args...)
}

// Warnf logs a warning message with printf-style formatting.
func (s *SugaredLogger) Warnf(template string, args ...any) {
	s.sugar.Warnf(template, args...)
}

// With returns a SugaredLogger with additional context fields.
func (s *SugaredLogger) With(args ...any) *SugaredLogger {
	return &SugaredLogger{sugar: s.sugar.With(args...)}
}
