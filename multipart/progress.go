package multipart

import (
	"github.com/pithecene-io/hoist/log"
)

// Reporter receives byte-level progress for one upload.
//
// Calls arrive from the upload goroutine in order: Start once, Update
// after every part with a non-decreasing done, then Finish once.
type Reporter interface {
	Start(total int64, label string)
	Update(done, total int64)
	Finish(err error)
}

// PartReporter is optionally implemented by a Reporter that wants to know
// when each part begins.
type PartReporter interface {
	PartStarted(number, count int32)
}

// NopReporter discards all progress.
type NopReporter struct{}

func (NopReporter) Start(int64, string)      {}
func (NopReporter) Update(int64, int64)      {}
func (NopReporter) Finish(error)             {}
func (NopReporter) PartStarted(int32, int32) {}

// SafeReporter shields the upload from a misbehaving Reporter.
// A panic in any callback is recovered, logged once, and the inner
// reporter is not called again.
type SafeReporter struct {
	inner  Reporter
	logger *log.Logger
	broken bool
}

// NewSafeReporter wraps r. A nil r yields a NopReporter.
func NewSafeReporter(r Reporter, logger *log.Logger) *SafeReporter {
	if r == nil {
		r = NopReporter{}
	}
	if logger == nil {
		logger = log.NewNop()
	}
	return &SafeReporter{inner: r, logger: logger}
}

func (s *SafeReporter) call(name string, fn func()) {
	if s.broken {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			s.broken = true
			s.logger.Warn("progress reporter panicked, disabling", map[string]any{
				"callback": name,
				"panic":    r,
			})
		}
	}()
	fn()
}

// Start forwards to the inner reporter.
func (s *SafeReporter) Start(total int64, label string) {
	s.call("start", func() { s.inner.Start(total, label) })
}

// Update forwards to the inner reporter.
func (s *SafeReporter) Update(done, total int64) {
	s.call("update", func() { s.inner.Update(done, total) })
}

// Finish forwards to the inner reporter.
func (s *SafeReporter) Finish(err error) {
	s.call("finish", func() { s.inner.Finish(err) })
}

// PartStarted forwards when the inner reporter implements PartReporter.
func (s *SafeReporter) PartStarted(number, count int32) {
	pr, ok := s.inner.(PartReporter)
	if !ok {
		return
	}
	s.call("part_started", func() { pr.PartStarted(number, count) })
}

// LogReporter writes progress as structured log lines.
// Used when output is not a terminal.
type LogReporter struct {
	Logger *log.Logger
	// Every limits update lines to one per Every parts. Zero logs each part.
	Every int32

	label string
	parts int32
}

func (r *LogReporter) Start(total int64, label string) {
	r.label = label
	r.parts = 0
	r.Logger.Info("upload started", map[string]any{"file": label, "total_bytes": total})
}

func (r *LogReporter) PartStarted(number, count int32) {
	r.Logger.Debug("Uploading chunk", map[string]any{"part": number, "of": count})
}

func (r *LogReporter) Update(done, total int64) {
	r.parts++
	if r.Every > 1 && r.parts%r.Every != 0 && done != total {
		return
	}
	pct := 0.0
	if total > 0 {
		pct = float64(done) * 100 / float64(total)
	}
	r.Logger.Info("upload progress", map[string]any{
		"file":        r.label,
		"done_bytes":  done,
		"total_bytes": total,
		"percent":     pct,
	})
}

func (r *LogReporter) Finish(err error) {
	if err != nil {
		r.Logger.Error("upload failed", map[string]any{"file": r.label, "error": err.Error()})
		return
	}
	r.Logger.Info("upload finished", map[string]any{"file": r.label})
}

var (
	_ Reporter     = NopReporter{}
	_ PartReporter = NopReporter{}
	_ Reporter     = (*SafeReporter)(nil)
	_ PartReporter = (*SafeReporter)(nil)
	_ Reporter     = (*LogReporter)(nil)
	_ PartReporter = (*LogReporter)(nil)
)
