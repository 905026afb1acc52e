package tui

import (
	"io"
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/pithecene-io/hoist/multipart"
)

// ProgressReporter drives an UploadModel from upload callbacks.
// The program starts on the first Start call and runs on its own
// goroutine; callbacks reach it through Program.Send.
type ProgressReporter struct {
	program  *tea.Program
	once     sync.Once
	started  bool
	finished bool
	done     chan struct{}
	err      error
}

// NewProgressReporter prepares a program writing to out. onCancel runs
// when the user cancels from the keyboard.
func NewProgressReporter(out io.Writer, onCancel func(), opts ...tea.ProgramOption) *ProgressReporter {
	opts = append([]tea.ProgramOption{tea.WithOutput(out)}, opts...)
	return &ProgressReporter{
		program: tea.NewProgram(NewUploadModel(onCancel), opts...),
		done:    make(chan struct{}),
	}
}

// Start implements multipart.Reporter.
func (r *ProgressReporter) Start(total int64, label string) {
	r.once.Do(func() {
		r.started = true
		go func() {
			defer close(r.done)
			_, r.err = r.program.Run()
		}()
	})
	r.program.Send(startMsg{total: total, label: label})
}

// PartStarted implements multipart.PartReporter.
func (r *ProgressReporter) PartStarted(number, count int32) {
	r.program.Send(partMsg{number: number, count: count})
}

// Update implements multipart.Reporter.
func (r *ProgressReporter) Update(done, total int64) {
	r.program.Send(updateMsg{done: done, total: total})
}

// Finish implements multipart.Reporter. It blocks until the program has
// drawn its final frame and restored the terminal.
func (r *ProgressReporter) Finish(err error) {
	if !r.started {
		return
	}
	r.finished = true
	r.program.Send(finishMsg{err: err})
	<-r.done
}

// Wait blocks until the program exits and returns its run error.
func (r *ProgressReporter) Wait() error {
	if !r.started {
		return nil
	}
	<-r.done
	return r.err
}

// Close stops a program that started but never received Finish, so the
// terminal is restored on early exits.
func (r *ProgressReporter) Close() error {
	if r.started && !r.finished {
		r.program.Kill()
		<-r.done
	}
	return nil
}

var (
	_ multipart.Reporter     = (*ProgressReporter)(nil)
	_ multipart.PartReporter = (*ProgressReporter)(nil)
)
