package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/dustin/go-humanize"
)

const (
	padding  = 2
	maxWidth = 80
)

// Messages sent by ProgressReporter into the program.
type (
	startMsg struct {
		total int64
		label string
	}
	updateMsg struct{ done, total int64 }
	partMsg   struct{ number, count int32 }
	finishMsg struct{ err error }
)

// keyMap defines key bindings.
type keyMap struct {
	Cancel key.Binding
}

var keys = keyMap{
	Cancel: key.NewBinding(
		key.WithKeys("ctrl+c", "q"),
		key.WithHelp("ctrl+c", "cancel upload"),
	),
}

// UploadModel is a Bubble Tea model for one upload.
type UploadModel struct {
	bar      progress.Model
	label    string
	total    int64
	done     int64
	part     int32
	parts    int32
	started  time.Time
	now      func() time.Time
	err      error
	finished bool
	canceled bool
	onCancel func()
}

// NewUploadModel creates a model. onCancel runs once if the user presses
// ctrl+c; it should cancel the upload context.
func NewUploadModel(onCancel func()) UploadModel {
	return UploadModel{
		bar:      progress.New(progress.WithDefaultGradient(), progress.WithWidth(maxWidth-padding*2)),
		now:      time.Now,
		onCancel: onCancel,
	}
}

// Init implements tea.Model.
func (m UploadModel) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m UploadModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.bar.Width = min(msg.Width-padding*2-4, maxWidth)
		return m, nil

	case tea.KeyMsg:
		if key.Matches(msg, keys.Cancel) && !m.canceled {
			m.canceled = true
			if m.onCancel != nil {
				m.onCancel()
			}
		}
		return m, nil

	case startMsg:
		m.total = msg.total
		m.label = msg.label
		m.started = m.now()
		return m, nil

	case partMsg:
		m.part = msg.number
		m.parts = msg.count
		return m, nil

	case updateMsg:
		m.done = msg.done
		m.total = msg.total
		return m, nil

	case finishMsg:
		m.finished = true
		m.err = msg.err
		return m, tea.Quit
	}

	return m, nil
}

// Percent returns the completed fraction in [0, 1].
func (m UploadModel) Percent() float64 {
	if m.total <= 0 {
		return 0
	}
	return min(float64(m.done)/float64(m.total), 1)
}

// View implements tea.Model.
func (m UploadModel) View() string {
	pad := strings.Repeat(" ", padding)

	if m.finished {
		if m.err != nil {
			return pad + ErrorStyle.Render(fmt.Sprintf("✗ %s: upload failed", m.label)) + "\n"
		}
		return pad + SuccessStyle.Render(fmt.Sprintf("✓ %s: %s uploaded in %d parts", m.label, humanize.IBytes(uint64(m.total)), m.parts)) + "\n"
	}

	var b strings.Builder
	b.WriteString(pad + TitleStyle.Render("Uploading "+m.label) + "\n")
	b.WriteString(pad + m.bar.ViewAs(m.Percent()) + "\n")
	b.WriteString(pad + StatStyle.Render(m.stats()) + "\n")
	help := "ctrl+c to cancel"
	if m.canceled {
		help = "canceling..."
	}
	b.WriteString(pad + HelpStyle.Render(help) + "\n")
	return b.String()
}

func (m UploadModel) stats() string {
	parts := []string{
		fmt.Sprintf("%s / %s", humanize.IBytes(uint64(m.done)), humanize.IBytes(uint64(m.total))),
	}
	if m.parts > 0 {
		parts = append(parts, fmt.Sprintf("part %d of %d", m.part, m.parts))
	}
	if m.started.IsZero() {
		return strings.Join(parts, " · ")
	}

	elapsed := m.now().Sub(m.started)
	parts = append(parts, "elapsed "+formatElapsed(elapsed))
	if secs := elapsed.Seconds(); secs > 0 && m.done > 0 {
		rate := float64(m.done) / secs
		parts = append(parts, humanize.IBytes(uint64(rate))+"/s")
		if remaining := m.total - m.done; remaining > 0 {
			eta := time.Duration(float64(remaining) / rate * float64(time.Second))
			parts = append(parts, "eta "+roundETA(eta).String())
		}
	}
	return strings.Join(parts, " · ")
}

// formatElapsed formats d as HH:MM:SS.
func formatElapsed(d time.Duration) string {
	d = d.Truncate(time.Second)
	h := d / time.Hour
	d -= h * time.Hour
	mins := d / time.Minute
	d -= mins * time.Minute
	return fmt.Sprintf("%02d:%02d:%02d", h, mins, d/time.Second)
}

// roundETA keeps sub-second estimates at 100ms and the rest at 1s.
func roundETA(d time.Duration) time.Duration {
	if d < time.Second {
		return d.Round(100 * time.Millisecond)
	}
	return d.Round(time.Second)
}
