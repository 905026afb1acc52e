package tui

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

func step(t *testing.T, m UploadModel, msg tea.Msg) (UploadModel, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	um, ok := next.(UploadModel)
	if !ok {
		t.Fatalf("Update returned %T, want UploadModel", next)
	}
	return um, cmd
}

func TestUploadModel_Progress(t *testing.T) {
	clock := time.Unix(1_700_000_000, 0)
	m := NewUploadModel(nil)
	m.now = func() time.Time { return clock }

	m, _ = step(t, m, startMsg{total: 13 << 20, label: "archive.tar"})
	m, _ = step(t, m, partMsg{number: 2, count: 3})
	clock = clock.Add(2 * time.Second)
	m, _ = step(t, m, updateMsg{done: 10 << 20, total: 13 << 20})

	if got, want := m.Percent(), 10.0/13.0; got != want {
		t.Errorf("Percent() = %v, want %v", got, want)
	}
	view := m.View()
	for _, want := range []string{"Uploading archive.tar", "10 MiB / 13 MiB", "part 2 of 3", "5.0 MiB/s", "elapsed 00:00:02", "eta 600ms", "ctrl+c to cancel"} {
		if !strings.Contains(view, want) {
			t.Errorf("View() missing %q:\n%s", want, view)
		}
	}
}

func TestUploadModel_StatsBeforeFirstByte(t *testing.T) {
	clock := time.Unix(1_700_000_000, 0)
	m := NewUploadModel(nil)
	m.now = func() time.Time { return clock }

	m, _ = step(t, m, startMsg{total: 8 << 20, label: "a.bin"})
	clock = clock.Add(61 * time.Second)

	got := m.stats()
	if !strings.Contains(got, "elapsed 00:01:01") {
		t.Errorf("stats() = %q, want elapsed 00:01:01", got)
	}
	if strings.Contains(got, "eta") || strings.Contains(got, "/s") {
		t.Errorf("stats() = %q, want no rate or eta before any bytes", got)
	}
}

func TestUploadModel_NoETAWhenDone(t *testing.T) {
	clock := time.Unix(1_700_000_000, 0)
	m := NewUploadModel(nil)
	m.now = func() time.Time { return clock }

	m, _ = step(t, m, startMsg{total: 4 << 20, label: "a.bin"})
	clock = clock.Add(2 * time.Second)
	m, _ = step(t, m, updateMsg{done: 4 << 20, total: 4 << 20})

	if got := m.stats(); strings.Contains(got, "eta") {
		t.Errorf("stats() = %q, want no eta once every byte is sent", got)
	}
}

func TestRoundETA(t *testing.T) {
	tests := []struct {
		in, want time.Duration
	}{
		{599999999 * time.Nanosecond, 600 * time.Millisecond},
		{1400 * time.Millisecond, time.Second},
		{90*time.Second + 600*time.Millisecond, 91 * time.Second},
	}
	for _, tt := range tests {
		if got := roundETA(tt.in); got != tt.want {
			t.Errorf("roundETA(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestUploadModel_FinishQuits(t *testing.T) {
	m := NewUploadModel(nil)
	m, _ = step(t, m, startMsg{total: 10, label: "a.bin"})
	m, _ = step(t, m, partMsg{number: 1, count: 1})
	m, _ = step(t, m, updateMsg{done: 10, total: 10})
	m, cmd := step(t, m, finishMsg{})

	if cmd == nil {
		t.Fatal("finish should return tea.Quit")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("finish command is not tea.Quit")
	}
	if view := m.View(); !strings.Contains(view, "a.bin: 10 B uploaded in 1 parts") {
		t.Errorf("final view = %q", view)
	}
}

func TestUploadModel_FinishWithError(t *testing.T) {
	m := NewUploadModel(nil)
	m, _ = step(t, m, startMsg{total: 10, label: "a.bin"})
	m, _ = step(t, m, finishMsg{err: errors.New("boom")})
	if view := m.View(); !strings.Contains(view, "a.bin: upload failed") {
		t.Errorf("final view = %q", view)
	}
}

func TestUploadModel_CancelKeyRunsOnce(t *testing.T) {
	calls := 0
	m := NewUploadModel(func() { calls++ })

	m, cmd := step(t, m, tea.KeyMsg{Type: tea.KeyCtrlC})
	if cmd != nil {
		t.Error("cancel should not quit before the upload reports Finish")
	}
	m, _ = step(t, m, tea.KeyMsg{Type: tea.KeyCtrlC})
	if calls != 1 {
		t.Errorf("onCancel calls = %d, want 1", calls)
	}
	if !strings.Contains(m.View(), "canceling") {
		t.Error("view should show canceling state")
	}
}

func TestUploadModel_WindowSize(t *testing.T) {
	m := NewUploadModel(nil)
	m, _ = step(t, m, tea.WindowSizeMsg{Width: 40, Height: 10})
	if m.bar.Width != 32 {
		t.Errorf("bar width = %d, want 32", m.bar.Width)
	}
	m, _ = step(t, m, tea.WindowSizeMsg{Width: 300, Height: 10})
	if m.bar.Width != maxWidth {
		t.Errorf("bar width = %d, want %d", m.bar.Width, maxWidth)
	}
}

func TestUploadModel_PercentEmpty(t *testing.T) {
	if got := NewUploadModel(nil).Percent(); got != 0 {
		t.Errorf("Percent() = %v, want 0", got)
	}
}

func TestProgressReporter_Lifecycle(t *testing.T) {
	var out bytes.Buffer
	r := NewProgressReporter(&out, nil, tea.WithInput(nil), tea.WithoutRenderer())

	r.Start(10, "a.bin")
	r.PartStarted(1, 2)
	r.Update(5, 10)
	r.PartStarted(2, 2)
	r.Update(10, 10)
	r.Finish(nil)

	if err := r.Wait(); err != nil {
		t.Errorf("program error: %v", err)
	}
}

func TestProgressReporter_NeverStarted(t *testing.T) {
	r := NewProgressReporter(&bytes.Buffer{}, nil, tea.WithInput(nil), tea.WithoutRenderer())
	r.Finish(errors.New("planning failed"))
	if err := r.Wait(); err != nil {
		t.Errorf("Wait on unstarted reporter = %v", err)
	}
	if err := r.Close(); err != nil {
		t.Errorf("Close = %v", err)
	}
}

func TestProgressReporter_CloseKillsUnfinished(t *testing.T) {
	r := NewProgressReporter(&bytes.Buffer{}, nil, tea.WithInput(nil), tea.WithoutRenderer())
	r.Start(10, "a.bin")
	if err := r.Close(); err != nil {
		t.Errorf("Close = %v", err)
	}
	if err := r.Wait(); err == nil {
		t.Error("killed program should report an error")
	}
}
