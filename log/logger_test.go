package log

import (
	"bufio"
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap/zapcore"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	sc := bufio.NewScanner(buf)
	for sc.Scan() {
		var m map[string]any
		if err := json.Unmarshal(sc.Bytes(), &m); err != nil {
			t.Fatalf("line is not JSON: %q: %v", sc.Text(), err)
		}
		out = append(out, m)
	}
	return out
}

func TestLogger_ContextFields(t *testing.T) {
	var buf bytes.Buffer
	l, err := NewWithWriter(&buf, "debug", UploadMeta{RunID: "run-1", Bucket: "b", Key: "k.bin"})
	if err != nil {
		t.Fatalf("NewWithWriter: %v", err)
	}

	l.Info("upload started", map[string]any{"parts": 3})

	lines := decodeLines(t, &buf)
	if len(lines) != 1 {
		t.Fatalf("got %d lines, want 1", len(lines))
	}
	entry := lines[0]
	for key, want := range map[string]string{
		"upload_run_id": "run-1",
		"bucket":        "b",
		"key":           "k.bin",
		"level":         "info",
		"message":       "upload started",
	} {
		if entry[key] != want {
			t.Errorf("%s = %v, want %q", key, entry[key], want)
		}
	}
	if _, ok := entry["timestamp"]; !ok {
		t.Error("timestamp missing")
	}
	fields, ok := entry["fields"].(map[string]any)
	if !ok || fields["parts"] != float64(3) {
		t.Errorf("fields = %v, want parts=3", entry["fields"])
	}
}

func TestLogger_OmitsEmptyMeta(t *testing.T) {
	var buf bytes.Buffer
	l, err := NewWithWriter(&buf, "", UploadMeta{RunID: "run-2"})
	if err != nil {
		t.Fatal(err)
	}
	l.Warn("w", nil)

	entry := decodeLines(t, &buf)[0]
	if _, ok := entry["bucket"]; ok {
		t.Error("bucket should be omitted when empty")
	}
}

func TestLogger_LevelFilter(t *testing.T) {
	var buf bytes.Buffer
	l, err := NewWithWriter(&buf, "warn", UploadMeta{})
	if err != nil {
		t.Fatal(err)
	}
	l.Debug("d", nil)
	l.Info("i", nil)
	l.Warn("w", nil)
	l.Error("e", nil)

	if got := len(decodeLines(t, &buf)); got != 2 {
		t.Errorf("got %d lines, want 2", got)
	}
}

func TestLogger_InvalidLevel(t *testing.T) {
	if _, err := NewWithWriter(&bytes.Buffer{}, "loud", UploadMeta{}); err == nil {
		t.Error("expected error for invalid level")
	}
}

func TestLogger_ConsoleLevelCap(t *testing.T) {
	var buf bytes.Buffer
	l, err := NewWithWriter(&buf, "debug", UploadMeta{})
	if err != nil {
		t.Fatal(err)
	}

	l.SetConsoleLevel(zapcore.ErrorLevel)
	if l.ConsoleLevel() != zapcore.ErrorLevel {
		t.Errorf("ConsoleLevel = %v, want error", l.ConsoleLevel())
	}
	l.Info("hidden", nil)
	l.Error("shown", nil)

	l.SetConsoleLevel(zapcore.DebugLevel)
	l.Info("visible again", nil)

	lines := decodeLines(t, &buf)
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2", len(lines))
	}
	if lines[0]["message"] != "shown" || lines[1]["message"] != "visible again" {
		t.Errorf("messages = %v, %v", lines[0]["message"], lines[1]["message"])
	}
}

func TestLogger_FileSink(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hoist.log")
	l, err := NewLogger(Config{Level: "info", FilePath: path}, UploadMeta{RunID: "run-file"})
	if err != nil {
		t.Fatal(err)
	}
	l.SetConsoleLevel(zapcore.FatalLevel)
	l.Info("to file", nil)
	if err := l.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(data), `"upload_run_id":"run-file"`) {
		t.Errorf("file sink missing context: %s", data)
	}
}

func TestSugaredLogger(t *testing.T) {
	var buf bytes.Buffer
	l, err := NewWithWriter(&buf, "debug", UploadMeta{RunID: "r"})
	if err != nil {
		t.Fatal(err)
	}
	l.Sugar().With("upload_id", "u-1").Infof("part %d of %d", 2, 5)

	entry := decodeLines(t, &buf)[0]
	if entry["message"] != "part 2 of 5" {
		t.Errorf("message = %v", entry["message"])
	}
	if entry["upload_id"] != "u-1" {
		t.Errorf("upload_id = %v", entry["upload_id"])
	}
}

func TestSugaredLogger_RespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	l, err := NewWithWriter(&buf, "warn", UploadMeta{RunID: "r"})
	if err != nil {
		t.Fatal(err)
	}
	s := l.Sugar().With("signal", "interrupt")
	s.Infof("dropped %d", 1)
	s.Warnf("received %s, canceling upload", "interrupt")

	lines := decodeLines(t, &buf)
	if len(lines) != 1 {
		t.Fatalf("got %d lines, want 1", len(lines))
	}
	if lines[0]["message"] != "received interrupt, canceling upload" || lines[0]["signal"] != "interrupt" {
		t.Errorf("entry = %v", lines[0])
	}
}

func TestNewNop(t *testing.T) {
	l := NewNop()
	l.Info("ignored", map[string]any{"x": 1})
	l.Sugar().Infof("ignored")
	if err := l.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
}
