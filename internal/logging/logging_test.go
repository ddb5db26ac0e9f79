package logging

import (
	"bytes"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoggerCreatedBeforeInit(t *testing.T) {
	logger := L("display")

	var buf bytes.Buffer
	Init("text", "info", &buf)
	logger.Info("mode applied", KeyDisplayID, `\\?\DISPLAY#DEL4105#5&1`)

	out := buf.String()
	for _, want := range []string{`msg="mode applied"`, "component=display", "displayId="} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in %s", want, out)
		}
	}
}

func TestInitSwitchesHandlerAndLevel(t *testing.T) {
	logger := L("poller")

	var first, second bytes.Buffer
	Init("text", "warn", &first)
	logger.Info("hidden")
	logger.Warn("shown")

	Init("json", "debug", &second)
	logger.Debug("now visible")

	if out := first.String(); strings.Contains(out, "hidden") || !strings.Contains(out, "shown") {
		t.Errorf("warn-level output = %s", out)
	}
	if strings.Contains(first.String(), "now visible") {
		t.Error("record went to the handler installed before the second Init")
	}
	if !strings.Contains(second.String(), `"msg":"now visible"`) {
		t.Errorf("json output = %s", second.String())
	}
}

func TestAttrsAndGroupsKeepOrder(t *testing.T) {
	var buf bytes.Buffer
	Init("json", "debug", &buf)

	logger := WithDisplay(L("bridge"), "disp-1").WithGroup("req").With("type", "display_ids")
	logger.Debug("dispatch", slog.Int("seq", 3))

	out := buf.String()
	for _, want := range []string{`"component":"bridge"`, `"displayId":"disp-1"`, `"req":{"type":"display_ids","seq":3}`} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %s in %s", want, out)
		}
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{" error ", slog.LevelError},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestRotatingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "dhk.log")
	r, err := OpenRotatingFile(path, 1, 2)
	if err != nil {
		t.Fatalf("OpenRotatingFile: %v", err)
	}
	defer r.Close()

	chunk := bytes.Repeat([]byte("x"), 600<<10)
	for i := 0; i < 4; i++ {
		if _, err := r.Write(chunk); err != nil {
			t.Fatalf("write %d: %v", i, err)
		}
	}

	dir := filepath.Dir(path)
	for name, want := range map[string]bool{"dhk.log": true, "dhk.1.log": true, "dhk.2.log": true, "dhk.3.log": false} {
		_, err := os.Stat(filepath.Join(dir, name))
		if got := err == nil; got != want {
			t.Errorf("%s exists = %v, want %v", name, got, want)
		}
	}
	if st, _ := os.Stat(path); st.Size() != int64(len(chunk)) {
		t.Errorf("active log is %d bytes, want %d", st.Size(), len(chunk))
	}
}

func TestRotatingFileAppendsAndCloses(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dhk.log")
	if err := os.WriteFile(path, []byte("earlier\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	r, err := OpenRotatingFile(path, 0, 0)
	if err != nil {
		t.Fatalf("OpenRotatingFile: %v", err)
	}
	r.Write([]byte("later\n"))
	if err := r.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := r.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
	if _, err := r.Write([]byte("x")); !errors.Is(err, os.ErrClosed) {
		t.Errorf("write after close err = %v", err)
	}

	data, _ := os.ReadFile(path)
	if string(data) != "earlier\nlater\n" {
		t.Errorf("log = %q", data)
	}
}
