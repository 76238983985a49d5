package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestWrite_JSONLine(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	t.Cleanup(func() { SetOutput(&bytes.Buffer{}) })

	Warn("display_param_dropped", map[string]any{"field": "bogus", "view": "list"})

	line := strings.TrimSpace(buf.String())
	var got map[string]any
	if err := json.Unmarshal([]byte(line), &got); err != nil {
		t.Fatalf("log line is not JSON: %q (%v)", line, err)
	}
	if got["level"] != "warn" || got["msg"] != "display_param_dropped" {
		t.Fatalf("unexpected level/msg: %+v", got)
	}
	if got["field"] != "bogus" || got["view"] != "list" {
		t.Fatalf("fields not carried: %+v", got)
	}
	if _, ok := got["ts"]; !ok {
		t.Fatalf("timestamp missing: %+v", got)
	}
}

func TestDebug_OnlyWhenEnabled(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	t.Cleanup(func() {
		SetDebug(false)
		SetOutput(&bytes.Buffer{})
	})

	SetDebug(false)
	Debug("sql", nil)
	if buf.Len() != 0 {
		t.Fatalf("debug written while disabled: %q", buf.String())
	}

	SetDebug(true)
	Debug("sql", map[string]any{"sql": "SELECT 1"})
	if !strings.Contains(buf.String(), `"level":"debug"`) {
		t.Fatalf("debug line missing: %q", buf.String())
	}
}

func TestInit_ClosesPreviousFile(t *testing.T) {
	firstDir, secondDir := t.TempDir(), t.TempDir()
	t.Cleanup(func() { SetOutput(&bytes.Buffer{}) })

	if err := Init(firstDir); err != nil {
		t.Fatalf("first init: %v", err)
	}
	first := file
	if err := Init(secondDir); err != nil {
		t.Fatalf("second init: %v", err)
	}
	if _, err := first.Write([]byte("x")); !errors.Is(err, os.ErrClosed) {
		t.Fatalf("first log file still open: %v", err)
	}

	Info("after_reinit", nil)
	data, err := os.ReadFile(filepath.Join(secondDir, "log", "app.log"))
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if !strings.Contains(string(data), "after_reinit") {
		t.Fatalf("entry not in the new file: %q", data)
	}

	second := file
	SetOutput(&bytes.Buffer{})
	if file != nil {
		t.Fatalf("SetOutput kept the Init file")
	}
	if _, err := second.Write([]byte("x")); !errors.Is(err, os.ErrClosed) {
		t.Fatalf("second log file still open: %v", err)
	}
}

func TestClose(t *testing.T) {
	dir := t.TempDir()
	t.Cleanup(func() { SetOutput(&bytes.Buffer{}) })

	if err := Init(dir); err != nil {
		t.Fatalf("init: %v", err)
	}
	Info("before_close", nil)
	if err := Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	Info("after_close", nil)

	data, err := os.ReadFile(filepath.Join(dir, "log", "app.log"))
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if !strings.Contains(string(data), "before_close") || strings.Contains(string(data), "after_close") {
		t.Fatalf("unexpected log content: %q", data)
	}
}
