package logging_test

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"pegasus/internal/config"
	"pegasus/internal/logging"
)

func TestNewFromConfigWritesLogFile(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.LogDir = t.TempDir()
	cfg.Logging.Level = "info"

	logger, err := logging.NewFromConfig(&cfg)
	if err != nil {
		t.Fatalf("NewFromConfig returned error: %v", err)
	}
	logger.Info("hello from test")

	content, err := os.ReadFile(filepath.Join(cfg.Paths.LogDir, logging.LogFileName))
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(content), "hello from test") {
		t.Fatalf("expected message in log file, got %q", content)
	}
}

func TestConsoleLoggerRendersComponentAndOmitsCaller(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.NewWithWriter(&buf, logging.Options{Format: "console", Level: "info"})
	if err != nil {
		t.Fatalf("NewWithWriter returned error: %v", err)
	}
	logging.NewComponentLogger(logger, "dislikes").Info("list written", logging.String("path", "/tmp/a b"))

	line := buf.String()
	if !strings.Contains(line, " INFO dislikes: list written") {
		t.Fatalf("expected component prefix, got %q", line)
	}
	if !strings.Contains(line, `path="/tmp/a b"`) {
		t.Fatalf("expected quoted path, got %q", line)
	}
	if strings.Contains(line, ".go:") {
		t.Fatalf("expected no caller information in info logs, got %q", line)
	}
}

func TestJSONLoggerUsesShortKeys(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.NewWithWriter(&buf, logging.Options{Format: "json", Level: "info"})
	if err != nil {
		t.Fatalf("NewWithWriter returned error: %v", err)
	}
	logging.WarnWithContext(logger, "move failed", "quarantine_move_failed")

	var payload map[string]any
	if err := json.Unmarshal(buf.Bytes(), &payload); err != nil {
		t.Fatalf("decode json log: %v (%q)", err, buf.String())
	}
	if payload["level"] != "warn" {
		t.Fatalf("unexpected level: %v", payload["level"])
	}
	if _, ok := payload["ts"]; !ok {
		t.Fatalf("expected ts key, got %v", payload)
	}
	if payload[logging.FieldEventType] != "quarantine_move_failed" {
		t.Fatalf("unexpected event type: %v", payload[logging.FieldEventType])
	}
	if payload[logging.FieldErrorHint] == nil || payload[logging.FieldImpact] == nil {
		t.Fatalf("expected default hint and impact, got %v", payload)
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := logging.NewWithWriter(&bytes.Buffer{}, logging.Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unknown format")
	}
}

func TestWithContextAddsSessionFields(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.NewWithWriter(&buf, logging.Options{Format: "json", Level: "debug"})
	if err != nil {
		t.Fatalf("NewWithWriter returned error: %v", err)
	}
	ctx := logging.WithOperation(logging.WithSessionID(context.Background(), "abc"), "purge")
	logging.WithContext(ctx, logger).Info("started")

	out := buf.String()
	if !strings.Contains(out, `"session_id":"abc"`) || !strings.Contains(out, `"op":"purge"`) {
		t.Fatalf("expected context fields, got %q", out)
	}
}

func TestCleanupOldLogs(t *testing.T) {
	dir := t.TempDir()
	old := filepath.Join(dir, "pegasus.log.1")
	fresh := filepath.Join(dir, "pegasus.log.2")
	active := filepath.Join(dir, logging.LogFileName)
	for _, path := range []string{old, fresh, active} {
		if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
			t.Fatalf("write %s: %v", path, err)
		}
	}
	stale := time.Now().AddDate(0, 0, -10)
	for _, path := range []string{old, active} {
		if err := os.Chtimes(path, stale, stale); err != nil {
			t.Fatalf("chtimes: %v", err)
		}
	}

	removed := logging.CleanupOldLogs(logging.NewNop(), dir, "pegasus*", 5)
	if removed != 1 {
		t.Fatalf("expected one file removed, got %d", removed)
	}
	if _, err := os.Stat(old); !os.IsNotExist(err) {
		t.Fatalf("expected old log removed, stat err=%v", err)
	}
	for _, path := range []string{fresh, active} {
		if _, err := os.Stat(path); err != nil {
			t.Fatalf("expected %s to remain: %v", path, err)
		}
	}
}
