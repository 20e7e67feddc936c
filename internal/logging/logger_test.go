package logging_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"multivox/internal/config"
	"multivox/internal/logging"
	"multivox/internal/services"
)

func TestNewConsoleLoggerWritesToFile(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "logs", "multivox.log")
	logger, err := logging.New(logging.Options{
		Level:   "info",
		Format:  "console",
		Outputs: []string{logPath, logPath},
	})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	logger.With(logging.String(logging.FieldComponent, "server")).Info("listening", logging.String("addr", "127.0.0.1:5000"))
	logger.Debug("hidden debug line")

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	text := string(content)
	if !strings.Contains(text, "INFO server: listening") {
		t.Fatalf("expected component prefix in console output, got %q", text)
	}
	if !strings.Contains(text, "addr=127.0.0.1:5000") {
		t.Fatalf("expected addr attribute, got %q", text)
	}
	if strings.Contains(text, "hidden debug line") {
		t.Fatalf("debug line should be filtered at info level, got %q", text)
	}
}

func TestNewDebugIncludesCaller(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "debug.log")
	logger, err := logging.New(logging.Options{
		Level:   "debug",
		Format:  "console",
		Outputs: []string{logPath},
	})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Info("message with caller")

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(content), ".go:") {
		t.Fatalf("expected caller information in debug logs, got %q", content)
	}
}

func TestNewJSONLogger(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "json.log")
	logger, err := logging.New(logging.Options{
		Format:  "json",
		Level:   "info",
		Outputs: []string{logPath, logPath},
	})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Info("json message", logging.String("k", "v"))

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	var record map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(content), &record); err != nil {
		t.Fatalf("decode json line: %v (%q)", err, content)
	}
	if record["msg"] != "json message" || record["k"] != "v" {
		t.Fatalf("unexpected record %#v", record)
	}
	if record["level"] != "info" {
		t.Fatalf("expected lowercase level, got %#v", record["level"])
	}
	if _, ok := record["ts"]; !ok {
		t.Fatalf("expected ts key, got %#v", record)
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := logging.New(logging.Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestNewRejectsUnknownLevel(t *testing.T) {
	if _, err := logging.New(logging.Options{Level: "verbose"}); err == nil {
		t.Fatal("expected error for unsupported level")
	}
}

func TestDuplicateOutputsWriteOnce(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "dup.log")
	logger, err := logging.New(logging.Options{Outputs: []string{logPath, " " + logPath + " "}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Info("once", logging.String("note", "two words"))

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if n := strings.Count(string(content), "once"); n != 1 {
		t.Fatalf("expected one line, got %d: %q", n, content)
	}
	if !strings.Contains(string(content), `note="two words"`) {
		t.Fatalf("expected quoted value, got %q", content)
	}
}

func TestNewFromConfigCreatesLogFile(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.DataDir = filepath.Join(t.TempDir(), "data")
	cfg.Logging.Level = "warn"

	logger, err := logging.NewFromConfig(&cfg)
	if err != nil {
		t.Fatalf("NewFromConfig returned error: %v", err)
	}
	logger.Warn("disk nearly full")

	content, err := os.ReadFile(filepath.Join(cfg.Paths.DataDir, "multivox.log"))
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(content), "disk nearly full") {
		t.Fatalf("expected warning in log file, got %q", content)
	}
}

func TestWithContextAddsFields(t *testing.T) {
	ctx := services.WithStage(context.Background(), "transcribing")
	ctx = services.WithRequestID(ctx, "req-xyz")
	ctx = services.WithTarget(ctx, "pt-BR")

	var buf bytes.Buffer
	base := slog.New(slog.NewJSONHandler(&buf, nil))
	logging.WithContext(ctx, base).Info("contextual log")

	var record map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &record); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if record[logging.FieldStage] != "transcribing" {
		t.Fatalf("stage = %#v", record[logging.FieldStage])
	}
	if record[logging.FieldCorrelationID] != "req-xyz" {
		t.Fatalf("correlation id = %#v", record[logging.FieldCorrelationID])
	}
	if record[logging.FieldTargetLanguage] != "pt-BR" {
		t.Fatalf("target language = %#v", record[logging.FieldTargetLanguage])
	}
}

func TestWarnWithContextInjectsDefaults(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	logging.WarnWithContext(logger, "translation degraded", "translation_segment_failed",
		logging.String(logging.FieldImpact, "segment left untranslated"))

	var record map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &record); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if record[logging.FieldEventType] != "translation_segment_failed" {
		t.Fatalf("event_type = %#v", record[logging.FieldEventType])
	}
	if record[logging.FieldErrorHint] != "see multivox.log in data_dir" {
		t.Fatalf("error_hint = %#v", record[logging.FieldErrorHint])
	}
	if record[logging.FieldImpact] != "segment left untranslated" {
		t.Fatalf("impact should keep caller value, got %#v", record[logging.FieldImpact])
	}
}

func TestNewNopDiscards(t *testing.T) {
	logger := logging.NewNop()
	if logger.Enabled(context.Background(), slog.LevelError) {
		t.Fatal("nop logger should not be enabled")
	}
	logging.NewComponentLogger(nil, "x").Info("ignored")
}
