package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"bindery/internal/services"
)

func TestNewWritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "bindery.log")
	logger, err := New(Options{
		Level:            "info",
		Format:           "json",
		OutputPaths:      []string{path},
		ErrorOutputPaths: []string{path},
	})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	logger.Info("hello", String("key", "value"))

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	var payload map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(data), &payload); err != nil {
		t.Fatalf("log line is not JSON: %v: %s", err, data)
	}
	if payload["msg"] != "hello" || payload["level"] != "info" {
		t.Fatalf("unexpected payload %v", payload)
	}
	if _, ok := payload["ts"]; !ok {
		t.Fatal("expected ts field")
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := New(Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unknown format")
	}
}

func TestPrettyHandlerIncludesComponent(t *testing.T) {
	var buf bytes.Buffer
	levelVar := new(slog.LevelVar)
	logger := slog.New(newPrettyHandler(&buf, levelVar, false))

	NewComponentLogger(logger, "cache").Info("populated entry", String("identifier", "42"))

	line := buf.String()
	if !strings.Contains(line, "cache: populated entry") {
		t.Fatalf("expected component prefix, got %q", line)
	}
	if !strings.Contains(line, "identifier=42") {
		t.Fatalf("expected key=value attrs, got %q", line)
	}
}

func TestPrettyHandlerLevelFilter(t *testing.T) {
	var buf bytes.Buffer
	levelVar := new(slog.LevelVar)
	levelVar.Set(slog.LevelWarn)
	logger := slog.New(newPrettyHandler(&buf, levelVar, false))

	logger.Info("suppressed")
	logger.Warn("kept")

	if strings.Contains(buf.String(), "suppressed") {
		t.Fatal("info line should be filtered at warn level")
	}
	if !strings.Contains(buf.String(), "kept") {
		t.Fatal("warn line should pass")
	}
}

func TestContextFields(t *testing.T) {
	ctx := services.WithIdentifier(context.Background(), "42")
	ctx = services.WithRequestID(ctx, "req-1")

	fields := ContextFields(ctx)
	if len(fields) != 2 {
		t.Fatalf("expected 2 fields, got %d", len(fields))
	}

	var buf bytes.Buffer
	levelVar := new(slog.LevelVar)
	logger := slog.New(newPrettyHandler(&buf, levelVar, false))
	WithContext(ctx, logger).Info("scoped")

	line := buf.String()
	if !strings.Contains(line, "identifier=42") || !strings.Contains(line, "correlation_id=req-1") {
		t.Fatalf("expected context fields in output, got %q", line)
	}
}
