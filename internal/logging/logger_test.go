package logging_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"stagehand/internal/config"
	"stagehand/internal/logging"
	"stagehand/internal/services"
)

func TestNewFromConfigConsole(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.LogDir = t.TempDir()

	logger, err := logging.NewFromConfig(&cfg)
	if err != nil {
		t.Fatalf("NewFromConfig returned error: %v", err)
	}
	if logger == nil {
		t.Fatal("expected logger instance")
	}
	logger.Debug("debug message")
}

func TestConsoleHandlerWritesComponentPrefix(t *testing.T) {
	tempDir := t.TempDir()
	logPath := filepath.Join(tempDir, "console.log")

	logger, err := logging.New(logging.Options{
		Format:      "console",
		Level:       "info",
		OutputPaths: []string{logPath},
	})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	component := logging.NewComponentLogger(logger, "scheduler")
	component.Info("timer armed", logging.String(logging.FieldBroadcastID, "b-1"))

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	text := string(content)
	if !strings.Contains(text, "scheduler:") {
		t.Fatalf("expected component prefix in output, got %q", text)
	}
	if !strings.Contains(text, "timer armed") {
		t.Fatalf("expected message in output, got %q", text)
	}
	if !strings.Contains(text, "broadcast_id=b-1") {
		t.Fatalf("expected broadcast field in output, got %q", text)
	}
}

func TestJSONFormatEmitsStructuredFields(t *testing.T) {
	tempDir := t.TempDir()
	logPath := filepath.Join(tempDir, "stagehand.json")

	logger, err := logging.New(logging.Options{
		Format:      "json",
		Level:       "debug",
		OutputPaths: []string{logPath},
	})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	logger.Info("scheduled", logging.String(logging.FieldActionID, "a-7"))

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	text := string(content)
	if !strings.Contains(text, `"msg":"scheduled"`) {
		t.Fatalf("expected structured message, got %q", text)
	}
	if !strings.Contains(text, `"action_id":"a-7"`) {
		t.Fatalf("expected action field, got %q", text)
	}
}

func TestWithContextAttachesIdentifiers(t *testing.T) {
	tempDir := t.TempDir()
	logPath := filepath.Join(tempDir, "ctx.log")

	logger, err := logging.New(logging.Options{
		Format:      "console",
		Level:       "info",
		OutputPaths: []string{logPath},
	})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	ctx := services.WithBroadcastID(context.Background(), "b-42")
	ctx = services.WithActionID(ctx, "a-3")
	logging.WithContext(ctx, logger).Info("executing")

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	text := string(content)
	if !strings.Contains(text, "broadcast_id=b-42") || !strings.Contains(text, "action_id=a-3") {
		t.Fatalf("expected context identifiers in output, got %q", text)
	}
}
