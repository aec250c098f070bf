package logging

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"redub/internal/services"
)

func newBufferLogger() (*slog.Logger, *bytes.Buffer) {
	buf := &bytes.Buffer{}
	lvl := new(slog.LevelVar)
	lvl.Set(slog.LevelDebug)
	return slog.New(newConsoleHandler(buf, lvl, false)), buf
}

func TestConsoleHandlerHoistsComponent(t *testing.T) {
	logger, buf := newBufferLogger()
	logger.With(String(FieldComponent, "workflow")).Info("stage started", String("stage", "downloading"))

	line := buf.String()
	if !strings.Contains(line, "workflow: stage started") {
		t.Fatalf("expected component prefix, got %q", line)
	}
	if !strings.Contains(line, "stage=downloading") {
		t.Fatalf("expected stage attr, got %q", line)
	}
	if strings.Contains(line, "component=") {
		t.Fatalf("component should not be rendered as an attr: %q", line)
	}
}

func TestConsoleHandlerQuotesValuesWithSpaces(t *testing.T) {
	logger, buf := newBufferLogger()
	logger.Info("done", String("message", "two words"))
	if !strings.Contains(buf.String(), `message="two words"`) {
		t.Fatalf("expected quoted value, got %q", buf.String())
	}
}

func TestWithContextAddsRunFields(t *testing.T) {
	logger, buf := newBufferLogger()
	ctx := services.WithRunID(context.Background(), "run-42")
	ctx = services.WithStage(ctx, "transcribing")

	WithContext(ctx, logger).Info("working")

	line := buf.String()
	if !strings.Contains(line, "run_id=run-42") || !strings.Contains(line, "stage=transcribing") {
		t.Fatalf("expected context fields, got %q", line)
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := New(Options{Format: "yaml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestNopLoggerDiscards(t *testing.T) {
	logger := NewNop()
	// Must not panic and must report disabled at every level.
	logger.Error("ignored")
	if logger.Handler().Enabled(context.Background(), slog.LevelError) {
		t.Fatal("noop handler should be disabled")
	}
}
