package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestLoggerInit(t *testing.T) {
	if err := Init(); err != nil {
		t.Fatalf("failed to initialize logger: %v", err)
	}
	defer func() {
		if err := Sync(); err != nil {
			t.Errorf("failed to sync logger: %v", err)
		}
	}()

	if Get() == nil {
		t.Fatal("logger is nil after initialization")
	}

	if err := Init(WithFormat("xml")); err == nil {
		t.Error("expected unknown format to fail")
	}
	if err := Init(WithLevel("loud")); err == nil {
		t.Error("expected unknown level to fail")
	}
}

func TestLoggerJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := Init(WithFormat(FormatJSON), WithOutput(&buf)); err != nil {
		t.Fatalf("failed to initialize logger: %v", err)
	}

	Named("scoring").Info(context.Background(), "scored",
		String("type_code", "LAMF"),
		Bool("tie", false),
		Duration("took", time.Millisecond),
		Error(errors.New("boom")),
	)

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("expected one JSON line, got %q: %v", buf.String(), err)
	}
	if entry["msg"] != "scored" {
		t.Errorf("unexpected msg %v", entry["msg"])
	}
	group, ok := entry["scoring"].(map[string]any)
	if !ok {
		t.Fatalf("expected named group, got %v", entry)
	}
	if group["type_code"] != "LAMF" {
		t.Errorf("unexpected type_code %v", group["type_code"])
	}
	if src, _ := group["source"].(string); !strings.Contains(src, "logger_test.go") {
		t.Errorf("expected caller source, got %q", src)
	}
}

func TestLoggerLevel(t *testing.T) {
	var buf bytes.Buffer
	if err := Init(WithOutput(&buf), WithLevel("warn")); err != nil {
		t.Fatalf("failed to initialize logger: %v", err)
	}
	ctx := context.Background()

	Get().Info(ctx, "hidden")
	if buf.Len() != 0 {
		t.Errorf("info should be filtered at warn, got %q", buf.String())
	}

	Get().Warn(ctx, "shown")
	if !strings.Contains(buf.String(), "shown") {
		t.Errorf("expected warn output, got %q", buf.String())
	}

	if err := SetLevelString("debug"); err != nil {
		t.Fatalf("set level: %v", err)
	}
	Get().Debug(ctx, "now visible")
	if !strings.Contains(buf.String(), "now visible") {
		t.Errorf("expected debug output after level change, got %q", buf.String())
	}
}
