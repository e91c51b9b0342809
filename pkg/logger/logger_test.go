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

	if err := Init(WithFormat("yaml")); err == nil {
		t.Fatal("expected error for unknown format")
	}
}

func TestLoggerTextOutput(t *testing.T) {
	var buf bytes.Buffer
	if err := Init(WithWriter(&buf)); err != nil {
		t.Fatalf("failed to initialize logger: %v", err)
	}

	Get().Info(context.Background(), "round recorded", String("game_id", "g1"), Int("round", 3))

	out := buf.String()
	for _, want := range []string{"round recorded", "game_id=g1", "round=3", "source=logger_test.go"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in output, got %q", want, out)
		}
	}
}

func TestLoggerJSONOutput(t *testing.T) {
	var buf bytes.Buffer
	if err := Init(WithWriter(&buf), WithFormat("json"), WithSource(false)); err != nil {
		t.Fatalf("failed to initialize logger: %v", err)
	}

	Get().With(String("game_id", "g2")).Warn(context.Background(), "command rejected",
		Bool("paused", true),
		Duration("took", time.Millisecond),
		Error(errors.New("boom")),
	)

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("expected one JSON record, got %q: %v", buf.String(), err)
	}
	if rec["msg"] != "command rejected" {
		t.Errorf("unexpected msg: %v", rec["msg"])
	}
	if rec["game_id"] != "g2" {
		t.Errorf("expected game_id from With, got %v", rec["game_id"])
	}
	if rec["paused"] != true {
		t.Errorf("expected paused=true, got %v", rec["paused"])
	}
	if _, ok := rec["source"]; ok {
		t.Error("source should be omitted when disabled")
	}
}

func TestLoggerLevel(t *testing.T) {
	var buf bytes.Buffer
	if err := Init(WithWriter(&buf)); err != nil {
		t.Fatalf("failed to initialize logger: %v", err)
	}
	ctx := context.Background()

	Get().Debug(ctx, "hidden")
	if buf.Len() != 0 {
		t.Fatalf("debug should be filtered at info level, got %q", buf.String())
	}

	if err := SetLevelString("DEBUG"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	Get().Debug(ctx, "visible")
	if !strings.Contains(buf.String(), "visible") {
		t.Errorf("expected debug output after level change, got %q", buf.String())
	}

	if err := SetLevelString("chatty"); err == nil {
		t.Error("expected error for unknown level")
	}
}

func TestLoggerNamed(t *testing.T) {
	var buf bytes.Buffer
	if err := Init(WithWriter(&buf), WithSource(false)); err != nil {
		t.Fatalf("failed to initialize logger: %v", err)
	}

	Named("persist").Info(context.Background(), "saved", String("game_id", "g3"))
	if !strings.Contains(buf.String(), "persist.game_id=g3") {
		t.Errorf("expected grouped attribute, got %q", buf.String())
	}
}
