package logging

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func resetLogging() {
	mutex.Lock()
	moduleLoggers = make(map[string]*slog.Logger)
	moduleLevelVars = make(map[string]*slog.LevelVar)
	isInitialized = false
	globalConfig = Config{}
	logCallback = nil
	mutex.Unlock()
}

func TestModuleLevelOverride(t *testing.T) {
	resetLogging()

	Initialize(Config{
		Level:  "info",
		Format: "text",
		Modules: map[string]string{
			"session": "debug",
			"api":     "warn",
		},
	})

	tests := []struct {
		module    string
		wantDebug bool
		wantInfo  bool
		wantWarn  bool
	}{
		{"session", true, true, true},
		{"api", false, false, true},
		{"other", false, true, true},
	}

	for _, tt := range tests {
		t.Run(tt.module, func(t *testing.T) {
			handler := GetLogger(tt.module).Handler()
			ctx := context.Background()

			if got := handler.Enabled(ctx, slog.LevelDebug); got != tt.wantDebug {
				t.Errorf("module %q: Debug enabled = %v, want %v", tt.module, got, tt.wantDebug)
			}
			if got := handler.Enabled(ctx, slog.LevelInfo); got != tt.wantInfo {
				t.Errorf("module %q: Info enabled = %v, want %v", tt.module, got, tt.wantInfo)
			}
			if got := handler.Enabled(ctx, slog.LevelWarn); got != tt.wantWarn {
				t.Errorf("module %q: Warn enabled = %v, want %v", tt.module, got, tt.wantWarn)
			}
		})
	}
}

func TestGetLoggerBeforeInitialize(t *testing.T) {
	resetLogging()

	before := GetLogger("ffmpeg")
	if before.Handler().Enabled(context.Background(), slog.LevelDebug) {
		t.Error("logger created before Initialize should default to info")
	}

	Initialize(Config{Level: "info", Format: "text", Modules: map[string]string{"ffmpeg": "debug"}})

	// The level var is shared, so the old handler follows the new level.
	if !before.Handler().Enabled(context.Background(), slog.LevelDebug) {
		t.Error("logger created before Initialize should pick up the module level")
	}
	if !GetLogger("ffmpeg").Handler().Enabled(context.Background(), slog.LevelDebug) {
		t.Error("rebuilt logger should have debug enabled")
	}
}

func TestSetModuleLevel(t *testing.T) {
	resetLogging()
	Initialize(Config{Level: "info", Format: "text"})

	if SetModuleLevel("session", "loud") {
		t.Error("expected unknown level to be rejected")
	}
	if !SetModuleLevel("session", "error") {
		t.Fatal("expected level change to succeed")
	}
	if GetLogger("session").Handler().Enabled(context.Background(), slog.LevelWarn) {
		t.Error("warn should be disabled after raising level to error")
	}
}

func TestLogCallbackReceivesEntries(t *testing.T) {
	resetLogging()
	Initialize(Config{Level: "debug", Format: "text"})

	received := make(chan LogEntry, 1)
	SetLogCallback(func(entry LogEntry) {
		select {
		case received <- entry:
		default:
		}
	})
	defer SetLogCallback(nil)

	GetLogger("session").Info("Session started", "session_id", "abc")

	select {
	case entry := <-received:
		if entry.Module != "session" {
			t.Errorf("module = %q, want session", entry.Module)
		}
		if entry.Attributes["session_id"] != "abc" {
			t.Errorf("session_id attribute = %v, want abc", entry.Attributes["session_id"])
		}
	case <-time.After(time.Second):
		t.Fatal("callback was not invoked")
	}
}

func TestMultiHandlerDebugOutput(t *testing.T) {
	var buf bytes.Buffer

	debugHandler := slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	infoHandler := slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo})

	logger := slog.New(NewMultiHandler(debugHandler, infoHandler)).With("module", "test")
	logger.Debug("debug only message")

	if count := strings.Count(buf.String(), "debug only message"); count != 1 {
		t.Errorf("expected 1 debug message, got %d. Output: %s", count, buf.String())
	}
}

type failingHandler struct{ slog.Handler }

func (failingHandler) Handle(context.Context, slog.Record) error { return errors.New("boom") }

func TestMultiHandlerContinuesAfterFailure(t *testing.T) {
	var buf bytes.Buffer
	text := slog.NewTextHandler(&buf, nil)

	multi := NewMultiHandler(failingHandler{text}, text)
	err := multi.Handle(context.Background(), slog.NewRecord(time.Now(), slog.LevelInfo, "still written", 0))

	if err == nil {
		t.Error("expected joined error from failing handler")
	}
	if !strings.Contains(buf.String(), "still written") {
		t.Errorf("second handler did not receive record: %q", buf.String())
	}
}

func TestRingBufferTail(t *testing.T) {
	rb := NewRingBuffer(3)
	for _, msg := range []string{"a", "b", "c", "d", "e"} {
		rb.Write(LogEntry{Message: msg})
	}

	if rb.Count() != 3 {
		t.Fatalf("Count() = %d, want 3", rb.Count())
	}
	if rb.Total() != 5 {
		t.Errorf("Total() = %d, want 5", rb.Total())
	}

	tests := []struct {
		n    int
		want string
	}{
		{0, "cde"},
		{2, "de"},
		{10, "cde"},
	}
	for _, tt := range tests {
		var got strings.Builder
		for _, e := range rb.Tail(tt.n) {
			got.WriteString(e.Message)
		}
		if got.String() != tt.want {
			t.Errorf("Tail(%d) = %q, want %q", tt.n, got.String(), tt.want)
		}
	}
}

func TestRingBufferEmpty(t *testing.T) {
	if entries := NewRingBuffer(4).ReadAll(); entries != nil {
		t.Errorf("ReadAll() on empty buffer = %v, want nil", entries)
	}
}

func TestParseLevelValues(t *testing.T) {
	tests := []struct {
		input string
		want  slog.Level
		isNil bool
	}{
		{"debug", slog.LevelDebug, false},
		{"DEBUG", slog.LevelDebug, false},
		{"info", slog.LevelInfo, false},
		{"warn", slog.LevelWarn, false},
		{"warning", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"invalid", 0, true},
		{"", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := parseLevel(tt.input)
			switch {
			case tt.isNil && got != nil:
				t.Errorf("parseLevel(%q) = %v, want nil", tt.input, *got)
			case !tt.isNil && got == nil:
				t.Errorf("parseLevel(%q) = nil, want %v", tt.input, tt.want)
			case !tt.isNil && *got != tt.want:
				t.Errorf("parseLevel(%q) = %v, want %v", tt.input, *got, tt.want)
			}
		})
	}
}

func TestBufferHandlerAttributes(t *testing.T) {
	buffer := NewRingBuffer(4)
	logger := slog.New(newBufferHandler(buffer, slog.LevelInfo, nil)).
		With("module", "session", "session_id", "s1").
		WithGroup("ffmpeg")

	logger.Debug("dropped")
	logger.Warn("Past duration too large",
		"frame", 42,
		slog.Group("progress", "fps", 30.0),
		"elapsed", 1500*time.Millisecond,
		"error", errors.New("boom"),
	)

	entries := buffer.ReadAll()
	if len(entries) != 1 {
		t.Fatalf("buffered %d entries, want 1", len(entries))
	}
	entry := entries[0]
	if entry.Module != "session" || entry.Level != "warn" {
		t.Errorf("module/level = %s/%s, want session/warn", entry.Module, entry.Level)
	}
	want := map[string]any{
		"session_id":          "s1",
		"ffmpeg.frame":        int64(42),
		"ffmpeg.progress.fps": 30.0,
		"ffmpeg.elapsed":      "1.5s",
		"ffmpeg.error":        "boom",
	}
	for k, v := range want {
		if entry.Attributes[k] != v {
			t.Errorf("attribute %s = %#v, want %#v", k, entry.Attributes[k], v)
		}
	}
	if len(entry.Attributes) != len(want) {
		t.Errorf("attributes = %v", entry.Attributes)
	}
}
