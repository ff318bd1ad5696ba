package logx

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"
)

func TestWriterLoggerFields(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	log := NewWriter(&buf, "debug").With(String("comp", "test"))
	log.Info("hello", Int("n", 3), Err(errors.New("boom")), Err(nil))

	var m map[string]any
	if err := json.Unmarshal(buf.Bytes(), &m); err != nil {
		t.Fatalf("unmarshal log line: %v (%q)", err, buf.String())
	}
	if m["message"] != "hello" {
		t.Fatalf("message = %v, want hello", m["message"])
	}
	if m["comp"] != "test" {
		t.Fatalf("comp = %v, want test", m["comp"])
	}
	if m["n"] != float64(3) {
		t.Fatalf("n = %v, want 3", m["n"])
	}
	if m["err"] != "boom" {
		t.Fatalf("err = %v, want boom", m["err"])
	}
	if c, _ := m["caller"].(string); !strings.HasPrefix(c, "logging_test.go:") {
		t.Fatalf("caller = %q, want logging_test.go:<line>", c)
	}
}

func TestWriterLoggerLevel(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	log := NewWriter(&buf, "warn")
	log.Info("dropped")
	if buf.Len() != 0 {
		t.Fatalf("info line written at warn level: %q", buf.String())
	}
	if log.Enabled(LevelInfo) {
		t.Fatal("info should be disabled at warn level")
	}
	log.Warn("kept")
	if !strings.Contains(buf.String(), "kept") {
		t.Fatalf("warn line missing: %q", buf.String())
	}
}

func TestZeroAndNopLoggers(t *testing.T) {
	t.Parallel()
	var zero Logger
	if !zero.IsZero() {
		t.Fatal("zero value should report IsZero")
	}
	zero.Error("ignored")
	if Nop().IsZero() {
		t.Fatal("Nop should not report IsZero")
	}
	Nop().Error("ignored")
}

func TestParseLevel(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in   string
		want Level
	}{
		{"trace", LevelTrace},
		{" DEBUG ", LevelDebug},
		{"warning", LevelWarn},
		{"error", LevelError},
		{"bogus", LevelInfo},
		{"", LevelInfo},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.in, LevelInfo); got != tt.want {
			t.Fatalf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestFormatChatJSON(t *testing.T) {
	t.Parallel()
	line := []byte(`{"level":"warn","time":"x","message":"send failed","bot":"ops","caller":"a.go:1"}` + "\n")
	got := formatChatJSON(line)
	want := "[WARN] send failed\n- bot=ops\n- caller=a.go:1"
	if got != want {
		t.Fatalf("formatChatJSON =\n%q\nwant\n%q", got, want)
	}

	if got := formatChatJSON([]byte("  plain text \n")); got != "plain text" {
		t.Fatalf("non-JSON line = %q, want trimmed raw", got)
	}
}

func TestTruncate(t *testing.T) {
	t.Parallel()
	if got := truncate("abcdefghijklmnop", 12); got != "abcdefghi..." {
		t.Fatalf("truncate = %q", got)
	}
	if got := truncate("abc", 12); got != "abc" {
		t.Fatalf("truncate short = %q", got)
	}
}

func TestServiceChatSink(t *testing.T) {
	svc, log := New(Config{
		Level: "debug",
		Chat:  ChatConfig{Enabled: true, MinLevel: "warn", RatePerSec: 10},
	})
	t.Cleanup(func() { _ = svc.Close() })

	var (
		mu  sync.Mutex
		got []string
	)
	done := make(chan struct{}, 1)
	svc.SetSink(func(ctx context.Context, text string) error {
		mu.Lock()
		got = append(got, text)
		mu.Unlock()
		select {
		case done <- struct{}{}:
		default:
		}
		return nil
	})

	log.Info("below threshold")
	log.Error("delivery failed", String("bot", "ops"))

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("chat sink was not called")
	}

	mu.Lock()
	defer mu.Unlock()
	if len(got) != 1 {
		t.Fatalf("sink calls = %d, want 1: %q", len(got), got)
	}
	if !strings.HasPrefix(got[0], "[ERROR] delivery failed") || !strings.Contains(got[0], "- bot=ops") {
		t.Fatalf("sink text = %q", got[0])
	}
}
