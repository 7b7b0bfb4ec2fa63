package logging

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func TestNewFanoutHandlerNilHandlers(t *testing.T) {
	h := newFanoutHandler(nil, nil)
	if _, ok := h.(NoopHandler); !ok {
		t.Errorf("expected NoopHandler for all nil handlers, got %T", h)
	}
}

func TestNewFanoutHandlerSingleHandler(t *testing.T) {
	var buf bytes.Buffer
	inner := slog.NewJSONHandler(&buf, nil)
	if h := newFanoutHandler(nil, inner); h != inner {
		t.Error("expected single handler to be returned unwrapped")
	}
}

func TestFanoutHandlerRespectsLevels(t *testing.T) {
	var infoBuf, warnBuf bytes.Buffer
	h := newFanoutHandler(
		slog.NewTextHandler(&infoBuf, &slog.HandlerOptions{Level: slog.LevelInfo}),
		slog.NewTextHandler(&warnBuf, &slog.HandlerOptions{Level: slog.LevelWarn}),
	)
	logger := slog.New(h).With("session_id", "abc")
	logger.Info("info line")
	logger.Warn("warn line")

	if !strings.Contains(infoBuf.String(), "info line") || !strings.Contains(infoBuf.String(), "warn line") {
		t.Fatalf("info handler missed records: %q", infoBuf.String())
	}
	if strings.Contains(warnBuf.String(), "info line") {
		t.Fatalf("warn handler received info record: %q", warnBuf.String())
	}
	if !strings.Contains(warnBuf.String(), "session_id=abc") {
		t.Fatalf("WithAttrs not propagated: %q", warnBuf.String())
	}
	if h.Enabled(context.Background(), slog.LevelDebug) {
		t.Fatal("debug should be disabled for both handlers")
	}
}

func TestComposeSubject(t *testing.T) {
	tests := []struct {
		session, stage, want string
	}{
		{"", "", ""},
		{"", "frames", "frames"},
		{"abcd1234-ffff", "", "Session abcd1234"},
		{"abcd1234-ffff", "audio", "Session abcd1234 (audio)"},
		{"plain", "audio", "Session plain (audio)"},
	}
	for _, tc := range tests {
		if got := composeSubject(tc.session, tc.stage); got != tc.want {
			t.Errorf("composeSubject(%q, %q) = %q, want %q", tc.session, tc.stage, got, tc.want)
		}
	}
}
