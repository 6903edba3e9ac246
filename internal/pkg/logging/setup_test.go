package logging

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{"", slog.LevelInfo, false},
		{"DEBUG", slog.LevelDebug, false},
		{"warning", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"trace", slog.LevelInfo, true},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseLevel(%q) error = %v", tt.in, err)
		}
		if got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestMultiHandler_FansOutByLevel(t *testing.T) {
	var infoBuf, errBuf bytes.Buffer
	h := NewMultiHandler(
		slog.NewTextHandler(&infoBuf, &slog.HandlerOptions{Level: slog.LevelInfo}),
		slog.NewJSONHandler(&errBuf, &slog.HandlerOptions{Level: slog.LevelError}),
	)
	logger := slog.New(h).With("service", "test")

	logger.Info("cycle finished", "cycle_id", "c1")
	logger.Error("book failed", "book", "pinnacle")

	if !strings.Contains(infoBuf.String(), "cycle finished") || !strings.Contains(infoBuf.String(), "book failed") {
		t.Errorf("text handler missed records: %q", infoBuf.String())
	}
	if strings.Contains(errBuf.String(), "cycle finished") {
		t.Errorf("error handler got an info record: %q", errBuf.String())
	}
	if !strings.Contains(errBuf.String(), `"service":"test"`) {
		t.Errorf("attrs not propagated: %q", errBuf.String())
	}
}
