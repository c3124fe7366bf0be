package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{" error ", slog.LevelError},
		{"bogus", slog.LevelInfo},
		{"", slog.LevelInfo},
	}

	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

// TestNewJSON verifies JSON output carries the structured attributes.
func TestNewJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, "info", FormatJSON)

	logger.Info("connection opened", "peer", "127.0.0.1:5000", "connections", 3)

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("output is not JSON: %v (%q)", err, buf.String())
	}
	if entry["msg"] != "connection opened" {
		t.Errorf("msg = %v", entry["msg"])
	}
	if entry["peer"] != "127.0.0.1:5000" {
		t.Errorf("peer = %v", entry["peer"])
	}
}

// TestNewTextRespectsLevel verifies records below the level are dropped.
func TestNewTextRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, "warn", FormatText)

	logger.Info("hidden")
	logger.Warn("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Error("info record written at warn level")
	}
	if !strings.Contains(out, "shown") {
		t.Error("warn record missing")
	}
}

func TestPreview(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		n       int
		want    string
	}{
		{"short", "hello", 50, "hello"},
		{"exact", "hello", 5, "hello"},
		{"truncated", "hello world", 5, "hello..."},
		{"empty", "", 50, ""},
		{"multibyte boundary", "héllo", 2, "h..."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Preview([]byte(tt.payload), tt.n); got != tt.want {
				t.Errorf("Preview(%q, %d) = %q, want %q", tt.payload, tt.n, got, tt.want)
			}
		})
	}
}
