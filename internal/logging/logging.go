// Package logging builds the structured logger shared by the relay server.
package logging

import (
	"io"
	"log/slog"
	"strings"
	"unicode/utf8"
)

// Supported output formats.
const (
	FormatText = "text"
	FormatJSON = "json"
)

// ParseLevel maps a level name to a slog.Level. Unknown names yield info.
func ParseLevel(name string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// New returns a logger writing to w at the given level in text or JSON form.
func New(w io.Writer, level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: ParseLevel(level)}

	var handler slog.Handler
	if strings.EqualFold(format, FormatJSON) {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler)
}

// Discard returns a logger that drops everything. Used by tests.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError + 1}))
}

// Preview returns at most n bytes of payload as a string for log output,
// followed by "..." when truncated. It never splits a UTF-8 sequence.
func Preview(payload []byte, n int) string {
	if len(payload) <= n {
		return string(payload)
	}
	cut := n
	for cut > 0 && !utf8.RuneStart(payload[cut]) {
		cut--
	}
	return string(payload[:cut]) + "..."
}
