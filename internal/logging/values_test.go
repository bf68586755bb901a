package logging

import (
	"errors"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestConsoleValue(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	tests := []struct {
		name  string
		key   string
		value slog.Value
		want  string
	}{
		{"path under home", "path", slog.StringValue(filepath.Join(home, "Audiobooks", "Dune")), "~/Audiobooks/Dune"},
		{"path elsewhere", "dest", slog.StringValue("/srv/library"), "/srv/library"},
		{"title is not a path", "title", slog.StringValue(filepath.Join(home, "x")), filepath.Join(home, "x")},
		{"quoted title", "title", slog.StringValue("My Book"), `"My Book"`},
		{"empty", "author", slog.StringValue(""), `""`},
		{"size", "size_bytes", slog.Int64Value(3 << 20), "3.0 MiB"},
		{"plain int", "files", slog.IntValue(12), "12"},
		{"long duration", "elapsed", slog.DurationValue(2*time.Minute + 3400*time.Millisecond), "2m3s"},
		{"short duration", "elapsed", slog.DurationValue(1234567 * time.Microsecond), "1.23s"},
		{"error", "error", slog.AnyValue(errors.New("no cover")), `"no cover"`},
		{"items", "items", slog.AnyValue([]string{"Alpha", "Beta"}), "Alpha,Beta"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := consoleValue(tc.key, tc.value); got != tc.want {
				t.Fatalf("consoleValue(%q) = %q, want %q", tc.key, got, tc.want)
			}
		})
	}
}

func TestLabelValueTrimsLongBookNames(t *testing.T) {
	long := strings.Repeat("The Stormlight Archive ", 4)
	got := labelValue(slog.StringValue(long))
	if n := len([]rune(got)); n != maxLabelRunes {
		t.Fatalf("label has %d runes, want %d: %q", n, maxLabelRunes, got)
	}
	if !strings.HasSuffix(got, "…") {
		t.Fatalf("trimmed label should end with an ellipsis: %q", got)
	}
	if got := labelValue(slog.StringValue(" Dune ")); got != "Dune" {
		t.Fatalf("short label = %q", got)
	}
}

func TestJSONAttrRendersDurationsAndTimestamp(t *testing.T) {
	attr := jsonAttr(nil, slog.Duration("elapsed", 90*time.Second+250*time.Millisecond))
	if attr.Value.String() != "1m30s" {
		t.Fatalf("duration rendered as %q", attr.Value.String())
	}
	ts := time.Date(2026, 3, 1, 9, 30, 0, 5e6, time.UTC)
	attr = jsonAttr(nil, slog.Time(slog.TimeKey, ts))
	if attr.Key != "ts" || attr.Value.String() != "2026-03-01T09:30:00.005Z" {
		t.Fatalf("timestamp rendered as %s=%q", attr.Key, attr.Value.String())
	}
	attr = jsonAttr([]string{"request"}, slog.String(slog.LevelKey, "INFO"))
	if attr.Value.String() != "INFO" {
		t.Fatalf("grouped keys must not be rewritten, got %q", attr.Value.String())
	}
}
