package logging

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/dustin/go-humanize"
)

// maxLabelRunes bounds the component and book labels at the start of a
// console line.
const maxLabelRunes = 40

// consoleTimestamp is the clock shown at the start of every console line. The
// JSON file keeps the full UTC timestamp.
func consoleTimestamp(ts time.Time) string {
	if ts.IsZero() {
		return ""
	}
	return ts.In(time.Local).Format(time.Stamp)
}

// labelValue renders the component or book lifted into the line prefix.
func labelValue(v slog.Value) string {
	v = v.Resolve()
	var s string
	if v.Kind() == slog.KindString {
		s = v.String()
	} else {
		s = fmt.Sprint(v.Any())
	}
	s = strings.TrimSpace(s)
	if utf8.RuneCountInString(s) <= maxLabelRunes {
		return s
	}
	runes := []rune(s)
	return string(runes[:maxLabelRunes-1]) + "…"
}

// consoleValue renders one key=value pair for the console. Paths under the
// home directory are shortened to ~, sizes read as IEC bytes and durations are
// rounded to a precision that suits their magnitude.
func consoleValue(key string, v slog.Value) string {
	v = v.Resolve()
	switch v.Kind() {
	case slog.KindString:
		s := v.String()
		if isPathKey(key) {
			s = shortenHome(s)
		}
		return quoteIfNeeded(s)
	case slog.KindInt64:
		if n := v.Int64(); isSizeKey(key) && n >= 0 {
			return humanize.IBytes(uint64(n))
		}
		return strconv.FormatInt(v.Int64(), 10)
	case slog.KindUint64:
		if isSizeKey(key) {
			return humanize.IBytes(v.Uint64())
		}
		return strconv.FormatUint(v.Uint64(), 10)
	case slog.KindFloat64:
		return strconv.FormatFloat(v.Float64(), 'f', -1, 64)
	case slog.KindBool:
		return strconv.FormatBool(v.Bool())
	case slog.KindDuration:
		return roundDuration(v.Duration()).String()
	case slog.KindTime:
		return v.Time().In(time.Local).Format(time.DateTime)
	case slog.KindAny:
		switch x := v.Any().(type) {
		case error:
			return quoteIfNeeded(x.Error())
		case []string:
			return quoteIfNeeded(strings.Join(x, ","))
		}
		return quoteIfNeeded(fmt.Sprint(v.Any()))
	default:
		return quoteIfNeeded(v.String())
	}
}

func isPathKey(key string) bool {
	switch key {
	case "path", "dir", "dest", "source_dir", "file", "from", "to", "report", "staged_as":
		return true
	}
	return strings.HasSuffix(key, "_path") || strings.HasSuffix(key, "_dir")
}

func isSizeKey(key string) bool {
	return key == "size" || key == "bytes" || strings.HasSuffix(key, "_bytes")
}

func roundDuration(d time.Duration) time.Duration {
	switch {
	case d >= time.Minute:
		return d.Round(time.Second)
	case d >= time.Second:
		return d.Round(10 * time.Millisecond)
	case d >= time.Millisecond:
		return d.Round(time.Millisecond)
	default:
		return d
	}
}

func shortenHome(path string) string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" || home == string(filepath.Separator) {
		return path
	}
	if path == home {
		return "~"
	}
	if rest, ok := strings.CutPrefix(path, home+string(filepath.Separator)); ok {
		return "~" + string(filepath.Separator) + rest
	}
	return path
}

func quoteIfNeeded(s string) string {
	if s == "" {
		return `""`
	}
	for _, r := range s {
		if r <= ' ' || r == '=' || r == '"' {
			return strconv.Quote(s)
		}
	}
	return s
}
