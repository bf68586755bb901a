package logs_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"shelfsort/internal/logs"
)

const sampleLog = `{"ts":"2026-03-01T09:00:00Z","level":"info","msg":"run started","component":"workflow","correlation_id":"abc123"}
{"ts":"2026-03-01T09:00:01Z","level":"debug","msg":"cache miss","component":"metadata","book":"My Book","correlation_id":"abc123"}
{"ts":"2026-03-01T09:00:02Z","level":"warn","msg":"book has no cover","component":"library","book":"My Book","correlation_id":"abc123"}
{"ts":"2026-03-01T09:00:03Z","level":"error","msg":"book failed","component":"workflow","book":"Other","correlation_id":"def456"}
`

func writeLog(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "shelfsort.log")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write log: %v", err)
	}
	return path
}

func TestTailLastLines(t *testing.T) {
	path := writeLog(t, "a\nb\nc\n")

	result, err := logs.Tail(path, logs.TailOptions{Offset: -1, Limit: 2})
	if err != nil {
		t.Fatalf("tail returned error: %v", err)
	}
	if len(result.Lines) != 2 || result.Lines[0] != "b" || result.Lines[1] != "c" {
		t.Fatalf("unexpected lines: %#v", result.Lines)
	}
	if result.Offset != 6 {
		t.Fatalf("offset = %d, want 6", result.Offset)
	}
}

func TestTailMissingFile(t *testing.T) {
	result, err := logs.Tail(filepath.Join(t.TempDir(), "missing.log"), logs.TailOptions{Offset: -1, Limit: 5})
	if err != nil {
		t.Fatalf("tail returned error: %v", err)
	}
	if len(result.Lines) != 0 || result.Offset != 0 {
		t.Fatalf("unexpected result %+v", result)
	}
}

func TestTailLeavesPartialLine(t *testing.T) {
	path := writeLog(t, "one\ntwo")
	result, err := logs.Tail(path, logs.TailOptions{Offset: 0})
	if err != nil {
		t.Fatalf("tail returned error: %v", err)
	}
	if len(result.Lines) != 1 || result.Offset != 4 {
		t.Fatalf("expected only the complete line, got %+v", result)
	}
}

func TestFilterMatch(t *testing.T) {
	path := writeLog(t, sampleLog)
	tests := []struct {
		name   string
		filter logs.Filter
		want   []string
	}{
		{"level minimum", logs.Filter{Level: "warn"}, []string{"book has no cover", "book failed"}},
		{"component", logs.Filter{Component: "workflow"}, []string{"run started", "book failed"}},
		{"book substring", logs.Filter{Book: "my book"}, []string{"cache miss", "book has no cover"}},
		{"run id prefix", logs.Filter{RunID: "def"}, []string{"book failed"}},
		{"combined", logs.Filter{Level: "info", Book: "My Book"}, []string{"book has no cover"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := logs.Tail(path, logs.TailOptions{Offset: 0, Filter: tt.filter})
			if err != nil {
				t.Fatalf("tail: %v", err)
			}
			if len(result.Lines) != len(tt.want) {
				t.Fatalf("got %d lines, want %d: %v", len(result.Lines), len(tt.want), result.Lines)
			}
			for i, msg := range tt.want {
				if !strings.Contains(result.Lines[i], msg) {
					t.Fatalf("line %d = %s, want %q", i, result.Lines[i], msg)
				}
			}
		})
	}
	if (logs.Filter{Level: "info"}).Match("plain text") {
		t.Fatalf("non-JSON lines must not match a non-empty filter")
	}
}

func TestFollowEmitsAppendedLines(t *testing.T) {
	path := writeLog(t, "start\n")
	initial, err := logs.Tail(path, logs.TailOptions{Offset: -1, Limit: 0})
	if err != nil {
		t.Fatalf("tail: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var mu sync.Mutex
	var got []string
	done := make(chan error, 1)
	go func() {
		done <- logs.Follow(ctx, path, initial.Offset, logs.Filter{}, func(line string) {
			mu.Lock()
			got = append(got, line)
			mu.Unlock()
			cancel()
		})
	}()

	time.Sleep(100 * time.Millisecond)
	file, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatalf("open log: %v", err)
	}
	if _, err := file.WriteString("next\n"); err != nil {
		t.Fatalf("append: %v", err)
	}
	_ = file.Close()

	<-done
	mu.Lock()
	defer mu.Unlock()
	if len(got) != 1 || got[0] != "next" {
		t.Fatalf("unexpected followed lines %v", got)
	}
}
