package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/spf13/cobra"
)

func TestRenderTalliesGroupsThousands(t *testing.T) {
	out := renderTallies("Tagging", []tally{{"Files tagged", 12345}, {"Files failed", 0}}, "Elapsed", "1m05s")
	for _, want := range []string{"Tagging", "Files tagged", "12,345", "Elapsed", "1m05s"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in\n%s", want, out)
		}
	}
}

func TestRenderBooksTrimsLongBookNames(t *testing.T) {
	long := strings.Repeat("Very Long Series Name ", 5) + "Book Twelve"
	out := renderBooks([]string{"Book", "Status"}, [][]string{{long, "KEEP"}, {"Short"}})
	if strings.Contains(out, "Book Twelve") {
		t.Fatalf("book column should be trimmed to %d runes:\n%s", bookColumnWidth, out)
	}
	if !strings.Contains(out, "KEEP") || !strings.Contains(out, "Short") {
		t.Fatalf("missing rows:\n%s", out)
	}
	if renderBooks(nil, nil) != "" {
		t.Fatal("no headers should render nothing")
	}
}

func TestWriteJSONKeepsAmpersands(t *testing.T) {
	var buf bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&buf)
	if err := writeJSON(cmd, map[string]string{"title": "Pride & Prejudice"}); err != nil {
		t.Fatalf("writeJSON: %v", err)
	}
	if !strings.Contains(buf.String(), `"Pride & Prejudice"`) {
		t.Fatalf("title was escaped: %s", buf.String())
	}
}
