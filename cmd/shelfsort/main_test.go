package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"shelfsort/internal/metadata"
	"shelfsort/internal/testsupport"
)

type cliTestEnv struct {
	baseDir    string
	configPath string
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	base := t.TempDir()
	homeDir := filepath.Join(base, "home")
	if err := os.MkdirAll(homeDir, 0o755); err != nil {
		t.Fatalf("mkdir home: %v", err)
	}
	t.Setenv("HOME", homeDir)
	t.Setenv("OPENROUTER_API_KEY", "")
	t.Setenv("SHELFSORT_LLM_API_KEY", "")
	t.Setenv("SHELFSORT_NTFY_TOPIC", "")

	configPath := filepath.Join(base, "shelfsort.toml")
	content := `[paths]
log_dir = "` + filepath.Join(base, "logs") + `"
cache_dir = "` + filepath.Join(base, "cache") + `"
authors_file = "` + filepath.Join(base, "known_authors.txt") + `"

[llm]
api_key = "test"
api_cooldown = 0

[cache]
enabled = false

[logging]
format = "json"
level = "error"
`
	if err := os.WriteFile(configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return &cliTestEnv{baseDir: base, configPath: configPath}
}

func runCLI(t *testing.T, env *cliTestEnv, args ...string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(append([]string{"--config", env.configPath}, args...))
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, haystack, needle string) {
	t.Helper()
	if !strings.Contains(haystack, needle) {
		t.Fatalf("expected output to contain %q\n--- output ---\n%s", needle, haystack)
	}
}

func writeBook(t *testing.T, dir, title, author string) {
	t.Helper()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	book := metadata.FromRecord(metadata.Record{Title: title, Author: author, Genre: "Fantasy", Year: "2020"}, nil)
	if err := book.Save(filepath.Join(dir, "metadata.json")); err != nil {
		t.Fatalf("save metadata: %v", err)
	}
}

func TestConfigInitAndValidate(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, env, "config", "validate")
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	requireContains(t, out, "Configuration valid")
	requireContains(t, out, env.configPath)

	target := filepath.Join(t.TempDir(), "config.toml")
	out, _, err = runCLI(t, env, "config", "init", "--path", target)
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected config file at %s: %v", target, err)
	}

	if _, _, err := runCLI(t, env, "config", "init", "--path", target); err == nil {
		t.Fatalf("expected init to refuse overwriting without --overwrite")
	}

	out, _, err = runCLI(t, env, "config", "show")
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	requireContains(t, out, "[library]")
	requireContains(t, out, "no_cover_dir")
	if strings.Contains(out, "'test'") || strings.Contains(out, `"test"`) {
		t.Fatalf("config show printed the llm key:\n%s", out)
	}
}

func TestInventoryAndAuthorsCommands(t *testing.T) {
	env := setupCLITestEnv(t)
	library := filepath.Join(env.baseDir, "library")
	writeBook(t, filepath.Join(library, "Jane Doe", "First Book"), "First Book", "Jane Doe")
	writeBook(t, filepath.Join(library, "Sam Roe", "Second Book"), "Second Book", "Sam Roe")

	out, _, err := runCLI(t, env, "inventory", library)
	if err != nil {
		t.Fatalf("inventory: %v", err)
	}
	requireContains(t, out, "Wrote 2 books")
	data, err := os.ReadFile(filepath.Join(library, "inventory.csv"))
	if err != nil {
		t.Fatalf("read inventory: %v", err)
	}
	requireContains(t, string(data), "Title|Authors|Series|Genres|PublishedYear|Description|Path")
	requireContains(t, string(data), "Jane Doe/First Book")

	out, _, err = runCLI(t, env, "--json", "authors", "populate", library)
	if err != nil {
		t.Fatalf("authors populate: %v", err)
	}
	var populated struct {
		Added int `json:"added"`
	}
	if err := json.Unmarshal([]byte(out), &populated); err != nil {
		t.Fatalf("decode populate output %q: %v", out, err)
	}
	if populated.Added != 2 {
		t.Fatalf("added = %d, want 2", populated.Added)
	}

	out, _, err = runCLI(t, env, "authors", "list")
	if err != nil {
		t.Fatalf("authors list: %v", err)
	}
	requireContains(t, out, "Jane Doe")
	requireContains(t, out, "Sam Roe")
}

func TestOrganizeDryRunPrintsPlan(t *testing.T) {
	env := setupCLITestEnv(t)
	source := filepath.Join(env.baseDir, "incoming")
	testsupport.Touch(t, source, "Some Story - Part 1.mp3", "Some Story - Part 2.mp3")

	out, _, err := runCLI(t, env, "--json", "organize", "--dry-run", source)
	if err != nil {
		t.Fatalf("organize --dry-run: %v", err)
	}
	var summary struct {
		DryRun bool `json:"dry_run"`
		Books  []struct {
			Folder  string `json:"folder"`
			Outcome string `json:"outcome"`
		} `json:"books"`
	}
	if err := json.Unmarshal([]byte(out), &summary); err != nil {
		t.Fatalf("decode summary %q: %v", out, err)
	}
	if !summary.DryRun || len(summary.Books) != 1 || summary.Books[0].Outcome != "planned" {
		t.Fatalf("unexpected summary %+v", summary)
	}

	entries, err := os.ReadDir(source)
	if err != nil {
		t.Fatalf("read source: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("dry run changed the source: %d entries", len(entries))
	}
}

func TestOrganizeRejectsMissingSource(t *testing.T) {
	env := setupCLITestEnv(t)
	if _, _, err := runCLI(t, env, "organize", filepath.Join(env.baseDir, "missing")); err == nil {
		t.Fatalf("expected error for missing source")
	}
}

func TestStagingListAndTag(t *testing.T) {
	env := setupCLITestEnv(t)
	source := filepath.Join(env.baseDir, "incoming")
	testsupport.Touch(t, filepath.Join(env.baseDir, "_shelfsort_staging_20260101_120000", "Leftover"), "01.mp3")
	if err := os.MkdirAll(source, 0o755); err != nil {
		t.Fatalf("mkdir source: %v", err)
	}

	out, _, err := runCLI(t, env, "staging", "list", source)
	if err != nil {
		t.Fatalf("staging list: %v", err)
	}
	requireContains(t, out, "_shelfsort_staging_20260101_120000")
	requireContains(t, out, "Total: 1 directories")

	library := filepath.Join(env.baseDir, "library")
	if err := os.MkdirAll(library, 0o755); err != nil {
		t.Fatalf("mkdir library: %v", err)
	}
	out, _, err = runCLI(t, env, "tag", "--mode", "all", library)
	if err != nil {
		t.Fatalf("tag: %v", err)
	}
	requireContains(t, out, "Books seen")

	if _, _, err := runCLI(t, env, "tag", "--mode", "bogus", library); err == nil {
		t.Fatalf("expected error for unknown mode")
	}
}

func TestTestNotifyDisabled(t *testing.T) {
	env := setupCLITestEnv(t)
	out, _, err := runCLI(t, env, "test-notify")
	if err != nil {
		t.Fatalf("test-notify: %v", err)
	}
	requireContains(t, out, "Notifications are disabled")
}

func TestLogsCommandFiltersByLevel(t *testing.T) {
	env := setupCLITestEnv(t)
	logDir := filepath.Join(env.baseDir, "logs")
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		t.Fatalf("mkdir logs: %v", err)
	}
	content := `{"level":"info","msg":"run started","component":"workflow"}
{"level":"warn","msg":"book has no cover","component":"library","book":"My Book"}
`
	if err := os.WriteFile(filepath.Join(logDir, "shelfsort.log"), []byte(content), 0o644); err != nil {
		t.Fatalf("write log: %v", err)
	}

	out, _, err := runCLI(t, env, "logs", "--level", "warn", "-n", "10")
	if err != nil {
		t.Fatalf("logs: %v", err)
	}
	requireContains(t, out, "book has no cover")
	if strings.Contains(out, "run started") {
		t.Fatalf("info line should be filtered out:\n%s", out)
	}
}
