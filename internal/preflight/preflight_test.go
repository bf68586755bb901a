package preflight

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"shelfsort/internal/catalog"
	"shelfsort/internal/config"
	"shelfsort/internal/testsupport"
)

func TestCheckDirectoryAccess_OK(t *testing.T) {
	dir := t.TempDir()
	result := CheckDirectoryAccess("test", dir)
	if !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotExist(t *testing.T) {
	result := CheckDirectoryAccess("test", filepath.Join(t.TempDir(), "nope"))
	if result.Passed {
		t.Fatal("expected failure for missing dir")
	}
	if result.Detail == "" {
		t.Fatal("expected non-empty detail")
	}
}

func TestCheckDirectoryAccess_NotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	result := CheckDirectoryAccess("test", f)
	if result.Passed {
		t.Fatal("expected failure for file path")
	}
}

func TestCheckRunAcceptsMissingDestination(t *testing.T) {
	root := t.TempDir()
	source := filepath.Join(root, "incoming")
	if err := os.Mkdir(source, 0o755); err != nil {
		t.Fatal(err)
	}
	results := CheckRun(source, filepath.Join(root, "library", "new"))
	if failed := Failed(results); len(failed) != 0 {
		t.Fatalf("unexpected failures: %+v", failed)
	}
	if !strings.HasPrefix(results[2].Detail, root) {
		t.Fatalf("destination check should fall back to an existing ancestor: %s", results[2].Detail)
	}
}

func TestCheckRunMissingSource(t *testing.T) {
	results := CheckRun(filepath.Join(t.TempDir(), "missing"), t.TempDir())
	failed := Failed(results)
	if len(failed) != 1 || failed[0].Name != "Source directory" {
		t.Fatalf("expected only the source check to fail, got %+v", failed)
	}
}

func newFetcher() *catalog.Fetcher {
	return catalog.NewFetcher(1000, 5*time.Second)
}

func TestCheckGoogleBooks(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("key") == "bad" {
			http.Error(w, `{"error":"invalid key"}`, http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"totalItems":0}`))
	}))
	defer srv.Close()

	if result := CheckGoogleBooks(context.Background(), newFetcher(), srv.URL, ""); !result.Passed {
		t.Fatalf("empty result should still pass: %s", result.Detail)
	}
	result := CheckGoogleBooks(context.Background(), newFetcher(), srv.URL, "bad")
	if result.Passed || result.Detail != "HTTP 400" {
		t.Fatalf("expected HTTP 400 failure, got %+v", result)
	}
}

func TestCheckITunes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"resultCount":1,"results":[{"artworkUrl100":"http://example.invalid/100x100bb.jpg"}]}`))
	}))
	defer srv.Close()

	if result := CheckITunes(context.Background(), newFetcher(), srv.URL, "us"); !result.Passed {
		t.Fatalf("expected pass, got: %s", result.Detail)
	}
	if result := CheckITunes(context.Background(), newFetcher(), "", "us"); result.Passed {
		t.Fatal("expected failure for missing URL")
	}
}

func TestCheckLLM(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"{\"ok\":true}"}}]}`))
	}))
	defer srv.Close()

	cfg := testsupport.NewConfig(t, testsupport.WithLLMServer(srv.URL))
	if result := CheckLLM(context.Background(), "LLM", cfg.GetLLM()); !result.Passed {
		t.Fatalf("expected pass, got: %s", result.Detail)
	}
	if result := CheckLLM(context.Background(), "LLM", config.LLMConfig{}); result.Passed {
		t.Fatal("expected failure without API key")
	}
}

func TestCheckAuthorsFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "known_authors.txt")
	if result := CheckAuthorsFile(path); !result.Passed || !strings.Contains(result.Detail, "not created yet") {
		t.Fatalf("missing file should pass, got %+v", result)
	}
	if err := os.WriteFile(path, []byte("Jane Doe\nJohn Roe\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if result := CheckAuthorsFile(path); !result.Passed || !strings.Contains(result.Detail, "2 authors") {
		t.Fatalf("unexpected result %+v", result)
	}
}

func TestCheckLookupCache(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithCache())
	result := CheckLookupCache(context.Background(), cfg)
	if !result.Passed || !strings.Contains(result.Detail, "0 entries") {
		t.Fatalf("unexpected result %+v", result)
	}
}

func TestRunAll_NilConfig(t *testing.T) {
	results := RunAll(context.Background(), nil)
	if results != nil {
		t.Fatal("expected nil results for nil config")
	}
}
