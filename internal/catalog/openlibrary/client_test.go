package openlibrary_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"
	"time"

	"shelfsort/internal/catalog"
	"shelfsort/internal/catalog/openlibrary"
)

func TestCoverURLsSkipsDocsWithoutCovers(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("author"); got != "Ursula K. Le Guin" {
			t.Errorf("author = %q", got)
		}
		if got := r.URL.Query().Get("limit"); got != "5" {
			t.Errorf("limit = %q", got)
		}
		_, _ = w.Write([]byte(`{"numFound":3,"docs":[{"title":"A"},{"title":"B","cover_i":42},{"title":"C","cover_i":7}]}`))
	}))
	t.Cleanup(server.Close)

	client, err := openlibrary.New(catalog.NewFetcher(100, time.Second), server.URL, "https://covers.example/b/id/", 5)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	urls, err := client.CoverURLs(context.Background(), "A Wizard of Earthsea", "Ursula K. Le Guin")
	if err != nil {
		t.Fatalf("CoverURLs returned error: %v", err)
	}
	want := []string{"https://covers.example/b/id/42-L.jpg", "https://covers.example/b/id/7-L.jpg"}
	if !reflect.DeepEqual(urls, want) {
		t.Fatalf("urls = %v, want %v", urls, want)
	}
}

func TestCoverURLsNoCovers(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"numFound":0,"docs":[]}`))
	}))
	t.Cleanup(server.Close)

	client, err := openlibrary.New(catalog.NewFetcher(100, time.Second), server.URL, "https://covers.example/b/id", 0)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	if _, err := client.CoverURLs(context.Background(), "Nothing", ""); !errors.Is(err, catalog.ErrNoResults) {
		t.Fatalf("expected ErrNoResults, got %v", err)
	}
}
