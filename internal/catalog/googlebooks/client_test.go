package googlebooks_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"shelfsort/internal/catalog"
	"shelfsort/internal/catalog/googlebooks"
)

func newClient(t *testing.T, handler http.HandlerFunc, apiKey string) *googlebooks.Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	client, err := googlebooks.New(catalog.NewFetcher(100, time.Second), server.URL+"/books/v1/volumes", apiKey)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	return client
}

func TestSearchReturnsFirstVolume(t *testing.T) {
	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("q"); got != "The Hobbit Tolkien" {
			t.Errorf("q = %q", got)
		}
		if got := r.URL.Query().Get("key"); got != "secret" {
			t.Errorf("key = %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"totalItems":2,"items":[
			{"volumeInfo":{"title":"The Hobbit","authors":["J. R. R. Tolkien"],"publishedDate":"1937-09-21","categories":["Fiction"],"description":"There and back again."}},
			{"volumeInfo":{"title":"Other"}}]}`))
	}, "secret")

	volume, err := client.Search(context.Background(), "The Hobbit Tolkien")
	if err != nil {
		t.Fatalf("Search returned error: %v", err)
	}
	if volume.Title != "The Hobbit" || volume.Authors[0] != "J. R. R. Tolkien" {
		t.Fatalf("unexpected volume %+v", volume)
	}
	if volume.Year() != "1937" {
		t.Fatalf("Year() = %q, want 1937", volume.Year())
	}
}

func TestSearchOmitsEmptyKey(t *testing.T) {
	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Has("key") {
			t.Errorf("unexpected key parameter: %q", r.URL.RawQuery)
		}
		_, _ = w.Write([]byte(`{"totalItems":0}`))
	}, "")

	_, err := client.Search(context.Background(), "nothing")
	if !errors.Is(err, catalog.ErrNoResults) {
		t.Fatalf("expected ErrNoResults, got %v", err)
	}
}

func TestSearchHTTPError(t *testing.T) {
	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":"quota"}`))
	}, "")

	_, err := client.Search(context.Background(), "anything")
	var statusErr *catalog.StatusError
	if !errors.As(err, &statusErr) || statusErr.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("expected StatusError 429, got %v", err)
	}
}

func TestYearWithoutDash(t *testing.T) {
	if got := (googlebooks.VolumeInfo{PublishedDate: "2004"}).Year(); got != "2004" {
		t.Fatalf("Year() = %q", got)
	}
	if got := (googlebooks.VolumeInfo{}).Year(); got != "" {
		t.Fatalf("Year() of empty date = %q", got)
	}
}
