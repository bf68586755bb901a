package lookupcache_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"shelfsort/internal/lookupcache"
)

func openStore(t *testing.T) *lookupcache.Store {
	t.Helper()
	store, err := lookupcache.Open(filepath.Join(t.TempDir(), "cache", "lookups.db"))
	if err != nil {
		t.Fatalf("Open returned error: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestPutGetNormalizesKey(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	entry := lookupcache.Entry{Info: "The  Hobbit ", Source: "googlebooks", Title: "The Hobbit", Author: "J. R. R. Tolkien", Year: "1937"}
	if err := store.Put(ctx, entry); err != nil {
		t.Fatalf("Put returned error: %v", err)
	}

	got, ok, err := store.Get(ctx, "the hobbit")
	if err != nil || !ok {
		t.Fatalf("Get = %v, %v", ok, err)
	}
	if got.Title != "The Hobbit" || got.Source != "googlebooks" || got.Year != "1937" {
		t.Fatalf("unexpected entry %+v", got)
	}
	if got.CreatedAt.IsZero() {
		t.Fatal("expected created_at to be recorded")
	}
}

func TestPutReplaces(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	if err := store.Put(ctx, lookupcache.Entry{Info: "dune", Source: "llm", Title: "Dune"}); err != nil {
		t.Fatal(err)
	}
	if err := store.Put(ctx, lookupcache.Entry{Info: "dune", Source: "googlebooks", Title: "Dune Messiah"}); err != nil {
		t.Fatal(err)
	}
	got, _, err := store.Get(ctx, "dune")
	if err != nil {
		t.Fatal(err)
	}
	if got.Title != "Dune Messiah" {
		t.Fatalf("expected replacement, got %+v", got)
	}
	if count, err := store.Count(ctx); err != nil || count != 1 {
		t.Fatalf("Count = %d, %v", count, err)
	}
}

func TestMissAndClear(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	if _, ok, err := store.Get(ctx, "missing"); err != nil || ok {
		t.Fatalf("expected miss, got ok=%v err=%v", ok, err)
	}
	for _, info := range []string{"a", "b"} {
		if err := store.Put(ctx, lookupcache.Entry{Info: info, Source: "llm", Title: info}); err != nil {
			t.Fatal(err)
		}
	}
	removed, err := store.Clear(ctx)
	if err != nil || removed != 2 {
		t.Fatalf("Clear = %d, %v", removed, err)
	}
}

func TestPutRejectsEmptyInfo(t *testing.T) {
	store := openStore(t)
	if err := store.Put(context.Background(), lookupcache.Entry{Info: "   "}); err == nil {
		t.Fatal("expected error for empty info")
	}
}

func TestReopenKeepsEntries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lookups.db")
	store, err := lookupcache.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := store.Put(context.Background(), lookupcache.Entry{Info: "emma", Source: "llm", Title: "Emma"}); err != nil {
		t.Fatal(err)
	}
	_ = store.Close()

	reopened, err := lookupcache.Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()
	if _, ok, err := reopened.Get(context.Background(), "Emma"); err != nil || !ok {
		t.Fatalf("entry lost across reopen: ok=%v err=%v", ok, err)
	}
	if errors.Is(err, lookupcache.ErrSchemaMismatch) {
		t.Fatal("unexpected schema mismatch")
	}
}
