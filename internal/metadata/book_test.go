package metadata

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func TestFromRecordDropsSentinels(t *testing.T) {
	book := FromRecord(Record{Title: "My Book", Author: "Unknown", Genre: "Fantasy", Series: "Unknown", Year: "Unknown", Synopsis: "Unknown"}, nil)
	if book.Title != "My Book" {
		t.Fatalf("title = %q", book.Title)
	}
	if len(book.Authors) != 0 || len(book.Series) != 0 {
		t.Fatalf("sentinel author/series must be dropped: %+v", book)
	}
	if book.FirstGenre() != "Fantasy" {
		t.Fatalf("genre = %q", book.FirstGenre())
	}
	if book.PublishedYear != nil || book.Description != nil {
		t.Fatalf("sentinel year/description must be null")
	}
}

func TestSaveWritesAudiobookshelfShape(t *testing.T) {
	path := filepath.Join(t.TempDir(), "metadata.json")
	book := FromRecord(Record{Title: "My Book", Author: "Jane Doe", Series: "Saga", Year: "2019", Synopsis: "A story."},
		[]Chapter{{ID: 0, Start: 0, End: 1.5, Title: "Part 1"}})
	if err := book.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("decode: %v", err)
	}
	for _, key := range []string{"tags", "chapters", "title", "subtitle", "authors", "narrators", "series", "genres",
		"publishedYear", "publishedDate", "publisher", "description", "isbn", "asin", "language", "explicit", "abridged"} {
		if _, ok := raw[key]; !ok {
			t.Fatalf("missing key %q", key)
		}
	}
	if genres, ok := raw["genres"].([]any); !ok || len(genres) != 0 {
		t.Fatalf("genres must serialize as an empty list, got %v", raw["genres"])
	}
	if raw["subtitle"] != nil {
		t.Fatalf("subtitle must be null")
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.SeriesName() != "Saga" || loaded.Year() != "2019" || loaded.Synopsis() != "A story." {
		t.Fatalf("unexpected loaded %+v", loaded)
	}
	if len(loaded.Chapters) != 1 || loaded.Chapters[0].End != 1.5 {
		t.Fatalf("chapters lost: %+v", loaded.Chapters)
	}

	matches, _ := filepath.Glob(filepath.Join(filepath.Dir(path), "*.tmp"))
	if len(matches) != 0 {
		t.Fatalf("temp files left behind: %v", matches)
	}
}

func TestLoadRejectsInvalidJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "metadata.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestWalkBooksStopsAtBookBoundary(t *testing.T) {
	root := t.TempDir()
	for _, dir := range []string{"A/One", "A/One/extras", "B/Two", "C/NoMeta", ".hidden/Three"} {
		if err := os.MkdirAll(filepath.Join(root, dir), 0o755); err != nil {
			t.Fatal(err)
		}
	}
	for _, dir := range []string{"A/One", "A/One/extras", "B/Two", ".hidden/Three"} {
		if err := os.WriteFile(filepath.Join(root, dir, "metadata.json"), []byte("{}"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	var dirs []string
	err := WalkBooks(root, "metadata.json", func(dir string) error {
		dirs = append(dirs, dir)
		return nil
	})
	if err != nil {
		t.Fatalf("WalkBooks: %v", err)
	}
	want := []string{filepath.Join(root, "A/One"), filepath.Join(root, "B/Two")}
	if len(dirs) != len(want) || dirs[0] != want[0] || dirs[1] != want[1] {
		t.Fatalf("WalkBooks visited %v, want %v", dirs, want)
	}
}
