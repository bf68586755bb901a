package tagging_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/bogem/id3v2"

	"shelfsort/internal/audio"
	"shelfsort/internal/config"
	"shelfsort/internal/logging"
	"shelfsort/internal/metadata"
	"shelfsort/internal/tagging"
	"shelfsort/internal/testsupport"
)

var record = metadata.Record{Title: "My Book", Author: "Jane Doe", Genre: "Fantasy", Series: "Saga", Year: "2019", Synopsis: "A story."}

func makeBook(t *testing.T, dir string, rec metadata.Record) []byte {
	t.Helper()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := metadata.FromRecord(rec, nil).Save(filepath.Join(dir, "metadata.json")); err != nil {
		t.Fatal(err)
	}
	testsupport.WriteMP3(t, filepath.Join(dir, "b-01.mp3"), 10)
	testsupport.WriteFLAC(t, filepath.Join(dir, "b-02.flac"), 44100, 44100)
	testsupport.WriteMP4(t, filepath.Join(dir, "b-03.m4b"), 1000, 1000)
	cover := testsupport.JPEG(t, 32, 32)
	testsupport.WriteBytes(t, filepath.Join(dir, "cover.jpg"), cover)
	return cover
}

func readTags(t *testing.T, path string) audio.Tags {
	t.Helper()
	container, err := audio.Open(path)
	if err != nil {
		t.Fatalf("open %s: %v", path, err)
	}
	defer container.Close()
	tags, err := container.ReadTags()
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return tags
}

func newWriter(t *testing.T) (*tagging.Writer, *config.Config) {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	return tagging.NewWriter(cfg, logging.NewNop()), cfg
}

func TestWriteTagsAcrossContainers(t *testing.T) {
	writer, _ := newWriter(t)
	root := t.TempDir()
	dir := filepath.Join(root, "Jane Doe", "My Book")
	cover := makeBook(t, dir, record)

	stats, err := writer.WriteTags(context.Background(), root, tagging.Options{})
	if err != nil {
		t.Fatalf("WriteTags: %v", err)
	}
	if stats.BooksSeen != 1 || stats.BooksTagged != 1 || stats.FilesTagged != 3 || stats.FilesFailed != 0 {
		t.Fatalf("unexpected stats %+v", stats)
	}

	for i, name := range []string{"b-01.mp3", "b-02.flac", "b-03.m4b"} {
		tags := readTags(t, filepath.Join(dir, name))
		if tags.Album != "Saga - My Book" || tags.Artist != "Jane Doe" || tags.Genre != "Fantasy" || tags.Year != "2019" {
			t.Fatalf("%s: unexpected tags %+v", name, tags)
		}
		if tags.Track != i+1 || tags.TrackTotal != 3 {
			t.Fatalf("%s: track %d/%d", name, tags.Track, tags.TrackTotal)
		}
		if want := []string{"Chapter 01", "Chapter 02", "Chapter 03"}[i]; tags.Title != want {
			t.Fatalf("%s: title %q, want %q", name, tags.Title, want)
		}
		if tags.Comment != "A story." || tags.Description != "A story." {
			t.Fatalf("%s: synopsis %q/%q", name, tags.Comment, tags.Description)
		}
		pic, ok := tags.FirstPicture()
		if !ok || !bytes.Equal(pic.Data, cover) {
			t.Fatalf("%s: cover not embedded", name)
		}
	}
	if info, err := os.Stat(filepath.Join(dir, ".tags_written")); err != nil || info.Size() != 0 {
		t.Fatalf("marker missing or non-empty: %v", err)
	}
}

func TestIncrementalSecondRunWritesNothing(t *testing.T) {
	writer, _ := newWriter(t)
	root := t.TempDir()
	dir := filepath.Join(root, "A", "B")
	makeBook(t, dir, record)

	if _, err := writer.WriteTags(context.Background(), root, tagging.Options{}); err != nil {
		t.Fatal(err)
	}
	past := time.Now().Add(-time.Hour).Truncate(time.Second)
	names := []string{"b-01.mp3", "b-02.flac", "b-03.m4b"}
	for _, name := range names {
		if err := os.Chtimes(filepath.Join(dir, name), past, past); err != nil {
			t.Fatal(err)
		}
	}

	stats, err := writer.WriteTags(context.Background(), root, tagging.Options{Mode: tagging.ModeIncremental})
	if err != nil {
		t.Fatal(err)
	}
	if stats.BooksSkipped != 1 || stats.FilesTagged != 0 {
		t.Fatalf("expected a skipped book, got %+v", stats)
	}
	for _, name := range names {
		info, err := os.Stat(filepath.Join(dir, name))
		if err != nil || !info.ModTime().Equal(past) {
			t.Fatalf("%s was rewritten", name)
		}
	}

	stats, err = writer.WriteTags(context.Background(), root, tagging.Options{Force: true})
	if err != nil {
		t.Fatal(err)
	}
	if stats.BooksTagged != 1 || stats.FilesTagged != 3 {
		t.Fatalf("force should retag, got %+v", stats)
	}
}

func TestAllModeClearsFramesFromEarlierTaggers(t *testing.T) {
	writer, _ := newWriter(t)
	root := t.TempDir()
	dir := filepath.Join(root, "Jane Doe", "My Book")
	makeBook(t, dir, record)

	path := filepath.Join(dir, "b-01.mp3")
	seed, err := id3v2.Open(path, id3v2.Options{Parse: true})
	if err != nil {
		t.Fatal(err)
	}
	seed.AddTextFrame("TPE2", id3v2.EncodingUTF8, "Stale Album Artist")
	seed.AddTextFrame("TPOS", id3v2.EncodingUTF8, "3/7")
	if err := seed.Save(); err != nil {
		t.Fatal(err)
	}
	_ = seed.Close()

	if _, err := writer.WriteTags(context.Background(), root, tagging.Options{Mode: tagging.ModeAll}); err != nil {
		t.Fatalf("WriteTags: %v", err)
	}

	tag, err := id3v2.Open(path, id3v2.Options{Parse: true})
	if err != nil {
		t.Fatal(err)
	}
	defer tag.Close()
	if got := tag.Album(); got != "Saga - My Book" {
		t.Fatalf("album = %q", got)
	}
	for _, id := range []string{"TPE2", "TPOS"} {
		if value := tag.GetTextFrame(id).Text; value != "" {
			t.Fatalf("%s = %q after an all-mode pass", id, value)
		}
	}
}

func TestTextModePreservesCoverAndCoverModePreservesText(t *testing.T) {
	writer, _ := newWriter(t)
	root := t.TempDir()
	dir := filepath.Join(root, "A", "B")
	makeBook(t, dir, record)
	if _, err := writer.WriteTags(context.Background(), root, tagging.Options{}); err != nil {
		t.Fatal(err)
	}

	renamed := record
	renamed.Author = "John Roe"
	if err := metadata.FromRecord(renamed, nil).Save(filepath.Join(dir, "metadata.json")); err != nil {
		t.Fatal(err)
	}
	newCover := testsupport.JPEG(t, 48, 48)
	testsupport.WriteBytes(t, filepath.Join(dir, "cover.jpg"), newCover)

	if _, err := writer.WriteTags(context.Background(), root, tagging.Options{Mode: tagging.ModeText}); err != nil {
		t.Fatal(err)
	}
	tags := readTags(t, filepath.Join(dir, "b-01.mp3"))
	if tags.Artist != "John Roe" {
		t.Fatalf("text mode did not rewrite the artist: %q", tags.Artist)
	}
	if pic, ok := tags.FirstPicture(); !ok || bytes.Equal(pic.Data, newCover) {
		t.Fatal("text mode must keep the original picture")
	}

	if err := metadata.FromRecord(record, nil).Save(filepath.Join(dir, "metadata.json")); err != nil {
		t.Fatal(err)
	}
	if _, err := writer.WriteTags(context.Background(), root, tagging.Options{Mode: tagging.ModeCover}); err != nil {
		t.Fatal(err)
	}
	tags = readTags(t, filepath.Join(dir, "b-02.flac"))
	if tags.Artist != "John Roe" {
		t.Fatalf("cover mode must keep text, artist = %q", tags.Artist)
	}
	if pic, ok := tags.FirstPicture(); !ok || !bytes.Equal(pic.Data, newCover) {
		t.Fatal("cover mode should embed the new cover")
	}
}

func TestUnsupportedAndInvalidBooks(t *testing.T) {
	writer, _ := newWriter(t)
	root := t.TempDir()

	wavBook := filepath.Join(root, "A", "Wav")
	if err := os.MkdirAll(wavBook, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := metadata.FromRecord(record, nil).Save(filepath.Join(wavBook, "metadata.json")); err != nil {
		t.Fatal(err)
	}
	testsupport.WriteWAV(t, filepath.Join(wavBook, "1.wav"), 8000, 800)
	testsupport.WriteMP3(t, filepath.Join(wavBook, "2.mp3"), 5)

	broken := filepath.Join(root, "A", "Broken")
	testsupport.WriteBytes(t, filepath.Join(broken, "metadata.json"), []byte("{oops"))
	testsupport.WriteMP3(t, filepath.Join(broken, "1.mp3"), 5)

	empty := filepath.Join(root, "A", "Empty")
	testsupport.WriteBytes(t, filepath.Join(empty, "metadata.json"), []byte("{}"))

	stats, err := writer.WriteTags(context.Background(), root, tagging.Options{})
	if err != nil {
		t.Fatalf("WriteTags: %v", err)
	}
	if stats.BooksSeen != 3 || stats.BooksTagged != 1 || stats.BooksFailed != 1 || stats.BooksSkipped != 1 {
		t.Fatalf("unexpected book stats %+v", stats)
	}
	if stats.FilesUnsupported != 1 || stats.FilesTagged != 1 {
		t.Fatalf("unexpected file stats %+v", stats)
	}
	if _, err := os.Stat(filepath.Join(broken, ".tags_written")); !os.IsNotExist(err) {
		t.Fatal("a book with invalid metadata must not get a marker")
	}
}

func TestWriteTagsHonoursCancellation(t *testing.T) {
	writer, _ := newWriter(t)
	root := t.TempDir()
	makeBook(t, filepath.Join(root, "A", "B"), record)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := writer.WriteTags(ctx, root, tagging.Options{}); err == nil {
		t.Fatal("expected cancellation error")
	}
}

func TestParseMode(t *testing.T) {
	if mode, err := tagging.ParseMode(""); err != nil || mode != tagging.ModeIncremental {
		t.Fatalf("ParseMode(\"\") = %q, %v", mode, err)
	}
	if _, err := tagging.ParseMode("bogus"); err == nil {
		t.Fatal("expected error")
	}
}
