package tagging

import (
	"testing"

	"shelfsort/internal/metadata"
)

func TestFormatTitle(t *testing.T) {
	cases := []struct {
		format string
		n      int
		want   string
	}{
		{"Chapter {n:02}", 3, "Chapter 03"},
		{"Chapter {n:02}", 12, "Chapter 12"},
		{"Track {n}", 7, "Track 7"},
		{"{title} {n:3}", 4, "Book 004"},
	}
	for _, tc := range cases {
		if got := formatTitle(tc.format, "", "Book", tc.n); got != tc.want {
			t.Errorf("formatTitle(%q, %d) = %q, want %q", tc.format, tc.n, got, tc.want)
		}
	}
}

func TestAlbumTitle(t *testing.T) {
	withSeries := metadata.FromRecord(metadata.Record{Title: "Book", Series: "Saga"}, nil)
	if got := albumTitle(withSeries, "{series} - {title}"); got != "Saga - Book" {
		t.Fatalf("albumTitle = %q", got)
	}
	unknownSeries := metadata.FromRecord(metadata.Record{Title: "Book", Series: "Unknown"}, nil)
	if got := albumTitle(unknownSeries, "{series} - {title}"); got != "Book" {
		t.Fatalf("albumTitle = %q", got)
	}
}

func TestTrackTitle(t *testing.T) {
	if got := trackTitle("chapter 05.mp3", "Album", "Chapter {n:02}", 1, 3); got != "Chapter 05" {
		t.Fatalf("chapter-like name = %q", got)
	}
	if got := trackTitle("book-01.mp3", "Album", "Chapter {n:02}", 2, 3); got != "Chapter 02" {
		t.Fatalf("numbered = %q", got)
	}
	if got := trackTitle("book.mp3", "Album", "Chapter {n:02}", 1, 1); got != "Album" {
		t.Fatalf("single track = %q", got)
	}
	if got := trackTitle("chapter_one.mp3", "Album", "Chapter {n:02}", 1, 1); got != "Album" {
		t.Fatalf("single chapter-like track = %q, want the album title", got)
	}
	if got := trackTitle("part_two_the_return.mp3", "Album", "Chapter {n:02}", 2, 4); got != "Part Two The Return" {
		t.Fatalf("underscored chapter name = %q", got)
	}
}
