package naming

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestBaseNameStripsSequenceMarkers(t *testing.T) {
	cases := []struct{ in, want string }{
		{"The Hobbit part 3.mp3", "The Hobbit"},
		{"The Hobbit - 3.mp3", "The Hobbit"},
		{"The Hobbit (3).mp3", "The Hobbit"},
		{"The Hobbit_Part_12.m4a", "The Hobbit"},
		{"MyBook - Part 1.mp3", "MyBook"},
		{"El Principito capitulo 4.mp3", "El Principito"},
		{"Dune CD2 - 05.mp3", "Dune"},
		{"Dune disc 1 (2).flac", "Dune"},
		{"cover.jpg", "cover"},
		{"  Spaced   Out  02.mp3", "Spaced Out"},
	}
	for _, tc := range cases {
		if got := BaseName(tc.in); got != tc.want {
			t.Errorf("BaseName(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestBaseNameNeverEmpty(t *testing.T) {
	if got := BaseName("01.mp3"); got != "01" {
		t.Fatalf("expected original stem for all-numeric name, got %q", got)
	}
	if got := BaseName("Part 2.mp3"); got == "" {
		t.Fatal("expected non-empty key")
	}
}

func TestSortNatural(t *testing.T) {
	names := []string{"ch10.mp3", "ch1.mp3", "ch2.mp3"}
	SortNatural(names)
	want := []string{"ch1.mp3", "ch2.mp3", "ch10.mp3"}
	if !reflect.DeepEqual(names, want) {
		t.Fatalf("got %v want %v", names, want)
	}
}

func TestNaturalLessMixedCaseAndZeros(t *testing.T) {
	if !NaturalLess("Chapter 02", "chapter 10") {
		t.Error("expected 02 < 10 ignoring case")
	}
	if NaturalLess("b", "A") {
		t.Error("expected case-insensitive ordering")
	}
	if !NaturalLess("track", "track 1") {
		t.Error("expected shorter prefix first")
	}
}

func TestLooksLikeChapter(t *testing.T) {
	for _, name := range []string{"Chapter 01.mp3", "capitulo 3.mp3", "Part 2.m4b", "parte_1.mp3"} {
		if !LooksLikeChapter(name) {
			t.Errorf("expected %q to look like a chapter", name)
		}
	}
	for _, name := range []string{"Dune 01.mp3", "Partridge.mp3"} {
		if LooksLikeChapter(name) {
			t.Errorf("did not expect %q to look like a chapter", name)
		}
	}
}

func TestClassifier(t *testing.T) {
	c := NewClassifier([]string{".mp3", ".m4b"}, []string{".jpg"})
	if c.Kind("a.MP3") != KindAudio || !c.IsAudio("b.m4b") {
		t.Error("expected audio")
	}
	if !c.IsImage("cover.JPG") {
		t.Error("expected image")
	}
	if c.Kind("notes.txt") != KindOther {
		t.Error("expected other")
	}
}

func TestClassifierListNaturalOrder(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"ch10.mp3", "ch2.mp3", "ch1.MP3", "cover.jpg", ".hidden.mp3", "notes.txt"} {
		if err := os.WriteFile(filepath.Join(dir, name), nil, 0o644); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.Mkdir(filepath.Join(dir, "sub.mp3"), 0o755); err != nil {
		t.Fatal(err)
	}
	c := NewClassifier([]string{".mp3"}, []string{".jpg"})

	audio, err := c.ListAudio(dir)
	if err != nil {
		t.Fatalf("ListAudio: %v", err)
	}
	want := []string{"ch1.MP3", "ch2.mp3", "ch10.mp3"}
	if len(audio) != len(want) {
		t.Fatalf("ListAudio = %v", audio)
	}
	for i, name := range want {
		if filepath.Base(audio[i]) != name {
			t.Fatalf("ListAudio[%d] = %s, want %s", i, audio[i], name)
		}
	}
	images, _ := c.ListImages(dir)
	if len(images) != 1 || filepath.Base(images[0]) != "cover.jpg" {
		t.Fatalf("ListImages = %v", images)
	}
}
