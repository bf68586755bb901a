package metadata

import (
	"encoding/json"
	"fmt"
	"os"

	"shelfsort/internal/fileutil"
	"shelfsort/internal/textutil"
)

// Chapter is one audio file's span within the book, in seconds.
type Chapter struct {
	ID    int     `json:"id"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Title string  `json:"title"`
}

// Series names a series the book belongs to.
type Series struct {
	Name string `json:"name"`
}

// BookMetadata is the audiobookshelf metadata.json document.
type BookMetadata struct {
	Tags          []string  `json:"tags"`
	Chapters      []Chapter `json:"chapters"`
	Title         string    `json:"title"`
	Subtitle      *string   `json:"subtitle"`
	Authors       []string  `json:"authors"`
	Narrators     []string  `json:"narrators"`
	Series        []Series  `json:"series"`
	Genres        []string  `json:"genres"`
	PublishedYear *string   `json:"publishedYear"`
	PublishedDate *string   `json:"publishedDate"`
	Publisher     *string   `json:"publisher"`
	Description   *string   `json:"description"`
	ISBN          *string   `json:"isbn"`
	ASIN          *string   `json:"asin"`
	Language      *string   `json:"language"`
	Explicit      bool      `json:"explicit"`
	Abridged      bool      `json:"abridged"`
}

// FromRecord builds the document for rec, dropping sentinel values.
func FromRecord(rec Record, chapters []Chapter) BookMetadata {
	rec = rec.normalized()
	book := BookMetadata{
		Title:    rec.Title,
		Chapters: chapters,
	}
	if !textutil.IsUnknown(rec.Author) {
		book.Authors = []string{rec.Author}
	}
	if !textutil.IsUnknown(rec.Genre) {
		book.Genres = []string{rec.Genre}
	}
	if !textutil.IsUnknown(rec.Series) {
		book.Series = []Series{{Name: rec.Series}}
	}
	if !textutil.IsUnknown(rec.Year) {
		year := rec.Year
		book.PublishedYear = &year
	}
	if !textutil.IsUnknown(rec.Synopsis) {
		synopsis := rec.Synopsis
		book.Description = &synopsis
	}
	return book.withEmptyLists()
}

func (b BookMetadata) withEmptyLists() BookMetadata {
	if b.Tags == nil {
		b.Tags = []string{}
	}
	if b.Chapters == nil {
		b.Chapters = []Chapter{}
	}
	if b.Authors == nil {
		b.Authors = []string{}
	}
	if b.Narrators == nil {
		b.Narrators = []string{}
	}
	if b.Series == nil {
		b.Series = []Series{}
	}
	if b.Genres == nil {
		b.Genres = []string{}
	}
	return b
}

// FirstAuthor returns the primary author or "".
func (b BookMetadata) FirstAuthor() string {
	return first(b.Authors)
}

// FirstGenre returns the primary genre or "".
func (b BookMetadata) FirstGenre() string {
	return first(b.Genres)
}

// SeriesName returns the first series name unless it is absent or Unknown.
func (b BookMetadata) SeriesName() string {
	for _, s := range b.Series {
		if !textutil.IsUnknown(s.Name) {
			return s.Name
		}
	}
	return ""
}

// Year returns the published year unless it is null or Unknown.
func (b BookMetadata) Year() string {
	if b.PublishedYear == nil || textutil.IsUnknown(*b.PublishedYear) {
		return ""
	}
	return *b.PublishedYear
}

// Synopsis returns the description or "".
func (b BookMetadata) Synopsis() string {
	if b.Description == nil || textutil.IsUnknown(*b.Description) {
		return ""
	}
	return *b.Description
}

// Load reads a metadata.json document.
func Load(path string) (BookMetadata, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return BookMetadata{}, err
	}
	var book BookMetadata
	if err := json.Unmarshal(data, &book); err != nil {
		return BookMetadata{}, fmt.Errorf("parse %s: %w", path, err)
	}
	return book.withEmptyLists(), nil
}

// Save writes the document atomically with two-space indentation.
func (b BookMetadata) Save(path string) error {
	data, err := json.MarshalIndent(b.withEmptyLists(), "", "  ")
	if err != nil {
		return fmt.Errorf("encode metadata: %w", err)
	}
	data = append(data, '\n')
	if err := fileutil.WriteFileAtomic(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
