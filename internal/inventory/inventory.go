// Package inventory exports a finished library as a delimited text file.
package inventory

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"shelfsort/internal/config"
	"shelfsort/internal/fileutil"
	"shelfsort/internal/metadata"
)

// Header is the column order of the export.
var Header = []string{"Title", "Authors", "Series", "Genres", "PublishedYear", "Description", "Path"}

// Row is one exported book.
type Row struct {
	Title         string
	Authors       string
	Series        string
	Genres        string
	PublishedYear string
	Description   string
	Path          string
}

func (r Row) fields() []string {
	return []string{r.Title, r.Authors, r.Series, r.Genres, r.PublishedYear, r.Description, r.Path}
}

// Collect reads every book under root. Books whose metadata cannot be parsed
// are skipped.
func Collect(root, metadataFile string) ([]Row, error) {
	var rows []Row
	err := metadata.WalkBooks(root, metadataFile, func(dir string) error {
		book, err := metadata.Load(filepath.Join(dir, metadataFile))
		if err != nil {
			return metadata.SkipBook
		}
		rel, err := filepath.Rel(root, dir)
		if err != nil {
			return err
		}
		rows = append(rows, Row{
			Title:         book.Title,
			Authors:       strings.Join(book.Authors, ", "),
			Series:        book.SeriesName(),
			Genres:        strings.Join(book.Genres, ", "),
			PublishedYear: book.Year(),
			Description:   book.Synopsis(),
			Path:          filepath.ToSlash(rel),
		})
		return nil
	})
	return rows, err
}

// Write exports the library under root to <root>/<file_name>. It returns the
// written path and row count; with no books nothing is written and the path
// is empty.
func Write(cfg *config.Config, root string) (string, int, error) {
	delimiter, err := parseDelimiter(cfg.Inventory.Delimiter)
	if err != nil {
		return "", 0, err
	}
	rows, err := Collect(root, cfg.Library.MetadataFile)
	if err != nil {
		return "", 0, err
	}
	if len(rows) == 0 {
		return "", 0, nil
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	w.Comma = delimiter
	if err := w.Write(Header); err != nil {
		return "", 0, err
	}
	for _, row := range rows {
		if err := w.Write(row.fields()); err != nil {
			return "", 0, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", 0, fmt.Errorf("encode inventory: %w", err)
	}

	path := filepath.Join(root, cfg.Inventory.FileName)
	if err := fileutil.WriteFileAtomic(path, buf.Bytes(), 0o644); err != nil {
		return "", 0, err
	}
	return path, len(rows), nil
}

func parseDelimiter(value string) (rune, error) {
	if value == "" {
		return '|', nil
	}
	r, size := utf8.DecodeRuneInString(value)
	if size != len(value) || r == '"' || r == '\n' || r == '\r' {
		return 0, errors.New("inventory delimiter must be a single character other than a quote or newline")
	}
	return r, nil
}
