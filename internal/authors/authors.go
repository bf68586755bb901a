// Package authors maintains the newline-delimited known-authors list.
package authors

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"shelfsort/internal/metadata"
	"shelfsort/internal/textutil"
)

// File is an append-only list of title-cased author names. Membership is
// case-insensitive. It is not safe for concurrent writers.
type File struct {
	path string
}

// New returns the list stored at path. The file is created on first Add.
func New(path string) *File {
	return &File{path: path}
}

// Path returns the backing file location.
func (f *File) Path() string { return f.path }

// Names returns every listed author in file order.
func (f *File) Names() ([]string, error) {
	file, err := os.Open(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var names []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			names = append(names, line)
		}
	}
	return names, scanner.Err()
}

// Contains reports whether name is already listed, ignoring case.
func (f *File) Contains(name string) (bool, error) {
	names, err := f.Names()
	if err != nil {
		return false, err
	}
	for _, existing := range names {
		if strings.EqualFold(existing, strings.TrimSpace(name)) {
			return true, nil
		}
	}
	return false, nil
}

// Add appends the title-cased name unless it is empty, Unknown or already
// present. It reports whether a line was written.
func (f *File) Add(name string) (bool, error) {
	name = textutil.CollapseSpaces(name)
	if textutil.IsUnknown(name) {
		return false, nil
	}
	name = textutil.TitleCase(name)
	found, err := f.Contains(name)
	if err != nil || found {
		return false, err
	}
	if err := os.MkdirAll(filepath.Dir(f.path), 0o755); err != nil {
		return false, fmt.Errorf("create authors directory: %w", err)
	}
	file, err := os.OpenFile(f.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return false, err
	}
	if _, err := file.WriteString(name + "\n"); err != nil {
		_ = file.Close()
		return false, err
	}
	return true, file.Close()
}

// Populate adds the first author of every book under root and returns how
// many new names were written.
func (f *File) Populate(root, metadataFile string) (int, error) {
	added := 0
	err := metadata.WalkBooks(root, metadataFile, func(dir string) error {
		book, err := metadata.Load(filepath.Join(dir, metadataFile))
		if err != nil {
			return metadata.SkipBook
		}
		ok, err := f.Add(book.FirstAuthor())
		if err != nil {
			return err
		}
		if ok {
			added++
		}
		return nil
	})
	return added, err
}
